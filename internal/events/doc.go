// Package events provides the event types and in-memory fan-out used to
// observe the deck engine.
//
// Components publish events without knowing which handlers consume them:
//   - Event: a typed, timestamped envelope with a JSON payload
//   - EventHandler / EventEmitter: the consumer and publisher interfaces
//   - ProgressReporter: a store.Progress that publishes commit progress
package events
