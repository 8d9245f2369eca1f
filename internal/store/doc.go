// Package store keeps the in-memory object graph of a deck and synchronises it
// with a revisioned document backend.
//
// The Store owns a Registry of document kinds, an index of every installed
// entity, a dirty set, and one version counter per doctype. Commits resolve
// dirty entities to their roots, order the roots through a dependency graph
// and write or remove one durable record per root. Loading reads every record
// back and repairs records whose layout no longer matches the registered
// embedding rules.
//
// A Store is not safe for concurrent mutation. Commit batches and loads are
// serialised by the Store itself; everything else must be driven from a single
// goroutine.
package store
