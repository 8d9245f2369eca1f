// Package entity defines the identity and lifecycle of persistable objects.
//
// Every document kind embeds Entity and implements Object. An Entity knows its
// id, its revision token, when it was last persisted and what it looked like at
// that moment, and whether it has been flagged for persistence or deletion.
// Entities are either roots, which own exactly one durable record, or embedded
// in another entity and serialized inside their root's record.
//
// Entities never talk to durable storage. They consult the Index they were
// installed into to resolve relations, parents and children.
package entity
