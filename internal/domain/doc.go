// Package domain contains the deck doctypes: decks, note types with their
// fields and card templates, notes with their field contents, cards and
// attachment documents.
//
// Every doctype embeds entity.Entity and is installed into a store.Store.
// Mutators end by marking the entity dirty; nothing is written until the
// store commits. Register installs all doctypes into a registry.
package domain
