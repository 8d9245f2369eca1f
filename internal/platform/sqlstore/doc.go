// Package sqlstore implements store.Backend on top of database/sql.
//
// Records are kept as JSON bodies in a documents table keyed by id, with the
// revision token in its own column so that the token check and the write it
// guards run in one transaction. Attachments live in a separate table and
// survive document rewrites. The SQL dialect (placeholder style and driver
// error mapping) is supplied by the sqlite and postgres packages.
package sqlstore
