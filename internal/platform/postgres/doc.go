// Package postgres provides the remote document replica on PostgreSQL.
// It registers the pgx database/sql driver, embeds the goose migrations for
// the documents and attachments tables, and maps pgconn error codes onto the
// store error taxonomy.
package postgres
