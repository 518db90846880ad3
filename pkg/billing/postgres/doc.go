// Package postgres implements the billing store interfaces on top of a
// pgx connection pool. Upserts rely on unique indexes over the provider
// ids (see the migrations), which is what makes event reprocessing safe
// under concurrent deliveries.
package postgres
