// Package pg bootstraps the PostgreSQL layer: a pgx/v5 connection pool with
// startup retry, goose-driven schema migrations, a health check closure, and
// error helpers for the SQLSTATE codes webhook reconciliation actually hits
// (no rows, unique violations from racing deliveries, FK violations).
package pg
