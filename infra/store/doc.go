// Package store provides the SQL implementations of store.PlanStore:
// an embedded SQLite store (modernc.org/sqlite) and a PostgreSQL store
// (pgx). Both keep plans, blocks and exit times in three tables and write
// a plan with all its rows in one transaction.
package store
