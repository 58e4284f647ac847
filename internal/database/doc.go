// Package database manages the node's SQLite connection.
//
// It owns the connection lifecycle: directory creation, pragma
// configuration (WAL, busy timeout, foreign keys), single-writer pool
// tuning and health checks. Repositories such as the state history
// build on top of the DB wrapper it exposes.
package database
