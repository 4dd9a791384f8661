// Package db wires the database connection, migrations and repositories
// behind one manager.
package db

import (
	"context"

	"equiptrack/internal/server/repositories/records"
)

type RepositoryManager interface {
	Records() records.Repository

	// Ping reports whether the backing store is reachable. Services use it
	// as the store-readiness check.
	Ping(ctx context.Context) error

	RunMigrations(ctx context.Context) error

	Close() error
}
