package db

import (
	"context"
	_ "embed"
)

//go:embed migrations/0001_init.sql
var initSchema string

// Migrate applies the core schema. It is intentionally idempotent
// (CREATE TABLE IF NOT EXISTS) rather than versioned — the pack carries
// no migration-runner dependency, so a single repeatable script is the
// grounded choice here (see DESIGN.md).
func Migrate(ctx context.Context, q Querier) error {
	_, err := q.Exec(ctx, initSchema)
	return err
}
