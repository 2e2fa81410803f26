package storage

import (
	"context"
	"fmt"
)

// Options selects and configures a KV backend.
type Options struct {
	Backend        string // sqlite, postgres or memory
	SQLitePath     string
	PostgresDSN    string
	MigrationsPath string
}

// Open returns the configured backend. Postgres migrations are applied
// before connecting.
func Open(ctx context.Context, opts Options) (KV, error) {
	switch opts.Backend {
	case "memory":
		return NewMemoryKV(), nil
	case "sqlite", "":
		return OpenSQLite(opts.SQLitePath)
	case "postgres":
		if err := RunMigrations(opts.PostgresDSN, opts.MigrationsPath); err != nil {
			return nil, err
		}
		return New(ctx, opts.PostgresDSN)
	}
	return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
}
