package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/mapty/internal/config"
	"github.com/claude/mapty/internal/models"
	"github.com/claude/mapty/internal/snapshot"
	"github.com/claude/mapty/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	out := flag.String("out", "", "write the saved workouts to this file ('-' for stdout)")
	in := flag.String("in", "", "replace the saved workouts with this file")
	force := flag.Bool("force", false, "allow -in to overwrite existing workouts")
	dryRun := flag.Bool("dry-run", false, "validate -in without writing")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if (*out == "") == (*in == "") {
		fmt.Fprintf(os.Stderr, "Usage: mapty-export -config config.yaml (-out FILE | -in FILE [-force] [-dry-run])\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Storage.Backend == config.BackendMemory {
		log.Error("memory backend has nothing to export or import into")
		os.Exit(1)
	}

	ctx := context.Background()
	kv, err := storage.Open(ctx, storage.Options{
		Backend:        cfg.Storage.Backend,
		SQLitePath:     cfg.Storage.SQLite.Path,
		PostgresDSN:    cfg.Storage.Postgres.DSN(),
		MigrationsPath: "migrations",
	})
	if err != nil {
		log.Error("failed to open storage", "backend", cfg.Storage.Backend, "error", err)
		os.Exit(1)
	}
	defer kv.Close()

	if *out != "" {
		n, err := export(ctx, kv, *out)
		if err != nil {
			log.Error("export failed", "error", err)
			os.Exit(1)
		}
		log.Info("export complete", "workouts", n, "file", *out)
		return
	}

	n, err := load(ctx, kv, *in, *force, *dryRun)
	if err != nil {
		log.Error("import failed", "error", err)
		os.Exit(1)
	}
	if *dryRun {
		log.Info("DRY RUN: file is valid, nothing written", "workouts", n)
		return
	}
	log.Info("import complete", "workouts", n)
}

// export writes the stored slot in its persisted layout. A malformed slot is
// reported rather than silently written out as empty.
func export(ctx context.Context, kv storage.KV, path string) (int, error) {
	raw, _, err := kv.Get(ctx, storage.WorkoutsKey)
	if err != nil {
		return 0, err
	}
	workouts, err := snapshot.DecodeStrict([]byte(raw))
	if err != nil {
		return 0, fmt.Errorf("stored workouts: %w", err)
	}
	data, err := snapshot.Encode(workouts)
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')

	if path == "-" {
		_, err = os.Stdout.Write(data)
	} else {
		err = os.WriteFile(path, data, 0o644)
	}
	if err != nil {
		return 0, fmt.Errorf("writing %s: %w", path, err)
	}
	return len(workouts), nil
}

// load validates the whole file before touching storage. An empty list
// clears the slot.
func load(ctx context.Context, kv storage.KV, path string, force, dryRun bool) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	workouts, err := snapshot.DecodeStrict(data)
	if err != nil {
		return 0, err
	}

	existing, _, err := kv.Get(ctx, storage.WorkoutsKey)
	if err != nil {
		return 0, err
	}
	if current := snapshot.Decode([]byte(existing)); len(current) > 0 && !force {
		return 0, fmt.Errorf("%d workouts already saved; pass -force to replace them", len(current))
	}
	if dryRun {
		return len(workouts), nil
	}
	return len(workouts), write(ctx, kv, workouts)
}

func write(ctx context.Context, kv storage.KV, workouts []*models.Workout) error {
	if len(workouts) == 0 {
		return kv.Remove(ctx, storage.WorkoutsKey)
	}
	data, err := snapshot.Encode(workouts)
	if err != nil {
		return err
	}
	return kv.Set(ctx, storage.WorkoutsKey, string(data))
}
