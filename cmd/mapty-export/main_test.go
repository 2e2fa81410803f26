package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/claude/mapty/internal/snapshot"
	"github.com/claude/mapty/internal/storage"
)

const twoWorkouts = `[
	{"type":"running","coordinates":[38.7,-9.1],"distance":5,"duration":30,"cadence":160},
	{"type":"cycling","coordinates":[41.1,-8.6],"distance":20,"duration":60,"elevationGain":-5}
]`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "workouts.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadThenExport(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()

	n, err := load(ctx, kv, writeFile(t, twoWorkouts), false, false)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	out := filepath.Join(t.TempDir(), "out.json")
	n, err = export(ctx, kv, out)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.JSONEq(t, twoWorkouts, string(data))
}

// TestLoadRejectsMalformed verifies a bad file leaves storage untouched.
func TestLoadRejectsMalformed(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	require.NoError(t, kv.Set(ctx, storage.WorkoutsKey, `[{"type":"running","coordinates":[1,2],"distance":1,"duration":1,"cadence":1}]`))

	_, err := load(ctx, kv, writeFile(t, `[{"type":"rowing","coordinates":[1,2],"distance":1,"duration":1}]`), true, false)
	require.ErrorIs(t, err, snapshot.ErrMalformed)

	v, _, _ := kv.Get(ctx, storage.WorkoutsKey)
	require.Len(t, snapshot.Decode([]byte(v)), 1)
}

func TestLoadRequiresForce(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	path := writeFile(t, twoWorkouts)

	_, err := load(ctx, kv, path, false, false)
	require.NoError(t, err)
	_, err = load(ctx, kv, path, false, false)
	require.ErrorContains(t, err, "-force")

	n, err := load(ctx, kv, writeFile(t, `[]`), true, false)
	require.NoError(t, err)
	require.Zero(t, n)
	_, ok, _ := kv.Get(ctx, storage.WorkoutsKey)
	require.False(t, ok, "empty import clears the slot")
}

func TestLoadDryRun(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	n, err := load(ctx, kv, writeFile(t, twoWorkouts), false, true)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	_, ok, _ := kv.Get(ctx, storage.WorkoutsKey)
	require.False(t, ok)
}

func TestExportMalformedSlot(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	require.NoError(t, kv.Set(ctx, storage.WorkoutsKey, `{broken`))
	_, err := export(ctx, kv, filepath.Join(t.TempDir(), "out.json"))
	require.ErrorIs(t, err, snapshot.ErrMalformed)
}
