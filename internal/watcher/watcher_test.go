package watcher

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sproutlingapp/sproutling-server/internal/migrate"
	"github.com/sproutlingapp/sproutling-server/internal/store"
)

func setupWatcher(t *testing.T) (*Watcher, *store.Store, string) {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "db"), slog.New(slog.DiscardHandler), store.NewNoopEmitter())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})

	dir := t.TempDir()
	importer := migrate.NewImporter(s, slog.New(slog.DiscardHandler))
	w, err := New(dir, importer, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(w.Stop)

	return w, s, dir
}

func writeLegacyExport(t *testing.T, path string) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	for _, stmt := range []string{
		`CREATE TABLE children (name TEXT, birth_date TEXT)`,
		`INSERT INTO children (name, birth_date) VALUES ('Mia', '2025-03-14 00:00:00')`,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
}

func waitForImport(t *testing.T, s *store.Store, ownerID string) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		children, err := s.ListChildrenForCaller(context.Background(), ownerID)
		require.NoError(t, err)
		if len(children) > 0 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("import did not complete in time")
}

func TestWatcher_ImportsDroppedFile(t *testing.T) {
	w, s, dir := setupWatcher(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	path := filepath.Join(dir, "account_sarah.db")
	writeLegacyExport(t, path)

	waitForImport(t, s, "account_sarah")

	children, err := s.ListChildrenForCaller(context.Background(), "account_sarah")
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "Mia", children[0].Name)

	// The processed file is renamed away so restarts skip it.
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(path + ".imported"); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("drop file was not renamed after import")
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestWatcher_ProcessesPreexistingFiles(t *testing.T) {
	w, s, dir := setupWatcher(t)

	// File is already in place before the watcher starts.
	writeLegacyExport(t, filepath.Join(dir, "account_early.db"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	waitForImport(t, s, "account_early")
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	w, s, dir := setupWatcher(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a database"), 0o644))

	// Give the settle window time to elapse, then confirm nothing imported.
	time.Sleep(settleDelay + time.Second)
	children, err := s.ListChildrenForCaller(context.Background(), "notes")
	require.NoError(t, err)
	assert.Empty(t, children)
}
