package migrate

import (
	"context"
	"database/sql"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sproutlingapp/sproutling-server/internal/store"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "db"), slog.New(slog.DiscardHandler), store.NewNoopEmitter())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

// writeLegacyDB creates a SQLite file shaped like the single-device app's
// export and returns its path.
func writeLegacyDB(t *testing.T, statements []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "legacy.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	for _, stmt := range statements {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	return path
}

func TestImport(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	path := writeLegacyDB(t, []string{
		`CREATE TABLE children (name TEXT, birth_date TEXT)`,
		`INSERT INTO children (name, birth_date) VALUES ('Mia', '2025-03-14 00:00:00')`,
		`CREATE TABLE feedings (child_id INTEGER, method TEXT, start_at TEXT, end_at TEXT, amount_ml INTEGER, side TEXT, food_name TEXT, notes TEXT)`,
		`INSERT INTO feedings VALUES (1, 'bottle', '2025-06-01 08:15:00', '2025-06-01 08:35:00', 120, NULL, NULL, 'took it all')`,
		`INSERT INTO feedings VALUES (1, 'breast', '2025-06-01 12:00:00', NULL, 0, 'left', NULL, NULL)`,
		`CREATE TABLE sleeps (child_id INTEGER, start_at TEXT, end_at TEXT, is_nap INTEGER, notes TEXT)`,
		`INSERT INTO sleeps VALUES (1, '2025-06-01 13:00:00', '2025-06-01 14:30:00', 1, NULL)`,
		`CREATE TABLE diapers (child_id INTEGER, changed_at TEXT, kind TEXT, notes TEXT)`,
		`INSERT INTO diapers VALUES (1, '2025-06-01 09:00:00', 'wet', NULL)`,
		`CREATE TABLE foods (child_id INTEGER, food_name TEXT, first_tried_at TEXT, reaction TEXT, is_allergen INTEGER, notes TEXT)`,
		`INSERT INTO foods VALUES (1, 'Peanut Butter', '2025-07-10 10:00:00', 'none', 1, 'thin smear')`,
	})

	importer := NewImporter(s, slog.New(slog.DiscardHandler))
	result, err := importer.Import(ctx, path, "account_sarah")
	require.NoError(t, err)

	assert.NotEmpty(t, result.BatchID)
	assert.Equal(t, 1, result.Children)
	assert.Equal(t, 2, result.Records["feeding_log"])
	assert.Equal(t, 1, result.Records["sleep_session"])
	assert.Equal(t, 1, result.Records["diaper_change"])
	assert.Equal(t, 1, result.Records["food_introduction"])
	assert.Zero(t, result.Skipped)

	children, err := s.ListChildrenForCaller(ctx, "account_sarah")
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "Mia", children[0].Name)
	assert.Equal(t, "account_sarah", children[0].OwnerID)

	var feedings int
	for rec, err := range s.FeedingLogs.ListByIndex(ctx, "child", children[0].ID) {
		require.NoError(t, err)
		assert.Equal(t, "account_sarah", rec.OwnerID)
		feedings++
	}
	assert.Equal(t, 2, feedings)
}

func TestImport_MissingTablesTolerated(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	// The earliest app version only had children and feedings.
	path := writeLegacyDB(t, []string{
		`CREATE TABLE children (name TEXT, birth_date TEXT)`,
		`INSERT INTO children (name, birth_date) VALUES ('Leo', '2024-11-02 00:00:00')`,
		`CREATE TABLE feedings (child_id INTEGER, method TEXT, start_at TEXT, end_at TEXT, amount_ml INTEGER, side TEXT, food_name TEXT, notes TEXT)`,
		`INSERT INTO feedings VALUES (1, 'bottle', '2025-01-05 07:00:00', NULL, 90, NULL, NULL, NULL)`,
	})

	importer := NewImporter(s, slog.New(slog.DiscardHandler))
	result, err := importer.Import(ctx, path, "account_sarah")
	require.NoError(t, err)

	assert.Equal(t, 1, result.Children)
	assert.Equal(t, 1, result.Records["feeding_log"])
	assert.Zero(t, result.Records["sleep_session"])
}

func TestImport_BadRowsSkipped(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	path := writeLegacyDB(t, []string{
		`CREATE TABLE children (name TEXT, birth_date TEXT)`,
		`INSERT INTO children (name, birth_date) VALUES ('Mia', '2025-03-14 00:00:00')`,
		`INSERT INTO children (name, birth_date) VALUES ('Broken', 'not-a-date')`,
		`CREATE TABLE diapers (child_id INTEGER, changed_at TEXT, kind TEXT, notes TEXT)`,
		`INSERT INTO diapers VALUES (1, '2025-06-01 09:00:00', 'wet', NULL)`,
		`INSERT INTO diapers VALUES (99, '2025-06-01 10:00:00', 'dirty', NULL)`,
		`INSERT INTO diapers VALUES (1, 'garbage', 'wet', NULL)`,
	})

	importer := NewImporter(s, slog.New(slog.DiscardHandler))
	result, err := importer.Import(ctx, path, "account_sarah")
	require.NoError(t, err)

	// The unparseable child, the orphan diaper, and the garbage timestamp
	// are counted but never block the rest.
	assert.Equal(t, 1, result.Children)
	assert.Equal(t, 1, result.Records["diaper_change"])
	assert.Equal(t, 3, result.Skipped)
}

func TestImport_MissingFile(t *testing.T) {
	s := setupTestStore(t)

	importer := NewImporter(s, slog.New(slog.DiscardHandler))
	_, err := importer.Import(context.Background(), filepath.Join(t.TempDir(), "absent.db"), "account_sarah")
	require.Error(t, err)
}

func TestImport_NoChildrenTable(t *testing.T) {
	s := setupTestStore(t)

	path := writeLegacyDB(t, []string{
		`CREATE TABLE unrelated (x INTEGER)`,
	})

	importer := NewImporter(s, slog.New(slog.DiscardHandler))
	_, err := importer.Import(context.Background(), path, "account_sarah")
	require.Error(t, err)
}
