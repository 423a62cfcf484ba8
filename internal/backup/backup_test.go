package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sproutlingapp/sproutling-server/internal/domain"
	"github.com/sproutlingapp/sproutling-server/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(t.TempDir(), nil, store.NewNoopEmitter())
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})
	return s
}

func seedAccount(t *testing.T, s *store.Store, id, email string) {
	t.Helper()

	acct := &domain.Account{
		Syncable:    domain.Syncable{ID: id},
		Email:       email,
		DisplayName: "Backup Test",
	}
	acct.InitTimestamps()
	require.NoError(t, s.CreateAccount(context.Background(), acct))
}

func TestCreateAndRestore(t *testing.T) {
	ctx := context.Background()
	src := newTestStore(t)
	seedAccount(t, src, "account_backup_1", "backup@example.com")

	svc := NewService(src, t.TempDir(), 7, nil)
	result, err := svc.Create(ctx)
	require.NoError(t, err)
	assert.Positive(t, result.Size)
	assert.FileExists(t, result.Path)

	dst := newTestStore(t)
	restoreSvc := NewService(dst, t.TempDir(), 7, nil)
	require.NoError(t, restoreSvc.Restore(result.Path))

	acct, err := dst.GetAccount(ctx, "account_backup_1")
	require.NoError(t, err)
	assert.Equal(t, "backup@example.com", acct.Email)
	assert.Equal(t, "Backup Test", acct.DisplayName)

	// Secondary indexes travel with the raw keys.
	byEmail, err := dst.GetAccountByEmail(ctx, "backup@example.com")
	require.NoError(t, err)
	assert.Equal(t, "account_backup_1", byEmail.ID)
}

func TestCreate_CanceledContext(t *testing.T) {
	s := newTestStore(t)
	svc := NewService(s, t.TempDir(), 7, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Create(ctx)
	require.Error(t, err)
}

func TestList_NewestFirst(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(newTestStore(t), dir, 7, nil)

	base := time.Now().Add(-time.Hour)
	for i, name := range []string{"backup-a", "backup-b", "backup-c"} {
		path := filepath.Join(dir, name+fileSuffix)
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
		stamp := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, os.Chtimes(path, stamp, stamp))
	}
	// Files without the backup suffix are not backups.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))

	infos, err := svc.List()
	require.NoError(t, err)
	require.Len(t, infos, 3)
	assert.Contains(t, infos[0].Path, "backup-c")
	assert.Contains(t, infos[2].Path, "backup-a")
}

func TestList_MissingDir(t *testing.T) {
	svc := NewService(newTestStore(t), filepath.Join(t.TempDir(), "nope"), 7, nil)

	infos, err := svc.List()
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestPrune_KeepsNewest(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(newTestStore(t), dir, 2, nil)

	base := time.Now().Add(-time.Hour)
	for i, name := range []string{"backup-old", "backup-mid", "backup-new"} {
		path := filepath.Join(dir, name+fileSuffix)
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
		stamp := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, os.Chtimes(path, stamp, stamp))
	}

	require.NoError(t, svc.prune())

	infos, err := svc.List()
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Contains(t, infos[0].Path, "backup-new")
	assert.Contains(t, infos[1].Path, "backup-mid")
	assert.NoFileExists(t, filepath.Join(dir, "backup-old"+fileSuffix))
}
