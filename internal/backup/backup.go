// Package backup takes and restores snapshots of the Badger database.
// Snapshots use Badger's native backup stream wrapped in gzip, so a
// restore onto an empty data directory reproduces every account, child
// profile, care record, and invitation exactly.
package backup

import (
	"compress/gzip"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sproutlingapp/sproutling-server/internal/store"
)

// Result describes a completed backup.
type Result struct {
	Path     string        `json:"path"`
	Size     int64         `json:"size"`
	Version  uint64        `json:"version"`
	Duration time.Duration `json:"duration"`
}

// Info describes an existing backup file.
type Info struct {
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

const fileSuffix = ".sproutling.gz"

// Service creates, lists, and prunes database backups.
type Service struct {
	store     *store.Store
	backupDir string
	keep      int
	logger    *slog.Logger
}

// NewService creates a backup Service. keep is how many backup files to
// retain; older files beyond that count are pruned after each Create.
func NewService(s *store.Store, backupDir string, keep int, logger *slog.Logger) *Service {
	return &Service{
		store:     s,
		backupDir: backupDir,
		keep:      keep,
		logger:    logger,
	}
}

// Create writes a new timestamped backup file and prunes old ones.
func (s *Service) Create(ctx context.Context) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}

	start := time.Now()
	name := fmt.Sprintf("backup-%s%s", start.Format("2006-01-02-150405"), fileSuffix)
	path := filepath.Join(s.backupDir, name)

	version, err := s.writeBackup(path)
	if err != nil {
		// A partial file would be restored as a truncated database.
		_ = os.Remove(path)
		return nil, err
	}

	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat backup: %w", err)
	}

	result := &Result{
		Path:     path,
		Size:     fi.Size(),
		Version:  version,
		Duration: time.Since(start),
	}

	if s.logger != nil {
		s.logger.Info("Backup complete",
			"path", result.Path,
			"size", result.Size,
			"duration", result.Duration)
	}

	if err := s.prune(); err != nil && s.logger != nil {
		s.logger.Warn("Backup pruning failed", "error", err)
	}

	return result, nil
}

func (s *Service) writeBackup(path string) (uint64, error) {
	f, err := os.Create(path) //#nosec G304 -- path is built from the configured backup dir
	if err != nil {
		return 0, fmt.Errorf("create backup file: %w", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	version, err := s.store.Backup(gz)
	if err != nil {
		return 0, fmt.Errorf("stream backup: %w", err)
	}
	if err := gz.Close(); err != nil {
		return 0, fmt.Errorf("flush backup: %w", err)
	}
	if err := f.Sync(); err != nil {
		return 0, fmt.Errorf("sync backup: %w", err)
	}
	return version, nil
}

// List returns existing backups, newest first.
func (s *Service) List() ([]Info, error) {
	entries, err := os.ReadDir(s.backupDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backup dir: %w", err)
	}

	var infos []Info
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileSuffix) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		infos = append(infos, Info{
			Path:      filepath.Join(s.backupDir, e.Name()),
			Size:      fi.Size(),
			CreatedAt: fi.ModTime(),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.After(infos[j].CreatedAt)
	})
	return infos, nil
}

// Restore loads the backup file at path into the service's store.
// The store should be freshly opened on an empty data directory.
func (s *Service) Restore(path string) error {
	f, err := os.Open(path) //#nosec G304 -- operator-supplied restore path
	if err != nil {
		return fmt.Errorf("open backup file: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("read backup header: %w", err)
	}
	defer gz.Close()

	if err := s.store.Restore(gz); err != nil {
		return fmt.Errorf("load backup: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Restore complete", "path", path)
	}
	return nil
}

// prune removes the oldest backups beyond the retention count.
func (s *Service) prune() error {
	if s.keep < 1 {
		return nil
	}
	infos, err := s.List()
	if err != nil {
		return err
	}
	for _, old := range infos[min(s.keep, len(infos)):] {
		if err := os.Remove(old.Path); err != nil {
			return fmt.Errorf("remove old backup: %w", err)
		}
		if s.logger != nil {
			s.logger.Info("Pruned old backup", "path", old.Path)
		}
	}
	return nil
}
