package providers

import (
	"context"
	"path/filepath"
	"time"

	"github.com/samber/do/v2"

	"github.com/sproutlingapp/sproutling-server/internal/backup"
	"github.com/sproutlingapp/sproutling-server/internal/config"
	"github.com/sproutlingapp/sproutling-server/internal/logger"
	"github.com/sproutlingapp/sproutling-server/internal/migrate"
	"github.com/sproutlingapp/sproutling-server/internal/service"
	"github.com/sproutlingapp/sproutling-server/internal/watcher"
)

// ProvideImporter provides the legacy database importer.
func ProvideImporter(i do.Injector) (*migrate.Importer, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return migrate.NewImporter(storeHandle.Store, log.Logger), nil
}

// ImportWatcherHandle wraps the drop-directory watcher with shutdown capability.
// Watcher is nil when no watch path is configured.
type ImportWatcherHandle struct {
	*watcher.Watcher
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *ImportWatcherHandle) Shutdown() error {
	if h.Watcher == nil {
		return nil
	}
	h.cancel()
	h.Watcher.Stop()
	return nil
}

// ProvideImportWatcher provides the legacy export drop-directory watcher.
func ProvideImportWatcher(i do.Injector) (*ImportWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Import.WatchPath == "" {
		log.Info("Import watcher disabled: no watch path configured")
		return &ImportWatcherHandle{}, nil
	}

	importer := do.MustInvoke[*migrate.Importer](i)

	w, err := watcher.New(cfg.Import.WatchPath, importer, log.Logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)

	log.Info("Import watcher started", "path", cfg.Import.WatchPath)

	return &ImportWatcherHandle{
		Watcher: w,
		cancel:  cancel,
	}, nil
}

// SessionCleanupJob runs periodic expired-session cleanup.
type SessionCleanupJob struct {
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (j *SessionCleanupJob) Shutdown() error {
	j.cancel()
	return nil
}

// ProvideSessionCleanupJob provides the periodic session cleanup job.
func ProvideSessionCleanupJob(i do.Injector) (*SessionCleanupJob, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		// Initial cleanup on startup
		if count, err := storeHandle.DeleteExpiredSessions(ctx); err != nil {
			log.Warn("Initial session cleanup failed", "error", err)
		} else if count > 0 {
			log.Info("Initial session cleanup completed", "deleted", count)
		}

		for {
			select {
			case <-ticker.C:
				if count, err := storeHandle.DeleteExpiredSessions(ctx); err != nil {
					log.Warn("Session cleanup failed", "error", err)
				} else if count > 0 {
					log.Info("Session cleanup completed", "deleted", count)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info("Session cleanup job started")

	return &SessionCleanupJob{cancel: cancel}, nil
}

// ProvideBackupService provides the database backup service.
func ProvideBackupService(i do.Injector) (*backup.Service, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	backupDir := filepath.Join(cfg.Data.BasePath, "backups")
	return backup.NewService(storeHandle.Store, backupDir, cfg.Backup.Keep, log.Logger), nil
}

// BackupJob takes a database backup on a timer.
type BackupJob struct {
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (j *BackupJob) Shutdown() error {
	j.cancel()
	return nil
}

// ProvideBackupJob provides the scheduled backup job.
func ProvideBackupJob(i do.Injector) (*BackupJob, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := context.WithCancel(context.Background())

	if cfg.Backup.Interval <= 0 {
		log.Info("Scheduled backups disabled")
		return &BackupJob{cancel: cancel}, nil
	}

	backups := do.MustInvoke[*backup.Service](i)

	go func() {
		ticker := time.NewTicker(cfg.Backup.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, err := backups.Create(ctx); err != nil {
					log.Warn("Scheduled backup failed", "error", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info("Scheduled backups started", "interval", cfg.Backup.Interval, "keep", cfg.Backup.Keep)

	return &BackupJob{cancel: cancel}, nil
}

// InviteExpirySweepJob transitions aged-out pending invitations on a timer
// so their codes return to the pool even if nobody touches them.
type InviteExpirySweepJob struct {
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (j *InviteExpirySweepJob) Shutdown() error {
	j.cancel()
	return nil
}

// ProvideInviteExpirySweepJob provides the periodic invitation expiry sweep.
func ProvideInviteExpirySweepJob(i do.Injector) (*InviteExpirySweepJob, error) {
	invitations := do.MustInvoke[*service.InvitationService](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		ticker := time.NewTicker(15 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if count, err := invitations.ExpireSweep(ctx, time.Now()); err != nil {
					log.Warn("Invitation expiry sweep failed", "error", err)
				} else if count > 0 {
					log.Info("Invitation expiry sweep completed", "expired", count)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info("Invitation expiry sweep started")

	return &InviteExpirySweepJob{cancel: cancel}, nil
}
