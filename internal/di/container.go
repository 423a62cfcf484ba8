// Package di provides dependency injection configuration for the Sproutling server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/sproutlingapp/sproutling-server/internal/access"
	"github.com/sproutlingapp/sproutling-server/internal/auth"
	"github.com/sproutlingapp/sproutling-server/internal/backup"
	"github.com/sproutlingapp/sproutling-server/internal/config"
	"github.com/sproutlingapp/sproutling-server/internal/di/providers"
	"github.com/sproutlingapp/sproutling-server/internal/logger"
	"github.com/sproutlingapp/sproutling-server/internal/migrate"
	"github.com/sproutlingapp/sproutling-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSlogLogger)
	do.Provide(injector, providers.ProvideAuthKey)

	// Database layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideSearchService)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)

	// Business services
	do.Provide(injector, providers.ProvideEvaluator)
	do.Provide(injector, providers.ProvideAuthService)
	do.Provide(injector, providers.ProvideChildService)
	do.Provide(injector, providers.ProvideSharingService)
	do.Provide(injector, providers.ProvideEmailSender)
	do.Provide(injector, providers.ProvideInvitationService)
	do.Provide(injector, providers.ProvideRecordService)

	// Workers
	do.Provide(injector, providers.ProvideImporter)
	do.Provide(injector, providers.ProvideImportWatcher)
	do.Provide(injector, providers.ProvideBackupService)
	do.Provide(injector, providers.ProvideBackupJob)
	do.Provide(injector, providers.ProvideSessionCleanupJob)
	do.Provide(injector, providers.ProvideInviteExpirySweepJob)

	// Server
	do.Provide(injector, providers.ProvideCodeLimiter)
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	// Invoke core services to trigger initialization
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[providers.AuthKey](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)

	// Business services
	_ = do.MustInvoke[*access.Evaluator](injector)
	_ = do.MustInvoke[*service.AuthService](injector)
	_ = do.MustInvoke[*service.ChildService](injector)
	_ = do.MustInvoke[*service.SharingService](injector)
	_ = do.MustInvoke[*service.InvitationService](injector)
	_ = do.MustInvoke[*service.RecordService](injector)
	_ = do.MustInvoke[*service.SearchService](injector)

	// Workers
	_ = do.MustInvoke[*migrate.Importer](injector)
	_ = do.MustInvoke[*providers.ImportWatcherHandle](injector)
	_ = do.MustInvoke[*backup.Service](injector)
	_ = do.MustInvoke[*providers.BackupJob](injector)
	_ = do.MustInvoke[*providers.SessionCleanupJob](injector)
	_ = do.MustInvoke[*providers.InviteExpirySweepJob](injector)

	// Server
	_ = do.MustInvoke[*providers.CodeLimiterHandle](injector)
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	// Backfill the search index if a mapping change emptied it
	providers.ReindexIfEmpty(injector)

	return nil
}
