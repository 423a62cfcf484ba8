package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/sproutlingapp/sproutling-server/internal/access"
	"github.com/sproutlingapp/sproutling-server/internal/config"
	"github.com/sproutlingapp/sproutling-server/internal/logger"
	"github.com/sproutlingapp/sproutling-server/internal/search"
	"github.com/sproutlingapp/sproutling-server/internal/service"
)

// SearchIndexHandle wraps the bleve index with shutdown capability.
type SearchIndexHandle struct {
	*search.SearchIndex
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the full-text search index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	index, err := search.NewSearchIndex(search.Options{
		DataPath: cfg.Data.BasePath,
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	log.Info("Search index ready")

	return &SearchIndexHandle{SearchIndex: index}, nil
}

// ProvideSearchService provides the access-filtered search service.
func ProvideSearchService(i do.Injector) (*service.SearchService, error) {
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	evaluator := do.MustInvoke[*access.Evaluator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSearchService(indexHandle.SearchIndex, storeHandle.Store, evaluator, log.Logger), nil
}

// ReindexIfEmpty backfills the search index from the store when the index
// holds no documents, which happens after a mapping change forced a rebuild.
func ReindexIfEmpty(i do.Injector) {
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	searchService := do.MustInvoke[*service.SearchService](i)
	log := do.MustInvoke[*logger.Logger](i)

	count, err := indexHandle.DocumentCount()
	if err != nil {
		log.Warn("Could not read search index document count", "error", err)
		return
	}
	if count > 0 {
		return
	}

	go func() {
		if err := searchService.Reindex(context.Background()); err != nil {
			log.Error("Search reindex failed", "error", err)
			return
		}
		log.Info("Search index rebuilt from store")
	}()
}
