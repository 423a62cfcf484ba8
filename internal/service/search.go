package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sproutlingapp/sproutling-server/internal/access"
	"github.com/sproutlingapp/sproutling-server/internal/search"
	"github.com/sproutlingapp/sproutling-server/internal/store"
)

// SearchService runs full-text queries and filters the hits down to what
// the caller may actually see. The index is a lookup accelerator, never an
// access authority: every hit is re-checked against the store before it
// reaches the caller.
type SearchService struct {
	index     *search.SearchIndex
	store     *store.Store
	evaluator *access.Evaluator
	logger    *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(index *search.SearchIndex, st *store.Store, evaluator *access.Evaluator, logger *slog.Logger) *SearchService {
	return &SearchService{
		index:     index,
		store:     st,
		evaluator: evaluator,
		logger:    logger,
	}
}

// Search executes a query and returns only the hits the caller can access.
func (s *SearchService) Search(ctx context.Context, callerID string, params search.SearchParams) (*search.SearchResult, error) {
	result, err := s.index.Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	allowed := make([]search.SearchHit, 0, len(result.Hits))
	for _, hit := range result.Hits {
		ok, err := s.callerCanSee(ctx, callerID, hit)
		if err != nil {
			return nil, err
		}
		if ok {
			allowed = append(allowed, hit)
		}
	}

	result.Hits = allowed
	result.Total = uint64(len(allowed))
	return result, nil
}

// callerCanSee checks a single hit against the store. Hits whose backing
// record is gone or deleted are dropped; the index catches up on the next
// write.
func (s *SearchService) callerCanSee(ctx context.Context, callerID string, hit search.SearchHit) (bool, error) {
	switch hit.Type {
	case search.DocTypeRecipe:
		recipe, err := s.store.Recipes.Get(ctx, hit.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return false, nil
			}
			return false, fmt.Errorf("get recipe: %w", err)
		}
		if recipe.IsDeleted() {
			return false, nil
		}
		return s.evaluator.CanAccess(ctx, recipe, callerID), nil

	case search.DocTypeFoodIntroduction:
		food, err := s.store.FoodIntroductions.Get(ctx, hit.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return false, nil
			}
			return false, fmt.Errorf("get food introduction: %w", err)
		}
		if food.IsDeleted() {
			return false, nil
		}
		return s.evaluator.CanAccess(ctx, food, callerID), nil

	default:
		// Unknown document types fail closed.
		return false, nil
	}
}

// Reindex rebuilds the search index from the store. Used after legacy
// imports and on mapping upgrades.
func (s *SearchService) Reindex(ctx context.Context) error {
	if err := s.index.Rebuild(); err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}

	var docs []*search.SearchDocument

	for recipe, err := range s.store.Recipes.List(ctx) {
		if err != nil {
			return fmt.Errorf("list recipes: %w", err)
		}
		if recipe.IsDeleted() {
			continue
		}
		docs = append(docs, search.DocumentFromRecipe(recipe))
	}

	for food, err := range s.store.FoodIntroductions.List(ctx) {
		if err != nil {
			return fmt.Errorf("list food introductions: %w", err)
		}
		if food.IsDeleted() {
			continue
		}
		docs = append(docs, search.DocumentFromFoodIntroduction(food))
	}

	if err := s.index.IndexDocuments(docs); err != nil {
		return fmt.Errorf("index documents: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Search index rebuilt", "documents", len(docs))
	}

	return nil
}
