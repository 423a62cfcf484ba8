// Package store persists all Sproutling records in an embedded Badger
// database. Each record type gets a generic Entity with secondary indexes;
// invitation and collaborator mutations use conditional writes so
// concurrent devices cannot race past each other.
package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/sproutlingapp/sproutling-server/internal/domain"
	"github.com/sproutlingapp/sproutling-server/internal/normalize"
)

// EventEmitter is the interface for emitting change-feed events.
// Store uses this to broadcast changes without depending on SSE implementation details.
type EventEmitter interface {
	Emit(event any)
}

// NoopEmitter is a no-op implementation of EventEmitter for testing.
type NoopEmitter struct{}

// Emit implements EventEmitter.Emit as a no-op.
func (NoopEmitter) Emit(_ any) {}

// NewNoopEmitter creates a new no-op emitter for testing.
func NewNoopEmitter() EventEmitter {
	return NoopEmitter{}
}

// SearchIndexer is the interface for updating the search index.
// Store uses this to keep search in sync without depending on search implementation.
type SearchIndexer interface {
	IndexRecipe(ctx context.Context, recipe *domain.Recipe) error
	DeleteRecipe(ctx context.Context, recipeID string) error
	IndexFoodIntroduction(ctx context.Context, intro *domain.FoodIntroduction) error
	DeleteFoodIntroduction(ctx context.Context, introID string) error
}

// NoopSearchIndexer is a no-op implementation for testing.
type NoopSearchIndexer struct{}

// IndexRecipe is a no-op.
func (NoopSearchIndexer) IndexRecipe(context.Context, *domain.Recipe) error { return nil }

// DeleteRecipe is a no-op.
func (NoopSearchIndexer) DeleteRecipe(context.Context, string) error { return nil }

// IndexFoodIntroduction is a no-op.
func (NoopSearchIndexer) IndexFoodIntroduction(context.Context, *domain.FoodIntroduction) error {
	return nil
}

// DeleteFoodIntroduction is a no-op.
func (NoopSearchIndexer) DeleteFoodIntroduction(context.Context, string) error { return nil }

// NewNoopSearchIndexer creates a new no-op search indexer for testing.
func NewNoopSearchIndexer() SearchIndexer {
	return NoopSearchIndexer{}
}

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	// Change-feed emitter for broadcasting record changes.
	eventEmitter EventEmitter

	// Search indexer for keeping search in sync with store changes.
	// Set via SetSearchIndexer after store creation to avoid circular dependencies.
	searchIndexer SearchIndexer

	// Generic entities
	Accounts           *Entity[domain.Account]
	Children           *Entity[domain.ChildProfile]
	Recipes            *Entity[domain.Recipe]
	ShoppingItems      *Entity[domain.ShoppingItem]
	MealPlans          *Entity[domain.MealPlanEntry]
	NutrientGoals      *Entity[domain.NutrientGoals]
	FeedingLogs        *Entity[domain.FeedingLog]
	SleepSessions      *Entity[domain.SleepSession]
	DiaperChanges      *Entity[domain.DiaperChange]
	GrowthMeasurements *Entity[domain.GrowthMeasurement]
	MedicationDoses    *Entity[domain.MedicationDose]
	FoodIntroductions  *Entity[domain.FoodIntroduction]
}

// New creates a new Store instance with the given database path and event emitter.
// The emitter is required and used to broadcast store changes to sync clients.
func New(path string, logger *slog.Logger, emitter EventEmitter) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	store := &Store{
		db:           db,
		logger:       logger,
		eventEmitter: emitter,
	}

	store.initAccounts()
	store.initChildren()
	store.initRecords()

	if logger != nil {
		logger.Info("Badger database opened successfully", "path", path)
	}

	return store, nil
}

// Backup streams a full snapshot of the database to w using Badger's
// backup format. Returns the version watermark of the snapshot.
func (s *Store) Backup(w io.Writer) (uint64, error) {
	return s.db.Backup(w, 0)
}

// Restore loads a backup stream produced by Backup into the database.
// The database should be empty; restored entries overwrite same-key data.
func (s *Store) Restore(r io.Reader) error {
	return s.db.Load(r, 256)
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	return s.db.Close()
}

// SetSearchIndexer sets the search indexer for keeping search in sync.
// This is set after store creation to avoid circular dependencies
// (store needs to exist before search service can be created).
func (s *Store) SetSearchIndexer(indexer SearchIndexer) {
	s.searchIndexer = indexer
}

// Helper methods for database operations.

// get retrieves a value by key.
func (s *Store) get(key []byte, dest any) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, dest)
		})
	})
}

// exists checks if a key exists.
func (s *Store) exists(key []byte) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// emit sends an event to the change feed if an emitter is configured.
func (s *Store) emit(event any) {
	if s.eventEmitter != nil {
		s.eventEmitter.Emit(event)
	}
}

// initAccounts initializes the Accounts entity.
// Uses case-insensitive email indexing via unicode case folding.
func (s *Store) initAccounts() {
	s.Accounts = NewEntity[domain.Account](s, "account:").
		WithUniqueIndexTransform("email",
			func(a *domain.Account) []string {
				return []string{normalize.Email(a.Email)}
			},
			normalize.Email,
		)
}

// initChildren initializes the Children entity.
// Indexed by owner (listing a caregiver's own profiles) and by collaborator
// (listing profiles shared with a caregiver).
func (s *Store) initChildren() {
	s.Children = NewEntity[domain.ChildProfile](s, "child:").
		WithIndex("owner", func(c *domain.ChildProfile) []string {
			return []string{c.OwnerID}
		}).
		WithIndex("collab", func(c *domain.ChildProfile) []string {
			return c.SharedWith
		})
}

// initRecords initializes the per-type record entities. Owner-scoped
// records (recipes, shopping items) index by owner and collaborator;
// child-scoped records index by child for transitive access resolution
// and cascade deletion.
func (s *Store) initRecords() {
	s.Recipes = NewEntity[domain.Recipe](s, "recipe:").
		WithIndex("owner", func(r *domain.Recipe) []string {
			return []string{r.OwnerID}
		}).
		WithIndex("collab", func(r *domain.Recipe) []string {
			return r.SharedWith
		})

	s.ShoppingItems = NewEntity[domain.ShoppingItem](s, "shopping:").
		WithIndex("owner", func(i *domain.ShoppingItem) []string {
			return []string{i.OwnerID}
		}).
		WithIndex("collab", func(i *domain.ShoppingItem) []string {
			return i.SharedWith
		})

	s.MealPlans = NewEntity[domain.MealPlanEntry](s, "mealplan:").
		WithIndex("child", func(m *domain.MealPlanEntry) []string {
			return []string{m.ChildID}
		})

	s.NutrientGoals = NewEntity[domain.NutrientGoals](s, "goals:").
		WithIndex("child", func(n *domain.NutrientGoals) []string {
			return []string{n.ChildID}
		})

	s.FeedingLogs = NewEntity[domain.FeedingLog](s, "feeding:").
		WithIndex("child", func(f *domain.FeedingLog) []string {
			return []string{f.ChildID}
		})

	s.SleepSessions = NewEntity[domain.SleepSession](s, "sleep:").
		WithIndex("child", func(sl *domain.SleepSession) []string {
			return []string{sl.ChildID}
		})

	s.DiaperChanges = NewEntity[domain.DiaperChange](s, "diaper:").
		WithIndex("child", func(d *domain.DiaperChange) []string {
			return []string{d.ChildID}
		})

	s.GrowthMeasurements = NewEntity[domain.GrowthMeasurement](s, "growth:").
		WithIndex("child", func(g *domain.GrowthMeasurement) []string {
			return []string{g.ChildID}
		})

	s.MedicationDoses = NewEntity[domain.MedicationDose](s, "medication:").
		WithIndex("child", func(m *domain.MedicationDose) []string {
			return []string{m.ChildID}
		})

	s.FoodIntroductions = NewEntity[domain.FoodIntroduction](s, "food:").
		WithIndex("child", func(f *domain.FoodIntroduction) []string {
			return []string{f.ChildID}
		})
}
