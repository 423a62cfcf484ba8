package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sproutlingapp/sproutling-server/internal/access"
	"github.com/sproutlingapp/sproutling-server/internal/allergen"
	"github.com/sproutlingapp/sproutling-server/internal/domain"
	domainerrors "github.com/sproutlingapp/sproutling-server/internal/errors"
	"github.com/sproutlingapp/sproutling-server/internal/id"
	"github.com/sproutlingapp/sproutling-server/internal/sse"
	"github.com/sproutlingapp/sproutling-server/internal/store"
)

// RecordService provides access-checked CRUD over care records. Every
// operation takes an explicit caller and fails closed: no access decision
// is ever inferred from ambient state.
type RecordService struct {
	store     *store.Store
	evaluator *access.Evaluator
	emitter   store.EventEmitter
	search    store.SearchIndexer
	logger    *slog.Logger
}

// NewRecordService creates a new record service.
func NewRecordService(
	st *store.Store,
	evaluator *access.Evaluator,
	emitter store.EventEmitter,
	search store.SearchIndexer,
	logger *slog.Logger,
) *RecordService {
	return &RecordService{
		store:     st,
		evaluator: evaluator,
		emitter:   emitter,
		search:    search,
		logger:    logger,
	}
}

// record is the constraint shared by every persisted care record: a pointer
// type carrying sync metadata and an owner.
type record[T any] interface {
	*T
	access.Resource
	GetID() string
	SetID(string)
	Touch()
	InitTimestamps()
	IsDeleted() bool
	MarkDeleted()
}

// audienceFor returns the accounts that should see events about a record:
// the owner plus everyone with effective access.
func (s *RecordService) audienceFor(ctx context.Context, res access.Resource) []string {
	return append([]string{res.Owner()}, s.evaluator.EffectiveSharedWith(ctx, res)...)
}

// requireChildAccess verifies the caller can reach the given child profile.
func (s *RecordService) requireChildAccess(ctx context.Context, callerID, childID string) error {
	child, err := s.store.GetChild(ctx, childID)
	if err != nil {
		if errors.Is(err, store.ErrChildNotFound) {
			return domainerrors.NotFound("child profile not found")
		}
		return fmt.Errorf("get child: %w", err)
	}
	if !s.evaluator.CanAccess(ctx, child, callerID) {
		return access.ErrAccessDenied
	}
	return nil
}

// createRecord persists a new record and announces it. The caller must
// already be set as the record's owner.
func createRecord[T any, P record[T]](ctx context.Context, s *RecordService, entity *store.Entity[T], idPrefix, entityType, callerID string, rec P) (P, error) {
	if rec.Owner() != callerID {
		return nil, access.ErrAccessDenied
	}

	if scoped, ok := any(rec).(access.ChildScoped); ok {
		if err := s.requireChildAccess(ctx, callerID, scoped.ChildRef()); err != nil {
			return nil, err
		}
	}

	recordID, err := id.Generate(idPrefix)
	if err != nil {
		return nil, fmt.Errorf("generate record ID: %w", err)
	}
	rec.SetID(recordID)
	rec.InitTimestamps()

	if err := entity.Create(ctx, recordID, (*T)(rec)); err != nil {
		return nil, fmt.Errorf("create %s: %w", entityType, err)
	}

	s.emitter.Emit(sse.NewRecordEvent(sse.EventRecordCreated, sse.RecordEventData{
		EntityType: entityType,
		Record:     rec,
	}, s.audienceFor(ctx, rec)))

	return rec, nil
}

// getRecord fetches a record and enforces the caller's access to it.
func getRecord[T any, P record[T]](ctx context.Context, s *RecordService, entity *store.Entity[T], entityType, callerID, recordID string) (P, error) {
	raw, err := entity.Get(ctx, recordID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFoundf("%s not found", entityType)
		}
		return nil, fmt.Errorf("get %s: %w", entityType, err)
	}

	rec := P(raw)
	if rec.IsDeleted() {
		return nil, domainerrors.NotFoundf("%s not found", entityType)
	}
	if !s.evaluator.CanAccess(ctx, rec, callerID) {
		return nil, access.ErrAccessDenied
	}

	return rec, nil
}

// updateRecord applies mutate to an existing record under the caller's
// access, refusing any change of ownership.
func updateRecord[T any, P record[T]](ctx context.Context, s *RecordService, entity *store.Entity[T], entityType, callerID, recordID string, mutate func(P)) (P, error) {
	existing, err := getRecord[T, P](ctx, s, entity, entityType, callerID, recordID)
	if err != nil {
		return nil, err
	}

	priorOwner := existing.Owner()
	mutate(existing)
	if existing.Owner() != priorOwner {
		return nil, access.ErrOwnerImmutable
	}

	if scoped, ok := any(existing).(access.ChildScoped); ok {
		if err := s.requireChildAccess(ctx, callerID, scoped.ChildRef()); err != nil {
			return nil, err
		}
	}

	existing.Touch()
	if err := entity.Update(ctx, existing.GetID(), (*T)(existing)); err != nil {
		return nil, fmt.Errorf("update %s: %w", entityType, err)
	}

	s.emitter.Emit(sse.NewRecordEvent(sse.EventRecordUpdated, sse.RecordEventData{
		EntityType: entityType,
		Record:     existing,
	}, s.audienceFor(ctx, existing)))

	return existing, nil
}

// deleteRecord soft-deletes a record under the caller's access.
// Idempotent at the API level: deleting an already-deleted record reports
// not found, never a second tombstone.
func deleteRecord[T any, P record[T]](ctx context.Context, s *RecordService, entity *store.Entity[T], entityType, callerID, recordID string) error {
	existing, err := getRecord[T, P](ctx, s, entity, entityType, callerID, recordID)
	if err != nil {
		return err
	}

	// Audience is computed before deletion so departing devices still hear
	// about the tombstone.
	audience := s.audienceFor(ctx, existing)

	existing.MarkDeleted()
	if err := entity.Update(ctx, existing.GetID(), (*T)(existing)); err != nil {
		return fmt.Errorf("delete %s: %w", entityType, err)
	}

	s.emitter.Emit(sse.NewRecordEvent(sse.EventRecordDeleted, sse.RecordDeletedEventData{
		EntityType: entityType,
		ID:         recordID,
	}, audience))

	return nil
}

// listByChild returns all live records of one type scoped to a child.
func listByChild[T any, P record[T]](ctx context.Context, s *RecordService, entity *store.Entity[T], entityType, callerID, childID string) ([]P, error) {
	if err := s.requireChildAccess(ctx, callerID, childID); err != nil {
		return nil, err
	}

	var out []P
	for raw, err := range entity.ListByIndex(ctx, "child", childID) {
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", entityType, err)
		}
		rec := P(raw)
		if rec.IsDeleted() {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// listOwnedAndShared returns all live records of an owner-scoped type the
// caller owns or has been granted.
func listOwnedAndShared[T any, P record[T]](ctx context.Context, s *RecordService, entity *store.Entity[T], entityType, callerID string) ([]P, error) {
	seen := make(map[string]bool)
	var out []P

	for _, index := range []string{"owner", "collab"} {
		for raw, err := range entity.ListByIndex(ctx, index, callerID) {
			if err != nil {
				return nil, fmt.Errorf("list %s: %w", entityType, err)
			}
			rec := P(raw)
			if rec.IsDeleted() || seen[rec.GetID()] {
				continue
			}
			seen[rec.GetID()] = true
			out = append(out, rec)
		}
	}
	return out, nil
}

// Feeding logs.

func (s *RecordService) CreateFeedingLog(ctx context.Context, callerID string, rec *domain.FeedingLog) (*domain.FeedingLog, error) {
	rec.OwnerID = callerID
	return createRecord[domain.FeedingLog](ctx, s, s.store.FeedingLogs, "feeding", "feeding_log", callerID, rec)
}

func (s *RecordService) GetFeedingLog(ctx context.Context, callerID, recordID string) (*domain.FeedingLog, error) {
	return getRecord[domain.FeedingLog, *domain.FeedingLog](ctx, s, s.store.FeedingLogs, "feeding_log", callerID, recordID)
}

func (s *RecordService) UpdateFeedingLog(ctx context.Context, callerID, recordID string, mutate func(*domain.FeedingLog)) (*domain.FeedingLog, error) {
	return updateRecord(ctx, s, s.store.FeedingLogs, "feeding_log", callerID, recordID, mutate)
}

func (s *RecordService) DeleteFeedingLog(ctx context.Context, callerID, recordID string) error {
	return deleteRecord[domain.FeedingLog, *domain.FeedingLog](ctx, s, s.store.FeedingLogs, "feeding_log", callerID, recordID)
}

func (s *RecordService) ListFeedingLogs(ctx context.Context, callerID, childID string) ([]*domain.FeedingLog, error) {
	return listByChild[domain.FeedingLog, *domain.FeedingLog](ctx, s, s.store.FeedingLogs, "feeding_log", callerID, childID)
}

// Sleep sessions.

func (s *RecordService) CreateSleepSession(ctx context.Context, callerID string, rec *domain.SleepSession) (*domain.SleepSession, error) {
	rec.OwnerID = callerID
	return createRecord[domain.SleepSession](ctx, s, s.store.SleepSessions, "sleep", "sleep_session", callerID, rec)
}

func (s *RecordService) UpdateSleepSession(ctx context.Context, callerID, recordID string, mutate func(*domain.SleepSession)) (*domain.SleepSession, error) {
	return updateRecord(ctx, s, s.store.SleepSessions, "sleep_session", callerID, recordID, mutate)
}

func (s *RecordService) DeleteSleepSession(ctx context.Context, callerID, recordID string) error {
	return deleteRecord[domain.SleepSession, *domain.SleepSession](ctx, s, s.store.SleepSessions, "sleep_session", callerID, recordID)
}

func (s *RecordService) ListSleepSessions(ctx context.Context, callerID, childID string) ([]*domain.SleepSession, error) {
	return listByChild[domain.SleepSession, *domain.SleepSession](ctx, s, s.store.SleepSessions, "sleep_session", callerID, childID)
}

// Diaper changes.

func (s *RecordService) CreateDiaperChange(ctx context.Context, callerID string, rec *domain.DiaperChange) (*domain.DiaperChange, error) {
	rec.OwnerID = callerID
	return createRecord[domain.DiaperChange](ctx, s, s.store.DiaperChanges, "diaper", "diaper_change", callerID, rec)
}

func (s *RecordService) DeleteDiaperChange(ctx context.Context, callerID, recordID string) error {
	return deleteRecord[domain.DiaperChange, *domain.DiaperChange](ctx, s, s.store.DiaperChanges, "diaper_change", callerID, recordID)
}

func (s *RecordService) ListDiaperChanges(ctx context.Context, callerID, childID string) ([]*domain.DiaperChange, error) {
	return listByChild[domain.DiaperChange, *domain.DiaperChange](ctx, s, s.store.DiaperChanges, "diaper_change", callerID, childID)
}

// Growth measurements.

func (s *RecordService) CreateGrowthMeasurement(ctx context.Context, callerID string, rec *domain.GrowthMeasurement) (*domain.GrowthMeasurement, error) {
	rec.OwnerID = callerID
	return createRecord[domain.GrowthMeasurement](ctx, s, s.store.GrowthMeasurements, "growth", "growth_measurement", callerID, rec)
}

func (s *RecordService) DeleteGrowthMeasurement(ctx context.Context, callerID, recordID string) error {
	return deleteRecord[domain.GrowthMeasurement, *domain.GrowthMeasurement](ctx, s, s.store.GrowthMeasurements, "growth_measurement", callerID, recordID)
}

func (s *RecordService) ListGrowthMeasurements(ctx context.Context, callerID, childID string) ([]*domain.GrowthMeasurement, error) {
	return listByChild[domain.GrowthMeasurement, *domain.GrowthMeasurement](ctx, s, s.store.GrowthMeasurements, "growth_measurement", callerID, childID)
}

// Medication doses.

func (s *RecordService) CreateMedicationDose(ctx context.Context, callerID string, rec *domain.MedicationDose) (*domain.MedicationDose, error) {
	rec.OwnerID = callerID
	return createRecord[domain.MedicationDose](ctx, s, s.store.MedicationDoses, "medication", "medication_dose", callerID, rec)
}

func (s *RecordService) DeleteMedicationDose(ctx context.Context, callerID, recordID string) error {
	return deleteRecord[domain.MedicationDose, *domain.MedicationDose](ctx, s, s.store.MedicationDoses, "medication_dose", callerID, recordID)
}

func (s *RecordService) ListMedicationDoses(ctx context.Context, callerID, childID string) ([]*domain.MedicationDose, error) {
	return listByChild[domain.MedicationDose, *domain.MedicationDose](ctx, s, s.store.MedicationDoses, "medication_dose", callerID, childID)
}

// Food introductions feed the allergen tracker and the search index.

func (s *RecordService) CreateFoodIntroduction(ctx context.Context, callerID string, rec *domain.FoodIntroduction) (*domain.FoodIntroduction, error) {
	rec.OwnerID = callerID
	// Flag foods in a recognized allergen group even when the caregiver
	// logging them did not tick the box. Explicit flags are never cleared.
	if !rec.IsAllergen {
		if _, ok := allergen.Canonical(rec.FoodName); ok {
			rec.IsAllergen = true
		}
	}
	created, err := createRecord[domain.FoodIntroduction](ctx, s, s.store.FoodIntroductions, "food", "food_introduction", callerID, rec)
	if err != nil {
		return nil, err
	}
	s.indexFoodIntroduction(ctx, created)
	return created, nil
}

func (s *RecordService) UpdateFoodIntroduction(ctx context.Context, callerID, recordID string, mutate func(*domain.FoodIntroduction)) (*domain.FoodIntroduction, error) {
	updated, err := updateRecord(ctx, s, s.store.FoodIntroductions, "food_introduction", callerID, recordID, mutate)
	if err != nil {
		return nil, err
	}
	s.indexFoodIntroduction(ctx, updated)
	return updated, nil
}

func (s *RecordService) DeleteFoodIntroduction(ctx context.Context, callerID, recordID string) error {
	if err := deleteRecord[domain.FoodIntroduction, *domain.FoodIntroduction](ctx, s, s.store.FoodIntroductions, "food_introduction", callerID, recordID); err != nil {
		return err
	}
	if err := s.search.DeleteFoodIntroduction(ctx, recordID); err != nil {
		s.logger.Warn("Failed to remove food introduction from search index",
			"record_id", recordID,
			"error", err,
		)
	}
	return nil
}

func (s *RecordService) ListFoodIntroductions(ctx context.Context, callerID, childID string) ([]*domain.FoodIntroduction, error) {
	return listByChild[domain.FoodIntroduction, *domain.FoodIntroduction](ctx, s, s.store.FoodIntroductions, "food_introduction", callerID, childID)
}

// ListAllergens returns the food introductions flagged as allergen exposures
// with a reaction worth tracking.
func (s *RecordService) ListAllergens(ctx context.Context, callerID, childID string) ([]*domain.FoodIntroduction, error) {
	all, err := s.ListFoodIntroductions(ctx, callerID, childID)
	if err != nil {
		return nil, err
	}

	var flagged []*domain.FoodIntroduction
	for _, f := range all {
		if f.IsAllergen || f.Reaction == domain.ReactionAllergic || f.Reaction == domain.ReactionMild {
			flagged = append(flagged, f)
		}
	}
	return flagged, nil
}

// Meal plan entries.

func (s *RecordService) CreateMealPlanEntry(ctx context.Context, callerID string, rec *domain.MealPlanEntry) (*domain.MealPlanEntry, error) {
	rec.OwnerID = callerID
	return createRecord[domain.MealPlanEntry](ctx, s, s.store.MealPlans, "mealplan", "meal_plan_entry", callerID, rec)
}

func (s *RecordService) UpdateMealPlanEntry(ctx context.Context, callerID, recordID string, mutate func(*domain.MealPlanEntry)) (*domain.MealPlanEntry, error) {
	return updateRecord(ctx, s, s.store.MealPlans, "meal_plan_entry", callerID, recordID, mutate)
}

func (s *RecordService) DeleteMealPlanEntry(ctx context.Context, callerID, recordID string) error {
	return deleteRecord[domain.MealPlanEntry, *domain.MealPlanEntry](ctx, s, s.store.MealPlans, "meal_plan_entry", callerID, recordID)
}

func (s *RecordService) ListMealPlanEntries(ctx context.Context, callerID, childID string) ([]*domain.MealPlanEntry, error) {
	return listByChild[domain.MealPlanEntry, *domain.MealPlanEntry](ctx, s, s.store.MealPlans, "meal_plan_entry", callerID, childID)
}

// Nutrient goals.

func (s *RecordService) CreateNutrientGoals(ctx context.Context, callerID string, rec *domain.NutrientGoals) (*domain.NutrientGoals, error) {
	rec.OwnerID = callerID
	return createRecord[domain.NutrientGoals](ctx, s, s.store.NutrientGoals, "goals", "nutrient_goals", callerID, rec)
}

func (s *RecordService) UpdateNutrientGoals(ctx context.Context, callerID, recordID string, mutate func(*domain.NutrientGoals)) (*domain.NutrientGoals, error) {
	return updateRecord(ctx, s, s.store.NutrientGoals, "nutrient_goals", callerID, recordID, mutate)
}

func (s *RecordService) ListNutrientGoals(ctx context.Context, callerID, childID string) ([]*domain.NutrientGoals, error) {
	return listByChild[domain.NutrientGoals, *domain.NutrientGoals](ctx, s, s.store.NutrientGoals, "nutrient_goals", callerID, childID)
}

// Recipes carry their own share set and feed the search index.

func (s *RecordService) CreateRecipe(ctx context.Context, callerID string, rec *domain.Recipe) (*domain.Recipe, error) {
	rec.OwnerID = callerID
	if rec.SharedWith == nil {
		rec.SharedWith = []string{}
	}
	rec.Allergens = allergen.Normalize(rec.Allergens)
	created, err := createRecord[domain.Recipe](ctx, s, s.store.Recipes, "recipe", "recipe", callerID, rec)
	if err != nil {
		return nil, err
	}
	s.indexRecipe(ctx, created)
	return created, nil
}

func (s *RecordService) GetRecipe(ctx context.Context, callerID, recordID string) (*domain.Recipe, error) {
	return getRecord[domain.Recipe, *domain.Recipe](ctx, s, s.store.Recipes, "recipe", callerID, recordID)
}

func (s *RecordService) UpdateRecipe(ctx context.Context, callerID, recordID string, mutate func(*domain.Recipe)) (*domain.Recipe, error) {
	normalized := func(r *domain.Recipe) {
		mutate(r)
		r.Allergens = allergen.Normalize(r.Allergens)
	}
	updated, err := updateRecord(ctx, s, s.store.Recipes, "recipe", callerID, recordID, normalized)
	if err != nil {
		return nil, err
	}
	s.indexRecipe(ctx, updated)
	return updated, nil
}

func (s *RecordService) DeleteRecipe(ctx context.Context, callerID, recordID string) error {
	if err := deleteRecord[domain.Recipe, *domain.Recipe](ctx, s, s.store.Recipes, "recipe", callerID, recordID); err != nil {
		return err
	}
	if err := s.search.DeleteRecipe(ctx, recordID); err != nil {
		s.logger.Warn("Failed to remove recipe from search index",
			"record_id", recordID,
			"error", err,
		)
	}
	return nil
}

func (s *RecordService) ListRecipes(ctx context.Context, callerID string) ([]*domain.Recipe, error) {
	return listOwnedAndShared[domain.Recipe, *domain.Recipe](ctx, s, s.store.Recipes, "recipe", callerID)
}

// ShareRecipe grants another caregiver access to a recipe. Only the owner
// can share, and the grant is idempotent.
func (s *RecordService) ShareRecipe(ctx context.Context, callerID, recordID, userID string) (*domain.Recipe, error) {
	recipe, err := s.GetRecipe(ctx, callerID, recordID)
	if err != nil {
		return nil, err
	}
	if recipe.OwnerID != callerID {
		return nil, domainerrors.Forbidden("only the recipe owner can share it")
	}
	if userID == "" || userID == recipe.OwnerID {
		return recipe, nil
	}

	return s.UpdateRecipe(ctx, callerID, recordID, func(r *domain.Recipe) {
		for _, existing := range r.SharedWith {
			if existing == userID {
				return
			}
		}
		r.SharedWith = append(r.SharedWith, userID)
	})
}

// Shopping items.

func (s *RecordService) CreateShoppingItem(ctx context.Context, callerID string, rec *domain.ShoppingItem) (*domain.ShoppingItem, error) {
	rec.OwnerID = callerID
	if rec.SharedWith == nil {
		rec.SharedWith = []string{}
	}
	return createRecord[domain.ShoppingItem](ctx, s, s.store.ShoppingItems, "shopping", "shopping_item", callerID, rec)
}

func (s *RecordService) UpdateShoppingItem(ctx context.Context, callerID, recordID string, mutate func(*domain.ShoppingItem)) (*domain.ShoppingItem, error) {
	return updateRecord(ctx, s, s.store.ShoppingItems, "shopping_item", callerID, recordID, mutate)
}

func (s *RecordService) DeleteShoppingItem(ctx context.Context, callerID, recordID string) error {
	return deleteRecord[domain.ShoppingItem, *domain.ShoppingItem](ctx, s, s.store.ShoppingItems, "shopping_item", callerID, recordID)
}

func (s *RecordService) ListShoppingItems(ctx context.Context, callerID string) ([]*domain.ShoppingItem, error) {
	return listOwnedAndShared[domain.ShoppingItem, *domain.ShoppingItem](ctx, s, s.store.ShoppingItems, "shopping_item", callerID)
}

func (s *RecordService) indexRecipe(ctx context.Context, recipe *domain.Recipe) {
	if err := s.search.IndexRecipe(ctx, recipe); err != nil {
		s.logger.Warn("Failed to index recipe",
			"record_id", recipe.ID,
			"error", err,
		)
	}
}

func (s *RecordService) indexFoodIntroduction(ctx context.Context, food *domain.FoodIntroduction) {
	if err := s.search.IndexFoodIntroduction(ctx, food); err != nil {
		s.logger.Warn("Failed to index food introduction",
			"record_id", food.ID,
			"error", err,
		)
	}
}
