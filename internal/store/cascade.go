package store

import (
	"context"
	"fmt"

	"github.com/sproutlingapp/sproutling-server/internal/domain"
	"github.com/sproutlingapp/sproutling-server/internal/sse"
)

// MarkEntityDeleted soft-deletes an entity by type and ID.
// Implements domain.CascadeDeleter for cascade deletion of child records.
func (s *Store) MarkEntityDeleted(ctx context.Context, entityType, id string) error {
	switch entityType {
	case "child_profile":
		child, err := s.Children.UpdateIf(ctx, id, nil, func(c *domain.ChildProfile) { c.MarkDeleted() })
		if err != nil {
			return err
		}
		s.emit(sse.NewRecordEvent(sse.EventChildDeleted, sse.RecordDeletedEventData{
			EntityType: entityType,
			ID:         id,
		}, childAudience(child)))
		return nil
	case "meal_plan_entry":
		_, err := s.MealPlans.UpdateIf(ctx, id, nil, func(m *domain.MealPlanEntry) { m.MarkDeleted() })
		return err
	case "nutrient_goals":
		_, err := s.NutrientGoals.UpdateIf(ctx, id, nil, func(n *domain.NutrientGoals) { n.MarkDeleted() })
		return err
	case "feeding_log":
		_, err := s.FeedingLogs.UpdateIf(ctx, id, nil, func(f *domain.FeedingLog) { f.MarkDeleted() })
		return err
	case "sleep_session":
		_, err := s.SleepSessions.UpdateIf(ctx, id, nil, func(sl *domain.SleepSession) { sl.MarkDeleted() })
		return err
	case "diaper_change":
		_, err := s.DiaperChanges.UpdateIf(ctx, id, nil, func(d *domain.DiaperChange) { d.MarkDeleted() })
		return err
	case "growth_measurement":
		_, err := s.GrowthMeasurements.UpdateIf(ctx, id, nil, func(g *domain.GrowthMeasurement) { g.MarkDeleted() })
		return err
	case "medication_dose":
		_, err := s.MedicationDoses.UpdateIf(ctx, id, nil, func(m *domain.MedicationDose) { m.MarkDeleted() })
		return err
	case "food_introduction":
		_, err := s.FoodIntroductions.UpdateIf(ctx, id, nil, func(f *domain.FoodIntroduction) { f.MarkDeleted() })
		if err != nil {
			return err
		}
		if s.searchIndexer != nil {
			if err := s.searchIndexer.DeleteFoodIntroduction(ctx, id); err != nil && s.logger != nil {
				s.logger.Warn("failed to remove food introduction from search index", "id", id, "error", err)
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown entity type %q", entityType)
	}
}

// GetRecordIDsByChild retrieves record IDs of one type scoped to a child,
// without loading record data.
// Implements domain.CascadeDeleter.
func (s *Store) GetRecordIDsByChild(ctx context.Context, entityType, childID string) ([]string, error) {
	switch entityType {
	case "meal_plan_entry":
		return s.MealPlans.IDsByIndex(ctx, "child", childID)
	case "nutrient_goals":
		return s.NutrientGoals.IDsByIndex(ctx, "child", childID)
	case "feeding_log":
		return s.FeedingLogs.IDsByIndex(ctx, "child", childID)
	case "sleep_session":
		return s.SleepSessions.IDsByIndex(ctx, "child", childID)
	case "diaper_change":
		return s.DiaperChanges.IDsByIndex(ctx, "child", childID)
	case "growth_measurement":
		return s.GrowthMeasurements.IDsByIndex(ctx, "child", childID)
	case "medication_dose":
		return s.MedicationDoses.IDsByIndex(ctx, "child", childID)
	case "food_introduction":
		return s.FoodIntroductions.IDsByIndex(ctx, "child", childID)
	default:
		return nil, fmt.Errorf("unknown entity type %q", entityType)
	}
}
