package domain

import "context"

// ChildRecordTypes lists every child-scoped record type that follows a
// profile through cascade operations.
var ChildRecordTypes = []string{
	"meal_plan_entry",
	"nutrient_goals",
	"feeding_log",
	"sleep_session",
	"diaper_change",
	"growth_measurement",
	"medication_dose",
	"food_introduction",
}

// CascadeDeleter defines the store operations cascade deletion needs.
// IDs are fetched without loading full record data.
type CascadeDeleter interface {
	// MarkEntityDeleted soft-deletes an entity by type and ID.
	MarkEntityDeleted(ctx context.Context, entityType string, id string) error
	// GetRecordIDsByChild retrieves record IDs of one type scoped to a child.
	GetRecordIDsByChild(ctx context.Context, entityType string, childID string) ([]string, error)
}

// CascadeChildDelete soft-deletes a child profile and every dependent
// record. Soft deletion keeps the tombstones visible to delta sync so
// every caregiver's device converges on the removal.
func CascadeChildDelete(ctx context.Context, deleter CascadeDeleter, childID string) error {
	if err := deleter.MarkEntityDeleted(ctx, "child_profile", childID); err != nil {
		return err
	}

	for _, entityType := range ChildRecordTypes {
		ids, err := deleter.GetRecordIDsByChild(ctx, entityType, childID)
		if err != nil {
			return err
		}

		for _, id := range ids {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			if err := deleter.MarkEntityDeleted(ctx, entityType, id); err != nil {
				return err
			}
		}
	}

	return nil
}
