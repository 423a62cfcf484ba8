package domain

import "time"

// Care log records. All are child-scoped: they carry an immutable OwnerID
// and a ChildID reference, and inherit the child profile's share set.

// FeedingMethod identifies how a feeding was given.
type FeedingMethod string

const (
	FeedingBreast FeedingMethod = "breast"
	FeedingBottle FeedingMethod = "bottle"
	FeedingSolid  FeedingMethod = "solid"
)

// FeedingLog records one feeding.
type FeedingLog struct {
	Syncable
	OwnerID  string        `json:"owner_id"`
	ChildID  string        `json:"child_id"`
	Method   FeedingMethod `json:"method"`
	StartAt  time.Time     `json:"start_at"`
	EndAt    *time.Time    `json:"end_at,omitempty"`
	AmountML int           `json:"amount_ml,omitempty"` // Bottle feedings
	Side     string        `json:"side,omitempty"`      // Breast feedings: left, right, both
	FoodName string        `json:"food_name,omitempty"` // Solid feedings
	Notes    string        `json:"notes,omitempty"`
}

func (f *FeedingLog) Owner() string    { return f.OwnerID }
func (f *FeedingLog) ChildRef() string { return f.ChildID }

// SleepSession records one sleep, in progress until EndAt is set.
type SleepSession struct {
	Syncable
	OwnerID string     `json:"owner_id"`
	ChildID string     `json:"child_id"`
	StartAt time.Time  `json:"start_at"`
	EndAt   *time.Time `json:"end_at,omitempty"`
	IsNap   bool       `json:"is_nap"`
	Notes   string     `json:"notes,omitempty"`
}

func (s *SleepSession) Owner() string    { return s.OwnerID }
func (s *SleepSession) ChildRef() string { return s.ChildID }

// Duration returns the sleep length, or zero while still in progress.
func (s *SleepSession) Duration() time.Duration {
	if s.EndAt == nil {
		return 0
	}
	return s.EndAt.Sub(s.StartAt)
}

// DiaperKind identifies the contents of a diaper change.
type DiaperKind string

const (
	DiaperWet   DiaperKind = "wet"
	DiaperDirty DiaperKind = "dirty"
	DiaperMixed DiaperKind = "mixed"
	DiaperDry   DiaperKind = "dry"
)

// DiaperChange records one diaper change.
type DiaperChange struct {
	Syncable
	OwnerID   string     `json:"owner_id"`
	ChildID   string     `json:"child_id"`
	ChangedAt time.Time  `json:"changed_at"`
	Kind      DiaperKind `json:"kind"`
	Notes     string     `json:"notes,omitempty"`
}

func (d *DiaperChange) Owner() string    { return d.OwnerID }
func (d *DiaperChange) ChildRef() string { return d.ChildID }

// GrowthMeasurement records a weight/height/head-circumference check.
type GrowthMeasurement struct {
	Syncable
	OwnerID    string    `json:"owner_id"`
	ChildID    string    `json:"child_id"`
	MeasuredAt time.Time `json:"measured_at"`
	WeightKg   float64   `json:"weight_kg,omitempty"`
	HeightCm   float64   `json:"height_cm,omitempty"`
	HeadCm     float64   `json:"head_cm,omitempty"`
	Notes      string    `json:"notes,omitempty"`
}

func (g *GrowthMeasurement) Owner() string    { return g.OwnerID }
func (g *GrowthMeasurement) ChildRef() string { return g.ChildID }

// MedicationDose records one administered dose.
type MedicationDose struct {
	Syncable
	OwnerID    string    `json:"owner_id"`
	ChildID    string    `json:"child_id"`
	Medication string    `json:"medication"`
	Dose       string    `json:"dose"`
	GivenAt    time.Time `json:"given_at"`
	Notes      string    `json:"notes,omitempty"`
}

func (m *MedicationDose) Owner() string    { return m.OwnerID }
func (m *MedicationDose) ChildRef() string { return m.ChildID }

// FoodReaction describes how a child responded to a newly introduced food.
type FoodReaction string

const (
	ReactionNone     FoodReaction = "none"
	ReactionDisliked FoodReaction = "disliked"
	ReactionMild     FoodReaction = "mild"     // Mild sensitivity, worth watching
	ReactionAllergic FoodReaction = "allergic" // Flag for the allergen list
)

// FoodIntroduction records the first tries of a new food, tracked so
// allergen exposure can be spaced out and reactions caught early.
type FoodIntroduction struct {
	Syncable
	OwnerID      string       `json:"owner_id"`
	ChildID      string       `json:"child_id"`
	FoodName     string       `json:"food_name"`
	FirstTriedAt time.Time    `json:"first_tried_at"`
	Reaction     FoodReaction `json:"reaction"`
	IsAllergen   bool         `json:"is_allergen"` // Common-allergen list membership
	Notes        string       `json:"notes,omitempty"`
}

func (f *FoodIntroduction) Owner() string    { return f.OwnerID }
func (f *FoodIntroduction) ChildRef() string { return f.ChildID }
