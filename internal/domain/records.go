package domain

import "time"

// Every persisted record carries an OwnerID set at creation and immutable
// thereafter. Recipes and shopping items carry their own share set; the
// child-scoped records in care_log.go and below reference a profile and
// inherit its share set transitively.

// MealType identifies which meal of the day an entry covers.
type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
	MealSnack     MealType = "snack"
)

// Recipe is an owner-scoped record with its own share set, so a caregiver
// can share a recipe independently of any child profile.
type Recipe struct {
	Syncable
	OwnerID      string   `json:"owner_id"`
	Title        string   `json:"title"`
	Ingredients  []string `json:"ingredients"`
	Instructions string   `json:"instructions"`
	PrepMinutes  int      `json:"prep_minutes"`
	AgeMonthsMin int      `json:"age_months_min"` // Earliest age the recipe suits
	Allergens    []string `json:"allergens"`
	SharedWith   []string `json:"shared_with"`
}

// Owner returns the record's owner identifier.
func (r *Recipe) Owner() string { return r.OwnerID }

// OwnSharedWith returns the recipe's own share set.
func (r *Recipe) OwnSharedWith() []string { return r.SharedWith }

// ShoppingItem is an owner-scoped record with its own share set.
type ShoppingItem struct {
	Syncable
	OwnerID    string   `json:"owner_id"`
	Name       string   `json:"name"`
	Quantity   string   `json:"quantity,omitempty"`
	Checked    bool     `json:"checked"`
	SharedWith []string `json:"shared_with"`
}

// Owner returns the record's owner identifier.
func (s *ShoppingItem) Owner() string { return s.OwnerID }

// OwnSharedWith returns the item's own share set.
func (s *ShoppingItem) OwnSharedWith() []string { return s.SharedWith }

// MealPlanEntry schedules a meal for a child on a given day.
// Sharing is inherited from the child profile.
type MealPlanEntry struct {
	Syncable
	OwnerID  string    `json:"owner_id"`
	ChildID  string    `json:"child_id"`
	Date     time.Time `json:"date"`
	Meal     MealType  `json:"meal"`
	RecipeID string    `json:"recipe_id,omitempty"`
	Notes    string    `json:"notes,omitempty"`
}

// Owner returns the record's owner identifier.
func (m *MealPlanEntry) Owner() string { return m.OwnerID }

// ChildRef returns the profile this record belongs to.
func (m *MealPlanEntry) ChildRef() string { return m.ChildID }

// NutrientGoals holds per-child daily nutrition targets.
// Sharing is inherited from the child profile.
type NutrientGoals struct {
	Syncable
	OwnerID       string  `json:"owner_id"`
	ChildID       string  `json:"child_id"`
	DailyCalories int     `json:"daily_calories,omitempty"`
	DailyIronMg   float64 `json:"daily_iron_mg,omitempty"`
	DailyCalcMg   float64 `json:"daily_calcium_mg,omitempty"`
	DailyFluidML  int     `json:"daily_fluid_ml,omitempty"`
}

// Owner returns the record's owner identifier.
func (n *NutrientGoals) Owner() string { return n.OwnerID }

// ChildRef returns the profile this record belongs to.
func (n *NutrientGoals) ChildRef() string { return n.ChildID }
