// Package search provides full-text search over recipes and food
// introductions using Bleve. It powers the "what can I cook" and
// "has she tried this yet" lookups with fuzzy matching and allergen
// filtering.
package search

import (
	"strings"

	"github.com/sproutlingapp/sproutling-server/internal/allergen"
	"github.com/sproutlingapp/sproutling-server/internal/domain"
)

// DocType represents the type of document in the unified index.
type DocType string

// Document types for the search index.
const (
	DocTypeRecipe           DocType = "recipe"
	DocTypeFoodIntroduction DocType = "food_introduction"
)

// SearchDocument is the unified document structure for the Bleve index.
// Both searchable record types are indexed as SearchDocuments with type
// discrimination. Access control is NOT baked into the index: results are
// re-checked against the caller's effective access after the query, so a
// stale index can never widen access.
type SearchDocument struct {
	// Identity
	ID   string  `json:"id"`
	Type DocType `json:"type"`

	// Primary searchable text. Recipe: title, food introduction: food name.
	Name string `json:"name"`

	// Recipe-specific fields
	Ingredients  string `json:"ingredients,omitempty"` // Space-joined for full-text search
	Instructions string `json:"instructions,omitempty"`
	AgeMonthsMin int    `json:"age_months_min,omitempty"`

	// Shared fields
	Allergens []string `json:"allergens,omitempty"` // Exact-match filters
	Notes     string   `json:"notes,omitempty"`

	// Food-introduction-specific fields
	Reaction string `json:"reaction,omitempty"`
	ChildID  string `json:"child_id,omitempty"`

	// Timestamps for sorting, unix millis.
	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// ToMap converts the document to a map with lowercase field names.
// Bleve by default uses Go struct field names (capitalized), but the
// mapping uses lowercase names, so we convert explicitly.
func (d *SearchDocument) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":         d.ID,
		"type":       string(d.Type),
		"name":       d.Name,
		"created_at": d.CreatedAt,
		"updated_at": d.UpdatedAt,
	}

	if d.Ingredients != "" {
		m["ingredients"] = d.Ingredients
	}
	if d.Instructions != "" {
		m["instructions"] = d.Instructions
	}
	if d.Notes != "" {
		m["notes"] = d.Notes
	}
	if d.Reaction != "" {
		m["reaction"] = d.Reaction
	}
	if d.ChildID != "" {
		m["child_id"] = d.ChildID
	}
	if len(d.Allergens) > 0 {
		m["allergens"] = d.Allergens
	}
	if d.AgeMonthsMin > 0 {
		m["age_months_min"] = d.AgeMonthsMin
	}

	return m
}

// DocumentFromRecipe builds the index document for a recipe.
func DocumentFromRecipe(r *domain.Recipe) *SearchDocument {
	return &SearchDocument{
		ID:           r.ID,
		Type:         DocTypeRecipe,
		Name:         r.Title,
		Ingredients:  strings.Join(r.Ingredients, " "),
		Instructions: r.Instructions,
		AgeMonthsMin: r.AgeMonthsMin,
		Allergens:    r.Allergens,
		CreatedAt:    r.CreatedAt.UnixMilli(),
		UpdatedAt:    r.UpdatedAt.UnixMilli(),
	}
}

// DocumentFromFoodIntroduction builds the index document for a food
// introduction.
func DocumentFromFoodIntroduction(f *domain.FoodIntroduction) *SearchDocument {
	doc := &SearchDocument{
		ID:        f.ID,
		Type:      DocTypeFoodIntroduction,
		Name:      f.FoodName,
		Notes:     f.Notes,
		Reaction:  string(f.Reaction),
		ChildID:   f.ChildID,
		CreatedAt: f.CreatedAt.UnixMilli(),
		UpdatedAt: f.UpdatedAt.UnixMilli(),
	}
	if f.IsAllergen {
		// Index the allergen group when the food maps to one, so a
		// "peanut" exclusion also drops "Peanut Butter" introductions.
		if group, ok := allergen.Canonical(f.FoodName); ok {
			doc.Allergens = []string{group}
		} else {
			doc.Allergens = []string{allergen.Slugify(f.FoodName)}
		}
	}
	return doc
}
