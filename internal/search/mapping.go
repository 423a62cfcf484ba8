package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for search documents.
//
// The mapping is designed with these priorities:
//  1. Fast full-text search on recipe titles and food names with English stemming
//  2. Ingredient matching so "what can I make with sweet potato" works
//  3. Exact keyword matching for type, allergen, and reaction filters
//  4. Numeric range queries for minimum age
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	// --- Text fields (full-text searchable) ---

	// Name field - primary search target, boosted at query time
	nameFieldMapping := bleve.NewTextFieldMapping()
	nameFieldMapping.Analyzer = en.AnalyzerName
	nameFieldMapping.Store = true
	nameFieldMapping.IncludeTermVectors = true // For highlighting
	docMapping.AddFieldMappingsAt("name", nameFieldMapping)

	// Ingredients - searchable text
	ingredientsFieldMapping := bleve.NewTextFieldMapping()
	ingredientsFieldMapping.Analyzer = en.AnalyzerName
	ingredientsFieldMapping.Store = true
	ingredientsFieldMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("ingredients", ingredientsFieldMapping)

	// Instructions - searchable but not stored (can be large)
	instructionsFieldMapping := bleve.NewTextFieldMapping()
	instructionsFieldMapping.Analyzer = en.AnalyzerName
	instructionsFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("instructions", instructionsFieldMapping)

	// Notes - searchable
	notesFieldMapping := bleve.NewTextFieldMapping()
	notesFieldMapping.Analyzer = en.AnalyzerName
	notesFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("notes", notesFieldMapping)

	// --- Keyword fields (exact match, facetable) ---

	// Type - for filtering by document type
	typeFieldMapping := bleve.NewTextFieldMapping()
	typeFieldMapping.Analyzer = keyword.Name
	typeFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("type", typeFieldMapping)

	// ID - stored but not analyzed
	idFieldMapping := bleve.NewTextFieldMapping()
	idFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("id", idFieldMapping)

	// Allergens - exact matching for allergen exclusion filters
	allergensFieldMapping := bleve.NewTextFieldMapping()
	allergensFieldMapping.Analyzer = keyword.Name
	allergensFieldMapping.Store = true
	allergensFieldMapping.IncludeTermVectors = true // For faceting
	docMapping.AddFieldMappingsAt("allergens", allergensFieldMapping)

	// Reaction - exact matching
	reactionFieldMapping := bleve.NewTextFieldMapping()
	reactionFieldMapping.Analyzer = keyword.Name
	reactionFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("reaction", reactionFieldMapping)

	// Child reference - exact matching for per-child scoping
	childFieldMapping := bleve.NewTextFieldMapping()
	childFieldMapping.Analyzer = keyword.Name
	childFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("child_id", childFieldMapping)

	// --- Numeric fields (range queries, sorting) ---

	// Minimum suitable age - for range filtering
	ageFieldMapping := bleve.NewNumericFieldMapping()
	ageFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("age_months_min", ageFieldMapping)

	// Timestamps - for sorting by recency
	createdAtFieldMapping := bleve.NewNumericFieldMapping()
	createdAtFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("created_at", createdAtFieldMapping)

	updatedAtFieldMapping := bleve.NewNumericFieldMapping()
	updatedAtFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("updated_at", updatedAtFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}
