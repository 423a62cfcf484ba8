package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// SearchParams configures a search query.
type SearchParams struct {
	Query string   // User's search query
	Types []string // Document types to include (empty = all)

	// Filters
	ChildID          string   // Restrict food introductions to one child
	ExcludeAllergens []string // Drop recipes containing any of these allergens
	Reactions        []string // Filter food introductions by reaction
	MaxAgeMonths     int      // Only recipes suitable at or below this age

	// Pagination
	Limit  int
	Offset int

	// Sorting
	SortBy    string // "relevance", "name", "recent"
	SortOrder string // "asc", "desc"

	// Options
	Highlight bool // Include match highlighting
}

// DefaultSearchParams returns sensible defaults.
func DefaultSearchParams() SearchParams {
	return SearchParams{
		Limit:     20,
		Offset:    0,
		SortBy:    "relevance",
		SortOrder: "desc",
		Highlight: true,
	}
}

// SearchResult represents the search results.
type SearchResult struct {
	Query  string      `json:"query"`
	Total  uint64      `json:"total"`
	TookMs int64       `json:"took_ms"`
	Hits   []SearchHit `json:"hits"`
}

// SearchHit represents a single search result.
type SearchHit struct {
	ID           string            `json:"id"`
	Type         DocType           `json:"type"`
	Score        float64           `json:"score"`
	Name         string            `json:"name"`
	Ingredients  string            `json:"ingredients,omitempty"`
	Allergens    []string          `json:"allergens,omitempty"`
	Reaction     string            `json:"reaction,omitempty"`
	ChildID      string            `json:"child_id,omitempty"`
	AgeMonthsMin int               `json:"age_months_min,omitempty"`
	Highlights   map[string]string `json:"highlights,omitempty"`
}

// Search executes a search query.
func (s *SearchIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	searchQuery := buildSearchQuery(params)
	searchRequest := bleve.NewSearchRequestOptions(searchQuery, params.Limit, params.Offset, false)

	addSorting(searchRequest, params)

	if params.Highlight {
		searchRequest.Highlight = bleve.NewHighlight()
		searchRequest.Highlight.AddField("name")
		searchRequest.Highlight.AddField("ingredients")
	}

	searchRequest.Fields = []string{
		"id", "type", "name", "ingredients", "allergens",
		"reaction", "child_id", "age_months_min",
	}

	searchResult, err := s.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &SearchResult{
		Query:  params.Query,
		Total:  searchResult.Total,
		TookMs: searchResult.Took.Milliseconds(),
		Hits:   make([]SearchHit, 0, len(searchResult.Hits)),
	}

	for _, hit := range searchResult.Hits {
		searchHit := SearchHit{
			ID:    hit.ID,
			Score: hit.Score,
		}

		if t, ok := hit.Fields["type"].(string); ok {
			searchHit.Type = DocType(t)
		}
		if n, ok := hit.Fields["name"].(string); ok {
			searchHit.Name = n
		}
		if ing, ok := hit.Fields["ingredients"].(string); ok {
			searchHit.Ingredients = ing
		}
		if r, ok := hit.Fields["reaction"].(string); ok {
			searchHit.Reaction = r
		}
		if c, ok := hit.Fields["child_id"].(string); ok {
			searchHit.ChildID = c
		}
		if a, ok := hit.Fields["age_months_min"].(float64); ok {
			searchHit.AgeMonthsMin = int(a)
		}
		// Allergens come back as a string for single values, a slice for
		// multiple.
		switch v := hit.Fields["allergens"].(type) {
		case string:
			searchHit.Allergens = []string{v}
		case []interface{}:
			for _, item := range v {
				if s, ok := item.(string); ok {
					searchHit.Allergens = append(searchHit.Allergens, s)
				}
			}
		}

		if len(hit.Fragments) > 0 {
			searchHit.Highlights = make(map[string]string)
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					searchHit.Highlights[field] = fragments[0]
				}
			}
		}

		result.Hits = append(result.Hits, searchHit)
	}

	return result, nil
}

// buildSearchQuery constructs the Bleve query from params.
func buildSearchQuery(params SearchParams) query.Query {
	var queries []query.Query

	// Main text query across names, ingredients, and notes.
	if params.Query != "" {
		textQueries := []query.Query{}

		// Name match with highest boost
		nameMatch := bleve.NewMatchQuery(params.Query)
		nameMatch.SetField("name")
		nameMatch.SetBoost(3.0)
		textQueries = append(textQueries, nameMatch)

		ingredientsMatch := bleve.NewMatchQuery(params.Query)
		ingredientsMatch.SetField("ingredients")
		ingredientsMatch.SetBoost(1.5)
		textQueries = append(textQueries, ingredientsMatch)

		notesMatch := bleve.NewMatchQuery(params.Query)
		notesMatch.SetField("notes")
		textQueries = append(textQueries, notesMatch)

		// Fuzzy matching for typo tolerance on name
		fuzzyQuery := bleve.NewFuzzyQuery(params.Query)
		fuzzyQuery.SetFuzziness(1)
		fuzzyQuery.SetField("name")
		fuzzyQuery.SetBoost(0.8)
		textQueries = append(textQueries, fuzzyQuery)

		// Prefix query for autocomplete (minimum 2 chars)
		if len(params.Query) >= 2 {
			prefixQuery := bleve.NewPrefixQuery(strings.ToLower(params.Query))
			prefixQuery.SetField("name")
			prefixQuery.SetBoost(0.5)
			textQueries = append(textQueries, prefixQuery)
		}

		queries = append(queries, bleve.NewDisjunctionQuery(textQueries...))
	}

	// Type filter
	if len(params.Types) > 0 {
		typeQueries := make([]query.Query, len(params.Types))
		for i, t := range params.Types {
			tq := bleve.NewTermQuery(t)
			tq.SetField("type")
			typeQueries[i] = tq
		}
		queries = append(queries, bleve.NewDisjunctionQuery(typeQueries...))
	}

	// Child scoping for food introductions
	if params.ChildID != "" {
		cq := bleve.NewTermQuery(params.ChildID)
		cq.SetField("child_id")
		queries = append(queries, cq)
	}

	// Reaction filter (OR across reactions)
	if len(params.Reactions) > 0 {
		reactionQueries := make([]query.Query, len(params.Reactions))
		for i, r := range params.Reactions {
			rq := bleve.NewTermQuery(r)
			rq.SetField("reaction")
			reactionQueries[i] = rq
		}
		queries = append(queries, bleve.NewDisjunctionQuery(reactionQueries...))
	}

	// Allergen exclusion: documents matching any excluded allergen are
	// dropped via a boolean must-not clause.
	if len(params.ExcludeAllergens) > 0 {
		allergenQueries := make([]query.Query, len(params.ExcludeAllergens))
		for i, a := range params.ExcludeAllergens {
			aq := bleve.NewTermQuery(strings.ToLower(a))
			aq.SetField("allergens")
			allergenQueries[i] = aq
		}
		boolQuery := bleve.NewBooleanQuery()
		if len(queries) == 0 {
			boolQuery.AddMust(bleve.NewMatchAllQuery())
		} else {
			boolQuery.AddMust(queries...)
		}
		boolQuery.AddMustNot(bleve.NewDisjunctionQuery(allergenQueries...))
		queries = []query.Query{boolQuery}
	}

	// Age suitability: recipes whose minimum age is at or below the child's
	// age in months.
	if params.MaxAgeMonths > 0 {
		minAge := float64(0)
		maxAge := float64(params.MaxAgeMonths)
		rangeQuery := bleve.NewNumericRangeQuery(&minAge, &maxAge)
		rangeQuery.SetField("age_months_min")
		queries = append(queries, rangeQuery)
	}

	if len(queries) == 0 {
		return bleve.NewMatchAllQuery()
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewConjunctionQuery(queries...)
}

// addSorting configures sort order.
func addSorting(req *bleve.SearchRequest, params SearchParams) {
	switch params.SortBy {
	case "name":
		if params.SortOrder == "desc" {
			req.SortBy([]string{"-name"})
		} else {
			req.SortBy([]string{"name"})
		}
	case "recent":
		if params.SortOrder == "asc" {
			req.SortBy([]string{"created_at"})
		} else {
			req.SortBy([]string{"-created_at"})
		}
	default:
		// Relevance (score) is default
		req.SortBy([]string{"-_score"})
	}
}
