package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/sproutlingapp/sproutling-server/internal/allergen"
	"github.com/sproutlingapp/sproutling-server/internal/http/response"
	"github.com/sproutlingapp/sproutling-server/internal/search"
)

// handleSearch handles GET /api/v1/search. Results are filtered to
// records the caller can access before they leave the server.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	accountID, err := requireAccount(r)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}

	params := parseSearchParams(r)
	if params.Query == "" {
		response.BadRequest(w, "Query parameter 'q' is required", s.logger)
		return
	}

	result, err := s.services.Search.Search(r.Context(), accountID, params)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}
	response.Success(w, result, s.logger)
}

func parseSearchParams(r *http.Request) search.SearchParams {
	q := r.URL.Query()
	params := search.DefaultSearchParams()
	params.Query = strings.TrimSpace(q.Get("q"))

	if types := q.Get("types"); types != "" {
		params.Types = splitCSV(types)
	}
	params.ChildID = q.Get("child_id")
	if v := q.Get("exclude_allergens"); v != "" {
		params.ExcludeAllergens = allergen.Normalize(splitCSV(v))
	}
	if v := q.Get("reactions"); v != "" {
		params.Reactions = splitCSV(v)
	}
	if v, err := strconv.Atoi(q.Get("max_age_months")); err == nil && v > 0 {
		params.MaxAgeMonths = v
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 && v <= 100 {
		params.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v >= 0 {
		params.Offset = v
	}
	if v := q.Get("sort_by"); v == "relevance" || v == "name" || v == "recent" {
		params.SortBy = v
	}
	if v := q.Get("sort_order"); v == "asc" || v == "desc" {
		params.SortOrder = v
	}
	params.Highlight = q.Get("highlight") == "true"

	return params
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
