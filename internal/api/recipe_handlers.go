package api

import (
	"encoding/json/v2"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sproutlingapp/sproutling-server/internal/domain"
	"github.com/sproutlingapp/sproutling-server/internal/http/response"
)

// handleCreateRecipe handles POST /api/v1/recipes.
func (s *Server) handleCreateRecipe(w http.ResponseWriter, r *http.Request) {
	accountID, err := requireAccount(r)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}

	var rec domain.Recipe
	if !s.decodeBody(w, r, &rec) {
		return
	}

	created, err := s.services.Records.CreateRecipe(r.Context(), accountID, &rec)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}
	response.Created(w, created, s.logger)
}

// handleListRecipes handles GET /api/v1/recipes. Returns recipes the
// caller owns plus recipes shared with them.
func (s *Server) handleListRecipes(w http.ResponseWriter, r *http.Request) {
	accountID, err := requireAccount(r)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}

	recipes, err := s.services.Records.ListRecipes(r.Context(), accountID)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}
	response.Success(w, recipes, s.logger)
}

// handleGetRecipe handles GET /api/v1/recipes/{id}.
func (s *Server) handleGetRecipe(w http.ResponseWriter, r *http.Request) {
	accountID, err := requireAccount(r)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}

	recipe, err := s.services.Records.GetRecipe(r.Context(), accountID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}
	response.Success(w, recipe, s.logger)
}

// handleUpdateRecipe handles PATCH /api/v1/recipes/{id}.
func (s *Server) handleUpdateRecipe(w http.ResponseWriter, r *http.Request) {
	accountID, err := requireAccount(r)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}

	var body domain.Recipe
	if !s.decodeBody(w, r, &body) {
		return
	}

	updated, err := s.services.Records.UpdateRecipe(r.Context(), accountID, chi.URLParam(r, "id"), func(rec *domain.Recipe) {
		rec.Title = body.Title
		rec.Ingredients = body.Ingredients
		rec.Instructions = body.Instructions
		rec.PrepMinutes = body.PrepMinutes
		rec.AgeMonthsMin = body.AgeMonthsMin
		rec.Allergens = body.Allergens
	})
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}
	response.Success(w, updated, s.logger)
}

// handleDeleteRecipe handles DELETE /api/v1/recipes/{id}.
func (s *Server) handleDeleteRecipe(w http.ResponseWriter, r *http.Request) {
	accountID, err := requireAccount(r)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}

	if err := s.services.Records.DeleteRecipe(r.Context(), accountID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}

// handleShareRecipe handles POST /api/v1/recipes/{id}/share.
// Only the recipe owner may grant access.
func (s *Server) handleShareRecipe(w http.ResponseWriter, r *http.Request) {
	accountID, err := requireAccount(r)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}

	var body struct {
		AccountID string `json:"account_id"`
	}
	if err := json.UnmarshalRead(r.Body, &body); err != nil || body.AccountID == "" {
		response.BadRequest(w, "account_id is required", s.logger)
		return
	}

	shared, err := s.services.Records.ShareRecipe(r.Context(), accountID, chi.URLParam(r, "id"), body.AccountID)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}
	response.Success(w, shared, s.logger)
}

// Shopping list items.

func (s *Server) handleCreateShoppingItem(w http.ResponseWriter, r *http.Request) {
	accountID, err := requireAccount(r)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}

	var rec domain.ShoppingItem
	if !s.decodeBody(w, r, &rec) {
		return
	}

	created, err := s.services.Records.CreateShoppingItem(r.Context(), accountID, &rec)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}
	response.Created(w, created, s.logger)
}

func (s *Server) handleListShoppingItems(w http.ResponseWriter, r *http.Request) {
	accountID, err := requireAccount(r)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}

	items, err := s.services.Records.ListShoppingItems(r.Context(), accountID)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}
	response.Success(w, items, s.logger)
}

func (s *Server) handleUpdateShoppingItem(w http.ResponseWriter, r *http.Request) {
	accountID, err := requireAccount(r)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}

	var body domain.ShoppingItem
	if !s.decodeBody(w, r, &body) {
		return
	}

	updated, err := s.services.Records.UpdateShoppingItem(r.Context(), accountID, chi.URLParam(r, "id"), func(item *domain.ShoppingItem) {
		item.Name = body.Name
		item.Quantity = body.Quantity
		item.Checked = body.Checked
		item.SharedWith = body.SharedWith
	})
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}
	response.Success(w, updated, s.logger)
}

func (s *Server) handleDeleteShoppingItem(w http.ResponseWriter, r *http.Request) {
	accountID, err := requireAccount(r)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}

	if err := s.services.Records.DeleteShoppingItem(r.Context(), accountID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}
