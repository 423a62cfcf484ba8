package api

import (
	"encoding/json/v2"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sproutlingapp/sproutling-server/internal/color"
	"github.com/sproutlingapp/sproutling-server/internal/domain"
	"github.com/sproutlingapp/sproutling-server/internal/http/response"
	"github.com/sproutlingapp/sproutling-server/internal/service"
)

// collaboratorView is a redacted account plus the derived avatar color
// clients use to tint that caregiver's entries.
type collaboratorView struct {
	*domain.Account
	AvatarColor string `json:"avatar_color"`
}

func newCollaboratorView(a *domain.Account) collaboratorView {
	return collaboratorView{
		Account:     redactAccount(a),
		AvatarColor: color.ForAccount(a.ID),
	}
}

// handleCreateChild creates a child profile owned by the caller.
// POST /api/v1/children.
func (s *Server) handleCreateChild(w http.ResponseWriter, r *http.Request) {
	accountID, err := requireAccount(r)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}

	var req service.CreateChildRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	child, err := s.services.Children.CreateChild(r.Context(), accountID, req)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}

	response.Created(w, child, s.logger)
}

// handleListChildren returns every profile the caller owns or collaborates on.
// GET /api/v1/children.
func (s *Server) handleListChildren(w http.ResponseWriter, r *http.Request) {
	accountID, err := requireAccount(r)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}

	children, err := s.services.Children.ListChildren(r.Context(), accountID)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}

	response.Success(w, children, s.logger)
}

// handleGetChild returns one child profile.
// GET /api/v1/children/{id}.
func (s *Server) handleGetChild(w http.ResponseWriter, r *http.Request) {
	accountID, err := requireAccount(r)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}

	child, err := s.services.Children.GetChild(r.Context(), accountID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}

	response.Success(w, child, s.logger)
}

// handleUpdateChild updates child profile fields.
// PATCH /api/v1/children/{id}.
func (s *Server) handleUpdateChild(w http.ResponseWriter, r *http.Request) {
	accountID, err := requireAccount(r)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}

	var req service.UpdateChildRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	child, err := s.services.Children.UpdateChild(r.Context(), accountID, chi.URLParam(r, "id"), req)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}

	response.Success(w, child, s.logger)
}

// handleDeleteChild deletes a child profile and everything scoped to it.
// DELETE /api/v1/children/{id}.
func (s *Server) handleDeleteChild(w http.ResponseWriter, r *http.Request) {
	accountID, err := requireAccount(r)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}

	if err := s.services.Children.DeleteChild(r.Context(), accountID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

// handleListCollaborators lists the caregivers a child profile is shared with.
// GET /api/v1/children/{id}/collaborators.
func (s *Server) handleListCollaborators(w http.ResponseWriter, r *http.Request) {
	accountID, err := requireAccount(r)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}

	accounts, err := s.services.Sharing.ListCollaborators(r.Context(), accountID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}

	views := make([]collaboratorView, len(accounts))
	for i, a := range accounts {
		views[i] = newCollaboratorView(a)
	}
	response.Success(w, views, s.logger)
}

// handleAddCollaborator grants another caregiver access to a child profile.
// POST /api/v1/children/{id}/collaborators.
func (s *Server) handleAddCollaborator(w http.ResponseWriter, r *http.Request) {
	accountID, err := requireAccount(r)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}

	var req struct {
		AccountID string `json:"account_id"`
	}
	if err := json.UnmarshalRead(r.Body, &req); err != nil || req.AccountID == "" {
		response.BadRequest(w, "Account ID is required", s.logger)
		return
	}

	child, err := s.services.Sharing.AddCollaborator(r.Context(), accountID, chi.URLParam(r, "id"), req.AccountID)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}

	response.Success(w, child, s.logger)
}

// handleRemoveCollaborator revokes a caregiver's access to a child profile.
// DELETE /api/v1/children/{id}/collaborators/{accountID}.
func (s *Server) handleRemoveCollaborator(w http.ResponseWriter, r *http.Request) {
	accountID, err := requireAccount(r)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}

	child, err := s.services.Sharing.RemoveCollaborator(r.Context(), accountID, chi.URLParam(r, "id"), chi.URLParam(r, "accountID"))
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}

	response.Success(w, child, s.logger)
}
