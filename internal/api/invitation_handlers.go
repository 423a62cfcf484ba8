package api

import (
	"encoding/json/v2"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sproutlingapp/sproutling-server/internal/http/response"
	"github.com/sproutlingapp/sproutling-server/internal/service"
)

// handleCreateInvitation issues an invitation for a child profile.
// POST /api/v1/children/{id}/invitations.
func (s *Server) handleCreateInvitation(w http.ResponseWriter, r *http.Request) {
	accountID, err := requireAccount(r)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}

	var body struct {
		InvitedEmail string `json:"invited_email"`
	}
	if err := json.UnmarshalRead(r.Body, &body); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	inv, err := s.services.Invitations.CreateInvitation(r.Context(), accountID, service.CreateInvitationRequest{
		ChildID:      chi.URLParam(r, "id"),
		InvitedEmail: body.InvitedEmail,
	})
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}

	response.Created(w, inv, s.logger)
}

// handleListInvitations lists the invitations issued for a child profile.
// GET /api/v1/children/{id}/invitations.
func (s *Server) handleListInvitations(w http.ResponseWriter, r *http.Request) {
	accountID, err := requireAccount(r)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}

	invitations, err := s.services.Invitations.ListForChild(r.Context(), accountID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}

	response.Success(w, invitations, s.logger)
}

// handleValidateInviteCode previews a pending invitation by code. Public:
// the accept screen shows the child and inviter before sign-in, which is
// why the route sits behind the rate limiter.
// GET /api/v1/invitations/code/{code}.
func (s *Server) handleValidateInviteCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		response.BadRequest(w, "Invite code is required", s.logger)
		return
	}

	preview, err := s.services.Invitations.ValidateCode(r.Context(), code)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}

	response.Success(w, preview, s.logger)
}

// handleAcceptInvitation accepts an invitation on behalf of the caller.
// POST /api/v1/invitations/{id}/accept.
func (s *Server) handleAcceptInvitation(w http.ResponseWriter, r *http.Request) {
	accountID, err := requireAccount(r)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}

	child, err := s.services.Invitations.Accept(r.Context(), accountID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}

	response.Success(w, child, s.logger)
}

// handleDeclineInvitation declines an invitation.
// POST /api/v1/invitations/{id}/decline.
func (s *Server) handleDeclineInvitation(w http.ResponseWriter, r *http.Request) {
	accountID, err := requireAccount(r)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}

	if err := s.services.Invitations.Decline(r.Context(), accountID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}
