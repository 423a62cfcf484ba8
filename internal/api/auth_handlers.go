package api

import (
	"encoding/json/v2"
	"net/http"

	"github.com/sproutlingapp/sproutling-server/internal/domain"
	"github.com/sproutlingapp/sproutling-server/internal/http/response"
	"github.com/sproutlingapp/sproutling-server/internal/service"
)

// redactAccount strips the password hash before an account leaves the API.
// The hash stays in the struct for persistence, so every handler that
// returns an account goes through here.
func redactAccount(a *domain.Account) *domain.Account {
	c := *a
	c.PasswordHash = ""
	return &c
}

// redactAuthResponse redacts the embedded account.
func redactAuthResponse(resp *service.AuthResponse) *service.AuthResponse {
	c := *resp
	c.Account = redactAccount(resp.Account)
	return &c
}

// handleRegister creates a new caregiver account and signs it in.
// POST /api/v1/auth/register.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	resp, err := s.services.Auth.Register(r.Context(), req)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}

	response.Created(w, redactAuthResponse(resp), s.logger)
}

// handleLogin authenticates a caregiver.
// POST /api/v1/auth/login.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	resp, err := s.services.Auth.Login(r.Context(), req)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}

	response.Success(w, redactAuthResponse(resp), s.logger)
}

// handleRefresh rotates a refresh token.
// POST /api/v1/auth/refresh.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req service.RefreshRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	resp, err := s.services.Auth.Refresh(r.Context(), req)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}

	response.Success(w, redactAuthResponse(resp), s.logger)
}

// handleLogout revokes the caller's session.
// POST /api/v1/auth/logout.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := json.UnmarshalRead(r.Body, &req); err != nil || req.SessionID == "" {
		response.BadRequest(w, "Session ID is required", s.logger)
		return
	}

	if err := s.services.Auth.Logout(r.Context(), req.SessionID); err != nil {
		handleServiceError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

// handleGetCurrentAccount returns the authenticated caregiver's account.
// GET /api/v1/auth/me.
func (s *Server) handleGetCurrentAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := requireAccount(r)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}

	account, err := s.store.GetAccount(r.Context(), accountID)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}

	response.Success(w, redactAccount(account), s.logger)
}
