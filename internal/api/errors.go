package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/sproutlingapp/sproutling-server/internal/errors"
	"github.com/sproutlingapp/sproutling-server/internal/http/response"
	"github.com/sproutlingapp/sproutling-server/internal/store"
)

// requireAccount returns the authenticated account ID from context or a
// typed 401 error for handlers that compose access checks themselves.
func requireAccount(r *http.Request) (string, error) {
	accountID := getAccountID(r.Context())
	if accountID == "" {
		return "", huma.Error401Unauthorized("Authentication required")
	}
	return accountID, nil
}

// handleServiceError writes the HTTP response for a service layer error.
// Domain errors keep their code and message: "this invitation has expired"
// and "this invitation was already used" must stay distinguishable so the
// client can guide the user.
func handleServiceError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var statusErr huma.StatusError
	if errors.As(err, &statusErr) {
		response.Error(w, statusErr.GetStatus(), statusErr.Error(), logger)
		return
	}

	if errors.Is(err, store.ErrChildNotFound) ||
		errors.Is(err, store.ErrAccountNotFound) ||
		errors.Is(err, store.ErrInvitationNotFound) {
		response.NotFound(w, err.Error(), logger)
		return
	}

	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		response.HandleError(w, err, logger)
		return
	}

	logger.Error("Unhandled service error", "error", err)
	response.InternalError(w, "internal server error", logger)
}
