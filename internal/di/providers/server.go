package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/sproutlingapp/sproutling-server/internal/api"
	"github.com/sproutlingapp/sproutling-server/internal/config"
	"github.com/sproutlingapp/sproutling-server/internal/logger"
	"github.com/sproutlingapp/sproutling-server/internal/ratelimit"
	"github.com/sproutlingapp/sproutling-server/internal/service"
	"github.com/sproutlingapp/sproutling-server/internal/sse"
)

// Invite codes are short and guessable, so the public validation endpoint
// gets a tight per-IP budget.
const (
	inviteCodeRPS   = 1.0
	inviteCodeBurst = 5
)

// CodeLimiterHandle wraps the invite-code rate limiter with shutdown capability.
type CodeLimiterHandle struct {
	*ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *CodeLimiterHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideCodeLimiter provides the per-IP limiter for invite code validation.
func ProvideCodeLimiter(i do.Injector) (*CodeLimiterHandle, error) {
	return &CodeLimiterHandle{KeyedRateLimiter: ratelimit.New(inviteCodeRPS, inviteCodeBurst)}, nil
}

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	codeLimiter := do.MustInvoke[*CodeLimiterHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	services := api.Services{
		Auth:        do.MustInvoke[*service.AuthService](i),
		Children:    do.MustInvoke[*service.ChildService](i),
		Sharing:     do.MustInvoke[*service.SharingService](i),
		Invitations: do.MustInvoke[*service.InvitationService](i),
		Records:     do.MustInvoke[*service.RecordService](i),
		Search:      do.MustInvoke[*service.SearchService](i),
	}

	sseHandler := sse.NewHandler(sseHandle.Manager, log.Logger, api.AccountIDFromRequest)

	handler := api.NewServer(storeHandle.Store, services, sseHandler, codeLimiter.KeyedRateLimiter, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr)

	return &HTTPServerHandle{Server: srv}, nil
}
