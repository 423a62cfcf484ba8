package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sproutlingapp/sproutling-server/internal/auth"
	"github.com/sproutlingapp/sproutling-server/internal/domain"
	domainerrors "github.com/sproutlingapp/sproutling-server/internal/errors"
	"github.com/sproutlingapp/sproutling-server/internal/id"
	"github.com/sproutlingapp/sproutling-server/internal/normalize"
	"github.com/sproutlingapp/sproutling-server/internal/store"
)

// AuthService handles caregiver registration, login, and token lifecycle.
type AuthService struct {
	store        *store.Store
	tokenService *auth.TokenService
	logger       *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(store *store.Store, tokenService *auth.TokenService, logger *slog.Logger) *AuthService {
	return &AuthService{
		store:        store,
		tokenService: tokenService,
		logger:       logger,
	}
}

// RegisterRequest contains caregiver registration data.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=1024"`
	DisplayName string `json:"display_name" validate:"required,max=100"`
	DeviceName  string `json:"device_name,omitempty"`
}

// LoginRequest contains caregiver credentials.
type LoginRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	DeviceName string `json:"device_name,omitempty"`
}

// RefreshRequest contains the refresh token to rotate.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthResponse contains authentication tokens and the account.
type AuthResponse struct {
	Account      *domain.Account `json:"account"`
	SessionID    string          `json:"session_id"`
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	ExpiresAt    time.Time       `json:"expires_at"`
}

// Register creates a new caregiver account and signs it in.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	accountID, err := id.Generate("account")
	if err != nil {
		return nil, fmt.Errorf("generate account ID: %w", err)
	}

	now := time.Now()
	account := &domain.Account{
		Syncable: domain.Syncable{
			ID: accountID,
		},
		Email:        normalize.Email(req.Email),
		PasswordHash: passwordHash,
		DisplayName:  normalize.DisplayName(req.DisplayName),
		LastLoginAt:  now,
	}
	account.InitTimestamps()

	if err := s.store.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			return nil, domainerrors.AlreadyExists("email already in use")
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	resp, err := s.createSession(ctx, account, req.DeviceName)
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("Account registered",
			"account_id", accountID,
			"email", account.Email,
		)
	}

	return resp, nil
}

// Login authenticates a caregiver and creates a new device session.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	account, err := s.store.GetAccountByEmail(ctx, normalize.Email(req.Email))
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			// Don't leak whether the email exists.
			return nil, domainerrors.InvalidCredentials("invalid email or password")
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	valid, err := auth.VerifyPassword(account.PasswordHash, req.Password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return nil, domainerrors.InvalidCredentials("invalid email or password")
	}

	account.LastLoginAt = time.Now()
	if err := s.store.UpdateAccount(ctx, account); err != nil {
		// Log but don't fail the login.
		if s.logger != nil {
			s.logger.Warn("Failed to update last login time",
				"account_id", account.ID,
				"error", err,
			)
		}
	}

	resp, err := s.createSession(ctx, account, req.DeviceName)
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("Caregiver logged in",
			"account_id", account.ID,
			"device", req.DeviceName,
		)
	}

	return resp, nil
}

// Refresh rotates a refresh token and issues a fresh access token.
// The old refresh token stops working the moment the new one is issued.
func (s *AuthService) Refresh(ctx context.Context, req RefreshRequest) (*AuthResponse, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	session, err := s.store.GetSessionByToken(ctx, auth.HashRefreshToken(req.RefreshToken))
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return nil, domainerrors.Unauthorized("invalid refresh token")
		}
		return nil, fmt.Errorf("lookup session: %w", err)
	}

	now := time.Now()
	if session.IsExpiredAt(now) {
		// Expired sessions are cleaned up on sight.
		if err := s.store.DeleteSession(ctx, session.ID); err != nil && s.logger != nil {
			s.logger.Warn("Failed to delete expired session",
				"session_id", session.ID,
				"error", err,
			)
		}
		return nil, domainerrors.Unauthorized("session expired, please sign in again")
	}

	account, err := s.store.GetAccount(ctx, session.AccountID)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, domainerrors.Unauthorized("account no longer exists")
		}
		return nil, fmt.Errorf("get account: %w", err)
	}

	newToken, err := s.tokenService.GenerateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	if err := s.store.RotateSessionToken(ctx, session, auth.HashRefreshToken(newToken), now); err != nil {
		return nil, fmt.Errorf("rotate session token: %w", err)
	}

	accessToken, err := s.tokenService.GenerateAccessToken(account)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	return &AuthResponse{
		Account:      account,
		SessionID:    session.ID,
		AccessToken:  accessToken,
		RefreshToken: newToken,
		ExpiresAt:    now.Add(s.tokenService.AccessTokenDuration()),
	}, nil
}

// Logout revokes a session, invalidating its refresh token.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.store.DeleteSession(ctx, sessionID)
}

// VerifyAccessToken validates a token and returns the associated account.
// Used by the authentication middleware.
func (s *AuthService) VerifyAccessToken(ctx context.Context, tokenString string) (*domain.Account, *auth.AccessClaims, error) {
	claims, err := s.tokenService.VerifyAccessToken(tokenString)
	if err != nil {
		return nil, nil, domainerrors.Unauthorized("invalid token")
	}

	account, err := s.store.GetAccount(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, nil, domainerrors.Unauthorized("account no longer exists")
		}
		return nil, nil, fmt.Errorf("get account: %w", err)
	}

	return account, claims, nil
}

// createSession mints the session record and both tokens for an account.
func (s *AuthService) createSession(ctx context.Context, account *domain.Account, deviceName string) (*AuthResponse, error) {
	sessionID, err := id.Generate("session")
	if err != nil {
		return nil, fmt.Errorf("generate session ID: %w", err)
	}

	refreshToken, err := s.tokenService.GenerateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	now := time.Now()
	session := &domain.Session{
		Syncable: domain.Syncable{
			ID: sessionID,
		},
		AccountID:    account.ID,
		RefreshToken: auth.HashRefreshToken(refreshToken),
		DeviceName:   deviceName,
		ExpiresAt:    now.Add(s.tokenService.RefreshTokenDuration()),
		LastSeenAt:   now,
	}
	session.InitTimestamps()

	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	accessToken, err := s.tokenService.GenerateAccessToken(account)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	return &AuthResponse{
		Account:      account,
		SessionID:    sessionID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    now.Add(s.tokenService.AccessTokenDuration()),
	}, nil
}
