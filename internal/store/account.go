package store

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/sproutlingapp/sproutling-server/internal/domain"
)

const (
	sessionPrefix        = "session:"
	sessionByTokenPrefix = "session:idx:token:" // For refresh token lookups
	sessionByAcctPrefix  = "session:idx:acct:"  // Composite acct:id keys for listing
)

// CreateAccount creates a new caregiver account.
// Returns ErrEmailExists when the email is already registered.
func (s *Store) CreateAccount(ctx context.Context, account *domain.Account) error {
	err := s.Accounts.Create(ctx, account.ID, account)
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return ErrEmailExists
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// GetAccount retrieves an account by ID.
func (s *Store) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	account, err := s.Accounts.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	if account.IsDeleted() {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

// GetAccountByEmail retrieves an account by email, case-insensitively.
func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	account, err := s.Accounts.GetByIndex(ctx, "email", email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account by email: %w", err)
	}
	if account.IsDeleted() {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

// UpdateAccount persists account changes.
func (s *Store) UpdateAccount(ctx context.Context, account *domain.Account) error {
	account.Touch()
	if err := s.Accounts.Update(ctx, account.ID, account); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("update account: %w", err)
	}
	return nil
}

// CreateSession persists a new device session with its token index.
func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := []byte(sessionPrefix + session.ID)
	tokenKey := []byte(sessionByTokenPrefix + session.RefreshToken)
	acctKey := []byte(sessionByAcctPrefix + session.AccountID + ":" + session.ID)

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, data); err != nil {
			return err
		}
		if err := txn.Set(tokenKey, []byte(session.ID)); err != nil {
			return err
		}
		return txn.Set(acctKey, []byte(session.ID))
	})
}

// GetSessionByToken retrieves a session by refresh token.
func (s *Store) GetSessionByToken(_ context.Context, token string) (*domain.Session, error) {
	tokenKey := []byte(sessionByTokenPrefix + token)

	var sessionID string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(tokenKey)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			sessionID = string(val)
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("lookup session by token: %w", err)
	}

	var session domain.Session
	if err := s.get([]byte(sessionPrefix+sessionID), &session); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &session, nil
}

// RotateSessionToken replaces a session's refresh token in one transaction.
// The old token stops working the moment the new one is issued.
func (s *Store) RotateSessionToken(ctx context.Context, session *domain.Session, newToken string, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	oldTokenKey := []byte(sessionByTokenPrefix + session.RefreshToken)
	session.RefreshToken = newToken
	session.LastSeenAt = now
	session.Touch()

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(oldTokenKey); err != nil {
			return err
		}
		if err := txn.Set([]byte(sessionPrefix+session.ID), data); err != nil {
			return err
		}
		return txn.Set([]byte(sessionByTokenPrefix+newToken), []byte(session.ID))
	})
}

// DeleteSession removes a session and its indexes. Idempotent.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(sessionPrefix + sessionID)

		var session domain.Session
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get session: %w", err)
		}

		err = item.Value(func(val []byte) error {
			return json.Unmarshal(val, &session)
		})
		if err != nil {
			return err
		}

		if err := txn.Delete([]byte(sessionByTokenPrefix + session.RefreshToken)); err != nil {
			return err
		}
		if err := txn.Delete([]byte(sessionByAcctPrefix + session.AccountID + ":" + session.ID)); err != nil {
			return err
		}
		return txn.Delete(key)
	})
}

// DeleteExpiredSessions removes every session whose refresh window has
// closed. Returns the number of sessions deleted.
func (s *Store) DeleteExpiredSessions(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	now := time.Now()
	var expired []string

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(sessionPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		idxPrefix := []byte(sessionPrefix + "idx:")
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			// Index keys share the session prefix; only session records
			// carry JSON payloads.
			if bytes.HasPrefix(item.Key(), idxPrefix) {
				continue
			}

			var session domain.Session
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &session)
			})
			if err != nil {
				return err
			}
			if session.IsExpiredAt(now) {
				expired = append(expired, session.ID)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan sessions: %w", err)
	}

	for _, id := range expired {
		if err := s.DeleteSession(ctx, id); err != nil {
			return 0, fmt.Errorf("delete expired session %s: %w", id, err)
		}
	}
	return len(expired), nil
}
