package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/sproutlingapp/sproutling-server/internal/domain"
	"github.com/sproutlingapp/sproutling-server/internal/sse"
)

const (
	invitationPrefix        = "invitation:"
	invitationByCodePrefix  = "invitation:idx:code:"  // Pending invitations only, for public code lookups
	invitationByChildPrefix = "invitation:idx:child:" // Composite child:id keys for listing
)

// invitationKey returns the primary key for an invitation.
func invitationKey(id string) []byte {
	return []byte(invitationPrefix + id)
}

// invitationChildKey returns the composite child-index key for an invitation.
func invitationChildKey(childID, id string) []byte {
	return []byte(invitationByChildPrefix + childID + ":" + id)
}

// CreateInvitation persists a new invitation. The code index holds only
// pending invitations, so the uniqueness check inside the transaction is
// exactly the "no collision with a currently-pending code" rule: the
// caller retries with a fresh code on ErrInvitationCodeExists.
func (s *Store) CreateInvitation(ctx context.Context, inv *domain.Invitation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := invitationKey(inv.ID)
	codeKey := []byte(invitationByCodePrefix + inv.Code)
	childKey := invitationChildKey(inv.ChildID, inv.ID)

	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return ErrAlreadyExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("check invitation exists: %w", err)
		}

		// Check if the code is held by a pending invitation.
		_, err = txn.Get(codeKey)
		if err == nil {
			return ErrInvitationCodeExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("check code exists: %w", err)
		}

		data, err := json.Marshal(inv)
		if err != nil {
			return fmt.Errorf("marshal invitation: %w", err)
		}

		if err := txn.Set(key, data); err != nil {
			return err
		}
		if err := txn.Set(codeKey, []byte(inv.ID)); err != nil {
			return err
		}
		return txn.Set(childKey, []byte(inv.ID))
	})
	if err != nil {
		return err
	}

	s.emit(sse.NewRecordEvent(sse.EventInvitationCreated, sse.InvitationEventData{Invitation: inv}, invitationAudience(inv)))
	return nil
}

// GetInvitation retrieves an invitation by ID.
func (s *Store) GetInvitation(_ context.Context, id string) (*domain.Invitation, error) {
	var inv domain.Invitation
	if err := s.get(invitationKey(id), &inv); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	return &inv, nil
}

// GetInvitationByCode retrieves a pending invitation by its public code.
// Terminal invitations release their code, so a code only ever resolves
// to the one pending invitation currently holding it.
func (s *Store) GetInvitationByCode(ctx context.Context, code string) (*domain.Invitation, error) {
	codeKey := []byte(invitationByCodePrefix + code)

	var invitationID string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(codeKey)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			invitationID = string(val)
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("lookup invitation by code: %w", err)
	}

	return s.GetInvitation(ctx, invitationID)
}

// UpdateInvitationIfPending applies mutate to the invitation only if its
// status is still pending at write time. Read, check, mutate, and write
// happen in one transaction, so two devices racing to accept the same
// invitation cannot both succeed: the loser sees ErrInvitationNotPending.
//
// If mutate moves the invitation out of pending, its code index entry is
// removed so the code returns to the usable pool.
func (s *Store) UpdateInvitationIfPending(ctx context.Context, id string, mutate func(*domain.Invitation) error) (*domain.Invitation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var inv domain.Invitation
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(invitationKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrInvitationNotFound
		}
		if err != nil {
			return fmt.Errorf("get invitation: %w", err)
		}

		err = item.Value(func(val []byte) error {
			return json.Unmarshal(val, &inv)
		})
		if err != nil {
			return fmt.Errorf("unmarshal invitation: %w", err)
		}

		if !inv.IsPending() {
			return ErrInvitationNotPending
		}

		if err := mutate(&inv); err != nil {
			return err
		}

		data, err := json.Marshal(&inv)
		if err != nil {
			return fmt.Errorf("marshal invitation: %w", err)
		}
		if err := txn.Set(invitationKey(id), data); err != nil {
			return err
		}

		if !inv.IsPending() {
			codeKey := []byte(invitationByCodePrefix + inv.Code)
			if err := txn.Delete(codeKey); err != nil {
				return fmt.Errorf("release invitation code: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(sse.NewRecordEvent(sse.EventInvitationUpdated, sse.InvitationEventData{Invitation: &inv}, invitationAudience(&inv)))
	return &inv, nil
}

// RevertInvitationToPending puts an invitation back into the pending state.
// This is the compensation path for accept: if the share mutation fails after
// the invitation was transitioned, the transition is undone so the invitation
// stays usable. The code index entry is restored unless another pending
// invitation claimed the code in the meantime.
func (s *Store) RevertInvitationToPending(ctx context.Context, id string) (*domain.Invitation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var inv domain.Invitation
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(invitationKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrInvitationNotFound
		}
		if err != nil {
			return fmt.Errorf("get invitation: %w", err)
		}

		err = item.Value(func(val []byte) error {
			return json.Unmarshal(val, &inv)
		})
		if err != nil {
			return fmt.Errorf("unmarshal invitation: %w", err)
		}

		inv.Status = domain.InvitationPending
		inv.AcceptedBy = ""
		inv.ResolvedAt = nil
		inv.Touch()

		data, err := json.Marshal(&inv)
		if err != nil {
			return fmt.Errorf("marshal invitation: %w", err)
		}
		if err := txn.Set(invitationKey(id), data); err != nil {
			return err
		}

		codeKey := []byte(invitationByCodePrefix + inv.Code)
		_, err = txn.Get(codeKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return txn.Set(codeKey, []byte(inv.ID))
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.emit(sse.NewRecordEvent(sse.EventInvitationUpdated, sse.InvitationEventData{Invitation: &inv}, invitationAudience(&inv)))
	return &inv, nil
}

// ListInvitationsByChild returns all invitations for a child profile,
// whatever their state.
func (s *Store) ListInvitationsByChild(ctx context.Context, childID string) ([]*domain.Invitation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scanPrefix := []byte(invitationByChildPrefix + childID + ":")

	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = scanPrefix
		opts.PrefetchValues = true

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(scanPrefix); it.ValidForPrefix(scanPrefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				ids = append(ids, string(val))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list invitations by child: %w", err)
	}

	invitations := make([]*domain.Invitation, 0, len(ids))
	for _, id := range ids {
		inv, err := s.GetInvitation(ctx, id)
		if err != nil {
			return nil, err
		}
		invitations = append(invitations, inv)
	}
	return invitations, nil
}

// ListPendingInvitations returns every pending invitation, for the expiry
// sweep. The pending set is bounded by the code index, which only holds
// pending entries.
func (s *Store) ListPendingInvitations(ctx context.Context) ([]*domain.Invitation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scanPrefix := []byte(invitationByCodePrefix)

	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = scanPrefix
		opts.PrefetchValues = true

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(scanPrefix); it.ValidForPrefix(scanPrefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				ids = append(ids, string(val))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list pending invitations: %w", err)
	}

	invitations := make([]*domain.Invitation, 0, len(ids))
	for _, id := range ids {
		inv, err := s.GetInvitation(ctx, id)
		if err != nil {
			return nil, err
		}
		if inv.IsPending() {
			invitations = append(invitations, inv)
		}
	}
	return invitations, nil
}

// invitationAudience returns the account IDs that should see events about
// an invitation: the inviter, plus the acceptor once there is one.
func invitationAudience(inv *domain.Invitation) []string {
	audience := []string{inv.InviterID}
	if inv.AcceptedBy != "" {
		audience = append(audience, inv.AcceptedBy)
	}
	return audience
}
