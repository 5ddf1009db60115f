package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/shelfmarkapp/shelfmark-server/internal/domain"
)

// Key prefixes for session storage.
const (
	sessionPrefix        = "session:"
	sessionByTokenPrefix = "idx:session:token:" // refresh token hash -> sessionID
	sessionByUserPrefix  = "idx:session:user:"  // userID:sessionID -> empty
)

// CreateSession persists a new session with its refresh token index.
func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	session.InitTimestamps()

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	return s.update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(sessionPrefix+session.ID), data); err != nil {
			return err
		}
		if err := txn.Set([]byte(sessionByTokenPrefix+session.RefreshTokenHash), []byte(session.ID)); err != nil {
			return err
		}
		return txn.Set([]byte(sessionByUserPrefix+session.UserID+":"+session.ID), []byte{})
	})
}

// GetSessionByTokenHash looks up a session by its refresh token hash.
func (s *Store) GetSessionByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var sessionID string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(sessionByTokenPrefix + tokenHash))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			sessionID = string(val)
			return nil
		})
	})
	if err != nil {
		return nil, err
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

// DeleteSession removes a session and its indexes. Idempotent.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := []byte(sessionPrefix + sessionID)

	return s.update(func(txn *badger.Txn) error {
		var session domain.Session
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get session: %w", err)
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &session)
		}); err != nil {
			return err
		}

		if err := txn.Delete([]byte(sessionByTokenPrefix + session.RefreshTokenHash)); err != nil {
			return err
		}
		if err := txn.Delete([]byte(sessionByUserPrefix + session.UserID + ":" + session.ID)); err != nil {
			return err
		}
		return txn.Delete(key)
	})
}
