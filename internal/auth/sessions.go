package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/mohammed-shakir/favplaces/internal/cache"
)

const sessionTable = "users"

type Session struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	Valid  bool   `json:"valid"`
	// unix millis
	Ended int64 `json:"ended,omitempty"`
}

type Sessions struct {
	store cache.Store
	now   func() time.Time
}

func NewSessions(s cache.Store) *Sessions {
	return &Sessions{store: s, now: time.Now}
}

func (s *Sessions) Create(ctx context.Context, userID string) (Session, error) {
	sess := Session{ID: uuid.NewString(), UserID: userID, Valid: true}
	if err := s.put(ctx, sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Get returns ErrUnauthorized when the session is unknown.
func (s *Sessions) Get(ctx context.Context, id string) (Session, error) {
	raw, found, err := s.store.Get(ctx, sessionTable, id)
	if err != nil {
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	if !found {
		return Session{}, ErrUnauthorized
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	return sess, nil
}

// End keeps the record but marks it invalid.
func (s *Sessions) End(ctx context.Context, sess Session) error {
	sess.Valid = false
	sess.Ended = s.now().UnixMilli()
	return s.put(ctx, sess)
}

func (s *Sessions) put(ctx context.Context, sess Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.store.Set(ctx, sessionTable, sess.ID, raw); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}
