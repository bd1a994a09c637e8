// Package auth registers and logs in users and tracks their sessions.
// A session lives in the "users" cache table; the JWT handed to clients
// carries only its id.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mohammed-shakir/favplaces/internal/core/validation"
	"github.com/mohammed-shakir/favplaces/internal/store"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrUserExists   = errors.New("user already exists")
)

const bcryptCost = 10

type RegisterInput struct {
	Email           string `json:"email" validate:"required,email"`
	Username        string `json:"username" validate:"required,alphanum,min=3,max=30"`
	Password        string `json:"password" validate:"required,alphanum,min=3,max=30"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

// LoginInput takes exactly one of Email or Username.
type LoginInput struct {
	Email    string `json:"email" validate:"omitempty,email,excluded_with=Username"`
	Username string `json:"username" validate:"required_without=Email,omitempty,alphanum,min=3,max=30"`
	Password string `json:"password" validate:"required,alphanum,min=3,max=30"`
}

type Users interface {
	CreateUser(ctx context.Context, u store.User) (store.User, error)
	UserByEmail(ctx context.Context, email string) (store.User, error)
	UserByUsername(ctx context.Context, username string) (store.User, error)
}

type Service struct {
	users    Users
	sessions *Sessions
	tokens   *Tokens
	logger   *slog.Logger
}

func NewService(users Users, sessions *Sessions, tokens *Tokens, logger *slog.Logger) *Service {
	return &Service{users: users, sessions: sessions, tokens: tokens, logger: logger}
}

// Register creates the user and opens a first session.
func (s *Service) Register(ctx context.Context, in RegisterInput) (string, error) {
	if err := validation.Struct(&in); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	u, err := s.users.CreateUser(ctx, store.User{
		Email:          in.Email,
		Username:       in.Username,
		HashedPassword: string(hash),
	})
	if errors.Is(err, store.ErrConflict) {
		s.logger.WarnContext(ctx, "user already exists", "email", in.Email, "username", in.Username)
		return "", ErrUserExists
	}
	if err != nil {
		return "", fmt.Errorf("create user: %w", err)
	}
	s.logger.InfoContext(ctx, "user registered", "user_id", u.ID)
	return s.openSession(ctx, u.ID)
}

func (s *Service) Login(ctx context.Context, in LoginInput) (string, error) {
	if err := validation.Struct(&in); err != nil {
		return "", err
	}
	var (
		u   store.User
		err error
	)
	if in.Email != "" {
		u, err = s.users.UserByEmail(ctx, in.Email)
	} else {
		u, err = s.users.UserByUsername(ctx, in.Username)
	}
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrUnauthorized
	}
	if err != nil {
		return "", fmt.Errorf("find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.HashedPassword), []byte(in.Password)); err != nil {
		return "", ErrUnauthorized
	}
	return s.openSession(ctx, u.ID)
}

func (s *Service) Logout(ctx context.Context, sess Session) error {
	if err := s.sessions.End(ctx, sess); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

// Authenticate resolves an Authorization header value ("<jwt>" or
// "Bearer <jwt>") to a live session.
func (s *Service) Authenticate(ctx context.Context, header string) (Session, error) {
	raw := strings.TrimSpace(header)
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		raw = strings.TrimSpace(raw[7:])
	}
	if raw == "" {
		return Session{}, ErrUnauthorized
	}
	id, err := s.tokens.Parse(raw)
	if err != nil {
		return Session{}, ErrUnauthorized
	}
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrUnauthorized) {
			s.logger.WarnContext(ctx, "session lookup failed", "err", err)
		}
		return Session{}, ErrUnauthorized
	}
	if !sess.Valid {
		return Session{}, ErrUnauthorized
	}
	return sess, nil
}

func (s *Service) openSession(ctx context.Context, userID string) (string, error) {
	sess, err := s.sessions.Create(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	tok, err := s.tokens.Sign(sess, time.Now())
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tok, nil
}
