// Package router holds the HTTP handlers: request parsing, validation and
// mapping of service errors to status codes.
package router

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mohammed-shakir/favplaces/internal/auth"
	"github.com/mohammed-shakir/favplaces/internal/core/model"
	"github.com/mohammed-shakir/favplaces/internal/core/respond"
	"github.com/mohammed-shakir/favplaces/internal/core/validation"
	"github.com/mohammed-shakir/favplaces/internal/favorites"
	"github.com/mohammed-shakir/favplaces/internal/places"
	"github.com/mohammed-shakir/favplaces/internal/store"
)

type Searcher interface {
	Search(ctx context.Context, q model.Query) (model.SearchResult, error)
}

type Favorites interface {
	Add(ctx context.Context, userID, placeID string) (model.Place, error)
	Remove(ctx context.Context, userID, placeID string) error
	List(ctx context.Context, userID string, q favorites.ListQuery) (favorites.ListResult, error)
}

type Auth interface {
	Register(ctx context.Context, in auth.RegisterInput) (string, error)
	Login(ctx context.Context, in auth.LoginInput) (string, error)
	Logout(ctx context.Context, s auth.Session) error
}

// Meta carries page links, relative to the request.
type Meta struct {
	Page     int    `json:"page"`
	Limit    int    `json:"limit"`
	Next     string `json:"next,omitempty"`
	Previous string `json:"previous,omitempty"`
}

// writeError maps service errors to status codes. Anything unknown is a 500
// and is logged.
func writeError(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, err error) {
	var ve *validation.Error
	switch {
	case errors.As(err, &ve):
		respond.Error(w, http.StatusBadRequest, ve.Message)
	case errors.Is(err, errBadRequest), errors.Is(err, favorites.ErrOriginRequired):
		respond.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrUnauthorized):
		respond.Error(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, auth.ErrUserExists):
		respond.Error(w, http.StatusConflict, "User already exists")
	case errors.Is(err, favorites.ErrAlreadyFavorite), errors.Is(err, store.ErrConflict):
		respond.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, favorites.ErrNotFound), errors.Is(err, places.ErrNotFound), errors.Is(err, store.ErrNotFound):
		respond.Error(w, http.StatusNotFound, "Not Found")
	case errors.Is(err, places.ErrUpstream):
		logger.ErrorContext(ctx, "upstream failure", "err", err)
		respond.Error(w, http.StatusBadGateway, "The places provider is unavailable")
	default:
		logger.ErrorContext(ctx, "request failed", "err", err)
		respond.Error(w, http.StatusInternalServerError, "An internal server error occurred")
	}
}

var errBadRequest = errors.New("bad request")

func badRequest(msg string) error {
	return &wrapped{msg: msg, err: errBadRequest}
}

type wrapped struct {
	msg string
	err error
}

func (w *wrapped) Error() string { return w.msg }
func (w *wrapped) Unwrap() error { return w.err }

func parseFloatParam(v url.Values, name string) (*float64, error) {
	raw := strings.TrimSpace(v.Get(name))
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, badRequest(strconv.Quote(name) + " must be a number")
	}
	return &f, nil
}

func parseIntParam(v url.Values, name string, def int) (int, error) {
	raw := strings.TrimSpace(v.Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest(strconv.Quote(name) + " must be an integer")
	}
	return n, nil
}

// pageLink rewrites the page query parameter of the current request URL.
func pageLink(r *http.Request, page int) string {
	u := *r.URL
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.RequestURI()
}

func meta(r *http.Request, page, limit int, hasNext, hasPrevious bool) Meta {
	m := Meta{Page: page, Limit: limit}
	if hasNext {
		m.Next = pageLink(r, page+1)
	}
	if hasPrevious {
		m.Previous = pageLink(r, page-1)
	}
	return m
}
