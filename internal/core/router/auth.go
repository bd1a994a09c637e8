package router

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/mohammed-shakir/favplaces/internal/auth"
	"github.com/mohammed-shakir/favplaces/internal/core/middleware"
	"github.com/mohammed-shakir/favplaces/internal/core/respond"
)

const maxBodyBytes = 1 << 16

type tokenResponse struct {
	JWT string `json:"jwt"`
}

func decodeBody(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return badRequest("unable to read request body")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return badRequest("request body must be a JSON object")
	}
	return nil
}

func Register(logger *slog.Logger, a Auth) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var in auth.RegisterInput
		if err := decodeBody(r, &in); err != nil {
			writeError(ctx, w, logger, err)
			return
		}
		tok, err := a.Register(ctx, in)
		if err != nil {
			writeError(ctx, w, logger, err)
			return
		}
		respond.JSON(w, http.StatusCreated, tokenResponse{JWT: tok})
	}
}

func Login(logger *slog.Logger, a Auth) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var in auth.LoginInput
		if err := decodeBody(r, &in); err != nil {
			writeError(ctx, w, logger, err)
			return
		}
		tok, err := a.Login(ctx, in)
		if err != nil {
			writeError(ctx, w, logger, err)
			return
		}
		respond.JSON(w, http.StatusOK, tokenResponse{JWT: tok})
	}
}

func Logout(logger *slog.Logger, a Auth) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sess, ok := middleware.SessionFrom(ctx)
		if !ok {
			writeError(ctx, w, logger, auth.ErrUnauthorized)
			return
		}
		if err := a.Logout(ctx, sess); err != nil {
			writeError(ctx, w, logger, err)
			return
		}
		respond.JSON(w, http.StatusOK, struct{}{})
	}
}
