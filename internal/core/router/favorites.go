package router

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/favplaces/internal/core/middleware"
	"github.com/mohammed-shakir/favplaces/internal/core/model"
	"github.com/mohammed-shakir/favplaces/internal/core/respond"
	"github.com/mohammed-shakir/favplaces/internal/core/validation"
	"github.com/mohammed-shakir/favplaces/internal/favorites"
)

type listParams struct {
	SortBy string   `query:"sortby" validate:"oneof=distance rating added"`
	Lat    *float64 `query:"lat" validate:"required_if=SortBy distance,omitempty,latitude"`
	Lon    *float64 `query:"lon" validate:"required_if=SortBy distance,omitempty,longitude"`
	Page   int      `query:"page" validate:"min=1"`
	Limit  int      `query:"limit" validate:"min=1,max=100"`
}

type listResponse struct {
	Results    []model.Place `json:"results"`
	TotalCount int           `json:"totalCount"`
	Meta       Meta          `json:"meta"`
}

func AddFavorite(logger *slog.Logger, f Favorites) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sess, _ := middleware.SessionFrom(ctx)
		placeID := strings.TrimSpace(chi.URLParam(r, "placeId"))
		if placeID == "" {
			writeError(ctx, w, logger, badRequest(`"placeId" is required`))
			return
		}
		p, err := f.Add(ctx, sess.UserID, placeID)
		if err != nil {
			writeError(ctx, w, logger, err)
			return
		}
		respond.JSON(w, http.StatusCreated, p)
	}
}

func RemoveFavorite(logger *slog.Logger, f Favorites) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sess, _ := middleware.SessionFrom(ctx)
		placeID := strings.TrimSpace(chi.URLParam(r, "placeId"))
		if placeID == "" {
			writeError(ctx, w, logger, badRequest(`"placeId" is required`))
			return
		}
		if err := f.Remove(ctx, sess.UserID, placeID); err != nil {
			writeError(ctx, w, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func parseList(r *http.Request) (listParams, error) {
	v := r.URL.Query()
	p := listParams{SortBy: strings.TrimSpace(v.Get("sortby"))}
	if p.SortBy == "" {
		p.SortBy = "added"
	}
	var err error
	if p.Lat, err = parseFloatParam(v, "lat"); err != nil {
		return p, err
	}
	if p.Lon, err = parseFloatParam(v, "lon"); err != nil {
		return p, err
	}
	if p.Page, err = parseIntParam(v, "page", 1); err != nil {
		return p, err
	}
	if p.Limit, err = parseIntParam(v, "limit", favorites.DefaultLimit); err != nil {
		return p, err
	}
	if err := validation.Struct(&p); err != nil {
		return p, err
	}
	return p, nil
}

func ListFavorites(logger *slog.Logger, f Favorites) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sess, _ := middleware.SessionFrom(ctx)
		p, err := parseList(r)
		if err != nil {
			writeError(ctx, w, logger, err)
			return
		}
		q := favorites.ListQuery{
			Sort:  model.ParseSortMode(p.SortBy),
			Page:  p.Page,
			Limit: p.Limit,
		}
		if p.Lat != nil && p.Lon != nil {
			q.Origin = &model.LatLng{Latitude: *p.Lat, Longitude: *p.Lon}
		}
		res, err := f.List(ctx, sess.UserID, q)
		if err != nil {
			writeError(ctx, w, logger, err)
			return
		}
		hasNext := p.Page*p.Limit < res.TotalCount
		respond.JSON(w, http.StatusOK, listResponse{
			Results:    res.Results,
			TotalCount: res.TotalCount,
			Meta:       meta(r, p.Page, p.Limit, hasNext, p.Page > 1),
		})
	}
}
