package router

import (
	"log/slog"
	"net/http"

	"github.com/mohammed-shakir/favplaces/internal/core/model"
	"github.com/mohammed-shakir/favplaces/internal/core/respond"
	"github.com/mohammed-shakir/favplaces/internal/core/validation"
)

const searchPageSize = 20

type searchParams struct {
	Lat    *float64 `query:"lat" validate:"required,latitude"`
	Lon    *float64 `query:"lon" validate:"required,longitude"`
	Text   string   `query:"text" validate:"max=256"`
	SortBy string   `query:"sortby" validate:"omitempty,oneof=rating distance"`
	Page   int      `query:"page" validate:"min=1"`
	Limit  int      `query:"limit" validate:"eq=20"`
}

type searchResponse struct {
	Results     []model.Place `json:"results"`
	HasNext     bool          `json:"hasNext"`
	HasPrevious bool          `json:"hasPrevious"`
	HasLimit    bool          `json:"hasLimit"`
	Meta        Meta          `json:"meta"`
}

func parseSearch(r *http.Request) (searchParams, error) {
	v := r.URL.Query()
	var (
		p   searchParams
		err error
	)
	if p.Lat, err = parseFloatParam(v, "lat"); err != nil {
		return p, err
	}
	if p.Lon, err = parseFloatParam(v, "lon"); err != nil {
		return p, err
	}
	if p.Page, err = parseIntParam(v, "page", 1); err != nil {
		return p, err
	}
	if p.Limit, err = parseIntParam(v, "limit", searchPageSize); err != nil {
		return p, err
	}
	p.Text = v.Get("text")
	p.SortBy = v.Get("sortby")
	if err := validation.Struct(&p); err != nil {
		return p, err
	}
	return p, nil
}

// Search serves GET /search.
func Search(logger *slog.Logger, s Searcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		p, err := parseSearch(r)
		if err != nil {
			writeError(ctx, w, logger, err)
			return
		}
		q := model.Query{
			Origin: &model.LatLng{Latitude: *p.Lat, Longitude: *p.Lon},
			Text:   p.Text,
			Sort:   model.ParseSortMode(p.SortBy),
			Page:   p.Page,
		}
		res, err := s.Search(ctx, q)
		if err != nil {
			writeError(ctx, w, logger, err)
			return
		}
		respond.JSON(w, http.StatusOK, searchResponse{
			Results:     res.Results,
			HasNext:     res.HasNext,
			HasPrevious: res.HasPrevious,
			HasLimit:    false,
			Meta:        meta(r, p.Page, p.Limit, res.HasNext, res.HasPrevious),
		})
	}
}
