// Package favorites manages each user's list of favorite places.
package favorites

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/mohammed-shakir/favplaces/internal/core/model"
	"github.com/mohammed-shakir/favplaces/internal/events"
	"github.com/mohammed-shakir/favplaces/internal/mapper"
	"github.com/mohammed-shakir/favplaces/internal/places"
	"github.com/mohammed-shakir/favplaces/internal/store"
)

var (
	ErrNotFound        = errors.New("place not found")
	ErrAlreadyFavorite = errors.New("place already in favorites")
	ErrOriginRequired  = errors.New("lat and lon are required to sort by distance")
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

type Details interface {
	Details(ctx context.Context, placeID string) (model.Place, error)
}

type Store interface {
	PlaceByID(ctx context.Context, placeID string) (store.Place, error)
	EnsurePlace(ctx context.Context, p store.Place) (store.Place, error)
	AddFavorite(ctx context.Context, userID, placeID string, at time.Time) error
	RemoveFavorite(ctx context.Context, userID, placeID string) error
	Favorites(ctx context.Context, userID string) ([]store.FavoritePlace, error)
}

type ListQuery struct {
	Sort   model.SortMode
	Origin *model.LatLng
	Page   int
	Limit  int
}

type ListResult struct {
	Results    []model.Place `json:"results"`
	TotalCount int           `json:"totalCount"`
}

type Service struct {
	store      Store
	details    Details
	cells      mapper.Interface
	nearRadius float64
	events     events.Sink
	logger     *slog.Logger
	now        func() time.Time
}

func New(st Store, details Details, cells mapper.Interface, nearRadius float64, sink events.Sink, logger *slog.Logger) *Service {
	if sink == nil {
		sink = events.Nop{}
	}
	return &Service{
		store:      st,
		details:    details,
		cells:      cells,
		nearRadius: nearRadius,
		events:     sink,
		logger:     logger,
		now:        time.Now,
	}
}

// Add resolves placeID from the store or the provider and links it to userID.
func (s *Service) Add(ctx context.Context, userID, placeID string) (model.Place, error) {
	p, err := s.store.PlaceByID(ctx, placeID)
	switch {
	case err == nil:
		s.logger.DebugContext(ctx, "place already stored", "place_id", placeID)
	case errors.Is(err, store.ErrNotFound):
		p, err = s.fetchAndStore(ctx, placeID)
		if err != nil {
			return model.Place{}, err
		}
	default:
		return model.Place{}, fmt.Errorf("find place: %w", err)
	}

	if err := s.store.AddFavorite(ctx, userID, placeID, s.now()); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return model.Place{}, ErrAlreadyFavorite
		}
		return model.Place{}, fmt.Errorf("add favorite: %w", err)
	}
	s.logger.InfoContext(ctx, "favorite added", "place_id", placeID)
	s.events.Publish(ctx, events.Event{Type: events.TypeFavoriteAdded, PlaceID: placeID})
	return toModel(p, nil), nil
}

func (s *Service) fetchAndStore(ctx context.Context, placeID string) (store.Place, error) {
	d, err := s.details.Details(ctx, placeID)
	if errors.Is(err, places.ErrNotFound) {
		return store.Place{}, ErrNotFound
	}
	if err != nil {
		return store.Place{}, fmt.Errorf("place details: %w", err)
	}
	doc := store.Place{
		PlaceID:    placeID,
		Name:       d.Name,
		Rating:     d.Rating,
		Categories: d.Categories,
		Location:   d.Location,
	}
	if s.cells != nil {
		if cell, err := s.cells.Cell(d.Location); err == nil {
			doc.Cell, doc.CellRes = cell, s.cells.Resolution()
		} else {
			s.logger.WarnContext(ctx, "h3 cell for place", "place_id", placeID, "err", err)
		}
	}
	p, err := s.store.EnsurePlace(ctx, doc)
	if err != nil {
		return store.Place{}, fmt.Errorf("store place: %w", err)
	}
	return p, nil
}

func (s *Service) Remove(ctx context.Context, userID, placeID string) error {
	if _, err := s.store.PlaceByID(ctx, placeID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("find place: %w", err)
	}
	if err := s.store.RemoveFavorite(ctx, userID, placeID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("remove favorite: %w", err)
	}
	s.events.Publish(ctx, events.Event{Type: events.TypeFavoriteRemoved, PlaceID: placeID})
	return nil
}

// List sorts a user's favorites and returns one page of them. Sorting by
// distance keeps only places within the near radius of the origin.
func (s *Service) List(ctx context.Context, userID string, q ListQuery) (ListResult, error) {
	if q.Sort == model.SortDistance && q.Origin == nil {
		return ListResult{}, ErrOriginRequired
	}
	favs, err := s.store.Favorites(ctx, userID)
	if err != nil {
		return ListResult{}, fmt.Errorf("load favorites: %w", err)
	}

	type row struct {
		fav  store.FavoritePlace
		dist *int
	}
	rows := make([]row, 0, len(favs))
	for _, f := range favs {
		r := row{fav: f}
		if q.Origin != nil {
			d := places.Distance(*q.Origin, f.Location)
			r.dist = &d
		}
		rows = append(rows, r)
	}

	switch q.Sort {
	case model.SortDistance:
		near := s.nearFilter(ctx, *q.Origin)
		kept := rows[:0]
		for _, r := range rows {
			if near(r.fav.Place) && float64(*r.dist) <= s.nearRadius {
				kept = append(kept, r)
			}
		}
		rows = kept
		sort.SliceStable(rows, func(i, j int) bool {
			if *rows[i].dist != *rows[j].dist {
				return *rows[i].dist < *rows[j].dist
			}
			return rows[i].fav.AddedAt.After(rows[j].fav.AddedAt)
		})
	case model.SortRating:
		sort.SliceStable(rows, func(i, j int) bool {
			if rows[i].fav.Rating != rows[j].fav.Rating {
				return rows[i].fav.Rating > rows[j].fav.Rating
			}
			return rows[i].fav.AddedAt.After(rows[j].fav.AddedAt)
		})
	default:
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].fav.AddedAt.After(rows[j].fav.AddedAt)
		})
	}

	page, limit := q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	limit = min(limit, MaxLimit)
	start := min((page-1)*limit, len(rows))
	end := min(start+limit, len(rows))

	out := make([]model.Place, 0, end-start)
	for _, r := range rows[start:end] {
		out = append(out, toModel(r.fav.Place, r.dist))
	}
	return ListResult{Results: out, TotalCount: len(rows)}, nil
}

// nearFilter returns a cheap H3 membership test around origin. It accepts
// everything when no disk can be built.
func (s *Service) nearFilter(ctx context.Context, origin model.LatLng) func(store.Place) bool {
	all := func(store.Place) bool { return true }
	if s.cells == nil {
		return all
	}
	disk, ok, err := s.cells.Disk(origin, s.nearRadius)
	if err != nil {
		s.logger.WarnContext(ctx, "h3 disk for origin", "err", err)
		return all
	}
	if !ok {
		return all
	}
	res := s.cells.Resolution()
	return func(p store.Place) bool {
		cell := p.Cell
		if cell == "" || p.CellRes != res {
			c, err := s.cells.Cell(p.Location)
			if err != nil {
				return true
			}
			cell = c
		}
		_, in := disk[cell]
		return in
	}
}

func toModel(p store.Place, dist *int) model.Place {
	cats := p.Categories
	if cats == nil {
		cats = []string{}
	}
	return model.Place{
		ID:         p.PlaceID,
		Name:       p.Name,
		Rating:     p.Rating,
		Categories: cats,
		Location:   p.Location,
		Distance:   dist,
	}
}
