package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/mohammed-shakir/favplaces/internal/core/model"
)

// Place is the stored copy of a provider place. Cell is its H3 index at CellRes.
type Place struct {
	PlaceID    string       `json:"placeId"`
	Name       string       `json:"name"`
	Rating     float64      `json:"rating"`
	Categories []string     `json:"categories"`
	Location   model.LatLng `json:"location"`
	Cell       string       `json:"cell,omitempty"`
	CellRes    int          `json:"cellRes,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
}

// FavoritePlace is a place as it appears in one user's favorites.
type FavoritePlace struct {
	Place
	AddedAt time.Time
}

type favorite struct {
	PlaceID string    `json:"placeId"`
	AddedAt time.Time `json:"addedAt"`
}

func (d *DB) PlaceByID(_ context.Context, placeID string) (Place, error) {
	var p Place
	err := d.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, placeKeyPrefix+placeID, &p)
	})
	return p, err
}

// EnsurePlace stores p unless a place with the same id exists, and returns
// the stored document either way.
func (d *DB) EnsurePlace(_ context.Context, p Place) (Place, error) {
	if p.PlaceID == "" {
		return Place{}, errors.New("place id is required")
	}
	var out Place
	err := d.db.Update(func(txn *badger.Txn) error {
		err := getJSON(txn, placeKeyPrefix+p.PlaceID, &out)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = time.Now().UTC()
		}
		if p.Categories == nil {
			p.Categories = []string{}
		}
		out = p
		return setJSON(txn, placeKeyPrefix+p.PlaceID, p)
	})
	return out, err
}

func favoriteKey(userID, placeID string) string {
	return favoriteKeyPrefix + userID + ":" + placeID
}

// AddFavorite links placeID to userID; ErrConflict if already linked.
func (d *DB) AddFavorite(_ context.Context, userID, placeID string, at time.Time) error {
	err := d.db.Update(func(txn *badger.Txn) error {
		k := favoriteKey(userID, placeID)
		ok, err := exists(txn, k)
		if err != nil {
			return err
		}
		if ok {
			return ErrConflict
		}
		return setJSON(txn, k, favorite{PlaceID: placeID, AddedAt: at.UTC()})
	})
	if errors.Is(err, badger.ErrConflict) {
		return ErrConflict
	}
	return err
}

// RemoveFavorite unlinks placeID from userID; ErrNotFound if not linked.
func (d *DB) RemoveFavorite(_ context.Context, userID, placeID string) error {
	return d.db.Update(func(txn *badger.Txn) error {
		k := favoriteKey(userID, placeID)
		ok, err := exists(txn, k)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		if err := txn.Delete([]byte(k)); err != nil {
			return fmt.Errorf("delete %s: %w", k, err)
		}
		return nil
	})
}

// Favorites returns every favorite of userID joined with its place document,
// in key order.
func (d *DB) Favorites(_ context.Context, userID string) ([]FavoritePlace, error) {
	var out []FavoritePlace
	err := d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(favoriteKeyPrefix + userID + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var f favorite
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &f)
			}); err != nil {
				return fmt.Errorf("decode favorite: %w", err)
			}
			var p Place
			if err := getJSON(txn, placeKeyPrefix+f.PlaceID, &p); err != nil {
				if errors.Is(err, ErrNotFound) {
					continue
				}
				return err
			}
			out = append(out, FavoritePlace{Place: p, AddedAt: f.AddedAt})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	return out, nil
}
