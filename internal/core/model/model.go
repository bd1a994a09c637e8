// Package model defines core domain types shared across the service.
package model

import "strings"

type SortMode int

const (
	SortDefault SortMode = iota
	SortDistance
	SortRating
	SortAdded
)

// ParseSortMode maps a sortby value to a mode; unknown values fall back to SortDefault.
func ParseSortMode(s string) SortMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "distance":
		return SortDistance
	case "rating":
		return SortRating
	case "added":
		return SortAdded
	default:
		return SortDefault
	}
}

func (m SortMode) String() string {
	switch m {
	case SortDistance:
		return "distance"
	case SortRating:
		return "rating"
	case SortAdded:
		return "added"
	default:
		return ""
	}
}

type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Query is one validated search request. Page is 1-based.
type Query struct {
	Origin *LatLng
	Text   string
	Sort   SortMode
	Page   int
}

func (q Query) PageNumber() int {
	if q.Page < 1 {
		return 1
	}
	return q.Page
}

type Place struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Rating     float64  `json:"rating"`
	Categories []string `json:"categories"`
	Location   LatLng   `json:"location"`
	// meters from the query origin, only set when an origin was supplied
	Distance *int `json:"distance,omitempty"`
}

// CachedPage is a normalized result page as stored in the page cache.
type CachedPage struct {
	Places        []Place `json:"places"`
	NextPageToken string  `json:"nextPageToken,omitempty"`
}

type SearchState string

const (
	StateCacheHit   SearchState = "cache_hit"
	StateTokenRelay SearchState = "token_relay"
	StateFreshFetch SearchState = "fresh_fetch"
)

type SearchResult struct {
	Results     []Place     `json:"results"`
	HasNext     bool        `json:"hasNext"`
	HasPrevious bool        `json:"hasPrevious"`
	State       SearchState `json:"-"`
}
