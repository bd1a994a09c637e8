// Package mapper converts between coordinates and H3 cells.
package mapper

import (
	"github.com/mohammed-shakir/favplaces/internal/core/model"
)

type Interface interface {
	Resolution() int
	Cell(ll model.LatLng) (string, error)
	// Disk returns a cell set covering every point within radiusM of center.
	// ok is false when the radius is too large to cover cheaply.
	Disk(center model.LatLng, radiusM float64) (cells map[string]struct{}, ok bool, err error)
}
