package h3mapper

import (
	"fmt"
	"math"

	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/favplaces/internal/core/model"
	"github.com/mohammed-shakir/favplaces/internal/mapper"
)

// maxRings bounds the grid disk; larger radii skip the prefilter.
const maxRings = 50

// average hexagon edge length in meters per resolution
var edgeLengthM = [16]float64{
	1281256.011, 483056.8391, 182512.9565, 68979.22179,
	26071.75968, 9854.090990, 3724.532667, 1406.475763,
	531.414010, 200.786148, 75.863783, 28.663897,
	10.830188, 4.092010, 1.546100, 0.584169,
}

type Mapper struct {
	res int
}

var _ mapper.Interface = (*Mapper)(nil)

func New(res int) (*Mapper, error) {
	if err := validateRes(res); err != nil {
		return nil, err
	}
	return &Mapper{res: res}, nil
}

func (m *Mapper) Resolution() int { return m.res }

func (m *Mapper) Cell(ll model.LatLng) (string, error) {
	c, err := h3.LatLngToCell(h3.LatLng{Lat: ll.Latitude, Lng: ll.Longitude}, m.res)
	if err != nil {
		return "", fmt.Errorf("h3 cell: %w", err)
	}
	return c.String(), nil
}

func (m *Mapper) Disk(center model.LatLng, radiusM float64) (map[string]struct{}, bool, error) {
	k := ringsFor(radiusM, m.res)
	if k > maxRings {
		return nil, false, nil
	}
	c, err := h3.LatLngToCell(h3.LatLng{Lat: center.Latitude, Lng: center.Longitude}, m.res)
	if err != nil {
		return nil, false, fmt.Errorf("h3 cell: %w", err)
	}
	disk, err := h3.GridDisk(c, k)
	if err != nil {
		return nil, false, fmt.Errorf("h3 grid disk: %w", err)
	}
	out := make(map[string]struct{}, len(disk))
	for _, d := range disk {
		out[d.String()] = struct{}{}
	}
	return out, true, nil
}

// ringsFor steps one average edge per ring, which undershoots the true
// center spacing, plus one ring for the cell the point sits in.
func ringsFor(radiusM float64, res int) int {
	if radiusM <= 0 {
		return 1
	}
	return int(math.Ceil(radiusM/edgeLengthM[res])) + 1
}

func validateRes(res int) error {
	if res < 0 || res > 15 {
		return fmt.Errorf("invalid H3 resolution %d (must be 0..15)", res)
	}
	return nil
}
