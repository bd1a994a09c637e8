package places

import (
	"math"

	"github.com/mohammed-shakir/favplaces/internal/core/model"
)

// earthRadiusM matches the WGS-84 equatorial radius.
const earthRadiusM = 6378137.0

// Normalize maps raw provider results to places. Distance is set only when
// origin is non-nil.
func Normalize(origin *model.LatLng, raws []RawPlace) []model.Place {
	out := make([]model.Place, 0, len(raws))
	for _, r := range raws {
		p := model.Place{
			ID:         r.PlaceID,
			Name:       r.Name,
			Categories: r.Types,
			Location: model.LatLng{
				Latitude:  r.Geometry.Location.Lat,
				Longitude: r.Geometry.Location.Lng,
			},
		}
		if p.ID == "" {
			p.ID = r.ID
		}
		if r.Rating != nil {
			p.Rating = *r.Rating
		}
		if p.Categories == nil {
			p.Categories = []string{}
		}
		if origin != nil {
			d := Distance(*origin, p.Location)
			p.Distance = &d
		}
		out = append(out, p)
	}
	return out
}

// Distance is the great-circle distance in whole meters.
func Distance(a, b model.LatLng) int {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return int(math.Round(earthRadiusM * c))
}
