package analysis

import (
	"github.com/paulmach/orb"

	"mediaintel/internal/domain/dashboard"
	"mediaintel/internal/domain/mention"
)

// GeoPoints returns one scatter point per geotagged mention and the bounding
// extent of those points. The extent is nil when no mention has coordinates.
func GeoPoints(mentions []mention.Mention) ([]dashboard.Point, *dashboard.Extent) {
	var (
		points []dashboard.Point
		mp     orb.MultiPoint
	)

	for _, m := range mentions {
		if !m.HasCoordinates() {
			continue
		}
		p := orb.Point{*m.Longitude, *m.Latitude}
		mp = append(mp, p)
		points = append(points, dashboard.Point{
			Label: m.Location,
			Value: m.Engagements,
			X:     p.Lon(),
			Y:     p.Lat(),
		})
	}

	if len(mp) == 0 {
		return nil, nil
	}

	bound := mp.Bound()
	center := bound.Center()

	return points, &dashboard.Extent{
		MinLatitude:  bound.Min.Lat(),
		MinLongitude: bound.Min.Lon(),
		MaxLatitude:  bound.Max.Lat(),
		MaxLongitude: bound.Max.Lon(),
		CenterLat:    center.Lat(),
		CenterLng:    center.Lon(),
	}
}
