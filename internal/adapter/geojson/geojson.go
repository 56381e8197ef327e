// Package geojson encodes lanes and ZIP points as GeoJSON feature collections
// for map layers.
package geojson

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/lane-heatmap-service/internal/domain"
)

// LanesFeatureCollection renders each lane as a two-point LineString from
// origin to destination.
func LanesFeatureCollection(lanes []domain.Lane) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, l := range lanes {
		f := geojson.NewFeature(orb.LineString{l.Origin, l.Destination})
		f.ID = l.ID
		f.Properties = geojson.Properties{
			"origin_zip":      l.OriginZip,
			"destination_zip": l.DestinationZip,
			"customer_name":   l.CustomerName,
			"bearing":         l.Bearing,
			"distance_miles":  l.DistanceMiles,
			"midpoint":        []float64{l.Midpoint.Lon(), l.Midpoint.Lat()},
			"visible":         l.Visible,
		}
		fc.Append(f)
	}
	return fc
}

// PointsFeatureCollection renders ZIP points. customers, when non-nil, adds
// the customer names shipping from each ZIP.
func PointsFeatureCollection(points []domain.ZipPoint, customers map[string][]string) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, p := range points {
		f := geojson.NewFeature(orb.Point{p.Lon, p.Lat})
		f.ID = p.Zip
		f.Properties = geojson.Properties{
			"zip":   p.Zip,
			"city":  p.City,
			"state": p.State,
		}
		if customers != nil {
			names := customers[p.Zip]
			if names == nil {
				names = []string{}
			}
			f.Properties["customers"] = names
		}
		fc.Append(f)
	}
	return fc
}
