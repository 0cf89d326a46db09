// Package spatial validates coordinates against a bounding box and encodes
// point geometries for datastores with spatial columns.
package spatial

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

// WGS84 is the SRID used for all encoded geometries.
const WGS84 = 4326

// BoundingBox is a lat/lng rectangle with inclusive bounds.
type BoundingBox struct {
	MinLat float64
	MinLng float64
	MaxLat float64
	MaxLng float64
}

// ParseBBox builds a BoundingBox from four values in min_lat, min_lng,
// max_lat, max_lng order.
func ParseBBox(vals []float64) (*BoundingBox, error) {
	if len(vals) != 4 {
		return nil, eris.Errorf("spatial: bbox needs 4 values (min_lat,min_lng,max_lat,max_lng), got %d", len(vals))
	}
	b := &BoundingBox{MinLat: vals[0], MinLng: vals[1], MaxLat: vals[2], MaxLng: vals[3]}

	if b.MinLat < -90 || b.MaxLat > 90 {
		return nil, eris.Errorf("spatial: bbox latitude out of range [%f, %f]", b.MinLat, b.MaxLat)
	}
	if b.MinLng < -180 || b.MaxLng > 180 {
		return nil, eris.Errorf("spatial: bbox longitude out of range [%f, %f]", b.MinLng, b.MaxLng)
	}
	if b.MinLat >= b.MaxLat {
		return nil, eris.Errorf("spatial: bbox min_lat %f must be below max_lat %f", b.MinLat, b.MaxLat)
	}
	if b.MinLng >= b.MaxLng {
		return nil, eris.Errorf("spatial: bbox min_lng %f must be below max_lng %f", b.MinLng, b.MaxLng)
	}
	return b, nil
}

// Contains reports whether the point lies within the box, bounds inclusive.
// A nil box contains everything.
func (b *BoundingBox) Contains(lat, lng float64) bool {
	if b == nil {
		return true
	}
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// PointEWKB encodes a lat/lng pair as an EWKB point with SRID 4326 for
// storage in a geometry column.
func PointEWKB(lat, lng float64) ([]byte, error) {
	p := geom.NewPointFlat(geom.XY, []float64{lng, lat}).SetSRID(WGS84)
	data, err := ewkb.Marshal(p, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "spatial: encode point")
	}
	return data, nil
}
