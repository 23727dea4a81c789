package core

import (
	"math"

	"github.com/skyfieldworks/navscout/model"
)

// EarthRadiusM is the mean Earth radius used for all short-range planar
// geometry in the geofence layer (metres).
const EarthRadiusM = 6371000.0

// Vec2 is a position in the local planar frame, metres east/north of the
// projection origin.
type Vec2 struct {
	East, North float64
}

// Sub returns v - other.
func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{East: v.East - other.East, North: v.North - other.North}
}

// Dot returns the dot product of two vectors.
func (v Vec2) Dot(other Vec2) float64 {
	return v.East*other.East + v.North*other.North
}

// Norm returns the Euclidean norm of the vector.
func (v Vec2) Norm() float64 {
	return math.Sqrt(v.East*v.East + v.North*v.North)
}

// DistanceTo returns the straight-line distance between two points.
func (v Vec2) DistanceTo(other Vec2) float64 {
	return v.Sub(other).Norm()
}

// Project converts a geodetic point into the local planar frame anchored at
// origin, using an equirectangular approximation valid for short ranges:
// north = Δlat·R, east = Δlon·R·cos(lat₀). Deterministic and pure; all
// corridor, polygon, and radius math runs in this frame.
func Project(origin, point model.Point) Vec2 {
	latRad := (point.Lat - origin.Lat) * math.Pi / 180.0
	lonRad := (point.Lon - origin.Lon) * math.Pi / 180.0
	return Vec2{
		East:  lonRad * EarthRadiusM * math.Cos(origin.Lat*math.Pi/180.0),
		North: latRad * EarthRadiusM,
	}
}

// distanceToSegment returns the distance from p to the segment ab, clamping
// the projection onto the segment rather than the infinite line.
func distanceToSegment(p, a, b Vec2) float64 {
	v := b.Sub(a)
	w := p.Sub(a)

	c1 := w.Dot(v)
	if c1 <= 0 {
		return w.Norm()
	}
	c2 := v.Dot(v)
	if c2 <= c1 {
		return p.DistanceTo(b)
	}
	t := c1 / c2
	closest := Vec2{East: a.East + t*v.East, North: a.North + t*v.North}
	return p.DistanceTo(closest)
}

// pointInPolygon runs a ray-casting crossing test in the planar frame.
// Boundary points count as inside: a point exactly on an edge is accepted
// before the crossing walk.
func pointInPolygon(p Vec2, poly []Vec2) bool {
	n := len(poly)
	if n < 3 {
		return false
	}

	const boundaryEps = 1e-9
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		if distanceToSegment(p, poly[i], poly[j]) <= boundaryEps {
			return true
		}
	}

	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		xi, yi := poly[i].East, poly[i].North
		xj, yj := poly[j].East, poly[j].North
		if (yi > p.North) != (yj > p.North) &&
			p.East < (xj-xi)*(p.North-yi)/(yj-yi+1e-12)+xi {
			inside = !inside
		}
		j = i
	}
	return inside
}
