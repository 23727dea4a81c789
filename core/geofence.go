package core

import (
	"errors"
	"fmt"

	"github.com/skyfieldworks/navscout/model"
)

var (
	// ErrCorridorTooShort indicates a corridor with fewer than two waypoints.
	ErrCorridorTooShort = errors.New("corridor needs at least 2 waypoints")
	// ErrPolygonTooSmall indicates a zone polygon with fewer than three vertices.
	ErrPolygonTooSmall = errors.New("zone polygon needs at least 3 vertices")
	// ErrRadiusInvalid indicates a non-positive or implausibly small radius cap.
	ErrRadiusInvalid = errors.New("max radius must be at least 50m")
	// ErrHomeInvalid indicates home coordinates outside valid geodetic range.
	ErrHomeInvalid = errors.New("home coordinates out of range")
)

// GeofenceResult is the per-tick outcome of all containment checks for one
// position sample.
type GeofenceResult struct {
	DistanceHomeM float64
	RadiusOK      bool
	CorridorOK    bool
	ZoneOK        bool
}

// Geofence evaluates the absolute radius cap, the corridor tube, and the
// operating-zone polygon. Home, corridor, and zone are projected once at
// construction; every check afterwards is pure planar math.
type Geofence struct {
	home       model.Home
	maxRadiusM float64
	halfWidthM float64

	corridor []Vec2 // projected corridor waypoints, origin = home
	polygon  []Vec2 // projected zone vertices, origin = home
}

// NewGeofence validates the configured envelope and precomputes projected
// geometry. Validation failures are fatal at startup, never per tick.
func NewGeofence(home model.Home, corridor model.Corridor, zone model.Zone, maxRadiusM float64) (*Geofence, error) {
	if home.Lat < -90 || home.Lat > 90 || home.Lon < -180 || home.Lon > 180 {
		return nil, fmt.Errorf("%w: lat=%v lon=%v", ErrHomeInvalid, home.Lat, home.Lon)
	}
	if len(corridor.Waypoints) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrCorridorTooShort, len(corridor.Waypoints))
	}
	if corridor.WidthM <= 0 {
		return nil, fmt.Errorf("corridor width must be positive, got %v", corridor.WidthM)
	}
	if len(zone.Polygon) < 3 {
		return nil, fmt.Errorf("%w: got %d", ErrPolygonTooSmall, len(zone.Polygon))
	}
	if maxRadiusM < 50 {
		return nil, fmt.Errorf("%w: got %v", ErrRadiusInvalid, maxRadiusM)
	}

	origin := home.Point()
	g := &Geofence{
		home:       home,
		maxRadiusM: maxRadiusM,
		halfWidthM: corridor.WidthM / 2,
		corridor:   make([]Vec2, 0, len(corridor.Waypoints)),
		polygon:    make([]Vec2, 0, len(zone.Polygon)),
	}
	for _, wp := range corridor.Waypoints {
		g.corridor = append(g.corridor, Project(origin, wp))
	}
	for _, v := range zone.Polygon {
		g.polygon = append(g.polygon, Project(origin, v))
	}
	return g, nil
}

// Home returns the configured home location.
func (g *Geofence) Home() model.Home { return g.home }

// CorridorWaypoints returns the projected corridor polyline (origin = home).
// Callers must treat the slice as read-only.
func (g *Geofence) CorridorWaypoints() []Vec2 { return g.corridor }

// DistanceHome returns the planar distance from home to the given position.
func (g *Geofence) DistanceHome(pos model.Position) float64 {
	return Project(g.home.Point(), pos.Point()).Norm()
}

// RadiusCheck reports whether pos is within the absolute distance cap from
// home. The cap applies in every mission state.
func (g *Geofence) RadiusCheck(pos model.Position) bool {
	return g.DistanceHome(pos) <= g.maxRadiusM
}

// RadiusCheckPlanar is RadiusCheck for an already-projected point. Used by
// the RTH ladder to vet a straight-line return path.
func (g *Geofence) RadiusCheckPlanar(p Vec2) bool {
	return p.Norm() <= g.maxRadiusM
}

// CorridorCheck reports whether pos lies inside the corridor tube: within
// half the corridor width of at least one polyline segment.
func (g *Geofence) CorridorCheck(pos model.Position) bool {
	p := Project(g.home.Point(), pos.Point())
	for i := 0; i+1 < len(g.corridor); i++ {
		if distanceToSegment(p, g.corridor[i], g.corridor[i+1]) <= g.halfWidthM {
			return true
		}
	}
	return false
}

// ZoneCheck reports whether pos lies inside the operating polygon. Boundary
// points count as inside.
func (g *Geofence) ZoneCheck(pos model.Position) bool {
	return pointInPolygon(Project(g.home.Point(), pos.Point()), g.polygon)
}

// ZoneCheckPoint is ZoneCheck for a bare coordinate, used for the tracked
// target in the follow policy.
func (g *Geofence) ZoneCheckPoint(pt model.Point) bool {
	return pointInPolygon(Project(g.home.Point(), pt), g.polygon)
}

// Evaluate runs every containment check for the tick. The caller decides
// which failures matter for the current mission state; the radius cap
// always matters.
func (g *Geofence) Evaluate(pos model.Position) GeofenceResult {
	return GeofenceResult{
		DistanceHomeM: g.DistanceHome(pos),
		RadiusOK:      g.RadiusCheck(pos),
		CorridorOK:    g.CorridorCheck(pos),
		ZoneOK:        g.ZoneCheck(pos),
	}
}
