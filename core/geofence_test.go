package core

import (
	"errors"
	"math"
	"testing"

	"github.com/skyfieldworks/navscout/model"
)

var testHome = model.Home{Lat: 47.0, Lon: 8.0, AltM: 400}

// testGeofence builds a corridor running 1000m due north of home with a
// 30m width, and a 400m square operating zone centred on the corridor end.
func testGeofence(t *testing.T) *Geofence {
	t.Helper()
	origin := testHome.Point()
	corridor := model.Corridor{
		WidthM: 30,
		Waypoints: []model.Point{
			origin,
			offsetPoint(origin, 1000, 0),
		},
	}
	zone := model.Zone{Polygon: []model.Point{
		offsetPoint(origin, 800, -200),
		offsetPoint(origin, 800, 200),
		offsetPoint(origin, 1200, 200),
		offsetPoint(origin, 1200, -200),
	}}
	g, err := NewGeofence(testHome, corridor, zone, 2000)
	if err != nil {
		t.Fatalf("NewGeofence: %v", err)
	}
	return g
}

func testPosition(northM, eastM float64) model.Position {
	pt := offsetPoint(testHome.Point(), northM, eastM)
	return model.Position{
		Lat: pt.Lat, Lon: pt.Lon,
		Quality: model.FixQuality{HasFix: true, Sats: 10, HDOP: 1.0},
	}
}

func TestNewGeofenceValidation(t *testing.T) {
	origin := testHome.Point()
	okCorridor := model.Corridor{WidthM: 30, Waypoints: []model.Point{origin, offsetPoint(origin, 100, 0)}}
	okZone := model.Zone{Polygon: []model.Point{origin, offsetPoint(origin, 100, 0), offsetPoint(origin, 100, 100)}}

	cases := []struct {
		name     string
		home     model.Home
		corridor model.Corridor
		zone     model.Zone
		radius   float64
		wantErr  error
	}{
		{"bad home", model.Home{Lat: 99}, okCorridor, okZone, 500, ErrHomeInvalid},
		{"short corridor", testHome, model.Corridor{WidthM: 30, Waypoints: []model.Point{origin}}, okZone, 500, ErrCorridorTooShort},
		{"small polygon", testHome, okCorridor, model.Zone{Polygon: okZone.Polygon[:2]}, 500, ErrPolygonTooSmall},
		{"tiny radius", testHome, okCorridor, okZone, 20, ErrRadiusInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewGeofence(tc.home, tc.corridor, tc.zone, tc.radius)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}

	if _, err := NewGeofence(testHome, okCorridor, okZone, 500); err != nil {
		t.Errorf("valid geofence rejected: %v", err)
	}
}

func TestGeofenceRadiusCheck(t *testing.T) {
	g := testGeofence(t)

	if !g.RadiusCheck(testPosition(1500, 0)) {
		t.Errorf("1500m north should be within the 2000m cap")
	}
	if g.RadiusCheck(testPosition(1500, 1500)) {
		t.Errorf("~2121m out should breach the cap")
	}
	if d := g.DistanceHome(testPosition(300, 400)); math.Abs(d-500) > 1 {
		t.Errorf("DistanceHome = %v, want ~500", d)
	}
}

func TestGeofenceCorridorCheck(t *testing.T) {
	g := testGeofence(t)

	cases := []struct {
		name   string
		pos    model.Position
		inside bool
	}{
		{"on axis", testPosition(500, 0), true},
		{"10m off axis", testPosition(500, 10), true},
		{"at half width", testPosition(500, 15), true},
		{"40m off axis", testPosition(500, 40), false},
		{"past corridor end", testPosition(1100, 0), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := g.CorridorCheck(tc.pos); got != tc.inside {
				t.Errorf("CorridorCheck = %v, want %v", got, tc.inside)
			}
		})
	}
}

func TestGeofenceZoneCheck(t *testing.T) {
	g := testGeofence(t)

	if !g.ZoneCheck(testPosition(1000, 0)) {
		t.Errorf("zone centre should be inside")
	}
	if g.ZoneCheck(testPosition(500, 0)) {
		t.Errorf("corridor midpoint is outside the zone")
	}
	if !g.ZoneCheckPoint(offsetPoint(testHome.Point(), 900, 150)) {
		t.Errorf("point near the zone edge should be inside")
	}
}

func TestGeofenceEvaluate(t *testing.T) {
	g := testGeofence(t)

	res := g.Evaluate(testPosition(1000, 0))
	if !res.RadiusOK || !res.CorridorOK || !res.ZoneOK {
		t.Errorf("zone centre should pass every check: %+v", res)
	}

	res = g.Evaluate(testPosition(500, 40))
	if !res.RadiusOK {
		t.Errorf("40m drift should not breach the radius cap")
	}
	if res.CorridorOK {
		t.Errorf("40m drift should fail the corridor check")
	}
	if res.ZoneOK {
		t.Errorf("corridor midpoint is not in the zone")
	}
}
