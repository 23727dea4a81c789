package core

import (
	"math"
	"testing"

	"github.com/skyfieldworks/navscout/model"
)

// offsetPoint shifts a geodetic point by metres north/east so projected
// coordinates in tests come out in round numbers.
func offsetPoint(origin model.Point, northM, eastM float64) model.Point {
	latPerM := 180.0 / (math.Pi * EarthRadiusM)
	lonPerM := latPerM / math.Cos(origin.Lat*math.Pi/180.0)
	return model.Point{
		Lat: origin.Lat + northM*latPerM,
		Lon: origin.Lon + eastM*lonPerM,
	}
}

func TestProjectRoundTripsMetreOffsets(t *testing.T) {
	origin := model.Point{Lat: 47.0, Lon: 8.0}

	cases := []struct {
		name          string
		northM, eastM float64
	}{
		{"north", 100, 0},
		{"east", 0, 100},
		{"southwest", -250, -75},
		{"origin", 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Project(origin, offsetPoint(origin, tc.northM, tc.eastM))
			if math.Abs(got.North-tc.northM) > 0.01 {
				t.Errorf("north = %.4f, want %.4f", got.North, tc.northM)
			}
			if math.Abs(got.East-tc.eastM) > 0.01 {
				t.Errorf("east = %.4f, want %.4f", got.East, tc.eastM)
			}
		})
	}
}

func TestDistanceToSegmentClampsToEndpoints(t *testing.T) {
	a := Vec2{East: 0, North: 0}
	b := Vec2{East: 100, North: 0}

	// Perpendicular from the middle of the segment.
	if d := distanceToSegment(Vec2{East: 50, North: 30}, a, b); math.Abs(d-30) > 1e-9 {
		t.Errorf("mid-segment distance = %v, want 30", d)
	}
	// Beyond the start: distance to a, not to the infinite line.
	if d := distanceToSegment(Vec2{East: -40, North: 30}, a, b); math.Abs(d-50) > 1e-9 {
		t.Errorf("before-start distance = %v, want 50", d)
	}
	// Beyond the end: distance to b.
	if d := distanceToSegment(Vec2{East: 140, North: 30}, a, b); math.Abs(d-50) > 1e-9 {
		t.Errorf("past-end distance = %v, want 50", d)
	}
}

func TestPointInPolygon(t *testing.T) {
	square := []Vec2{
		{East: 0, North: 0},
		{East: 100, North: 0},
		{East: 100, North: 100},
		{East: 0, North: 100},
	}

	if !pointInPolygon(Vec2{East: 50, North: 50}, square) {
		t.Errorf("centre should be inside")
	}
	if pointInPolygon(Vec2{East: 150, North: 50}, square) {
		t.Errorf("point east of square should be outside")
	}
	// Exactly on an edge counts as inside.
	if !pointInPolygon(Vec2{East: 100, North: 50}, square) {
		t.Errorf("boundary point should count as inside")
	}
	// A vertex counts as inside too.
	if !pointInPolygon(Vec2{East: 0, North: 0}, square) {
		t.Errorf("vertex should count as inside")
	}
	if pointInPolygon(Vec2{East: 1, North: 1}, square[:2]) {
		t.Errorf("degenerate polygon should contain nothing")
	}
}
