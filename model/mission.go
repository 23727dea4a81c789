package model

import "time"

// Point is a geodetic coordinate in degrees.
type Point struct {
	Lat float64 `yaml:"lat" json:"lat"`
	Lon float64 `yaml:"lon" json:"lon"`
}

// Home is the configured launch/recovery location. It is set once at
// startup and never mutated for the lifetime of the process.
type Home struct {
	Lat  float64 `yaml:"lat" json:"lat"`
	Lon  float64 `yaml:"lon" json:"lon"`
	AltM float64 `yaml:"alt_m" json:"alt_m"`
}

// Point returns the home location as a plain coordinate.
func (h Home) Point() Point { return Point{Lat: h.Lat, Lon: h.Lon} }

// Corridor is an ordered polyline of waypoints plus a width, defining the
// tube the vehicle must stay inside during transit. Immutable once loaded.
type Corridor struct {
	WidthM    float64 `yaml:"corridor_width_m" json:"corridor_width_m"`
	Waypoints []Point `yaml:"waypoints" json:"waypoints"`
}

// Zone is the permitted operating polygon (implicitly closed).
// Immutable once loaded.
type Zone struct {
	Polygon []Point `yaml:"zone_polygon" json:"zone_polygon"`
}

// FixQuality carries the attributes used to judge a GNSS fix.
type FixQuality struct {
	Sats   int
	HDOP   float64
	FixAge time.Duration
	HasFix bool
}

// Position is a single GNSS sample. Immutable once created; the engine
// holds only the most recent sample plus the last one that met quality
// thresholds.
type Position struct {
	Lat     float64
	Lon     float64
	AltM    float64
	Time    time.Time
	Quality FixQuality
}

// Point returns the position as a plain coordinate.
func (p Position) Point() Point { return Point{Lat: p.Lat, Lon: p.Lon} }
