package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/skyfieldworks/navscout/core"
	"github.com/skyfieldworks/navscout/model"
)

// ErrInvalid wraps all validation failures so callers can distinguish a bad
// file from an unreadable one.
var ErrInvalid = errors.New("invalid configuration")

// Config is the full supervisor configuration. Loaded once before the
// engine starts; treated as immutable afterwards.
type Config struct {
	Supervisor SupervisorConfig `yaml:"supervisor"`
	Gnss       GnssConfig       `yaml:"gnss"`
	Nav        NavConfig        `yaml:"nav"`
	Rth        RthConfig        `yaml:"rth"`
	Tracking   TrackingConfig   `yaml:"tracking"`
	Fc         FcConfig         `yaml:"fc"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// SupervisorConfig controls the evaluation loop.
type SupervisorConfig struct {
	TickMs         int `yaml:"tick_ms"`
	PositionStaleS int `yaml:"position_stale_s"`
}

// GnssConfig carries the fix-quality gates and the position source.
type GnssConfig struct {
	Source    string  `yaml:"source"` // nmea-file
	NmeaFile  string  `yaml:"nmea_file"`
	MinSats   int     `yaml:"min_sats"`
	MaxHDOP   float64 `yaml:"max_hdop"`
	MaxFixAge int     `yaml:"max_fix_age_s"`
}

// NavConfig is the geofenced envelope.
type NavConfig struct {
	Home       model.Home     `yaml:"home"`
	MaxRadiusM float64        `yaml:"max_radius_m"`
	Route      model.Corridor `yaml:"route"`
	Zone       model.Zone     `yaml:"zone"`
}

// RthConfig carries trigger thresholds, grace periods, and the return
// ladder settings.
type RthConfig struct {
	GraceLinkLossS  int     `yaml:"grace_link_loss_s"`
	GnssHoldS       int     `yaml:"gnss_hold_s"`
	GnssBadFixS     int     `yaml:"gnss_bad_fix_s"`
	BatteryLowPct   float64 `yaml:"battery_low_pct"`
	ThermalSoftC    float64 `yaml:"thermal_soft_c"`
	ThermalCritC    float64 `yaml:"thermal_crit_c"`
	ThermalGraceS   int     `yaml:"thermal_grace_s"`
	WeatherGraceS   int     `yaml:"weather_grace_s"`
	ActionOnWeather string  `yaml:"action_on_weather"` // hold | rth
	GeofenceBreachS int     `yaml:"geofence_breach_s"`

	SettleS        int     `yaml:"settle_s"`
	RecoverAltM    float64 `yaml:"recover_alt_m"`
	DirectToHome   bool    `yaml:"direct_to_home"`
	ArriveEpsilonM float64 `yaml:"arrive_epsilon_m"`
	LandAtHome     bool    `yaml:"land_at_home"`
}

// TrackingConfig gates the bounded follow policy.
type TrackingConfig struct {
	Enable      bool    `yaml:"enable"`
	LockMinConf float64 `yaml:"lock_min_conf"`
}

// FcConfig controls the flight-controller adapter.
type FcConfig struct {
	Enable              bool `yaml:"enable"`
	MinCommandIntervalS int  `yaml:"min_command_interval_s"`
	AllowRtl            bool `yaml:"allow_rtl"`
	AllowHold           bool `yaml:"allow_hold"`
	SendHeartbeat       bool `yaml:"send_heartbeat"`
}

// TelemetryConfig controls the encrypted transition/event store.
type TelemetryConfig struct {
	Enable bool   `yaml:"enable"`
	DBPath string `yaml:"db_path"`
	// KeyHex is the 32-byte AEAD key, hex encoded.
	KeyHex string `yaml:"key_hex"`
}

// LoggingConfig mirrors the logging package's Config.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Supervisor.TickMs <= 0 {
		c.Supervisor.TickMs = 1000
	}
	if c.Supervisor.PositionStaleS <= 0 {
		c.Supervisor.PositionStaleS = 3
	}
	if c.Gnss.MinSats == 0 {
		c.Gnss.MinSats = 6
	}
	if c.Gnss.MaxHDOP == 0 {
		c.Gnss.MaxHDOP = 2.5
	}
	if c.Gnss.MaxFixAge == 0 {
		c.Gnss.MaxFixAge = 5
	}
	if c.Rth.ActionOnWeather == "" {
		c.Rth.ActionOnWeather = "rth"
	}
	if c.Rth.SettleS == 0 {
		c.Rth.SettleS = 3
	}
	if c.Rth.ArriveEpsilonM == 0 {
		c.Rth.ArriveEpsilonM = 5
	}
	if c.Fc.MinCommandIntervalS == 0 {
		c.Fc.MinCommandIntervalS = 2
	}
	if c.Tracking.LockMinConf == 0 {
		c.Tracking.LockMinConf = 0.6
	}
}

// Validate runs the doctor checks: fail fast at startup, never per tick.
func (c *Config) Validate() error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
	}

	if c.Nav.Home.Lat < -90 || c.Nav.Home.Lat > 90 || c.Nav.Home.Lon < -180 || c.Nav.Home.Lon > 180 {
		return fail("nav.home coordinates out of range")
	}
	if len(c.Nav.Route.Waypoints) < 2 {
		return fail("nav.route.waypoints must have >= 2 points")
	}
	if c.Nav.Route.WidthM <= 0 {
		return fail("nav.route.corridor_width_m must be positive")
	}
	if len(c.Nav.Zone.Polygon) < 3 {
		return fail("nav.zone.zone_polygon must have >= 3 points")
	}
	if c.Nav.MaxRadiusM < 50 {
		return fail("nav.max_radius_m too small (>= 50m)")
	}

	if c.Gnss.MinSats < 4 {
		return fail("gnss.min_sats too low (>= 4)")
	}
	if c.Gnss.MaxHDOP <= 0.5 || c.Gnss.MaxHDOP >= 5.0 {
		return fail("gnss.max_hdop out of range (0.5..5.0)")
	}
	if c.Gnss.MaxFixAge < 1 || c.Gnss.MaxFixAge > 10 {
		return fail("gnss.max_fix_age_s should be 1..10")
	}

	if c.Rth.BatteryLowPct < 0 || c.Rth.BatteryLowPct > 100 {
		return fail("rth.battery_low_pct out of range")
	}
	switch c.Rth.ActionOnWeather {
	case "hold", "rth":
	default:
		return fail("rth.action_on_weather must be hold or rth")
	}
	if c.Rth.GnssHoldS > c.Rth.GnssBadFixS && c.Rth.GnssBadFixS > 0 {
		return fail("rth.gnss_hold_s must not exceed rth.gnss_bad_fix_s")
	}
	if c.Rth.ThermalCritC > 0 && c.Rth.ThermalCritC <= c.Rth.ThermalSoftC {
		return fail("rth.thermal_crit_c must exceed rth.thermal_soft_c")
	}

	if c.Telemetry.Enable {
		if c.Telemetry.DBPath == "" {
			return fail("telemetry.db_path required when telemetry is enabled")
		}
		if len(c.Telemetry.KeyHex) != 64 {
			return fail("telemetry.key_hex must be 32 bytes hex encoded")
		}
	}
	return nil
}

// TriggerPolicy converts the config into the engine's trigger policy.
func (c *Config) TriggerPolicy() core.TriggerPolicy {
	weatherSev := model.SeverityRth
	if c.Rth.ActionOnWeather == "hold" {
		weatherSev = model.SeverityHold
	}
	return core.TriggerPolicy{
		MinSats:             c.Gnss.MinSats,
		MaxHDOP:             c.Gnss.MaxHDOP,
		MaxFixAge:           time.Duration(c.Gnss.MaxFixAge) * time.Second,
		GnssHoldAfter:       time.Duration(c.Rth.GnssHoldS) * time.Second,
		GnssRthAfter:        time.Duration(c.Rth.GnssBadFixS) * time.Second,
		LinkLossAfter:       time.Duration(c.Rth.GraceLinkLossS) * time.Second,
		BatteryLowPct:       c.Rth.BatteryLowPct,
		ThermalSoftC:        c.Rth.ThermalSoftC,
		ThermalCriticalC:    c.Rth.ThermalCritC,
		ThermalAfter:        time.Duration(c.Rth.ThermalGraceS) * time.Second,
		WeatherAfter:        time.Duration(c.Rth.WeatherGraceS) * time.Second,
		WeatherSeverity:     weatherSev,
		GeofenceBreachAfter: time.Duration(c.Rth.GeofenceBreachS) * time.Second,
	}
}

// RthLadderConfig converts the config into the ladder settings.
func (c *Config) RthLadderConfig() core.RthConfig {
	return core.RthConfig{
		SettleDuration: time.Duration(c.Rth.SettleS) * time.Second,
		RecoverAltM:    c.Rth.RecoverAltM,
		DirectToHome:   c.Rth.DirectToHome,
		ArriveEpsilonM: c.Rth.ArriveEpsilonM,
		LandAtHome:     c.Rth.LandAtHome,
	}
}

// EngineConfig assembles the full engine configuration.
func (c *Config) EngineConfig() core.EngineConfig {
	return core.EngineConfig{
		Policy:             c.TriggerPolicy(),
		Rth:                c.RthLadderConfig(),
		Follow:             core.FollowPolicy{LockMinConfidence: c.Tracking.LockMinConf},
		PositionStaleAfter: time.Duration(c.Supervisor.PositionStaleS) * time.Second,
	}
}

// Geofence constructs the validated geofence from the nav section.
func (c *Config) Geofence() (*core.Geofence, error) {
	return core.NewGeofence(c.Nav.Home, c.Nav.Route, c.Nav.Zone, c.Nav.MaxRadiusM)
}

// TickInterval returns the evaluation cadence.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Supervisor.TickMs) * time.Millisecond
}
