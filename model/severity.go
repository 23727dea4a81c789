package model

// Severity is the total-ordered escalation level that drives mission state
// transitions. Aggregation across triggers always takes the maximum, so the
// numeric order here is load-bearing.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityHold
	SeverityRth
	SeverityRthImmediate
	SeverityLand
	SeverityAbort
)

func (s Severity) String() string {
	switch s {
	case SeverityNone:
		return "NONE"
	case SeverityHold:
		return "HOLD"
	case SeverityRth:
		return "RTH"
	case SeverityRthImmediate:
		return "RTH_IMMEDIATE"
	case SeverityLand:
		return "LAND"
	case SeverityAbort:
		return "ABORT"
	default:
		return "UNKNOWN"
	}
}

// TriggerSource identifies one of the independent failure conditions the
// trigger engine watches. The set is fixed; evaluation order never implies
// priority (severity does).
type TriggerSource int

const (
	TriggerLinkLoss TriggerSource = iota
	TriggerGnssDegrade
	TriggerBatteryLow
	TriggerThermalHigh
	TriggerTamper
	TriggerWeather
	// TriggerGeofence is synthetic: raised by the geofence evaluator and fed
	// into the same aggregation as the sensor-driven sources.
	TriggerGeofence
)

func (t TriggerSource) String() string {
	switch t {
	case TriggerLinkLoss:
		return "link_loss"
	case TriggerGnssDegrade:
		return "gnss_degrade"
	case TriggerBatteryLow:
		return "battery_low"
	case TriggerThermalHigh:
		return "thermal_high"
	case TriggerTamper:
		return "tamper"
	case TriggerWeather:
		return "weather"
	case TriggerGeofence:
		return "geofence"
	default:
		return "unknown"
	}
}

// AllTriggerSources lists every source the engine evaluates each tick,
// geofence included.
var AllTriggerSources = []TriggerSource{
	TriggerLinkLoss,
	TriggerGnssDegrade,
	TriggerBatteryLow,
	TriggerThermalHigh,
	TriggerTamper,
	TriggerWeather,
	TriggerGeofence,
}
