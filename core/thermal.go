package core

// ThermalLevel classifies a temperature reading against the soft and
// critical limits.
type ThermalLevel int

const (
	ThermalNormal ThermalLevel = iota
	ThermalWarning
	ThermalCritical
)

func (l ThermalLevel) String() string {
	switch l {
	case ThermalNormal:
		return "NORMAL"
	case ThermalWarning:
		return "WARNING"
	case ThermalCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ClassifyThermal maps a temperature to its level. A zero limit disables
// the corresponding rung.
func ClassifyThermal(tempC, softC, criticalC float64) ThermalLevel {
	if criticalC > 0 && tempC >= criticalC {
		return ThermalCritical
	}
	if softC > 0 && tempC >= softC {
		return ThermalWarning
	}
	return ThermalNormal
}
