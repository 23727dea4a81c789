package core

import "testing"

func TestClassifyThermal(t *testing.T) {
	cases := []struct {
		name         string
		tempC        float64
		softC, critC float64
		want         ThermalLevel
	}{
		{"well below soft", 40, 75, 90, ThermalNormal},
		{"just below soft", 74.9, 75, 90, ThermalNormal},
		{"at soft", 75, 75, 90, ThermalWarning},
		{"between limits", 85, 75, 90, ThermalWarning},
		{"at critical", 90, 75, 90, ThermalCritical},
		{"above critical", 110, 75, 90, ThermalCritical},
		{"critical rung disabled", 110, 75, 0, ThermalWarning},
		{"thermal unconfigured", 110, 0, 0, ThermalNormal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyThermal(tc.tempC, tc.softC, tc.critC); got != tc.want {
				t.Errorf("ClassifyThermal(%v, %v, %v) = %v, want %v", tc.tempC, tc.softC, tc.critC, got, tc.want)
			}
		})
	}
}

func TestThermalLevelString(t *testing.T) {
	if ThermalWarning.String() != "WARNING" || ThermalCritical.String() != "CRITICAL" {
		t.Fatalf("unexpected level names: %s %s", ThermalWarning, ThermalCritical)
	}
}
