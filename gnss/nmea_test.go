package gnss

import (
	"errors"
	"math"
	"testing"
)

func TestParseGGA(t *testing.T) {
	s, err := ParseSentence("$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47")
	if err != nil {
		t.Fatalf("ParseSentence: %v", err)
	}
	if s.GGA == nil {
		t.Fatalf("expected a GGA sentence")
	}
	gga := s.GGA
	if !gga.HasFix {
		t.Errorf("HasFix = false, want true")
	}
	if math.Abs(gga.Lat-(48+7.038/60)) > 1e-9 {
		t.Errorf("Lat = %v, want 48°07.038'", gga.Lat)
	}
	if math.Abs(gga.Lon-(11+31.0/60)) > 1e-9 {
		t.Errorf("Lon = %v, want 11°31.000'", gga.Lon)
	}
	if gga.Sats != 8 || gga.HDOP != 0.9 || gga.AltM != 545.4 {
		t.Errorf("sats/hdop/alt = %d/%v/%v, want 8/0.9/545.4", gga.Sats, gga.HDOP, gga.AltM)
	}
}

func TestParseRMC(t *testing.T) {
	s, err := ParseSentence("$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A")
	if err != nil {
		t.Fatalf("ParseSentence: %v", err)
	}
	if s.RMC == nil || !s.RMC.Valid {
		t.Fatalf("expected a valid RMC sentence, got %+v", s)
	}
	if math.Abs(s.RMC.Lat-(48+7.038/60)) > 1e-9 {
		t.Errorf("Lat = %v", s.RMC.Lat)
	}
}

func TestParseNoFixSentences(t *testing.T) {
	s, err := ParseSentence("$GPGGA,123520,,,,,0,00,,,M,,M,,*61")
	if err != nil {
		t.Fatalf("no-fix GGA: %v", err)
	}
	if s.GGA == nil || s.GGA.HasFix {
		t.Errorf("fix quality 0 must report no fix")
	}

	s, err = ParseSentence("$GPRMC,123520,V,,,,,,,230394,,*39")
	if err != nil {
		t.Fatalf("void RMC: %v", err)
	}
	if s.RMC == nil || s.RMC.Valid {
		t.Errorf("status V must report invalid")
	}
}

func TestParseSouthernWesternHemispheres(t *testing.T) {
	lat, err := parseDegMin("3345.000", "S")
	if err != nil {
		t.Fatalf("parseDegMin: %v", err)
	}
	if math.Abs(lat-(-(33 + 45.0/60))) > 1e-9 {
		t.Errorf("lat = %v, want -33.75", lat)
	}
	lon, err := parseDegMin("15112.500", "W")
	if err != nil {
		t.Fatalf("parseDegMin: %v", err)
	}
	if lon >= 0 {
		t.Errorf("western longitude must be negative, got %v", lon)
	}
}

func TestParseRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		line string
		want error
	}{
		{"bad checksum", "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*00", ErrChecksum},
		{"no dollar", "GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,", ErrMalformed},
		{"unsupported type", "$GPGSV,3,1,11,03,03,111,00*4A", ErrUnsupported},
		{"bad hemisphere", "$GPGGA,123519,4807.038,X,01131.000,E,1,08,0.9,545.4,M,46.9,M,,", ErrMalformed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseSentence(tc.line)
			if !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}
}
