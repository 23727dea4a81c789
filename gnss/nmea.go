package gnss

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrMalformed   = errors.New("malformed nmea sentence")
	ErrChecksum    = errors.New("nmea checksum mismatch")
	ErrUnsupported = errors.New("unsupported nmea sentence")
)

// GGA carries the fix-quality fields of a GGA sentence.
type GGA struct {
	HasFix bool
	Lat    float64
	Lon    float64
	Sats   int
	HDOP   float64
	AltM   float64
}

// RMC carries the recommended-minimum fields of an RMC sentence.
type RMC struct {
	Valid bool
	Lat   float64
	Lon   float64
}

// Sentence is the parsed form of a supported NMEA sentence; exactly one of
// GGA or RMC is set.
type Sentence struct {
	GGA *GGA
	RMC *RMC
}

// ParseSentence parses a single NMEA line. Talker IDs are ignored; only the
// GGA and RMC sentence types are supported. The checksum is verified when
// present.
func ParseSentence(line string) (Sentence, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return Sentence{}, ErrMalformed
	}
	body := line[1:]

	if idx := strings.IndexByte(body, '*'); idx >= 0 {
		want := body[idx+1:]
		body = body[:idx]
		sum, err := strconv.ParseUint(want, 16, 8)
		if err != nil {
			return Sentence{}, fmt.Errorf("%w: bad checksum field %q", ErrMalformed, want)
		}
		if checksum(body) != byte(sum) {
			return Sentence{}, ErrChecksum
		}
	}

	fields := strings.Split(body, ",")
	if len(fields) == 0 || len(fields[0]) < 5 {
		return Sentence{}, ErrMalformed
	}
	// Field 0 is talker + type, e.g. GPGGA or GNRMC.
	switch fields[0][2:] {
	case "GGA":
		gga, err := parseGGA(fields)
		if err != nil {
			return Sentence{}, err
		}
		return Sentence{GGA: &gga}, nil
	case "RMC":
		rmc, err := parseRMC(fields)
		if err != nil {
			return Sentence{}, err
		}
		return Sentence{RMC: &rmc}, nil
	default:
		return Sentence{}, ErrUnsupported
	}
}

func parseGGA(fields []string) (GGA, error) {
	if len(fields) < 10 {
		return GGA{}, fmt.Errorf("%w: gga needs 10 fields", ErrMalformed)
	}
	quality, _ := strconv.Atoi(fields[6])
	gga := GGA{HasFix: quality > 0}
	if !gga.HasFix {
		return gga, nil
	}

	var err error
	if gga.Lat, err = parseDegMin(fields[2], fields[3]); err != nil {
		return GGA{}, err
	}
	if gga.Lon, err = parseDegMin(fields[4], fields[5]); err != nil {
		return GGA{}, err
	}
	if gga.Sats, err = strconv.Atoi(fields[7]); err != nil {
		return GGA{}, fmt.Errorf("%w: satellite count %q", ErrMalformed, fields[7])
	}
	if gga.HDOP, err = strconv.ParseFloat(fields[8], 64); err != nil {
		return GGA{}, fmt.Errorf("%w: hdop %q", ErrMalformed, fields[8])
	}
	if fields[9] != "" {
		if gga.AltM, err = strconv.ParseFloat(fields[9], 64); err != nil {
			return GGA{}, fmt.Errorf("%w: altitude %q", ErrMalformed, fields[9])
		}
	}
	return gga, nil
}

func parseRMC(fields []string) (RMC, error) {
	if len(fields) < 7 {
		return RMC{}, fmt.Errorf("%w: rmc needs 7 fields", ErrMalformed)
	}
	rmc := RMC{Valid: fields[2] == "A"}
	if !rmc.Valid {
		return rmc, nil
	}
	var err error
	if rmc.Lat, err = parseDegMin(fields[3], fields[4]); err != nil {
		return RMC{}, err
	}
	if rmc.Lon, err = parseDegMin(fields[5], fields[6]); err != nil {
		return RMC{}, err
	}
	return rmc, nil
}

// parseDegMin converts the NMEA ddmm.mmmm coordinate encoding to decimal
// degrees, signed by hemisphere.
func parseDegMin(raw, hemi string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: coordinate %q", ErrMalformed, raw)
	}
	deg := float64(int(v / 100))
	min := v - deg*100
	dec := deg + min/60
	switch hemi {
	case "S", "W":
		dec = -dec
	case "N", "E":
	default:
		return 0, fmt.Errorf("%w: hemisphere %q", ErrMalformed, hemi)
	}
	return dec, nil
}

func checksum(body string) byte {
	var sum byte
	for i := 0; i < len(body); i++ {
		sum ^= body[i]
	}
	return sum
}
