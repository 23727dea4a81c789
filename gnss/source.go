package gnss

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/skyfieldworks/navscout/internal/logging"
	"github.com/skyfieldworks/navscout/model"
	"github.com/skyfieldworks/navscout/timectrl"
)

// ErrExhausted is returned by Step once the replay input is consumed.
var ErrExhausted = errors.New("nmea replay exhausted")

// FileSource replays an NMEA log and exposes the merged latest fix. GGA
// sentences contribute satellite count, HDOP, and altitude; RMC sentences
// contribute the authoritative coordinates. LatestFix never blocks.
type FileSource struct {
	clock timectrl.Clock
	log   logging.Logger

	mu      sync.RWMutex
	lines   []string
	next    int
	pos     model.Position
	havePos bool
	atTime  time.Time
}

// NewFileSource loads the NMEA log at path. The file is read fully at
// construction so replay never touches the filesystem mid-mission.
func NewFileSource(path string, clock timectrl.Clock, log logging.Logger) (*FileSource, error) {
	if clock == nil {
		clock = timectrl.SystemClock{}
	}
	if log == nil {
		log = logging.Noop()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open nmea log %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read nmea log %s: %w", path, err)
	}
	return &FileSource{clock: clock, log: log, lines: lines}, nil
}

// Step consumes the next sentence from the replay. Unsupported and
// malformed sentences are skipped with a debug log; the fix is only marked
// lost when a sentence explicitly says so.
func (s *FileSource) Step() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.next < len(s.lines) {
		line := s.lines[s.next]
		s.next++

		sentence, err := ParseSentence(line)
		if err != nil {
			if !errors.Is(err, ErrUnsupported) {
				s.log.Debug(context.Background(), "nmea sentence skipped",
					logging.String("error", err.Error()))
			}
			continue
		}
		s.apply(sentence)
		return nil
	}
	return ErrExhausted
}

func (s *FileSource) apply(sentence Sentence) {
	now := s.clock.Now()
	switch {
	case sentence.GGA != nil:
		gga := sentence.GGA
		s.pos.Quality.HasFix = gga.HasFix
		if gga.HasFix {
			s.pos.Quality.Sats = gga.Sats
			s.pos.Quality.HDOP = gga.HDOP
			s.pos.AltM = gga.AltM
			if !s.havePos {
				s.pos.Lat, s.pos.Lon = gga.Lat, gga.Lon
			}
			s.havePos = true
			s.atTime = now
		}
	case sentence.RMC != nil:
		rmc := sentence.RMC
		s.pos.Quality.HasFix = rmc.Valid
		if rmc.Valid {
			s.pos.Lat, s.pos.Lon = rmc.Lat, rmc.Lon
			s.havePos = true
			s.atTime = now
		}
	}
	s.pos.Time = s.atTime
}

// LatestFix returns the merged fix with its age computed against the
// source's clock.
func (s *FileSource) LatestFix() (model.Position, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.havePos {
		return model.Position{}, false
	}
	pos := s.pos
	pos.Quality.FixAge = s.clock.Now().Sub(s.atTime)
	return pos, true
}

// Run replays sentences at the given interval until the log is exhausted or
// the context is cancelled.
func (s *FileSource) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.Step(); err != nil {
				if errors.Is(err, ErrExhausted) {
					s.log.Info(ctx, "nmea replay finished")
					return nil
				}
				return err
			}
		}
	}
}
