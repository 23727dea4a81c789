package telemetry

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/chacha20poly1305"
	_ "modernc.org/sqlite"

	"github.com/skyfieldworks/navscout/internal/logging"
	"github.com/skyfieldworks/navscout/model"
)

// EventKind labels a spooled telemetry record.
type EventKind string

const (
	EventStatus     EventKind = "status"
	EventTransition EventKind = "transition"
	EventDirective  EventKind = "directive"
	EventControl    EventKind = "control"
	EventRth        EventKind = "rth"
	EventAbort      EventKind = "abort"
)

// Event is the decrypted form of a spooled record.
type Event struct {
	RunID   string          `json:"run_id"`
	Kind    EventKind       `json:"kind"`
	At      time.Time       `json:"at"`
	Payload json.RawMessage `json:"payload"`
}

// Store is an encrypted append-only event spool backed by SQLite. Payloads
// are sealed with XChaCha20-Poly1305 before they touch disk; the run ID and
// kind stay in cleartext for indexed queries. All writers share one store
// and one run ID.
type Store struct {
	db    *sql.DB
	aead  cipher.AEAD
	runID string
	log   logging.Logger

	mu        sync.Mutex
	disabled  bool
	tightened bool
	lastKind  model.DirectiveKind
	lastState model.MissionState
	haveLast  bool
}

const schema = `
CREATE TABLE IF NOT EXISTS events (
    id      INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id  TEXT NOT NULL,
    kind    TEXT NOT NULL,
    at      TEXT NOT NULL,
    nonce   BLOB NOT NULL,
    payload BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id, kind);
`

// Open creates or opens the spool at path. keyHex must decode to a 32-byte
// key. A fresh run ID is minted per Open.
func Open(path, keyHex string, log logging.Logger) (*Store, error) {
	if log == nil {
		log = logging.Noop()
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil || len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("telemetry key must be %d bytes hex encoded", chacha20poly1305.KeySize)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init aead: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open telemetry db: %w", err)
	}
	// modernc's driver serialises writes; a single connection avoids
	// SQLITE_BUSY under concurrent sinks.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply telemetry schema: %w", err)
	}

	s := &Store{
		db:    db,
		aead:  aead,
		runID: uuid.NewString(),
		log:   log,
	}
	log.Info(context.Background(), "telemetry spool opened",
		logging.String("path", path),
		logging.String("run_id", s.runID))
	return s, nil
}

// RunID returns the identifier shared by all events of this session.
func (s *Store) RunID() string { return s.runID }

// Close flushes and closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// RecordTransition spools a mission state transition. Transitions are
// always recorded, even after recording has been disabled, so the audit
// trail of the safety decision itself survives a tamper event. Entries
// into RTH or Abort additionally spool a marker event of their own kind
// so recovery reviews can query them without decrypting the full log.
func (s *Store) RecordTransition(t model.Transition) {
	payload := map[string]any{
		"from":   t.From.String(),
		"to":     t.To.String(),
		"reason": t.Reason,
	}
	s.append(EventTransition, t.At, payload)

	switch t.To {
	case model.StateRth:
		s.append(EventRth, t.At, payload)
	case model.StateAbort:
		s.append(EventAbort, t.At, payload)
	}
}

// EmitDirective spools directives. To keep the spool lean only changes of
// kind or state are recorded, unless telemetry has been tightened, in which
// case every tick is spooled.
func (s *Store) EmitDirective(d model.Directive) {
	s.mu.Lock()
	tight := s.tightened
	changed := !s.haveLast || d.Kind != s.lastKind || d.State != s.lastState
	s.lastKind, s.lastState, s.haveLast = d.Kind, d.State, true
	disabled := s.disabled
	s.mu.Unlock()

	if disabled || (!changed && !tight) {
		return
	}
	payload := map[string]any{
		"kind":      d.Kind.String(),
		"state":     d.State.String(),
		"sub_state": d.SubState.String(),
		"reason":    d.Reason,
	}
	s.append(EventDirective, d.At, payload)
}

// RecordStatus spools a periodic status snapshot.
func (s *Store) RecordStatus(at time.Time, state model.MissionState, sev model.Severity, pos model.Position, havePos bool) {
	s.mu.Lock()
	disabled := s.disabled
	s.mu.Unlock()
	if disabled {
		return
	}
	payload := map[string]any{
		"state":    state.String(),
		"severity": sev.String(),
	}
	if havePos {
		payload["lat"] = pos.Lat
		payload["lon"] = pos.Lon
		payload["alt_m"] = pos.AltM
		payload["sats"] = pos.Quality.Sats
		payload["hdop"] = pos.Quality.HDOP
	}
	s.append(EventStatus, at, payload)
}

// DisableRecording latches payload recording off. The control event itself
// and subsequent transitions still reach the spool.
func (s *Store) DisableRecording(reason string) {
	s.mu.Lock()
	already := s.disabled
	s.disabled = true
	s.mu.Unlock()
	if already {
		return
	}
	s.append(EventControl, time.Now().UTC(), map[string]any{
		"action": "disable_recording",
		"reason": reason,
	})
	s.log.Warn(context.Background(), "telemetry recording disabled", logging.String("reason", reason))
}

// TightenTelemetry switches directive spooling from change-only to every
// tick.
func (s *Store) TightenTelemetry(on bool) {
	s.mu.Lock()
	changed := s.tightened != on
	s.tightened = on
	s.mu.Unlock()
	if !changed {
		return
	}
	s.append(EventControl, time.Now().UTC(), map[string]any{
		"action":  "tighten_telemetry",
		"enabled": on,
	})
}

func (s *Store) append(kind EventKind, at time.Time, payload map[string]any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		s.log.Error(context.Background(), "telemetry marshal failed", logging.String("error", err.Error()))
		return
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		s.log.Error(context.Background(), "telemetry nonce failed", logging.String("error", err.Error()))
		return
	}
	sealed := s.aead.Seal(nil, nonce, raw, []byte(s.runID))

	_, err = s.db.Exec(
		`INSERT INTO events (run_id, kind, at, nonce, payload) VALUES (?, ?, ?, ?, ?)`,
		s.runID, string(kind), at.UTC().Format(time.RFC3339Nano), nonce, sealed,
	)
	if err != nil {
		s.log.Error(context.Background(), "telemetry append failed",
			logging.String("kind", string(kind)),
			logging.String("error", err.Error()))
	}
}

// Events decrypts and returns all spooled events for a run, oldest first.
func (s *Store) Events(ctx context.Context, runID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, at, nonce, payload FROM events WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			kind   string
			atRaw  string
			nonce  []byte
			sealed []byte
		)
		if err := rows.Scan(&kind, &atRaw, &nonce, &sealed); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		raw, err := s.aead.Open(nil, nonce, sealed, []byte(runID))
		if err != nil {
			return nil, fmt.Errorf("unseal event: %w", err)
		}
		at, err := time.Parse(time.RFC3339Nano, atRaw)
		if err != nil {
			return nil, fmt.Errorf("parse event time: %w", err)
		}
		out = append(out, Event{
			RunID:   runID,
			Kind:    EventKind(kind),
			At:      at,
			Payload: json.RawMessage(raw),
		})
	}
	return out, rows.Err()
}
