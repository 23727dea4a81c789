package fc

import (
	"context"
	"sync"
	"time"

	"github.com/skyfieldworks/navscout/internal/logging"
	"github.com/skyfieldworks/navscout/model"
	"github.com/skyfieldworks/navscout/timectrl"
)

// Command is a flight-controller instruction.
type Command string

const (
	CommandHold Command = "HOLD"
	CommandRtl  Command = "RTL"
	CommandLand Command = "LAND"
)

// Commander is the transport to the flight controller. Implementations must
// not block for longer than a command send.
type Commander interface {
	Send(ctx context.Context, cmd Command) error
	Heartbeat(ctx context.Context) error
}

// Config controls which commands the adapter may issue and how often.
type Config struct {
	// MinCommandInterval is the minimum spacing between repeated sends of
	// the same command.
	MinCommandInterval time.Duration
	AllowRtl           bool
	AllowHold          bool
	SendHeartbeat      bool
}

// Status is the adapter's view of the link to the flight controller.
type Status struct {
	LastCommand   Command
	LastCommandAt time.Time
	LastError     string
	SendFailures  int
}

// Adapter translates directives into flight-controller commands. Advisory
// directives are never forwarded: the vehicle keeps flying its plan unless
// the supervisor demands otherwise. Repeated identical commands are rate
// limited so a steady directive stream does not flood the link.
type Adapter struct {
	cmd   Commander
	cfg   Config
	clock timectrl.Clock
	log   logging.Logger

	mu       sync.Mutex
	lastSent map[Command]time.Time
	status   Status
}

// NewAdapter wires the adapter. A nil clock falls back to wall time.
func NewAdapter(cmd Commander, cfg Config, clock timectrl.Clock, log logging.Logger) *Adapter {
	if clock == nil {
		clock = timectrl.SystemClock{}
	}
	if log == nil {
		log = logging.Noop()
	}
	if cfg.MinCommandInterval <= 0 {
		cfg.MinCommandInterval = 2 * time.Second
	}
	return &Adapter{
		cmd:      cmd,
		cfg:      cfg,
		clock:    clock,
		log:      log,
		lastSent: make(map[Command]time.Time),
	}
}

// EmitDirective satisfies the directive sink interface. Continue is
// informational and intentionally dropped.
func (a *Adapter) EmitDirective(d model.Directive) {
	var cmd Command
	switch d.Kind {
	case model.DirectiveHold:
		if !a.cfg.AllowHold {
			return
		}
		cmd = CommandHold
	case model.DirectiveReturnToLaunch:
		if !a.cfg.AllowRtl {
			return
		}
		cmd = CommandRtl
	case model.DirectiveLand:
		cmd = CommandLand
	default:
		return
	}
	a.send(cmd, d.Reason)
}

func (a *Adapter) send(cmd Command, reason string) {
	now := a.clock.Now()

	a.mu.Lock()
	if last, ok := a.lastSent[cmd]; ok && now.Sub(last) < a.cfg.MinCommandInterval {
		a.mu.Unlock()
		return
	}
	a.lastSent[cmd] = now
	a.mu.Unlock()

	ctx := context.Background()
	err := a.cmd.Send(ctx, cmd)

	a.mu.Lock()
	a.status.LastCommand = cmd
	a.status.LastCommandAt = now
	if err != nil {
		a.status.LastError = err.Error()
		a.status.SendFailures++
	} else {
		a.status.LastError = ""
	}
	a.mu.Unlock()

	if err != nil {
		a.log.Error(ctx, "fc command failed",
			logging.String("command", string(cmd)),
			logging.String("error", err.Error()))
		return
	}
	a.log.Info(ctx, "fc command sent",
		logging.String("command", string(cmd)),
		logging.String("reason", reason))
}

// Pulse sends a heartbeat when configured. Intended to be called once per
// tick.
func (a *Adapter) Pulse(ctx context.Context) {
	if !a.cfg.SendHeartbeat {
		return
	}
	if err := a.cmd.Heartbeat(ctx); err != nil {
		a.mu.Lock()
		a.status.LastError = err.Error()
		a.status.SendFailures++
		a.mu.Unlock()
		a.log.Warn(ctx, "fc heartbeat failed", logging.String("error", err.Error()))
	}
}

// Status returns a snapshot of the adapter's link bookkeeping.
func (a *Adapter) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}
