package fc

import (
	"context"

	"github.com/skyfieldworks/navscout/internal/logging"
)

// LogCommander is a Commander that records commands to the log instead of a
// real flight-controller link. Used when no transport is configured and in
// dry runs.
type LogCommander struct {
	log logging.Logger
}

// NewLogCommander builds a commander over the given logger.
func NewLogCommander(log logging.Logger) *LogCommander {
	if log == nil {
		log = logging.Noop()
	}
	return &LogCommander{log: log}
}

func (c *LogCommander) Send(ctx context.Context, cmd Command) error {
	c.log.Info(ctx, "fc command (dry run)", logging.String("command", string(cmd)))
	return nil
}

func (c *LogCommander) Heartbeat(ctx context.Context) error { return nil }
