// Package sink combines the lead record destinations behind one flow.Sink.
package sink

import (
	"context"

	"github.com/wolfman30/premiumcar-router/internal/flow"
	"github.com/wolfman30/premiumcar-router/pkg/logging"
)

// Named pairs a sink with a label for logs.
type Named struct {
	Name string
	Sink flow.Sink
}

// Fanout writes to a primary sink and then to any secondary sinks. Only the
// primary's error is returned; secondary failures are logged.
type Fanout struct {
	primary   flow.Sink
	secondary []Named
	logger    *logging.Logger
}

var _ flow.Sink = (*Fanout)(nil)

// NewFanout skips secondaries with a nil Sink.
func NewFanout(primary flow.Sink, logger *logging.Logger, secondary ...Named) *Fanout {
	if logger == nil {
		logger = logging.Default()
	}
	f := &Fanout{primary: primary, logger: logger}
	for _, s := range secondary {
		if s.Sink != nil {
			f.secondary = append(f.secondary, s)
		}
	}
	return f
}

// Len reports how many sinks are wired, primary included.
func (f *Fanout) Len() int {
	n := len(f.secondary)
	if f.primary != nil {
		n++
	}
	return n
}

func (f *Fanout) Append(ctx context.Context, destination string, fields []string) error {
	var err error
	if f.primary != nil {
		err = f.primary.Append(ctx, destination, fields)
	}
	for _, s := range f.secondary {
		if serr := s.Sink.Append(ctx, destination, fields); serr != nil {
			f.logger.Warn("secondary sink failed", "sink", s.Name, "destination", destination, "error", serr)
		}
	}
	return err
}
