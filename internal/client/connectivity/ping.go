package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/fitsync/internal/logging"
	"github.com/dmitrijs2005/fitsync/internal/retryx"
)

// Pinger checks the remote store. client.GRPCClient satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

const (
	DefaultInterval     = 5 * time.Second
	DefaultProbeTimeout = 3 * time.Second
)

// PingOracle polls a Pinger on an interval. While forced offline it reports
// offline regardless of probe results.
type PingOracle struct {
	state

	pinger       Pinger
	interval     time.Duration
	probeTimeout time.Duration
	log          logging.Logger

	// updates orders state changes: the decision and the stored value
	// happen in one step.
	updates sync.Mutex
	forced  bool
	reached bool
}

func NewPingOracle(p Pinger, interval time.Duration, l logging.Logger) *PingOracle {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &PingOracle{
		pinger:       p,
		interval:     interval,
		probeTimeout: DefaultProbeTimeout,
		log:          l.With("module", "connectivity"),
	}
}

func (o *PingOracle) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, o.probeTimeout)
	defer cancel()
	return o.pinger.Ping(ctx)
}

// Probe pings once and updates the state.
func (o *PingOracle) Probe(ctx context.Context) bool {
	err := o.ping(ctx)
	o.update(ctx, err == nil)
	return err == nil
}

func (o *PingOracle) update(ctx context.Context, reached bool) {
	o.updates.Lock()
	defer o.updates.Unlock()

	o.mu.Lock()
	o.reached = reached
	o.mu.Unlock()
	o.apply(ctx)
}

// apply publishes the combined state. Callers hold o.updates.
func (o *PingOracle) apply(ctx context.Context) {
	o.mu.Lock()
	online := o.reached && !o.forced
	o.mu.Unlock()

	if o.set(online) {
		o.log.Info(ctx, "connectivity changed", "online", online)
	}
}

// ForceOffline pins the oracle offline until called with false.
func (o *PingOracle) ForceOffline(ctx context.Context, forced bool) {
	o.updates.Lock()
	defer o.updates.Unlock()

	o.mu.Lock()
	o.forced = forced
	o.mu.Unlock()
	o.apply(ctx)
}

func (o *PingOracle) Forced() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.forced
}

// Run performs a bounded startup probe and then polls until ctx is done.
func (o *PingOracle) Run(ctx context.Context) {
	err := retryx.Do(ctx, o.ping)
	if err != nil {
		o.log.Warn(ctx, "startup probe failed", "error", err)
	}
	o.update(ctx, err == nil)

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			o.Probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}
