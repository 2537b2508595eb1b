package connectivity

import (
	"context"
	"time"

	"github.com/okian/matchtrack/pkg/logger"
)

// DefaultProbeInterval is how often a Prober pings its transport.
const DefaultProbeInterval = 3 * time.Second

const probeTimeout = time.Second

// Pinger checks that a transport is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Prober drives a Monitor from periodic pings.
type Prober struct {
	pinger   Pinger
	monitor  *Monitor
	interval time.Duration
	logger   logger.Logger
}

// NewProber creates a prober. A non-positive interval uses the default.
func NewProber(p Pinger, m *Monitor, interval time.Duration) *Prober {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	return &Prober{
		pinger:   p,
		monitor:  m,
		interval: interval,
		logger:   logger.Get().Named("prober"),
	}
}

// Run probes until ctx is canceled.
func (p *Prober) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Probe(ctx)
		}
	}
}

// Probe pings once and updates the monitor.
func (p *Prober) Probe(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	err := p.pinger.Ping(pctx)
	if err != nil && ctx.Err() != nil {
		return
	}
	if err != nil {
		p.logger.Debug(ctx, "transport ping failed", logger.Error(err))
	}
	p.monitor.SetOnline(ctx, err == nil)
}
