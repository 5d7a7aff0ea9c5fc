package health

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// HealthPinger can be implemented by components to expose a specialized
// health check. HealthPing must return nil when the component is healthy.
type HealthPinger interface {
	HealthPing(ctx context.Context) error
}

// PingChecker polls a HealthPinger and caches the verdict.
type PingChecker struct {
	name    string
	pinger  HealthPinger
	healthy atomic.Int32
	log     zerolog.Logger
}

func NewPingChecker(name string, pinger HealthPinger, log zerolog.Logger) *PingChecker {
	c := &PingChecker{name: name, pinger: pinger, log: log}
	c.healthy.Store(0)
	return c
}

func (c *PingChecker) Name() string { return c.name }

func (c *PingChecker) IsHealthy() bool { return c.healthy.Load() == 1 }

// Start polls on the interval until ctx is cancelled.
func (c *PingChecker) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	probe := func() {
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := c.pinger.HealthPing(pctx); err != nil {
			if c.healthy.Swap(0) == 1 {
				c.log.Error().Err(err).Str("component", c.name).Msg("component health: DOWN")
			}
			return
		}
		if c.healthy.Swap(1) == 0 {
			c.log.Info().Str("component", c.name).Msg("component health: UP")
		}
	}

	probe()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			probe()
		}
	}
}
