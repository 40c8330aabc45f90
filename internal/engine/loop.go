package engine

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Simulate ticks at the configured rate until ctx ends. Each iteration runs
// one tick of the full period and sleeps whatever is left of it. Drift is not
// corrected: a tick that overruns its period is logged and the next one
// starts immediately without catching up.
func (e *Engine) Simulate(ctx context.Context) error {
	period := e.cfg.Engine.TickRate
	e.log.Info("simulation started", zap.Duration("tick", period), zap.Stringer("handoff", e.mode))
	defer e.Stop()

	timer := time.NewTimer(period)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			e.log.Info("simulation stopping", zap.Uint64("ticks", e.Ticks()))
			return nil
		default:
		}

		start := time.Now()
		e.Tick(period)
		elapsed := time.Since(start)
		if elapsed >= period {
			e.log.Warn("tick overran period",
				zap.Duration("elapsed", elapsed),
				zap.Duration("period", period),
			)
			continue
		}

		timer.Reset(period - elapsed)
		select {
		case <-ctx.Done():
			e.log.Info("simulation stopping", zap.Uint64("ticks", e.Ticks()))
			return nil
		case <-timer.C:
		}
	}
}
