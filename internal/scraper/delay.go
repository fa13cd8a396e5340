package scraper

import (
	"context"
	"time"

	"github.com/lthibault/jitterbug/v2"
	"github.com/mapharvest/harvester/internal/config"
)

// RandomDelay draws a duration uniformly from the closed window.
func RandomDelay(w config.DelayWindow) time.Duration {
	if w.Max <= w.Min {
		return w.Min
	}
	u := jitterbug.Uniform{Min: w.Min}
	d := u.Jitter(w.Max + 1)
	switch {
	case d < w.Min:
		return w.Min
	case d > w.Max:
		return w.Max
	}
	return d
}

// Pacer waits between browser actions.
type Pacer interface {
	// Pause blocks for a duration drawn from w, returning early with the
	// context error on cancellation.
	Pause(ctx context.Context, w config.DelayWindow) error
}

type sleepPacer struct{}

func NewPacer() Pacer {
	return sleepPacer{}
}

func (sleepPacer) Pause(ctx context.Context, w config.DelayWindow) error {
	t := time.NewTimer(RandomDelay(w))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
