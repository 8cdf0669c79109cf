package hardware

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// ErrNotReady is returned when the hardware did not reach a safe state
// before the configured wait timeout elapsed.
var ErrNotReady = errors.New("timed out waiting for hardware to become ready")

// Unit is one hardware unit as reported by the health query.
type Unit struct {
	Index       int
	Temperature int // degrees C
	MemoryTotal int // MB
	MemoryUsed  int // MB
}

// Querier reports the current state of all hardware units. An error or an
// empty result means there is no hardware to protect.
type Querier interface {
	Query(ctx context.Context) ([]Unit, error)
}

type GateConfig struct {
	TempThresholdC int
	MinFreeMB      int
	WaitTimeout    time.Duration
	PollInterval   time.Duration
	Querier        Querier
	Logger         *log.Logger
}

// Gate blocks heavyweight stage execution until every hardware unit is below
// the temperature threshold and has enough free memory. The gate fails open:
// if the query mechanism is unavailable or reports zero units there is
// nothing to wait on.
type Gate struct {
	config GateConfig
}

func NewWithConfig(config GateConfig) *Gate {
	if config.TempThresholdC == 0 {
		config.TempThresholdC = 85
	}
	if config.MinFreeMB == 0 {
		config.MinFreeMB = 500
	}
	if config.WaitTimeout == 0 {
		config.WaitTimeout = 10 * time.Minute
	}
	if config.PollInterval == 0 {
		config.PollInterval = 5 * time.Second
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}

	return &Gate{config: config}
}

// AwaitReady polls until all units are in a safe state or the wait timeout
// elapses. A timeout is reported as ErrNotReady and is fatal for the caller's
// stage. The only side effect is the poll itself.
func (g *Gate) AwaitReady(ctx context.Context) error {
	if g.ready(ctx) {
		return nil
	}

	g.config.Logger.Printf("waiting for hardware to cool down and free memory")

	deadline := time.Now().Add(g.config.WaitTimeout)
	ticker := time.NewTicker(g.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if g.ready(ctx) {
				g.config.Logger.Printf("hardware is ready")
				return nil
			}
			if time.Now().After(deadline) {
				return fmt.Errorf("%w after %s", ErrNotReady, g.config.WaitTimeout)
			}
		}
	}
}

func (g *Gate) ready(ctx context.Context) bool {
	if g.config.Querier == nil {
		return true
	}

	units, err := g.config.Querier.Query(ctx)
	if err != nil {
		// No queryable hardware means nothing to protect
		return true
	}
	if len(units) == 0 {
		return true
	}

	for _, unit := range units {
		free := unit.MemoryTotal - unit.MemoryUsed
		if unit.Temperature >= g.config.TempThresholdC {
			g.config.Logger.Printf("unit %d temp %dC >= threshold %dC",
				unit.Index, unit.Temperature, g.config.TempThresholdC)
			return false
		}
		if free < g.config.MinFreeMB {
			g.config.Logger.Printf("unit %d free mem %dMB < required %dMB",
				unit.Index, free, g.config.MinFreeMB)
			return false
		}
	}
	return true
}
