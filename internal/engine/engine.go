// Package engine provides the realtime loop that drives the simulation.
package engine

import (
	"log/slog"
	"sync"
	"time"

	"github.com/vantagegames/magnate/internal/sim"
)

// Engine advances the world on a wall-clock cadence. The world is mutated
// only from the loop goroutine; concurrent readers go through WithRead.
type Engine struct {
	World    *sim.World
	Speed    float64       // Multiplier: 1.0 = real-time, 0 = paused
	Interval time.Duration // Base tick interval (default 250ms)
	Running  bool

	// Callbacks fired after the tick that crosses each boundary.
	OnDay   func(tick uint64)
	OnMonth func(tick uint64)

	mu sync.RWMutex
}

// New creates an engine around a world with default pacing.
func New(w *sim.World) *Engine {
	return &Engine{
		World:    w,
		Speed:    1.0,
		Interval: 250 * time.Millisecond,
	}
}

// Run starts the simulation loop. Blocks until Stop is called.
func (e *Engine) Run() {
	e.Running = true
	slog.Info("simulation engine started", "tick", e.World.Tick, "speed", e.Speed)

	for e.Running {
		if e.Speed <= 0 {
			// Paused. Sleep briefly and check again.
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()
		e.step()

		// Sleep for the remainder of the tick interval, adjusted for speed.
		elapsed := time.Since(start)
		target := time.Duration(float64(e.Interval) / e.Speed)
		if elapsed < target {
			time.Sleep(target - elapsed)
		}
	}

	slog.Info("simulation engine stopped", "tick", e.World.Tick)
}

// Stop halts the simulation loop after the current tick.
func (e *Engine) Stop() {
	e.Running = false
}

// step advances the world by one tick and fires cadence callbacks.
func (e *Engine) step() {
	e.mu.Lock()
	e.World.AdvanceTick()
	tick := e.World.Tick
	notes := e.World.DrainNotifications()
	e.mu.Unlock()

	for _, n := range notes {
		slog.Info("world event", "kind", n.Kind, "tick", n.Tick,
			"company", n.Company, "building", n.Building, "text", n.Text)
	}

	if tick%sim.TicksPerDay == 0 && e.OnDay != nil {
		e.OnDay(tick)
	}
	if tick%sim.TicksPerMonth == 0 && e.OnMonth != nil {
		e.OnMonth(tick)
	}
}

// WithRead runs fn holding the read lock. API handlers use this to take
// consistent snapshots while the loop keeps ticking.
func (e *Engine) WithRead(fn func(w *sim.World)) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	fn(e.World)
}

// WithWrite runs fn holding the write lock. Player commands arriving over
// the API mutate the world through this between ticks.
func (e *Engine) WithWrite(fn func(w *sim.World) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.World)
}
