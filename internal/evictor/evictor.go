// Package evictor implements the probabilistic background active-expire
// loop, modeled on Redis's activeExpireCycle: on each tick, sample the
// keyspace, delete what has expired, and keep re-sampling while the
// expired fraction stays above a threshold.
package evictor

import (
	"time"

	"go.uber.org/atomic"

	"bader/internal/clock"
	"bader/internal/logging"
	"bader/internal/metrics"
)

// Store is the subset of storage.Store the Evictor needs. Keeping it as
// an interface (rather than depending on the concrete storage.Store type)
// keeps the eviction algorithm testable against fakes.
type Store interface {
	Sample() (key string, expiresAtMs int64, ok bool)
	DeleteIfExpired(key string, seenExpiresAtMs int64, nowMs int64) bool
	Len() int
}

// Evictor runs the outer tick/inner purge loop.
type Evictor struct {
	store      Store
	clock      clock.Clock
	metrics    *metrics.Metrics
	sampleSize int
	threshold  float64
	frequency  time.Duration

	purging atomic.Bool

	stop chan struct{}
	done chan struct{}
}

// New constructs an Evictor. sampleSize must be >= 1 and threshold must be
// in (0, 1); callers are expected to validate configuration before this
// point.
func New(store Store, clk clock.Clock, sampleSize int, threshold float64, frequency time.Duration, m *metrics.Metrics) *Evictor {
	return &Evictor{
		store:      store,
		clock:      clk,
		metrics:    m,
		sampleSize: sampleSize,
		threshold:  threshold,
		frequency:  frequency,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Run blocks, firing one tick every Frequency until Stop is called. It is
// meant to be launched in its own goroutine, for the life of the process.
func (e *Evictor) Run() {
	defer close(e.done)

	ticker := time.NewTicker(e.frequency)
	defer ticker.Stop()

	for {
		select {
		case <-e.stop:
			return
		case <-ticker.C:
			e.tick()
		}
	}
}

// Stop signals Run to exit and waits for it to do so.
func (e *Evictor) Stop() {
	close(e.stop)
	<-e.done
}

// Purging reports whether the Evictor is currently inside its inner
// sample-and-purge loop (vs. idle, waiting for the next tick boundary).
func (e *Evictor) Purging() bool {
	return e.purging.Load()
}

// tick runs one outer-loop iteration: repeat the inner sample/delete round
// until the expired fraction drops to or below the threshold, or the
// store runs dry.
func (e *Evictor) tick() {
	e.purging.Store(true)
	defer e.purging.Store(false)

	for {
		drawn, deleted := e.round()

		if e.metrics != nil {
			e.metrics.IncEvictorRound()
			e.metrics.AddEvictorSampled(drawn)
			e.metrics.AddEvictorExpired(deleted)
		}

		if deleted > 0 {
			logging.Debugf("evictor: round sampled=%d expired=%d", drawn, deleted)
		}

		fraction := 0.0
		if drawn > 0 {
			fraction = float64(deleted) / float64(drawn)
		}

		if fraction > e.threshold && e.store.Len() > 0 {
			continue
		}
		return
	}
}

// round draws up to sampleSize keys (with replacement) and conditionally
// deletes the ones that are expired, keying the delete on the exact
// expiry observed at sample time so a concurrent SET that extends the
// TTL between sample and delete is never clobbered.
func (e *Evictor) round() (drawn, deleted int) {
	for i := 0; i < e.sampleSize; i++ {
		key, expiresAt, ok := e.store.Sample()
		if !ok {
			break
		}
		drawn++

		now := e.clock.NowMs()
		if expiresAt != 0 && expiresAt <= now {
			if e.store.DeleteIfExpired(key, expiresAt, now) {
				deleted++
			}
		}
	}
	return drawn, deleted
}
