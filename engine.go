package goAccount

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goAccount/internal/audit"
	"github.com/MrEthical07/goAccount/internal/rate"
	"github.com/MrEthical07/goAccount/internal/stores"
	"github.com/MrEthical07/goAccount/jwt"
	"github.com/MrEthical07/goAccount/password"
	"github.com/rs/zerolog"
)

// Engine runs the account lifecycle: registration, email verification, login,
// token refresh, logout and profile maintenance.
//
// An Engine is built once by a Builder, is safe for concurrent use, and is
// torn down with Close. It does not own the Redis client or the UserStore;
// the caller closes those after Close returns.
type Engine struct {
	config   Config
	users    UserStore
	mailer   Mailer
	bindings *stores.BindingStore
	limiter  *rate.Limiter
	hasher   *password.Bcrypt
	tokens   *jwt.Manager
	audit    *audit.Dispatcher
	metrics  *Metrics
	logger   zerolog.Logger
	now      func() time.Time

	closed    atomic.Bool
	closeOnce sync.Once
}

// Close flushes pending audit events and marks the Engine unusable.
// It is safe to call more than once.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		if e.audit != nil {
			e.audit.Close()
		}
	})
}

func (e *Engine) ready() error {
	if e == nil || e.closed.Load() || e.users == nil || e.bindings == nil ||
		e.hasher == nil || e.tokens == nil {
		return ErrEngineNotReady
	}
	return nil
}

// AuditDropped reports audit events lost to dispatcher backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns the current counter values.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:      map[MetricID]uint64{},
			Histograms:    map[MetricID][]uint64{},
			HistogramSums: map[MetricID]time.Duration{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) clock() time.Time {
	if e.now == nil {
		return time.Now().UTC()
	}
	return e.now().UTC()
}
