package tracking

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/DeivisonJohnny/velocimetro/internal/location"
	"github.com/DeivisonJohnny/velocimetro/internal/shared/geo"

	"github.com/google/uuid"
)

// Source is the location side the engine drives. *location.Adapter
// satisfies it.
type Source interface {
	RequestPermission(ctx context.Context) error
	VerifyAvailability(ctx context.Context) error
	Subscribe(onSample func(location.Sample), onError func(error)) (*location.Subscription, error)
	Unsubscribe(sub *location.Subscription)
}

// Engine owns the tracking state machine and its derived metrics.
//
// Samples arrive on the source's delivery goroutine and intents on request
// goroutines; both are serialized on mu. Each subscription is tagged with a
// run number so a sample that was in flight when the run ended is dropped.
type Engine struct {
	source Source

	mu           sync.Mutex
	state        session
	sub          *location.Subscription
	run          uint64
	starting     bool
	startAborted bool
	cancelStart  context.CancelFunc
	teardown     chan struct{}
	version      uint64
	updatedAt    time.Time
	observers    []func(Snapshot)
	now          func() time.Time
}

func NewEngine(source Source) *Engine {
	e := &Engine{
		source: source,
		state:  session{status: StatusIdle},
		now:    time.Now,
	}
	e.updatedAt = e.now()
	return e
}

// OnChange registers fn to receive every new snapshot, in mutation order.
// fn runs with the engine locked: it must not block or call back into the
// engine.
func (e *Engine) OnChange(fn func(Snapshot)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, fn)
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Start runs the permission handshake and availability probe and, when both
// succeed, subscribes to continuous sampling. It is a no-op while tracking or
// while another start is in flight. Failures are reported in the snapshot.
func (e *Engine) Start(ctx context.Context) Snapshot {
	e.mu.Lock()
	if e.state.status == StatusTracking || e.starting {
		snap := e.snapshotLocked()
		e.mu.Unlock()
		return snap
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.starting = true
	e.startAborted = false
	e.cancelStart = cancel
	teardown := e.teardown
	e.changedLocked()
	e.mu.Unlock()

	if teardown != nil {
		<-teardown
	}

	err := e.source.RequestPermission(ctx)
	if err == nil {
		err = e.source.VerifyAvailability(ctx)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.starting = false
	e.cancelStart = nil
	if e.startAborted {
		e.startAborted = false
		log.Printf("tracking start aborted")
		e.changedLocked()
		return e.snapshotLocked()
	}
	if err != nil {
		return e.failStartLocked(err)
	}

	e.run++
	run := e.run
	sub, err := e.source.Subscribe(
		func(s location.Sample) { e.handleSample(run, s) },
		func(err error) { e.handleError(run, err) },
	)
	if err != nil {
		return e.failStartLocked(err)
	}

	e.sub = sub
	e.state.status = StatusTracking
	e.state.runID = uuid.NewString()
	e.state.lastError = location.KindNone
	e.state.lastSample = nil
	e.state.currentKmh = 0
	log.Printf("tracking started run=%s", e.state.runID)
	e.changedLocked()
	return e.snapshotLocked()
}

func (e *Engine) failStartLocked(err error) Snapshot {
	e.state.lastError = location.KindOf(err)
	log.Printf("tracking start failed: %v", err)
	e.changedLocked()
	return e.snapshotLocked()
}

// Stop ends the current run. Max speed and distance are kept until Reset.
// When Stop returns no further samples of the run will be applied.
func (e *Engine) Stop() Snapshot {
	e.mu.Lock()
	if e.starting {
		e.startAborted = true
		e.cancelStart()
	}
	if e.state.status != StatusTracking {
		snap := e.snapshotLocked()
		e.mu.Unlock()
		return snap
	}

	sub := e.sub
	teardown := make(chan struct{})
	e.sub = nil
	e.teardown = teardown
	e.run++
	e.state.status = StatusIdle
	e.state.currentKmh = 0
	e.state.lastSample = nil
	log.Printf("tracking stopped run=%s max=%dkm/h distance=%.2fkm", e.state.runID, e.state.maxKmh, e.state.distanceKm)
	e.changedLocked()
	snap := e.snapshotLocked()
	e.mu.Unlock()

	// the delivery goroutine may be waiting on mu, so unsubscribe unlocked
	e.source.Unsubscribe(sub)
	close(teardown)

	e.mu.Lock()
	if e.teardown == teardown {
		e.teardown = nil
	}
	e.mu.Unlock()
	return snap
}

// Reset zeroes the metrics. It is ignored while tracking.
func (e *Engine) Reset() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.status == StatusTracking {
		return e.snapshotLocked()
	}
	e.state.currentKmh = 0
	e.state.maxKmh = 0
	e.state.distanceKm = 0
	e.state.lastSample = nil
	e.changedLocked()
	return e.snapshotLocked()
}

func (e *Engine) handleSample(run uint64, s location.Sample) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if run != e.run || e.state.status != StatusTracking {
		return
	}

	e.state.lastError = location.KindNone

	kmh := SpeedKmh(s.SpeedMps)
	e.state.currentKmh = kmh
	if kmh > e.state.maxKmh {
		e.state.maxKmh = kmh
	}

	if prev := e.state.lastSample; prev != nil {
		e.state.distanceKm += geo.HaversineKm(prev.Lat, prev.Lng, s.Lat, s.Lng)
	}
	last := s.Clone()
	e.state.lastSample = &last

	e.changedLocked()
}

func (e *Engine) handleError(run uint64, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if run != e.run || e.state.status != StatusTracking {
		return
	}
	log.Printf("location read failed run=%s: %v", e.state.runID, err)
	e.state.lastError = location.KindReadFailure
	e.changedLocked()
}

func (e *Engine) changedLocked() {
	e.version++
	e.updatedAt = e.now()
	if len(e.observers) == 0 {
		return
	}
	snap := e.snapshotLocked()
	for _, fn := range e.observers {
		fn(snap)
	}
}

func (e *Engine) snapshotLocked() Snapshot {
	snap := Snapshot{
		Status:          e.state.status,
		Starting:        e.starting,
		RunID:           e.state.runID,
		CurrentSpeedKmh: e.state.currentKmh,
		MaxSpeedKmh:     e.state.maxKmh,
		DistanceKm:      e.state.distanceKm,
		GaugePercent:    GaugePercent(e.state.currentKmh),
		ErrorKind:       e.state.lastError,
		Error:           e.state.lastError.Message(),
		Version:         e.version,
		UpdatedAt:       e.updatedAt,
	}
	if e.state.lastSample != nil {
		last := e.state.lastSample.Clone()
		snap.LastSample = &last
	}
	return snap
}
