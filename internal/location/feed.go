package location

import (
	"context"
	"sync"
	"time"
)

type feedEvent struct {
	sample Sample
	err    error
}

// Feed is a push-based Platform. Whatever owns the real sensor (a phone
// posting fixes, a serial reader, a test) pushes fixes and read errors into
// it and the Feed fans them out to the pending one-shot requests and
// continuous watchers.
type Feed struct {
	mu         sync.Mutex
	permission PermissionState
	queryable  bool
	last       *Sample
	lastAt     time.Time
	waiters    map[chan feedEvent]struct{}
	watchers   map[*feedWatch]struct{}
	now        func() time.Time
}

func NewFeed() *Feed {
	return &Feed{
		permission: PermissionPrompt,
		queryable:  true,
		waiters:    map[chan feedEvent]struct{}{},
		watchers:   map[*feedWatch]struct{}{},
		now:        time.Now,
	}
}

func (f *Feed) SetPermission(state PermissionState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.permission = state
}

// DisablePermissionQuery makes QueryPermission fail the way platforms
// without a permissions API do.
func (f *Feed) DisablePermissionQuery() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryable = false
}

func (f *Feed) Push(s Sample) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if s.RecordedAt.IsZero() {
		s.RecordedAt = f.now()
	}
	stored := s.Clone()
	f.last = &stored
	f.lastAt = f.now()
	// a device that delivers fixes has been granted access
	if f.permission == PermissionPrompt {
		f.permission = PermissionGranted
	}
	f.dispatch(feedEvent{sample: s})
}

// Fail reports a failed read to every pending request and watcher.
func (f *Feed) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dispatch(feedEvent{err: err})
}

func (f *Feed) dispatch(ev feedEvent) {
	for ch := range f.waiters {
		select {
		case ch <- ev:
		default:
		}
		delete(f.waiters, ch)
	}
	for w := range f.watchers {
		ev := ev
		ev.sample = ev.sample.Clone()
		select {
		case w.events <- ev:
		default:
		}
	}
}

func (f *Feed) QueryPermission(_ context.Context) (PermissionState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.queryable {
		return "", ErrQueryUnsupported
	}
	return f.permission, nil
}

func (f *Feed) CurrentPosition(ctx context.Context, opts Options) (Sample, error) {
	f.mu.Lock()
	if f.permission == PermissionDenied {
		f.mu.Unlock()
		return Sample{}, ErrPermissionDenied
	}
	if opts.MaximumAge > 0 && f.last != nil && f.now().Sub(f.lastAt) <= opts.MaximumAge {
		s := f.last.Clone()
		f.mu.Unlock()
		return s, nil
	}
	ch := make(chan feedEvent, 1)
	f.waiters[ch] = struct{}{}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		delete(f.waiters, ch)
		f.mu.Unlock()
	}()

	var timeout <-chan time.Time
	if opts.Timeout > 0 {
		timer := time.NewTimer(opts.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case ev := <-ch:
		return ev.sample, ev.err
	case <-timeout:
		return Sample{}, ErrTimeout
	case <-ctx.Done():
		return Sample{}, ctx.Err()
	}
}

func (f *Feed) WatchPosition(opts Options, onSample func(Sample), onError func(error)) (Watch, error) {
	w := &feedWatch{
		feed:    f,
		timeout: opts.Timeout,
		events:  make(chan feedEvent, 16),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	f.mu.Lock()
	f.watchers[w] = struct{}{}
	f.mu.Unlock()

	go w.run(onSample, onError)
	return w, nil
}

type feedWatch struct {
	feed    *Feed
	timeout time.Duration
	events  chan feedEvent
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func (w *feedWatch) run(onSample func(Sample), onError func(error)) {
	defer close(w.done)

	var timer *time.Timer
	var timeout <-chan time.Time
	if w.timeout > 0 {
		timer = time.NewTimer(w.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		select {
		case <-w.stop:
			return
		case ev := <-w.events:
			select {
			case <-w.stop:
				return
			default:
			}
			if timer != nil {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.timeout)
			}
			if ev.err != nil {
				onError(ev.err)
			} else {
				onSample(ev.sample)
			}
		case <-timeout:
			timer.Reset(w.timeout)
			onError(ErrTimeout)
		}
	}
}

// Stop must not be called from inside the watch callbacks.
func (w *feedWatch) Stop() {
	w.once.Do(func() {
		w.feed.mu.Lock()
		delete(w.feed.watchers, w)
		w.feed.mu.Unlock()
		close(w.stop)
	})
	<-w.done
}
