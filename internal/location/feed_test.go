package location

import (
	"context"
	"errors"
	"testing"
	"time"
)

func speed(v float64) *float64 { return &v }

func TestFeedCurrentPositionWaitsForFreshFix(t *testing.T) {
	feed := NewFeed()
	feed.Push(Sample{Lat: 1, Lng: 1})

	go func() {
		time.Sleep(10 * time.Millisecond)
		feed.Push(Sample{Lat: 2, Lng: 2})
	}()

	s, err := feed.CurrentPosition(context.Background(), Options{Timeout: time.Second})
	if err != nil {
		t.Fatalf("current position: %v", err)
	}
	if s.Lat != 2 {
		t.Fatalf("expected fresh fix, got cached %+v", s)
	}
}

func TestFeedCurrentPositionMaximumAge(t *testing.T) {
	feed := NewFeed()
	feed.Push(Sample{Lat: 1, Lng: 1})

	s, err := feed.CurrentPosition(context.Background(), Options{MaximumAge: time.Minute})
	if err != nil || s.Lat != 1 {
		t.Fatalf("expected cached fix, got %+v %v", s, err)
	}
}

func TestFeedCurrentPositionTimeout(t *testing.T) {
	feed := NewFeed()
	_, err := feed.CurrentPosition(context.Background(), Options{Timeout: 10 * time.Millisecond})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestFeedCurrentPositionContextCancel(t *testing.T) {
	feed := NewFeed()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := feed.CurrentPosition(ctx, Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
}

func TestFeedCurrentPositionFailure(t *testing.T) {
	feed := NewFeed()
	go func() {
		time.Sleep(10 * time.Millisecond)
		feed.Fail(ErrPositionUnavailable)
	}()
	if _, err := feed.CurrentPosition(context.Background(), Options{Timeout: time.Second}); !errors.Is(err, ErrPositionUnavailable) {
		t.Fatalf("expected position unavailable, got %v", err)
	}
}

func TestFeedDeniedPermission(t *testing.T) {
	feed := NewFeed()
	feed.SetPermission(PermissionDenied)

	state, err := feed.QueryPermission(context.Background())
	if err != nil || state != PermissionDenied {
		t.Fatalf("unexpected permission: %s %v", state, err)
	}
	if _, err := feed.CurrentPosition(context.Background(), Options{}); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected denied, got %v", err)
	}
}

func TestFeedPushGrantsPrompt(t *testing.T) {
	feed := NewFeed()
	feed.Push(Sample{})
	state, _ := feed.QueryPermission(context.Background())
	if state != PermissionGranted {
		t.Fatalf("expected granted after a fix, got %s", state)
	}
}

func TestFeedDisablePermissionQuery(t *testing.T) {
	feed := NewFeed()
	feed.DisablePermissionQuery()
	if _, err := feed.QueryPermission(context.Background()); !errors.Is(err, ErrQueryUnsupported) {
		t.Fatalf("expected query unsupported, got %v", err)
	}
}

func TestFeedWatchDeliversSamplesAndErrors(t *testing.T) {
	feed := NewFeed()
	samples := make(chan Sample, 4)
	errs := make(chan error, 4)

	w, err := feed.WatchPosition(Options{}, func(s Sample) { samples <- s }, func(err error) { errs <- err })
	if err != nil {
		t.Fatalf("watch: %v", err)
	}

	feed.Push(Sample{Lat: 1, Lng: 2, SpeedMps: speed(3)})
	select {
	case s := <-samples:
		if s.Lat != 1 || s.SpeedMps == nil || *s.SpeedMps != 3 {
			t.Fatalf("unexpected sample %+v", s)
		}
		if s.RecordedAt.IsZero() {
			t.Fatalf("expected timestamp to be filled")
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("timeout waiting for sample")
	}

	feed.Fail(ErrPositionUnavailable)
	select {
	case err := <-errs:
		if !errors.Is(err, ErrPositionUnavailable) {
			t.Fatalf("unexpected error %v", err)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("timeout waiting for error")
	}

	feed.Push(Sample{Lat: 5})
	select {
	case s := <-samples:
		if s.Lat != 5 {
			t.Fatalf("expected watch to continue after error")
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("watch ended after error")
	}

	w.Stop()
	w.Stop()
	feed.Push(Sample{Lat: 9})
	time.Sleep(20 * time.Millisecond)
	select {
	case s := <-samples:
		t.Fatalf("sample delivered after stop: %+v", s)
	default:
	}
}

func TestFeedWatchTimeoutKeepsWatching(t *testing.T) {
	feed := NewFeed()
	errs := make(chan error, 8)
	samples := make(chan Sample, 1)

	w, _ := feed.WatchPosition(Options{Timeout: 10 * time.Millisecond}, func(s Sample) { samples <- s }, func(err error) { errs <- err })
	defer w.Stop()

	select {
	case err := <-errs:
		if !errors.Is(err, ErrTimeout) {
			t.Fatalf("expected timeout, got %v", err)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("expected timeout error")
	}

	feed.Push(Sample{Lat: 1})
	select {
	case <-samples:
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("expected sample after timeout")
	}
}

func TestFeedWatchTimeoutRestartsOnEachEvent(t *testing.T) {
	feed := NewFeed()
	errs := make(chan error, 16)
	samples := make(chan Sample, 64)

	w, _ := feed.WatchPosition(Options{Timeout: 50 * time.Millisecond}, func(s Sample) { samples <- s }, func(err error) { errs <- err })
	defer w.Stop()

	for i := 0; i < 30; i++ {
		feed.Push(Sample{Lat: float64(i)})
		time.Sleep(5 * time.Millisecond)
	}
	select {
	case err := <-errs:
		t.Fatalf("unexpected error while fixes keep arriving: %v", err)
	default:
	}
	if len(samples) == 0 {
		t.Fatalf("expected samples")
	}

	// idle: the timeout keeps firing
	for i := 0; i < 2; i++ {
		select {
		case err := <-errs:
			if !errors.Is(err, ErrTimeout) {
				t.Fatalf("expected timeout, got %v", err)
			}
		case <-time.After(500 * time.Millisecond):
			t.Fatalf("expected timeout %d while idle", i+1)
		}
	}
}

func TestSampleCloneDetachesSpeed(t *testing.T) {
	s := Sample{SpeedMps: speed(1)}
	c := s.Clone()
	*c.SpeedMps = 2
	if *s.SpeedMps != 1 {
		t.Fatalf("clone shares speed")
	}
}
