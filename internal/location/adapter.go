package location

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

const (
	ProbeTimeout  = 10 * time.Second
	UpdateTimeout = 5 * time.Second
)

// Platform is the geolocation capability of the host device.
type Platform interface {
	// QueryPermission reports the current permission state. Platforms that
	// cannot answer return ErrQueryUnsupported.
	QueryPermission(ctx context.Context) (PermissionState, error)
	// CurrentPosition resolves a single fix.
	CurrentPosition(ctx context.Context, opts Options) (Sample, error)
	// WatchPosition delivers fixes and read errors until the returned Watch
	// is stopped. Errors never end the watch.
	WatchPosition(opts Options, onSample func(Sample), onError func(error)) (Watch, error)
}

// Watch is a cancelable continuous-sampling handle. Stop returns only after
// delivery has ceased and is safe to call more than once.
type Watch interface {
	Stop()
}

// Adapter wraps a Platform with the permission handshake and subscription
// lifecycle used by the tracking engine. A nil platform means the device has
// no location capability at all.
type Adapter struct {
	platform Platform
}

func NewAdapter(platform Platform) *Adapter {
	return &Adapter{platform: platform}
}

func (a *Adapter) RequestPermission(ctx context.Context) error {
	if a.platform == nil {
		return ErrUnsupported
	}

	state, err := a.platform.QueryPermission(ctx)
	if err != nil {
		// indeterminate; the probe will either succeed or fail cleanly
		log.Printf("permission query unavailable, continuing: %v", err)
		return nil
	}
	if state == PermissionDenied {
		return ErrPermissionDenied
	}
	return nil
}

func (a *Adapter) VerifyAvailability(ctx context.Context) error {
	if a.platform == nil {
		return ErrUnsupported
	}

	ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	_, err := a.platform.CurrentPosition(ctx, Options{
		HighAccuracy: true,
		MaximumAge:   0,
		Timeout:      ProbeTimeout,
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		err = ErrTimeout
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	watch Watch
	once  sync.Once
}

func (a *Adapter) Subscribe(onSample func(Sample), onError func(error)) (*Subscription, error) {
	if a.platform == nil {
		return nil, ErrUnsupported
	}

	watch, err := a.platform.WatchPosition(Options{
		HighAccuracy: true,
		MaximumAge:   0,
		Timeout:      UpdateTimeout,
	}, onSample, onError)
	if err != nil {
		return nil, err
	}
	return &Subscription{watch: watch}, nil
}

func (a *Adapter) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	sub.once.Do(sub.watch.Stop)
}
