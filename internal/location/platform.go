package location

import (
	"fmt"

	"github.com/DeivisonJohnny/velocimetro/internal/config"
)

// NewPlatform builds the Platform selected by LOCATION_SOURCE. The Feed is
// returned separately so its ingest routes can be mounted; it is nil for
// every other source. The "none" source yields a nil Platform, which the
// Adapter reports as unsupported.
func NewPlatform(cfg config.Config) (Platform, *Feed, error) {
	switch cfg.LocationSource {
	case "", "feed":
		feed := NewFeed()
		return feed, feed, nil
	case "simulator":
		route, err := ParseRoute(cfg.SimulatorRoute)
		if err != nil {
			return nil, nil, fmt.Errorf("simulator route: %w", err)
		}
		sim, err := NewSimulator(route, cfg.SimulatorSpeedMps, cfg.SimulatorInterval)
		if err != nil {
			return nil, nil, err
		}
		return sim, nil, nil
	case "none":
		return nil, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown location source %q", cfg.LocationSource)
	}
}
