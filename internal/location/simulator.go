package location

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/DeivisonJohnny/velocimetro/internal/shared/geo"
)

// Coordinate holds lat/lon
type Coordinate struct {
	Lat float64
	Lon float64
}

// ParseCoord parses a string like "12.9716,77.5946".
func ParseCoord(input string) (Coordinate, error) {
	parts := strings.Split(input, ",")
	if len(parts) != 2 {
		return Coordinate{}, fmt.Errorf("invalid coordinate: %s", input)
	}

	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return Coordinate{}, fmt.Errorf("invalid lat/lon: %s", input)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return Coordinate{}, fmt.Errorf("coordinate out of range: %s", input)
	}

	return Coordinate{Lat: lat, Lon: lon}, nil
}

// ParseRoute parses semicolon separated coordinates, "lat,lon;lat,lon".
func ParseRoute(input string) ([]Coordinate, error) {
	var route []Coordinate
	for _, part := range strings.Split(input, ";") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		c, err := ParseCoord(part)
		if err != nil {
			return nil, err
		}
		route = append(route, c)
	}
	if len(route) == 0 {
		return nil, errors.New("route has no coordinates")
	}
	return route, nil
}

// Simulator is a Platform that drives along a fixed route at a constant
// speed, emitting one fix per interval. Progress along the route survives
// watch restarts; once the last waypoint is reached it stays parked there
// reporting zero speed.
type Simulator struct {
	route    []Coordinate
	speedMps float64
	interval time.Duration

	mu      sync.Mutex
	pos     Coordinate
	segment int
	parked  bool
	now     func() time.Time
}

func NewSimulator(route []Coordinate, speedMps float64, interval time.Duration) (*Simulator, error) {
	if len(route) == 0 {
		return nil, errors.New("simulator route is empty")
	}
	if interval <= 0 {
		return nil, errors.New("simulator interval must be positive")
	}
	if speedMps < 0 {
		return nil, errors.New("simulator speed must not be negative")
	}
	return &Simulator{
		route:    route,
		speedMps: speedMps,
		interval: interval,
		pos:      route[0],
		parked:   len(route) == 1,
		now:      time.Now,
	}, nil
}

func (s *Simulator) QueryPermission(_ context.Context) (PermissionState, error) {
	return PermissionGranted, nil
}

func (s *Simulator) CurrentPosition(_ context.Context, _ Options) (Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sampleLocked(), nil
}

func (s *Simulator) WatchPosition(_ Options, onSample func(Sample), _ func(error)) (Watch, error) {
	w := &simWatch{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go func() {
		defer close(w.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-w.stop:
				return
			case <-ticker.C:
				onSample(s.step())
			}
		}
	}()
	return w, nil
}

// step advances one interval along the route and returns the new fix.
func (s *Simulator) step() Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advanceLocked(s.speedMps * s.interval.Seconds() / 1000)
	return s.sampleLocked()
}

func (s *Simulator) advanceLocked(km float64) {
	for km > 0 && !s.parked {
		next := s.route[s.segment+1]
		left := geo.HaversineKm(s.pos.Lat, s.pos.Lon, next.Lat, next.Lon)
		if km < left {
			frac := km / left
			s.pos = Coordinate{
				Lat: s.pos.Lat + (next.Lat-s.pos.Lat)*frac,
				Lon: s.pos.Lon + (next.Lon-s.pos.Lon)*frac,
			}
			return
		}
		km -= left
		s.pos = next
		s.segment++
		if s.segment >= len(s.route)-1 {
			s.parked = true
		}
	}
}

func (s *Simulator) sampleLocked() Sample {
	speed := s.speedMps
	if s.parked {
		speed = 0
	}
	return Sample{
		Lat:        s.pos.Lat,
		Lng:        s.pos.Lon,
		SpeedMps:   &speed,
		RecordedAt: s.now(),
	}
}

type simWatch struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func (w *simWatch) Stop() {
	w.once.Do(func() { close(w.stop) })
	<-w.done
}
