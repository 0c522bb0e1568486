package tracking

import (
	"time"

	"github.com/DeivisonJohnny/velocimetro/internal/location"
)

type Status string

const (
	StatusIdle     Status = "idle"
	StatusTracking Status = "tracking"
)

// GaugeFullScaleKmh is the speed at which a gauge renderer reads 100%.
const GaugeFullScaleKmh = 200

// Snapshot is a read-only copy of the engine state. Every mutation produces a
// new snapshot with a higher Version.
type Snapshot struct {
	Status          Status             `json:"status"`
	Starting        bool               `json:"starting"`
	RunID           string             `json:"run_id,omitempty"`
	CurrentSpeedKmh int                `json:"current_speed_kmh"`
	MaxSpeedKmh     int                `json:"max_speed_kmh"`
	DistanceKm      float64            `json:"distance_km"`
	GaugePercent    float64            `json:"gauge_percent"`
	LastSample      *location.Sample   `json:"last_sample,omitempty"`
	ErrorKind       location.ErrorKind `json:"error_kind,omitempty"`
	Error           string             `json:"error,omitempty"`
	Version         uint64             `json:"version"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

type session struct {
	status     Status
	runID      string
	currentKmh int
	maxKmh     int
	distanceKm float64
	lastSample *location.Sample
	lastError  location.ErrorKind
}
