// Package database adapts the three drivers a system-under-test might run
// on (Postgres, MySQL, MongoDB) into the small Backend surface cmd/mock-sut
// needs to answer the benchmark's catalogue endpoints. It exists to
// exercise the driver dependencies the harness compares, not as part of
// the benchmark core, which never talks to a database directly.
package database

import (
	"context"
	"errors"
	"time"

	"github.com/bonheur15/knowledge-bakeoff-bench/internal/dataset"
)

// ErrNotFound is returned by lookups that find no matching row.
var ErrNotFound = errors.New("database: not found")

// AircraftRecord is one row of the aircraft table.
type AircraftRecord struct {
	ModeS   string `json:"mode_s"`
	Country string `json:"country"`
	Model   string `json:"model"`
}

// VesselRecord is one row of the vessels table.
type VesselRecord struct {
	MMSI    string `json:"mmsi"`
	Country string `json:"country"`
	Name    string `json:"name"`
}

// ActivityRecord is one row of the activity_log table, the two-hop/
// three-hop join target between aircraft and vessels.
type ActivityRecord struct {
	TrackID      string    `json:"track_id"`
	EventType    string    `json:"event_type"`
	Domain       string    `json:"domain"`
	ModeS        string    `json:"mode_s,omitempty"`
	MMSI         string    `json:"mmsi,omitempty"`
	ActivityType string    `json:"activity_type"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// CrossDomainRecord pairs an aircraft observation with the vessel activity
// it correlates to, the shape returned by the three-hop and six-hop
// endpoints.
type CrossDomainRecord struct {
	Aircraft AircraftRecord   `json:"aircraft"`
	Activity []ActivityRecord `json:"activity"`
	Vessels  []VesselRecord   `json:"vessels"`
	// RelatedAircraft is populated only by the six-hop deep traversal: the
	// aircraft sharing a country with one of Vessels.
	RelatedAircraft []AircraftRecord `json:"related_aircraft,omitempty"`
}

// Backend is the domain surface every driver adapts to. Method names match
// the catalogue's QueryKind ids so cmd/mock-sut can dispatch by reflection-
// free direct calls.
type Backend interface {
	Health(ctx context.Context) error

	LookupAircraft(ctx context.Context, modeS string) (AircraftRecord, error)
	LookupVessel(ctx context.Context, mmsi string) (VesselRecord, error)
	AircraftByCountry(ctx context.Context, country string) ([]AircraftRecord, error)
	ActivityByMMSI(ctx context.Context, mmsi string) ([]ActivityRecord, error)
	CrossDomainByCountry(ctx context.Context, country string) (CrossDomainRecord, error)
	CrossDomainDeep(ctx context.Context, country string) (CrossDomainRecord, error)

	RecordActivity(ctx context.Context, payload dataset.WritePayload) error
	RecordRelationship(ctx context.Context, payload dataset.WritePayload) error

	Close() error
}
