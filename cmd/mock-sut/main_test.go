package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bonheur15/knowledge-bakeoff-bench/internal/database"
	"github.com/bonheur15/knowledge-bakeoff-bench/internal/dataset"
)

// fakeBackend is an in-memory database.Backend used to exercise the router
// without a live database connection.
type fakeBackend struct {
	aircraft map[string]database.AircraftRecord
	healthy  bool
	writes   []dataset.WritePayload
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{aircraft: map[string]database.AircraftRecord{}, healthy: true}
}

func (f *fakeBackend) Health(ctx context.Context) error {
	if !f.healthy {
		return errors.New("unhealthy")
	}
	return nil
}

func (f *fakeBackend) LookupAircraft(ctx context.Context, modeS string) (database.AircraftRecord, error) {
	r, ok := f.aircraft[modeS]
	if !ok {
		return database.AircraftRecord{}, database.ErrNotFound
	}
	return r, nil
}
func (f *fakeBackend) LookupVessel(ctx context.Context, mmsi string) (database.VesselRecord, error) {
	return database.VesselRecord{}, database.ErrNotFound
}
func (f *fakeBackend) AircraftByCountry(ctx context.Context, country string) ([]database.AircraftRecord, error) {
	return nil, nil
}
func (f *fakeBackend) ActivityByMMSI(ctx context.Context, mmsi string) ([]database.ActivityRecord, error) {
	return nil, nil
}
func (f *fakeBackend) CrossDomainByCountry(ctx context.Context, country string) (database.CrossDomainRecord, error) {
	return database.CrossDomainRecord{}, nil
}
func (f *fakeBackend) CrossDomainDeep(ctx context.Context, country string) (database.CrossDomainRecord, error) {
	return database.CrossDomainRecord{}, nil
}
func (f *fakeBackend) RecordActivity(ctx context.Context, payload dataset.WritePayload) error {
	f.writes = append(f.writes, payload)
	return nil
}
func (f *fakeBackend) RecordRelationship(ctx context.Context, payload dataset.WritePayload) error {
	f.writes = append(f.writes, payload)
	return nil
}
func (f *fakeBackend) Close() error { return nil }

func TestLastSegment(t *testing.T) {
	assert.Equal(t, "ABC123", lastSegment("/api/aircraft/mode_s/ABC123"))
	assert.Equal(t, "ABC123", lastSegment("/api/aircraft/mode_s/ABC123/"))
	assert.Equal(t, "", lastSegment("noSlash"))
}

func TestHealthEndpointReflectsBackendHealth(t *testing.T) {
	b := newFakeBackend()
	router := newRouter(b, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	b.healthy = false
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLookupAircraftReturns404WhenMissing(t *testing.T) {
	b := newFakeBackend()
	router := newRouter(b, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/aircraft/mode_s/UNKNOWN", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLookupAircraftReturns200WhenFound(t *testing.T) {
	b := newFakeBackend()
	b.aircraft["ABC123"] = database.AircraftRecord{ModeS: "ABC123", Country: "USA", Model: "737"}
	router := newRouter(b, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/aircraft/mode_s/ABC123", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "USA")
}

func TestWriteHandlerRejectsWrongMethodAndBadBody(t *testing.T) {
	b := newFakeBackend()
	router := newRouter(b, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/activity/log", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/activity/log", strings.NewReader("not json"))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWriteHandlerAcceptsValidPayload(t *testing.T) {
	b := newFakeBackend()
	router := newRouter(b, zerolog.Nop())

	body := `{"track_id":"t1","event_type":"activity_detected","domain":"AIR","mode_s":"ABC123","activity_type":"benchmark_test"}`
	req := httptest.NewRequest(http.MethodPost, "/api/activity/log", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, b.writes, 1)
	assert.Equal(t, "t1", b.writes[0].TrackID)
}
