package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bonheur15/knowledge-bakeoff-bench/internal/dataset"
)

// PostgresBackend answers catalogue endpoints from a Postgres schema of
// aircraft, vessels, activity_log, and relationships tables.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgresBackend connects to dsn and ensures the benchmark schema
// exists.
func NewPostgresBackend(ctx context.Context, dsn string) (*PostgresBackend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("database: connecting postgres: %w", err)
	}
	b := &PostgresBackend{pool: pool}
	if err := b.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return b, nil
}

func (b *PostgresBackend) migrate(ctx context.Context) error {
	_, err := b.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS aircraft (
			mode_s TEXT PRIMARY KEY, country TEXT NOT NULL, model TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS vessels (
			mmsi TEXT PRIMARY KEY, country TEXT NOT NULL, name TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS activity_log (
			track_id TEXT PRIMARY KEY, event_type TEXT NOT NULL, domain TEXT NOT NULL,
			mode_s TEXT, mmsi TEXT, activity_type TEXT NOT NULL, recorded_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS relationships (
			track_id TEXT PRIMARY KEY, mode_s TEXT, mmsi TEXT, activity_type TEXT NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_aircraft_country ON aircraft(country);
		CREATE INDEX IF NOT EXISTS idx_vessels_country ON vessels(country);
		CREATE INDEX IF NOT EXISTS idx_activity_mmsi ON activity_log(mmsi);
	`)
	if err != nil {
		return fmt.Errorf("database: migrating postgres schema: %w", err)
	}
	return nil
}

func (b *PostgresBackend) Health(ctx context.Context) error {
	return b.pool.Ping(ctx)
}

func (b *PostgresBackend) LookupAircraft(ctx context.Context, modeS string) (AircraftRecord, error) {
	var r AircraftRecord
	err := b.pool.QueryRow(ctx, `SELECT mode_s, country, model FROM aircraft WHERE mode_s = $1`, modeS).
		Scan(&r.ModeS, &r.Country, &r.Model)
	if errors.Is(err, pgx.ErrNoRows) {
		return AircraftRecord{}, ErrNotFound
	}
	return r, err
}

func (b *PostgresBackend) LookupVessel(ctx context.Context, mmsi string) (VesselRecord, error) {
	var r VesselRecord
	err := b.pool.QueryRow(ctx, `SELECT mmsi, country, name FROM vessels WHERE mmsi = $1`, mmsi).
		Scan(&r.MMSI, &r.Country, &r.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return VesselRecord{}, ErrNotFound
	}
	return r, err
}

func (b *PostgresBackend) AircraftByCountry(ctx context.Context, country string) ([]AircraftRecord, error) {
	rows, err := b.pool.Query(ctx, `SELECT mode_s, country, model FROM aircraft WHERE country = $1`, country)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AircraftRecord
	for rows.Next() {
		var r AircraftRecord
		if err := rows.Scan(&r.ModeS, &r.Country, &r.Model); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (b *PostgresBackend) ActivityByMMSI(ctx context.Context, mmsi string) ([]ActivityRecord, error) {
	rows, err := b.pool.Query(ctx, `SELECT track_id, event_type, domain, mode_s, mmsi, activity_type, recorded_at
		FROM activity_log WHERE mmsi = $1 ORDER BY recorded_at DESC`, mmsi)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanActivityRows(rows)
}

type pgxRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanActivityRows(rows pgxRows) ([]ActivityRecord, error) {
	var out []ActivityRecord
	for rows.Next() {
		var r ActivityRecord
		var modeS, mmsi *string
		if err := rows.Scan(&r.TrackID, &r.EventType, &r.Domain, &modeS, &mmsi, &r.ActivityType, &r.RecordedAt); err != nil {
			return nil, err
		}
		if modeS != nil {
			r.ModeS = *modeS
		}
		if mmsi != nil {
			r.MMSI = *mmsi
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CrossDomainByCountry is the three-hop query: country -> the first aircraft
// in that country -> its 25 most recent activity_log rows -> vessels those
// activity rows reference.
func (b *PostgresBackend) CrossDomainByCountry(ctx context.Context, country string) (CrossDomainRecord, error) {
	return b.crossDomain(ctx, country, false)
}

// CrossDomainDeep extends CrossDomainByCountry with a further hop: the
// aircraft sharing a country with any vessel the three-hop found, the
// six-hop traversal.
func (b *PostgresBackend) CrossDomainDeep(ctx context.Context, country string) (CrossDomainRecord, error) {
	return b.crossDomain(ctx, country, true)
}

func (b *PostgresBackend) crossDomain(ctx context.Context, country string, deep bool) (CrossDomainRecord, error) {
	aircraft, err := b.AircraftByCountry(ctx, country)
	if err != nil || len(aircraft) == 0 {
		return CrossDomainRecord{}, err
	}
	rec := CrossDomainRecord{Aircraft: aircraft[0]}

	rows, err := b.pool.Query(ctx, `SELECT track_id, event_type, domain, mode_s, mmsi, activity_type, recorded_at
		FROM activity_log WHERE mode_s = $1 ORDER BY recorded_at DESC LIMIT 25`, rec.Aircraft.ModeS)
	if err != nil {
		return CrossDomainRecord{}, err
	}
	activity, err := scanActivityRows(rows)
	rows.Close()
	if err != nil {
		return CrossDomainRecord{}, err
	}
	rec.Activity = activity

	mmsiSeen := map[string]bool{}
	for _, a := range activity {
		if a.MMSI != "" {
			mmsiSeen[a.MMSI] = true
		}
	}
	for mmsi := range mmsiSeen {
		if v, err := b.LookupVessel(ctx, mmsi); err == nil {
			rec.Vessels = append(rec.Vessels, v)
		}
	}

	if deep {
		countrySeen := map[string]bool{}
		for _, v := range rec.Vessels {
			if countrySeen[v.Country] {
				continue
			}
			countrySeen[v.Country] = true
			extra, err := b.AircraftByCountry(ctx, v.Country)
			if err == nil {
				rec.RelatedAircraft = append(rec.RelatedAircraft, extra...)
			}
		}
	}

	return rec, nil
}

func (b *PostgresBackend) RecordActivity(ctx context.Context, payload dataset.WritePayload) error {
	_, err := b.pool.Exec(ctx, `
		INSERT INTO activity_log (track_id, event_type, domain, mode_s, mmsi, activity_type, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (track_id) DO NOTHING`,
		payload.TrackID, payload.EventType, payload.Domain, nullIfEmpty(payload.ModeS), nullIfEmpty(payload.MMSI),
		payload.ActivityType, time.Now())
	return err
}

func (b *PostgresBackend) RecordRelationship(ctx context.Context, payload dataset.WritePayload) error {
	_, err := b.pool.Exec(ctx, `
		INSERT INTO relationships (track_id, mode_s, mmsi, activity_type, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (track_id) DO NOTHING`,
		payload.TrackID, nullIfEmpty(payload.ModeS), nullIfEmpty(payload.MMSI), payload.ActivityType, time.Now())
	return err
}

func (b *PostgresBackend) Close() error {
	b.pool.Close()
	return nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
