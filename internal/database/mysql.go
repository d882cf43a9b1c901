package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/bonheur15/knowledge-bakeoff-bench/internal/dataset"
)

// MySQLBackend answers catalogue endpoints from the same logical schema as
// PostgresBackend, expressed with database/sql placeholders.
type MySQLBackend struct {
	db *sql.DB
}

// NewMySQLBackend opens dsn and ensures the benchmark schema exists.
func NewMySQLBackend(ctx context.Context, dsn string) (*MySQLBackend, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("database: opening mysql: %w", err)
	}
	b := &MySQLBackend{db: db}
	if err := b.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

func (b *MySQLBackend) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS aircraft (
			mode_s VARCHAR(16) PRIMARY KEY, country VARCHAR(64) NOT NULL, model VARCHAR(64) NOT NULL,
			INDEX idx_aircraft_country (country)
		)`,
		`CREATE TABLE IF NOT EXISTS vessels (
			mmsi VARCHAR(16) PRIMARY KEY, country VARCHAR(64) NOT NULL, name VARCHAR(128) NOT NULL,
			INDEX idx_vessels_country (country)
		)`,
		`CREATE TABLE IF NOT EXISTS activity_log (
			track_id VARCHAR(64) PRIMARY KEY, event_type VARCHAR(32) NOT NULL, domain VARCHAR(32) NOT NULL,
			mode_s VARCHAR(16), mmsi VARCHAR(16), activity_type VARCHAR(32) NOT NULL, recorded_at DATETIME NOT NULL,
			INDEX idx_activity_mmsi (mmsi)
		)`,
		`CREATE TABLE IF NOT EXISTS relationships (
			track_id VARCHAR(64) PRIMARY KEY, mode_s VARCHAR(16), mmsi VARCHAR(16),
			activity_type VARCHAR(32) NOT NULL, recorded_at DATETIME NOT NULL
		)`,
	}
	for _, s := range stmts {
		if _, err := b.db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("database: migrating mysql schema: %w", err)
		}
	}
	return nil
}

func (b *MySQLBackend) Health(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

func (b *MySQLBackend) LookupAircraft(ctx context.Context, modeS string) (AircraftRecord, error) {
	var r AircraftRecord
	err := b.db.QueryRowContext(ctx, `SELECT mode_s, country, model FROM aircraft WHERE mode_s = ?`, modeS).
		Scan(&r.ModeS, &r.Country, &r.Model)
	if errors.Is(err, sql.ErrNoRows) {
		return AircraftRecord{}, ErrNotFound
	}
	return r, err
}

func (b *MySQLBackend) LookupVessel(ctx context.Context, mmsi string) (VesselRecord, error) {
	var r VesselRecord
	err := b.db.QueryRowContext(ctx, `SELECT mmsi, country, name FROM vessels WHERE mmsi = ?`, mmsi).
		Scan(&r.MMSI, &r.Country, &r.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return VesselRecord{}, ErrNotFound
	}
	return r, err
}

func (b *MySQLBackend) AircraftByCountry(ctx context.Context, country string) ([]AircraftRecord, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT mode_s, country, model FROM aircraft WHERE country = ?`, country)
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

func (b *MySQLBackend) ActivityByMMSI(ctx context.Context, mmsi string) ([]ActivityRecord, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT track_id, event_type, domain, mode_s, mmsi, activity_type, recorded_at
		FROM activity_log WHERE mmsi = ? ORDER BY recorded_at DESC`, mmsi)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanActivitySQLRows(rows)
}

func scanActivitySQLRows(rows *sql.Rows) ([]ActivityRecord, error) {
	var out []ActivityRecord
	for rows.Next() {
		var r ActivityRecord
		var modeS, mmsi sql.NullString
		if err := rows.Scan(&r.TrackID, &r.EventType, &r.Domain, &modeS, &mmsi, &r.ActivityType, &r.RecordedAt); err != nil {
			return nil, err
		}
		r.ModeS = modeS.String
		r.MMSI = mmsi.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func (b *MySQLBackend) CrossDomainByCountry(ctx context.Context, country string) (CrossDomainRecord, error) {
	return b.crossDomain(ctx, country, false)
}

func (b *MySQLBackend) CrossDomainDeep(ctx context.Context, country string) (CrossDomainRecord, error) {
	return b.crossDomain(ctx, country, true)
}

func (b *MySQLBackend) crossDomain(ctx context.Context, country string, deep bool) (CrossDomainRecord, error) {
	aircraft, err := b.AircraftByCountry(ctx, country)
	if err != nil || len(aircraft) == 0 {
		return CrossDomainRecord{}, err
	}
	rec := CrossDomainRecord{Aircraft: aircraft[0]}

	rows, err := b.db.QueryContext(ctx, `SELECT track_id, event_type, domain, mode_s, mmsi, activity_type, recorded_at
		FROM activity_log WHERE mode_s = ? ORDER BY recorded_at DESC LIMIT 25`, rec.Aircraft.ModeS)
	if err != nil {
		return CrossDomainRecord{}, err
	}
	activity, err := scanActivitySQLRows(rows)
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
			if extra, err := b.AircraftByCountry(ctx, v.Country); err == nil {
				rec.RelatedAircraft = append(rec.RelatedAircraft, extra...)
			}
		}
	}

	return rec, nil
}

func (b *MySQLBackend) RecordActivity(ctx context.Context, payload dataset.WritePayload) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT IGNORE INTO activity_log (track_id, event_type, domain, mode_s, mmsi, activity_type, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		payload.TrackID, payload.EventType, payload.Domain, nullStrIfEmpty(payload.ModeS), nullStrIfEmpty(payload.MMSI),
		payload.ActivityType, time.Now())
	return err
}

func (b *MySQLBackend) RecordRelationship(ctx context.Context, payload dataset.WritePayload) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT IGNORE INTO relationships (track_id, mode_s, mmsi, activity_type, recorded_at)
		VALUES (?, ?, ?, ?, ?)`,
		payload.TrackID, nullStrIfEmpty(payload.ModeS), nullStrIfEmpty(payload.MMSI), payload.ActivityType, time.Now())
	return err
}

func (b *MySQLBackend) Close() error {
	return b.db.Close()
}

func nullStrIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
