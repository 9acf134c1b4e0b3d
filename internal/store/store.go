// Package store maintains the sqlite index of uploaded flight logs and their
// computed summaries. The parse/plot core never touches this package; it is
// the collaborator-side persistence spec'd around the core.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/skylark-data/flightdeck/internal/series"
)

// ErrNotFound reports a log id that is not in the index.
var ErrNotFound = errors.New("store: log not found")

// DB wraps the sqlite handle for the log index.
type DB struct {
	*sql.DB
}

// Open opens (creating if needed) the index database at path. Run MigrateUp
// before first use.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// sqlite allows one writer; uploads and summary writes are rare enough
	// that serializing on a single connection is simpler than busy retries.
	db.SetMaxOpenConns(1)
	return &DB{db}, nil
}

// LogRecord is one indexed upload.
type LogRecord struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	Path       string    `json:"-"`
	SizeBytes  int64     `json:"size_bytes"`
	UploadedAt time.Time `json:"uploaded_at"`
	DurationS  float64   `json:"duration_s"`
	SysName    string    `json:"sys_name,omitempty"`
	VerSW      string    `json:"ver_sw,omitempty"`
	VerHW      string    `json:"ver_hw,omitempty"`
}

// InsertLog records a new upload.
func (db *DB) InsertLog(rec LogRecord) error {
	_, err := db.Exec(
		`INSERT INTO logs (id, filename, path, size_bytes, uploaded_at, duration_s, sys_name, ver_sw, ver_hw)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Filename, rec.Path, rec.SizeBytes, rec.UploadedAt.UTC(),
		rec.DurationS, rec.SysName, rec.VerSW, rec.VerHW,
	)
	if err != nil {
		return fmt.Errorf("store: insert log %s: %w", rec.ID, err)
	}
	return nil
}

// Logs returns all indexed logs, newest upload first.
func (db *DB) Logs() ([]LogRecord, error) {
	rows, err := db.Query(
		`SELECT id, filename, path, size_bytes, uploaded_at, duration_s, sys_name, ver_sw, ver_hw
		 FROM logs ORDER BY uploaded_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: list logs: %w", err)
	}
	defer rows.Close()

	var logs []LogRecord
	for rows.Next() {
		var rec LogRecord
		if err := rows.Scan(&rec.ID, &rec.Filename, &rec.Path, &rec.SizeBytes,
			&rec.UploadedAt, &rec.DurationS, &rec.SysName, &rec.VerSW, &rec.VerHW); err != nil {
			return nil, fmt.Errorf("store: scan log: %w", err)
		}
		logs = append(logs, rec)
	}
	return logs, rows.Err()
}

// LogByID looks up one indexed log.
func (db *DB) LogByID(id string) (*LogRecord, error) {
	var rec LogRecord
	err := db.QueryRow(
		`SELECT id, filename, path, size_bytes, uploaded_at, duration_s, sys_name, ver_sw, ver_hw
		 FROM logs WHERE id = ?`, id).
		Scan(&rec.ID, &rec.Filename, &rec.Path, &rec.SizeBytes,
			&rec.UploadedAt, &rec.DurationS, &rec.SysName, &rec.VerSW, &rec.VerHW)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: log %s: %w", id, err)
	}
	return &rec, nil
}

// UpsertSummary stores the flight summary for a log. Omitted statistics
// persist as NULL, mirroring the per-statistic omission policy.
func (db *DB) UpsertSummary(logID string, s series.FlightSummary) error {
	_, err := db.Exec(
		`INSERT INTO flight_summaries
		   (log_id, distance_m, max_altitude_m, max_speed_mps, avg_speed_mps, max_climb_mps, max_descent_mps, max_tilt_deg)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(log_id) DO UPDATE SET
		   distance_m = excluded.distance_m,
		   max_altitude_m = excluded.max_altitude_m,
		   max_speed_mps = excluded.max_speed_mps,
		   avg_speed_mps = excluded.avg_speed_mps,
		   max_climb_mps = excluded.max_climb_mps,
		   max_descent_mps = excluded.max_descent_mps,
		   max_tilt_deg = excluded.max_tilt_deg`,
		logID, s.DistanceM, s.MaxAltitudeM, s.MaxSpeedMPS, s.AvgSpeedMPS,
		s.MaxClimbMPS, s.MaxDescentMPS, s.MaxTiltDeg,
	)
	if err != nil {
		return fmt.Errorf("store: upsert summary for %s: %w", logID, err)
	}
	return nil
}

// Summary loads the stored flight summary for a log. NULL columns come back
// as nil fields.
func (db *DB) Summary(logID string) (series.FlightSummary, error) {
	var s series.FlightSummary
	err := db.QueryRow(
		`SELECT distance_m, max_altitude_m, max_speed_mps, avg_speed_mps, max_climb_mps, max_descent_mps, max_tilt_deg
		 FROM flight_summaries WHERE log_id = ?`, logID).
		Scan(&s.DistanceM, &s.MaxAltitudeM, &s.MaxSpeedMPS, &s.AvgSpeedMPS,
			&s.MaxClimbMPS, &s.MaxDescentMPS, &s.MaxTiltDeg)
	if errors.Is(err, sql.ErrNoRows) {
		return series.FlightSummary{}, ErrNotFound
	}
	if err != nil {
		return series.FlightSummary{}, fmt.Errorf("store: summary for %s: %w", logID, err)
	}
	return s, nil
}

// DeleteLog removes a log and its summary from the index.
func (db *DB) DeleteLog(id string) error {
	if _, err := db.Exec(`DELETE FROM flight_summaries WHERE log_id = ?`, id); err != nil {
		return fmt.Errorf("store: delete summary for %s: %w", id, err)
	}
	res, err := db.Exec(`DELETE FROM logs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete log %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
