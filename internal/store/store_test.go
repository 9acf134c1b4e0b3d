package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/skylark-data/flightdeck/internal/monitoring"
	"github.com/skylark-data/flightdeck/internal/series"
)

const migrationsDir = "../../migrations"

func openTestDB(t *testing.T) *DB {
	t.Helper()
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(nil) })

	db, err := Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.MigrateUp(migrationsDir))
	return db
}

func testRecord(id string) LogRecord {
	return LogRecord{
		ID:         id,
		Filename:   "flight_" + id + ".ulg",
		Path:       "/tmp/" + id + ".ulg",
		SizeBytes:  1024,
		UploadedAt: time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC),
		DurationS:  312.5,
		SysName:    "PX4",
		VerSW:      "v1.14.5",
		VerHW:      "PX4_FMU_V5",
	}
}

func TestMigrateUpIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.MigrateUp(migrationsDir))

	version, dirty, err := db.MigrateVersion(migrationsDir)
	require.NoError(t, err)
	require.False(t, dirty)
	require.EqualValues(t, 2, version)
}

func TestInsertAndLookupLog(t *testing.T) {
	db := openTestDB(t)
	rec := testRecord("abc123")
	require.NoError(t, db.InsertLog(rec))

	got, err := db.LogByID("abc123")
	require.NoError(t, err)
	require.Equal(t, rec.Filename, got.Filename)
	require.Equal(t, rec.DurationS, got.DurationS)
	require.Equal(t, rec.SysName, got.SysName)

	_, err = db.LogByID("missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLogsNewestFirst(t *testing.T) {
	db := openTestDB(t)
	old := testRecord("older")
	old.UploadedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.InsertLog(old))
	require.NoError(t, db.InsertLog(testRecord("newer")))

	logs, err := db.Logs()
	require.NoError(t, err)
	require.Len(t, logs, 2)
	require.Equal(t, "newer", logs[0].ID)
	require.Equal(t, "older", logs[1].ID)
}

func TestSummaryRoundTripWithOmissions(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.InsertLog(testRecord("f1")))

	dist := 152.3
	alt := 48.0
	// Only position statistics available; speed and tilt stay NULL.
	in := series.FlightSummary{DistanceM: &dist, MaxAltitudeM: &alt}
	require.NoError(t, db.UpsertSummary("f1", in))

	out, err := db.Summary("f1")
	require.NoError(t, err)
	require.NotNil(t, out.DistanceM)
	require.InDelta(t, dist, *out.DistanceM, 1e-9)
	require.NotNil(t, out.MaxAltitudeM)
	require.Nil(t, out.MaxSpeedMPS)
	require.Nil(t, out.AvgSpeedMPS)
	require.Nil(t, out.MaxTiltDeg)
}

func TestUpsertSummaryReplaces(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.InsertLog(testRecord("f2")))

	d1, d2 := 10.0, 20.0
	require.NoError(t, db.UpsertSummary("f2", series.FlightSummary{DistanceM: &d1}))
	require.NoError(t, db.UpsertSummary("f2", series.FlightSummary{DistanceM: &d2}))

	out, err := db.Summary("f2")
	require.NoError(t, err)
	require.InDelta(t, d2, *out.DistanceM, 1e-9)
}

func TestSummaryNotFound(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Summary("nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteLog(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.InsertLog(testRecord("gone")))
	d := 1.0
	require.NoError(t, db.UpsertSummary("gone", series.FlightSummary{DistanceM: &d}))

	require.NoError(t, db.DeleteLog("gone"))
	_, err := db.LogByID("gone")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, db.DeleteLog("gone"), ErrNotFound)
}
