package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climatemap/internal"
	"climatemap/internal/util"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSheetSnapshotRoundTripKeepsMissingAmounts(t *testing.T) {
	db := openTestDB(t)

	snap := SheetSnapshot{
		Hash:    "abc",
		Sheet:   "Janvier",
		Headers: []string{"NAME_3", "Severe Flood", "Exposure"},
		Records: []internal.MonthlyRecord{
			{RowNo: 2, Unit: "A", Triggers: internal.Indicators{SevereFlood: 1}, Exposure: util.FloatPtr(1000), Losses: util.FloatPtr(0)},
			{RowNo: 3, Unit: "B"},
		},
	}
	require.NoError(t, db.SaveSheet(snap))

	got, err := db.LoadSheet("abc", "Janvier")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, snap.Headers, got.Headers)
	require.Len(t, got.Records, 2)

	assert.Equal(t, 1, got.Records[0].Triggers.SevereFlood)
	require.NotNil(t, got.Records[0].Exposure)
	assert.InDelta(t, 1000.0, *got.Records[0].Exposure, 1e-9)
	require.NotNil(t, got.Records[0].Losses)
	assert.Zero(t, *got.Records[0].Losses)

	assert.Nil(t, got.Records[1].Exposure)
	assert.Nil(t, got.Records[1].Losses)
}

func TestSaveSheetReplacesPreviousSnapshot(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.SaveSheet(SheetSnapshot{Hash: "h", Sheet: "s", Records: []internal.MonthlyRecord{{RowNo: 2, Unit: "A"}, {RowNo: 3, Unit: "B"}}}))
	require.NoError(t, db.SaveSheet(SheetSnapshot{Hash: "h", Sheet: "s", Records: []internal.MonthlyRecord{{RowNo: 2, Unit: "C"}}}))

	got, err := db.LoadSheet("h", "s")
	require.NoError(t, err)
	require.Len(t, got.Records, 1)
	assert.Equal(t, "C", got.Records[0].Unit)
}

func TestLoadSheetMissing(t *testing.T) {
	db := openTestDB(t)

	got, err := db.LoadSheet("nope", "Janvier")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeleteSheets(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.SaveSheet(SheetSnapshot{Hash: "h", Sheet: "a", Records: []internal.MonthlyRecord{{RowNo: 2, Unit: "A"}}}))
	require.NoError(t, db.SaveSheet(SheetSnapshot{Hash: "other", Sheet: "a"}))

	require.NoError(t, db.DeleteSheets("h"))

	got, err := db.LoadSheet("h", "a")
	require.NoError(t, err)
	assert.Nil(t, got)

	kept, err := db.LoadSheet("other", "a")
	require.NoError(t, err)
	assert.NotNil(t, kept)
}

func TestRunsAndMetadata(t *testing.T) {
	db := openTestDB(t)

	sel := internal.Selection{Year: 2025, Sheet: "Juillet"}
	require.NoError(t, db.InsertRun("t1", sel, "h1", map[string]float64{"totalMs": 3}, map[string]int{"units": 2}))
	require.NoError(t, db.InsertRun("t2", sel, "h1", map[string]float64{"totalMs": 4}, map[string]int{"units": 2}))

	runs, err := db.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "t2", runs[0].TraceID)
	assert.Equal(t, 2025, runs[0].Year)
	assert.Equal(t, "Juillet", runs[0].Sheet)
	assert.Equal(t, 2, runs[0].Counts["units"])

	missing, err := db.GetMetadata("k")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, db.SetMetadata("k", "v1"))
	require.NoError(t, db.SetMetadata("k", "v2"))
	v, err := db.GetMetadata("k")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "v2", *v)
}
