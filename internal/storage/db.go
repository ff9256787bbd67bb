package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"climatemap/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One writer at a time; concurrent selections queue here instead of
	// failing with SQLITE_BUSY.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) Ping(ctx context.Context) error {
	return d.conn.PingContext(ctx)
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS sheets (
  hash TEXT NOT NULL,
  sheet TEXT NOT NULL,
  headersJson TEXT NOT NULL,
  rowCount INTEGER NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY(hash, sheet)
);

CREATE TABLE IF NOT EXISTS monthly_records (
  hash TEXT NOT NULL,
  sheet TEXT NOT NULL,
  rowNo INTEGER NOT NULL,
  unit TEXT NOT NULL,
  moderateDrought INTEGER NOT NULL,
  severeDrought INTEGER NOT NULL,
  moderateFlood INTEGER NOT NULL,
  severeFlood INTEGER NOT NULL,
  exposure REAL,
  losses REAL,
  PRIMARY KEY(hash, sheet, rowNo),
  FOREIGN KEY(hash, sheet) REFERENCES sheets(hash, sheet)
);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  year INTEGER NOT NULL,
  sheet TEXT NOT NULL,
  workbookHash TEXT NOT NULL,
  timingsJson TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_runs_selection ON runs(year, sheet);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

// SheetSnapshot is a standardized sheet persisted under its workbook
// content hash.
type SheetSnapshot struct {
	Hash    string
	Sheet   string
	Headers []string
	Records []internal.MonthlyRecord
}

// SaveSheet replaces the snapshot of (hash, sheet).
func (d *DB) SaveSheet(snap SheetSnapshot) error {
	headersJSON, err := json.Marshal(snap.Headers)
	if err != nil {
		return err
	}

	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM monthly_records WHERE hash = ? AND sheet = ?`, snap.Hash, snap.Sheet); err != nil {
		return err
	}
	if _, err := tx.Exec(`
INSERT INTO sheets (hash, sheet, headersJson, rowCount) VALUES (?, ?, ?, ?)
ON CONFLICT(hash, sheet) DO UPDATE SET
  headersJson=excluded.headersJson,
  rowCount=excluded.rowCount,
  createdAt=CURRENT_TIMESTAMP
`, snap.Hash, snap.Sheet, string(headersJSON), len(snap.Records)); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
INSERT INTO monthly_records (
  hash, sheet, rowNo, unit,
  moderateDrought, severeDrought, moderateFlood, severeFlood,
  exposure, losses
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range snap.Records {
		if _, err := stmt.Exec(
			snap.Hash, snap.Sheet, r.RowNo, r.Unit,
			r.Triggers.ModerateDrought, r.Triggers.SevereDrought, r.Triggers.ModerateFlood, r.Triggers.SevereFlood,
			r.Exposure, r.Losses,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadSheet returns nil when no snapshot exists for (hash, sheet).
func (d *DB) LoadSheet(hash, sheet string) (*SheetSnapshot, error) {
	var headersJSON string
	err := d.conn.QueryRow(`SELECT headersJson FROM sheets WHERE hash = ? AND sheet = ?`, hash, sheet).Scan(&headersJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	snap := &SheetSnapshot{Hash: hash, Sheet: sheet, Records: []internal.MonthlyRecord{}}
	if err := json.Unmarshal([]byte(headersJSON), &snap.Headers); err != nil {
		return nil, err
	}

	rows, err := d.conn.Query(`
SELECT rowNo, unit, moderateDrought, severeDrought, moderateFlood, severeFlood, exposure, losses
FROM monthly_records WHERE hash = ? AND sheet = ? ORDER BY rowNo ASC
`, hash, sheet)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var r internal.MonthlyRecord
		if err := rows.Scan(
			&r.RowNo, &r.Unit,
			&r.Triggers.ModerateDrought, &r.Triggers.SevereDrought, &r.Triggers.ModerateFlood, &r.Triggers.SevereFlood,
			&r.Exposure, &r.Losses,
		); err != nil {
			return nil, err
		}
		snap.Records = append(snap.Records, r)
	}
	return snap, rows.Err()
}

// DeleteSheets drops every snapshot taken from a workbook version.
func (d *DB) DeleteSheets(hash string) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM monthly_records WHERE hash = ?`, hash); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM sheets WHERE hash = ?`, hash); err != nil {
		return err
	}
	return tx.Commit()
}

func (d *DB) InsertRun(traceID string, sel internal.Selection, workbookHash string, timings map[string]float64, counts map[string]int) error {
	timingsJSON, _ := json.Marshal(timings)
	countsJSON, _ := json.Marshal(counts)
	_, err := d.conn.Exec(`
INSERT INTO runs (traceId, year, sheet, workbookHash, timingsJson, countsJson) VALUES (?, ?, ?, ?, ?, ?)
`, traceID, sel.Year, sel.Sheet, workbookHash, string(timingsJSON), string(countsJSON))
	return err
}

// ListRuns returns the most recent runs first.
func (d *DB) ListRuns(limit int) ([]internal.RunRow, error) {
	rows, err := d.conn.Query(`
SELECT id, traceId, year, sheet, workbookHash, timingsJson, countsJson, createdAt
FROM runs ORDER BY id DESC LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []internal.RunRow{}
	for rows.Next() {
		var row internal.RunRow
		var timingsJSON, countsJSON string
		if err := rows.Scan(&row.ID, &row.TraceID, &row.Year, &row.Sheet, &row.WorkbookHash, &timingsJSON, &countsJSON, &row.CreatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(timingsJSON), &row.Timings)
		_ = json.Unmarshal([]byte(countsJSON), &row.Counts)
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
