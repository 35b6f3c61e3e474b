package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"spooltracker/internal"
	"spooltracker/internal/util"
)

var ErrRunNotFound = errors.New("run not found")

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

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

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS spools (
  id INTEGER PRIMARY KEY,
  uid TEXT NOT NULL,
  manufacturerName TEXT,
  filamentTypeName TEXT,
  materialName TEXT,
  colorName TEXT,
  colorHexCode TEXT,
  colorProductCode TEXT,
  initialWeightGrams REAL,
  currentWeightGrams REAL,
  isEmpty INTEGER NOT NULL DEFAULT 0,
  locationName TEXT,
  raw_json TEXT NOT NULL,
  lastSeenAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_spools_uid ON spools(uid);
CREATE INDEX IF NOT EXISTS idx_spools_hex ON spools(colorHexCode);

CREATE TABLE IF NOT EXISTS messages (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  provider TEXT NOT NULL,
  messageId TEXT NOT NULL,
  subject TEXT,
  sender TEXT,
  receivedAt TEXT,
  hash TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'fetched',
  rawRef TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(provider, messageId)
);

CREATE TABLE IF NOT EXISTS print_runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  runId TEXT NOT NULL UNIQUE,
  messageRowId INTEGER,
  filename TEXT NOT NULL,
  format TEXT NOT NULL,
  projectName TEXT,
  printTime INTEGER,
  printerModel TEXT,
  slicer TEXT,
  usesSupport INTEGER,
  parseErrorsJson TEXT NOT NULL,
  timingsJson TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(messageRowId) REFERENCES messages(id)
);

CREATE TABLE IF NOT EXISTS usages (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  runId TEXT NOT NULL,
  usageIndex INTEGER NOT NULL,
  material TEXT,
  type TEXT,
  color TEXT,
  colorHex TEXT,
  weightGrams REAL NOT NULL,
  lengthMeters REAL,
  productCode TEXT,
  confidence TEXT NOT NULL,
  UNIQUE(runId, usageIndex),
  FOREIGN KEY(runId) REFERENCES print_runs(runId)
);

CREATE TABLE IF NOT EXISTS matches (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  usageId INTEGER NOT NULL UNIQUE,
  status TEXT NOT NULL,
  selectedSpoolId INTEGER,
  candidatesJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(usageId) REFERENCES usages(id)
);

CREATE TABLE IF NOT EXISTS deductions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  runId TEXT,
  spoolId INTEGER NOT NULL,
  gramsUsed REAL NOT NULL,
  previousWeightGrams REAL NOT NULL,
  newWeightGrams REAL NOT NULL,
  markEmpty INTEGER NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) UpsertSpools(spools []internal.Spool) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
INSERT INTO spools (
  id, uid, manufacturerName, filamentTypeName, materialName, colorName,
  colorHexCode, colorProductCode, initialWeightGrams, currentWeightGrams,
  isEmpty, locationName, raw_json, lastSeenAt
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(id) DO UPDATE SET
  uid=excluded.uid,
  manufacturerName=excluded.manufacturerName,
  filamentTypeName=excluded.filamentTypeName,
  materialName=excluded.materialName,
  colorName=excluded.colorName,
  colorHexCode=excluded.colorHexCode,
  colorProductCode=excluded.colorProductCode,
  initialWeightGrams=excluded.initialWeightGrams,
  currentWeightGrams=excluded.currentWeightGrams,
  isEmpty=excluded.isEmpty,
  locationName=excluded.locationName,
  raw_json=excluded.raw_json,
  lastSeenAt=CURRENT_TIMESTAMP
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range spools {
		raw, _ := json.Marshal(s)
		if _, err := stmt.Exec(
			s.ID, s.UID, s.ManufacturerName, s.FilamentTypeName, s.MaterialName, s.ColorName,
			s.ColorHexCode, s.ColorProductCode, s.InitialWeightGrams, s.CurrentWeightGrams,
			boolInt(s.IsEmpty), s.LocationName, string(raw),
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListSpools returns the local snapshot ordered by id, so matching over it is
// repeatable.
func (d *DB) ListSpools() ([]internal.Spool, error) {
	rows, err := d.conn.Query(`
SELECT id, uid, manufacturerName, filamentTypeName, materialName, colorName,
       colorHexCode, colorProductCode, initialWeightGrams, currentWeightGrams,
       isEmpty, locationName
FROM spools ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.Spool
	for rows.Next() {
		var s internal.Spool
		var manufacturer, filamentType, material, colorName, hex sql.NullString
		var isEmpty int
		if err := rows.Scan(
			&s.ID, &s.UID, &manufacturer, &filamentType, &material, &colorName,
			&hex, &s.ColorProductCode, &s.InitialWeightGrams, &s.CurrentWeightGrams,
			&isEmpty, &s.LocationName,
		); err != nil {
			return nil, err
		}
		s.ManufacturerName = manufacturer.String
		s.FilamentTypeName = filamentType.String
		s.MaterialName = material.String
		s.ColorName = colorName.String
		s.ColorHexCode = hex.String
		s.IsEmpty = isEmpty != 0
		out = append(out, s)
	}

	return out, rows.Err()
}

func (d *DB) UpdateSpoolWeight(spoolID int64, grams float64, markEmpty bool) error {
	res, err := d.conn.Exec(`
UPDATE spools SET currentWeightGrams = ?, isEmpty = CASE WHEN ? = 1 THEN 1 ELSE isEmpty END, lastSeenAt = CURRENT_TIMESTAMP
WHERE id = ?`, grams, boolInt(markEmpty), spoolID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("spool not found: id=%d", spoolID)
	}
	return nil
}

func (d *DB) UpsertMessage(provider, messageID, subject, sender, receivedAt, hash, rawRef, status string) (internal.MessageRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO messages (provider, messageId, subject, sender, receivedAt, hash, status, rawRef)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(provider, messageId) DO UPDATE SET
  subject=excluded.subject,
  sender=excluded.sender,
  receivedAt=excluded.receivedAt,
  hash=excluded.hash,
  rawRef=excluded.rawRef,
  updatedAt=CURRENT_TIMESTAMP
`, provider, messageID, subject, sender, receivedAt, hash, status, rawRef)
	if err != nil {
		return internal.MessageRow{}, err
	}

	row, err := d.GetMessageByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.MessageRow{}, err
	}
	if row == nil {
		return internal.MessageRow{}, errors.New("failed to upsert message")
	}
	return *row, nil
}

const messageColumns = `id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef`

func scanMessage(scan func(dest ...any) error) (internal.MessageRow, error) {
	var row internal.MessageRow
	var subject, sender, receivedAt sql.NullString
	err := scan(&row.ID, &row.Provider, &row.MessageID, &subject, &sender, &receivedAt, &row.Hash, &row.Status, &row.RawRef)
	row.Subject = subject.String
	row.Sender = sender.String
	row.ReceivedAt = receivedAt.String
	return row, err
}

func (d *DB) GetMessageByProviderMessageID(provider, messageID string) (*internal.MessageRow, error) {
	row, err := scanMessage(d.conn.QueryRow(`SELECT `+messageColumns+` FROM messages WHERE provider = ? AND messageId = ?`, provider, messageID).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) GetMessageByID(id int) (*internal.MessageRow, error) {
	row, err := scanMessage(d.conn.QueryRow(`SELECT `+messageColumns+` FROM messages WHERE id = ?`, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) MustMessageByProviderMessageID(provider, messageID string) (internal.MessageRow, error) {
	row, err := d.GetMessageByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.MessageRow{}, err
	}
	if row == nil {
		return internal.MessageRow{}, fmt.Errorf("message not found: provider=%s messageId=%s", provider, messageID)
	}
	return *row, nil
}

func (d *DB) ListMessagesByStatus(status string, limit int) ([]internal.MessageRow, error) {
	rows, err := d.conn.Query(`SELECT `+messageColumns+` FROM messages WHERE status = ? ORDER BY receivedAt ASC, id ASC LIMIT ?`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.MessageRow
	for rows.Next() {
		row, err := scanMessage(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateMessageStatus(messageRowID int, status string) error {
	_, err := d.conn.Exec(`UPDATE messages SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, messageRowID)
	return err
}

// ClearMessageRuns removes runs (and their usages and matches) produced from
// a message so it can be processed again.
func (d *DB) ClearMessageRuns(messageRowID int) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmts := []string{
		`DELETE FROM matches WHERE usageId IN (
  SELECT u.id FROM usages u JOIN print_runs r ON r.runId = u.runId WHERE r.messageRowId = ?)`,
		`DELETE FROM usages WHERE runId IN (SELECT runId FROM print_runs WHERE messageRowId = ?)`,
		`DELETE FROM print_runs WHERE messageRowId = ?`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt, messageRowID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// InsertRun stores a parsed file together with its usages and match results
// in one transaction.
func (d *DB) InsertRun(runID string, messageRowID *int, file internal.ParsedPrintFile, matches []internal.UsageMatch, timings map[string]float64, counts map[string]int) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	errorsJSON, _ := json.Marshal(file.ParseErrors)
	timingsJSON, _ := json.Marshal(timings)
	countsJSON, _ := json.Marshal(counts)
	var usesSupport *int
	if file.UsesSupport != nil {
		v := boolInt(*file.UsesSupport)
		usesSupport = &v
	}

	if _, err := tx.Exec(`
INSERT INTO print_runs (runId, messageRowId, filename, format, projectName, printTime, printerModel, slicer, usesSupport, parseErrorsJson, timingsJson, countsJson)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, runID, messageRowID, file.Filename, string(file.Format), file.ProjectName, file.PrintTime, file.PrinterModel, file.Slicer, usesSupport, string(errorsJSON), string(timingsJSON), string(countsJSON)); err != nil {
		return err
	}

	for i, u := range file.FilamentUsages {
		res, err := tx.Exec(`
INSERT INTO usages (runId, usageIndex, material, type, color, colorHex, weightGrams, lengthMeters, productCode, confidence)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, runID, i, u.Material, u.Type, u.Color, u.ColorHex, u.WeightGrams, u.LengthMeters, u.ProductCode, string(u.MatchConfidence))
		if err != nil {
			return err
		}
		if i >= len(matches) {
			continue
		}
		usageID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		candidatesJSON, _ := json.Marshal(matches[i].Candidates)
		if _, err := tx.Exec(`
INSERT INTO matches (usageId, status, selectedSpoolId, candidatesJson) VALUES (?, ?, ?, ?)
`, usageID, string(matches[i].Status), matches[i].SelectedSpoolID, string(candidatesJSON)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetRunReport rebuilds the report persisted by InsertRun.
func (d *DB) GetRunReport(runID string) (internal.PrintReport, error) {
	report := internal.PrintReport{RunID: runID}
	file := &report.File

	var format, errorsJSON string
	var usesSupport *int
	err := d.conn.QueryRow(`
SELECT filename, format, projectName, printTime, printerModel, slicer, usesSupport, parseErrorsJson
FROM print_runs WHERE runId = ?`, runID).Scan(
		&file.Filename, &format, &file.ProjectName, &file.PrintTime, &file.PrinterModel, &file.Slicer, &usesSupport, &errorsJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return internal.PrintReport{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return internal.PrintReport{}, err
	}
	file.Format = internal.PrintFileFormat(format)
	if usesSupport != nil {
		file.UsesSupport = util.BoolPtr(*usesSupport != 0)
	}
	file.ParseErrors = []string{}
	_ = json.Unmarshal([]byte(errorsJSON), &file.ParseErrors)

	rows, err := d.conn.Query(`
SELECT u.material, u.type, u.color, u.colorHex, u.weightGrams, u.lengthMeters, u.productCode, u.confidence,
       m.status, m.selectedSpoolId, m.candidatesJson
FROM usages u
LEFT JOIN matches m ON m.usageId = u.id
WHERE u.runId = ?
ORDER BY u.usageIndex ASC`, runID)
	if err != nil {
		return internal.PrintReport{}, err
	}
	defer rows.Close()

	file.FilamentUsages = []internal.FilamentUsage{}
	for rows.Next() {
		var u internal.FilamentUsage
		var confidence string
		var status, candidatesJSON sql.NullString
		var selected *int64
		if err := rows.Scan(
			&u.Material, &u.Type, &u.Color, &u.ColorHex, &u.WeightGrams, &u.LengthMeters, &u.ProductCode, &confidence,
			&status, &selected, &candidatesJSON,
		); err != nil {
			return internal.PrintReport{}, err
		}
		u.MatchConfidence = internal.MatchConfidence(confidence)
		file.FilamentUsages = append(file.FilamentUsages, u)

		match := internal.UsageMatch{Usage: u, Status: internal.MatchNotFound, Candidates: []internal.SpoolMatch{}, SelectedSpoolID: selected}
		if status.Valid {
			match.Status = internal.MatchStatus(status.String)
			_ = json.Unmarshal([]byte(candidatesJSON.String), &match.Candidates)
		}
		report.Matches = append(report.Matches, match)
	}

	return report, rows.Err()
}

func (d *DB) ListRuns(limit int) ([]internal.RunRow, error) {
	rows, err := d.conn.Query(`
SELECT r.runId, r.messageRowId, r.filename, r.format, r.projectName, r.printTime, r.parseErrorsJson, r.createdAt,
       (SELECT COUNT(*) FROM usages u WHERE u.runId = r.runId)
FROM print_runs r ORDER BY r.id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.RunRow
	for rows.Next() {
		var row internal.RunRow
		var errorsJSON string
		if err := rows.Scan(&row.RunID, &row.MessageID, &row.Filename, &row.Format, &row.ProjectName, &row.PrintTime, &errorsJSON, &row.CreatedAt, &row.UsageCount); err != nil {
			return nil, err
		}
		var parseErrors []string
		_ = json.Unmarshal([]byte(errorsJSON), &parseErrors)
		row.ErrorCount = len(parseErrors)
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) InsertDeduction(runID *string, deduction internal.Deduction) error {
	_, err := d.conn.Exec(`
INSERT INTO deductions (runId, spoolId, gramsUsed, previousWeightGrams, newWeightGrams, markEmpty)
VALUES (?, ?, ?, ?, ?, ?)
`, runID, deduction.SpoolID, deduction.GramsUsed, deduction.PreviousWeightGrams, deduction.NewWeightGrams, boolInt(deduction.MarkEmpty))
	return err
}

func (d *DB) ListDeductions(runID string) ([]internal.Deduction, error) {
	rows, err := d.conn.Query(`
SELECT spoolId, gramsUsed, previousWeightGrams, newWeightGrams, markEmpty
FROM deductions WHERE runId = ? ORDER BY id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.Deduction
	for rows.Next() {
		var dd internal.Deduction
		var markEmpty int
		if err := rows.Scan(&dd.SpoolID, &dd.GramsUsed, &dd.PreviousWeightGrams, &dd.NewWeightGrams, &markEmpty); err != nil {
			return nil, err
		}
		dd.MarkEmpty = markEmpty != 0
		out = append(out, dd)
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

func (d *DB) GetExportRows(runID string) ([]internal.MatchExportRow, error) {
	rows, err := d.conn.Query(`
SELECT
  r.runId,
  r.filename,
  u.usageIndex,
  u.material,
  u.type,
  u.colorHex,
  u.weightGrams,
  u.lengthMeters,
  u.confidence,
  m.status,
  m.candidatesJson
FROM usages u
JOIN print_runs r ON r.runId = u.runId
LEFT JOIN matches m ON m.usageId = u.id
WHERE u.runId = ?
ORDER BY
  CASE m.status WHEN 'MATCHED' THEN 1 ELSE 2 END,
  u.usageIndex ASC
`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.MatchExportRow
	for rows.Next() {
		var row internal.MatchExportRow
		var status, candidatesJSON sql.NullString
		if err := rows.Scan(
			&row.RunID,
			&row.Filename,
			&row.UsageIndex,
			&row.Material,
			&row.Type,
			&row.ColorHex,
			&row.WeightGrams,
			&row.LengthMeters,
			&row.Confidence,
			&status,
			&candidatesJSON,
		); err != nil {
			return nil, err
		}

		row.MatchStatus = string(internal.MatchNotFound)
		if status.Valid {
			row.MatchStatus = status.String
		}
		var candidates []internal.SpoolMatch
		_ = json.Unmarshal([]byte(candidatesJSON.String), &candidates)
		if len(candidates) > 0 {
			best := candidates[0]
			row.SpoolID = util.Int64Ptr(best.Spool.ID)
			row.SpoolUID = util.StringPtr(best.Spool.UID)
			row.SpoolColorHex = util.NonEmpty(best.Spool.ColorHexCode)
			row.SpoolMaterial = util.NonEmpty(best.Spool.MaterialName)
			row.MatchScore = util.IntPtr(best.MatchScore)
			row.MatchReason = util.StringPtr(string(best.Reason))
			row.InsufficientStock = best.InsufficientStock
		}
		if len(candidates) > 1 {
			row.Candidate2UID = util.StringPtr(candidates[1].Spool.UID)
			row.Candidate2Score = util.IntPtr(candidates[1].MatchScore)
		}
		out = append(out, row)
	}

	return out, rows.Err()
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
