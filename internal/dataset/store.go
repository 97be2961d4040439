package dataset

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/atleastn/internal/evaluator"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS datasets (
	name          TEXT PRIMARY KEY,
	attributes    TEXT NOT NULL,
	updated_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS entities (
	dataset       TEXT NOT NULL,
	name          TEXT NOT NULL,
	PRIMARY KEY (dataset, name),
	FOREIGN KEY (dataset) REFERENCES datasets(name) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS entity_attributes (
	dataset       TEXT NOT NULL,
	entity        TEXT NOT NULL,
	attribute     TEXT NOT NULL,
	probability   REAL NOT NULL,
	PRIMARY KEY (dataset, entity, attribute),
	FOREIGN KEY (dataset, entity) REFERENCES entities(dataset, name) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS evaluation_runs (
	run_id        TEXT PRIMARY KEY,
	dataset       TEXT NOT NULL,
	n             INTEGER NOT NULL,
	config_json   TEXT,
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS run_results (
	run_id        TEXT NOT NULL,
	rank          INTEGER NOT NULL,
	name          TEXT NOT NULL,
	probability   REAL NOT NULL,
	PRIMARY KEY (run_id, rank),
	FOREIGN KEY (run_id) REFERENCES evaluation_runs(run_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS run_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id        TEXT,
	trigger_type  TEXT NOT NULL,
	dataset       TEXT,
	n             INTEGER NOT NULL,
	entity_count  INTEGER NOT NULL,
	duration_ms   REAL NOT NULL,
	outcome       TEXT NOT NULL,
	reason        TEXT,
	created_at    TEXT NOT NULL
);
`

// timeLayout keeps fractional seconds fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// #endregion schema

// #region store-struct
// Store persists datasets and evaluation runs in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations. Pragmas go in the
// DSN so that every pooled connection gets them.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func dsn(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion constructor

// #region save-dataset
// SaveDataset stores a dataset under name, replacing any previous content.
func (s *Store) SaveDataset(name string, attributes []string, ds evaluator.Dataset[string]) error {
	attrJSON, err := json.Marshal(attributes)
	if err != nil {
		return fmt.Errorf("marshal attributes: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM entity_attributes WHERE dataset = ?`, name); err != nil {
		return fmt.Errorf("clear attributes: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM entities WHERE dataset = ?`, name); err != nil {
		return fmt.Errorf("clear entities: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO datasets (name, attributes, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET attributes = excluded.attributes, updated_at = excluded.updated_at`,
		name, string(attrJSON), time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("upsert dataset: %w", err)
	}

	for entity, attrs := range ds {
		if _, err := tx.Exec(`INSERT INTO entities (dataset, name) VALUES (?, ?)`, name, entity); err != nil {
			return fmt.Errorf("insert entity %s: %w", entity, err)
		}
		for attr, p := range attrs {
			_, err := tx.Exec(
				`INSERT INTO entity_attributes (dataset, entity, attribute, probability) VALUES (?, ?, ?, ?)`,
				name, entity, attr, p,
			)
			if err != nil {
				return fmt.Errorf("insert attribute %s.%s: %w", entity, attr, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// #endregion save-dataset

// #region load-dataset
// LoadDataset reads a stored dataset by name.
func (s *Store) LoadDataset(name string) (StoredDataset, error) {
	var attrJSON, updatedStr string
	err := s.db.QueryRow(
		`SELECT attributes, updated_at FROM datasets WHERE name = ?`, name,
	).Scan(&attrJSON, &updatedStr)
	if err != nil {
		return StoredDataset{}, fmt.Errorf("get dataset %s: %w", name, err)
	}

	out := StoredDataset{Name: name, Entities: evaluator.Dataset[string]{}}
	if err := json.Unmarshal([]byte(attrJSON), &out.Attributes); err != nil {
		return StoredDataset{}, fmt.Errorf("unmarshal attributes: %w", err)
	}
	out.UpdatedAt, _ = time.Parse(timeLayout, updatedStr)

	rows, err := s.db.Query(`SELECT name FROM entities WHERE dataset = ?`, name)
	if err != nil {
		return StoredDataset{}, fmt.Errorf("list entities: %w", err)
	}
	for rows.Next() {
		var entity string
		if err := rows.Scan(&entity); err != nil {
			rows.Close()
			return StoredDataset{}, fmt.Errorf("scan entity: %w", err)
		}
		out.Entities[entity] = evaluator.Attributes[string]{}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return StoredDataset{}, err
	}

	rows, err = s.db.Query(
		`SELECT entity, attribute, probability FROM entity_attributes WHERE dataset = ?`, name,
	)
	if err != nil {
		return StoredDataset{}, fmt.Errorf("list attributes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var entity, attr string
		var p float64
		if err := rows.Scan(&entity, &attr, &p); err != nil {
			return StoredDataset{}, fmt.Errorf("scan attribute: %w", err)
		}
		out.Entities[entity][attr] = p
	}
	return out, rows.Err()
}

// ListDatasets returns every stored dataset ordered by name.
func (s *Store) ListDatasets() ([]DatasetInfo, error) {
	rows, err := s.db.Query(
		`SELECT d.name, d.attributes, d.updated_at, COUNT(e.name)
		 FROM datasets d LEFT JOIN entities e ON e.dataset = d.name
		 GROUP BY d.name ORDER BY d.name`,
	)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	var infos []DatasetInfo
	for rows.Next() {
		var info DatasetInfo
		var attrJSON, updatedStr string
		if err := rows.Scan(&info.Name, &attrJSON, &updatedStr, &info.EntityCount); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		var attrs []string
		if err := json.Unmarshal([]byte(attrJSON), &attrs); err != nil {
			return nil, fmt.Errorf("unmarshal attributes: %w", err)
		}
		info.Attributes = len(attrs)
		info.UpdatedAt, _ = time.Parse(timeLayout, updatedStr)
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// #endregion load-dataset

// #region record-run
// RecordRun stores an evaluation run and its ranked results. A run ID and
// creation time are assigned when missing.
func (s *Store) RecordRun(run Run) (Run, error) {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return Run{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var configPtr interface{}
	if run.ConfigJSON != "" {
		configPtr = run.ConfigJSON
	}

	_, err = tx.Exec(
		`INSERT INTO evaluation_runs (run_id, dataset, n, config_json, created_at) VALUES (?, ?, ?, ?, ?)`,
		run.RunID, run.Dataset, run.N, configPtr, run.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}

	for i, r := range run.Results {
		_, err := tx.Exec(
			`INSERT INTO run_results (run_id, rank, name, probability) VALUES (?, ?, ?, ?)`,
			run.RunID, i, r.Name, r.Probability,
		)
		if err != nil {
			return Run{}, fmt.Errorf("insert result %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("commit: %w", err)
	}
	run.Results = slices.Clone(run.Results)
	return run, nil
}

// #endregion record-run

// #region get-run
// GetRun retrieves a run and its results by ID.
func (s *Store) GetRun(id string) (Run, error) {
	var run Run
	var configJSON sql.NullString
	var createdStr string

	err := s.db.QueryRow(
		`SELECT run_id, dataset, n, config_json, created_at FROM evaluation_runs WHERE run_id = ?`, id,
	).Scan(&run.RunID, &run.Dataset, &run.N, &configJSON, &createdStr)
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	if configJSON.Valid {
		run.ConfigJSON = configJSON.String
	}
	run.CreatedAt, _ = time.Parse(timeLayout, createdStr)

	run.Results, err = s.runResults(id)
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

func (s *Store) runResults(id string) ([]evaluator.Result, error) {
	rows, err := s.db.Query(
		`SELECT name, probability FROM run_results WHERE run_id = ? ORDER BY rank`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var results []evaluator.Result
	for rows.Next() {
		var r evaluator.Result
		if err := rows.Scan(&r.Name, &r.Probability); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// #endregion get-run

// #region list-runs
// ListRuns returns the most recent runs, newest first, with their results.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	rows, err := s.db.Query(
		`SELECT run_id, dataset, n, config_json, created_at
		 FROM evaluation_runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	var runs []Run
	for rows.Next() {
		var run Run
		var configJSON sql.NullString
		var createdStr string
		if err := rows.Scan(&run.RunID, &run.Dataset, &run.N, &configJSON, &createdStr); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if configJSON.Valid {
			run.ConfigJSON = configJSON.String
		}
		run.CreatedAt, _ = time.Parse(timeLayout, createdStr)
		runs = append(runs, run)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range runs {
		if runs[i].Results, err = s.runResults(runs[i].RunID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// #endregion list-runs
