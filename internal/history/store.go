package history

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/signalnine/acckpi/internal/result"
)

var ErrNotFound = errors.New("evaluation not found")

// timeFormat is fixed width so evaluated_at sorts lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

const schema = `
CREATE TABLE IF NOT EXISTS evaluations (
	id            TEXT PRIMARY KEY,
	log           TEXT NOT NULL,
	source        TEXT NOT NULL,
	evaluated_at  TEXT NOT NULL,
	score         REAL NOT NULL,
	passed        INTEGER NOT NULL,
	params_json   TEXT NOT NULL,
	metrics_json  TEXT NOT NULL,
	verdicts_json TEXT
);

CREATE INDEX IF NOT EXISTS evaluations_evaluated_at ON evaluations(evaluated_at);
`

// Store keeps every evaluation ever recorded so results can be compared
// across runs.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// A single connection keeps concurrent inserts from failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Insert records one evaluation. A missing ID is filled in.
func (s *Store) Insert(meta *result.EvalMeta) error {
	if meta.ID == "" {
		meta.ID = result.NewID()
	}
	if meta.EvaluatedAt.IsZero() {
		meta.EvaluatedAt = time.Now().UTC()
	}
	params, err := json.Marshal(meta.Params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	metrics, err := json.Marshal(meta.Metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	verdicts, err := json.Marshal(meta.Verdicts)
	if err != nil {
		return fmt.Errorf("marshal verdicts: %w", err)
	}
	passed := 0
	if meta.Passed {
		passed = 1
	}
	_, err = s.db.Exec(
		`INSERT INTO evaluations (id, log, source, evaluated_at, score, passed, params_json, metrics_json, verdicts_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		meta.ID, meta.Log, meta.Source, meta.EvaluatedAt.UTC().Format(timeFormat),
		meta.Score, passed, string(params), string(metrics), string(verdicts),
	)
	if err != nil {
		return fmt.Errorf("insert evaluation: %w", err)
	}
	return nil
}

const selectColumns = `SELECT id, log, source, evaluated_at, score, passed, params_json, metrics_json, verdicts_json FROM evaluations`

// List returns the most recent evaluations, newest first. A limit <= 0
// returns everything.
func (s *Store) List(limit int) ([]result.EvalMeta, error) {
	query := selectColumns + ` ORDER BY evaluated_at DESC, rowid DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query evaluations: %w", err)
	}
	defer rows.Close()

	var out []result.EvalMeta
	for rows.Next() {
		meta, err := scanMeta(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *meta)
	}
	return out, rows.Err()
}

func (s *Store) Get(id string) (*result.EvalMeta, error) {
	row := s.db.QueryRow(selectColumns+` WHERE id = ?`, id)
	meta, err := scanMeta(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return meta, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMeta(sc scanner) (*result.EvalMeta, error) {
	var (
		meta            result.EvalMeta
		evaluatedAt     string
		passed          int
		params, metrics string
		verdicts        sql.NullString
	)
	err := sc.Scan(&meta.ID, &meta.Log, &meta.Source, &evaluatedAt, &meta.Score, &passed, &params, &metrics, &verdicts)
	if err != nil {
		return nil, err
	}
	meta.Passed = passed != 0
	meta.EvaluatedAt, err = time.Parse(timeFormat, evaluatedAt)
	if err != nil {
		return nil, fmt.Errorf("decode evaluated_at for %s: %w", meta.ID, err)
	}
	if err := json.Unmarshal([]byte(params), &meta.Params); err != nil {
		return nil, fmt.Errorf("decode params for %s: %w", meta.ID, err)
	}
	if err := json.Unmarshal([]byte(metrics), &meta.Metrics); err != nil {
		return nil, fmt.Errorf("decode metrics for %s: %w", meta.ID, err)
	}
	if verdicts.Valid && verdicts.String != "" {
		if err := json.Unmarshal([]byte(verdicts.String), &meta.Verdicts); err != nil {
			return nil, fmt.Errorf("decode verdicts for %s: %w", meta.ID, err)
		}
	}
	return &meta, nil
}
