package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:skillpulse.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/skillpulse?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

// IsUniqueViolation reports whether err came from a unique constraint.
// Both drivers only expose this through the error text.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || // modernc sqlite
		strings.Contains(msg, "SQLSTATE 23505") || // pgx
		strings.Contains(msg, "duplicate key value")
}

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  pass_hash TEXT NOT NULL,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS skills (
  id INTEGER PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  category TEXT NOT NULL,
  subcategory TEXT NOT NULL DEFAULT '',
  parent_id INTEGER,
  certification_code TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'active'
);

CREATE TABLE IF NOT EXISTS questions (
  id INTEGER PRIMARY KEY,
  text TEXT NOT NULL,
  options_json TEXT NOT NULL,
  difficulty INTEGER NOT NULL DEFAULT 3
);

CREATE TABLE IF NOT EXISTS question_skills (
  question_id INTEGER NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
  skill_id INTEGER NOT NULL REFERENCES skills(id) ON DELETE CASCADE,
  is_primary INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (question_id, skill_id)
);

CREATE TABLE IF NOT EXISTS diagnostic_attempts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  session_id TEXT NOT NULL UNIQUE,
  test_type TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL,
  total_questions INTEGER NOT NULL,
  answered_questions INTEGER NOT NULL DEFAULT 0,
  start_time INTEGER NOT NULL,
  end_time INTEGER,
  time_spent_seconds INTEGER NOT NULL DEFAULT 0,
  raw_score REAL,
  estimated_level TEXT,
  estimated_score_min INTEGER,
  estimated_score_max INTEGER,
  mode TEXT NOT NULL DEFAULT '',
  certification_code TEXT NOT NULL DEFAULT '',
  career_path TEXT NOT NULL DEFAULT '',
  tracking_json TEXT NOT NULL,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_attempts_one_active
  ON diagnostic_attempts(user_id) WHERE status = 'IN_PROGRESS';

CREATE TABLE IF NOT EXISTS diagnostic_answers (
  id INTEGER PRIMARY KEY,
  attempt_id TEXT NOT NULL REFERENCES diagnostic_attempts(id) ON DELETE CASCADE,
  question_id INTEGER NOT NULL,
  skill_id INTEGER,
  question_order INTEGER NOT NULL,
  user_answer TEXT NOT NULL,
  is_correct INTEGER NOT NULL,
  time_spent_seconds INTEGER NOT NULL DEFAULT 0,
  answered_at INTEGER NOT NULL,
  UNIQUE (attempt_id, question_id)
);

CREATE TABLE IF NOT EXISTS skill_mastery (
  user_id TEXT NOT NULL,
  skill_id INTEGER NOT NULL,
  mastery_level REAL NOT NULL,
  confidence REAL NOT NULL,
  attempts INTEGER NOT NULL DEFAULT 0,
  correct_count INTEGER NOT NULL DEFAULT 0,
  streak INTEGER NOT NULL DEFAULT 0,
  last_practiced_at INTEGER NOT NULL,
  PRIMARY KEY (user_id, skill_id)
);

CREATE TABLE IF NOT EXISTS srs_cards (
  id INTEGER PRIMARY KEY,
  user_id TEXT NOT NULL,
  question_id INTEGER NOT NULL,
  skill_id INTEGER,
  certification_code TEXT NOT NULL DEFAULT '',
  ease_factor REAL NOT NULL DEFAULT 2.5,
  interval_days INTEGER NOT NULL DEFAULT 1,
  repetitions INTEGER NOT NULL DEFAULT 0,
  quality_history TEXT NOT NULL DEFAULT '[]',
  status TEXT NOT NULL DEFAULT 'NEW',
  total_reviews INTEGER NOT NULL DEFAULT 0,
  correct_reviews INTEGER NOT NULL DEFAULT 0,
  last_quality INTEGER,
  streak INTEGER NOT NULL DEFAULT 0,
  next_review_at INTEGER NOT NULL,
  last_reviewed_at INTEGER,
  sync_version INTEGER NOT NULL DEFAULT 1,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL,
  UNIQUE (user_id, question_id)
);

CREATE TABLE IF NOT EXISTS practice_sessions (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  session_type TEXT NOT NULL,
  target_skill_id INTEGER,
  certification_code TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL,
  total_questions INTEGER NOT NULL,
  answered_questions INTEGER NOT NULL DEFAULT 0,
  correct_count INTEGER NOT NULL DEFAULT 0,
  tracking_json TEXT NOT NULL,
  started_at INTEGER NOT NULL,
  ended_at INTEGER
);

CREATE TABLE IF NOT EXISTS practice_answers (
  id INTEGER PRIMARY KEY,
  session_id TEXT NOT NULL REFERENCES practice_sessions(id) ON DELETE CASCADE,
  question_id INTEGER NOT NULL,
  skill_id INTEGER,
  is_correct INTEGER NOT NULL,
  time_spent_seconds INTEGER NOT NULL DEFAULT 0,
  answered_at INTEGER NOT NULL,
  UNIQUE (session_id, question_id)
);

CREATE TABLE IF NOT EXISTS readiness_snapshots (
  id INTEGER PRIMARY KEY,
  user_id TEXT NOT NULL,
  test_type TEXT NOT NULL DEFAULT '',
  snapshot_date INTEGER NOT NULL,
  questions_answered INTEGER NOT NULL,
  correct_count INTEGER NOT NULL,
  overall_readiness REAL NOT NULL,
  predicted_score INTEGER NOT NULL,
  pass_probability REAL NOT NULL,
  target_score INTEGER NOT NULL,
  gap_to_target INTEGER NOT NULL,
  estimated_days_to_ready INTEGER NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  pass_hash TEXT NOT NULL,
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS skills (
  id BIGINT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  category TEXT NOT NULL,
  subcategory TEXT NOT NULL DEFAULT '',
  parent_id BIGINT,
  certification_code TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'active'
);

CREATE TABLE IF NOT EXISTS questions (
  id BIGINT PRIMARY KEY,
  text TEXT NOT NULL,
  options_json TEXT NOT NULL,
  difficulty INT NOT NULL DEFAULT 3
);

CREATE TABLE IF NOT EXISTS question_skills (
  question_id BIGINT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
  skill_id BIGINT NOT NULL REFERENCES skills(id) ON DELETE CASCADE,
  is_primary BOOLEAN NOT NULL DEFAULT FALSE,
  PRIMARY KEY (question_id, skill_id)
);

CREATE TABLE IF NOT EXISTS diagnostic_attempts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  session_id TEXT NOT NULL UNIQUE,
  test_type TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL,
  total_questions INT NOT NULL,
  answered_questions INT NOT NULL DEFAULT 0,
  start_time BIGINT NOT NULL,
  end_time BIGINT,
  time_spent_seconds INT NOT NULL DEFAULT 0,
  raw_score DOUBLE PRECISION,
  estimated_level TEXT,
  estimated_score_min INT,
  estimated_score_max INT,
  mode TEXT NOT NULL DEFAULT '',
  certification_code TEXT NOT NULL DEFAULT '',
  career_path TEXT NOT NULL DEFAULT '',
  tracking_json TEXT NOT NULL,
  created_at BIGINT NOT NULL,
  updated_at BIGINT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_attempts_one_active
  ON diagnostic_attempts(user_id) WHERE status = 'IN_PROGRESS';

CREATE TABLE IF NOT EXISTS diagnostic_answers (
  id BIGSERIAL PRIMARY KEY,
  attempt_id TEXT NOT NULL REFERENCES diagnostic_attempts(id) ON DELETE CASCADE,
  question_id BIGINT NOT NULL,
  skill_id BIGINT,
  question_order INT NOT NULL,
  user_answer TEXT NOT NULL,
  is_correct BOOLEAN NOT NULL,
  time_spent_seconds INT NOT NULL DEFAULT 0,
  answered_at BIGINT NOT NULL,
  UNIQUE (attempt_id, question_id)
);

CREATE TABLE IF NOT EXISTS skill_mastery (
  user_id TEXT NOT NULL,
  skill_id BIGINT NOT NULL,
  mastery_level DOUBLE PRECISION NOT NULL,
  confidence DOUBLE PRECISION NOT NULL,
  attempts INT NOT NULL DEFAULT 0,
  correct_count INT NOT NULL DEFAULT 0,
  streak INT NOT NULL DEFAULT 0,
  last_practiced_at BIGINT NOT NULL,
  PRIMARY KEY (user_id, skill_id)
);

CREATE TABLE IF NOT EXISTS srs_cards (
  id BIGSERIAL PRIMARY KEY,
  user_id TEXT NOT NULL,
  question_id BIGINT NOT NULL,
  skill_id BIGINT,
  certification_code TEXT NOT NULL DEFAULT '',
  ease_factor DOUBLE PRECISION NOT NULL DEFAULT 2.5,
  interval_days INT NOT NULL DEFAULT 1,
  repetitions INT NOT NULL DEFAULT 0,
  quality_history TEXT NOT NULL DEFAULT '[]',
  status TEXT NOT NULL DEFAULT 'NEW',
  total_reviews INT NOT NULL DEFAULT 0,
  correct_reviews INT NOT NULL DEFAULT 0,
  last_quality INT,
  streak INT NOT NULL DEFAULT 0,
  next_review_at BIGINT NOT NULL,
  last_reviewed_at BIGINT,
  sync_version BIGINT NOT NULL DEFAULT 1,
  created_at BIGINT NOT NULL,
  updated_at BIGINT NOT NULL,
  UNIQUE (user_id, question_id)
);

CREATE TABLE IF NOT EXISTS practice_sessions (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  session_type TEXT NOT NULL,
  target_skill_id BIGINT,
  certification_code TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL,
  total_questions INT NOT NULL,
  answered_questions INT NOT NULL DEFAULT 0,
  correct_count INT NOT NULL DEFAULT 0,
  tracking_json TEXT NOT NULL,
  started_at BIGINT NOT NULL,
  ended_at BIGINT
);

CREATE TABLE IF NOT EXISTS practice_answers (
  id BIGSERIAL PRIMARY KEY,
  session_id TEXT NOT NULL REFERENCES practice_sessions(id) ON DELETE CASCADE,
  question_id BIGINT NOT NULL,
  skill_id BIGINT,
  is_correct BOOLEAN NOT NULL,
  time_spent_seconds INT NOT NULL DEFAULT 0,
  answered_at BIGINT NOT NULL,
  UNIQUE (session_id, question_id)
);

CREATE TABLE IF NOT EXISTS readiness_snapshots (
  id BIGSERIAL PRIMARY KEY,
  user_id TEXT NOT NULL,
  test_type TEXT NOT NULL DEFAULT '',
  snapshot_date BIGINT NOT NULL,
  questions_answered INT NOT NULL,
  correct_count INT NOT NULL,
  overall_readiness DOUBLE PRECISION NOT NULL,
  predicted_score INT NOT NULL,
  pass_probability DOUBLE PRECISION NOT NULL,
  target_score INT NOT NULL,
  gap_to_target INT NOT NULL,
  estimated_days_to_ready INT NOT NULL
);
`
