package rdb

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
)

// Times are stored as unix milliseconds so both dialects share one schema.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS user_profiles (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL,
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_user_profiles_role ON user_profiles (role)`,
	`CREATE TABLE IF NOT EXISTS question_sets (
		id TEXT PRIMARY KEY,
		hr_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		prompt TEXT NOT NULL,
		status TEXT NOT NULL,
		risk_level TEXT NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL,
		completed_at BIGINT,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_question_sets_hr ON question_sets (hr_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_question_sets_employee ON question_sets (employee_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_question_sets_status ON question_sets (status, updated_at)`,
	`CREATE TABLE IF NOT EXISTS questions (
		id TEXT PRIMARY KEY,
		question_set_id TEXT NOT NULL REFERENCES question_sets (id) ON DELETE CASCADE,
		employee_id TEXT NOT NULL,
		hr_id TEXT NOT NULL,
		ordinal INTEGER NOT NULL,
		question_text TEXT NOT NULL,
		answer_text TEXT,
		status TEXT NOT NULL,
		risk_level TEXT,
		created_at BIGINT NOT NULL,
		answered_at BIGINT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_questions_set ON questions (question_set_id, ordinal)`,
	`CREATE TABLE IF NOT EXISTS question_history (
		id TEXT PRIMARY KEY,
		question_set_id TEXT NOT NULL REFERENCES question_sets (id) ON DELETE CASCADE,
		employee_id TEXT NOT NULL,
		hr_id TEXT NOT NULL,
		overall_risk_level TEXT NOT NULL,
		completed_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_question_history_hr ON question_history (hr_id, completed_at)`,
	`CREATE INDEX IF NOT EXISTS idx_question_history_employee ON question_history (employee_id, completed_at)`,
}

func (r *RDB) bootstrap(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return goerr.Wrap(err, "failed to apply schema", goerr.V("statement", stmt))
		}
	}
	return nil
}
