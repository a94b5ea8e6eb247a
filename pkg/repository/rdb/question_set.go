package rdb

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/pulsecheck/pkg/domain/interfaces"
	"github.com/secmon-lab/pulsecheck/pkg/domain/model"
	"github.com/secmon-lab/pulsecheck/pkg/domain/types"
	"github.com/secmon-lab/pulsecheck/pkg/utils/safe"
)

type questionSetRepository struct {
	r *RDB
}

const questionSetColumns = `id, hr_id, employee_id, prompt, status, risk_level, created_at, completed_at, updated_at`

func scanQuestionSet(s rowScanner) (*model.QuestionSet, error) {
	var (
		qs                   model.QuestionSet
		createdAt, updatedAt int64
		completedAt          sql.NullInt64
	)
	if err := s.Scan(&qs.ID, &qs.HRID, &qs.EmployeeID, &qs.Prompt, &qs.Status, &qs.RiskLevel, &createdAt, &completedAt, &updatedAt); err != nil {
		return nil, err
	}
	qs.CreatedAt = fromMillis(createdAt)
	qs.CompletedAt = fromNullMillis(completedAt)
	qs.UpdatedAt = fromMillis(updatedAt)
	return &qs, nil
}

func (x *questionSetRepository) CreateWithQuestions(ctx context.Context, set *model.QuestionSet, questions []*model.Question) (*model.QuestionSet, error) {
	created := *set
	ts := now()
	if created.CreatedAt.IsZero() {
		created.CreatedAt = ts
	}
	created.UpdatedAt = ts

	err := x.r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, x.r.rebind(`INSERT INTO question_sets (`+questionSetColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			created.ID, created.HRID, created.EmployeeID, created.Prompt, created.Status, created.RiskLevel,
			toMillis(created.CreatedAt), nullMillis(created.CompletedAt), toMillis(created.UpdatedAt))
		if err != nil {
			return goerr.Wrap(err, "failed to insert question set", goerr.V(model.QuestionSetIDKey, created.ID))
		}

		stmt, err := tx.PrepareContext(ctx, x.r.rebind(`INSERT INTO questions (`+questionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
		if err != nil {
			return goerr.Wrap(err, "failed to prepare question insert")
		}
		defer safe.Close(ctx, stmt, "statement")

		for _, q := range questions {
			if q.QuestionSetID != created.ID {
				return goerr.Wrap(model.ErrValidation, "question belongs to another set", goerr.V(model.QuestionIDKey, q.ID))
			}
			createdAt := q.CreatedAt
			if createdAt.IsZero() {
				createdAt = created.CreatedAt
			}
			_, err := stmt.ExecContext(ctx,
				q.ID, q.QuestionSetID, q.EmployeeID, q.HRID, q.Position, q.Text,
				nullString(q.AnswerText), q.Status, nullString(string(q.RiskLevel)),
				toMillis(createdAt), nullMillis(q.AnsweredAt))
			if err != nil {
				return goerr.Wrap(err, "failed to insert question", goerr.V(model.QuestionIDKey, q.ID))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (x *questionSetRepository) Get(ctx context.Context, id model.QuestionSetID) (*model.QuestionSet, error) {
	row := x.r.db.QueryRowContext(ctx, x.r.rebind(`SELECT `+questionSetColumns+` FROM question_sets WHERE id = ?`), id)
	qs, err := scanQuestionSet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(model.ErrNotFound, "question set not found", goerr.V(model.QuestionSetIDKey, id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get question set", goerr.V(model.QuestionSetIDKey, id))
	}
	return qs, nil
}

func (x *questionSetRepository) List(ctx context.Context, opts ...interfaces.ListQuestionSetOption) ([]*model.QuestionSet, error) {
	cfg := interfaces.BuildListQuestionSetConfig(opts...)

	var (
		conds []string
		args  []any
	)
	if v := cfg.HRID(); v != nil {
		conds = append(conds, "hr_id = ?")
		args = append(args, *v)
	}
	if v := cfg.EmployeeID(); v != nil {
		conds = append(conds, "employee_id = ?")
		args = append(args, *v)
	}
	if v := cfg.Status(); v != nil {
		conds = append(conds, "status = ?")
		args = append(args, *v)
	}

	query := `SELECT ` + questionSetColumns + ` FROM question_sets`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at DESC`

	rows, err := x.r.db.QueryContext(ctx, x.r.rebind(query), args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list question sets")
	}
	defer safe.Close(ctx, rows, "rows")

	sets := make([]*model.QuestionSet, 0)
	for rows.Next() {
		qs, err := scanQuestionSet(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan question set")
		}
		sets = append(sets, qs)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate question sets")
	}
	return sets, nil
}

func (x *questionSetRepository) CompareAndSwapStatus(ctx context.Context, id model.QuestionSetID, from, to types.QuestionSetStatus) (*model.QuestionSet, error) {
	res, err := x.r.db.ExecContext(ctx, x.r.rebind(`UPDATE question_sets SET status = ?, updated_at = ? WHERE id = ? AND status = ?`),
		to, toMillis(now()), id, from)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update question set status", goerr.V(model.QuestionSetIDKey, id))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get affected rows")
	}

	current, err := x.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, goerr.Wrap(model.ErrStatusConflict, "unexpected question set status",
			goerr.V(model.QuestionSetIDKey, id),
			goerr.V(model.StatusKey, current.Status),
			goerr.V("expected", from))
	}
	return current, nil
}

// lockStatus reads the status of a set inside tx, locking the row on Postgres.
func (x *questionSetRepository) lockStatus(ctx context.Context, tx *sql.Tx, id model.QuestionSetID) (types.QuestionSetStatus, error) {
	var status types.QuestionSetStatus
	err := tx.QueryRowContext(ctx, x.r.rebind(`SELECT status FROM question_sets WHERE id = ?`+x.r.forUpdate()), id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", goerr.Wrap(model.ErrNotFound, "question set not found", goerr.V(model.QuestionSetIDKey, id))
	}
	if err != nil {
		return "", goerr.Wrap(err, "failed to read question set status", goerr.V(model.QuestionSetIDKey, id))
	}
	return status, nil
}

func (x *questionSetRepository) SubmitAnswers(ctx context.Context, id model.QuestionSetID, answers map[model.QuestionID]string, at time.Time) (*model.QuestionSet, error) {
	at = at.UTC().Truncate(time.Millisecond)

	err := x.r.withTx(ctx, func(tx *sql.Tx) error {
		status, err := x.lockStatus(ctx, tx, id)
		if err != nil {
			return err
		}
		if status != types.QuestionSetStatusPending {
			return goerr.Wrap(model.ErrStatusConflict, "question set is not pending",
				goerr.V(model.QuestionSetIDKey, id), goerr.V(model.StatusKey, status))
		}

		for qid, text := range answers {
			res, err := tx.ExecContext(ctx, x.r.rebind(`UPDATE questions SET answer_text = ?, status = ?, answered_at = ? WHERE id = ? AND question_set_id = ?`),
				text, types.QuestionStatusAnswered, toMillis(at), qid, id)
			if err != nil {
				return goerr.Wrap(err, "failed to store answer", goerr.V(model.QuestionIDKey, qid))
			}
			if n, err := res.RowsAffected(); err == nil && n == 0 {
				return goerr.Wrap(model.ErrValidation, "question does not belong to set",
					goerr.V(model.QuestionSetIDKey, id), goerr.V(model.QuestionIDKey, qid))
			}
		}

		_, err = tx.ExecContext(ctx, x.r.rebind(`UPDATE question_sets SET status = ?, completed_at = ?, updated_at = ? WHERE id = ?`),
			types.QuestionSetStatusCompleted, toMillis(at), toMillis(at), id)
		if err != nil {
			return goerr.Wrap(err, "failed to complete question set", goerr.V(model.QuestionSetIDKey, id))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return x.Get(ctx, id)
}

func (x *questionSetRepository) CommitAnalysis(ctx context.Context, commit *model.AnalysisCommit) (*model.QuestionSet, error) {
	id := commit.QuestionSetID
	at := commit.AnalyzedAt.UTC().Truncate(time.Millisecond)

	err := x.r.withTx(ctx, func(tx *sql.Tx) error {
		status, err := x.lockStatus(ctx, tx, id)
		if err != nil {
			return err
		}
		if status != types.QuestionSetStatusAnalyzing {
			return goerr.Wrap(model.ErrStatusConflict, "question set is not being analyzed",
				goerr.V(model.QuestionSetIDKey, id), goerr.V(model.StatusKey, status))
		}

		for _, res := range commit.Results {
			r, err := tx.ExecContext(ctx, x.r.rebind(`UPDATE questions SET status = ?, risk_level = ? WHERE id = ? AND question_set_id = ?`),
				types.QuestionStatusAnalyzed, res.RiskLevel, res.QuestionID, id)
			if err != nil {
				return goerr.Wrap(err, "failed to store question risk", goerr.V(model.QuestionIDKey, res.QuestionID))
			}
			if n, err := r.RowsAffected(); err == nil && n == 0 {
				return goerr.Wrap(model.ErrValidation, "question does not belong to set",
					goerr.V(model.QuestionSetIDKey, id), goerr.V(model.QuestionIDKey, res.QuestionID))
			}
		}

		_, err = tx.ExecContext(ctx, x.r.rebind(`UPDATE question_sets SET status = ?, risk_level = ?, completed_at = ?, updated_at = ? WHERE id = ?`),
			types.QuestionSetStatusAnalyzed, commit.OverallRisk, toMillis(at), toMillis(at), id)
		if err != nil {
			return goerr.Wrap(err, "failed to mark question set analyzed", goerr.V(model.QuestionSetIDKey, id))
		}

		if h := commit.History; h != nil {
			_, err = tx.ExecContext(ctx, x.r.rebind(`INSERT INTO question_history (`+historyColumns+`) VALUES (?, ?, ?, ?, ?, ?)`),
				h.ID, h.QuestionSetID, h.EmployeeID, h.HRID, h.OverallRiskLevel, toMillis(h.CompletedAt))
			if err != nil {
				return goerr.Wrap(err, "failed to append history", goerr.V(model.QuestionSetIDKey, id))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return x.Get(ctx, id)
}
