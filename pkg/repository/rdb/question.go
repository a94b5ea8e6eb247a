package rdb

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/pulsecheck/pkg/domain/interfaces"
	"github.com/secmon-lab/pulsecheck/pkg/domain/model"
	"github.com/secmon-lab/pulsecheck/pkg/domain/types"
	"github.com/secmon-lab/pulsecheck/pkg/utils/safe"
)

type questionRepository struct {
	r *RDB
}

const questionColumns = `id, question_set_id, employee_id, hr_id, ordinal, question_text, answer_text, status, risk_level, created_at, answered_at`

func scanQuestion(s rowScanner) (*model.Question, error) {
	var (
		q          model.Question
		answer     sql.NullString
		riskLevel  sql.NullString
		createdAt  int64
		answeredAt sql.NullInt64
	)
	if err := s.Scan(&q.ID, &q.QuestionSetID, &q.EmployeeID, &q.HRID, &q.Position, &q.Text, &answer, &q.Status, &riskLevel, &createdAt, &answeredAt); err != nil {
		return nil, err
	}
	q.AnswerText = answer.String
	q.RiskLevel = types.RiskLevel(riskLevel.String)
	q.CreatedAt = fromMillis(createdAt)
	q.AnsweredAt = fromNullMillis(answeredAt)
	return &q, nil
}

func (x *questionRepository) Get(ctx context.Context, id model.QuestionID) (*model.Question, error) {
	row := x.r.db.QueryRowContext(ctx, x.r.rebind(`SELECT `+questionColumns+` FROM questions WHERE id = ?`), id)
	q, err := scanQuestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(model.ErrNotFound, "question not found", goerr.V(model.QuestionIDKey, id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get question", goerr.V(model.QuestionIDKey, id))
	}
	return q, nil
}

func (x *questionRepository) ListBySet(ctx context.Context, setID model.QuestionSetID) ([]*model.Question, error) {
	rows, err := x.r.db.QueryContext(ctx, x.r.rebind(`SELECT `+questionColumns+` FROM questions WHERE question_set_id = ? ORDER BY ordinal`), setID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list questions", goerr.V(model.QuestionSetIDKey, setID))
	}
	defer safe.Close(ctx, rows, "rows")

	questions := make([]*model.Question, 0)
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan question")
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate questions")
	}
	return questions, nil
}

type historyRepository struct {
	r *RDB
}

const historyColumns = `id, question_set_id, employee_id, hr_id, overall_risk_level, completed_at`

func (x *historyRepository) List(ctx context.Context, opts ...interfaces.ListHistoryOption) ([]*model.QuestionHistory, error) {
	cfg := interfaces.BuildListHistoryConfig(opts...)

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

	query := `SELECT ` + historyColumns + ` FROM question_history`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY completed_at DESC`

	rows, err := x.r.db.QueryContext(ctx, x.r.rebind(query), args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list history")
	}
	defer safe.Close(ctx, rows, "rows")

	records := make([]*model.QuestionHistory, 0)
	for rows.Next() {
		var (
			h           model.QuestionHistory
			completedAt int64
		)
		if err := rows.Scan(&h.ID, &h.QuestionSetID, &h.EmployeeID, &h.HRID, &h.OverallRiskLevel, &completedAt); err != nil {
			return nil, goerr.Wrap(err, "failed to scan history")
		}
		h.CompletedAt = fromMillis(completedAt)
		records = append(records, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate history")
	}
	return records, nil
}
