package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/pulsecheck/pkg/domain/interfaces"
	"github.com/secmon-lab/pulsecheck/pkg/domain/model"
	"github.com/secmon-lab/pulsecheck/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type questionDocument struct {
	ID            string     `firestore:"id"`
	QuestionSetID string     `firestore:"question_set_id"`
	EmployeeID    string     `firestore:"employee_id"`
	HRID          string     `firestore:"hr_id"`
	Position      int        `firestore:"position"`
	QuestionText  string     `firestore:"question_text"`
	AnswerText    string     `firestore:"answer_text"`
	Status        string     `firestore:"status"`
	RiskLevel     string     `firestore:"risk_level"`
	CreatedAt     time.Time  `firestore:"created_at"`
	AnsweredAt    *time.Time `firestore:"answered_at"`
}

func questionToDocument(q *model.Question) *questionDocument {
	return &questionDocument{
		ID:            string(q.ID),
		QuestionSetID: string(q.QuestionSetID),
		EmployeeID:    string(q.EmployeeID),
		HRID:          string(q.HRID),
		Position:      q.Position,
		QuestionText:  q.Text,
		AnswerText:    q.AnswerText,
		Status:        string(q.Status),
		RiskLevel:     string(q.RiskLevel),
		CreatedAt:     q.CreatedAt,
		AnsweredAt:    q.AnsweredAt,
	}
}

func questionToModel(doc *questionDocument) *model.Question {
	return &model.Question{
		ID:            model.QuestionID(doc.ID),
		QuestionSetID: model.QuestionSetID(doc.QuestionSetID),
		EmployeeID:    model.UserProfileID(doc.EmployeeID),
		HRID:          model.UserProfileID(doc.HRID),
		Position:      doc.Position,
		Text:          doc.QuestionText,
		AnswerText:    doc.AnswerText,
		Status:        types.QuestionStatus(doc.Status),
		RiskLevel:     types.RiskLevel(doc.RiskLevel),
		CreatedAt:     doc.CreatedAt,
		AnsweredAt:    doc.AnsweredAt,
	}
}

type questionRepository struct {
	f *Firestore
}

func (r *questionRepository) Get(ctx context.Context, id model.QuestionID) (*model.Question, error) {
	snap, err := r.f.collection(collQuestions).Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrNotFound, "question not found", goerr.V(model.QuestionIDKey, id))
		}
		return nil, goerr.Wrap(err, "failed to get question", goerr.V(model.QuestionIDKey, id))
	}

	var doc questionDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode question", goerr.V(model.QuestionIDKey, id))
	}
	return questionToModel(&doc), nil
}

func (r *questionRepository) ListBySet(ctx context.Context, setID model.QuestionSetID) ([]*model.Question, error) {
	iter := r.f.collection(collQuestions).
		Where("question_set_id", "==", string(setID)).
		OrderBy("position", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	questions := make([]*model.Question, 0)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate questions", goerr.V(model.QuestionSetIDKey, setID))
		}

		var doc questionDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode question", goerr.V("doc_id", snap.Ref.ID))
		}
		questions = append(questions, questionToModel(&doc))
	}
	return questions, nil
}

type historyDocument struct {
	ID               string    `firestore:"id"`
	QuestionSetID    string    `firestore:"question_set_id"`
	EmployeeID       string    `firestore:"employee_id"`
	HRID             string    `firestore:"hr_id"`
	OverallRiskLevel string    `firestore:"overall_risk_level"`
	CompletedAt      time.Time `firestore:"completed_at"`
}

func historyToDocument(h *model.QuestionHistory) *historyDocument {
	return &historyDocument{
		ID:               string(h.ID),
		QuestionSetID:    string(h.QuestionSetID),
		EmployeeID:       string(h.EmployeeID),
		HRID:             string(h.HRID),
		OverallRiskLevel: string(h.OverallRiskLevel),
		CompletedAt:      h.CompletedAt,
	}
}

type historyRepository struct {
	f *Firestore
}

func (r *historyRepository) List(ctx context.Context, opts ...interfaces.ListHistoryOption) ([]*model.QuestionHistory, error) {
	cfg := interfaces.BuildListHistoryConfig(opts...)

	q := r.f.collection(collQuestionHistory).Query
	if v := cfg.HRID(); v != nil {
		q = q.Where("hr_id", "==", string(*v))
	}
	if v := cfg.EmployeeID(); v != nil {
		q = q.Where("employee_id", "==", string(*v))
	}

	iter := q.OrderBy("completed_at", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	records := make([]*model.QuestionHistory, 0)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate history")
		}

		var doc historyDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode history", goerr.V("doc_id", snap.Ref.ID))
		}
		records = append(records, &model.QuestionHistory{
			ID:               model.QuestionHistoryID(doc.ID),
			QuestionSetID:    model.QuestionSetID(doc.QuestionSetID),
			EmployeeID:       model.UserProfileID(doc.EmployeeID),
			HRID:             model.UserProfileID(doc.HRID),
			OverallRiskLevel: types.RiskLevel(doc.OverallRiskLevel),
			CompletedAt:      doc.CompletedAt,
		})
	}
	return records, nil
}
