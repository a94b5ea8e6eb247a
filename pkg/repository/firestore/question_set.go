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

type questionSetDocument struct {
	ID          string     `firestore:"id"`
	HRID        string     `firestore:"hr_id"`
	EmployeeID  string     `firestore:"employee_id"`
	Prompt      string     `firestore:"prompt"`
	Status      string     `firestore:"status"`
	RiskLevel   string     `firestore:"risk_level"`
	CreatedAt   time.Time  `firestore:"created_at"`
	CompletedAt *time.Time `firestore:"completed_at"`
	UpdatedAt   time.Time  `firestore:"updated_at"`
}

func questionSetToDocument(s *model.QuestionSet) *questionSetDocument {
	return &questionSetDocument{
		ID:          string(s.ID),
		HRID:        string(s.HRID),
		EmployeeID:  string(s.EmployeeID),
		Prompt:      s.Prompt,
		Status:      string(s.Status),
		RiskLevel:   string(s.RiskLevel),
		CreatedAt:   s.CreatedAt,
		CompletedAt: s.CompletedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func questionSetToModel(doc *questionSetDocument) *model.QuestionSet {
	return &model.QuestionSet{
		ID:          model.QuestionSetID(doc.ID),
		HRID:        model.UserProfileID(doc.HRID),
		EmployeeID:  model.UserProfileID(doc.EmployeeID),
		Prompt:      doc.Prompt,
		Status:      types.QuestionSetStatus(doc.Status),
		RiskLevel:   types.RiskLevel(doc.RiskLevel),
		CreatedAt:   doc.CreatedAt,
		CompletedAt: doc.CompletedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
}

func decodeQuestionSet(snap *firestore.DocumentSnapshot) (*model.QuestionSet, error) {
	var doc questionSetDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode question set", goerr.V("doc_id", snap.Ref.ID))
	}
	return questionSetToModel(&doc), nil
}

type questionSetRepository struct {
	f *Firestore
}

func (r *questionSetRepository) coll() *firestore.CollectionRef {
	return r.f.collection(collQuestionSets)
}

func (r *questionSetRepository) CreateWithQuestions(ctx context.Context, set *model.QuestionSet, questions []*model.Question) (*model.QuestionSet, error) {
	created := *set
	now := time.Now().UTC()
	if created.CreatedAt.IsZero() {
		created.CreatedAt = now
	}
	created.UpdatedAt = now

	for _, q := range questions {
		if q.QuestionSetID != created.ID {
			return nil, goerr.Wrap(model.ErrValidation, "question belongs to another set", goerr.V(model.QuestionIDKey, q.ID))
		}
	}

	err := r.f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Create(r.coll().Doc(string(created.ID)), questionSetToDocument(&created)); err != nil {
			return goerr.Wrap(err, "failed to create question set")
		}
		for _, q := range questions {
			doc := questionToDocument(q)
			if doc.CreatedAt.IsZero() {
				doc.CreatedAt = created.CreatedAt
			}
			if err := tx.Create(r.f.collection(collQuestions).Doc(doc.ID), doc); err != nil {
				return goerr.Wrap(err, "failed to create question", goerr.V(model.QuestionIDKey, q.ID))
			}
		}
		return nil
	})
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, goerr.Wrap(model.ErrAlreadyExists, "question set already exists", goerr.V(model.QuestionSetIDKey, created.ID))
		}
		return nil, goerr.Wrap(err, "failed to create question set", goerr.V(model.QuestionSetIDKey, created.ID))
	}
	return &created, nil
}

func (r *questionSetRepository) Get(ctx context.Context, id model.QuestionSetID) (*model.QuestionSet, error) {
	snap, err := r.coll().Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrNotFound, "question set not found", goerr.V(model.QuestionSetIDKey, id))
		}
		return nil, goerr.Wrap(err, "failed to get question set", goerr.V(model.QuestionSetIDKey, id))
	}
	return decodeQuestionSet(snap)
}

// List requires the composite indexes declared by the migrate command.
func (r *questionSetRepository) List(ctx context.Context, opts ...interfaces.ListQuestionSetOption) ([]*model.QuestionSet, error) {
	cfg := interfaces.BuildListQuestionSetConfig(opts...)

	q := r.coll().Query
	if v := cfg.HRID(); v != nil {
		q = q.Where("hr_id", "==", string(*v))
	}
	if v := cfg.EmployeeID(); v != nil {
		q = q.Where("employee_id", "==", string(*v))
	}
	if v := cfg.Status(); v != nil {
		q = q.Where("status", "==", string(*v))
	}

	iter := q.OrderBy("created_at", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	sets := make([]*model.QuestionSet, 0)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate question sets")
		}
		s, err := decodeQuestionSet(snap)
		if err != nil {
			return nil, err
		}
		sets = append(sets, s)
	}
	return sets, nil
}

// getInTx reads the set inside tx and checks its status.
func (r *questionSetRepository) getInTx(tx *firestore.Transaction, id model.QuestionSetID, want types.QuestionSetStatus) (*model.QuestionSet, error) {
	snap, err := tx.Get(r.coll().Doc(string(id)))
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrNotFound, "question set not found", goerr.V(model.QuestionSetIDKey, id))
		}
		return nil, goerr.Wrap(err, "failed to get question set", goerr.V(model.QuestionSetIDKey, id))
	}
	s, err := decodeQuestionSet(snap)
	if err != nil {
		return nil, err
	}
	if s.Status != want {
		return nil, goerr.Wrap(model.ErrStatusConflict, "unexpected question set status",
			goerr.V(model.QuestionSetIDKey, id),
			goerr.V(model.StatusKey, s.Status),
			goerr.V("expected", want))
	}
	return s, nil
}

// checkQuestions reads the referenced questions inside tx and verifies that
// all of them belong to the set.
func (r *questionSetRepository) checkQuestions(tx *firestore.Transaction, id model.QuestionSetID, ids []model.QuestionID) ([]*firestore.DocumentRef, error) {
	refs := make([]*firestore.DocumentRef, len(ids))
	for i, qid := range ids {
		refs[i] = r.f.collection(collQuestions).Doc(string(qid))
	}

	snaps, err := tx.GetAll(refs)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get questions", goerr.V(model.QuestionSetIDKey, id))
	}
	for i, snap := range snaps {
		if !snap.Exists() {
			return nil, goerr.Wrap(model.ErrValidation, "question does not belong to set",
				goerr.V(model.QuestionSetIDKey, id), goerr.V(model.QuestionIDKey, ids[i]))
		}
		setID, err := snap.DataAt("question_set_id")
		if err != nil || setID != string(id) {
			return nil, goerr.Wrap(model.ErrValidation, "question does not belong to set",
				goerr.V(model.QuestionSetIDKey, id), goerr.V(model.QuestionIDKey, ids[i]))
		}
	}
	return refs, nil
}

func (r *questionSetRepository) CompareAndSwapStatus(ctx context.Context, id model.QuestionSetID, from, to types.QuestionSetStatus) (*model.QuestionSet, error) {
	var updated *model.QuestionSet
	err := r.f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		s, err := r.getInTx(tx, id, from)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		s.Status = to
		s.UpdatedAt = now
		updated = s

		return tx.Update(r.coll().Doc(string(id)), []firestore.Update{
			{Path: "status", Value: string(to)},
			{Path: "updated_at", Value: now},
		})
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to swap question set status", goerr.V(model.QuestionSetIDKey, id))
	}
	return updated, nil
}

func (r *questionSetRepository) SubmitAnswers(ctx context.Context, id model.QuestionSetID, answers map[model.QuestionID]string, at time.Time) (*model.QuestionSet, error) {
	at = at.UTC()
	ids := make([]model.QuestionID, 0, len(answers))
	for qid := range answers {
		ids = append(ids, qid)
	}

	var updated *model.QuestionSet
	err := r.f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		s, err := r.getInTx(tx, id, types.QuestionSetStatusPending)
		if err != nil {
			return err
		}
		refs, err := r.checkQuestions(tx, id, ids)
		if err != nil {
			return err
		}

		for i, ref := range refs {
			if err := tx.Update(ref, []firestore.Update{
				{Path: "answer_text", Value: answers[ids[i]]},
				{Path: "status", Value: string(types.QuestionStatusAnswered)},
				{Path: "answered_at", Value: at},
			}); err != nil {
				return goerr.Wrap(err, "failed to store answer", goerr.V(model.QuestionIDKey, ids[i]))
			}
		}

		s.Status = types.QuestionSetStatusCompleted
		s.CompletedAt = &at
		s.UpdatedAt = at
		updated = s

		return tx.Update(r.coll().Doc(string(id)), []firestore.Update{
			{Path: "status", Value: string(s.Status)},
			{Path: "completed_at", Value: at},
			{Path: "updated_at", Value: at},
		})
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to submit answers", goerr.V(model.QuestionSetIDKey, id))
	}
	return updated, nil
}

func (r *questionSetRepository) CommitAnalysis(ctx context.Context, commit *model.AnalysisCommit) (*model.QuestionSet, error) {
	id := commit.QuestionSetID
	at := commit.AnalyzedAt.UTC()
	ids := make([]model.QuestionID, len(commit.Results))
	for i, res := range commit.Results {
		ids[i] = res.QuestionID
	}

	var updated *model.QuestionSet
	err := r.f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		s, err := r.getInTx(tx, id, types.QuestionSetStatusAnalyzing)
		if err != nil {
			return err
		}
		refs, err := r.checkQuestions(tx, id, ids)
		if err != nil {
			return err
		}

		for i, ref := range refs {
			if err := tx.Update(ref, []firestore.Update{
				{Path: "status", Value: string(types.QuestionStatusAnalyzed)},
				{Path: "risk_level", Value: string(commit.Results[i].RiskLevel)},
			}); err != nil {
				return goerr.Wrap(err, "failed to store question risk", goerr.V(model.QuestionIDKey, ids[i]))
			}
		}

		s.Status = types.QuestionSetStatusAnalyzed
		s.RiskLevel = commit.OverallRisk
		s.CompletedAt = &at
		s.UpdatedAt = at
		updated = s

		if err := tx.Update(r.coll().Doc(string(id)), []firestore.Update{
			{Path: "status", Value: string(s.Status)},
			{Path: "risk_level", Value: string(s.RiskLevel)},
			{Path: "completed_at", Value: at},
			{Path: "updated_at", Value: at},
		}); err != nil {
			return goerr.Wrap(err, "failed to mark question set analyzed")
		}

		if h := commit.History; h != nil {
			return tx.Create(r.f.collection(collQuestionHistory).Doc(string(h.ID)), historyToDocument(h))
		}
		return nil
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to commit analysis", goerr.V(model.QuestionSetIDKey, id))
	}
	return updated, nil
}
