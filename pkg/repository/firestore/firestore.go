package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/pulsecheck/pkg/domain/interfaces"
)

const (
	collUserProfiles    = "user_profiles"
	collQuestionSets    = "question_sets"
	collQuestions       = "questions"
	collQuestionHistory = "question_history"
)

type Firestore struct {
	client           *firestore.Client
	collectionPrefix string

	userProfile *userProfileRepository
	questionSet *questionSetRepository
	question    *questionRepository
	history     *historyRepository
}

var _ interfaces.Repository = &Firestore{}

type Option func(*Firestore)

// WithCollectionPrefix prefixes every collection name, e.g. for test isolation
func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.collectionPrefix = prefix
	}
}

// New creates a Firestore repository. An empty databaseID selects the
// default database.
func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	var (
		client *firestore.Client
		err    error
	)
	if databaseID == "" {
		client, err = firestore.NewClient(ctx, projectID)
	} else {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID), goerr.V("databaseID", databaseID))
	}

	f := &Firestore{client: client}
	for _, opt := range opts {
		opt(f)
	}

	f.userProfile = &userProfileRepository{f: f}
	f.questionSet = &questionSetRepository{f: f}
	f.question = &questionRepository{f: f}
	f.history = &historyRepository{f: f}
	return f, nil
}

func (f *Firestore) collection(name string) *firestore.CollectionRef {
	if f.collectionPrefix != "" {
		return f.client.Collection(f.collectionPrefix + "_" + name)
	}
	return f.client.Collection(name)
}

func (f *Firestore) UserProfile() interfaces.UserProfileRepository {
	return f.userProfile
}

func (f *Firestore) QuestionSet() interfaces.QuestionSetRepository {
	return f.questionSet
}

func (f *Firestore) Question() interfaces.QuestionRepository {
	return f.question
}

func (f *Firestore) History() interfaces.QuestionHistoryRepository {
	return f.history
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}
