package memory

import (
	"sync"

	"github.com/secmon-lab/pulsecheck/pkg/domain/interfaces"
	"github.com/secmon-lab/pulsecheck/pkg/domain/model"
)

// Repository is an alias for Memory to match the pattern
type Repository = Memory

// Memory keeps every table behind one lock so that multi-row writes are
// applied atomically.
type Memory struct {
	mu        sync.RWMutex
	profiles  map[model.UserProfileID]*model.UserProfile
	sets      map[model.QuestionSetID]*model.QuestionSet
	questions map[model.QuestionID]*model.Question
	history   []*model.QuestionHistory

	userProfile *userProfileRepository
	questionSet *questionSetRepository
	question    *questionRepository
	hist        *historyRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	m := &Memory{
		profiles:  make(map[model.UserProfileID]*model.UserProfile),
		sets:      make(map[model.QuestionSetID]*model.QuestionSet),
		questions: make(map[model.QuestionID]*model.Question),
	}
	m.userProfile = &userProfileRepository{m: m}
	m.questionSet = &questionSetRepository{m: m}
	m.question = &questionRepository{m: m}
	m.hist = &historyRepository{m: m}
	return m
}

func (m *Memory) UserProfile() interfaces.UserProfileRepository {
	return m.userProfile
}

func (m *Memory) QuestionSet() interfaces.QuestionSetRepository {
	return m.questionSet
}

func (m *Memory) Question() interfaces.QuestionRepository {
	return m.question
}

func (m *Memory) History() interfaces.QuestionHistoryRepository {
	return m.hist
}

func (m *Memory) Close() error {
	return nil
}
