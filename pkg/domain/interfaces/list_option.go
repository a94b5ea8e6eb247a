package interfaces

import (
	"github.com/secmon-lab/pulsecheck/pkg/domain/model"
	"github.com/secmon-lab/pulsecheck/pkg/domain/types"
)

// ListQuestionSetOption is a functional option for filtering question sets in List
type ListQuestionSetOption func(*listQuestionSetConfig)

type listQuestionSetConfig struct {
	hrID       *model.UserProfileID
	employeeID *model.UserProfileID
	status     *types.QuestionSetStatus
}

// WithHRID filters question sets by authoring HR profile
func WithHRID(id model.UserProfileID) ListQuestionSetOption {
	return func(c *listQuestionSetConfig) {
		c.hrID = &id
	}
}

// WithEmployeeID filters question sets by assigned employee
func WithEmployeeID(id model.UserProfileID) ListQuestionSetOption {
	return func(c *listQuestionSetConfig) {
		c.employeeID = &id
	}
}

// WithStatus filters question sets by status
func WithStatus(status types.QuestionSetStatus) ListQuestionSetOption {
	return func(c *listQuestionSetConfig) {
		c.status = &status
	}
}

// BuildListQuestionSetConfig builds a listQuestionSetConfig from options
func BuildListQuestionSetConfig(opts ...ListQuestionSetOption) *listQuestionSetConfig {
	cfg := &listQuestionSetConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func (c *listQuestionSetConfig) HRID() *model.UserProfileID {
	return c.hrID
}

func (c *listQuestionSetConfig) EmployeeID() *model.UserProfileID {
	return c.employeeID
}

func (c *listQuestionSetConfig) Status() *types.QuestionSetStatus {
	return c.status
}

// Match reports whether the set passes every configured filter
func (c *listQuestionSetConfig) Match(s *model.QuestionSet) bool {
	if c.hrID != nil && s.HRID != *c.hrID {
		return false
	}
	if c.employeeID != nil && s.EmployeeID != *c.employeeID {
		return false
	}
	if c.status != nil && s.Status != *c.status {
		return false
	}
	return true
}

// ListHistoryOption is a functional option for filtering history records
type ListHistoryOption func(*listHistoryConfig)

type listHistoryConfig struct {
	hrID       *model.UserProfileID
	employeeID *model.UserProfileID
}

// WithHistoryHRID filters history by HR profile
func WithHistoryHRID(id model.UserProfileID) ListHistoryOption {
	return func(c *listHistoryConfig) {
		c.hrID = &id
	}
}

// WithHistoryEmployeeID filters history by employee
func WithHistoryEmployeeID(id model.UserProfileID) ListHistoryOption {
	return func(c *listHistoryConfig) {
		c.employeeID = &id
	}
}

// BuildListHistoryConfig builds a listHistoryConfig from options
func BuildListHistoryConfig(opts ...ListHistoryOption) *listHistoryConfig {
	cfg := &listHistoryConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func (c *listHistoryConfig) HRID() *model.UserProfileID {
	return c.hrID
}

func (c *listHistoryConfig) EmployeeID() *model.UserProfileID {
	return c.employeeID
}

// Match reports whether the record passes every configured filter
func (c *listHistoryConfig) Match(h *model.QuestionHistory) bool {
	if c.hrID != nil && h.HRID != *c.hrID {
		return false
	}
	if c.employeeID != nil && h.EmployeeID != *c.employeeID {
		return false
	}
	return true
}
