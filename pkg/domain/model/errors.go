package model

import (
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// Error kinds surfaced to callers. Callers match them with errors.Is.
var (
	ErrValidation      = goerr.New("validation error")
	ErrGeneration      = goerr.New("question generation failed")
	ErrUpstreamService = goerr.New("upstream service error")
	ErrParse           = goerr.New("malformed upstream response")
	ErrConfiguration   = goerr.New("configuration error")
	ErrPartialUpdate   = goerr.New("partial update")
	ErrNotFound        = goerr.New("not found")
	ErrStatusConflict  = goerr.New("status conflict")
	ErrAlreadyExists   = goerr.New("already exists")
)

// Context keys for error values
const (
	QuestionSetIDKey = "question_set_id"
	QuestionIDKey    = "question_id"
	ProfileIDKey     = "profile_id"
	StatusKey        = "status"
)

// EntityRef names a persisted entity by kind and id.
type EntityRef struct {
	Kind string
	ID   string
}

func (r EntityRef) String() string {
	return r.Kind + "/" + r.ID
}

// PartialUpdateError is returned when a multi-step write failed after some
// entities had already been modified and the compensating step also failed.
type PartialUpdateError struct {
	Updated []EntityRef
	Cause   error
}

func (e *PartialUpdateError) Error() string {
	refs := make([]string, len(e.Updated))
	for i, ref := range e.Updated {
		refs[i] = ref.String()
	}
	msg := fmt.Sprintf("partial update, entities left modified: [%s]", strings.Join(refs, ", "))
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *PartialUpdateError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrPartialUpdate}
	}
	return []error{ErrPartialUpdate, e.Cause}
}
