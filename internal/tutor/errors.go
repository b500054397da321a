package tutor

import (
	"errors"
	"fmt"
)

// Stages at which a generation can fail.
const (
	StageTransport = "transport"
	StageEmpty     = "empty"
	StageParse     = "parse"
	StageValidate  = "validate"
)

var (
	ErrEmptyResponse  = errors.New("collaborator returned no text")
	ErrInvalidJSON    = errors.New("collaborator returned invalid JSON")
	ErrSchemaMismatch = errors.New("collaborator response does not match lesson schema")
)

// GenerationError reports why a tutor turn could not be produced.
type GenerationError struct {
	Stage string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("tutor generation failed at %s: %v", e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
