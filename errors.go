package ussdflow

import (
	"errors"
	"strings"

	"github.com/aretw0/ussdflow/pkg/validator"
)

var (
	// ErrInvalidFlow is matched by every *InvalidFlowError.
	ErrInvalidFlow = errors.New("invalid flow")
	// ErrNameRequired is returned when a project has an empty name.
	ErrNameRequired = errors.New("project name is required")
	// ErrNoFlow is returned when generating a project that has no graph.
	ErrNoFlow = errors.New("project has no flow")
)

// InvalidFlowError carries the validation result that refused a graph.
type InvalidFlowError struct {
	Result validator.Result
}

func (e *InvalidFlowError) Error() string {
	if len(e.Result.Errors) == 0 {
		return ErrInvalidFlow.Error()
	}
	return ErrInvalidFlow.Error() + ": " + strings.Join(e.Result.Errors, "; ")
}

func (e *InvalidFlowError) Unwrap() error { return ErrInvalidFlow }
