package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError represents a single property validation failure. Key is a
// dotted path for nested properties ("options.0.text").
type ValidationError struct {
	Key    string
	Reason string
	Value  any
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("property %q: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("property %q: %s (got %T)", e.Key, e.Reason, e.Value)
}

// AggregateError represents multiple validation failures.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// ValidationErrors returns all validation errors carried by err, or nil.
func ValidationErrors(err error) []error {
	var aggr *AggregateError
	if errors.As(err, &aggr) {
		return aggr.Errors
	}
	return nil
}

// prefix marks err as belonging to a list element or nested key.
func prefix(key string, err error) error {
	return &pathError{key: key, err: err}
}

type pathError struct {
	key string
	err error
}

func (e *pathError) Error() string { return e.key + ": " + e.err.Error() }
func (e *pathError) Unwrap() error { return e.err }

// nest flattens a failure under key into ValidationErrors with full paths.
func nest(key string, value any, err error) []error {
	var pe *pathError
	if errors.As(err, &pe) && pe == err {
		return nest(key+"."+pe.key, nil, pe.err)
	}
	if inner := ValidationErrors(err); inner != nil {
		out := make([]error, 0, len(inner))
		for _, ie := range inner {
			var ve *ValidationError
			if errors.As(ie, &ve) {
				out = append(out, &ValidationError{Key: key + "." + ve.Key, Reason: ve.Reason, Value: ve.Value})
				continue
			}
			out = append(out, &ValidationError{Key: key, Reason: ie.Error()})
		}
		return out
	}
	return []error{&ValidationError{Key: key, Reason: err.Error(), Value: value}}
}
