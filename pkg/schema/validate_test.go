package schema

import (
	"errors"
	"testing"
)

var errNotPositive = errors.New("must be positive")

func TestValidate_Success(t *testing.T) {
	s := Schema{
		"title":   Optional(String()),
		"timeout": Optional(Number()),
		"summary": Required(Bool()),
		"tags":    Optional(List(String())),
	}

	data := map[string]any{
		"title":   "Welcome",
		"timeout": 30.0,
		"summary": true,
		"tags":    []any{"a"},
		"unknown": struct{}{},
	}

	if err := Validate(s, data); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestValidate_MissingAndNull(t *testing.T) {
	s := Schema{
		"url":    Required(String()),
		"method": Required(String()),
		"body":   Optional(String()),
	}

	err := Validate(s, map[string]any{"url": nil, "body": nil})
	errs := ValidationErrors(err)
	if len(errs) != 2 {
		t.Fatalf("Validate() = %d errors, want 2: %v", len(errs), err)
	}

	var first *ValidationError
	if !errors.As(errs[0], &first) {
		t.Fatalf("error should be *ValidationError, got %T", errs[0])
	}
	// keys are reported in sorted order
	if first.Key != "method" || first.Reason != "required" {
		t.Errorf("first error = %+v", first)
	}
}

func TestValidate_NestedPaths(t *testing.T) {
	s := Schema{
		"options": Required(List(Object(Schema{
			"text":     Required(String()),
			"nextStep": Optional(String()),
		}))),
		"validation": Optional(Object(Schema{
			"min": Optional(Number()),
		})),
	}

	data := map[string]any{
		"options": []any{
			map[string]any{"text": "Pay"},
			map[string]any{"nextStep": 3},
		},
		"validation": map[string]any{"min": "low"},
	}

	errs := ValidationErrors(Validate(s, data))
	var keys []string
	for _, e := range errs {
		var ve *ValidationError
		if !errors.As(e, &ve) {
			t.Fatalf("unexpected error type %T", e)
		}
		keys = append(keys, ve.Key)
	}

	want := []string{"options.1.nextStep", "options.1.text", "validation.min"}
	if len(keys) != len(want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("keys[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestValidate_EmptySchema(t *testing.T) {
	if err := Validate(nil, map[string]any{"x": 1}); err != nil {
		t.Errorf("Validate(nil) error = %v", err)
	}
}

func TestAggregateError_Message(t *testing.T) {
	single := &AggregateError{Errors: []error{&ValidationError{Key: "url", Reason: "required"}}}
	if single.Error() != `property "url": required` {
		t.Errorf("Error() = %q", single.Error())
	}

	multi := &AggregateError{Errors: []error{
		&ValidationError{Key: "a", Reason: "required"},
		&ValidationError{Key: "b", Reason: "expected string, got int", Value: 1},
	}}
	want := "2 validation errors:\n  1. property \"a\": required\n  2. property \"b\": expected string, got int (got int)\n"
	if multi.Error() != want {
		t.Errorf("Error() = %q, want %q", multi.Error(), want)
	}
}

func TestValidationErrors_NonAggregate(t *testing.T) {
	if ValidationErrors(errors.New("boom")) != nil {
		t.Error("expected nil for a plain error")
	}
}
