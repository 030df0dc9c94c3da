package schema

import "sort"

// Field is the expectation for one property.
type Field struct {
	Type     Type
	Required bool
}

// Required declares a property that must be present and non-null.
func Required(t Type) Field { return Field{Type: t, Required: true} }

// Optional declares a property that may be absent or null.
func Optional(t Type) Field { return Field{Type: t} }

// Schema maps property names to their expectations.
// Properties the schema does not mention are ignored.
type Schema map[string]Field

// Validate checks data against the schema and reports every failure, in
// property name order.
func Validate(schema Schema, data map[string]any) error {
	if len(schema) == 0 {
		return nil
	}

	keys := make([]string, 0, len(schema))
	for k := range schema {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []error
	for _, key := range keys {
		field := schema[key]
		value, exists := data[key]
		if !exists || value == nil {
			if field.Required {
				errs = append(errs, &ValidationError{Key: key, Reason: "required"})
			}
			continue
		}

		if err := field.Type.Validate(value); err != nil {
			errs = append(errs, nest(key, value, err)...)
		}
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}
