package validator

import (
	"fmt"

	"github.com/aretw0/ussdflow/pkg/flow"
	"github.com/aretw0/ussdflow/pkg/schema"
)

var (
	text   = schema.Optional(schema.String())
	number = schema.Optional(schema.Number())
	scalar = schema.Optional(schema.AnyOf(schema.String(), schema.Number(), schema.Bool()))
)

// headerMap accepts the editor's [{key, value}] list or a plain object of
// strings.
var headerMap = schema.Custom("headers", func(v any) error {
	switch h := v.(type) {
	case []any:
		return schema.List(schema.Object(schema.Schema{
			"key":   text,
			"value": scalar,
		})).Validate(h)
	case map[string]any:
		for k, val := range h {
			if _, ok := val.(string); !ok {
				return fmt.Errorf("header %q: expected string, got %T", k, val)
			}
		}
		return nil
	default:
		return fmt.Errorf("expected list or object, got %T", v)
	}
})

var menuOptionObject = schema.Object(schema.Schema{
	"text":     schema.Required(schema.String()),
	"nextStep": text,
	"message":  text,
})

// menuOption accepts a bare option text or a full option object.
var menuOption = schema.Custom("menu option", func(v any) error {
	if _, ok := v.(string); ok {
		return nil
	}
	return menuOptionObject.Validate(v)
})

var condition = schema.Object(schema.Schema{
	"field":    schema.Required(schema.String()),
	"operator": schema.Required(schema.String()),
	"value":    scalar,
	"message":  text,
	"nextStep": text,
})

// propertySchemas is the expected shape of data.properties per canonical
// node type. Unlisted properties are ignored.
var propertySchemas = map[flow.NodeType]schema.Schema{
	flow.TypeMenuScreen: {
		"title":   text,
		"options": schema.Optional(schema.List(menuOption)),
		"timeout": number,
	},
	flow.TypeInputField: {
		"variableName":   text,
		"placeholder":    text,
		"nextStep":       text,
		"successMessage": text,
		"validation": schema.Optional(schema.Object(schema.Schema{
			"required":     schema.Optional(schema.Bool()),
			"type":         schema.Optional(schema.Enum("text", "numeric", "number", "phone", "email")),
			"min":          number,
			"max":          number,
			"pattern":      text,
			"errorMessage": text,
		})),
	},
	flow.TypePaymentOption: {
		"provider":          text,
		"amount":            number,
		"amountVariable":    text,
		"phoneNumber":       text,
		"accountReference":  text,
		"businessShortCode": schema.Optional(schema.AnyOf(schema.String(), schema.Number())),
		"callbackUrl":       text,
		"passkey":           text,
		"nextStep":          text,
		"successMessage":    text,
		"errorMessage":      text,
	},
	flow.TypeConditionalBranch: {
		"conditions":      schema.Optional(schema.List(condition)),
		"defaultNextStep": text,
		"defaultMessage":  text,
		"condition": schema.Optional(schema.Object(schema.Schema{
			"leftOperand":  text,
			"operator":     text,
			"rightOperand": scalar,
		})),
		"trueStep":     text,
		"falseStep":    text,
		"trueMessage":  text,
		"falseMessage": text,
		"valueToCheck": text,
		"defaultStep":  text,
		"cases": schema.Optional(schema.List(schema.Object(schema.Schema{
			"value":    scalar,
			"nextStep": text,
			"label":    text,
			"message":  text,
		}))),
	},
	flow.TypeAPIIntegration: {
		"method":         schema.Optional(schema.Enum("GET", "POST", "PUT", "PATCH", "DELETE")),
		"url":            text,
		"headers":        schema.Optional(headerMap),
		"body":           schema.Optional(schema.AnyOf(schema.String(), schema.Object(nil))),
		"defaultData":    schema.Optional(schema.Object(nil)),
		"resultVariable": text,
		"nextStep":       text,
		"errorNextStep":  text,
		"successMessage": text,
		"errorMessage":   text,
		"timeout":        number,
		"operation":      schema.Optional(schema.Enum("select", "insert", "update", "delete")),
		"table":          text,
		"query":          text,
		"parameters":     schema.Optional(schema.List(schema.String())),
	},
	flow.TypeValidation: {
		"validations": schema.Optional(schema.List(schema.Object(schema.Schema{
			"type":    schema.Required(schema.Enum(flow.RuleTypes...)),
			"field":   schema.Required(schema.String()),
			"pattern": text,
			"value":   scalar,
			"message": text,
		}))),
		"successStep":    text,
		"errorStep":      text,
		"successMessage": text,
	},
	flow.TypeEndScreen: {
		"message":     text,
		"showSummary": schema.Optional(schema.Bool()),
	},
}

// checkProperties validates the property bag of a node of a known type.
func checkProperties(n flow.Node) []error {
	s, ok := propertySchemas[n.Type.Canonical()]
	if !ok {
		return nil
	}
	if err := schema.Validate(s, n.Data.Properties); err != nil {
		if errs := schema.ValidationErrors(err); errs != nil {
			return errs
		}
		return []error{err}
	}
	return nil
}
