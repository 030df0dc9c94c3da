package flow

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// DecodeStep turns a node into its typed step. The node type alone selects
// the variant; aliases decode into the variant of their canonical type.
func DecodeStep(n Node) (Step, error) {
	base := StepBase{
		ID:          n.ID,
		Type:        n.Type,
		Label:       n.Data.Label,
		Description: n.Data.Description,
	}
	props := n.Data.Properties
	if props == nil {
		props = map[string]any{}
	}

	var (
		step Step
		err  error
	)
	switch n.Type.Canonical() {
	case TypeMenuScreen:
		s := &MenuStep{StepBase: base}
		err = decodeInto(props, s)
		step = s
	case TypeInputField:
		s := &InputStep{StepBase: base}
		err = decodeInto(props, s)
		step = s
	case TypePaymentOption:
		s := &PaymentStep{StepBase: base}
		err = decodeInto(props, s)
		s.Provider = strings.ToLower(strings.TrimSpace(s.Provider))
		step = s
	case TypeConditionalBranch:
		step, err = decodeConditional(base, props)
	case TypeAPIIntegration:
		step, err = decodeAPI(base, props)
	case TypeValidation:
		s := &ValidationStep{StepBase: base}
		err = decodeInto(props, s)
		step = s
	case TypeEndScreen:
		s := &EndStep{StepBase: base}
		err = decodeInto(props, s)
		step = s
	default:
		return nil, &DecodeError{NodeID: n.ID, Type: n.Type, Err: ErrUnknownNodeType}
	}
	if err != nil {
		return nil, &DecodeError{NodeID: n.ID, Type: n.Type, Err: fmt.Errorf("%w: %v", ErrInvalidProperties, err)}
	}
	return step, nil
}

// DecodeSteps decodes every node of g in declaration order, stopping at the
// first failure.
func DecodeSteps(g *Graph) ([]Step, error) {
	steps := make([]Step, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		s, err := DecodeStep(n)
		if err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}
	return steps, nil
}

func decodeInto(input map[string]any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			keyValueListHook,
			menuOptionHook,
		),
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

var (
	stringMapType  = reflect.TypeOf(map[string]string{})
	menuOptionType = reflect.TypeOf(MenuOption{})
)

// keyValueListHook accepts the editor's [{key, value}] list wherever a
// string map is expected.
func keyValueListHook(from, to reflect.Type, data any) (any, error) {
	if to != stringMapType || from.Kind() != reflect.Slice {
		return data, nil
	}
	items, ok := data.([]any)
	if !ok {
		return data, nil
	}
	out := make(map[string]string, len(items))
	for _, item := range items {
		kv, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected {key, value} entries, got %T", item)
		}
		key := strings.TrimSpace(fmt.Sprint(kv["key"]))
		if key == "" || kv["key"] == nil {
			continue
		}
		value := ""
		if v, ok := kv["value"]; ok && v != nil {
			value = fmt.Sprint(v)
		}
		out[key] = value
	}
	return out, nil
}

// menuOptionHook accepts a bare string as a menu option's text.
func menuOptionHook(from, to reflect.Type, data any) (any, error) {
	if to == menuOptionType && from.Kind() == reflect.String {
		return MenuOption{Text: data.(string)}, nil
	}
	return data, nil
}

type ifElse struct {
	LeftOperand  string `mapstructure:"leftOperand"`
	Operator     string `mapstructure:"operator"`
	RightOperand string `mapstructure:"rightOperand"`
}

type switchCase struct {
	Value    string `mapstructure:"value"`
	NextStep string `mapstructure:"nextStep"`
	Label    string `mapstructure:"label"`
	Message  string `mapstructure:"message"`
}

type conditionalProps struct {
	Conditions      []Condition `mapstructure:"conditions"`
	DefaultNextStep string      `mapstructure:"defaultNextStep"`
	DefaultMessage  string      `mapstructure:"defaultMessage"`

	Condition    *ifElse `mapstructure:"condition"`
	TrueStep     string  `mapstructure:"trueStep"`
	FalseStep    string  `mapstructure:"falseStep"`
	TrueMessage  string  `mapstructure:"trueMessage"`
	FalseMessage string  `mapstructure:"falseMessage"`

	ValueToCheck string       `mapstructure:"valueToCheck"`
	Cases        []switchCase `mapstructure:"cases"`
	DefaultStep  string       `mapstructure:"defaultStep"`
}

// decodeConditional normalizes the three authoring forms (condition list,
// single if/else, switch cases) into one ordered condition list.
func decodeConditional(base StepBase, props map[string]any) (*ConditionalStep, error) {
	var p conditionalProps
	if err := decodeInto(props, &p); err != nil {
		return nil, err
	}
	s := &ConditionalStep{
		StepBase:        base,
		Conditions:      p.Conditions,
		DefaultNextStep: p.DefaultNextStep,
		DefaultMessage:  p.DefaultMessage,
	}

	if len(s.Conditions) == 0 && p.Condition != nil && p.Condition.LeftOperand != "" {
		s.Conditions = []Condition{{
			Field:    variableRef(p.Condition.LeftOperand),
			Operator: p.Condition.Operator,
			Value:    p.Condition.RightOperand,
			Message:  p.TrueMessage,
			NextStep: p.TrueStep,
		}}
		if s.DefaultNextStep == "" {
			s.DefaultNextStep = p.FalseStep
		}
		if s.DefaultMessage == "" {
			s.DefaultMessage = p.FalseMessage
		}
	}

	if len(s.Conditions) == 0 && len(p.Cases) > 0 {
		field := variableRef(p.ValueToCheck)
		for _, c := range p.Cases {
			s.Conditions = append(s.Conditions, Condition{
				Field:    field,
				Operator: "equals",
				Value:    c.Value,
				Message:  c.Message,
				NextStep: c.NextStep,
			})
		}
		if s.DefaultNextStep == "" {
			s.DefaultNextStep = p.DefaultStep
		}
	}

	for i := range s.Conditions {
		s.Conditions[i].Field = variableRef(s.Conditions[i].Field)
	}
	return s, nil
}

// variableRef strips template braces so "{{amount}}" and "amount" name the
// same session variable.
func variableRef(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "{{") && strings.HasSuffix(s, "}}") {
		s = strings.TrimSpace(s[2 : len(s)-2])
	}
	return s
}

func decodeAPI(base StepBase, props map[string]any) (*APIStep, error) {
	s := &APIStep{StepBase: base}
	if err := decodeInto(props, s); err != nil {
		return nil, err
	}
	if s.DefaultData == nil {
		data, err := bodyData(props["body"])
		if err != nil {
			return nil, err
		}
		s.DefaultData = data
	}
	s.Method = strings.ToUpper(strings.TrimSpace(s.Method))
	if base.Type == TypeDatabaseQuery {
		q := &DataQuery{}
		if err := decodeInto(props, q); err != nil {
			return nil, err
		}
		s.Query = q
		if s.Method == "" {
			s.Method = "POST"
		}
	}
	if s.Method == "" {
		s.Method = "GET"
	}
	return s, nil
}

// bodyData reads the editor's request body, which is either an object or a
// JSON document held in a string.
func bodyData(raw any) (map[string]any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return v, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		var out map[string]any
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return nil, fmt.Errorf("body is not a JSON object: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("body must be an object or a JSON string, got %T", raw)
	}
}
