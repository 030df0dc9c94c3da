package compiler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/aretw0/ussdflow/internal/codegen"
	"github.com/aretw0/ussdflow/pkg/flow"
)

// Fragment is the lowered form of one node: a dispatch case keyed by the
// node id and the handler it calls.
type Fragment struct {
	ID      string
	Type    flow.NodeType
	Func    string
	Case    string
	Handler string

	// Comment-safe renderings used by the handler template.
	Label string
	Notes []string
	Call  string
}

// Lowerer translates the steps of one graph. Handler names are handed out in
// call order, so lowering the same steps in the same order always yields the
// same names.
type Lowerer struct {
	routes *routes
	names  *codegen.Namer
}

// NewLowerer prepares lowering for the steps of g.
func NewLowerer(g *flow.Graph) *Lowerer {
	return &Lowerer{routes: newRoutes(g), names: codegen.NewNamer()}
}

// Lower translates step into its dispatch case and handler.
func (l *Lowerer) Lower(step flow.Step) (Fragment, error) {
	var (
		call string
		err  error
	)
	switch s := step.(type) {
	case *flow.MenuStep:
		call = l.menu(s)
	case *flow.InputStep:
		call = l.input(s)
	case *flow.PaymentStep:
		call = l.payment(s)
	case *flow.ConditionalStep:
		call = l.conditional(s)
	case *flow.APIStep:
		call, err = l.api(s)
	case *flow.ValidationStep:
		call = l.validation(s)
	case *flow.EndStep:
		call = l.end(s)
	default:
		return Fragment{}, fmt.Errorf("%w: %T", flow.ErrUnknownNodeType, step)
	}
	if err != nil {
		return Fragment{}, err
	}

	base := step.Base()
	f := Fragment{
		ID:    base.ID,
		Type:  base.Type,
		Func:  l.names.Name("handle", base.ID),
		Label: codegen.Comment(pick(base.Label, base.ID)),
		Call:  call,
	}
	if d := codegen.Comment(base.Description); d != "" {
		f.Notes = append(f.Notes, d)
	}

	var buf bytes.Buffer
	data := map[string]any{
		"ID":    codegen.Comment(base.ID),
		"Type":  base.Type,
		"Func":  f.Func,
		"Label": f.Label,
		"Notes": f.Notes,
		"Call":  f.Call,
	}
	if err := templates.ExecuteTemplate(&buf, "handler", data); err != nil {
		return Fragment{}, fmt.Errorf("render handler: %w", err)
	}
	f.Handler = buf.String()

	buf.Reset()
	if err := templates.ExecuteTemplate(&buf, "case", map[string]any{"ID": base.ID, "Func": f.Func}); err != nil {
		return Fragment{}, fmt.Errorf("render case: %w", err)
	}
	f.Case = buf.String()
	return f, nil
}

func (l *Lowerer) menu(s *flow.MenuStep) string {
	opts := make([]string, len(s.Options))
	for i, o := range s.Options {
		n := strconv.Itoa(i + 1)
		next := pick(o.NextStep, l.routes.via(s.ID, "option-"+n, n), l.routes.nth(s.ID, i))
		opts[i] = codegen.NewStruct("").
			String("Text", o.Text).
			String("NextStep", next).
			String("Message", o.Message).
			Render()
	}
	lit := codegen.NewStruct("MenuScreen").
		String("Title", pick(s.Title, s.Label)).
		Raw("Options", codegen.Slice("[]MenuOption", opts))
	return "rt.Menu(sess, req, " + lit.Render() + ")"
}

func (l *Lowerer) input(s *flow.InputStep) string {
	v := codegen.NewStruct("InputValidation").
		Bool("Required", s.Validation.Required).
		String("Type", s.Validation.Type).
		Raw("Min", floatPtr(s.Validation.Min)).
		Raw("Max", floatPtr(s.Validation.Max)).
		String("Pattern", s.Validation.Pattern).
		String("ErrorMessage", s.Validation.ErrorMessage)
	lit := codegen.NewStruct("InputField").
		String("Variable", s.VariableName())
	if !v.Empty() {
		lit.Raw("Validation", v.Render())
	}
	lit.String("NextStep", l.next(s.ID, s.NextStep)).
		String("SuccessMessage", s.SuccessMessage)
	return "rt.Input(sess, req, " + lit.Render() + ")"
}

func (l *Lowerer) payment(s *flow.PaymentStep) string {
	lit := codegen.NewStruct("PaymentOption").
		String("Provider", s.Provider).
		String("PhoneNumber", s.PhoneNumber).
		Float("Amount", s.Amount).
		String("AmountVariable", s.AmountVariable).
		String("AccountReference", s.AccountReference).
		String("BusinessShortCode", s.BusinessShortCode).
		String("CallbackURL", s.CallbackURL).
		String("NextStep", l.next(s.ID, s.NextStep)).
		String("SuccessMessage", s.SuccessMessage).
		String("ErrorMessage", s.ErrorMessage)
	return "rt.Payment(ctx, sess, req, " + lit.Render() + ")"
}

func (l *Lowerer) conditional(s *flow.ConditionalStep) string {
	conds := make([]string, len(s.Conditions))
	for i, c := range s.Conditions {
		handles := []string{"condition-" + strconv.Itoa(i+1)}
		if i == 0 {
			handles = append(handles, "true")
		}
		conds[i] = codegen.NewStruct("").
			String("Field", c.Field).
			String("Operator", c.Operator).
			String("Value", c.Value).
			String("NextStep", pick(c.NextStep, l.routes.via(s.ID, handles...))).
			String("Message", c.Message).
			Render()
	}
	lit := codegen.NewStruct("ConditionalBranch").
		Raw("Conditions", codegen.Slice("[]Condition", conds)).
		String("DefaultNextStep", pick(s.DefaultNextStep, l.routes.via(s.ID, "false", "default"), l.routes.nth(s.ID, 0))).
		String("DefaultMessage", s.DefaultMessage)
	return "rt.Branch(sess, " + lit.Render() + ")"
}

func (l *Lowerer) api(s *flow.APIStep) (string, error) {
	var defaults string
	if len(s.DefaultData) > 0 {
		data, err := json.Marshal(s.DefaultData)
		if err != nil {
			return "", fmt.Errorf("encode default data: %w", err)
		}
		defaults = string(data)
	}
	lit := codegen.NewStruct("APIIntegration").
		String("Method", s.Method).
		String("URL", s.URL).
		StringMap("Headers", s.Headers).
		String("DefaultData", defaults).
		String("ResultVariable", s.ResultKey()).
		String("NextStep", l.next(s.ID, s.NextStep)).
		String("ErrorNextStep", pick(s.ErrorNextStep, l.routes.via(s.ID, "error"))).
		String("SuccessMessage", s.SuccessMessage).
		String("ErrorMessage", s.ErrorMessage).
		Int("TimeoutSeconds", s.Timeout)
	if q := s.Query; q != nil {
		lit.Raw("Query", codegen.NewStruct("&DataQuery").
			String("Operation", q.Operation).
			String("Table", q.Table).
			String("Query", q.Query).
			Strings("Parameters", q.Parameters).
			Render())
	}
	return "rt.Call(ctx, sess, " + lit.Render() + ")", nil
}

func (l *Lowerer) validation(s *flow.ValidationStep) string {
	rules := make([]string, len(s.Rules))
	for i, r := range s.Rules {
		rules[i] = codegen.NewStruct("").
			String("Type", r.Type).
			String("Field", r.Field).
			String("Pattern", r.Pattern).
			String("Value", r.Value).
			String("Message", r.Message).
			Render()
	}
	lit := codegen.NewStruct("ValidationStep").
		Raw("Rules", codegen.Slice("[]ValidationRule", rules)).
		String("SuccessStep", l.next(s.ID, s.SuccessStep)).
		String("ErrorStep", pick(s.ErrorStep, l.routes.via(s.ID, "error"))).
		String("SuccessMessage", s.SuccessMessage)
	return "rt.Validate(sess, " + lit.Render() + ")"
}

func (l *Lowerer) end(s *flow.EndStep) string {
	lit := codegen.NewStruct("EndScreen").
		String("Message", pick(s.Message, s.Label)).
		Bool("ShowSummary", s.ShowSummary)
	return "rt.End(sess, " + lit.Render() + ")"
}

// next resolves the success exit of a single-exit step.
func (l *Lowerer) next(id, prop string) string {
	return pick(prop, l.routes.via(id, "success", "default"), l.routes.first(id, "error"))
}

func floatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return "Float(" + codegen.Float(*v) + ")"
}
