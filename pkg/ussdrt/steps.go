package ussdrt

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MenuOption is one numbered entry of a menu.
type MenuOption struct {
	Text     string
	NextStep string
	Message  string
}

// MenuScreen is the baked configuration of a menu step.
type MenuScreen struct {
	Title   string
	Options []MenuOption
}

// Menu routes on a valid 1-based choice and re-renders on anything else.
func (rt *Runtime) Menu(sess *Session, req Request, m MenuScreen) Reply {
	if n, err := strconv.Atoi(LastSegment(req.Text)); err == nil && n >= 1 && n <= len(m.Options) {
		opt := m.Options[n-1]
		sess.CurrentStep = opt.NextStep
		return Con(Interpolate(orDefault(opt.Message, "Please wait..."), sess))
	}
	var sb strings.Builder
	sb.WriteString(Interpolate(m.Title, sess))
	for i, opt := range m.Options {
		fmt.Fprintf(&sb, "\n%d. %s", i+1, Interpolate(opt.Text, sess))
	}
	return Con(sb.String())
}

// InputValidation are the checks applied to captured input.
type InputValidation struct {
	Required     bool
	Type         string
	Min          *float64
	Max          *float64
	Pattern      string
	ErrorMessage string
}

// InputField is the baked configuration of an input step.
type InputField struct {
	Variable       string
	Validation     InputValidation
	NextStep       string
	SuccessMessage string
}

// Input validates the newest segment, stores it and advances. Any failed
// check re-prompts without moving the step.
func (rt *Runtime) Input(sess *Session, req Request, f InputField) Reply {
	value := LastSegment(req.Text)
	v := f.Validation

	if v.Required && value == "" {
		return Con("Input is required. Please try again.")
	}
	if value != "" {
		num, isNum := parseNumber(value)
		if (v.Type == "numeric" || v.Type == "number") && !isNum {
			return Con("Please enter a valid number.")
		}
		if isNum && v.Min != nil && num < *v.Min {
			return Con(fmt.Sprintf("Minimum value is %s. Please try again.", formatNumber(*v.Min)))
		}
		if isNum && v.Max != nil && num > *v.Max {
			return Con(fmt.Sprintf("Maximum value is %s. Please try again.", formatNumber(*v.Max)))
		}
		if v.Pattern != "" {
			re, err := regexp.Compile(v.Pattern)
			if err != nil || !re.MatchString(value) {
				return Con(orDefault(v.ErrorMessage, "Invalid input format. Please try again."))
			}
		}
	}

	sess.InputValues[f.Variable] = value
	sess.CurrentStep = f.NextStep
	return Con(Interpolate(orDefault(f.SuccessMessage, "Input received. Processing..."), sess))
}

// PaymentOption is the baked configuration of a payment step.
type PaymentOption struct {
	Provider          string
	PhoneNumber       string
	Amount            float64
	AmountVariable    string
	AccountReference  string
	BusinessShortCode string
	CallbackURL       string
	NextStep          string
	SuccessMessage    string
	ErrorMessage      string
}

// Payment initiates a payment and ends the session with its reference. On
// failure the session ends too, without advancing the step.
func (rt *Runtime) Payment(ctx context.Context, sess *Session, req Request, p PaymentOption) Reply {
	fail := End(orDefault(p.ErrorMessage, "Payment failed. Please try again later."))

	initiator, ok := rt.Payments[strings.ToLower(p.Provider)]
	if !ok {
		rt.log().Warn("unsupported payment provider", "provider", p.Provider, "step", sess.CurrentStep)
		sess.Terminate()
		return fail
	}

	amount := p.Amount
	if v, ok := parseNumber(sess.InputValues[orDefault(p.AmountVariable, "amount")]); ok {
		amount = v
	}
	phone := orDefault(Interpolate(p.PhoneNumber, sess), req.PhoneNumber)
	if amount <= 0 || phone == "" {
		rt.log().Warn("payment rejected", "amount", amount, "step", sess.CurrentStep)
		sess.Terminate()
		return fail
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultCallTimeout)
	defer cancel()
	ref, err := initiator.Initiate(ctx, PaymentRequest{
		Provider:          strings.ToLower(p.Provider),
		PhoneNumber:       phone,
		Amount:            amount,
		AccountReference:  Interpolate(p.AccountReference, sess),
		BusinessShortCode: p.BusinessShortCode,
		CallbackURL:       p.CallbackURL,
		Passkey:           rt.Secrets[strings.ToLower(p.Provider)],
	})
	if err != nil {
		rt.log().Error("payment initiation failed", "provider", p.Provider, "err", err)
		sess.Terminate()
		return fail
	}

	sess.PaymentReference = ref
	sess.CurrentStep = p.NextStep
	sess.Terminate()
	rt.log().Info("payment initiated", "provider", p.Provider, "reference", ref)

	if p.SuccessMessage != "" {
		return End(Interpolate(p.SuccessMessage, sess) + "\nReference: " + ref)
	}
	return End(fmt.Sprintf("Payment initiated. Reference: %s\nYou will receive a prompt shortly.", ref))
}

// Condition compares a session value against an expected one.
type Condition struct {
	Field    string
	Operator string
	Value    string
	NextStep string
	Message  string
}

// ConditionalBranch is the baked configuration of a conditional step.
type ConditionalBranch struct {
	Conditions      []Condition
	DefaultNextStep string
	DefaultMessage  string
}

// Branch takes the first matching condition, else the default route.
func (rt *Runtime) Branch(sess *Session, c ConditionalBranch) Reply {
	for _, cond := range c.Conditions {
		if EvaluateCondition(sess.Value(cond.Field), cond.Operator, Interpolate(cond.Value, sess)) {
			sess.CurrentStep = cond.NextStep
			return Con(Interpolate(orDefault(cond.Message, "Condition met. Proceeding..."), sess))
		}
	}
	sess.CurrentStep = c.DefaultNextStep
	return Con(Interpolate(orDefault(c.DefaultMessage, "Proceeding..."), sess))
}

// EvaluateCondition applies operator to actual and expected. greater and
// less compare numerically and are false when either side is not a number;
// equals compares numerically when both sides are numbers; unknown operators
// are false.
func EvaluateCondition(actual, operator, expected string) bool {
	a, aNum := parseNumber(actual)
	e, eNum := parseNumber(expected)
	switch operator {
	case "equals":
		if aNum && eNum {
			return a == e
		}
		return actual == expected
	case "notEquals":
		return !EvaluateCondition(actual, "equals", expected)
	case "greater", "greaterThan":
		return aNum && eNum && a > e
	case "less", "lessThan":
		return aNum && eNum && a < e
	case "contains":
		return strings.Contains(actual, expected)
	default:
		return false
	}
}

// ValidationRule is one check of a validation step.
type ValidationRule struct {
	Type    string
	Field   string
	Pattern string
	Value   string
	Message string
}

// ValidationStep is the baked configuration of a validation step.
type ValidationStep struct {
	Rules          []ValidationRule
	SuccessStep    string
	ErrorStep      string
	SuccessMessage string
}

// Validate runs every rule in order; the first failure routes to the error
// step, or keeps the step when none is set.
func (rt *Runtime) Validate(sess *Session, v ValidationStep) Reply {
	for _, rule := range v.Rules {
		if !checkRule(sess.Value(rule.Field), rule) {
			if v.ErrorStep != "" {
				sess.CurrentStep = v.ErrorStep
			}
			return Con(orDefault(rule.Message, "Validation failed. Please try again."))
		}
	}
	sess.CurrentStep = v.SuccessStep
	return Con(Interpolate(orDefault(v.SuccessMessage, "Validation passed. Proceeding..."), sess))
}

func checkRule(value string, rule ValidationRule) bool {
	switch rule.Type {
	case "required":
		return strings.TrimSpace(value) != ""
	case "numeric":
		_, ok := parseNumber(value)
		return ok
	case "pattern":
		re, err := regexp.Compile(rule.Pattern)
		return err == nil && re.MatchString(value)
	case "min":
		return EvaluateCondition(value, "greater", rule.Value) || EvaluateCondition(value, "equals", rule.Value)
	case "max":
		return EvaluateCondition(value, "less", rule.Value) || EvaluateCondition(value, "equals", rule.Value)
	default:
		return false
	}
}

// EndScreen is the baked configuration of an end step.
type EndScreen struct {
	Message     string
	ShowSummary bool
}

// End emits the final message, optionally followed by the captured values,
// and terminates the session.
func (rt *Runtime) End(sess *Session, e EndScreen) Reply {
	text := Interpolate(e.Message, sess)
	if e.ShowSummary {
		text += "\n\nSummary:" + sess.Summary()
	}
	sess.Terminate()
	return End(text)
}
