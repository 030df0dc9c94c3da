package flow

// Step is the typed form of a node. The set of implementations is closed:
// MenuStep, InputStep, PaymentStep, ConditionalStep, APIStep, ValidationStep
// and EndStep.
type Step interface {
	Base() StepBase
	// Targets lists the step ids named by the step's own properties, in
	// property order. Edge-derived exits are not included.
	Targets() []string
	step()
}

// StepBase holds the fields every step shares.
type StepBase struct {
	ID          string
	Type        NodeType
	Label       string
	Description string
}

func (b StepBase) Base() StepBase { return b }
func (StepBase) step()            {}

// MenuOption is one numbered entry of a menu screen.
type MenuOption struct {
	Text     string `mapstructure:"text"`
	NextStep string `mapstructure:"nextStep"`
	Message  string `mapstructure:"message"`
}

// MenuStep renders numbered options and routes on the caller's choice.
type MenuStep struct {
	StepBase `mapstructure:"-"`
	Title    string       `mapstructure:"title"`
	Options  []MenuOption `mapstructure:"options"`
	Timeout  int          `mapstructure:"timeout"`
}

func (s *MenuStep) Targets() []string {
	var out []string
	for _, o := range s.Options {
		out = appendTarget(out, o.NextStep)
	}
	return out
}

// InputValidation are the checks applied to captured input, in order:
// required, numeric type, min, max, pattern.
type InputValidation struct {
	Required     bool     `mapstructure:"required"`
	Type         string   `mapstructure:"type"`
	Min          *float64 `mapstructure:"min"`
	Max          *float64 `mapstructure:"max"`
	Pattern      string   `mapstructure:"pattern"`
	ErrorMessage string   `mapstructure:"errorMessage"`
}

// InputStep captures one free-text value into a session variable.
type InputStep struct {
	StepBase       `mapstructure:"-"`
	Variable       string          `mapstructure:"variableName"`
	Placeholder    string          `mapstructure:"placeholder"`
	Validation     InputValidation `mapstructure:"validation"`
	NextStep       string          `mapstructure:"nextStep"`
	SuccessMessage string          `mapstructure:"successMessage"`
}

func (s *InputStep) Targets() []string { return appendTarget(nil, s.NextStep) }

// VariableName is the session key the captured value is stored under.
func (s *InputStep) VariableName() string {
	if s.Variable != "" {
		return s.Variable
	}
	return s.ID
}

// PaymentStep initiates an asynchronous mobile-money payment.
type PaymentStep struct {
	StepBase          `mapstructure:"-"`
	Provider          string  `mapstructure:"provider"`
	Amount            float64 `mapstructure:"amount"`
	AmountVariable    string  `mapstructure:"amountVariable"`
	PhoneNumber       string  `mapstructure:"phoneNumber"`
	AccountReference  string  `mapstructure:"accountReference"`
	BusinessShortCode string  `mapstructure:"businessShortCode"`
	CallbackURL       string  `mapstructure:"callbackUrl"`
	NextStep          string  `mapstructure:"nextStep"`
	SuccessMessage    string  `mapstructure:"successMessage"`
	ErrorMessage      string  `mapstructure:"errorMessage"`
}

func (s *PaymentStep) Targets() []string { return appendTarget(nil, s.NextStep) }

// Providers the generated runtime can initiate payments with.
var Providers = []string{"mpesa", "airtel", "mtn"}

// Condition compares a stored value against an expected one.
type Condition struct {
	Field    string `mapstructure:"field"`
	Operator string `mapstructure:"operator"`
	Value    string `mapstructure:"value"`
	Message  string `mapstructure:"message"`
	NextStep string `mapstructure:"nextStep"`
}

// Operators understood by conditions. The last three are aliases.
var Operators = []string{"equals", "greater", "less", "contains", "notEquals", "greaterThan", "lessThan"}

// ConditionalStep routes on the first matching condition. Switch nodes and
// the single if/else form are normalized into this shape.
type ConditionalStep struct {
	StepBase        `mapstructure:"-"`
	Conditions      []Condition `mapstructure:"conditions"`
	DefaultNextStep string      `mapstructure:"defaultNextStep"`
	DefaultMessage  string      `mapstructure:"defaultMessage"`
}

func (s *ConditionalStep) Targets() []string {
	var out []string
	for _, c := range s.Conditions {
		out = appendTarget(out, c.NextStep)
	}
	return appendTarget(out, s.DefaultNextStep)
}

// DataQuery describes a database-query node. The generated program forwards
// it to the data gateway.
type DataQuery struct {
	Operation  string   `mapstructure:"operation"`
	Table      string   `mapstructure:"table"`
	Query      string   `mapstructure:"query"`
	Parameters []string `mapstructure:"parameters"`
}

// APIStep performs an outbound HTTP call and stores the decoded response.
type APIStep struct {
	StepBase       `mapstructure:"-"`
	Method         string            `mapstructure:"method"`
	URL            string            `mapstructure:"url"`
	Headers        map[string]string `mapstructure:"headers"`
	DefaultData    map[string]any    `mapstructure:"defaultData"`
	ResultVariable string            `mapstructure:"resultVariable"`
	NextStep       string            `mapstructure:"nextStep"`
	ErrorNextStep  string            `mapstructure:"errorNextStep"`
	SuccessMessage string            `mapstructure:"successMessage"`
	ErrorMessage   string            `mapstructure:"errorMessage"`
	Timeout        int               `mapstructure:"timeout"`
	Query          *DataQuery        `mapstructure:"-"`
}

func (s *APIStep) Targets() []string {
	return appendTarget(appendTarget(nil, s.NextStep), s.ErrorNextStep)
}

// ResultKey is the session key the decoded response is stored under.
func (s *APIStep) ResultKey() string {
	if s.ResultVariable != "" {
		return s.ResultVariable
	}
	return s.ID
}

// ValidationRule is one check of a validation step.
type ValidationRule struct {
	Type    string `mapstructure:"type"`
	Field   string `mapstructure:"field"`
	Pattern string `mapstructure:"pattern"`
	Value   string `mapstructure:"value"`
	Message string `mapstructure:"message"`
}

// RuleTypes understood by validation steps.
var RuleTypes = []string{"required", "numeric", "pattern", "min", "max"}

// ValidationStep checks previously captured values against several rules.
type ValidationStep struct {
	StepBase       `mapstructure:"-"`
	Rules          []ValidationRule `mapstructure:"validations"`
	SuccessStep    string           `mapstructure:"successStep"`
	ErrorStep      string           `mapstructure:"errorStep"`
	SuccessMessage string           `mapstructure:"successMessage"`
}

func (s *ValidationStep) Targets() []string {
	return appendTarget(appendTarget(nil, s.SuccessStep), s.ErrorStep)
}

// EndStep emits the final message and closes the session.
type EndStep struct {
	StepBase    `mapstructure:"-"`
	Message     string `mapstructure:"message"`
	ShowSummary bool   `mapstructure:"showSummary"`
}

func (s *EndStep) Targets() []string { return nil }

func appendTarget(out []string, id string) []string {
	if id == "" {
		return out
	}
	return append(out, id)
}
