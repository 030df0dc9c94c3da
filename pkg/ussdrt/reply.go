package ussdrt

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Reply is one USSD response line. End closes the caller's session.
type Reply struct {
	Text string
	End  bool
}

// Con continues the session and waits for more input.
func Con(text string) Reply { return Reply{Text: text} }

// End terminates the session.
func End(text string) Reply { return Reply{Text: text, End: true} }

// String renders the reply with its CON/END prefix.
func (r Reply) String() string {
	if r.End {
		return "END " + r.Text
	}
	return "CON " + r.Text
}

// Request is an inbound USSD turn. Text holds the whole *-delimited input
// history of the session.
type Request struct {
	SessionID   string `json:"sessionId"`
	PhoneNumber string `json:"phoneNumber"`
	ServiceCode string `json:"serviceCode"`
	Text        string `json:"text"`
}

// LastSegment returns the newest input of a *-delimited history.
func LastSegment(text string) string {
	if i := strings.LastIndex(text, "*"); i >= 0 {
		return strings.TrimSpace(text[i+1:])
	}
	return strings.TrimSpace(text)
}

// Float returns a pointer to v, for optional numeric bounds.
func Float(v float64) *float64 { return &v }

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.\-]+)\s*\}\}`)

// Interpolate replaces {{name}} with the session value of name. Unknown
// names render empty.
func Interpolate(text string, sess *Session) string {
	if sess == nil || !strings.Contains(text, "{{") {
		return text
	}
	return placeholder.ReplaceAllStringFunc(text, func(m string) string {
		name := placeholder.FindStringSubmatch(m)[1]
		return sess.Value(name)
	})
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
