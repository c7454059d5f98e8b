// Package check defines the shared result structure produced by the
// four control checkers (mx, spf, dkim, dmarc).
package check

import "fmt"

// Control names. These are stable identifiers used as map keys in scan
// output and must not change between score profile versions.
const (
	ControlMX    = "mx"
	ControlSPF   = "spf"
	ControlDKIM  = "dkim"
	ControlDMARC = "dmarc"
)

// MaxPoints is the fixed weight table, out of 100 total.
var MaxPoints = map[string]int{
	ControlMX:    10,
	ControlSPF:   25,
	ControlDKIM:  25,
	ControlDMARC: 40,
}

// Severity classifies a check message.
type Severity string

const (
	Success Severity = "success"
	Warning Severity = "warning"
	Error   Severity = "error"
	Info    Severity = "info"
)

// Message is one finding produced while evaluating a control.
type Message struct {
	Level Severity `json:"level"`
	Text  string   `json:"text"`
}

// Result is the outcome of one control check. Points only accumulate;
// the single exception is the SPF +all override, which voids the whole
// control. A Result is immutable once handed to the aggregator.
type Result struct {
	Control     string         `json:"control"`
	Points      int            `json:"points"`
	MaxPoints   int            `json:"max_points"`
	Messages    []Message      `json:"messages"`
	RawRecords  []string       `json:"raw_records"`
	ParsedData  map[string]any `json:"parsed_data"`
	Remediation []string       `json:"remediation"`
}

// List converts a string slice to the generic form used in ParsedData.
// ParsedData holds only generic types (string, int, bool, []any,
// map[string]any) so results encode uniformly to JSON and MessagePack.
func List(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// NewResult creates an empty result for the named control, with
// MaxPoints from the weight table.
func NewResult(control string) *Result {
	return &Result{
		Control:    control,
		MaxPoints:  MaxPoints[control],
		ParsedData: map[string]any{},
	}
}

// Award adds points to the result.
func (r *Result) Award(points int) {
	r.Points += points
	if r.Points > r.MaxPoints {
		r.Points = r.MaxPoints
	}
}

func (r *Result) add(level Severity, format string, args ...any) {
	r.Messages = append(r.Messages, Message{Level: level, Text: fmt.Sprintf(format, args...)})
}

// Successf records a success-level message.
func (r *Result) Successf(format string, args ...any) { r.add(Success, format, args...) }

// Warnf records a warning-level message.
func (r *Result) Warnf(format string, args ...any) { r.add(Warning, format, args...) }

// Errorf records an error-level message.
func (r *Result) Errorf(format string, args ...any) { r.add(Error, format, args...) }

// Infof records an info-level message.
func (r *Result) Infof(format string, args ...any) { r.add(Info, format, args...) }

// Remediate appends a remediation suggestion.
func (r *Result) Remediate(text string) {
	r.Remediation = append(r.Remediation, text)
}
