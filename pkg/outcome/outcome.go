package outcome

import (
	"fmt"
	"strings"
)

// Outcome is the result of evaluating a check, a rule or a group.
type Outcome int

const (
	// Pass means the target satisfied every condition of the check.
	Pass Outcome = iota + 1
	// Fail means the target did not satisfy the check.
	Fail
	// Error means the checking engine could not complete the evaluation.
	Error
	// Unknown means the engine ran but could not decide.
	Unknown
	// NotApplicable means the rule does not apply to the target platform.
	NotApplicable
	// NotChecked means no engine evaluated the rule.
	NotChecked
	// NotSelected means the rule was not part of the evaluated profile.
	NotSelected
	// Informational means the rule was checked but is not pass/fail.
	Informational
	// Fixed means the rule failed initially and was remediated.
	Fixed
)

// All lists every outcome in table order.
var All = []Outcome{Pass, Fail, Error, Unknown, NotApplicable, NotChecked, NotSelected, Informational, Fixed}

var names = map[Outcome]string{
	Pass:          "pass",
	Fail:          "fail",
	Error:         "error",
	Unknown:       "unknown",
	NotApplicable: "notapplicable",
	NotChecked:    "notchecked",
	NotSelected:   "notselected",
	Informational: "informational",
	Fixed:         "fixed",
}

// String returns the XCCDF name of the outcome.
func (o Outcome) String() string {
	if name, ok := names[o]; ok {
		return name
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Valid reports whether o is one of the nine defined outcomes.
func (o Outcome) Valid() bool {
	return o >= Pass && o <= Fixed
}

// Abbrev returns the single letter used for o in the truth tables.
func (o Outcome) Abbrev() string {
	switch o {
	case Pass:
		return "P"
	case Fail:
		return "F"
	case Error:
		return "E"
	case Unknown:
		return "U"
	case NotApplicable:
		return "N"
	case NotChecked:
		return "K"
	case NotSelected:
		return "S"
	case Informational:
		return "I"
	case Fixed:
		return "X"
	default:
		return "?"
	}
}

// Parse converts an XCCDF outcome name into an Outcome. Matching is case
// insensitive and accepts the underscore spelling ("not_applicable").
func Parse(s string) (Outcome, error) {
	normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", ""))
	for o, name := range names {
		if name == normalized {
			return o, nil
		}
	}
	return 0, fmt.Errorf("unknown outcome %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	if !o.Valid() {
		return nil, fmt.Errorf("invalid outcome %d", int(o))
	}
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Outcome) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// Operator is a boolean operator used to combine outcomes.
type Operator string

const (
	// OperatorAnd combines outcomes with the AND truth table.
	OperatorAnd Operator = "AND"
	// OperatorOr combines outcomes with the OR truth table.
	OperatorOr Operator = "OR"
)

// ParseOperator converts "and"/"or" (any case) into an Operator. The empty
// string yields OperatorAnd, the XCCDF default.
func ParseOperator(s string) (Operator, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "AND":
		return OperatorAnd, nil
	case "OR":
		return OperatorOr, nil
	default:
		return "", fmt.Errorf("unknown operator %q", s)
	}
}
