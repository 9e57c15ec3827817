// Package validate checks form input against ordered per-field rule lists.
// Each field reports at most one message: the one from the first rule that
// fails for it.
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MsgRequired = "Required field"
	MsgEmail    = "Invalid email format"
	MsgMatch    = "Passwords do not match"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type FieldRules struct {
	Field string
	Rules []Rule
}

// Set is evaluated in slice order, which fixes which field's message
// FirstError reports.
type Set []FieldRules

type Result struct {
	Success bool
	Errors  map[string]string
	order   []string
}

// FirstError returns the message of the earliest failing field in rule set
// order, or "" when validation passed.
func (r Result) FirstError() string {
	if len(r.order) == 0 {
		return ""
	}
	return r.Errors[r.order[0]]
}

func (r Result) FailedFields() []string {
	return append([]string(nil), r.order...)
}

func Validate(data map[string]string, rules Set) Result {
	res := Result{Errors: make(map[string]string)}
	for _, fr := range rules {
		if _, seen := res.Errors[fr.Field]; seen {
			continue
		}
		value := data[fr.Field]
		for _, rule := range fr.Rules {
			if msg, failed := check(rule, value, data); failed {
				res.Errors[fr.Field] = msg
				res.order = append(res.order, fr.Field)
				break
			}
		}
	}
	res.Success = len(res.order) == 0
	return res
}

func check(rule Rule, value string, data map[string]string) (string, bool) {
	switch rule.Kind {
	case KindRequired:
		if strings.TrimSpace(value) == "" {
			return MsgRequired, true
		}
	case KindEmail:
		if value != "" && !emailPattern.MatchString(value) {
			return MsgEmail, true
		}
	case KindMinLength:
		if value != "" && utf8.RuneCountInString(value) < rule.N {
			return fmt.Sprintf("Must be at least %d characters", rule.N), true
		}
	case KindMaxLength:
		if value != "" && utf8.RuneCountInString(value) > rule.N {
			return fmt.Sprintf("Must be %d characters or less", rule.N), true
		}
	case KindMatch:
		if value != data[rule.Field] {
			return MsgMatch, true
		}
	}
	return "", false
}
