package validate

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrUnknownRule = errors.New("validate: unknown rule")

type RuleKind string

const (
	KindRequired  RuleKind = "required"
	KindEmail     RuleKind = "email"
	KindMinLength RuleKind = "minLength"
	KindMaxLength RuleKind = "maxLength"
	KindMatch     RuleKind = "match"
)

// Rule is one check applied to a field value. N is used by the length
// rules and Field by Match; the other kinds ignore both.
type Rule struct {
	Kind  RuleKind
	N     int
	Field string
}

func Required() Rule { return Rule{Kind: KindRequired} }
func Email() Rule { return Rule{Kind: KindEmail} }
func MinLength(n int) Rule { return Rule{Kind: KindMinLength, N: n} }
func MaxLength(n int) Rule { return Rule{Kind: KindMaxLength, N: n} }
func Match(field string) Rule { return Rule{Kind: KindMatch, Field: field} }

func (r Rule) String() string {
	switch r.Kind {
	case KindMinLength, KindMaxLength:
		return fmt.Sprintf("%s:%d", r.Kind, r.N)
	case KindMatch:
		return fmt.Sprintf("%s:%s", r.Kind, r.Field)
	default:
		return string(r.Kind)
	}
}

// ParseRule accepts the compact text form used in rule tables, e.g.
// "required", "minLength:8" or "match:password".
func ParseRule(raw string) (Rule, error) {
	raw = strings.TrimSpace(raw)
	head, arg, hasArg := strings.Cut(raw, ":")
	switch RuleKind(head) {
	case KindRequired, KindEmail:
		if hasArg {
			return Rule{}, fmt.Errorf("%w: %q takes no argument", ErrUnknownRule, raw)
		}
		return Rule{Kind: RuleKind(head)}, nil
	case KindMinLength, KindMaxLength:
		n, err := strconv.Atoi(arg)
		if !hasArg || err != nil || n < 0 {
			return Rule{}, fmt.Errorf("%w: %q needs a non-negative length", ErrUnknownRule, raw)
		}
		return Rule{Kind: RuleKind(head), N: n}, nil
	case KindMatch:
		if !hasArg || strings.TrimSpace(arg) == "" {
			return Rule{}, fmt.Errorf("%w: %q needs a field name", ErrUnknownRule, raw)
		}
		return Match(strings.TrimSpace(arg)), nil
	default:
		return Rule{}, fmt.Errorf("%w: %q", ErrUnknownRule, raw)
	}
}

func ParseRules(raw ...string) ([]Rule, error) {
	out := make([]Rule, 0, len(raw))
	for _, r := range raw {
		rule, err := ParseRule(r)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, nil
}
