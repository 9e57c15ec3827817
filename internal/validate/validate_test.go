package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registrationRules() Set {
	return Set{
		{Field: "email", Rules: []Rule{Required(), Email()}},
		{Field: "password", Rules: []Rule{Required(), MinLength(8)}},
		{Field: "password_confirmation", Rules: []Rule{Required(), Match("password")}},
	}
}

func TestValidateSuccess(t *testing.T) {
	res := Validate(map[string]string{
		"email":                 "a@x.com",
		"password":              "password1",
		"password_confirmation": "password1",
	}, registrationRules())

	assert.True(t, res.Success)
	assert.Empty(t, res.Errors)
	assert.Equal(t, "", res.FirstError())
}

func TestValidateStopsAtFirstFailingRulePerField(t *testing.T) {
	// "  " fails required, so the email rule must never report.
	res := Validate(map[string]string{"email": "  "}, Set{
		{Field: "email", Rules: []Rule{Required(), Email()}},
	})
	require.False(t, res.Success)
	assert.Equal(t, MsgRequired, res.Errors["email"])
}

func TestValidateFirstErrorFollowsRuleSetOrder(t *testing.T) {
	res := Validate(map[string]string{
		"email":                 "not-an-email",
		"password":              "short",
		"password_confirmation": "other",
	}, registrationRules())

	require.False(t, res.Success)
	assert.Equal(t, MsgEmail, res.FirstError())
	assert.Equal(t, []string{"email", "password", "password_confirmation"}, res.FailedFields())
	assert.Equal(t, "Must be at least 8 characters", res.Errors["password"])
	assert.Equal(t, MsgMatch, res.Errors["password_confirmation"])
}

func TestValidateRuleSemantics(t *testing.T) {
	cases := []struct {
		name  string
		value string
		rule  Rule
		other string
		want  string
	}{
		{"required empty", "", Required(), "", MsgRequired},
		{"required tabs", "\t\n", Required(), "", MsgRequired},
		{"required ok", "x", Required(), "", ""},
		{"email empty skipped", "", Email(), "", ""},
		{"email no at", "ax.com", Email(), "", MsgEmail},
		{"email no dot", "a@x", Email(), "", MsgEmail},
		{"email whitespace", "a b@x.com", Email(), "", MsgEmail},
		{"email ok", "a@x.com", Email(), "", ""},
		{"min empty skipped", "", MinLength(8), "", ""},
		{"min short", "1234567", MinLength(8), "", "Must be at least 8 characters"},
		{"min exact", "12345678", MinLength(8), "", ""},
		{"min counts runes", "ééééééé", MinLength(8), "", "Must be at least 8 characters"},
		{"max over", "123456", MaxLength(5), "", "Must be 5 characters or less"},
		{"max exact", "12345", MaxLength(5), "", ""},
		{"match differs", "abc", Match("other"), "abd", MsgMatch},
		{"match equal", "abc", Match("other"), "abc", ""},
		{"match is exact", "abc ", Match("other"), "abc", MsgMatch},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Validate(map[string]string{"f": tc.value, "other": tc.other}, Set{
				{Field: "f", Rules: []Rule{tc.rule}},
			})
			assert.Equal(t, tc.want == "", res.Success)
			assert.Equal(t, tc.want, res.Errors["f"])
		})
	}
}

func TestValidateMatchAgainstMissingField(t *testing.T) {
	res := Validate(map[string]string{"confirm": "x"}, Set{
		{Field: "confirm", Rules: []Rule{Match("password")}},
	})
	assert.False(t, res.Success)

	res = Validate(map[string]string{}, Set{
		{Field: "confirm", Rules: []Rule{Match("password")}},
	})
	assert.True(t, res.Success)
}

func TestParseRule(t *testing.T) {
	rules, err := ParseRules("required", "email", "minLength:8", "maxLength:50", "match:password")
	require.NoError(t, err)
	assert.Equal(t, []Rule{Required(), Email(), MinLength(8), MaxLength(50), Match("password")}, rules)

	for _, r := range rules {
		back, err := ParseRule(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, back)
	}
}

func TestParseRuleRejectsUnknown(t *testing.T) {
	for _, raw := range []string{"", "nope", "minLength", "minLength:x", "maxLength:-1", "match:", "required:1"} {
		_, err := ParseRule(raw)
		assert.ErrorIs(t, err, ErrUnknownRule, raw)
	}
}
