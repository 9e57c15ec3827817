package commands

import (
	"errors"
	"testing"
)

func TestParseSupportedCommands(t *testing.T) {
	cases := []struct {
		in       string
		typeWant Type
	}{
		{"/add pay rent", TypeAdd},
		{"search groceries", TypeSearch},
		{"/toggle 3", TypeToggle},
		{"delete #12", TypeDelete},
		{"PROFILE", TypeProfile},
		{"/logout", TypeLogout},
	}

	for _, tc := range cases {
		cmd, err := Parse(tc.in)
		if err != nil {
			t.Fatalf("parse %q failed: %v", tc.in, err)
		}
		if cmd.Type != tc.typeWant {
			t.Fatalf("parse %q type = %s, want %s", tc.in, cmd.Type, tc.typeWant)
		}
	}
}

func TestParseAddDue(t *testing.T) {
	cmd, err := Parse("/add pay rent due:2026-03-01T09:30 monthly")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if cmd.Add.Title != "pay rent monthly" || cmd.Add.Due != "2026-03-01T09:30" {
		t.Fatalf("unexpected add args: %+v", cmd.Add)
	}
}

func TestParseSearchAllowsEmptyKeyword(t *testing.T) {
	cmd, err := Parse("/search")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if cmd.Search.Keyword != "" {
		t.Fatalf("expected empty keyword, got %q", cmd.Search.Keyword)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		in   string
		code ErrorCode
	}{
		{"  ", ErrCodeEmptyInput},
		{"/", ErrCodeEmptyInput},
		{"/unknown do x", ErrCodeUnknownCommand},
		{"/add due:2026-03-01", ErrCodeInvalidArgument},
		{"/toggle", ErrCodeInvalidArgument},
		{"/delete abc", ErrCodeInvalidArgument},
		{"/delete 0", ErrCodeInvalidArgument},
		{"/logout now", ErrCodeInvalidArgument},
	}
	for _, tc := range cases {
		_, err := Parse(tc.in)
		var ce *CommandError
		if !errors.As(err, &ce) || ce.Code != tc.code {
			t.Fatalf("parse %q: expected %s, got %v", tc.in, tc.code, err)
		}
	}
}

func TestExecuteDispatch(t *testing.T) {
	cmd, err := Parse("/delete 4")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	called := false
	res, err := Execute(cmd, Handlers{
		Delete: func(a TaskArgs) (Result, error) {
			called = true
			if a.ID != 4 {
				t.Fatalf("unexpected id: %d", a.ID)
			}
			return Result{Message: "ok"}, nil
		},
	})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if !called || res.Message != "ok" {
		t.Fatalf("dispatch failed, called=%v res=%+v", called, res)
	}
}

func TestExecuteMissingHandler(t *testing.T) {
	cmd, err := Parse("logout")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	_, err = Execute(cmd, Handlers{})
	if err == nil {
		t.Fatal("expected error")
	}
	var ce *CommandError
	if !errors.As(err, &ce) || ce.Code != ErrCodeHandlerMissing {
		t.Fatalf("expected missing handler error, got %v", err)
	}
}
