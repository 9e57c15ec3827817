// Package navigation tracks which screen is active and which moves between
// screens are allowed for the current session and recovery state.
package navigation

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownScreen     = errors.New("navigation: unknown screen")
	ErrIllegalTransition = errors.New("navigation: illegal transition")
	ErrSessionRequired   = errors.New("navigation: screen requires a signed-in user")
	ErrRecoveryRequired  = errors.New("navigation: screen requires an active recovery")
)

type Screen string

const (
	ScreenLogin          Screen = "login"
	ScreenRegister       Screen = "register"
	ScreenForgotPassword Screen = "forgotPassword"
	ScreenVerifyCode     Screen = "verifyCode"
	ScreenResetPassword  Screen = "resetPassword"
	ScreenProfile        Screen = "profile"
	ScreenList           Screen = "list"
	ScreenNew            Screen = "new"
)

func (s Screen) IsValid() bool {
	switch s {
	case ScreenLogin, ScreenRegister, ScreenForgotPassword, ScreenVerifyCode,
		ScreenResetPassword, ScreenProfile, ScreenList, ScreenNew:
		return true
	default:
		return false
	}
}

func (s Screen) RequiresSession() bool {
	return s == ScreenProfile || s == ScreenList || s == ScreenNew
}

// Guards is the slice of session state the machine needs to decide whether
// a screen may be entered.
type Guards struct {
	SignedIn        bool
	RecoveryPending bool
	CodeVerified    bool
}

// edges lists the moves a user can make by pressing a button or key. Outcome
// moves made by the service (login success, reset done) go through Force.
var edges = map[Screen][]Screen{
	ScreenLogin:          {ScreenRegister, ScreenForgotPassword},
	ScreenRegister:       {ScreenLogin},
	ScreenForgotPassword: {ScreenLogin, ScreenVerifyCode},
	ScreenVerifyCode:     {ScreenVerifyCode, ScreenForgotPassword, ScreenResetPassword},
	ScreenResetPassword:  {ScreenLogin, ScreenForgotPassword},
	ScreenList:           {ScreenProfile, ScreenNew, ScreenLogin},
	ScreenProfile:        {ScreenList, ScreenLogin},
	ScreenNew:            {ScreenList, ScreenLogin},
}

type Machine struct {
	current Screen
}

func New() *Machine {
	return &Machine{current: ScreenLogin}
}

func (m *Machine) Current() Screen {
	return m.current
}

func (m *Machine) CanGo(to Screen, g Guards) error {
	if !to.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownScreen, to)
	}
	allowed := false
	for _, next := range edges[m.current] {
		if next == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, m.current, to)
	}
	return checkGuards(to, g)
}

// Go performs a user-initiated move along a listed edge.
func (m *Machine) Go(to Screen, g Guards) error {
	if err := m.CanGo(to, g); err != nil {
		return err
	}
	m.current = to
	return nil
}

// Force moves to any screen whose guards hold, regardless of edges.
func (m *Machine) Force(to Screen, g Guards) error {
	if !to.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownScreen, to)
	}
	if err := checkGuards(to, g); err != nil {
		return err
	}
	m.current = to
	return nil
}

// Reset drops back to login; used when a session ends.
func (m *Machine) Reset() {
	m.current = ScreenLogin
}

func checkGuards(to Screen, g Guards) error {
	switch {
	case to.RequiresSession() && !g.SignedIn:
		return fmt.Errorf("%w: %s", ErrSessionRequired, to)
	case to == ScreenVerifyCode && !g.RecoveryPending:
		return fmt.Errorf("%w: %s", ErrRecoveryRequired, to)
	case to == ScreenResetPassword && !g.CodeVerified:
		return fmt.Errorf("%w: %s", ErrRecoveryRequired, to)
	}
	return nil
}
