// Package session holds the signed-in user, the active screen and the
// transient messages shown to the user, and runs every account and task
// operation through validation before it reaches the record store.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sandeepkv93/teemo/internal/logging"
	"github.com/sandeepkv93/teemo/internal/model"
	"github.com/sandeepkv93/teemo/internal/navigation"
	"github.com/sandeepkv93/teemo/internal/notify"
	"github.com/sandeepkv93/teemo/internal/storage"
	"github.com/sandeepkv93/teemo/internal/validate"
)

var ErrNotAuthenticated = errors.New("session: not authenticated")

const (
	MsgBadCredentials   = "Email or password incorrect"
	MsgEmailTaken       = "This email is already in use"
	MsgEmailNotFound    = "Email not found"
	MsgInvalidCode      = "Invalid code"
	MsgResetDone        = "Password reset successfully. Please login."
	MsgProfileEmailUsed = "Email already in use"
	MsgProfileUpdated   = "Profile updated successfully"
	MsgInvalidDue       = "Invalid completion time"

	DeletePrompt = "Are you sure you want to delete this task?"
)

var (
	loginRules = validate.Set{
		{Field: "email", Rules: []validate.Rule{validate.Required(), validate.Email()}},
		{Field: "password", Rules: []validate.Rule{validate.Required()}},
	}
	registerRules = validate.Set{
		{Field: "email", Rules: []validate.Rule{validate.Required(), validate.Email()}},
		{Field: "password", Rules: []validate.Rule{validate.Required(), validate.MinLength(8)}},
		{Field: "password_confirmation", Rules: []validate.Rule{validate.Required(), validate.Match("password")}},
	}
	forgotRules = validate.Set{
		{Field: "email", Rules: []validate.Rule{validate.Required(), validate.Email()}},
	}
	resetRules = validate.Set{
		{Field: "password", Rules: []validate.Rule{validate.Required(), validate.MinLength(8)}},
		{Field: "password_confirmation", Rules: []validate.Rule{validate.Required(), validate.Match("password")}},
	}
	profileRules = validate.Set{
		{Field: "email", Rules: []validate.Rule{validate.Required(), validate.Email()}},
		{Field: "password", Rules: []validate.Rule{validate.MinLength(8)}},
	}
	taskRules = validate.Set{
		{Field: "title", Rules: []validate.Rule{validate.Required(), validate.MaxLength(model.MaxTitleLength)}},
	}
)

// Store is the subset of the record store the service drives.
type Store interface {
	FindUserByCredentials(email, password string) (model.User, bool)
	FindUserByEmail(email string, excludeID int64) (model.User, bool)
	GetUser(id int64) (model.User, bool)
	CreateUser(ctx context.Context, email, password string) (model.User, error)
	UpdateUser(ctx context.Context, id int64, patch storage.UserPatch) (model.User, bool, error)
	UpdatePasswordByEmail(ctx context.Context, email, password string) (bool, error)
	ListTasksForUser(userID int64) []model.Task
	CreateTask(ctx context.Context, userID int64, title, content string, completionTime *time.Time) (model.Task, error)
	ToggleTaskCompletion(ctx context.Context, taskID, userID int64) (bool, error)
	DeleteTask(ctx context.Context, taskID, userID int64) (bool, error)
}

// Confirmer answers the delete prompt.
type Confirmer interface {
	Confirm(prompt string) bool
}

// Answer is a Confirmer with a fixed reply, used when the UI has already
// collected the user's y/n.
type Answer bool

func (a Answer) Confirm(string) bool { return bool(a) }

type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// State is what the UI renders. It is a copy; mutating it has no effect.
type State struct {
	Screen        navigation.Screen
	CurrentUser   *model.User
	SearchKeyword string
	Error         string
	Success       string
	RecoveryEmail string
	RecoveryCode  string
	CodeVerified  bool
}

type Options struct {
	Notifier notify.Notifier
	Logger   *slog.Logger
	// Codes returns a new recovery code. Defaults to a uniform pick in
	// 1000..9999.
	Codes func() string
	// Location is used for completion times written without a zone.
	Location *time.Location
}

type Service struct {
	store    Store
	nav      *navigation.Machine
	notifier notify.Notifier
	logger   *slog.Logger
	codes    func() string
	loc      *time.Location

	user          *model.User
	search        string
	errMsg        string
	success       string
	recoveryEmail string
	recoveryCode  string
	codeVerified  bool
}

func New(store Store, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.NewLogNotifier(opts.Logger)
	}
	if opts.Codes == nil {
		opts.Codes = RandomCode
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Service{
		store:    store,
		nav:      navigation.New(),
		notifier: opts.Notifier,
		logger:   opts.Logger.With("component", "session"),
		codes:    opts.Codes,
		loc:      opts.Location,
	}
}

func RandomCode() string {
	return strconv.Itoa(1000 + rand.IntN(9000))
}

func (s *Service) State() State {
	st := State{
		Screen:        s.nav.Current(),
		SearchKeyword: s.search,
		Error:         s.errMsg,
		Success:       s.success,
		RecoveryEmail: s.recoveryEmail,
		RecoveryCode:  s.recoveryCode,
		CodeVerified:  s.codeVerified,
	}
	if s.user != nil {
		u := *s.user
		st.CurrentUser = &u
	}
	return st
}

func (s *Service) Screen() navigation.Screen { return s.nav.Current() }

func (s *Service) SignedIn() bool { return s.user != nil }

func (s *Service) guards() navigation.Guards {
	return navigation.Guards{
		SignedIn:        s.user != nil,
		RecoveryPending: s.recoveryEmail != "",
		CodeVerified:    s.codeVerified,
	}
}

// advance performs an outcome transition and drops any stale success banner.
func (s *Service) advance(to navigation.Screen) error {
	if err := s.nav.Force(to, s.guards()); err != nil {
		return err
	}
	s.success = ""
	return nil
}

// fail records a user-visible message; the screen stays where it is.
func (s *Service) fail(msg string) {
	s.errMsg = msg
}

// Navigate is a user-initiated move. Going to login from a signed-in screen
// ends the session, and any move other than to resetPassword forgets a
// verified recovery code.
func (s *Service) Navigate(to navigation.Screen) error {
	if to == navigation.ScreenLogin && s.user != nil {
		if err := s.nav.CanGo(to, s.guards()); err != nil {
			return err
		}
		s.Logout()
		return nil
	}
	if err := s.nav.Go(to, s.guards()); err != nil {
		return err
	}
	if to != navigation.ScreenResetPassword {
		s.codeVerified = false
	}
	s.errMsg = ""
	s.success = ""
	return nil
}

func (s *Service) Login(email, password string) error {
	s.errMsg = ""
	res := validate.Validate(map[string]string{"email": email, "password": password}, loginRules)
	if !res.Success {
		s.fail(res.FirstError())
		return nil
	}
	user, ok := s.store.FindUserByCredentials(email, password)
	if !ok {
		s.logger.Info("login rejected", "email", email)
		s.fail(MsgBadCredentials)
		return nil
	}
	s.user = &user
	s.logger.Info("login", "user_id", user.ID)
	return s.advance(navigation.ScreenList)
}

func (s *Service) Register(ctx context.Context, email, password, confirm string) error {
	s.errMsg = ""
	res := validate.Validate(map[string]string{
		"email":                 email,
		"password":              password,
		"password_confirmation": confirm,
	}, registerRules)
	if !res.Success {
		s.fail(res.FirstError())
		return nil
	}
	if _, taken := s.store.FindUserByEmail(email, 0); taken {
		s.fail(MsgEmailTaken)
		return nil
	}
	user, err := s.store.CreateUser(ctx, email, password)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	s.user = &user
	s.logger.Info("registered", "user_id", user.ID)
	return s.advance(navigation.ScreenList)
}

func (s *Service) ForgotPassword(email string) error {
	s.errMsg = ""
	res := validate.Validate(map[string]string{"email": email}, forgotRules)
	if !res.Success {
		s.fail(res.FirstError())
		return nil
	}
	if _, ok := s.store.FindUserByEmail(email, 0); !ok {
		s.fail(MsgEmailNotFound)
		return nil
	}
	code := s.codes()
	s.recoveryEmail = email
	s.recoveryCode = code
	s.codeVerified = false
	s.logger.Info("recovery code issued", "email", email, "code", code)
	if err := s.notifier.Send(notify.Notification{
		Title: "teemo recovery code",
		Body:  fmt.Sprintf("Recovery code for %s: %s", email, code),
		Level: notify.LevelInfo,
	}); err != nil {
		s.logger.Warn("recovery code delivery failed", "err", err)
	}
	return s.advance(navigation.ScreenVerifyCode)
}

// ResendCode issues a fresh code for the pending recovery email.
func (s *Service) ResendCode() error {
	if s.recoveryEmail == "" {
		return fmt.Errorf("resend code: %w", navigation.ErrRecoveryRequired)
	}
	return s.ForgotPassword(s.recoveryEmail)
}

func (s *Service) VerifyCode(code string) error {
	s.errMsg = ""
	if s.recoveryEmail == "" {
		return fmt.Errorf("verify code: %w", navigation.ErrRecoveryRequired)
	}
	if code != s.recoveryCode {
		s.fail(MsgInvalidCode)
		return nil
	}
	s.codeVerified = true
	return s.advance(navigation.ScreenResetPassword)
}

func (s *Service) ResetPassword(ctx context.Context, password, confirm string) error {
	s.errMsg = ""
	if !s.codeVerified {
		return fmt.Errorf("reset password: %w", navigation.ErrRecoveryRequired)
	}
	res := validate.Validate(map[string]string{
		"password":              password,
		"password_confirmation": confirm,
	}, resetRules)
	if !res.Success {
		s.fail(res.FirstError())
		return nil
	}
	ok, err := s.store.UpdatePasswordByEmail(ctx, s.recoveryEmail, password)
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	if !ok {
		s.fail(MsgEmailNotFound)
		return nil
	}
	s.logger.Info("password reset", "email", s.recoveryEmail)
	s.clearRecovery()
	if err := s.advance(navigation.ScreenLogin); err != nil {
		return err
	}
	s.success = MsgResetDone
	return nil
}

func (s *Service) clearRecovery() {
	s.recoveryEmail = ""
	s.recoveryCode = ""
	s.codeVerified = false
}

// UpdateProfile changes the signed-in user's email and, when password is
// non-empty, the password.
func (s *Service) UpdateProfile(ctx context.Context, email, password string) error {
	if s.user == nil {
		return ErrNotAuthenticated
	}
	s.errMsg = ""
	s.success = ""
	res := validate.Validate(map[string]string{"email": email, "password": password}, profileRules)
	if !res.Success {
		s.fail(res.FirstError())
		return nil
	}
	if _, taken := s.store.FindUserByEmail(email, s.user.ID); taken {
		s.fail(MsgProfileEmailUsed)
		return nil
	}
	updated, ok, err := s.store.UpdateUser(ctx, s.user.ID, storage.UserPatch{Email: email, Password: password})
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if !ok {
		return fmt.Errorf("update profile: %w: user %d missing", ErrNotAuthenticated, s.user.ID)
	}
	s.user = &updated
	s.success = MsgProfileUpdated
	s.logger.Info("profile updated", "user_id", updated.ID)
	return nil
}

// ParseCompletionTime accepts a date, a date with minutes (with or without
// seconds), or RFC 3339.
// Blank input means no completion time.
func ParseCompletionTime(raw string, loc *time.Location) (*time.Time, error) {
	return model.ParseDueTime(raw, loc)
}

func (s *Service) AddTask(ctx context.Context, title, content, completionTime string) error {
	if s.user == nil {
		return ErrNotAuthenticated
	}
	s.errMsg = ""
	res := validate.Validate(map[string]string{"title": title}, taskRules)
	if !res.Success {
		s.fail(res.FirstError())
		return nil
	}
	due, err := ParseCompletionTime(completionTime, s.loc)
	if err != nil {
		s.fail(MsgInvalidDue)
		return nil
	}
	task, err := s.store.CreateTask(ctx, s.user.ID, title, content, due)
	if err != nil {
		return fmt.Errorf("add task: %w", err)
	}
	s.logger.Info("task added", "task_id", task.ID)
	return s.advance(navigation.ScreenList)
}

// ToggleTask reports whether a task changed. Missing or foreign ids are
// ignored.
func (s *Service) ToggleTask(ctx context.Context, id int64) (bool, error) {
	if s.user == nil {
		return false, ErrNotAuthenticated
	}
	changed, err := s.store.ToggleTaskCompletion(ctx, id, s.user.ID)
	if err != nil {
		return false, fmt.Errorf("toggle task: %w", err)
	}
	return changed, nil
}

func (s *Service) DeleteTask(ctx context.Context, id int64, confirm Confirmer) (bool, error) {
	if s.user == nil {
		return false, ErrNotAuthenticated
	}
	if confirm == nil || !confirm.Confirm(DeletePrompt) {
		return false, nil
	}
	removed, err := s.store.DeleteTask(ctx, id, s.user.ID)
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}
	if removed {
		s.logger.Info("task deleted", "task_id", id)
	}
	return removed, nil
}

func (s *Service) SetSearch(keyword string) {
	s.search = keyword
}

// VisibleTasks lists the signed-in user's tasks matching the search
// keyword, ordered by due time with creation time as the fallback.
func (s *Service) VisibleTasks() []model.Task {
	if s.user == nil {
		return nil
	}
	all := s.store.ListTasksForUser(s.user.ID)
	needle := strings.ToLower(s.search)
	out := make([]model.Task, 0, len(all))
	for _, t := range all {
		if needle == "" ||
			strings.Contains(strings.ToLower(t.Title), needle) ||
			strings.Contains(strings.ToLower(t.Content), needle) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SortTime().Before(out[j].SortTime())
	})
	return out
}

// Task returns one of the signed-in user's tasks.
func (s *Service) Task(id int64) (model.Task, bool) {
	if s.user == nil {
		return model.Task{}, false
	}
	for _, t := range s.store.ListTasksForUser(s.user.ID) {
		if t.ID == id {
			return t, true
		}
	}
	return model.Task{}, false
}

// UpcomingTasks lists the signed-in user's open tasks due after now.
func (s *Service) UpcomingTasks(now time.Time) []model.Task {
	if s.user == nil {
		return nil
	}
	var out []model.Task
	for _, t := range s.store.ListTasksForUser(s.user.ID) {
		if !t.Completed && t.CompletionTime != nil && t.CompletionTime.After(now) {
			out = append(out, t)
		}
	}
	return out
}

func (s *Service) Logout() {
	if s.user != nil {
		s.logger.Info("logout", "user_id", s.user.ID)
	}
	s.user = nil
	s.search = ""
	s.errMsg = ""
	s.success = ""
	s.nav.Reset()
}

// ClearMessages drops the error and success banners without moving.
func (s *Service) ClearMessages() {
	s.errMsg = ""
	s.success = ""
}
