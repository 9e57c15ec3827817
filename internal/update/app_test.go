package update

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/teemo/internal/navigation"
	"github.com/sandeepkv93/teemo/internal/notify"
	"github.com/sandeepkv93/teemo/internal/scheduler"
	"github.com/sandeepkv93/teemo/internal/session"
	"github.com/sandeepkv93/teemo/internal/storage"
)

var testNow = time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)

func newTestModel(t *testing.T, opts Options) (Model, *session.Service) {
	t.Helper()
	store, err := storage.Open(context.Background(), storage.NewMemoryKV(), storage.Options{
		Now: func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	svc := session.New(store, session.Options{
		Notifier: notify.Noop{},
		Location: time.UTC,
		Codes:    func() string { return "4321" },
	})
	if opts.Now == nil {
		opts.Now = func() time.Time { return testNow }
	}
	return NewModel(svc, opts), svc
}

func send(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		updated, _ := m.Update(msg)
		m = updated.(Model)
	}
	return m
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	keyTab   = tea.KeyMsg{Type: tea.KeyTab}
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
	keySpace = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	keyCtrlR = tea.KeyMsg{Type: tea.KeyCtrlR}
	keyCtrlF = tea.KeyMsg{Type: tea.KeyCtrlF}
)

func registerViaKeys(t *testing.T, m Model, email string) Model {
	t.Helper()
	m = send(t, m, keyCtrlR,
		runes(email), keyTab,
		runes("password1"), keyTab,
		runes("password1"), keyEnter,
	)
	if m.Screen() != navigation.ScreenList {
		t.Fatalf("expected list after register, got %q (status %+v)", m.Screen(), m.Status)
	}
	return m
}

func addTaskViaKeys(t *testing.T, m Model, title, due string) Model {
	t.Helper()
	m = send(t, m, runes("n"), runes(title), keyTab, keyTab)
	if due != "" {
		m = send(t, m, runes(due))
	}
	return send(t, m, keyEnter)
}

func TestNewModelDefaults(t *testing.T) {
	m, _ := newTestModel(t, Options{})
	if m.Screen() != navigation.ScreenLogin {
		t.Fatalf("expected login screen, got %q", m.Screen())
	}
	if m.Keys.Quit != "q" || m.Keys.Palette != "/" {
		t.Fatalf("unexpected keys: %+v", m.Keys)
	}
	if !strings.Contains(m.View(), "Login") {
		t.Fatalf("expected login form in view:\n%s", m.View())
	}
}

func TestLoginValidationErrorShownInView(t *testing.T) {
	m, svc := newTestModel(t, Options{})
	m = send(t, m, runes("nope"), keyEnter)
	if got := svc.State().Error; got != "Invalid email format" {
		t.Fatalf("unexpected error: %q", got)
	}
	if !strings.Contains(m.View(), "Invalid email format") {
		t.Fatal("expected error banner in view")
	}
	if m.Screen() != navigation.ScreenLogin {
		t.Fatalf("screen must not change, got %q", m.Screen())
	}
}

func TestFirstTaskIsSelected(t *testing.T) {
	m, _ := newTestModel(t, Options{})
	m = registerViaKeys(t, m, "a@x.com")
	if id := m.selectedTaskID(); id != 0 {
		t.Fatalf("expected no selection on an empty list, got %d", id)
	}

	m = addTaskViaKeys(t, m, "Buy milk", "")
	if got := m.taskTable.Cursor(); got != 0 {
		t.Fatalf("expected cursor on first row, got %d", got)
	}
	if id := m.selectedTaskID(); id != 1 {
		t.Fatalf("expected task #1 selected, got %d", id)
	}

	m = send(t, m, runes("d"), runes("y"))
	m = addTaskViaKeys(t, m, "Walk dog", "")
	if id := m.selectedTaskID(); id != 2 {
		t.Fatalf("expected task #2 selected after list refilled, got %d", id)
	}
}

func TestRegisterAddToggleDelete(t *testing.T) {
	m, svc := newTestModel(t, Options{})
	m = registerViaKeys(t, m, "a@x.com")

	m = addTaskViaKeys(t, m, "Buy milk", "")
	if m.Screen() != navigation.ScreenList {
		t.Fatalf("expected list after add, got %q", m.Screen())
	}
	if rows := m.taskTable.Rows(); len(rows) != 1 || rows[0][2] != "Buy milk" {
		t.Fatalf("unexpected table rows: %+v", rows)
	}

	m = send(t, m, keySpace)
	if tasks := svc.VisibleTasks(); !tasks[0].Completed {
		t.Fatal("expected task toggled")
	}
	if rows := m.taskTable.Rows(); rows[0][1] != "[x]" {
		t.Fatalf("expected done marker, got %q", rows[0][1])
	}

	m = send(t, m, runes("d"))
	if m.PendingDelete != 1 {
		t.Fatalf("expected pending delete for #1, got %d", m.PendingDelete)
	}
	m = send(t, m, runes("n"))
	if m.PendingDelete != 0 || len(svc.VisibleTasks()) != 1 {
		t.Fatal("answering n must keep the task")
	}
	if m.Screen() != navigation.ScreenList {
		t.Fatal("n inside the prompt must not open the new task form")
	}

	m = send(t, m, runes("d"), runes("y"))
	if len(svc.VisibleTasks()) != 0 || len(m.taskTable.Rows()) != 0 {
		t.Fatal("expected task deleted")
	}
}

func TestAddTaskInvalidDueStaysOnForm(t *testing.T) {
	m, svc := newTestModel(t, Options{})
	m = registerViaKeys(t, m, "a@x.com")
	m = addTaskViaKeys(t, m, "Pay rent", "someday")
	if m.Screen() != navigation.ScreenNew {
		t.Fatalf("expected to stay on new, got %q", m.Screen())
	}
	if svc.State().Error != session.MsgInvalidDue {
		t.Fatalf("unexpected error: %q", svc.State().Error)
	}
	m = send(t, m, keyEsc)
	if m.Screen() != navigation.ScreenList || svc.State().Error != "" {
		t.Fatalf("esc should return to list and clear the error, got %q %q", m.Screen(), svc.State().Error)
	}
}

func TestPaletteCommands(t *testing.T) {
	m, svc := newTestModel(t, Options{})
	m = registerViaKeys(t, m, "a@x.com")

	m = send(t, m, runes("/"))
	if !m.Palette.Active {
		t.Fatal("expected palette active")
	}
	m = send(t, m, runes("add"), keySpace, runes("pay"), keySpace, runes("rent"), keyEnter)
	if m.Palette.Active {
		t.Fatal("expected palette closed after enter")
	}
	tasks := svc.VisibleTasks()
	if len(tasks) != 1 || tasks[0].Title != "pay rent" {
		t.Fatalf("unexpected tasks: %+v (status %+v)", tasks, m.Status)
	}

	m = send(t, m, runes("/"), runes("toggle 1"), keyEnter)
	if !svc.VisibleTasks()[0].Completed || m.Status.IsError {
		t.Fatalf("toggle via palette failed: %+v", m.Status)
	}

	m = send(t, m, runes("/"), runes("toggle 9"), keyEnter)
	if !m.Status.IsError || !strings.Contains(m.Status.Text, "no task #9") {
		t.Fatalf("expected error for unknown task, got %+v", m.Status)
	}

	m = send(t, m, runes("/"), runes("frobnicate"), keyEnter)
	if !m.Status.IsError || !strings.Contains(m.Status.Text, "unknown_command") {
		t.Fatalf("expected unknown command error, got %+v", m.Status)
	}

	m = send(t, m, runes("/"), runes("delete 1"), keyEnter)
	if m.PendingDelete != 1 {
		t.Fatalf("expected delete confirmation, got %d", m.PendingDelete)
	}
	m = send(t, m, runes("y"))
	if len(svc.VisibleTasks()) != 0 {
		t.Fatal("expected task deleted after confirmation")
	}

	m = send(t, m, runes("/"), runes("logout"), keyEnter)
	if m.Screen() != navigation.ScreenLogin || svc.SignedIn() {
		t.Fatalf("expected logout, got %q", m.Screen())
	}
}

func TestSearchFiltersAsYouType(t *testing.T) {
	m, svc := newTestModel(t, Options{})
	m = registerViaKeys(t, m, "a@x.com")
	m = addTaskViaKeys(t, m, "Buy milk", "")
	m = addTaskViaKeys(t, m, "Call mom", "")

	m = send(t, m, runes("s"), runes("MILK"))
	if len(m.taskTable.Rows()) != 1 {
		t.Fatalf("expected one match, got %+v", m.taskTable.Rows())
	}
	m = send(t, m, keyEnter)
	if m.Searching || svc.State().SearchKeyword != "MILK" {
		t.Fatalf("expected search applied, searching=%v keyword=%q", m.Searching, svc.State().SearchKeyword)
	}
	m = send(t, m, keyEsc)
	if svc.State().SearchKeyword != "" || len(m.taskTable.Rows()) != 2 {
		t.Fatal("esc on the list should clear the search")
	}
}

func TestRecoveryFlowShowsCode(t *testing.T) {
	m, svc := newTestModel(t, Options{})
	m = registerViaKeys(t, m, "a@x.com")
	m = send(t, m, runes("L"))
	if m.Screen() != navigation.ScreenLogin {
		t.Fatalf("expected login after logout, got %q", m.Screen())
	}

	m = send(t, m, keyCtrlF, runes("a@x.com"), keyEnter)
	if m.Screen() != navigation.ScreenVerifyCode {
		t.Fatalf("expected verify screen, got %q", m.Screen())
	}
	if !strings.Contains(m.Status.Text, "4321") {
		t.Fatalf("expected recovery code in status, got %q", m.Status.Text)
	}

	m = send(t, m, runes("0000"), keyEnter)
	if svc.State().Error != session.MsgInvalidCode {
		t.Fatalf("expected invalid code, got %q", svc.State().Error)
	}
	m = send(t, m, keyCtrlR)
	m = send(t, m, runes("4321"), keyEnter)
	if m.Screen() != navigation.ScreenResetPassword {
		t.Fatalf("expected reset screen, got %q", m.Screen())
	}
	m = send(t, m, runes("newpass12"), keyTab, runes("newpass12"), keyEnter)
	if m.Screen() != navigation.ScreenLogin || svc.State().Success != session.MsgResetDone {
		t.Fatalf("expected login with success banner, got %q %q", m.Screen(), svc.State().Success)
	}

	m = send(t, m, runes("a@x.com"), keyTab, runes("newpass12"), keyEnter)
	if m.Screen() != navigation.ScreenList {
		t.Fatalf("expected login with new password, got %q (%q)", m.Screen(), svc.State().Error)
	}
}

func TestRecoveryCodeHiddenWithDesktopNotifications(t *testing.T) {
	m, _ := newTestModel(t, Options{DesktopEnabled: true})
	m = registerViaKeys(t, m, "a@x.com")
	m = send(t, m, runes("L"), keyCtrlF, runes("a@x.com"), keyEnter)
	if strings.Contains(m.Status.Text, "4321") {
		t.Fatalf("code must not be shown when desktop notifications are on: %q", m.Status.Text)
	}
}

func TestProfileEdit(t *testing.T) {
	m, svc := newTestModel(t, Options{})
	m = registerViaKeys(t, m, "a@x.com")
	m = send(t, m, runes("p"))
	if m.Screen() != navigation.ScreenProfile {
		t.Fatalf("expected profile, got %q", m.Screen())
	}
	m = send(t, m, runes("e"))
	if !m.ProfileEditing {
		t.Fatal("expected edit mode")
	}
	m = send(t, m, runes(".au"), keyEnter)
	st := svc.State()
	if st.CurrentUser.Email != "a@x.com.au" || st.Success != session.MsgProfileUpdated {
		t.Fatalf("unexpected profile state: %+v", st)
	}
	if m.ProfileEditing {
		t.Fatal("expected edit mode closed after save")
	}
	m = send(t, m, keyEsc)
	if m.Screen() != navigation.ScreenList {
		t.Fatalf("expected list after esc, got %q", m.Screen())
	}
}

func TestToggleAndDeleteKeepAlertsInStep(t *testing.T) {
	engine := scheduler.NewEngine(4)
	m, _ := newTestModel(t, Options{Scheduler: engine, DueAlerts: true})
	m = registerViaKeys(t, m, "a@x.com")
	m = addTaskViaKeys(t, m, "Pay rent", "2026-03-01 09:30")
	if engine.Pending() != 1 {
		t.Fatalf("expected alert queued, got %d", engine.Pending())
	}

	m = send(t, m, runes("/"), runes("toggle 1"), keyEnter)
	if engine.Pending() != 0 {
		t.Fatalf("completing a task must cancel its alert, got %d", engine.Pending())
	}
	m = send(t, m, keySpace)
	if engine.Pending() != 1 {
		t.Fatalf("reopening a task must queue its alert again, got %d", engine.Pending())
	}
	m = send(t, m, runes("d"), runes("y"))
	if engine.Pending() != 0 {
		t.Fatalf("deleting a task must cancel its alert, got %d", engine.Pending())
	}
	if m.Status.IsError {
		t.Fatalf("unexpected error status: %+v", m.Status)
	}
}

func TestDueAlerts(t *testing.T) {
	engine := scheduler.NewEngine(4)
	rec := &notify.Recorder{}
	m, svc := newTestModel(t, Options{Scheduler: engine, DueAlerts: true, DesktopEnabled: true, Notifier: rec})
	m = registerViaKeys(t, m, "a@x.com")
	m = addTaskViaKeys(t, m, "Pay rent", "2026-03-01 09:30")
	m = addTaskViaKeys(t, m, "Old news", "2026-01-01")
	if engine.Pending() != 1 {
		t.Fatalf("expected one future task scheduled, got %d", engine.Pending())
	}

	task, _ := svc.Task(1)
	ev := scheduler.DueEvent{ID: scheduler.DueEventID(1), TaskID: 1, UserID: task.UserID, Title: task.Title, DueAt: *task.CompletionTime}
	m = send(t, m, DueAlertMsg{Event: ev})
	if len(m.DueLog) != 1 || len(m.Notifications) != 1 {
		t.Fatalf("expected alert recorded, log=%d notes=%d", len(m.DueLog), len(m.Notifications))
	}
	if last, ok := rec.Last(); !ok || !strings.Contains(last.Body, "Pay rent") {
		t.Fatalf("expected desktop notification, got %+v", last)
	}

	other := ev
	other.UserID = 99
	m = send(t, m, DueAlertMsg{Event: other})
	if len(m.DueLog) != 1 {
		t.Fatal("alert for another user must be ignored")
	}

	if _, err := svc.ToggleTask(context.Background(), 1); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	m = send(t, m, DueAlertMsg{Event: ev})
	if len(m.DueLog) != 1 {
		t.Fatal("alert for a completed task must be ignored")
	}

	m = send(t, m, runes("L"))
	if engine.Pending() != 0 {
		t.Fatalf("logout should cancel queued alerts, got %d", engine.Pending())
	}
}

func TestUpdateStatusAndError(t *testing.T) {
	m, _ := newTestModel(t, Options{})
	m = send(t, m, SetStatusMsg{Text: "ready", IsError: false})
	if m.Status.Text != "ready" || m.Status.IsError {
		t.Fatalf("unexpected status: %+v", m.Status)
	}

	m = send(t, m, AppErrorMsg{Err: errors.New("boom")})
	if m.LastError == nil || m.LastError.Error() != "boom" {
		t.Fatalf("expected last error boom, got: %v", m.LastError)
	}
	if !m.Status.IsError || m.Status.Text != "boom" {
		t.Fatalf("unexpected error status: %+v", m.Status)
	}

	m = send(t, m, ClearStatusMsg{})
	if m.Status.Text != "" || m.Status.IsError {
		t.Fatalf("expected cleared status, got: %+v", m.Status)
	}
}

func TestQuitKeys(t *testing.T) {
	m, _ := newTestModel(t, Options{})
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if !updated.(Model).Quitting || cmd == nil {
		t.Fatal("ctrl+c should quit from any screen")
	}

	m = registerViaKeys(t, m, "a@x.com")
	updated, cmd = m.Update(runes("q"))
	if !updated.(Model).Quitting || cmd == nil {
		t.Fatal("q should quit from the list")
	}
}
