package update

import (
	"context"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/sandeepkv93/teemo/internal/logging"
	"github.com/sandeepkv93/teemo/internal/navigation"
	"github.com/sandeepkv93/teemo/internal/notify"
	"github.com/sandeepkv93/teemo/internal/scheduler"
	"github.com/sandeepkv93/teemo/internal/session"
)

type StatusBar struct {
	Text    string
	IsError bool
}

type GlobalKeyMap struct {
	Help    string
	Palette string
	Quit    string
}

type CommandPaletteState struct {
	Active bool
	Input  string
}

type Model struct {
	Status         StatusBar
	Keys           GlobalKeyMap
	Palette        CommandPaletteState
	HelpVisible    bool
	Searching      bool
	ProfileEditing bool
	// PendingDelete is the task awaiting a y/n answer; zero when none.
	PendingDelete  int64
	DueLog         []scheduler.DueEvent
	Notifications  []notify.Notification
	DesktopEnabled bool
	DueAlerts      bool
	Scheduler      *scheduler.Engine
	Quitting       bool
	LastError      error

	ctx      context.Context
	svc      *session.Service
	notifier notify.Notifier
	logger   *slog.Logger
	now      func() time.Time

	forms        map[navigation.Screen]*form
	taskTable    table.Model
	commandInput textinput.Model
	searchInput  textinput.Model
	helpModel    help.Model
}

type Options struct {
	Context        context.Context
	Scheduler      *scheduler.Engine
	Notifier       notify.Notifier
	Logger         *slog.Logger
	DesktopEnabled bool
	DueAlerts      bool
	Now            func() time.Time
}

type SetStatusMsg struct {
	Text    string
	IsError bool
}

type ClearStatusMsg struct{}

type AppErrorMsg struct {
	Err error
}

type DueAlertMsg struct {
	Event scheduler.DueEvent
}

func NewModel(svc *session.Service, opts Options) Model {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Noop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	m := Model{
		Keys: GlobalKeyMap{
			Help:    "?",
			Palette: "/",
			Quit:    "q",
		},
		DesktopEnabled: opts.DesktopEnabled,
		DueAlerts:      opts.DueAlerts,
		Scheduler:      opts.Scheduler,
		ctx:            opts.Context,
		svc:            svc,
		notifier:       opts.Notifier,
		logger:         opts.Logger.With("component", "ui"),
		now:            opts.Now,
	}
	m.initBubbleComponents()
	m.focusCurrentForm()
	m.syncBubbleData()
	return m
}

// Screen is the screen the session is on.
func (m Model) Screen() navigation.Screen {
	return m.svc.Screen()
}

func (m *Model) initBubbleComponents() {
	m.forms = newForms()

	cols := []table.Column{
		{Title: "ID", Width: 4},
		{Title: "Done", Width: 4},
		{Title: "Title", Width: 26},
		{Title: "Due", Width: 16},
	}
	m.taskTable = table.New(table.WithColumns(cols), table.WithRows([]table.Row{}), table.WithFocused(true), table.WithHeight(12))

	m.commandInput = textinput.New()
	m.commandInput.Prompt = "/"
	m.commandInput.CharLimit = 256
	m.commandInput.Width = 48

	m.searchInput = textinput.New()
	m.searchInput.Prompt = "search> "
	m.searchInput.CharLimit = 128
	m.searchInput.Width = 40

	m.helpModel = help.New()
}

// syncBubbleData refreshes the task table from the session's visible tasks,
// keeping the cursor in range.
func (m *Model) syncBubbleData() {
	tasks := m.svc.VisibleTasks()
	rows := make([]table.Row, 0, len(tasks))
	for _, t := range tasks {
		done := " "
		if t.Completed {
			done = "x"
		}
		rows = append(rows, table.Row{
			formatID(t.ID),
			"[" + done + "]",
			t.Title,
			formatDue(t.CompletionTime),
		})
	}
	m.taskTable.SetRows(rows)
	if len(rows) == 0 {
		return
	}
	// a table built empty starts with cursor -1
	switch cursor := m.taskTable.Cursor(); {
	case cursor < 0:
		m.taskTable.SetCursor(0)
	case cursor >= len(rows):
		m.taskTable.SetCursor(len(rows) - 1)
	}
}

// selectedTaskID is the id under the table cursor, or zero.
func (m Model) selectedTaskID() int64 {
	tasks := m.svc.VisibleTasks()
	cursor := m.taskTable.Cursor()
	if cursor < 0 || cursor >= len(tasks) {
		return 0
	}
	return tasks[cursor].ID
}
