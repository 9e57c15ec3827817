package update

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/teemo/internal/commands"
	"github.com/sandeepkv93/teemo/internal/navigation"
	"github.com/sandeepkv93/teemo/internal/views"
)

func (m Model) handlePaletteKey(msg tea.KeyMsg) Model {
	switch msg.String() {
	case "esc":
		m.closePalette()
		m.Status = StatusBar{Text: "command palette closed", IsError: false}
	case "enter":
		m.Palette.Input = m.commandInput.Value()
		m = m.executePaletteCommand()
	default:
		if msg.Type == tea.KeyRunes {
			m.commandInput.SetValue(m.commandInput.Value() + string(msg.Runes))
			m.Palette.Input = m.commandInput.Value()
			return m
		}
		if msg.Type == tea.KeySpace {
			m.commandInput.SetValue(m.commandInput.Value() + " ")
			m.Palette.Input = m.commandInput.Value()
			return m
		}
		var cmd tea.Cmd
		m.commandInput, cmd = m.commandInput.Update(msg)
		_ = cmd
		m.Palette.Input = m.commandInput.Value()
	}
	return m
}

func (m *Model) closePalette() {
	m.Palette.Active = false
	m.Palette.Input = ""
	m.commandInput.SetValue("")
	m.commandInput.Blur()
}

func (m Model) executePaletteCommand() Model {
	raw := strings.TrimSpace(m.Palette.Input)
	m.closePalette()
	cmd, err := commands.Parse(raw)
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return m
	}

	res, err := commands.Execute(cmd, commands.Handlers{
		Add: func(a commands.AddArgs) (commands.Result, error) {
			if err := m.svc.AddTask(m.ctx, a.Title, "", a.Due); err != nil {
				return commands.Result{}, err
			}
			if msg := m.svc.State().Error; msg != "" {
				m.svc.ClearMessages()
				return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: msg}
			}
			m.scheduleUpcoming()
			return commands.Result{Message: fmt.Sprintf("added task: %s", a.Title)}, nil
		},
		Search: func(s commands.SearchArgs) (commands.Result, error) {
			m.svc.SetSearch(s.Keyword)
			m.searchInput.SetValue(s.Keyword)
			m.taskTable.SetCursor(0)
			if s.Keyword == "" {
				return commands.Result{Message: "search cleared"}, nil
			}
			return commands.Result{Message: fmt.Sprintf("search: %s (%d match)", s.Keyword, len(m.svc.VisibleTasks()))}, nil
		},
		Toggle: func(t commands.TaskArgs) (commands.Result, error) {
			changed, err := m.svc.ToggleTask(m.ctx, t.ID)
			if err != nil {
				return commands.Result{}, err
			}
			if !changed {
				return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: fmt.Sprintf("no task #%d", t.ID)}
			}
			m.refreshDue(t.ID)
			return commands.Result{Message: fmt.Sprintf("toggled task #%d", t.ID)}, nil
		},
		Delete: func(t commands.TaskArgs) (commands.Result, error) {
			if _, ok := m.svc.Task(t.ID); !ok {
				return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: fmt.Sprintf("no task #%d", t.ID)}
			}
			m.askDelete(t.ID)
			return commands.Result{Message: m.Status.Text}, nil
		},
		Profile: func() (commands.Result, error) {
			m.navigate(navigation.ScreenProfile)
			return commands.Result{Message: "profile"}, nil
		},
		Logout: func() (commands.Result, error) {
			m.logout()
			return commands.Result{Message: "logged out"}, nil
		},
	})
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		m.logger.Warn("command failed", "command", raw, "err", err)
	} else {
		m.Status = StatusBar{Text: res.Message, IsError: false}
		m.logger.Debug("command", "command", raw)
	}
	return m
}

func (m Model) renderPalette() string {
	out := views.RenderCommandPalette(m.Palette.Active, m.commandInput.View())
	if out == "" {
		return ""
	}
	return "\n\n" + out
}
