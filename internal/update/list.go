package update

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/teemo/internal/navigation"
	"github.com/sandeepkv93/teemo/internal/session"
	"github.com/sandeepkv93/teemo/internal/views"
)

func (m Model) handleListKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.PendingDelete != 0 {
		return m.handleDeleteConfirmKey(msg), nil
	}
	if m.Searching {
		return m.handleSearchKey(msg), nil
	}

	switch msg.String() {
	case m.Keys.Palette:
		m.Palette.Active = true
		m.Palette.Input = ""
		m.commandInput.Focus()
		m.commandInput.SetValue("")
		m.Status = StatusBar{Text: "command palette active", IsError: false}
		return m, nil
	case m.Keys.Help:
		m.HelpVisible = !m.HelpVisible
		return m, nil
	case m.Keys.Quit:
		m.Quitting = true
		return m, tea.Quit
	case " ", "space", "x":
		m.toggleSelected()
		return m, nil
	case "d":
		id := m.selectedTaskID()
		if id == 0 {
			m.Status = StatusBar{Text: "no task selected", IsError: true}
			return m, nil
		}
		m.askDelete(id)
		return m, nil
	case "n":
		m.navigate(navigation.ScreenNew)
		return m, nil
	case "p":
		m.navigate(navigation.ScreenProfile)
		return m, nil
	case "s":
		m.Searching = true
		m.searchInput.SetValue(m.svc.State().SearchKeyword)
		m.searchInput.Focus()
		return m, nil
	case "L":
		m.logout()
		return m, nil
	case "esc":
		if m.svc.State().SearchKeyword != "" {
			m.svc.SetSearch("")
			m.Status = StatusBar{Text: "search cleared"}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.taskTable, cmd = m.taskTable.Update(msg)
	return m, cmd
}

func (m *Model) toggleSelected() {
	id := m.selectedTaskID()
	if id == 0 {
		return
	}
	changed, err := m.svc.ToggleTask(m.ctx, id)
	if err != nil {
		m.fail(err)
		return
	}
	if changed {
		if t, ok := m.svc.Task(id); ok && t.Completed {
			m.Status = StatusBar{Text: fmt.Sprintf("task #%d completed", id)}
		} else {
			m.Status = StatusBar{Text: fmt.Sprintf("task #%d reopened", id)}
		}
		m.refreshDue(id)
	}
}

func (m *Model) askDelete(id int64) {
	m.PendingDelete = id
	m.Status = StatusBar{Text: fmt.Sprintf("%s (task #%d) [y/n]", session.DeletePrompt, id)}
}

func (m Model) handleDeleteConfirmKey(msg tea.KeyMsg) Model {
	id := m.PendingDelete
	switch msg.String() {
	case "y", "Y":
		m.PendingDelete = 0
		removed, err := m.svc.DeleteTask(m.ctx, id, session.Answer(true))
		if err != nil {
			m.fail(err)
			return m
		}
		if removed {
			m.refreshDue(id)
			m.Status = StatusBar{Text: fmt.Sprintf("task #%d deleted", id)}
		} else {
			m.Status = StatusBar{}
		}
	case "n", "N", "esc":
		m.PendingDelete = 0
		m.Status = StatusBar{Text: "delete cancelled"}
	}
	return m
}

func (m Model) handleSearchKey(msg tea.KeyMsg) Model {
	switch msg.String() {
	case "enter":
		m.Searching = false
		m.searchInput.Blur()
		m.svc.SetSearch(m.searchInput.Value())
		return m
	case "esc":
		m.Searching = false
		m.searchInput.Blur()
		m.searchInput.SetValue("")
		m.svc.SetSearch("")
		return m
	}
	switch msg.Type {
	case tea.KeyRunes:
		m.searchInput.SetValue(m.searchInput.Value() + string(msg.Runes))
	case tea.KeySpace:
		m.searchInput.SetValue(m.searchInput.Value() + " ")
	default:
		m.searchInput, _ = m.searchInput.Update(msg)
	}
	// filter as you type
	m.svc.SetSearch(m.searchInput.Value())
	m.taskTable.SetCursor(0)
	return m
}

func (m Model) renderListView(st session.State) string {
	data := views.TaskListData{
		TableView: m.taskTable.View(),
		Search:    st.SearchKeyword,
		Searching: m.Searching,
		SearchBox: m.searchInput.View(),
		Count:     len(m.svc.VisibleTasks()),
		Error:     st.Error,
		Success:   st.Success,
	}
	if st.CurrentUser != nil {
		data.User = st.CurrentUser.Email
	}
	if m.PendingDelete != 0 {
		data.Confirm = fmt.Sprintf("Delete task #%d? [y/n]", m.PendingDelete)
	}
	return views.RenderTaskList(data)
}

func (m Model) renderTaskDetail() string {
	id := m.selectedTaskID()
	t, ok := m.svc.Task(id)
	if !ok {
		return views.RenderTaskDetail(views.TaskDetailData{})
	}
	return views.RenderTaskDetail(views.TaskDetailData{
		ID:        t.ID,
		Title:     t.Title,
		Completed: t.Completed,
		Due:       formatDue(t.CompletionTime),
		Created:   t.CreatedAt.Local().Format("2006-01-02 15:04"),
		Content:   t.Content,
	})
}
