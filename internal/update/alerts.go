package update

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/teemo/internal/notify"
	"github.com/sandeepkv93/teemo/internal/scheduler"
)

const maxDueLog = 20

func waitForDueCmd(ch <-chan scheduler.DueEvent) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return DueAlertMsg{Event: ev}
	}
}

// scheduleUpcoming queues a due alert for each open task of the signed-in
// user whose completion time is still ahead.
func (m *Model) scheduleUpcoming() {
	if m.Scheduler == nil || !m.DueAlerts {
		return
	}
	st := m.svc.State()
	if st.CurrentUser == nil {
		return
	}
	for _, t := range m.svc.UpcomingTasks(m.now()) {
		ev := scheduler.DueEvent{
			ID:     scheduler.DueEventID(t.ID),
			TaskID: t.ID,
			UserID: t.UserID,
			Title:  t.Title,
			DueAt:  *t.CompletionTime,
		}
		if err := m.Scheduler.Schedule(ev); err != nil {
			m.logger.Warn("due alert not scheduled", "task_id", t.ID, "err", err)
		}
	}
}

// refreshDue keeps the alert for taskID in step with the task: open tasks
// are queued again, completed or deleted ones lose their alert.
func (m *Model) refreshDue(taskID int64) {
	if m.Scheduler == nil {
		return
	}
	if t, ok := m.svc.Task(taskID); ok && !t.Completed {
		m.scheduleUpcoming()
		return
	}
	m.Scheduler.Cancel(scheduler.DueEventID(taskID))
}

// handleDueAlert drops alerts for another user or for tasks completed or
// deleted since they were queued.
func (m *Model) handleDueAlert(ev scheduler.DueEvent) {
	st := m.svc.State()
	if st.CurrentUser == nil || st.CurrentUser.ID != ev.UserID {
		return
	}
	t, ok := m.svc.Task(ev.TaskID)
	if !ok || t.Completed {
		return
	}
	m.DueLog = append(m.DueLog, ev)
	if len(m.DueLog) > maxDueLog {
		m.DueLog = m.DueLog[len(m.DueLog)-maxDueLog:]
	}
	n := notify.Notification{
		Title: "Task due",
		Body:  fmt.Sprintf("#%d %s", t.ID, t.Title),
		Level: notify.LevelAlert,
	}
	m.Notifications = append(m.Notifications, n)
	if len(m.Notifications) > maxDueLog {
		m.Notifications = m.Notifications[len(m.Notifications)-maxDueLog:]
	}
	m.Status = StatusBar{Text: fmt.Sprintf("task due: %s", t.Title)}
	if err := m.notifier.Send(n); err != nil {
		m.logger.Warn("due notification failed", "err", err)
	}
}
