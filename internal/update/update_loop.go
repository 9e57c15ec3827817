package update

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/teemo/internal/navigation"
	"github.com/sandeepkv93/teemo/internal/session"
	"github.com/sandeepkv93/teemo/internal/views"
)

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if m.Scheduler != nil {
		cmds = append(cmds, waitForDueCmd(m.Scheduler.C()))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.update(msg)
	next.syncBubbleData()
	return next, cmd
}

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		if typed.String() == "ctrl+c" {
			m.Quitting = true
			return m, tea.Quit
		}
		if m.Palette.Active {
			return m.handlePaletteKey(typed), nil
		}
		switch m.svc.Screen() {
		case navigation.ScreenList:
			return m.handleListKey(typed)
		case navigation.ScreenProfile:
			return m.handleProfileKey(typed)
		default:
			return m.handleFormKey(typed)
		}
	case SetStatusMsg:
		m.Status = StatusBar{Text: typed.Text, IsError: typed.IsError}
		return m, nil
	case ClearStatusMsg:
		m.Status = StatusBar{}
		return m, nil
	case AppErrorMsg:
		m.fail(typed.Err)
		return m, nil
	case DueAlertMsg:
		m.handleDueAlert(typed.Event)
		if m.Scheduler != nil {
			return m, waitForDueCmd(m.Scheduler.C())
		}
		return m, nil
	}
	return m, nil
}

// fail surfaces an infrastructure or guard error without changing screen.
func (m *Model) fail(err error) {
	m.LastError = err
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		m.logger.Error("operation failed", "err", err, "screen", string(m.svc.Screen()))
	}
}

// navigate is a user-initiated screen change.
func (m *Model) navigate(to navigation.Screen) {
	if err := m.svc.Navigate(to); err != nil {
		m.fail(err)
		return
	}
	m.Status = StatusBar{}
	m.afterScreenChange()
}

// afterScreenChange focuses the form of the screen the session landed on.
func (m *Model) afterScreenChange() {
	m.HelpVisible = false
	m.Searching = false
	m.PendingDelete = 0
	m.ProfileEditing = false
	m.focusCurrentForm()
}

func (m *Model) focusCurrentForm() {
	screen := m.svc.Screen()
	f, ok := m.forms[screen]
	if !ok {
		return
	}
	switch screen {
	case navigation.ScreenProfile:
		if st := m.svc.State(); st.CurrentUser != nil {
			f.setValue(0, st.CurrentUser.Email)
			f.setValue(1, "")
		}
		f.setFocus(0)
	case navigation.ScreenVerifyCode, navigation.ScreenResetPassword, navigation.ScreenNew:
		f.reset()
	default:
		f.setFocus(f.focus)
	}
}

func (m *Model) resetAuthForms() {
	for screen, f := range m.forms {
		if screen != navigation.ScreenProfile {
			f.reset()
		}
	}
}

func (m Model) handleFormKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	screen := m.svc.Screen()
	f := m.forms[screen]
	if f == nil {
		return m, nil
	}
	switch msg.String() {
	case "tab", "down":
		f.next()
		return m, nil
	case "shift+tab", "up":
		f.prev()
		return m, nil
	case "enter":
		m.submit(screen, f)
		return m, nil
	case "esc":
		if back, ok := escTargets[screen]; ok {
			m.navigate(back)
		}
		return m, nil
	case "ctrl+r":
		switch screen {
		case navigation.ScreenLogin:
			m.navigate(navigation.ScreenRegister)
		case navigation.ScreenVerifyCode:
			m.resendCode()
		}
		return m, nil
	case "ctrl+f":
		if screen == navigation.ScreenLogin {
			m.navigate(navigation.ScreenForgotPassword)
		}
		return m, nil
	}
	return m, f.handleKey(msg)
}

var escTargets = map[navigation.Screen]navigation.Screen{
	navigation.ScreenRegister:       navigation.ScreenLogin,
	navigation.ScreenForgotPassword: navigation.ScreenLogin,
	navigation.ScreenVerifyCode:     navigation.ScreenForgotPassword,
	navigation.ScreenResetPassword:  navigation.ScreenLogin,
	navigation.ScreenNew:            navigation.ScreenList,
}

func (m *Model) submit(screen navigation.Screen, f *form) {
	var err error
	switch screen {
	case navigation.ScreenLogin:
		err = m.svc.Login(f.value(0), f.value(1))
	case navigation.ScreenRegister:
		err = m.svc.Register(m.ctx, f.value(0), f.value(1), f.value(2))
	case navigation.ScreenForgotPassword:
		err = m.svc.ForgotPassword(f.value(0))
	case navigation.ScreenVerifyCode:
		err = m.svc.VerifyCode(f.value(0))
	case navigation.ScreenResetPassword:
		err = m.svc.ResetPassword(m.ctx, f.value(0), f.value(1))
	case navigation.ScreenNew:
		err = m.svc.AddTask(m.ctx, f.value(0), f.value(1), f.value(2))
	case navigation.ScreenProfile:
		err = m.svc.UpdateProfile(m.ctx, f.value(0), f.value(1))
	}
	if err != nil {
		m.fail(err)
		return
	}
	m.Status = StatusBar{}
	next := m.svc.Screen()

	switch {
	case next == navigation.ScreenList && (screen == navigation.ScreenLogin || screen == navigation.ScreenRegister):
		m.resetAuthForms()
		m.scheduleUpcoming()
	case next == navigation.ScreenList && screen == navigation.ScreenNew:
		m.scheduleUpcoming()
	case next == navigation.ScreenVerifyCode:
		m.showRecoveryCode()
	case screen == navigation.ScreenProfile && m.svc.State().Success != "":
		m.ProfileEditing = false
		f.setValue(1, "")
		return
	}
	if next != screen {
		m.afterScreenChange()
	}
}

func (m *Model) resendCode() {
	if err := m.svc.ResendCode(); err != nil {
		m.fail(err)
		return
	}
	m.forms[navigation.ScreenVerifyCode].reset()
	m.showRecoveryCode()
}

// showRecoveryCode puts the code in the status bar when no desktop
// notification carries it.
func (m *Model) showRecoveryCode() {
	st := m.svc.State()
	if m.DesktopEnabled {
		m.Status = StatusBar{Text: fmt.Sprintf("recovery code sent to %s", st.RecoveryEmail)}
		return
	}
	m.Status = StatusBar{Text: fmt.Sprintf("recovery code for %s: %s", st.RecoveryEmail, st.RecoveryCode)}
}

func (m Model) handleProfileKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.ProfileEditing {
		f := m.forms[navigation.ScreenProfile]
		switch msg.String() {
		case "esc":
			m.ProfileEditing = false
			m.svc.ClearMessages()
			return m, nil
		case "tab", "down":
			f.next()
			return m, nil
		case "shift+tab", "up":
			f.prev()
			return m, nil
		case "enter":
			m.submit(navigation.ScreenProfile, f)
			return m, nil
		}
		return m, f.handleKey(msg)
	}
	switch msg.String() {
	case "e":
		m.ProfileEditing = true
		m.svc.ClearMessages()
		m.focusCurrentForm()
	case "esc", "b":
		m.navigate(navigation.ScreenList)
	case "L":
		m.logout()
	case m.Keys.Help:
		m.HelpVisible = !m.HelpVisible
	case m.Keys.Quit:
		m.Quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) logout() {
	if st := m.svc.State(); st.CurrentUser != nil && m.Scheduler != nil {
		m.Scheduler.CancelUser(st.CurrentUser.ID)
	}
	m.svc.Logout()
	m.resetAuthForms()
	m.Status = StatusBar{Text: "logged out"}
	m.afterScreenChange()
}

func (m Model) View() string {
	st := m.svc.State()
	status := ""
	if m.Status.Text != "" {
		if m.Status.IsError {
			status = fmt.Sprintf("status: error: %s", m.Status.Text)
		} else {
			status = fmt.Sprintf("status: %s", m.Status.Text)
		}
	}

	leftPane := ""
	rightPane := ""
	switch st.Screen {
	case navigation.ScreenList:
		leftPane = m.renderListView(st)
		rightPane = m.renderTaskDetail() + m.renderPalette() + m.renderHelpIfVisible()
	case navigation.ScreenProfile:
		leftPane = m.renderProfileView(st)
		rightPane = m.renderHelpIfVisible()
	default:
		if f := m.forms[st.Screen]; f != nil {
			leftPane = views.RenderForm(f.data(st.Error, st.Success, formHints[st.Screen]...))
		}
		rightPane = m.renderHelpIfVisible()
	}

	var header string
	if st.CurrentUser != nil {
		header = fmt.Sprintf("teemo | %s | %s", st.CurrentUser.Email, st.Screen)
	} else {
		header = fmt.Sprintf("teemo | %s", st.Screen)
	}

	return views.RenderApp(views.AppData{
		Header:       header,
		LeftPane:     leftPane,
		RightPane:    rightPane,
		StatusLine:   status,
		Notification: m.renderNotificationsView(),
		Footer:       m.footer(st.Screen),
	})
}

var formHints = map[navigation.Screen][]string{
	navigation.ScreenLogin:          {"[enter] login", "[ctrl+r] register", "[ctrl+f] forgot password"},
	navigation.ScreenRegister:       {"[enter] register", "[esc] back to login"},
	navigation.ScreenForgotPassword: {"[enter] send code", "[esc] back to login"},
	navigation.ScreenVerifyCode:     {"[enter] verify", "[ctrl+r] resend code", "[esc] back"},
	navigation.ScreenResetPassword:  {"[enter] reset password", "[esc] back to login"},
	navigation.ScreenNew:            {"[enter] save", "[esc] cancel"},
}

func (m Model) renderProfileView(st session.State) string {
	data := views.ProfileData{Editing: m.ProfileEditing}
	if st.CurrentUser != nil {
		data.Email = st.CurrentUser.Email
		data.Joined = st.CurrentUser.CreatedAt.Local().Format("2006-01-02")
	}
	data.Form = m.forms[navigation.ScreenProfile].data(st.Error, st.Success, "[enter] save", "[esc] cancel")
	return views.RenderProfile(data)
}

func (m Model) footer(screen navigation.Screen) string {
	switch screen {
	case navigation.ScreenList:
		return fmt.Sprintf("keys: space toggle | d delete | n new | p profile | s search | L logout | %s cmd | %s help | %s quit", m.Keys.Palette, m.Keys.Help, m.Keys.Quit)
	case navigation.ScreenProfile:
		if m.ProfileEditing {
			return "keys: tab next field | enter save | esc cancel"
		}
		return fmt.Sprintf("keys: e edit | esc back | L logout | %s help | %s quit", m.Keys.Help, m.Keys.Quit)
	default:
		return "keys: tab/shift+tab move | enter submit | ctrl+c quit"
	}
}

func (m Model) renderNotificationsView() string {
	if len(m.Notifications) == 0 {
		return ""
	}
	n := m.Notifications[len(m.Notifications)-1]
	return views.RenderNotification(string(n.Level), strings.TrimSpace(n.Title+": "+n.Body))
}
