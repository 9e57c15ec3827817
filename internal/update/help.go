package update

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/sandeepkv93/teemo/internal/navigation"
	"github.com/sandeepkv93/teemo/internal/views"
)

type KeyBinding struct {
	Key    string
	Action string
}

type helpKeyMap struct {
	short []key.Binding
	full  [][]key.Binding
}

func (k helpKeyMap) ShortHelp() []key.Binding  { return k.short }
func (k helpKeyMap) FullHelp() [][]key.Binding { return k.full }

func (m Model) renderHelpIfVisible() string {
	if !m.HelpVisible {
		return ""
	}
	return "\n\n" + m.renderHelpView()
}

func (m Model) renderHelpView() string {
	bindings := m.helpBindings()
	var plain []string
	for _, kb := range m.screenBindings() {
		plain = append(plain, fmt.Sprintf("- %s: %s", kb.Key, kb.Action))
	}
	return views.RenderHelpPanel(views.HelpPanelData{
		Screen:   string(m.svc.Screen()),
		Bindings: plain,
		HelpView: m.helpModel.View(helpKeyMap{
			short: bindings,
			full:  [][]key.Binding{bindings},
		}),
	})
}

func (m Model) screenBindings() []KeyBinding {
	switch m.svc.Screen() {
	case navigation.ScreenList:
		return []KeyBinding{
			{Key: "j/k", Action: "move selection"},
			{Key: "space", Action: "toggle completed"},
			{Key: "d", Action: "delete task (asks y/n)"},
			{Key: "n", Action: "new task"},
			{Key: "p", Action: "profile"},
			{Key: "s", Action: "search title and content"},
			{Key: "esc", Action: "clear search"},
			{Key: m.Keys.Palette, Action: "open command palette"},
			{Key: "L", Action: "logout"},
			{Key: m.Keys.Help, Action: "toggle help panel"},
			{Key: m.Keys.Quit, Action: "quit app"},
		}
	case navigation.ScreenProfile:
		return []KeyBinding{
			{Key: "e", Action: "edit email and password"},
			{Key: "esc", Action: "back to tasks / cancel edit"},
			{Key: "L", Action: "logout"},
			{Key: m.Keys.Help, Action: "toggle help panel"},
		}
	case navigation.ScreenLogin:
		return []KeyBinding{
			{Key: "tab", Action: "next field"},
			{Key: "enter", Action: "login"},
			{Key: "ctrl+r", Action: "create an account"},
			{Key: "ctrl+f", Action: "forgot password"},
		}
	case navigation.ScreenVerifyCode:
		return []KeyBinding{
			{Key: "enter", Action: "verify code"},
			{Key: "ctrl+r", Action: "resend code"},
			{Key: "esc", Action: "back"},
		}
	default:
		return []KeyBinding{
			{Key: "tab/shift+tab", Action: "move between fields"},
			{Key: "enter", Action: "submit"},
			{Key: "esc", Action: "back"},
		}
	}
}

func (m Model) helpBindings() []key.Binding {
	kbs := m.screenBindings()
	out := make([]key.Binding, 0, len(kbs))
	for _, kb := range kbs {
		out = append(out, key.NewBinding(key.WithKeys(kb.Key), key.WithHelp(kb.Key, kb.Action)))
	}
	return out
}
