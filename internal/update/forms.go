package update

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/teemo/internal/navigation"
	"github.com/sandeepkv93/teemo/internal/views"
)

type field struct {
	label string
	input textinput.Model
}

type form struct {
	title  string
	fields []field
	focus  int
}

func newInput(placeholder string, password bool) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = 256
	in.Width = 40
	if password {
		in.EchoMode = textinput.EchoPassword
		in.EchoCharacter = '•'
	}
	return in
}

func newForm(title string, fields ...field) *form {
	return &form{title: title, fields: fields}
}

func newForms() map[navigation.Screen]*form {
	return map[navigation.Screen]*form{
		navigation.ScreenLogin: newForm("Login",
			field{label: "Email", input: newInput("you@example.com", false)},
			field{label: "Password", input: newInput("", true)},
		),
		navigation.ScreenRegister: newForm("Register",
			field{label: "Email", input: newInput("you@example.com", false)},
			field{label: "Password", input: newInput("at least 8 characters", true)},
			field{label: "Confirm Password", input: newInput("", true)},
		),
		navigation.ScreenForgotPassword: newForm("Forgot Password",
			field{label: "Email", input: newInput("you@example.com", false)},
		),
		navigation.ScreenVerifyCode: newForm("Verify Code",
			field{label: "Code", input: newInput("4-digit code", false)},
		),
		navigation.ScreenResetPassword: newForm("Reset Password",
			field{label: "New Password", input: newInput("at least 8 characters", true)},
			field{label: "Confirm Password", input: newInput("", true)},
		),
		navigation.ScreenNew: newForm("New Task",
			field{label: "Title", input: newInput("up to 50 characters", false)},
			field{label: "Content", input: newInput("markdown, optional", false)},
			field{label: "Completion Time", input: newInput("YYYY-MM-DD [HH:MM], optional", false)},
		),
		navigation.ScreenProfile: newForm("Edit Profile",
			field{label: "Email", input: newInput("you@example.com", false)},
			field{label: "New Password", input: newInput("leave blank to keep", true)},
		),
	}
}

func (f *form) value(i int) string {
	if i < 0 || i >= len(f.fields) {
		return ""
	}
	return f.fields[i].input.Value()
}

func (f *form) setValue(i int, v string) {
	if i >= 0 && i < len(f.fields) {
		f.fields[i].input.SetValue(v)
	}
}

func (f *form) reset() {
	for i := range f.fields {
		f.fields[i].input.SetValue("")
	}
	f.setFocus(0)
}

func (f *form) setFocus(i int) {
	n := len(f.fields)
	if n == 0 {
		return
	}
	f.focus = ((i % n) + n) % n
	for j := range f.fields {
		if j == f.focus {
			f.fields[j].input.Focus()
		} else {
			f.fields[j].input.Blur()
		}
	}
}

func (f *form) next() { f.setFocus(f.focus + 1) }
func (f *form) prev() { f.setFocus(f.focus - 1) }

// handleKey feeds a key to the focused input. Runes are appended directly so
// typing works even before the cursor blink starts.
func (f *form) handleKey(msg tea.KeyMsg) tea.Cmd {
	if len(f.fields) == 0 {
		return nil
	}
	in := &f.fields[f.focus].input
	switch msg.Type {
	case tea.KeyRunes:
		in.SetValue(in.Value() + string(msg.Runes))
		return nil
	case tea.KeySpace:
		in.SetValue(in.Value() + " ")
		return nil
	}
	var cmd tea.Cmd
	*in, cmd = in.Update(msg)
	return cmd
}

func (f *form) data(errText, success string, hints ...string) views.FormData {
	fields := make([]views.FieldData, 0, len(f.fields))
	for i, fl := range f.fields {
		fields = append(fields, views.FieldData{Label: fl.label, View: fl.input.View(), Focused: i == f.focus})
	}
	return views.FormData{
		Title:   f.title,
		Fields:  fields,
		Error:   errText,
		Success: success,
		Hints:   hints,
	}
}
