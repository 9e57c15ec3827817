package views

import (
	"fmt"
	"strings"
)

type FieldData struct {
	Label   string
	View    string
	Focused bool
}

type FormData struct {
	Title   string
	Fields  []FieldData
	Error   string
	Success string
	Hints   []string
}

type TaskListData struct {
	User      string
	TableView string
	Search    string
	Searching bool
	SearchBox string
	Count     int
	Confirm   string
	Error     string
	Success   string
}

type TaskDetailData struct {
	ID        int64
	Title     string
	Completed bool
	Due       string
	Created   string
	Content   string
}

type ProfileData struct {
	Email   string
	Joined  string
	Editing bool
	Form    FormData
}

type HelpPanelData struct {
	Screen   string
	Bindings []string
	HelpView string
}

func RenderForm(data FormData) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(data.Title) + "\n\n")
	for _, f := range data.Fields {
		marker := " "
		if f.Focused {
			marker = ">"
		}
		b.WriteString(fmt.Sprintf("%s %s\n  %s\n", marker, f.Label, f.View))
	}
	b.WriteString(renderBanner(data.Error, data.Success))
	if len(data.Hints) > 0 {
		b.WriteString("\n" + mutedStyle.Render(strings.Join(data.Hints, "  ")))
	}
	return strings.TrimSpace(b.String())
}

func renderBanner(errText, success string) string {
	var b strings.Builder
	if errText != "" {
		b.WriteString("\n" + errorStyle.Render("! "+errText) + "\n")
	}
	if success != "" {
		b.WriteString("\n" + successStyle.Render(success) + "\n")
	}
	return b.String()
}

func RenderTaskList(data TaskListData) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("My Tasks"))
	if data.User != "" {
		b.WriteString(mutedStyle.Render("  " + data.User))
	}
	b.WriteString("\n")
	switch {
	case data.Searching:
		b.WriteString(data.SearchBox + "\n")
	case data.Search != "":
		b.WriteString(fmt.Sprintf("search: %q (%d match)\n", data.Search, data.Count))
	}
	if data.Count == 0 {
		if data.Search != "" {
			b.WriteString("\nno tasks match the search\n")
		} else {
			b.WriteString("\nno tasks yet, press n to add one\n")
		}
	} else {
		b.WriteString(data.TableView + "\n")
	}
	if data.Confirm != "" {
		b.WriteString("\n" + errorStyle.Render(data.Confirm) + "\n")
	}
	b.WriteString(renderBanner(data.Error, data.Success))
	return strings.TrimSpace(b.String())
}

func RenderTaskDetail(data TaskDetailData) string {
	if data.ID == 0 {
		return "details:\n(no selection)"
	}
	status := "open"
	if data.Completed {
		status = "done"
	}
	due := data.Due
	if due == "" {
		due = "-"
	}
	body := RenderMarkdown(data.Content)
	if body == "" {
		body = mutedStyle.Render("(no content)")
	}
	return fmt.Sprintf("details:\nid: %d\ntitle: %s\nstatus: %s\ndue: %s\ncreated: %s\n\n%s",
		data.ID, data.Title, status, due, data.Created, body)
}

func RenderProfile(data ProfileData) string {
	if data.Editing {
		return RenderForm(data.Form)
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Profile") + "\n\n")
	b.WriteString(fmt.Sprintf("email:  %s\njoined: %s\n", data.Email, data.Joined))
	b.WriteString(renderBanner(data.Form.Error, data.Form.Success))
	return strings.TrimSpace(b.String())
}

func RenderCommandPalette(active bool, input string) string {
	if !active {
		return ""
	}
	return fmt.Sprintf("command:\n%s\ncommands: add <title> [due:<when>] | search <text> | toggle <id> | delete <id> | profile | logout", input)
}

func RenderNotification(level string, body string) string {
	if body == "" {
		return ""
	}
	return fmt.Sprintf("[%s] %s", strings.ToUpper(level), body)
}

func RenderHelpPanel(data HelpPanelData) string {
	return fmt.Sprintf("help (%s):\n%s\n%s",
		data.Screen,
		strings.Join(data.Bindings, "\n"),
		data.HelpView,
	)
}
