// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/backoffice-tui/internal/ui/styles"
)

// =============================================================================
// FORM
// =============================================================================

// Field describes one form input.
type Field struct {
	Label       string
	Placeholder string
	Secret      bool
	CharLimit   int
}

// FormSubmitMsg is sent when enter is pressed on the last field.
type FormSubmitMsg struct {
	FormID string
	Values []string
}

// FormCancelMsg is sent when esc is pressed.
type FormCancelMsg struct {
	FormID string
}

// Form is a vertical list of labelled text inputs.
type Form struct {
	id     string
	title  string
	theme  *styles.Theme
	fields []Field
	inputs []textinput.Model
	focus  int
	err    string
	hint   string
	busy   bool
}

// NewForm creates a form with the first field focused.
func NewForm(theme *styles.Theme, id, title string, fields []Field) Form {
	f := Form{id: id, title: title, theme: theme, fields: fields}
	for _, fd := range fields {
		ti := textinput.New()
		ti.Placeholder = fd.Placeholder
		ti.Prompt = ""
		ti.CharLimit = fd.CharLimit
		if ti.CharLimit == 0 {
			ti.CharLimit = 256
		}
		if fd.Secret {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '*'
		}
		f.inputs = append(f.inputs, ti)
	}
	f.setFocus(0)
	return f
}

// ID returns the form identifier passed to NewForm.
func (f Form) ID() string { return f.id }

func (f *Form) setFocus(i int) {
	if len(f.inputs) == 0 {
		return
	}
	if i < 0 {
		i = len(f.inputs) - 1
	}
	if i >= len(f.inputs) {
		i = 0
	}
	for j := range f.inputs {
		if j == i {
			f.inputs[j].Focus()
		} else {
			f.inputs[j].Blur()
		}
	}
	f.focus = i
}

// Focused returns the index of the focused field.
func (f Form) Focused() int { return f.focus }

// Values returns the current input values.
func (f Form) Values() []string {
	out := make([]string, len(f.inputs))
	for i, in := range f.inputs {
		out[i] = in.Value()
	}
	return out
}

// SetValue sets field i.
func (f *Form) SetValue(i int, v string) {
	if i >= 0 && i < len(f.inputs) {
		f.inputs[i].SetValue(v)
	}
}

// SetError shows an error line; "" clears it.
func (f *Form) SetError(msg string) { f.err = msg }

// Error returns the error line.
func (f Form) Error() string { return f.err }

// SetHint shows a hint line under the fields.
func (f *Form) SetHint(msg string) { f.hint = msg }

// SetBusy disables submission while a request is in flight.
func (f *Form) SetBusy(busy bool) { f.busy = busy }

// Busy reports whether a submission is in flight.
func (f Form) Busy() bool { return f.busy }

// ClearSecrets empties every secret field.
func (f *Form) ClearSecrets() {
	for i, fd := range f.fields {
		if fd.Secret {
			f.inputs[i].SetValue("")
		}
	}
}

// Reset empties every field and focuses the first one.
func (f *Form) Reset() {
	for i := range f.inputs {
		f.inputs[i].SetValue("")
	}
	f.err = ""
	f.busy = false
	f.setFocus(0)
}

// Update handles navigation keys and forwards the rest to the focused input.
func (f Form) Update(msg tea.Msg) (Form, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "tab", "down":
			f.setFocus(f.focus + 1)
			return f, nil
		case "shift+tab", "up":
			f.setFocus(f.focus - 1)
			return f, nil
		case "esc":
			id := f.id
			return f, func() tea.Msg { return FormCancelMsg{FormID: id} }
		case "enter":
			if f.focus < len(f.inputs)-1 {
				f.setFocus(f.focus + 1)
				return f, nil
			}
			if f.busy {
				return f, nil
			}
			id, values := f.id, f.Values()
			return f, func() tea.Msg { return FormSubmitMsg{FormID: id, Values: values} }
		}
	}

	if len(f.inputs) == 0 {
		return f, nil
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return f, cmd
}

// View renders the form.
func (f Form) View() string {
	t := f.theme
	lines := []string{t.Title.Render(f.title)}
	for i, fd := range f.fields {
		label := t.FormLabel.Render(fd.Label)
		if i == f.focus {
			label = t.FormFocused.Render(fd.Label)
		}
		lines = append(lines, label+" "+f.inputs[i].View())
	}
	if f.err != "" {
		lines = append(lines, "", t.FormError.Render(styles.StatusIndicators.Error+" "+f.err))
	}
	if f.busy {
		lines = append(lines, "", t.FormHint.Render("working..."))
	} else if f.hint != "" {
		lines = append(lines, "", t.FormHint.Render(f.hint))
	}
	return t.FormBox.Render(strings.Join(lines, "\n"))
}
