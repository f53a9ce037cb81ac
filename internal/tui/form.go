package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/zarlcorp/core/pkg/zstyle"
)

// formField describes one input of a form.
type formField struct {
	label  string
	masked bool
}

// formModel is a vertical list of text inputs with tab focus cycling.
type formModel struct {
	fields []formField
	inputs []textinput.Model
	focus  int
}

func newFormModel(fields []formField, values ...string) formModel {
	inputs := make([]textinput.Model, len(fields))
	for i, f := range fields {
		ti := textinput.New()
		ti.CharLimit = 256
		ti.Width = 40
		ti.Prompt = ""
		if f.masked {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '*'
		}
		if i < len(values) {
			ti.SetValue(values[i])
		}
		inputs[i] = ti
	}

	m := formModel{fields: fields, inputs: inputs}
	if len(inputs) > 0 {
		m.inputs[0].Focus()
	}
	return m
}

// value returns the current text of field i.
func (m formModel) value(i int) string {
	return m.inputs[i].Value()
}

func (m formModel) next() formModel {
	return m.moveFocus(1)
}

func (m formModel) prev() formModel {
	return m.moveFocus(-1)
}

func (m formModel) moveFocus(delta int) formModel {
	n := len(m.inputs)
	if n == 0 {
		return m
	}
	m.inputs[m.focus].Blur()
	m.focus = (m.focus + delta + n) % n
	m.inputs[m.focus].Focus()
	return m
}

// toggleMask flips echo on masked fields.
func (m formModel) toggleMask() formModel {
	for i, f := range m.fields {
		if !f.masked {
			continue
		}
		if m.inputs[i].EchoMode == textinput.EchoPassword {
			m.inputs[i].EchoMode = textinput.EchoNormal
		} else {
			m.inputs[i].EchoMode = textinput.EchoPassword
		}
	}
	return m
}

func (m formModel) Update(msg tea.Msg) (formModel, tea.Cmd) {
	if len(m.inputs) == 0 {
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m formModel) View() string {
	var s string
	for i, f := range m.fields {
		label := zstyle.MutedText.Render(fmt.Sprintf("%-10s", f.label))
		cursor := "  "
		if i == m.focus {
			cursor = "> "
		}
		s += fmt.Sprintf("%s%s %s\n", cursor, label, m.inputs[i].View())
	}
	return s
}
