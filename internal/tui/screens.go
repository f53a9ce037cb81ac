package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/zarlcorp/core/pkg/zstyle"
	"github.com/zarlcorp/zkeep/internal/app"
	"github.com/zarlcorp/zkeep/internal/passgen"
	"github.com/zarlcorp/zkeep/internal/render"
)

const sliderWidth = 30

func (m Model) handleGeneratorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, zstyle.KeyQuit) {
		return m, tea.Quit
	}

	if key.Matches(msg, zstyle.KeyTab) {
		return m.dispatch(app.Action{Kind: app.Navigate, Screen: app.ScreenList})
	}

	if key.Matches(msg, zstyle.KeyEnter) {
		return m.dispatch(app.Action{Kind: app.Generate})
	}

	switch msg.String() {
	case "1":
		return m.dispatch(app.Action{Kind: app.ToggleUpper})
	case "2":
		return m.dispatch(app.Action{Kind: app.ToggleLower})
	case "3":
		return m.dispatch(app.Action{Kind: app.ToggleDigits})
	case "4":
		return m.dispatch(app.Action{Kind: app.ToggleSymbols})
	case "+", "=", "right":
		return m.dispatch(app.Action{Kind: app.IncLength})
	case "-", "left":
		return m.dispatch(app.Action{Kind: app.DecLength})
	case "g":
		return m.dispatch(app.Action{Kind: app.Generate})
	case "c":
		return m.dispatch(app.Action{Kind: app.CopyCurrent})
	case "s":
		return m.dispatch(app.Action{Kind: app.OpenSave})
	case "L":
		m.editingLength = true
		m.lengthInput.SetValue(strconv.Itoa(m.state.Options.Length))
		m.lengthInput.CursorEnd()
		return m, m.lengthInput.Focus()
	}

	return m, nil
}

func (m Model) handleLengthKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, zstyle.KeyBack) {
		m.editingLength = false
		m.lengthInput.Blur()
		return m, nil
	}

	if key.Matches(msg, zstyle.KeyEnter) {
		m.editingLength = false
		m.lengthInput.Blur()
		return m.dispatch(app.Action{Kind: app.SetLength, Text: m.lengthInput.Value()})
	}

	var cmd tea.Cmd
	m.lengthInput, cmd = m.lengthInput.Update(msg)
	return m, cmd
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, zstyle.KeyQuit) {
		return m, tea.Quit
	}

	if key.Matches(msg, zstyle.KeyTab) || key.Matches(msg, zstyle.KeyBack) {
		return m.dispatch(app.Action{Kind: app.Navigate, Screen: app.ScreenGenerator})
	}

	records := m.state.Vault.List()
	if len(records) == 0 {
		return m, nil
	}

	if key.Matches(msg, zstyle.KeyUp) {
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	}

	if key.Matches(msg, zstyle.KeyDown) {
		if m.cursor < len(records)-1 {
			m.cursor++
		}
		return m, nil
	}

	id := records[m.cursor].ID

	if key.Matches(msg, zstyle.KeyEnter) {
		return m.dispatch(app.Action{Kind: app.OpenView, ID: id})
	}

	switch msg.String() {
	case "e":
		return m.dispatch(app.Action{Kind: app.OpenEdit, ID: id})
	case "d":
		return m.dispatch(app.Action{Kind: app.OpenDelete, ID: id})
	}

	return m, nil
}

func (m Model) generatorView() string {
	o := m.state.Options

	s := "\n"
	if m.state.Current != "" {
		s += "  " + lipgloss.NewStyle().Foreground(accent).Bold(true).Render(m.state.Current) + "\n"
	} else {
		s += "  " + zstyle.MutedText.Render("press enter to generate") + "\n"
	}
	s += "\n"

	classes := []struct {
		key     string
		label   string
		sample  string
		enabled bool
	}{
		{"1", "uppercase", "A-Z", o.Upper},
		{"2", "lowercase", "a-z", o.Lower},
		{"3", "numbers", "0-9", o.Digits},
		{"4", "symbols", "!@#$%^&*", o.Symbols},
	}
	for _, c := range classes {
		box := "[ ]"
		if c.enabled {
			box = zstyle.StatusOK.Render("[x]")
		}
		s += fmt.Sprintf("  %s %s %-10s %s\n", box, zstyle.MutedText.Render(c.key), c.label, zstyle.MutedText.Render(c.sample))
	}

	s += "\n"
	if m.editingLength {
		s += "  length  " + m.lengthInput.View() + "\n"
	} else {
		s += "  length  " + slider(o.Length) + fmt.Sprintf(" %d", o.Length) + "\n"
	}

	return s
}

// slider draws the length as a filled bar between the min and max length.
func slider(length int) string {
	span := passgen.MaxLength - passgen.MinLength
	filled := (length - passgen.MinLength) * sliderWidth / span
	return "- " +
		lipgloss.NewStyle().Foreground(accent).Render(strings.Repeat("█", filled)) +
		zstyle.MutedText.Render(strings.Repeat("░", sliderWidth-filled)) +
		" +"
}

func (m Model) listView() string {
	records := m.state.Vault.List()

	s := "\n"
	if len(records) == 0 {
		s += "  " + zstyle.MutedText.Render(render.EmptyMessage) + "\n"
		return s
	}

	for i, r := range records {
		line := fmt.Sprintf("#%-3d %-28s %s", i+1, truncate(r.Login, 26), zstyle.MutedText.Render(truncate(r.URL, 40)))
		if i == m.cursor {
			s += zstyle.Highlight.Render("  > "+line) + "\n"
		} else {
			s += "    " + line + "\n"
		}
	}

	if m.state.Vault.Degraded() {
		s += "\n  " + zstyle.StatusWarn.Render(app.MsgStorageDegraded) + "\n"
	}
	return s
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
