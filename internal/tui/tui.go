// Package tui implements the root Bubble Tea model for zkeep.
//
// The model owns an app.State and turns key presses into app actions. The
// effects those actions return (clipboard, toasts, countdown ticks) become
// tea commands here, so the rules themselves stay testable without a terminal.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/zarlcorp/core/pkg/zstyle"
	"github.com/zarlcorp/zkeep/internal/app"
	"github.com/zarlcorp/zkeep/internal/vault"
)

const msgCopied = "Copied to clipboard!"

// accent is the shared zarlcorp accent colour.
var accent = zstyle.ZburnAccent

var modalStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(accent).
	Padding(0, 1).
	MarginLeft(2)

var (
	saveFields = []formField{
		{label: "login"},
		{label: "url"},
	}
	editFields = []formField{
		{label: "login"},
		{label: "password", masked: true},
		{label: "url"},
	}
)

// edit form field indexes
const (
	editLogin = iota
	editPassword
	editURL
)

// tickMsg advances the delete countdown.
type tickMsg struct {
	seq int
}

// toastExpiredMsg hides the toast it was scheduled for.
type toastExpiredMsg struct {
	id int
}

// openResultMsg reports the outcome of opening a url.
type openResultMsg struct {
	err error
}

// Model is the root TUI model.
type Model struct {
	version string
	state   app.State

	cursor        int
	lengthInput   textinput.Model
	editingLength bool
	saveForm      formModel
	editForm      formModel

	toast   string
	toastID int
	alert   string

	width  int
	height int
}

// New creates the root TUI model over v.
func New(version string, v *vault.Vault) Model {
	li := textinput.New()
	li.CharLimit = 3
	li.Width = 4
	li.Prompt = ""

	m := Model{
		version:     version,
		state:       app.New(v),
		lengthInput: li,
	}

	if v.Degraded() {
		m.alert = app.MsgStorageDegraded
	} else if v.Corrupt() {
		m.alert = "Saved passwords were unreadable and have been set aside"
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		return m.dispatch(app.Action{Kind: app.Tick, Seq: msg.seq})

	case toastExpiredMsg:
		if msg.id == m.toastID {
			m.toast = ""
		}
		return m, nil

	case openResultMsg:
		if msg.err != nil {
			return m, m.showToast(msg.err.Error())
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateFocused(msg)
}

// updateFocused forwards non-key messages (cursor blink) to the focused input.
func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch {
	case m.editingLength:
		m.lengthInput, cmd = m.lengthInput.Update(msg)
	case m.state.Modal == app.ModalSave:
		m.saveForm, cmd = m.saveForm.Update(msg)
	case m.state.Modal == app.ModalEdit:
		m.editForm, cmd = m.editForm.Update(msg)
	}
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	// alerts block until dismissed
	if m.alert != "" {
		m.alert = ""
		return m, nil
	}

	if m.editingLength {
		return m.handleLengthKey(msg)
	}

	switch m.state.Modal {
	case app.ModalSave:
		return m.handleSaveKey(msg)
	case app.ModalView:
		return m.handleViewKey(msg)
	case app.ModalEdit:
		return m.handleEditKey(msg)
	case app.ModalDelete:
		return m.handleDeleteKey(msg)
	}

	if m.state.Screen == app.ScreenList {
		return m.handleListKey(msg)
	}
	return m.handleGeneratorKey(msg)
}

// dispatch runs an action and carries out its effects.
func (m Model) dispatch(a app.Action) (Model, tea.Cmd) {
	before := m.state.Modal

	var fx []app.Effect
	m.state, fx = app.Dispatch(m.state, a)

	if m.state.Modal != before {
		m = m.openModal()
	}
	m.clampCursor()

	cmd := m.apply(fx)
	return m, cmd
}

// openModal prepares input state for the modal that just opened.
func (m Model) openModal() Model {
	switch m.state.Modal {
	case app.ModalSave:
		m.saveForm = newFormModel(saveFields)
	case app.ModalEdit:
		r, _ := m.state.Selected()
		m.editForm = newFormModel(editFields, r.Login, r.Password, r.URL)
	}
	return m
}

func (m *Model) apply(fx []app.Effect) tea.Cmd {
	var cmds []tea.Cmd

	for _, e := range fx {
		switch e := e.(type) {
		case app.CopyEffect:
			if err := copyToClipboard(e.Text); err != nil {
				cmds = append(cmds, m.showToast("copy: "+err.Error()))
				continue
			}
			cmds = append(cmds, m.showToast(msgCopied))

		case app.OpenURLEffect:
			url := e.URL
			cmds = append(cmds, func() tea.Msg {
				return openResultMsg{err: openBrowser(url)}
			})

		case app.ToastEffect:
			cmds = append(cmds, m.showToast(e.Text))

		case app.AlertEffect:
			m.alert = e.Text

		case app.TickEffect:
			seq := e.Seq
			cmds = append(cmds, tea.Tick(app.TickInterval, func(time.Time) tea.Msg {
				return tickMsg{seq: seq}
			}))
		}
	}

	return tea.Batch(cmds...)
}

// showToast displays text and schedules its removal. A newer toast is not
// cleared by an older toast's timer.
func (m *Model) showToast(text string) tea.Cmd {
	m.toastID++
	m.toast = text
	id := m.toastID
	return tea.Tick(app.ToastDuration, func(time.Time) tea.Msg {
		return toastExpiredMsg{id: id}
	})
}

func (m *Model) clampCursor() {
	n := m.state.Vault.Len()
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) View() string {
	var content string
	switch m.state.Screen {
	case app.ScreenList:
		content = m.listView()
	default:
		content = m.generatorView()
	}

	if modal := m.modalView(); modal != "" {
		content += "\n" + modalStyle.Render(modal) + "\n"
	}

	if m.alert != "" {
		content += "\n" + modalStyle.BorderForeground(lipgloss.Color("9")).Render(
			zstyle.StatusErr.Render(m.alert)+"\n\n"+zstyle.MutedText.Render("press any key"),
		) + "\n"
	}

	// always reserve a line for the toast to prevent layout shift
	if m.toast != "" {
		content += "\n  " + zstyle.StatusOK.Render(m.toast) + "\n"
	} else {
		content += "\n\n"
	}

	header := zstyle.RenderHeader("zkeep", m.title(), accent)
	sep := zstyle.RenderSeparator(m.width)
	footer := zstyle.RenderFooter(m.help())

	return "\n" + header + "\n" + sep + "\n" + content + "\n" + footer + "\n"
}

func (m Model) title() string {
	switch m.state.Modal {
	case app.ModalSave:
		return "Save Password"
	case app.ModalView:
		return "Password"
	case app.ModalEdit:
		return "Edit Password"
	case app.ModalDelete:
		return "Delete Password"
	}
	if m.state.Screen == app.ScreenList {
		return "Saved Passwords"
	}
	return "Generator"
}

// help returns keybinding pairs for the active screen or modal.
func (m Model) help() []zstyle.HelpPair {
	if m.editingLength {
		return []zstyle.HelpPair{
			{Key: "enter", Desc: "apply"},
			{Key: "esc", Desc: "cancel"},
		}
	}

	switch m.state.Modal {
	case app.ModalSave:
		return []zstyle.HelpPair{
			{Key: "tab", Desc: "next"},
			{Key: "enter", Desc: "save"},
			{Key: "esc", Desc: "cancel"},
		}
	case app.ModalView:
		return []zstyle.HelpPair{
			{Key: "c", Desc: "copy pw"},
			{Key: "o", Desc: "open url"},
			{Key: "e", Desc: "edit"},
			{Key: "d", Desc: "delete"},
			{Key: "esc", Desc: "close"},
		}
	case app.ModalEdit:
		return []zstyle.HelpPair{
			{Key: "tab", Desc: "next"},
			{Key: "enter", Desc: "update"},
			{Key: "ctrl+r", Desc: "reveal"},
			{Key: "ctrl+o", Desc: "open url"},
			{Key: "ctrl+d", Desc: "delete"},
			{Key: "esc", Desc: "cancel"},
		}
	case app.ModalDelete:
		return []zstyle.HelpPair{
			{Key: "y", Desc: "confirm"},
			{Key: "n", Desc: "cancel"},
		}
	}

	if m.state.Screen == app.ScreenList {
		return []zstyle.HelpPair{
			{Key: "j/k", Desc: "navigate"},
			{Key: "enter", Desc: "view"},
			{Key: "e", Desc: "edit"},
			{Key: "d", Desc: "delete"},
			{Key: "tab", Desc: "generator"},
			{Key: "q", Desc: "quit"},
		}
	}
	return []zstyle.HelpPair{
		{Key: "1-4", Desc: "classes"},
		{Key: "-/+", Desc: "length"},
		{Key: "enter", Desc: "generate"},
		{Key: "c", Desc: "copy"},
		{Key: "s", Desc: "save"},
		{Key: "tab", Desc: "list"},
		{Key: "q", Desc: "quit"},
	}
}
