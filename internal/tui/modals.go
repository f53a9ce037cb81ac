package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/zarlcorp/core/pkg/zstyle"
	"github.com/zarlcorp/zkeep/internal/app"
	"github.com/zarlcorp/zkeep/internal/gate"
	"github.com/zarlcorp/zkeep/internal/render"
	"github.com/zarlcorp/zkeep/internal/vault"
)

func (m Model) handleSaveKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, zstyle.KeyBack) {
		return m.dispatch(app.Action{Kind: app.CloseModal})
	}

	if key.Matches(msg, zstyle.KeyEnter) {
		return m.dispatch(app.Action{Kind: app.Save, Record: vault.Record{
			Login: m.saveForm.value(0),
			URL:   m.saveForm.value(1),
		}})
	}

	switch msg.String() {
	case "tab", "down":
		m.saveForm = m.saveForm.next()
		return m, nil
	case "shift+tab", "up":
		m.saveForm = m.saveForm.prev()
		return m, nil
	}

	var cmd tea.Cmd
	m.saveForm, cmd = m.saveForm.Update(msg)
	return m, cmd
}

func (m Model) handleViewKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, zstyle.KeyBack) || key.Matches(msg, zstyle.KeyEnter) {
		return m.dispatch(app.Action{Kind: app.CloseModal})
	}

	switch msg.String() {
	case "c":
		return m.dispatch(app.Action{Kind: app.CopyViewed})
	case "o":
		return m.dispatch(app.Action{Kind: app.VisitURL})
	case "e":
		return m.dispatch(app.Action{Kind: app.OpenEdit, ID: m.state.Target})
	case "d":
		return m.dispatch(app.Action{Kind: app.OpenDelete, ID: m.state.Target})
	case "q":
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, zstyle.KeyBack) {
		return m.dispatch(app.Action{Kind: app.CloseModal})
	}

	if key.Matches(msg, zstyle.KeyEnter) {
		return m.dispatch(app.Action{Kind: app.Update, Record: vault.Record{
			Login:    m.editForm.value(editLogin),
			Password: m.editForm.value(editPassword),
			URL:      m.editForm.value(editURL),
		}})
	}

	switch msg.String() {
	case "tab", "down":
		m.editForm = m.editForm.next()
		return m, nil
	case "shift+tab", "up":
		m.editForm = m.editForm.prev()
		return m, nil
	case "ctrl+r":
		m.editForm = m.editForm.toggleMask()
		return m, nil
	case "ctrl+o":
		return m.dispatch(app.Action{Kind: app.VisitURL, Text: strings.TrimSpace(m.editForm.value(editURL))})
	case "ctrl+d":
		// empty id: delete the record being edited
		return m.dispatch(app.Action{Kind: app.OpenDelete})
	}

	var cmd tea.Cmd
	m.editForm, cmd = m.editForm.Update(msg)
	return m, cmd
}

func (m Model) handleDeleteKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, zstyle.KeyBack) {
		return m.dispatch(app.Action{Kind: app.CloseModal})
	}

	switch msg.String() {
	case "y", "enter":
		return m.dispatch(app.Action{Kind: app.ConfirmDelete})
	case "n":
		return m.dispatch(app.Action{Kind: app.CancelDelete})
	}

	return m, nil
}

func (m Model) modalView() string {
	switch m.state.Modal {
	case app.ModalSave:
		return zstyle.Subtitle.Render("save password") + "\n\n" + m.saveForm.View()
	case app.ModalView:
		return m.viewModalView()
	case app.ModalEdit:
		return zstyle.Subtitle.Render("edit password") + "\n\n" + m.editForm.View()
	case app.ModalDelete:
		return m.deleteModalView()
	}
	return ""
}

func (m Model) viewModalView() string {
	r, ok := m.state.Selected()
	if !ok {
		return ""
	}

	url := r.URL
	if url == "" {
		url = zstyle.MutedText.Render(render.NoURL)
	}

	s := zstyle.Subtitle.Render(r.Login) + "\n\n"
	s += fieldLine("login", r.Login)
	s += fieldLine("password", r.Password)
	s += fieldLine("url", url)
	return s
}

func (m Model) deleteModalView() string {
	r, _ := m.state.Selected()
	g := m.state.Gate

	s := zstyle.StatusWarn.Render(fmt.Sprintf("delete %q?", r.Login)) + "\n"
	s += zstyle.MutedText.Render("this cannot be undone.") + "\n\n"

	if g.State() == gate.Armed {
		s += zstyle.StatusErr.Render("[ y ] delete") + "   [ n ] cancel"
	} else {
		s += zstyle.MutedText.Render(fmt.Sprintf("[ y ] delete (%d)", g.Remaining())) + "   [ n ] cancel"
	}
	return s
}

func fieldLine(label, value string) string {
	l := zstyle.MutedText.Render(fmt.Sprintf("%-10s", label))
	return fmt.Sprintf("%s %s\n", l, value)
}
