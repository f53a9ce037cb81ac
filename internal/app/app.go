// Package app holds the password manager's application state and the table
// of actions that change it.
//
// Dispatch is the only way state changes. Handlers validate input, write
// through to the vault, and describe side effects (clipboard, toasts, timers)
// as Effect values for the UI layer to carry out.
package app

import (
	"errors"
	"log/slog"

	"github.com/zarlcorp/zkeep/internal/gate"
	"github.com/zarlcorp/zkeep/internal/passgen"
	"github.com/zarlcorp/zkeep/internal/render"
	"github.com/zarlcorp/zkeep/internal/vault"
)

// user-facing messages
const (
	MsgGenerateFirst   = "Generate a password first!"
	MsgEnterLogin      = "Enter a login!"
	MsgEnterPassword   = "Enter a password!"
	MsgSaved           = "Password saved!"
	MsgUpdated         = "Password updated!"
	MsgDeleted         = "Password deleted!"
	MsgNoURL           = "URL not set!"
	MsgStorageDegraded = "Storage unavailable, changes kept until exit"
)

// Screen is a top-level view.
type Screen int

const (
	ScreenGenerator Screen = iota
	ScreenList
)

// Modal is the dialog currently open over a screen.
type Modal int

const (
	ModalNone Modal = iota
	ModalSave
	ModalView
	ModalEdit
	ModalDelete
)

// State is everything the UI renders from.
type State struct {
	Vault   *vault.Vault
	Options passgen.Options
	// Current is the generated password waiting to be saved.
	Current string
	Screen  Screen
	Modal   Modal
	// Target is the record id the open modal refers to.
	Target string
	Gate   gate.Gate
}

// New returns the initial state over v.
func New(v *vault.Vault) State {
	return State{
		Vault:   v,
		Options: passgen.DefaultOptions(),
	}
}

// Selected returns the record the open modal refers to.
func (s State) Selected() (vault.Record, bool) {
	if s.Target == "" {
		return vault.Record{}, false
	}
	r, err := s.Vault.Get(s.Target)
	if err != nil {
		return vault.Record{}, false
	}
	return r, true
}

// Dispatch applies a to s.
func Dispatch(s State, a Action) (State, []Effect) {
	h, ok := handlers[a.Kind]
	if !ok {
		slog.Debug("unhandled action", "kind", a.Kind)
		return s, nil
	}
	return h(s, a)
}

type handler func(State, Action) (State, []Effect)

var handlers = map[Kind]handler{
	ToggleUpper:   toggle(func(o *passgen.Options) { o.Upper = !o.Upper }),
	ToggleLower:   toggle(func(o *passgen.Options) { o.Lower = !o.Lower }),
	ToggleDigits:  toggle(func(o *passgen.Options) { o.Digits = !o.Digits }),
	ToggleSymbols: toggle(func(o *passgen.Options) { o.Symbols = !o.Symbols }),
	SetLength:     setLength,
	IncLength:     incLength,
	DecLength:     decLength,
	Generate:      generate,
	CopyCurrent:   copyCurrent,
	OpenSave:      openSave,
	Save:          save,
	OpenView:      openView,
	CopyViewed:    copyViewed,
	VisitURL:      visitURL,
	OpenEdit:      openEdit,
	Update:        update,
	OpenDelete:    openDelete,
	Tick:          tick,
	ConfirmDelete: confirmDelete,
	CancelDelete:  cancelDelete,
	CloseModal:    closeModal,
	Navigate:      navigate,
}

func toggle(flip func(*passgen.Options)) handler {
	return func(s State, _ Action) (State, []Effect) {
		flip(&s.Options)
		return s, nil
	}
}

func setLength(s State, a Action) (State, []Effect) {
	s.Options.Length = passgen.ParseLength(a.Text)
	return s, nil
}

func incLength(s State, _ Action) (State, []Effect) {
	s.Options = s.Options.Increment()
	return s, nil
}

func decLength(s State, _ Action) (State, []Effect) {
	s.Options = s.Options.Decrement()
	return s, nil
}

func generate(s State, _ Action) (State, []Effect) {
	pw, err := passgen.Generate(s.Options)
	if err != nil {
		return s, alert(err.Error())
	}
	s.Current = pw
	return s, nil
}

func copyCurrent(s State, _ Action) (State, []Effect) {
	if s.Current == "" {
		return s, nil
	}
	return s, []Effect{CopyEffect{Text: s.Current}}
}

func openSave(s State, _ Action) (State, []Effect) {
	if s.Current == "" {
		return s, alert(MsgGenerateFirst)
	}
	s = s.close()
	s.Modal = ModalSave
	return s, nil
}

func save(s State, a Action) (State, []Effect) {
	if s.Current == "" {
		return s, alert(MsgGenerateFirst)
	}

	rec := vault.Record{Login: a.Record.Login, Password: s.Current, URL: a.Record.URL}
	_, err := s.Vault.Add(rec)
	if fx, handled := mutationError(err); handled {
		return s, fx
	}

	s = s.close()
	s.Current = ""
	return s, toastAfter(err, MsgSaved)
}

func openView(s State, a Action) (State, []Effect) {
	if _, err := s.Vault.Get(a.ID); err != nil {
		return s, nil
	}
	s = s.close()
	s.Modal = ModalView
	s.Target = a.ID
	return s, nil
}

func copyViewed(s State, _ Action) (State, []Effect) {
	r, ok := s.Selected()
	if !ok {
		return s, nil
	}
	return s, []Effect{CopyEffect{Text: r.Password}}
}

// visitURL opens a.Text when set (the edit form's unsaved url), otherwise
// the selected record's url.
func visitURL(s State, a Action) (State, []Effect) {
	raw := a.Text
	if raw == "" {
		if r, ok := s.Selected(); ok {
			raw = r.URL
		}
	}

	url, err := render.ExternalURL(raw)
	if err != nil {
		return s, toast(MsgNoURL)
	}
	return s, []Effect{OpenURLEffect{URL: url}}
}

func openEdit(s State, a Action) (State, []Effect) {
	if _, err := s.Vault.Get(a.ID); err != nil {
		return s, nil
	}
	s = s.close()
	s.Modal = ModalEdit
	s.Target = a.ID
	return s, nil
}

func update(s State, a Action) (State, []Effect) {
	err := s.Vault.Update(s.Target, a.Record)
	if fx, handled := mutationError(err); handled {
		if errors.Is(err, vault.ErrNotFound) {
			s = s.close()
		}
		return s, fx
	}

	s = s.close()
	return s, toastAfter(err, MsgUpdated)
}

// openDelete starts the confirmation countdown. An empty a.ID deletes the
// record currently open in the edit dialog.
func openDelete(s State, a Action) (State, []Effect) {
	id := a.ID
	if id == "" {
		id = s.Target
	}
	if _, err := s.Vault.Get(id); err != nil {
		return s, nil
	}

	s = s.close()
	g, seq := s.Gate.Open(id)
	s.Gate = g
	s.Modal = ModalDelete
	s.Target = id
	return s, []Effect{TickEffect{Seq: seq}}
}

func tick(s State, a Action) (State, []Effect) {
	s.Gate = s.Gate.Tick(a.Seq)
	if s.Gate.Ticking() && a.Seq == s.Gate.Seq() {
		return s, []Effect{TickEffect{Seq: a.Seq}}
	}
	return s, nil
}

func confirmDelete(s State, _ Action) (State, []Effect) {
	g, target, err := s.Gate.Confirm()
	if err != nil {
		// confirm stays disabled until the countdown ends
		return s, nil
	}
	s.Gate = g.Reset()
	s.Modal = ModalNone
	s.Target = ""

	err = s.Vault.Remove(target)
	if errors.Is(err, vault.ErrNotFound) {
		return s, nil
	}
	return s, toastAfter(err, MsgDeleted)
}

func cancelDelete(s State, _ Action) (State, []Effect) {
	return s.close(), nil
}

func closeModal(s State, _ Action) (State, []Effect) {
	return s.close(), nil
}

func navigate(s State, a Action) (State, []Effect) {
	s = s.close()
	s.Screen = a.Screen
	return s, nil
}

// close dismisses the open modal, cancelling any delete countdown.
func (s State) close() State {
	if s.Modal == ModalDelete {
		s.Gate = s.Gate.Cancel()
	}
	s.Modal = ModalNone
	s.Target = ""
	return s
}

// mutationError maps vault errors that abort an action to effects. Storage
// failures are not aborting: the mutation is kept in memory.
func mutationError(err error) ([]Effect, bool) {
	switch {
	case err == nil:
		return nil, false
	case errors.Is(err, vault.ErrEmptyLogin):
		return alert(MsgEnterLogin), true
	case errors.Is(err, vault.ErrEmptyPassword):
		return alert(MsgEnterPassword), true
	case errors.Is(err, vault.ErrNotFound):
		return nil, true
	case errors.Is(err, vault.ErrStorageUnavailable):
		return nil, false
	}
	slog.Error("vault mutation", "err", err)
	return toast(err.Error()), true
}

// toastAfter reports a completed mutation, warning when it only reached memory.
func toastAfter(err error, ok string) []Effect {
	if errors.Is(err, vault.ErrStorageUnavailable) {
		return toast(MsgStorageDegraded)
	}
	return toast(ok)
}

func alert(msg string) []Effect {
	return []Effect{AlertEffect{Text: msg}}
}

func toast(msg string) []Effect {
	return []Effect{ToastEffect{Text: msg}}
}
