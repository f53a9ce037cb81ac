package app

import (
	"time"

	"github.com/zarlcorp/zkeep/internal/gate"
	"github.com/zarlcorp/zkeep/internal/vault"
)

// Kind identifies an action.
type Kind int

const (
	ToggleUpper Kind = iota
	ToggleLower
	ToggleDigits
	ToggleSymbols
	SetLength
	IncLength
	DecLength
	Generate
	CopyCurrent
	OpenSave
	Save
	OpenView
	CopyViewed
	VisitURL
	OpenEdit
	Update
	OpenDelete
	Tick
	ConfirmDelete
	CancelDelete
	CloseModal
	Navigate
)

// Action is a user intent or timer event. Only the fields relevant to Kind
// are read.
type Action struct {
	Kind   Kind
	ID     string
	Text   string
	Record vault.Record
	Seq    int
	Screen Screen
}

// Effect is a side effect requested by a handler.
type Effect interface {
	effect()
}

// CopyEffect places Text on the system clipboard.
type CopyEffect struct {
	Text string
}

// OpenURLEffect opens URL in a new browser context.
type OpenURLEffect struct {
	URL string
}

// ToastEffect shows a transient notice for ToastDuration.
type ToastEffect struct {
	Text string
}

// AlertEffect shows a blocking message that must be dismissed.
type AlertEffect struct {
	Text string
}

// TickEffect schedules a Tick action carrying Seq after gate.Interval.
type TickEffect struct {
	Seq int
}

// ToastDuration is how long a toast stays on screen.
const ToastDuration = 2 * time.Second

// TickInterval is the delete countdown step.
const TickInterval = gate.Interval

func (CopyEffect) effect()    {}
func (OpenURLEffect) effect() {}
func (ToastEffect) effect()   {}
func (AlertEffect) effect()   {}
func (TickEffect) effect()    {}
