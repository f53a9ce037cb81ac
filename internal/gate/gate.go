// Package gate implements the countdown that must elapse before a delete
// can be confirmed.
//
// The gate does not own a timer. Callers schedule one tick per second while
// Ticking reports true and pass back the sequence number they were handed.
// Every Open or Cancel bumps the sequence, so ticks scheduled for an earlier
// dialog are dropped instead of mutating the new one.
package gate

import (
	"errors"
	"time"
)

// Countdown is the number of ticks before the gate arms.
const Countdown = 3

// Interval is the delay between ticks.
const Interval = time.Second

// ErrNotArmed is returned when confirming before the countdown has finished.
var ErrNotArmed = errors.New("delete is not armed yet")

// State is the gate phase.
type State int

const (
	Idle State = iota
	CountingDown
	Armed
	Confirmed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case CountingDown:
		return "counting down"
	case Armed:
		return "armed"
	case Confirmed:
		return "confirmed"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

// Gate guards a single delete target.
type Gate struct {
	state     State
	target    string
	remaining int
	seq       int
}

// Open starts a fresh countdown for target and returns the sequence number
// the first tick must carry.
func (g Gate) Open(target string) (Gate, int) {
	g.seq++
	g.state = CountingDown
	g.target = target
	g.remaining = Countdown
	return g, g.seq
}

// Tick advances the countdown by one second. Ticks carrying a stale sequence
// number, or arriving when the gate is not counting down, are ignored.
func (g Gate) Tick(seq int) Gate {
	if seq != g.seq || g.state != CountingDown {
		return g
	}

	g.remaining--
	if g.remaining <= 0 {
		g.remaining = 0
		g.state = Armed
	}
	return g
}

// Confirm returns the target when the gate is armed and moves to Confirmed.
func (g Gate) Confirm() (Gate, string, error) {
	if g.state != Armed {
		return g, "", ErrNotArmed
	}

	target := g.target
	g.state = Confirmed
	g.target = ""
	g.seq++
	return g, target, nil
}

// Cancel abandons the countdown. Any tick already scheduled becomes stale.
func (g Gate) Cancel() Gate {
	if g.state == Idle {
		return g
	}
	g.state = Cancelled
	g.target = ""
	g.remaining = 0
	g.seq++
	return g
}

// Reset returns the gate to Idle once its dialog is gone.
func (g Gate) Reset() Gate {
	g.state = Idle
	g.target = ""
	g.remaining = 0
	g.seq++
	return g
}

// State returns the current phase.
func (g Gate) State() State { return g.state }

// Target returns the id the gate is guarding, if any.
func (g Gate) Target() string { return g.target }

// Remaining returns the seconds left before the gate arms.
func (g Gate) Remaining() int { return g.remaining }

// Seq returns the sequence number the next tick must carry.
func (g Gate) Seq() int { return g.seq }

// Ticking reports whether another tick should be scheduled.
func (g Gate) Ticking() bool { return g.state == CountingDown }

// CanConfirm reports whether the confirm action is enabled.
func (g Gate) CanConfirm() bool { return g.state == Armed }
