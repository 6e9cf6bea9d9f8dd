// Package confirm gates disruptive actions behind an explicit confirmation
// step. A Machine moves Idle -> Confirming(action) -> Executing -> Idle; a
// cancelled confirmation returns to Idle without running anything.
package confirm

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

type State int

const (
	Idle State = iota
	Confirming
	Executing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Confirming:
		return "confirming"
	case Executing:
		return "executing"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var (
	ErrBusy          = errors.New("another action is already pending")
	ErrNothingToDo   = errors.New("no action awaiting confirmation")
	ErrInvalidAction = errors.New("action has no run function")
)

// Action is a mutation waiting for the user's go-ahead.
type Action struct {
	Name   string
	Prompt string
	Run    func(ctx context.Context) error
}

type Machine struct {
	mu      sync.Mutex
	state   State
	pending *Action
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Pending returns the action awaiting confirmation, if any.
func (m *Machine) Pending() (Action, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Confirming || m.pending == nil {
		return Action{}, false
	}
	return *m.pending, true
}

// Request parks a and moves to Confirming. Nothing runs yet.
func (m *Machine) Request(a Action) error {
	if a.Run == nil {
		return ErrInvalidAction
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Idle {
		return ErrBusy
	}
	m.state = Confirming
	m.pending = &a
	return nil
}

// Cancel drops the pending action.
func (m *Machine) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Confirming {
		m.state = Idle
		m.pending = nil
	}
}

// Confirm runs the pending action and returns to Idle whatever the outcome.
func (m *Machine) Confirm(ctx context.Context) error {
	m.mu.Lock()
	if m.state != Confirming || m.pending == nil {
		m.mu.Unlock()
		return ErrNothingToDo
	}
	a := m.pending
	m.state = Executing
	m.mu.Unlock()

	err := a.Run(ctx)

	m.mu.Lock()
	m.state = Idle
	m.pending = nil
	m.mu.Unlock()
	return err
}

// Prompter asks the user a yes/no question.
type Prompter interface {
	Ask(prompt string) (bool, error)
}

// Ask requests a, asks p and either confirms or cancels. It reports whether
// the action ran.
func Ask(ctx context.Context, m *Machine, p Prompter, a Action) (bool, error) {
	if err := m.Request(a); err != nil {
		return false, err
	}
	ok, err := p.Ask(a.Prompt)
	if err != nil || !ok {
		m.Cancel()
		return false, err
	}
	return true, m.Confirm(ctx)
}

// LinePrompter reads a y/N answer from in after writing the prompt to out.
// Anything but "y" or "yes" is a no.
type LinePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{in: bufio.NewReader(in), out: out}
}

func (p *LinePrompter) Ask(prompt string) (bool, error) {
	if _, err := fmt.Fprintf(p.out, "%s [y/N]: ", prompt); err != nil {
		return false, err
	}
	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// Always answers every prompt with the same value, for --yes flags and tests.
type Always bool

func (a Always) Ask(string) (bool, error) { return bool(a), nil }
