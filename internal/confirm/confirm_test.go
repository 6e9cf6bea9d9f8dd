package confirm

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counter(n *int, err error) Action {
	return Action{Name: "delete", Prompt: "Delete?", Run: func(context.Context) error {
		*n++
		return err
	}}
}

func TestMachine_CancelRunsNothing(t *testing.T) {
	var m Machine
	calls := 0

	require.NoError(t, m.Request(counter(&calls, nil)))
	assert.Equal(t, Confirming, m.State())
	a, ok := m.Pending()
	require.True(t, ok)
	assert.Equal(t, "delete", a.Name)

	m.Cancel()
	assert.Equal(t, Idle, m.State())
	assert.Zero(t, calls)
	assert.ErrorIs(t, m.Confirm(context.Background()), ErrNothingToDo)
	assert.Zero(t, calls)
}

func TestMachine_ConfirmRunsOnce(t *testing.T) {
	var m Machine
	calls := 0

	require.NoError(t, m.Request(counter(&calls, nil)))
	assert.ErrorIs(t, m.Request(counter(&calls, nil)), ErrBusy)
	require.NoError(t, m.Confirm(context.Background()))
	assert.Equal(t, 1, calls)
	assert.Equal(t, Idle, m.State())
}

func TestMachine_ExecutingState(t *testing.T) {
	var m Machine
	var seen State
	require.NoError(t, m.Request(Action{Run: func(context.Context) error {
		seen = m.State()
		return nil
	}}))
	require.NoError(t, m.Confirm(context.Background()))
	assert.Equal(t, Executing, seen)
}

func TestMachine_FailureReturnsToIdle(t *testing.T) {
	var m Machine
	calls := 0
	boom := errors.New("boom")

	require.NoError(t, m.Request(counter(&calls, boom)))
	assert.ErrorIs(t, m.Confirm(context.Background()), boom)
	assert.Equal(t, Idle, m.State())
	assert.NoError(t, m.Request(counter(&calls, nil)))
}

func TestMachine_RejectsEmptyAction(t *testing.T) {
	var m Machine
	assert.ErrorIs(t, m.Request(Action{Name: "noop"}), ErrInvalidAction)
	assert.Equal(t, Idle, m.State())
}

func TestAsk(t *testing.T) {
	tests := []struct {
		name  string
		input string
		ran   bool
	}{
		{"yes", "y\n", true},
		{"long yes", " YES \n", true},
		{"no", "n\n", false},
		{"empty", "\n", false},
		{"eof", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Machine
			var out bytes.Buffer
			calls := 0

			ran, err := Ask(context.Background(), &m, NewLinePrompter(strings.NewReader(tt.input), &out), counter(&calls, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.ran, ran)
			assert.Equal(t, map[bool]int{true: 1, false: 0}[tt.ran], calls)
			assert.Equal(t, "Delete? [y/N]: ", out.String())
			assert.Equal(t, Idle, m.State())
		})
	}
}

func TestAlways(t *testing.T) {
	var m Machine
	calls := 0
	ran, err := Ask(context.Background(), &m, Always(false), counter(&calls, nil))
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Zero(t, calls)

	ran, err = Ask(context.Background(), &m, Always(true), counter(&calls, nil))
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 1, calls)
}
