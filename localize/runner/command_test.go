package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/faultloc/localize/domain"
)

func browserModel() *domain.TestModel {
	return &domain.TestModel{
		Name:     "browser",
		Strength: 2,
		Parameters: []domain.Parameter{
			{Name: "browser", Values: []string{"firefox", "chrome"}},
			{Name: "os-name", Values: []string{"linux", "mac"}},
		},
	}
}

func TestEnvName(t *testing.T) {
	tests := []struct {
		param string
		want  string
	}{
		{"browser", "FAULTLOC_BROWSER"},
		{"os-name", "FAULTLOC_OS_NAME"},
		{"Max Conns", "FAULTLOC_MAX_CONNS"},
		{"v2", "FAULTLOC_V2"},
	}
	for _, tt := range tests {
		t.Run(tt.param, func(t *testing.T) {
			assert.Equal(t, tt.want, EnvName(tt.param))
		})
	}
}

func TestCommandExecutor_Environment(t *testing.T) {
	e := NewCommandExecutor(browserModel(), ExecConfig{})

	env, err := e.Environment(combo(1, 0))
	require.NoError(t, err)
	assert.Equal(t, []string{"FAULTLOC_BROWSER=chrome", "FAULTLOC_OS_NAME=linux"}, env)

	_, err = e.Environment(combo(1, domain.Unset))
	assert.ErrorIs(t, err, domain.ErrInvalidCombination)
	_, err = e.Environment(combo(1, 5))
	assert.ErrorIs(t, err, domain.ErrInvalidCombination)
}

func TestCommandExecutor_Outcomes(t *testing.T) {
	tests := []struct {
		name      string
		command   string
		input     domain.Combination
		outcome   domain.TestOutcome
		cause     string
		violation bool
	}{
		{
			name:    "pass",
			command: `test "$FAULTLOC_BROWSER" = firefox`,
			input:   combo(0, 1),
			outcome: domain.OutcomeSuccess,
		},
		{
			name:    "generic failure",
			command: `test "$FAULTLOC_BROWSER" = firefox || exit 3`,
			input:   combo(1, 1),
			outcome: domain.OutcomeFailure,
			cause:   "exit-3",
		},
		{
			name:      "declared exception",
			command:   `[ "$FAULTLOC_OS_NAME" = mac ] && exit 42; exit 0`,
			input:     combo(0, 1),
			outcome:   domain.OutcomeExceptionalSuccess,
			cause:     "exit-42",
			violation: true,
		},
		{
			name:    "extra environment",
			command: `test "$EXTRA" = yes`,
			input:   combo(0, 0),
			outcome: domain.OutcomeSuccess,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewCommandExecutor(browserModel(), ExecConfig{
				Command:           tt.command,
				ExceptionExitCode: 42,
				Environment:       map[string]string{"EXTRA": "yes"},
				Timeout:           10 * time.Second,
			})
			result, err := e.Execute(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.outcome, result.Outcome)
			assert.Equal(t, tt.cause, result.CauseType())
			assert.Equal(t, tt.violation, result.IsExceptional())
		})
	}
}

func TestCommandExecutor_Timeout(t *testing.T) {
	e := NewCommandExecutor(browserModel(), ExecConfig{
		Command: "sleep 5",
		Timeout: 50 * time.Millisecond,
	})
	result, err := e.Execute(context.Background(), combo(0, 0))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFailure, result.Outcome)
	assert.Equal(t, "timeout", result.CauseType())
}

func TestCommandExecutor_Cancelled(t *testing.T) {
	e := NewCommandExecutor(browserModel(), ExecConfig{Command: "true"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Execute(ctx, combo(0, 0))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFakeExecutor(t *testing.T) {
	ctx := context.Background()
	e := NewFakeExecutor().
		WithFaults(combo(1, domain.Unset)).
		WithException(combo(domain.Unset, 1), "Overflow")

	r, err := e.Execute(ctx, combo(0, 0))
	require.NoError(t, err)
	assert.True(t, r.IsSuccess())

	r, err = e.Execute(ctx, combo(1, 0))
	require.NoError(t, err)
	assert.Equal(t, "assertion", r.CauseType())

	r, err = e.Execute(ctx, combo(1, 1))
	require.NoError(t, err)
	assert.True(t, r.IsExceptional())
	assert.Equal(t, "Overflow", r.CauseType())

	assert.Equal(t, 3, e.Executions())
	assert.Equal(t, 1, e.Count(combo(1, 1)))
	e.Reset()
	assert.Zero(t, e.Executions())

	flaky := NewFakeExecutor().WithFlakeRate(1).WithSeed(3)
	r, err = flaky.Execute(ctx, combo(0, 0))
	require.NoError(t, err)
	assert.Equal(t, "flake", r.CauseType())
}
