package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
	"unicode"

	"github.com/example/faultloc/localize/domain"
)

// EnvPrefix prefixes the environment variables carrying parameter values.
const EnvPrefix = "FAULTLOC_"

// CommandExecutor implements Executor by running a shell command with the
// input's parameter values in its environment.
type CommandExecutor struct {
	// Shell is the shell to use for executing commands.
	// Defaults to "/bin/sh".
	Shell string

	// ShellArg is the argument to pass to the shell before the command.
	// Defaults to "-c".
	ShellArg string

	model  *domain.TestModel
	config ExecConfig
}

// NewCommandExecutor creates a CommandExecutor for the model.
func NewCommandExecutor(model *domain.TestModel, config ExecConfig) *CommandExecutor {
	return &CommandExecutor{
		Shell:    "/bin/sh",
		ShellArg: "-c",
		model:    model,
		config:   config,
	}
}

// EnvName returns the environment variable name for a parameter, e.g.
// "FAULTLOC_BROWSER" for "browser" and "FAULTLOC_OS_NAME" for "os-name".
func EnvName(param string) string {
	var b strings.Builder
	b.WriteString(EnvPrefix)
	for _, r := range param {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// Environment returns the parameter assignments of a full input as
// NAME=value pairs.
func (e *CommandExecutor) Environment(input domain.Combination) ([]string, error) {
	if len(input) != e.model.NumParameters() || !input.IsFull() {
		return nil, fmt.Errorf("%w: %s is not a full input", domain.ErrInvalidCombination, input)
	}
	env := make([]string, len(input))
	for p, v := range input {
		param := e.model.Parameters[p]
		if v >= param.Size() {
			return nil, fmt.Errorf("%w: value %d out of range for %s",
				domain.ErrInvalidCombination, v, param.Name)
		}
		env[p] = fmt.Sprintf("%s=%s", EnvName(param.Name), param.Values[v])
	}
	return env, nil
}

// Execute implements Executor.
func (e *CommandExecutor) Execute(ctx context.Context, input domain.Combination) (*domain.TestResult, error) {
	env, err := e.Environment(input)
	if err != nil {
		return nil, err
	}

	// Set up context with timeout
	runCtx := ctx
	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	shell := e.Shell
	if shell == "" {
		shell = "/bin/sh"
	}
	shellArg := e.ShellArg
	if shellArg == "" {
		shellArg = "-c"
	}

	cmd := exec.CommandContext(runCtx, shell, shellArg, e.config.Command)
	cmd.Dir = e.config.WorkDir
	// Children of the shell may hold the output pipe after it is killed.
	cmd.WaitDelay = time.Second
	cmd.Env = os.Environ()
	for k, v := range e.config.Environment {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	cmd.Env = append(cmd.Env, env...)

	start := time.Now()
	output, runErr := cmd.CombinedOutput()
	result := &domain.TestResult{
		Duration:   time.Since(start),
		Logs:       string(output),
		ExecutedAt: time.Now().UTC(),
	}

	// The caller giving up is not a test outcome.
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var exitErr *exec.ExitError
	switch {
	case runCtx.Err() != nil:
		result.Outcome = domain.OutcomeFailure
		result.Cause = &domain.Cause{
			Type:    "timeout",
			Message: fmt.Sprintf("command exceeded %s", e.config.Timeout),
		}
	case runErr == nil:
		result.Outcome = domain.OutcomeSuccess
	case errors.As(runErr, &exitErr):
		code := exitErr.ExitCode()
		violation := e.config.ExceptionExitCode != 0 && code == e.config.ExceptionExitCode
		result.Outcome = domain.OutcomeFailure
		if violation {
			result.Outcome = domain.OutcomeExceptionalSuccess
		}
		result.Cause = &domain.Cause{
			Type:                fmt.Sprintf("exit-%d", code),
			Message:             exitErr.Error(),
			ConstraintViolation: violation,
		}
	default:
		return nil, fmt.Errorf("failed to run command: %w", runErr)
	}
	return result, nil
}
