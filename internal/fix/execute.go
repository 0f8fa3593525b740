// internal/fix/execute.go
package fix

import (
	"context"
	"errors"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/hostdiag/preflight/internal/protocol"
)

// allowedCommands is the complete set of commands the executor will run.
// This is the final security boundary: the IsExecutable flag on a
// suggestion is never trusted on its own.
var allowedCommands = []*regexp.Regexp{
	regexp.MustCompile(`^npm update [a-zA-Z0-9@_-]+$`),
	regexp.MustCompile(`^npm install [a-zA-Z0-9@._-]+@[0-9]+\.[0-9]+\.[0-9]+$`),
	regexp.MustCompile(`^npm cache clean --force$`),
	regexp.MustCompile(`^npm audit fix$`),
}

// Executor runs allow-listed fix commands with a bounded timeout.
type Executor struct {
	Dir     string
	Timeout time.Duration

	// runCommand is swapped out in tests to prove nothing gets spawned
	// for rejected input.
	runCommand func(ctx context.Context, dir string, argv []string) (stdout, stderr string, err error)
}

// NewExecutor creates an executor working in dir. A zero timeout defaults
// to 30 seconds.
func NewExecutor(dir string, timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Executor{
		Dir:        dir,
		Timeout:    timeout,
		runCommand: runProcess,
	}
}

// Execute validates and runs one suggestion. Security rejections are normal
// negative results, not errors; callers must check Success.
func (e *Executor) Execute(ctx context.Context, suggestion protocol.FixSuggestion) protocol.FixExecutionResult {
	if !suggestion.IsExecutable || suggestion.Command == "" {
		return protocol.FixExecutionResult{
			Success: false,
			Error:   "Diese Lösung kann nicht automatisch ausgeführt werden",
		}
	}

	if !commandAllowed(suggestion.Command) {
		return protocol.FixExecutionResult{
			Success: false,
			Error:   "Dieser Befehl ist aus Sicherheitsgründen nicht erlaubt. Nur sichere NPM-Befehle sind erlaubt.",
		}
	}

	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	// Allowed commands contain no shell metacharacters, so splitting on
	// spaces gives the exact argv; no shell is involved.
	argv := strings.Fields(suggestion.Command)

	start := time.Now()
	stdout, stderr, err := e.runCommand(ctx, e.Dir, argv)
	duration := time.Since(start).Milliseconds()

	if err != nil {
		message := err.Error()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			message = "Zeitüberschreitung bei der Ausführung"
		} else if stderr != "" {
			message = stderr
		}
		return protocol.FixExecutionResult{
			Success:  false,
			Output:   stdout,
			Error:    message,
			Duration: duration,
		}
	}

	if stdout == "" {
		stdout = "Befehl erfolgreich ausgeführt"
	}
	return protocol.FixExecutionResult{
		Success:  true,
		Output:   stdout,
		Error:    stderr,
		Duration: duration,
	}
}

func commandAllowed(command string) bool {
	for _, pattern := range allowedCommands {
		if pattern.MatchString(command) {
			return true
		}
	}
	return false
}

func runProcess(ctx context.Context, dir string, argv []string) (string, string, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return strings.TrimSpace(stdout.String()), strings.TrimSpace(stderr.String()), err
}
