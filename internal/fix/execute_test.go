// internal/fix/execute_test.go
package fix

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostdiag/preflight/internal/protocol"
)

// spyExecutor records whether a process would have been spawned.
func spyExecutor(t *testing.T) (*Executor, *[][]string) {
	t.Helper()
	var calls [][]string
	e := NewExecutor(t.TempDir(), time.Second)
	e.runCommand = func(ctx context.Context, dir string, argv []string) (string, string, error) {
		calls = append(calls, argv)
		return "done", "", nil
	}
	return e, &calls
}

func TestExecuteRejectsNonExecutable(t *testing.T) {
	e, calls := spyExecutor(t)

	result := e.Execute(context.Background(), protocol.FixSuggestion{
		ID:           "fix-port-3000",
		IsExecutable: false,
		Command:      "npm audit fix",
	})

	assert.False(t, result.Success)
	assert.Equal(t, "Diese Lösung kann nicht automatisch ausgeführt werden", result.Error)
	assert.Zero(t, result.Duration)
	assert.Empty(t, *calls, "no process may be spawned")
}

func TestExecuteRejectsEmptyCommand(t *testing.T) {
	e, calls := spyExecutor(t)

	result := e.Execute(context.Background(), protocol.FixSuggestion{
		ID:           "add-start-script",
		IsExecutable: true,
	})

	assert.False(t, result.Success)
	assert.Empty(t, *calls)
}

func TestExecuteAllowListSoundness(t *testing.T) {
	dangerous := []string{
		"rm -rf /",
		"npm update ; rm -rf /",
		"npm update lodash && rm -rf /",
		"npm update $(whoami)",
		"npm install lodash",      // missing pinned version
		"npm install lodash@next", // version must be numeric
		"npm cache clean",         // --force required
		"npm audit fix --force",   // only the plain form
		"sudo npm audit fix",
		"npm update lodash extra",
	}

	for _, command := range dangerous {
		t.Run(command, func(t *testing.T) {
			e, calls := spyExecutor(t)

			result := e.Execute(context.Background(), protocol.FixSuggestion{
				ID:           "test",
				IsExecutable: true,
				Command:      command,
			})

			assert.False(t, result.Success)
			assert.Equal(t,
				"Dieser Befehl ist aus Sicherheitsgründen nicht erlaubt. Nur sichere NPM-Befehle sind erlaubt.",
				result.Error)
			assert.Empty(t, *calls, "rejected command must not spawn a process")
		})
	}
}

func TestExecuteAllowListCompleteness(t *testing.T) {
	allowed := []string{
		"npm update lodash",
		"npm install express@4.19.2",
		"npm cache clean --force",
		"npm audit fix",
	}

	for _, command := range allowed {
		t.Run(command, func(t *testing.T) {
			e, calls := spyExecutor(t)

			result := e.Execute(context.Background(), protocol.FixSuggestion{
				ID:           "test",
				IsExecutable: true,
				Command:      command,
			})

			assert.True(t, result.Success)
			require.Len(t, *calls, 1)
			assert.Equal(t, "npm", (*calls)[0][0])
		})
	}
}

func TestExecuteReportsFailure(t *testing.T) {
	e := NewExecutor(t.TempDir(), time.Second)
	e.runCommand = func(ctx context.Context, dir string, argv []string) (string, string, error) {
		return "", "npm ERR! network unreachable", errors.New("exit status 1")
	}

	result := e.Execute(context.Background(), protocol.FixSuggestion{
		ID:           "test",
		IsExecutable: true,
		Command:      "npm audit fix",
	})

	assert.False(t, result.Success)
	assert.Equal(t, "npm ERR! network unreachable", result.Error)
}

func TestExecuteTimeout(t *testing.T) {
	e := NewExecutor(t.TempDir(), 20*time.Millisecond)
	e.runCommand = func(ctx context.Context, dir string, argv []string) (string, string, error) {
		<-ctx.Done()
		return "", "", ctx.Err()
	}

	result := e.Execute(context.Background(), protocol.FixSuggestion{
		ID:           "test",
		IsExecutable: true,
		Command:      "npm audit fix",
	})

	assert.False(t, result.Success)
	assert.Equal(t, "Zeitüberschreitung bei der Ausführung", result.Error)
}

func TestExecuteDefaultOutput(t *testing.T) {
	e := NewExecutor(t.TempDir(), time.Second)
	e.runCommand = func(ctx context.Context, dir string, argv []string) (string, string, error) {
		return "", "", nil
	}

	result := e.Execute(context.Background(), protocol.FixSuggestion{
		ID:           "test",
		IsExecutable: true,
		Command:      "npm cache clean --force",
	})

	assert.True(t, result.Success)
	assert.Equal(t, "Befehl erfolgreich ausgeführt", result.Output)
}
