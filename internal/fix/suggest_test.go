// internal/fix/suggest_test.go
package fix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostdiag/preflight/internal/protocol"
)

func testEngine() *Engine {
	n := 0
	return &Engine{NewID: func() string {
		n++
		return "id-" + string(rune('0'+n))
	}}
}

func TestGenerateVulnerabilitySuggestion(t *testing.T) {
	report := &protocol.Report{
		Status: protocol.StatusCompleted,
		DependencyAnalysis: &protocol.DependencyAnalysis{
			Vulnerabilities: []protocol.Vulnerability{
				{Name: "lodash", Severity: "high", Description: "Prototype Pollution in lodash"},
			},
			HasStartScript: true,
		},
	}

	suggestions := testEngine().Generate(report)
	require.Len(t, suggestions, 1)

	s := suggestions[0]
	assert.Equal(t, "fix-vuln-lodash", s.ID)
	assert.Equal(t, "security", s.Category)
	assert.Equal(t, "high", s.Severity)
	assert.Equal(t, "npm update lodash", s.Command)
	assert.True(t, s.IsExecutable)
	assert.Contains(t, s.Title, "lodash")
	assert.Contains(t, s.Description, "Prototype Pollution in lodash")
}

func TestGenerateVulnerabilityStripsVersionSuffix(t *testing.T) {
	report := &protocol.Report{
		DependencyAnalysis: &protocol.DependencyAnalysis{
			Vulnerabilities: []protocol.Vulnerability{
				{Name: "minimist@1.2.0", Severity: "critical", Description: "Prototype Pollution"},
			},
			HasStartScript: true,
		},
	}

	suggestions := testEngine().Generate(report)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "fix-vuln-minimist@1.2.0", suggestions[0].ID)
	assert.Equal(t, "npm update minimist", suggestions[0].Command)
}

func TestGeneratePortConflictSuggestion(t *testing.T) {
	report := &protocol.Report{
		NetworkTests: &protocol.NetworkTest{
			PortTests: []protocol.PortTest{
				{Port: 3000, Available: false, PID: 4321},
				{Port: 8080, Available: true},
			},
		},
	}

	suggestions := testEngine().Generate(report)
	require.Len(t, suggestions, 1)

	s := suggestions[0]
	assert.Equal(t, "fix-port-3000", s.ID)
	assert.Equal(t, "high", s.Severity)
	assert.Contains(t, s.Description, "4321")
	assert.False(t, s.IsExecutable, "port conflicts must stay manual")
	assert.Empty(t, s.Command, "no kill command may be attached")
}

func TestGenerateMemoryAndDiskSuggestions(t *testing.T) {
	report := &protocol.Report{
		SystemInfo: &protocol.SystemInfo{
			TotalMemory:   16,
			FreeMemory:    1.6, // 10% free
			DiskTotal:     100,
			DiskUsed:      90, // 90% used
			DiskAvailable: 10,
		},
	}

	suggestions := testEngine().Generate(report)
	require.Len(t, suggestions, 2)

	byID := map[string]protocol.FixSuggestion{}
	for _, s := range suggestions {
		byID[s.ID] = s
	}

	memory, ok := byID["optimize-memory"]
	require.True(t, ok)
	assert.False(t, memory.IsExecutable)
	assert.Empty(t, memory.Command)

	disk, ok := byID["cleanup-disk"]
	require.True(t, ok)
	assert.True(t, disk.IsExecutable)
	assert.Equal(t, "npm cache clean --force", disk.Command)
}

func TestGenerateNoSuggestionsOnHealthySystem(t *testing.T) {
	report := &protocol.Report{
		SystemInfo: &protocol.SystemInfo{
			TotalMemory:   16,
			FreeMemory:    8,
			DiskTotal:     100,
			DiskUsed:      40,
			DiskAvailable: 60,
		},
		NetworkTests: &protocol.NetworkTest{
			PortTests: []protocol.PortTest{{Port: 3000, Available: true}},
		},
		PermissionChecks: &protocol.PermissionCheck{
			Issues: []protocol.PermissionIssue{
				{Type: "success", Message: "Node.js Dateien lesbar"},
			},
		},
		DependencyAnalysis: &protocol.DependencyAnalysis{
			PackageJSONValid: true,
			HasStartScript:   true,
		},
	}

	assert.Empty(t, testEngine().Generate(report))
}

func TestGeneratePermissionSuggestionNeverExecutable(t *testing.T) {
	report := &protocol.Report{
		PermissionChecks: &protocol.PermissionCheck{
			Issues: []protocol.PermissionIssue{
				{Type: "warning", Message: "logs Verzeichnis nicht beschreibbar", Solution: "chmod 755 logs"},
				{Type: "warning", Message: "Hinweis ohne chmod", Solution: "manuell prüfen"},
			},
		},
	}

	suggestions := testEngine().Generate(report)
	require.Len(t, suggestions, 1, "only chmod-solvable issues become suggestions")

	s := suggestions[0]
	assert.Contains(t, s.ID, "fix-permission-")
	assert.False(t, s.IsExecutable, "chmod must never run automatically")
	assert.Empty(t, s.Command)
	assert.Contains(t, s.Description, "chmod 755 logs")
}

func TestGenerateStartScriptSuggestion(t *testing.T) {
	report := &protocol.Report{
		DependencyAnalysis: &protocol.DependencyAnalysis{
			PackageJSONValid: true,
			HasStartScript:   false,
		},
	}

	suggestions := testEngine().Generate(report)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "add-start-script", suggestions[0].ID)
	assert.Equal(t, "high", suggestions[0].Severity)
	assert.False(t, suggestions[0].IsExecutable)
}

func TestGenerateSortsBySeverity(t *testing.T) {
	report := &protocol.Report{
		DependencyAnalysis: &protocol.DependencyAnalysis{
			Vulnerabilities: []protocol.Vulnerability{
				{Name: "pkg-low", Severity: "low", Description: "minor"},
				{Name: "pkg-critical", Severity: "critical", Description: "severe"},
				{Name: "pkg-medium", Severity: "medium", Description: "moderate"},
				{Name: "pkg-high", Severity: "high", Description: "serious"},
			},
			HasStartScript: true,
		},
	}

	suggestions := testEngine().Generate(report)
	require.Len(t, suggestions, 4)

	got := make([]string, len(suggestions))
	for i, s := range suggestions {
		got[i] = s.Severity
	}
	assert.Equal(t, []string{"critical", "high", "medium", "low"}, got)
}

func TestGenerateStableOrderWithinSeverity(t *testing.T) {
	report := &protocol.Report{
		DependencyAnalysis: &protocol.DependencyAnalysis{
			Vulnerabilities: []protocol.Vulnerability{
				{Name: "first", Severity: "high", Description: "a"},
				{Name: "second", Severity: "high", Description: "b"},
			},
			HasStartScript: true,
		},
	}

	suggestions := testEngine().Generate(report)
	require.Len(t, suggestions, 2)
	assert.Equal(t, "fix-vuln-first", suggestions[0].ID)
	assert.Equal(t, "fix-vuln-second", suggestions[1].ID)
}

func TestGenerateIdempotent(t *testing.T) {
	engine := NewEngine()
	report := &protocol.Report{
		NetworkTests: &protocol.NetworkTest{
			PortTests: []protocol.PortTest{{Port: 5000, Available: false, PID: 99}},
		},
		DependencyAnalysis: &protocol.DependencyAnalysis{
			Vulnerabilities: []protocol.Vulnerability{
				{Name: "lodash", Severity: "high", Description: "Prototype Pollution"},
			},
			HasStartScript: true,
		},
	}

	first := engine.Generate(report)
	second := engine.Generate(report)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
}
