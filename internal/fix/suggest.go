// internal/fix/suggest.go
package fix

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/hostdiag/preflight/internal/protocol"
)

var severityRank = map[string]int{
	"critical": 4,
	"high":     3,
	"medium":   2,
	"low":      1,
}

// Engine derives remediation suggestions from a diagnostic report. It is
// stateless apart from the id hook and recomputes from scratch on every
// call, so suggestions always reflect the current report.
type Engine struct {
	// NewID suffixes suggestion ids that have no natural key;
	// overridable in tests.
	NewID func() string
}

// NewEngine returns an engine using random ids.
func NewEngine() *Engine {
	return &Engine{NewID: uuid.NewString}
}

// Generate applies all suggestion rules independently and returns the
// result sorted by severity, ties in rule order. Port conflicts and
// permission problems never yield an executable command.
func (e *Engine) Generate(report *protocol.Report) []protocol.FixSuggestion {
	suggestions := []protocol.FixSuggestion{}

	deps := report.DependencyAnalysis
	if deps != nil {
		for _, vuln := range deps.Vulnerabilities {
			packageName := strings.SplitN(vuln.Name, "@", 2)[0]
			suggestions = append(suggestions, protocol.FixSuggestion{
				ID:            "fix-vuln-" + vuln.Name,
				Category:      "security",
				Title:         fmt.Sprintf("Sicherheitslücke in %s beheben", vuln.Name),
				Description:   vuln.Description + ". Aktualisierung auf eine sichere Version wird empfohlen.",
				Severity:      vuln.Severity,
				Command:       "npm update " + packageName,
				IsExecutable:  true,
				EstimatedTime: "30 Sekunden",
				Impact:        "Behebt kritische Sicherheitslücke",
			})
		}

		for _, pkg := range deps.OutdatedPackages {
			suggestions = append(suggestions, protocol.FixSuggestion{
				ID:            "update-pkg-" + pkg.Name,
				Category:      "compatibility",
				Title:         pkg.Name + " aktualisieren",
				Description:   fmt.Sprintf("Veraltete Version %s auf %s aktualisieren.", pkg.Current, pkg.Latest),
				Severity:      "medium",
				Command:       fmt.Sprintf("npm install %s@%s", pkg.Name, pkg.Latest),
				IsExecutable:  true,
				EstimatedTime: "1 Minute",
				Impact:        "Verbessert Kompatibilität und Stabilität",
			})
		}
	}

	if report.NetworkTests != nil {
		for _, test := range report.NetworkTests.PortTests {
			if test.Available {
				continue
			}
			description := fmt.Sprintf("Port %d ist bereits belegt", test.Port)
			if test.PID != 0 {
				description += fmt.Sprintf(" von Prozess %d. Beenden Sie den Prozess manuell mit: kill %d", test.PID, test.PID)
			}
			// Never an executable kill command.
			suggestions = append(suggestions, protocol.FixSuggestion{
				ID:            fmt.Sprintf("fix-port-%d", test.Port),
				Category:      "configuration",
				Title:         fmt.Sprintf("Port %d Konflikt lösen", test.Port),
				Description:   description + ".",
				Severity:      "high",
				IsExecutable:  false,
				EstimatedTime: "10 Sekunden",
				Impact:        "Gibt Port für Ihre Anwendung frei",
			})
		}
	}

	if sys := report.SystemInfo; sys != nil {
		if sys.TotalMemory > 0 {
			freePercent := sys.FreeMemory / sys.TotalMemory * 100
			if freePercent < 20 {
				suggestions = append(suggestions, protocol.FixSuggestion{
					ID:            "optimize-memory",
					Category:      "performance",
					Title:         "Speicher optimieren",
					Description:   fmt.Sprintf("Nur %.1f%% RAM verfügbar. Speicher-intensive Prozesse sollten beendet werden.", freePercent),
					Severity:      "medium",
					IsExecutable:  false,
					EstimatedTime: "2 Minuten",
					Impact:        "Gibt Arbeitsspeicher frei und verbessert Performance",
				})
			}
		}

		if sys.DiskTotal > 0 {
			usedPercent := float64(sys.DiskUsed) / float64(sys.DiskTotal) * 100
			if usedPercent > 80 {
				suggestions = append(suggestions, protocol.FixSuggestion{
					ID:            "cleanup-disk",
					Category:      "performance",
					Title:         "NPM Cache bereinigen",
					Description:   fmt.Sprintf("Festplatte ist zu %.1f%% belegt. NPM Cache bereinigung wird empfohlen.", usedPercent),
					Severity:      "medium",
					Command:       "npm cache clean --force",
					IsExecutable:  true,
					EstimatedTime: "30 Sekunden",
					Impact:        "Gibt NPM Cache Speicher frei",
				})
			}
		}
	}

	if report.PermissionChecks != nil {
		for _, issue := range report.PermissionChecks.Issues {
			if issue.Type == "success" || !strings.Contains(issue.Solution, "chmod") {
				continue
			}
			// Never an executable chmod command.
			suggestions = append(suggestions, protocol.FixSuggestion{
				ID:            "fix-permission-" + e.NewID(),
				Category:      "configuration",
				Title:         "Dateiberechtigungen korrigieren",
				Description:   fmt.Sprintf("%s. Führen Sie manuell aus: %s", issue.Message, issue.Solution),
				Severity:      "high",
				IsExecutable:  false,
				EstimatedTime: "5 Sekunden",
				Impact:        "Stellt korrekte Dateiberechtigungen sicher",
			})
		}
	}

	if deps != nil && !deps.HasStartScript {
		suggestions = append(suggestions, protocol.FixSuggestion{
			ID:            "add-start-script",
			Category:      "configuration",
			Title:         "Start-Script hinzufügen",
			Description:   `package.json enthält kein "start" Script. Dies ist für das Hosting erforderlich.`,
			Severity:      "high",
			IsExecutable:  false,
			EstimatedTime: "2 Minuten",
			Impact:        "Ermöglicht automatisches Starten der Anwendung",
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return severityRank[suggestions[i].Severity] > severityRank[suggestions[j].Severity]
	})

	return suggestions
}
