// internal/diag/dependencies.go
package diag

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/hostdiag/preflight/internal/protocol"
)

type packageJSON struct {
	Scripts map[string]string `json:"scripts"`
	Engines map[string]string `json:"engines"`
}

type auditReport struct {
	Vulnerabilities map[string]struct {
		Severity string `json:"severity"`
		Title    string `json:"title"`
	} `json:"vulnerabilities"`
}

type outdatedEntry struct {
	Current string `json:"current"`
	Latest  string `json:"latest"`
}

// AnalyzeDependencies inspects package.json, lock files and the npm
// audit/outdated output. npm failures leave the corresponding list empty
// rather than failing the analysis; a broken npm is itself a finding the
// rest of the diagnosis should survive.
func (s *Service) AnalyzeDependencies(ctx context.Context) (*protocol.DependencyAnalysis, error) {
	analysis := &protocol.DependencyAnalysis{
		EngineCompatible: true,
		Vulnerabilities:  []protocol.Vulnerability{},
		OutdatedPackages: []protocol.OutdatedPackage{},
	}

	data, err := os.ReadFile(filepath.Join(s.BaseDir, "package.json"))
	if err != nil {
		return analysis, nil
	}

	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return analysis, nil
	}
	analysis.PackageJSONValid = true
	analysis.HasStartScript = pkg.Scripts["start"] != ""
	analysis.LockFileExists = s.lockFileExists()

	analysis.Vulnerabilities = s.auditVulnerabilities(ctx)
	analysis.OutdatedPackages = s.outdatedPackages(ctx)

	return analysis, nil
}

func (s *Service) lockFileExists() bool {
	for _, name := range []string{"package-lock.json", "yarn.lock"} {
		if _, err := os.Stat(filepath.Join(s.BaseDir, name)); err == nil {
			return true
		}
	}
	return false
}

func (s *Service) auditVulnerabilities(ctx context.Context) []protocol.Vulnerability {
	vulnerabilities := []protocol.Vulnerability{}

	// npm audit exits non-zero when it finds anything; the JSON on stdout
	// is still complete.
	out, _ := s.runCommand(ctx, s.BaseDir, "npm", "audit", "--json")
	var audit auditReport
	if err := json.Unmarshal(out, &audit); err != nil {
		return vulnerabilities
	}

	for _, name := range sortedKeys(audit.Vulnerabilities) {
		vuln := audit.Vulnerabilities[name]
		description := vuln.Title
		if description == "" {
			description = "Security vulnerability detected"
		}
		vulnerabilities = append(vulnerabilities, protocol.Vulnerability{
			Name:        name,
			Severity:    vuln.Severity,
			Description: description,
		})
	}
	return vulnerabilities
}

func (s *Service) outdatedPackages(ctx context.Context) []protocol.OutdatedPackage {
	outdated := []protocol.OutdatedPackage{}

	out, _ := s.runCommand(ctx, s.BaseDir, "npm", "outdated", "--json")
	if len(out) == 0 {
		return outdated
	}

	var entries map[string]outdatedEntry
	if err := json.Unmarshal(out, &entries); err != nil {
		return outdated
	}

	for _, name := range sortedKeys(entries) {
		entry := entries[name]
		outdated = append(outdated, protocol.OutdatedPackage{
			Name:    name,
			Current: entry.Current,
			Latest:  entry.Latest,
		})
	}
	return outdated
}

// sortedKeys keeps npm's map-shaped output in a stable order so repeated
// runs produce identical reports.
func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
