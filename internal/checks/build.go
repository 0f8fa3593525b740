// internal/checks/build.go
package checks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// BuildProvider checks the compiled artifacts and package.json wiring of
// the application under diagnosis.
type BuildProvider struct {
	Dir string
}

// NewBuildProvider builds a provider for the given application directory.
func NewBuildProvider(dir string) *BuildProvider {
	return &BuildProvider{Dir: dir}
}

func (p *BuildProvider) Category() string { return "build" }

// RunChecks runs every build probe; none short-circuits.
func (p *BuildProvider) RunChecks(ctx context.Context) []CheckResult {
	return []CheckResult{
		p.checkDistExists(),
		p.checkServerBundle(),
		p.checkClientBundle(),
		p.checkPackageJSON(),
		p.checkBuildScripts(),
	}
}

func (p *BuildProvider) checkDistExists() CheckResult {
	distPath := filepath.Join(p.Dir, "dist")
	if _, err := os.Stat(distPath); err != nil {
		return newResult("build", CheckResult{
			Title:       "Build-Verzeichnis",
			Status:      StatusFail,
			Severity:    SeverityCritical,
			Message:     "dist/ Verzeichnis nicht gefunden - Projekt muss gebaut werden",
			Remediation: `Führen Sie "npm run build" aus`,
			Command:     "npm run build",
		})
	}

	return newResult("build", CheckResult{
		Title:    "Build-Verzeichnis",
		Status:   StatusPass,
		Severity: SeverityInfo,
		Message:  "dist/ Verzeichnis gefunden",
		Details:  map[string]string{"path": distPath},
	})
}

func (p *BuildProvider) checkServerBundle() CheckResult {
	serverPath := filepath.Join(p.Dir, "dist", "index.js")
	info, err := os.Stat(serverPath)
	if err != nil {
		return newResult("build", CheckResult{
			Title:       "Server-Bundle",
			Status:      StatusFail,
			Severity:    SeverityCritical,
			Message:     "dist/index.js nicht gefunden",
			Details:     map[string]string{"error": err.Error()},
			Remediation: `Führen Sie "npm run build" aus`,
			Command:     "npm run build",
		})
	}

	if info.Size() == 0 {
		return newResult("build", CheckResult{
			Title:       "Server-Bundle",
			Status:      StatusFail,
			Severity:    SeverityCritical,
			Message:     "dist/index.js ist leer",
			Remediation: `Führen Sie "npm run build" erneut aus`,
			Command:     "npm run build",
		})
	}

	return newResult("build", CheckResult{
		Title:    "Server-Bundle",
		Status:   StatusPass,
		Severity: SeverityInfo,
		Message:  fmt.Sprintf("dist/index.js vorhanden (%dKB)", info.Size()/1024),
		Details:  map[string]string{"path": serverPath, "size": fmt.Sprint(info.Size())},
	})
}

func (p *BuildProvider) checkClientBundle() CheckResult {
	publicPath := filepath.Join(p.Dir, "dist", "public")
	entries, err := os.ReadDir(publicPath)
	if err != nil {
		return newResult("build", CheckResult{
			Title:       "Client-Bundle",
			Status:      StatusFail,
			Severity:    SeverityCritical,
			Message:     "dist/public/ nicht gefunden",
			Remediation: `Führen Sie "npm run build" aus`,
			Command:     "npm run build",
		})
	}

	hasIndexHTML := false
	hasAssets := false
	for _, entry := range entries {
		name := entry.Name()
		if name == "index.html" {
			hasIndexHTML = true
		}
		if strings.HasPrefix(name, "assets") || strings.Contains(name, ".js") || strings.Contains(name, ".css") {
			hasAssets = true
		}
	}

	if !hasIndexHTML {
		return newResult("build", CheckResult{
			Title:       "Client-Bundle",
			Status:      StatusFail,
			Severity:    SeverityCritical,
			Message:     "dist/public/index.html fehlt",
			Remediation: `Führen Sie "npm run build" aus`,
			Command:     "npm run build",
		})
	}

	if !hasAssets {
		return newResult("build", CheckResult{
			Title:       "Client-Bundle",
			Status:      StatusWarning,
			Severity:    SeverityWarning,
			Message:     "Keine Assets in dist/public/ gefunden",
			Remediation: "Überprüfen Sie den Build-Prozess",
		})
	}

	return newResult("build", CheckResult{
		Title:    "Client-Bundle",
		Status:   StatusPass,
		Severity: SeverityInfo,
		Message:  fmt.Sprintf("Client-Dateien vorhanden (%d Dateien)", len(entries)),
		Details:  map[string]string{"path": publicPath, "fileCount": fmt.Sprint(len(entries))},
	})
}

func (p *BuildProvider) checkPackageJSON() CheckResult {
	pkg, err := p.readPackageJSON()
	if err != nil {
		return newResult("build", CheckResult{
			Title:    "package.json",
			Status:   StatusFail,
			Severity: SeverityCritical,
			Message:  "package.json nicht lesbar",
			Details:  map[string]string{"error": err.Error()},
		})
	}

	var issues []string
	if pkg.Scripts["build"] == "" {
		issues = append(issues, `Kein "build" Script`)
	}
	if pkg.Scripts["start"] == "" {
		issues = append(issues, `Kein "start" Script`)
	}
	if pkg.Type != "module" {
		issues = append(issues, `package.json hat type != "module" (ES Modules erforderlich)`)
	}

	if len(issues) > 0 {
		return newResult("build", CheckResult{
			Title:    "package.json",
			Status:   StatusWarning,
			Severity: SeverityWarning,
			Message:  "Konfigurationsprobleme: " + strings.Join(issues, ", "),
			Details:  map[string]string{"issues": strings.Join(issues, "; ")},
		})
	}

	return newResult("build", CheckResult{
		Title:    "package.json",
		Status:   StatusPass,
		Severity: SeverityInfo,
		Message:  "package.json korrekt konfiguriert",
	})
}

func (p *BuildProvider) checkBuildScripts() CheckResult {
	pkg, err := p.readPackageJSON()
	if err != nil {
		return newResult("build", CheckResult{
			Title:    "Build-Skripte",
			Status:   StatusFail,
			Severity: SeverityError,
			Message:  "Skripte konnten nicht überprüft werden",
			Details:  map[string]string{"error": err.Error()},
		})
	}

	buildScript := pkg.Scripts["build"]
	startScript := pkg.Scripts["start"]

	if buildScript == "" {
		return newResult("build", CheckResult{
			Title:       "Build-Skripte",
			Status:      StatusFail,
			Severity:    SeverityError,
			Message:     "Kein Build-Skript definiert",
			Remediation: "Fügen Sie ein Build-Skript in package.json hinzu",
		})
	}

	const expectedStart = "node dist/index.js"
	if !strings.Contains(startScript, "dist/index.js") {
		return newResult("build", CheckResult{
			Title:       "Build-Skripte",
			Status:      StatusWarning,
			Severity:    SeverityWarning,
			Message:     fmt.Sprintf("Start-Skript sollte %q enthalten", expectedStart),
			Details:     map[string]string{"current": startScript, "expected": expectedStart},
			Remediation: fmt.Sprintf(`Ändern Sie "start" zu: "NODE_ENV=production %s"`, expectedStart),
		})
	}

	return newResult("build", CheckResult{
		Title:    "Build-Skripte",
		Status:   StatusPass,
		Severity: SeverityInfo,
		Message:  "Build- und Start-Skripte korrekt konfiguriert",
		Details:  map[string]string{"build": buildScript, "start": startScript},
	})
}

type buildPackageJSON struct {
	Type    string            `json:"type"`
	Scripts map[string]string `json:"scripts"`
}

func (p *BuildProvider) readPackageJSON() (*buildPackageJSON, error) {
	data, err := os.ReadFile(filepath.Join(p.Dir, "package.json"))
	if err != nil {
		return nil, err
	}
	var pkg buildPackageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, err
	}
	return &pkg, nil
}
