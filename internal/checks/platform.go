// internal/checks/platform.go
package checks

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/hostdiag/preflight/internal/protocol"
)

// PlatformProvider detects the hosting environment and runs
// platform-specific probes. Detection order encodes priority: the first
// detector that reports positive wins, even if a host would satisfy
// several.
type PlatformProvider struct {
	Dir string

	runCommand    func(ctx context.Context, name string, args ...string) (string, error)
	getenv        func(string) string
	dockerEnvPath string

	detected *protocol.HostingEnvironment
}

// NewPlatformProvider builds a provider using real OS dependencies.
func NewPlatformProvider(dir string) *PlatformProvider {
	return &PlatformProvider{
		Dir:           dir,
		runCommand:    execCommand,
		getenv:        os.Getenv,
		dockerEnvPath: "/.dockerenv",
	}
}

func (p *PlatformProvider) Category() string { return "platform" }

// RunChecks detects the environment first, then runs the probes gated on
// the detection result.
func (p *PlatformProvider) RunChecks(ctx context.Context) []CheckResult {
	env := p.DetectEnvironment(ctx)

	checks := []CheckResult{p.environmentCheck(env)}

	switch env.Type {
	case "passenger":
		checks = append(checks, p.passengerChecks()...)
	case "pm2":
		checks = append(checks, p.pm2Check())
	}

	checks = append(checks, p.checkStartupFile(), p.checkPortConfig())
	return checks
}

// DetectEnvironment probes Passenger, PM2, Docker and systemd in order
// and returns the first positive match. Nothing matching is not an error:
// the result is generic/undetected.
func (p *PlatformProvider) DetectEnvironment(ctx context.Context) protocol.HostingEnvironment {
	if p.detected != nil {
		return *p.detected
	}

	detectors := []func(context.Context) protocol.HostingEnvironment{
		p.detectPassenger,
		p.detectPM2,
		p.detectDocker,
		p.detectSystemd,
	}

	env := protocol.HostingEnvironment{Type: "generic", Detected: false}
	for _, detect := range detectors {
		if candidate := detect(ctx); candidate.Detected {
			env = candidate
			break
		}
	}

	p.detected = &env
	return env
}

func (p *PlatformProvider) detectPassenger(ctx context.Context) protocol.HostingEnvironment {
	if _, err := p.runCommand(ctx, "which", "passenger-config"); err == nil {
		env := protocol.HostingEnvironment{
			Type:     "passenger",
			Detected: true,
			Details:  map[string]string{"indicator": "passenger-config gefunden"},
		}
		if version, err := p.runCommand(ctx, "passenger-config", "--version"); err == nil {
			env.Version = version
		}
		return env
	}

	if p.getenv("PASSENGER_APP_ENV") != "" || p.getenv("PASSENGER_APP_ROOT") != "" {
		return protocol.HostingEnvironment{
			Type:     "passenger",
			Detected: true,
			Details: map[string]string{
				"indicator": "Passenger Umgebungsvariablen",
				"appRoot":   p.getenv("PASSENGER_APP_ROOT"),
				"appEnv":    p.getenv("PASSENGER_APP_ENV"),
			},
		}
	}

	// .htaccess in the app directory or its parent may carry a
	// Passenger block.
	for _, dir := range []string{p.Dir, filepath.Dir(p.Dir)} {
		htaccess := filepath.Join(dir, ".htaccess")
		content, err := os.ReadFile(htaccess)
		if err != nil {
			continue
		}
		if strings.Contains(strings.ToLower(string(content)), "passenger") {
			return protocol.HostingEnvironment{
				Type:       "passenger",
				Detected:   true,
				ConfigPath: htaccess,
				Details:    map[string]string{"indicator": ".htaccess mit Passenger-Konfiguration"},
			}
		}
	}

	return protocol.HostingEnvironment{Type: "passenger"}
}

func (p *PlatformProvider) detectPM2(ctx context.Context) protocol.HostingEnvironment {
	if _, err := p.runCommand(ctx, "which", "pm2"); err == nil {
		env := protocol.HostingEnvironment{Type: "pm2", Detected: true}
		if version, err := p.runCommand(ctx, "pm2", "--version"); err == nil {
			env.Version = version
		}
		return env
	}

	ecosystem := filepath.Join(p.Dir, "ecosystem.config.js")
	if _, err := os.Stat(ecosystem); err == nil {
		return protocol.HostingEnvironment{Type: "pm2", Detected: true, ConfigPath: ecosystem}
	}

	return protocol.HostingEnvironment{Type: "pm2"}
}

func (p *PlatformProvider) detectDocker(ctx context.Context) protocol.HostingEnvironment {
	if _, err := os.Stat(p.dockerEnvPath); err == nil {
		return protocol.HostingEnvironment{Type: "docker", Detected: true}
	}
	if p.getenv("DOCKER_CONTAINER") != "" {
		return protocol.HostingEnvironment{Type: "docker", Detected: true}
	}
	return protocol.HostingEnvironment{Type: "docker"}
}

func (p *PlatformProvider) detectSystemd(ctx context.Context) protocol.HostingEnvironment {
	if p.getenv("INVOCATION_ID") != "" {
		return protocol.HostingEnvironment{Type: "systemd", Detected: true}
	}
	return protocol.HostingEnvironment{Type: "systemd"}
}

func (p *PlatformProvider) environmentCheck(env protocol.HostingEnvironment) CheckResult {
	if !env.Detected {
		return newResult("platform", CheckResult{
			Title:    "Hosting-Umgebung",
			Status:   StatusWarning,
			Severity: SeverityInfo,
			Message:  "Keine spezifische Hosting-Umgebung erkannt (generisches Node.js)",
			Details:  map[string]string{"type": "generic"},
		})
	}

	message := strings.ToUpper(env.Type) + " erkannt"
	if env.Version != "" {
		message += " (Version: " + env.Version + ")"
	}

	return newResult("platform", CheckResult{
		Title:    "Hosting-Umgebung",
		Status:   StatusPass,
		Severity: SeverityInfo,
		Message:  message,
		Details:  env.Details,
	})
}

func (p *PlatformProvider) passengerChecks() []CheckResult {
	var checks []CheckResult

	appJS := filepath.Join(p.Dir, "app.js")
	content, err := os.ReadFile(appJS)
	switch {
	case err != nil:
		checks = append(checks, newResult("platform", CheckResult{
			Title:       "Passenger Startup-Datei",
			Status:      StatusFail,
			Severity:    SeverityCritical,
			Message:     "app.js nicht gefunden - für Passenger erforderlich!",
			Remediation: `Erstellen Sie app.js mit: import('./dist/index.js');`,
			Command:     `echo "import('./dist/index.js');" > app.js`,
		}))
	case strings.Contains(string(content), "import") && strings.Contains(string(content), "dist/index.js"):
		checks = append(checks, newResult("platform", CheckResult{
			Title:    "Passenger Startup-Datei",
			Status:   StatusPass,
			Severity: SeverityInfo,
			Message:  "app.js vorhanden und konfiguriert",
			Details:  map[string]string{"path": appJS},
		}))
	default:
		checks = append(checks, newResult("platform", CheckResult{
			Title:       "Passenger Startup-Datei",
			Status:      StatusWarning,
			Severity:    SeverityWarning,
			Message:     "app.js gefunden, aber möglicherweise falsch konfiguriert",
			Details:     map[string]string{"path": appJS},
			Remediation: `app.js sollte enthalten: import('./dist/index.js');`,
		}))
	}

	appRoot := p.getenv("PASSENGER_APP_ROOT")
	if appRoot == "" {
		appRoot = p.Dir
	}
	if appRoot != p.Dir {
		checks = append(checks, newResult("platform", CheckResult{
			Title:       "Passenger App Root",
			Status:      StatusWarning,
			Severity:    SeverityWarning,
			Message:     "App Root stimmt nicht überein: " + appRoot + " vs " + p.Dir,
			Details:     map[string]string{"configured": appRoot, "expected": p.Dir},
			Remediation: "Setzen Sie PassengerAppRoot auf das Projektverzeichnis",
		}))
	} else {
		checks = append(checks, newResult("platform", CheckResult{
			Title:    "Passenger App Root",
			Status:   StatusPass,
			Severity: SeverityInfo,
			Message:  "App Root korrekt konfiguriert",
			Details:  map[string]string{"appRoot": appRoot},
		}))
	}

	return checks
}

func (p *PlatformProvider) pm2Check() CheckResult {
	if _, err := os.Stat(filepath.Join(p.Dir, "ecosystem.config.js")); err != nil {
		return newResult("platform", CheckResult{
			Title:       "PM2 Konfiguration",
			Status:      StatusWarning,
			Severity:    SeverityWarning,
			Message:     "ecosystem.config.js nicht gefunden",
			Remediation: "Erstellen Sie eine PM2-Konfiguration für bessere Verwaltung",
		})
	}

	return newResult("platform", CheckResult{
		Title:    "PM2 Konfiguration",
		Status:   StatusPass,
		Severity: SeverityInfo,
		Message:  "ecosystem.config.js gefunden",
	})
}

func (p *PlatformProvider) checkStartupFile() CheckResult {
	data, err := os.ReadFile(filepath.Join(p.Dir, "package.json"))
	if err != nil {
		return newResult("platform", CheckResult{
			Title:    "Start-Skript",
			Status:   StatusFail,
			Severity: SeverityError,
			Message:  "package.json konnte nicht gelesen werden",
			Details:  map[string]string{"error": err.Error()},
		})
	}

	var pkg struct {
		Scripts map[string]string `json:"scripts"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return newResult("platform", CheckResult{
			Title:    "Start-Skript",
			Status:   StatusFail,
			Severity: SeverityError,
			Message:  "package.json konnte nicht gelesen werden",
			Details:  map[string]string{"error": err.Error()},
		})
	}

	startScript := pkg.Scripts["start"]
	if startScript == "" {
		return newResult("platform", CheckResult{
			Title:       "Start-Skript",
			Status:      StatusFail,
			Severity:    SeverityError,
			Message:     `Kein "start" Skript in package.json definiert`,
			Remediation: "Fügen Sie ein Start-Skript hinzu",
		})
	}

	if strings.Contains(startScript, "dist/index.js") {
		return newResult("platform", CheckResult{
			Title:    "Start-Skript",
			Status:   StatusPass,
			Severity: SeverityInfo,
			Message:  "Start-Skript verweist auf dist/index.js",
			Details:  map[string]string{"script": startScript},
		})
	}

	return newResult("platform", CheckResult{
		Title:       "Start-Skript",
		Status:      StatusWarning,
		Severity:    SeverityWarning,
		Message:     "Start-Skript verweist nicht auf dist/index.js: " + startScript,
		Details:     map[string]string{"script": startScript},
		Remediation: `Start-Skript sollte "node dist/index.js" ausführen`,
	})
}

func (p *PlatformProvider) checkPortConfig() CheckResult {
	port := p.getenv("PORT")
	source := "Umgebungsvariable"
	if port == "" {
		port = "5000"
		source = "Standard (5000)"
	}

	return newResult("platform", CheckResult{
		Title:    "Port-Konfiguration",
		Status:   StatusPass,
		Severity: SeverityInfo,
		Message:  "Konfigurierter Port: " + port,
		Details:  map[string]string{"port": port, "source": source},
	})
}
