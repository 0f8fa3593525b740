// internal/checks/system.go
package checks

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// SystemProvider checks runtime versions, memory and disk headroom.
type SystemProvider struct {
	Dir string

	runCommand  func(ctx context.Context, name string, args ...string) (string, error)
	getenv      func(string) string
	memInfoPath string
}

// NewSystemProvider builds a provider using real OS dependencies.
func NewSystemProvider(dir string) *SystemProvider {
	return &SystemProvider{
		Dir:         dir,
		runCommand:  execCommand,
		getenv:      os.Getenv,
		memInfoPath: "/proc/meminfo",
	}
}

func (p *SystemProvider) Category() string { return "system" }

// RunChecks runs every system probe; none short-circuits.
func (p *SystemProvider) RunChecks(ctx context.Context) []CheckResult {
	return []CheckResult{
		p.checkNodeVersion(ctx),
		p.checkNpmVersion(ctx),
		p.checkMemory(),
		p.checkDiskSpace(ctx),
		p.checkNodeEnv(),
	}
}

func (p *SystemProvider) checkNodeVersion(ctx context.Context) CheckResult {
	version, err := p.runCommand(ctx, "node", "--version")
	if err != nil {
		return newResult("system", CheckResult{
			Title:       "Node.js Version",
			Status:      StatusFail,
			Severity:    SeverityCritical,
			Message:     "Node.js Version konnte nicht ermittelt werden",
			Details:     map[string]string{"error": err.Error()},
			Remediation: "Installieren Sie Node.js",
		})
	}

	major := majorVersion(strings.TrimPrefix(version, "v"))
	if major >= 18 {
		return newResult("system", CheckResult{
			Title:    "Node.js Version",
			Status:   StatusPass,
			Severity: SeverityInfo,
			Message:  fmt.Sprintf("Node.js %s erkannt", version),
			Details:  map[string]string{"version": version},
		})
	}

	return newResult("system", CheckResult{
		Title:       "Node.js Version",
		Status:      StatusWarning,
		Severity:    SeverityWarning,
		Message:     fmt.Sprintf("Node.js %s ist veraltet. Empfohlen: >= 18.x", version),
		Details:     map[string]string{"version": version},
		Remediation: "Aktualisieren Sie Node.js auf Version 18 oder höher",
	})
}

func (p *SystemProvider) checkNpmVersion(ctx context.Context) CheckResult {
	version, err := p.runCommand(ctx, "npm", "--version")
	if err != nil {
		return newResult("system", CheckResult{
			Title:       "NPM Version",
			Status:      StatusFail,
			Severity:    SeverityCritical,
			Message:     "NPM nicht gefunden",
			Details:     map[string]string{"error": err.Error()},
			Remediation: "Installieren Sie Node.js mit NPM",
		})
	}

	if majorVersion(version) >= 8 {
		return newResult("system", CheckResult{
			Title:    "NPM Version",
			Status:   StatusPass,
			Severity: SeverityInfo,
			Message:  fmt.Sprintf("NPM %s verfügbar", version),
			Details:  map[string]string{"version": version},
		})
	}

	return newResult("system", CheckResult{
		Title:       "NPM Version",
		Status:      StatusWarning,
		Severity:    SeverityWarning,
		Message:     fmt.Sprintf("NPM %s ist veraltet", version),
		Details:     map[string]string{"version": version},
		Remediation: "npm install -g npm@latest",
		Command:     "npm install -g npm@latest",
	})
}

func (p *SystemProvider) checkMemory() CheckResult {
	totalGB, freeGB := readMemInfo(p.memInfoPath)
	if totalGB == 0 {
		return newResult("system", CheckResult{
			Title:    "Arbeitsspeicher",
			Status:   StatusSkipped,
			Severity: SeverityInfo,
			Message:  "Arbeitsspeicher konnte nicht ermittelt werden",
		})
	}

	usedPercent := int((totalGB - freeGB) / totalGB * 100)
	details := map[string]string{
		"total":       fmt.Sprintf("%.2f", totalGB),
		"free":        fmt.Sprintf("%.2f", freeGB),
		"usedPercent": strconv.Itoa(usedPercent),
	}

	if freeGB < 0.5 {
		return newResult("system", CheckResult{
			Title:       "Arbeitsspeicher",
			Status:      StatusWarning,
			Severity:    SeverityWarning,
			Message:     fmt.Sprintf("Nur %.2fGB freier Speicher verfügbar (%d%% belegt)", freeGB, usedPercent),
			Details:     details,
			Remediation: "Beenden Sie ungenutzte Prozesse oder erweitern Sie den RAM",
		})
	}

	return newResult("system", CheckResult{
		Title:    "Arbeitsspeicher",
		Status:   StatusPass,
		Severity: SeverityInfo,
		Message:  fmt.Sprintf("%.2fGB von %.2fGB frei (%d%% verfügbar)", freeGB, totalGB, 100-usedPercent),
		Details:  details,
	})
}

func (p *SystemProvider) checkDiskSpace(ctx context.Context) CheckResult {
	out, err := p.runCommand(ctx, "df", "-BG", p.Dir)
	if err == nil {
		lines := strings.Split(strings.TrimSpace(out), "\n")
		parts := strings.Fields(lines[len(lines)-1])
		if len(parts) >= 4 {
			total, _ := strconv.Atoi(strings.TrimSuffix(parts[1], "G"))
			used, _ := strconv.Atoi(strings.TrimSuffix(parts[2], "G"))
			available, _ := strconv.Atoi(strings.TrimSuffix(parts[3], "G"))
			if total > 0 {
				usedPercent := used * 100 / total
				details := map[string]string{
					"total":     strconv.Itoa(total),
					"used":      strconv.Itoa(used),
					"available": strconv.Itoa(available),
				}

				if available < 1 {
					return newResult("system", CheckResult{
						Title:       "Festplattenspeicher",
						Status:      StatusWarning,
						Severity:    SeverityWarning,
						Message:     fmt.Sprintf("Nur %dGB freier Speicher (%d%% belegt)", available, usedPercent),
						Details:     details,
						Remediation: "Löschen Sie unnötige Dateien oder erweitern Sie den Speicher",
					})
				}

				return newResult("system", CheckResult{
					Title:    "Festplattenspeicher",
					Status:   StatusPass,
					Severity: SeverityInfo,
					Message:  fmt.Sprintf("%dGB von %dGB frei", available, total),
					Details:  details,
				})
			}
		}
	}

	return newResult("system", CheckResult{
		Title:    "Festplattenspeicher",
		Status:   StatusSkipped,
		Severity: SeverityInfo,
		Message:  "Speicherplatz konnte nicht ermittelt werden",
	})
}

func (p *SystemProvider) checkNodeEnv() CheckResult {
	nodeEnv := p.getenv("NODE_ENV")
	if nodeEnv == "" {
		return newResult("system", CheckResult{
			Title:       "NODE_ENV",
			Status:      StatusWarning,
			Severity:    SeverityWarning,
			Message:     "NODE_ENV nicht gesetzt",
			Remediation: `Setzen Sie NODE_ENV auf "production" oder "development"`,
			Command:     "export NODE_ENV=production",
		})
	}

	return newResult("system", CheckResult{
		Title:    "NODE_ENV",
		Status:   StatusPass,
		Severity: SeverityInfo,
		Message:  "NODE_ENV: " + nodeEnv,
		Details:  map[string]string{"nodeEnv": nodeEnv},
	})
}

func majorVersion(version string) int {
	major, _ := strconv.Atoi(strings.SplitN(version, ".", 2)[0])
	return major
}

func readMemInfo(path string) (totalGB, freeGB float64) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, 0
	}

	var totalKB, availableKB float64
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		value, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			totalKB = value
		case "MemAvailable:":
			availableKB = value
		}
	}

	const kbPerGB = 1024 * 1024
	return totalKB / kbPerGB, availableKB / kbPerGB
}

func execCommand(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	return strings.TrimSpace(string(out)), err
}
