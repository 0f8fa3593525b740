// internal/diag/aireport.go
package diag

import (
	"fmt"
	"strings"

	"github.com/hostdiag/preflight/internal/protocol"
)

// fallbackAIReport is used when no stage produced data to summarize.
const fallbackAIReport = "Diagnose teilweise abgeschlossen."

// GenerateAIReport renders a deterministic plain-text summary for human or
// LLM consumption. Nil sections are skipped; empty sections are omitted
// entirely instead of rendered as empty headers.
func GenerateAIReport(sys *protocol.SystemInfo, network *protocol.NetworkTest, perms *protocol.PermissionCheck, deps *protocol.DependencyAnalysis) string {
	if sys == nil && network == nil && perms == nil && deps == nil {
		return fallbackAIReport
	}

	var b strings.Builder
	b.WriteString("=== Node.js Hosting Diagnose-Bericht für KI-Analyse ===\n\n")

	var critical []string
	if sys != nil && sys.DiskAvailable < 2 {
		critical = append(critical, fmt.Sprintf(
			"Festplattenspeicher kritisch: Nur %dGB verfügbar von %dGB total",
			sys.DiskAvailable, sys.DiskTotal))
	}
	if deps != nil {
		for _, vuln := range deps.Vulnerabilities {
			critical = append(critical, fmt.Sprintf(
				"Security Vulnerability: %s mit %s Schweregrad - %s",
				vuln.Name, vuln.Severity, vuln.Description))
		}
	}
	if len(critical) > 0 {
		fmt.Fprintf(&b, "KRITISCHE PROBLEME (%d):\n", len(critical))
		for i, issue := range critical {
			fmt.Fprintf(&b, "%d. %s\n", i+1, issue)
		}
		b.WriteString("\n")
	}

	var warnings []string
	if network != nil {
		for _, test := range network.PortTests {
			if test.Available {
				continue
			}
			warning := fmt.Sprintf("Port %d bereits belegt", test.Port)
			if test.PID != 0 {
				warning += fmt.Sprintf(" (Prozess-ID: %d)", test.PID)
			}
			warnings = append(warnings, warning)
		}
	}
	if perms != nil {
		for _, issue := range perms.Issues {
			if issue.Type == "warning" {
				warnings = append(warnings, issue.Message+": "+issue.Solution)
			}
		}
	}
	if len(warnings) > 0 {
		fmt.Fprintf(&b, "WARNUNGEN (%d):\n", len(warnings))
		for i, warning := range warnings {
			fmt.Fprintf(&b, "%d. %s\n", i+1, warning)
		}
		b.WriteString("\n")
	}

	b.WriteString("SYSTEM DETAILS:\n")
	if sys != nil {
		fmt.Fprintf(&b, "- Betriebssystem: %s, %s Architektur\n", sys.OS, sys.Architecture)
		fmt.Fprintf(&b, "- Hardware: %d CPU Kerne, %gGB RAM, %gGB verfügbar\n",
			sys.CPUCores, sys.TotalMemory, sys.FreeMemory)
		fmt.Fprintf(&b, "- Node.js: %s, NPM: %s\n", sys.NodeVersion, sys.NpmVersion)
		fmt.Fprintf(&b, "- Speicherplatz: %dGB verfügbar von %dGB\n", sys.DiskAvailable, sys.DiskTotal)
	}
	if network != nil {
		fmt.Fprintf(&b, "- Netzwerk: Internet %s, DNS %s\n",
			germanAvailability(network.InternetConnection),
			germanDNS(network.DNSResolution))
	}
	if deps != nil && len(deps.OutdatedPackages) > 0 {
		entries := make([]string, 0, len(deps.OutdatedPackages))
		for _, pkg := range deps.OutdatedPackages {
			entries = append(entries, fmt.Sprintf("%s@%s -> %s", pkg.Name, pkg.Current, pkg.Latest))
		}
		fmt.Fprintf(&b, "- Veraltete Pakete: %s\n", strings.Join(entries, ", "))
	}

	b.WriteString("\n=== Ende des Diagnose-Berichts ===")
	return b.String()
}

func germanAvailability(ok bool) string {
	if ok {
		return "verfügbar"
	}
	return "nicht verfügbar"
}

func germanDNS(ok bool) string {
	if ok {
		return "funktioniert"
	}
	return "Probleme"
}
