// internal/cli/output.go
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/hostdiag/preflight/internal/checks"
	"github.com/hostdiag/preflight/internal/protocol"
)

var (
	headerColor   = color.New(color.FgBlue, color.Bold)
	titleColor    = color.New(color.Bold)
	passColor     = color.New(color.FgGreen)
	failColor     = color.New(color.FgRed)
	warnColor     = color.New(color.FgYellow)
	skipColor     = color.New(color.FgHiBlack)
	hintColor     = color.New(color.FgCyan)
	commandColor  = color.New(color.FgHiBlack)
	criticalColor = color.New(color.FgRed, color.Bold)
)

// Printer renders summaries and reports to a terminal.
type Printer struct {
	Out io.Writer
}

// NewPrinter writes to out.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{Out: out}
}

// PrintJSON writes v as indented JSON.
func (p *Printer) PrintJSON(v interface{}) error {
	enc := json.NewEncoder(p.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrintSummary renders the compact check view: counters plus details for
// failing checks only.
func (p *Printer) PrintSummary(summary checks.Summary) {
	p.header("DEPLOYMENT-DIAGNOSE")

	fmt.Fprintf(p.Out, "\nZeitstempel: %s\n", summary.Timestamp.Format("02.01.2006 15:04:05"))
	fmt.Fprintf(p.Out, "Node.js: %s | NPM: %s\n", summary.NodeVersion, summary.NpmVersion)
	p.printEnvironmentLine(summary.Environment)
	fmt.Fprintf(p.Out, "Build-Status: %s\n", buildStatusLabel(summary.BuildStatus))

	p.rule()
	fmt.Fprintln(p.Out, "\nZusammenfassung:")
	fmt.Fprintf(p.Out, "  %s\n", passColor.Sprintf("✓ %d erfolgreich", summary.Passed))
	if summary.Warnings > 0 {
		fmt.Fprintf(p.Out, "  %s\n", warnColor.Sprintf("⚠ %d Warnungen", summary.Warnings))
	}
	if summary.Errors > 0 {
		fmt.Fprintf(p.Out, "  %s\n", failColor.Sprintf("✗ %d Fehler", summary.Errors))
	}
	if summary.CriticalIssues > 0 {
		fmt.Fprintf(p.Out, "  %s\n", criticalColor.Sprintf("⚠ %d KRITISCH", summary.CriticalIssues))
	}

	if summary.CriticalIssues > 0 || summary.Errors > 0 {
		fmt.Fprintln(p.Out, "\nKritische Probleme gefunden:")
		for _, check := range summary.Checks {
			if check.Status != checks.StatusFail {
				continue
			}
			if check.Severity != checks.SeverityCritical && check.Severity != checks.SeverityError {
				continue
			}
			fmt.Fprintf(p.Out, "\n  %s %s\n", failColor.Sprint("✗"), titleColor.Sprint(check.Title))
			fmt.Fprintf(p.Out, "    %s\n", check.Message)
			if check.Remediation != "" {
				fmt.Fprintf(p.Out, "    %s %s\n", hintColor.Sprint("→ Lösung:"), check.Remediation)
			}
			if check.Command != "" {
				fmt.Fprintf(p.Out, "    %s\n", commandColor.Sprint("$ "+check.Command))
			}
		}
	}

	p.rule()
	fmt.Fprintf(p.Out, "\nFühren Sie %s für einen detaillierten Bericht aus\n", hintColor.Sprint("preflight report"))
	fmt.Fprintf(p.Out, "Führen Sie %s für Server-Logs aus\n", hintColor.Sprint("preflight capture"))
}

// PrintReport renders every check grouped per category.
func (p *Printer) PrintReport(summary checks.Summary) {
	p.header("DETAILLIERTER DIAGNOSE-BERICHT")

	fmt.Fprintf(p.Out, "\nZeitstempel: %s\n", summary.Timestamp.Format("02.01.2006 15:04:05"))
	fmt.Fprintf(p.Out, "Node.js: %s | NPM: %s\n", summary.NodeVersion, summary.NpmVersion)
	p.printEnvironmentLine(summary.Environment)
	fmt.Fprintf(p.Out, "Build-Status: %s\n", buildStatusLabel(summary.BuildStatus))

	for _, category := range categoriesInOrder(summary.Checks) {
		p.rule()
		fmt.Fprintf(p.Out, "\n%s\n\n", titleColor.Sprint(strings.ToUpper(category)))

		for _, check := range summary.Checks {
			if check.Category != category {
				continue
			}
			fmt.Fprintf(p.Out, "%s\n", statusColor(check.Status).Sprintf("%s %s", statusIcon(check.Status), check.Title))
			fmt.Fprintf(p.Out, "  %s\n", check.Message)
			if len(check.Details) > 0 {
				detail, _ := json.Marshal(check.Details)
				fmt.Fprintf(p.Out, "  %s\n", commandColor.Sprint("Details: "+string(detail)))
			}
			if check.Remediation != "" {
				fmt.Fprintf(p.Out, "  %s\n", hintColor.Sprint("→ Lösung: "+check.Remediation))
			}
			if check.Command != "" {
				fmt.Fprintf(p.Out, "  %s\n", commandColor.Sprint("$ "+check.Command))
			}
			fmt.Fprintln(p.Out)
		}
	}

	p.rule()
}

// PrintEnvironment renders a detect-host result.
func (p *Printer) PrintEnvironment(env protocol.HostingEnvironment) {
	p.header("HOSTING-UMGEBUNG")

	fmt.Fprintf(p.Out, "\nTyp: %s\n", hintColor.Sprint(strings.ToUpper(env.Type)))
	if env.Detected {
		fmt.Fprintf(p.Out, "Erkannt: %s\n", passColor.Sprint("JA"))
	} else {
		fmt.Fprintf(p.Out, "Erkannt: %s\n", failColor.Sprint("NEIN"))
	}
	if env.Version != "" {
		fmt.Fprintf(p.Out, "Version: %s\n", env.Version)
	}
	if env.ConfigPath != "" {
		fmt.Fprintf(p.Out, "Konfiguration: %s\n", env.ConfigPath)
	}
	if len(env.Details) > 0 {
		detail, _ := json.MarshalIndent(env.Details, "", "  ")
		fmt.Fprintf(p.Out, "\nDetails:\n%s\n", string(detail))
	}
}

// PrintDiagnosisReport renders a stored dashboard report.
func (p *Printer) PrintDiagnosisReport(report *protocol.Report) {
	p.header("DIAGNOSE-BERICHT " + report.ID)

	fmt.Fprintf(p.Out, "\nStatus: %s | Fortschritt: %d%%\n", statusLabel(report.Status), report.Progress)
	fmt.Fprintf(p.Out, "Zeitstempel: %s\n", report.Timestamp.Format("02.01.2006 15:04:05"))

	if sys := report.SystemInfo; sys != nil {
		p.rule()
		fmt.Fprintf(p.Out, "\n%s\n\n", titleColor.Sprint("SYSTEM"))
		fmt.Fprintf(p.Out, "  Node.js %s, NPM %s\n", sys.NodeVersion, sys.NpmVersion)
		fmt.Fprintf(p.Out, "  %s (%s), %d Kerne\n", sys.OS, sys.Architecture, sys.CPUCores)
		fmt.Fprintf(p.Out, "  Speicher: %.2fGB frei von %.2fGB\n", sys.FreeMemory, sys.TotalMemory)
		fmt.Fprintf(p.Out, "  Festplatte: %s frei von %s\n",
			humanize.IBytes(uint64(sys.DiskAvailable)*humanize.GiByte),
			humanize.IBytes(uint64(sys.DiskTotal)*humanize.GiByte))
	}

	if network := report.NetworkTests; network != nil {
		p.rule()
		fmt.Fprintf(p.Out, "\n%s\n\n", titleColor.Sprint("NETZWERK"))
		for _, test := range network.PortTests {
			if test.Available {
				fmt.Fprintf(p.Out, "  %s\n", passColor.Sprintf("✓ Port %d frei", test.Port))
			} else {
				fmt.Fprintf(p.Out, "  %s\n", failColor.Sprintf("✗ Port %d belegt (PID %d)", test.Port, test.PID))
			}
		}
		fmt.Fprintf(p.Out, "  Internet: %s | DNS: %s | Firewall: %s\n",
			boolLabel(network.InternetConnection), boolLabel(network.DNSResolution), network.FirewallStatus)
	}

	if report.AIReport != "" {
		p.rule()
		fmt.Fprintf(p.Out, "\n%s\n", report.AIReport)
	}
	p.rule()
}

func (p *Printer) printEnvironmentLine(env protocol.HostingEnvironment) {
	label := hintColor.Sprint(strings.ToUpper(env.Type))
	if env.Detected {
		fmt.Fprintf(p.Out, "Hosting: %s ✓\n", label)
	} else {
		fmt.Fprintf(p.Out, "Hosting: %s (nicht erkannt)\n", label)
	}
}

func (p *Printer) header(title string) {
	line := strings.Repeat("═", 80)
	headerColor.Fprintln(p.Out, line)
	headerColor.Fprintln(p.Out, "  "+title)
	headerColor.Fprintln(p.Out, line)
}

func (p *Printer) rule() {
	fmt.Fprintf(p.Out, "\n%s\n", strings.Repeat("─", 80))
}

func categoriesInOrder(results []checks.CheckResult) []string {
	var categories []string
	seen := map[string]bool{}
	for _, check := range results {
		if !seen[check.Category] {
			seen[check.Category] = true
			categories = append(categories, check.Category)
		}
	}
	return categories
}

func buildStatusLabel(status string) string {
	switch status {
	case "built":
		return passColor.Sprint("✓ Gebaut")
	case "partial":
		return warnColor.Sprint("⚠ Teilweise")
	case "not_built":
		return failColor.Sprint("✗ Nicht gebaut")
	default:
		return failColor.Sprint("✗ Fehler")
	}
}

func statusIcon(status string) string {
	switch status {
	case checks.StatusPass:
		return "✓"
	case checks.StatusFail:
		return "✗"
	case checks.StatusWarning:
		return "⚠"
	case checks.StatusSkipped:
		return "○"
	default:
		return "?"
	}
}

func statusColor(status string) *color.Color {
	switch status {
	case checks.StatusPass:
		return passColor
	case checks.StatusFail:
		return failColor
	case checks.StatusWarning:
		return warnColor
	case checks.StatusSkipped:
		return skipColor
	default:
		return color.New(color.Reset)
	}
}

func statusLabel(status string) string {
	switch status {
	case protocol.StatusCompleted:
		return passColor.Sprint(status)
	case protocol.StatusFailed:
		return failColor.Sprint(status)
	default:
		return warnColor.Sprint(status)
	}
}

func boolLabel(v bool) string {
	if v {
		return passColor.Sprint("OK")
	}
	return failColor.Sprint("FEHLER")
}
