// internal/cli/capture.go
package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// logLocations are the usual suspects for hosting errors. All reads are
// best effort, unreadable locations are skipped silently.
var logLocations = []string{
	"/var/log/passenger.log",
	"/var/log/nginx/error.log",
	"/var/log/apache2/error.log",
}

// CaptureLogs tails known server log locations plus the npm debug logs
// and prints whatever it finds.
func (p *Printer) CaptureLogs(ctx context.Context) {
	p.header("LOG-ERFASSUNG")
	fmt.Fprintln(p.Out, "\nSuche nach Server-Logs...")

	locations := logLocations
	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations, filepath.Join(home, ".passenger", "logs"))
	}

	found := false
	for _, location := range locations {
		content := tailFile(ctx, location, 100)
		if content == "" {
			continue
		}
		found = true
		fmt.Fprintf(p.Out, "\n%s Logs gefunden: %s\n", passColor.Sprint("✓"), location)
		p.printBlock(content)
	}

	if npmLogs := p.captureNpmLogs(ctx); npmLogs != "" {
		found = true
		fmt.Fprintf(p.Out, "\n%s NPM-Logs:\n", passColor.Sprint("✓"))
		p.printBlock(npmLogs)
	}

	if !found {
		fmt.Fprintln(p.Out, "\nKeine Logs gefunden")
		return
	}

	fmt.Fprintln(p.Out, "\nTipp: Kopieren Sie die obigen Logs für die Fehleranalyse")
}

func (p *Printer) captureNpmLogs(ctx context.Context) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	logDir := filepath.Join(home, ".npm", "_logs")
	entries, err := os.ReadDir(logDir)
	if err != nil || len(entries) == 0 {
		return ""
	}

	// Entries are named by timestamp, the last one is the most recent.
	latest := filepath.Join(logDir, entries[len(entries)-1].Name())
	return tailFile(ctx, latest, 50)
}

func (p *Printer) printBlock(content string) {
	line := strings.Repeat("=", 80)
	commandColor.Fprintln(p.Out, line)
	fmt.Fprintln(p.Out, content)
	commandColor.Fprintln(p.Out, line)
}

func tailFile(ctx context.Context, path string, lines int) string {
	out, err := exec.CommandContext(ctx, "tail", "-n", fmt.Sprint(lines), path).Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
