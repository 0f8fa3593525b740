// internal/diag/system.go
package diag

import (
	"context"
	"fmt"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/hostdiag/preflight/internal/protocol"
)

// GetSystemInfo collects runtime versions, hardware facts and selected
// environment variables for the host.
func (s *Service) GetSystemInfo(ctx context.Context) (*protocol.SystemInfo, error) {
	nodeVersion, err := s.commandLine(ctx, "node", "--version")
	if err != nil {
		return nil, fmt.Errorf("node version: %w", err)
	}

	npmVersion, err := s.commandLine(ctx, "npm", "--version")
	if err != nil {
		return nil, fmt.Errorf("npm version: %w", err)
	}

	osInfo := runtime.GOOS
	if out, err := s.runCommand(ctx, s.BaseDir, "uname", "-sr"); err == nil {
		osInfo = strings.TrimSpace(string(out))
	}

	totalMem, freeMem := s.readMemory()
	diskTotal, diskUsed, diskAvailable := s.readDisk(ctx)

	envVars := map[string]string{
		"NODE_ENV": envOr(s.getenv("NODE_ENV"), "undefined"),
		"PATH":     abbreviatePath(s.getenv("PATH")),
		"PORT":     envOr(s.getenv("PORT"), "undefined"),
	}

	return &protocol.SystemInfo{
		NodeVersion:   nodeVersion,
		NpmVersion:    npmVersion,
		OS:            osInfo,
		Architecture:  runtime.GOARCH,
		CPUCores:      runtime.NumCPU(),
		TotalMemory:   totalMem,
		FreeMemory:    freeMem,
		DiskTotal:     diskTotal,
		DiskUsed:      diskUsed,
		DiskAvailable: diskAvailable,
		EnvVars:       envVars,
	}, nil
}

func (s *Service) commandLine(ctx context.Context, name string, args ...string) (string, error) {
	out, err := s.runCommand(ctx, s.BaseDir, name, args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// readMemory parses /proc/meminfo. Values are GB rounded to two decimals;
// zeros on hosts without procfs.
func (s *Service) readMemory() (totalGB, freeGB float64) {
	data, err := os.ReadFile(s.memInfoPath)
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

	return roundGB(totalKB * 1024), roundGB(availableKB * 1024)
}

// readDisk shells out to df for the base directory; zeros when df is
// unavailable or prints something unexpected.
func (s *Service) readDisk(ctx context.Context) (total, used, available int) {
	out, err := s.runCommand(ctx, s.BaseDir, "df", "-BG", s.BaseDir)
	if err != nil {
		return 0, 0, 0
	}

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) < 2 {
		return 0, 0, 0
	}

	parts := strings.Fields(lines[len(lines)-1])
	if len(parts) < 4 {
		return 0, 0, 0
	}

	total, _ = strconv.Atoi(strings.TrimSuffix(parts[1], "G"))
	used, _ = strconv.Atoi(strings.TrimSuffix(parts[2], "G"))
	available, _ = strconv.Atoi(strings.TrimSuffix(parts[3], "G"))
	return total, used, available
}

func roundGB(bytes float64) float64 {
	return math.Round(bytes/(1024*1024*1024)*100) / 100
}

func envOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// abbreviatePath keeps the first three PATH entries to avoid dumping the
// whole variable into the report.
func abbreviatePath(path string) string {
	if path == "" {
		return "undefined"
	}
	entries := strings.Split(path, ":")
	if len(entries) <= 3 {
		return path
	}
	return strings.Join(entries[:3], ":") + "..."
}
