// internal/monitor/collector.go
package monitor

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	maxHistoryLength = 100
	maxAlerts        = 50
	alertMaxAge      = time.Hour
)

// SystemMetrics is one sample of host health.
type SystemMetrics struct {
	Timestamp int64          `json:"timestamp"`
	CPU       CPUMetrics     `json:"cpu"`
	Memory    MemoryMetrics  `json:"memory"`
	Disk      DiskMetrics    `json:"disk"`
	Network   NetworkMetrics `json:"network"`
	Processes ProcessMetrics `json:"processes"`
}

type CPUMetrics struct {
	Usage       float64   `json:"usage"`
	LoadAverage []float64 `json:"loadAverage"`
	Cores       int       `json:"cores"`
}

type MemoryMetrics struct {
	Total      float64 `json:"total"`
	Used       float64 `json:"used"`
	Free       float64 `json:"free"`
	Percentage int     `json:"percentage"`
}

type DiskMetrics struct {
	Total      float64 `json:"total"`
	Used       float64 `json:"used"`
	Free       float64 `json:"free"`
	Percentage int     `json:"percentage"`
}

type NetworkMetrics struct {
	Connections int          `json:"connections"`
	Ports       PortCounters `json:"ports"`
}

type PortCounters struct {
	Listening   int `json:"listening"`
	Established int `json:"established"`
}

type ProcessMetrics struct {
	Total    int `json:"total"`
	Running  int `json:"running"`
	Sleeping int `json:"sleeping"`
}

// Alert is a threshold violation derived from a metrics sample.
type Alert struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"` // warning, error, info
	Category  string  `json:"category"`
	Title     string  `json:"title"`
	Message   string  `json:"message"`
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
}

// Collector samples host metrics on a ticker, keeps a bounded history and
// raises threshold alerts. All accessors are safe for concurrent use.
type Collector struct {
	mu      sync.Mutex
	history []SystemMetrics
	alerts  []Alert

	runCommand  func(ctx context.Context, name string, args ...string) (string, error)
	procStat    string
	procLoadavg string
	procMeminfo string
	sampleGap   time.Duration
	now         func() time.Time
}

// NewCollector builds a collector using real OS dependencies.
func NewCollector() *Collector {
	return &Collector{
		runCommand:  execCommand,
		procStat:    "/proc/stat",
		procLoadavg: "/proc/loadavg",
		procMeminfo: "/proc/meminfo",
		sampleGap:   100 * time.Millisecond,
		now:         time.Now,
	}
}

// Run samples metrics every interval until ctx is cancelled. It samples
// once immediately on start.
func (c *Collector) Run(ctx context.Context, interval time.Duration) {
	log.Printf("Monitor starting: interval=%s", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.Collect(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("Monitor shutting down")
			return
		case <-ticker.C:
			c.Collect(ctx)
		}
	}
}

// Collect takes one sample, appends it to the history and evaluates
// alert thresholds. Probe failures yield zero values, never errors.
func (c *Collector) Collect(ctx context.Context) SystemMetrics {
	metrics := SystemMetrics{
		Timestamp: c.now().UnixMilli(),
		CPU: CPUMetrics{
			Usage:       c.cpuUsage(),
			LoadAverage: c.loadAverage(),
			Cores:       runtime.NumCPU(),
		},
		Memory:    c.memoryStats(),
		Disk:      c.diskStats(ctx),
		Network:   c.networkStats(ctx),
		Processes: c.processStats(ctx),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.history = append(c.history, metrics)
	if len(c.history) > maxHistoryLength {
		c.history = c.history[len(c.history)-maxHistoryLength:]
	}

	c.checkAlerts(metrics)
	return metrics
}

// Latest returns the most recent sample, or false when none was taken yet.
func (c *Collector) Latest() (SystemMetrics, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.history) == 0 {
		return SystemMetrics{}, false
	}
	return c.history[len(c.history)-1], true
}

// History returns a copy of the bounded sample history, oldest first.
func (c *Collector) History() []SystemMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]SystemMetrics, len(c.history))
	copy(out, c.history)
	return out
}

// Alerts returns active alerts, most recent first.
func (c *Collector) Alerts() []Alert {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Alert, len(c.alerts))
	for i, alert := range c.alerts {
		out[len(c.alerts)-1-i] = alert
	}
	return out
}

// ClearAlerts drops all active alerts.
func (c *Collector) ClearAlerts() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alerts = nil
}

// cpuUsage takes a two-point sample of /proc/stat and returns busy time
// as a percentage over the gap.
func (c *Collector) cpuUsage() float64 {
	idle1, total1, ok := readCPUTimes(c.procStat)
	if !ok {
		return 0
	}
	time.Sleep(c.sampleGap)
	idle2, total2, ok := readCPUTimes(c.procStat)
	if !ok || total2 == total1 {
		return 0
	}

	idleDiff := float64(idle2 - idle1)
	totalDiff := float64(total2 - total1)
	usage := 100 - 100*idleDiff/totalDiff
	if usage < 0 {
		return 0
	}
	if usage > 100 {
		return 100
	}
	return usage
}

func readCPUTimes(path string) (idle, total uint64, ok bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, false
	}

	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 5 || fields[0] != "cpu" {
			continue
		}
		for i, field := range fields[1:] {
			value, err := strconv.ParseUint(field, 10, 64)
			if err != nil {
				continue
			}
			total += value
			// idle is the 4th column, iowait the 5th
			if i == 3 || i == 4 {
				idle += value
			}
		}
		return idle, total, true
	}
	return 0, 0, false
}

func (c *Collector) loadAverage() []float64 {
	data, err := os.ReadFile(c.procLoadavg)
	if err != nil {
		return []float64{0, 0, 0}
	}

	fields := strings.Fields(string(data))
	loads := []float64{0, 0, 0}
	for i := 0; i < 3 && i < len(fields); i++ {
		loads[i], _ = strconv.ParseFloat(fields[i], 64)
	}
	return loads
}

func (c *Collector) memoryStats() MemoryMetrics {
	data, err := os.ReadFile(c.procMeminfo)
	if err != nil {
		return MemoryMetrics{}
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
	if totalKB == 0 {
		return MemoryMetrics{}
	}

	const kbPerGB = 1024 * 1024
	usedKB := totalKB - availableKB
	return MemoryMetrics{
		Total:      roundGB(totalKB / kbPerGB),
		Used:       roundGB(usedKB / kbPerGB),
		Free:       roundGB(availableKB / kbPerGB),
		Percentage: int(usedKB / totalKB * 100),
	}
}

func (c *Collector) diskStats(ctx context.Context) DiskMetrics {
	out, err := c.runCommand(ctx, "df", "-h", "/")
	if err != nil {
		return DiskMetrics{}
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	fields := strings.Fields(lines[len(lines)-1])
	if len(fields) < 5 {
		return DiskMetrics{}
	}

	percentage, _ := strconv.Atoi(strings.TrimSuffix(fields[4], "%"))
	return DiskMetrics{
		Total:      parseDiskSize(fields[1]),
		Used:       parseDiskSize(fields[2]),
		Free:       parseDiskSize(fields[3]),
		Percentage: percentage,
	}
}

// parseDiskSize converts a df -h size like "42G" or "512M" to gigabytes.
func parseDiskSize(s string) float64 {
	if s == "" {
		return 0
	}
	value, _ := strconv.ParseFloat(strings.TrimRight(s, "TGMKi"), 64)
	switch strings.ToUpper(s[len(s)-1:]) {
	case "T":
		return value * 1024
	case "G":
		return value
	case "M":
		return value / 1024
	case "K":
		return value / (1024 * 1024)
	default:
		return value
	}
}

func (c *Collector) networkStats(ctx context.Context) NetworkMetrics {
	out, err := c.runCommand(ctx, "netstat", "-tuln")
	if err != nil {
		return NetworkMetrics{}
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	connections := len(lines) - 2
	if connections < 0 {
		connections = 0
	}

	listening := 0
	for _, line := range lines {
		if strings.Contains(line, "LISTEN") {
			listening++
		}
	}

	established := 0
	if out, err := c.runCommand(ctx, "netstat", "-tun"); err == nil {
		for _, line := range strings.Split(out, "\n") {
			if strings.Contains(line, "ESTABLISHED") {
				established++
			}
		}
	}

	return NetworkMetrics{
		Connections: connections,
		Ports:       PortCounters{Listening: listening, Established: established},
	}
}

func (c *Collector) processStats(ctx context.Context) ProcessMetrics {
	out, err := c.runCommand(ctx, "ps", "aux")
	if err != nil {
		return ProcessMetrics{}
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	stats := ProcessMetrics{}
	for i, line := range lines {
		if i == 0 {
			continue // header
		}
		stats.Total++
		fields := strings.Fields(line)
		if len(fields) < 8 {
			continue
		}
		switch {
		case strings.HasPrefix(fields[7], "R"):
			stats.Running++
		case strings.HasPrefix(fields[7], "S"):
			stats.Sleeping++
		}
	}
	return stats
}

// checkAlerts evaluates thresholds against one sample. Caller holds c.mu.
func (c *Collector) checkAlerts(metrics SystemMetrics) {
	now := metrics.Timestamp

	if metrics.CPU.Usage > 80 {
		c.alerts = append(c.alerts, Alert{
			ID:        "cpu-high-" + uuid.NewString(),
			Type:      "warning",
			Category:  "cpu",
			Title:     "Hohe CPU Auslastung",
			Message:   fmt.Sprintf("CPU Auslastung bei %.1f%%", metrics.CPU.Usage),
			Timestamp: now,
			Value:     metrics.CPU.Usage,
			Threshold: 80,
		})
	}

	switch {
	case metrics.Memory.Percentage > 85:
		c.alerts = append(c.alerts, Alert{
			ID:        "memory-high-" + uuid.NewString(),
			Type:      "error",
			Category:  "memory",
			Title:     "Kritischer Speicherverbrauch",
			Message:   fmt.Sprintf("Speicher zu %d%% belegt", metrics.Memory.Percentage),
			Timestamp: now,
			Value:     float64(metrics.Memory.Percentage),
			Threshold: 85,
		})
	case metrics.Memory.Percentage > 70:
		c.alerts = append(c.alerts, Alert{
			ID:        "memory-warning-" + uuid.NewString(),
			Type:      "warning",
			Category:  "memory",
			Title:     "Hoher Speicherverbrauch",
			Message:   fmt.Sprintf("Speicher zu %d%% belegt", metrics.Memory.Percentage),
			Timestamp: now,
			Value:     float64(metrics.Memory.Percentage),
			Threshold: 70,
		})
	}

	if metrics.Disk.Percentage > 90 {
		c.alerts = append(c.alerts, Alert{
			ID:        "disk-critical-" + uuid.NewString(),
			Type:      "error",
			Category:  "disk",
			Title:     "Festplatte fast voll",
			Message:   fmt.Sprintf("Festplatte zu %d%% belegt", metrics.Disk.Percentage),
			Timestamp: now,
			Value:     float64(metrics.Disk.Percentage),
			Threshold: 90,
		})
	}

	if metrics.CPU.Cores > 0 && len(metrics.CPU.LoadAverage) > 0 {
		loadPerCore := metrics.CPU.LoadAverage[0] / float64(metrics.CPU.Cores)
		if loadPerCore > 2 {
			c.alerts = append(c.alerts, Alert{
				ID:        "load-high-" + uuid.NewString(),
				Type:      "warning",
				Category:  "cpu",
				Title:     "Hohe Systemlast",
				Message:   fmt.Sprintf("Load Average: %.2f bei %d Kernen", metrics.CPU.LoadAverage[0], metrics.CPU.Cores),
				Timestamp: now,
				Value:     loadPerCore,
				Threshold: 2,
			})
		}
	}

	// Age out and cap the alert list.
	cutoff := now - alertMaxAge.Milliseconds()
	kept := c.alerts[:0]
	for _, alert := range c.alerts {
		if alert.Timestamp > cutoff {
			kept = append(kept, alert)
		}
	}
	c.alerts = kept
	if len(c.alerts) > maxAlerts {
		c.alerts = c.alerts[len(c.alerts)-maxAlerts:]
	}
}

func roundGB(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}

func execCommand(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	return strings.TrimSpace(string(out)), err
}
