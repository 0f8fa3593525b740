// internal/monitor/collector_test.go
package monitor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeProcFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// testCollector wires deterministic inputs: an idle CPU, 8GB memory at
// 50%, a half-full disk and a small process table.
func testCollector(t *testing.T) *Collector {
	t.Helper()
	c := NewCollector()
	c.sampleGap = 0
	c.procStat = writeProcFile(t, "stat", "cpu  100 0 100 800 0 0 0 0 0 0\n")
	c.procLoadavg = writeProcFile(t, "loadavg", "0.50 0.40 0.30 1/200 12345\n")
	c.procMeminfo = writeProcFile(t, "meminfo", strings.Join([]string{
		"MemTotal:        8388608 kB",
		"MemAvailable:    4194304 kB",
	}, "\n"))
	c.runCommand = func(ctx context.Context, name string, args ...string) (string, error) {
		switch name {
		case "df":
			return "Filesystem Size Used Avail Use% Mounted on\n/dev/sda1 100G 50G 50G 50% /", nil
		case "netstat":
			if len(args) > 0 && args[0] == "-tuln" {
				return "Active Internet connections\nProto Recv-Q\ntcp 0 0 0.0.0.0:22 LISTEN\ntcp 0 0 0.0.0.0:80 LISTEN", nil
			}
			return "tcp 0 0 10.0.0.1:22 10.0.0.2:51000 ESTABLISHED", nil
		case "ps":
			return strings.Join([]string{
				"USER PID %CPU %MEM VSZ RSS TTY STAT START TIME COMMAND",
				"root 1 0.0 0.1 1000 500 ? Ss 10:00 0:01 /sbin/init",
				"app 42 1.0 2.0 2000 900 ? R 10:01 0:02 node dist/index.js",
				"app 43 0.0 0.5 1500 600 ? S 10:01 0:00 sleep 60",
			}, "\n"), nil
		}
		return "", errors.New("unexpected command: " + name)
	}
	return c
}

func TestCollectMetrics(t *testing.T) {
	c := testCollector(t)

	metrics := c.Collect(context.Background())

	if metrics.Timestamp == 0 {
		t.Error("timestamp not set")
	}
	if metrics.CPU.Cores <= 0 {
		t.Errorf("cores = %d, want > 0", metrics.CPU.Cores)
	}
	if metrics.CPU.LoadAverage[0] != 0.5 {
		t.Errorf("load = %v, want 0.5", metrics.CPU.LoadAverage[0])
	}
	if metrics.Memory.Total != 8 {
		t.Errorf("memory total = %v, want 8", metrics.Memory.Total)
	}
	if metrics.Memory.Percentage != 50 {
		t.Errorf("memory percentage = %d, want 50", metrics.Memory.Percentage)
	}
	if metrics.Disk.Total != 100 || metrics.Disk.Percentage != 50 {
		t.Errorf("disk = %+v, want 100G at 50%%", metrics.Disk)
	}
	if metrics.Network.Ports.Listening != 2 {
		t.Errorf("listening = %d, want 2", metrics.Network.Ports.Listening)
	}
	if metrics.Network.Ports.Established != 1 {
		t.Errorf("established = %d, want 1", metrics.Network.Ports.Established)
	}
	if metrics.Processes.Total != 3 {
		t.Errorf("processes = %d, want 3", metrics.Processes.Total)
	}
	if metrics.Processes.Running != 1 || metrics.Processes.Sleeping != 2 {
		t.Errorf("running/sleeping = %d/%d, want 1/2", metrics.Processes.Running, metrics.Processes.Sleeping)
	}
}

func TestCollectToleratesBrokenProbes(t *testing.T) {
	c := NewCollector()
	c.sampleGap = 0
	missing := filepath.Join(t.TempDir(), "missing")
	c.procStat = missing
	c.procLoadavg = missing
	c.procMeminfo = missing
	c.runCommand = func(ctx context.Context, name string, args ...string) (string, error) {
		return "", errors.New("not available")
	}

	metrics := c.Collect(context.Background())

	if metrics.Timestamp == 0 {
		t.Error("timestamp not set")
	}
	if metrics.Memory.Total != 0 || metrics.Disk.Total != 0 {
		t.Error("broken probes should yield zero values")
	}
}

func TestHistoryBounded(t *testing.T) {
	c := testCollector(t)

	for i := 0; i < maxHistoryLength+20; i++ {
		c.Collect(context.Background())
	}

	history := c.History()
	if len(history) != maxHistoryLength {
		t.Errorf("history = %d samples, want %d", len(history), maxHistoryLength)
	}

	latest, ok := c.Latest()
	if !ok {
		t.Fatal("Latest returned no sample")
	}
	if latest.Timestamp != history[len(history)-1].Timestamp {
		t.Error("Latest does not match the newest history entry")
	}
}

func TestLatestEmpty(t *testing.T) {
	c := testCollector(t)
	if _, ok := c.Latest(); ok {
		t.Error("Latest should report no sample before the first collect")
	}
}

func TestMemoryAlerts(t *testing.T) {
	c := testCollector(t)
	// 90% used memory.
	c.procMeminfo = writeProcFile(t, "meminfo-high", strings.Join([]string{
		"MemTotal:        8388608 kB",
		"MemAvailable:     838860 kB",
	}, "\n"))

	c.Collect(context.Background())

	alerts := c.Alerts()
	if len(alerts) == 0 {
		t.Fatal("expected a memory alert")
	}

	var memory *Alert
	for i := range alerts {
		if alerts[i].Category == "memory" {
			memory = &alerts[i]
		}
	}
	if memory == nil {
		t.Fatalf("no memory alert in %+v", alerts)
	}
	if memory.Type != "error" {
		t.Errorf("memory alert type = %q, want error (above 85%%)", memory.Type)
	}
	if memory.Title != "Kritischer Speicherverbrauch" {
		t.Errorf("title = %q", memory.Title)
	}
}

func TestMemoryWarningBand(t *testing.T) {
	c := testCollector(t)
	// 75% used memory sits in the warning band.
	c.procMeminfo = writeProcFile(t, "meminfo-warn", strings.Join([]string{
		"MemTotal:        8388608 kB",
		"MemAvailable:    2097152 kB",
	}, "\n"))

	c.Collect(context.Background())

	for _, alert := range c.Alerts() {
		if alert.Category == "memory" {
			if alert.Type != "warning" {
				t.Errorf("memory alert type = %q, want warning", alert.Type)
			}
			return
		}
	}
	t.Fatal("expected a memory warning")
}

func TestDiskAlert(t *testing.T) {
	c := testCollector(t)
	base := c.runCommand
	c.runCommand = func(ctx context.Context, name string, args ...string) (string, error) {
		if name == "df" {
			return "Filesystem Size Used Avail Use% Mounted on\n/dev/sda1 100G 95G 5G 95% /", nil
		}
		return base(ctx, name, args...)
	}

	c.Collect(context.Background())

	for _, alert := range c.Alerts() {
		if alert.Category == "disk" {
			if alert.Type != "error" {
				t.Errorf("disk alert type = %q, want error", alert.Type)
			}
			return
		}
	}
	t.Fatal("expected a disk alert")
}

func TestAlertsCapped(t *testing.T) {
	c := testCollector(t)
	// Persistently high memory keeps generating alerts.
	c.procMeminfo = writeProcFile(t, "meminfo-cap", strings.Join([]string{
		"MemTotal:        8388608 kB",
		"MemAvailable:     419430 kB",
	}, "\n"))

	for i := 0; i < maxAlerts+30; i++ {
		c.Collect(context.Background())
	}

	if got := len(c.Alerts()); got > maxAlerts {
		t.Errorf("alerts = %d, want at most %d", got, maxAlerts)
	}
}

func TestAlertsMostRecentFirst(t *testing.T) {
	c := testCollector(t)
	c.procMeminfo = writeProcFile(t, "meminfo-order", strings.Join([]string{
		"MemTotal:        8388608 kB",
		"MemAvailable:     419430 kB",
	}, "\n"))

	now := time.Now()
	stamp := 0
	c.now = func() time.Time {
		stamp++
		return now.Add(time.Duration(stamp) * time.Second)
	}

	c.Collect(context.Background())
	c.Collect(context.Background())

	alerts := c.Alerts()
	if len(alerts) < 2 {
		t.Fatalf("alerts = %d, want at least 2", len(alerts))
	}
	if alerts[0].Timestamp < alerts[1].Timestamp {
		t.Error("alerts should be ordered most recent first")
	}
}

func TestClearAlerts(t *testing.T) {
	c := testCollector(t)
	c.procMeminfo = writeProcFile(t, "meminfo-clear", strings.Join([]string{
		"MemTotal:        8388608 kB",
		"MemAvailable:     419430 kB",
	}, "\n"))

	c.Collect(context.Background())
	if len(c.Alerts()) == 0 {
		t.Fatal("expected at least one alert")
	}

	c.ClearAlerts()
	if got := len(c.Alerts()); got != 0 {
		t.Errorf("alerts after clear = %d, want 0", got)
	}
}

func TestParseDiskSize(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"100G", 100},
		{"2T", 2048},
		{"512M", 0.5},
		{"", 0},
	}
	for _, tc := range cases {
		if got := parseDiskSize(tc.in); got != tc.want {
			t.Errorf("parseDiskSize(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
