// internal/diag/network_test.go
package diag

import (
	"context"
	"net"
	"strconv"
	"testing"
)

func TestTestPortBusy(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	svc := NewService(t.TempDir(), []int{port})
	svc.runCommand = stubCommands(map[string]string{
		"lsof -ti:" + strconv.Itoa(port): "4321\n9999\n",
	})

	result := svc.testPort(context.Background(), port)
	if result.Available {
		t.Fatalf("port %d should be busy", port)
	}
	if result.PID != 4321 {
		t.Errorf("PID = %d, want first lsof pid 4321", result.PID)
	}
}

func TestTestPortBusyWithoutLsof(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	svc := NewService(t.TempDir(), []int{port})
	svc.runCommand = stubCommands(map[string]string{})

	result := svc.testPort(context.Background(), port)
	if result.Available {
		t.Fatalf("port %d should be busy", port)
	}
	// No invented pid when lsof is unavailable.
	if result.PID != 0 {
		t.Errorf("PID = %d, want 0", result.PID)
	}
}

func TestCheckInternetDNSFallback(t *testing.T) {
	svc := NewService(t.TempDir(), nil)
	svc.runCommand = stubCommands(map[string]string{
		"ping -c 1 -W 5 8.8.8.8": "1 packets transmitted, 1 received",
	})

	internet, dns := svc.checkInternet(context.Background())
	if !internet {
		t.Error("internet should be reachable via the raw IP")
	}
	if dns {
		t.Error("dns should be reported broken when only the IP responds")
	}
}

func TestCheckInternetDown(t *testing.T) {
	svc := NewService(t.TempDir(), nil)
	svc.runCommand = stubCommands(map[string]string{})

	internet, dns := svc.checkInternet(context.Background())
	if internet || dns {
		t.Error("nothing reachable should yield false/false")
	}
}

func TestFirewallStatus(t *testing.T) {
	cases := []struct {
		output string
		fails  bool
		want   string
	}{
		{output: "Status: inactive", want: "Inaktiv"},
		{output: "Status: active", want: "Aktiv"},
		{output: "weird output", want: "Prüfung erforderlich"},
		{fails: true, want: "Prüfung erforderlich"},
	}

	for _, tc := range cases {
		svc := NewService(t.TempDir(), nil)
		if tc.fails {
			svc.runCommand = stubCommands(map[string]string{})
		} else {
			svc.runCommand = stubCommands(map[string]string{"ufw status": tc.output})
		}

		if got := svc.firewallStatus(context.Background()); got != tc.want {
			t.Errorf("firewallStatus(%q) = %q, want %q", tc.output, got, tc.want)
		}
	}
}
