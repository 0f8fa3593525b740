// internal/diag/network.go
package diag

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/hostdiag/preflight/internal/protocol"
)

// TestNetworkConnectivity probes the configured ports, checks outbound
// connectivity and inspects the firewall state.
func (s *Service) TestNetworkConnectivity(ctx context.Context) (*protocol.NetworkTest, error) {
	portTests := make([]protocol.PortTest, 0, len(s.ProbePorts))
	for _, port := range s.ProbePorts {
		portTests = append(portTests, s.testPort(ctx, port))
	}

	internet, dns := s.checkInternet(ctx)

	return &protocol.NetworkTest{
		PortTests:          portTests,
		InternetConnection: internet,
		DNSResolution:      dns,
		FirewallStatus:     s.firewallStatus(ctx),
	}, nil
}

// testPort tries to bind the port. A failed bind means something else holds
// it; lsof is asked for the owning pid, best effort.
func (s *Service) testPort(ctx context.Context, port int) protocol.PortTest {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err == nil {
		ln.Close()
		return protocol.PortTest{Port: port, Available: true}
	}

	result := protocol.PortTest{Port: port, Available: false}
	out, err := s.runCommand(ctx, s.BaseDir, "lsof", "-ti:"+strconv.Itoa(port))
	if err != nil {
		return result
	}

	first := strings.TrimSpace(strings.SplitN(strings.TrimSpace(string(out)), "\n", 2)[0])
	if pid, err := strconv.Atoi(first); err == nil {
		result.PID = pid
	}
	return result
}

// checkInternet pings google.com, falling back to a raw IP to distinguish
// DNS problems from a dead uplink.
func (s *Service) checkInternet(ctx context.Context) (internet, dns bool) {
	if _, err := s.runCommand(ctx, s.BaseDir, "ping", "-c", "1", "-W", "5", "google.com"); err == nil {
		return true, true
	}
	if _, err := s.runCommand(ctx, s.BaseDir, "ping", "-c", "1", "-W", "5", "8.8.8.8"); err == nil {
		return true, false
	}
	return false, false
}

func (s *Service) firewallStatus(ctx context.Context) string {
	out, err := s.runCommand(ctx, s.BaseDir, "ufw", "status")
	if err != nil {
		return "Prüfung erforderlich"
	}

	switch {
	case strings.Contains(string(out), "inactive"):
		return "Inaktiv"
	case strings.Contains(string(out), "active"):
		return "Aktiv"
	default:
		return "Prüfung erforderlich"
	}
}
