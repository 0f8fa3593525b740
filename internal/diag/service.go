// internal/diag/service.go
package diag

import (
	"context"
	"os"
	"os/exec"
)

// Service runs the four domain analyses against the application directory.
// Command execution and environment access are injectable so probes can be
// tested without touching the real host.
type Service struct {
	BaseDir    string
	ProbePorts []int

	runCommand  func(ctx context.Context, dir, name string, args ...string) ([]byte, error)
	getenv      func(string) string
	memInfoPath string
}

// NewService creates a service using real OS dependencies.
func NewService(baseDir string, probePorts []int) *Service {
	if baseDir == "" {
		baseDir, _ = os.Getwd()
	}
	if len(probePorts) == 0 {
		probePorts = []int{3000, 8080, 5000}
	}

	return &Service{
		BaseDir:     baseDir,
		ProbePorts:  probePorts,
		runCommand:  runCommand,
		getenv:      os.Getenv,
		memInfoPath: "/proc/meminfo",
	}
}

// runCommand executes name with args in dir and returns stdout. On a
// non-zero exit the collected stdout is still returned alongside the error
// because npm tools (npm outdated) report findings through the exit code.
func runCommand(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.Output()
}
