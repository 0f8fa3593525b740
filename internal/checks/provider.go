// internal/checks/provider.go
package checks

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Check status values.
const (
	StatusPass    = "pass"
	StatusFail    = "fail"
	StatusWarning = "warning"
	StatusSkipped = "skipped"
)

// Check severity values. Severity is an independent axis from status: a
// fail can be critical or merely error.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// CheckResult is one row in a preflight run. Created once by a probe,
// immutable thereafter.
type CheckResult struct {
	ID          string            `json:"id"`
	Category    string            `json:"category"`
	Severity    string            `json:"severity"`
	Status      string            `json:"status"`
	Title       string            `json:"title"`
	Message     string            `json:"message"`
	Details     map[string]string `json:"details,omitempty"`
	Remediation string            `json:"remediation,omitempty"`
	Command     string            `json:"command,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// Provider groups related probes into a category and runs them as a
// batch. Providers never short-circuit: every probe always returns exactly
// one result, converting internal errors into fail results.
type Provider interface {
	Category() string
	RunChecks(ctx context.Context) []CheckResult
}

func newResult(category string, r CheckResult) CheckResult {
	r.ID = category + "-" + uuid.NewString()
	r.Category = category
	r.Timestamp = time.Now().UTC()
	return r
}
