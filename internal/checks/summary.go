// internal/checks/summary.go
package checks

import (
	"context"
	"time"

	"github.com/hostdiag/preflight/internal/protocol"
)

// Summary aggregates one preflight run for the CLI.
type Summary struct {
	Timestamp      time.Time                   `json:"timestamp"`
	Environment    protocol.HostingEnvironment `json:"environment"`
	Checks         []CheckResult               `json:"checks"`
	NodeVersion    string                      `json:"nodeVersion"`
	NpmVersion     string                      `json:"npmVersion"`
	BuildStatus    string                      `json:"buildStatus"` // built, partial, not_built, error
	CriticalIssues int                         `json:"criticalIssues"`
	Errors         int                         `json:"errors"`
	Warnings       int                         `json:"warnings"`
	Passed         int                         `json:"passed"`
}

// RunAll runs the system, build and platform providers in order and
// aggregates their results.
func RunAll(ctx context.Context, dir string) Summary {
	systemProvider := NewSystemProvider(dir)
	buildProvider := NewBuildProvider(dir)
	platformProvider := NewPlatformProvider(dir)

	var results []CheckResult
	results = append(results, systemProvider.RunChecks(ctx)...)
	results = append(results, buildProvider.RunChecks(ctx)...)
	results = append(results, platformProvider.RunChecks(ctx)...)

	nodeVersion, _ := systemProvider.runCommand(ctx, "node", "--version")
	npmVersion, _ := systemProvider.runCommand(ctx, "npm", "--version")
	if nodeVersion == "" {
		nodeVersion = "unknown"
	}
	if npmVersion == "" {
		npmVersion = "unknown"
	}

	return NewSummary(results, platformProvider.DetectEnvironment(ctx), nodeVersion, npmVersion)
}

// NewSummary computes the aggregate counters from individual results.
func NewSummary(results []CheckResult, env protocol.HostingEnvironment, nodeVersion, npmVersion string) Summary {
	summary := Summary{
		Timestamp:   time.Now().UTC(),
		Environment: env,
		Checks:      results,
		NodeVersion: nodeVersion,
		NpmVersion:  npmVersion,
		BuildStatus: "error",
	}

	for _, check := range results {
		switch {
		case check.Status == StatusFail && check.Severity == SeverityCritical:
			summary.CriticalIssues++
		case check.Status == StatusFail && check.Severity == SeverityError:
			summary.Errors++
		case check.Status == StatusWarning:
			summary.Warnings++
		case check.Status == StatusPass:
			summary.Passed++
		}

		if check.Title == "Build-Verzeichnis" {
			switch check.Status {
			case StatusPass:
				summary.BuildStatus = "built"
			case StatusWarning:
				summary.BuildStatus = "partial"
			case StatusFail:
				summary.BuildStatus = "not_built"
			}
		}
	}

	return summary
}
