// internal/diag/orchestrator.go
package diag

import (
	"context"
	"log"
	"strings"

	"github.com/hostdiag/preflight/internal/protocol"
	"github.com/hostdiag/preflight/internal/store"
)

// ProgressSink receives progress events for live subscribers. Delivery is
// fire-and-forget; the orchestrator never waits on it.
type ProgressSink interface {
	Broadcast(reportID string, progress int, message string)
}

// Orchestrator drives one diagnosis run to a terminal state. The four
// stages run strictly in order; a failing stage is logged and skipped, it
// never aborts the run.
type Orchestrator struct {
	store    store.Store
	progress ProgressSink

	// Stage functions, split out from Service so tests can fail
	// individual stages.
	systemFn       func(ctx context.Context) (*protocol.SystemInfo, error)
	networkFn      func(ctx context.Context) (*protocol.NetworkTest, error)
	permissionsFn  func(ctx context.Context) (*protocol.PermissionCheck, error)
	dependenciesFn func(ctx context.Context) (*protocol.DependencyAnalysis, error)
}

// NewOrchestrator wires the diagnostics service stages to the store and
// progress sink.
func NewOrchestrator(st store.Store, progress ProgressSink, svc *Service) *Orchestrator {
	return &Orchestrator{
		store:     st,
		progress:  progress,
		systemFn:  svc.GetSystemInfo,
		networkFn: svc.TestNetworkConnectivity,
		permissionsFn: func(ctx context.Context) (*protocol.PermissionCheck, error) {
			return svc.CheckPermissions()
		},
		dependenciesFn: svc.AnalyzeDependencies,
	}
}

// Start creates a new report and returns it immediately; the stages run in
// a background goroutine. A started run is never cancelled, it always
// reaches completed or failed.
func (o *Orchestrator) Start(ctx context.Context) (*protocol.Report, error) {
	report, err := o.store.CreateReport()
	if err != nil {
		return nil, err
	}

	go o.run(context.WithoutCancel(ctx), report.ID)

	return report, nil
}

func (o *Orchestrator) run(ctx context.Context, reportID string) {
	log.Printf("Diagnosis %s started", reportID)

	var logs []string
	var sys *protocol.SystemInfo
	var network *protocol.NetworkTest
	var perms *protocol.PermissionCheck
	var deps *protocol.DependencyAnalysis

	o.progress.Broadcast(reportID, 10, "Systemumgebung wird überprüft...")
	if v, err := o.systemFn(ctx); err != nil {
		logs = append(logs, "[ERROR] Systemcheck fehlgeschlagen: "+err.Error())
	} else if err := o.store.UpdateReport(reportID, store.ReportUpdate{SystemInfo: v, Progress: intPtr(25)}); err != nil {
		logs = append(logs, "[ERROR] Systemcheck fehlgeschlagen: "+err.Error())
	} else {
		sys = v
		logs = append(logs, "[SUCCESS] Systemumgebung erfolgreich geprüft")
	}

	o.progress.Broadcast(reportID, 25, "Netzwerkverbindung wird getestet...")
	if v, err := o.networkFn(ctx); err != nil {
		logs = append(logs, "[ERROR] Netzwerktest fehlgeschlagen: "+err.Error())
	} else if err := o.store.UpdateReport(reportID, store.ReportUpdate{NetworkTests: v, Progress: intPtr(50)}); err != nil {
		logs = append(logs, "[ERROR] Netzwerktest fehlgeschlagen: "+err.Error())
	} else {
		network = v
		logs = append(logs, "[SUCCESS] Netzwerkverbindung erfolgreich getestet")
	}

	o.progress.Broadcast(reportID, 50, "Dateiberechtigungen werden geprüft...")
	if v, err := o.permissionsFn(ctx); err != nil {
		logs = append(logs, "[ERROR] Berechtigungscheck fehlgeschlagen: "+err.Error())
	} else if err := o.store.UpdateReport(reportID, store.ReportUpdate{PermissionChecks: v, Progress: intPtr(75)}); err != nil {
		logs = append(logs, "[ERROR] Berechtigungscheck fehlgeschlagen: "+err.Error())
	} else {
		perms = v
		logs = append(logs, "[SUCCESS] Dateiberechtigungen erfolgreich geprüft")
	}

	o.progress.Broadcast(reportID, 75, "Abhängigkeiten werden analysiert...")
	if v, err := o.dependenciesFn(ctx); err != nil {
		logs = append(logs, "[ERROR] Abhängigkeitsanalyse fehlgeschlagen: "+err.Error())
	} else if err := o.store.UpdateReport(reportID, store.ReportUpdate{DependencyAnalysis: v, Progress: intPtr(90)}); err != nil {
		logs = append(logs, "[ERROR] Abhängigkeitsanalyse fehlgeschlagen: "+err.Error())
	} else {
		deps = v
		logs = append(logs, "[SUCCESS] Abhängigkeiten erfolgreich analysiert")
	}

	o.progress.Broadcast(reportID, 95, "Bericht wird erstellt...")
	aiReport := GenerateAIReport(sys, network, perms, deps)

	joinedLogs := strings.Join(logs, "\n")
	err := o.store.UpdateReport(reportID, store.ReportUpdate{
		Logs:     &joinedLogs,
		AIReport: &aiReport,
		Status:   strPtr(protocol.StatusCompleted),
		Progress: intPtr(100),
	})
	if err != nil {
		// Run-level failure: the only path to status=failed.
		log.Printf("Diagnosis %s failed: %v", reportID, err)
		failedLogs := strings.Join(append(logs, "[FATAL ERROR] "+err.Error()), "\n")
		o.store.UpdateReport(reportID, store.ReportUpdate{
			Status: strPtr(protocol.StatusFailed),
			Logs:   &failedLogs,
		})
		o.progress.Broadcast(reportID, 100, "Kritischer Fehler: "+err.Error())
		return
	}

	o.progress.Broadcast(reportID, 100, "Diagnose abgeschlossen")
	log.Printf("Diagnosis %s completed", reportID)
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }
