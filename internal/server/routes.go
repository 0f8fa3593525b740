// internal/server/routes.go
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/hostdiag/preflight/internal/diag"
	"github.com/hostdiag/preflight/internal/fix"
	"github.com/hostdiag/preflight/internal/monitor"
	"github.com/hostdiag/preflight/internal/protocol"
	"github.com/hostdiag/preflight/internal/store"
)

// handlers bundles the dependencies of the REST layer.
type handlers struct {
	store     store.Store
	svc       *diag.Service
	orch      *diag.Orchestrator
	engine    *fix.Engine
	executor  *fix.Executor
	hub       *Hub
	collector *monitor.Collector
}

func newMux(h *handlers) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/diagnosis", h.startDiagnosis)
	mux.HandleFunc("GET /api/diagnosis", h.listReports)
	mux.HandleFunc("GET /api/diagnosis/{id}", h.getReport)

	mux.HandleFunc("POST /api/diagnosis/{id}/system-check", h.systemCheck)
	mux.HandleFunc("POST /api/diagnosis/{id}/network-check", h.networkCheck)
	mux.HandleFunc("POST /api/diagnosis/{id}/permission-check", h.permissionCheck)
	mux.HandleFunc("POST /api/diagnosis/{id}/dependency-check", h.dependencyCheck)

	mux.HandleFunc("GET /api/diagnosis/{id}/export-logs", h.exportLogs)
	mux.HandleFunc("GET /api/diagnosis/{id}/export-ai-report", h.exportAIReport)

	mux.HandleFunc("GET /api/diagnosis/{id}/fix-suggestions", h.fixSuggestions)
	mux.HandleFunc("POST /api/diagnosis/{id}/execute-fix", h.executeFix)

	mux.Handle("GET /ws/diagnostics", h.hub)

	mux.HandleFunc("GET /api/monitoring/metrics", h.monitoringMetrics)
	mux.HandleFunc("GET /api/monitoring/history", h.monitoringHistory)
	mux.HandleFunc("GET /api/monitoring/alerts", h.monitoringAlerts)
	mux.HandleFunc("DELETE /api/monitoring/alerts", h.clearAlerts)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func (h *handlers) startDiagnosis(w http.ResponseWriter, r *http.Request) {
	report, err := h.orch.Start(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to start diagnosis: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *handlers) listReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.store.ListReports()
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to get reports: %v", err))
		return
	}
	if reports == nil {
		reports = []*protocol.Report{}
	}
	writeJSON(w, http.StatusOK, reports)
}

func (h *handlers) getReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.store.GetReport(r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Report not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to get report: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// systemCheck reruns the system probe and persists only that field.
func (h *handlers) systemCheck(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.GetSystemInfo(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("System check failed: %v", err))
		return
	}

	if err := h.updateField(r.PathValue("id"), store.ReportUpdate{SystemInfo: info}, w); err != nil {
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *handlers) networkCheck(w http.ResponseWriter, r *http.Request) {
	tests, err := h.svc.TestNetworkConnectivity(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Network check failed: %v", err))
		return
	}

	if err := h.updateField(r.PathValue("id"), store.ReportUpdate{NetworkTests: tests}, w); err != nil {
		return
	}
	writeJSON(w, http.StatusOK, tests)
}

func (h *handlers) permissionCheck(w http.ResponseWriter, r *http.Request) {
	checks, err := h.svc.CheckPermissions()
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Permission check failed: %v", err))
		return
	}

	if err := h.updateField(r.PathValue("id"), store.ReportUpdate{PermissionChecks: checks}, w); err != nil {
		return
	}
	writeJSON(w, http.StatusOK, checks)
}

func (h *handlers) dependencyCheck(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.svc.AnalyzeDependencies(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Dependency check failed: %v", err))
		return
	}

	if err := h.updateField(r.PathValue("id"), store.ReportUpdate{DependencyAnalysis: analysis}, w); err != nil {
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

// updateField persists a single-field update, writing the HTTP error
// itself. A non-nil return means the response is already written.
func (h *handlers) updateField(id string, upd store.ReportUpdate, w http.ResponseWriter) error {
	err := h.store.UpdateReport(id, upd)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Report not found")
		return err
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to update report: %v", err))
		return err
	}
	return nil
}

func (h *handlers) exportLogs(w http.ResponseWriter, r *http.Request) {
	report, err := h.store.GetReport(r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Report not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Export failed: %v", err))
		return
	}

	logs := report.Logs
	if logs == "" {
		logs = "No logs available"
	}
	w.Header().Set("Content-Type", "text/plain")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "diagnosis-"+report.ID+".log"))
	w.Write([]byte(logs))
}

func (h *handlers) exportAIReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.store.GetReport(r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Report not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Export failed: %v", err))
		return
	}

	aiReport := report.AIReport
	if aiReport == "" {
		aiReport = "No AI report available"
	}
	w.Header().Set("Content-Type", "text/plain")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "ai-report-"+report.ID+".txt"))
	w.Write([]byte(aiReport))
}

func (h *handlers) fixSuggestions(w http.ResponseWriter, r *http.Request) {
	report, err := h.store.GetReport(r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Report not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to generate fix suggestions: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, h.engine.Generate(report))
}

func (h *handlers) executeFix(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SuggestionID string `json:"suggestionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.SuggestionID == "" {
		writeError(w, http.StatusBadRequest, "Invalid request: suggestionId is required")
		return
	}

	report, err := h.store.GetReport(r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Report not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to execute fix: %v", err))
		return
	}

	if report.Status != protocol.StatusCompleted {
		writeError(w, http.StatusBadRequest, "Can only execute fixes on completed diagnoses")
		return
	}

	// Regenerate instead of trusting client-supplied suggestion content.
	var suggestion *protocol.FixSuggestion
	for _, s := range h.engine.Generate(report) {
		if s.ID == body.SuggestionID {
			found := s
			suggestion = &found
			break
		}
	}
	if suggestion == nil {
		writeError(w, http.StatusNotFound, "Fix suggestion not found")
		return
	}

	if !suggestion.IsExecutable {
		writeError(w, http.StatusBadRequest, "This fix suggestion cannot be executed automatically")
		return
	}

	log.Printf("Executing fix %s for report %s", suggestion.ID, report.ID)
	writeJSON(w, http.StatusOK, h.executor.Execute(r.Context(), *suggestion))
}

func (h *handlers) monitoringMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, ok := h.collector.Latest()
	if !ok {
		metrics = h.collector.Collect(r.Context())
	}
	writeJSON(w, http.StatusOK, metrics)
}

func (h *handlers) monitoringHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.collector.History())
}

func (h *handlers) monitoringAlerts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.collector.Alerts())
}

func (h *handlers) clearAlerts(w http.ResponseWriter, r *http.Request) {
	h.collector.ClearAlerts()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
