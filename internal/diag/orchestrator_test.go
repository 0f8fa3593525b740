// internal/diag/orchestrator_test.go
package diag

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hostdiag/preflight/internal/protocol"
	"github.com/hostdiag/preflight/internal/store"
)

// fakeStore is an in-memory store recording every update.
type fakeStore struct {
	mu      sync.Mutex
	report  *protocol.Report
	updates []store.ReportUpdate

	// failFinal makes the completed/failed terminal update fail once.
	failFinal bool
}

func (f *fakeStore) CreateReport() (*protocol.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.report = &protocol.Report{
		ID:        "report-1",
		Timestamp: time.Now().UTC(),
		Status:    protocol.StatusRunning,
	}
	return f.report, nil
}

func (f *fakeStore) GetReport(id string) (*protocol.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.report == nil || f.report.ID != id {
		return nil, store.ErrNotFound
	}
	copied := *f.report
	return &copied, nil
}

func (f *fakeStore) UpdateReport(id string, upd store.ReportUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.report == nil || f.report.ID != id {
		return store.ErrNotFound
	}
	if f.failFinal && upd.Status != nil && *upd.Status == protocol.StatusCompleted {
		return errors.New("disk full")
	}

	f.updates = append(f.updates, upd)
	if upd.Status != nil {
		f.report.Status = *upd.Status
	}
	if upd.Progress != nil {
		f.report.Progress = *upd.Progress
	}
	if upd.SystemInfo != nil {
		f.report.SystemInfo = upd.SystemInfo
	}
	if upd.NetworkTests != nil {
		f.report.NetworkTests = upd.NetworkTests
	}
	if upd.PermissionChecks != nil {
		f.report.PermissionChecks = upd.PermissionChecks
	}
	if upd.DependencyAnalysis != nil {
		f.report.DependencyAnalysis = upd.DependencyAnalysis
	}
	if upd.Logs != nil {
		f.report.Logs = *upd.Logs
	}
	if upd.AIReport != nil {
		f.report.AIReport = *upd.AIReport
	}
	return nil
}

func (f *fakeStore) ListReports() ([]*protocol.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.report == nil {
		return nil, nil
	}
	copied := *f.report
	return []*protocol.Report{&copied}, nil
}

func (f *fakeStore) Close() error { return nil }

// recordingSink collects broadcast events and signals when the terminal
// event (progress 100) arrives.
type recordingSink struct {
	mu     sync.Mutex
	events []protocol.ProgressEvent
	done   chan struct{}
}

func newRecordingSink() *recordingSink {
	return &recordingSink{done: make(chan struct{})}
}

func (s *recordingSink) Broadcast(reportID string, progress int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, protocol.ProgressEvent{
		Type: "progress", ReportID: reportID, Progress: progress, Message: message,
	})
	if progress == 100 {
		close(s.done)
	}
}

func (s *recordingSink) wait(t *testing.T) []protocol.ProgressEvent {
	t.Helper()
	select {
	case <-s.done:
	case <-time.After(5 * time.Second):
		t.Fatal("run did not reach a terminal broadcast")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.ProgressEvent(nil), s.events...)
}

func testOrchestrator(st store.Store, sink ProgressSink) *Orchestrator {
	return &Orchestrator{
		store:    st,
		progress: sink,
		systemFn: func(ctx context.Context) (*protocol.SystemInfo, error) {
			return &protocol.SystemInfo{NodeVersion: "v20.0.0"}, nil
		},
		networkFn: func(ctx context.Context) (*protocol.NetworkTest, error) {
			return &protocol.NetworkTest{InternetConnection: true}, nil
		},
		permissionsFn: func(ctx context.Context) (*protocol.PermissionCheck, error) {
			return &protocol.PermissionCheck{}, nil
		},
		dependenciesFn: func(ctx context.Context) (*protocol.DependencyAnalysis, error) {
			return &protocol.DependencyAnalysis{PackageJSONValid: true}, nil
		},
	}
}

func TestRunCompletesWithMonotonicProgress(t *testing.T) {
	st := &fakeStore{}
	sink := newRecordingSink()
	orch := testOrchestrator(st, sink)

	report, err := orch.Start(context.Background())
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if report.Status != protocol.StatusRunning {
		t.Errorf("initial status = %q, want running", report.Status)
	}

	events := sink.wait(t)

	last := -1
	for _, event := range events {
		if event.ReportID != report.ID {
			t.Errorf("event for report %q, want %q", event.ReportID, report.ID)
		}
		if event.Progress < last {
			t.Errorf("progress went backwards: %d after %d", event.Progress, last)
		}
		last = event.Progress
	}
	if last != 100 {
		t.Errorf("final progress = %d, want 100", last)
	}

	final, err := st.GetReport(report.ID)
	if err != nil {
		t.Fatalf("GetReport error: %v", err)
	}
	if final.Status != protocol.StatusCompleted {
		t.Errorf("final status = %q, want completed", final.Status)
	}
	if final.Progress != 100 {
		t.Errorf("final progress = %d, want 100", final.Progress)
	}
	if final.SystemInfo == nil || final.NetworkTests == nil || final.PermissionChecks == nil || final.DependencyAnalysis == nil {
		t.Error("all four analyses should be persisted")
	}
	if !strings.Contains(final.Logs, "[SUCCESS] Systemumgebung erfolgreich geprüft") {
		t.Errorf("logs missing system success line:\n%s", final.Logs)
	}
	if final.AIReport == "" {
		t.Error("AIReport should be set")
	}
}

func TestRunToleratesStageFailures(t *testing.T) {
	st := &fakeStore{}
	sink := newRecordingSink()
	orch := testOrchestrator(st, sink)
	orch.networkFn = func(ctx context.Context) (*protocol.NetworkTest, error) {
		return nil, errors.New("ping unavailable")
	}
	orch.dependenciesFn = func(ctx context.Context) (*protocol.DependencyAnalysis, error) {
		return nil, errors.New("npm missing")
	}

	report, err := orch.Start(context.Background())
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}
	sink.wait(t)

	final, err := st.GetReport(report.ID)
	if err != nil {
		t.Fatalf("GetReport error: %v", err)
	}

	// Stage failures never fail the run.
	if final.Status != protocol.StatusCompleted {
		t.Errorf("status = %q, want completed", final.Status)
	}
	if final.NetworkTests != nil {
		t.Error("failed stage should leave its field nil")
	}
	if final.SystemInfo == nil || final.PermissionChecks == nil {
		t.Error("successful stages should still be persisted")
	}
	if !strings.Contains(final.Logs, "[ERROR] Netzwerktest fehlgeschlagen: ping unavailable") {
		t.Errorf("logs missing network error line:\n%s", final.Logs)
	}
	if !strings.Contains(final.Logs, "[ERROR] Abhängigkeitsanalyse fehlgeschlagen: npm missing") {
		t.Errorf("logs missing dependency error line:\n%s", final.Logs)
	}
}

func TestRunFailsOnFinalStoreError(t *testing.T) {
	st := &fakeStore{failFinal: true}
	sink := newRecordingSink()
	orch := testOrchestrator(st, sink)

	report, err := orch.Start(context.Background())
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}
	events := sink.wait(t)

	final, err := st.GetReport(report.ID)
	if err != nil {
		t.Fatalf("GetReport error: %v", err)
	}
	if final.Status != protocol.StatusFailed {
		t.Errorf("status = %q, want failed", final.Status)
	}
	if !strings.Contains(final.Logs, "[FATAL ERROR]") {
		t.Errorf("logs missing fatal line:\n%s", final.Logs)
	}

	lastEvent := events[len(events)-1]
	if !strings.HasPrefix(lastEvent.Message, "Kritischer Fehler:") {
		t.Errorf("terminal message = %q, want Kritischer Fehler prefix", lastEvent.Message)
	}
}
