// internal/store/store.go
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/hostdiag/preflight/internal/protocol"
)

// ErrNotFound is returned when no report exists for the given id.
var ErrNotFound = errors.New("report not found")

const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ReportUpdate is a partial update; nil fields are left untouched.
// Updates are whole-field replacements with last-write-wins semantics.
type ReportUpdate struct {
	Status             *string
	Progress           *int
	SystemInfo         *protocol.SystemInfo
	NetworkTests       *protocol.NetworkTest
	PermissionChecks   *protocol.PermissionCheck
	DependencyAnalysis *protocol.DependencyAnalysis
	Logs               *string
	AIReport           *string
}

// Store is the report storage contract. The orchestrator and the HTTP
// layer only depend on this interface.
type Store interface {
	CreateReport() (*protocol.Report, error)
	GetReport(id string) (*protocol.Report, error)
	UpdateReport(id string, upd ReportUpdate) error
	ListReports() ([]*protocol.Report, error)
	Close() error
}

// DB wraps the SQLite connection backing the report store
type DB struct {
	db *sql.DB

	// NewID generates report ids; overridable in tests.
	NewID func() string
}

// NewDB opens or creates the SQLite database
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrent access
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS diagnostic_reports (
		id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'running',
		progress INTEGER NOT NULL DEFAULT 0,
		system_info TEXT,
		network_tests TEXT,
		permission_checks TEXT,
		dependency_analysis TEXT,
		logs TEXT NOT NULL DEFAULT '',
		ai_report TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_reports_timestamp ON diagnostic_reports(timestamp);
	CREATE INDEX IF NOT EXISTS idx_reports_status ON diagnostic_reports(status);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db: db, NewID: uuid.NewString}, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}

// CreateReport inserts a fresh report with status=running, progress=0.
func (d *DB) CreateReport() (*protocol.Report, error) {
	report := &protocol.Report{
		ID:        d.NewID(),
		Timestamp: time.Now().UTC(),
		Status:    protocol.StatusRunning,
		Progress:  0,
	}

	// Fixed-width fraction keeps lexicographic order equal to time order.
	_, err := d.db.Exec(`
		INSERT INTO diagnostic_reports (id, timestamp, status, progress, logs)
		VALUES (?, ?, ?, ?, '')
	`, report.ID, report.Timestamp.Format(timestampLayout), report.Status, report.Progress)
	if err != nil {
		return nil, err
	}

	return report, nil
}

// GetReport returns the report with the given id or ErrNotFound.
func (d *DB) GetReport(id string) (*protocol.Report, error) {
	row := d.db.QueryRow(`
		SELECT id, timestamp, status, progress, system_info, network_tests,
		       permission_checks, dependency_analysis, logs, ai_report
		FROM diagnostic_reports
		WHERE id = ?
	`, id)

	report, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return report, err
}

// ListReports returns all reports, most recent first.
func (d *DB) ListReports() ([]*protocol.Report, error) {
	rows, err := d.db.Query(`
		SELECT id, timestamp, status, progress, system_info, network_tests,
		       permission_checks, dependency_analysis, logs, ai_report
		FROM diagnostic_reports
		ORDER BY timestamp DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []*protocol.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

// UpdateReport applies the non-nil fields of upd to the stored report.
func (d *DB) UpdateReport(id string, upd ReportUpdate) error {
	set := ""
	var args []interface{}

	appendSet := func(column string, value interface{}) {
		if set != "" {
			set += ", "
		}
		set += column + " = ?"
		args = append(args, value)
	}

	if upd.Status != nil {
		appendSet("status", *upd.Status)
	}
	if upd.Progress != nil {
		appendSet("progress", *upd.Progress)
	}
	if upd.SystemInfo != nil {
		appendSet("system_info", mustJSON(upd.SystemInfo))
	}
	if upd.NetworkTests != nil {
		appendSet("network_tests", mustJSON(upd.NetworkTests))
	}
	if upd.PermissionChecks != nil {
		appendSet("permission_checks", mustJSON(upd.PermissionChecks))
	}
	if upd.DependencyAnalysis != nil {
		appendSet("dependency_analysis", mustJSON(upd.DependencyAnalysis))
	}
	if upd.Logs != nil {
		appendSet("logs", *upd.Logs)
	}
	if upd.AIReport != nil {
		appendSet("ai_report", *upd.AIReport)
	}

	if set == "" {
		return nil
	}

	args = append(args, id)
	res, err := d.db.Exec("UPDATE diagnostic_reports SET "+set+" WHERE id = ?", args...)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("update report %s: %w", id, ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(row rowScanner) (*protocol.Report, error) {
	var r protocol.Report
	var tsStr string
	var systemInfo, networkTests, permissionChecks, dependencyAnalysis, aiReport sql.NullString

	err := row.Scan(&r.ID, &tsStr, &r.Status, &r.Progress, &systemInfo,
		&networkTests, &permissionChecks, &dependencyAnalysis, &r.Logs, &aiReport)
	if err != nil {
		return nil, err
	}

	r.Timestamp, _ = time.Parse(timestampLayout, tsStr)
	if systemInfo.Valid {
		r.SystemInfo = &protocol.SystemInfo{}
		json.Unmarshal([]byte(systemInfo.String), r.SystemInfo)
	}
	if networkTests.Valid {
		r.NetworkTests = &protocol.NetworkTest{}
		json.Unmarshal([]byte(networkTests.String), r.NetworkTests)
	}
	if permissionChecks.Valid {
		r.PermissionChecks = &protocol.PermissionCheck{}
		json.Unmarshal([]byte(permissionChecks.String), r.PermissionChecks)
	}
	if dependencyAnalysis.Valid {
		r.DependencyAnalysis = &protocol.DependencyAnalysis{}
		json.Unmarshal([]byte(dependencyAnalysis.String), r.DependencyAnalysis)
	}
	if aiReport.Valid {
		r.AIReport = aiReport.String
	}

	return &r, nil
}

func mustJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		// Only reachable with unmarshalable types, which the protocol
		// structs are not.
		panic(err)
	}
	return string(data)
}
