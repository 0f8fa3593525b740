// internal/protocol/types.go
package protocol

import "time"

// Report status values. Transitions are monotonic: running -> completed
// or running -> failed, never backwards.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// SystemInfo captures the host environment for one diagnosis run.
// Memory values are GB rounded to two decimals, disk values whole GB.
type SystemInfo struct {
	NodeVersion   string            `json:"nodeVersion"`
	NpmVersion    string            `json:"npmVersion"`
	OS            string            `json:"os"`
	Architecture  string            `json:"architecture"`
	CPUCores      int               `json:"cpuCores"`
	TotalMemory   float64           `json:"totalMemory"`
	FreeMemory    float64           `json:"freeMemory"`
	DiskTotal     int               `json:"diskTotal"`
	DiskUsed      int               `json:"diskUsed"`
	DiskAvailable int               `json:"diskAvailable"`
	EnvVars       map[string]string `json:"envVars"`
}

// PortTest is the outcome of probing a single TCP port.
type PortTest struct {
	Port      int  `json:"port"`
	Available bool `json:"available"`
	PID       int  `json:"pid,omitempty"`
}

// NetworkTest aggregates connectivity results.
type NetworkTest struct {
	PortTests          []PortTest `json:"portTests"`
	InternetConnection bool       `json:"internetConnection"`
	DNSResolution      bool       `json:"dnsResolution"`
	FirewallStatus     string     `json:"firewallStatus"`
}

// DirEntry describes one checked path below the application directory.
type DirEntry struct {
	Path        string `json:"path"`
	Permissions string `json:"permissions"`
	Exists      bool   `json:"exists"`
	Writable    bool   `json:"writable"`
}

// PermissionIssue is a single finding from the permission check.
// Type is "warning" or "success"; Solution is the suggested manual fix.
type PermissionIssue struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Solution string `json:"solution"`
}

// PermissionCheck aggregates filesystem permission results.
type PermissionCheck struct {
	DirectoryStructure []DirEntry        `json:"directoryStructure"`
	Issues             []PermissionIssue `json:"issues"`
}

// Vulnerability is one npm audit finding.
type Vulnerability struct {
	Name        string `json:"name"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
}

// OutdatedPackage is one npm outdated finding.
type OutdatedPackage struct {
	Name    string `json:"name"`
	Current string `json:"current"`
	Latest  string `json:"latest"`
}

// DependencyAnalysis aggregates package.json and npm findings.
type DependencyAnalysis struct {
	PackageJSONValid bool              `json:"packageJsonValid"`
	HasStartScript   bool              `json:"hasStartScript"`
	EngineCompatible bool              `json:"engineCompatible"`
	LockFileExists   bool              `json:"lockFileExists"`
	Vulnerabilities  []Vulnerability   `json:"vulnerabilities"`
	OutdatedPackages []OutdatedPackage `json:"outdatedPackages"`
}

// Report is the persisted aggregate of one diagnosis run. Analysis fields
// stay nil until their stage completed; a failed stage leaves its field nil.
type Report struct {
	ID                 string              `json:"id"`
	Timestamp          time.Time           `json:"timestamp"`
	Status             string              `json:"status"`
	Progress           int                 `json:"progress"`
	SystemInfo         *SystemInfo         `json:"systemInfo"`
	NetworkTests       *NetworkTest        `json:"networkTests"`
	PermissionChecks   *PermissionCheck    `json:"permissionChecks"`
	DependencyAnalysis *DependencyAnalysis `json:"dependencyAnalysis"`
	Logs               string              `json:"logs"`
	AIReport           string              `json:"aiReport"`
}

// ProgressEvent is the single event type pushed over the progress channel.
// Subscribers filter client-side by ReportID.
type ProgressEvent struct {
	Type     string `json:"type"`
	ReportID string `json:"reportId"`
	Progress int    `json:"progress"`
	Message  string `json:"message"`
}

// FixSuggestion is derived from a report on every request, never persisted.
type FixSuggestion struct {
	ID            string `json:"id"`
	Category      string `json:"category"` // security, performance, compatibility, configuration
	Title         string `json:"title"`
	Description   string `json:"description"`
	Severity      string `json:"severity"` // low, medium, high, critical
	Command       string `json:"command,omitempty"`
	IsExecutable  bool   `json:"isExecutable"`
	EstimatedTime string `json:"estimatedTime"`
	Impact        string `json:"impact"`
}

// FixExecutionResult is returned directly to the caller, not persisted.
type FixExecutionResult struct {
	Success  bool   `json:"success"`
	Output   string `json:"output"`
	Error    string `json:"error,omitempty"`
	Duration int64  `json:"duration"` // milliseconds
}

// HostingEnvironment is the detected deployment platform.
type HostingEnvironment struct {
	Type       string            `json:"type"` // passenger, pm2, docker, systemd, generic
	Detected   bool              `json:"detected"`
	Version    string            `json:"version,omitempty"`
	ConfigPath string            `json:"configPath,omitempty"`
	Details    map[string]string `json:"details,omitempty"`
}
