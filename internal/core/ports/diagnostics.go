package ports

import (
	"context"
	"time"
)

// DatabaseProber runs liveness checks against the document store.
type DatabaseProber interface {
	Ping(ctx context.Context) (time.Duration, error)
	// Scratch performs a disposable write/read/delete cycle and reports which
	// stages completed.
	Scratch(ctx context.Context) (ScratchResult, error)
}

// ScratchResult reports the individual stages of a scratch probe. A stage
// left false means it was not reached or did not work.
type ScratchResult struct {
	InsertWorked bool `json:"insertWorked"`
	FindWorked   bool `json:"findWorked"`
	RemoveWorked bool `json:"removeWorked"`
}

// SessionCounter exposes the number of currently attached live-channel
// sessions. Implemented by the live hub.
type SessionCounter interface {
	Count() int
}

// LogSource yields recently recorded server log entries, oldest first.
type LogSource interface {
	Recent(limit int) []LogEntry
}

// LogEntry is one recorded server log line.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// DiagnosticsService is the read-only introspection surface. Probe failures
// are converted to data, never propagated.
type DiagnosticsService interface {
	TestConnection(ctx context.Context) ConnectionReport
	TestDatabase(ctx context.Context) DatabaseReport
	ServerLogs(limit int) []LogEntry
}

// ConnectionReport is the testConnection snapshot.
type ConnectionReport struct {
	Environment EnvironmentInfo `json:"environment"`
	System      SystemInfo      `json:"system"`
	Database    DatabaseStatus  `json:"database"`
	Sessions    int             `json:"sessions"`
}

type EnvironmentInfo struct {
	Name              string `json:"name"`
	Port              string `json:"port"`
	RootURL           string `json:"rootUrl"`
	MongoHost         string `json:"mongoHost"`
	DisableWebsockets bool   `json:"disableWebsockets"`
}

type SystemInfo struct {
	GoVersion  string `json:"goVersion"`
	PID        int    `json:"pid"`
	Goroutines int    `json:"goroutines"`
	UptimeSecs int64  `json:"uptimeSecs"`
}

type DatabaseStatus struct {
	Reachable bool   `json:"reachable"`
	PingMs    int64  `json:"pingMs"`
	Error     string `json:"error,omitempty"`
}

// DatabaseReport is the testDatabase result. On failure Success is false and
// Error/Stack carry the cause; the probe never raises.
type DatabaseReport struct {
	Success      bool   `json:"success"`
	PingMs       int64  `json:"ping"`
	InsertWorked bool   `json:"insertWorked"`
	FindWorked   bool   `json:"findWorked"`
	RemoveWorked bool   `json:"removeWorked"`
	Error        string `json:"error,omitempty"`
	Stack        string `json:"stack,omitempty"`
}
