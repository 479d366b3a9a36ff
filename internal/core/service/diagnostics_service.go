package service

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinical-meteor/checklist-manifesto/internal/core/ports"
)

const (
	defaultLogLimit = 50
	maxLogLimit     = 500
)

// EnvironmentSnapshot carries the config values the diagnostics surface
// reports. The service only reads them.
type EnvironmentSnapshot struct {
	Name              string
	Port              string
	RootURL           string
	MongoURL          string
	DisableWebsockets bool
}

// DiagnosticsService implements the read-only introspection operations.
// Probe failures are converted into structured results; nothing here ever
// raises towards the caller.
type DiagnosticsService struct {
	prober   ports.DatabaseProber
	sessions ports.SessionCounter
	logs     ports.LogSource
	env      EnvironmentSnapshot
	started  time.Time
	log      zerolog.Logger
}

func NewDiagnosticsService(
	prober ports.DatabaseProber,
	sessions ports.SessionCounter,
	logs ports.LogSource,
	env EnvironmentSnapshot,
	log zerolog.Logger,
) *DiagnosticsService {
	return &DiagnosticsService{
		prober:   prober,
		sessions: sessions,
		logs:     logs,
		env:      env,
		started:  time.Now(),
		log:      log,
	}
}

// TestConnection assembles the environment, runtime, database, and session
// snapshot. The database check is a plain ping; its failure is reported in
// the snapshot, not returned.
func (s *DiagnosticsService) TestConnection(ctx context.Context) ports.ConnectionReport {
	report := ports.ConnectionReport{
		Environment: ports.EnvironmentInfo{
			Name:              s.env.Name,
			Port:              s.env.Port,
			RootURL:           s.env.RootURL,
			MongoHost:         mongoHost(s.env.MongoURL),
			DisableWebsockets: s.env.DisableWebsockets,
		},
		System: ports.SystemInfo{
			GoVersion:  runtime.Version(),
			PID:        os.Getpid(),
			Goroutines: runtime.NumGoroutine(),
			UptimeSecs: int64(time.Since(s.started).Seconds()),
		},
	}

	if rtt, err := s.prober.Ping(ctx); err != nil {
		report.Database = ports.DatabaseStatus{Reachable: false, Error: err.Error()}
	} else {
		report.Database = ports.DatabaseStatus{Reachable: true, PingMs: rtt.Milliseconds()}
	}

	if s.sessions != nil {
		report.Sessions = s.sessions.Count()
	}
	return report
}

// TestDatabase runs the full liveness probe: ping plus a disposable
// write/read/delete cycle. Every failure, panics included, is caught and
// returned as a structured result.
func (s *DiagnosticsService) TestDatabase(ctx context.Context) (report ports.DatabaseReport) {
	defer func() {
		if r := recover(); r != nil {
			report = ports.DatabaseReport{
				Success: false,
				Error:   fmt.Sprintf("panic: %v", r),
				Stack:   string(debug.Stack()),
			}
		}
	}()

	rtt, err := s.prober.Ping(ctx)
	if err != nil {
		return failureReport(fmt.Errorf("ping: %w", err))
	}

	scratch, err := s.prober.Scratch(ctx)
	report = ports.DatabaseReport{
		PingMs:       rtt.Milliseconds(),
		InsertWorked: scratch.InsertWorked,
		FindWorked:   scratch.FindWorked,
		RemoveWorked: scratch.RemoveWorked,
	}
	if err != nil {
		report.Error = err.Error()
		report.Stack = string(debug.Stack())
		return report
	}

	report.Success = scratch.InsertWorked && scratch.FindWorked && scratch.RemoveWorked
	return report
}

// ServerLogs returns up to limit recent log entries, oldest first. A
// non-positive limit falls back to the default; excessive limits are capped.
func (s *DiagnosticsService) ServerLogs(limit int) []ports.LogEntry {
	if limit <= 0 {
		limit = defaultLogLimit
	}
	if limit > maxLogLimit {
		limit = maxLogLimit
	}
	if s.logs == nil {
		return []ports.LogEntry{}
	}
	return s.logs.Recent(limit)
}

func failureReport(err error) ports.DatabaseReport {
	return ports.DatabaseReport{
		Success: false,
		Error:   err.Error(),
		Stack:   string(debug.Stack()),
	}
}

// mongoHost strips credentials out of the connection string; diagnostics
// must never echo a password.
func mongoHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Host
}
