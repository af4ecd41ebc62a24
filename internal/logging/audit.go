package logging

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nvandessel/riskloop/internal/constants"
)

// Audit event kinds.
const (
	EventRunStart    = "run.start"
	EventRunComplete = "run.complete"
	EventRunFailed   = "run.failed"
	EventCalibrate   = "calibrate"
)

// AuditEvent is one line of the audit trail. Zero-valued optional fields are
// omitted from the JSON.
type AuditEvent struct {
	Time       string  `json:"time"`
	Event      string  `json:"event"`
	RunID      string  `json:"run_id,omitempty"`
	Source     string  `json:"source,omitempty"`
	Trials     int     `json:"trials,omitempty"`
	Categories int     `json:"categories,omitempty"`
	Seed       *uint64 `json:"seed,omitempty"`
	Mean       float64 `json:"mean,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// AuditLog appends AuditEvents to dir/audit.jsonl. It is safe for concurrent
// use. A nil *AuditLog is valid and every method on it is a no-op.
type AuditLog struct {
	mu   sync.Mutex
	file *os.File
	now  func() time.Time
}

// OpenAuditLog opens the audit trail under dir. At "info" level (the default)
// it returns nil and creates nothing. It also returns nil if the file cannot
// be opened; auditing never blocks a run.
func OpenAuditLog(dir, level string) *AuditLog {
	if ParseLevel(level) >= slog.LevelInfo {
		return nil
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}
	f, err := os.OpenFile(filepath.Join(dir, constants.AuditLogName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}
	return &AuditLog{file: f, now: time.Now}
}

// Record writes ev as one JSON line, stamping Time if it is empty.
func (a *AuditLog) Record(ev AuditEvent) {
	if a == nil || a.file == nil {
		return
	}
	if ev.Time == "" {
		ev.Time = a.now().UTC().Format(time.RFC3339Nano)
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	data = append(data, '\n')

	a.mu.Lock()
	defer a.mu.Unlock()
	_, _ = a.file.Write(data)
}

// Close closes the underlying file. Safe to call on a nil receiver.
func (a *AuditLog) Close() {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file != nil {
		a.file.Close()
		a.file = nil
	}
}
