package mcp

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditFileName is the tool audit log written under the data directory.
const AuditFileName = "audit.jsonl"

// AuditEntry records one MCP tool invocation. Parameter values are only
// recorded for keys known to be safe.
type AuditEntry struct {
	Timestamp  time.Time         `json:"timestamp"`
	Tool       string            `json:"tool"`
	RunID      string            `json:"run_id,omitempty"`
	DurationMs int64             `json:"duration_ms"`
	Status     string            `json:"status"` // "success" or "error"
	Error      string            `json:"error,omitempty"`
	Params     map[string]string `json:"params,omitempty"`
}

// AuditLogger appends entries to <dir>/audit.jsonl. It is safe for
// concurrent use, and a nil AuditLogger is a no-op.
type AuditLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewAuditLogger opens the audit log under dir. If the file cannot be
// created a warning is printed to stderr and nil is returned.
func NewAuditLogger(dir string) *AuditLogger {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		fmt.Fprintf(os.Stderr, "warning: cannot create audit log directory %s: %v\n", dir, err)
		return nil
	}
	path := filepath.Join(dir, AuditFileName)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: cannot open audit log %s: %v\n", path, err)
		return nil
	}
	return &AuditLogger{file: f}
}

// Log appends entry as one JSON line.
func (a *AuditLogger) Log(entry AuditEntry) {
	if a == nil {
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	_, _ = a.file.Write(append(data, '\n'))
}

// Close closes the log file.
func (a *AuditLogger) Close() error {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file.Close()
}

// sanitizeToolParams keeps values for scalar settings and only the presence
// of bulky or free-form ones. Unknown keys are dropped.
func sanitizeToolParams(params map[string]any) map[string]string {
	if params == nil {
		return nil
	}

	safeValue := map[string]bool{
		"topology":      true,
		"seed":          true,
		"speed_ms":      true,
		"include_graph": true,
		"days":          true,
	}
	presenceOnly := map[string]bool{
		"params":      true,
		"graph_path":  true,
		"output_path": true,
	}

	result := make(map[string]string)
	for key, val := range params {
		val, ok := auditValue(val)
		if !ok {
			continue
		}
		switch {
		case safeValue[key]:
			result[key] = fmt.Sprintf("%v", val)
		case presenceOnly[key]:
			result[key] = "(set)"
		}
	}
	result["_param_count"] = fmt.Sprintf("%d", len(params))
	return result
}

// auditValue dereferences optional arguments and reports false for unset
// ones.
func auditValue(val any) (any, bool) {
	switch v := val.(type) {
	case nil:
		return nil, false
	case *int:
		if v == nil {
			return nil, false
		}
		return *v, true
	case string:
		return v, v != ""
	case map[string]float64:
		return v, len(v) > 0
	}
	return val, true
}

// auditTool records a finished tool call.
func (s *Server) auditTool(tool string, start time.Time, err error, params map[string]string) {
	if s.audit == nil {
		return
	}
	status := "success"
	errMsg := ""
	if err != nil {
		status = "error"
		errMsg = err.Error()
	}
	s.audit.Log(AuditEntry{
		Timestamp:  start,
		Tool:       tool,
		RunID:      s.ctrl.State(false).RunID,
		DurationMs: time.Since(start).Milliseconds(),
		Status:     status,
		Error:      errMsg,
		Params:     params,
	})
}
