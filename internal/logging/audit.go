package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// =============================================================================
// AUDIT EVENT TYPES
// =============================================================================

// AuditEventType names one kind of audit record.
type AuditEventType string

const (
	// Session lifecycle
	AuditSessionCreate     AuditEventType = "session_create"
	AuditSessionTransition AuditEventType = "session_transition"
	AuditSessionDelete     AuditEventType = "session_delete"

	// Resolution misses and backend failures
	AuditResolveMiss  AuditEventType = "resolve_miss"
	AuditResolveError AuditEventType = "resolve_error"

	// Ledger writes
	AuditOrderFinalized AuditEventType = "order_finalized"
	AuditOrderFailed    AuditEventType = "order_failed"

	// Performance
	AuditPerfSlow AuditEventType = "perf_slow"
)

// AuditEvent is one line of the audit trail.
type AuditEvent struct {
	Timestamp  time.Time
	EventType  AuditEventType
	Category   Category
	SessionID  string
	Target     string // step, query or order id
	Action     string
	Success    bool
	DurationMs int64
	Error      string
	Message    string
	Fields     map[string]interface{}
}

// =============================================================================
// AUDIT LOGGER
// =============================================================================

var (
	auditMu   sync.Mutex
	auditFile *os.File
	auditLog  *zap.Logger
)

// AuditLogger writes audit events, optionally bound to a session.
type AuditLogger struct {
	sessionID string
	category  Category
}

// InitAudit opens <logs>/<date>_audit.log. A no-op unless debug mode is on.
func InitAudit() error {
	if !IsDebugMode() {
		return nil
	}

	auditMu.Lock()
	defer auditMu.Unlock()
	if auditFile != nil {
		return nil
	}

	configMu.RLock()
	dir := config.LogsDir
	configMu.RUnlock()

	path := filepath.Join(dir, fmt.Sprintf("%s_audit.log", time.Now().Format("2006-01-02")))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		MessageKey:     "msg",
		EncodeTime:     zapcore.EpochMillisTimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		LineEnding:     zapcore.DefaultLineEnding,
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(file), zapcore.DebugLevel)
	auditFile = file
	auditLog = zap.New(core)
	return nil
}

// CloseAudit flushes and closes the audit log.
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()
	if auditLog != nil {
		_ = auditLog.Sync()
		auditLog = nil
	}
	if auditFile != nil {
		auditFile.Close()
		auditFile = nil
	}
}

// Audit returns an unscoped audit logger.
func Audit() *AuditLogger { return &AuditLogger{} }

// AuditWithSession returns an audit logger bound to a session.
func AuditWithSession(sessionID string) *AuditLogger {
	return &AuditLogger{sessionID: sessionID, category: CategorySession}
}

// Log writes one event.
func (a *AuditLogger) Log(e AuditEvent) {
	auditMu.Lock()
	defer auditMu.Unlock()
	if auditLog == nil {
		return
	}

	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if e.SessionID == "" {
		e.SessionID = a.sessionID
	}
	if e.Category == "" {
		e.Category = a.category
	}

	fields := []zap.Field{
		zap.String("event", string(e.EventType)),
		zap.Bool("success", e.Success),
	}
	if e.Category != "" {
		fields = append(fields, zap.String("cat", string(e.Category)))
	}
	if e.SessionID != "" {
		fields = append(fields, zap.String("session", e.SessionID))
	}
	if e.Target != "" {
		fields = append(fields, zap.String("target", e.Target))
	}
	if e.Action != "" {
		fields = append(fields, zap.String("action", e.Action))
	}
	if e.DurationMs > 0 {
		fields = append(fields, zap.Int64("dur_ms", e.DurationMs))
	}
	if e.Error != "" {
		fields = append(fields, zap.String("error", e.Error))
	}
	for k, v := range e.Fields {
		fields = append(fields, zap.Any(k, v))
	}

	if ce := auditLog.Check(zapcore.InfoLevel, e.Message); ce != nil {
		ce.Time = e.Timestamp
		ce.Write(fields...)
	}
}

// =============================================================================
// CONVENIENCE METHODS
// =============================================================================

// SessionCreated records a new session.
func (a *AuditLogger) SessionCreated(ttl time.Duration) {
	a.Log(AuditEvent{
		EventType: AuditSessionCreate,
		Success:   true,
		Fields:    map[string]interface{}{"ttl_s": int64(ttl.Seconds())},
		Message:   "session created",
	})
}

// StepChanged records a step transition.
func (a *AuditLogger) StepChanged(from, to string, version int64) {
	a.Log(AuditEvent{
		EventType: AuditSessionTransition,
		Target:    to,
		Action:    from + "->" + to,
		Success:   true,
		Fields:    map[string]interface{}{"version": version},
		Message:   fmt.Sprintf("step %s -> %s", from, to),
	})
}

// SessionDeleted records an explicit delete.
func (a *AuditLogger) SessionDeleted() {
	a.Log(AuditEvent{EventType: AuditSessionDelete, Success: true, Message: "session deleted"})
}

// ResolveMiss records an unresolved span. kind is "menu" or "packaging".
func (a *AuditLogger) ResolveMiss(kind, query string, best float64, cause error) {
	e := AuditEvent{
		EventType: AuditResolveMiss,
		Category:  CategoryResolve,
		Target:    query,
		Action:    kind,
		Fields:    map[string]interface{}{"best_score": best},
		Message:   kind + " unresolved",
	}
	if cause != nil {
		e.EventType = AuditResolveError
		e.Error = cause.Error()
		e.Message = kind + " search failed"
	}
	a.Log(e)
}

// OrderFinalized records a ledger write.
func (a *AuditLogger) OrderFinalized(orderID int64, totalPrice, lines int, packaging string) {
	a.Log(AuditEvent{
		EventType: AuditOrderFinalized,
		Category:  CategoryOrdering,
		Target:    fmt.Sprintf("%d", orderID),
		Success:   true,
		Fields: map[string]interface{}{
			"total_price": totalPrice,
			"lines":       lines,
			"packaging":   packaging,
		},
		Message: "order finalized",
	})
}

// OrderFailed records a failed ledger write or completion.
func (a *AuditLogger) OrderFailed(err error) {
	a.Log(AuditEvent{
		EventType: AuditOrderFailed,
		Category:  CategoryOrdering,
		Error:     err.Error(),
		Message:   "order not finalized",
	})
}

// Slow records an operation that exceeded its threshold.
func (a *AuditLogger) Slow(category Category, op string, elapsed time.Duration) {
	a.Log(AuditEvent{
		EventType:  AuditPerfSlow,
		Category:   category,
		Action:     op,
		Success:    true,
		DurationMs: elapsed.Milliseconds(),
		Message:    op + " slow",
	})
}
