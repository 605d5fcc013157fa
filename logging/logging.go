// Package logging provides the structured logging facade used
// throughout the rewriter: a small Level/Logger abstraction backed by
// logrus, plus request-scoped context helpers for callers embedding the
// rewriter in a longer-lived process.
package logging

import (
	"context"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// Level is the logging verbosity level.
type Level uint8

// Log levels, ordered from least to most verbose.
const (
	Error Level = iota
	Warn
	Info
	Debug
)

// Logger provides the interface implementations must satisfy to be used
// throughout the rewriter.
type Logger interface {
	Debug(fmt string, a ...interface{})
	Info(fmt string, a ...interface{})
	Error(fmt string, a ...interface{})
	Warn(fmt string, a ...interface{})

	WithFields(fields map[string]interface{}) Logger
	GetFields() map[string]interface{}

	SetLevel(level Level)
	GetLevel() Level
}

// StandardLogger is the default Logger implementation, backed by logrus.
type StandardLogger struct {
	logger *logrus.Logger
	fields map[string]interface{}
}

// New returns a new StandardLogger.
func New() *StandardLogger {
	l := logrus.New()
	return &StandardLogger{logger: l}
}

var (
	globalLogger     *StandardLogger
	globalLoggerOnce sync.Once
)

// Get returns the standard logger used throughout the rewriter's CLI.
//
// Deprecated. Do not rely on the global logger; prefer passing a Logger
// explicitly.
func Get() *StandardLogger {
	globalLoggerOnce.Do(func() { globalLogger = New() })
	return globalLogger
}

// SetOutput sets the destination logrus writes formatted entries to.
func (l *StandardLogger) SetOutput(w io.Writer) {
	l.logger.SetOutput(w)
}

// SetFormatter sets the logrus formatter used to render entries.
func (l *StandardLogger) SetFormatter(formatter logrus.Formatter) {
	l.logger.SetFormatter(formatter)
}

// Debug logs at debug level.
func (l *StandardLogger) Debug(fmt string, a ...interface{}) {
	l.entry().Debugf(fmt, a...)
}

// Info logs at info level.
func (l *StandardLogger) Info(fmt string, a ...interface{}) {
	l.entry().Infof(fmt, a...)
}

// Error logs at error level.
func (l *StandardLogger) Error(fmt string, a ...interface{}) {
	l.entry().Errorf(fmt, a...)
}

// Warn logs at warn level.
func (l *StandardLogger) Warn(fmt string, a ...interface{}) {
	l.entry().Warnf(fmt, a...)
}

func (l *StandardLogger) entry() *logrus.Entry {
	return l.logger.WithFields(logrus.Fields(l.fields))
}

// WithFields returns a copy of the logger with fields merged into its
// existing set.
func (l *StandardLogger) WithFields(fields map[string]interface{}) Logger {
	cp := &StandardLogger{logger: l.logger}
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	cp.fields = merged
	return cp
}

// GetFields returns the logger's current fields.
func (l *StandardLogger) GetFields() map[string]interface{} {
	return l.fields
}

// SetLevel sets the logger's minimum level.
func (l *StandardLogger) SetLevel(level Level) {
	l.logger.SetLevel(toLogrusLevel(level))
}

// GetLevel returns the logger's minimum level.
func (l *StandardLogger) GetLevel() Level {
	return fromLogrusLevel(l.logger.GetLevel())
}

func toLogrusLevel(level Level) logrus.Level {
	switch level {
	case Error:
		return logrus.ErrorLevel
	case Warn:
		return logrus.WarnLevel
	case Debug:
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

func fromLogrusLevel(level logrus.Level) Level {
	switch level {
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return Error
	case logrus.WarnLevel:
		return Warn
	case logrus.DebugLevel, logrus.TraceLevel:
		return Debug
	default:
		return Info
	}
}

// NoOpLogger is a Logger implementation that discards everything.
type NoOpLogger struct {
	fields map[string]interface{}
}

// NewNoOpLogger instantiates a new NoOpLogger.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

// Debug implements Logger.
func (*NoOpLogger) Debug(string, ...interface{}) {}

// Info implements Logger.
func (*NoOpLogger) Info(string, ...interface{}) {}

// Error implements Logger.
func (*NoOpLogger) Error(string, ...interface{}) {}

// Warn implements Logger.
func (*NoOpLogger) Warn(string, ...interface{}) {}

// WithFields implements Logger.
func (n *NoOpLogger) WithFields(fields map[string]interface{}) Logger {
	return &NoOpLogger{fields: fields}
}

// GetFields implements Logger.
func (n *NoOpLogger) GetFields() map[string]interface{} { return n.fields }

// SetLevel implements Logger.
func (*NoOpLogger) SetLevel(Level) {}

// GetLevel implements Logger.
func (*NoOpLogger) GetLevel() Level { return Info }

type requestContextKey struct{}

// RequestContext carries per-invocation metadata worth attaching to log
// entries when the rewriter is embedded in a longer-lived process (for
// example, a build service processing many modules).
type RequestContext struct {
	ClientAddr string
	ReqID      uint64
	ReqMethod  string
	ReqPath    string
}

// Fields renders the request context as logrus-style fields.
func (rctx RequestContext) Fields() map[string]interface{} {
	return map[string]interface{}{
		"client_addr": rctx.ClientAddr,
		"req_id":      rctx.ReqID,
		"req_method":  rctx.ReqMethod,
		"req_path":    rctx.ReqPath,
	}
}

// NewContext returns a copy of parent with val attached.
func NewContext(parent context.Context, val *RequestContext) context.Context {
	return context.WithValue(parent, requestContextKey{}, val)
}

// FromContext returns the RequestContext associated with ctx, if any.
func FromContext(ctx context.Context) (*RequestContext, bool) {
	val, ok := ctx.Value(requestContextKey{}).(*RequestContext)
	return val, ok
}

type decisionIDKey struct{}

// WithDecisionID returns a copy of parent carrying id.
func WithDecisionID(parent context.Context, id string) context.Context {
	return context.WithValue(parent, decisionIDKey{}, id)
}

// DecisionIDFromContext returns the decision ID associated with ctx, if any.
func DecisionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(decisionIDKey{}).(string)
	return id, ok
}
