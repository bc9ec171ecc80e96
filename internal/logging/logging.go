// Package logging builds the console logger shared by every component and
// the helpers that tag it with a component scope and a connection context.
package logging

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/proxyd/proxyd/internal/session"
	"github.com/rs/zerolog"
)

const (
	scopeFieldName      = "scope"
	localScopeFieldName = "local_scope"
	traceIDFieldName    = "trace_id"
	remoteInfoFieldName = "remote_info"
)

// NewLogger returns the root logger, writing to stdout. Components receive
// it explicitly; there is no package-level instance.
func NewLogger(level zerolog.Level) zerolog.Logger {
	return newLogger(os.Stdout, level)
}

func newLogger(out io.Writer, level zerolog.Level) zerolog.Logger {
	w := zerolog.ConsoleWriter{
		Out:           out,
		NoColor:       out != os.Stdout,
		TimeFormat:    time.RFC3339,
		FormatPrepare: prepareFields,
		// Rendered as columns through PartsOrder instead.
		FieldsExclude: []string{
			traceIDFieldName,
			scopeFieldName,
			remoteInfoFieldName,
			localScopeFieldName,
		},
		PartsOrder: []string{
			zerolog.LevelFieldName,
			zerolog.TimestampFieldName,
			traceIDFieldName,
			scopeFieldName,
			remoteInfoFieldName,
			localScopeFieldName,
			zerolog.MessageFieldName,
		},
	}

	return zerolog.New(w).
		Hook(ctxHook{}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// prepareFields turns the context columns into their printed form:
// "[scope]" (defaulting to "[app]"), "host;" and "step;". Absent columns
// become empty strings so the console writer does not print <nil>.
func prepareFields(m map[string]any) error {
	m[traceIDFieldName] = column(m, traceIDFieldName, "", "")
	m[remoteInfoFieldName] = column(m, remoteInfoFieldName, "", ";")
	m[localScopeFieldName] = column(m, localScopeFieldName, "", ";")

	if scope := column(m, scopeFieldName, "[", "]"); scope != "" {
		m[scopeFieldName] = scope
	} else {
		m[scopeFieldName] = "[app]"
	}

	return nil
}

func column(m map[string]any, key, prefix, suffix string) string {
	v, _ := m[key].(string)
	if v == "" {
		return ""
	}

	return prefix + v + suffix
}

// WithScope names the component a logger belongs to, e.g. "relay" or "dns".
func WithScope(logger zerolog.Logger, scope string) zerolog.Logger {
	return logger.With().Str(scopeFieldName, scope).Logger()
}

// WithLocalScope names a step inside a component and attaches ctx, so the
// trace id and origin host stored in it show up on every line.
func WithLocalScope(
	ctx context.Context,
	logger zerolog.Logger,
	localScope string,
) zerolog.Logger {
	return logger.With().Ctx(ctx).Str(localScopeFieldName, localScope).Logger()
}

// ctxHook copies session values out of the event's context. Loggers built
// without WithLocalScope carry no context and are left untouched.
type ctxHook struct{}

func (ctxHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	ctx := e.GetCtx()
	if ctx == nil {
		return
	}

	if id, ok := session.TraceIDFrom(ctx); ok {
		e.Str(traceIDFieldName, id)
	}

	if host, ok := session.RemoteInfoFrom(ctx); ok {
		e.Str(remoteInfoFieldName, host)
	}
}

// ErrorUnwrapped logs err at error level, one line per member when err was
// built with errors.Join.
func ErrorUnwrapped(logger *zerolog.Logger, msg string, err error) {
	logUnwrapped(logger, zerolog.ErrorLevel, msg, err)
}

func WarnUnwrapped(logger *zerolog.Logger, msg string, err error) {
	logUnwrapped(logger, zerolog.WarnLevel, msg, err)
}

func logUnwrapped(logger *zerolog.Logger, level zerolog.Level, msg string, err error) {
	var joined interface{ Unwrap() []error }
	if !errors.As(err, &joined) {
		logger.WithLevel(level).Err(err).Msg(msg)
		return
	}

	for _, e := range joined.Unwrap() {
		logger.WithLevel(level).Err(e).Msg(msg)
	}
}
