// Package session carries per-connection values through a context.Context
// so that every log line of a connection can be correlated.
package session

import (
	"context"
	"math/rand/v2"
	"strconv"
)

type ctxKey uint8

const (
	traceIDKey ctxKey = iota
	remoteInfoKey
)

// WithNewTraceID tags ctx with a fresh trace id unless it already has one.
func WithNewTraceID(ctx context.Context) context.Context {
	if _, ok := TraceIDFrom(ctx); ok {
		return ctx
	}

	return context.WithValue(ctx, traceIDKey, newTraceID())
}

func TraceIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(traceIDKey).(string)
	return id, ok
}

// WithRemoteInfo records the origin host a connection is currently talking to.
func WithRemoteInfo(ctx context.Context, host string) context.Context {
	return context.WithValue(ctx, remoteInfoKey, host)
}

func RemoteInfoFrom(ctx context.Context) (string, bool) {
	host, ok := ctx.Value(remoteInfoKey).(string)
	return host, ok
}

// newTraceID renders a random 64-bit value as 16 lowercase hex digits,
// zero padded.
func newTraceID() string {
	const width = 16

	id := strconv.FormatUint(rand.Uint64(), 16)
	if pad := width - len(id); pad > 0 {
		id = "0000000000000000"[:pad] + id
	}

	return id
}
