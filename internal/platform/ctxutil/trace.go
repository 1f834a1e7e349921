package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

type traceKey struct{}

// Trace correlates log lines for one request. TraceID follows the active span
// when tracing is on.
type Trace struct {
	TraceID   string
	RequestID string
}

func WithTrace(ctx context.Context, t *Trace) context.Context {
	return context.WithValue(Default(ctx), traceKey{}, t)
}

func TraceFrom(ctx context.Context) *Trace {
	if ctx == nil {
		return nil
	}
	t, _ := ctx.Value(traceKey{}).(*Trace)
	return t
}

// LogFields returns the correlation keys present on ctx as logger key/values.
func LogFields(ctx context.Context) []any {
	var kv []any
	if t := TraceFrom(ctx); t != nil {
		if t.TraceID != "" {
			kv = append(kv, "trace_id", t.TraceID)
		}
		if t.RequestID != "" {
			kv = append(kv, "request_id", t.RequestID)
		}
	}
	if rd := GetRequestData(ctx); rd != nil && rd.UserID != uuid.Nil {
		kv = append(kv, "user_id", rd.UserID.String())
	}
	return kv
}
