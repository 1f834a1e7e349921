package ctxutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestLogFields(t *testing.T) {
	if kv := LogFields(context.Background()); len(kv) != 0 {
		t.Fatalf("empty ctx: %v", kv)
	}
	userID := uuid.New()
	ctx := WithTrace(context.Background(), &Trace{TraceID: "t-1"})
	ctx = WithRequestData(ctx, &RequestData{UserID: userID})
	kv := LogFields(ctx)
	want := []any{"trace_id", "t-1", "user_id", userID.String()}
	if len(kv) != len(want) {
		t.Fatalf("fields: got=%v want=%v", kv, want)
	}
	for i := range want {
		if kv[i] != want[i] {
			t.Fatalf("field %d: got=%v want=%v", i, kv[i], want[i])
		}
	}
}

func TestTraceFromNil(t *testing.T) {
	if TraceFrom(nil) != nil {
		t.Fatalf("expected nil trace")
	}
}
