package middleware

import (
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/questline-backend/internal/platform/ctxutil"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"
)

// Client-supplied ids end up in logs, so only short opaque tokens are kept.
var correlationID = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// AttachTraceContext tags the request with a request id and a trace id and
// echoes both as response headers. An active span wins over X-Trace-Id.
func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		tr := &ctxutil.Trace{
			RequestID: inboundID(c, headerRequestID),
			TraceID:   inboundID(c, headerTraceID),
		}
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
			tr.TraceID = sc.TraceID().String()
		}
		if tr.RequestID == "" {
			tr.RequestID = uuid.NewString()
		}
		if tr.TraceID == "" {
			tr.TraceID = tr.RequestID
		}
		c.Request = c.Request.WithContext(ctxutil.WithTrace(c.Request.Context(), tr))
		c.Header(headerTraceID, tr.TraceID)
		c.Header(headerRequestID, tr.RequestID)
		c.Next()
	}
}

func inboundID(c *gin.Context, header string) string {
	v := strings.TrimSpace(c.GetHeader(header))
	if !correlationID.MatchString(v) {
		return ""
	}
	return v
}
