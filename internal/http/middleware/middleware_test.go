package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/questline-backend/internal/observability"
	"github.com/yungbote/questline-backend/internal/platform/ctxutil"
)

type stubVerifier struct {
	userID uuid.UUID
	err    error
}

func (s stubVerifier) SetContextFromToken(ctx context.Context, tok string) (context.Context, error) {
	if s.err != nil {
		return ctx, s.err
	}
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{TokenString: tok, UserID: s.userID}), nil
}

func authEngine(v TokenVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewAuthMiddleware(nil, v).RequireAuth())
	r.GET("/whoami", func(c *gin.Context) {
		rd := ctxutil.GetRequestData(c.Request.Context())
		c.String(http.StatusOK, rd.UserID.String())
	})
	return r
}

func TestRequireAuth(t *testing.T) {
	userID := uuid.New()
	cases := []struct {
		name     string
		verifier TokenVerifier
		header   string
		want     int
	}{
		{"valid", stubVerifier{userID: userID}, "Bearer abc", http.StatusOK},
		{"lowercase scheme", stubVerifier{userID: userID}, "bearer abc", http.StatusOK},
		{"missing header", stubVerifier{userID: userID}, "", http.StatusUnauthorized},
		{"basic scheme", stubVerifier{userID: userID}, "Basic abc", http.StatusUnauthorized},
		{"rejected token", stubVerifier{err: errors.New("expired")}, "Bearer abc", http.StatusUnauthorized},
		{"nil subject", stubVerifier{}, "Bearer abc", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			authEngine(tc.verifier).ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status: got=%d want=%d body=%s", rec.Code, tc.want, rec.Body.String())
			}
			if tc.want == http.StatusUnauthorized && !strings.Contains(rec.Body.String(), `"code":"unauthorized"`) {
				t.Fatalf("401 body: %s", rec.Body.String())
			}
			if tc.want == http.StatusOK && rec.Body.String() != userID.String() {
				t.Fatalf("user: got=%s want=%s", rec.Body.String(), userID)
			}
		})
	}
}

func TestAttachTraceContextEchoesIDs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	r.GET("/x", func(c *gin.Context) {
		td := ctxutil.TraceFrom(c.Request.Context())
		c.String(http.StatusOK, td.RequestID)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(headerRequestID, "req-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Body.String() != "req-1" || rec.Header().Get(headerRequestID) != "req-1" {
		t.Fatalf("request id: body=%q header=%q", rec.Body.String(), rec.Header().Get(headerRequestID))
	}
	if rec.Header().Get(headerTraceID) == "" {
		t.Fatalf("trace id header missing")
	}
}

func TestMetricsSkipsHealthRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := observability.NewMetrics()
	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/healthcheck", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/leaderboard", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/healthcheck", "/api/leaderboard", "/api/leaderboard"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `ql_api_requests_total{method="GET",route="/api/leaderboard",status="200"} 2.000000`) {
		t.Fatalf("leaderboard requests not counted:\n%s", out)
	}
	if strings.Contains(out, `route="/healthcheck"`) {
		t.Fatalf("healthcheck counted:\n%s", out)
	}
}

func TestAttachTraceContextDropsUnsafeIDs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(headerRequestID, "bad id\nwith newline")
	req.Header.Set(headerTraceID, strings.Repeat("a", 200))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	reqID := rec.Header().Get(headerRequestID)
	if _, err := uuid.Parse(reqID); err != nil {
		t.Fatalf("request id should be generated, got %q", reqID)
	}
	if got := rec.Header().Get(headerTraceID); got != reqID {
		t.Fatalf("trace id should fall back to request id: got=%q want=%q", got, reqID)
	}
}
