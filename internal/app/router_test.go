package app

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawnshop/backoffice/internal/observability"
	"github.com/pawnshop/backoffice/internal/shared"
	_ "github.com/pawnshop/backoffice/testing"
)

func TestActorMiddleware(t *testing.T) {
	var seen []int64
	handler := ActorMiddleware("X-Actor-ID", slog.New(slog.NewTextHandler(io.Discard, nil)))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := shared.ActorFromContext(r.Context())
			if ok {
				seen = append(seen, actor.UserID)
			} else {
				seen = append(seen, 0)
			}
		}))

	for _, v := range []string{"12", "", "abc", "-3", " 7 "} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if v != "" {
			req.Header.Set("X-Actor-ID", v)
		}
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	assert.Equal(t, []int64{12, 0, 0, 0, 7}, seen)
}

func TestRouterHealthAndMetrics(t *testing.T) {
	metrics := observability.NewMetrics()
	router := NewRouter(RouterParams{
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config:  &Config{AppEnv: "test", ActorHeader: "X-Actor-ID"},
		Metrics: metrics,
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rr.Header().Get("X-Frame-Options"))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), `backoffice_http_requests_total{code="200",route="/healthz"} 1`))
}

func TestNewLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&Config{LogFormat: "json", AppEnv: "test"}, &buf).Info("hello")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "test", entry["env"])

	buf.Reset()
	newLogger(nil, &buf).Info("plain")
	assert.Contains(t, buf.String(), "msg=plain")
}
