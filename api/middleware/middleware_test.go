package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bookstall-backend/pkg/logger"
	"github.com/angelmondragon/bookstall-backend/pkg/metrics"
)

func TestRecovererTurnsPanicIntoInternalError(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf})
	handler := Recoverer(logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, resp.Code)
	require.Contains(t, resp.Body.String(), "INTERNAL_ERROR")
	require.Contains(t, buf.String(), "panic.recovered")
	require.Contains(t, buf.String(), "kaboom")
}

func TestRecovererReraisesAbortHandler(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	require.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestRequestIDEchoesOrGenerates(t *testing.T) {
	handler := RequestID(nil)(okHandler())

	serve := func(id string) string {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if id != "" {
			req.Header.Set(requestIDHeader, id)
		}
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		return resp.Header().Get(requestIDHeader)
	}

	require.Equal(t, "abc-123", serve("abc-123"))
	require.NotEmpty(t, serve(""))

	for _, bad := range []string{"has space", strings.Repeat("x", maxRequestIDLen+1), "tab\there"} {
		got := serve(bad)
		require.NotEqual(t, bad, got)
		require.Len(t, got, 36)
	}
}

func TestLoggingRecordsRoutePattern(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf})
	reg := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(reg)

	r := chi.NewRouter()
	r.Use(Logging(logg, httpMetrics))
	r.Get("/books/{bookID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/books/42", nil))

	require.Equal(t, http.StatusTeapot, resp.Code)
	require.Contains(t, buf.String(), "request.complete")
	require.Contains(t, buf.String(), "/books/{bookID}")

	expected := `
# HELP bookstall_http_requests_total HTTP requests served by the API.
# TYPE bookstall_http_requests_total counter
bookstall_http_requests_total{method="GET",route="/books/{bookID}",status="418"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "bookstall_http_requests_total"))
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	handler := CORS("https://bookstall.example")(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/books", nil)
	req.Header.Set("Origin", "https://bookstall.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, "https://bookstall.example", resp.Header().Get("Access-Control-Allow-Origin"))
}

func TestLoggingWarnsOnServerErrors(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf})

	handler := Logging(logg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	require.Contains(t, buf.String(), `"level":"warn"`)
	require.Contains(t, buf.String(), `"status":502`)
}
