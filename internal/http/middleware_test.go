package httpx

import (
	"bytes"
	"compress/gzip"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingRecordsStatusAndBytes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream"))
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	line := buf.String()
	assert.Contains(t, line, `"level":"WARN"`)
	assert.Contains(t, line, `"status":502`)
	assert.Contains(t, line, `"bytes":8`)
	assert.Contains(t, line, `"path":"/api/v1/health"`)
}

func TestRecoverReturns500(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := Recover(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/push", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, buf.String(), `"error":"boom"`)
}

func TestCompression(t *testing.T) {
	payload := `{"status":"ok","plugins":[` + strings.Repeat(`{"name":"x"},`, 200) + `{}]}`

	jsonHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(payload))
	})

	tests := []struct {
		name           string
		method         string
		acceptEncoding string
		level          int
		wantGzip       bool
	}{
		{name: "client accepts gzip", method: http.MethodGet, acceptEncoding: "gzip, deflate", level: 6, wantGzip: true},
		{name: "fastest level", method: http.MethodGet, acceptEncoding: "gzip", level: 1, wantGzip: true},
		{name: "out of range level falls back", method: http.MethodGet, acceptEncoding: "gzip", level: 42, wantGzip: true},
		{name: "client does not accept gzip", method: http.MethodGet, acceptEncoding: "deflate", level: 6},
		{name: "gzip explicitly disabled", method: http.MethodGet, acceptEncoding: "gzip;q=0, br", level: 6},
		{name: "no header", method: http.MethodGet, level: 6},
		{name: "head request", method: http.MethodHead, acceptEncoding: "gzip", level: 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Compression(CompressionConfig{Level: tt.level})(jsonHandler)
			req := httptest.NewRequest(tt.method, "/api/v1/health", nil)
			if tt.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if !tt.wantGzip {
				assert.Empty(t, rec.Header().Get("Content-Encoding"))
				if tt.method == http.MethodGet {
					assert.Equal(t, payload, rec.Body.String())
				}
				return
			}

			assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
			assert.Contains(t, rec.Header().Values("Vary"), "Accept-Encoding")
			assert.Less(t, rec.Body.Len(), len(payload))

			zr, err := gzip.NewReader(rec.Body)
			require.NoError(t, err)
			got, err := io.ReadAll(zr)
			require.NoError(t, err)
			assert.Equal(t, payload, string(got))
		})
	}
}

func TestCompressionSkipsBodilessAndBinary(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "no content",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			},
		},
		{
			name: "binary content type",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/octet-stream")
				_, _ = w.Write([]byte{0, 1, 2, 3})
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Accept-Encoding", "gzip")
			rec := httptest.NewRecorder()
			Compression(CompressionConfig{Level: 6})(tt.handler).ServeHTTP(rec, req)
			assert.Empty(t, rec.Header().Get("Content-Encoding"))
		})
	}
}

func TestAcceptsGzip(t *testing.T) {
	assert.True(t, acceptsGzip("gzip"))
	assert.True(t, acceptsGzip("br, GZIP;q=0.5"))
	assert.False(t, acceptsGzip(""))
	assert.False(t, acceptsGzip("x-gzip"))
	assert.False(t, acceptsGzip("gzip; q=0"))
}
