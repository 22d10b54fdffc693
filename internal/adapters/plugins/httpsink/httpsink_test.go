package httpsink

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendSuccess(t *testing.T) {
	var gotBody, gotAuth, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	err := Send(context.Background(), srv.Client(), Request{
		URL:    srv.URL,
		Header: map[string]string{"Authorization": "Bearer abc"},
		Body:   []byte(`{"a":1}`),
	}, Redactor{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, gotBody)
	assert.Equal(t, "Bearer abc", gotAuth)
	assert.Equal(t, "application/json", gotType)
}

func TestSendExactOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := Send(context.Background(), srv.Client(), Request{URL: srv.URL, OKStatus: http.StatusCreated}, Redactor{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 200 OK")
}

func TestSendSingleAttemptAndRedactsBody(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("bad token s3cr3t " + strings.Repeat("x", 2000)))
	}))
	defer srv.Close()

	err := Send(context.Background(), srv.Client(), Request{URL: srv.URL}, NewRedactor("s3cr3t"))
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Contains(t, err.Error(), "500 Internal Server Error: bad token [REDACTED]")
	assert.NotContains(t, err.Error(), "s3cr3t")
	assert.Less(t, len(err.Error()), 700)
}

func TestSendTransportErrorHidesURLPath(t *testing.T) {
	client := &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})}
	err := Send(context.Background(), client, Request{URL: "https://hooks.example.com/services/T0/B0/secret"}, Redactor{})
	require.Error(t, err)
	assert.Equal(t, "POST https://hooks.example.com: connection refused", err.Error())
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestRedactor(t *testing.T) {
	r := NewRedactor("a b&c", "", "  ")
	assert.Equal(t, "x=[REDACTED]", r.RedactString("x=a+b%26c"))
	assert.Equal(t, "[REDACTED]", r.RedactString("a b&c"))
	assert.Equal(t, "p/[REDACTED]", r.RedactString("p/a%20b&c"))

	r2 := r.With("tok")
	assert.Equal(t, "[REDACTED] [REDACTED]", r2.RedactString("tok a b&c"))
	assert.Equal(t, "tok", r.RedactString("tok"))
}

func TestSensitiveHeaderValues(t *testing.T) {
	vals := SensitiveHeaderValues(map[string]string{
		"Authorization": "Bearer abc",
		"X-Trace":       "t1",
	})
	assert.ElementsMatch(t, []string{"Bearer abc", "abc"}, vals)
	assert.True(t, SensitiveHeader("X-Api-Key"))
	assert.False(t, SensitiveHeader("Accept"))
}

func TestValidateAndRedactURL(t *testing.T) {
	require.NoError(t, ValidateURL("https://example.com/x"))
	require.Error(t, ValidateURL("ftp://example.com"))
	require.Error(t, ValidateURL("https://"))
	assert.Equal(t, "https://example.com", RedactURL("https://example.com/a?b=c"))
	assert.Equal(t, Redacted, RedactURL("::"))
}
