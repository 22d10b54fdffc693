// Package httpsink holds the HTTP plumbing shared by webhook-style sinks:
// single-attempt delivery, bounded error bodies and secret redaction.
package httpsink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds one delivery when the sink sets no timeout.
	DefaultTimeout = 5 * time.Second
	// maxErrorBody caps how much of a failed response is quoted in errors.
	maxErrorBody = 512
)

// Request is one outbound call.
type Request struct {
	Method string
	URL    string
	Header map[string]string
	Body   []byte
	// OKStatus is the status that counts as delivered. 0 accepts any 2xx.
	OKStatus int
}

// StatusError reports a response with an unexpected status.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return "unexpected status " + e.Status
	}
	return fmt.Sprintf("unexpected status %s: %s", e.Status, e.Body)
}

// NewClient returns an http.Client with the given timeout, or DefaultTimeout.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// Send performs req exactly once and returns nil when the response status is
// acceptable. Error messages pass through redactor.
func Send(ctx context.Context, client *http.Client, req Request, redactor Redactor) error {
	if err := send(ctx, client, req); err != nil {
		return errors.New(redactor.RedactString(err.Error()))
	}
	return nil
}

func send(ctx context.Context, client *http.Client, req Request) error {
	method := req.Method
	if method == "" {
		method = http.MethodPost
	}
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	hreq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if req.Body != nil {
		hreq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Header {
		hreq.Header.Set(k, v)
	}

	resp, err := client.Do(hreq)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			return fmt.Errorf("%s %s: %w", method, RedactURL(req.URL), uerr.Err)
		}
		return fmt.Errorf("request failed: %w", err)
	}

	if !statusOK(resp.StatusCode, req.OKStatus) {
		return readStatusError(resp)
	}
	return drain(resp)
}

func statusOK(code, want int) bool {
	if want != 0 {
		return code == want
	}
	return code >= 200 && code < 300
}

func drain(resp *http.Response) error {
	_, copyErr := io.Copy(io.Discard, resp.Body)
	closeErr := resp.Body.Close()
	if copyErr != nil {
		return errors.Join(fmt.Errorf("drain response body: %w", copyErr), closeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close response body: %w", closeErr)
	}
	return nil
}

func readStatusError(resp *http.Response) error {
	b, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_ = drain(resp)
	serr := &StatusError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       strings.TrimSpace(string(b)),
	}
	if readErr != nil {
		return errors.Join(serr, fmt.Errorf("read error response: %w", readErr))
	}
	return serr
}

// RedactURL keeps only scheme and host so paths and query strings that embed
// tokens never reach messages.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return Redacted
	}
	return u.Scheme + "://" + u.Host
}

// ValidateURL checks raw is an absolute http(s) URL with a host.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errors.New("invalid url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid url scheme %q", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("invalid url: missing host")
	}
	return nil
}
