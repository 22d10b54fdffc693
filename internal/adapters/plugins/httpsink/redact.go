package httpsink

import (
	"net/url"
	"strings"
)

// Redacted replaces secret values in rendered messages.
const Redacted = "[REDACTED]"

// Redactor strips known secret values, including their URL-escaped forms,
// from strings that end up in outcome messages and logs.
type Redactor struct {
	secrets []string
}

// NewRedactor builds a redactor for the given secret values. Empty values are ignored.
func NewRedactor(secrets ...string) Redactor {
	seen := make(map[string]struct{}, len(secrets)*3)
	var out []string
	add := func(v string) {
		if v == "" {
			return
		}
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	for _, s := range secrets {
		if strings.TrimSpace(s) == "" {
			continue
		}
		add(s)
		add(url.QueryEscape(s))
		add(url.PathEscape(s))
	}
	return Redactor{secrets: out}
}

// With returns a redactor that also strips extra.
func (r Redactor) With(extra ...string) Redactor {
	return NewRedactor(append(append([]string(nil), r.secrets...), extra...)...)
}

// RedactString replaces every secret occurrence in s.
func (r Redactor) RedactString(s string) string {
	if s == "" {
		return s
	}
	for _, secret := range r.secrets {
		s = strings.ReplaceAll(s, secret, Redacted)
	}
	return s
}

// SensitiveHeader reports whether a header name usually carries credentials.
func SensitiveHeader(key string) bool {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{
		"authorization", "api-key", "apikey", "token", "secret",
		"password", "passwd", "credential", "cookie", "session",
	} {
		if strings.Contains(lower, sensitive) {
			return true
		}
	}
	return false
}

// SensitiveHeaderValues returns the values of credential-bearing headers, plus
// the bare credential behind "Bearer"/"Basic" prefixes.
func SensitiveHeaderValues(headers map[string]string) []string {
	var out []string
	for k, v := range headers {
		if !SensitiveHeader(k) {
			continue
		}
		out = append(out, v)
		if _, cred, ok := strings.Cut(v, " "); ok {
			out = append(out, cred)
		}
	}
	return out
}
