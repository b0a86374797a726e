// Package httpclient builds the resty clients shared by the Ollama, Qdrant and health transports.
package httpclient

import (
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// New returns a resty client with a hard timeout and no retries.
// Exceeding the timeout surfaces as an ordinary request error.
// baseURL may be empty for clients that call absolute URLs.
func New(baseURL string, timeout time.Duration, log *zap.Logger) *resty.Client {
	if log == nil {
		log = zap.NewNop()
	}
	c := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json").
		SetLogger(&restyLogger{s: log.Sugar()})
	if baseURL != "" {
		c.SetBaseURL(NormalizeURL(baseURL))
	}
	return c
}

// NormalizeURL adds a missing http:// scheme and drops trailing slashes.
func NormalizeURL(u string) string {
	u = strings.TrimSpace(u)
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "http://" + u
	}
	return strings.TrimRight(u, "/")
}

// Preview returns at most n runes of body, suffixed with "..." when cut.
func Preview(body string, n int) string {
	r := []rune(body)
	if len(r) <= n {
		return body
	}
	return string(r[:n]) + "..."
}

// restyLogger routes resty's internal messages into zap instead of stderr.
type restyLogger struct {
	s *zap.SugaredLogger
}

func (l *restyLogger) Errorf(format string, v ...any) { l.s.Errorf("resty: "+format, v...) }
func (l *restyLogger) Warnf(format string, v ...any)  { l.s.Warnf("resty: "+format, v...) }
func (l *restyLogger) Debugf(format string, v ...any) { l.s.Debugf("resty: "+format, v...) }
