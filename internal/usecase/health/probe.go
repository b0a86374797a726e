package health

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/nowa-engine/ragquery/internal/domain"
	"github.com/nowa-engine/ragquery/internal/transport/httpclient"
)

// DefaultTimeout bounds a single liveness request.
const DefaultTimeout = 10 * time.Second

const previewLen = 120

// Result is the outcome of probing one service.
// Reachable means any HTTP response arrived; status codes are not classified.
type Result struct {
	Service     string
	URL         string
	Reachable   bool
	StatusCode  int
	BodyPreview string
	Latency     time.Duration
	Err         error
}

// String renders the result as one diagnostic line.
func (r Result) String() string {
	if r.Reachable {
		return fmt.Sprintf("%s %s -> %d (%s) %q", r.Service, r.URL, r.StatusCode, r.Latency.Round(time.Millisecond), r.BodyPreview)
	}
	return fmt.Sprintf("%s %s -> unreachable: %v", r.Service, r.URL, r.Err)
}

// HTTPProbe issues plain GETs with a bounded timeout.
type HTTPProbe struct {
	client *resty.Client
}

// NewHTTPProbe creates a probe; timeout <= 0 uses DefaultTimeout.
func NewHTTPProbe(timeout time.Duration, log *zap.Logger) *HTTPProbe {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPProbe{client: httpclient.New("", timeout, log)}
}

// Probe implements Prober.
func (p *HTTPProbe) Probe(ctx context.Context, url string) Result {
	res := Result{URL: url}
	start := time.Now()
	resp, err := p.client.R().SetContext(ctx).Get(url)
	res.Latency = time.Since(start)
	if err != nil {
		res.Err = fmt.Errorf("%v: %w", err, domain.ErrServiceUnreachable)
		return res
	}
	res.Reachable = true
	res.StatusCode = resp.StatusCode()
	res.BodyPreview = httpclient.Preview(resp.String(), previewLen)
	return res
}
