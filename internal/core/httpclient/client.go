// Package httpclient configures the HTTP client used to call upstream services.
package httpclient

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// NewOutbound creates a new outbound http client. When rps > 0 every request
// waits on a shared token bucket before it is sent.
func NewOutbound(timeout time.Duration, rps float64) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          256,
		MaxIdleConnsPerHost:   128,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{
		Transport: Throttle(transport, rps),
		Timeout:   timeout,
	}
}

// Throttle wraps next with a limiter allowing rps requests per second.
func Throttle(next http.RoundTripper, rps float64) http.RoundTripper {
	if rps <= 0 {
		return next
	}
	burst := max(int(rps), 1)
	return &limitedTransport{next: next, lim: rate.NewLimiter(rate.Limit(rps), burst)}
}

type limitedTransport struct {
	next http.RoundTripper
	lim  *rate.Limiter
}

func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.lim.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("outbound rate limit: %w", err)
	}
	return t.next.RoundTrip(req)
}
