package telegram

import (
	"net"
	"net/http"
	"time"

	"github.com/m3rciful/pdfbot/core/telegram/netutil"
)

// HTTPClientOptions overrides the client timeouts. Zero keeps the default.
// Timeout must cover whole file transfers; ResponseTimeout must exceed the long poll timeout.
type HTTPClientOptions struct {
	Timeout         time.Duration
	ResponseTimeout time.Duration
}

func orDefault(v, def time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return def
}

// BuildHTTPClient returns the client used for Bot API calls.
// Requests failing on the network layer are retried up to three times.
func BuildHTTPClient(opts HTTPClientOptions) *http.Client {
	dialer := &net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}
	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: orDefault(opts.ResponseTimeout, 5*time.Second),
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{
		Timeout:   orDefault(opts.Timeout, 30*time.Second),
		Transport: &retryTransport{next: base, retries: 3, step: 2 * time.Second},
	}
}

type retryTransport struct {
	next    http.RoundTripper
	retries int
	step    time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	for attempt := 1; err != nil && attempt <= t.retries && netutil.ShouldRetry(err); attempt++ {
		// A body that cannot be rewound was already consumed.
		if req.Body != nil && req.GetBody == nil {
			return nil, err
		}
		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(t.step * time.Duration(attempt)):
		}
		retry := req.Clone(req.Context())
		if req.GetBody != nil {
			body, berr := req.GetBody()
			if berr != nil {
				return nil, berr
			}
			retry.Body = body
		}
		resp, err = t.next.RoundTrip(retry)
	}
	return resp, err
}
