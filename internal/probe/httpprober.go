package probe

import (
	"context"
	"io"
	"net/http"
	"time"
)

type HTTPProber struct {
	Client *http.Client
	// Classify, when set, annotates connect errors with a DNS class.
	Classify func(ctx context.Context, host string) string
}

func NewHTTPProber(timeout time.Duration) *HTTPProber {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProber{
		Client:   &http.Client{Timeout: timeout},
		Classify: ClassifyHost,
	}
}

func (h *HTTPProber) Probe(ctx context.Context, target string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, &ConnectError{Target: target, Err: err}
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		ce := &ConnectError{Target: target, Err: err}
		// a cancelled probe is shutdown, not an outage worth classifying
		if h.Classify != nil && ctx.Err() == nil {
			ce.DNS = h.Classify(ctx, extractHost(target))
		}
		return 0, ce
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	return resp.StatusCode, nil
}
