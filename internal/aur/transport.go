package aur

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/blackwell-systems/aurkonsult/internal/logger"
)

// Version is reported in the User-Agent header. The app package sets it at
// startup.
var Version = "dev"

// UserAgent returns the User-Agent sent on every AUR request.
func UserAgent() string {
	return fmt.Sprintf("aurkonsult/%s (%s %s)", Version, runtime.GOOS, runtime.GOARCH)
}

// loggingTransport stamps the User-Agent on outgoing requests and logs each
// round trip at debug level.
type loggingTransport struct {
	base http.RoundTripper
}

func newLoggingTransport(base http.RoundTripper) *loggingTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &loggingTransport{base: base}
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", UserAgent())
	}

	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	elapsed := time.Since(start)

	log := logger.Logger()
	if err != nil {
		log.Debugw("aur request failed", "method", req.Method, "url", req.URL.String(), "elapsed", elapsed, "error", err)
		return nil, err
	}
	log.Debugw("aur request", "method", req.Method, "url", req.URL.String(), "status", resp.StatusCode, "elapsed", elapsed)
	return resp, nil
}

// newClient wraps client's transport with loggingTransport, copying the
// client so the caller's value is left untouched.
func newClient(client *http.Client, timeout time.Duration) *http.Client {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	c := *client
	if _, ok := c.Transport.(*loggingTransport); !ok {
		c.Transport = newLoggingTransport(c.Transport)
	}
	return &c
}
