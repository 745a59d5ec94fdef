package downloader

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	neturl "net/url"
	"runtime"
	"strings"
	"time"

	"github.com/jxwalker/cfcore/internal/config"
)

// Version is stamped by cmd/cfcore and used in the default User-Agent.
var Version = "dev"

func newHTTPClient(cfg *config.Config) *http.Client {
	timeout := time.Duration(cfg.Network.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}
	return noFollow(&http.Client{Transport: tr, Timeout: timeout})
}

// noFollow returns a shallow copy of c that hands every redirect response
// back to the caller. The fetch loop follows them itself so it can count hops.
func noFollow(c *http.Client) *http.Client {
	if c == nil {
		c = &http.Client{}
	}
	cl := *c
	cl.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	return &cl
}

// userAgent returns the configured User-Agent, or
// "cfcore/<version> (<goos>/<goarch>)" when unset.
func userAgent(cfg *config.Config) string {
	if cfg != nil && cfg.Network.UserAgent != "" {
		return cfg.Network.UserAgent
	}
	return DefaultUserAgent()
}

func DefaultUserAgent() string {
	return fmt.Sprintf("cfcore/%s (%s/%s)", Version, runtime.GOOS, runtime.GOARCH)
}

func isRedirect(code int) bool { return code >= 300 && code < 400 }

// resolveLocation turns a Location header into the absolute URL of the next hop.
func resolveLocation(base *neturl.URL, loc string) (*neturl.URL, error) {
	loc = strings.TrimSpace(loc)
	if loc == "" {
		return nil, fmt.Errorf("redirect without Location header")
	}
	u, err := neturl.Parse(loc)
	if err != nil {
		return nil, fmt.Errorf("bad Location %q: %w", loc, err)
	}
	next := base.ResolveReference(u)
	if next.Scheme != "http" && next.Scheme != "https" {
		return nil, fmt.Errorf("redirect to unsupported scheme %q", next.Scheme)
	}
	return next, nil
}

func parseFetchURL(raw string) (*neturl.URL, error) {
	u, err := neturl.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return u, nil
}
