package downloader

import (
	"context"
	"errors"
	"io"
	"net/http"
	neturl "net/url"
	"os"
	"path/filepath"

	"github.com/juju/ratelimit"

	"github.com/jxwalker/cfcore/internal/config"
	"github.com/jxwalker/cfcore/internal/logging"
)

// ProgressFunc receives the bytes written so far and the expected total
// (-1 when the server sent no Content-Length).
type ProgressFunc func(done, total int64)

// FetchResult describes a completed fetch.
type FetchResult struct {
	Bytes     int64
	FinalURL  string
	Redirects int
}

type fetchOptions struct {
	tee      []io.Writer
	progress ProgressFunc
}

// FetchOption customizes a single Fetch or FetchTo call.
type FetchOption func(*fetchOptions)

// WithTee copies every body byte to w as well as the destination.
func WithTee(w io.Writer) FetchOption {
	return func(o *fetchOptions) {
		if w != nil {
			o.tee = append(o.tee, w)
		}
	}
}

func WithProgress(p ProgressFunc) FetchOption {
	return func(o *fetchOptions) { o.progress = p }
}

// Fetcher issues GET requests, follows redirects itself up to a fixed bound
// and streams the terminal 200 body into a sink.
type Fetcher struct {
	client       *http.Client
	log          *logging.Logger
	ua           string
	maxRedirects int
	stage        bool
	bucket       *ratelimit.Bucket
	onRedirects  func(int)
}

func NewFetcher(cfg *config.Config, log *logging.Logger) *Fetcher {
	if cfg == nil {
		cfg = config.Default(os.TempDir())
	}
	f := &Fetcher{
		client:       newHTTPClient(cfg),
		log:          log,
		ua:           userAgent(cfg),
		maxRedirects: cfg.Network.MaxRedirects,
		stage:        cfg.StagePartials(),
	}
	if f.maxRedirects <= 0 {
		f.maxRedirects = config.DefaultMaxRedirects
	}
	if bps := cfg.Network.MaxBytesPerSecond; bps > 0 {
		f.bucket = ratelimit.NewBucketWithRate(float64(bps), bps)
	}
	return f
}

// WithHTTPClient swaps the underlying client. Its redirect policy is replaced
// so redirects always come back to the fetch loop.
func (f *Fetcher) WithHTTPClient(c *http.Client) *Fetcher {
	f.client = noFollow(c)
	return f
}

// WithMaxRedirects sets the redirect bound. Zero refuses every redirect.
func (f *Fetcher) WithMaxRedirects(n int) *Fetcher {
	if n < 0 {
		n = config.DefaultMaxRedirects
	}
	f.maxRedirects = n
	return f
}

func (f *Fetcher) MaxRedirects() int { return f.maxRedirects }

// FetchTo streams the body of rawURL into w. Nothing is written to w unless
// the chain ends in a 200.
func (f *Fetcher) FetchTo(ctx context.Context, rawURL string, w io.Writer, opts ...FetchOption) (FetchResult, error) {
	var o fetchOptions
	for _, opt := range opts {
		opt(&o)
	}
	var res FetchResult
	u, err := parseFetchURL(rawURL)
	if err != nil {
		return res, err
	}
	for {
		safe := logging.SanitizeURL(u.String())
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return res, &FetchError{Kind: KindTransport, URL: safe, Hops: res.Redirects, Err: err}
		}
		req.Header.Set("User-Agent", f.ua)
		resp, err := f.client.Do(req)
		if err != nil {
			return res, f.transportErr(ctx, safe, res.Redirects, err)
		}

		if isRedirect(resp.StatusCode) && resp.StatusCode != http.StatusNotModified {
			loc := resp.Header.Get("Location")
			drain(resp.Body)
			if res.Redirects >= f.maxRedirects {
				f.log.Warnf("redirect bound %d reached at %s", f.maxRedirects, safe)
				return res, &FetchError{Kind: KindTooManyRedirects, URL: safe, Hops: res.Redirects}
			}
			next, err := resolveLocation(u, loc)
			if err != nil {
				return res, &FetchError{Kind: KindUnexpectedStatus, URL: safe, Code: resp.StatusCode, Hops: res.Redirects, Err: err}
			}
			f.log.Debugf("redirect %d: %s -> %s", resp.StatusCode, safe, logging.SanitizeURL(next.String()))
			res.Redirects++
			if f.onRedirects != nil {
				f.onRedirects(1)
			}
			u = next
			continue
		}

		if resp.StatusCode != http.StatusOK {
			drain(resp.Body)
			return res, &FetchError{Kind: KindUnexpectedStatus, URL: safe, Code: resp.StatusCode, Hops: res.Redirects}
		}

		res.FinalURL = u.String()
		n, err := f.stream(w, resp, o)
		res.Bytes = n
		_ = resp.Body.Close()
		if err != nil {
			var se *sinkError
			if errors.As(err, &se) {
				return res, &DownloadError{Op: "write", URL: safe, Err: se.err}
			}
			return res, f.transportErr(ctx, safe, res.Redirects, err)
		}
		f.log.Debugf("fetched %d bytes from %s after %d redirect(s)", n, safe, res.Redirects)
		return res, nil
	}
}

func (f *Fetcher) stream(w io.Writer, resp *http.Response, o fetchOptions) (int64, error) {
	var body io.Reader = resp.Body
	if f.bucket != nil {
		body = ratelimit.Reader(body, f.bucket)
	}
	sinks := append([]io.Writer{w}, o.tee...)
	sw := &sinkWriter{w: io.MultiWriter(sinks...)}
	var out io.Writer = sw
	if o.progress != nil {
		out = &progressWriter{w: sw, total: resp.ContentLength, fn: o.progress}
		o.progress(0, resp.ContentLength)
	}
	buf := make([]byte, 1<<20)
	n, err := io.CopyBuffer(out, body, buf)
	if err != nil && sw.err != nil {
		return n, &sinkError{err: sw.err}
	}
	return n, err
}

// Fetch streams rawURL into dest. With staging enabled bytes land in
// dest+".part" and are renamed into place on success. On any failure the
// partial file is removed and dest is left absent.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, dest string, opts ...FetchOption) (FetchResult, error) {
	var res FetchResult
	if dest == "" {
		return res, errors.New("destination path required")
	}
	safe := logging.SanitizeURL(rawURL)
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return res, &DownloadError{Op: "create", URL: safe, Path: dir, Err: err}
	}
	target := dest
	if f.stage {
		target = dest + ".part"
	}
	file, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return res, &DownloadError{Op: "create", URL: safe, Path: target, Err: err}
	}

	res, err = f.FetchTo(ctx, rawURL, file, opts...)
	if err == nil {
		if serr := file.Sync(); serr != nil {
			err = &DownloadError{Op: "sync", URL: safe, Path: target, Err: serr}
		}
	}
	if cerr := file.Close(); err == nil && cerr != nil {
		err = &DownloadError{Op: "close", URL: safe, Path: target, Err: cerr}
	}
	if err != nil {
		var de *DownloadError
		if errors.As(err, &de) && de.Path == "" {
			de.Path = target
		}
		f.cleanup(target, dest)
		return res, err
	}

	if f.stage {
		if err := renameOrCopy(target, dest); err != nil {
			f.cleanup(target, dest)
			return res, &DownloadError{Op: "rename", URL: safe, Path: dest, Err: err}
		}
	}
	if err := fsyncDir(dir); err != nil {
		f.log.Debugf("fsync %s: %v", dir, err)
	}
	return res, nil
}

func (f *Fetcher) cleanup(target, dest string) {
	for _, p := range []string{target, dest} {
		if err := removeQuiet(p); err != nil {
			f.log.Warnf("cleanup %s: %v", p, err)
		}
	}
}

func (f *Fetcher) transportErr(ctx context.Context, safe string, hops int, err error) error {
	// Prefer the context's own error so callers can match context.Canceled.
	if cerr := ctx.Err(); cerr != nil {
		err = cerr
	} else {
		var uerr *neturl.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
	}
	return &FetchError{Kind: KindTransport, URL: safe, Hops: hops, Err: err}
}

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	_ = body.Close()
}

// sinkWriter remembers the destination's write error so it can be told apart
// from a failed body read.
type sinkWriter struct {
	w   io.Writer
	err error
}

func (s *sinkWriter) Write(p []byte) (int, error) {
	n, err := s.w.Write(p)
	if err != nil {
		s.err = err
	}
	return n, err
}

type sinkError struct{ err error }

func (e *sinkError) Error() string { return e.err.Error() }
func (e *sinkError) Unwrap() error { return e.err }

type progressWriter struct {
	w     io.Writer
	done  int64
	total int64
	fn    ProgressFunc
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.done += int64(n)
	p.fn(p.done, p.total)
	return n, err
}
