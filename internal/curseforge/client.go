// Package curseforge is a client for the CurseForge Core REST API. The
// client holds its base URL, API key and HTTP client; nothing is global.
package curseforge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jxwalker/cfcore/internal/config"
	"github.com/jxwalker/cfcore/internal/downloader"
	"github.com/jxwalker/cfcore/internal/logging"
)

const maxPageSize = 50

// Client talks to one API endpoint with one key. The key cannot be changed
// after construction.
type Client struct {
	baseURL    string
	apiKey     string
	http       *http.Client
	log        *logging.Logger
	ua         string
	pageSize   int
	depWorkers int

	dl           *downloader.Downloader
	downloadRoot string
	layout       string
	verify       bool
}

type Option func(*Client)

// WithHTTPClient sets the client used for API calls. Downloads use the
// downloader's own client.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithAPIKey overrides the key taken from config.
func WithAPIKey(k string) Option { return func(c *Client) { c.apiKey = strings.TrimSpace(k) } }

func WithDownloader(d *downloader.Downloader) Option { return func(c *Client) { c.dl = d } }

// New builds a Client from cfg. It fails with ErrMissingAPIKey when no key
// is configured.
func New(cfg *config.Config, log *logging.Logger, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("curseforge: nil config")
	}
	timeout := time.Duration(cfg.Network.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		baseURL:      cfg.API.BaseURL,
		apiKey:       cfg.APIKey(),
		http:         &http.Client{Timeout: timeout},
		log:          log,
		ua:           cfg.Network.UserAgent,
		pageSize:     cfg.API.PageSize,
		depWorkers:   cfg.Concurrency.DependencyWorkers,
		downloadRoot: cfg.General.DownloadRoot,
		layout:       cfg.General.Layout,
		verify:       cfg.VerifyDownloads(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if c.ua == "" {
		c.ua = downloader.DefaultUserAgent()
	}
	if c.pageSize <= 0 || c.pageSize > maxPageSize {
		c.pageSize = maxPageSize
	}
	if c.dl == nil {
		c.dl = downloader.New(cfg, log, nil, nil)
	}
	return c, nil
}

// bound reports ErrUnbound for a nil client.
func (c *Client) bound() error {
	if c == nil {
		return ErrUnbound
	}
	return nil
}

func (c *Client) BaseURL() string { return c.baseURL }

// Downloader exposes the downloader used by File.Download.
func (c *Client) Downloader() *downloader.Downloader { return c.dl }

// VerifyByDefault is the validation.verify_downloads setting.
func (c *Client) VerifyByDefault() bool { return c.verify }

type envelope struct {
	Data       json.RawMessage `json:"data"`
	Pagination *Pagination     `json:"pagination"`
}

// get decodes the data member of GET path into out and returns the
// pagination block when present.
func (c *Client) get(ctx context.Context, path string, q url.Values, out any) (*Pagination, error) {
	return c.do(ctx, http.MethodGet, path, q, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) (*Pagination, error) {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body, out any) (*Pagination, error) {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", path, err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.ua)
	req.Header.Set("x-api-key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	c.log.Debugf("%s %s -> %d (%s)", method, logging.SanitizeURL(u), resp.StatusCode, time.Since(start).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &APIError{Code: resp.StatusCode, Method: method, Path: path, Body: string(snippet)}
	}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("decode %s data: %w", path, err)
		}
	}
	return env.Pagination, nil
}

// paging adds index/pageSize to q, clamping the size to the API maximum.
func (c *Client) paging(q url.Values, p PageOptions) {
	size := p.PageSize
	if size <= 0 {
		size = c.pageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	if p.Index > 0 {
		q.Set("index", fmt.Sprint(p.Index))
	}
	q.Set("pageSize", fmt.Sprint(size))
}

func pageOf(p *Pagination) Pagination {
	if p == nil {
		return Pagination{}
	}
	return *p
}

func (c *Client) bindGames(gs []*Game) {
	for _, g := range gs {
		if g != nil {
			g.c = c
		}
	}
}

func (c *Client) bindCategories(cs []*Category) {
	for _, cat := range cs {
		if cat != nil {
			cat.c = c
		}
	}
}

func (c *Client) bindMods(ms []*Mod) {
	for _, m := range ms {
		if m == nil {
			continue
		}
		m.c = c
		c.bindCategories(m.Categories)
		c.bindFiles(m.LatestFiles)
	}
}

func (c *Client) bindFiles(fs []*File) {
	for _, f := range fs {
		if f != nil {
			f.c = c
		}
	}
}
