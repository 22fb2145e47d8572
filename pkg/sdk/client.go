package docextract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultUserAgent = "docextract-go"

	// maxErrorBody caps how much of a non-JSON error response is kept.
	maxErrorBody = 4 << 10
)

// Client talks to a docextract server.
type Client struct {
	base   *url.URL
	http   *http.Client
	apiKey string
	ua     string
	obs    *observer
}

// New creates a client for the server at baseURL (e.g. "http://localhost:8080").
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("docextract: base URL is required")
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("docextract: parse base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("docextract: unsupported URL scheme %q", u.Scheme)
	}

	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.httpClient == nil {
		cfg.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if cfg.userAgent == "" {
		cfg.userAgent = defaultUserAgent
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	return &Client{
		base:   u,
		http:   cfg.httpClient,
		apiKey: cfg.apiKey,
		ua:     cfg.userAgent,
		obs:    obs,
	}, nil
}

// Extract uploads files and returns one result per file in input order.
// The first failing file fails the whole call with an *APIError.
func (c *Client) Extract(ctx context.Context, files ...File) (_ []Result, err error) {
	start := time.Now()
	defer func() { c.obs.observe("extract", start, err) }()

	var body extractBody
	if err := c.upload(ctx, false, files, &body); err != nil {
		return nil, err
	}
	return body.Results, nil
}

// ExtractPartial uploads files and reports each one independently.
// Only request-level problems (auth, oversized batch, transport) return an error.
func (c *Client) ExtractPartial(ctx context.Context, files ...File) (_ PartialResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("extract_partial", start, err) }()

	var body partialBody
	if err := c.upload(ctx, true, files, &body); err != nil {
		return PartialResult{}, err
	}

	out := PartialResult{
		Items:     make([]Item, 0, len(body.Results)),
		Succeeded: body.Succeeded,
		Failed:    body.Failed,
	}
	for _, r := range body.Results {
		item := Item{Filename: r.Filename, Result: r.Result}
		if r.Failure != nil {
			item.Err = r.Failure.apiError(0)
		}
		out.Items = append(out.Items, item)
	}
	return out, nil
}

// Health fetches the service health report. A 503 is not an error:
// the report says which component failed.
func (c *Client) Health(ctx context.Context) (_ HealthStatus, err error) {
	start := time.Now()
	defer func() { c.obs.observe("health", start, err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/health", nil), nil)
	if err != nil {
		return HealthStatus{}, fmt.Errorf("docextract: build request: %w", err)
	}
	c.decorate(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return HealthStatus{}, fmt.Errorf("docextract: health: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return HealthStatus{}, decodeError(resp)
	}
	var body healthBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return HealthStatus{}, fmt.Errorf("docextract: decode health: %w", err)
	}
	return HealthStatus(body), nil
}

func (c *Client) upload(ctx context.Context, partial bool, files []File, out any) error {
	if len(files) == 0 {
		return ErrNoFiles
	}

	payload, contentType, err := encodeFiles(files)
	if err != nil {
		return err
	}

	var q url.Values
	if partial {
		q = url.Values{"partial": {"true"}}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/extract_entities", q), payload)
	if err != nil {
		return fmt.Errorf("docextract: build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	c.decorate(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("docextract: extract: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("docextract: decode response: %w", err)
	}
	return nil
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if q != nil {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func (c *Client) decorate(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.ua)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func encodeFiles(files []File) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for i, f := range files {
		if f.Name == "" {
			return nil, "", fmt.Errorf("docextract: file %d has no name", i)
		}
		if f.Body == nil {
			return nil, "", fmt.Errorf("docextract: file %q has no body", f.Name)
		}
		part, err := mw.CreateFormFile("files", f.Name)
		if err != nil {
			return nil, "", fmt.Errorf("docextract: create part %q: %w", f.Name, err)
		}
		if _, err := io.Copy(part, f.Body); err != nil {
			return nil, "", fmt.Errorf("docextract: read %q: %w", f.Name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("docextract: close multipart: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

// decodeError turns a non-2xx response into an *APIError. Bodies that are not
// the service's JSON error shape (proxies, load balancers) keep their text as
// the message.
func decodeError(resp *http.Response) error {
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("docextract: read error response: %w", err)
	}
	var body errorBody
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		return body.apiError(resp.StatusCode)
	}
	return &APIError{
		StatusCode: resp.StatusCode,
		Code:       http.StatusText(resp.StatusCode),
		Message:    strings.TrimSpace(string(data)),
	}
}
