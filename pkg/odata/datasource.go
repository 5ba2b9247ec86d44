package odata

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Doer sends HTTP requests. *http.Client satisfies it. Implementations must
// be safe for concurrent use.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Limiter blocks until one request may be sent. *rate.Limiter satisfies it.
// Implementations must be safe for concurrent use and should only delay,
// returning an error only when ctx ends.
type Limiter interface {
	Wait(ctx context.Context) error
}

// DataSource is a target OData service. It is safe for concurrent use and
// holds no mutable state beyond what its collaborators manage.
type DataSource struct {
	client    Doer
	scheme    string
	host      string
	basePath  string
	limiter   Limiter
	userAgent string
	headers   http.Header
	maxPages  int
	coalesce  bool
	group     singleflight.Group
	logger    zerolog.Logger
}

// Option configures a DataSource.
type Option func(*DataSource)

// WithScheme sets the URL scheme, "https" (default) or "http".
func WithScheme(scheme string) Option {
	return func(ds *DataSource) { ds.scheme = strings.ToLower(scheme) }
}

// WithLimiter makes every outbound request, including each paged follow-up,
// wait on l first.
func WithLimiter(l Limiter) Option {
	return func(ds *DataSource) { ds.limiter = l }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(ds *DataSource) { ds.userAgent = ua }
}

// WithHeader adds a header sent with every request, e.g. an API key.
func WithHeader(key, value string) Option {
	return func(ds *DataSource) { ds.headers.Add(key, value) }
}

// WithLogger replaces the default component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(ds *DataSource) { ds.logger = logger }
}

// WithMaxPages makes FetchPaged fail with KindPagination once a walk would
// exceed n pages. The default, 0, follows next links without bound.
func WithMaxPages(n int) Option {
	return func(ds *DataSource) { ds.maxPages = n }
}

// WithRequestCoalescing lets concurrent identical GETs on this DataSource
// share one round trip. The first caller's context governs the shared
// request. Nothing is kept once the round trip completes.
func WithRequestCoalescing() Option {
	return func(ds *DataSource) { ds.coalesce = true }
}

// New creates a DataSource for the service at host (an authority such as
// "oda.ft.dk" or "localhost:8080") and an optional base path such as "/api".
func New(client Doer, host string, basePath string, opts ...Option) (*DataSource, error) {
	if client == nil {
		return nil, constructionError("new datasource", "http client is required")
	}

	ds := &DataSource{
		client:  client,
		scheme:  "https",
		headers: make(http.Header),
		logger:  log.With().Str("component", "odata-client").Logger(),
	}
	for _, opt := range opts {
		opt(ds)
	}

	if ds.scheme != "https" && ds.scheme != "http" {
		return nil, constructionError("new datasource", "scheme must be http or https (got %q)", ds.scheme)
	}
	if ds.maxPages < 0 {
		return nil, constructionError("new datasource", "max pages must be >= 0 (got %d)", ds.maxPages)
	}
	if err := validateHost(host); err != nil {
		return nil, err
	}
	base, err := normalizeBasePath(basePath)
	if err != nil {
		return nil, err
	}
	if _, err := url.Parse(ds.scheme + "://" + host + base); err != nil {
		return nil, constructionError("new datasource", "host and base path do not form a URL: %v", err)
	}

	ds.host = host
	ds.basePath = base
	return ds, nil
}

// Host returns the service authority.
func (ds *DataSource) Host() string { return ds.host }

// BasePath returns the normalized base path ("" or "/seg[/seg]").
func (ds *DataSource) BasePath() string { return ds.basePath }

// ServiceRoot returns scheme, host and base path joined.
func (ds *DataSource) ServiceRoot() string {
	return ds.scheme + "://" + ds.host + ds.basePath
}

// URL builds the absolute URL for req.
func (ds *DataSource) URL(req Request) (string, error) {
	if req == nil {
		return "", constructionError("build url", "request is nil")
	}
	resource, err := req.ResourcePath()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(ds.ServiceRoot())
	b.WriteString(resource)
	if query := encodeClauses(req.Clauses()); query != "" {
		b.WriteByte('?')
		b.WriteString(query)
	}

	raw := b.String()
	u, err := url.Parse(raw)
	if err != nil {
		return "", &Error{Kind: KindURL, Op: "build url", URL: raw, Err: err}
	}
	if u.Host != ds.host {
		return "", &Error{Kind: KindURL, Op: "build url", URL: raw, Err: fmt.Errorf("host %q does not match %q", u.Host, ds.host)}
	}
	return raw, nil
}

// get performs a GET against link and returns the decoded body bytes.
func (ds *DataSource) get(ctx context.Context, entitySet, link string) ([]byte, error) {
	if !ds.coalesce {
		return ds.roundTrip(ctx, entitySet, link)
	}

	v, err, shared := ds.group.Do(link, func() (any, error) {
		return ds.roundTrip(ctx, entitySet, link)
	})
	if err != nil {
		return nil, err
	}
	body := v.([]byte)
	if shared {
		coalescedTotal.WithLabelValues(entitySet).Inc()
		body = bytes.Clone(body)
	}
	return body, nil
}

func (ds *DataSource) roundTrip(ctx context.Context, entitySet, link string) ([]byte, error) {
	if ds.limiter != nil {
		if err := ds.limiter.Wait(ctx); err != nil {
			return nil, ds.fail(&Error{Kind: KindTransport, Op: "rate limit wait", URL: link, Err: err})
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, ds.fail(&Error{Kind: KindURL, Op: "create request", URL: link, Err: err})
	}
	ds.setHeaders(req)

	ds.logger.Debug().
		Str("entity_set", entitySet).
		Str("url", link).
		Msg("Executing OData request")

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(entitySet).Observe(time.Since(startTime).Seconds())
	}()

	resp, err := ds.client.Do(req)
	if err != nil {
		requestsTotal.WithLabelValues(entitySet, "transport_error").Inc()
		ds.logger.Error().Err(err).Str("url", link).Msg("HTTP request failed")
		return nil, ds.fail(&Error{Kind: KindTransport, Op: "GET", URL: link, Err: err})
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(entitySet, strconv.Itoa(resp.StatusCode)).Inc()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ds.fail(&Error{Kind: KindTransport, Op: "read body", URL: link, StatusCode: resp.StatusCode, Err: err})
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, decErr := decodeBody(raw, resp.Header.Get("Content-Encoding"))
		if decErr != nil {
			body = raw
		}
		ds.logger.Warn().
			Str("entity_set", entitySet).
			Str("url", link).
			Int("status", resp.StatusCode).
			Msg("OData request error")
		return nil, ds.fail(&Error{
			Kind:       KindHTTPStatus,
			Op:         "GET",
			URL:        link,
			StatusCode: resp.StatusCode,
			Body:       truncateBody(body),
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		})
	}

	body, err := decodeBody(raw, resp.Header.Get("Content-Encoding"))
	if err != nil {
		return nil, ds.fail(&Error{Kind: KindDecode, Op: "decompress body", URL: link, StatusCode: resp.StatusCode, Err: err})
	}

	ds.logger.Debug().
		Str("entity_set", entitySet).
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Dur("duration", time.Since(startTime)).
		Msg("OData request completed")

	return body, nil
}

func (ds *DataSource) setHeaders(req *http.Request) {
	for key, values := range ds.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", acceptEncoding)
	req.Header.Set("DataServiceVersion", "3.0")
	req.Header.Set("MaxDataServiceVersion", "3.0")
	if ds.userAgent != "" {
		req.Header.Set("User-Agent", ds.userAgent)
	}
}

// fail records err in the error metrics and returns it.
func (ds *DataSource) fail(err *Error) *Error {
	errorsTotal.WithLabelValues(string(err.Kind)).Inc()
	ds.logger.Debug().Str("kind", string(err.Kind)).Str("url", err.URL).Msg("Error classified")
	return err
}

func validateHost(host string) error {
	if host == "" {
		return constructionError("new datasource", "host is required")
	}
	u, err := url.Parse("//" + host)
	if err != nil {
		return constructionError("new datasource", "invalid host %q: %v", host, err)
	}
	if u.Host != host || u.User != nil || u.Path != "" || u.RawQuery != "" || u.Fragment != "" {
		return constructionError("new datasource", "host %q must be a bare authority", host)
	}
	return nil
}

// normalizeBasePath turns "", "/", "api", "/api" and "/api/" into "" or
// "/api" so that joining with a resource path yields exactly one slash.
func normalizeBasePath(basePath string) (string, error) {
	trimmed := strings.Trim(basePath, "/")
	if trimmed == "" {
		return "", nil
	}
	for _, r := range trimmed {
		if r == '?' || r == '#' || unicode.IsSpace(r) || unicode.IsControl(r) {
			return "", constructionError("new datasource", "base path %q contains %q", basePath, r)
		}
	}
	if strings.Contains(trimmed, "//") {
		return "", constructionError("new datasource", "base path %q contains an empty segment", basePath)
	}
	return "/" + trimmed, nil
}
