package odata

import (
	"context"
	"errors"
	"net/url"
	"path"
	"strings"

	"github.com/Sternrassler/odata-client/pkg/pagination"
)

// Page is one page of a collection response.
type Page[T any] struct {
	Items []T `json:"items"`
	// NextLink is the absolute URL of the following page, "" on the last one.
	NextLink string `json:"next_link,omitempty"`
	// Count is the total reported via $inlinecount=allpages, if any.
	Count *int64 `json:"count,omitempty"`
}

// Fetch requests a single value and decodes it into T. A top-level "d"
// envelope is unwrapped first.
func Fetch[T any](ctx context.Context, ds *DataSource, req Request) (T, error) {
	var zero T

	link, err := ds.requestURL(req)
	if err != nil {
		return zero, err
	}

	body, err := ds.get(ctx, req.EntitySet(), link)
	if err != nil {
		return zero, err
	}

	var out T
	if err := decodeEntity(body, &out); err != nil {
		return zero, ds.fail(&Error{Kind: KindDecode, Op: "decode entity", URL: link, Err: err})
	}
	return out, nil
}

// FetchPaged requests a collection and follows next links until the last
// page, returning every element in page order. The first failing page or
// element aborts the call and nothing is returned.
//
// Next links are followed exactly as the service sends them. Unless the
// DataSource was built WithMaxPages, a service whose links form a cycle is
// followed until ctx ends.
func FetchPaged[T any](ctx context.Context, ds *DataSource, req Request) ([]T, error) {
	link, err := ds.requestURL(req)
	if err != nil {
		return nil, err
	}
	entitySet := req.EntitySet()

	walker := pagination.NewWalker[T](pagination.Config{
		MaxPages:      ds.maxPages,
		ProgressEvery: pagination.DefaultConfig().ProgressEvery,
	}, ds.logger.With().Str("entity_set", entitySet).Logger())

	fetcher := pagination.PageFetcherFunc[T](func(ctx context.Context, link string) ([]T, string, error) {
		page, err := fetchPage[T](ctx, ds, entitySet, link)
		if err != nil {
			return nil, "", err
		}
		return page.Items, page.NextLink, nil
	})

	items, err := walker.Walk(ctx, fetcher, link)
	if err != nil {
		var oe *Error
		switch {
		case errors.As(err, &oe):
			return nil, err
		case errors.Is(err, pagination.ErrMaxPagesExceeded):
			return nil, ds.fail(&Error{Kind: KindPagination, Op: "walk pages", URL: link, Err: err})
		default:
			return nil, ds.fail(&Error{Kind: KindTransport, Op: "walk pages", URL: link, Err: err})
		}
	}
	return items, nil
}

// FetchPage requests the first page of a collection only.
func FetchPage[T any](ctx context.Context, ds *DataSource, req Request) (*Page[T], error) {
	link, err := ds.requestURL(req)
	if err != nil {
		return nil, err
	}
	return fetchPage[T](ctx, ds, req.EntitySet(), link)
}

// FetchLink requests the page behind a next link previously returned by
// FetchPage or FetchLink. The link must be absolute and point at this
// DataSource's host.
func FetchLink[T any](ctx context.Context, ds *DataSource, link string) (*Page[T], error) {
	u, err := url.Parse(link)
	if err != nil {
		return nil, ds.fail(&Error{Kind: KindPagination, Op: "follow link", URL: link, Err: err})
	}
	if !u.IsAbs() {
		return nil, ds.fail(&Error{Kind: KindPagination, Op: "follow link", URL: link, Err: errors.New("link is not absolute")})
	}
	if _, err := resolveLink(link, link, ds.host); err != nil {
		return nil, ds.fail(&Error{Kind: KindPagination, Op: "follow link", URL: link, Err: err})
	}
	return fetchPage[T](ctx, ds, entitySetOf(u), link)
}

func fetchPage[T any](ctx context.Context, ds *DataSource, entitySet, link string) (*Page[T], error) {
	body, err := ds.get(ctx, entitySet, link)
	if err != nil {
		return nil, err
	}

	c, err := parseCollection(body)
	if err != nil {
		return nil, ds.fail(&Error{Kind: KindDecode, Op: "decode collection", URL: link, Err: err})
	}

	items, err := decodeItems[T](c.items)
	if err != nil {
		return nil, ds.fail(&Error{Kind: KindDecode, Op: "decode collection", URL: link, Err: err})
	}

	next, err := resolveNextLink(link, c.next, ds.host)
	if err != nil {
		return nil, ds.fail(&Error{Kind: KindPagination, Op: "resolve next link", URL: link, Err: err})
	}

	pagesTotal.WithLabelValues(entitySet).Inc()

	return &Page[T]{Items: items, NextLink: next, Count: c.count}, nil
}

// requestURL is URL with error accounting.
func (ds *DataSource) requestURL(req Request) (string, error) {
	link, err := ds.URL(req)
	if err != nil {
		var oe *Error
		if errors.As(err, &oe) {
			ds.fail(oe)
		}
		return "", err
	}
	return link, nil
}

// entitySetOf extracts the entity set from a resource URL such as
// ".../api/Dokument" or ".../api/Dokument(24)".
func entitySetOf(u *url.URL) string {
	name := path.Base(u.Path)
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = name[:i]
	}
	if name == "." || name == "/" {
		return ""
	}
	return name
}
