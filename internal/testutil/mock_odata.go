// Package testutil provides testing utilities for the OData client.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock OData endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// PageStyle selects the JSON shape of a mocked collection.
type PageStyle int

const (
	// PageStyleVerbose renders {"d":{"results":[...],"__next":"..."}}.
	PageStyleVerbose PageStyle = iota
	// PageStyleLight renders {"value":[...],"odata.nextLink":"..."}.
	PageStyleLight
)

// Collection describes a paged collection served through $skiptoken links.
type Collection struct {
	Style PageStyle
	// Pages holds the raw JSON elements of each page.
	Pages [][]string
	// RelativeNextLinks emits next links without scheme and host.
	RelativeNextLinks bool
	// Count adds the total element count to every page.
	Count bool
}

// MockOData is a configurable mock OData service for testing.
type MockOData struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount      int
	RequestURIs       []string
	LastRequestHeader http.Header
}

// NewMockOData creates a new mock OData server.
func NewMockOData() *MockOData {
	mock := &MockOData{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.RequestURIs = append(mock.RequestURIs, r.URL.RequestURI())
		mock.LastRequestHeader = r.Header.Clone()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json;odata=verbose;charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, `{"error":{"code":"","message":{"lang":"en-US","value":"Resource not found for the segment '%s'."}}}`, r.URL.Path)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockOData) URL() string {
	return m.server.URL
}

// Host returns the server authority (host:port), as passed to odata.New.
func (m *MockOData) Host() string {
	return strings.TrimPrefix(m.server.URL, "http://")
}

// Client returns an HTTP client wired to the server.
func (m *MockOData) Client() *http.Client {
	return m.server.Client()
}

// Close shuts down the mock server.
func (m *MockOData) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockOData) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.RequestURIs = nil
	m.LastRequestHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockOData) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockOData) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetCollection serves c at path. Page i is selected by $skiptoken=i; the
// first page has no token.
func (m *MockOData) SetCollection(path string, c Collection) {
	total := 0
	for _, page := range c.Pages {
		total += len(page)
	}

	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		index := 0
		if token := r.URL.Query().Get("$skiptoken"); token != "" {
			n, err := strconv.Atoi(token)
			if err != nil || n < 0 || n >= len(c.Pages) {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			index = n
		}

		next := ""
		if index+1 < len(c.Pages) {
			next = path + "?$skiptoken=" + strconv.Itoa(index+1)
			if !c.RelativeNextLinks {
				next = m.server.URL + next
			}
		}

		var items []string
		if len(c.Pages) > 0 {
			items = c.Pages[index]
		}

		w.Header().Set("Content-Type", "application/json;charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(renderPage(c.Style, items, next, c.Count, total)))
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockOData) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetRequestURIs returns the request URIs in arrival order.
func (m *MockOData) GetRequestURIs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.RequestURIs...)
}

// GetLastRequestHeader returns the headers of the most recent request.
func (m *MockOData) GetLastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestHeader.Clone()
}

func renderPage(style PageStyle, items []string, next string, withCount bool, total int) string {
	results := "[" + strings.Join(items, ",") + "]"

	var b strings.Builder
	switch style {
	case PageStyleLight:
		b.WriteString(`{"odata.metadata":"$metadata#Collection",`)
		if withCount {
			fmt.Fprintf(&b, `"odata.count":"%d",`, total)
		}
		b.WriteString(`"value":` + results)
		if next != "" {
			fmt.Fprintf(&b, `,"odata.nextLink":%q`, next)
		}
		b.WriteString(`}`)
	default:
		b.WriteString(`{"d":{`)
		if withCount {
			fmt.Fprintf(&b, `"__count":"%d",`, total)
		}
		b.WriteString(`"results":` + results)
		if next != "" {
			fmt.Fprintf(&b, `,"__next":%q`, next)
		}
		b.WriteString(`}}`)
	}
	return b.String()
}

// NewEntityResponse creates a 200 OK response carrying body.
func NewEntityResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"Content-Type":       "application/json;charset=utf-8",
			"DataServiceVersion": "3.0;",
		},
	}
}

// NewErrorResponse creates an OData error response with the given status.
func NewErrorResponse(status int, message string) MockResponse {
	return MockResponse{
		StatusCode: status,
		Body:       fmt.Sprintf(`{"odata.error":{"code":"","message":{"lang":"en-US","value":%q}}}`, message),
		Headers: map[string]string{
			"Content-Type": "application/json;charset=utf-8",
		},
	}
}
