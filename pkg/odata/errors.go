package odata

import (
	"errors"
	"fmt"
)

// Kind classifies an Error. The set is closed.
type Kind string

const (
	// KindConstruction covers invalid hosts, base paths, entity sets and key
	// literals. Raised before any network activity.
	KindConstruction Kind = "construction"

	// KindURL is raised when an assembled URL fails syntactic validation.
	KindURL Kind = "url_construction"

	// KindTransport covers network failures, rate limiter waits that were
	// abandoned and unreadable bodies.
	KindTransport Kind = "transport"

	// KindHTTPStatus is raised for responses outside the 2xx range.
	KindHTTPStatus Kind = "http_status"

	// KindDecode is raised when a body is not JSON, lacks the expected
	// envelope, or does not match the target type.
	KindDecode Kind = "decode"

	// KindPagination is raised when a next link is present but unusable.
	KindPagination Kind = "pagination"
)

// Sentinel errors, one per Kind, for use with errors.Is.
var (
	ErrConstruction = errors.New("odata: construction error")
	ErrURL          = errors.New("odata: url construction error")
	ErrTransport    = errors.New("odata: transport error")
	ErrHTTPStatus   = errors.New("odata: http status error")
	ErrDecode       = errors.New("odata: decode error")
	ErrPagination   = errors.New("odata: pagination error")
)

// maxErrorBody bounds the diagnostic body kept on HTTP status errors.
const maxErrorBody = 4 << 10

// Error is the error type returned by every operation in this package.
type Error struct {
	Kind       Kind
	Op         string
	URL        string
	StatusCode int
	// Body holds the start of the response body for KindHTTPStatus errors.
	Body []byte
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("OData %s error", e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Op != "" {
		msg += ": " + e.Op
	}
	if e.URL != "" {
		msg += " " + e.URL
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the Kind sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func (k Kind) sentinel() error {
	switch k {
	case KindConstruction:
		return ErrConstruction
	case KindURL:
		return ErrURL
	case KindTransport:
		return ErrTransport
	case KindHTTPStatus:
		return ErrHTTPStatus
	case KindDecode:
		return ErrDecode
	case KindPagination:
		return ErrPagination
	default:
		return nil
	}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if there
// is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

func constructionError(op string, format string, args ...any) *Error {
	return &Error{Kind: KindConstruction, Op: op, Err: fmt.Errorf(format, args...)}
}

func truncateBody(body []byte) []byte {
	if len(body) <= maxErrorBody {
		return body
	}
	return body[:maxErrorBody]
}
