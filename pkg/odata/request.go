package odata

import (
	"reflect"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Request is either a *ListRequest or a *GetRequest.
type Request interface {
	// EntitySet returns the targeted entity set name.
	EntitySet() string

	// ResourcePath returns the encoded path relative to the service root,
	// starting with '/'.
	ResourcePath() (string, error)

	// Clauses returns the query clauses in caller order.
	Clauses() []QueryClause

	isRequest()
}

// ListRequest targets an entity set and returns zero or more entities.
type ListRequest struct {
	entitySet string
	clauses   []QueryClause
}

// NewListRequest creates a request for `<service>/<entitySet>`. The entity
// set name is validated when the URL is built.
func NewListRequest(entitySet string, clauses ...QueryClause) *ListRequest {
	return &ListRequest{
		entitySet: entitySet,
		clauses:   append([]QueryClause(nil), clauses...),
	}
}

// EntitySet implements Request.
func (r *ListRequest) EntitySet() string { return r.entitySet }

// ResourcePath implements Request.
func (r *ListRequest) ResourcePath() (string, error) {
	if err := validateEntitySet(r.entitySet); err != nil {
		return "", err
	}
	return "/" + escapePathSegment(r.entitySet), nil
}

// Clauses implements Request.
func (r *ListRequest) Clauses() []QueryClause {
	return append([]QueryClause(nil), r.clauses...)
}

func (r *ListRequest) isRequest() {}

// With appends clauses as given.
func (r *ListRequest) With(clauses ...QueryClause) *ListRequest {
	r.clauses = append(r.clauses, clauses...)
	return r
}

// Filter appends a raw $filter expression.
func (r *ListRequest) Filter(expr string) *ListRequest {
	return r.With(Filter(expr))
}

// Where appends a `field cmp value` $filter clause.
func (r *ListRequest) Where(field string, cmp Comparison, value string) *ListRequest {
	return r.With(Where(field, cmp, value))
}

// Expand adds navigation properties to the request's $expand clause.
func (r *ListRequest) Expand(fields ...string) *ListRequest {
	r.clauses = mergeListClause(r.clauses, Expand(fields...))
	return r
}

// Select adds properties to the request's $select clause.
func (r *ListRequest) Select(fields ...string) *ListRequest {
	r.clauses = mergeListClause(r.clauses, Select(fields...))
	return r
}

// OrderBy adds a sort key to the request's $orderby clause. Repeated calls
// sort by each key in call order.
func (r *ListRequest) OrderBy(field string, dir Direction) *ListRequest {
	r.clauses = mergeListClause(r.clauses, OrderBy(field, dir))
	return r
}

// Top appends a $top clause.
func (r *ListRequest) Top(count uint) *ListRequest {
	return r.With(Top(count))
}

// Skip appends a $skip clause.
func (r *ListRequest) Skip(count uint) *ListRequest {
	return r.With(Skip(count))
}

// InlineCount appends an $inlinecount clause.
func (r *ListRequest) InlineCount(mode InlineCountMode) *ListRequest {
	return r.With(InlineCount(mode))
}

// Format appends a $format clause.
func (r *ListRequest) Format(format PayloadFormat) *ListRequest {
	return r.With(Format(format))
}

// Key is the set of Go types usable as an entity key.
type Key interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~string
}

// GetRequest targets a single entity by key.
type GetRequest struct {
	entitySet string
	key       string
	clauses   []QueryClause
}

// NewGetRequest creates a request for `<service>/<entitySet>(<key>)`.
// Integer keys render in decimal, string keys as quoted OData literals.
// Only $expand, $select and $format clauses may be attached.
func NewGetRequest[K Key](entitySet string, key K, clauses ...QueryClause) (*GetRequest, error) {
	if err := validateEntitySet(entitySet); err != nil {
		return nil, err
	}
	literal, err := keyLiteral(key)
	if err != nil {
		return nil, err
	}
	r := &GetRequest{entitySet: entitySet, key: literal}
	if _, err := r.With(clauses...); err != nil {
		return nil, err
	}
	return r, nil
}

// EntitySet implements Request.
func (r *GetRequest) EntitySet() string { return r.entitySet }

// KeyLiteral returns the rendered key, e.g. "24" or "'abc'".
func (r *GetRequest) KeyLiteral() string { return r.key }

// ResourcePath implements Request.
func (r *GetRequest) ResourcePath() (string, error) {
	if err := validateEntitySet(r.entitySet); err != nil {
		return "", err
	}
	return "/" + escapePathSegment(r.entitySet) + "(" + escapePathSegment(r.key) + ")", nil
}

// Clauses implements Request.
func (r *GetRequest) Clauses() []QueryClause {
	return append([]QueryClause(nil), r.clauses...)
}

func (r *GetRequest) isRequest() {}

// With appends clauses. Clauses that would change which entity is returned
// are rejected.
func (r *GetRequest) With(clauses ...QueryClause) (*GetRequest, error) {
	for _, c := range clauses {
		switch c.Option {
		case OptionExpand, OptionSelect, OptionFormat:
		default:
			return nil, constructionError("new get request", "%s is not allowed on a single-entity request", c.Option)
		}
	}
	r.clauses = append(r.clauses, clauses...)
	return r, nil
}

// Expand adds navigation properties to the request's $expand clause.
func (r *GetRequest) Expand(fields ...string) *GetRequest {
	r.clauses = mergeListClause(r.clauses, Expand(fields...))
	return r
}

// Select adds properties to the request's $select clause.
func (r *GetRequest) Select(fields ...string) *GetRequest {
	r.clauses = mergeListClause(r.clauses, Select(fields...))
	return r
}

// mergeListClause appends c, or extends the first clause with the same
// option as a comma-separated list. With still appends verbatim.
func mergeListClause(clauses []QueryClause, c QueryClause) []QueryClause {
	for i := range clauses {
		if clauses[i].Option != c.Option {
			continue
		}
		switch {
		case c.Value == "":
		case clauses[i].Value == "":
			clauses[i].Value = c.Value
		default:
			clauses[i].Value += "," + c.Value
		}
		return clauses
	}
	return append(clauses, c)
}

func validateEntitySet(name string) error {
	if name == "" {
		return constructionError("validate entity set", "entity set name is empty")
	}
	if !utf8.ValidString(name) {
		return constructionError("validate entity set", "entity set name %q is not valid UTF-8", name)
	}
	for _, r := range name {
		if unicode.IsSpace(r) || unicode.IsControl(r) || strings.ContainsRune("/?#()'", r) {
			return constructionError("validate entity set", "entity set name %q contains %q", name, r)
		}
	}
	return nil
}

func keyLiteral[K Key](key K) (string, error) {
	v := reflect.ValueOf(key)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10), nil
	case reflect.String:
		s := v.String()
		if !utf8.ValidString(s) {
			return "", constructionError("render key", "string key %q is not valid UTF-8", s)
		}
		for _, r := range s {
			if unicode.IsControl(r) {
				return "", constructionError("render key", "string key %q contains control character %U", s, r)
			}
		}
		return StringLiteral(s), nil
	default:
		return "", constructionError("render key", "unsupported key kind %s", v.Kind())
	}
}
