package odata

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/Sternrassler/odata-client/internal/json"
	"github.com/tidwall/gjson"
)

var (
	errNotJSON   = errors.New("body is not valid JSON")
	errNoResults = errors.New("collection envelope has no results array")
)

// collection is the parsed shape of one page of a collection response.
type collection struct {
	items []gjson.Result
	next  gjson.Result
	count *int64
}

// soleD reports whether root is a {"d": ...} envelope, i.e. an object whose
// only member is "d", and returns that member.
func soleD(root gjson.Result) (gjson.Result, bool) {
	if !root.IsObject() {
		return gjson.Result{}, false
	}
	members := 0
	root.ForEach(func(_, _ gjson.Result) bool {
		members++
		return members < 2
	})
	if members != 1 {
		return gjson.Result{}, false
	}
	d := root.Get("d")
	return d, d.Exists()
}

// unwrapD returns the payload inside a top-level {"d": ...} envelope, or
// root itself when there is none.
func unwrapD(root gjson.Result) gjson.Result {
	if d, ok := soleD(root); ok && (d.IsObject() || d.IsArray()) {
		return d
	}
	return root
}

// decodeEntity decodes a single-entity body into out. A "d" envelope must
// hold an object; {"d":null} is an error, not an empty entity.
func decodeEntity(body []byte, out any) error {
	if !json.Valid(body) {
		return errNotJSON
	}
	root := gjson.ParseBytes(body)
	payload := root
	if d, ok := soleD(root); ok {
		if !d.IsObject() {
			return fmt.Errorf("d envelope holds %s, not an entity object", jsonKind(d))
		}
		payload = d
	}
	if !payload.IsObject() {
		return fmt.Errorf("expected a JSON object, got %s", jsonKind(payload))
	}
	return json.Unmarshal([]byte(payload.Raw), out)
}

func jsonKind(v gjson.Result) string {
	switch {
	case v.IsObject():
		return "object"
	case v.IsArray():
		return "array"
	default:
		return strings.ToLower(v.Type.String())
	}
}

// parseCollection accepts the OData 3.0 verbose ({"d":{"results":[]}} and
// {"d":[]}) and JSON light ({"value":[]}) collection shapes.
func parseCollection(body []byte) (*collection, error) {
	if !json.Valid(body) {
		return nil, errNotJSON
	}
	root := unwrapD(gjson.ParseBytes(body))

	if root.IsArray() {
		return &collection{items: root.Array()}, nil
	}
	if !root.IsObject() {
		return nil, errNoResults
	}

	results := root.Get("results")
	if !results.Exists() {
		results = root.Get("value")
	}
	if !results.IsArray() {
		return nil, errNoResults
	}

	c := &collection{items: results.Array()}

	c.next = root.Get("__next")
	if !c.next.Exists() {
		c.next = root.Get(`odata\.nextLink`)
	}

	count := root.Get("__count")
	if !count.Exists() {
		count = root.Get(`odata\.count`)
	}
	if count.Exists() {
		if n, err := strconv.ParseInt(count.String(), 10, 64); err == nil {
			c.count = &n
		}
	}

	return c, nil
}

// decodeItems decodes every element into T; the first failure aborts.
func decodeItems[T any](items []gjson.Result) ([]T, error) {
	out := make([]T, 0, len(items))
	for i, item := range items {
		var v T
		if err := json.Unmarshal([]byte(item.Raw), &v); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// resolveNextLink validates a next link found on the page served from
// current. It returns "" when the page is the last one.
func resolveNextLink(current string, next gjson.Result, host string) (string, error) {
	switch next.Type {
	case gjson.Null:
		return "", nil
	case gjson.String:
	default:
		return "", fmt.Errorf("next link is a JSON %s, not a string", jsonKind(next))
	}

	if next.Str == "" {
		return "", nil
	}
	return resolveLink(current, next.Str, host)
}

// resolveLink resolves link against current and checks that it stays on host.
// Absolute links are returned exactly as given.
func resolveLink(current, link, host string) (string, error) {
	ref, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("parse next link: %w", err)
	}

	resolved := ref
	if !ref.IsAbs() {
		base, err := url.Parse(current)
		if err != nil {
			return "", fmt.Errorf("parse page url: %w", err)
		}
		resolved = base.ResolveReference(ref)
	}

	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", fmt.Errorf("next link %q has unsupported scheme %q", link, resolved.Scheme)
	}
	if !strings.EqualFold(resolved.Host, host) {
		return "", fmt.Errorf("next link %q points outside service host %s", link, host)
	}

	if ref.IsAbs() {
		return link, nil
	}
	return resolved.String(), nil
}
