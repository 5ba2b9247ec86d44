package odata

import (
	"net/url"
	"strconv"
	"strings"
)

// QueryOption is an OData system query option token.
type QueryOption string

const (
	// OptionFilter restricts the returned entities ($filter).
	OptionFilter QueryOption = "$filter"

	// OptionExpand inlines related entities ($expand).
	OptionExpand QueryOption = "$expand"

	// OptionSelect limits the returned properties ($select).
	OptionSelect QueryOption = "$select"

	// OptionOrderBy sorts the returned entities ($orderby).
	OptionOrderBy QueryOption = "$orderby"

	// OptionTop limits the number of returned entities ($top).
	OptionTop QueryOption = "$top"

	// OptionSkip skips leading entities ($skip).
	OptionSkip QueryOption = "$skip"

	// OptionInlineCount asks the service to include a total count ($inlinecount).
	OptionInlineCount QueryOption = "$inlinecount"

	// OptionFormat selects the payload format ($format).
	OptionFormat QueryOption = "$format"

	// OptionSkipToken continues server-driven paging ($skiptoken).
	OptionSkipToken QueryOption = "$skiptoken"
)

// Comparison is a binary comparison operator usable in a $filter expression.
type Comparison string

const (
	Equal          Comparison = "eq"
	NotEqual       Comparison = "ne"
	GreaterThan    Comparison = "gt"
	GreaterOrEqual Comparison = "ge"
	LessThan       Comparison = "lt"
	LessOrEqual    Comparison = "le"
)

// Direction is the sort direction of an $orderby clause.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// InlineCountMode is the value of an $inlinecount clause.
type InlineCountMode string

const (
	InlineCountNone     InlineCountMode = "none"
	InlineCountAllPages InlineCountMode = "allpages"
)

// PayloadFormat is the value of a $format clause.
type PayloadFormat string

const (
	FormatJSON PayloadFormat = "json"
	FormatXML  PayloadFormat = "xml"
)

// QueryClause is a single system query option with its unencoded value.
// The value is only encoded for transport; its OData syntax is the caller's
// responsibility.
type QueryClause struct {
	Option QueryOption
	Value  string
}

// Encode renders the clause as a `$key=value` query fragment with the value
// percent-encoded. Spaces become %20 and commas stay literal because OData
// uses them as list separators.
func (c QueryClause) Encode() string {
	return string(c.Option) + "=" + escapeQueryValue(c.Value)
}

// String implements fmt.Stringer.
func (c QueryClause) String() string {
	return c.Encode()
}

// Filter builds a $filter clause from a raw OData expression.
func Filter(expr string) QueryClause {
	return QueryClause{Option: OptionFilter, Value: expr}
}

// Where builds a $filter clause comparing field against value, e.g.
// Where("id", Equal, "24") renders "id eq 24". String values must be quoted
// by the caller, see StringLiteral.
func Where(field string, cmp Comparison, value string) QueryClause {
	return Filter(field + " " + string(cmp) + " " + value)
}

// Expand builds an $expand clause for the given navigation properties.
func Expand(fields ...string) QueryClause {
	return QueryClause{Option: OptionExpand, Value: strings.Join(fields, ",")}
}

// Select builds a $select clause for the given properties.
func Select(fields ...string) QueryClause {
	return QueryClause{Option: OptionSelect, Value: strings.Join(fields, ",")}
}

// OrderBy builds an $orderby clause. An empty direction defaults to Ascending.
func OrderBy(field string, dir Direction) QueryClause {
	if dir == "" {
		dir = Ascending
	}
	return QueryClause{Option: OptionOrderBy, Value: field + " " + string(dir)}
}

// Top builds a $top clause.
func Top(count uint) QueryClause {
	return QueryClause{Option: OptionTop, Value: strconv.FormatUint(uint64(count), 10)}
}

// Skip builds a $skip clause.
func Skip(count uint) QueryClause {
	return QueryClause{Option: OptionSkip, Value: strconv.FormatUint(uint64(count), 10)}
}

// InlineCount builds an $inlinecount clause.
func InlineCount(mode InlineCountMode) QueryClause {
	return QueryClause{Option: OptionInlineCount, Value: string(mode)}
}

// Format builds a $format clause.
func Format(format PayloadFormat) QueryClause {
	return QueryClause{Option: OptionFormat, Value: string(format)}
}

// SkipToken builds a $skiptoken clause.
func SkipToken(token string) QueryClause {
	return QueryClause{Option: OptionSkipToken, Value: token}
}

// StringLiteral quotes s as an OData string literal, doubling apostrophes.
func StringLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// encodeClauses joins clauses with '&' in the order given.
func encodeClauses(clauses []QueryClause) string {
	if len(clauses) == 0 {
		return ""
	}
	parts := make([]string, 0, len(clauses))
	for _, c := range clauses {
		parts = append(parts, c.Encode())
	}
	return strings.Join(parts, "&")
}

func escapeQueryValue(s string) string {
	escaped := url.QueryEscape(s)
	escaped = strings.ReplaceAll(escaped, "+", "%20")
	return strings.ReplaceAll(escaped, "%2C", ",")
}

// escapePathSegment percent-encodes s for use inside a path segment, keeping
// RFC 3986 unreserved characters and sub-delims literal so key predicates
// such as ('abc') survive unchanged.
func escapePathSegment(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isPathSafe(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0F])
	}
	return b.String()
}

func isPathSafe(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '.', '_', '~', '!', '$', '&', '\'', '(', ')', '*', '+', ',', ';', '=', ':', '@':
		return true
	}
	return false
}
