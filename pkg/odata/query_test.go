package odata

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryOption_Tokens(t *testing.T) {
	tokens := map[QueryOption]string{
		OptionFilter:      "$filter",
		OptionExpand:      "$expand",
		OptionSelect:      "$select",
		OptionOrderBy:     "$orderby",
		OptionTop:         "$top",
		OptionSkip:        "$skip",
		OptionInlineCount: "$inlinecount",
		OptionFormat:      "$format",
		OptionSkipToken:   "$skiptoken",
	}
	for opt, want := range tokens {
		assert.Equal(t, want, string(opt))
		assert.Equal(t, want+"=x", QueryClause{Option: opt, Value: "x"}.Encode())
	}

	// Query tokens and DataSource options are distinct types.
	var _ Option = WithMaxPages(1)
}

func TestQueryClause_Encode(t *testing.T) {
	tests := []struct {
		name   string
		clause QueryClause
		want   string
	}{
		{"filter with spaces and quotes", Filter("titel eq 'a b'"), "$filter=titel%20eq%20%27a%20b%27"},
		{"where", Where("id", GreaterThan, "5"), "$filter=id%20gt%205"},
		{"expand keeps commas", Expand("Aktør", "Sag"), "$expand=Akt%C3%B8r,Sag"},
		{"select", Select("id", "titel"), "$select=id,titel"},
		{"orderby desc", OrderBy("id", Descending), "$orderby=id%20desc"},
		{"orderby default asc", OrderBy("id", ""), "$orderby=id%20asc"},
		{"top", Top(100), "$top=100"},
		{"skip", Skip(0), "$skip=0"},
		{"inlinecount", InlineCount(InlineCountAllPages), "$inlinecount=allpages"},
		{"format", Format(FormatJSON), "$format=json"},
		{"skiptoken", SkipToken("100"), "$skiptoken=100"},
		{"ampersand escaped", Filter("a eq 'x&y'"), "$filter=a%20eq%20%27x%26y%27"},
		{"plus escaped", Filter("a eq 1+1"), "$filter=a%20eq%201%2B1"},
		{"empty value", Filter(""), "$filter="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.clause.Encode())
			assert.Equal(t, tt.want, tt.clause.String())
		})
	}
}

func TestQueryClause_EncodeRoundTrip(t *testing.T) {
	values := []string{
		"titel eq 'a b'",
		"a & b",
		"it's",
		"x eq 'Folketingets & Regeringens'",
		"æøå 100% ?#=",
	}

	for _, v := range values {
		clause := Filter(v)
		encoded := clause.Encode()

		decoded, err := url.QueryUnescape(encoded[len("$filter="):])
		require.NoError(t, err)
		assert.Equal(t, v, decoded)

		parsed, err := url.ParseQuery(encoded)
		require.NoError(t, err)
		assert.Equal(t, v, parsed.Get("$filter"))
	}
}

func TestEncodeClauses_PreservesOrder(t *testing.T) {
	clauses := []QueryClause{Filter("id gt 5"), Top(10), Skip(20)}
	assert.Equal(t, "$filter=id%20gt%205&$top=10&$skip=20", encodeClauses(clauses))

	reversed := []QueryClause{Skip(20), Top(10), Filter("id gt 5")}
	assert.Equal(t, "$skip=20&$top=10&$filter=id%20gt%205", encodeClauses(reversed))
}

func TestEncodeClauses_NoDeduplication(t *testing.T) {
	clauses := []QueryClause{Filter("a eq 1"), Filter("b eq 2")}
	assert.Equal(t, "$filter=a%20eq%201&$filter=b%20eq%202", encodeClauses(clauses))
	assert.Equal(t, "", encodeClauses(nil))
}

func TestStringLiteral(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"abc", "'abc'"},
		{"", "''"},
		{"O'Brien", "'O''Brien'"},
		{"''", "''''''"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StringLiteral(tt.in), "StringLiteral(%q)", tt.in)
	}
}

func TestEscapePathSegment(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Dokument", "Dokument"},
		{"'abc'", "'abc'"},
		{"'a b'", "'a%20b'"},
		{"Aktør", "Akt%C3%B8r"},
		{"a/b", "a%2Fb"},
		{"a?b#c", "a%3Fb%23c"},
		{"100%", "100%25"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, escapePathSegment(tt.in), "escapePathSegment(%q)", tt.in)
	}
}
