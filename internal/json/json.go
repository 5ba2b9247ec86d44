// Package json is the JSON facade used across the module. It delegates to
// bytedance/sonic and mirrors the subset of the encoding/json API we need.
package json

import (
	stdjson "encoding/json"

	"github.com/bytedance/sonic"
)

// api is configured to behave like encoding/json so decoded values match
// what callers get from the standard library.
var api = sonic.ConfigStd

// MarshalIndent returns the indented JSON encoding of v.
func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return api.MarshalIndent(v, prefix, indent)
}

// Unmarshal parses the JSON-encoded data and stores the result in v.
func Unmarshal(data []byte, v any) error {
	return api.Unmarshal(data, v)
}

// Valid reports whether data is a valid JSON encoding.
func Valid(data []byte) bool {
	return api.Valid(data)
}

// RawMessage is a raw encoded JSON value.
type RawMessage = stdjson.RawMessage
