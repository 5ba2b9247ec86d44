package json

import (
	"testing"
)

func TestUnmarshal_Struct(t *testing.T) {
	var v struct {
		Titel string `json:"titel"`
		ID    int    `json:"id"`
	}
	if err := Unmarshal([]byte(`{"titel":"X","id":24}`), &v); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if v.Titel != "X" || v.ID != 24 {
		t.Errorf("Unmarshal() = %+v, want {Titel:X ID:24}", v)
	}
}

func TestUnmarshal_RawMessage(t *testing.T) {
	var raw RawMessage
	if err := Unmarshal([]byte(`{"a":[1,2]}`), &raw); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if string(raw) != `{"a":[1,2]}` {
		t.Errorf("raw = %s, want %s", raw, `{"a":[1,2]}`)
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{`{"d":{}}`, true},
		{`[1,2,3]`, true},
		{`{"d":`, false},
		{``, false},
		{`not json`, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Valid([]byte(tt.input)); got != tt.want {
				t.Errorf("Valid(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestMarshalIndent(t *testing.T) {
	out, err := MarshalIndent(map[string]int{"a": 1}, "", "  ")
	if err != nil {
		t.Fatalf("MarshalIndent() error = %v", err)
	}
	if string(out) != "{\n  \"a\": 1\n}" {
		t.Errorf("MarshalIndent() = %q", out)
	}
}
