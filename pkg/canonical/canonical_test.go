// Copyright (C) 2025 Amorce Project
//
// This file is part of amorce-go.
//
// amorce-go is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// amorce-go is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with amorce-go.  If not, see <https://www.gnu.org/licenses/>.

package canonical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal_SortsKeysAtEveryLevel(t *testing.T) {
	in := map[string]any{
		"zeta":  1,
		"alpha": map[string]any{"y": true, "b": nil},
		"mid":   []any{map[string]any{"k2": "v", "k1": "w"}},
	}

	out, err := Marshal(in)

	require.NoError(t, err)
	assert.Equal(t, `{"alpha":{"b":null,"y":true},"mid":[{"k1":"w","k2":"v"}],"zeta":1}`, string(out))
}

func TestMarshal_PreservesArrayOrder(t *testing.T) {
	out, err := Marshal(map[string]any{"list": []int{3, 1, 2}})

	require.NoError(t, err)
	assert.Equal(t, `{"list":[3,1,2]}`, string(out))
}

func TestMarshal_InsertionOrderDoesNotMatter(t *testing.T) {
	a := map[string]any{}
	a["service_id"] = "svc-1"
	a["payload"] = map[string]any{"q": "x", "n": 2}
	a["priority"] = "high"

	b := map[string]any{}
	b["priority"] = "high"
	b["payload"] = map[string]any{"n": 2, "q": "x"}
	b["service_id"] = "svc-1"

	first, err := Marshal(a)
	require.NoError(t, err)
	second, err := Marshal(b)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestMarshal_StructMatchesMap(t *testing.T) {
	type request struct {
		ServiceID string `json:"service_id"`
		Consumer  string `json:"consumer_agent_id"`
	}

	fromStruct, err := Marshal(request{ServiceID: "s", Consumer: "c"})
	require.NoError(t, err)
	fromMap, err := Marshal(map[string]string{"consumer_agent_id": "c", "service_id": "s"})
	require.NoError(t, err)

	assert.Equal(t, `{"consumer_agent_id":"c","service_id":"s"}`, string(fromStruct))
	assert.Equal(t, fromStruct, fromMap)
}

func TestMarshal_NoHTMLEscaping(t *testing.T) {
	out, err := Marshal(map[string]string{"q": "<a&b>"})

	require.NoError(t, err)
	assert.Equal(t, `{"q":"<a&b>"}`, string(out))
}

func TestMarshal_UnicodeKeysSortByCodePoint(t *testing.T) {
	out, err := Marshal(map[string]int{"é": 1, "z": 2, "A": 3})

	require.NoError(t, err)
	assert.Equal(t, `{"A":3,"z":2,"é":1}`, string(out))
}

func TestMarshal_StringEscaping(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"line and paragraph separators stay raw", "a\u2028b\u2029c", "{\"s\":\"a\u2028b\u2029c\"}"},
		{"quote and backslash", `say "hi" \ bye`, `{"s":"say \"hi\" \\ bye"}`},
		{"short control escapes", "\b\t\n\f\r", `{"s":"\b\t\n\f\r"}`},
		{"other controls use lowercase hex", "\x00\x1f\x0b", `{"s":"\u0000\u001f\u000b"}`},
		{"DEL stays raw", "\x7f", "{\"s\":\"\x7f\"}"},
		{"non-BMP stays raw", "\U0001F600", "{\"s\":\"\U0001F600\"}"},
		{"slash not escaped", "a/b", `{"s":"a/b"}`},
		{"invalid UTF-8 replaced", "a\xffb", "{\"s\":\"a\uFFFDb\"}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Marshal(map[string]string{"s": tt.in})

			require.NoError(t, err)
			assert.Equal(t, []byte(tt.want), out)
		})
	}
}

func TestCanonicalize_RawSeparatorsFromEscapedInput(t *testing.T) {
	out, err := Canonicalize([]byte(`{"note":"a\u2028b\u2029c"}`))

	require.NoError(t, err)
	assert.Equal(t, []byte{'{', '"', 'n', 'o', 't', 'e', '"', ':', '"', 'a', 0xe2, 0x80, 0xa8, 'b', 0xe2, 0x80, 0xa9, 'c', '"', '}'}, out)
}

func TestMarshal_NonBMPKeysSortByCodePoint(t *testing.T) {
	out, err := Marshal(map[string]int{"\U0001F600": 1, "\uFFFD": 2, "a": 3})

	require.NoError(t, err)
	assert.Equal(t, "{\"a\":3,\"\uFFFD\":2,\"\U0001F600\":1}", string(out))
}

func TestCanonicalize_KeepsNumberText(t *testing.T) {
	out, err := Canonicalize([]byte(`{ "b" : 1.50, "a" : 12345678901234567890 }`))

	require.NoError(t, err)
	assert.Equal(t, `{"a":12345678901234567890,"b":1.50}`, string(out))
}

func TestCanonicalize_Idempotent(t *testing.T) {
	once, err := Canonicalize([]byte(`{"x":[{"b":2,"a":1}],"a":"s"}`))
	require.NoError(t, err)

	twice, err := Canonicalize(once)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
}

func TestCanonicalize_RejectsInvalidInput(t *testing.T) {
	_, err := Canonicalize([]byte(`{"a":`))
	assert.Error(t, err)

	_, err = Canonicalize([]byte(`{"a":1} {"b":2}`))
	assert.Error(t, err)
}

func BenchmarkMarshal(b *testing.B) {
	payload := map[string]any{
		"service_id":        "svc-bench",
		"consumer_agent_id": "agent-bench",
		"priority":          "normal",
		"payload":           map[string]any{"query": "weather", "days": 3, "tags": []any{"a", "b"}},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Marshal(payload)
	}
}
