package document

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Kinds(t *testing.T) {
	tests := []struct {
		input string
		kind  Kind
	}{
		{`null`, Null},
		{`true`, Bool},
		{`-12.5e3`, Number},
		{`"texto"`, String},
		{`[1, "a"]`, Array},
		{`{"a": 1}`, Object},
		{"  {}\n", Object},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, err := Parse([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.kind, v.Kind())
		})
	}
}

func TestParse_PreservesMemberOrder(t *testing.T) {
	v, err := Parse([]byte(`{"z": 1, "a": 2, "m": {"y": true, "b": null}}`))
	require.NoError(t, err)

	var keys []string
	for _, m := range v.Members() {
		keys = append(keys, m.Key)
	}
	assert.Equal(t, []string{"z", "a", "m"}, keys)

	nested, ok := v.Get("m")
	require.True(t, ok)
	assert.Equal(t, "y", nested.Members()[0].Key)
	assert.Equal(t, "b", nested.Members()[1].Key)
}

func TestParse_KeepsNumberLiterals(t *testing.T) {
	v, err := Parse([]byte(`{"i": 10, "f": 1.50, "e": 2E10, "big": 123456789012345678901234567890}`))
	require.NoError(t, err)

	for key, want := range map[string]string{"i": "10", "f": "1.50", "e": "2E10", "big": "123456789012345678901234567890"} {
		got, ok := v.Get(key)
		require.True(t, ok)
		assert.Equal(t, want, got.Text(), key)
	}
}

func TestParse_DuplicateKeyKeepsFirstPositionLastValue(t *testing.T) {
	v, err := Parse([]byte(`{"a": 1, "b": 2, "a": 3}`))
	require.NoError(t, err)

	require.Equal(t, 2, v.Len())
	assert.Equal(t, "a", v.Members()[0].Key)
	assert.Equal(t, "3", v.Members()[0].Value.Text())
}

func TestParse_Malformed(t *testing.T) {
	inputs := []string{
		``,
		`   `,
		`{"a": }`,
		`{"a": 1`,
		`[1, 2,]`,
		`{"a": 1} trailing`,
		`<html></html>`,
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			_, err := Parse([]byte(in))
			require.Error(t, err)
			var se *SyntaxError
			assert.ErrorAs(t, err, &se)
		})
	}
}

func TestDecode_Reader(t *testing.T) {
	v, err := Decode(strings.NewReader(`{"nome": "População residente"}`))
	require.NoError(t, err)
	got, _ := v.Get("nome")
	assert.Equal(t, "População residente", got.Text())
}

func TestMarshalIndent(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"flat array", `[1,2,3]`, "[\n  1,\n  2,\n  3\n]"},
		{"empty array", `[]`, "[]"},
		{"empty object", `{}`, "{}"},
		{"nested", `{"b":[true,null],"a":{}}`, "{\n  \"b\": [\n    true,\n    null\n  ],\n  \"a\": {}\n}"},
		{"unescaped text", `["São Paulo", "<b>&"]`, "[\n  \"São Paulo\",\n  \"<b>&\"\n]"},
		{"escaped input is normalized", `["S\u00e3o"]`, "[\n  \"São\"\n]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Parse([]byte(tt.input))
			require.NoError(t, err)

			out, err := MarshalIndent(v, DefaultIndent)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(out))
		})
	}
}

func TestMarshalJSON_Compact(t *testing.T) {
	v := NewObject(
		Member{Key: "k", Value: NewArray(NewNumber("1"), NewString("x"))},
		Member{Key: "n", Value: NewNull()},
	)
	out, err := v.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"k":[1,"x"],"n":null}`, string(out))
}

func TestMarshalIndent_RoundTrip(t *testing.T) {
	inputs := []string{
		`{"periodicidade": {"frequencia": "anual", "inicio": 2000, "fim": 2022}}`,
		`[{"id": 1, "nome": "Brasil", "nivel": {"id": "N1"}}, [], {}]`,
		`{"deep": [[[[["x"]]]]], "esc": "tab\there \"quoted\" \\ slash"}`,
	}

	for _, in := range inputs {
		original, err := Parse([]byte(in))
		require.NoError(t, err)

		out, err := MarshalIndent(original, DefaultIndent)
		require.NoError(t, err)

		back, err := Parse(out)
		require.NoError(t, err)
		assert.True(t, Equal(original, back), string(out))
	}
}

func TestEqual(t *testing.T) {
	a := NewObject(Member{Key: "x", Value: NewNumber("1")}, Member{Key: "y", Value: NewBool(true)})
	b := NewObject(Member{Key: "y", Value: NewBool(true)}, Member{Key: "x", Value: NewNumber("1.0")})
	c := NewObject(Member{Key: "x", Value: NewNumber("2")}, Member{Key: "y", Value: NewBool(true)})

	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
	assert.False(t, Equal(NewArray(NewNull()), NewArray()))
	assert.True(t, Equal(nil, NewNull()))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "object", Object.String())
	assert.Equal(t, "array", Array.String())
	assert.Equal(t, "kind(42)", Kind(42).String())
}
