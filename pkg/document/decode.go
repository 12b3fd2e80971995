package document

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	gojson "github.com/goccy/go-json"

	jsonpool "github.com/ajitpratap0/metasnap/pkg/json"
)

// maxDepth bounds nesting so hostile documents cannot exhaust the stack
const maxDepth = 10000

// SyntaxError reports malformed JSON input
type SyntaxError struct {
	msg string
}

func (e *SyntaxError) Error() string { return e.msg }

// Decode reads all of r and parses it as a single JSON value
func Decode(r io.Reader) (*Value, error) {
	buf := jsonpool.GetBuffer()
	defer jsonpool.PutBuffer(buf)

	if _, err := buf.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return Parse(buf.Bytes())
}

// Parse parses data as a single JSON value, keeping object member order.
// A key repeated inside one object keeps its first position and its last value.
func Parse(data []byte) (*Value, error) {
	if !jsonpool.Valid(data) {
		return nil, syntaxError(data)
	}

	dec := jsonpool.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, &SyntaxError{msg: err.Error()}
	}

	v, err := parseValue(dec, tok, 0)
	if err != nil {
		return nil, err
	}

	if _, err := dec.Token(); err != io.EOF {
		return nil, &SyntaxError{msg: "invalid character after top-level value"}
	}
	return v, nil
}

func parseValue(dec *gojson.Decoder, tok gojson.Token, depth int) (*Value, error) {
	if depth > maxDepth {
		return nil, &SyntaxError{msg: fmt.Sprintf("exceeded max nesting depth %d", maxDepth)}
	}

	switch t := tok.(type) {
	case gojson.Delim:
		switch t {
		case '{':
			return parseObject(dec, depth)
		case '[':
			return parseArray(dec, depth)
		default:
			return nil, &SyntaxError{msg: fmt.Sprintf("unexpected delimiter %q", rune(t))}
		}
	case string:
		return NewString(t), nil
	case gojson.Number:
		return NewNumber(t.String()), nil
	case float64:
		return NewNumber(strconv.FormatFloat(t, 'g', -1, 64)), nil
	case bool:
		return NewBool(t), nil
	case nil:
		return NewNull(), nil
	default:
		return nil, &SyntaxError{msg: fmt.Sprintf("unexpected token %v", tok)}
	}
}

func parseObject(dec *gojson.Decoder, depth int) (*Value, error) {
	members := []Member{}
	index := make(map[string]int)

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, &SyntaxError{msg: err.Error()}
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, &SyntaxError{msg: fmt.Sprintf("object key must be a string, got %v", keyTok)}
		}

		valTok, err := dec.Token()
		if err != nil {
			return nil, &SyntaxError{msg: err.Error()}
		}
		val, err := parseValue(dec, valTok, depth+1)
		if err != nil {
			return nil, err
		}

		if i, dup := index[key]; dup {
			members[i].Value = val
			continue
		}
		index[key] = len(members)
		members = append(members, Member{Key: key, Value: val})
	}

	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return NewObject(members...), nil
}

func parseArray(dec *gojson.Decoder, depth int) (*Value, error) {
	items := []*Value{}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, &SyntaxError{msg: err.Error()}
		}
		item, err := parseValue(dec, tok, depth+1)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := expectDelim(dec, ']'); err != nil {
		return nil, err
	}
	return NewArray(items...), nil
}

func expectDelim(dec *gojson.Decoder, want gojson.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return &SyntaxError{msg: err.Error()}
	}
	if d, ok := tok.(gojson.Delim); !ok || d != want {
		return &SyntaxError{msg: fmt.Sprintf("expected %q, got %v", rune(want), tok)}
	}
	return nil
}

// syntaxError asks the full decoder for a positioned message
func syntaxError(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return &SyntaxError{msg: "unexpected end of JSON input"}
	}
	var discard interface{}
	if err := gojson.Unmarshal(data, &discard); err != nil {
		return &SyntaxError{msg: err.Error()}
	}
	return &SyntaxError{msg: "invalid JSON document"}
}
