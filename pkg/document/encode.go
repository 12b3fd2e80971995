package document

import (
	"bytes"
	"fmt"
	"strings"

	jsonpool "github.com/ajitpratap0/metasnap/pkg/json"
)

// DefaultIndent is the indentation used for nested values in snapshot cells
const DefaultIndent = "  "

// MarshalIndent renders v as indented JSON. Members keep their source order,
// numbers keep their literal text, and neither HTML nor non-ASCII characters
// are escaped. Empty arrays and objects render as [] and {}.
func MarshalIndent(v *Value, indent string) ([]byte, error) {
	buf := jsonpool.GetBuffer()
	defer jsonpool.PutBuffer(buf)

	if err := encode(buf, v, indent, 0); err != nil {
		return nil, err
	}

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

// MarshalJSON renders v as compact JSON
func (v *Value) MarshalJSON() ([]byte, error) {
	return MarshalIndent(v, "")
}

func encode(buf *bytes.Buffer, v *Value, indent string, level int) error {
	switch v.Kind() {
	case Null:
		buf.WriteString("null")
	case Bool:
		if v.boolean {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case Number:
		if v.text == "" {
			return fmt.Errorf("number value has no literal")
		}
		buf.WriteString(v.text)
	case String:
		return writeString(buf, v.text)
	case Array:
		if len(v.items) == 0 {
			buf.WriteString("[]")
			return nil
		}
		buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			newline(buf, indent, level+1)
			if err := encode(buf, item, indent, level+1); err != nil {
				return err
			}
		}
		newline(buf, indent, level)
		buf.WriteByte(']')
	case Object:
		if len(v.members) == 0 {
			buf.WriteString("{}")
			return nil
		}
		buf.WriteByte('{')
		for i, m := range v.members {
			if i > 0 {
				buf.WriteByte(',')
			}
			newline(buf, indent, level+1)
			if err := writeString(buf, m.Key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if indent != "" {
				buf.WriteByte(' ')
			}
			if err := encode(buf, m.Value, indent, level+1); err != nil {
				return fmt.Errorf("member %q: %w", m.Key, err)
			}
		}
		newline(buf, indent, level)
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unsupported value kind %s", v.Kind())
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	quoted, err := jsonpool.MarshalString(s)
	if err != nil {
		return err
	}
	buf.Write(quoted)
	return nil
}

func newline(buf *bytes.Buffer, indent string, level int) {
	if indent == "" {
		return
	}
	buf.WriteByte('\n')
	buf.WriteString(strings.Repeat(indent, level))
}
