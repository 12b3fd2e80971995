// Package flatten converts a JSON object into a two-column key/value table.
//
// Each top-level member becomes one row. Scalars are rendered as plain text;
// arrays and objects are rendered as indented JSON so the nested structure
// survives in a single string cell:
//
//	{"id": 1419, "nome": "IPCA", "periodos": [1, 2]}
//
// becomes
//
//	id        1419
//	nome      IPCA
//	periodos  [\n  1,\n  2\n]
package flatten

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/ajitpratap0/metasnap/pkg/document"
	"github.com/ajitpratap0/metasnap/pkg/errors"
	"github.com/ajitpratap0/metasnap/pkg/logger"
	"github.com/ajitpratap0/metasnap/pkg/models"
)

// NullText is the rendering of a JSON null, matching fmt.Sprint(nil)
const NullText = "<nil>"

// Flattener turns documents into tables
type Flattener struct {
	logger *zap.Logger
	indent string
}

// Option configures a Flattener
type Option func(*Flattener)

// WithIndent sets the indentation used for nested values
func WithIndent(indent string) Option {
	return func(f *Flattener) {
		f.indent = indent
	}
}

// New creates a Flattener. A nil logger uses the global one.
func New(log *zap.Logger, opts ...Option) *Flattener {
	if log == nil {
		log = logger.Get()
	}

	f := &Flattener{
		logger: log.With(zap.String("component", "flattener")),
		indent: document.DefaultIndent,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Flatten produces one row per top-level member of doc, in member order.
// doc must be an object; anything else fails with ErrorTypeShape. An empty
// object yields an empty table. If any member cannot be rendered the whole
// call fails with ErrorTypeSerialization and no partial table is returned.
func (f *Flattener) Flatten(doc *document.Value) (*models.Table, error) {
	if doc.Kind() != document.Object {
		err := errors.New(errors.ErrorTypeShape, "document is not a JSON object").
			WithDetail("kind", doc.Kind().String())
		f.logger.Error("cannot flatten document", zap.Error(err), zap.String("kind", doc.Kind().String()))
		return nil, err
	}

	members := doc.Members()
	table := models.NewTable(len(members))

	for _, m := range members {
		text, err := Stringify(m.Value, f.indent)
		if err != nil {
			werr := errors.Wrap(err, errors.ErrorTypeSerialization, fmt.Sprintf("failed to flatten key %q", m.Key)).
				WithDetail("key", m.Key)
			f.logger.Error("flatten failed", logger.ErrorFields(werr)...)
			return nil, werr
		}
		table.Append(m.Key, text)
	}

	f.logger.Debug("document flattened", zap.Int("rows", table.Len()))
	return table, nil
}

// Stringify renders a single value the way Flatten stores it in a cell
func Stringify(v *document.Value, indent string) (string, error) {
	switch v.Kind() {
	case document.Object, document.Array:
		out, err := document.MarshalIndent(v, indent)
		if err != nil {
			return "", err
		}
		return string(out), nil
	case document.String:
		return v.Text(), nil
	case document.Number:
		if v.Text() == "" {
			return "", errors.New(errors.ErrorTypeSerialization, "number value has no literal")
		}
		return v.Text(), nil
	case document.Bool:
		return strconv.FormatBool(v.Bool()), nil
	case document.Null:
		return NullText, nil
	default:
		return "", errors.New(errors.ErrorTypeSerialization, "unsupported value kind").
			WithDetail("kind", v.Kind().String())
	}
}
