// Package document models a JSON document as a tagged union that keeps object
// members in source order and numbers as their literal text.
//
// The generic map[string]interface{} produced by encoding/json loses member
// order, and the snapshot table mirrors the API's key order row for row, so
// documents are decoded token by token into Value trees instead.
package document

import (
	"fmt"
	"strconv"
)

// Kind identifies the variant held by a Value
type Kind int

const (
	// Null is the JSON null literal
	Null Kind = iota
	// Bool is true or false
	Bool
	// Number is any JSON number, kept as literal text
	Number
	// String is a JSON string
	String
	// Array is an ordered list of values
	Array
	// Object is an ordered list of members
	Object
)

// String returns the lowercase JSON name of the kind
func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "boolean"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Member is a key/value pair of an object
type Member struct {
	Key   string
	Value *Value
}

// Value is a single JSON value. The zero Value is null.
type Value struct {
	kind    Kind
	boolean bool
	text    string // string contents or number literal
	items   []*Value
	members []Member
}

// NewNull returns a null value
func NewNull() *Value { return &Value{kind: Null} }

// NewBool returns a boolean value
func NewBool(b bool) *Value { return &Value{kind: Bool, boolean: b} }

// NewString returns a string value
func NewString(s string) *Value { return &Value{kind: String, text: s} }

// NewNumber returns a number value holding the literal text lit.
// lit must be a valid JSON number.
func NewNumber(lit string) *Value { return &Value{kind: Number, text: lit} }

// NewArray returns an array holding items in order
func NewArray(items ...*Value) *Value {
	if items == nil {
		items = []*Value{}
	}
	return &Value{kind: Array, items: items}
}

// NewObject returns an object holding members in order
func NewObject(members ...Member) *Value {
	if members == nil {
		members = []Member{}
	}
	return &Value{kind: Object, members: members}
}

// Kind returns the variant of v. A nil Value reports Null.
func (v *Value) Kind() Kind {
	if v == nil {
		return Null
	}
	return v.kind
}

// IsContainer reports whether v is an array or an object
func (v *Value) IsContainer() bool {
	k := v.Kind()
	return k == Array || k == Object
}

// Members returns the members of an object in source order, nil otherwise
func (v *Value) Members() []Member {
	if v.Kind() != Object {
		return nil
	}
	return v.members
}

// Items returns the elements of an array, nil otherwise
func (v *Value) Items() []*Value {
	if v.Kind() != Array {
		return nil
	}
	return v.items
}

// Len returns the number of members or items; zero for scalars
func (v *Value) Len() int {
	switch v.Kind() {
	case Object:
		return len(v.members)
	case Array:
		return len(v.items)
	default:
		return 0
	}
}

// Get returns the first member named key
func (v *Value) Get(key string) (*Value, bool) {
	for _, m := range v.Members() {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

// Bool returns the boolean held by v
func (v *Value) Bool() bool { return v.Kind() == Bool && v.boolean }

// Text returns the string contents or the number literal held by v
func (v *Value) Text() string {
	if v == nil {
		return ""
	}
	return v.text
}

// Equal reports whether a and b hold the same JSON value. Object members are
// compared as sets; numbers compare by numeric value when their literals differ.
func Equal(a, b *Value) bool {
	if a.Kind() != b.Kind() {
		return false
	}

	switch a.Kind() {
	case Null:
		return true
	case Bool:
		return a.boolean == b.boolean
	case String:
		return a.text == b.text
	case Number:
		if a.text == b.text {
			return true
		}
		x, errA := strconv.ParseFloat(a.text, 64)
		y, errB := strconv.ParseFloat(b.text, 64)
		return errA == nil && errB == nil && x == y
	case Array:
		if len(a.items) != len(b.items) {
			return false
		}
		for i := range a.items {
			if !Equal(a.items[i], b.items[i]) {
				return false
			}
		}
		return true
	case Object:
		if len(a.members) != len(b.members) {
			return false
		}
		for _, m := range a.members {
			other, ok := b.Get(m.Key)
			if !ok || !Equal(m.Value, other) {
				return false
			}
		}
		return true
	}
	return false
}
