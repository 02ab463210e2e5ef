// Package ast models schema-free syntax-tree documents.
//
// # Overview
//
// An AST document is JSON of unknown shape: objects with arbitrary keys whose
// values may be primitives, nested objects, or arrays of either. This package
// decodes such documents into a tagged variant ([Value]) that preserves the
// key order of every object ([Node]), so consumers can walk them without
// reflection and without a schema.
//
// Two keys are reserved by convention and carry cross-cutting data rather
// than structure:
//
//   - "type": the node's syntactic kind, used as its display label
//   - "metadata": a record with optional file_path, start_line, end_line, type
//
// # Usage
//
//	coll, err := ast.ReadCollection(r)
//	for _, tree := range coll {
//	    fmt.Println(tree.Metadata().FilePath)
//	}
//
// Values are immutable after decoding and safe to share between goroutines.
package ast

import (
	"math"
	"strconv"
	"strings"
)

// Reserved keys.
const (
	KeyType     = "type"
	KeyMetadata = "metadata"
)

// Kind identifies the variant held by a [Value].
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

var kindNames = [...]string{"null", "bool", "number", "string", "array", "object"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is one JSON value of an AST document. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	s    string // string contents, or the literal text of a number
	arr  []Value
	obj  *Node
}

// Field is a single key/value entry of a [Node].
type Field struct {
	Key   string
	Value Value
}

// Node is an AST object: an ordered collection of fields.
type Node struct {
	fields []Field
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Number wraps a number given in its JSON literal form (e.g. "42", "1.5e3").
func Number(literal string) Value { return Value{kind: KindNumber, s: literal} }

// Int wraps an integer.
func Int(i int64) Value { return Number(strconv.FormatInt(i, 10)) }

// Float wraps a float64 using its shortest representation.
func Float(f float64) Value { return Number(strconv.FormatFloat(f, 'g', -1, 64)) }

// Array wraps an ordered sequence of values.
func Array(vs ...Value) Value { return Value{kind: KindArray, arr: vs} }

// Object wraps a node. A nil node is treated as null.
func Object(n *Node) Value {
	if n == nil {
		return Value{}
	}
	return Value{kind: KindObject, obj: n}
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsComposite reports whether v is an object or an array.
func (v Value) IsComposite() bool { return v.kind == KindObject || v.kind == KindArray }

// Node returns the object held by v, or nil if v is not an object.
func (v Value) Node() *Node {
	if v.kind != KindObject {
		return nil
	}
	return v.obj
}

// Elems returns the elements of an array value, or nil.
func (v Value) Elems() []Value {
	if v.kind != KindArray {
		return nil
	}
	return v.arr
}

// Str returns the string contents of a string value, or "".
func (v Value) Str() string {
	if v.kind != KindString {
		return ""
	}
	return v.s
}

// Float64 returns the numeric value of a number, or 0 with ok=false.
func (v Value) Float64() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.s, 64)
	return f, err == nil
}

// Truthy follows the usual dynamic-language rules: null, false, 0, NaN and
// the empty string are false; everything else, including empty composites,
// is true.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindBool:
		return v.b
	case KindNumber:
		f, ok := v.Float64()
		return ok && f != 0 && !math.IsNaN(f)
	case KindString:
		return v.s != ""
	default:
		return true
	}
}

// Display returns the string form of v used in labels. Numbers use their
// shortest round-trip form with exponents only for very large or very small
// magnitudes; arrays join their elements with commas; objects render as
// "[object Object]".
func (v Value) Display() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return formatNumber(v.s)
	case KindString:
		return v.s
	case KindArray:
		parts := make([]string, len(v.arr))
		for i, e := range v.arr {
			if !e.IsNull() {
				parts[i] = e.Display()
			}
		}
		return strings.Join(parts, ",")
	default:
		return "[object Object]"
	}
}

func formatNumber(literal string) string {
	f, err := strconv.ParseFloat(literal, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return literal
	}
	if f == 0 {
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mant, exp, _ := strings.Cut(s, "e")
		return mant + "e" + exp[:1] + strings.TrimLeft(exp[1:], "0")
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// NewNode builds a node from fields. Later duplicates overwrite earlier
// values but keep the position of the first occurrence.
func NewNode(fields ...Field) *Node {
	n := &Node{fields: make([]Field, 0, len(fields))}
	for _, f := range fields {
		n.set(f.Key, f.Value)
	}
	return n
}

// F is shorthand for constructing a Field.
func F(key string, v Value) Field { return Field{Key: key, Value: v} }

func (n *Node) set(key string, v Value) {
	for i := range n.fields {
		if n.fields[i].Key == key {
			n.fields[i].Value = v
			return
		}
	}
	n.fields = append(n.fields, Field{Key: key, Value: v})
}

// Len returns the number of fields.
func (n *Node) Len() int {
	if n == nil {
		return 0
	}
	return len(n.fields)
}

// Fields returns the fields in document order. The slice must not be modified.
func (n *Node) Fields() []Field {
	if n == nil {
		return nil
	}
	return n.fields
}

// Keys returns the keys in document order.
func (n *Node) Keys() []string {
	keys := make([]string, 0, n.Len())
	for _, f := range n.Fields() {
		keys = append(keys, f.Key)
	}
	return keys
}

// Get returns the value stored under key.
func (n *Node) Get(key string) (Value, bool) {
	for _, f := range n.Fields() {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Type returns the value of the reserved "type" key, or null.
func (n *Node) Type() Value {
	v, _ := n.Get(KeyType)
	return v
}
