package ast

import "bytes"

// Collection is an ordered, read-only sequence of trees.
type Collection []Value

// Len returns the number of trees.
func (c Collection) Len() int { return len(c) }

// At returns the tree at index i, or null when i is out of range.
func (c Collection) At(i int) Value {
	if i < 0 || i >= len(c) {
		return Value{}
	}
	return c[i]
}

// MarshalJSON encodes the collection as a JSON array.
func (c Collection) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, v := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := v.encode(&buf); err != nil {
			return nil, err
		}
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// Metadata is the reserved per-tree record. Each field is null when absent.
type Metadata struct {
	FilePath  Value
	StartLine Value
	EndLine   Value
	Type      Value
}

// Metadata keys.
const (
	MetaFilePath  = "file_path"
	MetaStartLine = "start_line"
	MetaEndLine   = "end_line"
	MetaType      = "type"
)

// Metadata extracts the "metadata" record of a tree. Missing records and
// non-object values yield an all-null Metadata.
func (v Value) Metadata() Metadata {
	return v.Node().Metadata()
}

// Metadata extracts the "metadata" record of n.
func (n *Node) Metadata() Metadata {
	raw, _ := n.Get(KeyMetadata)
	rec := raw.Node()
	var m Metadata
	m.FilePath, _ = rec.Get(MetaFilePath)
	m.StartLine, _ = rec.Get(MetaStartLine)
	m.EndLine, _ = rec.Get(MetaEndLine)
	m.Type, _ = rec.Get(MetaType)
	return m
}

// NewMetadata builds a metadata record value.
func NewMetadata(filePath string, startLine, endLine int, typ string) Value {
	return Object(NewNode(
		F(MetaFilePath, String(filePath)),
		F(MetaStartLine, Int(int64(startLine))),
		F(MetaEndLine, Int(int64(endLine))),
		F(MetaType, String(typ)),
	))
}
