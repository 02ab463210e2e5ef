package display

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/matzehuels/astview/pkg/ast"
)

func mustParse(t *testing.T, s string) ast.Value {
	t.Helper()
	v, err := ast.Parse([]byte(s))
	if err != nil {
		t.Fatalf("Parse(%s): %v", s, err)
	}
	return v
}

func toJSON(t *testing.T, n *Node) string {
	t.Helper()
	data, err := json.Marshal(n)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	return string(data)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "Null",
			input: `null`,
			want:  `{"name":"undefined"}`,
		},
		{
			name:  "TypeOnly",
			input: `{"type":"Program"}`,
			want:  `{"name":"Program"}`,
		},
		{
			name:  "NoType",
			input: `{}`,
			want:  `{"name":"root"}`,
		},
		{
			name:  "ArrayGroup",
			input: `{"type":"Block","body":[{"type":"Expr"},{"type":"Expr"}]}`,
			want:  `{"name":"Block","children":[{"name":"body [2]","children":[{"name":"Expr"},{"name":"Expr"}]}]}`,
		},
		{
			name:  "PrimitiveLeaf",
			input: `{"type":"Lit","value":42}`,
			want:  `{"name":"Lit","children":[{"name":"value: 42"}]}`,
		},
		{
			name:  "NestedObject",
			input: `{"type":"Return","argument":{"type":"Identifier","name":"x"}}`,
			want:  `{"name":"Return","children":[{"name":"Identifier","children":[{"name":"name: x"}]}]}`,
		},
		{
			name:  "MetadataSkipped",
			input: `{"type":"Fn","metadata":{"file_path":"a.py","start_line":1}}`,
			want:  `{"name":"Fn"}`,
		},
		{
			name:  "NullAndEmptyArrayDropped",
			input: `{"type":"X","a":null,"b":[],"c":[null,1,"s",true]}`,
			want:  `{"name":"X"}`,
		},
		{
			name:  "MixedArrayKeepsComposites",
			input: `{"type":"X","items":[1,{"type":"A"},"s",{"type":"B"}]}`,
			want:  `{"name":"X","children":[{"name":"items [2]","children":[{"name":"A"},{"name":"B"}]}]}`,
		},
		{
			name:  "FalsyPrimitivesKept",
			input: `{"type":"X","s":"","n":0,"b":false}`,
			want:  `{"name":"X","children":[{"name":"s: "},{"name":"n: 0"},{"name":"b: false"}]}`,
		},
		{
			name:  "FalsyTypeIsRoot",
			input: `{"type":"","x":1}`,
			want:  `{"name":"root","children":[{"name":"x: 1"}]}`,
		},
		{
			name:  "NumericType",
			input: `{"type":7}`,
			want:  `{"name":"7"}`,
		},
		{
			name:  "CompositeTypeIsRoot",
			input: `{"type":{"kind":"weird"}}`,
			want:  `{"name":"root"}`,
		},
		{
			name:  "KeyOrderPreserved",
			input: `{"z":1,"type":"T","a":2}`,
			want:  `{"name":"T","children":[{"name":"z: 1"},{"name":"a: 2"}]}`,
		},
		{
			name:  "NestedArrayElement",
			input: `{"type":"M","rows":[[{"type":"A"}]]}`,
			want:  `{"name":"M","children":[{"name":"rows [1]","children":[{"name":"root","children":[{"name":"A"}]}]}]}`,
		},
		{
			name:  "TopLevelPrimitive",
			input: `"just a string"`,
			want:  `{"name":"root"}`,
		},
		{
			name:  "TopLevelArray",
			input: `[{"type":"A"},3]`,
			want:  `{"name":"root","children":[{"name":"A"},{"name":"1: 3"}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toJSON(t, Normalize(mustParse(t, tt.input)))
			if got != tt.want {
				t.Errorf("Normalize(%s)\n got %s\nwant %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeNilNode(t *testing.T) {
	if got := NormalizeNode(nil); got.Name != UndefinedName || !got.IsLeaf() {
		t.Errorf("NormalizeNode(nil) = %+v", got)
	}
}

func TestNormalizeNamesNeverEmpty(t *testing.T) {
	input := `{"type":"","a":{"type":null},"b":[{"type":false},{}],"c":{"d":{"e":[[],{}]}}}`
	root := Normalize(mustParse(t, input))
	Walk(root, func(n *Node, _ int) bool {
		if n.Name == "" {
			t.Error("found node with empty name")
		}
		if n.Children != nil && len(n.Children) == 0 {
			t.Errorf("node %q has empty, non-nil children", n.Name)
		}
		return true
	})
}

func TestNormalizeDeterministic(t *testing.T) {
	input := `{"type":"Module","body":[{"type":"FunctionDef","name":"f","args":{"args":[{"arg":"x"}]}}],"lineno":1}`
	first := toJSON(t, Normalize(mustParse(t, input)))
	for i := 0; i < 10; i++ {
		if got := toJSON(t, Normalize(mustParse(t, input))); got != first {
			t.Fatalf("run %d differs:\n%s\n%s", i, got, first)
		}
	}
}

func TestCountAndHeight(t *testing.T) {
	root := Normalize(mustParse(t, `{"type":"Block","body":[{"type":"Expr","v":1},{"type":"Expr"}]}`))
	if got := Count(root); got != 5 {
		t.Errorf("Count = %d, want 5", got)
	}
	if got := Height(root); got != 3 {
		t.Errorf("Height = %d, want 3", got)
	}
}

func TestFormat(t *testing.T) {
	root := Normalize(mustParse(t, `{"type":"Block","body":[{"type":"Expr","v":1},{"type":"Expr"}],"x":2}`))
	var b strings.Builder
	if err := Format(&b, root); err != nil {
		t.Fatalf("Format: %v", err)
	}
	want := `Block
├── body [2]
│   ├── Expr
│   │   └── v: 1
│   └── Expr
└── x: 2
`
	if b.String() != want {
		t.Errorf("Format:\n%s\nwant:\n%s", b.String(), want)
	}
}
