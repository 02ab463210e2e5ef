package extract

import (
	"path/filepath"
	"strings"
	"unsafe"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// Language describes how to find definitions in one grammar.
type Language struct {
	Name       string
	Extensions []string
	// Query captures each definition as @def and its identifier as @name.
	Query string

	grammar func() unsafe.Pointer
}

// Sitter returns the tree-sitter language.
func (l *Language) Sitter() *sitter.Language {
	return sitter.NewLanguage(l.grammar())
}

// Languages lists the supported grammars.
var Languages = []*Language{
	{
		Name:       "go",
		Extensions: []string{".go"},
		grammar:    tree_sitter_go.Language,
		Query: `
			(function_declaration name: (identifier) @name) @def
			(method_declaration name: (field_identifier) @name) @def
			(type_declaration (type_spec name: (type_identifier) @name)) @def
		`,
	},
	{
		Name:       "python",
		Extensions: []string{".py"},
		grammar:    tree_sitter_python.Language,
		Query: `
			(function_definition name: (identifier) @name) @def
			(class_definition name: (identifier) @name) @def
		`,
	},
	{
		Name:       "javascript",
		Extensions: []string{".js", ".jsx", ".mjs", ".cjs"},
		grammar:    tree_sitter_javascript.Language,
		Query: `
			(function_declaration name: (identifier) @name) @def
			(class_declaration name: (identifier) @name) @def
			(method_definition name: (property_identifier) @name) @def
			(variable_declarator
				name: (identifier) @name
				value: [(arrow_function) (function_expression)]) @def
		`,
	},
	{
		Name:       "typescript",
		Extensions: []string{".ts"},
		grammar:    tree_sitter_typescript.LanguageTypescript,
		Query:      typescriptQuery,
	},
	{
		Name:       "tsx",
		Extensions: []string{".tsx"},
		grammar:    tree_sitter_typescript.LanguageTSX,
		Query:      typescriptQuery,
	},
}

const typescriptQuery = `
	(function_declaration name: (identifier) @name) @def
	(class_declaration name: (type_identifier) @name) @def
	(method_definition name: (property_identifier) @name) @def
	(interface_declaration name: (type_identifier) @name) @def
	(type_alias_declaration name: (type_identifier) @name) @def
`

// LanguageFor returns the grammar for path's extension.
func LanguageFor(path string) (*Language, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, l := range Languages {
		for _, e := range l.Extensions {
			if e == ext {
				return l, true
			}
		}
	}
	return nil, false
}

// LanguageNames returns the names of all supported grammars.
func LanguageNames() []string {
	names := make([]string, len(Languages))
	for i, l := range Languages {
		names[i] = l.Name
	}
	return names
}
