// Package pkg provides the libraries behind astview, a viewer for schema-free
// syntax trees.
//
// # Overview
//
// astview takes a collection of AST documents (JSON objects of any shape,
// optionally carrying file/line metadata) and shows them one at a time as
// node-link diagrams. The data flow:
//
//	AST collection (file, HTTP, MongoDB, SQLite, or [extract])
//	         ↓
//	    [display] (normalize to a uniform name/children tree)
//	         ↓
//	    [layout] (tidy or Graphviz engine, then centering)
//	         ↓
//	    [render/nodelink] (SVG, DOT; PDF/PNG via [render])
//
// [pipeline] runs those stages with caching; [viewer] drives them for one
// collection with a wrap-around [nav] cursor and a metadata panel.
//
// # Quick Start
//
//	coll, _ := ast.ReadFile("asts.json")
//	root := display.Normalize(coll.At(0))
//	h, _ := layout.Tidy{}.Layout(root, layout.Box{Breadth: 520, Depth: 740})
//	svg := nodelink.RenderSVG(layout.Center(h, 520), nodelink.Options{
//	    Width: 960, Height: 600, Margin: render.DefaultMargin,
//	})
//
// # Main Packages
//
//   - [ast]: order-preserving AST model and JSON/JSONL codec
//   - [display]: AST to display-tree normalization
//   - [layout]: layout engines and the centering transform
//   - [nav]: wrap-around navigation cursor
//   - [render], [render/nodelink]: SVG/DOT output and format conversion
//   - [pipeline]: cached normalize → layout → render runner
//   - [viewer]: session controller used by the HTTP and terminal viewers
//   - [source]: collection retrieval from files, HTTP, MongoDB, SQLite
//   - [extract]: AST collections from source trees via tree-sitter
//   - [cache], [session]: storage backends (file, memory, Redis)
//   - [errors], [observability], [httputil], [buildinfo]: shared plumbing
//
// [ast]: https://pkg.go.dev/github.com/matzehuels/astview/pkg/ast
// [display]: https://pkg.go.dev/github.com/matzehuels/astview/pkg/display
// [layout]: https://pkg.go.dev/github.com/matzehuels/astview/pkg/layout
// [nav]: https://pkg.go.dev/github.com/matzehuels/astview/pkg/nav
// [render]: https://pkg.go.dev/github.com/matzehuels/astview/pkg/render
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/astview/pkg/render/nodelink
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/astview/pkg/pipeline
// [viewer]: https://pkg.go.dev/github.com/matzehuels/astview/pkg/viewer
// [source]: https://pkg.go.dev/github.com/matzehuels/astview/pkg/source
// [extract]: https://pkg.go.dev/github.com/matzehuels/astview/pkg/extract
// [cache]: https://pkg.go.dev/github.com/matzehuels/astview/pkg/cache
// [session]: https://pkg.go.dev/github.com/matzehuels/astview/pkg/session
// [errors]: https://pkg.go.dev/github.com/matzehuels/astview/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/astview/pkg/observability
// [httputil]: https://pkg.go.dev/github.com/matzehuels/astview/pkg/httputil
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/astview/pkg/buildinfo
package pkg
