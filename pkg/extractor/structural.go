package extractor

import (
	"context"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// grammarFor picks the tree-sitter grammar for a script file.
func grammarFor(path string) *sitter.Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts", ".mts", ".cts":
		return typescript.GetLanguage()
	case ".tsx":
		return tsx.GetLanguage()
	default:
		return javascript.GetLanguage()
	}
}

func tsGrammar() *sitter.Language {
	return typescript.GetLanguage()
}

// parseScript runs the structural strategy over script content. The second
// return value is false when the tree could not be parsed cleanly, which is
// the pure predicate selecting the pattern fallback.
func parseScript(ctx context.Context, path string, content []byte, lineOffset int) ([]ImportReference, bool) {
	return parseScriptGrammar(ctx, grammarFor(path), path, content, lineOffset)
}

func parseScriptGrammar(ctx context.Context, lang *sitter.Language, path string, content []byte, lineOffset int) ([]ImportReference, bool) {
	parser := sitter.NewParser()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil || tree == nil {
		return nil, false
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil || root.HasError() {
		return nil, false
	}

	var refs []ImportReference

	// Iterative pre-order walk; require() and import() can appear at any
	// nesting depth.
	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch node.Type() {
		case "import_statement":
			if spec, ok := sourceString(node, content); ok {
				refs = append(refs, ImportReference{
					RawSpecifier: spec,
					Kind:         StaticImport,
					File:         path,
					Line:         nodeLine(node, lineOffset),
				})
			}
		case "export_statement":
			if spec, ok := sourceString(node, content); ok {
				refs = append(refs, ImportReference{
					RawSpecifier: spec,
					Kind:         ReExport,
					File:         path,
					Line:         nodeLine(node, lineOffset),
				})
			}
		case "import_require_clause":
			// TypeScript: import foo = require("bar")
			if spec, ok := firstStringChild(node, content); ok {
				refs = append(refs, ImportReference{
					RawSpecifier: spec,
					Kind:         RequireCall,
					File:         path,
					Line:         nodeLine(node, lineOffset),
				})
			}
		case "call_expression":
			if ref, ok := callReference(node, content, path, lineOffset); ok {
				refs = append(refs, ref)
			}
		}

		for i := int(node.ChildCount()) - 1; i >= 0; i-- {
			if child := node.Child(i); child != nil {
				stack = append(stack, child)
			}
		}
	}

	return refs, true
}

// callReference classifies require(...), require.resolve(...) and
// import(...) call expressions.
func callReference(node *sitter.Node, content []byte, path string, lineOffset int) (ImportReference, bool) {
	fn := node.ChildByFieldName("function")
	args := node.ChildByFieldName("arguments")
	if fn == nil || args == nil {
		return ImportReference{}, false
	}

	var kind ImportKind
	switch fn.Type() {
	case "import":
		kind = DynamicImport
	case "identifier":
		if fn.Content(content) != "require" {
			return ImportReference{}, false
		}
		kind = RequireCall
	case "member_expression":
		if fn.Content(content) != "require.resolve" {
			return ImportReference{}, false
		}
		kind = RequireResolve
	default:
		return ImportReference{}, false
	}

	spec, ok := firstStringChild(args, content)
	if !ok {
		// Non-literal argument (require(variable)); nothing to record.
		return ImportReference{}, false
	}

	return ImportReference{
		RawSpecifier: spec,
		Kind:         kind,
		File:         path,
		Line:         nodeLine(node, lineOffset),
	}, true
}

// sourceString returns the module specifier from a node's "source" field.
func sourceString(node *sitter.Node, content []byte) (string, bool) {
	source := node.ChildByFieldName("source")
	if source == nil {
		return "", false
	}
	return stringText(source, content)
}

// firstStringChild finds the first string literal among a node's children.
func firstStringChild(node *sitter.Node, content []byte) (string, bool) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if child.Type() == "string" {
			return stringText(child, content)
		}
	}
	return "", false
}

// stringText extracts the text of a string literal without its quotes.
func stringText(node *sitter.Node, content []byte) (string, bool) {
	if node.Type() != "string" {
		return "", false
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child != nil && child.Type() == "string_fragment" {
			return child.Content(content), true
		}
	}
	// Empty string literal has no fragment child.
	return "", false
}

func nodeLine(node *sitter.Node, offset int) int {
	return int(node.StartPoint().Row) + 1 + offset
}
