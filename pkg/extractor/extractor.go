package extractor

import (
	"context"
	"path/filepath"
	"strings"
)

// ImportKind says which construct produced a reference. It is fixed at
// extraction time and never reinterpreted downstream.
type ImportKind string

const (
	StaticImport     ImportKind = "static-import"
	DynamicImport    ImportKind = "dynamic-import"
	ReExport         ImportKind = "re-export"
	RequireCall      ImportKind = "require-call"
	RequireResolve   ImportKind = "require-resolve"
	StylesheetImport ImportKind = "stylesheet-import"
)

// ImportReference is one raw module specifier found in a file. Extraction
// records specifiers verbatim; resolution happens elsewhere.
type ImportReference struct {
	RawSpecifier string     `json:"specifier"`
	Kind         ImportKind `json:"kind"`
	File         string     `json:"file"`
	Line         int        `json:"line"`
}

// Language is the coarse language kind of a source file.
type Language string

const (
	LangScript     Language = "script"     // .js .jsx .mjs .cjs .ts .tsx .mts .cts
	LangMarkup     Language = "markup"     // .vue single-file components
	LangStylesheet Language = "stylesheet" // .css .scss .less
	LangUnknown    Language = ""
)

// Strategy tags which extraction variant produced a result.
type Strategy string

const (
	StructuralExtraction Strategy = "structural"
	PatternExtraction    Strategy = "pattern"
)

// Extraction is the per-file result. Degraded is set when the structural
// strategy was attempted and the pattern fallback had to take over.
type Extraction struct {
	File     string
	Language Language
	Strategy Strategy
	Degraded bool
	Refs     []ImportReference
}

// DetectLanguage maps a file path to its language kind by extension.
func DetectLanguage(path string) Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx", ".mts", ".cts":
		return LangScript
	case ".vue":
		return LangMarkup
	case ".css", ".scss", ".less":
		return LangStylesheet
	default:
		return LangUnknown
	}
}

// Extract returns every import reference in content. It never fails: when
// structural parsing cannot produce a clean tree the pattern fallback runs
// instead and the result is marked degraded.
func Extract(ctx context.Context, path string, content []byte) Extraction {
	switch DetectLanguage(path) {
	case LangScript:
		return extractScript(ctx, path, content)
	case LangMarkup:
		return extractMarkup(ctx, path, content)
	case LangStylesheet:
		refs := scanStylesheet(path, content, 0)
		return Extraction{File: path, Language: LangStylesheet, Strategy: PatternExtraction, Refs: refs}
	default:
		return Extraction{File: path, Language: LangUnknown, Strategy: PatternExtraction}
	}
}

func extractScript(ctx context.Context, path string, content []byte) Extraction {
	refs, ok := parseScript(ctx, path, content, 0)
	if ok {
		return Extraction{File: path, Language: LangScript, Strategy: StructuralExtraction, Refs: refs}
	}
	return Extraction{
		File:     path,
		Language: LangScript,
		Strategy: PatternExtraction,
		Degraded: true,
		Refs:     scanScript(path, content, 0),
	}
}

func extractMarkup(ctx context.Context, path string, content []byte) Extraction {
	out := Extraction{File: path, Language: LangMarkup, Strategy: StructuralExtraction}
	for _, block := range splitSFC(content) {
		switch block.kind {
		case blockScript:
			grammar := grammarFor(path) // .vue defaults to javascript
			if block.ts {
				grammar = tsGrammar()
			}
			refs, ok := parseScriptGrammar(ctx, grammar, path, block.content, block.startLine)
			if !ok {
				refs = scanScript(path, block.content, block.startLine)
				out.Degraded = true
				out.Strategy = PatternExtraction
			}
			out.Refs = append(out.Refs, refs...)
		case blockStyle:
			out.Refs = append(out.Refs, scanStylesheet(path, block.content, block.startLine)...)
		}
	}
	return out
}
