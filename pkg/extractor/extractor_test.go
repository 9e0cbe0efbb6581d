package extractor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func byKind(refs []ImportReference, kind ImportKind) []string {
	var out []string
	for _, r := range refs {
		if r.Kind == kind {
			out = append(out, r.RawSpecifier)
		}
	}
	return out
}

func specifiers(refs []ImportReference) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.RawSpecifier)
	}
	return out
}

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, LangScript, DetectLanguage("src/app.ts"))
	assert.Equal(t, LangScript, DetectLanguage("src/App.TSX"))
	assert.Equal(t, LangScript, DetectLanguage("lib/mod.cjs"))
	assert.Equal(t, LangMarkup, DetectLanguage("src/App.vue"))
	assert.Equal(t, LangStylesheet, DetectLanguage("styles/main.scss"))
	assert.Equal(t, LangUnknown, DetectLanguage("README.md"))
}

func TestExtract_StaticImports(t *testing.T) {
	src := []byte(`import React from "react";
import { debounce } from 'lodash';
import "./polyfill";
`)
	ex := Extract(context.Background(), "app.js", src)
	assert.Equal(t, StructuralExtraction, ex.Strategy)
	assert.False(t, ex.Degraded)
	assert.Equal(t, []string{"react", "lodash", "./polyfill"}, byKind(ex.Refs, StaticImport))
}

func TestExtract_LineNumbers(t *testing.T) {
	src := []byte("// header\nimport a from \"pkg-a\";\n\nimport b from \"pkg-b\";\n")
	ex := Extract(context.Background(), "app.js", src)
	require.Len(t, ex.Refs, 2)
	assert.Equal(t, 2, ex.Refs[0].Line)
	assert.Equal(t, 4, ex.Refs[1].Line)
}

func TestExtract_ReExports(t *testing.T) {
	src := []byte(`export { render } from "./render";
export * from "utils-pkg";
export const local = 1;
`)
	ex := Extract(context.Background(), "index.js", src)
	assert.Equal(t, []string{"./render", "utils-pkg"}, byKind(ex.Refs, ReExport))
	assert.Empty(t, byKind(ex.Refs, StaticImport), "a plain export is not a reference")
}

func TestExtract_DynamicImport(t *testing.T) {
	src := []byte(`async function load() {
	const mod = await import("./lazy/editor");
	return mod;
}
`)
	ex := Extract(context.Background(), "loader.js", src)
	refs := byKind(ex.Refs, DynamicImport)
	require.Len(t, refs, 1)
	assert.Equal(t, "./lazy/editor", refs[0])
}

func TestExtract_RequireVariants(t *testing.T) {
	src := []byte(`const fs = require("fs");
const path = require.resolve("some-pkg");
const dyn = require(process.env.NAME);
`)
	ex := Extract(context.Background(), "boot.cjs", src)
	assert.Equal(t, []string{"fs"}, byKind(ex.Refs, RequireCall))
	assert.Equal(t, []string{"some-pkg"}, byKind(ex.Refs, RequireResolve))
	assert.Len(t, ex.Refs, 2, "a non-literal require argument is not recorded")
}

func TestExtract_TypeScriptImportRequire(t *testing.T) {
	src := []byte(`import config = require("./config");
export default config;
`)
	ex := Extract(context.Background(), "setup.ts", src)
	assert.Equal(t, []string{"./config"}, byKind(ex.Refs, RequireCall))
}

func TestExtract_TSXSyntax(t *testing.T) {
	src := []byte(`import React from "react";

export function Badge() {
	return <span className="badge">ok</span>;
}
`)
	ex := Extract(context.Background(), "Badge.tsx", src)
	assert.Equal(t, StructuralExtraction, ex.Strategy, "JSX needs the tsx grammar, not plain typescript")
	assert.Equal(t, []string{"react"}, byKind(ex.Refs, StaticImport))
}

func TestExtract_NestedRequire(t *testing.T) {
	src := []byte(`function lazy() {
	if (cond) {
		return { a: require("deep-pkg") };
	}
}
`)
	ex := Extract(context.Background(), "nested.js", src)
	assert.Equal(t, []string{"deep-pkg"}, byKind(ex.Refs, RequireCall))
}

func TestExtract_BrokenSyntaxFallsBackDegraded(t *testing.T) {
	src := []byte(`import ok from "still-found";
function broken( {{{
`)
	ex := Extract(context.Background(), "broken.js", src)
	assert.True(t, ex.Degraded)
	assert.Equal(t, PatternExtraction, ex.Strategy)
	assert.Contains(t, specifiers(ex.Refs), "still-found")
}

func TestExtract_Stylesheet(t *testing.T) {
	src := []byte(`@import "variables";
@use 'sass:math';
@import url("theme/dark.css");
.body { color: red; }
`)
	ex := Extract(context.Background(), "main.scss", src)
	assert.Equal(t, LangStylesheet, ex.Language)
	assert.Equal(t, []string{"variables", "sass:math", "theme/dark.css"}, byKind(ex.Refs, StylesheetImport))
}

func TestExtract_UnknownExtensionIsEmpty(t *testing.T) {
	ex := Extract(context.Background(), "notes.txt", []byte(`import x from "y";`))
	assert.Empty(t, ex.Refs)
}

func TestExtract_VueSFC(t *testing.T) {
	src := []byte(`<template>
	<div>{{ msg }}</div>
</template>

<script>
import axios from "axios";
export default { name: "Widget" };
</script>

<style scoped>
@import "./widget.css";
</style>
`)
	ex := Extract(context.Background(), "Widget.vue", src)
	assert.Equal(t, []string{"axios"}, byKind(ex.Refs, StaticImport))
	assert.Equal(t, []string{"./widget.css"}, byKind(ex.Refs, StylesheetImport))
}

func TestExtract_VueSFCTypeScript(t *testing.T) {
	src := []byte(`<template><div /></template>
<script lang="ts">
import type { Ref } from "vue";
import helper = require("./helper");
export default {};
</script>
`)
	ex := Extract(context.Background(), "Typed.vue", src)
	assert.Contains(t, specifiers(ex.Refs), "vue")
	assert.Equal(t, []string{"./helper"}, byKind(ex.Refs, RequireCall))
}

func TestExtract_VueSFCLineOffsets(t *testing.T) {
	src := []byte(`<template>
<div />
</template>
<script>
import a from "pkg-a";
</script>
`)
	ex := Extract(context.Background(), "Offset.vue", src)
	require.Len(t, ex.Refs, 1)
	assert.Equal(t, 5, ex.Refs[0].Line, "lines are file positions, not block positions")
}

func TestScanScript_PatternShapes(t *testing.T) {
	src := []byte(`import a from "pkg-a";
import "side-effect";
export { b } from "pkg-b";
const c = require('pkg-c');
const d = require.resolve("pkg-d");
const e = import("pkg-e");
// import commented from "not-here";
`)
	refs := scanScript("fallback.js", src, 0)
	assert.Equal(t, []string{"pkg-a", "side-effect"}, byKind(refs, StaticImport))
	assert.Equal(t, []string{"pkg-b"}, byKind(refs, ReExport))
	assert.Equal(t, []string{"pkg-c"}, byKind(refs, RequireCall))
	assert.Equal(t, []string{"pkg-d"}, byKind(refs, RequireResolve))
	assert.Equal(t, []string{"pkg-e"}, byKind(refs, DynamicImport))
	assert.NotContains(t, specifiers(refs), "not-here")
}

func TestScanScript_LineOffsetApplied(t *testing.T) {
	refs := scanScript("f.js", []byte(`import a from "pkg-a";`), 10)
	require.Len(t, refs, 1)
	assert.Equal(t, 11, refs[0].Line)
}

func TestSplitSFC_Blocks(t *testing.T) {
	content := []byte(`<script lang="ts">const x = 1;</script>
<style>.a{}</style>
<script>const y = 2;</script>
`)
	blocks := splitSFC(content)
	require.Len(t, blocks, 3)

	var scripts, styles int
	for _, b := range blocks {
		switch b.kind {
		case blockScript:
			scripts++
		case blockStyle:
			styles++
		}
	}
	assert.Equal(t, 2, scripts)
	assert.Equal(t, 1, styles)
	assert.True(t, blocks[0].ts)
}
