package extractor

import (
	"bytes"
	"regexp"
)

// Single-file components carry their imports inside <script> and <style>
// blocks. Blocks are isolated here and delegated to the script/stylesheet
// extractors with the block's line offset preserved.

type blockKind int

const (
	blockScript blockKind = iota
	blockStyle
)

type sfcBlock struct {
	kind      blockKind
	ts        bool // script block declares lang="ts"/"tsx"
	content   []byte
	startLine int // 0-based line offset of the block body within the file
}

var (
	reScriptBlock = regexp.MustCompile(`(?is)<script([^>]*)>(.*?)</script>`)
	reStyleBlock  = regexp.MustCompile(`(?is)<style([^>]*)>(.*?)</style>`)
	reLangTS      = regexp.MustCompile(`(?i)lang\s*=\s*["']?tsx?["']?`)
)

func splitSFC(content []byte) []sfcBlock {
	var blocks []sfcBlock

	for _, idx := range reScriptBlock.FindAllSubmatchIndex(content, -1) {
		attrs := content[idx[2]:idx[3]]
		body := content[idx[4]:idx[5]]
		blocks = append(blocks, sfcBlock{
			kind:      blockScript,
			ts:        reLangTS.Match(attrs),
			content:   body,
			startLine: bytes.Count(content[:idx[4]], []byte("\n")),
		})
	}

	for _, idx := range reStyleBlock.FindAllSubmatchIndex(content, -1) {
		blocks = append(blocks, sfcBlock{
			kind:      blockStyle,
			content:   content[idx[4]:idx[5]],
			startLine: bytes.Count(content[:idx[4]], []byte("\n")),
		})
	}

	return blocks
}
