package convert

import (
	"strings"

	"github.com/talentflow/docconv/pkg/cache"
	"github.com/talentflow/docconv/pkg/codec"
)

// Mode is the conversion strategy.
type Mode string

const (
	// ModeMinimal skips style and image extraction: default style mapping,
	// word count estimated from the tag-stripped output. Used for large
	// inputs that are not high priority.
	ModeMinimal Mode = "minimal"

	// ModeFull embeds images inline, applies the explicit style map and
	// runs a separate full-text pass for an exact word count.
	ModeFull Mode = "full"
)

// wordsPerPage is a fixed heuristic, not a rendering measurement.
const wordsPerPage = 250

// selectMode picks the conversion strategy from input size and priority.
// High priority always gets full fidelity, whatever the size.
func selectMode(inputBytes int, priority Priority) Mode {
	if inputBytes > cache.LargeInputBytes && priority != PriorityHigh {
		return ModeMinimal
	}
	return ModeFull
}

// fullStyleMap maps source paragraph styles to HTML for full-fidelity
// conversions. Minimal mode leaves the map empty and takes the codec's
// defaults.
var fullStyleMap = []codec.StyleRule{
	{Style: "Title", Tag: "h1", Class: "title"},
	{Style: "Subtitle", Tag: "h2", Class: "subtitle"},
	{Style: "Heading 1", Tag: "h1"},
	{Style: "Heading 2", Tag: "h2"},
	{Style: "Heading 3", Tag: "h3"},
	{Style: "Heading 4", Tag: "h4"},
	{Style: "Heading 5", Tag: "h5"},
	{Style: "Heading 6", Tag: "h6"},
	{Style: "Quote", Tag: "blockquote"},
	{Style: "Intense Quote", Tag: "blockquote", Class: "intense"},
	{Style: "Strong", Tag: "strong"},
	{Style: "Emphasis", Tag: "em"},
}

// parseOptionsFor returns the codec options for a mode.
func parseOptionsFor(mode Mode) codec.ParseOptions {
	if mode == ModeMinimal {
		return codec.ParseOptions{}
	}
	return codec.ParseOptions{
		StyleMap:    fullStyleMap,
		EmbedImages: true,
	}
}

// countWords counts whitespace-separated words.
func countWords(text string) int {
	return len(strings.Fields(text))
}

// pageCount estimates pages as ceil(words / 250).
func pageCount(words int) int {
	return (words + wordsPerPage - 1) / wordsPerPage
}
