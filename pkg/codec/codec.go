// Package codec defines the document codec contract: the opaque, CPU-bound
// capability that converts binary document bytes to HTML and back. The
// conversion layer treats implementations as pure functions; everything
// around them (caching, dedup, retries, pooling) lives elsewhere.
package codec

import (
	"context"
	"time"
)

// StyleRule maps a source paragraph style name to an HTML element.
type StyleRule struct {
	// Style is the source document style name (e.g., "Heading 1").
	Style string

	// Tag is the HTML tag to emit (e.g., "h1").
	Tag string

	// Class is an optional class attribute for the emitted element.
	Class string
}

// ParseOptions control how a document is converted to HTML.
type ParseOptions struct {
	// StyleMap maps source paragraph styles to HTML elements. Empty means
	// the codec's default mapping.
	StyleMap []StyleRule

	// EmbedImages inlines embedded images as base64 data URIs. When false,
	// images are dropped from the output.
	EmbedImages bool
}

// RenderOptions control rendering HTML back into document bytes.
type RenderOptions struct {
	Title   string
	Author  string
	Subject string

	// MarginsTwips is the page margin in twentieths of a point. Zero means
	// the codec default.
	MarginsTwips int
}

// Document is the raw output of a parse: unsanitized HTML plus whatever
// metadata the codec could recover from the container.
type Document struct {
	// HTML is the raw converted markup. It has not been sanitized.
	HTML string

	// Messages are non-fatal diagnostics emitted during conversion
	// (unrecognized styles, dropped elements).
	Messages []string

	Title        string
	Author       string
	LastModified time.Time
}

// Codec converts between binary document bytes and HTML.
//
// Implementations may be slow and CPU-bound but must be safe for concurrent
// use: the worker pool runs multiple Parse calls in parallel.
type Codec interface {
	// Parse converts document bytes to HTML.
	Parse(ctx context.Context, data []byte, opts ParseOptions) (*Document, error)

	// ExtractText returns the document's plain text in a separate full-text
	// pass, used for exact word counts.
	ExtractText(ctx context.Context, data []byte) (string, error)

	// Render converts HTML back into document bytes.
	Render(ctx context.Context, html string, opts RenderOptions) ([]byte, error)

	// Validate reports whether the bytes look like a document this codec
	// can process. It should be cheap relative to Parse.
	Validate(ctx context.Context, data []byte) error
}
