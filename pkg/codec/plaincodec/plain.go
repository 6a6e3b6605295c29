// Package plaincodec implements the codec contract for a simple text-based
// document container: UTF-8 text parsed into paragraph HTML, rendered back
// into a zstd-compressed container with a magic header. It exists so the
// service can run end to end in development and tests without the
// proprietary binary codec.
package plaincodec

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/compress/zstd"

	"github.com/talentflow/docconv/pkg/codec"
)

// magic identifies a rendered plain-codec container.
var magic = []byte("DCNV")

// Compile-time check that Codec implements codec.Codec.
var _ codec.Codec = (*Codec)(nil)

// Codec implements codec.Codec over plain text containers.
type Codec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// New returns a new plain codec.
func New() (*Codec, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &Codec{encoder: enc, decoder: dec}, nil
}

// Parse converts container or raw text bytes to paragraph HTML.
func (c *Codec) Parse(ctx context.Context, data []byte, opts codec.ParseOptions) (*codec.Document, error) {
	text, err := c.text(data)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	var messages []string
	title := ""

	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		tag, class := tagForBlock(block, opts.StyleMap)
		if title == "" && (tag == "h1" || strings.HasPrefix(block, "# ")) {
			title = strings.TrimPrefix(block, "# ")
		}
		content := html.EscapeString(strings.TrimPrefix(block, "# "))
		if class != "" {
			fmt.Fprintf(&b, "<%s class=%q>%s</%s>", tag, class, content, tag)
		} else {
			fmt.Fprintf(&b, "<%s>%s</%s>", tag, content, tag)
		}
	}

	if b.Len() == 0 {
		messages = append(messages, "document contains no text blocks")
	}

	return &codec.Document{
		HTML:     b.String(),
		Messages: messages,
		Title:    title,
	}, nil
}

// ExtractText returns the document's plain text.
func (c *Codec) ExtractText(ctx context.Context, data []byte) (string, error) {
	return c.text(data)
}

// Render wraps HTML in a zstd-compressed container.
func (c *Codec) Render(ctx context.Context, htmlContent string, opts codec.RenderOptions) ([]byte, error) {
	var payload strings.Builder
	if opts.Title != "" {
		fmt.Fprintf(&payload, "title: %s\n", opts.Title)
	}
	if opts.Author != "" {
		fmt.Fprintf(&payload, "author: %s\n", opts.Author)
	}
	payload.WriteString(htmlContent)

	compressed := c.encoder.EncodeAll([]byte(payload.String()), nil)
	return append(append([]byte{}, magic...), compressed...), nil
}

// Validate checks the bytes are a container or valid UTF-8 text.
func (c *Codec) Validate(ctx context.Context, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("invalid document: empty input")
	}
	if bytes.HasPrefix(data, magic) {
		if _, err := c.decoder.DecodeAll(data[len(magic):], nil); err != nil {
			return fmt.Errorf("corrupted document container: %w", err)
		}
		return nil
	}
	if !utf8.Valid(data) {
		return fmt.Errorf("unsupported document format: not a container and not UTF-8 text")
	}
	return nil
}

// text decodes a container or passes raw text through.
func (c *Codec) text(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("invalid document: empty input")
	}
	if bytes.HasPrefix(data, magic) {
		decoded, err := c.decoder.DecodeAll(data[len(magic):], nil)
		if err != nil {
			return "", fmt.Errorf("corrupted document container: %w", err)
		}
		return string(decoded), nil
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("unsupported document format: not a container and not UTF-8 text")
	}
	return string(data), nil
}

// tagForBlock picks the HTML tag for a text block. A leading "# " marks a
// heading; otherwise the style map is consulted for a "Normal" override.
func tagForBlock(block string, styleMap []codec.StyleRule) (tag, class string) {
	if strings.HasPrefix(block, "# ") {
		for _, rule := range styleMap {
			if rule.Style == "Heading 1" {
				return rule.Tag, rule.Class
			}
		}
		return "h1", ""
	}
	for _, rule := range styleMap {
		if rule.Style == "Normal" {
			return rule.Tag, rule.Class
		}
	}
	return "p", ""
}
