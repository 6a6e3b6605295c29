// Package testutil provides testing utilities for the conversion service.
package testutil

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/talentflow/docconv/pkg/codec"
)

// FakeCodec is a configurable in-memory codec for tests. It records call
// counts and the options it was invoked with, and can inject delays and
// failures.
type FakeCodec struct {
	mu sync.Mutex

	// ParseDelay stalls every Parse call, simulating slow conversions.
	ParseDelay time.Duration

	// FailParseWith, if set, is returned by Parse. FailuresBeforeSuccess
	// limits how many calls fail before Parse starts succeeding; zero means
	// fail forever.
	FailParseWith         error
	FailuresBeforeSuccess int

	// FailValidateWith, if set, is returned by Validate.
	FailValidateWith error

	// Body is the HTML body Parse emits. Defaults to a single paragraph
	// echoing the input length.
	Body string

	parseCalls    int
	activeParses  int
	peakParses    int
	extractCalls  int
	renderCalls   int
	validateCalls int
	lastOptions   codec.ParseOptions
}

// compile-time interface check
var _ codec.Codec = (*FakeCodec)(nil)

// Parse returns a synthetic document built from Body. When EmbedImages is
// requested the document carries an inline data-URI image, so tests can
// distinguish full conversions from minimal ones by output alone.
func (f *FakeCodec) Parse(ctx context.Context, data []byte, opts codec.ParseOptions) (*codec.Document, error) {
	f.mu.Lock()
	f.parseCalls++
	calls := f.parseCalls
	f.activeParses++
	if f.activeParses > f.peakParses {
		f.peakParses = f.activeParses
	}
	f.lastOptions = opts
	fail := f.FailParseWith
	if fail != nil && f.FailuresBeforeSuccess > 0 && calls > f.FailuresBeforeSuccess {
		fail = nil
	}
	delay := f.ParseDelay
	body := f.Body
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.activeParses--
		f.mu.Unlock()
	}()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail != nil {
		return nil, fail
	}

	if body == "" {
		body = "<p>document body</p>"
	}
	var sb strings.Builder
	sb.WriteString(body)
	if opts.EmbedImages {
		sb.WriteString(`<img src="data:image/png;base64,iVBORw0KGgo=" alt="">`)
	}

	return &codec.Document{
		HTML:         sb.String(),
		Title:        "Fake Document",
		Author:       "testutil",
		LastModified: time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC),
	}, nil
}

// ExtractText returns the Body with tags crudely removed.
func (f *FakeCodec) ExtractText(ctx context.Context, data []byte) (string, error) {
	f.mu.Lock()
	f.extractCalls++
	body := f.Body
	f.mu.Unlock()

	if body == "" {
		body = "document body"
	}
	replacer := strings.NewReplacer("<p>", " ", "</p>", " ", "<h1>", " ", "</h1>", " ")
	return strings.TrimSpace(replacer.Replace(body)), nil
}

// Render echoes the HTML back as bytes.
func (f *FakeCodec) Render(ctx context.Context, html string, opts codec.RenderOptions) ([]byte, error) {
	f.mu.Lock()
	f.renderCalls++
	f.mu.Unlock()
	if html == "" {
		return nil, errors.New("invalid document: empty body")
	}
	return []byte(html), nil
}

// Validate rejects empty input and anything configured to fail.
func (f *FakeCodec) Validate(ctx context.Context, data []byte) error {
	f.mu.Lock()
	f.validateCalls++
	fail := f.FailValidateWith
	f.mu.Unlock()
	if fail != nil {
		return fail
	}
	if len(data) == 0 {
		return errors.New("invalid document: empty input")
	}
	return nil
}

// ParseCalls returns how many times Parse ran.
func (f *FakeCodec) ParseCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.parseCalls
}

// PeakParses returns the highest number of Parse calls seen in flight at
// once.
func (f *FakeCodec) PeakParses() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peakParses
}

// RenderCalls returns how many times Render ran.
func (f *FakeCodec) RenderCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.renderCalls
}

// LastParseOptions returns the options of the most recent Parse call.
func (f *FakeCodec) LastParseOptions() codec.ParseOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastOptions
}
