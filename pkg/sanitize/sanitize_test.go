package sanitize

import (
	"strings"
	"testing"
)

func TestClean_WrapsInContainer(t *testing.T) {
	out, err := Clean("<p>hello</p>")
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}

	if !strings.HasPrefix(out, `<div class="document-content">`) || !strings.HasSuffix(out, "</div>") {
		t.Errorf("output not wrapped in container: %s", out)
	}
	if !strings.Contains(out, "<p>hello</p>") {
		t.Errorf("paragraph missing: %s", out)
	}
}

func TestClean_DropsActiveContent(t *testing.T) {
	out, err := Clean(`<p>ok</p><script>alert(1)</script><style>p{}</style>`)
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}

	if strings.Contains(out, "script") || strings.Contains(out, "alert") {
		t.Errorf("script content survived: %s", out)
	}
	if strings.Contains(out, "p{}") {
		t.Errorf("style content survived: %s", out)
	}
}

func TestClean_UnwrapsUnknownTags(t *testing.T) {
	out, err := Clean(`<article><p>kept <marquee>text</marquee></p></article>`)
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}

	if strings.Contains(out, "article") || strings.Contains(out, "marquee") {
		t.Errorf("unknown tags survived: %s", out)
	}
	if !strings.Contains(out, "kept text") {
		t.Errorf("unwrapped text lost: %s", out)
	}
}

func TestClean_RewritesAnchors(t *testing.T) {
	out, err := Clean(`<a href="https://example.com/cv">link</a>`)
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}

	for _, want := range []string{
		`href="https://example.com/cv"`,
		`rel="noopener noreferrer"`,
		`target="_blank"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s: %s", want, out)
		}
	}
}

func TestClean_RejectsUnsafeSchemes(t *testing.T) {
	tests := []struct {
		name string
		href string
		safe bool
	}{
		{"https", "https://example.com", true},
		{"http", "http://example.com", true},
		{"mailto", "mailto:me@example.com", true},
		{"javascript", "javascript:alert(1)", false},
		{"data", "data:text/html,x", false},
		{"relative", "profile.html", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Clean(`<a href="` + tt.href + `">x</a>`)
			if err != nil {
				t.Fatalf("Clean failed: %v", err)
			}
			hasHref := strings.Contains(out, "href=")
			if hasHref != tt.safe {
				t.Errorf("href %q kept=%v, want %v (output: %s)", tt.href, hasHref, tt.safe, out)
			}
		})
	}
}

func TestClean_AttributeFiltering(t *testing.T) {
	out, err := Clean(`<p class="intro" onclick="evil()" data-x="1">text</p>`)
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}

	if !strings.Contains(out, `class="intro"`) {
		t.Errorf("class attribute lost: %s", out)
	}
	if strings.Contains(out, "onclick") || strings.Contains(out, "data-x") {
		t.Errorf("disallowed attributes survived: %s", out)
	}
}

func TestClean_InlineImages(t *testing.T) {
	out, err := Clean(`<img src="data:image/png;base64,iVBORw0KGgo="><img src="https://cdn.example.com/x.png">`)
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}

	if !strings.Contains(out, `src="data:image/png;base64,iVBORw0KGgo="`) {
		t.Errorf("inline image lost: %s", out)
	}
	if strings.Contains(out, "cdn.example.com") {
		t.Errorf("remote image src survived: %s", out)
	}
}

func TestStripTags(t *testing.T) {
	text, err := StripTags("<h1>Resume</h1><p>Senior <strong>Go</strong> engineer</p><script>x()</script>")
	if err != nil {
		t.Fatalf("StripTags failed: %v", err)
	}

	joined := strings.Join(strings.Fields(text), " ")
	if joined != "Resume Senior Go engineer" {
		t.Errorf("StripTags = %q, want %q", joined, "Resume Senior Go engineer")
	}
}
