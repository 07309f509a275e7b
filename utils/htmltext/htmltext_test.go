package htmltext

import (
	"strings"
	"testing"
)

func TestExtractText(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "plain text passes through",
			content: "just some text",
			want:    "just some text",
		},
		{
			name:    "tags stripped",
			content: "<h1>Title</h1><p>Body with <b>bold</b> text.</p>",
			want:    "Title Body with bold text.",
		},
		{
			name:    "script and style dropped",
			content: "<p>Visible</p><script>alert('x')</script><style>p{color:red}</style>",
			want:    "Visible",
		},
		{
			name:    "whitespace normalized",
			content: "<p>  one \n\n two  </p>",
			want:    "one two",
		},
		{
			name:    "empty input",
			content: "",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractText(tt.content); got != tt.want {
				t.Errorf("ExtractText(%q) = %q, want %q", tt.content, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("expected unchanged text, got %q", got)
	}

	got := Truncate("a longer piece of text", 8)
	if !strings.HasSuffix(got, "…") {
		t.Errorf("expected ellipsis suffix, got %q", got)
	}
	if len([]rune(got)) != 9 {
		t.Errorf("expected 8 runes plus ellipsis, got %d", len([]rune(got)))
	}

	if got := Truncate("anything", 0); got != "" {
		t.Errorf("expected empty string for max 0, got %q", got)
	}

	// Multibyte input must not be cut mid-rune.
	if got := Truncate("привет мир", 6); got != "привет…" {
		t.Errorf("unexpected multibyte truncation: %q", got)
	}
}
