package ingest

import (
	"errors"
	"testing"

	"github.com/nileshsolidarity/Processes/internal/core"
)

func TestExtractPlainText(t *testing.T) {
	ext := NewDocconvExtractor()
	for _, mime := range []string{"text/plain", "text/csv", "text/markdown"} {
		got, err := ext.Extract([]byte("raw body"), mime)
		if err != nil {
			t.Fatalf("%s: %v", mime, err)
		}
		if got != "raw body" {
			t.Errorf("%s: got %q", mime, got)
		}
	}
}

func TestExtractUnsupportedFormat(t *testing.T) {
	ext := NewDocconvExtractor()
	_, err := ext.Extract([]byte{0x89, 0x50, 0x4e, 0x47}, "image/png")
	if !errors.Is(err, core.ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
}
