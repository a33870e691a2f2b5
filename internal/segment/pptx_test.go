package segment

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

// writePptx builds a minimal .pptx with the given slide XML bodies, named
// slide1.xml, slide2.xml, ... in the order given.
func writePptx(t *testing.T, slides map[string]string) string {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range slides {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "deck.pptx")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func slideXML(paragraphs ...string) string {
	var sb bytes.Buffer
	sb.WriteString(`<?xml version="1.0"?><p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"><p:cSld><p:spTree><p:sp><p:txBody>`)
	for _, p := range paragraphs {
		sb.WriteString(`<a:p><a:r><a:t>`)
		sb.WriteString(p)
		sb.WriteString(`</a:t></a:r></a:p>`)
	}
	sb.WriteString(`</p:txBody></p:sp></p:spTree></p:cSld></p:sld>`)
	return sb.String()
}

// TestSlidesLoader_DeckOrder checks slides come back in numeric order even
// when the archive lists them out of order.
func TestSlidesLoader_DeckOrder(t *testing.T) {
	t.Parallel()

	path := writePptx(t, map[string]string{
		"ppt/slides/slide10.xml": slideXML("Slide ten text"),
		"ppt/slides/slide2.xml":  slideXML("Slide two text"),
		"ppt/slides/slide1.xml":  slideXML("Slide one title", "Slide one body"),
		"ppt/notesSlides/notesSlide1.xml": slideXML("speaker notes, excluded"),
	})

	units, err := SlidesLoader{}.LoadSegments(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"Slide one title", "Slide one body", "Slide two text", "Slide ten text"}
	if len(units) != len(want) {
		t.Fatalf("expected %d units, got %d: %q", len(want), len(units), units)
	}
	for i := range want {
		if units[i] != want[i] {
			t.Errorf("unit %d: got %q, want %q", i, units[i], want[i])
		}
	}
}

// TestSlidesLoader_NoSlides checks the no-text error for a deck without text.
func TestSlidesLoader_NoSlides(t *testing.T) {
	t.Parallel()

	path := writePptx(t, map[string]string{
		"ppt/presentation.xml": "<p:presentation/>",
	})
	_, err := SlidesLoader{}.LoadSegments(context.Background(), path)
	if err == nil {
		t.Fatal("expected error for deck without slides")
	}
}
