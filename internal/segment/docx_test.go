package segment

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// writeDocx builds a minimal .docx (ZIP with word/document.xml) on disk.
func writeDocx(t *testing.T, documentXML string) string {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "doc.docx")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const sampleDocumentXML = `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph, </w:t></w:r><w:r><w:t>split across runs.</w:t></w:r></w:p>
    <w:p><w:r><w:t></w:t></w:r></w:p>
    <w:p><w:r><w:t>Second</w:t></w:r><w:r><w:tab/></w:r><w:r><w:t>paragraph.</w:t></w:r></w:p>
  </w:body>
</w:document>`

// TestDocxLoader_Paragraphs checks run accumulation and empty-paragraph skipping.
func TestDocxLoader_Paragraphs(t *testing.T) {
	t.Parallel()

	path := writeDocx(t, sampleDocumentXML)
	units, err := DocxLoader{}.LoadSegments(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d: %q", len(units), units)
	}
	if units[0] != "First paragraph, split across runs." {
		t.Errorf("unexpected first unit: %q", units[0])
	}
	if units[1] != "Second paragraph." {
		t.Errorf("unexpected second unit: %q", units[1])
	}
}

// TestDocxLoader_MissingDocumentXML checks the error for a ZIP without the
// document part.
func TestDocxLoader_MissingDocumentXML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("word/styles.xml")
	_, _ = w.Write([]byte("<styles/>"))
	_ = zw.Close()

	path := filepath.Join(t.TempDir(), "broken.docx")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := DocxLoader{}.LoadSegments(context.Background(), path)
	if err == nil {
		t.Fatal("expected error for missing document.xml")
	}
}

// TestDocxLoader_NotAZip checks the error for non-ZIP input.
func TestDocxLoader_NotAZip(t *testing.T) {
	t.Parallel()

	path := writeTemp(t, "fake.docx", []byte("plain text, not a zip"))
	_, err := DocxLoader{}.LoadSegments(context.Background(), path)
	if err == nil {
		t.Fatal("expected error for non-zip input")
	}
}

// TestDocxLoader_NoText checks the no-text error for an all-empty document.
func TestDocxLoader_NoText(t *testing.T) {
	t.Parallel()

	path := writeDocx(t, `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body><w:p></w:p></w:body>
</w:document>`)

	_, err := DocxLoader{}.LoadSegments(context.Background(), path)
	if !errors.Is(err, ErrNoText) {
		t.Fatalf("expected ErrNoText, got %v", err)
	}
}
