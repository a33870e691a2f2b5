package segment

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// TestForFile_Dispatch checks the extension-to-loader mapping.
func TestForFile_Dispatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want Loader
	}{
		{"report.docx", DocxLoader{}},
		{"REPORT.DOCX", DocxLoader{}},
		{"macro.docm", DocxLoader{}},
		{"paper.pdf", PDFLoader{}},
		{"notes.txt", TextLoader{}},
		{"readme.md", MarkdownLoader{}},
		{"data.csv", CSVLoader{}},
		{"sheet.xlsx", ExcelLoader{}},
		{"deck.pptx", SlidesLoader{}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			got, err := ForFile(tt.path)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ForFile(%q) = %T, want %T", tt.path, got, tt.want)
			}
		})
	}
}

// TestForFile_Unsupported checks the error for unknown extensions.
func TestForFile_Unsupported(t *testing.T) {
	t.Parallel()

	// legacy.xls: OLE2 workbooks are not OOXML and must be rejected up front
	// rather than fail mid-run inside excelize.
	for _, path := range []string{"archive.tar.gz", "image.png", "noext", "legacy.xls"} {
		_, err := ForFile(path)
		if !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("ForFile(%q): expected ErrUnsupportedFormat, got %v", path, err)
		}
	}
	if Supported("image.png") {
		t.Error("Supported(image.png) = true")
	}
	if !Supported("doc.docx") {
		t.Error("Supported(doc.docx) = false")
	}
}

// TestLoad_TextEndToEnd checks extraction plus preparation in one call.
func TestLoad_TextEndToEnd(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "notes.txt")
	content := "First paragraph\nstill first paragraph\n\nSecond paragraph here\n\n42\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	segments, err := Load(context.Background(), path, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %d: %q", len(segments), segments)
	}
	want := "First paragraph still first paragraph. Second paragraph here."
	if segments[0] != want {
		t.Errorf("got %q, want %q", segments[0], want)
	}
}
