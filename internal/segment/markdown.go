package segment

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// MarkdownLoader extracts units from Markdown files. Formatting syntax is
// stripped so the corrector sees prose, and fenced code blocks are dropped
// entirely; correcting grammar inside code makes no sense.
type MarkdownLoader struct{}

var (
	mdHeading    = regexp.MustCompile(`^#{1,6}\s+`)
	mdListMarker = regexp.MustCompile(`^(\s*)([-*+]|\d+[.)])\s+`)
	mdImage      = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	mdLink       = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	mdInlineCode = regexp.MustCompile("`([^`]*)`")
)

// LoadSegments implements Loader.
func (MarkdownLoader) LoadSegments(_ context.Context, path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("segment: read markdown file: %w", err)
	}

	var (
		plain   strings.Builder
		inFence bool
	)

	sc := bufio.NewScanner(strings.NewReader(string(data)))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}

		plain.WriteString(stripInline(trimmed))
		plain.WriteByte('\n')
	}

	units := splitParagraphs(plain.String())
	if len(units) == 0 {
		return nil, ErrNoText
	}
	return units, nil
}

// stripInline removes markdown decoration from one line, keeping the text.
func stripInline(line string) string {
	line = mdHeading.ReplaceAllString(line, "")
	line = mdListMarker.ReplaceAllString(line, "")
	line = strings.TrimPrefix(line, "> ")
	line = mdImage.ReplaceAllString(line, "")
	line = mdLink.ReplaceAllString(line, "$1")
	line = mdInlineCode.ReplaceAllString(line, "$1")
	line = strings.NewReplacer("**", "", "__", "", "*", "", "_", "").Replace(line)
	return line
}
