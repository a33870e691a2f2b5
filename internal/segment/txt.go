package segment

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

// TextLoader extracts units from plain-text files. Input encoding is sniffed
// (UTF-8, Latin-1, UTF-16 with BOM, ...) and transcoded to UTF-8; blank lines
// separate units.
type TextLoader struct{}

// LoadSegments implements Loader.
func (TextLoader) LoadSegments(_ context.Context, path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("segment: read text file: %w", err)
	}

	decoded, err := decodeToUTF8(data)
	if err != nil {
		return nil, fmt.Errorf("segment: decode text file: %w", err)
	}

	units := splitParagraphs(decoded)
	if len(units) == 0 {
		return nil, ErrNoText
	}
	return units, nil
}

// decodeToUTF8 sniffs the byte stream's encoding and transcodes it.
func decodeToUTF8(data []byte) (string, error) {
	enc, _, _ := charset.DetermineEncoding(data, "text/plain")
	r := transform.NewReader(bytes.NewReader(data), enc.NewDecoder())
	out, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	// The html/charset decoders pass a leading BOM through as U+FEFF.
	out = bytes.TrimPrefix(out, []byte("﻿"))
	return string(out), nil
}

// splitParagraphs groups consecutive non-blank lines into units.
func splitParagraphs(text string) []string {
	var (
		units   []string
		current strings.Builder
	)

	flush := func() {
		if p := strings.TrimSpace(current.String()); p != "" {
			units = append(units, p)
		}
		current.Reset()
	}

	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			flush()
			continue
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(line)
	}
	flush()

	return units
}
