package segment

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// SlidesLoader extracts units from PowerPoint presentations (.pptx and
// friends). Each text paragraph inside a slide becomes one unit, slides in
// deck order.
type SlidesLoader struct{}

var slideName = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// LoadSegments implements Loader.
func (SlidesLoader) LoadSegments(ctx context.Context, path string) ([]string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("segment: open pptx: %w", err)
	}
	defer r.Close()

	type slide struct {
		nr   int
		file *zip.File
	}
	var slides []slide
	for _, f := range r.File {
		m := slideName.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		nr, _ := strconv.Atoi(m[1])
		slides = append(slides, slide{nr: nr, file: f})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].nr < slides[j].nr })

	var units []string
	for _, s := range slides {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rc, err := s.file.Open()
		if err != nil {
			return nil, fmt.Errorf("segment: open slide %d: %w", s.nr, err)
		}
		paras, err := slideParagraphs(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("segment: parse slide %d: %w", s.nr, err)
		}
		units = append(units, paras...)
	}

	if len(units) == 0 {
		return nil, ErrNoText
	}
	return units, nil
}

// slideParagraphs walks a DrawingML slide and accumulates the a:t runs of
// each a:p paragraph.
func slideParagraphs(r io.Reader) ([]string, error) {
	decoder := xml.NewDecoder(r)

	var (
		units   []string
		current strings.Builder
		depth   int // nesting depth of a:p elements
		inRun   bool
	)

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				depth++
				current.Reset()
			case "t":
				inRun = depth > 0
			}

		case xml.CharData:
			if inRun {
				current.Write(t)
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inRun = false
			case "p":
				if depth > 0 {
					depth--
					if text := strings.TrimSpace(current.String()); text != "" {
						units = append(units, text)
					}
				}
			}
		}
	}

	return units, nil
}
