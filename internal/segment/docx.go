package segment

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DocxLoader extracts units from Word documents (.docx and friends) by
// walking word/document.xml inside the ZIP container. Each non-empty
// paragraph becomes one unit; headings are kept, they often carry typos too.
type DocxLoader struct{}

// LoadSegments implements Loader.
func (DocxLoader) LoadSegments(ctx context.Context, path string) ([]string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("segment: open docx: %w", err)
	}
	defer r.Close()

	var docFile *zip.File
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return nil, errors.New("segment: word/document.xml not found in archive")
	}

	rc, err := docFile.Open()
	if err != nil {
		return nil, fmt.Errorf("segment: open document.xml: %w", err)
	}
	defer rc.Close()

	units, err := docxParagraphs(ctx, rc)
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return nil, ErrNoText
	}
	return units, nil
}

// docxParagraphs walks the WordprocessingML token stream and accumulates the
// text runs of each w:p element.
func docxParagraphs(ctx context.Context, r io.Reader) ([]string, error) {
	decoder := xml.NewDecoder(r)

	var (
		units       []string
		current     strings.Builder
		inParagraph bool
		inRun       bool
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("segment: parse document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inParagraph = true
				current.Reset()
			case "t":
				inRun = inParagraph
			case "tab":
				if inParagraph {
					current.WriteByte(' ')
				}
			case "br":
				if inParagraph {
					current.WriteByte(' ')
				}
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
				if inParagraph {
					inParagraph = false
					if text := strings.TrimSpace(current.String()); text != "" {
						units = append(units, text)
					}
				}
			}
		}
	}

	return units, nil
}
