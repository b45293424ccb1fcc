// Package loader extracts plain text from uploaded campus documents.
package loader

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"

	"github.com/campushq/docqa/internal/domain"
)

// Loader dispatches on file extension to a per-format parser. Scanned or
// image-only PDFs yield empty text silently; there is no OCR.
type Loader struct{}

func New() *Loader {
	return &Loader{}
}

// SupportedExtensions lists the file extensions Load accepts.
func (l *Loader) SupportedExtensions() []string {
	return []string{".pdf", ".docx", ".pptx", ".txt"}
}

// Load extracts plain text from the file at path. Unrecognized extensions
// fail with domain.ErrUnsupportedFormat; that failure is fatal to the
// surrounding ingestion.
func (l *Loader) Load(ctx context.Context, path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return parsePDF(ctx, path)
	case ".docx":
		return parseDOCX(path)
	case ".pptx":
		return parsePPTX(ctx, path)
	case ".txt":
		return parseTXT(path)
	default:
		return "", domain.NewDomainErrorWithCause(
			domain.ErrCodeUnsupportedFormat,
			"unsupported document format",
			fmt.Errorf("extension %q", filepath.Ext(path)),
		)
	}
}

// parsePDF concatenates extractable text per page, skipping pages with none,
// joined by blank lines.
func parsePDF(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat pdf: %w", err)
	}

	reader, err := pdf.NewReader(file, info.Size())
	if err != nil {
		return "", fmt.Errorf("failed to parse pdf: %w", err)
	}

	var pages []string
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) != "" {
			pages = append(pages, strings.TrimSpace(text))
		}
	}

	return strings.Join(pages, "\n\n"), nil
}

// parseDOCX concatenates non-empty paragraph text joined by blank lines.
func parseDOCX(path string) (string, error) {
	doc, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to open docx: %w", err)
	}
	defer doc.Close()

	return extractWordParagraphs(doc.Editable().GetContent()), nil
}

// extractWordParagraphs pulls paragraph text out of a WordprocessingML
// document body. Paragraphs with no text runs are dropped.
func extractWordParagraphs(content string) string {
	decoder := xml.NewDecoder(strings.NewReader(content))

	var paragraphs []string
	var current strings.Builder
	inParagraph := false
	inText := false

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inParagraph = true
				current.Reset()
			case "t":
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				if inParagraph {
					if text := strings.TrimSpace(current.String()); text != "" {
						paragraphs = append(paragraphs, text)
					}
					inParagraph = false
				}
			case "t":
				inText = false
			}
		case xml.CharData:
			if inParagraph && inText {
				current.Write(t)
			}
		}
	}

	return strings.Join(paragraphs, "\n\n")
}

// parsePPTX emits a "Slide N:" header per slide followed by every
// text-bearing shape, slides joined by blank lines.
func parsePPTX(ctx context.Context, path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pptx: %w", err)
	}
	defer archive.Close()

	slides := slideFiles(archive)

	var out []string
	for i, slide := range slides {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		rc, err := slide.Open()
		if err != nil {
			return "", fmt.Errorf("failed to read slide %d: %w", i+1, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("failed to read slide %d: %w", i+1, err)
		}

		lines := []string{fmt.Sprintf("Slide %d:", i+1)}
		for _, shape := range extractSlideShapes(data) {
			if strings.TrimSpace(shape) != "" {
				lines = append(lines, shape)
			}
		}
		out = append(out, strings.Join(lines, "\n"))
	}

	return strings.Join(out, "\n\n"), nil
}

// slideFiles returns the slide XML entries of a pptx archive in slide order.
func slideFiles(archive *zip.ReadCloser) []*zip.File {
	var slides []*zip.File
	for _, f := range archive.File {
		name := f.Name
		if strings.HasPrefix(name, "ppt/slides/slide") && strings.HasSuffix(name, ".xml") {
			slides = append(slides, f)
		}
	}
	sort.Slice(slides, func(i, j int) bool {
		return slideNumber(slides[i].Name) < slideNumber(slides[j].Name)
	})
	return slides
}

func slideNumber(name string) int {
	base := strings.TrimSuffix(filepath.Base(name), ".xml")
	n, _ := strconv.Atoi(strings.TrimPrefix(base, "slide"))
	return n
}

// extractSlideShapes pulls the text of each text body (shape) out of a
// DrawingML slide. Paragraph breaks inside a shape become newlines.
func extractSlideShapes(data []byte) []string {
	decoder := xml.NewDecoder(strings.NewReader(string(data)))

	var shapes []string
	var current strings.Builder
	var paragraph strings.Builder
	inBody := false
	inText := false

	flushParagraph := func() {
		if text := strings.TrimSpace(paragraph.String()); text != "" {
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(text)
		}
		paragraph.Reset()
	}

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "txBody":
				inBody = true
				current.Reset()
				paragraph.Reset()
			case "t":
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				if inBody {
					flushParagraph()
				}
			case "txBody":
				if inBody {
					flushParagraph()
					if current.Len() > 0 {
						shapes = append(shapes, current.String())
					}
					inBody = false
				}
			case "t":
				inText = false
			}
		case xml.CharData:
			if inBody && inText {
				paragraph.Write(t)
			}
		}
	}

	return shapes
}

// parseTXT reads the file as UTF-8, dropping undecodable bytes rather than
// failing.
func parseTXT(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read text file: %w", err)
	}
	return strings.ToValidUTF8(string(data), ""), nil
}
