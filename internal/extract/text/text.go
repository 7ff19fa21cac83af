// Package text turns stored document files into plain text.
package text

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/dvloznov/finance-ingest/internal/logger"
)

// ErrUnsupportedType is wrapped by errors for file types with no extraction path.
var ErrUnsupportedType = errors.New("unsupported file type")

// Reader reads stored file bytes by path.
type Reader interface {
	Read(ctx context.Context, path string) ([]byte, error)
}

// Extractor extracts text from PDFs, plain text files and images.
type Extractor struct {
	files     Reader
	tesseract string
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithTesseract sets the tesseract binary used for images.
func WithTesseract(bin string) Option {
	return func(e *Extractor) { e.tesseract = bin }
}

// New creates an extractor reading files through files.
func New(files Reader, opts ...Option) *Extractor {
	e := &Extractor{files: files, tesseract: "tesseract"}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the text of the file at path. An empty result with a nil
// error means the file held no extractable text.
func (e *Extractor) Extract(ctx context.Context, path, fileType string) (string, error) {
	ft := strings.ToLower(strings.TrimPrefix(fileType, "."))

	var extract func([]byte) (string, error)
	switch ft {
	case "pdf":
		extract = extractPDF
	case "txt", "csv":
		extract = func(data []byte) (string, error) { return string(data), nil }
	case "png", "jpg", "jpeg":
		extract = func(data []byte) (string, error) { return e.ocr(ctx, data) }
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, ft)
	}

	data, err := e.files.Read(ctx, path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	text, err := extract(data)
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	log := logger.FromContext(ctx)
	log.Debug().
		Str("path", path).
		Str("file_type", ft).
		Int("chars", len(text)).
		Msg("Extracted text")
	return text, nil
}

// extractPDF reads the text layer page by page, row by row.
func extractPDF(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("PDF library crashed: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}

	numPages := r.NumPage()
	if numPages == 0 {
		return "", fmt.Errorf("PDF has no pages")
	}

	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		var lines []string
		for _, row := range rows {
			var parts []string
			for _, word := range row.Content {
				parts = append(parts, word.S)
			}
			if line := strings.TrimSpace(strings.Join(parts, " ")); line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}

	text = strings.Join(pages, "\n\n")
	if strings.TrimSpace(text) != "" {
		return text, nil
	}

	// fall back to whole-document extraction
	plain, err := r.GetPlainText()
	if err != nil {
		return "", nil
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", nil
	}
	return string(b), nil
}

// ocr runs tesseract over image bytes via stdin/stdout.
func (e *Extractor) ocr(ctx context.Context, data []byte) (string, error) {
	bin, err := exec.LookPath(e.tesseract)
	if err != nil {
		return "", fmt.Errorf("tesseract not available (install tesseract-ocr): %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "stdin", "stdout", "-l", "eng", "--psm", "4")
	cmd.Stdin = bytes.NewReader(data)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract failed: %w (output: %s)", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
