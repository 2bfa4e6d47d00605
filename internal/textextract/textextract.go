// Package textextract turns uploaded files into plain text.
package textextract

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// ErrUnsupported is returned for file types with no extractor.
var ErrUnsupported = errors.New("unsupported file type")

// ErrEmpty is returned when a file yields no text.
var ErrEmpty = errors.New("no text extracted")

// Extractor dispatches on the file extension.
type Extractor struct {
	log *zap.Logger
}

func New(log *zap.Logger) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{log: log}
}

// Supported reports whether name has an extension Extract understands.
func Supported(name string) bool {
	switch ext(name) {
	case ".txt", ".md", ".csv", ".pdf":
		return true
	}
	return false
}

func (e *Extractor) Extract(ctx context.Context, name string, r io.ReaderAt, size int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var (
		text string
		err  error
	)
	switch ext(name) {
	case ".txt", ".md":
		text, err = plain(r, size)
	case ".csv":
		text, err = table(r, size)
	case ".pdf":
		text, err = e.pdfText(r, size)
	default:
		return "", fmt.Errorf("%s: %w", name, ErrUnsupported)
	}
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", name, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%s: %w", name, ErrEmpty)
	}
	e.log.Debug("text extracted", zap.String("file", name), zap.Int("runes", utf8.RuneCountInString(text)))
	return text, nil
}

func ext(name string) string { return strings.ToLower(filepath.Ext(name)) }

func plain(r io.ReaderAt, size int64) (string, error) {
	b, err := io.ReadAll(io.NewSectionReader(r, 0, size))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", errors.New("file is not valid UTF-8")
	}
	return string(b), nil
}

// table renders a CSV file as a header line followed by one line per
// record, values joined with ", ".
func table(r io.ReaderAt, size int64) (string, error) {
	cr := csv.NewReader(io.NewSectionReader(r, 0, size))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, rec := range records {
		if blank(rec) {
			continue
		}
		b.WriteString(strings.Join(rec, ", "))
		b.WriteByte('\n')
	}
	return b.String(), nil
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func (e *Extractor) pdfText(r io.ReaderAt, size int64) (string, error) {
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	body, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	e.log.Debug("pdf parsed", zap.Int("pages", reader.NumPage()))
	return string(b), nil
}
