// Package document loads the text the reader displays and answers "which
// word is under this column" questions about it.
package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/ledongthuc/pdf"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"
)

// ErrUnsupported is returned for sources that are neither text nor PDF.
var ErrUnsupported = errors.New("unsupported document type")

var runOfBlanks = regexp.MustCompile(`[ \t\f\v]+`)

const tabWidth = 4

// Document is a loaded source split into paragraphs.
type Document struct {
	Source     string
	Title      string
	Paragraphs []string

	wrapWidth int
	wrapped   []string
}

// New builds a document from already loaded text.
func New(source, text string) *Document {
	return &Document{
		Source:     source,
		Title:      titleFor(source),
		Paragraphs: splitParagraphs(text),
	}
}

// Lines returns the document soft wrapped to width cells. Words longer than
// the width are broken. A width of zero or less disables wrapping.
func (d *Document) Lines(width int) []string {
	if d.wrapped != nil && d.wrapWidth == width {
		return d.wrapped
	}
	lines := make([]string, 0, len(d.Paragraphs))
	for _, para := range d.Paragraphs {
		if width <= 0 || para == "" {
			lines = append(lines, para)
			continue
		}
		wrapped := wrap.String(wordwrap.String(para, width), width)
		for _, line := range strings.Split(wrapped, "\n") {
			lines = append(lines, strings.TrimRight(line, " "))
		}
	}
	d.wrapWidth = width
	d.wrapped = lines
	return lines
}

// Loader reads documents from disk or over HTTP.
type Loader struct {
	Client   *http.Client
	CacheDir string
	Logger   *log.Logger
}

// Load reads source with a default Loader.
func Load(ctx context.Context, source string) (*Document, error) {
	return (&Loader{}).Load(ctx, source)
}

// Load reads a local path or an http(s) URL.
func (l *Loader) Load(ctx context.Context, source string) (*Document, error) {
	logger := l.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, fmt.Errorf("empty document source")
	}

	path := source
	if isURL(source) {
		cache, err := newFetchCache(l.CacheDir, l.Client)
		if err != nil {
			return nil, fmt.Errorf("open document cache: %w", err)
		}
		path, err = cache.Fetch(ctx, source)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", source, err)
		}
		logger.Debug("fetched document", "url", source, "path", path)
	}

	text, err := readText(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", source, err)
	}
	doc := New(source, text)
	logger.Info("loaded document", "source", source, "paragraphs", len(doc.Paragraphs))
	return doc, nil
}

func isURL(source string) bool {
	u, err := url.Parse(source)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if isPDF(path, data) {
		return pdfText(path)
	}
	if !utf8.Valid(data) || bytes.IndexByte(data, 0) >= 0 {
		return "", ErrUnsupported
	}
	return string(data), nil
}

func isPDF(path string, data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF-")) || strings.EqualFold(filepath.Ext(path), ".pdf")
}

func pdfText(path string) (string, error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}
	defer file.Close()

	content, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract pdf text: %w", err)
	}

	var builder strings.Builder
	if _, err := io.Copy(&builder, content); err != nil {
		return "", err
	}
	return builder.String(), nil
}

func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\t", strings.Repeat(" ", tabWidth))
	raw := strings.Split(strings.TrimRight(text, "\n"), "\n")
	paragraphs := make([]string, 0, len(raw))
	for _, line := range raw {
		leading := len(line) - len(strings.TrimLeft(line, " "))
		body := runOfBlanks.ReplaceAllString(strings.TrimSpace(line), " ")
		if body == "" {
			paragraphs = append(paragraphs, "")
			continue
		}
		paragraphs = append(paragraphs, strings.Repeat(" ", leading)+body)
	}
	return paragraphs
}

func titleFor(source string) string {
	if isURL(source) {
		if u, err := url.Parse(source); err == nil {
			if base := filepath.Base(u.Path); base != "" && base != "/" && base != "." {
				return base
			}
			return u.Host
		}
	}
	return filepath.Base(source)
}
