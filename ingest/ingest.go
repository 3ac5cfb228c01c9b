// Package ingest extracts analyzable plain text from uploaded contract
// documents. Formats are identified by content sniffing, not by file
// extension, so a renamed binary cannot masquerade as a document.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
	"github.com/tmc/langchaingo/documentloaders"
)

// Format identifies a supported document format.
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

var (
	// ErrUnsupportedFormat is returned for binary content that is not a
	// recognized document format.
	ErrUnsupportedFormat = errors.New("ingest: unsupported document format")
	// ErrNotPDF is returned when content declared as PDF lacks the PDF
	// signature.
	ErrNotPDF = errors.New("ingest: file does not carry a PDF signature")
	// ErrNoText is returned when a document yields no extractable text,
	// e.g. an encrypted PDF or a scanned image without OCR.
	ErrNoText = errors.New("ingest: no extractable text in document")
)

var pdfMagic = []byte("%PDF-")

// DetectFormat sniffs the document format from its leading bytes.
func DetectFormat(data []byte) (Format, error) {
	if bytes.HasPrefix(data, pdfMagic) {
		return FormatPDF, nil
	}

	trimmed := bytes.TrimLeft(data, " \t\r\n")
	lower := bytes.ToLower(trimmed)
	if bytes.HasPrefix(lower, []byte("<!doctype html")) || bytes.HasPrefix(lower, []byte("<html")) {
		return FormatHTML, nil
	}

	// Any remaining NUL byte means binary content we cannot read.
	if bytes.IndexByte(data, 0) >= 0 {
		return "", ErrUnsupportedFormat
	}
	return FormatText, nil
}

// Extract sniffs the format and extracts plain text. Markdown cannot be
// sniffed reliably and is treated as plain text here; callers that know
// the format should use ExtractAs.
func Extract(ctx context.Context, data []byte) (string, error) {
	format, err := DetectFormat(data)
	if err != nil {
		return "", err
	}
	return ExtractAs(ctx, data, format)
}

// ExtractAs extracts plain text from data in the given format.
func ExtractAs(ctx context.Context, data []byte, format Format) (string, error) {
	switch format {
	case FormatPDF:
		return ExtractPDF(ctx, data)
	case FormatHTML:
		return ExtractHTML(data)
	case FormatMarkdown:
		return ExtractMarkdown(data)
	case FormatText:
		text := strings.TrimSpace(string(data))
		if text == "" {
			return "", ErrNoText
		}
		return text, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

// ExtractPDF extracts text from a PDF, tagging each page so answers can
// cite a page number. The PDF signature is verified before parsing.
func ExtractPDF(ctx context.Context, data []byte) (string, error) {
	if !bytes.HasPrefix(data, pdfMagic) {
		return "", ErrNotPDF
	}

	loader := documentloaders.NewPDF(bytes.NewReader(data), int64(len(data)))
	docs, err := loader.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to parse pdf: %w", err)
	}

	var b strings.Builder
	for i, doc := range docs {
		text := strings.TrimSpace(doc.PageContent)
		if text == "" {
			continue
		}
		page := i + 1
		if p, ok := doc.Metadata["page"].(int); ok && p > 0 {
			page = p
		}
		fmt.Fprintf(&b, "[Page %d] %s\n", page, text)
	}

	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", ErrNoText
	}
	return out, nil
}

// ExtractHTML sanitizes the markup and returns the visible text.
func ExtractHTML(data []byte) (string, error) {
	sanitized := bluemonday.UGCPolicy().SanitizeBytes(data)

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(sanitized))
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}
	doc.Find("script, style").Remove()

	text := collapseWhitespace(doc.Text())
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

// ExtractMarkdown renders the markdown to HTML and extracts its text.
func ExtractMarkdown(data []byte) (string, error) {
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs
	p := parser.NewWithExtensions(extensions)
	doc := p.Parse(data)

	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	rendered := markdown.Render(doc, renderer)

	return ExtractHTML(rendered)
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(strings.Join(strings.Fields(s), " "))
}
