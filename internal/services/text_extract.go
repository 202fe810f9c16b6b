package services

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	markdownHeadingRe = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	markdownEmphRe    = regexp.MustCompile(`(\*\*|__|\*|_|~~)`)
	markdownLinkRe    = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	markdownCodeRe    = regexp.MustCompile("(?s)```.*?```|`([^`]*)`")
	htmlTagRe         = regexp.MustCompile(`<[^>]+>`)
	blankRunRe        = regexp.MustCompile(`\n{3,}`)
)

// ExtractText turns an uploaded document into plain text keyed on file
// extension. Supported: .pdf, .md, .markdown, .txt. Markdown keeps the prose
// and strips syntax so the extraction prompts see clean text.
func ExtractText(filename string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return extractPDFText(data)
	case ".md", ".markdown":
		return stripMarkdown(string(data)), nil
	case ".txt":
		return normalizeWhitespace(string(data)), nil
	default:
		return "", fmt.Errorf("unsupported file type %q", filepath.Ext(filename))
	}
}

func extractPDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var sb strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	out := normalizeWhitespace(sb.String())
	if out == "" {
		return "", fmt.Errorf("pdf contains no extractable text")
	}
	return out, nil
}

func stripMarkdown(s string) string {
	s = markdownCodeRe.ReplaceAllString(s, "$1")
	s = markdownLinkRe.ReplaceAllString(s, "$1")
	s = markdownHeadingRe.ReplaceAllString(s, "")
	s = markdownEmphRe.ReplaceAllString(s, "")
	s = htmlTagRe.ReplaceAllString(s, "")
	return normalizeWhitespace(s)
}

func normalizeWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = blankRunRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
