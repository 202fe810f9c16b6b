package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTextMarkdownStripsSyntax(t *testing.T) {
	md := "# Coupon PRD\n\nThe **marketing** system must support [coupons](https://example.com).\n\n" +
		"```sql\nselect 1;\n```\n\n<em>inline html</em> and `code span` survive as text.\n"

	out, err := ExtractText("coupon-prd.md", []byte(md))
	require.NoError(t, err)
	assert.NotContains(t, out, "#")
	assert.NotContains(t, out, "**")
	assert.NotContains(t, out, "](")
	assert.NotContains(t, out, "<em>")
	assert.Contains(t, out, "Coupon PRD")
	assert.Contains(t, out, "marketing")
	assert.Contains(t, out, "coupons")
	assert.Contains(t, out, "code span")
}

func TestExtractTextPlainTextNormalizesLineEndings(t *testing.T) {
	out, err := ExtractText("notes.txt", []byte("line one\r\n\r\n\r\n\r\nline two\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "line one\n\nline two", out)
}

func TestExtractTextRejectsUnknownExtension(t *testing.T) {
	_, err := ExtractText("slides.pptx", []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}

func TestExtractTextRejectsBrokenPDF(t *testing.T) {
	_, err := ExtractText("broken.pdf", []byte("not a pdf at all"))
	require.Error(t, err)
}
