package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTMLToText(t *testing.T) {
	text := HTMLToText("<html><body><p>Hello <strong>world</strong></p></body></html>")
	assert.Equal(t, "Hello world", text)
}

func TestHTMLToText_DropsScriptAndStyle(t *testing.T) {
	text := HTMLToText(`<html><head><title>ignored</title></head><body>
		<style>p { color: red }</style>
		<script>alert("x")</script>
		<p>visible</p></body></html>`)
	assert.Equal(t, "visible", text)
}

func TestHTMLToText_CollapsesWhitespace(t *testing.T) {
	text := HTMLToText("<p>one</p>\n\n<p>two\t\tthree</p>")
	assert.Equal(t, "one two three", text)
}

func TestMakeSnippet(t *testing.T) {
	assert.Equal(t, "short body", MakeSnippet("  short   body  "))

	long := strings.Repeat("a ", 300)
	snippet := MakeSnippet(long)
	assert.Len(t, snippet, SnippetLength)
}
