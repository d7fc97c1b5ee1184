package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmailSubject(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain subject untouched", "Project update", "Project update"},
		{"single re prefix", "Re: Project update", "Project update"},
		{"stacked prefixes", "Re: Fwd: Re: Project update", "Project update"},
		{"case insensitive", "RE: FWD: hello", "hello"},
		{"numbered reply", "Re[2]: hello", "hello"},
		{"fw variant", "FW: hello", "hello"},
		{"surrounding whitespace", "  Re:   hello  ", "hello"},
		{"prefix only in middle stays", "About Re: something", "About Re: something"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeEmailSubject(tt.input))
		})
	}
}

func TestNormalizeMessageID(t *testing.T) {
	assert.Equal(t, "abc@example.com", NormalizeMessageID("<abc@example.com>"))
	assert.Equal(t, "abc@example.com", NormalizeMessageID("abc@example.com"))
	assert.Equal(t, "abc@example.com", NormalizeMessageID("  <abc@example.com>  "))
	assert.Equal(t, "", NormalizeMessageID(""))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", Truncate("hello", 10))
	assert.Equal(t, "hel", Truncate("hello", 3))
	// Multibyte runes are never split
	assert.Equal(t, "Grüß", Truncate("Grüße", 4))
	assert.Equal(t, "", Truncate("", 5))
}

func TestIsStringInSlice(t *testing.T) {
	assert.True(t, IsStringInSlice("INBOX", []string{"INBOX", "Sent"}))
	assert.False(t, IsStringInSlice("Trash", []string{"INBOX", "Sent"}))
	assert.False(t, IsStringInSlice("INBOX", nil))
}

func TestGenerateMessageID(t *testing.T) {
	id := GenerateMessageID("itlsolutions.net", "some subject")

	assert.True(t, strings.HasPrefix(id, "<"))
	assert.True(t, strings.HasSuffix(id, "@itlsolutions.net>"))

	other := GenerateMessageID("itlsolutions.net", "some subject")
	assert.NotEqual(t, id, other)
}

func TestGenerateNanoIDWithPrefix(t *testing.T) {
	id := GenerateNanoIDWithPrefix("email", 16)

	assert.True(t, strings.HasPrefix(id, "email_"))
	assert.Len(t, id, len("email_")+16)
}
