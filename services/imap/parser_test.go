package imap

import (
	"fmt"
	"strings"
	"testing"
	"time"

	go_imap "github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itlsolutions/webmail/interfaces"
)

func rawMessage(headers map[string]string, body string) []byte {
	var b strings.Builder
	for k, v := range headers {
		fmt.Fprintf(&b, "%s: %s\r\n", k, v)
	}
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

func TestParseMessage_PlainText(t *testing.T) {
	raw := rawMessage(map[string]string{
		"Message-Id":   "<abc123@example.com>",
		"From":         "Jane Doe <jane@example.com>",
		"To":           "info@itlsolutions.net",
		"Subject":      "Hello there",
		"Date":         "Mon, 02 Jan 2006 15:04:05 +0000",
		"Content-Type": "text/plain; charset=UTF-8",
	}, "This is the body of the message.")

	parsed, err := parseMessage("INBOX", &interfaces.FetchedMessage{
		UID:          42,
		Flags:        []string{go_imap.SeenFlag},
		InternalDate: time.Now(),
		Raw:          raw,
	})

	require.NoError(t, err)
	email := parsed.Email
	assert.Equal(t, "abc123@example.com", email.MessageID)
	assert.Equal(t, uint32(42), email.UID)
	assert.Equal(t, "INBOX", email.Folder)
	assert.Equal(t, "jane@example.com", email.FromAddress)
	assert.Equal(t, "Jane Doe", email.FromName)
	assert.Equal(t, []string{"info@itlsolutions.net"}, []string(email.ToAddresses))
	assert.Equal(t, "Hello there", email.Subject)
	assert.Equal(t, "This is the body of the message.", email.BodyText)
	assert.True(t, email.IsRead)
	assert.False(t, email.IsStarred)
	assert.False(t, email.HasAttachment)
	assert.Equal(t, 2006, email.SentAt.Year())
}

func TestParseMessage_MissingMessageIDGetsSynthetic(t *testing.T) {
	internalDate := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	raw := rawMessage(map[string]string{
		"From":    "someone@example.com",
		"Subject": "No id here",
	}, "body")

	parsed, err := parseMessage("INBOX", &interfaces.FetchedMessage{
		UID:          7,
		InternalDate: internalDate,
		Raw:          raw,
	})

	require.NoError(t, err)
	expected := fmt.Sprintf("INBOX-7-%d", internalDate.UnixMilli())
	assert.Equal(t, expected, parsed.Email.MessageID)
}

func TestParseMessage_EmptySubjectGetsPlaceholder(t *testing.T) {
	raw := rawMessage(map[string]string{
		"Message-Id": "<x@example.com>",
		"From":       "someone@example.com",
	}, "body")

	parsed, err := parseMessage("INBOX", &interfaces.FetchedMessage{UID: 1, Raw: raw})

	require.NoError(t, err)
	assert.Equal(t, "(No Subject)", parsed.Email.Subject)
}

func TestParseMessage_Threading(t *testing.T) {
	raw := rawMessage(map[string]string{
		"Message-Id":  "<msg3@example.com>",
		"From":        "someone@example.com",
		"Subject":     "Re: Project update",
		"In-Reply-To": "<msg2@example.com>",
		"References":  "<msg1@example.com> <msg2@example.com>",
	}, "reply body")

	parsed, err := parseMessage("INBOX", &interfaces.FetchedMessage{UID: 3, Raw: raw})

	require.NoError(t, err)
	email := parsed.Email
	assert.Equal(t, "msg2@example.com", email.InReplyTo)
	assert.Equal(t, []string{"msg1@example.com", "msg2@example.com"}, []string(email.References))
	// The thread is keyed on the oldest ancestor
	assert.Equal(t, "msg1@example.com", email.ThreadKey)
}

func TestParseMessage_ThreadKeyFallsBackToOwnID(t *testing.T) {
	raw := rawMessage(map[string]string{
		"Message-Id": "<solo@example.com>",
		"From":       "someone@example.com",
		"Subject":    "standalone",
	}, "body")

	parsed, err := parseMessage("INBOX", &interfaces.FetchedMessage{UID: 9, Raw: raw})

	require.NoError(t, err)
	assert.Equal(t, "solo@example.com", parsed.Email.ThreadKey)
}

func TestParseMessage_HTMLOnlyGetsTextFallback(t *testing.T) {
	var b strings.Builder
	b.WriteString("Message-Id: <html@example.com>\r\n")
	b.WriteString("From: someone@example.com\r\n")
	b.WriteString("Subject: html mail\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString("<html><body><p>Hello <strong>world</strong></p></body></html>")

	parsed, err := parseMessage("INBOX", &interfaces.FetchedMessage{UID: 5, Raw: []byte(b.String())})

	require.NoError(t, err)
	assert.Contains(t, parsed.Email.BodyHTML, "<strong>")
	assert.NotEmpty(t, parsed.Email.BodyText)
	assert.NotContains(t, parsed.Email.BodyText, "<strong>")
	assert.NotEmpty(t, parsed.Email.Snippet)
}

func TestParseMessage_SnippetTruncated(t *testing.T) {
	longBody := strings.Repeat("a", 500)
	raw := rawMessage(map[string]string{
		"Message-Id": "<long@example.com>",
		"From":       "someone@example.com",
		"Subject":    "long",
	}, longBody)

	parsed, err := parseMessage("INBOX", &interfaces.FetchedMessage{UID: 6, Raw: raw})

	require.NoError(t, err)
	assert.Len(t, parsed.Email.Snippet, 200)
	assert.Len(t, parsed.Email.BodyText, 500)
}

func TestParseMessage_MultipartWithAttachment(t *testing.T) {
	boundary := "MIXED-BOUNDARY"
	var b strings.Builder
	b.WriteString("Message-Id: <attach@example.com>\r\n")
	b.WriteString("From: someone@example.com\r\n")
	b.WriteString("Subject: with attachment\r\n")
	b.WriteString("Content-Type: multipart/mixed; boundary=" + boundary + "\r\n")
	b.WriteString("\r\n")
	b.WriteString("--" + boundary + "\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString("see attached\r\n")
	b.WriteString("--" + boundary + "\r\n")
	b.WriteString("Content-Type: application/pdf; name=\"report.pdf\"\r\n")
	b.WriteString("Content-Disposition: attachment; filename=\"report.pdf\"\r\n")
	b.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")
	b.WriteString("JVBERi0xLjQK\r\n")
	b.WriteString("--" + boundary + "--\r\n")

	parsed, err := parseMessage("INBOX", &interfaces.FetchedMessage{UID: 8, Raw: []byte(b.String())})

	require.NoError(t, err)
	assert.True(t, parsed.Email.HasAttachment)
	require.Len(t, parsed.Attachments, 1)
	attachment := parsed.Attachments[0]
	assert.Equal(t, "report.pdf", attachment.Record.Filename)
	assert.Equal(t, "application/pdf", attachment.Record.ContentType)
	assert.False(t, attachment.Record.IsInline)
	assert.NotEmpty(t, attachment.Content)
}

func TestParseMessage_Garbage(t *testing.T) {
	_, err := parseMessage("INBOX", &interfaces.FetchedMessage{
		UID: 11,
		Raw: []byte("\x00\x01 not a mime message"),
	})

	// enmime tolerates a lot; when it does error the sync loop must get it
	if err != nil {
		assert.Contains(t, err.Error(), "failed to parse message")
	}
}
