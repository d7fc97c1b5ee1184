package imap

import (
	"bytes"
	"fmt"
	"net/mail"
	"strings"

	"github.com/customeros/mailsherpa/mailvalidate"
	go_imap "github.com/emersion/go-imap"
	"github.com/jhillyerd/enmime"
	"github.com/lib/pq"

	"github.com/itlsolutions/webmail/interfaces"
	"github.com/itlsolutions/webmail/internal/models"
	"github.com/itlsolutions/webmail/internal/utils"
)

const defaultSubject = "(No Subject)"

// ParsedMessage is the outcome of decoding one raw IMAP message
type ParsedMessage struct {
	Email       *models.Email
	Attachments []*ParsedAttachment
}

type ParsedAttachment struct {
	Record  *models.EmailAttachment
	Content []byte
}

// parseMessage decodes a fetched message into a mirrored email row plus its
// attachment parts. A MIME parse failure is returned to the caller; the sync
// loop skips the message and moves on.
func parseMessage(folder string, fetched *interfaces.FetchedMessage) (*ParsedMessage, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(fetched.Raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message UID %d: %w", fetched.UID, err)
	}

	email := &models.Email{
		UID:    fetched.UID,
		Folder: folder,
	}

	// Messages without a Message-ID header get a synthetic one so the
	// uniqueness guarantee holds
	email.MessageID = utils.NormalizeMessageID(env.GetHeader("Message-Id"))
	if email.MessageID == "" {
		email.MessageID = fmt.Sprintf("%s-%d-%d", folder, fetched.UID, fetched.InternalDate.UnixMilli())
	}

	email.Subject = env.GetHeader("Subject")
	if strings.TrimSpace(email.Subject) == "" {
		email.Subject = defaultSubject
	}

	processSender(email, env)
	email.ToAddresses = convertAddressList(env, "To")
	email.CcAddresses = convertAddressList(env, "Cc")

	email.BodyText = env.Text
	email.BodyHTML = env.HTML
	if email.BodyText == "" && email.BodyHTML != "" {
		email.BodyText = utils.HTMLToText(email.BodyHTML)
	}
	email.Snippet = utils.MakeSnippet(email.BodyText)

	email.IsRead = utils.IsStringInSlice(go_imap.SeenFlag, fetched.Flags)
	email.IsStarred = utils.IsStringInSlice(go_imap.FlaggedFlag, fetched.Flags)

	processThreading(email, env)

	email.SentAt = utils.Now()
	if date, err := mail.ParseDate(env.GetHeader("Date")); err == nil {
		email.SentAt = date.UTC()
	} else if !fetched.InternalDate.IsZero() {
		email.SentAt = fetched.InternalDate.UTC()
	}

	attachments := collectAttachments(env)
	email.HasAttachment = len(attachments) > 0

	return &ParsedMessage{Email: email, Attachments: attachments}, nil
}

func processSender(email *models.Email, env *enmime.Envelope) {
	senders, err := env.AddressList("From")
	if err != nil || len(senders) == 0 {
		return
	}

	sender := senders[0]
	email.FromName = sender.Name
	syntaxValidation := mailvalidate.ValidateEmailSyntax(sender.Address)
	if syntaxValidation.IsValid {
		email.FromAddress = syntaxValidation.CleanEmail
	} else {
		email.FromAddress = sender.Address
	}
}

func convertAddressList(env *enmime.Envelope, header string) pq.StringArray {
	addresses, err := env.AddressList(header)
	if err != nil || len(addresses) == 0 {
		return pq.StringArray{}
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		validation := mailvalidate.ValidateEmailSyntax(addr.Address)
		if validation.IsValid {
			result = append(result, validation.CleanEmail)
		}
	}

	return pq.StringArray(result)
}

// processThreading extracts In-Reply-To and References and derives the thread
// key: the oldest known ancestor of the conversation.
func processThreading(email *models.Email, env *enmime.Envelope) {
	email.InReplyTo = utils.NormalizeMessageID(firstToken(env.GetHeader("In-Reply-To")))

	var references []string
	refsHeader := env.GetHeader("References")
	refsHeader = strings.ReplaceAll(refsHeader, "\r\n", " ")
	refsHeader = strings.ReplaceAll(refsHeader, "\n", " ")
	for _, ref := range strings.Fields(refsHeader) {
		ref = utils.NormalizeMessageID(ref)
		if ref != "" && !utils.IsStringInSlice(ref, references) {
			references = append(references, ref)
		}
	}
	email.References = pq.StringArray(references)

	switch {
	case len(references) > 0:
		email.ThreadKey = references[0]
	case email.InReplyTo != "":
		email.ThreadKey = email.InReplyTo
	default:
		email.ThreadKey = email.MessageID
	}
}

func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func collectAttachments(env *enmime.Envelope) []*ParsedAttachment {
	var attachments []*ParsedAttachment

	for _, part := range env.Attachments {
		attachments = append(attachments, &ParsedAttachment{
			Record: &models.EmailAttachment{
				Filename:    part.FileName,
				ContentType: part.ContentType,
				Size:        len(part.Content),
			},
			Content: part.Content,
		})
	}

	for _, part := range env.Inlines {
		attachments = append(attachments, &ParsedAttachment{
			Record: &models.EmailAttachment{
				Filename:    part.FileName,
				ContentType: part.ContentType,
				Size:        len(part.Content),
				ContentID:   part.ContentID,
				IsInline:    true,
			},
			Content: part.Content,
		})
	}

	return attachments
}

