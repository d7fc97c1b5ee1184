package email

import (
	"fmt"
	"strings"

	"context"

	"github.com/customeros/mailsherpa/mailvalidate"
	"github.com/lib/pq"
	"github.com/opentracing/opentracing-go"

	"github.com/itlsolutions/webmail/dto"
	"github.com/itlsolutions/webmail/interfaces"
	"github.com/itlsolutions/webmail/internal/errors"
	"github.com/itlsolutions/webmail/internal/models"
	"github.com/itlsolutions/webmail/internal/tracing"
	"github.com/itlsolutions/webmail/internal/utils"
)

// SendEmail delivers a new message over SMTP and mirrors it into the Sent
// folder with UID 0. The provider assigns a real UID when the folder is next
// synced.
func (s *EmailService) SendEmail(ctx context.Context, req *dto.SendEmailRequest) (*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EmailService.SendEmail")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if err := validateOutbound(req.Subject, req.BodyText, req.BodyHTML, req.To); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	msg := s.newOutboundMessage(req.To, req.Cc, req.Bcc, req.Subject, req.BodyText, req.BodyHTML)

	if err := s.sender.Send(ctx, msg); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	sent, err := s.storeSentCopy(ctx, msg)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return sent, nil
}

// ReplyEmail sends a reply to an existing message. The References chain is
// the parent's chain plus the parent itself, so threading survives clients
// that only honor one of the two headers.
func (s *EmailService) ReplyEmail(ctx context.Context, parentID string, req *dto.ReplyEmailRequest) (*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EmailService.ReplyEmail")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("email.id", parentID)

	parent, err := s.repositories.EmailRepository.GetByID(ctx, parentID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if parent == nil {
		return nil, errors.ErrEmailNotFound
	}

	to := req.To
	if len(to) == 0 && parent.FromAddress != "" {
		to = []string{parent.FromAddress}
	}

	subject := "Re: " + utils.NormalizeEmailSubject(parent.Subject)

	if err := validateOutbound(subject, req.BodyText, req.BodyHTML, to); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	msg := s.newOutboundMessage(to, req.Cc, req.Bcc, subject, req.BodyText, req.BodyHTML)
	msg.InReplyTo = "<" + parent.MessageID + ">"
	msg.References = buildReferences(parent)

	if err := s.sender.Send(ctx, msg); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	sent, err := s.storeSentCopy(ctx, msg)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return sent, nil
}

// ForwardEmail sends a copy of an existing message, original attachments
// included. A forward starts a new conversation, so no threading headers are
// set and the sent copy gets its own thread key.
func (s *EmailService) ForwardEmail(ctx context.Context, parentID string, req *dto.ForwardEmailRequest) (*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EmailService.ForwardEmail")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("email.id", parentID)

	parent, err := s.repositories.EmailRepository.GetByID(ctx, parentID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if parent == nil {
		return nil, errors.ErrEmailNotFound
	}

	subject := "Fwd: " + utils.NormalizeEmailSubject(parent.Subject)

	if err := validateOutbound(subject, req.BodyText, req.BodyHTML, req.To); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	msg := s.newOutboundMessage(req.To, req.Cc, req.Bcc, subject, req.BodyText, req.BodyHTML)

	attachments, err := s.repositories.EmailAttachmentRepository.ListByEmail(ctx, parentID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	for _, attachment := range attachments {
		content, err := s.repositories.EmailAttachmentRepository.GetContent(ctx, attachment)
		if err != nil {
			tracing.TraceErr(span, err)
			s.log.Warnf("skipping attachment %s on forward: %v", attachment.Filename, err)
			continue
		}
		msg.Attachments = append(msg.Attachments, &interfaces.OutboundAttachment{
			Filename:    attachment.Filename,
			ContentType: attachment.ContentType,
			Content:     content,
		})
	}

	if err := s.sender.Send(ctx, msg); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	sent, err := s.storeSentCopy(ctx, msg)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return sent, nil
}

func (s *EmailService) newOutboundMessage(to, cc, bcc []string, subject, bodyText, bodyHTML string) *interfaces.OutboundMessage {
	from := s.smtpConfig.Sender()

	if bodyText == "" && bodyHTML != "" {
		bodyText = utils.HTMLToText(bodyHTML)
	}

	return &interfaces.OutboundMessage{
		From:      from,
		FromName:  s.smtpConfig.FromName,
		To:        to,
		Cc:        cc,
		Bcc:       bcc,
		Subject:   subject,
		BodyText:  bodyText,
		BodyHTML:  bodyHTML,
		MessageID: utils.GenerateMessageID(senderDomain(from), subject),
	}
}

// storeSentCopy mirrors the outbound message locally so it shows up in the
// Sent folder without waiting for a sync
func (s *EmailService) storeSentCopy(ctx context.Context, msg *interfaces.OutboundMessage) (*models.Email, error) {
	references := make([]string, 0, len(msg.References))
	for _, ref := range msg.References {
		references = append(references, utils.NormalizeMessageID(ref))
	}

	email := &models.Email{
		MessageID:   utils.NormalizeMessageID(msg.MessageID),
		UID:         0,
		Folder:      s.sentFolder,
		FromAddress: msg.From,
		FromName:    msg.FromName,
		ToAddresses: pq.StringArray(msg.To),
		CcAddresses: pq.StringArray(msg.Cc),
		Subject:     msg.Subject,
		BodyText:    msg.BodyText,
		BodyHTML:    msg.BodyHTML,
		Snippet:     utils.MakeSnippet(msg.BodyText),
		IsRead:      true,
		InReplyTo:   utils.NormalizeMessageID(msg.InReplyTo),
		References:  pq.StringArray(references),
		SentAt:      utils.Now(),
	}

	switch {
	case len(references) > 0:
		email.ThreadKey = references[0]
	case email.InReplyTo != "":
		email.ThreadKey = email.InReplyTo
	default:
		email.ThreadKey = email.MessageID
	}

	if err := s.repositories.EmailRepository.Create(ctx, email); err != nil {
		return nil, err
	}
	return email, nil
}

// buildReferences returns the parent's chain plus the parent, angle bracketed
func buildReferences(parent *models.Email) []string {
	var references []string
	for _, ref := range parent.References {
		if ref != "" {
			references = append(references, "<"+ref+">")
		}
	}
	if parent.MessageID != "" {
		references = append(references, "<"+parent.MessageID+">")
	}
	return references
}

func validateOutbound(subject, bodyText, bodyHTML string, to []string) error {
	if strings.TrimSpace(subject) == "" {
		return errors.ErrEmptySubject
	}
	if strings.TrimSpace(bodyText) == "" && strings.TrimSpace(bodyHTML) == "" {
		return errors.ErrEmptyBody
	}
	if len(to) == 0 {
		return errors.ErrRecipientsEmpty
	}
	for _, recipient := range to {
		validation := mailvalidate.ValidateEmailSyntax(recipient)
		if !validation.IsValid {
			return fmt.Errorf("invalid recipient address: %s", recipient)
		}
	}
	return nil
}

func senderDomain(address string) string {
	parts := strings.Split(address, "@")
	if len(parts) == 2 {
		return parts[1]
	}
	return "localhost"
}
