package email

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/opentracing/opentracing-go"

	"github.com/itlsolutions/webmail/dto"
	"github.com/itlsolutions/webmail/interfaces"
	"github.com/itlsolutions/webmail/internal/tracing"
	"github.com/itlsolutions/webmail/internal/utils"
)

// Notification mails go to the configured admin inbox. When SMTP credentials
// are absent the submission is still accepted; only the mail is skipped.

func (s *EmailService) SendContactNotification(ctx context.Context, submission *dto.ContactSubmission) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EmailService.SendContactNotification")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if !s.sender.IsConfigured() {
		s.log.Warn("SMTP not configured, skipping contact notification")
		return nil
	}

	subject := fmt.Sprintf("New Contact Form Submission from %s", submission.Name)
	if submission.Subject != "" {
		subject = fmt.Sprintf("Contact Form: %s", submission.Subject)
	}

	var rows strings.Builder
	writeRow(&rows, "Name", submission.Name)
	writeRow(&rows, "Email", submission.Email)
	writeRow(&rows, "Phone", submission.Phone)
	writeRow(&rows, "Company", submission.Company)

	bodyHTML := fmt.Sprintf(`<h2>New Contact Form Submission</h2>
<table cellpadding="6">%s</table>
<h3>Message</h3>
<p>%s</p>`, rows.String(), html.EscapeString(submission.Message))

	if err := s.sendNotification(ctx, subject, bodyHTML); err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	// Confirmation to the submitter is best effort; a failure here must not
	// fail the accepted submission
	if err := s.sendContactConfirmation(ctx, submission); err != nil {
		tracing.TraceErr(span, err)
		s.log.Warnf("failed to send contact confirmation to %s: %v", submission.Email, err)
	}
	return nil
}

func (s *EmailService) sendContactConfirmation(ctx context.Context, submission *dto.ContactSubmission) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EmailService.sendContactConfirmation")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	from := s.smtpConfig.Sender()
	subject := "Thank you for contacting ITL Solutions"

	bodyHTML := fmt.Sprintf(`<h2>Thank You for Reaching Out!</h2>
<p>Dear %s,</p>
<p>Thank you for contacting ITL Solutions. We have received your message and will get back to you within 24-48 business hours.</p>
<p>In the meantime, feel free to explore our services and recent projects on our website.</p>
<p>Best regards,<br/>The ITL Solutions Team</p>
<hr/>
<p>This is an automated confirmation email. Please do not reply to this message.</p>`,
		html.EscapeString(submission.Name))

	msg := &interfaces.OutboundMessage{
		From:      from,
		FromName:  s.smtpConfig.FromName,
		To:        []string{submission.Email},
		Subject:   subject,
		BodyText:  utils.HTMLToText(bodyHTML),
		BodyHTML:  bodyHTML,
		MessageID: utils.GenerateMessageID(senderDomain(from), subject),
	}

	return s.sender.Send(ctx, msg)
}

func (s *EmailService) SendChatNotification(ctx context.Context, inquiry *dto.ChatInquiry) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EmailService.SendChatNotification")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if !s.sender.IsConfigured() {
		s.log.Warn("SMTP not configured, skipping chat notification")
		return nil
	}

	subject := fmt.Sprintf("New Chat Inquiry from %s", inquiry.Name)

	var rows strings.Builder
	writeRow(&rows, "Name", inquiry.Name)
	writeRow(&rows, "Email", inquiry.Email)

	bodyHTML := fmt.Sprintf(`<h2>New Chat Inquiry</h2>
<table cellpadding="6">%s</table>
<h3>Transcript</h3>
<pre>%s</pre>`, rows.String(), html.EscapeString(inquiry.Transcript))

	return s.sendNotification(ctx, subject, bodyHTML)
}

func (s *EmailService) sendNotification(ctx context.Context, subject, bodyHTML string) error {
	from := s.smtpConfig.Sender()

	msg := &interfaces.OutboundMessage{
		From:      from,
		FromName:  s.smtpConfig.FromName,
		To:        []string{s.smtpConfig.NotifyAddress},
		Subject:   subject,
		BodyText:  utils.HTMLToText(bodyHTML),
		BodyHTML:  bodyHTML,
		MessageID: utils.GenerateMessageID(senderDomain(from), subject),
	}

	return s.sender.Send(ctx, msg)
}

func writeRow(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "<tr><td><strong>%s</strong></td><td>%s</td></tr>", label, html.EscapeString(value))
}
