package smtp

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"mime/multipart"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/itlsolutions/webmail/config"
	"github.com/itlsolutions/webmail/interfaces"
	"github.com/itlsolutions/webmail/internal/tracing"
)

type SMTPClient struct {
	config *config.SMTPConfig
}

func NewSMTPClient(cfg *config.SMTPConfig) interfaces.SMTPSender {
	return &SMTPClient{config: cfg}
}

func (s *SMTPClient) IsConfigured() bool {
	return s.config.IsConfigured()
}

func (s *SMTPClient) Send(ctx context.Context, msg *interfaces.OutboundMessage) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SMTPClient.Send")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if err := s.config.Validate(); err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	recipients, buffer, err := s.prepareMessage(ctx, msg)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	err = s.sendToServer(ctx, msg.From, recipients, buffer)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	return nil
}

func (s *SMTPClient) prepareMessage(ctx context.Context, msg *interfaces.OutboundMessage) ([]string, *bytes.Buffer, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "SMTPClient.prepareMessage")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	buffer := bytes.NewBuffer(nil)
	headers := s.prepareHeaders(msg)
	tracing.LogObjectAsJson(span, "headers", headers)

	var err error
	if msg.BodyHTML != "" || len(msg.Attachments) > 0 {
		err = s.buildMultipartMessage(msg, headers, buffer)
	} else {
		err = s.buildPlainTextMessage(msg, headers, buffer)
	}
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, nil, err
	}

	// Bcc recipients get the message on the envelope only
	recipients := append([]string{}, msg.To...)
	recipients = append(recipients, msg.Cc...)
	recipients = append(recipients, msg.Bcc...)
	return recipients, buffer, nil
}

func (s *SMTPClient) prepareHeaders(msg *interfaces.OutboundMessage) map[string]string {
	from := mail.Address{Name: msg.FromName, Address: msg.From}

	headers := map[string]string{
		"From":         from.String(),
		"To":           strings.Join(msg.To, ", "),
		"Subject":      mime.QEncoding.Encode("utf-8", msg.Subject),
		"Message-ID":   msg.MessageID,
		"Date":         time.Now().UTC().Format(time.RFC1123Z),
		"MIME-Version": "1.0",
	}

	if len(msg.Cc) > 0 {
		headers["Cc"] = strings.Join(msg.Cc, ", ")
	}
	if msg.InReplyTo != "" {
		headers["In-Reply-To"] = msg.InReplyTo
	}
	if len(msg.References) > 0 {
		headers["References"] = strings.Join(msg.References, " ")
	}

	return headers
}

func (s *SMTPClient) buildMultipartMessage(msg *interfaces.OutboundMessage, headers map[string]string, buffer *bytes.Buffer) error {
	writer := multipart.NewWriter(buffer)
	boundary := writer.Boundary()

	contentType := "multipart/alternative"
	if len(msg.Attachments) > 0 {
		contentType = "multipart/mixed"
	}
	headers["Content-Type"] = contentType + "; boundary=" + boundary

	writeHeaders(headers, buffer)

	if msg.BodyText != "" {
		if err := addTextPart(writer, msg.BodyText); err != nil {
			return err
		}
	}

	if msg.BodyHTML != "" {
		if err := addHtmlPart(writer, msg.BodyHTML); err != nil {
			return err
		}
	}

	for _, attachment := range msg.Attachments {
		if err := addAttachment(writer, attachment); err != nil {
			return err
		}
	}

	return writer.Close()
}

func (s *SMTPClient) buildPlainTextMessage(msg *interfaces.OutboundMessage, headers map[string]string, buffer *bytes.Buffer) error {
	headers["Content-Type"] = "text/plain; charset=UTF-8"

	writeHeaders(headers, buffer)

	_, err := buffer.WriteString(msg.BodyText)
	return err
}

func writeHeaders(headers map[string]string, buffer *bytes.Buffer) {
	for k, v := range headers {
		buffer.WriteString(fmt.Sprintf("%s: %s\r\n", k, v))
	}
	buffer.WriteString("\r\n")
}

func addTextPart(writer *multipart.Writer, content string) error {
	textPart, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/plain; charset=UTF-8"},
		"Content-Transfer-Encoding": {"quoted-printable"},
	})
	if err != nil {
		return fmt.Errorf("failed to create text part: %w", err)
	}

	_, err = textPart.Write([]byte(content))
	if err != nil {
		return fmt.Errorf("failed to write text content: %w", err)
	}
	return nil
}

func addHtmlPart(writer *multipart.Writer, content string) error {
	htmlPart, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/html; charset=UTF-8"},
		"Content-Transfer-Encoding": {"quoted-printable"},
	})
	if err != nil {
		return fmt.Errorf("failed to create HTML part: %w", err)
	}

	_, err = htmlPart.Write([]byte(content))
	if err != nil {
		return fmt.Errorf("failed to write HTML content: %w", err)
	}
	return nil
}

func addAttachment(writer *multipart.Writer, attachment *interfaces.OutboundAttachment) error {
	if attachment == nil {
		return errors.New("attachment is nil")
	}

	attachmentPart, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {fmt.Sprintf("%s; name=%q", attachment.ContentType, attachment.Filename)},
		"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", attachment.Filename)},
		"Content-Transfer-Encoding": {"base64"},
	})
	if err != nil {
		return fmt.Errorf("failed to create attachment part: %w", err)
	}

	_, err = attachmentPart.Write(attachment.Content)
	if err != nil {
		return fmt.Errorf("failed to write attachment content: %w", err)
	}
	return nil
}

func (s *SMTPClient) sendToServer(ctx context.Context, from string, recipients []string, buffer *bytes.Buffer) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SMTPClient.sendToServer")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)

	if s.config.Secure {
		return s.sendWithExplicitTLS(ctx, addr, auth, from, recipients, buffer)
	}
	return s.sendWithSTARTTLS(ctx, addr, auth, from, recipients, buffer)
}

func (s *SMTPClient) sendWithSTARTTLS(ctx context.Context, addr string, auth smtp.Auth, from string, recipients []string, buffer *bytes.Buffer) error {
	span, _ := opentracing.StartSpanFromContext(ctx, "SMTPClient.sendWithSTARTTLS")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogKV("smtp_server", s.config.Host)
	span.LogKV("from_address", from)

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		err = fmt.Errorf("failed to connect to SMTP server: %w", err)
		tracing.TraceErr(span, err)
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		err = fmt.Errorf("failed to create SMTP client: %w", err)
		tracing.TraceErr(span, err)
		return err
	}
	defer client.Close()

	tlsConfig := &tls.Config{
		ServerName: s.config.Host,
	}
	if err = client.StartTLS(tlsConfig); err != nil {
		err = fmt.Errorf("failed to start TLS: %w", err)
		tracing.TraceErr(span, err)
		return err
	}

	if err = client.Auth(auth); err != nil {
		err = fmt.Errorf("SMTP authentication failed: %w", err)
		tracing.TraceErr(span, err)
		return err
	}

	return transmit(span, client, from, recipients, buffer)
}

func (s *SMTPClient) sendWithExplicitTLS(ctx context.Context, addr string, auth smtp.Auth, from string, recipients []string, buffer *bytes.Buffer) error {
	span, _ := opentracing.StartSpanFromContext(ctx, "SMTPClient.sendWithExplicitTLS")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogKV("address", addr)

	tlsConfig := &tls.Config{
		ServerName: s.config.Host,
	}

	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		err = fmt.Errorf("failed to connect to SMTP server: %w", err)
		tracing.TraceErr(span, err)
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		err = fmt.Errorf("failed to create SMTP client: %w", err)
		tracing.TraceErr(span, err)
		return err
	}
	defer client.Close()

	if err = client.Auth(auth); err != nil {
		err = fmt.Errorf("SMTP authentication failed: %w", err)
		tracing.TraceErr(span, err)
		return err
	}

	return transmit(span, client, from, recipients, buffer)
}

func transmit(span opentracing.Span, client *smtp.Client, from string, recipients []string, buffer *bytes.Buffer) error {
	if err := client.Mail(from); err != nil {
		err = fmt.Errorf("SMTP MAIL command failed: %w", err)
		tracing.TraceErr(span, err)
		return err
	}

	for _, recipient := range recipients {
		if err := client.Rcpt(recipient); err != nil {
			err = fmt.Errorf("SMTP RCPT command failed for %s: %w", recipient, err)
			tracing.TraceErr(span, err)
			return err
		}
	}

	dataWriter, err := client.Data()
	if err != nil {
		err = fmt.Errorf("SMTP DATA command failed: %w", err)
		tracing.TraceErr(span, err)
		return err
	}

	if _, err = dataWriter.Write(buffer.Bytes()); err != nil {
		err = fmt.Errorf("failed to write email data: %w", err)
		tracing.TraceErr(span, err)
		return err
	}

	if err = dataWriter.Close(); err != nil {
		err = fmt.Errorf("failed to close data writer: %w", err)
		tracing.TraceErr(span, err)
		return err
	}

	return client.Quit()
}
