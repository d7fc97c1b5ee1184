package email

import (
	"context"

	"github.com/opentracing/opentracing-go"

	"github.com/itlsolutions/webmail/config"
	"github.com/itlsolutions/webmail/interfaces"
	"github.com/itlsolutions/webmail/internal/errors"
	"github.com/itlsolutions/webmail/internal/logger"
	"github.com/itlsolutions/webmail/internal/models"
	"github.com/itlsolutions/webmail/internal/repository"
	"github.com/itlsolutions/webmail/internal/tracing"
	"github.com/itlsolutions/webmail/services/imap"
)

// EmailService answers mailbox queries from the local mirror and composes
// outbound mail. Reads never touch the IMAP server; the one exception is the
// read-flag push when opening an unread message.
type EmailService struct {
	log          logger.Logger
	smtpConfig   *config.SMTPConfig
	repositories *repository.Repositories
	sender       interfaces.SMTPSender
	imapService  *imap.IMAPService
	sentFolder   string
}

func NewEmailService(
	log logger.Logger,
	smtpConfig *config.SMTPConfig,
	imapConfig *config.IMAPConfig,
	repositories *repository.Repositories,
	sender interfaces.SMTPSender,
	imapService *imap.IMAPService,
) *EmailService {
	return &EmailService{
		log:          log,
		smtpConfig:   smtpConfig,
		repositories: repositories,
		sender:       sender,
		imapService:  imapService,
		sentFolder:   imapConfig.SentFolder,
	}
}

func (s *EmailService) ListEmails(ctx context.Context, filter interfaces.EmailFilter) ([]*models.Email, int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EmailService.ListEmails")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("folder.name", filter.Folder)

	emails, total, err := s.repositories.EmailRepository.List(ctx, filter)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, 0, err
	}
	return emails, total, nil
}

// GetEmail returns one message with its attachment metadata. Opening an
// unread message marks it read locally and pushes \Seen to the server.
func (s *EmailService) GetEmail(ctx context.Context, id string) (*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EmailService.GetEmail")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("email.id", id)

	email, err := s.repositories.EmailRepository.GetByID(ctx, id)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if email == nil {
		return nil, errors.ErrEmailNotFound
	}

	if !email.IsRead {
		if err := s.imapService.MarkRead(ctx, id, true); err != nil {
			tracing.TraceErr(span, err)
			s.log.Warnf("failed to mark email %s as read: %v", id, err)
		} else {
			email.IsRead = true
		}
	}

	attachments, err := s.repositories.EmailAttachmentRepository.ListByEmail(ctx, id)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	for _, attachment := range attachments {
		email.Attachments = append(email.Attachments, *attachment)
	}

	return email, nil
}

// GetThread returns the conversation a message belongs to, oldest first
func (s *EmailService) GetThread(ctx context.Context, id string) ([]*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EmailService.GetThread")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("email.id", id)

	email, err := s.repositories.EmailRepository.GetByID(ctx, id)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if email == nil {
		return nil, errors.ErrEmailNotFound
	}

	emails, err := s.repositories.EmailRepository.ListByThreadKey(ctx, email.ThreadKey)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return emails, nil
}

func (s *EmailService) UnreadCount(ctx context.Context, folder string) (int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EmailService.UnreadCount")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	count, err := s.repositories.EmailRepository.CountUnread(ctx, folder)
	if err != nil {
		tracing.TraceErr(span, err)
		return 0, err
	}
	return count, nil
}

// GetAttachment returns the metadata row and the stored content
func (s *EmailService) GetAttachment(ctx context.Context, id string) (*models.EmailAttachment, []byte, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EmailService.GetAttachment")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("attachment.id", id)

	attachment, err := s.repositories.EmailAttachmentRepository.GetByID(ctx, id)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, nil, err
	}
	if attachment == nil {
		return nil, nil, errors.ErrEmailNotFound
	}

	content, err := s.repositories.EmailAttachmentRepository.GetContent(ctx, attachment)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, nil, err
	}
	return attachment, content, nil
}
