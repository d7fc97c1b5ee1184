package errors

import "github.com/pkg/errors"

var (
	// configuration errors
	ErrIMAPNotConfigured = errors.New("IMAP configuration missing: set IMAP_HOST, IMAP_USER, IMAP_PASS")
	ErrSMTPNotConfigured = errors.New("SMTP configuration missing: set SMTP_HOST, SMTP_USER, SMTP_PASS")

	// mailbox errors
	ErrEmailNotFound    = errors.New("email not found")
	ErrEmptySubject     = errors.New("email subject is empty")
	ErrEmptyBody        = errors.New("email must have either text or HTML content")
	ErrRecipientsEmpty  = errors.New("at least one recipient is required")
	ErrSyncInProgress   = errors.New("sync already in progress for folder")
	ErrSessionNotOpened = errors.New("IMAP session is not opened")
)
