package imap

import (
	"context"
	"log"

	go_imap "github.com/emersion/go-imap"
	"github.com/opentracing/opentracing-go"

	"github.com/itlsolutions/webmail/internal/errors"
	"github.com/itlsolutions/webmail/internal/models"
	"github.com/itlsolutions/webmail/internal/tracing"
)

// Flag updates treat the local mirror as authoritative and the remote mailbox
// as best effort. The database is updated first; a failed IMAP push is logged
// and corrected on a later sync, never surfaced to the caller.

func (s *IMAPService) MarkRead(ctx context.Context, emailID string, isRead bool) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPService.MarkRead")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("email.id", emailID)

	email, err := s.repositories.EmailRepository.GetByID(ctx, emailID)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	if email == nil {
		return errors.ErrEmailNotFound
	}

	if err := s.repositories.EmailRepository.SetReadStatus(ctx, emailID, isRead); err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	s.propagateFlag(ctx, email, go_imap.SeenFlag, isRead)
	return nil
}

func (s *IMAPService) MarkStarred(ctx context.Context, emailID string, isStarred bool) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPService.MarkStarred")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("email.id", emailID)

	email, err := s.repositories.EmailRepository.GetByID(ctx, emailID)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	if email == nil {
		return errors.ErrEmailNotFound
	}

	if err := s.repositories.EmailRepository.SetStarredStatus(ctx, emailID, isStarred); err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	s.propagateFlag(ctx, email, go_imap.FlaggedFlag, isStarred)
	return nil
}

// DeleteEmail tombstones the message locally and moves it into the trash
// folder on the server, best effort. The local row stays in place; the
// tombstone keeps it out of lists and unread counts.
func (s *IMAPService) DeleteEmail(ctx context.Context, emailID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPService.DeleteEmail")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("email.id", emailID)

	email, err := s.repositories.EmailRepository.GetByID(ctx, emailID)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	if email == nil {
		return errors.ErrEmailNotFound
	}

	if email.UID > 0 && email.Folder != s.config.TrashFolder {
		err := s.withSession(ctx, email.Folder, func(session sessionOps) error {
			return session.Move(email.UID, s.config.TrashFolder)
		})
		if err != nil {
			log.Printf("[imap][%s] Failed to move UID %d to %s: %v",
				email.Folder, email.UID, s.config.TrashFolder, err)
			tracing.TraceErr(span, err)
		}
	}

	if err := s.repositories.EmailRepository.SetDeleted(ctx, emailID, true); err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

type sessionOps interface {
	AddFlags(uid uint32, flags ...string) error
	RemoveFlags(uid uint32, flags ...string) error
	Move(uid uint32, folder string) error
}

// propagateFlag pushes a single flag change to the server. Locally composed
// rows carry UID 0 and have nothing to propagate to.
func (s *IMAPService) propagateFlag(ctx context.Context, email *models.Email, flag string, set bool) {
	if email.UID == 0 {
		return
	}

	err := s.withSession(ctx, email.Folder, func(session sessionOps) error {
		if set {
			return session.AddFlags(email.UID, flag)
		}
		return session.RemoveFlags(email.UID, flag)
	})
	if err != nil {
		log.Printf("[imap][%s] Failed to propagate flag %s for UID %d: %v", email.Folder, flag, email.UID, err)
	}
}

func (s *IMAPService) withSession(ctx context.Context, folder string, fn func(session sessionOps) error) error {
	session, err := s.dialer.Dial(ctx)
	if err != nil {
		return err
	}
	defer session.Logout()

	if _, err := session.Select(folder, false); err != nil {
		return err
	}
	return fn(session)
}
