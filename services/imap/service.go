package imap

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/opentracing/opentracing-go"

	"github.com/itlsolutions/webmail/config"
	"github.com/itlsolutions/webmail/interfaces"
	"github.com/itlsolutions/webmail/internal/errors"
	"github.com/itlsolutions/webmail/internal/logger"
	"github.com/itlsolutions/webmail/internal/models"
	"github.com/itlsolutions/webmail/internal/repository"
	"github.com/itlsolutions/webmail/internal/tracing"
)

// IMAPService mirrors remote folders into the local database and pushes flag
// changes back to the server. A folder is synced by at most one goroutine at
// a time.
type IMAPService struct {
	log          logger.Logger
	config       *config.IMAPConfig
	dialer       interfaces.MailSessionDialer
	repositories *repository.Repositories

	folderLocksMu sync.Mutex
	folderLocks   map[string]*sync.Mutex
}

func NewIMAPService(
	log logger.Logger,
	cfg *config.IMAPConfig,
	dialer interfaces.MailSessionDialer,
	repositories *repository.Repositories,
) *IMAPService {
	return &IMAPService{
		log:          log,
		config:       cfg,
		dialer:       dialer,
		repositories: repositories,
		folderLocks:  make(map[string]*sync.Mutex),
	}
}

func (s *IMAPService) folderLock(folder string) *sync.Mutex {
	s.folderLocksMu.Lock()
	defer s.folderLocksMu.Unlock()

	lock, ok := s.folderLocks[folder]
	if !ok {
		lock = &sync.Mutex{}
		s.folderLocks[folder] = lock
	}
	return lock
}

// SyncAll runs an incremental sync across the configured folders and returns
// the total number of newly mirrored messages. A failing folder does not stop
// the others.
func (s *IMAPService) SyncAll(ctx context.Context, folders []string) (int, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPService.SyncAll")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	total := 0
	var lastErr error
	for _, folder := range folders {
		count, err := s.SyncFolder(ctx, folder)
		if err != nil {
			tracing.TraceErr(span, err)
			s.log.Errorf("sync failed for folder %s: %v", folder, err)
			lastErr = err
			continue
		}
		total += count
	}
	return total, lastErr
}

// SyncFolder pulls messages with UID greater than the stored cursor into the
// local mirror and advances the cursor. When the server reports a different
// UIDVALIDITY than last time, every local row for the folder is discarded and
// the folder is pulled from scratch.
func (s *IMAPService) SyncFolder(ctx context.Context, folder string) (int, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPService.SyncFolder")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("folder.name", folder)

	lock := s.folderLock(folder)
	if !lock.TryLock() {
		return 0, errors.ErrSyncInProgress
	}
	defer lock.Unlock()

	session, err := s.dialer.Dial(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return 0, err
	}
	defer session.Logout()

	selected, err := session.Select(folder, false)
	if err != nil {
		tracing.TraceErr(span, err)
		return 0, err
	}

	state, err := s.repositories.FolderSyncRepository.GetSyncState(ctx, folder)
	if err != nil {
		tracing.TraceErr(span, err)
		return 0, err
	}

	var lastUID uint32
	if state != nil {
		if state.UIDValidity != nil && *state.UIDValidity != selected.UIDValidity {
			// The server renumbered the folder; local UIDs are meaningless now
			log.Printf("[imap][%s] UIDVALIDITY changed %d -> %d, rebuilding local mirror",
				folder, *state.UIDValidity, selected.UIDValidity)
			span.SetTag("uidvalidity.changed", true)

			if err := s.repositories.EmailRepository.DeleteByFolder(ctx, folder); err != nil {
				tracing.TraceErr(span, err)
				return 0, err
			}
			if err := s.repositories.FolderSyncRepository.DeleteSyncState(ctx, folder); err != nil {
				tracing.TraceErr(span, err)
				return 0, err
			}
		} else {
			lastUID = state.LastUID
		}
	}

	uids, err := session.SearchSinceUID(lastUID)
	if err != nil {
		tracing.TraceErr(span, err)
		return 0, err
	}

	if len(uids) == 0 {
		log.Printf("[imap][%s] No new messages since UID %d", folder, lastUID)
		return 0, s.saveCursor(ctx, folder, lastUID, selected.UIDValidity)
	}

	// Oldest first; anything beyond the batch bound waits for the next run
	if len(uids) > s.config.SyncBatchSize {
		log.Printf("[imap][%s] Limiting sync to %d of %d new messages", folder, s.config.SyncBatchSize, len(uids))
		uids = uids[:s.config.SyncBatchSize]
	}

	log.Printf("[imap][%s] Found %d new messages since UID %d", folder, len(uids), lastUID)

	fetched, err := session.Fetch(uids)
	if err != nil {
		tracing.TraceErr(span, err)
		return 0, err
	}

	// The server may deliver fetch responses in any order. Persist ascending
	// so a failure mid-batch leaves the cursor below every unmirrored message.
	sort.Slice(fetched, func(i, j int) bool { return fetched[i].UID < fetched[j].UID })

	count := 0
	highestUID := lastUID
	var storeErr error

	for _, msg := range fetched {
		if ctx.Err() != nil {
			storeErr = ctx.Err()
			break
		}

		stored, err := s.storeMessage(ctx, folder, msg)
		if err != nil {
			// Persistence failures stop the loop so the cursor never jumps
			// past an unmirrored message
			tracing.TraceErr(span, err)
			storeErr = err
			break
		}
		if stored {
			count++
		}
		if msg.UID > highestUID {
			highestUID = msg.UID
		}
	}

	if highestUID > lastUID || state == nil {
		if err := s.saveCursor(ctx, folder, highestUID, selected.UIDValidity); err != nil {
			tracing.TraceErr(span, err)
			if storeErr == nil {
				storeErr = err
			}
		}
	}

	log.Printf("[imap][%s] Mirrored %d new messages, cursor at UID %d", folder, count, highestUID)
	span.SetTag("messages.synced", count)

	return count, storeErr
}

// storeMessage mirrors one fetched message. Returns false when the message was
// skipped, either as a duplicate or because it could not be parsed.
func (s *IMAPService) storeMessage(ctx context.Context, folder string, msg *interfaces.FetchedMessage) (bool, error) {
	existing, err := s.repositories.EmailRepository.GetByUID(ctx, folder, msg.UID)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	parsed, err := parseMessage(folder, msg)
	if err != nil {
		// A malformed message is logged and skipped; it would fail the same
		// way on every retry
		log.Printf("[imap][%s] Skipping unparseable message UID %d: %v", folder, msg.UID, err)
		return false, nil
	}

	if err := s.repositories.EmailRepository.Create(ctx, parsed.Email); err != nil {
		return false, err
	}
	if parsed.Email.ID == "" {
		// Same Message-ID already mirrored from another fetch
		return false, nil
	}

	for _, attachment := range parsed.Attachments {
		attachment.Record.EmailID = parsed.Email.ID
		if err := s.repositories.EmailAttachmentRepository.Store(ctx, attachment.Record, attachment.Content); err != nil {
			log.Printf("[imap][%s] Failed to store attachment %s for UID %d: %v",
				folder, attachment.Record.Filename, msg.UID, err)
		}
	}

	return true, nil
}

func (s *IMAPService) saveCursor(ctx context.Context, folder string, lastUID, uidValidity uint32) error {
	validity := uidValidity
	err := s.repositories.FolderSyncRepository.SaveSyncState(ctx, &models.FolderSyncState{
		Folder:      folder,
		LastUID:     lastUID,
		UIDValidity: &validity,
	})
	if err != nil {
		return fmt.Errorf("failed to save sync cursor for %s: %w", folder, err)
	}
	return nil
}
