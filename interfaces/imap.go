package interfaces

import (
	"context"
	"time"
)

// MailSessionDialer opens a fresh authenticated IMAP session. Callers own the
// session for the duration of one operation and must Logout when done.
type MailSessionDialer interface {
	Dial(ctx context.Context) (MailSession, error)
}

// MailSession is a single live IMAP connection. Select must be called before
// any UID-scoped operation.
type MailSession interface {
	Select(folder string, readOnly bool) (*SelectedFolder, error)
	// SearchSinceUID returns UIDs strictly greater than lastUID in the
	// currently selected folder, in ascending order.
	SearchSinceUID(lastUID uint32) ([]uint32, error)
	// Fetch retrieves full raw messages for the given UIDs without setting \Seen.
	Fetch(uids []uint32) ([]*FetchedMessage, error)
	AddFlags(uid uint32, flags ...string) error
	RemoveFlags(uid uint32, flags ...string) error
	Move(uid uint32, folder string) error
	Logout() error
}

type SelectedFolder struct {
	Name        string
	UIDValidity uint32
	Messages    uint32
}

type FetchedMessage struct {
	UID          uint32
	Flags        []string
	InternalDate time.Time
	Raw          []byte
}
