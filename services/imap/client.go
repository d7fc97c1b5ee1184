package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log"
	"net"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/opentracing/opentracing-go"

	"github.com/itlsolutions/webmail/config"
	"github.com/itlsolutions/webmail/interfaces"
	"github.com/itlsolutions/webmail/internal/errors"
	"github.com/itlsolutions/webmail/internal/tracing"
)

// Dialer opens one authenticated IMAP session per operation. Connections are
// not pooled; the mailbox sees a clean login/logout pair for every sync or
// flag update.
type Dialer struct {
	config *config.IMAPConfig
}

func NewDialer(cfg *config.IMAPConfig) interfaces.MailSessionDialer {
	return &Dialer{config: cfg}
}

func (d *Dialer) Dial(ctx context.Context) (interfaces.MailSession, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "Dialer.Dial")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("server", d.config.Host)
	span.SetTag("port", d.config.Port)
	span.SetTag("tls", d.config.TLS)

	if err := d.config.Validate(); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	serverAddr := fmt.Sprintf("%s:%d", d.config.Host, d.config.Port)

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	var c *client.Client
	var err error

	if d.config.TLS {
		tlsConfig := &tls.Config{
			ServerName: d.config.Host,
		}
		c, err = client.DialWithDialerTLS(dialer, serverAddr, tlsConfig)
	} else {
		c, err = client.DialWithDialer(dialer, serverAddr)
	}

	if err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to connect to %s: %w", serverAddr, err)
	}

	c.Timeout = 30 * time.Second
	err = c.Login(d.config.Username, d.config.Password)
	if err != nil {
		c.Logout()
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to login as %s: %w", d.config.Username, err)
	}
	c.Timeout = 0

	log.Printf("[imap] Connected and logged in to %s", serverAddr)

	return &session{client: c}, nil
}

// session wraps a live go-imap client connection
type session struct {
	client   *client.Client
	selected string
}

func (s *session) Select(folder string, readOnly bool) (*interfaces.SelectedFolder, error) {
	status, err := s.client.Select(folder, readOnly)
	if err != nil {
		return nil, fmt.Errorf("error selecting folder %s: %w", folder, err)
	}
	s.selected = folder

	return &interfaces.SelectedFolder{
		Name:        folder,
		UIDValidity: status.UidValidity,
		Messages:    status.Messages,
	}, nil
}

func (s *session) SearchSinceUID(lastUID uint32) ([]uint32, error) {
	if s.selected == "" {
		return nil, errors.ErrSessionNotOpened
	}

	criteria := imap.NewSearchCriteria()
	uidRange := new(imap.SeqSet)
	uidRange.AddRange(lastUID+1, 0) // From lastUID+1 to infinity
	criteria.Uid = uidRange

	s.client.Timeout = 30 * time.Second
	uids, err := s.client.UidSearch(criteria)
	s.client.Timeout = 0

	if err != nil {
		return nil, fmt.Errorf("error searching for new messages: %w", err)
	}
	return uids, nil
}

func (s *session) Fetch(uids []uint32) ([]*interfaces.FetchedMessage, error) {
	if s.selected == "" {
		return nil, errors.ErrSessionNotOpened
	}
	if len(uids) == 0 {
		return nil, nil
	}

	seqSet := new(imap.SeqSet)
	for _, uid := range uids {
		seqSet.AddNum(uid)
	}

	// BODY.PEEK[] keeps \Seen untouched on the server
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{
		imap.FetchFlags,
		imap.FetchInternalDate,
		imap.FetchUid,
		section.FetchItem(),
	}

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)

	s.client.Timeout = 60 * time.Second
	go func() {
		done <- s.client.UidFetch(seqSet, items, messages)
	}()

	var fetched []*interfaces.FetchedMessage
	for msg := range messages {
		raw, err := readBody(msg, section)
		if err != nil {
			log.Printf("[imap][%s] Failed to read body for UID %d: %v", s.selected, msg.Uid, err)
			continue
		}

		flags := make([]string, len(msg.Flags))
		copy(flags, msg.Flags)

		fetched = append(fetched, &interfaces.FetchedMessage{
			UID:          msg.Uid,
			Flags:        flags,
			InternalDate: msg.InternalDate,
			Raw:          raw,
		})
	}
	s.client.Timeout = 0

	if err := <-done; err != nil {
		return nil, fmt.Errorf("error fetching messages: %w", err)
	}
	return fetched, nil
}

func readBody(msg *imap.Message, section *imap.BodySectionName) ([]byte, error) {
	r := msg.GetBody(section)
	if r == nil {
		return nil, fmt.Errorf("no body section in fetch response for UID %d", msg.Uid)
	}
	return io.ReadAll(r)
}

func (s *session) AddFlags(uid uint32, flags ...string) error {
	return s.storeFlags(uid, imap.AddFlags, flags)
}

func (s *session) RemoveFlags(uid uint32, flags ...string) error {
	return s.storeFlags(uid, imap.RemoveFlags, flags)
}

func (s *session) storeFlags(uid uint32, op imap.FlagsOp, flags []string) error {
	if s.selected == "" {
		return errors.ErrSessionNotOpened
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	storeItem := imap.FormatFlagsOp(op, true)
	storeFlags := make([]interface{}, len(flags))
	for i, f := range flags {
		storeFlags[i] = f
	}

	s.client.Timeout = 30 * time.Second
	err := s.client.UidStore(seqSet, storeItem, storeFlags, nil)
	s.client.Timeout = 0

	if err != nil {
		return fmt.Errorf("error updating flags for UID %d: %w", uid, err)
	}
	return nil
}

func (s *session) Move(uid uint32, folder string) error {
	if s.selected == "" {
		return errors.ErrSessionNotOpened
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	s.client.Timeout = 30 * time.Second
	defer func() { s.client.Timeout = 0 }()

	err := s.client.UidMove(seqSet, folder)
	if err == nil {
		return nil
	}

	// Servers without MOVE get copy, mark deleted, expunge
	log.Printf("[imap][%s] MOVE failed for UID %d, falling back to copy+expunge: %v", s.selected, uid, err)

	if err := s.client.UidCopy(seqSet, folder); err != nil {
		return fmt.Errorf("error copying UID %d to %s: %w", uid, folder, err)
	}

	storeItem := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := s.client.UidStore(seqSet, storeItem, []interface{}{imap.DeletedFlag}, nil); err != nil {
		return fmt.Errorf("error marking UID %d deleted: %w", uid, err)
	}

	if err := s.client.Expunge(nil); err != nil {
		return fmt.Errorf("error expunging %s: %w", s.selected, err)
	}
	return nil
}

func (s *session) Logout() error {
	s.client.Timeout = 5 * time.Second
	return s.client.Logout()
}
