package interfaces

import "context"

// OutboundMessage is a fully composed email ready for SMTP delivery. Message
// ID and threading headers carry their angle brackets. Bcc recipients receive
// the message but never appear in the written headers.
type OutboundMessage struct {
	From        string
	FromName    string
	To          []string
	Cc          []string
	Bcc         []string
	Subject     string
	BodyText    string
	BodyHTML    string
	MessageID   string
	InReplyTo   string
	References  []string
	Attachments []*OutboundAttachment
}

type OutboundAttachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

type SMTPSender interface {
	Send(ctx context.Context, msg *OutboundMessage) error
	IsConfigured() bool
}
