package email

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itlsolutions/webmail/config"
	"github.com/itlsolutions/webmail/dto"
	"github.com/itlsolutions/webmail/interfaces"
	"github.com/itlsolutions/webmail/internal/errors"
	"github.com/itlsolutions/webmail/internal/logger"
	"github.com/itlsolutions/webmail/internal/models"
	"github.com/itlsolutions/webmail/internal/repository"
	"github.com/itlsolutions/webmail/services/imap"
)

// ---- fakes ----

type fakeSender struct {
	configured       bool
	failSend         bool
	failForRecipient string
	sent             []*interfaces.OutboundMessage
}

func (s *fakeSender) Send(ctx context.Context, msg *interfaces.OutboundMessage) error {
	if s.failSend {
		return fmt.Errorf("smtp connection refused")
	}
	if s.failForRecipient != "" {
		for _, recipient := range msg.To {
			if recipient == s.failForRecipient {
				return fmt.Errorf("recipient rejected: %s", recipient)
			}
		}
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *fakeSender) IsConfigured() bool {
	return s.configured
}

type fakeEmailRepo struct {
	mu     sync.Mutex
	emails map[string]*models.Email
	seq    int
}

func newFakeEmailRepo() *fakeEmailRepo {
	return &fakeEmailRepo{emails: make(map[string]*models.Email)}
}

func (r *fakeEmailRepo) Create(ctx context.Context, email *models.Email) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.emails {
		if existing.MessageID == email.MessageID {
			return nil
		}
	}
	r.seq++
	email.ID = fmt.Sprintf("email_%d", r.seq)
	clone := *email
	r.emails[email.ID] = &clone
	return nil
}

func (r *fakeEmailRepo) GetByID(ctx context.Context, id string) (*models.Email, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if email, ok := r.emails[id]; ok {
		clone := *email
		return &clone, nil
	}
	return nil, nil
}

func (r *fakeEmailRepo) GetByUID(ctx context.Context, folder string, uid uint32) (*models.Email, error) {
	return nil, nil
}

func (r *fakeEmailRepo) GetByMessageID(ctx context.Context, messageID string) (*models.Email, error) {
	return nil, nil
}

func (r *fakeEmailRepo) List(ctx context.Context, filter interfaces.EmailFilter) ([]*models.Email, int64, error) {
	return nil, 0, nil
}

func (r *fakeEmailRepo) ListByThreadKey(ctx context.Context, threadKey string) ([]*models.Email, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*models.Email
	for _, email := range r.emails {
		if email.ThreadKey == threadKey {
			clone := *email
			result = append(result, &clone)
		}
	}
	return result, nil
}

func (r *fakeEmailRepo) CountUnread(ctx context.Context, folder string) (int64, error) {
	return 0, nil
}

func (r *fakeEmailRepo) Update(ctx context.Context, email *models.Email) error {
	return nil
}

func (r *fakeEmailRepo) SetReadStatus(ctx context.Context, id string, isRead bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if email, ok := r.emails[id]; ok {
		email.IsRead = isRead
	}
	return nil
}

func (r *fakeEmailRepo) SetStarredStatus(ctx context.Context, id string, isStarred bool) error {
	return nil
}

func (r *fakeEmailRepo) SetDeleted(ctx context.Context, id string, isDeleted bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if email, ok := r.emails[id]; ok {
		email.IsDeleted = isDeleted
	}
	return nil
}

func (r *fakeEmailRepo) Delete(ctx context.Context, id string) error {
	return nil
}

func (r *fakeEmailRepo) DeleteByFolder(ctx context.Context, folder string) error {
	return nil
}

func (r *fakeEmailRepo) add(email *models.Email) *models.Email {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	email.ID = fmt.Sprintf("email_%d", r.seq)
	clone := *email
	r.emails[email.ID] = &clone
	return email
}

type fakeAttachmentRepo struct {
	records []*models.EmailAttachment
	content map[string][]byte
}

func newFakeAttachmentRepo() *fakeAttachmentRepo {
	return &fakeAttachmentRepo{content: make(map[string][]byte)}
}

func (r *fakeAttachmentRepo) Store(ctx context.Context, attachment *models.EmailAttachment, data []byte) error {
	r.records = append(r.records, attachment)
	r.content[attachment.ID] = data
	return nil
}

func (r *fakeAttachmentRepo) GetByID(ctx context.Context, id string) (*models.EmailAttachment, error) {
	for _, record := range r.records {
		if record.ID == id {
			return record, nil
		}
	}
	return nil, nil
}

func (r *fakeAttachmentRepo) ListByEmail(ctx context.Context, emailID string) ([]*models.EmailAttachment, error) {
	var result []*models.EmailAttachment
	for _, record := range r.records {
		if record.EmailID == emailID {
			result = append(result, record)
		}
	}
	return result, nil
}

func (r *fakeAttachmentRepo) GetContent(ctx context.Context, attachment *models.EmailAttachment) ([]byte, error) {
	data, ok := r.content[attachment.ID]
	if !ok {
		return nil, fmt.Errorf("no content for attachment %s", attachment.ID)
	}
	return data, nil
}

func (r *fakeAttachmentRepo) add(emailID, filename string, data []byte) {
	record := &models.EmailAttachment{
		ID:          "attach_" + filename,
		EmailID:     emailID,
		Filename:    filename,
		ContentType: "application/octet-stream",
		Size:        len(data),
	}
	r.records = append(r.records, record)
	r.content[record.ID] = data
}

type fakeSyncRepo struct{}

func (r *fakeSyncRepo) GetSyncState(ctx context.Context, folder string) (*models.FolderSyncState, error) {
	return nil, nil
}

func (r *fakeSyncRepo) SaveSyncState(ctx context.Context, state *models.FolderSyncState) error {
	return nil
}

func (r *fakeSyncRepo) DeleteSyncState(ctx context.Context, folder string) error {
	return nil
}

// ---- helpers ----

func testLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

type testEnv struct {
	service     *EmailService
	sender      *fakeSender
	emailRepo   *fakeEmailRepo
	attachments *fakeAttachmentRepo
}

func newTestEnv() *testEnv {
	emailRepo := newFakeEmailRepo()
	attachments := newFakeAttachmentRepo()
	sender := &fakeSender{configured: true}

	repos := &repository.Repositories{
		EmailRepository:           emailRepo,
		EmailAttachmentRepository: attachments,
		FolderSyncRepository:      &fakeSyncRepo{},
	}

	smtpConfig := &config.SMTPConfig{
		Host:          "smtp.example.com",
		Username:      "user",
		Password:      "pass",
		FromAddress:   "info@itlsolutions.net",
		FromName:      "ITL Solutions",
		NotifyAddress: "info@itlsolutions.net",
	}
	imapConfig := &config.IMAPConfig{
		TrashFolder: "Trash",
		SentFolder:  "Sent",
	}

	log := testLogger()
	imapService := imap.NewIMAPService(log, imapConfig, nil, repos)
	service := NewEmailService(log, smtpConfig, imapConfig, repos, sender, imapService)

	return &testEnv{
		service:     service,
		sender:      sender,
		emailRepo:   emailRepo,
		attachments: attachments,
	}
}

// ---- send tests ----

func TestSendEmail(t *testing.T) {
	env := newTestEnv()

	sent, err := env.service.SendEmail(context.Background(), &dto.SendEmailRequest{
		To:       []string{"customer@example.com"},
		Cc:       []string{"colleague@itlsolutions.net"},
		Subject:  "Quote for project X",
		BodyText: "Please find the quote below.",
	})

	require.NoError(t, err)
	require.Len(t, env.sender.sent, 1)
	msg := env.sender.sent[0]
	assert.Equal(t, "info@itlsolutions.net", msg.From)
	assert.Equal(t, []string{"customer@example.com"}, msg.To)
	assert.Equal(t, []string{"colleague@itlsolutions.net"}, msg.Cc)
	assert.Equal(t, "Quote for project X", msg.Subject)
	assert.Contains(t, msg.MessageID, "@itlsolutions.net>")

	// Mirrored into the Sent folder, readable immediately
	require.NotNil(t, sent)
	assert.NotEmpty(t, sent.ID)
	assert.Equal(t, "Sent", sent.Folder)
	assert.Equal(t, uint32(0), sent.UID)
	assert.True(t, sent.IsRead)
	assert.NotContains(t, sent.MessageID, "<")
	assert.Equal(t, sent.MessageID, sent.ThreadKey)
}

func TestSendEmail_HTMLOnlyGetsTextFallback(t *testing.T) {
	env := newTestEnv()

	sent, err := env.service.SendEmail(context.Background(), &dto.SendEmailRequest{
		To:       []string{"customer@example.com"},
		Subject:  "Newsletter",
		BodyHTML: "<p>Hello <strong>there</strong></p>",
	})

	require.NoError(t, err)
	require.Len(t, env.sender.sent, 1)
	assert.NotEmpty(t, env.sender.sent[0].BodyText)
	assert.NotContains(t, env.sender.sent[0].BodyText, "<strong>")
	assert.NotEmpty(t, sent.Snippet)
}

func TestSendEmail_BccOnEnvelopeOnly(t *testing.T) {
	env := newTestEnv()

	sent, err := env.service.SendEmail(context.Background(), &dto.SendEmailRequest{
		To:       []string{"customer@example.com"},
		Bcc:      []string{"archive@itlsolutions.net"},
		Subject:  "Quote",
		BodyText: "body",
	})

	require.NoError(t, err)
	require.Len(t, env.sender.sent, 1)
	assert.Equal(t, []string{"archive@itlsolutions.net"}, env.sender.sent[0].Bcc)

	// The Sent mirror never records bcc recipients
	assert.Equal(t, []string{"customer@example.com"}, []string(sent.ToAddresses))
	assert.Empty(t, []string(sent.CcAddresses))
}

func TestSendEmail_Validation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.service.SendEmail(ctx, &dto.SendEmailRequest{
		To:       []string{"customer@example.com"},
		BodyText: "body",
	})
	assert.ErrorIs(t, err, errors.ErrEmptySubject)

	_, err = env.service.SendEmail(ctx, &dto.SendEmailRequest{
		To:      []string{"customer@example.com"},
		Subject: "subject",
	})
	assert.ErrorIs(t, err, errors.ErrEmptyBody)

	_, err = env.service.SendEmail(ctx, &dto.SendEmailRequest{
		Subject:  "subject",
		BodyText: "body",
	})
	assert.ErrorIs(t, err, errors.ErrRecipientsEmpty)

	_, err = env.service.SendEmail(ctx, &dto.SendEmailRequest{
		To:       []string{"not-an-address"},
		Subject:  "subject",
		BodyText: "body",
	})
	assert.Error(t, err)

	assert.Empty(t, env.sender.sent)
}

func TestSendEmail_SMTPFailureLeavesNoSentCopy(t *testing.T) {
	env := newTestEnv()
	env.sender.failSend = true

	_, err := env.service.SendEmail(context.Background(), &dto.SendEmailRequest{
		To:       []string{"customer@example.com"},
		Subject:  "subject",
		BodyText: "body",
	})

	assert.Error(t, err)
	assert.Empty(t, env.emailRepo.emails)
}

// ---- reply tests ----

func TestReplyEmail_ChainsHeaders(t *testing.T) {
	env := newTestEnv()
	parent := env.emailRepo.add(&models.Email{
		MessageID:   "orig@example.com",
		UID:         12,
		Folder:      "INBOX",
		FromAddress: "customer@example.com",
		Subject:     "Re: Re: Project timeline",
		References:  pq.StringArray{"root@example.com"},
		ThreadKey:   "root@example.com",
	})

	sent, err := env.service.ReplyEmail(context.Background(), parent.ID, &dto.ReplyEmailRequest{
		BodyText: "Thanks, that works for us.",
	})

	require.NoError(t, err)
	require.Len(t, env.sender.sent, 1)
	msg := env.sender.sent[0]

	// Default recipient is the original sender
	assert.Equal(t, []string{"customer@example.com"}, msg.To)
	// Stacked prefixes collapse to a single Re:
	assert.Equal(t, "Re: Project timeline", msg.Subject)
	assert.Equal(t, "<orig@example.com>", msg.InReplyTo)
	assert.Equal(t, []string{"<root@example.com>", "<orig@example.com>"}, msg.References)

	// The local copy lands in the same thread as the parent
	assert.Equal(t, "root@example.com", sent.ThreadKey)
	assert.Equal(t, "orig@example.com", sent.InReplyTo)
}

func TestReplyEmail_ParentWithoutReferences(t *testing.T) {
	env := newTestEnv()
	parent := env.emailRepo.add(&models.Email{
		MessageID:   "solo@example.com",
		FromAddress: "customer@example.com",
		Subject:     "Question",
		ThreadKey:   "solo@example.com",
	})

	sent, err := env.service.ReplyEmail(context.Background(), parent.ID, &dto.ReplyEmailRequest{
		BodyText: "Answer.",
	})

	require.NoError(t, err)
	msg := env.sender.sent[0]
	assert.Equal(t, []string{"<solo@example.com>"}, msg.References)
	assert.Equal(t, "solo@example.com", sent.ThreadKey)
}

func TestReplyEmail_NotFound(t *testing.T) {
	env := newTestEnv()

	_, err := env.service.ReplyEmail(context.Background(), "missing", &dto.ReplyEmailRequest{
		BodyText: "body",
	})
	assert.ErrorIs(t, err, errors.ErrEmailNotFound)
}

// ---- forward tests ----

func TestForwardEmail_CarriesAttachments(t *testing.T) {
	env := newTestEnv()
	parent := env.emailRepo.add(&models.Email{
		MessageID:     "orig@example.com",
		FromAddress:   "customer@example.com",
		Subject:       "Signed contract",
		HasAttachment: true,
		ThreadKey:     "orig@example.com",
	})
	env.attachments.add(parent.ID, "contract.pdf", []byte("%PDF-1.4"))

	_, err := env.service.ForwardEmail(context.Background(), parent.ID, &dto.ForwardEmailRequest{
		To:       []string{"legal@example.com"},
		BodyText: "Forwarding the signed contract.",
	})

	require.NoError(t, err)
	require.Len(t, env.sender.sent, 1)
	msg := env.sender.sent[0]
	assert.Equal(t, "Fwd: Signed contract", msg.Subject)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "contract.pdf", msg.Attachments[0].Filename)
	assert.Equal(t, []byte("%PDF-1.4"), msg.Attachments[0].Content)
}

func TestForwardEmail_StartsNewThread(t *testing.T) {
	env := newTestEnv()
	parent := env.emailRepo.add(&models.Email{
		MessageID:   "orig@example.com",
		FromAddress: "customer@example.com",
		Subject:     "Project timeline",
		References:  pq.StringArray{"root@example.com"},
		ThreadKey:   "root@example.com",
	})

	sent, err := env.service.ForwardEmail(context.Background(), parent.ID, &dto.ForwardEmailRequest{
		To:       []string{"legal@example.com"},
		BodyText: "See below.",
	})

	require.NoError(t, err)
	require.Len(t, env.sender.sent, 1)
	msg := env.sender.sent[0]

	// A forward carries no threading headers, regardless of the parent's chain
	assert.Empty(t, msg.InReplyTo)
	assert.Empty(t, msg.References)

	// The sent copy threads on its own id, not the parent's conversation
	assert.Equal(t, sent.MessageID, sent.ThreadKey)
	assert.Empty(t, sent.InReplyTo)
	assert.Empty(t, []string(sent.References))
}

func TestForwardEmail_MissingAttachmentContentSkipped(t *testing.T) {
	env := newTestEnv()
	parent := env.emailRepo.add(&models.Email{
		MessageID:   "orig@example.com",
		FromAddress: "customer@example.com",
		Subject:     "Report",
		ThreadKey:   "orig@example.com",
	})
	// Metadata exists but the stored object is gone
	env.attachments.records = append(env.attachments.records, &models.EmailAttachment{
		ID:       "attach_lost",
		EmailID:  parent.ID,
		Filename: "lost.xlsx",
	})

	_, err := env.service.ForwardEmail(context.Background(), parent.ID, &dto.ForwardEmailRequest{
		To:       []string{"someone@example.com"},
		BodyText: "See attached.",
	})

	require.NoError(t, err)
	require.Len(t, env.sender.sent, 1)
	assert.Empty(t, env.sender.sent[0].Attachments)
}

// ---- read path tests ----

func TestGetEmail_MarksUnreadAsRead(t *testing.T) {
	env := newTestEnv()
	stored := env.emailRepo.add(&models.Email{
		MessageID: "m1@example.com",
		Folder:    "Sent",
		UID:       0,
		IsRead:    false,
		ThreadKey: "m1@example.com",
	})

	email, err := env.service.GetEmail(context.Background(), stored.ID)

	require.NoError(t, err)
	assert.True(t, email.IsRead)
	persisted, _ := env.emailRepo.GetByID(context.Background(), stored.ID)
	assert.True(t, persisted.IsRead)
}

func TestGetEmail_NotFound(t *testing.T) {
	env := newTestEnv()

	_, err := env.service.GetEmail(context.Background(), "missing")
	assert.ErrorIs(t, err, errors.ErrEmailNotFound)
}

func TestGetThread(t *testing.T) {
	env := newTestEnv()
	first := env.emailRepo.add(&models.Email{
		MessageID: "a@example.com", IsRead: true, ThreadKey: "a@example.com",
	})
	env.emailRepo.add(&models.Email{
		MessageID: "b@example.com", IsRead: true, InReplyTo: "a@example.com", ThreadKey: "a@example.com",
	})
	env.emailRepo.add(&models.Email{
		MessageID: "c@example.com", IsRead: true, ThreadKey: "c@example.com",
	})

	thread, err := env.service.GetThread(context.Background(), first.ID)

	require.NoError(t, err)
	assert.Len(t, thread, 2)
}

// ---- notification tests ----

func TestSendContactNotification(t *testing.T) {
	env := newTestEnv()

	err := env.service.SendContactNotification(context.Background(), &dto.ContactSubmission{
		Name:    "Max Mustermann",
		Email:   "max@example.com",
		Company: "Example GmbH",
		Message: "We need an offer for <10 licenses>",
	})

	require.NoError(t, err)
	require.Len(t, env.sender.sent, 2)
	msg := env.sender.sent[0]
	assert.Equal(t, []string{"info@itlsolutions.net"}, msg.To)
	assert.Contains(t, msg.Subject, "Max Mustermann")
	assert.Contains(t, msg.BodyHTML, "Example GmbH")
	// User input is escaped before it lands in the mail body
	assert.Contains(t, msg.BodyHTML, "&lt;10 licenses&gt;")
	assert.NotEmpty(t, msg.BodyText)

	// The submitter gets a confirmation mail
	confirmation := env.sender.sent[1]
	assert.Equal(t, []string{"max@example.com"}, confirmation.To)
	assert.Contains(t, confirmation.Subject, "Thank you")
	assert.Contains(t, confirmation.BodyHTML, "Max Mustermann")
}

func TestSendContactNotification_ConfirmationFailureIgnored(t *testing.T) {
	env := newTestEnv()
	env.sender.failForRecipient = "max@example.com"

	err := env.service.SendContactNotification(context.Background(), &dto.ContactSubmission{
		Name:    "Max Mustermann",
		Email:   "max@example.com",
		Message: "hello",
	})

	// The admin notification went through; the failed confirmation is logged only
	require.NoError(t, err)
	require.Len(t, env.sender.sent, 1)
	assert.Equal(t, []string{"info@itlsolutions.net"}, env.sender.sent[0].To)
}

func TestSendContactNotification_CustomSubject(t *testing.T) {
	env := newTestEnv()

	err := env.service.SendContactNotification(context.Background(), &dto.ContactSubmission{
		Name:    "Max Mustermann",
		Email:   "max@example.com",
		Subject: "Support request",
		Message: "Something is broken",
	})

	require.NoError(t, err)
	assert.Equal(t, "Contact Form: Support request", env.sender.sent[0].Subject)
}

func TestSendChatNotification(t *testing.T) {
	env := newTestEnv()

	err := env.service.SendChatNotification(context.Background(), &dto.ChatInquiry{
		Name:       "Visitor",
		Email:      "visitor@example.com",
		Transcript: "Hello\nDo you offer hosting?",
	})

	require.NoError(t, err)
	require.Len(t, env.sender.sent, 1)
	assert.Contains(t, env.sender.sent[0].Subject, "Visitor")
	assert.Contains(t, env.sender.sent[0].BodyHTML, "Do you offer hosting?")
}

func TestNotifications_SkippedWhenSMTPUnconfigured(t *testing.T) {
	env := newTestEnv()
	env.sender.configured = false

	err := env.service.SendContactNotification(context.Background(), &dto.ContactSubmission{
		Name:    "Max",
		Email:   "max@example.com",
		Message: "hello",
	})

	require.NoError(t, err)
	assert.Empty(t, env.sender.sent)
}
