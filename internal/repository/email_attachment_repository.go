package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/itlsolutions/webmail/interfaces"
	"github.com/itlsolutions/webmail/internal/models"
	"github.com/itlsolutions/webmail/internal/tracing"
)

type emailAttachmentRepository struct {
	db      *gorm.DB
	storage interfaces.StorageService
}

func NewEmailAttachmentRepository(db *gorm.DB, storageService interfaces.StorageService) interfaces.EmailAttachmentRepository {
	return &emailAttachmentRepository{
		db:      db,
		storage: storageService,
	}
}

// Store uploads the attachment content and persists the metadata row
func (r *emailAttachmentRepository) Store(ctx context.Context, attachment *models.EmailAttachment, data []byte) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailAttachmentRepository.Store")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	attachment.Size = len(data)

	if r.storage != nil {
		if attachment.StorageKey == "" {
			attachment.StorageKey = fmt.Sprintf("%s/%s", attachment.EmailID, attachment.Filename)
		}
		attachment.StorageBucket = r.storage.Bucket()

		if err := r.storage.Upload(ctx, attachment.StorageKey, data, attachment.ContentType); err != nil {
			tracing.TraceErr(span, err)
			return fmt.Errorf("failed to upload attachment: %w", err)
		}
	}

	if err := r.db.WithContext(ctx).Create(attachment).Error; err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

// GetByID retrieves an attachment by its ID
func (r *emailAttachmentRepository) GetByID(ctx context.Context, id string) (*models.EmailAttachment, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailAttachmentRepository.GetByID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var attachment models.EmailAttachment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&attachment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &attachment, nil
}

// ListByEmail retrieves all attachments for a specific email
func (r *emailAttachmentRepository) ListByEmail(ctx context.Context, emailID string) ([]*models.EmailAttachment, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailAttachmentRepository.ListByEmail")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var attachments []*models.EmailAttachment
	err := r.db.WithContext(ctx).
		Where("email_id = ?", emailID).
		Find(&attachments).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return attachments, nil
}

// GetContent downloads the attachment body from storage
func (r *emailAttachmentRepository) GetContent(ctx context.Context, attachment *models.EmailAttachment) ([]byte, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailAttachmentRepository.GetContent")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if r.storage == nil || attachment.StorageKey == "" {
		return nil, errors.New("attachment content not stored")
	}

	data, err := r.storage.Download(ctx, attachment.StorageKey)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to download attachment: %w", err)
	}
	return data, nil
}
