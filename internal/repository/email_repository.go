package repository

import (
	"context"
	"errors"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/itlsolutions/webmail/interfaces"
	"github.com/itlsolutions/webmail/internal/models"
	"github.com/itlsolutions/webmail/internal/tracing"
)

type emailRepository struct {
	db *gorm.DB
}

func NewEmailRepository(db *gorm.DB) interfaces.EmailRepository {
	return &emailRepository{
		db: db,
	}
}

func (r *emailRepository) Create(ctx context.Context, email *models.Email) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	// Check if email already exists before creating
	existingEmail := &models.Email{}
	err := r.db.WithContext(ctx).
		Where("message_id = ?", email.MessageID).
		First(existingEmail).Error

	if err == nil {
		// Email already exists
		span.SetTag("duplicate", true)
		return nil
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		tracing.TraceErr(span, err)
		return err
	}

	result := r.db.WithContext(ctx).Create(email)
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return result.Error
	}

	return nil
}

// GetByID retrieves an email by its ID
func (r *emailRepository) GetByID(ctx context.Context, id string) (*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.GetByID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var email models.Email
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &email, nil
}

// GetByUID retrieves an email by its UID within a specific folder
func (r *emailRepository) GetByUID(ctx context.Context, folder string, uid uint32) (*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.GetByUID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var email models.Email
	if err := r.db.WithContext(ctx).
		Where("folder = ? AND uid = ?", folder, uid).
		First(&email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &email, nil
}

// GetByMessageID retrieves an email by its Message-ID header
func (r *emailRepository) GetByMessageID(ctx context.Context, messageID string) (*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.GetByMessageID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var email models.Email
	if err := r.db.WithContext(ctx).Where("message_id = ?", messageID).First(&email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &email, nil
}

// List retrieves emails matching the filter with pagination, newest first
func (r *emailRepository) List(ctx context.Context, filter interfaces.EmailFilter) ([]*models.Email, int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.List")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var emails []*models.Email
	var count int64

	query := r.db.WithContext(ctx).Model(&models.Email{}).Where("is_deleted = ?", false)
	if filter.Folder != "" {
		query = query.Where("folder = ?", filter.Folder)
	}
	if filter.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}
	if filter.Starred {
		query = query.Where("is_starred = ?", true)
	}
	if filter.Search != "" {
		searchCondition := "subject ILIKE ? OR body_text ILIKE ? OR snippet ILIKE ? OR from_address ILIKE ? OR from_name ILIKE ?"
		searchParam := "%" + filter.Search + "%"
		query = query.Where(searchCondition, searchParam, searchParam, searchParam, searchParam, searchParam)
	}

	if err := query.Count(&count).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	if err := query.
		Order("sent_at DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&emails).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, 0, err
	}

	return emails, count, nil
}

// ListByThreadKey retrieves all emails in a conversation thread, oldest first
func (r *emailRepository) ListByThreadKey(ctx context.Context, threadKey string) ([]*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.ListByThreadKey")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var emails []*models.Email

	if err := r.db.WithContext(ctx).
		Where("thread_key = ?", threadKey).
		Order("sent_at ASC").
		Find(&emails).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	return emails, nil
}

func (r *emailRepository) CountUnread(ctx context.Context, folder string) (int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.CountUnread")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var count int64
	query := r.db.WithContext(ctx).Model(&models.Email{}).
		Where("is_read = ?", false).
		Where("is_deleted = ?", false)
	if folder != "" {
		query = query.Where("folder = ?", folder)
	}
	if err := query.Count(&count).Error; err != nil {
		tracing.TraceErr(span, err)
		return 0, err
	}
	return count, nil
}

// Update updates an email record
func (r *emailRepository) Update(ctx context.Context, email *models.Email) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.Update")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	return r.db.WithContext(ctx).Save(email).Error
}

func (r *emailRepository) SetReadStatus(ctx context.Context, id string, isRead bool) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.SetReadStatus")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	err := r.db.WithContext(ctx).Model(&models.Email{}).
		Where("id = ?", id).
		Update("is_read", isRead).Error
	if err != nil {
		tracing.TraceErr(span, err)
	}
	return err
}

func (r *emailRepository) SetStarredStatus(ctx context.Context, id string, isStarred bool) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.SetStarredStatus")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	err := r.db.WithContext(ctx).Model(&models.Email{}).
		Where("id = ?", id).
		Update("is_starred", isStarred).Error
	if err != nil {
		tracing.TraceErr(span, err)
	}
	return err
}

// SetDeleted marks an email with the local tombstone. The row is kept so a
// later sync cannot re-create the message under the same uid or message_id.
func (r *emailRepository) SetDeleted(ctx context.Context, id string, isDeleted bool) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.SetDeleted")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	err := r.db.WithContext(ctx).Model(&models.Email{}).
		Where("id = ?", id).
		Update("is_deleted", isDeleted).Error
	if err != nil {
		tracing.TraceErr(span, err)
	}
	return err
}

func (r *emailRepository) Delete(ctx context.Context, id string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.Delete")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Email{}).Error
	if err != nil {
		tracing.TraceErr(span, err)
	}
	return err
}

// DeleteByFolder removes every mirrored row for a folder. Used when the
// provider reports a new UIDVALIDITY and the local copy can no longer be trusted.
func (r *emailRepository) DeleteByFolder(ctx context.Context, folder string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.DeleteByFolder")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	err := r.db.WithContext(ctx).Where("folder = ?", folder).Delete(&models.Email{}).Error
	if err != nil {
		tracing.TraceErr(span, err)
	}
	return err
}
