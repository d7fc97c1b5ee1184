package repository

import (
	"context"
	"fmt"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/itlsolutions/webmail/interfaces"
	"github.com/itlsolutions/webmail/internal/models"
	"github.com/itlsolutions/webmail/internal/tracing"
	"github.com/itlsolutions/webmail/internal/utils"
)

type folderSyncRepository struct {
	db *gorm.DB
}

func NewFolderSyncRepository(db *gorm.DB) interfaces.FolderSyncRepository {
	return &folderSyncRepository{db: db}
}

// GetSyncState retrieves the sync cursor for a folder
func (r *folderSyncRepository) GetSyncState(ctx context.Context, folder string) (*models.FolderSyncState, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "folderSyncRepository.GetSyncState")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var state models.FolderSyncState
	result := r.db.WithContext(ctx).
		Where("folder = ?", folder).
		First(&state)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil // No sync state yet
		}
		tracing.TraceErr(span, result.Error)
		return nil, fmt.Errorf("failed to get sync state: %w", result.Error)
	}

	return &state, nil
}

// SaveSyncState persists the sync cursor for a folder
func (r *folderSyncRepository) SaveSyncState(ctx context.Context, state *models.FolderSyncState) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "folderSyncRepository.SaveSyncState")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	state.LastSyncAt = utils.NowPtr()

	// Try to update first
	result := r.db.WithContext(ctx).
		Model(&models.FolderSyncState{}).
		Where("folder = ?", state.Folder).
		Updates(map[string]interface{}{
			"last_uid":     state.LastUID,
			"uid_validity": state.UIDValidity,
			"last_sync_at": state.LastSyncAt,
			"updated_at":   utils.Now(),
		})

	// If no record was updated, create a new one
	if result.RowsAffected == 0 {
		result = r.db.WithContext(ctx).Create(state)
	}

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return fmt.Errorf("failed to save sync state: %w", result.Error)
	}

	return nil
}

// DeleteSyncState removes the cursor for a folder so the next sync starts from scratch
func (r *folderSyncRepository) DeleteSyncState(ctx context.Context, folder string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "folderSyncRepository.DeleteSyncState")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	result := r.db.WithContext(ctx).
		Where("folder = ?", folder).
		Delete(&models.FolderSyncState{})

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return fmt.Errorf("failed to delete sync state: %w", result.Error)
	}

	return nil
}
