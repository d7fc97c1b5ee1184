package interfaces

import (
	"context"

	"github.com/itlsolutions/webmail/internal/models"
)

type FolderSyncRepository interface {
	GetSyncState(ctx context.Context, folder string) (*models.FolderSyncState, error)
	SaveSyncState(ctx context.Context, state *models.FolderSyncState) error
	DeleteSyncState(ctx context.Context, folder string) error
}
