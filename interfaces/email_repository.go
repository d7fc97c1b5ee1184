package interfaces

import (
	"context"

	"github.com/itlsolutions/webmail/internal/models"
)

// EmailFilter narrows List and Count queries. Zero values mean "no filter".
type EmailFilter struct {
	Folder     string
	UnreadOnly bool
	Starred    bool
	Search     string
	Limit      int
	Offset     int
}

type EmailRepository interface {
	Create(ctx context.Context, email *models.Email) error
	GetByID(ctx context.Context, id string) (*models.Email, error)
	GetByUID(ctx context.Context, folder string, uid uint32) (*models.Email, error)
	GetByMessageID(ctx context.Context, messageID string) (*models.Email, error)
	List(ctx context.Context, filter EmailFilter) ([]*models.Email, int64, error)
	ListByThreadKey(ctx context.Context, threadKey string) ([]*models.Email, error)
	CountUnread(ctx context.Context, folder string) (int64, error)
	Update(ctx context.Context, email *models.Email) error
	SetReadStatus(ctx context.Context, id string, isRead bool) error
	SetStarredStatus(ctx context.Context, id string, isStarred bool) error
	SetDeleted(ctx context.Context, id string, isDeleted bool) error
	Delete(ctx context.Context, id string) error
	DeleteByFolder(ctx context.Context, folder string) error
}
