package interfaces

import (
	"context"

	"github.com/itlsolutions/webmail/internal/models"
)

type EmailAttachmentRepository interface {
	Store(ctx context.Context, attachment *models.EmailAttachment, data []byte) error
	GetByID(ctx context.Context, id string) (*models.EmailAttachment, error)
	ListByEmail(ctx context.Context, emailID string) ([]*models.EmailAttachment, error)
	GetContent(ctx context.Context, attachment *models.EmailAttachment) ([]byte, error)
}
