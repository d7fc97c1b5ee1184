package repository

import (
	"gorm.io/gorm"

	"github.com/itlsolutions/webmail/config"
	"github.com/itlsolutions/webmail/interfaces"
	"github.com/itlsolutions/webmail/services/storage"
	"github.com/itlsolutions/webmail/services/storage/aws_client"
)

type Repositories struct {
	EmailRepository           interfaces.EmailRepository
	EmailAttachmentRepository interfaces.EmailAttachmentRepository
	FolderSyncRepository      interfaces.FolderSyncRepository
}

func InitRepositories(db *gorm.DB, storageConfig *config.StorageConfig) *Repositories {
	var attachmentStorage interfaces.StorageService
	if storageConfig.IsConfigured() {
		client := aws_client.NewR2Client(aws_client.R2Config{
			AccountID:       storageConfig.AccountID,
			AccessKeyID:     storageConfig.AccessKeyID,
			AccessKeySecret: storageConfig.AccessKeySecret,
		})
		attachmentStorage = storage.NewStorageService(client, storageConfig.AttachmentBucket)
	}

	return &Repositories{
		EmailRepository:           NewEmailRepository(db),
		EmailAttachmentRepository: NewEmailAttachmentRepository(db, attachmentStorage),
		FolderSyncRepository:      NewFolderSyncRepository(db),
	}
}
