package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/itlsolutions/webmail/internal/utils"
)

// FolderSyncState is the per-folder sync cursor. LastUID is the highest UID
// mirrored so far; UIDValidity is nil until the first successful sync.
type FolderSyncState struct {
	ID        string    `gorm:"primaryKey;type:varchar(50)" json:"id"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;DEFAULT:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp" json:"updatedAt"`

	Folder      string     `gorm:"column:folder;type:varchar(255);NOT NULL;uniqueIndex" json:"folder"`
	LastUID     uint32     `gorm:"column:last_uid" json:"lastUid"`
	UIDValidity *uint32    `gorm:"column:uid_validity" json:"uidValidity"`
	LastSyncAt  *time.Time `gorm:"column:last_sync_at;type:timestamp" json:"lastSyncAt"`
}

func (FolderSyncState) TableName() string {
	return "folder_sync_states"
}

func (s *FolderSyncState) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = utils.GenerateNanoIDWithPrefix("fsync", 24)
	}
	return nil
}
