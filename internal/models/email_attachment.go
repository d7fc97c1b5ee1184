package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/itlsolutions/webmail/internal/utils"
)

type EmailAttachment struct {
	ID        string    `gorm:"primaryKey;type:varchar(50)" json:"id"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;DEFAULT:current_timestamp" json:"createdAt"`

	EmailID string `gorm:"column:email_id;type:varchar(50);NOT NULL;index" json:"emailId"`

	Filename    string `gorm:"column:filename;type:varchar(255)" json:"filename"`
	ContentType string `gorm:"column:content_type;type:varchar(255)" json:"contentType"`
	Size        int    `gorm:"column:size" json:"size"`

	// ContentID links inline parts to cid: references in the HTML body
	ContentID string `gorm:"column:content_id;type:varchar(255)" json:"contentId"`
	IsInline  bool   `gorm:"column:is_inline" json:"isInline"`

	StorageBucket string `gorm:"column:storage_bucket;type:varchar(255)" json:"-"`
	StorageKey    string `gorm:"column:storage_key;type:varchar(255)" json:"-"`
}

func (EmailAttachment) TableName() string {
	return "email_attachments"
}

func (a *EmailAttachment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = utils.GenerateNanoIDWithPrefix("attach", 24)
	}
	return nil
}
