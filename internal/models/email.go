package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/itlsolutions/webmail/internal/utils"
)

// Email is a locally mirrored copy of a mailbox message. Rows in the Sent
// folder that were composed locally carry UID 0 until the provider assigns one.
type Email struct {
	ID        string    `gorm:"primaryKey;type:varchar(50)" json:"id"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;DEFAULT:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp" json:"updatedAt"`

	// MessageID is stored without surrounding angle brackets
	MessageID string `gorm:"column:message_id;type:varchar(998);NOT NULL;uniqueIndex" json:"messageId"`
	UID       uint32 `gorm:"column:uid;index:idx_emails_folder_uid" json:"uid"`
	Folder    string `gorm:"column:folder;type:varchar(255);NOT NULL;index:idx_emails_folder_uid" json:"folder"`

	FromAddress string         `gorm:"column:from_address;type:varchar(320)" json:"fromAddress"`
	FromName    string         `gorm:"column:from_name;type:varchar(255)" json:"fromName"`
	ToAddresses pq.StringArray `gorm:"column:to_addresses;type:text[]" json:"toAddresses"`
	CcAddresses pq.StringArray `gorm:"column:cc_addresses;type:text[]" json:"ccAddresses"`

	Subject  string `gorm:"column:subject;type:varchar(998)" json:"subject"`
	BodyText string `gorm:"column:body_text;type:text" json:"bodyText"`
	BodyHTML string `gorm:"column:body_html;type:text" json:"bodyHtml"`
	Snippet  string `gorm:"column:snippet;type:varchar(255)" json:"snippet"`

	HasAttachment bool `gorm:"column:has_attachment" json:"hasAttachment"`
	IsRead        bool `gorm:"column:is_read" json:"isRead"`
	IsStarred     bool `gorm:"column:is_starred" json:"isStarred"`
	// IsDeleted is the local tombstone; the row stays so the mirror never
	// resurrects the message, independent of the server-side move to Trash
	IsDeleted bool `gorm:"column:is_deleted;index" json:"isDeleted"`

	// Threading headers as received on the wire
	InReplyTo  string         `gorm:"column:in_reply_to;type:varchar(998)" json:"inReplyTo"`
	References pq.StringArray `gorm:"column:references_ids;type:text[]" json:"references"`
	ThreadKey  string         `gorm:"column:thread_key;type:varchar(998);index" json:"threadKey"`

	SentAt time.Time `gorm:"column:sent_at;type:timestamp;index" json:"sentAt"`

	Attachments []EmailAttachment `gorm:"foreignKey:EmailID" json:"attachments,omitempty"`
}

func (Email) TableName() string {
	return "emails"
}

func (e *Email) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = utils.GenerateNanoIDWithPrefix("email", 24)
	}
	return nil
}
