package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/customeros/mailbridge/internal/utils"
)

// Mailbox is an IMAP inbox the relay polls for command emails.
type Mailbox struct {
	ID           string         `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	ImapServer   string         `gorm:"column:imap_server;type:varchar(255);not null" json:"imapServer"`
	ImapPort     int            `gorm:"column:imap_port;not null" json:"imapPort"`
	ImapUsername string         `gorm:"column:imap_username;type:varchar(255);not null" json:"imapUsername"`
	ImapPassword string         `gorm:"column:imap_password;type:varchar(255);not null" json:"-"`
	ImapTLS      bool           `gorm:"column:imap_tls;not null;default:true" json:"imapTls"`
	Folders      pq.StringArray `gorm:"column:folders;type:text[];not null" json:"folders"`
	EmailAddress string         `gorm:"column:email_address;type:varchar(255);index" json:"emailAddress"`
	Enabled      bool           `gorm:"column:enabled;not null;default:true" json:"enabled"`
	LastSynced   *time.Time     `gorm:"column:last_synced;type:timestamp" json:"lastSynced"`
	SyncStatus   string         `gorm:"column:sync_status;type:varchar(50)" json:"syncStatus"`
	ErrorMessage string         `gorm:"column:error_message;type:text" json:"errorMessage"`
	CreatedAt    time.Time      `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
	DeletedAt    gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Mailbox) TableName() string {
	return "mailboxes"
}

func (m *Mailbox) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = utils.GenerateID("mbox")
	}
	return nil
}
