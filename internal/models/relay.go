package models

import (
	"time"

	"github.com/customeros/mailbridge/internal/enum"
)

// RelaySyncState is the per-folder high-water mark of messages already handed to the bridge.
type RelaySyncState struct {
	ID          string    `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	MailboxID   string    `gorm:"column:mailbox_id;type:varchar(50);index;not null"`
	FolderName  string    `gorm:"column:folder_name;type:varchar(100);index;not null"`
	UIDValidity uint32    `gorm:"column:uid_validity;not null;default:0"`
	LastUID     uint32    `gorm:"column:last_uid;not null"`
	LastSync    time.Time `gorm:"column:last_sync;type:timestamp;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt   time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
}

func (RelaySyncState) TableName() string {
	return "relay_sync_states"
}

// RelaySubmission is one attempt to hand an email to the bridge.
type RelaySubmission struct {
	ID         string                 `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	Source     enum.EmailImportSource `gorm:"column:source;type:varchar(20);not null"`
	MailboxID  string                 `gorm:"column:mailbox_id;type:varchar(50);index"`
	FolderName string                 `gorm:"column:folder_name;type:varchar(100)"`
	ImapUID    uint32                 `gorm:"column:imap_uid"`
	Sender     string                 `gorm:"column:sender;type:varchar(255)"`
	ArchiveKey string                 `gorm:"column:archive_key;type:varchar(255)"`
	Nonce      uint64                 `gorm:"column:nonce"`
	TxHash     string                 `gorm:"column:tx_hash;type:varchar(64);index"`
	Status     enum.SubmissionStatus  `gorm:"column:status;type:varchar(20);not null"`
	Error      string                 `gorm:"column:error;type:text"`
	ErrorKind  string                 `gorm:"column:error_kind;type:varchar(50)"`
	CreatedAt  time.Time              `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
}

func (RelaySubmission) TableName() string {
	return "relay_submissions"
}
