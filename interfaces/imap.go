package interfaces

import (
	"context"
	"time"

	"github.com/customeros/mailbridge/internal/models"
)

type IMAPService interface {
	Start(ctx context.Context) error
	Stop() error
	AddMailbox(ctx context.Context, mailbox *models.Mailbox) error
	RemoveMailbox(ctx context.Context, mailboxID string) error
	PollAll(ctx context.Context)
	Status() map[string]MailboxStatus
}

type MailboxStatus struct {
	Connected   bool                   `json:"connected"`
	LastError   string                 `json:"lastError,omitempty"`
	Folders     map[string]FolderStats `json:"folders"`
	LastChecked time.Time              `json:"lastChecked"`
}

type FolderStats struct {
	Total    uint32    `json:"total"`
	LastSeen uint32    `json:"lastSeen"`
	LastSync time.Time `json:"lastSync"`
}
