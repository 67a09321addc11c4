package interfaces

import (
	"context"

	"github.com/customeros/mailbridge/internal/models"
)

type MailboxRepository interface {
	GetMailboxes(ctx context.Context) ([]*models.Mailbox, error)
	GetMailbox(ctx context.Context, id string) (*models.Mailbox, error)
	GetMailboxByAddress(ctx context.Context, emailAddress string) (*models.Mailbox, error)
	SaveMailbox(ctx context.Context, mailbox *models.Mailbox) error
	UpdateSyncStatus(ctx context.Context, id, status, errorMessage string) error
	DeleteMailbox(ctx context.Context, id string) error
}

type RelaySyncRepository interface {
	GetSyncState(ctx context.Context, mailboxID, folderName string) (*models.RelaySyncState, error)
	SaveSyncState(ctx context.Context, state *models.RelaySyncState) error
	GetMailboxSyncStates(ctx context.Context, mailboxID string) (map[string]uint32, error)
}

type RelaySubmissionRepository interface {
	Create(ctx context.Context, submission *models.RelaySubmission) error
	GetByTxHash(ctx context.Context, txHash string) (*models.RelaySubmission, error)
	ListRecent(ctx context.Context, limit int) ([]*models.RelaySubmission, error)
}
