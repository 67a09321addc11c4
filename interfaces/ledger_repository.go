package interfaces

import (
	"context"

	"github.com/customeros/mailbridge/internal/models"
)

// LedgerRepository persists sandbox state. Getters return nil, nil when the record does
// not exist.
type LedgerRepository interface {
	GetAccount(ctx context.Context, accountID string) (*models.Account, error)
	SaveAccount(ctx context.Context, account *models.Account) error
	GetAccessKey(ctx context.Context, accountID, publicKey string) (*models.AccessKey, error)
	GetAccessKeys(ctx context.Context, accountID string) ([]*models.AccessKey, error)
	SaveAccessKey(ctx context.Context, key *models.AccessKey) error
	DeleteAccessKey(ctx context.Context, accountID, publicKey string) error
	SaveOutcome(ctx context.Context, outcome *models.ExecutionOutcome) error
	GetOutcome(ctx context.Context, id string) (*models.ExecutionOutcome, error)
	GetOutcomesByTx(ctx context.Context, txHash string) ([]*models.ExecutionOutcome, error)
	SaveBlock(ctx context.Context, block *models.Block) error
	GetLatestBlock(ctx context.Context) (*models.Block, error)
	// WithTransaction runs fn against a repository bound to one database transaction.
	// Returning an error rolls back everything fn wrote.
	WithTransaction(ctx context.Context, fn func(repo LedgerRepository) error) error
}
