package interfaces

import (
	"context"

	"github.com/customeros/mailbridge/dto"
	"github.com/customeros/mailbridge/internal/ledger"
	"github.com/customeros/mailbridge/internal/models"
)

// ChainClient is the ledger surface the relay needs.
type ChainClient interface {
	Submit(ctx context.Context, tx ledger.SignedTransaction) (string, error)
	ViewAccessKey(ctx context.Context, accountID ledger.AccountID, key ledger.PublicKey) (*dto.AccessKeyView, error)
}

type Submitter interface {
	SubmitEmail(ctx context.Context, email *dto.EmailReceived) (*dto.SubmitEmailResponse, error)
}

type BlockProducer interface {
	ProduceBlock(ctx context.Context) (*models.Block, error)
}

// LedgerViewer is the read-only ledger surface served over the API.
type LedgerViewer interface {
	ViewAccount(ctx context.Context, accountID ledger.AccountID) (*dto.AccountView, error)
	Outcome(ctx context.Context, id string) (*dto.OutcomeView, error)
	OutcomesByTx(ctx context.Context, txHash string) ([]*dto.OutcomeView, error)
	LatestBlock(ctx context.Context) (*dto.BlockView, error)
}

type EmailVerifier interface {
	Verify(raw []byte, bridgeAccount ledger.AccountID) dto.VerifyEmailResponse
}
