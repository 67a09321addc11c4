package chain

import (
	"context"
	"sync"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/mailbridge/interfaces"
	mailbridge_errors "github.com/customeros/mailbridge/internal/errors"
	"github.com/customeros/mailbridge/internal/ledger"
	"github.com/customeros/mailbridge/internal/logger"
	"github.com/customeros/mailbridge/internal/models"
	"github.com/customeros/mailbridge/internal/tracing"
)

type Config struct {
	// BaseCallGas is burnt by every function call before the contract runs.
	BaseCallGas ledger.Gas
}

func DefaultConfig() Config {
	return Config{BaseCallGas: 5 * ledger.TGas}
}

// Sandbox is an in-process ledger host. Transactions are turned into receipts that run
// in the next block; promises emitted by a receipt run in the block after that.
//
// Pending receipts live in memory only and are lost on restart. Applied state is
// persisted through the LedgerRepository.
type Sandbox struct {
	cfg  Config
	log  logger.Logger
	repo interfaces.LedgerRepository

	mu        sync.Mutex
	contracts map[string]ledger.Contract
	pending   []*receipt
}

func NewSandbox(cfg Config, log logger.Logger, repo interfaces.LedgerRepository) *Sandbox {
	return &Sandbox{
		cfg:       cfg,
		log:       log,
		repo:      repo,
		contracts: make(map[string]ledger.Contract),
	}
}

// Register makes a program deployable under codeID.
func (s *Sandbox) Register(codeID string, contract ledger.Contract) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contracts[codeID] = contract
}

var _ interfaces.ChainClient = (*Sandbox)(nil)

type GenesisAccount struct {
	AccountID ledger.AccountID
	Balance   ledger.Balance
	CodeID    string
	Keys      []ledger.PublicKey
}

// Genesis creates the given accounts if they do not exist yet. Existing accounts are
// left untouched, so it is safe to run on every start.
func (s *Sandbox) Genesis(ctx context.Context, accounts ...GenesisAccount) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Sandbox.Genesis")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagComponentLedger(span)

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.repo.WithTransaction(ctx, func(repo interfaces.LedgerRepository) error {
		for _, ga := range accounts {
			if ga.CodeID != "" {
				if _, ok := s.contracts[ga.CodeID]; !ok {
					return errors.Wrapf(mailbridge_errors.ErrUnknownCode, "genesis account %s", ga.AccountID)
				}
			}

			existing, err := repo.GetAccount(ctx, ga.AccountID.String())
			if err != nil {
				return err
			}
			if existing != nil {
				s.log.Infof("Genesis account %s already exists", ga.AccountID)
				continue
			}

			if err := repo.SaveAccount(ctx, &models.Account{
				AccountID: ga.AccountID.String(),
				Balance:   ga.Balance.String(),
				CodeID:    ga.CodeID,
			}); err != nil {
				return err
			}
			for _, key := range ga.Keys {
				if err := repo.SaveAccessKey(ctx, newAccessKey(ga.AccountID, key)); err != nil {
					return err
				}
			}
			s.log.Infof("Genesis account %s created with balance %s", ga.AccountID, ga.Balance)
		}
		return nil
	})
}

// PendingReceipts is the number of receipts waiting for the next block.
func (s *Sandbox) PendingReceipts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func newAccessKey(account ledger.AccountID, key ledger.PublicKey) *models.AccessKey {
	return &models.AccessKey{
		AccountID:  account.String(),
		PublicKey:  key.String(),
		Permission: permissionFullAccess,
	}
}

const permissionFullAccess = "FullAccess"
