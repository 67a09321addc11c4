package chain

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/mailbridge/interfaces"
	"github.com/customeros/mailbridge/internal/enum"
	mailbridge_errors "github.com/customeros/mailbridge/internal/errors"
	"github.com/customeros/mailbridge/internal/ledger"
	"github.com/customeros/mailbridge/internal/models"
	"github.com/customeros/mailbridge/internal/tracing"
)

// storageError marks failures of the repository itself. They abort block production
// instead of being recorded as a failed receipt.
type storageError struct {
	err error
}

func (e *storageError) Error() string { return e.err.Error() }
func (e *storageError) Unwrap() error { return e.err }

func storageErr(err error) error {
	if err == nil {
		return nil
	}
	return &storageError{err: err}
}

// ProduceBlock applies every receipt queued before the call. Receipts emitted while
// applying them are queued for the next block. It returns nil when nothing was pending.
func (s *Sandbox) ProduceBlock(ctx context.Context) (*models.Block, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Sandbox.ProduceBlock")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagComponentLedger(span)

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return nil, nil
	}

	latest, err := s.repo.GetLatestBlock(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	height := uint64(1)
	if latest != nil {
		height = latest.Height + 1
	}

	batch := s.pending
	s.pending = nil
	block := &models.Block{Height: height, ProducedAt: time.Now().UTC()}

	var next []*receipt
	for i, r := range batch {
		children, err := s.applyReceipt(ctx, r, height)
		if err != nil {
			s.pending = append(batch[i:len(batch):len(batch)], next...)
			tracing.TraceErr(span, err)
			return nil, errors.Wrapf(err, "apply receipt %s", r.ID)
		}
		block.ReceiptIDs = append(block.ReceiptIDs, r.ID)
		next = append(next, children...)
	}
	s.pending = append(s.pending, next...)

	if err := s.repo.SaveBlock(ctx, block); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	span.LogKV("height", height, "receipts", len(block.ReceiptIDs))
	s.log.Infof("Block %d produced with %d receipts, %d queued", height, len(block.ReceiptIDs), len(s.pending))
	return block, nil
}

// applyReceipt runs r atomically. A failed receipt leaves no trace besides its outcome
// and a refund of its deposits to the predecessor.
func (s *Sandbox) applyReceipt(ctx context.Context, r *receipt, height uint64) ([]*receipt, error) {
	outcome := &models.ExecutionOutcome{
		ID:          r.ID,
		Kind:        enum.OutcomeReceipt,
		TxHash:      r.TxHash,
		Signer:      r.Signer.String(),
		Predecessor: r.Predecessor.String(),
		Receiver:    r.Receiver.String(),
		Actions:     r.encodedActions(),
		BlockHeight: height,
	}

	var exec *execution
	err := s.repo.WithTransaction(ctx, func(repo interfaces.LedgerRepository) error {
		exec = &execution{sandbox: s, repo: repo, receipt: r}
		if err := exec.run(ctx); err != nil {
			return err
		}
		outcome.Status = enum.OutcomeSuccess
		outcome.Logs = exec.logs
		outcome.ReceiptIDs = receiptIDs(exec.children)
		outcome.GasBurnt = uint64(exec.gasBurnt)
		return storageErr(repo.SaveOutcome(ctx, outcome))
	})
	if err == nil {
		return exec.children, nil
	}

	var se *storageError
	if errors.As(err, &se) {
		return nil, se.err
	}
	if exec == nil {
		return nil, err
	}

	outcome.Status = enum.OutcomeFailure
	outcome.Error = err.Error()
	outcome.ErrorKind = mailbridge_errors.Kind(err)
	outcome.GasBurnt = uint64(exec.gasBurnt)
	if err := s.repo.WithTransaction(ctx, func(repo interfaces.LedgerRepository) error {
		if err := refund(ctx, repo, r); err != nil {
			return err
		}
		return repo.SaveOutcome(ctx, outcome)
	}); err != nil {
		return nil, err
	}

	s.log.Warnf("Receipt %s on %s failed: %v", r.ID, r.Receiver, err)
	return nil, nil
}

func refund(ctx context.Context, repo interfaces.LedgerRepository, r *receipt) error {
	deposit := ledger.TotalDeposit(r.Actions)
	if deposit.IsZero() {
		return nil
	}
	account, err := repo.GetAccount(ctx, r.Predecessor.String())
	if err != nil || account == nil {
		return err
	}
	balance, err := ledger.ParseBalance(account.Balance)
	if err != nil {
		return err
	}
	account.Balance = balance.Add(deposit).String()
	return repo.SaveAccount(ctx, account)
}

func receiptIDs(receipts []*receipt) []string {
	ids := make([]string, 0, len(receipts))
	for _, r := range receipts {
		ids = append(ids, r.ID)
	}
	return ids
}
