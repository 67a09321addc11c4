package chain

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/mailbridge/interfaces"
	"github.com/customeros/mailbridge/internal/enum"
	mailbridge_errors "github.com/customeros/mailbridge/internal/errors"
	"github.com/customeros/mailbridge/internal/ledger"
	"github.com/customeros/mailbridge/internal/models"
	"github.com/customeros/mailbridge/internal/tracing"
)

// Submit validates a signed transaction and queues its receipt for the next block.
// The signer's access key nonce must advance by exactly one.
func (s *Sandbox) Submit(ctx context.Context, stx ledger.SignedTransaction) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Sandbox.Submit")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagComponentLedger(span)

	tx := stx.Transaction
	tracing.TagAccount(span, tx.SignerID.String())

	if err := stx.Verify(); err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}
	hash, err := stx.Hash()
	if err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}
	tracing.TagTxHash(span, hash)
	if len(tx.Actions) == 0 {
		return "", errors.Wrap(mailbridge_errors.ErrInvalidArguments, "transaction has no actions")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rcpt := &receipt{
		ID:          receiptID(hash, 0),
		TxHash:      hash,
		Signer:      tx.SignerID,
		Predecessor: tx.SignerID,
		Receiver:    tx.ReceiverID,
		Actions:     tx.Actions,
	}

	err = s.repo.WithTransaction(ctx, func(repo interfaces.LedgerRepository) error {
		signer, err := repo.GetAccount(ctx, tx.SignerID.String())
		if err != nil {
			return err
		}
		if signer == nil {
			return errors.Wrapf(mailbridge_errors.ErrAccountNotFound, "signer %s", tx.SignerID)
		}

		key, err := repo.GetAccessKey(ctx, tx.SignerID.String(), tx.PublicKey.String())
		if err != nil {
			return err
		}
		if key == nil {
			return errors.Wrapf(mailbridge_errors.ErrKeyNotFound, "signer %s key %s", tx.SignerID, tx.PublicKey)
		}
		if tx.Nonce != key.Nonce+1 {
			return errors.Wrapf(mailbridge_errors.ErrInvalidNonce, "expected %d, got %d", key.Nonce+1, tx.Nonce)
		}

		balance, err := ledger.ParseBalance(signer.Balance)
		if err != nil {
			return err
		}
		deposit := ledger.TotalDeposit(tx.Actions)
		if balance.Cmp(deposit) < 0 {
			return errors.Wrapf(mailbridge_errors.ErrInsufficientBalance, "signer %s has %s, needs %s", tx.SignerID, balance, deposit)
		}

		signer.Balance = balance.Sub(deposit).String()
		if err := repo.SaveAccount(ctx, signer); err != nil {
			return err
		}
		key.Nonce = tx.Nonce
		if err := repo.SaveAccessKey(ctx, key); err != nil {
			return err
		}

		return repo.SaveOutcome(ctx, &models.ExecutionOutcome{
			ID:         hash,
			Kind:       enum.OutcomeTransaction,
			TxHash:     hash,
			Signer:     tx.SignerID.String(),
			Receiver:   tx.ReceiverID.String(),
			Actions:    rcpt.encodedActions(),
			Status:     enum.OutcomeSuccess,
			ReceiptIDs: []string{rcpt.ID},
		})
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}

	s.pending = append(s.pending, rcpt)
	s.log.Infof("Transaction %s from %s to %s accepted with nonce %d", hash, tx.SignerID, tx.ReceiverID, tx.Nonce)
	return hash, nil
}
