package chain

import (
	"context"
	"encoding/json"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/mailbridge/contracts/actuator"
	"github.com/customeros/mailbridge/dto"
	mailbridge_errors "github.com/customeros/mailbridge/internal/errors"
	"github.com/customeros/mailbridge/internal/ledger"
	"github.com/customeros/mailbridge/internal/models"
	"github.com/customeros/mailbridge/internal/tracing"
)

func (s *Sandbox) ViewAccount(ctx context.Context, accountID ledger.AccountID) (*dto.AccountView, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Sandbox.ViewAccount")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagAccount(span, accountID.String())

	account, err := s.repo.GetAccount(ctx, accountID.String())
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if account == nil {
		return nil, errors.Wrapf(mailbridge_errors.ErrAccountNotFound, "%s", accountID)
	}

	keys, err := s.repo.GetAccessKeys(ctx, accountID.String())
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	view := &dto.AccountView{
		AccountID: account.AccountID,
		Balance:   account.Balance,
		CodeID:    account.CodeID,
		Keys:      make([]dto.AccessKeyView, 0, len(keys)),
	}
	if len(account.State) > 0 {
		view.State = json.RawMessage(account.State)
	}
	if account.CodeID == actuator.CodeID {
		if a, err := actuator.DecodeState(account.State); err == nil {
			view.Owner = a.Owner().String()
		}
	}
	for _, k := range keys {
		view.Keys = append(view.Keys, accessKeyView(k))
	}
	return view, nil
}

func (s *Sandbox) ViewAccessKey(ctx context.Context, accountID ledger.AccountID, key ledger.PublicKey) (*dto.AccessKeyView, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Sandbox.ViewAccessKey")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagAccount(span, accountID.String())

	k, err := s.repo.GetAccessKey(ctx, accountID.String(), key.String())
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if k == nil {
		return nil, errors.Wrapf(mailbridge_errors.ErrKeyNotFound, "%s on %s", key, accountID)
	}
	view := accessKeyView(k)
	return &view, nil
}

// Outcome returns the outcome of a transaction hash or a receipt id.
func (s *Sandbox) Outcome(ctx context.Context, id string) (*dto.OutcomeView, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Sandbox.Outcome")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, id)

	outcome, err := s.repo.GetOutcome(ctx, id)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if outcome == nil {
		return nil, nil
	}
	return outcomeView(outcome), nil
}

// OutcomesByTx returns the transaction outcome followed by every receipt it caused,
// in block order.
func (s *Sandbox) OutcomesByTx(ctx context.Context, txHash string) ([]*dto.OutcomeView, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Sandbox.OutcomesByTx")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagTxHash(span, txHash)

	outcomes, err := s.repo.GetOutcomesByTx(ctx, txHash)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	views := make([]*dto.OutcomeView, 0, len(outcomes))
	for _, o := range outcomes {
		views = append(views, outcomeView(o))
	}
	return views, nil
}

func (s *Sandbox) LatestBlock(ctx context.Context) (*dto.BlockView, error) {
	block, err := s.repo.GetLatestBlock(ctx)
	if err != nil || block == nil {
		return nil, err
	}
	return &dto.BlockView{Height: block.Height, ReceiptIDs: block.ReceiptIDs, ProducedAt: block.ProducedAt}, nil
}

func accessKeyView(k *models.AccessKey) dto.AccessKeyView {
	return dto.AccessKeyView{PublicKey: k.PublicKey, Nonce: k.Nonce, Permission: k.Permission}
}

func outcomeView(o *models.ExecutionOutcome) *dto.OutcomeView {
	view := &dto.OutcomeView{
		ID:          o.ID,
		Kind:        string(o.Kind),
		TxHash:      o.TxHash,
		Signer:      o.Signer,
		Predecessor: o.Predecessor,
		Receiver:    o.Receiver,
		Status:      string(o.Status),
		Error:       o.Error,
		ErrorKind:   o.ErrorKind,
		Logs:        o.Logs,
		ReceiptIDs:  o.ReceiptIDs,
		GasBurnt:    o.GasBurnt,
		BlockHeight: o.BlockHeight,
		CreatedAt:   o.CreatedAt,
	}
	if len(o.Actions) > 0 {
		view.Actions = json.RawMessage(o.Actions)
	}
	if view.Logs == nil {
		view.Logs = []string{}
	}
	if view.ReceiptIDs == nil {
		view.ReceiptIDs = []string{}
	}
	return view
}
