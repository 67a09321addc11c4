package chain

import (
	"context"
	"math/bits"

	"github.com/pkg/errors"

	"github.com/customeros/mailbridge/interfaces"
	mailbridge_errors "github.com/customeros/mailbridge/internal/errors"
	"github.com/customeros/mailbridge/internal/ledger"
	"github.com/customeros/mailbridge/internal/models"
)

// execution applies one receipt inside a repository transaction.
type execution struct {
	sandbox *Sandbox
	repo    interfaces.LedgerRepository
	receipt *receipt

	account  *models.Account
	balance  ledger.Balance
	created  bool
	logs     []string
	children []*receipt
	gasBurnt ledger.Gas
}

func (e *execution) run(ctx context.Context) error {
	account, err := e.repo.GetAccount(ctx, e.receipt.Receiver.String())
	if err != nil {
		return storageErr(err)
	}
	if account != nil {
		balance, err := ledger.ParseBalance(account.Balance)
		if err != nil {
			return storageErr(err)
		}
		e.account = account
		e.balance = balance
	}

	for _, action := range e.receipt.Actions {
		if e.account == nil {
			if _, ok := action.(ledger.CreateAccount); !ok {
				return errors.Wrapf(mailbridge_errors.ErrAccountNotFound, "receiver %s", e.receipt.Receiver)
			}
		}

		switch a := action.(type) {
		case ledger.CreateAccount:
			err = e.createAccount()
		case ledger.Transfer:
			e.balance = e.balance.Add(a.Deposit)
		case ledger.DeployContract:
			err = e.deployContract(a)
		case ledger.FunctionCall:
			err = e.functionCall(ctx, a)
		case ledger.AddFullAccessKey:
			err = e.addKey(ctx, a)
		case ledger.DeleteKey:
			err = e.deleteKey(ctx, a)
		default:
			err = errors.Errorf("unsupported action %T", action)
		}
		if err != nil {
			return err
		}
	}

	e.account.Balance = e.balance.String()
	return storageErr(e.repo.SaveAccount(ctx, e.account))
}

func (e *execution) createAccount() error {
	if e.account != nil {
		return errors.Wrapf(mailbridge_errors.ErrAccountExists, "%s", e.receipt.Receiver)
	}
	if !e.receipt.Receiver.IsDirectSubAccountOf(e.receipt.Predecessor) {
		return errors.Wrapf(mailbridge_errors.ErrActorNoPermission, "%s cannot create %s", e.receipt.Predecessor, e.receipt.Receiver)
	}
	e.account = &models.Account{AccountID: e.receipt.Receiver.String()}
	e.balance = ledger.Balance{}
	e.created = true
	return nil
}

// requireOwner guards actions only the account itself may perform, or its creator
// within the creating receipt.
func (e *execution) requireOwner(what string) error {
	if e.created || e.receipt.Predecessor == e.receipt.Receiver {
		return nil
	}
	return errors.Wrapf(mailbridge_errors.ErrActorNoPermission, "%s cannot %s on %s", e.receipt.Predecessor, what, e.receipt.Receiver)
}

func (e *execution) deployContract(a ledger.DeployContract) error {
	if err := e.requireOwner("deploy"); err != nil {
		return err
	}
	if _, ok := e.sandbox.contracts[a.CodeID]; !ok {
		return errors.Wrapf(mailbridge_errors.ErrUnknownCode, "%q", a.CodeID)
	}
	e.account.CodeID = a.CodeID
	return nil
}

func (e *execution) addKey(ctx context.Context, a ledger.AddFullAccessKey) error {
	if err := e.requireOwner("add key"); err != nil {
		return err
	}
	existing, err := e.repo.GetAccessKey(ctx, e.account.AccountID, a.PublicKey.String())
	if err != nil {
		return storageErr(err)
	}
	if existing != nil {
		return errors.Wrapf(mailbridge_errors.ErrKeyExists, "%s on %s", a.PublicKey, e.account.AccountID)
	}
	return storageErr(e.repo.SaveAccessKey(ctx, newAccessKey(e.receipt.Receiver, a.PublicKey)))
}

func (e *execution) deleteKey(ctx context.Context, a ledger.DeleteKey) error {
	if err := e.requireOwner("delete key"); err != nil {
		return err
	}
	existing, err := e.repo.GetAccessKey(ctx, e.account.AccountID, a.PublicKey.String())
	if err != nil {
		return storageErr(err)
	}
	if existing == nil {
		return errors.Wrapf(mailbridge_errors.ErrKeyNotFound, "%s on %s", a.PublicKey, e.account.AccountID)
	}
	return storageErr(e.repo.DeleteAccessKey(ctx, e.account.AccountID, a.PublicKey.String()))
}

func (e *execution) functionCall(ctx context.Context, fc ledger.FunctionCall) error {
	e.balance = e.balance.Add(fc.Deposit)

	if e.account.CodeID == "" {
		return errors.Wrapf(mailbridge_errors.ErrContractNotDeployed, "%s", e.account.AccountID)
	}
	contract, ok := e.sandbox.contracts[e.account.CodeID]
	if !ok {
		return errors.Wrapf(mailbridge_errors.ErrUnknownCode, "%q on %s", e.account.CodeID, e.account.AccountID)
	}

	inv := ledger.NewInvocation(e.receipt.Receiver, e.receipt.Predecessor, e.receipt.Signer, fc.Deposit, fc.Gas)
	defer func() { e.gasBurnt += inv.UsedGas() }()

	if err := inv.UseGas(e.sandbox.cfg.BaseCallGas); err != nil {
		return err
	}

	state, err := contract.Call(ctx, inv, fc.MethodName, fc.Args, e.account.State)
	if err != nil {
		return errors.Wrapf(err, "%s.%s", e.account.AccountID, fc.MethodName)
	}
	if err := e.settle(inv); err != nil {
		return err
	}

	e.account.State = state
	e.logs = append(e.logs, inv.Logs()...)
	return nil
}

// settle turns the promises of a finished call into receipts. Static gas must fit in
// what the call left unused; the rest is shared out by weight. Promise deposits leave
// the calling account.
func (e *execution) settle(inv *ledger.Invocation) error {
	promises := inv.Promises()
	if len(promises) == 0 {
		return nil
	}

	remaining := inv.RemainingGas()
	var static ledger.Gas
	var weights uint64
	deposit := ledger.Balance{}
	for _, p := range promises {
		deposit = deposit.Add(ledger.TotalDeposit(p.Actions))
		for _, a := range p.Actions {
			if fc, ok := a.(ledger.FunctionCall); ok {
				static += fc.Gas
				var carry uint64
				weights, carry = bits.Add64(weights, uint64(fc.Weight), 0)
				if carry != 0 {
					return errors.Wrap(mailbridge_errors.ErrGasExceeded, "gas weights overflow")
				}
			}
		}
	}
	if static > remaining {
		return errors.Wrapf(mailbridge_errors.ErrGasExceeded, "promises need %d, %d left", static, remaining)
	}
	if e.balance.Cmp(deposit) < 0 {
		return errors.Wrapf(mailbridge_errors.ErrInsufficientBalance, "%s has %s, promises need %s", e.account.AccountID, e.balance, deposit)
	}
	e.balance = e.balance.Sub(deposit)

	leftover := remaining - static
	for _, p := range promises {
		actions := make(ledger.Actions, len(p.Actions))
		for i, a := range p.Actions {
			if fc, ok := a.(ledger.FunctionCall); ok && fc.Weight > 0 {
				fc.Gas += weightedShare(leftover, fc.Weight, weights)
				fc.Weight = 0
				a = fc
			}
			actions[i] = a
		}
		e.children = append(e.children, &receipt{
			ID:          receiptID(e.receipt.ID, len(e.children)),
			TxHash:      e.receipt.TxHash,
			Signer:      e.receipt.Signer,
			Predecessor: e.receipt.Receiver,
			Receiver:    p.Receiver,
			Actions:     actions,
		})
	}
	return nil
}

// weightedShare is leftover*weight/total without overflowing the intermediate product.
// weight must not exceed total.
func weightedShare(leftover ledger.Gas, weight ledger.GasWeight, total uint64) ledger.Gas {
	hi, lo := bits.Mul64(uint64(leftover), uint64(weight))
	share, _ := bits.Div64(hi, lo, total)
	return ledger.Gas(share)
}
