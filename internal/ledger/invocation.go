package ledger

import (
	"fmt"

	"github.com/pkg/errors"

	mailbridge_errors "github.com/customeros/mailbridge/internal/errors"
)

// Invocation is the environment of one contract call. Promises and logs are buffered here
// and only take effect if the call returns without error.
type Invocation struct {
	CurrentAccount  AccountID
	Predecessor     AccountID
	Signer          AccountID
	AttachedDeposit Balance
	PrepaidGas      Gas

	usedGas  Gas
	promises []*Promise
	logs     []string
}

func NewInvocation(current, predecessor, signer AccountID, deposit Balance, prepaid Gas) *Invocation {
	return &Invocation{
		CurrentAccount:  current,
		Predecessor:     predecessor,
		Signer:          signer,
		AttachedDeposit: deposit,
		PrepaidGas:      prepaid,
	}
}

// Send queues a one-way promise. There is no way to attach a callback.
func (inv *Invocation) Send(p *Promise) {
	inv.promises = append(inv.promises, p)
}

func (inv *Invocation) Log(msg string) {
	inv.logs = append(inv.logs, msg)
}

func (inv *Invocation) Logf(format string, args ...interface{}) {
	inv.Log(fmt.Sprintf(format, args...))
}

func (inv *Invocation) UseGas(g Gas) error {
	if g > inv.PrepaidGas-inv.usedGas {
		inv.usedGas = inv.PrepaidGas
		return errors.Wrapf(mailbridge_errors.ErrGasExceeded, "need %d, prepaid %d", g, inv.PrepaidGas)
	}
	inv.usedGas += g
	return nil
}

func (inv *Invocation) UsedGas() Gas {
	return inv.usedGas
}

func (inv *Invocation) RemainingGas() Gas {
	return inv.PrepaidGas - inv.usedGas
}

func (inv *Invocation) Promises() []*Promise {
	return inv.promises
}

func (inv *Invocation) Logs() []string {
	return inv.logs
}
