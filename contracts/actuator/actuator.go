package actuator

import (
	"encoding/json"

	"github.com/pkg/errors"

	mailbridge_errors "github.com/customeros/mailbridge/internal/errors"
	"github.com/customeros/mailbridge/internal/ledger"
)

const CodeID = "actuator"

const (
	MethodNewContract = "new_contract"
	MethodAddKey      = "add_key"
	MethodDeleteKey   = "delete_key"
	MethodTransfer    = "transfer"
)

type NewContractArgs struct {
	OwnerID ledger.AccountID `json:"owner_id"`
}

type AddKeyArgs struct {
	PublicKey ledger.PublicKey `json:"public_key"`
}

type DeleteKeyArgs struct {
	PublicKey ledger.PublicKey `json:"public_key"`
}

type TransferArgs struct {
	To     ledger.AccountID `json:"to"`
	Amount ledger.Balance   `json:"amount"`
}

// State is the persisted form of an Actuator.
type State struct {
	OwnerID ledger.AccountID `json:"owner_id"`
}

// Actuator holds an identity's privileges and obeys a single owner fixed at construction.
type Actuator struct {
	owner ledger.AccountID
}

func New(owner ledger.AccountID) *Actuator {
	return &Actuator{owner: owner}
}

func (a *Actuator) Owner() ledger.AccountID {
	return a.owner
}

func (a *Actuator) AddKey(inv *ledger.Invocation, key ledger.PublicKey) error {
	if err := a.authorize(inv); err != nil {
		return err
	}
	inv.Send(ledger.NewPromise(inv.CurrentAccount).AddFullAccessKey(key))
	return nil
}

func (a *Actuator) DeleteKey(inv *ledger.Invocation, key ledger.PublicKey) error {
	if err := a.authorize(inv); err != nil {
		return err
	}
	inv.Send(ledger.NewPromise(inv.CurrentAccount).DeleteKey(key))
	return nil
}

func (a *Actuator) Transfer(inv *ledger.Invocation, to ledger.AccountID, amount ledger.Balance) error {
	if err := a.authorize(inv); err != nil {
		return err
	}
	inv.Send(ledger.NewPromise(to).Transfer(amount))
	return nil
}

func (a *Actuator) authorize(inv *ledger.Invocation) error {
	if inv.Predecessor != a.owner {
		return errors.Wrapf(mailbridge_errors.ErrUnauthorizedCaller, "caller %s, owner %s", inv.Predecessor, a.owner)
	}
	return nil
}

// DecodeState restores an Actuator from account storage.
func DecodeState(state []byte) (*Actuator, error) {
	if len(state) == 0 {
		return nil, mailbridge_errors.ErrContractNotInitialized
	}
	var s State
	if err := json.Unmarshal(state, &s); err != nil {
		return nil, errors.Wrap(err, "decode actuator state")
	}
	return New(s.OwnerID), nil
}
