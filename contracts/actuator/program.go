package actuator

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	mailbridge_errors "github.com/customeros/mailbridge/internal/errors"
	"github.com/customeros/mailbridge/internal/ledger"
)

// Program is the deployable form of the actuator.
type Program struct{}

var _ ledger.Contract = Program{}

func (Program) Call(_ context.Context, inv *ledger.Invocation, method string, args, state []byte) ([]byte, error) {
	if method == MethodNewContract {
		return newContract(args, state)
	}

	a, err := DecodeState(state)
	if err != nil {
		return nil, err
	}

	switch method {
	case MethodAddKey:
		var in AddKeyArgs
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return state, a.AddKey(inv, in.PublicKey)
	case MethodDeleteKey:
		var in DeleteKeyArgs
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return state, a.DeleteKey(inv, in.PublicKey)
	case MethodTransfer:
		var in TransferArgs
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return state, a.Transfer(inv, in.To, in.Amount)
	default:
		return nil, errors.Wrapf(mailbridge_errors.ErrMethodNotFound, "actuator has no method %q", method)
	}
}

func newContract(args, state []byte) ([]byte, error) {
	if len(state) != 0 {
		return nil, mailbridge_errors.ErrAlreadyInitialized
	}
	var in NewContractArgs
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if _, err := ledger.ParseAccountID(string(in.OwnerID)); err != nil {
		return nil, err
	}
	return json.Marshal(State{OwnerID: in.OwnerID})
}

func decodeArgs(args []byte, out interface{}) error {
	if err := json.Unmarshal(args, out); err != nil {
		return errors.Wrap(mailbridge_errors.ErrInvalidArguments, err.Error())
	}
	return nil
}
