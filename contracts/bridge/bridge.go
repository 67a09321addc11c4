package bridge

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/customeros/mailbridge/contracts/actuator"
	"github.com/customeros/mailbridge/internal/command"
	mailbridge_errors "github.com/customeros/mailbridge/internal/errors"
	"github.com/customeros/mailbridge/internal/identity"
	"github.com/customeros/mailbridge/internal/ledger"
	"github.com/customeros/mailbridge/internal/mailauth"
)

// Bridge turns authenticated email into instructions for per-sender actuators. It keeps
// no state of its own: every receive_email call stands alone.
type Bridge struct {
	cfg  Config
	auth *mailauth.Authenticator
}

var _ ledger.Contract = (*Bridge)(nil)

func New(cfg Config, auth *mailauth.Authenticator) *Bridge {
	return &Bridge{cfg: cfg, auth: auth}
}

// Plan is the outcome of authenticating and parsing one email, before dispatch.
type Plan struct {
	Email   *mailauth.VerifiedEmail `json:"email"`
	Prefix  string                  `json:"prefix"`
	Account ledger.AccountID        `json:"account"`
	Command command.Command         `json:"command"`
}

func (b *Bridge) Call(_ context.Context, inv *ledger.Invocation, method string, args, state []byte) ([]byte, error) {
	if method != MethodReceiveEmail {
		return nil, errors.Wrapf(mailbridge_errors.ErrMethodNotFound, "bridge has no method %q", method)
	}

	var in ReceiveEmailArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, errors.Wrap(mailbridge_errors.ErrInvalidArguments, err.Error())
	}
	return state, b.ReceiveEmail(inv, in.FullEmail)
}

// ReceiveEmail authenticates raw, maps its sender, parses its subject and sends the
// resulting instruction. Nothing is sent unless every stage succeeds.
func (b *Bridge) ReceiveEmail(inv *ledger.Invocation, raw []byte) error {
	plan, err := b.evaluate(raw, inv.CurrentAccount, inv.Logf)
	if err != nil {
		return err
	}
	return b.dispatch(inv, plan)
}

// Evaluate runs the read-only stages of receive_email for bridgeAccount.
func (b *Bridge) Evaluate(raw []byte, bridgeAccount ledger.AccountID) (*Plan, error) {
	return b.evaluate(raw, bridgeAccount, func(string, ...interface{}) {})
}

func (b *Bridge) evaluate(raw []byte, bridgeAccount ledger.AccountID, logf func(string, ...interface{})) (*Plan, error) {
	email, err := b.auth.Verify(raw)
	if err != nil {
		return nil, err
	}
	logf("Email verified: %s", email.Sender)

	prefix, err := identity.FromSender(email.Sender)
	if err != nil {
		return nil, err
	}
	logf("Account prefix is: %s", prefix)

	cmd, err := command.Parse(email.Subject)
	if err != nil {
		return nil, err
	}

	account, err := identity.Account(prefix, bridgeAccount)
	if err != nil {
		return nil, err
	}

	return &Plan{Email: email, Prefix: prefix, Account: account, Command: cmd}, nil
}

func (b *Bridge) dispatch(inv *ledger.Invocation, plan *Plan) error {
	switch cmd := plan.Command.(type) {
	case command.Init:
		return b.createActuator(inv, plan.Account)
	case command.AddKey:
		return b.addKey(inv, plan.Account, cmd.Key)
	case command.Transfer:
		return b.transfer(inv, plan.Account, cmd.To, cmd.Amount)
	case command.DeleteKey:
		return errors.Wrap(mailbridge_errors.ErrUnimplemented, "delete_key")
	default:
		return errors.Errorf("unhandled command %T", cmd)
	}
}

func (b *Bridge) createActuator(inv *ledger.Invocation, account ledger.AccountID) error {
	args, err := json.Marshal(actuator.NewContractArgs{OwnerID: inv.CurrentAccount})
	if err != nil {
		return err
	}

	inv.Send(ledger.NewPromise(account).
		CreateAccount().
		Transfer(b.cfg.MinReserve).
		DeployContract(b.cfg.ActuatorCodeID).
		FunctionCall(actuator.MethodNewContract, args, ledger.Balance{}, b.cfg.InitGas))
	return nil
}

func (b *Bridge) addKey(inv *ledger.Invocation, account ledger.AccountID, key string) error {
	publicKey, err := ledger.ParsePublicKey(key)
	if err != nil {
		return err
	}
	args, err := json.Marshal(actuator.AddKeyArgs{PublicKey: publicKey})
	if err != nil {
		return err
	}

	inv.Send(ledger.NewPromise(account).
		FunctionCallWeight(actuator.MethodAddKey, args, ledger.Balance{}, b.cfg.CallGas, b.cfg.CallWeight))
	return nil
}

func (b *Bridge) transfer(inv *ledger.Invocation, account, to ledger.AccountID, amount ledger.Balance) error {
	args, err := json.Marshal(actuator.TransferArgs{To: to, Amount: amount})
	if err != nil {
		return err
	}

	inv.Send(ledger.NewPromise(account).
		FunctionCallWeight(actuator.MethodTransfer, args, ledger.Balance{}, b.cfg.CallGas, b.cfg.CallWeight))
	return nil
}
