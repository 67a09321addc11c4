package ledger

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/customeros/mailbridge/internal/enum"
)

// Action is one primitive ledger operation. The set of implementations is closed.
type Action interface {
	Kind() enum.ActionKind
	isAction()
}

type CreateAccount struct{}

type Transfer struct {
	Deposit Balance `json:"deposit"`
}

type DeployContract struct {
	CodeID string `json:"code_id"`
}

type FunctionCall struct {
	MethodName string    `json:"method_name"`
	Args       []byte    `json:"args"`
	Deposit    Balance   `json:"deposit"`
	Gas        Gas       `json:"gas"`
	Weight     GasWeight `json:"weight,omitempty"`
}

type AddFullAccessKey struct {
	PublicKey PublicKey `json:"public_key"`
}

type DeleteKey struct {
	PublicKey PublicKey `json:"public_key"`
}

func (CreateAccount) Kind() enum.ActionKind    { return enum.ActionCreateAccount }
func (Transfer) Kind() enum.ActionKind         { return enum.ActionTransfer }
func (DeployContract) Kind() enum.ActionKind   { return enum.ActionDeployContract }
func (FunctionCall) Kind() enum.ActionKind     { return enum.ActionFunctionCall }
func (AddFullAccessKey) Kind() enum.ActionKind { return enum.ActionAddFullAccessKey }
func (DeleteKey) Kind() enum.ActionKind        { return enum.ActionDeleteKey }

func (CreateAccount) isAction()    {}
func (Transfer) isAction()         {}
func (DeployContract) isAction()   {}
func (FunctionCall) isAction()     {}
func (AddFullAccessKey) isAction() {}
func (DeleteKey) isAction()        {}

// TotalDeposit sums the balance attached to a batch of actions.
func TotalDeposit(actions []Action) Balance {
	total := Balance{}
	for _, a := range actions {
		switch act := a.(type) {
		case Transfer:
			total = total.Add(act.Deposit)
		case FunctionCall:
			total = total.Add(act.Deposit)
		}
	}
	return total
}

type actionEnvelope struct {
	Kind   enum.ActionKind `json:"kind"`
	Action json.RawMessage `json:"action"`
}

// Actions is a batch of actions with a tagged JSON encoding.
type Actions []Action

func (as Actions) MarshalJSON() ([]byte, error) {
	envelopes := make([]actionEnvelope, 0, len(as))
	for _, a := range as {
		body, err := json.Marshal(a)
		if err != nil {
			return nil, err
		}
		envelopes = append(envelopes, actionEnvelope{Kind: a.Kind(), Action: body})
	}
	return json.Marshal(envelopes)
}

func (as *Actions) UnmarshalJSON(data []byte) error {
	var envelopes []actionEnvelope
	if err := json.Unmarshal(data, &envelopes); err != nil {
		return err
	}
	out := make(Actions, 0, len(envelopes))
	for _, env := range envelopes {
		action, err := decodeAction(env)
		if err != nil {
			return err
		}
		out = append(out, action)
	}
	*as = out
	return nil
}

func decodeAction(env actionEnvelope) (Action, error) {
	var err error
	switch env.Kind {
	case enum.ActionCreateAccount:
		return CreateAccount{}, nil
	case enum.ActionTransfer:
		var a Transfer
		err = json.Unmarshal(env.Action, &a)
		return a, err
	case enum.ActionDeployContract:
		var a DeployContract
		err = json.Unmarshal(env.Action, &a)
		return a, err
	case enum.ActionFunctionCall:
		var a FunctionCall
		err = json.Unmarshal(env.Action, &a)
		return a, err
	case enum.ActionAddFullAccessKey:
		var a AddFullAccessKey
		err = json.Unmarshal(env.Action, &a)
		return a, err
	case enum.ActionDeleteKey:
		var a DeleteKey
		err = json.Unmarshal(env.Action, &a)
		return a, err
	default:
		return nil, errors.Errorf("unknown action kind %q", env.Kind)
	}
}
