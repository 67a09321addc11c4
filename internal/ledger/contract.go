package ledger

import "context"

// Contract is a program deployed to an account. Call receives the account's current state
// and returns the state to persist. A non-nil error rolls back the whole invocation.
type Contract interface {
	Call(ctx context.Context, inv *Invocation, method string, args, state []byte) ([]byte, error)
}

// ContractFunc adapts a function to the Contract interface.
type ContractFunc func(ctx context.Context, inv *Invocation, method string, args, state []byte) ([]byte, error)

func (f ContractFunc) Call(ctx context.Context, inv *Invocation, method string, args, state []byte) ([]byte, error) {
	return f(ctx, inv, method, args, state)
}
