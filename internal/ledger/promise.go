package ledger

// Promise is a one-way batch of actions addressed to a single receiver. Once sent it is
// executed by the host in a later receipt; the sender never observes the result.
type Promise struct {
	Receiver AccountID
	Actions  Actions
}

func NewPromise(receiver AccountID) *Promise {
	return &Promise{Receiver: receiver}
}

func (p *Promise) CreateAccount() *Promise {
	p.Actions = append(p.Actions, CreateAccount{})
	return p
}

func (p *Promise) Transfer(amount Balance) *Promise {
	p.Actions = append(p.Actions, Transfer{Deposit: amount})
	return p
}

func (p *Promise) DeployContract(codeID string) *Promise {
	p.Actions = append(p.Actions, DeployContract{CodeID: codeID})
	return p
}

func (p *Promise) FunctionCall(method string, args []byte, deposit Balance, gas Gas) *Promise {
	return p.FunctionCallWeight(method, args, deposit, gas, 0)
}

// FunctionCallWeight schedules a call with static gas plus a weighted share of whatever
// prepaid gas the current invocation leaves unused.
func (p *Promise) FunctionCallWeight(method string, args []byte, deposit Balance, gas Gas, weight GasWeight) *Promise {
	p.Actions = append(p.Actions, FunctionCall{
		MethodName: method,
		Args:       args,
		Deposit:    deposit,
		Gas:        gas,
		Weight:     weight,
	})
	return p
}

func (p *Promise) AddFullAccessKey(key PublicKey) *Promise {
	p.Actions = append(p.Actions, AddFullAccessKey{PublicKey: key})
	return p
}

func (p *Promise) DeleteKey(key PublicKey) *Promise {
	p.Actions = append(p.Actions, DeleteKey{PublicKey: key})
	return p
}
