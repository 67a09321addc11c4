package command

import (
	"github.com/customeros/mailbridge/internal/enum"
	"github.com/customeros/mailbridge/internal/ledger"
)

// Command is the instruction carried in a verified email's subject line.
// Implementations: Init, AddKey, DeleteKey, Transfer.
type Command interface {
	Kind() enum.CommandKind
	isCommand()
}

type Init struct{}

type AddKey struct {
	Key string `json:"key"`
}

type DeleteKey struct{}

type Transfer struct {
	To     ledger.AccountID `json:"to"`
	Amount ledger.Balance   `json:"amount"`
}

func (Init) Kind() enum.CommandKind      { return enum.CommandInit }
func (AddKey) Kind() enum.CommandKind    { return enum.CommandAddKey }
func (DeleteKey) Kind() enum.CommandKind { return enum.CommandDeleteKey }
func (Transfer) Kind() enum.CommandKind  { return enum.CommandTransfer }

func (Init) isCommand()      {}
func (AddKey) isCommand()    {}
func (DeleteKey) isCommand() {}
func (Transfer) isCommand()  {}
