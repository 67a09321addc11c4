package chain

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/mr-tron/base58"

	"github.com/customeros/mailbridge/internal/ledger"
)

// receipt is a batch of actions applied atomically to one receiver.
type receipt struct {
	ID          string
	TxHash      string
	Signer      ledger.AccountID
	Predecessor ledger.AccountID
	Receiver    ledger.AccountID
	Actions     ledger.Actions
}

// receiptID derives a child id from its parent (a tx hash or another receipt id).
func receiptID(parent string, index int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", parent, index)))
	return base58.Encode(sum[:])
}

func (r *receipt) encodedActions() []byte {
	body, err := json.Marshal(r.Actions)
	if err != nil {
		return nil
	}
	return body
}
