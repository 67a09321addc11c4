package dto

import (
	"encoding/json"
	"time"
)

type AccessKeyView struct {
	PublicKey  string `json:"publicKey"`
	Nonce      uint64 `json:"nonce"`
	Permission string `json:"permission"`
}

type AccountView struct {
	AccountID string          `json:"accountId"`
	Balance   string          `json:"balance"`
	CodeID    string          `json:"codeId,omitempty"`
	Owner     string          `json:"owner,omitempty"`
	State     json.RawMessage `json:"state,omitempty"`
	Keys      []AccessKeyView `json:"keys"`
}

type OutcomeView struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"`
	TxHash      string          `json:"txHash"`
	Signer      string          `json:"signer"`
	Predecessor string          `json:"predecessor,omitempty"`
	Receiver    string          `json:"receiver"`
	Actions     json.RawMessage `json:"actions,omitempty"`
	Status      string          `json:"status"`
	Error       string          `json:"error,omitempty"`
	ErrorKind   string          `json:"errorKind,omitempty"`
	Logs        []string        `json:"logs"`
	ReceiptIDs  []string        `json:"receiptIds"`
	GasBurnt    uint64          `json:"gasBurnt"`
	BlockHeight uint64          `json:"blockHeight"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type BlockView struct {
	Height     uint64    `json:"height"`
	ReceiptIDs []string  `json:"receiptIds"`
	ProducedAt time.Time `json:"producedAt"`
}
