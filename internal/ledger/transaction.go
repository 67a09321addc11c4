package ledger

import (
	"crypto/sha256"
	"encoding/json"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	mailbridge_errors "github.com/customeros/mailbridge/internal/errors"
)

type Transaction struct {
	SignerID   AccountID `json:"signer_id"`
	PublicKey  PublicKey `json:"public_key"`
	Nonce      uint64    `json:"nonce"`
	ReceiverID AccountID `json:"receiver_id"`
	Actions    Actions   `json:"actions"`
}

// SigningHash is the sha256 of the transaction's canonical JSON encoding.
func (tx Transaction) SigningHash() ([]byte, error) {
	body, err := json.Marshal(tx)
	if err != nil {
		return nil, errors.Wrap(err, "encode transaction")
	}
	sum := sha256.Sum256(body)
	return sum[:], nil
}

func (tx Transaction) Sign(key SecretKey) (SignedTransaction, error) {
	digest, err := tx.SigningHash()
	if err != nil {
		return SignedTransaction{}, err
	}
	return SignedTransaction{Transaction: tx, Signature: key.Sign(digest)}, nil
}

type SignedTransaction struct {
	Transaction Transaction `json:"transaction"`
	Signature   []byte      `json:"signature"`
}

// Hash is the base58 transaction hash used to look up its outcome.
func (stx SignedTransaction) Hash() (string, error) {
	digest, err := stx.Transaction.SigningHash()
	if err != nil {
		return "", err
	}
	return base58.Encode(digest), nil
}

// Verify checks the signature against the transaction's declared public key.
func (stx SignedTransaction) Verify() error {
	digest, err := stx.Transaction.SigningHash()
	if err != nil {
		return err
	}
	if !stx.Transaction.PublicKey.Verify(digest, stx.Signature) {
		return errors.Wrapf(mailbridge_errors.ErrInvalidSignature, "signer %s", stx.Transaction.SignerID)
	}
	return nil
}
