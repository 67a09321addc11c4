package ledger

import (
	"crypto/rand"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mailbridge_errors "github.com/customeros/mailbridge/internal/errors"
)

func newTestTransaction(t *testing.T) (Transaction, SecretKey) {
	sk, err := GenerateSecretKey(rand.Reader)
	require.NoError(t, err)

	return Transaction{
		SignerID:   "relay.near",
		PublicKey:  sk.PublicKey(),
		Nonce:      7,
		ReceiverID: "bridge.near",
		Actions: Actions{
			FunctionCall{MethodName: "receive_email", Args: []byte(`{"full_email":[]}`), Gas: 300 * TGas},
		},
	}, sk
}

func TestSignedTransaction_Verify(t *testing.T) {
	tx, sk := newTestTransaction(t)

	stx, err := tx.Sign(sk)
	require.NoError(t, err)
	require.NoError(t, stx.Verify())

	hash, err := stx.Hash()
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	tampered := stx
	tampered.Transaction.Nonce = 8
	assert.ErrorIs(t, tampered.Verify(), mailbridge_errors.ErrInvalidSignature)

	otherHash, err := tampered.Hash()
	require.NoError(t, err)
	assert.NotEqual(t, hash, otherHash)
}

func TestActions_JSON(t *testing.T) {
	key, err := ParsePublicKey(testPublicKey)
	require.NoError(t, err)

	actions := Actions{
		CreateAccount{},
		Transfer{Deposit: NearAmount(1)},
		DeployContract{CodeID: "actuator"},
		FunctionCall{MethodName: "new_contract", Args: []byte(`{}`), Gas: 200 * TGas, Weight: 1},
		AddFullAccessKey{PublicKey: key},
		DeleteKey{PublicKey: key},
	}

	payload, err := json.Marshal(actions)
	require.NoError(t, err)

	var decoded Actions
	require.NoError(t, json.Unmarshal(payload, &decoded))
	require.Len(t, decoded, len(actions))
	for i := range actions {
		assert.Equal(t, actions[i].Kind(), decoded[i].Kind())
	}
	assert.Equal(t, "actuator", decoded[2].(DeployContract).CodeID)
	assert.Equal(t, GasWeight(1), decoded[3].(FunctionCall).Weight)
	assert.Equal(t, NearAmount(1).String(), TotalDeposit(decoded).String())
}

func TestInvocation_BuffersAndGas(t *testing.T) {
	inv := NewInvocation("bridge.near", "relay.near", "relay.near", Balance{}, 10*TGas)

	inv.Send(NewPromise("a.bridge.near").CreateAccount().Transfer(NearAmount(1)))
	inv.Logf("Email verified: %s", "example.near@gmail.com")

	require.NoError(t, inv.UseGas(4*TGas))
	assert.Equal(t, 6*TGas, inv.RemainingGas())
	assert.ErrorIs(t, inv.UseGas(7*TGas), mailbridge_errors.ErrGasExceeded)

	require.Len(t, inv.Promises(), 1)
	assert.Len(t, inv.Promises()[0].Actions, 2)
	assert.Equal(t, []string{"Email verified: example.near@gmail.com"}, inv.Logs())
}
