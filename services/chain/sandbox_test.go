package chain

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/customeros/mailbridge/contracts/actuator"
	"github.com/customeros/mailbridge/contracts/bridge"
	"github.com/customeros/mailbridge/internal/enum"
	mailbridge_errors "github.com/customeros/mailbridge/internal/errors"
	"github.com/customeros/mailbridge/internal/ledger"
	"github.com/customeros/mailbridge/internal/logger"
	"github.com/customeros/mailbridge/internal/mailauth"
	"github.com/customeros/mailbridge/internal/mailtest"
	"github.com/customeros/mailbridge/internal/repository"
)

const (
	bridgeAccount = ledger.AccountID("bridge.near")
	relayAccount  = ledger.AccountID("relay.near")
	sender        = "example.near@gmail.com"
	identityAcct  = ledger.AccountID("example_near_gmail_com.bridge.near")
	userKey       = "ed25519:3tXAA9zf5YSLxYELSbxwhEvMd7h9itTfCcUfEc3QfPgD"
)

type harness struct {
	t       *testing.T
	ctx     context.Context
	sandbox *Sandbox
	key     ledger.SecretKey
	nonce   uint64
}

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

func newHarness(t *testing.T) *harness {
	ctx := context.Background()
	key, err := ledger.GenerateSecretKey(rand.Reader)
	require.NoError(t, err)

	sandbox := NewSandbox(DefaultConfig(), getLogger(), repository.NewMemoryLedgerRepository())
	sandbox.Register(bridge.CodeID, bridge.New(bridge.DefaultConfig(), mailauth.NewAuthenticator(mailtest.Keyring(t))))
	sandbox.Register(actuator.CodeID, actuator.Program{})

	err = sandbox.Genesis(ctx,
		GenesisAccount{AccountID: bridgeAccount, Balance: ledger.NearAmount(1000), CodeID: bridge.CodeID},
		GenesisAccount{AccountID: relayAccount, Balance: ledger.NearAmount(100), Keys: []ledger.PublicKey{key.PublicKey()}},
	)
	require.NoError(t, err)

	return &harness{t: t, ctx: ctx, sandbox: sandbox, key: key}
}

func (h *harness) sign(receiver ledger.AccountID, actions ...ledger.Action) ledger.SignedTransaction {
	h.nonce++
	stx, err := ledger.Transaction{
		SignerID:   relayAccount,
		PublicKey:  h.key.PublicKey(),
		Nonce:      h.nonce,
		ReceiverID: receiver,
		Actions:    actions,
	}.Sign(h.key)
	require.NoError(h.t, err)
	return stx
}

func (h *harness) emailCall(subject string, gas ledger.Gas) ledger.FunctionCall {
	args, err := bridge.EncodeReceiveEmailArgs(mailtest.Message(h.t, sender, subject))
	require.NoError(h.t, err)
	return ledger.FunctionCall{MethodName: bridge.MethodReceiveEmail, Args: args, Gas: gas}
}

// sendEmail submits a receive_email transaction and runs blocks until it settles.
func (h *harness) sendEmail(subject string) string {
	hash, err := h.sandbox.Submit(h.ctx, h.sign(bridgeAccount, h.emailCall(subject, 300*ledger.TGas)))
	require.NoError(h.t, err)
	h.settle()
	return hash
}

func (h *harness) settle() {
	for i := 0; i < 10 && h.sandbox.PendingReceipts() > 0; i++ {
		_, err := h.sandbox.ProduceBlock(h.ctx)
		require.NoError(h.t, err)
	}
	require.Zero(h.t, h.sandbox.PendingReceipts())
}

func (h *harness) balance(account ledger.AccountID) string {
	view, err := h.sandbox.ViewAccount(h.ctx, account)
	require.NoError(h.t, err)
	return view.Balance
}

func TestSandbox_InitAddKeyTransfer(t *testing.T) {
	// Arrange
	h := newHarness(t)

	// Act
	initHash := h.sendEmail("init")

	// Assert
	account, err := h.sandbox.ViewAccount(h.ctx, identityAcct)
	require.NoError(t, err)
	assert.Equal(t, actuator.CodeID, account.CodeID)
	assert.Equal(t, bridgeAccount.String(), account.Owner)
	assert.Equal(t, "4200000000000000000000000", account.Balance)
	assert.Empty(t, account.Keys)
	assert.Equal(t, "995800000000000000000000000", h.balance(bridgeAccount))

	outcomes, err := h.sandbox.OutcomesByTx(h.ctx, initHash)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)
	for _, o := range outcomes {
		assert.Equal(t, enum.OutcomeSuccess.String(), o.Status, o.ID)
	}
	assert.Equal(t, []string{
		"Email verified: " + sender,
		"Account prefix is: example_near_gmail_com",
	}, outcomes[1].Logs)

	// Act
	h.sendEmail("add_key " + userKey)

	// Assert
	account, err = h.sandbox.ViewAccount(h.ctx, identityAcct)
	require.NoError(t, err)
	require.Len(t, account.Keys, 1)
	assert.Equal(t, userKey, account.Keys[0].PublicKey)

	// Act
	h.sendEmail("transfer relay.near 1.5")

	// Assert
	assert.Equal(t, "2700000000000000000000000", h.balance(identityAcct))
	assert.Equal(t, "101500000000000000000000000", h.balance(relayAccount))
}

func TestSandbox_WeightedGasReachesActuator(t *testing.T) {
	// Arrange
	h := newHarness(t)
	h.sendEmail("init")

	// Act
	hash := h.sendEmail("add_key " + userKey)

	// Assert
	outcomes, err := h.sandbox.OutcomesByTx(h.ctx, hash)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	var actions ledger.Actions
	require.NoError(t, json.Unmarshal(outcomes[2].Actions, &actions))
	require.Len(t, actions, 1)
	call := actions[0].(ledger.FunctionCall)
	assert.Equal(t, actuator.MethodAddKey, call.MethodName)
	assert.Equal(t, 300*ledger.TGas-DefaultConfig().BaseCallGas, call.Gas)
}

func TestSandbox_InsufficientPrepaidGas(t *testing.T) {
	// Arrange
	h := newHarness(t)
	h.sendEmail("init")

	// Act
	hash, err := h.sandbox.Submit(h.ctx, h.sign(bridgeAccount, h.emailCall("add_key "+userKey, 100*ledger.TGas)))
	require.NoError(t, err)
	h.settle()

	// Assert
	outcomes, err := h.sandbox.OutcomesByTx(h.ctx, hash)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.Equal(t, enum.OutcomeFailure.String(), outcomes[1].Status)
	assert.Equal(t, "GasExceeded", outcomes[1].ErrorKind)
}

func TestSandbox_DeleteKeyIsRejected(t *testing.T) {
	// Arrange
	h := newHarness(t)
	h.sendEmail("init")

	// Act
	hash := h.sendEmail("delete_key")

	// Assert
	outcomes, err := h.sandbox.OutcomesByTx(h.ctx, hash)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.Equal(t, enum.OutcomeFailure.String(), outcomes[1].Status)
	assert.Equal(t, "Unimplemented", outcomes[1].ErrorKind)
	assert.Empty(t, outcomes[1].ReceiptIDs)
	assert.Empty(t, outcomes[1].Logs)
}

func TestSandbox_SecondInitRefundsReserve(t *testing.T) {
	// Arrange
	h := newHarness(t)
	h.sendEmail("init")
	before := h.balance(bridgeAccount)

	// Act
	hash := h.sendEmail("init")

	// Assert
	outcomes, err := h.sandbox.OutcomesByTx(h.ctx, hash)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)
	assert.Equal(t, enum.OutcomeSuccess.String(), outcomes[1].Status)
	assert.Equal(t, enum.OutcomeFailure.String(), outcomes[2].Status)
	assert.Equal(t, "AccountExists", outcomes[2].ErrorKind)
	assert.Equal(t, before, h.balance(bridgeAccount))
}

func TestSandbox_ActuatorRejectsOtherCallers(t *testing.T) {
	// Arrange
	h := newHarness(t)
	h.sendEmail("init")
	args, err := json.Marshal(actuator.TransferArgs{To: relayAccount, Amount: ledger.OneNear()})
	require.NoError(t, err)

	// Act
	hash, err := h.sandbox.Submit(h.ctx, h.sign(identityAcct, ledger.FunctionCall{
		MethodName: actuator.MethodTransfer,
		Args:       args,
		Gas:        50 * ledger.TGas,
	}))
	require.NoError(t, err)
	h.settle()

	// Assert
	outcome, err := h.sandbox.Outcome(h.ctx, receiptID(hash, 0))
	require.NoError(t, err)
	require.NotNil(t, outcome)
	assert.Equal(t, enum.OutcomeFailure.String(), outcome.Status)
	assert.Equal(t, "UnauthorizedCaller", outcome.ErrorKind)
	assert.Equal(t, "4200000000000000000000000", h.balance(identityAcct))
}

func TestSandbox_FailedReceiptRefundsDeposit(t *testing.T) {
	// Arrange
	h := newHarness(t)

	// Act
	_, err := h.sandbox.Submit(h.ctx, h.sign("nobody.near", ledger.Transfer{Deposit: ledger.NearAmount(10)}))
	require.NoError(t, err)
	assert.Equal(t, "90000000000000000000000000", h.balance(relayAccount))
	h.settle()

	// Assert
	assert.Equal(t, "100000000000000000000000000", h.balance(relayAccount))
}

func TestSandbox_Submit_Nonce(t *testing.T) {
	// Arrange
	h := newHarness(t)
	first := h.sign(bridgeAccount, h.emailCall("init", 300*ledger.TGas))
	_, err := h.sandbox.Submit(h.ctx, first)
	require.NoError(t, err)

	// Act
	_, replayErr := h.sandbox.Submit(h.ctx, first)
	h.nonce++
	_, skipErr := h.sandbox.Submit(h.ctx, h.sign(bridgeAccount, h.emailCall("init", 300*ledger.TGas)))

	// Assert
	assert.ErrorIs(t, replayErr, mailbridge_errors.ErrInvalidNonce)
	assert.ErrorIs(t, skipErr, mailbridge_errors.ErrInvalidNonce)

	view, err := h.sandbox.ViewAccessKey(h.ctx, relayAccount, h.key.PublicKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), view.Nonce)
}

func TestSandbox_Submit_Rejections(t *testing.T) {
	h := newHarness(t)
	stranger, err := ledger.GenerateSecretKey(rand.Reader)
	require.NoError(t, err)

	t.Run("tampered signature", func(t *testing.T) {
		stx := h.sign(bridgeAccount, ledger.Transfer{Deposit: ledger.OneNear()})
		stx.Transaction.Nonce++
		_, err := h.sandbox.Submit(h.ctx, stx)
		assert.ErrorIs(t, err, mailbridge_errors.ErrInvalidSignature)
		h.nonce--
	})

	t.Run("unknown key", func(t *testing.T) {
		stx, err := ledger.Transaction{
			SignerID:   relayAccount,
			PublicKey:  stranger.PublicKey(),
			Nonce:      1,
			ReceiverID: bridgeAccount,
			Actions:    ledger.Actions{ledger.Transfer{Deposit: ledger.OneNear()}},
		}.Sign(stranger)
		require.NoError(t, err)
		_, err = h.sandbox.Submit(h.ctx, stx)
		assert.ErrorIs(t, err, mailbridge_errors.ErrKeyNotFound)
	})

	t.Run("insufficient balance", func(t *testing.T) {
		_, err := h.sandbox.Submit(h.ctx, h.sign(bridgeAccount, ledger.Transfer{Deposit: ledger.NearAmount(1000)}))
		assert.ErrorIs(t, err, mailbridge_errors.ErrInsufficientBalance)
		h.nonce--
	})

	t.Run("unknown signer", func(t *testing.T) {
		stx, err := ledger.Transaction{
			SignerID:   "ghost.near",
			PublicKey:  stranger.PublicKey(),
			Nonce:      1,
			ReceiverID: bridgeAccount,
			Actions:    ledger.Actions{ledger.Transfer{Deposit: ledger.OneNear()}},
		}.Sign(stranger)
		require.NoError(t, err)
		_, err = h.sandbox.Submit(h.ctx, stx)
		assert.ErrorIs(t, err, mailbridge_errors.ErrAccountNotFound)
	})

	assert.Zero(t, h.sandbox.PendingReceipts())
}

func TestSandbox_GenesisIsIdempotent(t *testing.T) {
	// Arrange
	h := newHarness(t)

	// Act
	err := h.sandbox.Genesis(h.ctx, GenesisAccount{AccountID: bridgeAccount, Balance: ledger.NearAmount(1), CodeID: bridge.CodeID})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000000000000", h.balance(bridgeAccount))
}

func TestSandbox_ProduceBlock_Empty(t *testing.T) {
	h := newHarness(t)

	block, err := h.sandbox.ProduceBlock(h.ctx)

	require.NoError(t, err)
	assert.Nil(t, block)
}

func TestWeightedShare(t *testing.T) {
	tests := []struct {
		name     string
		leftover ledger.Gas
		weight   ledger.GasWeight
		total    uint64
		want     ledger.Gas
	}{
		{"single call takes all", 100 * ledger.TGas, 1, 1, 100 * ledger.TGas},
		{"even split", 100 * ledger.TGas, 1, 2, 50 * ledger.TGas},
		{"rounds down", 10, 1, 3, 3},
		{"large weight", 300 * ledger.TGas, 1_000_000, 2_000_000, 150 * ledger.TGas},
		{"max weight", 300 * ledger.TGas, ledger.GasWeight(^uint64(0)), ^uint64(0), 300 * ledger.TGas},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, weightedShare(tt.leftover, tt.weight, tt.total))
		})
	}
}
