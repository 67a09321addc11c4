package relay

import (
	"context"
	"crypto/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/customeros/mailbridge/contracts/bridge"
	"github.com/customeros/mailbridge/dto"
	"github.com/customeros/mailbridge/internal/enum"
	mailbridge_errors "github.com/customeros/mailbridge/internal/errors"
	"github.com/customeros/mailbridge/internal/ledger"
	"github.com/customeros/mailbridge/internal/logger"
	"github.com/customeros/mailbridge/internal/models"
)

// fakeChain accepts transactions whose nonce is exactly one above the last accepted.
type fakeChain struct {
	nonce     uint64
	submitted []ledger.SignedTransaction
	views     int
	failWith  error
}

func (c *fakeChain) Submit(_ context.Context, stx ledger.SignedTransaction) (string, error) {
	if c.failWith != nil {
		return "", c.failWith
	}
	if err := stx.Verify(); err != nil {
		return "", err
	}
	if stx.Transaction.Nonce != c.nonce+1 {
		return "", errors.Wrapf(mailbridge_errors.ErrInvalidNonce, "expected %d", c.nonce+1)
	}
	c.nonce = stx.Transaction.Nonce
	c.submitted = append(c.submitted, stx)
	return stx.Hash()
}

func (c *fakeChain) ViewAccessKey(_ context.Context, _ ledger.AccountID, key ledger.PublicKey) (*dto.AccessKeyView, error) {
	c.views++
	return &dto.AccessKeyView{PublicKey: key.String(), Nonce: c.nonce}, nil
}

type mockSubmissionRepository struct {
	mock.Mock
}

func (m *mockSubmissionRepository) Create(ctx context.Context, submission *models.RelaySubmission) error {
	args := m.Called(ctx, submission)
	return args.Error(0)
}

func (m *mockSubmissionRepository) GetByTxHash(ctx context.Context, txHash string) (*models.RelaySubmission, error) {
	args := m.Called(ctx, txHash)
	return nil, args.Error(1)
}

func (m *mockSubmissionRepository) ListRecent(ctx context.Context, limit int) ([]*models.RelaySubmission, error) {
	args := m.Called(ctx, limit)
	return nil, args.Error(1)
}

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

func newSubmitter(t *testing.T, chain *fakeChain) (*Submitter, *mockSubmissionRepository) {
	key, err := ledger.GenerateSecretKey(rand.Reader)
	require.NoError(t, err)

	repo := &mockSubmissionRepository{}
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	return NewSubmitter(Config{
		SignerID:   "relay.near",
		SecretKey:  key,
		ReceiverID: "bridge.near",
		TxGas:      300 * ledger.TGas,
	}, getLogger(), chain, repo), repo
}

func email(raw string) *dto.EmailReceived {
	return &dto.EmailReceived{
		Source:    enum.EmailImportIMAP,
		MailboxID: "mbox_1",
		Folder:    "INBOX",
		ImapUID:   7,
		Raw:       []byte(raw),
	}
}

const rawEmail = "From: example.near@gmail.com\r\nSubject: init\r\n\r\nhi\r\n"

func TestSubmitEmail_SequentialNonces(t *testing.T) {
	// Arrange
	chain := &fakeChain{nonce: 41}
	submitter, _ := newSubmitter(t, chain)

	// Act
	first, err1 := submitter.SubmitEmail(context.Background(), email(rawEmail))
	second, err2 := submitter.SubmitEmail(context.Background(), email(rawEmail))

	// Assert
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, uint64(42), first.Nonce)
	assert.Equal(t, uint64(43), second.Nonce)
	assert.NotEqual(t, first.TxHash, second.TxHash)
	assert.Equal(t, 1, chain.views)
}

func TestSubmitEmail_TransactionShape(t *testing.T) {
	// Arrange
	chain := &fakeChain{}
	submitter, _ := newSubmitter(t, chain)

	// Act
	_, err := submitter.SubmitEmail(context.Background(), email(rawEmail))

	// Assert
	require.NoError(t, err)
	require.Len(t, chain.submitted, 1)
	tx := chain.submitted[0].Transaction
	assert.Equal(t, ledger.AccountID("relay.near"), tx.SignerID)
	assert.Equal(t, ledger.AccountID("bridge.near"), tx.ReceiverID)
	require.Len(t, tx.Actions, 1)

	call := tx.Actions[0].(ledger.FunctionCall)
	assert.Equal(t, bridge.MethodReceiveEmail, call.MethodName)
	assert.Equal(t, 300*ledger.TGas, call.Gas)
	assert.True(t, call.Deposit.IsZero())

	expected, err := bridge.EncodeReceiveEmailArgs([]byte(rawEmail))
	require.NoError(t, err)
	assert.JSONEq(t, string(expected), string(call.Args))
}

func TestSubmitEmail_ResyncsAfterNonceRejection(t *testing.T) {
	// Arrange
	chain := &fakeChain{nonce: 1}
	submitter, _ := newSubmitter(t, chain)
	_, err := submitter.SubmitEmail(context.Background(), email(rawEmail))
	require.NoError(t, err)
	chain.nonce = 10 // another signer used the key

	// Act
	resp, err := submitter.SubmitEmail(context.Background(), email(rawEmail))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, uint64(11), resp.Nonce)
	assert.Equal(t, 2, chain.views)
}

func TestSubmitEmail_RecordsRejection(t *testing.T) {
	// Arrange
	chain := &fakeChain{failWith: errors.Wrap(mailbridge_errors.ErrInsufficientBalance, "relay.near")}
	submitter, repo := newSubmitter(t, chain)

	// Act
	_, err := submitter.SubmitEmail(context.Background(), email(rawEmail))

	// Assert
	assert.ErrorIs(t, err, mailbridge_errors.ErrInsufficientBalance)
	repo.AssertCalled(t, "Create", mock.Anything, mock.MatchedBy(func(s *models.RelaySubmission) bool {
		return s.Status == enum.SubmissionRejected &&
			s.ErrorKind == "InsufficientBalance" &&
			s.Sender == "example.near@gmail.com" &&
			s.MailboxID == "mbox_1" &&
			s.ImapUID == 7
	}))
}

func TestSubmitEmail_EmptyMessageIsSkipped(t *testing.T) {
	// Arrange
	chain := &fakeChain{}
	submitter, repo := newSubmitter(t, chain)

	// Act
	_, err := submitter.SubmitEmail(context.Background(), email("  \r\n"))

	// Assert
	assert.ErrorIs(t, err, mailbridge_errors.ErrMalformedEmail)
	assert.Empty(t, chain.submitted)
	repo.AssertCalled(t, "Create", mock.Anything, mock.MatchedBy(func(s *models.RelaySubmission) bool {
		return s.Status == enum.SubmissionSkipped
	}))
}
