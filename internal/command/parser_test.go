package command

import (
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mailbridge_errors "github.com/customeros/mailbridge/internal/errors"
	"github.com/customeros/mailbridge/internal/ledger"
)

const testKey = "ed25519:3tXAA9zf5YSLxYELSbxwhEvMd7h9itTfCcUfEc3QfPgD"

func TestParse_Init(t *testing.T) {
	cmd, err := Parse("init")
	require.NoError(t, err)
	assert.Equal(t, Init{}, cmd)
}

func TestParse_AddKey(t *testing.T) {
	for _, line := range []string{
		"add_key " + testKey,
		"add_key     " + testKey + "\n\n\n",
		"add_key\t" + testKey + " \r\n",
	} {
		cmd, err := Parse(line)
		require.NoError(t, err, line)
		assert.Equal(t, AddKey{Key: testKey}, cmd)
	}
}

func TestParse_Transfer(t *testing.T) {
	cmd, err := Parse("transfer foobar.near 134")
	require.NoError(t, err)

	transfer, ok := cmd.(Transfer)
	require.True(t, ok)
	assert.Equal(t, ledger.AccountID("foobar.near"), transfer.To)
	assert.Equal(t, ledger.NearAmount(134).String(), transfer.Amount.String())
}

func TestParse_TransferFraction(t *testing.T) {
	tests := []struct {
		token string
		units string
	}{
		{"0.01", "10000000000000000000000"},
		{"1.5", "1500000000000000000000000"},
		{"12.34", "12340000000000000000000000"},
		{"0.005", "10000000000000000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			cmd, err := Parse("transfer foobar.near " + tt.token)
			require.NoError(t, err)
			assert.Equal(t, tt.units, cmd.(Transfer).Amount.String())
		})
	}
}

func TestParse_DeleteKey(t *testing.T) {
	cmd, err := Parse("delete_key " + testKey)
	require.NoError(t, err)
	assert.Equal(t, DeleteKey{}, cmd)
}

func TestParse_Failures(t *testing.T) {
	tests := []struct {
		name string
		line string
		err  error
	}{
		{"empty", "", mailbridge_errors.ErrUnrecognizedCommand},
		{"init with suffix", "init now", mailbridge_errors.ErrUnrecognizedCommand},
		{"padded init", " init", mailbridge_errors.ErrUnrecognizedCommand},
		{"uppercase", "INIT", mailbridge_errors.ErrUnrecognizedCommand},
		{"unknown", "withdraw all", mailbridge_errors.ErrUnrecognizedCommand},
		{"transfer too few tokens", "transfer foobar.near", mailbridge_errors.ErrUnrecognizedCommand},
		{"transfer too many tokens", "transfer foobar.near 1 2", mailbridge_errors.ErrUnrecognizedCommand},
		{"transfer glued keyword", "transferfoobar.near 1 x", mailbridge_errors.ErrUnrecognizedCommand},
		{"transfer zero", "transfer foobar.near 0", mailbridge_errors.ErrInvalidTransferAmount},
		{"transfer rounds to zero", "transfer foobar.near 0.004", mailbridge_errors.ErrInvalidTransferAmount},
		{"transfer negative", "transfer foobar.near -1", mailbridge_errors.ErrInvalidTransferAmount},
		{"transfer not a number", "transfer foobar.near ten", mailbridge_errors.ErrInvalidTransferAmount},
		{"transfer infinity", "transfer foobar.near Inf", mailbridge_errors.ErrInvalidTransferAmount},
		{"transfer exponent", "transfer foobar.near 1e3", mailbridge_errors.ErrInvalidTransferAmount},
		{"transfer explicit sign", "transfer foobar.near +1", mailbridge_errors.ErrInvalidTransferAmount},
		{"transfer bad account", "transfer Foo@bar 1", mailbridge_errors.ErrInvalidAccountID},
		{"add_key missing key", "add_key", mailbridge_errors.ErrInvalidKeyFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := Parse(tt.line)
			assert.Nil(t, cmd)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestValidateKey_RejectionGrid(t *testing.T) {
	body := strings.TrimPrefix(testKey, "ed25519:")

	tests := []struct {
		name string
		key  string
	}{
		{"no prefix", body},
		{"wrong prefix", "secp256k1:" + body},
		{"uppercase prefix", "ED25519:" + body},
		{"too short", testKey[:KeyLength-1]},
		{"too long", testKey + "a"},
		{"dash in body", "ed25519:" + body[:10] + "-" + body[11:]},
		{"space in body", "ed25519:" + body[:10] + " " + body[11:]},
		{"non ascii letter", "ed25519:" + body[:42] + "é"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, ValidateKey(tt.key), mailbridge_errors.ErrInvalidKeyFormat)

			_, err := Parse("add_key " + tt.key)
			assert.ErrorIs(t, err, mailbridge_errors.ErrInvalidKeyFormat)
		})
	}

	assert.NoError(t, ValidateKey(testKey))
}

func TestParseAmount_LargeValues(t *testing.T) {
	amount, err := ParseAmount("1000000000000")
	require.NoError(t, err)

	expected := new(big.Int).Mul(big.NewInt(1_000_000_000_000), ledger.OneNear().Big())
	assert.Equal(t, expected.String(), amount.String())
}
