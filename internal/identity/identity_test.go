package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mailbridge_errors "github.com/customeros/mailbridge/internal/errors"
	"github.com/customeros/mailbridge/internal/ledger"
)

func TestFromSender(t *testing.T) {
	tests := []struct {
		address string
		prefix  string
	}{
		{"example.near@gmail.com", "example_near_gmail_com"},
		{"first-last@near.org", "first-last_near_org"},
		{"a_b@c.io", "a_b_c_io"},
		{"User@Gmail.com", "User_Gmail_com"},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			prefix, err := FromSender(tt.address)
			require.NoError(t, err)
			assert.Equal(t, tt.prefix, prefix)

			again, err := FromSender(tt.address)
			require.NoError(t, err)
			assert.Equal(t, prefix, again)
		})
	}
}

func TestFromSender_UnsupportedCharacters(t *testing.T) {
	for _, address := range []string{
		"first+tag@gmail.com",
		"o'brien@gmail.com",
		"with space@gmail.com",
		"üser@gmail.com",
	} {
		for i := 0; i < 3; i++ {
			_, err := FromSender(address)
			assert.ErrorIs(t, err, mailbridge_errors.ErrUnsupportedCharacter, address)
		}
	}
}

func TestForSender(t *testing.T) {
	bridge := ledger.AccountID("bridge.near")

	prefix, account, err := ForSender("example.near@gmail.com", bridge)
	require.NoError(t, err)
	assert.Equal(t, "example_near_gmail_com", prefix)
	assert.Equal(t, ledger.AccountID("example_near_gmail_com.bridge.near"), account)

	_, _, err = ForSender("User@Gmail.com", bridge)
	assert.ErrorIs(t, err, mailbridge_errors.ErrInvalidAccountID)

	_, _, err = ForSender("a..b@gmail.com", bridge)
	assert.ErrorIs(t, err, mailbridge_errors.ErrInvalidAccountID)

	_, _, err = ForSender("a+b@gmail.com", bridge)
	assert.ErrorIs(t, err, mailbridge_errors.ErrUnsupportedCharacter)
}
