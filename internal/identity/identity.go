package identity

import (
	"strings"

	"github.com/pkg/errors"

	mailbridge_errors "github.com/customeros/mailbridge/internal/errors"
	"github.com/customeros/mailbridge/internal/ledger"
)

// AtSubstitute replaces '@' in sender addresses. '.' maps to the same character, so
// "a.b@c" and "a@b.c" share an identity; account names have no other free separator.
const AtSubstitute = '_'

// FromSender derives the sub-account prefix owned by a sender address.
func FromSender(address string) (string, error) {
	var b strings.Builder
	b.Grow(len(address))

	for i, c := range address {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteRune(c)
		case c == '_' || c == '-':
			b.WriteRune(c)
		case c == '.':
			b.WriteByte('_')
		case c == '@':
			b.WriteRune(AtSubstitute)
		default:
			return "", errors.Wrapf(mailbridge_errors.ErrUnsupportedCharacter, "%q at %d", c, i)
		}
	}

	return b.String(), nil
}

// Account returns the actuator account prefix.bridge.
func Account(prefix string, bridge ledger.AccountID) (ledger.AccountID, error) {
	return bridge.SubAccount(prefix)
}

// ForSender maps a sender straight to its actuator account.
func ForSender(address string, bridge ledger.AccountID) (string, ledger.AccountID, error) {
	prefix, err := FromSender(address)
	if err != nil {
		return "", "", err
	}
	account, err := Account(prefix, bridge)
	if err != nil {
		return prefix, "", err
	}
	return prefix, account, nil
}
