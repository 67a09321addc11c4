package command

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	mailbridge_errors "github.com/customeros/mailbridge/internal/errors"
	"github.com/customeros/mailbridge/internal/ledger"
)

const (
	KeyLength = 52

	keyPrefix = "ed25519:"
)

// centUnit is one hundredth of the native token in smallest units.
var centUnit = new(big.Int).Div(ledger.OneNear().Big(), big.NewInt(100))

// Parse maps a subject line to a Command. Prefixes are checked in a fixed order and the
// first match decides the command; anything unmatched is ErrUnrecognizedCommand.
func Parse(line string) (Command, error) {
	switch {
	case line == string(Init{}.Kind()):
		return Init{}, nil
	case strings.HasPrefix(line, "add_key"):
		key := strings.TrimSpace(strings.TrimPrefix(line, "add_key"))
		if err := ValidateKey(key); err != nil {
			return nil, err
		}
		return AddKey{Key: key}, nil
	case strings.HasPrefix(line, "delete_key"):
		return DeleteKey{}, nil
	case strings.HasPrefix(line, "transfer"):
		return parseTransfer(line)
	default:
		return nil, errors.Wrapf(mailbridge_errors.ErrUnrecognizedCommand, "%q", line)
	}
}

// ValidateKey enforces the textual key rule: "ed25519:" prefix, 52 characters in total,
// ASCII letters and digits after the prefix.
func ValidateKey(key string) error {
	if !strings.HasPrefix(key, keyPrefix) {
		return errors.Wrapf(mailbridge_errors.ErrInvalidKeyFormat, "missing %q prefix", keyPrefix)
	}
	if len(key) != KeyLength {
		return errors.Wrapf(mailbridge_errors.ErrInvalidKeyFormat, "length %d", len(key))
	}
	for i, c := range key[len(keyPrefix):] {
		if !isASCIIAlnum(c) {
			return errors.Wrapf(mailbridge_errors.ErrInvalidKeyFormat, "character %q at %d", c, len(keyPrefix)+i)
		}
	}
	return nil
}

func parseTransfer(line string) (Command, error) {
	tokens := strings.Fields(line)
	if len(tokens) != 3 || tokens[0] != string(Transfer{}.Kind()) {
		return nil, errors.Wrapf(mailbridge_errors.ErrUnrecognizedCommand, "transfer expects 3 tokens, got %q", line)
	}

	amount, err := ParseAmount(tokens[2])
	if err != nil {
		return nil, err
	}

	to, err := ledger.ParseAccountID(tokens[1])
	if err != nil {
		return nil, err
	}

	return Transfer{To: to, Amount: amount}, nil
}

// ParseAmount converts a decimal token to smallest units with two decimal digits of
// precision: round(f*100) * (OneNear/100).
func ParseAmount(token string) (ledger.Balance, error) {
	if !isDecimal(token) {
		return ledger.Balance{}, errors.Wrapf(mailbridge_errors.ErrInvalidTransferAmount, "%q is not a decimal", token)
	}
	f, err := strconv.ParseFloat(token, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return ledger.Balance{}, errors.Wrapf(mailbridge_errors.ErrInvalidTransferAmount, "%q", token)
	}

	cents := math.Round(f * 100)
	if cents <= 0 || math.IsInf(cents, 0) {
		return ledger.Balance{}, errors.Wrapf(mailbridge_errors.ErrInvalidTransferAmount, "%q rounds to %v hundredths", token, cents)
	}

	units, _ := new(big.Float).SetFloat64(cents).Int(nil)
	return ledger.BalanceFromBig(units.Mul(units, centUnit)), nil
}

func isDecimal(s string) bool {
	digits, dots := 0, 0
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
			digits++
		case c == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}

func isASCIIAlnum(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
