package ledger

import (
	"strings"

	"github.com/pkg/errors"

	mailbridge_errors "github.com/customeros/mailbridge/internal/errors"
)

const (
	MinAccountIDLen = 2
	MaxAccountIDLen = 64
)

// AccountID is a validated ledger account name: lowercase alphanumeric runs joined by
// single '-', '_' or '.' separators. Dots delimit the parent hierarchy.
type AccountID string

func ParseAccountID(s string) (AccountID, error) {
	if len(s) < MinAccountIDLen || len(s) > MaxAccountIDLen {
		return "", errors.Wrapf(mailbridge_errors.ErrInvalidAccountID, "%q: length %d out of range", s, len(s))
	}

	prevSeparator := true
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			prevSeparator = false
		case c == '-' || c == '_' || c == '.':
			if prevSeparator {
				return "", errors.Wrapf(mailbridge_errors.ErrInvalidAccountID, "%q: unexpected separator at %d", s, i)
			}
			prevSeparator = true
		default:
			return "", errors.Wrapf(mailbridge_errors.ErrInvalidAccountID, "%q: invalid character %q at %d", s, c, i)
		}
	}
	if prevSeparator {
		return "", errors.Wrapf(mailbridge_errors.ErrInvalidAccountID, "%q: trailing separator", s)
	}

	return AccountID(s), nil
}

func (a AccountID) String() string {
	return string(a)
}

// SubAccount returns prefix + "." + a, validated as an account id.
func (a AccountID) SubAccount(prefix string) (AccountID, error) {
	return ParseAccountID(prefix + "." + string(a))
}

// IsDirectSubAccountOf reports whether a is exactly one level below parent.
func (a AccountID) IsDirectSubAccountOf(parent AccountID) bool {
	suffix := "." + string(parent)
	if !strings.HasSuffix(string(a), suffix) {
		return false
	}
	prefix := strings.TrimSuffix(string(a), suffix)
	return prefix != "" && !strings.Contains(prefix, ".")
}
