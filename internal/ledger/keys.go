package ledger

import (
	"crypto/ed25519"
	"encoding/json"
	"io"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	mailbridge_errors "github.com/customeros/mailbridge/internal/errors"
)

const KeyPrefix = "ed25519:"

// PublicKey is an ed25519 public key, rendered as "ed25519:<base58>".
type PublicKey struct {
	key ed25519.PublicKey
}

func ParsePublicKey(s string) (PublicKey, error) {
	if !strings.HasPrefix(s, KeyPrefix) {
		return PublicKey{}, errors.Wrapf(mailbridge_errors.ErrInvalidKeyFormat, "missing %q prefix", KeyPrefix)
	}
	data, err := base58.Decode(strings.TrimPrefix(s, KeyPrefix))
	if err != nil {
		return PublicKey{}, errors.Wrap(mailbridge_errors.ErrInvalidKeyFormat, err.Error())
	}
	return PublicKeyFromBytes(data)
}

func PublicKeyFromBytes(data []byte) (PublicKey, error) {
	if len(data) != ed25519.PublicKeySize {
		return PublicKey{}, errors.Wrapf(mailbridge_errors.ErrInvalidKeyFormat, "key length %d", len(data))
	}
	key := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(key, data)
	return PublicKey{key: key}, nil
}

func (k PublicKey) Bytes() []byte {
	return append([]byte(nil), k.key...)
}

func (k PublicKey) IsZero() bool {
	return len(k.key) == 0
}

func (k PublicKey) Equal(o PublicKey) bool {
	return k.key.Equal(o.key)
}

func (k PublicKey) String() string {
	if k.IsZero() {
		return ""
	}
	return KeyPrefix + base58.Encode(k.key)
}

// Verify checks an ed25519 signature over message.
func (k PublicKey) Verify(message, sig []byte) bool {
	if k.IsZero() {
		return false
	}
	return ed25519.Verify(k.key, message, sig)
}

func (k PublicKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *PublicKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePublicKey(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// SecretKey is an ed25519 private key, rendered as "ed25519:<base58 of 64 bytes>".
type SecretKey struct {
	key ed25519.PrivateKey
}

// ParseSecretKey accepts either the 64-byte expanded key or a 32-byte seed.
func ParseSecretKey(s string) (SecretKey, error) {
	if !strings.HasPrefix(s, KeyPrefix) {
		return SecretKey{}, errors.Wrapf(mailbridge_errors.ErrInvalidKeyFormat, "missing %q prefix", KeyPrefix)
	}
	data, err := base58.Decode(strings.TrimPrefix(s, KeyPrefix))
	if err != nil {
		return SecretKey{}, errors.Wrap(mailbridge_errors.ErrInvalidKeyFormat, err.Error())
	}
	switch len(data) {
	case ed25519.PrivateKeySize:
		return SecretKey{key: ed25519.PrivateKey(data)}, nil
	case ed25519.SeedSize:
		return SecretKey{key: ed25519.NewKeyFromSeed(data)}, nil
	default:
		return SecretKey{}, errors.Wrapf(mailbridge_errors.ErrInvalidKeyFormat, "secret key length %d", len(data))
	}
}

func GenerateSecretKey(rand io.Reader) (SecretKey, error) {
	_, priv, err := ed25519.GenerateKey(rand)
	if err != nil {
		return SecretKey{}, errors.Wrap(err, "generate ed25519 key")
	}
	return SecretKey{key: priv}, nil
}

func (k SecretKey) PublicKey() PublicKey {
	if len(k.key) == 0 {
		return PublicKey{}
	}
	return PublicKey{key: k.key.Public().(ed25519.PublicKey)}
}

func (k SecretKey) Sign(message []byte) []byte {
	return ed25519.Sign(k.key, message)
}

func (k SecretKey) String() string {
	return KeyPrefix + base58.Encode(k.key)
}
