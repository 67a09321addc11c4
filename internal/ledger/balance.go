package ledger

import (
	"bytes"
	"encoding/json"
	"math/big"

	"github.com/pkg/errors"
)

// Balance is an amount in the ledger's smallest unit. The zero value is zero.
type Balance struct {
	v *big.Int
}

var oneNear = new(big.Int).Exp(big.NewInt(10), big.NewInt(24), nil)

// OneNear is the number of smallest units in one native token.
func OneNear() Balance {
	return Balance{v: new(big.Int).Set(oneNear)}
}

func NewBalance(units int64) Balance {
	return Balance{v: big.NewInt(units)}
}

// NearAmount returns n whole native tokens.
func NearAmount(n int64) Balance {
	return Balance{v: new(big.Int).Mul(big.NewInt(n), oneNear)}
}

func BalanceFromBig(b *big.Int) Balance {
	if b == nil {
		return Balance{}
	}
	return Balance{v: new(big.Int).Set(b)}
}

func ParseBalance(s string) (Balance, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Balance{}, errors.Errorf("invalid balance %q", s)
	}
	if v.Sign() < 0 {
		return Balance{}, errors.Errorf("negative balance %q", s)
	}
	return Balance{v: v}, nil
}

func (b Balance) Big() *big.Int {
	if b.v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(b.v)
}

func (b Balance) Add(o Balance) Balance {
	return Balance{v: new(big.Int).Add(b.Big(), o.Big())}
}

func (b Balance) Sub(o Balance) Balance {
	return Balance{v: new(big.Int).Sub(b.Big(), o.Big())}
}

func (b Balance) Cmp(o Balance) int {
	return b.Big().Cmp(o.Big())
}

func (b Balance) Sign() int {
	if b.v == nil {
		return 0
	}
	return b.v.Sign()
}

func (b Balance) IsZero() bool {
	return b.Sign() == 0
}

func (b Balance) String() string {
	if b.v == nil {
		return "0"
	}
	return b.v.String()
}

func (b Balance) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

// UnmarshalJSON accepts both a quoted decimal string and a bare JSON number.
func (b *Balance) UnmarshalJSON(data []byte) error {
	raw := bytes.Trim(data, `"`)
	parsed, err := ParseBalance(string(raw))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}
