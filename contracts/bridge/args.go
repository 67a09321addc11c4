package bridge

import (
	"bytes"
	"encoding/base64"
	"encoding/json"

	"github.com/pkg/errors"
)

const MethodReceiveEmail = "receive_email"

type ReceiveEmailArgs struct {
	FullEmail EmailBytes `json:"full_email"`
}

// EmailBytes encodes as a JSON array of byte values. Decoding also accepts a base64 string.
type EmailBytes []byte

func (b EmailBytes) MarshalJSON() ([]byte, error) {
	values := make([]uint16, len(b))
	for i, c := range b {
		values[i] = uint16(c)
	}
	return json.Marshal(values)
}

func (b *EmailBytes) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		decoded, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return errors.Wrap(err, "full_email is not base64")
		}
		*b = decoded
		return nil
	}

	var values []uint16
	if err := json.Unmarshal(data, &values); err != nil {
		return errors.Wrap(err, "full_email is not a byte array")
	}
	out := make([]byte, len(values))
	for i, v := range values {
		if v > 0xff {
			return errors.Errorf("full_email[%d] = %d is not a byte", i, v)
		}
		out[i] = byte(v)
	}
	*b = out
	return nil
}

func EncodeReceiveEmailArgs(raw []byte) ([]byte, error) {
	return json.Marshal(ReceiveEmailArgs{FullEmail: raw})
}
