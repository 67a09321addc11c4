package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONRaw is an already-encoded JSON document stored in a jsonb column.
type JSONRaw []byte

func (j JSONRaw) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return string(j), nil
}

func (j *JSONRaw) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*j = nil
	case []byte:
		*j = append(JSONRaw(nil), v...)
	case string:
		*j = JSONRaw(v)
	default:
		return fmt.Errorf("cannot scan %T into JSONRaw", value)
	}
	return nil
}

func (j JSONRaw) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	if !json.Valid(j) {
		return nil, fmt.Errorf("invalid json in JSONRaw")
	}
	return j, nil
}
