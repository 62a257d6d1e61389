package sharedtypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/five-stack-club/stackbot/app/shared/gamerules"
)

// RoleList is an ordered list of roles stored as a JSON array in a TEXT
// column. Order is preserved exactly as given; it reflects the user's stated
// preference order.
type RoleList []gamerules.Role

var (
	_ driver.Valuer  = (RoleList)(nil)
	_ json.Marshaler = (RoleList)(nil)
)

func (l RoleList) Value() (driver.Value, error) {
	data, err := json.Marshal([]gamerules.Role(l))
	if err != nil {
		return nil, fmt.Errorf("failed to encode role list: %w", err)
	}
	return string(data), nil
}

func (l *RoleList) Scan(src any) error {
	return scanJSONList(src, (*[]gamerules.Role)(l), "role list")
}

func (l RoleList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]gamerules.Role(l))
}

// AccountIDList is an ordered list of game-account IDs stored as a JSON
// array in a TEXT column.
type AccountIDList []AccountID

var (
	_ driver.Valuer  = (AccountIDList)(nil)
	_ json.Marshaler = (AccountIDList)(nil)
)

func (l AccountIDList) Value() (driver.Value, error) {
	data, err := json.Marshal([]AccountID(l))
	if err != nil {
		return nil, fmt.Errorf("failed to encode account id list: %w", err)
	}
	return string(data), nil
}

func (l *AccountIDList) Scan(src any) error {
	return scanJSONList(src, (*[]AccountID)(l), "account id list")
}

func (l AccountIDList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]AccountID(l))
}

func scanJSONList[T any](src any, dst *[]T, what string) error {
	if src == nil {
		*dst = nil
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into %s", src, what)
	}
	if len(data) == 0 {
		*dst = nil
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to decode %s: %w", what, err)
	}
	return nil
}
