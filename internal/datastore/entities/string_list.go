package entities

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"slices"
)

// StringList is a []string stored as a JSON array in a text column.
// A nil list is stored as "[]" so both backends read it back as empty.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, fmt.Errorf("failed to encode string list: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into StringList", src)
	}
	if len(raw) == 0 {
		*l = StringList{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("failed to decode string list: %w", err)
	}
	*l = out
	return nil
}

// Contains reports whether v is in the list.
func (l StringList) Contains(v string) bool {
	return slices.Contains(l, v)
}

// AllowsAll reports whether the list is an empty allow-list, which matches everything.
func (l StringList) AllowsAll() bool {
	return len(l) == 0
}

// Allows is true when the list is empty or contains v.
func (l StringList) Allows(v string) bool {
	return l.AllowsAll() || l.Contains(v)
}

// GormDataType maps the column to a text type on every dialect.
func (StringList) GormDataType() string {
	return "text"
}
