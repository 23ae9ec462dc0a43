package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/dukahq/storefront-backend/pkg/enums"
)

// LineWarning captures a soft problem surfaced on one quoted cart line.
type LineWarning struct {
	Type    enums.LineWarningType `json:"type"`
	Message string                `json:"message"`
}

// LineWarnings is a slice marshaled as JSONB when persisted.
type LineWarnings []LineWarning

// Value serializes the warnings to JSON.
func (l LineWarnings) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// Scan decodes JSONB into the warning slice.
func (l *LineWarnings) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	var decoded LineWarnings
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*l = decoded
	return nil
}

func asJSON(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported scan type %T", value)
	}
}
