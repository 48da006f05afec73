package api

import (
	"bytes"
	"encoding/json"

	"dcim-inventory-backend/internal/apperr"
	"dcim-inventory-backend/internal/shortid"
)

// ShortIDToken is a short ID as sent by clients: a JSON number (42) or a
// string in bare or display form ("42", "E-00042").
type ShortIDToken struct {
	raw string
	set bool
}

// UnmarshalJSON keeps the raw token; parsing needs the display codec.
func (t *ShortIDToken) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*t = ShortIDToken{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = ShortIDToken{raw: s, set: true}
		return nil
	}
	*t = ShortIDToken{raw: string(b), set: true}
	return nil
}

// Set reports whether the field was present and not null.
func (t ShortIDToken) Set() bool {
	return t.set
}

// Value parses the token. A missing token is an invalid argument on field.
func (t ShortIDToken) Value(field string, codec shortid.Codec) (int64, error) {
	if !t.set {
		return 0, apperr.InvalidField(field, "is required")
	}
	return codec.Parse(t.raw)
}
