package idregistry

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

// Cursor marks the last returned (identifier, substudy) key of a page.
// It travels as an opaque forward-only token, so the wire contract stays
// stable if the backing store changes.
type Cursor struct {
	LastIdentifier string `json:"i"`
	LastSubstudyID string `json:"s"`
}

func (c Cursor) IsZero() bool {
	return c.LastIdentifier == "" && c.LastSubstudyID == ""
}

func (c Cursor) Encode() string {
	if c.IsZero() {
		return ""
	}
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

func DecodeCursor(token string) (Cursor, error) {
	if token == "" {
		return Cursor{}, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, errors.New("malformed offset key")
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return Cursor{}, errors.New("malformed offset key")
	}
	return c, nil
}
