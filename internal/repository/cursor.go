package repository

import (
	"encoding/base64"
	"encoding/json"
)

// Cursor identifies the last row of a page: its sort value and its id. It is
// bound to the ordering it was produced under.
type Cursor struct {
	Sort      SortField `json:"f"`
	Direction Direction `json:"d"`
	Value     string    `json:"v"`
	ID        string    `json:"id"`
}

// EncodeCursor renders c as an opaque URL-safe token.
func EncodeCursor(c Cursor) string {
	b, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeCursor parses a token for the given ordering. A token minted under a
// different sort field or direction is rejected.
func DecodeCursor(token string, sort SortField, dir Direction) (Cursor, error) {
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, ErrInvalidCursor
	}
	var c Cursor
	if err := json.Unmarshal(b, &c); err != nil {
		return Cursor{}, ErrInvalidCursor
	}
	if c.ID == "" || c.Sort != sort || c.Direction != dir {
		return Cursor{}, ErrInvalidCursor
	}
	return c, nil
}
