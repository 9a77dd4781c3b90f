package model

import (
	"encoding/base64"
	"errors"
	"time"

	"github.com/fxamacker/cbor/v2"
)

var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor points at the last tweet of a delivered page. The next page
// starts strictly after it in (CreatedAt desc, ID desc) order.
type Cursor struct {
	ID        string
	CreatedAt time.Time
}

type cursorWire struct {
	ID string `cbor:"1,keyasint"`
	Ms int64  `cbor:"2,keyasint"`
}

var cursorEncMode cbor.EncMode

func init() {
	var err error
	cursorEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("model: cursor encoder initialization failed: " + err.Error())
	}
}

func CursorAfter(t Tweet) Cursor {
	return Cursor{ID: t.ID, CreatedAt: t.CreatedAt}
}

// Encode returns the opaque token handed to clients as nextCursor.
func (c Cursor) Encode() string {
	data, err := cursorEncMode.Marshal(cursorWire{ID: c.ID, Ms: c.CreatedAt.UnixMilli()})
	if err != nil {
		// a struct of a string and an int64 always encodes
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(data)
}

func DecodeCursor(token string) (Cursor, error) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, ErrInvalidCursor
	}

	var wire cursorWire
	if err := cbor.Unmarshal(data, &wire); err != nil {
		return Cursor{}, ErrInvalidCursor
	}
	if wire.ID == "" {
		return Cursor{}, ErrInvalidCursor
	}

	return Cursor{ID: wire.ID, CreatedAt: time.UnixMilli(wire.Ms).UTC()}, nil
}

// Precedes reports whether t sorts after the cursor position and so
// belongs to a later page.
func (c Cursor) Precedes(t Tweet) bool {
	if !t.CreatedAt.Equal(c.CreatedAt) {
		return t.CreatedAt.Before(c.CreatedAt)
	}
	return t.ID < c.ID
}
