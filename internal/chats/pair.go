package chats

import (
	"bytes"

	"github.com/google/uuid"
)

// orderPair returns the two ids in a stable order so (a, b) and (b, a) share a chat.
func orderPair(x, y uuid.UUID) (uuid.UUID, uuid.UUID) {
	if bytes.Compare(x[:], y[:]) <= 0 {
		return x, y
	}
	return y, x
}

// PairKey is unique per participant pair and book. Chats without a book use "-".
func PairKey(x, y uuid.UUID, bookID *uuid.UUID) string {
	a, b := orderPair(x, y)
	book := "-"
	if bookID != nil {
		book = bookID.String()
	}
	return a.String() + ":" + b.String() + ":" + book
}

func preview(body string) string {
	runes := []rune(body)
	if len(runes) <= previewLength {
		return body
	}
	return string(runes[:previewLength-1]) + "…"
}
