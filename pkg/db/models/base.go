package models

import (
	"github.com/google/uuid"
)

// ensureID assigns a client-side UUID so inserts do not depend on a database default.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// All lists every persisted model; used for SQLite schema bootstrapping.
func All() []any {
	return []any{
		&User{},
		&Book{},
		&Review{},
		&Order{},
		&OrderItem{},
		&Notification{},
		&CartItem{},
		&Post{},
		&PostComment{},
		&PostLike{},
		&Chat{},
		&ChatMessage{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
