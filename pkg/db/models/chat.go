package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Chat is a two-party conversation, optionally about a book.
// ParticipantA always sorts before ParticipantB; PairKey is unique per (pair, book).
type Chat struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ParticipantA       uuid.UUID  `gorm:"column:participant_a;type:uuid;not null;index:ix_chats_participant_a"`
	ParticipantB       uuid.UUID  `gorm:"column:participant_b;type:uuid;not null;index:ix_chats_participant_b"`
	BookID             *uuid.UUID `gorm:"column:book_id;type:uuid"`
	PairKey            string     `gorm:"column:pair_key;not null;uniqueIndex:ux_chats_pair_key"`
	LastMessagePreview *string    `gorm:"column:last_message_preview"`
	LastMessageAt      *time.Time `gorm:"column:last_message_at"`
	CreatedAt          time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Chat) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// HasParticipant reports whether userID is one of the two parties.
func (c Chat) HasParticipant(userID uuid.UUID) bool {
	return c.ParticipantA == userID || c.ParticipantB == userID
}

// Counterpart returns the other party, or uuid.Nil when userID is not a participant.
func (c Chat) Counterpart(userID uuid.UUID) uuid.UUID {
	switch userID {
	case c.ParticipantA:
		return c.ParticipantB
	case c.ParticipantB:
		return c.ParticipantA
	default:
		return uuid.Nil
	}
}

// ChatMessage is append-only.
type ChatMessage struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	ChatID    uuid.UUID `gorm:"column:chat_id;type:uuid;not null;index:ix_chat_messages_chat"`
	SenderID  uuid.UUID `gorm:"column:sender_id;type:uuid;not null"`
	Body      string    `gorm:"column:body;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (m *ChatMessage) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
