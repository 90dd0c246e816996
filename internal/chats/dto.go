package chats

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bookstall-backend/pkg/db/models"
)

const (
	maxMessageLength = 2000
	previewLength    = 80
)

// OpenChatInput identifies the counterpart and, optionally, the book being discussed.
type OpenChatInput struct {
	ParticipantID uuid.UUID  `json:"participant_id" validate:"required"`
	BookID        *uuid.UUID `json:"book_id,omitempty"`
}

type SendMessageInput struct {
	Body string `json:"body" validate:"required,notblank,max=2000"`
}

// ChatDTO is a chat as seen by one participant.
type ChatDTO struct {
	ID                 uuid.UUID  `json:"id"`
	CounterpartID      uuid.UUID  `json:"counterpart_id"`
	BookID             *uuid.UUID `json:"book_id,omitempty"`
	LastMessagePreview *string    `json:"last_message_preview,omitempty"`
	LastMessageAt      *time.Time `json:"last_message_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

type MessageDTO struct {
	ID        uuid.UUID `json:"id"`
	ChatID    uuid.UUID `json:"chat_id"`
	SenderID  uuid.UUID `json:"sender_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// OpenResult reports whether Open created the chat or returned the existing one.
type OpenResult struct {
	Chat    ChatDTO `json:"chat"`
	Created bool    `json:"created"`
}

func FromModel(c *models.Chat, viewerID uuid.UUID) ChatDTO {
	return ChatDTO{
		ID:                 c.ID,
		CounterpartID:      c.Counterpart(viewerID),
		BookID:             c.BookID,
		LastMessagePreview: c.LastMessagePreview,
		LastMessageAt:      c.LastMessageAt,
		CreatedAt:          c.CreatedAt,
	}
}

func MessageFromModel(m *models.ChatMessage) MessageDTO {
	return MessageDTO{
		ID:        m.ID,
		ChatID:    m.ChatID,
		SenderID:  m.SenderID,
		Body:      m.Body,
		CreatedAt: m.CreatedAt,
	}
}
