package chats

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bookstall-backend/pkg/db/models"
	"github.com/angelmondragon/bookstall-backend/pkg/pagination"
)

const uniquePairConstraint = "ux_chats_pair_key"

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, chat *models.Chat) error {
	return r.db.WithContext(ctx).Create(chat).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Chat, error) {
	var chat models.Chat
	if err := r.db.WithContext(ctx).First(&chat, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *Repository) FindByPairKey(ctx context.Context, key string) (*models.Chat, error) {
	var chat models.Chat
	if err := r.db.WithContext(ctx).First(&chat, "pair_key = ?", key).Error; err != nil {
		return nil, err
	}
	return &chat, nil
}

// ListForUser returns the user's chats, most recently active first.
// The cursor's CreatedAt carries updated_at for this listing.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Chat, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.Chat{}).
		Where("participant_a = ? OR participant_b = ?", userID, userID)
	if cursor != nil {
		query = query.Where("(updated_at < ?) OR (updated_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.Chat
	if err := query.Order("updated_at DESC, id DESC").Limit(pagination.LimitWithBuffer(limit)).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(rows, limit, func(c models.Chat) pagination.Cursor {
		return pagination.Cursor{CreatedAt: c.UpdatedAt, ID: c.ID}
	})
	return page, next, nil
}

// AppendMessage stores the message and refreshes the chat's last-message summary.
func (r *Repository) AppendMessage(ctx context.Context, msg *models.ChatMessage, summary string) error {
	db := r.db.WithContext(ctx)
	if err := db.Create(msg).Error; err != nil {
		return err
	}
	return db.Model(&models.Chat{}).Where("id = ?", msg.ChatID).Updates(map[string]any{
		"last_message_preview": summary,
		"last_message_at":      msg.CreatedAt,
		"updated_at":           time.Now().UTC(),
	}).Error
}

// ListMessages returns messages oldest first, strictly after cursor when given.
func (r *Repository) ListMessages(ctx context.Context, chatID uuid.UUID, limit int, after *pagination.Cursor) ([]models.ChatMessage, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.ChatMessage{}).Where("chat_id = ?", chatID)
	if after != nil {
		query = query.Where("(created_at > ?) OR (created_at = ? AND id > ?)", after.CreatedAt, after.CreatedAt, after.ID)
	}
	var rows []models.ChatMessage
	if err := query.Order("created_at ASC, id ASC").Limit(pagination.LimitWithBuffer(limit)).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, _ := pagination.Trim(rows, limit, func(m models.ChatMessage) pagination.Cursor {
		return pagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
	})
	var next *pagination.Cursor
	if len(page) > 0 {
		last := page[len(page)-1]
		next = &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return page, next, nil
}
