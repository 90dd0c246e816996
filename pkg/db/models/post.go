package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Post is a community feed entry.
type Post struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	AuthorID     uuid.UUID `gorm:"column:author_id;type:uuid;not null;index:ix_posts_author"`
	Body         string    `gorm:"column:body;type:text;not null"`
	ImageURL     *string   `gorm:"column:image_url"`
	LikeCount    int       `gorm:"column:like_count;not null;default:0"`
	CommentCount int       `gorm:"column:comment_count;not null;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Post) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// PostComment is append-only.
type PostComment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	PostID    uuid.UUID `gorm:"column:post_id;type:uuid;not null;index:ix_post_comments_post"`
	AuthorID  uuid.UUID `gorm:"column:author_id;type:uuid;not null"`
	Body      string    `gorm:"column:body;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (c *PostComment) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

type PostLike struct {
	PostID    uuid.UUID `gorm:"column:post_id;type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
