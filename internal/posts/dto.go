package posts

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bookstall-backend/pkg/db/models"
)

const (
	maxBodyLength    = 4000
	maxCommentLength = 2000
)

// CreatePostInput is the payload for a new feed entry.
type CreatePostInput struct {
	Body     string  `json:"body" validate:"required,notblank,max=4000"`
	ImageURL *string `json:"image_url,omitempty" validate:"omitempty,url"`
}

// CreateCommentInput is the payload for a comment on a post.
type CreateCommentInput struct {
	Body string `json:"body" validate:"required,notblank,max=2000"`
}

// PostDTO is the feed shape of a post. LikedByMe is only meaningful for authenticated reads.
type PostDTO struct {
	ID           uuid.UUID `json:"id"`
	AuthorID     uuid.UUID `json:"author_id"`
	Body         string    `json:"body"`
	ImageURL     *string   `json:"image_url,omitempty"`
	LikeCount    int       `json:"like_count"`
	CommentCount int       `json:"comment_count"`
	LikedByMe    bool      `json:"liked_by_me"`
	CreatedAt    time.Time `json:"created_at"`
}

type CommentDTO struct {
	ID        uuid.UUID `json:"id"`
	PostID    uuid.UUID `json:"post_id"`
	AuthorID  uuid.UUID `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// LikeResult reports the like state after a like or unlike call.
type LikeResult struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}

func FromModel(p *models.Post) PostDTO {
	return PostDTO{
		ID:           p.ID,
		AuthorID:     p.AuthorID,
		Body:         p.Body,
		ImageURL:     p.ImageURL,
		LikeCount:    p.LikeCount,
		CommentCount: p.CommentCount,
		CreatedAt:    p.CreatedAt,
	}
}

func CommentFromModel(c *models.PostComment) CommentDTO {
	return CommentDTO{
		ID:        c.ID,
		PostID:    c.PostID,
		AuthorID:  c.AuthorID,
		Body:      c.Body,
		CreatedAt: c.CreatedAt,
	}
}
