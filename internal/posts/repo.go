package posts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/bookstall-backend/pkg/db/models"
	"github.com/angelmondragon/bookstall-backend/pkg/pagination"
)

// Repository persists posts with their comments and likes.
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

func (r *Repository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

// List returns the feed newest first. A non-nil authorID narrows it to one author.
func (r *Repository) List(ctx context.Context, authorID *uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Post, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.Post{})
	if authorID != nil {
		query = query.Where("author_id = ?", *authorID)
	}
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.Post
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(limit)).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(rows, limit, func(p models.Post) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	return page, next, nil
}

// Delete removes the post together with its comments and likes.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("post_id = ?", id).Delete(&models.PostComment{}).Error; err != nil {
		return err
	}
	if err := db.Where("post_id = ?", id).Delete(&models.PostLike{}).Error; err != nil {
		return err
	}
	return db.Delete(&models.Post{}, "id = ?", id).Error
}

// AddComment appends a comment and bumps the post's comment counter.
func (r *Repository) AddComment(ctx context.Context, comment *models.PostComment) error {
	db := r.db.WithContext(ctx)
	if err := db.Create(comment).Error; err != nil {
		return err
	}
	return db.Model(&models.Post{}).Where("id = ?", comment.PostID).
		UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error
}

// ListComments returns comments oldest first.
func (r *Repository) ListComments(ctx context.Context, postID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.PostComment, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.PostComment{}).Where("post_id = ?", postID)
	if cursor != nil {
		query = query.Where("(created_at > ?) OR (created_at = ? AND id > ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.PostComment
	if err := query.Order("created_at ASC, id ASC").Limit(pagination.LimitWithBuffer(limit)).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(rows, limit, func(c models.PostComment) pagination.Cursor {
		return pagination.Cursor{CreatedAt: c.CreatedAt, ID: c.ID}
	})
	return page, next, nil
}

// Like inserts the (post, user) pair once. The counter only moves when a row was added.
func (r *Repository) Like(ctx context.Context, postID, userID uuid.UUID) (bool, error) {
	db := r.db.WithContext(ctx)
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.PostLike{PostID: postID, UserID: userID})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	err := db.Model(&models.Post{}).Where("id = ?", postID).
		UpdateColumn("like_count", gorm.Expr("like_count + 1")).Error
	return err == nil, err
}

// Unlike removes the pair if present and decrements the counter accordingly.
func (r *Repository) Unlike(ctx context.Context, postID, userID uuid.UUID) (bool, error) {
	db := r.db.WithContext(ctx)
	res := db.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.PostLike{})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	err := db.Model(&models.Post{}).Where("id = ? AND like_count > 0", postID).
		UpdateColumn("like_count", gorm.Expr("like_count - 1")).Error
	return err == nil, err
}

// LikedBy returns the subset of postIDs that userID has liked.
func (r *Repository) LikedBy(ctx context.Context, userID uuid.UUID, postIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	liked := make(map[uuid.UUID]bool, len(postIDs))
	if len(postIDs) == 0 {
		return liked, nil
	}
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).Model(&models.PostLike{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &ids).Error; err != nil {
		return nil, err
	}
	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}
