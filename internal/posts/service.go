package posts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bookstall-backend/internal/notifications"
	"github.com/angelmondragon/bookstall-backend/pkg/db/models"
	"github.com/angelmondragon/bookstall-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bookstall-backend/pkg/errors"
	"github.com/angelmondragon/bookstall-backend/pkg/logger"
	"github.com/angelmondragon/bookstall-backend/pkg/pagination"
)

// Service runs the community feed.
type Service interface {
	Create(ctx context.Context, authorID uuid.UUID, input CreatePostInput) (*PostDTO, error)
	Feed(ctx context.Context, viewerID uuid.UUID, authorID *uuid.UUID, params pagination.Params) (*pagination.Page[PostDTO], error)
	Get(ctx context.Context, viewerID, postID uuid.UUID) (*PostDTO, error)
	Delete(ctx context.Context, authorID, postID uuid.UUID) error
	Comment(ctx context.Context, authorID, postID uuid.UUID, input CreateCommentInput) (*CommentDTO, error)
	ListComments(ctx context.Context, postID uuid.UUID, params pagination.Params) (*pagination.Page[CommentDTO], error)
	Like(ctx context.Context, userID, postID uuid.UUID) (*LikeResult, error)
	Unlike(ctx context.Context, userID, postID uuid.UUID) (*LikeResult, error)
}

type repository interface {
	WithTx(tx *gorm.DB) *Repository
	Create(ctx context.Context, post *models.Post) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	List(ctx context.Context, authorID *uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Post, *pagination.Cursor, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AddComment(ctx context.Context, comment *models.PostComment) error
	ListComments(ctx context.Context, postID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.PostComment, *pagination.Cursor, error)
	LikedBy(ctx context.Context, userID uuid.UUID, postIDs []uuid.UUID) (map[uuid.UUID]bool, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

var _ repository = (*Repository)(nil)

// ServiceParams groups the posts service dependencies. Notifier and Logger are optional.
type ServiceParams struct {
	Repo     repository
	Tx       txRunner
	Notifier notifications.Notifier
	Logger   *logger.Logger
}

type service struct {
	repo     repository
	tx       txRunner
	notifier notifications.Notifier
	logg     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("posts repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		notifier: params.Notifier,
		logg:     params.Logger,
	}, nil
}

func (s *service) Create(ctx context.Context, authorID uuid.UUID, input CreatePostInput) (*PostDTO, error) {
	if authorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "body is required")
	}
	if len([]rune(body)) > maxBodyLength {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "body exceeds %d characters", maxBodyLength)
	}
	post := &models.Post{AuthorID: authorID, Body: body, ImageURL: input.ImageURL}
	if err := s.repo.Create(ctx, post); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create post")
	}
	dto := FromModel(post)
	return &dto, nil
}

func (s *service) Feed(ctx context.Context, viewerID uuid.UUID, authorID *uuid.UUID, params pagination.Params) (*pagination.Page[PostDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.List(ctx, authorID, params.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list posts")
	}

	items := make([]PostDTO, 0, len(rows))
	ids := make([]uuid.UUID, 0, len(rows))
	for i := range rows {
		items = append(items, FromModel(&rows[i]))
		ids = append(ids, rows[i].ID)
	}
	if viewerID != uuid.Nil {
		liked, err := s.repo.LikedBy(ctx, viewerID, ids)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load likes")
		}
		for i := range items {
			items[i].LikedByMe = liked[items[i].ID]
		}
	}
	page := pagination.NewPage(items, next)
	return &page, nil
}

func (s *service) Get(ctx context.Context, viewerID, postID uuid.UUID) (*PostDTO, error) {
	post, err := s.load(ctx, s.repo, postID)
	if err != nil {
		return nil, err
	}
	dto := FromModel(post)
	if viewerID != uuid.Nil {
		liked, err := s.repo.LikedBy(ctx, viewerID, []uuid.UUID{post.ID})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load likes")
		}
		dto.LikedByMe = liked[post.ID]
	}
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, authorID, postID uuid.UUID) error {
	if authorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		post, err := s.load(ctx, repo, postID)
		if err != nil {
			return err
		}
		if post.AuthorID != authorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the author can delete this post")
		}
		if err := repo.Delete(ctx, post.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete post")
		}
		return nil
	})
}

func (s *service) Comment(ctx context.Context, authorID, postID uuid.UUID, input CreateCommentInput) (*CommentDTO, error) {
	if authorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "comment body is required")
	}
	if len([]rune(body)) > maxCommentLength {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "comment exceeds %d characters", maxCommentLength)
	}

	var (
		comment *models.PostComment
		post    *models.Post
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		if post, err = s.load(ctx, repo, postID); err != nil {
			return err
		}
		comment = &models.PostComment{PostID: post.ID, AuthorID: authorID, Body: body}
		if err := repo.AddComment(ctx, comment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add comment")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if post.AuthorID != authorID {
		s.notifyAuthor(ctx, authorID, post)
	}
	dto := CommentFromModel(comment)
	return &dto, nil
}

func (s *service) notifyAuthor(ctx context.Context, commenterID uuid.UUID, post *models.Post) {
	if s.notifier == nil {
		return
	}
	link := fmt.Sprintf("/posts/%s", post.ID)
	err := s.notifier.Notify(ctx, notifications.NotifyInput{
		RecipientID: post.AuthorID,
		SenderID:    &commenterID,
		Category:    enums.NotificationCategoryComment,
		Message:     "Someone commented on your post",
		Link:        &link,
	})
	if err != nil && s.logg != nil {
		s.logg.Error(ctx, "comment notification failed", err)
	}
}

func (s *service) ListComments(ctx context.Context, postID uuid.UUID, params pagination.Params) (*pagination.Page[CommentDTO], error) {
	if _, err := s.load(ctx, s.repo, postID); err != nil {
		return nil, err
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.ListComments(ctx, postID, params.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list comments")
	}
	items := make([]CommentDTO, 0, len(rows))
	for i := range rows {
		items = append(items, CommentFromModel(&rows[i]))
	}
	page := pagination.NewPage(items, next)
	return &page, nil
}

func (s *service) Like(ctx context.Context, userID, postID uuid.UUID) (*LikeResult, error) {
	return s.toggle(ctx, userID, postID, true)
}

func (s *service) Unlike(ctx context.Context, userID, postID uuid.UUID) (*LikeResult, error) {
	return s.toggle(ctx, userID, postID, false)
}

// toggle sets the like state; repeating the same call leaves the counter unchanged.
func (s *service) toggle(ctx context.Context, userID, postID uuid.UUID, like bool) (*LikeResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	var result LikeResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := s.load(ctx, repo, postID); err != nil {
			return err
		}
		var err error
		if like {
			_, err = repo.Like(ctx, postID, userID)
		} else {
			_, err = repo.Unlike(ctx, postID, userID)
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update like")
		}
		post, err := s.load(ctx, repo, postID)
		if err != nil {
			return err
		}
		result = LikeResult{Liked: like, LikeCount: post.LikeCount}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *service) load(ctx context.Context, repo repository, postID uuid.UUID) (*models.Post, error) {
	if postID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "post id required")
	}
	post, err := repo.FindByID(ctx, postID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound("post")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load post")
	}
	return post, nil
}
