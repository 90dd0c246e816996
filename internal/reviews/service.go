package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/bookstall-backend/pkg/db"
	"github.com/angelmondragon/bookstall-backend/pkg/db/models"
	"github.com/angelmondragon/bookstall-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bookstall-backend/pkg/errors"
	"github.com/angelmondragon/bookstall-backend/pkg/logger"
	"github.com/angelmondragon/bookstall-backend/pkg/pagination"

	"github.com/angelmondragon/bookstall-backend/internal/notifications"
)

// Service records reviews and maintains the rating aggregates of books and users.
type Service interface {
	SubmitReview(ctx context.Context, reviewerID uuid.UUID, input SubmitReviewInput) (*ReviewResult, error)
	ListReviews(ctx context.Context, target Target, params pagination.Params) (*pagination.Page[ReviewDTO], error)
	HasReviewed(ctx context.Context, target Target, reviewerID uuid.UUID) (bool, error)
	RecomputeAggregates(ctx context.Context) (int64, error)
}

type reviewsRepository interface {
	WithTx(tx *gorm.DB) *Repository
	Exists(ctx context.Context, target Target, reviewerID uuid.UUID) (bool, error)
	List(ctx context.Context, target Target, limit int, cursor *pagination.Cursor) ([]models.Review, *pagination.Cursor, error)
	Recompute(ctx context.Context, kind enums.ReviewTargetKind) (int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type purchaseChecker interface {
	HasPurchasedBook(ctx context.Context, purchaserID, bookID uuid.UUID) (bool, error)
	HasPurchasedFromSeller(ctx context.Context, purchaserID, sellerID uuid.UUID) (bool, error)
}

type bookReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Book, error)
}

type userReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// ServiceParams wires the review service.
type ServiceParams struct {
	Repo      reviewsRepository
	Tx        txRunner
	Purchases purchaseChecker
	Books     bookReader
	Users     userReader
	Notifier  notifications.Notifier
	Logger    *logger.Logger
}

type service struct {
	repo      reviewsRepository
	tx        txRunner
	purchases purchaseChecker
	books     bookReader
	users     userReader
	notifier  notifications.Notifier
	logg      *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("reviews repository required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Purchases == nil:
		return nil, fmt.Errorf("purchase checker required")
	case params.Books == nil:
		return nil, fmt.Errorf("book reader required")
	case params.Users == nil:
		return nil, fmt.Errorf("user reader required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      params.Repo,
		tx:        params.Tx,
		purchases: params.Purchases,
		books:     params.Books,
		users:     params.Users,
		notifier:  params.Notifier,
		logg:      params.Logger,
	}, nil
}

func (s *service) SubmitReview(ctx context.Context, reviewerID uuid.UUID, input SubmitReviewInput) (*ReviewResult, error) {
	if reviewerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	review, err := s.buildReview(reviewerID, input)
	if err != nil {
		return nil, err
	}
	target := Target{Kind: review.TargetKind, ID: review.TargetID}

	recipient, err := s.checkEligibility(ctx, reviewerID, target)
	if err != nil {
		return nil, err
	}

	reviewed, err := s.repo.Exists(ctx, target, reviewerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing review")
	}
	if reviewed {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "you already reviewed this")
	}

	var (
		mean  float64
		count int
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, review); err != nil {
			return err
		}
		found, err := repo.ApplyRating(ctx, target, review.Rating)
		if err != nil {
			return err
		}
		if !found {
			return gorm.ErrRecordNotFound
		}
		mean, count, err = repo.LoadAggregate(ctx, target)
		return err
	})
	if err != nil {
		switch {
		case dbpkg.IsUniqueViolation(err, reviewConstraint):
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "you already reviewed this")
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, pkgerrors.NotFound(string(target.Kind))
		default:
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "submit review")
		}
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"review_id":    review.ID.String(),
		"target_kind":  target.Kind,
		"target_id":    target.ID.String(),
		"rating_mean":  mean,
		"rating_count": count,
	})
	s.logg.Info(logCtx, "review recorded")
	s.notifyRecipient(logCtx, reviewerID, recipient, target, review.Rating)

	return &ReviewResult{Review: FromModel(review), Mean: mean, Count: count}, nil
}

func (s *service) buildReview(reviewerID uuid.UUID, input SubmitReviewInput) (*models.Review, error) {
	if input.TargetID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "target id required")
	}
	if !input.TargetKind.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid target kind %q", input.TargetKind)
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}
	var comment *string
	if input.Comment != nil {
		trimmed := strings.TrimSpace(*input.Comment)
		if len(trimmed) > maxCommentLength {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "comment exceeds %d characters", maxCommentLength)
		}
		if trimmed != "" {
			comment = &trimmed
		}
	}
	return &models.Review{
		TargetKind: input.TargetKind,
		TargetID:   input.TargetID,
		ReviewerID: reviewerID,
		Rating:     input.Rating,
		Comment:    comment,
	}, nil
}

// checkEligibility enforces the purchase precondition and returns the user to notify.
func (s *service) checkEligibility(ctx context.Context, reviewerID uuid.UUID, target Target) (uuid.UUID, error) {
	var (
		recipient uuid.UUID
		purchased bool
		err       error
	)
	switch target.Kind {
	case enums.ReviewTargetBook:
		book, findErr := s.books.FindByID(ctx, target.ID)
		if findErr != nil {
			return uuid.Nil, lookupError(findErr, "book")
		}
		if book.OwnerID == reviewerID {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "you cannot review your own book")
		}
		recipient = book.OwnerID
		purchased, err = s.purchases.HasPurchasedBook(ctx, reviewerID, target.ID)
	case enums.ReviewTargetUser:
		if target.ID == reviewerID {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "you cannot review yourself")
		}
		if _, findErr := s.users.FindByID(ctx, target.ID); findErr != nil {
			return uuid.Nil, lookupError(findErr, "user")
		}
		recipient = target.ID
		purchased, err = s.purchases.HasPurchasedFromSeller(ctx, reviewerID, target.ID)
	}
	if err != nil {
		return uuid.Nil, err
	}
	if !purchased {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "only buyers can leave a review")
	}
	return recipient, nil
}

func (s *service) notifyRecipient(ctx context.Context, reviewerID, recipient uuid.UUID, target Target, rating int) {
	if s.notifier == nil || recipient == uuid.Nil {
		return
	}
	subject := "your profile"
	link := fmt.Sprintf("/users/%s", target.ID)
	if target.Kind == enums.ReviewTargetBook {
		subject = "your book"
		link = fmt.Sprintf("/books/%s", target.ID)
	}
	sender := reviewerID
	err := s.notifier.Notify(ctx, notifications.NotifyInput{
		RecipientID: recipient,
		SenderID:    &sender,
		Category:    enums.NotificationCategoryReview,
		Message:     fmt.Sprintf("New %d-star review on %s", rating, subject),
		Link:        &link,
	})
	if err != nil {
		s.logg.Error(ctx, "review notification failed", err)
	}
}

func (s *service) ListReviews(ctx context.Context, target Target, params pagination.Params) (*pagination.Page[ReviewDTO], error) {
	if target.ID == uuid.Nil || !target.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "valid review target required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.List(ctx, target, params.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}
	items := make([]ReviewDTO, 0, len(rows))
	for i := range rows {
		items = append(items, FromModel(&rows[i]))
	}
	page := pagination.NewPage(items, next)
	return &page, nil
}

func (s *service) HasReviewed(ctx context.Context, target Target, reviewerID uuid.UUID) (bool, error) {
	if reviewerID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if target.ID == uuid.Nil || !target.Kind.IsValid() {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "valid review target required")
	}
	ok, err := s.repo.Exists(ctx, target, reviewerID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing review")
	}
	return ok, nil
}

// RecomputeAggregates rebuilds book and user ratings from the review log.
func (s *service) RecomputeAggregates(ctx context.Context) (int64, error) {
	var total int64
	for _, kind := range []enums.ReviewTargetKind{enums.ReviewTargetBook, enums.ReviewTargetUser} {
		fixed, err := s.repo.Recompute(ctx, kind)
		if err != nil {
			return total, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recompute "+string(kind)+" ratings")
		}
		total += fixed
	}
	if total > 0 {
		s.logg.Warn(s.logg.WithField(ctx, "rows_fixed", total), "rating aggregates drifted and were rebuilt")
	}
	return total, nil
}

func lookupError(err error, kind string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.NotFound(kind)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+kind)
}
