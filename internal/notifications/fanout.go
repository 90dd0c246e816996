package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/angelmondragon/bookstall-backend/pkg/db/models"
	"github.com/angelmondragon/bookstall-backend/pkg/enums"
	"github.com/angelmondragon/bookstall-backend/pkg/logger"
	"github.com/angelmondragon/bookstall-backend/pkg/metrics"
)

const defaultFanOutLimit = 8

type bookReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Book, error)
}

type userReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// FanOutResult summarizes one NotifyOwners run.
type FanOutResult struct {
	Emitted int
	Skipped int
	Failed  int
}

// FanOutParams wires the fan-out dependencies.
type FanOutParams struct {
	Books   bookReader
	Users   userReader
	Repo    Repository
	Metrics *metrics.FanOutMetrics
	Logger  *logger.Logger
	Limit   int
}

// FanOut tells every book owner in an order that their book was bought.
type FanOut struct {
	books   bookReader
	users   userReader
	repo    Repository
	metrics *metrics.FanOutMetrics
	logg    *logger.Logger
	limit   int
}

func NewFanOut(params FanOutParams) (*FanOut, error) {
	if params.Books == nil {
		return nil, fmt.Errorf("book reader required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user reader required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultFanOutLimit
	}
	return &FanOut{
		books:   params.Books,
		users:   params.Users,
		repo:    params.Repo,
		metrics: params.Metrics,
		logg:    params.Logger,
		limit:   limit,
	}, nil
}

// NotifyOwners writes one notification per line item, addressed to the book's
// owner. Items are processed concurrently; a failing item is logged and
// reported in the returned error without stopping the others. Items whose
// notification already exists for the (order, book) pair, or whose book or
// owner no longer exists, are counted as skipped and never returned as errors.
func (f *FanOut) NotifyOwners(ctx context.Context, order *models.Order) (FanOutResult, error) {
	var result FanOutResult
	if order == nil {
		return result, fmt.Errorf("order required")
	}
	logCtx := f.logg.WithOrderID(ctx, order.ID.String())
	purchaserName := f.purchaserName(logCtx, order)

	var (
		mu   sync.Mutex
		errs error
		g    errgroup.Group
	)
	g.SetLimit(f.limit)

	for i := range order.Items {
		item := order.Items[i]
		g.Go(func() error {
			err := f.notifyOwner(ctx, order, item, purchaserName)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				result.Emitted++
				f.metrics.IncEmitted()
			case errors.Is(err, ErrDuplicate):
				result.Skipped++
				f.metrics.IncSkipped()
			case errors.Is(err, gorm.ErrRecordNotFound):
				// The book or its owner is gone; retrying cannot bring it back.
				result.Skipped++
				f.metrics.IncSkipped()
				itemCtx := f.logg.WithFields(logCtx, map[string]any{"book_id": item.BookID.String(), "error": err.Error()})
				f.logg.Warn(itemCtx, "owner notification target missing, skipping")
			default:
				result.Failed++
				f.metrics.IncFailed()
				itemCtx := f.logg.WithField(logCtx, "book_id", item.BookID.String())
				f.logg.Error(itemCtx, "owner notification failed", err)
				errs = multierr.Append(errs, fmt.Errorf("book %s: %w", item.BookID, err))
			}
			return nil
		})
	}
	_ = g.Wait()

	fields := f.logg.WithFields(logCtx, map[string]any{
		"emitted": result.Emitted,
		"skipped": result.Skipped,
		"failed":  result.Failed,
	})
	f.logg.Info(fields, "order fan-out finished")
	return result, errs
}

func (f *FanOut) notifyOwner(ctx context.Context, order *models.Order, item models.OrderItem, purchaserName string) error {
	book, err := f.books.FindByID(ctx, item.BookID)
	if err != nil {
		return fmt.Errorf("load book: %w", err)
	}
	owner, err := f.users.FindByID(ctx, book.OwnerID)
	if err != nil {
		return fmt.Errorf("load owner: %w", err)
	}

	orderID := order.ID
	bookID := book.ID
	sender := order.PurchaserID
	link := fmt.Sprintf("/orders/%s", order.ID)
	notification := &models.Notification{
		RecipientID: owner.ID,
		SenderID:    &sender,
		Category:    enums.NotificationCategoryOrder,
		Message:     PurchaseMessage(purchaserName, book.Title, item.Quantity),
		Link:        &link,
		OrderID:     &orderID,
		BookID:      &bookID,
	}
	return f.repo.CreateOnce(ctx, notification)
}

func (f *FanOut) purchaserName(ctx context.Context, order *models.Order) string {
	user, err := f.users.FindByID(ctx, order.PurchaserID)
	if err == nil && strings.TrimSpace(user.DisplayName) != "" {
		return strings.TrimSpace(user.DisplayName)
	}
	if err != nil {
		f.logg.Warn(f.logg.WithField(ctx, "error", err.Error()), "purchaser lookup failed, using shipping name")
	}
	if name := strings.TrimSpace(order.Shipping.Name); name != "" {
		return name
	}
	return "Someone"
}

// PurchaseMessage renders "<name> purchased <title>", adding " (xN)" when more than one copy was bought.
func PurchaseMessage(purchaserName, title string, quantity int) string {
	msg := fmt.Sprintf("%s purchased %s", purchaserName, title)
	if quantity > 1 {
		msg += fmt.Sprintf(" (x%d)", quantity)
	}
	return msg
}
