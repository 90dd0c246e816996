package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/bookstall-backend/pkg/db"
	"github.com/angelmondragon/bookstall-backend/pkg/db/models"
	"github.com/angelmondragon/bookstall-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bookstall-backend/pkg/errors"
	"github.com/angelmondragon/bookstall-backend/pkg/logger"
	"github.com/angelmondragon/bookstall-backend/pkg/outbox"
	"github.com/angelmondragon/bookstall-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/bookstall-backend/pkg/pagination"
)

const transactionConstraint = "ux_orders_payment_transaction"

// Service records purchases and answers purchase-history queries.
type Service interface {
	// CreateOrder persists a confirmed checkout. Replaying the same payment
	// transaction returns the order recorded the first time.
	CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error)
	Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	GetByTransaction(ctx context.Context, purchaserID uuid.UUID, transactionID string) (*OrderDTO, error)
	ListPurchases(ctx context.Context, purchaserID uuid.UUID, params pagination.Params) (*pagination.Page[OrderDTO], error)
	ListSales(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*pagination.Page[OrderDTO], error)
	HasPurchasedBook(ctx context.Context, purchaserID, bookID uuid.UUID) (bool, error)
	HasPurchasedFromSeller(ctx context.Context, purchaserID, sellerID uuid.UUID) (bool, error)
}

// CreateOrderResult reports whether the call inserted a new order.
type CreateOrderResult struct {
	Order   OrderDTO
	Created bool
}

type service struct {
	repo     ordersRepository
	tx       txRunner
	outbox   outbox.Emitter
	currency string
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(repo ordersRepository, tx txRunner, emitter outbox.Emitter, currency string, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		outbox:   emitter,
		currency: currency,
		logg:     logg,
		now:      time.Now,
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error) {
	order, err := BuildOrder(input, s.currency, s.now())
	if err != nil {
		return nil, err
	}

	var (
		recorded *models.Order
		created  bool
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.FindByTransactionID(ctx, order.Payment.TransactionID)
		switch {
		case err == nil:
			if err := checkReplay(existing, order); err != nil {
				return err
			}
			recorded = existing
			return nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		if err := repo.Create(ctx, order); err != nil {
			return err
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: order.PurchaserID},
			Data: payloads.OrderCreatedEvent{
				OrderID:     order.ID,
				PurchaserID: order.PurchaserID,
				ItemCount:   len(order.Items),
				Status:      string(order.Status),
			},
		}
		if err := s.outbox.EmitOnce(ctx, tx, event); err != nil {
			return err
		}
		recorded = order
		created = true
		return nil
	})
	if err != nil {
		if errors.Is(err, errForeignReplay) {
			return nil, err
		}
		if dbpkg.IsUniqueViolation(err, transactionConstraint) {
			existing, findErr := s.repo.FindByTransactionID(ctx, order.Payment.TransactionID)
			if findErr == nil {
				if err := checkReplay(existing, order); err != nil {
					return nil, err
				}
				return &CreateOrderResult{Order: FromModel(existing)}, nil
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order already recorded for transaction")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}

	logCtx := s.logg.WithOrderID(ctx, recorded.ID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"purchaser_id":   recorded.PurchaserID.String(),
		"transaction_id": recorded.Payment.TransactionID,
		"status":         recorded.Status,
		"created":        created,
	})
	s.logg.Info(logCtx, "order recorded")

	return &CreateOrderResult{Order: FromModel(recorded), Created: created}, nil
}

// Get returns the order to its purchaser or to any seller of one of its lines.
func (s *service) Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound("order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.PurchaserID != userID {
		isSeller, err := s.repo.IsSeller(ctx, orderID, userID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check order seller")
		}
		if !isSeller {
			// not-found keeps order ids from leaking to strangers
			return nil, pkgerrors.NotFound("order")
		}
	}
	dto := FromModel(order)
	return &dto, nil
}

// GetByTransaction finds the purchaser's order recorded for a gateway transaction.
func (s *service) GetByTransaction(ctx context.Context, purchaserID uuid.UUID, transactionID string) (*OrderDTO, error) {
	if purchaserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	order, err := s.repo.FindByTransactionID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound("order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.PurchaserID != purchaserID {
		return nil, pkgerrors.NotFound("order")
	}
	dto := FromModel(order)
	return &dto, nil
}

func (s *service) ListPurchases(ctx context.Context, purchaserID uuid.UUID, params pagination.Params) (*pagination.Page[OrderDTO], error) {
	if purchaserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.ListByPurchaser(ctx, purchaserID, params.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list purchases")
	}
	return toPage(rows, next), nil
}

func (s *service) ListSales(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*pagination.Page[OrderDTO], error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.ListBySeller(ctx, sellerID, params.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sales")
	}
	return toPage(rows, next), nil
}

func (s *service) HasPurchasedBook(ctx context.Context, purchaserID, bookID uuid.UUID) (bool, error) {
	count, err := s.repo.CountPaidPurchases(ctx, purchaserID, &bookID, nil)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check book purchase")
	}
	return count > 0, nil
}

func (s *service) HasPurchasedFromSeller(ctx context.Context, purchaserID, sellerID uuid.UUID) (bool, error) {
	count, err := s.repo.CountPaidPurchases(ctx, purchaserID, nil, &sellerID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check seller purchase")
	}
	return count > 0, nil
}

var errForeignReplay = pkgerrors.New(pkgerrors.CodeConflict, "transaction already recorded for another purchaser")

// checkReplay allows a redelivered order only when it comes from the purchaser
// who recorded the transaction.
func checkReplay(existing, incoming *models.Order) error {
	if existing.PurchaserID != incoming.PurchaserID {
		return errForeignReplay
	}
	return nil
}

func toPage(rows []models.Order, next *pagination.Cursor) *pagination.Page[OrderDTO] {
	items := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		items = append(items, FromModel(&rows[i]))
	}
	page := pagination.NewPage(items, next)
	return &page
}
