package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bookstall-backend/internal/cart"
	"github.com/angelmondragon/bookstall-backend/internal/orders"
	"github.com/angelmondragon/bookstall-backend/internal/payments"
	pkgcheckout "github.com/angelmondragon/bookstall-backend/pkg/checkout"
	"github.com/angelmondragon/bookstall-backend/pkg/config"
	"github.com/angelmondragon/bookstall-backend/pkg/db/models"
	"github.com/angelmondragon/bookstall-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bookstall-backend/pkg/errors"
	"github.com/angelmondragon/bookstall-backend/pkg/logger"
)

// Service turns a cart into a payment intention and a confirmed payment into an order.
type Service interface {
	Start(ctx context.Context, userID uuid.UUID, input StartInput) (*payments.Intention, error)
	Complete(ctx context.Context, userID uuid.UUID, callback url.Values) (*CompleteResult, error)
}

// StartInput carries the delivery details entered at checkout.
type StartInput struct {
	Shipping models.ShippingSnapshot `json:"shipping"`
}

// CompleteResult is the recorded order and whether the payment went through.
type CompleteResult struct {
	Order orders.OrderDTO `json:"order"`
	Paid  bool            `json:"paid"`
}

type cartReader interface {
	Items(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type bookReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Book, error)
}

type userReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type orderRecorder interface {
	CreateOrder(ctx context.Context, input orders.CreateOrderInput) (*orders.CreateOrderResult, error)
	GetByTransaction(ctx context.Context, purchaserID uuid.UUID, transactionID string) (*orders.OrderDTO, error)
}

type pendingStore interface {
	Save(ctx context.Context, pending PendingCheckout, ttl time.Duration) error
	Load(ctx context.Context, reference string) (*PendingCheckout, error)
	Delete(ctx context.Context, reference string) error
}

// ServiceParams wires checkout.
type ServiceParams struct {
	Cart      cartReader
	Books     bookReader
	Users     userReader
	Orders    orderRecorder
	Gateway   payments.Gateway
	Pending   pendingStore
	Config    config.CheckoutConfig
	PublicURL string
	Logger    *logger.Logger
}

type service struct {
	cart      cartReader
	books     bookReader
	users     userReader
	orders    orderRecorder
	gateway   payments.Gateway
	pending   pendingStore
	cfg       config.CheckoutConfig
	publicURL string
	logg      *logger.Logger
	now       func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Cart == nil:
		return nil, fmt.Errorf("cart service required")
	case params.Books == nil:
		return nil, fmt.Errorf("book reader required")
	case params.Users == nil:
		return nil, fmt.Errorf("user reader required")
	case params.Orders == nil:
		return nil, fmt.Errorf("orders service required")
	case params.Gateway == nil:
		return nil, fmt.Errorf("payment gateway required")
	case params.Pending == nil:
		return nil, fmt.Errorf("pending checkout store required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	if params.Config.ShippingFeeCents < 0 {
		return nil, fmt.Errorf("shipping fee cannot be negative")
	}
	if params.Config.Currency == "" {
		params.Config.Currency = "usd"
	}
	if params.Config.PendingTTL <= 0 {
		params.Config.PendingTTL = 2 * time.Hour
	}
	return &service{
		cart:      params.Cart,
		books:     params.Books,
		users:     params.Users,
		orders:    params.Orders,
		gateway:   params.Gateway,
		pending:   params.Pending,
		cfg:       params.Config,
		publicURL: strings.TrimRight(params.PublicURL, "/"),
		logg:      params.Logger,
		now:       time.Now,
	}, nil
}

func (s *service) Start(ctx context.Context, userID uuid.UUID, input StartInput) (*payments.Intention, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if err := orders.ValidateShipping(input.Shipping); err != nil {
		return nil, err
	}
	buyer, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load buyer")
	}

	items, err := s.cart.Items(ctx, userID)
	if err != nil {
		return nil, err
	}
	lines, err := s.checkLines(ctx, items)
	if err != nil {
		return nil, err
	}

	subtotal := cart.Subtotal(items)
	total := subtotal + s.cfg.ShippingFeeCents
	reference := uuid.NewString()

	gatewayItems := make([]payments.LineItem, 0, len(lines))
	for _, line := range lines {
		gatewayItems = append(gatewayItems, payments.LineItem{
			Title:          line.Title,
			UnitPriceCents: line.UnitPriceCents,
			Quantity:       line.Quantity,
		})
	}
	intent, err := s.gateway.CreateIntention(ctx, payments.IntentionRequest{
		Reference:        reference,
		AmountCents:      total,
		Currency:         s.cfg.Currency,
		CustomerEmail:    buyer.Email,
		CustomerName:     buyer.DisplayName,
		Items:            gatewayItems,
		ShippingFeeCents: s.cfg.ShippingFeeCents,
		SuccessURL:       s.callbackURL(reference),
		CancelURL:        s.publicURL + s.cfg.CancelPath,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment intention")
	}

	pending := PendingCheckout{
		Reference:        reference,
		IntentionID:      intent.ID,
		Gateway:          s.gateway.Name(),
		UserID:           userID,
		Items:            lines,
		Shipping:         input.Shipping,
		ShippingFeeCents: s.cfg.ShippingFeeCents,
		TotalCents:       total,
		Currency:         strings.ToLower(s.cfg.Currency),
		CreatedAt:        s.now().UTC(),
	}
	if err := s.pending.Save(ctx, pending, s.cfg.PendingTTL); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store pending checkout")
	}

	logCtx := s.logg.WithUserID(ctx, userID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"reference":    reference,
		"gateway":      s.gateway.Name(),
		"amount_cents": total,
		"items":        len(lines),
	})
	s.logg.Info(logCtx, "checkout started")
	return intent, nil
}

func (s *service) Complete(ctx context.Context, userID uuid.UUID, callback url.Values) (*CompleteResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	conf, err := s.gateway.Confirm(ctx, callback)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment callback")
	}
	if conf.Reference == "" {
		conf.Reference = callback.Get("reference")
	}

	pending, err := s.pending.Load(ctx, conf.Reference)
	if err != nil {
		if !errors.Is(err, ErrPendingNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pending checkout")
		}
		// the callback may be a replay of one that already recorded the order
		existing, findErr := s.orders.GetByTransaction(ctx, userID, conf.TransactionID)
		if findErr != nil {
			if pkgerrors.IsCode(findErr, pkgerrors.CodeNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout expired or not found")
			}
			return nil, findErr
		}
		return &CompleteResult{Order: *existing, Paid: existing.Payment.Status == enums.PaymentStatusPaid}, nil
	}
	if pending.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "checkout belongs to another user")
	}

	status := enums.PaymentStatusFailed
	if conf.Success {
		status = enums.PaymentStatusPaid
	}
	currency := conf.Currency
	if currency == "" {
		currency = pending.Currency
	}
	result, err := s.orders.CreateOrder(ctx, orders.CreateOrderInput{
		PurchaserID:      pending.UserID,
		Shipping:         pending.Shipping,
		Items:            pending.Items,
		ShippingFeeCents: pending.ShippingFeeCents,
		Payment: orders.PaymentInput{
			Method:        conf.Method,
			TransactionID: conf.TransactionID,
			AmountMinor:   conf.AmountMinor,
			Currency:      currency,
			Status:        status,
		},
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithOrderID(ctx, result.Order.ID.String())
	if conf.Success {
		if err := s.cart.Clear(ctx, userID); err != nil {
			s.logg.Error(logCtx, "clear cart after payment failed", err)
		}
	}
	if err := s.pending.Delete(ctx, pending.Reference); err != nil {
		s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "drop pending checkout failed")
	}

	s.logg.Info(s.logg.WithFields(logCtx, map[string]any{
		"reference": pending.Reference,
		"paid":      conf.Success,
		"created":   result.Created,
	}), "checkout completed")
	return &CompleteResult{Order: result.Order, Paid: conf.Success}, nil
}

// checkLines re-reads every book in the cart and snapshots the purchasable lines.
func (s *service) checkLines(ctx context.Context, items []models.CartItem) ([]orders.LineItemInput, error) {
	checks := make([]pkgcheckout.LineCheck, 0, len(items))
	lines := make([]orders.LineItemInput, 0, len(items))
	for _, item := range items {
		check := pkgcheckout.LineCheck{
			BookID:         item.BookID,
			Title:          item.Title,
			Quantity:       item.Quantity,
			CartPriceCents: item.UnitPriceCents,
		}
		book, err := s.books.FindByID(ctx, item.BookID)
		switch {
		case err == nil:
			check.Available = book.Status == enums.BookStatusAvailable && book.OwnerID != item.UserID
			check.CurrentPriceCents = book.PriceCents
			lines = append(lines, orders.LineItemInput{
				BookID:         book.ID,
				SellerID:       book.OwnerID,
				Title:          book.Title,
				Author:         book.Author,
				CoverURL:       book.CoverURL,
				UnitPriceCents: book.PriceCents,
				Quantity:       item.Quantity,
			})
		case errors.Is(err, gorm.ErrRecordNotFound):
			check.Available = false
		default:
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load book")
		}
		checks = append(checks, check)
	}
	if err := pkgcheckout.ValidateLines(checks); err != nil {
		return nil, err
	}
	return lines, nil
}

func (s *service) callbackURL(reference string) string {
	return fmt.Sprintf("%s%s?reference=%s", s.publicURL, s.cfg.CallbackPath, url.QueryEscape(reference))
}
