package checkout

import (
	"context"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/bookstall-backend/internal/books"
	"github.com/angelmondragon/bookstall-backend/internal/cart"
	"github.com/angelmondragon/bookstall-backend/internal/orders"
	"github.com/angelmondragon/bookstall-backend/internal/payments"
	"github.com/angelmondragon/bookstall-backend/internal/users"
	"github.com/angelmondragon/bookstall-backend/pkg/config"
	"github.com/angelmondragon/bookstall-backend/pkg/db"
	"github.com/angelmondragon/bookstall-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bookstall-backend/pkg/db/models"
	"github.com/angelmondragon/bookstall-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bookstall-backend/pkg/errors"
	"github.com/angelmondragon/bookstall-backend/pkg/logger"
	"github.com/angelmondragon/bookstall-backend/pkg/outbox"
	"github.com/angelmondragon/bookstall-backend/pkg/redis"
)

type harness struct {
	conn    *gorm.DB
	mr      *miniredis.Miniredis
	svc     Service
	cart    cart.Service
	gateway *payments.RedirectGateway
	buyer   *models.User
	seller  *models.User
	ctx     context.Context
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	conn := dbtest.Open(t)
	mr := miniredis.RunT(t)
	logg := logger.New(logger.Options{ServiceName: "checkout-test"})

	bookRepo := books.NewRepository(conn)
	cartSvc, err := cart.NewService(cart.NewRepository(conn), bookRepo)
	require.NoError(t, err)
	orderSvc, err := orders.NewService(orders.NewRepository(conn), db.Wrap(conn), outbox.NewService(outbox.NewRepository(conn), logg), "usd", logg)
	require.NoError(t, err)
	gateway, err := payments.NewRedirectGateway("https://pay.example.com/p", "secret")
	require.NoError(t, err)
	pending, err := NewPendingStore(redis.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()})))
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Cart:    cartSvc,
		Books:   bookRepo,
		Users:   users.NewRepository(conn),
		Orders:  orderSvc,
		Gateway: gateway,
		Pending: pending,
		Config: config.CheckoutConfig{
			ShippingFeeCents: 500,
			Currency:         "usd",
			PendingTTL:       time.Hour,
			CallbackPath:     "/checkout/complete",
			CancelPath:       "/cart",
		},
		PublicURL: "https://app.example.com/",
		Logger:    logg,
	})
	require.NoError(t, err)

	h := &harness{conn: conn, mr: mr, svc: svc, cart: cartSvc, gateway: gateway, ctx: context.Background()}
	h.buyer = h.user("buyer")
	h.seller = h.user("seller")
	return h
}

func (h *harness) user(name string) *models.User {
	u := &models.User{Email: name + "-" + uuid.NewString() + "@example.com", PasswordHash: "x", DisplayName: name}
	if err := h.conn.Create(u).Error; err != nil {
		panic(err)
	}
	return u
}

func (h *harness) book(t *testing.T, title string, price int64) *models.Book {
	t.Helper()
	b := &models.Book{
		OwnerID: h.seller.ID, Title: title, Author: "a", PriceCents: price,
		ListingType: enums.ListingTypeSale, Condition: enums.BookConditionGood, Status: enums.BookStatusAvailable,
	}
	require.NoError(t, h.conn.Create(b).Error)
	return b
}

func shipping() models.ShippingSnapshot {
	return models.ShippingSnapshot{Name: "Buyer", Phone: "555", Address: "1 Main", City: "Town", Region: "North"}
}

func (h *harness) callback(reference string, amount int64, success bool) url.Values {
	c := payments.Confirmation{Reference: reference, TransactionID: "txn_" + reference, AmountMinor: amount, Currency: "usd", Method: "card", Success: success}
	v := url.Values{}
	v.Set("reference", c.Reference)
	v.Set("transaction_id", c.TransactionID)
	v.Set("amount_cents", strconv.FormatInt(c.AmountMinor, 10))
	v.Set("currency", c.Currency)
	v.Set("method", c.Method)
	v.Set("success", strconv.FormatBool(c.Success))
	v.Set("signature", h.gateway.SignCallback(c))
	return v
}

func referenceOf(t *testing.T, intent *payments.Intention) string {
	t.Helper()
	u, err := url.Parse(intent.RedirectURL)
	require.NoError(t, err)
	return u.Query().Get("reference")
}

func TestCheckoutPaidScenario(t *testing.T) {
	h := newHarness(t)
	b1 := h.book(t, "b1", 10000)
	_, err := h.cart.SetQuantity(h.ctx, h.buyer.ID, b1.ID, 2)
	require.NoError(t, err)

	intent, err := h.svc.Start(h.ctx, h.buyer.ID, StartInput{Shipping: shipping()})
	require.NoError(t, err)
	require.EqualValues(t, 20500, intent.AmountCents)
	ref := referenceOf(t, intent)
	require.True(t, h.mr.Exists("bs:checkout:"+ref))

	res, err := h.svc.Complete(h.ctx, h.buyer.ID, h.callback(ref, 20500, true))
	require.NoError(t, err)
	require.True(t, res.Paid)
	require.Equal(t, enums.OrderStatusDelivered, res.Order.Status)
	require.Equal(t, "205", res.Order.Payment.Amount.String())
	require.Len(t, res.Order.Items, 1)
	require.Equal(t, 2, res.Order.Items[0].Quantity)

	c, err := h.cart.Get(h.ctx, h.buyer.ID)
	require.NoError(t, err)
	require.Empty(t, c.Items)
	require.False(t, h.mr.Exists("bs:checkout:"+ref))

	// a replayed callback returns the same order
	again, err := h.svc.Complete(h.ctx, h.buyer.ID, h.callback(ref, 20500, true))
	require.NoError(t, err)
	require.Equal(t, res.Order.ID, again.Order.ID)

	var count int64
	require.NoError(t, h.conn.Model(&models.Order{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestCheckoutFailedPaymentKeepsCart(t *testing.T) {
	h := newHarness(t)
	b1 := h.book(t, "b1", 1000)
	_, err := h.cart.Add(h.ctx, h.buyer.ID, cart.AddItemInput{BookID: b1.ID})
	require.NoError(t, err)

	intent, err := h.svc.Start(h.ctx, h.buyer.ID, StartInput{Shipping: shipping()})
	require.NoError(t, err)

	res, err := h.svc.Complete(h.ctx, h.buyer.ID, h.callback(referenceOf(t, intent), 1500, false))
	require.NoError(t, err)
	require.False(t, res.Paid)
	require.Equal(t, enums.OrderStatusPending, res.Order.Status)

	c, err := h.cart.Get(h.ctx, h.buyer.ID)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
}

func TestCheckoutStartRejections(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Start(h.ctx, h.buyer.ID, StartInput{Shipping: shipping()})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "empty cart: %v", err)

	b1 := h.book(t, "b1", 1000)
	_, err = h.cart.Add(h.ctx, h.buyer.ID, cart.AddItemInput{BookID: b1.ID})
	require.NoError(t, err)

	_, err = h.svc.Start(h.ctx, h.buyer.ID, StartInput{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "missing shipping: %v", err)

	require.NoError(t, h.conn.Model(&models.Book{}).Where("id = ?", b1.ID).Update("price_cents", 1200).Error)
	_, err = h.svc.Start(h.ctx, h.buyer.ID, StartInput{Shipping: shipping()})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "price change: %v", err)
}

func TestCheckoutCompleteGuards(t *testing.T) {
	h := newHarness(t)
	b1 := h.book(t, "b1", 1000)
	_, err := h.cart.Add(h.ctx, h.buyer.ID, cart.AddItemInput{BookID: b1.ID})
	require.NoError(t, err)
	intent, err := h.svc.Start(h.ctx, h.buyer.ID, StartInput{Shipping: shipping()})
	require.NoError(t, err)
	ref := referenceOf(t, intent)

	bad := h.callback(ref, 1500, true)
	bad.Set("signature", "forged")
	_, err = h.svc.Complete(h.ctx, h.buyer.ID, bad)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = h.svc.Complete(h.ctx, h.seller.ID, h.callback(ref, 1500, true))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = h.svc.Complete(h.ctx, h.buyer.ID, h.callback(ref, 999, true))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = h.svc.Complete(h.ctx, h.buyer.ID, h.callback("unknown", 1500, true))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
