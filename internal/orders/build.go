package orders

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bookstall-backend/pkg/db/models"
	"github.com/angelmondragon/bookstall-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bookstall-backend/pkg/errors"
)

// StatusForPayment derives the order status from the payment outcome.
// A paid order is recorded as delivered straight away; there is no fulfilment step.
func StatusForPayment(status enums.PaymentStatus) enums.OrderStatus {
	if status == enums.PaymentStatusPaid {
		return enums.OrderStatusDelivered
	}
	return enums.OrderStatusPending
}

// AmountFromMinor converts minor units into the major-unit decimal stored on the order.
func AmountFromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// TotalCents returns Σ price*qty plus the shipping fee.
func TotalCents(items []LineItemInput, shippingFeeCents int64) int64 {
	var subtotal int64
	for _, it := range items {
		subtotal += it.UnitPriceCents * int64(it.Quantity)
	}
	return subtotal + shippingFeeCents
}

// BuildOrder validates input and assembles the order with its item and payment
// snapshots. It performs no I/O.
func BuildOrder(input CreateOrderInput, defaultCurrency string, now time.Time) (*models.Order, error) {
	if input.PurchaserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchaser id required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order needs at least one item")
	}
	if input.ShippingFeeCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping fee cannot be negative")
	}
	if err := ValidateShipping(input.Shipping); err != nil {
		return nil, err
	}

	payment := input.Payment
	if strings.TrimSpace(payment.TransactionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment transaction id required")
	}
	if !payment.Status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid payment status %q", payment.Status)
	}

	seen := make(map[uuid.UUID]struct{}, len(input.Items))
	items := make([]models.OrderItem, 0, len(input.Items))
	var subtotal int64
	for i, it := range input.Items {
		if it.BookID == uuid.Nil || it.SellerID == uuid.Nil {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "item %d: book and seller are required", i)
		}
		if _, dup := seen[it.BookID]; dup {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "item %d: book %s listed twice", i, it.BookID)
		}
		seen[it.BookID] = struct{}{}
		if it.Quantity < 1 {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "item %d: quantity must be at least 1", i)
		}
		if it.UnitPriceCents < 0 {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "item %d: price cannot be negative", i)
		}
		line := it.UnitPriceCents * int64(it.Quantity)
		subtotal += line
		items = append(items, models.OrderItem{
			BookID:         it.BookID,
			SellerID:       it.SellerID,
			Title:          it.Title,
			Author:         it.Author,
			CoverURL:       it.CoverURL,
			UnitPriceCents: it.UnitPriceCents,
			Quantity:       it.Quantity,
			LineTotalCents: line,
		})
	}

	total := subtotal + input.ShippingFeeCents
	if payment.AmountMinor != total {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount does not match order total").
			WithDetails(map[string]any{"expected_cents": total, "paid_cents": payment.AmountMinor})
	}

	currency := strings.ToLower(strings.TrimSpace(payment.Currency))
	if currency == "" {
		currency = strings.ToLower(defaultCurrency)
	}

	paidAt := payment.PaidAt
	if payment.Status == enums.PaymentStatusPaid && paidAt == nil {
		at := now.UTC()
		paidAt = &at
	}

	return &models.Order{
		PurchaserID: input.PurchaserID,
		Status:      StatusForPayment(payment.Status),
		Shipping:    input.Shipping,
		Payment: models.PaymentRecord{
			Method:        strings.TrimSpace(payment.Method),
			TransactionID: strings.TrimSpace(payment.TransactionID),
			Amount:        AmountFromMinor(payment.AmountMinor),
			Currency:      currency,
			Status:        payment.Status,
			PaidAt:        paidAt,
		},
		SubtotalCents:    subtotal,
		ShippingFeeCents: input.ShippingFeeCents,
		Items:            items,
	}, nil
}

// ValidateShipping reports the blank delivery fields of s.
func ValidateShipping(s models.ShippingSnapshot) error {
	missing := []string{}
	for field, value := range map[string]string{
		"name":    s.Name,
		"phone":   s.Phone,
		"address": s.Address,
		"city":    s.City,
		"region":  s.Region,
	} {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping details incomplete").
			WithDetails(map[string]any{"missing": missing})
	}
	return nil
}
