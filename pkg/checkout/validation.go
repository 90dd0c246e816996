package checkout

import (
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/bookstall-backend/pkg/errors"
)

// LineCheck pairs a cart line with the current state of its book.
type LineCheck struct {
	BookID            uuid.UUID
	Title             string
	Quantity          int
	CartPriceCents    int64
	CurrentPriceCents int64
	Available         bool
}

// LineViolation explains why a cart line cannot be checked out.
type LineViolation struct {
	BookID            uuid.UUID `json:"book_id"`
	Title             string    `json:"title,omitempty"`
	Reason            string    `json:"reason"`
	CartPriceCents    int64     `json:"cart_price_cents,omitempty"`
	CurrentPriceCents int64     `json:"current_price_cents,omitempty"`
}

const (
	ReasonUnavailable  = "unavailable"
	ReasonPriceChanged = "price_changed"
	ReasonQuantity     = "invalid_quantity"
)

// ValidateLines ensures every cart line still refers to an available book at the price the
// buyer saw. All violations are reported together.
func ValidateLines(lines []LineCheck) error {
	if len(lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	var violations []LineViolation
	for _, line := range lines {
		switch {
		case !line.Available:
			violations = append(violations, LineViolation{BookID: line.BookID, Title: line.Title, Reason: ReasonUnavailable})
		case line.Quantity < 1:
			violations = append(violations, LineViolation{BookID: line.BookID, Title: line.Title, Reason: ReasonQuantity})
		case line.CartPriceCents != line.CurrentPriceCents:
			violations = append(violations, LineViolation{
				BookID:            line.BookID,
				Title:             line.Title,
				Reason:            ReasonPriceChanged,
				CartPriceCents:    line.CartPriceCents,
				CurrentPriceCents: line.CurrentPriceCents,
			})
		}
	}
	if len(violations) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("%d cart item(s) need attention", len(violations))).WithDetails(map[string]any{
		"violations": violations,
	})
}
