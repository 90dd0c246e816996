package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bookstall-backend/pkg/db/models"
	"github.com/angelmondragon/bookstall-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bookstall-backend/pkg/errors"
)

// Service mirrors each user's cart in the record store.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	Items(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	Add(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartDTO, error)
	SetQuantity(ctx context.Context, userID, bookID uuid.UUID, quantity int) (*CartDTO, error)
	Remove(ctx context.Context, userID, bookID uuid.UUID) (*CartDTO, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type cartRepository interface {
	Increment(ctx context.Context, item *models.CartItem) error
	Upsert(ctx context.Context, item *models.CartItem) error
	Find(ctx context.Context, userID, bookID uuid.UUID) (*models.CartItem, error)
	List(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	Delete(ctx context.Context, userID, bookID uuid.UUID) (int64, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type bookReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Book, error)
}

type service struct {
	repo  cartRepository
	books bookReader
}

func NewService(repo cartRepository, books bookReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if books == nil {
		return nil, fmt.Errorf("book reader required")
	}
	return &service{repo: repo, books: books}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	items, err := s.Items(ctx, userID)
	if err != nil {
		return nil, err
	}
	dto := toDTO(items)
	return &dto, nil
}

func (s *service) Items(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	items, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return items, nil
}

// Add puts a book in the cart, adding to the quantity when it is already there.
func (s *service) Add(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartDTO, error) {
	qty := input.Quantity
	if qty == 0 {
		qty = 1
	}
	if err := validateQuantity(qty); err != nil {
		return nil, err
	}
	item, err := s.snapshot(ctx, userID, input.BookID, qty)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.Find(ctx, userID, input.BookID)
	switch {
	case err == nil:
		if existing.Quantity+qty > MaxQuantity {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "quantity cannot exceed %d", MaxQuantity)
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}

	if err := s.repo.Increment(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add cart item")
	}
	return s.Get(ctx, userID)
}

// SetQuantity writes the line with exactly quantity copies. Repeating the call
// leaves a single line with the same quantity.
func (s *service) SetQuantity(ctx context.Context, userID, bookID uuid.UUID, quantity int) (*CartDTO, error) {
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}
	item, err := s.snapshot(ctx, userID, bookID, quantity)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Upsert(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set cart quantity")
	}
	return s.Get(ctx, userID)
}

func (s *service) Remove(ctx context.Context, userID, bookID uuid.UUID) (*CartDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if _, err := s.repo.Delete(ctx, userID, bookID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
	}
	return s.Get(ctx, userID)
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if err := s.repo.Clear(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

// snapshot loads the book and copies the fields the cart keeps.
func (s *service) snapshot(ctx context.Context, userID, bookID uuid.UUID, qty int) (*models.CartItem, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if bookID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "book id required")
	}
	book, err := s.books.FindByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound("book")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load book")
	}
	if book.OwnerID == userID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "you cannot buy your own book")
	}
	if book.Status != enums.BookStatusAvailable {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "book is no longer available")
	}
	if book.ListingType != enums.ListingTypeSale {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "exchange listings are arranged through chat")
	}
	return &models.CartItem{
		UserID:         userID,
		BookID:         book.ID,
		OwnerID:        book.OwnerID,
		Title:          book.Title,
		Author:         book.Author,
		CoverURL:       book.CoverURL,
		UnitPriceCents: book.PriceCents,
		Quantity:       qty,
	}, nil
}

func validateQuantity(qty int) error {
	if qty < 1 || qty > MaxQuantity {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "quantity must be between 1 and %d", MaxQuantity)
	}
	return nil
}
