package books

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bookstall-backend/pkg/db/models"
	"github.com/angelmondragon/bookstall-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bookstall-backend/pkg/errors"
	"github.com/angelmondragon/bookstall-backend/pkg/pagination"
)

// Service manages the shop listings.
type Service interface {
	Create(ctx context.Context, ownerID uuid.UUID, input CreateBookInput) (*BookDTO, error)
	Update(ctx context.Context, ownerID, bookID uuid.UUID, input UpdateBookInput) (*BookDTO, error)
	Delete(ctx context.Context, ownerID, bookID uuid.UUID) error
	Get(ctx context.Context, bookID uuid.UUID) (*BookDTO, error)
	List(ctx context.Context, input ListBooksInput) (*pagination.Page[BookDTO], error)
}

type repository interface {
	Create(ctx context.Context, book *models.Book) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Book, error)
	Save(ctx context.Context, book *models.Book) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.BookStatus) error
	List(ctx context.Context, filters ListFilters, limit int, cursor *pagination.Cursor) ([]models.Book, *pagination.Cursor, error)
}

type service struct {
	repo repository
}

func NewService(repo repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("books repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, ownerID uuid.UUID, input CreateBookInput) (*BookDTO, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	title := strings.TrimSpace(input.Title)
	author := strings.TrimSpace(input.Author)
	if title == "" || author == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title and author are required")
	}
	if err := validatePricing(input.ListingType, input.PriceCents); err != nil {
		return nil, err
	}
	if !input.Condition.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid condition %q", input.Condition)
	}

	book := &models.Book{
		OwnerID:     ownerID,
		Title:       title,
		Author:      author,
		Description: input.Description,
		CoverURL:    input.CoverURL,
		PriceCents:  input.PriceCents,
		ListingType: input.ListingType,
		Condition:   input.Condition,
		Status:      enums.BookStatusAvailable,
	}
	if err := s.repo.Create(ctx, book); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create book")
	}
	dto := FromModel(book)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, ownerID, bookID uuid.UUID, input UpdateBookInput) (*BookDTO, error) {
	book, err := s.loadOwned(ctx, ownerID, bookID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		if book.Title = strings.TrimSpace(*input.Title); book.Title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be blank")
		}
	}
	if input.Author != nil {
		if book.Author = strings.TrimSpace(*input.Author); book.Author == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "author cannot be blank")
		}
	}
	if input.Description != nil {
		book.Description = input.Description
	}
	if input.CoverURL != nil {
		book.CoverURL = input.CoverURL
	}
	if input.PriceCents != nil {
		book.PriceCents = *input.PriceCents
	}
	if input.ListingType != nil {
		book.ListingType = *input.ListingType
	}
	if input.Condition != nil {
		if !input.Condition.IsValid() {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid condition %q", *input.Condition)
		}
		book.Condition = *input.Condition
	}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid status %q", *input.Status)
		}
		book.Status = *input.Status
	}
	if err := validatePricing(book.ListingType, book.PriceCents); err != nil {
		return nil, err
	}

	book.UpdatedAt = time.Now().UTC()
	if err := s.repo.Save(ctx, book); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update book")
	}
	dto := FromModel(book)
	return &dto, nil
}

// Delete withdraws the listing. Rows are kept because orders and reviews reference them.
func (s *service) Delete(ctx context.Context, ownerID, bookID uuid.UUID) error {
	book, err := s.loadOwned(ctx, ownerID, bookID)
	if err != nil {
		return err
	}
	if book.Status == enums.BookStatusWithdrawn {
		return nil
	}
	if err := s.repo.UpdateStatus(ctx, book.ID, enums.BookStatusWithdrawn); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "withdraw book")
	}
	return nil
}

func (s *service) Get(ctx context.Context, bookID uuid.UUID) (*BookDTO, error) {
	book, err := s.load(ctx, bookID)
	if err != nil {
		return nil, err
	}
	dto := FromModel(book)
	return &dto, nil
}

func (s *service) List(ctx context.Context, input ListBooksInput) (*pagination.Page[BookDTO], error) {
	if input.Filters.ListingType != nil && !input.Filters.ListingType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid listing type")
	}
	if input.Filters.Status != nil && !input.Filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status")
	}
	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, next, err := s.repo.List(ctx, input.Filters, input.Pagination.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list books")
	}
	items := make([]BookDTO, 0, len(rows))
	for i := range rows {
		items = append(items, FromModel(&rows[i]))
	}
	page := pagination.NewPage(items, next)
	return &page, nil
}

func (s *service) load(ctx context.Context, bookID uuid.UUID) (*models.Book, error) {
	if bookID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "book id required")
	}
	book, err := s.repo.FindByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound("book")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load book")
	}
	return book, nil
}

func (s *service) loadOwned(ctx context.Context, ownerID, bookID uuid.UUID) (*models.Book, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	book, err := s.load(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if book.OwnerID != ownerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "book belongs to another user")
	}
	return book, nil
}

// Exchange listings are free; sale listings need a positive price.
func validatePricing(listing enums.ListingType, priceCents int64) error {
	if !listing.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid listing type %q", listing)
	}
	if priceCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if listing == enums.ListingTypeSale && priceCents == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "sale listings need a price")
	}
	return nil
}
