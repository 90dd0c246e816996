package books

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bookstall-backend/pkg/db/models"
	"github.com/angelmondragon/bookstall-backend/pkg/enums"
	"github.com/angelmondragon/bookstall-backend/pkg/pagination"
)

// BookDTO is the API shape of a listing.
type BookDTO struct {
	ID          uuid.UUID           `json:"id"`
	OwnerID     uuid.UUID           `json:"owner_id"`
	Title       string              `json:"title"`
	Author      string              `json:"author"`
	Description *string             `json:"description,omitempty"`
	CoverURL    *string             `json:"cover_url,omitempty"`
	PriceCents  int64               `json:"price_cents"`
	ListingType enums.ListingType   `json:"listing_type"`
	Condition   enums.BookCondition `json:"condition"`
	Status      enums.BookStatus    `json:"status"`
	RatingMean  float64             `json:"rating_mean"`
	RatingCount int                 `json:"rating_count"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// CreateBookInput is the payload for a new listing.
type CreateBookInput struct {
	Title       string              `json:"title" validate:"required,notblank,max=200"`
	Author      string              `json:"author" validate:"required,notblank,max=200"`
	Description *string             `json:"description,omitempty" validate:"omitempty,max=4000"`
	CoverURL    *string             `json:"cover_url,omitempty" validate:"omitempty,url"`
	PriceCents  int64               `json:"price_cents" validate:"gte=0"`
	ListingType enums.ListingType   `json:"listing_type" validate:"required"`
	Condition   enums.BookCondition `json:"condition" validate:"required"`
}

// UpdateBookInput carries partial edits. Nil fields are left untouched.
type UpdateBookInput struct {
	Title       *string              `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Author      *string              `json:"author,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string              `json:"description,omitempty" validate:"omitempty,max=4000"`
	CoverURL    *string              `json:"cover_url,omitempty" validate:"omitempty,url"`
	PriceCents  *int64               `json:"price_cents,omitempty" validate:"omitempty,gte=0"`
	ListingType *enums.ListingType   `json:"listing_type,omitempty"`
	Condition   *enums.BookCondition `json:"condition,omitempty"`
	Status      *enums.BookStatus    `json:"status,omitempty"`
}

// ListFilters narrow the browse query.
type ListFilters struct {
	Query       string
	ListingType *enums.ListingType
	OwnerID     *uuid.UUID
	// Status defaults to available when nil.
	Status *enums.BookStatus
}

// ListBooksInput combines filters with cursor pagination.
type ListBooksInput struct {
	Filters    ListFilters
	Pagination pagination.Params
}

func FromModel(b *models.Book) BookDTO {
	return BookDTO{
		ID:          b.ID,
		OwnerID:     b.OwnerID,
		Title:       b.Title,
		Author:      b.Author,
		Description: b.Description,
		CoverURL:    b.CoverURL,
		PriceCents:  b.PriceCents,
		ListingType: b.ListingType,
		Condition:   b.Condition,
		Status:      b.Status,
		RatingMean:  b.RatingMean,
		RatingCount: b.RatingCount,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}
