package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bookstall-backend/internal/books"
	"github.com/angelmondragon/bookstall-backend/internal/reviews"
	"github.com/angelmondragon/bookstall-backend/pkg/enums"
	"github.com/angelmondragon/bookstall-backend/pkg/pagination"
)

type stubBooksService struct {
	books.Service
	createFn func(ctx context.Context, ownerID uuid.UUID, input books.CreateBookInput) (*books.BookDTO, error)
	listFn   func(ctx context.Context, input books.ListBooksInput) (*pagination.Page[books.BookDTO], error)
	deleteFn func(ctx context.Context, ownerID, bookID uuid.UUID) error
}

func (s *stubBooksService) Create(ctx context.Context, ownerID uuid.UUID, input books.CreateBookInput) (*books.BookDTO, error) {
	return s.createFn(ctx, ownerID, input)
}

func (s *stubBooksService) List(ctx context.Context, input books.ListBooksInput) (*pagination.Page[books.BookDTO], error) {
	return s.listFn(ctx, input)
}

func (s *stubBooksService) Delete(ctx context.Context, ownerID, bookID uuid.UUID) error {
	return s.deleteFn(ctx, ownerID, bookID)
}

type stubReviewsService struct {
	reviews.Service
	listFn      func(ctx context.Context, target reviews.Target, params pagination.Params) (*pagination.Page[reviews.ReviewDTO], error)
	submitFn    func(ctx context.Context, reviewerID uuid.UUID, input reviews.SubmitReviewInput) (*reviews.ReviewResult, error)
	recomputeFn func(ctx context.Context) (int64, error)
}

func (s *stubReviewsService) ListReviews(ctx context.Context, target reviews.Target, params pagination.Params) (*pagination.Page[reviews.ReviewDTO], error) {
	return s.listFn(ctx, target, params)
}

func (s *stubReviewsService) SubmitReview(ctx context.Context, reviewerID uuid.UUID, input reviews.SubmitReviewInput) (*reviews.ReviewResult, error) {
	return s.submitFn(ctx, reviewerID, input)
}

func (s *stubReviewsService) RecomputeAggregates(ctx context.Context) (int64, error) {
	return s.recomputeFn(ctx)
}

func TestListBooksBuildsFilters(t *testing.T) {
	ownerID := uuid.New()
	svc := &stubBooksService{
		listFn: func(ctx context.Context, input books.ListBooksInput) (*pagination.Page[books.BookDTO], error) {
			require.Equal(t, "dune", input.Filters.Query)
			require.NotNil(t, input.Filters.ListingType)
			require.Equal(t, enums.ListingType("sale"), *input.Filters.ListingType)
			require.NotNil(t, input.Filters.OwnerID)
			require.Equal(t, ownerID, *input.Filters.OwnerID)
			require.Nil(t, input.Filters.Status)
			require.Equal(t, 10, input.Pagination.Limit)
			page := pagination.NewPage([]books.BookDTO{{Title: "Dune"}}, nil)
			return &page, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/books?q=%20dune%20&listing_type=sale&limit=10&owner_id="+ownerID.String(), nil)
	resp := httptest.NewRecorder()
	ListBooks(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	page := decodeData[pagination.Page[books.BookDTO]](t, resp)
	require.Len(t, page.Items, 1)
}

func TestListBooksRejectsUnknownListingType(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/books?listing_type=swap-meet", nil)
	resp := httptest.NewRecorder()
	ListBooks(&stubBooksService{}, testLogger())(resp, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCreateBookUsesCaller(t *testing.T) {
	userID := uuid.New()
	svc := &stubBooksService{
		createFn: func(ctx context.Context, ownerID uuid.UUID, input books.CreateBookInput) (*books.BookDTO, error) {
			require.Equal(t, userID, ownerID)
			return &books.BookDTO{ID: uuid.New(), OwnerID: ownerID, Title: input.Title}, nil
		},
	}

	body := `{"title":"Dune","author":"Frank Herbert","price_cents":1200,"listing_type":"sale","condition":"good"}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/books", strings.NewReader(body)), userID)
	resp := httptest.NewRecorder()
	CreateBook(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	require.Equal(t, "Dune", decodeData[books.BookDTO](t, resp).Title)
}

func TestDeleteBookRejectsBadID(t *testing.T) {
	req := withUser(httptest.NewRequest(http.MethodDelete, "/", nil), uuid.New())
	req = withURLParams(req, map[string]string{"bookID": "nope"})
	resp := httptest.NewRecorder()
	DeleteBook(&stubBooksService{}, testLogger())(resp, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestListBookReviewsTargetsBook(t *testing.T) {
	bookID := uuid.New()
	svc := &stubReviewsService{
		listFn: func(ctx context.Context, target reviews.Target, params pagination.Params) (*pagination.Page[reviews.ReviewDTO], error) {
			require.Equal(t, enums.ReviewTargetBook, target.Kind)
			require.Equal(t, bookID, target.ID)
			page := pagination.NewPage[reviews.ReviewDTO](nil, nil)
			return &page, nil
		},
	}
	req := withURLParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"bookID": bookID.String()})
	resp := httptest.NewRecorder()
	ListBookReviews(svc, testLogger())(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestSubmitReviewCreated(t *testing.T) {
	reviewer := uuid.New()
	target := uuid.New()
	svc := &stubReviewsService{
		submitFn: func(ctx context.Context, reviewerID uuid.UUID, input reviews.SubmitReviewInput) (*reviews.ReviewResult, error) {
			require.Equal(t, reviewer, reviewerID)
			require.Equal(t, 4, input.Rating)
			return &reviews.ReviewResult{Mean: 4, Count: 1}, nil
		},
	}
	body := `{"target_id":"` + target.String() + `","target_kind":"user","rating":4}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/reviews", strings.NewReader(body)), reviewer)
	resp := httptest.NewRecorder()
	SubmitReview(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	require.Equal(t, 1, decodeData[reviews.ReviewResult](t, resp).Count)
}

func TestSubmitReviewRejectsRatingOutOfRange(t *testing.T) {
	body := `{"target_id":"` + uuid.NewString() + `","target_kind":"book","rating":6}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/reviews", strings.NewReader(body)), uuid.New())
	resp := httptest.NewRecorder()
	SubmitReview(&stubReviewsService{}, testLogger())(resp, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}
