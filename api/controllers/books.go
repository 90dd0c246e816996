package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/bookstall-backend/api/responses"
	"github.com/angelmondragon/bookstall-backend/api/validators"
	"github.com/angelmondragon/bookstall-backend/internal/books"
	"github.com/angelmondragon/bookstall-backend/internal/reviews"
	"github.com/angelmondragon/bookstall-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bookstall-backend/pkg/errors"
	"github.com/angelmondragon/bookstall-backend/pkg/logger"
)

const maxSearchLength = 200

// ListBooks browses the catalog. Supported filters: q, listing_type, owner_id, status.
func ListBooks(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "books")
			return
		}
		page, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := r.URL.Query()
		filters := books.ListFilters{Query: validators.SanitizeString(query.Get("q"), maxSearchLength)}

		if raw := strings.TrimSpace(query.Get("listing_type")); raw != "" {
			lt := enums.ListingType(raw)
			if !lt.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid listing_type"))
				return
			}
			filters.ListingType = &lt
		}
		if raw := strings.TrimSpace(query.Get("status")); raw != "" {
			status := enums.BookStatus(raw)
			if !status.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid status"))
				return
			}
			filters.Status = &status
		}
		ownerID, err := validators.ParseQueryUUID(r, "owner_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters.OwnerID = ownerID

		result, err := svc.List(r.Context(), books.ListBooksInput{Filters: filters, Pagination: page})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func GetBook(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "books")
			return
		}
		bookID, err := validators.ParseUUIDParam(r, "bookID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		book, err := svc.Get(r.Context(), bookID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, book)
	}
}

func CreateBook(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "books")
			return
		}
		ownerID, ok := currentUser(w, r, logg)
		if !ok {
			return
		}
		var input books.CreateBookInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		book, err := svc.Create(r.Context(), ownerID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, book)
	}
}

func UpdateBook(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "books")
			return
		}
		ownerID, ok := currentUser(w, r, logg)
		if !ok {
			return
		}
		bookID, err := validators.ParseUUIDParam(r, "bookID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input books.UpdateBookInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		book, err := svc.Update(r.Context(), ownerID, bookID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, book)
	}
}

// DeleteBook withdraws the listing. Past orders keep referencing it.
func DeleteBook(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "books")
			return
		}
		ownerID, ok := currentUser(w, r, logg)
		if !ok {
			return
		}
		bookID, err := validators.ParseUUIDParam(r, "bookID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), ownerID, bookID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// ListBookReviews pages through the reviews left on a book.
func ListBookReviews(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return listTargetReviews(svc, logg, enums.ReviewTargetBook, "bookID")
}

// ListUserReviews pages through the reviews left on a seller.
func ListUserReviews(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return listTargetReviews(svc, logg, enums.ReviewTargetUser, "userID")
}

func listTargetReviews(svc reviews.Service, logg *logger.Logger, kind enums.ReviewTargetKind, param string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "reviews")
			return
		}
		targetID, err := validators.ParseUUIDParam(r, param)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.ListReviews(r.Context(), reviews.Target{Kind: kind, ID: targetID}, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// SubmitReview records a rating for a purchased book or its seller.
func SubmitReview(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "reviews")
			return
		}
		reviewerID, ok := currentUser(w, r, logg)
		if !ok {
			return
		}
		var input reviews.SubmitReviewInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.SubmitReview(r.Context(), reviewerID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
