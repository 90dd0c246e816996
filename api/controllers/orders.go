package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/bookstall-backend/api/validators"
	"github.com/angelmondragon/bookstall-backend/internal/orders"
	"github.com/angelmondragon/bookstall-backend/pkg/logger"
	"github.com/angelmondragon/bookstall-backend/pkg/pagination"
)

type orderLister func(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Page[orders.OrderDTO], error)

// ListPurchases pages through orders the caller placed.
func ListPurchases(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return listOrders(nil, logg)
	}
	return listOrders(svc.ListPurchases, logg)
}

// ListSales pages through orders holding at least one of the caller's books.
func ListSales(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return listOrders(nil, logg)
	}
	return listOrders(svc.ListSales, logg)
}

func listOrders(list orderLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if list == nil {
			serviceUnavailable(w, r, logg, "orders")
			return
		}
		userID, ok := currentUser(w, r, logg)
		if !ok {
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			respond(w, r, logg, 0, nil, err)
			return
		}
		page, err := list(r.Context(), userID, params)
		respond(w, r, logg, http.StatusOK, page, err)
	}
}

// GetOrder is visible to the purchaser and to sellers with a line in it.
func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "orders")
			return
		}
		userID, ok := currentUser(w, r, logg)
		if !ok {
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderID")
		if err != nil {
			respond(w, r, logg, 0, nil, err)
			return
		}
		order, err := svc.Get(r.Context(), userID, orderID)
		respond(w, r, logg, http.StatusOK, order, err)
	}
}
