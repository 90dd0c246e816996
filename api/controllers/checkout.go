package controllers

import (
	"net/http"

	"github.com/angelmondragon/bookstall-backend/api/responses"
	"github.com/angelmondragon/bookstall-backend/internal/checkout"
	pkgerrors "github.com/angelmondragon/bookstall-backend/pkg/errors"
	"github.com/angelmondragon/bookstall-backend/pkg/logger"
)

// StartCheckout prices the cart and opens a payment intention with the gateway.
// The client follows redirect_url to pay.
func StartCheckout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "checkout")
			return
		}
		userID, ok := currentUser(w, r, logg)
		if !ok {
			return
		}
		input, ok := bindJSON[checkout.StartInput](w, r, logg)
		if !ok {
			return
		}
		intent, err := svc.Start(r.Context(), userID, input)
		respond(w, r, logg, http.StatusCreated, intent, err)
	}
}

// CompleteCheckout receives the gateway callback parameters, forwarded verbatim
// by the frontend in the query string, and records the order.
func CompleteCheckout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "checkout")
			return
		}
		userID, ok := currentUser(w, r, logg)
		if !ok {
			return
		}
		params := r.URL.Query()
		if len(params) == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "payment callback parameters required"))
			return
		}
		result, err := svc.Complete(r.Context(), userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			ctx := logg.WithOrderID(r.Context(), result.Order.ID.String())
			logg.Info(logg.WithField(ctx, "paid", result.Paid), "checkout.completed")
		}
		responses.WriteSuccess(w, result)
	}
}
