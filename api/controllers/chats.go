package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/bookstall-backend/api/responses"
	"github.com/angelmondragon/bookstall-backend/api/validators"
	"github.com/angelmondragon/bookstall-backend/internal/chats"
	"github.com/angelmondragon/bookstall-backend/pkg/logger"
)

func ListChats(svc chats.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "chats")
			return
		}
		userID, ok := currentUser(w, r, logg)
		if !ok {
			return
		}
		page, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.ListMine(r.Context(), userID, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// OpenChat returns the existing conversation for the pair, or starts one (201).
func OpenChat(svc chats.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "chats")
			return
		}
		userID, ok := currentUser(w, r, logg)
		if !ok {
			return
		}
		var input chats.OpenChatInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Open(r.Context(), userID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := http.StatusOK
		if result.Created {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}

// ListChatMessages pages forward from the after cursor.
func ListChatMessages(svc chats.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "chats")
			return
		}
		userID, ok := currentUser(w, r, logg)
		if !ok {
			return
		}
		chatID, err := validators.ParseUUIDParam(r, "chatID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", validators.DefaultPageLimit, 1, validators.MaxPageLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.ListMessages(r.Context(), userID, chatID, chats.MessagesParams{
			Limit: limit,
			After: strings.TrimSpace(r.URL.Query().Get("after")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func SendChatMessage(svc chats.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "chats")
			return
		}
		userID, ok := currentUser(w, r, logg)
		if !ok {
			return
		}
		chatID, err := validators.ParseUUIDParam(r, "chatID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input chats.SendMessageInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		msg, err := svc.Send(r.Context(), userID, chatID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, msg)
	}
}
