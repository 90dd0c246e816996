package controllers

import (
	"net/http"

	"github.com/angelmondragon/bookstall-backend/api/responses"
	"github.com/angelmondragon/bookstall-backend/api/validators"
	"github.com/angelmondragon/bookstall-backend/internal/posts"
	"github.com/angelmondragon/bookstall-backend/pkg/logger"
)

// ListPosts is the community feed, optionally narrowed with author_id.
func ListPosts(svc posts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "posts")
			return
		}
		viewerID, ok := currentUser(w, r, logg)
		if !ok {
			return
		}
		authorID, err := validators.ParseQueryUUID(r, "author_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Feed(r.Context(), viewerID, authorID, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func CreatePost(svc posts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "posts")
			return
		}
		authorID, ok := currentUser(w, r, logg)
		if !ok {
			return
		}
		var input posts.CreatePostInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		post, err := svc.Create(r.Context(), authorID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, post)
	}
}

func GetPost(svc posts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "posts")
			return
		}
		viewerID, ok := currentUser(w, r, logg)
		if !ok {
			return
		}
		postID, err := validators.ParseUUIDParam(r, "postID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		post, err := svc.Get(r.Context(), viewerID, postID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, post)
	}
}

func DeletePost(svc posts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "posts")
			return
		}
		authorID, ok := currentUser(w, r, logg)
		if !ok {
			return
		}
		postID, err := validators.ParseUUIDParam(r, "postID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), authorID, postID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func CreateComment(svc posts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "posts")
			return
		}
		authorID, ok := currentUser(w, r, logg)
		if !ok {
			return
		}
		postID, err := validators.ParseUUIDParam(r, "postID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input posts.CreateCommentInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		comment, err := svc.Comment(r.Context(), authorID, postID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, comment)
	}
}

func ListComments(svc posts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "posts")
			return
		}
		postID, err := validators.ParseUUIDParam(r, "postID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.ListComments(r.Context(), postID, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// LikePost and UnlikePost are idempotent; both return the current like state.
func LikePost(svc posts.Service, logg *logger.Logger) http.HandlerFunc {
	return toggleLike(svc, logg, true)
}

func UnlikePost(svc posts.Service, logg *logger.Logger) http.HandlerFunc {
	return toggleLike(svc, logg, false)
}

func toggleLike(svc posts.Service, logg *logger.Logger, like bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "posts")
			return
		}
		userID, ok := currentUser(w, r, logg)
		if !ok {
			return
		}
		postID, err := validators.ParseUUIDParam(r, "postID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var result *posts.LikeResult
		if like {
			result, err = svc.Like(r.Context(), userID, postID)
		} else {
			result, err = svc.Unlike(r.Context(), userID, postID)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
