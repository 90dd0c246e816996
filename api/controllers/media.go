package controllers

import (
	"errors"
	"net/http"

	"github.com/angelmondragon/bookstall-backend/api/responses"
	"github.com/angelmondragon/bookstall-backend/api/validators"
	"github.com/angelmondragon/bookstall-backend/internal/media"
	pkgerrors "github.com/angelmondragon/bookstall-backend/pkg/errors"
	"github.com/angelmondragon/bookstall-backend/pkg/logger"
)

// multipart framing allowance on top of the file size limit
const multipartOverhead = 1 << 20

type deleteMediaRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// UploadMedia accepts a multipart form with a "file" part and a "kind" field
// (cover, post or avatar) and returns the public URL of the stored object.
func UploadMedia(svc media.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "media")
			return
		}
		userID, ok := currentUser(w, r, logg)
		if !ok {
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
		if err := r.ParseMultipartForm(multipartOverhead); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "file too large"))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form"))
			return
		}
		defer func() {
			if r.MultipartForm != nil {
				_ = r.MultipartForm.RemoveAll()
			}
		}()

		kind := media.Kind(r.FormValue("kind"))
		file, header, err := r.FormFile("file")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "file is required"))
			return
		}
		defer file.Close()

		out, err := svc.Upload(r.Context(), userID, media.UploadInput{
			Kind:     kind,
			FileName: header.Filename,
			Body:     file,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, out)
	}
}

// DeleteMedia removes an object the caller uploaded.
func DeleteMedia(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "media")
			return
		}
		userID, ok := currentUser(w, r, logg)
		if !ok {
			return
		}
		var req deleteMediaRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), userID, req.URL); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
