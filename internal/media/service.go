package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"unicode"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/bookstall-backend/pkg/errors"
)

// sniffLen matches what mimetype reads by default.
const sniffLen = 3072

type objectStore interface {
	Upload(ctx context.Context, objectName, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, objectName string) error
	ObjectName(publicURL string) (string, bool)
}

// Service stores user uploads in the object store.
type Service interface {
	Upload(ctx context.Context, userID uuid.UUID, input UploadInput) (*UploadOutput, error)
	Delete(ctx context.Context, userID uuid.UUID, publicURL string) error
}

// UploadInput is one file from a multipart request.
type UploadInput struct {
	Kind     Kind
	FileName string
	Body     io.Reader
}

type UploadOutput struct {
	URL         string `json:"url"`
	ObjectName  string `json:"object_name"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

type service struct {
	store    objectStore
	maxBytes int64
}

// NewService constructs a media service backed by the provided object store.
func NewService(store objectStore, maxBytes int64) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if maxBytes <= 0 {
		return nil, fmt.Errorf("max upload size must be positive")
	}
	return &service{store: store, maxBytes: maxBytes}, nil
}

func (s *service) Upload(ctx context.Context, userID uuid.UUID, input UploadInput) (*UploadOutput, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.Kind.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid media kind %q", input.Kind)
	}
	if input.Body == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is required")
	}

	// Read one byte past the limit so oversize files are detected without buffering them fully.
	data, err := io.ReadAll(io.LimitReader(input.Body, s.maxBytes+1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read upload")
	}
	size := int64(len(data))
	if size == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is empty")
	}
	if size > s.maxBytes {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "file must be ≤ %d bytes", s.maxBytes)
	}

	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	detected := mimetype.Detect(head)
	contentType := baseType(detected)
	if !input.Kind.accepts(detected) {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "%s uploads must be %s", input.Kind, input.Kind.describe()).
			WithDetails(map[string]any{"detected": contentType})
	}

	objectName := buildObjectName(input.Kind, userID, uuid.New(), input.FileName, detected.Extension())
	url, err := s.store.Upload(ctx, objectName, contentType, bytes.NewReader(data))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload object")
	}
	return &UploadOutput{
		URL:         url,
		ObjectName:  objectName,
		ContentType: contentType,
		SizeBytes:   size,
	}, nil
}

// Delete removes an object the caller uploaded. Ownership is read from the object path.
func (s *service) Delete(ctx context.Context, userID uuid.UUID, publicURL string) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	objectName, ok := s.store.ObjectName(strings.TrimSpace(publicURL))
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "url does not belong to this bucket")
	}
	owner, ok := ownerFromObjectName(objectName)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "unrecognized object path")
	}
	if owner != userID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "cannot delete another user's upload")
	}
	if err := s.store.Delete(ctx, objectName); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete object")
	}
	return nil
}

// buildObjectName lays objects out as <kind>/<user>/<id>-<name><ext>.
func buildObjectName(kind Kind, userID, id uuid.UUID, fileName, ext string) string {
	base := sanitizeFileName(strings.TrimSuffix(path.Base(strings.TrimSpace(fileName)), path.Ext(fileName)))
	name := id.String()
	if base != "" {
		name += "-" + base
	}
	return fmt.Sprintf("%s/%s/%s%s", kind, userID, name, ext)
}

func ownerFromObjectName(objectName string) (uuid.UUID, bool) {
	parts := strings.Split(objectName, "/")
	if len(parts) != 3 || !Kind(parts[0]).IsValid() {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func sanitizeFileName(name string) string {
	if name == "" || name == "." {
		return ""
	}
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r == '/' || r == '\\' || unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('-')
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '.':
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return strings.Trim(b.String(), "-_.")
}
