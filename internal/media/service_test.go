package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/bookstall-backend/pkg/errors"
)

const publicBase = "https://storage.googleapis.com/bucket/"

type stubStore struct {
	objects   map[string][]byte
	types     map[string]string
	deleted   []string
	uploadErr error
}

func newStubStore() *stubStore {
	return &stubStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (s *stubStore) Upload(ctx context.Context, objectName, contentType string, body io.Reader) (string, error) {
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.objects[objectName] = data
	s.types[objectName] = contentType
	return publicBase + objectName, nil
}

func (s *stubStore) Delete(ctx context.Context, objectName string) error {
	s.deleted = append(s.deleted, objectName)
	delete(s.objects, objectName)
	return nil
}

func (s *stubStore) ObjectName(publicURL string) (string, bool) {
	if !strings.HasPrefix(publicURL, publicBase) {
		return "", false
	}
	return strings.TrimPrefix(publicURL, publicBase), true
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func TestUploadStoresImage(t *testing.T) {
	store := newStubStore()
	svc, err := NewService(store, 1024)
	require.NoError(t, err)
	userID := uuid.New()

	out, err := svc.Upload(context.Background(), userID, UploadInput{
		Kind:     KindCover,
		FileName: "My Cover.PNG",
		Body:     bytes.NewReader(pngHeader),
	})
	require.NoError(t, err)
	assert.Equal(t, "image/png", out.ContentType)
	assert.Equal(t, int64(len(pngHeader)), out.SizeBytes)
	assert.True(t, strings.HasPrefix(out.ObjectName, "cover/"+userID.String()+"/"))
	assert.True(t, strings.HasSuffix(out.ObjectName, "-my-cover.png"))
	assert.Equal(t, publicBase+out.ObjectName, out.URL)
	assert.Equal(t, pngHeader, store.objects[out.ObjectName])
	assert.Equal(t, "image/png", store.types[out.ObjectName])
}

func TestUploadRejections(t *testing.T) {
	store := newStubStore()
	svc, err := NewService(store, 16)
	require.NoError(t, err)
	ctx := context.Background()
	userID := uuid.New()

	_, err = svc.Upload(ctx, userID, UploadInput{Kind: "video", Body: bytes.NewReader(pngHeader)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Upload(ctx, userID, UploadInput{Kind: KindAvatar, Body: strings.NewReader("just some text")})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Contains(t, err.Error(), "PNG, JPEG, WebP or GIF")

	_, err = svc.Upload(ctx, userID, UploadInput{Kind: KindAvatar, Body: bytes.NewReader(pngHeader)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Upload(ctx, userID, UploadInput{Kind: KindAvatar, Body: strings.NewReader("")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Upload(ctx, uuid.Nil, UploadInput{Kind: KindAvatar, Body: strings.NewReader("x")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	assert.Empty(t, store.objects)
}

func TestUploadStoreFailure(t *testing.T) {
	store := newStubStore()
	store.uploadErr = errors.New("bucket unavailable")
	svc, err := NewService(store, 1024)
	require.NoError(t, err)

	_, err = svc.Upload(context.Background(), uuid.New(), UploadInput{Kind: KindPost, Body: bytes.NewReader(pngHeader)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestDeleteOwnUploadOnly(t *testing.T) {
	store := newStubStore()
	svc, err := NewService(store, 1024)
	require.NoError(t, err)
	ctx := context.Background()
	owner := uuid.New()

	out, err := svc.Upload(ctx, owner, UploadInput{Kind: KindPost, FileName: "shelf.png", Body: bytes.NewReader(pngHeader)})
	require.NoError(t, err)

	err = svc.Delete(ctx, uuid.New(), out.URL)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	err = svc.Delete(ctx, owner, "https://example.com/elsewhere.png")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	require.NoError(t, svc.Delete(ctx, owner, out.URL))
	assert.Equal(t, []string{out.ObjectName}, store.deleted)
}

func TestSanitizeFileName(t *testing.T) {
	cases := map[string]string{
		"Hello World":   "hello-world",
		"../../etc":     "etc",
		"café":          "café",
		"__..":          "",
		"a\x00b":        "ab",
		"weird*chars?!": "weirdchars",
	}
	for in, want := range cases {
		assert.Equal(t, want, sanitizeFileName(in), in)
	}
}
