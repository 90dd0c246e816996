package gcs

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/angelmondragon/bookstall-backend/pkg/config"
)

type fakeBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeServer(t *testing.T) (*httptest.Server, *fakeBucket) {
	t.Helper()
	bucket := &fakeBucket{objects: map[string][]byte{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bucket.mu.Lock()
		defer bucket.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/b/covers-bucket"):
			_ = json.NewEncoder(w).Encode(map[string]any{"name": "covers-bucket"})
		case r.Method == http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":404,"message":"not found"}}`))
		case r.Method == http.MethodPost && strings.Contains(r.URL.Path, "/b/covers-bucket/o"):
			name := r.URL.Query().Get("name")
			body, _ := io.ReadAll(r.Body)
			if name == "" {
				name = "unnamed"
			}
			bucket.objects[name] = body
			_ = json.NewEncoder(w).Encode(map[string]any{"name": name, "bucket": "covers-bucket"})
		case r.Method == http.MethodDelete:
			name := r.URL.Path[strings.LastIndex(r.URL.Path, "/o/")+3:]
			if _, ok := bucket.objects[name]; !ok {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"error":{"code":404,"message":"not found"}}`))
				return
			}
			delete(bucket.objects, name)
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, bucket
}

func newTestClient(t *testing.T, bucketName string) (*Client, *fakeBucket, error) {
	t.Helper()
	srv, bucket := newFakeServer(t)
	client, err := NewClient(
		context.Background(),
		config.GCSConfig{BucketName: bucketName},
		config.GCPConfig{ProjectID: "test"},
		nil,
		option.WithEndpoint(srv.URL+"/storage/v1/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	return client, bucket, err
}

func TestNewClientRequiresBucket(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCSConfig{}, config.GCPConfig{}, nil)
	require.Error(t, err)
}

func TestNewClientPingFailsForMissingBucket(t *testing.T) {
	_, _, err := newTestClient(t, "missing-bucket")
	require.Error(t, err)
}

func TestUploadAndDelete(t *testing.T) {
	client, bucket, err := newTestClient(t, "covers-bucket")
	require.NoError(t, err)

	url, err := client.Upload(context.Background(), "covers/u1/cover.png", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	require.Equal(t, "https://storage.googleapis.com/covers-bucket/covers/u1/cover.png", url)
	require.Len(t, bucket.objects, 1)

	name, ok := client.ObjectName(url)
	require.True(t, ok)
	require.Equal(t, "covers/u1/cover.png", name)

	require.NoError(t, client.Delete(context.Background(), "covers/u1/cover.png"))
	// second delete hits a 404 and is tolerated
	require.NoError(t, client.Delete(context.Background(), "covers/u1/cover.png"))
}

func TestUploadRequiresObjectName(t *testing.T) {
	client, _, err := newTestClient(t, "covers-bucket")
	require.NoError(t, err)

	_, err = client.Upload(context.Background(), "  ", "image/png", strings.NewReader("x"))
	require.Error(t, err)
}

func TestPublicURLHonoursOverride(t *testing.T) {
	client := &Client{bucket: "b", publicBase: publicBase(config.GCSConfig{BucketName: "b", PublicBaseURL: "https://cdn.bookstall.test/"})}
	require.Equal(t, "https://cdn.bookstall.test/posts/a%20b.png", client.PublicURL("posts/a b.png"))

	_, ok := client.ObjectName("https://elsewhere.test/posts/a.png")
	require.False(t, ok)
}
