package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/bookstall-backend/pkg/errors"
)

type listingRequest struct {
	Title    string `json:"title" validate:"required,notblank,max=10"`
	Price    int    `json:"price_cents" validate:"gte=0"`
	Internal string `json:"-"`
}

func post(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/books", strings.NewReader(body))
}

func details(t *testing.T, err error) map[string]string {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	d, _ := typed.Details().(map[string]string)
	return d
}

func TestDecodeJSONBodyAccepts(t *testing.T) {
	var req listingRequest
	require.NoError(t, DecodeJSONBody(post(`{"title":"Dune","price_cents":900}`), &req))
	assert.Equal(t, "Dune", req.Title)
	assert.Equal(t, 900, req.Price)
}

func TestDecodeJSONBodyRejectsMalformedInput(t *testing.T) {
	cases := map[string]string{
		"empty":   ``,
		"unknown": `{"title":"Dune","isbn":"x"}`,
		"two":     `{"title":"Dune"}{"title":"Emma"}`,
		"syntax":  `{"title":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			var req listingRequest
			err := DecodeJSONBody(post(body), &req)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
}

func TestDecodeJSONBodyReportsFieldsByJSONName(t *testing.T) {
	var req listingRequest
	err := DecodeJSONBody(post(`{"title":"   ","price_cents":-1}`), &req)
	d := details(t, err)
	assert.Equal(t, "must not be blank", d["title"])
	assert.Equal(t, "must be greater than or equal to 0", d["price_cents"])

	err = DecodeJSONBody(post(`{"title":"A Very Long Title"}`), &req)
	assert.Equal(t, "must be at most 10", details(t, err)["title"])
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "dune", SanitizeString("  dune  ", 0))
	assert.Equal(t, "ñañ", SanitizeString("ñañaña", 3))
	assert.Equal(t, "ab", SanitizeString("ab c", 3))
}
