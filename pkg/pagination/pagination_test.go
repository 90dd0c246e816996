package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	in := Cursor{CreatedAt: time.Date(2024, 5, 1, 12, 30, 0, 123, time.UTC), ID: uuid.New()}

	out, err := ParseCursor(EncodeCursor(in))
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
	assert.Equal(t, in.ID, out.ID)
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	out, err := ParseCursor("  ")
	require.NoError(t, err)
	assert.Nil(t, out)

	bad := []string{
		"not-base64!!",
		base64.RawURLEncoding.EncodeToString([]byte("no-separator")),
		base64.RawURLEncoding.EncodeToString([]byte("abc." + uuid.NewString())),
		base64.RawURLEncoding.EncodeToString([]byte("12.not-a-uuid")),
	}
	for _, value := range bad {
		_, err := ParseCursor(value)
		assert.ErrorIs(t, err, ErrInvalidCursor, value)
	}
}

func TestEncodeCursorIsQuerySafe(t *testing.T) {
	encoded := EncodeCursor(Cursor{CreatedAt: time.Now(), ID: uuid.New()})
	assert.NotContains(t, encoded, "=")
	assert.NotContains(t, encoded, "+")
	assert.NotContains(t, encoded, "/")
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+50))
	assert.Equal(t, 7, NormalizeLimit(7))
	assert.Equal(t, 8, LimitWithBuffer(7))
}

func TestTrimReturnsNextCursor(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []Cursor{
		{CreatedAt: base.Add(3 * time.Minute), ID: uuid.New()},
		{CreatedAt: base.Add(2 * time.Minute), ID: uuid.New()},
		{CreatedAt: base.Add(time.Minute), ID: uuid.New()},
	}
	identity := func(c Cursor) Cursor { return c }

	page, next := Trim(rows, 2, identity)
	require.Len(t, page, 2)
	require.NotNil(t, next)
	assert.Equal(t, rows[1].ID, next.ID)

	page, next = Trim(rows, 5, identity)
	assert.Len(t, page, 3)
	assert.Nil(t, next)

	empty := NewPage[Cursor](nil, nil)
	assert.NotNil(t, empty.Items)
	assert.Empty(t, empty.NextCursor)
}
