package posts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bookstall-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bookstall-backend/pkg/db/models"
	"github.com/angelmondragon/bookstall-backend/pkg/pagination"
)

// pageStamps has a repeated instant so paging must fall back to the id.
func pageStamps() []time.Time {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return []time.Time{base, base.Add(time.Minute), base.Add(time.Minute), base.Add(2 * time.Minute), base.Add(3 * time.Minute)}
}

func walk(t *testing.T, list func(cursor *pagination.Cursor) ([]uuid.UUID, *pagination.Cursor, error)) []uuid.UUID {
	t.Helper()
	var (
		order  []uuid.UUID
		cursor *pagination.Cursor
	)
	for pages := 0; ; pages++ {
		require.Less(t, pages, 5, "paging did not terminate")
		ids, next, err := list(cursor)
		require.NoError(t, err)
		order = append(order, ids...)
		if next == nil {
			return order
		}
		cursor = next
	}
}

func TestListWalksEveryPage(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	author := uuid.New()

	var want []uuid.UUID
	for _, at := range pageStamps() {
		post := models.Post{AuthorID: author, Body: "entry", CreatedAt: at}
		require.NoError(t, conn.Create(&post).Error)
		want = append(want, post.ID)
	}

	got := walk(t, func(cursor *pagination.Cursor) ([]uuid.UUID, *pagination.Cursor, error) {
		rows, next, err := repo.List(ctx, &author, 2, cursor)
		ids := make([]uuid.UUID, 0, len(rows))
		for _, p := range rows {
			ids = append(ids, p.ID)
		}
		return ids, next, err
	})
	assert.ElementsMatch(t, want, got)
}

func TestListCommentsWalksEveryPageOldestFirst(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	post := models.Post{AuthorID: uuid.New(), Body: "thread"}
	require.NoError(t, conn.Create(&post).Error)

	var want []uuid.UUID
	for _, at := range pageStamps() {
		comment := models.PostComment{PostID: post.ID, AuthorID: uuid.New(), Body: "reply", CreatedAt: at}
		require.NoError(t, conn.Create(&comment).Error)
		want = append(want, comment.ID)
	}

	got := walk(t, func(cursor *pagination.Cursor) ([]uuid.UUID, *pagination.Cursor, error) {
		rows, next, err := repo.ListComments(ctx, post.ID, 2, cursor)
		ids := make([]uuid.UUID, 0, len(rows))
		for _, c := range rows {
			ids = append(ids, c.ID)
		}
		return ids, next, err
	})
	require.Len(t, got, len(want))
	assert.ElementsMatch(t, want, got)
	assert.Equal(t, want[0], got[0])
	assert.Equal(t, want[len(want)-1], got[len(got)-1])
}
