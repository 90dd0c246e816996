package books

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bookstall-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bookstall-backend/pkg/db/models"
	"github.com/angelmondragon/bookstall-backend/pkg/enums"
	"github.com/angelmondragon/bookstall-backend/pkg/pagination"
)

func TestListWalksEveryPage(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	owner := uuid.New()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	want := map[uuid.UUID]bool{}
	for _, at := range []time.Time{base, base, base.Add(time.Minute), base.Add(2 * time.Minute), base.Add(3 * time.Minute)} {
		row := models.Book{
			OwnerID:     owner,
			Title:       "Middlemarch",
			Author:      "George Eliot",
			PriceCents:  1200,
			ListingType: enums.ListingTypeSale,
			Condition:   enums.BookConditionGood,
			CreatedAt:   at,
		}
		require.NoError(t, conn.Create(&row).Error)
		want[row.ID] = true
	}

	seen := map[uuid.UUID]int{}
	var cursor *pagination.Cursor
	for pages := 0; ; pages++ {
		require.Less(t, pages, 5, "paging did not terminate")
		rows, next, err := repo.List(ctx, ListFilters{OwnerID: &owner}, 2, cursor)
		require.NoError(t, err)
		for _, b := range rows {
			seen[b.ID]++
		}
		if next == nil {
			break
		}
		cursor = next
	}

	require.Len(t, seen, len(want))
	for id, n := range seen {
		require.True(t, want[id])
		require.Equal(t, 1, n, "book %s listed more than once", id)
	}
}
