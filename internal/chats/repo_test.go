package chats

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

func pageStamps() []time.Time {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return []time.Time{base, base.Add(time.Minute), base.Add(2 * time.Minute), base.Add(2 * time.Minute), base.Add(3 * time.Minute)}
}

func TestListForUserWalksEveryPage(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	me := uuid.New()

	want := map[uuid.UUID]bool{}
	for _, at := range pageStamps() {
		other := uuid.New()
		a, b := orderPair(me, other)
		chat := models.Chat{ParticipantA: a, ParticipantB: b, PairKey: PairKey(me, other, nil), CreatedAt: at, UpdatedAt: at}
		require.NoError(t, conn.Create(&chat).Error)
		want[chat.ID] = true
	}

	seen := map[uuid.UUID]int{}
	var cursor *pagination.Cursor
	for pages := 0; ; pages++ {
		require.Less(t, pages, 5, "paging did not terminate")
		rows, next, err := repo.ListForUser(ctx, me, 2, cursor)
		require.NoError(t, err)
		for _, c := range rows {
			seen[c.ID]++
		}
		if next == nil {
			break
		}
		cursor = next
	}

	require.Len(t, seen, len(want))
	for id, n := range seen {
		assert.True(t, want[id])
		assert.Equal(t, 1, n, "chat %s listed more than once", id)
	}
}

func TestListMessagesWalksEveryPageOldestFirst(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	x, y := uuid.New(), uuid.New()
	a, b := orderPair(x, y)
	chat := models.Chat{ParticipantA: a, ParticipantB: b, PairKey: PairKey(x, y, nil)}
	require.NoError(t, conn.Create(&chat).Error)

	var want []uuid.UUID
	for _, at := range pageStamps() {
		msg := models.ChatMessage{ChatID: chat.ID, SenderID: x, Body: "hi", CreatedAt: at}
		require.NoError(t, conn.Create(&msg).Error)
		want = append(want, msg.ID)
	}

	var (
		got    []uuid.UUID
		cursor *pagination.Cursor
	)
	for pages := 0; ; pages++ {
		require.Less(t, pages, 5, "paging did not terminate")
		rows, next, err := repo.ListMessages(ctx, chat.ID, 2, cursor)
		require.NoError(t, err)
		if len(rows) == 0 {
			break
		}
		for _, m := range rows {
			got = append(got, m.ID)
		}
		cursor = next
	}

	require.Len(t, got, len(want))
	assert.ElementsMatch(t, want, got)
	assert.Equal(t, want[0], got[0])
	assert.Equal(t, want[len(want)-1], got[len(got)-1])
}
