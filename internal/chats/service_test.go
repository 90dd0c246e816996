package chats

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/bookstall-backend/internal/books"
	"github.com/angelmondragon/bookstall-backend/internal/notifications"
	"github.com/angelmondragon/bookstall-backend/internal/users"
	"github.com/angelmondragon/bookstall-backend/pkg/db"
	"github.com/angelmondragon/bookstall-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bookstall-backend/pkg/db/models"
	"github.com/angelmondragon/bookstall-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bookstall-backend/pkg/errors"
	"github.com/angelmondragon/bookstall-backend/pkg/pagination"
)

type fixture struct {
	svc   Service
	inbox notifications.Service
	conn  *gorm.DB
	t     *testing.T
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	inbox, err := notifications.NewService(notifications.NewRepository(conn))
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(conn),
		Tx:       db.Wrap(conn),
		Users:    users.NewRepository(conn),
		Books:    books.NewRepository(conn),
		Notifier: inbox,
	})
	require.NoError(t, err)
	return &fixture{svc: svc, inbox: inbox, conn: conn, t: t}
}

func (f *fixture) user(name string) uuid.UUID {
	f.t.Helper()
	u := &models.User{Email: uuid.NewString() + "@example.com", PasswordHash: "x", DisplayName: name}
	require.NoError(f.t, f.conn.Create(u).Error)
	return u.ID
}

func TestPairKeyIsSymmetric(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	book := uuid.New()
	assert.Equal(t, PairKey(a, b, nil), PairKey(b, a, nil))
	assert.Equal(t, PairKey(a, b, &book), PairKey(b, a, &book))
	assert.NotEqual(t, PairKey(a, b, nil), PairKey(a, b, &book))
}

func TestOpenReturnsExistingChat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada, bob := f.user("ada"), f.user("bob")

	first, err := f.svc.Open(ctx, ada, OpenChatInput{ParticipantID: bob})
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, bob, first.Chat.CounterpartID)

	again, err := f.svc.Open(ctx, bob, OpenChatInput{ParticipantID: ada})
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, first.Chat.ID, again.Chat.ID)
	assert.Equal(t, ada, again.Chat.CounterpartID)

	_, err = f.svc.Open(ctx, ada, OpenChatInput{ParticipantID: ada})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Open(ctx, ada, OpenChatInput{ParticipantID: uuid.New()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	missingBook := uuid.New()
	_, err = f.svc.Open(ctx, ada, OpenChatInput{ParticipantID: bob, BookID: &missingBook})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestSendAndListMessages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada, bob, eve := f.user("ada"), f.user("bob"), f.user("eve")
	opened, err := f.svc.Open(ctx, ada, OpenChatInput{ParticipantID: bob})
	require.NoError(t, err)
	chatID := opened.Chat.ID

	for _, body := range []string{"hi", "is the book still around?", strings.Repeat("x", 200)} {
		_, err := f.svc.Send(ctx, ada, chatID, SendMessageInput{Body: body})
		require.NoError(t, err)
	}
	_, err = f.svc.Send(ctx, bob, chatID, SendMessageInput{Body: "yes"})
	require.NoError(t, err)

	_, err = f.svc.Send(ctx, eve, chatID, SendMessageInput{Body: "let me in"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	_, err = f.svc.Send(ctx, ada, chatID, SendMessageInput{Body: " "})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	page, err := f.svc.ListMessages(ctx, bob, chatID, MessagesParams{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.NotEmpty(t, page.NextCursor)

	rest, err := f.svc.ListMessages(ctx, bob, chatID, MessagesParams{After: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Items, 2)

	all := append(page.Items, rest.Items...)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].CreatedAt.Before(all[i-1].CreatedAt))
	}

	_, err = f.svc.ListMessages(ctx, eve, chatID, MessagesParams{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	bobInbox, err := f.inbox.List(ctx, notifications.ListParams{RecipientID: bob})
	require.NoError(t, err)
	assert.Len(t, bobInbox.Items, 3)
	for _, n := range bobInbox.Items {
		assert.Equal(t, enums.NotificationCategoryChat, n.Category)
	}
	adaInbox, err := f.inbox.List(ctx, notifications.ListParams{RecipientID: ada})
	require.NoError(t, err)
	assert.Len(t, adaInbox.Items, 1)
}

func TestListMine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada, bob, cy := f.user("ada"), f.user("bob"), f.user("cy")

	withBob, err := f.svc.Open(ctx, ada, OpenChatInput{ParticipantID: bob})
	require.NoError(t, err)
	_, err = f.svc.Open(ctx, cy, OpenChatInput{ParticipantID: ada})
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, bob, withBob.Chat.ID, SendMessageInput{Body: "hello"})
	require.NoError(t, err)

	mine, err := f.svc.ListMine(ctx, ada, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, mine.Items, 2)

	var found bool
	for _, c := range mine.Items {
		if c.ID == withBob.Chat.ID {
			found = true
			require.NotNil(t, c.LastMessagePreview)
			assert.Equal(t, "hello", *c.LastMessagePreview)
		}
	}
	assert.True(t, found)

	bobs, err := f.svc.ListMine(ctx, bob, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, bobs.Items, 1)
}
