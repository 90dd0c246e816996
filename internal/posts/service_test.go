package posts

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/bookstall-backend/internal/notifications"
	"github.com/angelmondragon/bookstall-backend/pkg/db"
	"github.com/angelmondragon/bookstall-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bookstall-backend/pkg/db/models"
	"github.com/angelmondragon/bookstall-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bookstall-backend/pkg/errors"
	"github.com/angelmondragon/bookstall-backend/pkg/logger"
	"github.com/angelmondragon/bookstall-backend/pkg/pagination"
)

func newTestService(t *testing.T) (Service, notifications.Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	inbox, err := notifications.NewService(notifications.NewRepository(conn))
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(conn),
		Tx:       db.Wrap(conn),
		Notifier: inbox,
		Logger:   logger.New(logger.Options{ServiceName: "posts-test"}),
	})
	require.NoError(t, err)
	return svc, inbox, conn
}

func TestCreateAndFeed(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	author := uuid.New()

	_, err := svc.Create(ctx, author, CreatePostInput{Body: "   "})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	var ids []uuid.UUID
	for _, body := range []string{"first", "second", "third"} {
		post, err := svc.Create(ctx, author, CreatePostInput{Body: body})
		require.NoError(t, err)
		ids = append(ids, post.ID)
	}
	_, err = svc.Create(ctx, uuid.New(), CreatePostInput{Body: "someone else"})
	require.NoError(t, err)

	page, err := svc.Feed(ctx, uuid.Nil, &author, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.NotEmpty(t, page.NextCursor)

	rest, err := svc.Feed(ctx, uuid.Nil, &author, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Items, 1)
	assert.Empty(t, rest.NextCursor)

	seen := map[uuid.UUID]bool{}
	for _, p := range append(page.Items, rest.Items...) {
		seen[p.ID] = true
	}
	for _, id := range ids {
		assert.True(t, seen[id])
	}

	all, err := svc.Feed(ctx, uuid.Nil, nil, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, all.Items, 4)
}

func TestLikeIsIdempotent(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	post, err := svc.Create(ctx, uuid.New(), CreatePostInput{Body: "hello"})
	require.NoError(t, err)
	fan := uuid.New()

	res, err := svc.Like(ctx, fan, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.LikeCount)

	res, err = svc.Like(ctx, fan, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.LikeCount)

	got, err := svc.Get(ctx, fan, post.ID)
	require.NoError(t, err)
	assert.True(t, got.LikedByMe)

	res, err = svc.Unlike(ctx, fan, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.LikeCount)
	assert.False(t, res.Liked)

	res, err = svc.Unlike(ctx, fan, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.LikeCount)

	_, err = svc.Like(ctx, fan, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCommentNotifiesAuthor(t *testing.T) {
	svc, inbox, _ := newTestService(t)
	ctx := context.Background()
	author := uuid.New()
	reader := uuid.New()
	post, err := svc.Create(ctx, author, CreatePostInput{Body: "what are you reading?"})
	require.NoError(t, err)

	_, err = svc.Comment(ctx, reader, post.ID, CreateCommentInput{Body: "Dune"})
	require.NoError(t, err)
	_, err = svc.Comment(ctx, author, post.ID, CreateCommentInput{Body: "nice"})
	require.NoError(t, err)

	comments, err := svc.ListComments(ctx, post.ID, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, comments.Items, 2)
	assert.Equal(t, "Dune", comments.Items[0].Body)

	got, err := svc.Get(ctx, uuid.Nil, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CommentCount)

	list, err := inbox.List(ctx, notifications.ListParams{RecipientID: author})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, enums.NotificationCategoryComment, list.Items[0].Category)
	require.NotNil(t, list.Items[0].SenderID)
	assert.Equal(t, reader, *list.Items[0].SenderID)
}

func TestDeleteOwnPostOnly(t *testing.T) {
	svc, _, conn := newTestService(t)
	ctx := context.Background()
	author := uuid.New()
	post, err := svc.Create(ctx, author, CreatePostInput{Body: "bye"})
	require.NoError(t, err)
	_, err = svc.Like(ctx, uuid.New(), post.ID)
	require.NoError(t, err)

	err = svc.Delete(ctx, uuid.New(), post.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	require.NoError(t, svc.Delete(ctx, author, post.ID))
	_, err = svc.Get(ctx, uuid.Nil, post.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	var likes int64
	require.NoError(t, conn.Model(&models.PostLike{}).Where("post_id = ?", post.ID).Count(&likes).Error)
	assert.Zero(t, likes)
}
