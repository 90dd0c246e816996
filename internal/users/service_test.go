package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bookstall-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bookstall-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bookstall-backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, *Repository) {
	t.Helper()
	repo := NewRepository(dbtest.Open(t))
	svc, err := NewService(repo, nil)
	require.NoError(t, err)
	return svc, repo
}

func seedUser(t *testing.T, repo *Repository, email string) uuid.UUID {
	t.Helper()
	user, err := repo.Create(context.Background(), CreateUserDTO{
		Email:        email,
		PasswordHash: "hash",
		DisplayName:  "Reader " + email,
	})
	require.NoError(t, err)
	return user.ID
}

func TestGetProfileAndMe(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	id := seedUser(t, repo, "ada@example.com")

	profile, err := svc.GetProfile(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "Reader ada@example.com", profile.DisplayName)

	me, err := svc.GetMe(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", me.Email)
	require.Equal(t, enums.UserRoleMember, me.Role)

	_, err = svc.GetProfile(ctx, uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateProfile(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	id := seedUser(t, repo, "bo@example.com")

	name := "  Bo Reads  "
	bio := "Collector of paperbacks"
	me, err := svc.UpdateProfile(ctx, id, UpdateProfileInput{DisplayName: &name, Bio: &bio})
	require.NoError(t, err)
	require.Equal(t, "Bo Reads", me.DisplayName)
	require.NotNil(t, me.Bio)
	require.Equal(t, bio, *me.Bio)

	blank := "   "
	_, err = svc.UpdateProfile(ctx, id, UpdateProfileInput{DisplayName: &blank})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestBanAndUnban(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	admin := seedUser(t, repo, "admin@example.com")
	target := seedUser(t, repo, "spam@example.com")

	err := svc.Ban(ctx, BanInput{ActorUserID: target, ActorRole: enums.UserRoleMember, TargetID: admin, Reason: "x"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	err = svc.Ban(ctx, BanInput{ActorUserID: admin, ActorRole: enums.UserRoleAdmin, TargetID: target})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	require.NoError(t, svc.Ban(ctx, BanInput{ActorUserID: admin, ActorRole: enums.UserRoleAdmin, TargetID: target, Reason: "spam listings"}))

	_, err = svc.EnsureActive(ctx, target)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	require.Equal(t, "spam listings", details["reason"])

	require.NoError(t, svc.Unban(ctx, BanInput{ActorUserID: admin, ActorRole: enums.UserRoleAdmin, TargetID: target}))
	user, err := svc.EnsureActive(ctx, target)
	require.NoError(t, err)
	require.False(t, user.Banned)

	err = svc.Unban(ctx, BanInput{ActorUserID: admin, ActorRole: enums.UserRoleAdmin, TargetID: uuid.New()})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestEnsureActiveUnknownUser(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.EnsureActive(context.Background(), uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}
