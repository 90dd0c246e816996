package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bookstall-backend/pkg/db/models"
	"github.com/angelmondragon/bookstall-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bookstall-backend/pkg/errors"
	"github.com/angelmondragon/bookstall-backend/pkg/logger"
)

const bannedMessage = "account is banned"

// Service exposes profile reads, self-service edits, and admin moderation.
type Service interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*ProfileDTO, error)
	GetMe(ctx context.Context, currentUserID uuid.UUID) (*UserDTO, error)
	UpdateProfile(ctx context.Context, currentUserID uuid.UUID, input UpdateProfileInput) (*UserDTO, error)
	Ban(ctx context.Context, input BanInput) error
	Unban(ctx context.Context, input BanInput) error
	EnsureActive(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindStatus(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, input UpdateProfileInput) error
	SetBanned(ctx context.Context, id uuid.UUID, banned bool, reason *string, at *time.Time) (bool, error)
}

type service struct {
	repo repository
	logg *logger.Logger
}

// NewService builds the users service.
func NewService(repo repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) GetProfile(ctx context.Context, id uuid.UUID) (*ProfileDTO, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return ProfileFromModel(user), nil
}

func (s *service) GetMe(ctx context.Context, currentUserID uuid.UUID) (*UserDTO, error) {
	if currentUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	user, err := s.load(ctx, currentUserID)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

func (s *service) UpdateProfile(ctx context.Context, currentUserID uuid.UUID, input UpdateProfileInput) (*UserDTO, error) {
	if currentUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.DisplayName != nil {
		trimmed := strings.TrimSpace(*input.DisplayName)
		if trimmed == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "display name cannot be blank")
		}
		input.DisplayName = &trimmed
	}
	if err := s.repo.UpdateProfile(ctx, currentUserID, input); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update profile")
	}
	return s.GetMe(ctx, currentUserID)
}

func (s *service) Ban(ctx context.Context, input BanInput) error {
	if err := requireAdmin(input); err != nil {
		return err
	}
	if input.ActorUserID == input.TargetID {
		return pkgerrors.New(pkgerrors.CodeValidation, "admins cannot ban themselves")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "ban reason is required")
	}
	now := time.Now().UTC()
	return s.setBanned(ctx, input, true, &reason, &now)
}

func (s *service) Unban(ctx context.Context, input BanInput) error {
	if err := requireAdmin(input); err != nil {
		return err
	}
	return s.setBanned(ctx, input, false, nil, nil)
}

func (s *service) setBanned(ctx context.Context, input BanInput, banned bool, reason *string, at *time.Time) error {
	found, err := s.repo.SetBanned(ctx, input.TargetID, banned, reason, at)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update ban status")
	}
	if !found {
		return pkgerrors.NotFound("user")
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"actor_id":  input.ActorUserID.String(),
			"target_id": input.TargetID.String(),
			"banned":    banned,
		})
		s.logg.Info(logCtx, "user ban status changed")
	}
	return nil
}

// EnsureActive loads the user behind a token and rejects banned accounts.
func (s *service) EnsureActive(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.repo.FindStatus(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user no longer exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user status")
	}
	if user.Banned {
		details := map[string]any{}
		if user.BanReason != nil {
			details["reason"] = *user.BanReason
		}
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, bannedMessage).WithDetails(details)
	}
	return user, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound("user")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}

func requireAdmin(input BanInput) error {
	if input.ActorUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ActorRole != enums.UserRoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if input.TargetID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "target user id required")
	}
	return nil
}
