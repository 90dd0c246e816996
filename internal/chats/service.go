package chats

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bookstall-backend/internal/notifications"
	"github.com/angelmondragon/bookstall-backend/pkg/db"
	"github.com/angelmondragon/bookstall-backend/pkg/db/models"
	"github.com/angelmondragon/bookstall-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bookstall-backend/pkg/errors"
	"github.com/angelmondragon/bookstall-backend/pkg/logger"
	"github.com/angelmondragon/bookstall-backend/pkg/pagination"
)

// Service manages two-party conversations.
type Service interface {
	Open(ctx context.Context, userID uuid.UUID, input OpenChatInput) (*OpenResult, error)
	Send(ctx context.Context, senderID, chatID uuid.UUID, input SendMessageInput) (*MessageDTO, error)
	// ListMessages pages forward from After. The returned cursor is the last
	// message seen so clients can poll with it.
	ListMessages(ctx context.Context, userID, chatID uuid.UUID, params MessagesParams) (*pagination.Page[MessageDTO], error)
	ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Page[ChatDTO], error)
}

// MessagesParams configures ListMessages.
type MessagesParams struct {
	Limit int
	After string
}

type repository interface {
	WithTx(tx *gorm.DB) *Repository
	Create(ctx context.Context, chat *models.Chat) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Chat, error)
	FindByPairKey(ctx context.Context, key string) (*models.Chat, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Chat, *pagination.Cursor, error)
	ListMessages(ctx context.Context, chatID uuid.UUID, limit int, after *pagination.Cursor) ([]models.ChatMessage, *pagination.Cursor, error)
}

type userLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type bookLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Book, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

var _ repository = (*Repository)(nil)

type ServiceParams struct {
	Repo     repository
	Tx       txRunner
	Users    userLookup
	Books    bookLookup
	Notifier notifications.Notifier
	Logger   *logger.Logger
}

type service struct {
	repo     repository
	tx       txRunner
	users    userLookup
	books    bookLookup
	notifier notifications.Notifier
	logg     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("chats repository required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Users == nil:
		return nil, fmt.Errorf("user lookup required")
	case params.Books == nil:
		return nil, fmt.Errorf("book lookup required")
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		users:    params.Users,
		books:    params.Books,
		notifier: params.Notifier,
		logg:     params.Logger,
	}, nil
}

func (s *service) Open(ctx context.Context, userID uuid.UUID, input OpenChatInput) (*OpenResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ParticipantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "participant_id is required")
	}
	if input.ParticipantID == userID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot open a chat with yourself")
	}

	key := PairKey(userID, input.ParticipantID, input.BookID)
	if existing, err := s.repo.FindByPairKey(ctx, key); err == nil {
		return &OpenResult{Chat: FromModel(existing, userID)}, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup chat")
	}

	if _, err := s.users.FindByID(ctx, input.ParticipantID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound("user")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load participant")
	}
	if input.BookID != nil {
		if _, err := s.books.FindByID(ctx, *input.BookID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.NotFound("book")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load book")
		}
	}

	a, b := orderPair(userID, input.ParticipantID)
	chat := &models.Chat{ParticipantA: a, ParticipantB: b, BookID: input.BookID, PairKey: key}
	if err := s.repo.Create(ctx, chat); err != nil {
		if db.IsUniqueViolation(err, uniquePairConstraint) {
			existing, findErr := s.repo.FindByPairKey(ctx, key)
			if findErr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "reload chat")
			}
			return &OpenResult{Chat: FromModel(existing, userID)}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create chat")
	}
	return &OpenResult{Chat: FromModel(chat, userID), Created: true}, nil
}

func (s *service) Send(ctx context.Context, senderID, chatID uuid.UUID, input SendMessageInput) (*MessageDTO, error) {
	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message body is required")
	}
	if len([]rune(body)) > maxMessageLength {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "message exceeds %d characters", maxMessageLength)
	}

	var (
		chat *models.Chat
		msg  *models.ChatMessage
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		if chat, err = s.loadForParticipant(ctx, repo, senderID, chatID); err != nil {
			return err
		}
		msg = &models.ChatMessage{ChatID: chat.ID, SenderID: senderID, Body: body}
		if err := repo.AppendMessage(ctx, msg, preview(body)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append message")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyCounterpart(ctx, chat, senderID, body)
	dto := MessageFromModel(msg)
	return &dto, nil
}

func (s *service) notifyCounterpart(ctx context.Context, chat *models.Chat, senderID uuid.UUID, body string) {
	if s.notifier == nil {
		return
	}
	link := fmt.Sprintf("/chats/%s", chat.ID)
	err := s.notifier.Notify(ctx, notifications.NotifyInput{
		RecipientID: chat.Counterpart(senderID),
		SenderID:    &senderID,
		Category:    enums.NotificationCategoryChat,
		Message:     "New message: " + preview(body),
		Link:        &link,
	})
	if err != nil && s.logg != nil {
		s.logg.Error(ctx, "chat notification failed", err)
	}
}

func (s *service) ListMessages(ctx context.Context, userID, chatID uuid.UUID, params MessagesParams) (*pagination.Page[MessageDTO], error) {
	if _, err := s.loadForParticipant(ctx, s.repo, userID, chatID); err != nil {
		return nil, err
	}
	after, err := pagination.ParseCursor(params.After)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.ListMessages(ctx, chatID, params.Limit, after)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list messages")
	}
	items := make([]MessageDTO, 0, len(rows))
	for i := range rows {
		items = append(items, MessageFromModel(&rows[i]))
	}
	page := pagination.NewPage(items, next)
	return &page, nil
}

func (s *service) ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Page[ChatDTO], error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.ListForUser(ctx, userID, params.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list chats")
	}
	items := make([]ChatDTO, 0, len(rows))
	for i := range rows {
		items = append(items, FromModel(&rows[i], userID))
	}
	page := pagination.NewPage(items, next)
	return &page, nil
}

// loadForParticipant hides chats the caller is not part of behind NotFound.
func (s *service) loadForParticipant(ctx context.Context, repo repository, userID, chatID uuid.UUID) (*models.Chat, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if chatID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "chat id required")
	}
	chat, err := repo.FindByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound("chat")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load chat")
	}
	if !chat.HasParticipant(userID) {
		return nil, pkgerrors.NotFound("chat")
	}
	return chat, nil
}
