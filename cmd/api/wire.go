package main

import (
	"fmt"

	"github.com/angelmondragon/bookstall-backend/api/routes"
	"github.com/angelmondragon/bookstall-backend/internal/auth"
	"github.com/angelmondragon/bookstall-backend/internal/books"
	"github.com/angelmondragon/bookstall-backend/internal/cart"
	"github.com/angelmondragon/bookstall-backend/internal/chats"
	"github.com/angelmondragon/bookstall-backend/internal/checkout"
	"github.com/angelmondragon/bookstall-backend/internal/media"
	"github.com/angelmondragon/bookstall-backend/internal/notifications"
	"github.com/angelmondragon/bookstall-backend/internal/orders"
	"github.com/angelmondragon/bookstall-backend/internal/payments"
	"github.com/angelmondragon/bookstall-backend/internal/posts"
	"github.com/angelmondragon/bookstall-backend/internal/reviews"
	"github.com/angelmondragon/bookstall-backend/internal/users"
	"github.com/angelmondragon/bookstall-backend/pkg/auth/session"
	"github.com/angelmondragon/bookstall-backend/pkg/config"
	"github.com/angelmondragon/bookstall-backend/pkg/db"
	"github.com/angelmondragon/bookstall-backend/pkg/logger"
	"github.com/angelmondragon/bookstall-backend/pkg/outbox"
	"github.com/angelmondragon/bookstall-backend/pkg/redis"
	"github.com/angelmondragon/bookstall-backend/pkg/storage/gcs"
)

type infra struct {
	cfg      *config.Config
	logg     *logger.Logger
	db       *db.Client
	redis    *redis.Client
	sessions *session.Manager
	gcs      *gcs.Client
	stripe   payments.SessionAPI
}

// buildServices wires every domain service the router serves.
func buildServices(in infra, deps *routes.Dependencies) error {
	conn := in.db.DB()
	cfg := in.cfg

	userRepo := users.NewRepository(conn)
	userSvc, err := users.NewService(userRepo, in.logg)
	if err != nil {
		return fmt.Errorf("users service: %w", err)
	}

	authSvc, err := auth.NewService(auth.ServiceParams{
		Users:          userRepo,
		Sessions:       in.sessions,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         in.logg,
	})
	if err != nil {
		return fmt.Errorf("auth service: %w", err)
	}

	bookRepo := books.NewRepository(conn)
	bookSvc, err := books.NewService(bookRepo)
	if err != nil {
		return fmt.Errorf("books service: %w", err)
	}

	notificationSvc, err := notifications.NewService(notifications.NewRepository(conn))
	if err != nil {
		return fmt.Errorf("notifications service: %w", err)
	}

	cartSvc, err := cart.NewService(cart.NewRepository(conn), bookRepo)
	if err != nil {
		return fmt.Errorf("cart service: %w", err)
	}

	emitter := outbox.NewService(outbox.NewRepository(conn), in.logg)
	orderSvc, err := orders.NewService(orders.NewRepository(conn), in.db, emitter, cfg.Checkout.Currency, in.logg)
	if err != nil {
		return fmt.Errorf("orders service: %w", err)
	}

	gateway, err := payments.NewGateway(cfg.Payments, in.stripe)
	if err != nil {
		return fmt.Errorf("payments gateway: %w", err)
	}
	pending, err := checkout.NewPendingStore(in.redis)
	if err != nil {
		return fmt.Errorf("checkout pending store: %w", err)
	}
	checkoutSvc, err := checkout.NewService(checkout.ServiceParams{
		Cart:      cartSvc,
		Books:     bookRepo,
		Users:     userRepo,
		Orders:    orderSvc,
		Gateway:   gateway,
		Pending:   pending,
		Config:    cfg.Checkout,
		PublicURL: cfg.App.PublicURL,
		Logger:    in.logg,
	})
	if err != nil {
		return fmt.Errorf("checkout service: %w", err)
	}

	reviewSvc, err := reviews.NewService(reviews.ServiceParams{
		Repo:      reviews.NewRepository(conn),
		Tx:        in.db,
		Purchases: orderSvc,
		Books:     bookRepo,
		Users:     userRepo,
		Notifier:  notificationSvc,
		Logger:    in.logg,
	})
	if err != nil {
		return fmt.Errorf("reviews service: %w", err)
	}

	postSvc, err := posts.NewService(posts.ServiceParams{
		Repo:     posts.NewRepository(conn),
		Tx:       in.db,
		Notifier: notificationSvc,
		Logger:   in.logg,
	})
	if err != nil {
		return fmt.Errorf("posts service: %w", err)
	}

	chatSvc, err := chats.NewService(chats.ServiceParams{
		Repo:     chats.NewRepository(conn),
		Tx:       in.db,
		Users:    userRepo,
		Books:    bookRepo,
		Notifier: notificationSvc,
		Logger:   in.logg,
	})
	if err != nil {
		return fmt.Errorf("chats service: %w", err)
	}

	mediaSvc, err := media.NewService(in.gcs, cfg.Media.MaxUploadBytes())
	if err != nil {
		return fmt.Errorf("media service: %w", err)
	}

	deps.Auth = authSvc
	deps.Users = userSvc
	deps.Books = bookSvc
	deps.Reviews = reviewSvc
	deps.Cart = cartSvc
	deps.Checkout = checkoutSvc
	deps.Orders = orderSvc
	deps.Notifications = notificationSvc
	deps.Posts = postSvc
	deps.Chats = chatSvc
	deps.Media = mediaSvc
	return nil
}
