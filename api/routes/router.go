package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/bookstall-backend/api/controllers"
	"github.com/angelmondragon/bookstall-backend/api/middleware"
	"github.com/angelmondragon/bookstall-backend/internal/auth"
	"github.com/angelmondragon/bookstall-backend/internal/books"
	"github.com/angelmondragon/bookstall-backend/internal/cart"
	"github.com/angelmondragon/bookstall-backend/internal/chats"
	"github.com/angelmondragon/bookstall-backend/internal/checkout"
	"github.com/angelmondragon/bookstall-backend/internal/media"
	"github.com/angelmondragon/bookstall-backend/internal/notifications"
	"github.com/angelmondragon/bookstall-backend/internal/orders"
	"github.com/angelmondragon/bookstall-backend/internal/posts"
	"github.com/angelmondragon/bookstall-backend/internal/reviews"
	"github.com/angelmondragon/bookstall-backend/internal/users"
	"github.com/angelmondragon/bookstall-backend/pkg/auth/session"
	"github.com/angelmondragon/bookstall-backend/pkg/config"
	"github.com/angelmondragon/bookstall-backend/pkg/enums"
	"github.com/angelmondragon/bookstall-backend/pkg/logger"
	"github.com/angelmondragon/bookstall-backend/pkg/metrics"
	"github.com/angelmondragon/bookstall-backend/pkg/redis"
)

// Dependencies are the collaborators the HTTP surface is built from. Nil
// services answer 500 on their routes; nil pingers are skipped by readiness.
type Dependencies struct {
	Config   *config.Config
	Logger   *logger.Logger
	Redis    *redis.Client
	Sessions session.AccessSessionChecker
	Pingers  map[string]controllers.Pinger
	Gatherer prometheus.Gatherer
	HTTP     *metrics.HTTPMetrics

	Auth          auth.Service
	Users         users.Service
	Books         books.Service
	Reviews       reviews.Service
	Cart          cart.Service
	Checkout      checkout.Service
	Orders        orders.Service
	Notifications notifications.Service
	Posts         posts.Service
	Chats         chats.Service
	Media         media.Service
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, deps.HTTP),
		middleware.CORS(cfg.App.PublicURL),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	requireAuth := middleware.Auth(cfg.JWT, deps.Sessions, deps.Users, logg)
	idem := middleware.NewIdempotency(idempotencyStore(deps.Redis), logg)
	once := idem.Guard(middleware.IdempotencyOptional)
	exactlyOnce := idem.Guard(middleware.IdempotencyRequired)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.Pingers, logg))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// anonymous
		r.Group(func(r chi.Router) {
			r.With(authRateLimit(loginPolicy, deps.Redis, logg)).Post("/auth/login", controllers.AuthLogin(deps.Auth, logg))
			r.With(authRateLimit(registerPolicy, deps.Redis, logg), once).Post("/auth/register", controllers.AuthRegister(deps.Auth, logg))

			r.Get("/books", controllers.ListBooks(deps.Books, logg))
			r.Get("/books/{bookID}", controllers.GetBook(deps.Books, logg))
			r.Get("/books/{bookID}/reviews", controllers.ListBookReviews(deps.Reviews, logg))
			r.Get("/users/{userID}", controllers.GetUserProfile(deps.Users, logg))
			r.Get("/users/{userID}/reviews", controllers.ListUserReviews(deps.Reviews, logg))
		})

		// authenticated
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Post("/auth/logout", controllers.AuthLogout(deps.Auth, logg))

			r.Get("/me", controllers.GetMe(deps.Users, logg))
			r.Patch("/me", controllers.UpdateMe(deps.Users, logg))

			r.With(once).Post("/books", controllers.CreateBook(deps.Books, logg))
			r.Patch("/books/{bookID}", controllers.UpdateBook(deps.Books, logg))
			r.Delete("/books/{bookID}", controllers.DeleteBook(deps.Books, logg))

			r.With(once).Post("/reviews", controllers.SubmitReview(deps.Reviews, logg))

			r.Get("/cart", controllers.GetCart(deps.Cart, logg))
			r.Delete("/cart", controllers.ClearCart(deps.Cart, logg))
			r.With(once).Post("/cart/items", controllers.AddCartItem(deps.Cart, logg))
			r.Put("/cart/items/{bookID}", controllers.SetCartItemQuantity(deps.Cart, logg))
			r.Delete("/cart/items/{bookID}", controllers.RemoveCartItem(deps.Cart, logg))

			r.With(exactlyOnce).Post("/checkout", controllers.StartCheckout(deps.Checkout, logg))
			r.With(exactlyOnce).Post("/checkout/complete", controllers.CompleteCheckout(deps.Checkout, logg))

			r.Get("/orders/purchases", controllers.ListPurchases(deps.Orders, logg))
			r.Get("/orders/sales", controllers.ListSales(deps.Orders, logg))
			r.Get("/orders/{orderID}", controllers.GetOrder(deps.Orders, logg))

			r.Get("/notifications", controllers.ListNotifications(deps.Notifications, logg))
			r.Get("/notifications/unread-count", controllers.UnreadNotificationCount(deps.Notifications, logg))
			r.With(once).Post("/notifications/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
			r.With(once).Post("/notifications/{notificationID}/read", controllers.MarkNotificationRead(deps.Notifications, logg))

			r.Get("/posts", controllers.ListPosts(deps.Posts, logg))
			r.With(once).Post("/posts", controllers.CreatePost(deps.Posts, logg))
			r.Get("/posts/{postID}", controllers.GetPost(deps.Posts, logg))
			r.Delete("/posts/{postID}", controllers.DeletePost(deps.Posts, logg))
			r.Get("/posts/{postID}/comments", controllers.ListComments(deps.Posts, logg))
			r.With(once).Post("/posts/{postID}/comments", controllers.CreateComment(deps.Posts, logg))
			r.Post("/posts/{postID}/likes", controllers.LikePost(deps.Posts, logg))
			r.Delete("/posts/{postID}/likes", controllers.UnlikePost(deps.Posts, logg))

			r.Get("/chats", controllers.ListChats(deps.Chats, logg))
			r.With(once).Post("/chats", controllers.OpenChat(deps.Chats, logg))
			r.Get("/chats/{chatID}/messages", controllers.ListChatMessages(deps.Chats, logg))
			r.With(once).Post("/chats/{chatID}/messages", controllers.SendChatMessage(deps.Chats, logg))

			r.With(once).Post("/media", controllers.UploadMedia(deps.Media, cfg.Media.MaxUploadBytes(), logg))
			r.Delete("/media", controllers.DeleteMedia(deps.Media, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))
			r.Use(once)

			r.Post("/users/{userID}/ban", controllers.AdminBanUser(deps.Users, logg))
			r.Post("/users/{userID}/unban", controllers.AdminUnbanUser(deps.Users, logg))
			r.Post("/reviews/recompute", controllers.AdminRecomputeRatings(deps.Reviews, logg))
		})
	})

	return r
}

// idempotencyStore keeps a nil *redis.Client from becoming a non-nil interface.
func idempotencyStore(client *redis.Client) middleware.ResponseStore {
	if client == nil {
		return nil
	}
	return client
}

func authRateLimit(policy middleware.AuthRateLimitPolicy, client *redis.Client, logg *logger.Logger) func(http.Handler) http.Handler {
	if client == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return middleware.AuthRateLimit(policy, client, logg)
}
