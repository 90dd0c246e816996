package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	GCP           GCPConfig
	GCS           GCSConfig
	Media         MediaConfig
	PubSub        PubSubConfig
	Stripe        StripeConfig
	Payments      PaymentsConfig
	Checkout      CheckoutConfig
	Outbox        OutboxConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BOOKSTALL_APP_ENV" required:"true"`
	Port         string `envconfig:"BOOKSTALL_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BOOKSTALL_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BOOKSTALL_LOG_WARN_STACK" default:"false"`
	// PublicURL is the externally reachable origin used to build payment callback URLs.
	PublicURL string `envconfig:"BOOKSTALL_PUBLIC_URL" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"BOOKSTALL_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"BOOKSTALL_DB_DSN"`
	Driver string `envconfig:"BOOKSTALL_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BOOKSTALL_DB_HOST"`
	LegacyPort     int    `envconfig:"BOOKSTALL_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BOOKSTALL_DB_USER"`
	LegacyPassword string `envconfig:"BOOKSTALL_DB_PASSWORD"`
	LegacyName     string `envconfig:"BOOKSTALL_DB_NAME"`
	LegacySSLMode  string `envconfig:"BOOKSTALL_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"BOOKSTALL_SQLITE_PATH" default:"bookstall.db"`

	MaxOpenConns    int           `envconfig:"BOOKSTALL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BOOKSTALL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BOOKSTALL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BOOKSTALL_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"BOOKSTALL_DB_SLOW_QUERY" default:"200ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BOOKSTALL_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BOOKSTALL_REDIS_ADDR"`
	Password     string        `envconfig:"BOOKSTALL_REDIS_PASSWORD"`
	DB           int           `envconfig:"BOOKSTALL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BOOKSTALL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BOOKSTALL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BOOKSTALL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BOOKSTALL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BOOKSTALL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"BOOKSTALL_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"BOOKSTALL_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"BOOKSTALL_JWT_EXPIRATION_MINUTES" required:"true"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"BOOKSTALL_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"BOOKSTALL_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"BOOKSTALL_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"BOOKSTALL_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"BOOKSTALL_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"BOOKSTALL_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"BOOKSTALL_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"BOOKSTALL_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"BOOKSTALL_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"BOOKSTALL_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"BOOKSTALL_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"BOOKSTALL_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"BOOKSTALL_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL   time.Duration `envconfig:"BOOKSTALL_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
	OutboxIdempotencyLease time.Duration `envconfig:"BOOKSTALL_EVENTING_IDEMPOTENCY_LEASE" default:"5m"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"BOOKSTALL_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"BOOKSTALL_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"BOOKSTALL_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName string `envconfig:"BOOKSTALL_GCS_BUCKET_NAME" required:"true"`
	// PublicBaseURL overrides the default https://storage.googleapis.com/<bucket> prefix.
	PublicBaseURL string `envconfig:"BOOKSTALL_GCS_PUBLIC_BASE_URL"`
}

type MediaConfig struct {
	MaxUploadMB int `envconfig:"BOOKSTALL_MAX_UPLOAD_MB" default:"10"`
}

// MaxUploadBytes returns the upload ceiling in bytes.
func (m MediaConfig) MaxUploadBytes() int64 {
	if m.MaxUploadMB <= 0 {
		return 10 << 20
	}
	return int64(m.MaxUploadMB) << 20
}

type PubSubConfig struct {
	OrdersTopic              string `envconfig:"BOOKSTALL_PUBSUB_ORDERS_TOPIC" required:"true"`
	NotificationTopic        string `envconfig:"BOOKSTALL_PUBSUB_NOTIFICATION_TOPIC" default:"bookstall-notification-events"`
	NotificationSubscription string `envconfig:"BOOKSTALL_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"BOOKSTALL_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"BOOKSTALL_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"BOOKSTALL_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type StripeConfig struct {
	APIKey string `envconfig:"BOOKSTALL_STRIPE_API_KEY"`
	Env    string `envconfig:"BOOKSTALL_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type PaymentsConfig struct {
	// Provider selects the payment gateway: "stripe" or "redirect".
	Provider string `envconfig:"BOOKSTALL_PAYMENTS_PROVIDER" default:"stripe"`
	// RedirectBaseURL is the hosted payment page used by the redirect gateway.
	RedirectBaseURL string `envconfig:"BOOKSTALL_PAYMENTS_REDIRECT_BASE_URL"`
	// RedirectSecret signs intentions handed to the hosted payment page.
	RedirectSecret string `envconfig:"BOOKSTALL_PAYMENTS_REDIRECT_SECRET"`
}

type CheckoutConfig struct {
	ShippingFeeCents int64         `envconfig:"BOOKSTALL_CHECKOUT_SHIPPING_FEE_CENTS" default:"500"`
	Currency         string        `envconfig:"BOOKSTALL_CHECKOUT_CURRENCY" default:"usd"`
	PendingTTL       time.Duration `envconfig:"BOOKSTALL_CHECKOUT_PENDING_TTL" default:"2h"`
	CallbackPath     string        `envconfig:"BOOKSTALL_CHECKOUT_CALLBACK_PATH" default:"/checkout/complete"`
	CancelPath       string        `envconfig:"BOOKSTALL_CHECKOUT_CANCEL_PATH" default:"/cart"`
}

type CronConfig struct {
	NotificationRetention time.Duration `envconfig:"BOOKSTALL_CRON_NOTIFICATION_RETENTION" default:"2160h"`
	NotificationBatch     int           `envconfig:"BOOKSTALL_CRON_NOTIFICATION_BATCH" default:"500"`
	OutboxRetention       time.Duration `envconfig:"BOOKSTALL_CRON_OUTBOX_RETENTION" default:"720h"`
	DLQRetention          time.Duration `envconfig:"BOOKSTALL_CRON_DLQ_RETENTION" default:"2160h"`
	LockTTL               time.Duration `envconfig:"BOOKSTALL_CRON_LOCK_TTL" default:"10m"`
	Tick                  time.Duration `envconfig:"BOOKSTALL_CRON_TICK" default:"1m"`
	NotificationCleanup   time.Duration `envconfig:"BOOKSTALL_CRON_NOTIFICATION_CLEANUP_EVERY" default:"24h"`
	OutboxCleanup         time.Duration `envconfig:"BOOKSTALL_CRON_OUTBOX_CLEANUP_EVERY" default:"24h"`
	RatingReconcile       time.Duration `envconfig:"BOOKSTALL_CRON_RATING_RECONCILE_EVERY" default:"6h"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" || useSQLite {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
