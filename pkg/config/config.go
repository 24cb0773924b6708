package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	Session      SessionConfig
	RateLimit    AuthRateLimitConfig
	FeatureFlags FeatureFlagsConfig
	Commerce     CommerceConfig
	Settings     SettingsConfig
	Mail         MailConfig
	Storage      StorageConfig
	GCP          GCPConfig
	GCS          GCSConfig
	PubSub       PubSubConfig
	Eventing     EventingConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Commerce.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Storage.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SOLARSHOP_APP_ENV" required:"true"`
	Port         string `envconfig:"SOLARSHOP_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SOLARSHOP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SOLARSHOP_LOG_WARN_STACK" default:"false"`
	PublicURL    string `envconfig:"SOLARSHOP_PUBLIC_URL" default:"http://localhost:3000"`
	CORSOrigins  string `envconfig:"SOLARSHOP_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// AllowedOrigins splits the comma separated CORS origin list.
func (a AppConfig) AllowedOrigins() []string {
	return splitList(a.CORSOrigins)
}

type ServiceConfig struct {
	Kind string `envconfig:"SOLARSHOP_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SOLARSHOP_DB_DSN"`
	Driver string `envconfig:"SOLARSHOP_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"SOLARSHOP_DB_HOST"`
	Port     int    `envconfig:"SOLARSHOP_DB_PORT" default:"5432"`
	User     string `envconfig:"SOLARSHOP_DB_USER"`
	Password string `envconfig:"SOLARSHOP_DB_PASSWORD"`
	Name     string `envconfig:"SOLARSHOP_DB_NAME"`
	SSLMode  string `envconfig:"SOLARSHOP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SOLARSHOP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SOLARSHOP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SOLARSHOP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SOLARSHOP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SOLARSHOP_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SOLARSHOP_REDIS_ADDR"`
	Password     string        `envconfig:"SOLARSHOP_REDIS_PASSWORD"`
	DB           int           `envconfig:"SOLARSHOP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SOLARSHOP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SOLARSHOP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SOLARSHOP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SOLARSHOP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SOLARSHOP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"SOLARSHOP_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"SOLARSHOP_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"SOLARSHOP_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"SOLARSHOP_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

// AccessTokenTTL returns the access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"SOLARSHOP_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"SOLARSHOP_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"SOLARSHOP_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"SOLARSHOP_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"SOLARSHOP_ARGON_KEY_LEN" default:"32"`
}

// SessionConfig controls the browser cookies used for authentication and CSRF.
type SessionConfig struct {
	AccessCookie   string        `envconfig:"SOLARSHOP_SESSION_ACCESS_COOKIE" default:"solarshop_session"`
	RefreshCookie  string        `envconfig:"SOLARSHOP_SESSION_REFRESH_COOKIE" default:"solarshop_refresh"`
	GuestCookie    string        `envconfig:"SOLARSHOP_SESSION_GUEST_COOKIE" default:"solarshop_guest"`
	CSRFCookie     string        `envconfig:"SOLARSHOP_CSRF_COOKIE" default:"XSRF-TOKEN"`
	CSRFHeader     string        `envconfig:"SOLARSHOP_CSRF_HEADER" default:"X-XSRF-TOKEN"`
	SecureCookies  bool          `envconfig:"SOLARSHOP_SESSION_SECURE" default:"true"`
	GuestCookieTTL time.Duration `envconfig:"SOLARSHOP_SESSION_GUEST_TTL" default:"720h"`
}

// AuthRateLimitConfig throttles login and registration attempts per IP and per email.
type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"SOLARSHOP_AUTH_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"SOLARSHOP_AUTH_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"SOLARSHOP_AUTH_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"SOLARSHOP_AUTH_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"SOLARSHOP_AUTH_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"SOLARSHOP_AUTH_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite        bool `envconfig:"SOLARSHOP_USE_SQLITE" default:"false"`
	AutoMigrate      bool `envconfig:"SOLARSHOP_AUTO_MIGRATE" default:"false"`
	InstallmentPlans bool `envconfig:"SOLARSHOP_FEATURE_INSTALLMENT_PLANS" default:"false"`
	WarrantyClaims   bool `envconfig:"SOLARSHOP_FEATURE_WARRANTY_CLAIMS" default:"true"`
	CustomBuilder    bool `envconfig:"SOLARSHOP_FEATURE_CUSTOM_BUILDER" default:"false"`
}

// CommerceConfig carries the money and numbering rules for orders, invoices and warranties.
type CommerceConfig struct {
	TaxRate               string `envconfig:"SOLARSHOP_TAX_RATE" default:"0.0825"`
	Currency              string `envconfig:"SOLARSHOP_CURRENCY" default:"USD"`
	OrderNumberPrefix     string `envconfig:"SOLARSHOP_ORDER_PREFIX" default:"ORD"`
	InvoiceNumberPrefix   string `envconfig:"SOLARSHOP_INVOICE_PREFIX" default:"INV"`
	TrackingNumberPrefix  string `envconfig:"SOLARSHOP_TRACKING_PREFIX" default:"TRK"`
	WarrantyNumberPrefix  string `envconfig:"SOLARSHOP_WARRANTY_PREFIX" default:"WAR"`
	ClaimNumberPrefix     string `envconfig:"SOLARSHOP_CLAIM_PREFIX" default:"CLM"`
	DefaultWarrantyMonths int    `envconfig:"SOLARSHOP_DEFAULT_WARRANTY_MONTHS" default:"120"`
	MaxInstallmentMonths  int    `envconfig:"SOLARSHOP_MAX_INSTALLMENT_MONTHS" default:"36"`
	AdminEmails           string `envconfig:"SOLARSHOP_ADMIN_EMAILS"`
}

// TaxRateDecimal returns the configured tax rate as a fraction (0.0825 for 8.25%).
func (c CommerceConfig) TaxRateDecimal() decimal.Decimal {
	rate, err := decimal.NewFromString(strings.TrimSpace(c.TaxRate))
	if err != nil {
		return decimal.Zero
	}
	return rate
}

// AdminEmailList returns the normalized admin notification recipients.
func (c CommerceConfig) AdminEmailList() []string {
	out := splitList(c.AdminEmails)
	for i := range out {
		out[i] = strings.ToLower(out[i])
	}
	return out
}

func (c CommerceConfig) validate() error {
	rate, err := decimal.NewFromString(strings.TrimSpace(c.TaxRate))
	if err != nil {
		return fmt.Errorf("%s must be a decimal: %w", EnvTaxRate, err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%s must be between 0 and 1", EnvTaxRate)
	}
	return nil
}

type SettingsConfig struct {
	CacheTTL time.Duration `envconfig:"SOLARSHOP_SETTINGS_CACHE_TTL" default:"1h"`
}

// MailConfig configures outbound SMTP. Mail is disabled when Host is empty.
type MailConfig struct {
	Host     string `envconfig:"SOLARSHOP_MAIL_HOST"`
	Port     int    `envconfig:"SOLARSHOP_MAIL_PORT" default:"587"`
	Username string `envconfig:"SOLARSHOP_MAIL_USERNAME"`
	Password string `envconfig:"SOLARSHOP_MAIL_PASSWORD"`
	From     string `envconfig:"SOLARSHOP_MAIL_FROM" default:"no-reply@solarshop.local"`
	FromName string `envconfig:"SOLARSHOP_MAIL_FROM_NAME" default:"SolarShop"`
}

func (m MailConfig) Enabled() bool {
	return strings.TrimSpace(m.Host) != ""
}

type StorageConfig struct {
	Disk      string `envconfig:"SOLARSHOP_STORAGE_DISK" default:"local"`
	LocalRoot string `envconfig:"SOLARSHOP_STORAGE_LOCAL_ROOT" default:"storage/app"`
	Prefix    string `envconfig:"SOLARSHOP_STORAGE_PREFIX" default:"invoices"`
}

func (s StorageConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(s.Disk)) {
	case StorageDiskLocal, StorageDiskGCS:
		return nil
	default:
		return fmt.Errorf("%s must be one of %s, %s", EnvStorageDisk, StorageDiskLocal, StorageDiskGCS)
	}
}

// UsesGCS reports whether files go to the GCS bucket.
func (s StorageConfig) UsesGCS() bool {
	return strings.EqualFold(strings.TrimSpace(s.Disk), StorageDiskGCS)
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SOLARSHOP_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"SOLARSHOP_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SOLARSHOP_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName string `envconfig:"SOLARSHOP_GCS_BUCKET_NAME"`
}

type PubSubConfig struct {
	NotificationTopic  string `envconfig:"SOLARSHOP_PUBSUB_NOTIFICATION_TOPIC" default:"solarshop-notification-events"`
	NotificationSub    string `envconfig:"SOLARSHOP_PUBSUB_NOTIFICATION_SUBSCRIPTION" default:"solarshop-notification-worker"`
	MaxOutstandingMsgs int    `envconfig:"SOLARSHOP_PUBSUB_MAX_OUTSTANDING" default:"10"`
}

type EventingConfig struct {
	IdempotencyTTL time.Duration `envconfig:"SOLARSHOP_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SOLARSHOP_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SOLARSHOP_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SOLARSHOP_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"SOLARSHOP_CRON_INTERVAL" default:"1h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range dbPartEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
