package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// TrustedProxies lists the addresses or CIDRs whose X-Forwarded-For is
	// honored. Empty means the peer address is always the client address.
	TrustedProxies []string
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
	QueryTimeout    time.Duration
	MigrateOnStart  bool
}

type RedisConfig struct {
	Addr               string
	Password           string
	DB                 int
	NotificationStream string
	ConsumerGroup      string
	ConsumerName       string
	ClaimInterval      time.Duration
	MaxDeliveries      int64
}

type StorageConfig struct {
	Endpoint         string
	AccessKey        string
	SecretKey        string
	BucketDocuments  string
	UseSSL           bool
	Region           string
	MaxDocumentBytes int64
}

// IdentityConfig points at the hosted identity provider. When JWTSecret is
// set, access tokens are verified locally; otherwise every token is checked
// against the provider's user endpoint.
type IdentityConfig struct {
	ProviderURL string
	ServiceKey  string
	JWTSecret   string
	Timeout     time.Duration
}

type TwoFactorConfig struct {
	Issuer          string
	BackupCodeCount int
	Skew            uint
}

type SecurityConfig struct {
	FailedLoginThreshold      int
	FailedLoginWindow         time.Duration
	TwoFactorFailureThreshold int
	TwoFactorFailureWindow    time.Duration
	AlertTimeout              time.Duration
	RateLimitCount            int
	RateLimitWindow           time.Duration
	MinRejectionNotes         int
}

type NotificationConfig struct {
	Provider       string
	SendGridAPIKey string
	FromAddress    string
	FromName       string
	AppURL         string
}

type JobsConfig struct {
	AuditReminderSpec string
	EventDigestSpec   string
}

type WorkerConfig struct {
	MetricsAddr string
}

type LoggingConfig struct {
	Level string
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Identity         IdentityConfig
	TwoFactor        TwoFactorConfig
	Security         SecurityConfig
	Notifications    NotificationConfig
	Jobs             JobsConfig
	Worker           WorkerConfig
	Logging          LoggingConfig
	AllowCORSOrigins []string
}

// Load reads the API configuration.
func Load() (*AppConfig, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWorker reads the same sources as Load but only checks what the
// notification worker needs.
func LoadWorker() (*AppConfig, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}
	if err := cfg.validateNotifications(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func read() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("REALESTATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate reports configuration the process cannot start without.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Postgres.DSN == "" {
		errs = append(errs, errors.New("postgres.dsn is required"))
	}
	if c.Identity.JWTSecret == "" && c.Identity.ProviderURL == "" {
		errs = append(errs, errors.New("identity.providerurl or identity.jwtsecret is required"))
	}
	if c.Identity.ProviderURL != "" && c.Identity.JWTSecret == "" && c.Identity.ServiceKey == "" {
		errs = append(errs, errors.New("identity.servicekey is required for remote token verification"))
	}
	errs = append(errs, c.validateNotifications())
	return errors.Join(errs...)
}

func (c *AppConfig) validateNotifications() error {
	switch c.Notifications.Provider {
	case "log":
		return nil
	case "sendgrid":
		if c.Notifications.SendGridAPIKey == "" {
			return errors.New("notifications.sendgridapikey is required for the sendgrid provider")
		}
		return nil
	default:
		return fmt.Errorf("notifications.provider %q is not supported", c.Notifications.Provider)
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "30s")
	v.SetDefault("http.idletimeout", "60s")
	v.SetDefault("http.trustedproxies", []string{})

	v.SetDefault("postgres.maxopen", 20)
	v.SetDefault("postgres.maxidle", 4)
	v.SetDefault("postgres.connmaxlifetime", "30m")
	v.SetDefault("postgres.querytimeout", "5s")
	v.SetDefault("postgres.migrateonstart", true)

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.notificationstream", "notifications:outbound")
	v.SetDefault("redis.consumergroup", "notification-workers")
	v.SetDefault("redis.consumername", "worker-1")
	v.SetDefault("redis.claiminterval", "30s")
	v.SetDefault("redis.maxdeliveries", 5)

	v.SetDefault("storage.bucketdocuments", "verification-documents")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.maxdocumentbytes", 10<<20)

	v.SetDefault("identity.timeout", "5s")

	v.SetDefault("twofactor.issuer", "Nigerian Real Estate")
	v.SetDefault("twofactor.backupcodecount", 10)
	v.SetDefault("twofactor.skew", 2)

	v.SetDefault("security.failedloginthreshold", 5)
	v.SetDefault("security.failedloginwindow", "15m")
	v.SetDefault("security.twofactorfailurethreshold", 3)
	v.SetDefault("security.twofactorfailurewindow", "30m")
	v.SetDefault("security.alerttimeout", "10s")
	v.SetDefault("security.ratelimitcount", 10)
	v.SetDefault("security.ratelimitwindow", "1m")
	v.SetDefault("security.minrejectionnotes", 10)

	v.SetDefault("notifications.provider", "log")
	v.SetDefault("notifications.fromaddress", "no-reply@example.ng")
	v.SetDefault("notifications.fromname", "Nigerian Real Estate")

	v.SetDefault("jobs.auditreminderspec", "0 0 7 * * *")
	v.SetDefault("jobs.eventdigestspec", "0 0 */1 * * *")

	v.SetDefault("worker.metricsaddr", ":9091")

	v.SetDefault("logging.level", "info")
}
