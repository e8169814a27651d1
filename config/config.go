package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/athebyme/gomarket-platform/feed-service/internal/adapters/contentapi"
	"github.com/athebyme/gomarket-platform/feed-service/internal/adapters/googleauth"
	"github.com/athebyme/gomarket-platform/feed-service/internal/domain/feed"
	"github.com/spf13/viper"
)

// Config содержит все настройки сервиса
type Config struct {
	AppName  string
	Version  string
	LogLevel string
	ENV      string

	Server struct {
		Host            string
		Port            int
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
		RequestTimeout  time.Duration
	}

	Postgres struct {
		Host     string
		Port     int
		User     string
		Password string
		DBName   string
		SSLMode  string
		Timeout  time.Duration
		PoolSize int // размер пула соединений
	}

	Redis struct {
		Host     string
		Port     int
		Password string
		DB       int
	}

	Kafka struct {
		Brokers         []string      `mapstructure:"brokers"`
		GroupID         string        `mapstructure:"group_id"`
		AutoOffsetReset string        `mapstructure:"auto_offset_reset"`
		SessionTimeout  time.Duration `mapstructure:"session_timeout"`
		PollTimeout     time.Duration `mapstructure:"poll_timeout"`
	}

	Worker struct {
		LockTTL     time.Duration `mapstructure:"lock_ttl"`     // время жизни блокировки записи
		MaxAttempts int           `mapstructure:"max_attempts"` // попыток на команду при ошибках транспорта
	}

	Metrics struct {
		Enabled bool
		Port    int `mapstructure:"port"`
	}

	Security struct {
		JWTSecret        string
		JWTExpirationMin time.Duration
		JWTIssuer        string
		CORSAllowOrigins []string
		AdminRoles       []string
		RateLimit        float64 // запросов в секунду на процесс, 0 отключает
		RateBurst        int
	}

	Keycloak KeycloakConfig `mapstructure:"keycloak"`

	Google struct {
		MerchantID        string  `mapstructure:"merchant_id"`
		ClientID          string  `mapstructure:"client_id"`
		ClientSecret      string  `mapstructure:"client_secret"`
		AuthURL           string  `mapstructure:"auth_url"`
		TokenURL          string  `mapstructure:"token_url"`
		RedirectURL       string  `mapstructure:"redirect_url"`
		APIBaseURL        string  `mapstructure:"api_base_url"`
		RequestsPerSecond float64 `mapstructure:"requests_per_second"`
		Burst             int     `mapstructure:"burst"`
		Timeout           time.Duration
	}

	Feed struct {
		StoreURL        string `mapstructure:"store_url"`
		ContentLanguage string `mapstructure:"content_language"`
		TargetCountry   string `mapstructure:"target_country"`
		Channel         string `mapstructure:"channel"`
		Condition       string `mapstructure:"condition"`
		WeightUnit      string `mapstructure:"weight_unit"`
	}
}

// Load загружает конфигурацию из файла и переменных окружения
func Load(configPath string) (*Config, error) {
	configFile := "config"
	if configPath != "" {
		configFile = configPath
	}

	v := viper.New()

	// Настройка Viper
	v.SetConfigName(configFile)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")
	v.AddConfigPath("../../config")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// без файла работаем только на переменных окружения
	}

	setDefaults(v)
	if err := bindEnvVariables(v); err != nil {
		return nil, fmt.Errorf("failed to bind env variables: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.ENV = v.GetString("env")
	if cfg.ENV == "" {
		cfg.ENV = "development"
		if envVar := os.Getenv("APP_ENV"); envVar != "" {
			cfg.ENV = envVar
		}
	}

	return &cfg, nil
}

// GoogleAuthConfig настройки OAuth-сессии Google
func (c *Config) GoogleAuthConfig() googleauth.Config {
	return googleauth.Config{
		ClientID:     c.Google.ClientID,
		ClientSecret: c.Google.ClientSecret,
		AuthURL:      c.Google.AuthURL,
		TokenURL:     c.Google.TokenURL,
		RedirectURL:  c.Google.RedirectURL,
	}
}

// ContentAPIConfig настройки клиента Content API
func (c *Config) ContentAPIConfig() contentapi.Config {
	return contentapi.Config{
		BaseURL:           c.Google.APIBaseURL,
		ApplicationName:   c.AppName + "/" + c.Version,
		Timeout:           c.Google.Timeout,
		RequestsPerSecond: c.Google.RequestsPerSecond,
		Burst:             c.Google.Burst,
	}
}

// FeedDefaults значения атрибутов фида по умолчанию
func (c *Config) FeedDefaults() feed.Defaults {
	return feed.Defaults{
		StoreURL:        c.Feed.StoreURL,
		Condition:       c.Feed.Condition,
		ContentLanguage: c.Feed.ContentLanguage,
		TargetCountry:   c.Feed.TargetCountry,
		Channel:         c.Feed.Channel,
		WeightUnit:      c.Feed.WeightUnit,
	}
}

// setDefaults устанавливает значения по умолчанию
func setDefaults(v *viper.Viper) {
	v.SetDefault("appName", "feed-service")
	v.SetDefault("version", "1.0.0")
	v.SetDefault("logLevel", "info")
	v.SetDefault("env", "development")

	// Настройки сервера
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", "10s")
	v.SetDefault("server.writeTimeout", "60s")
	v.SetDefault("server.shutdownTimeout", "5s")
	v.SetDefault("server.requestTimeout", "45s")

	// Настройки Postgres
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "postgres")
	v.SetDefault("postgres.dbname", "postgres")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.timeout", "5s")
	v.SetDefault("postgres.poolSize", 10)

	// Настройки Redis
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Настройки Kafka
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.group_id", "feed-service")
	v.SetDefault("kafka.auto_offset_reset", "earliest")
	v.SetDefault("kafka.session_timeout", "10s")
	v.SetDefault("kafka.poll_timeout", "100ms")

	v.SetDefault("worker.lock_ttl", "2m")
	v.SetDefault("worker.max_attempts", 5)

	// Настройки метрик
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	// Настройки безопасности
	v.SetDefault("security.jwtSecret", "")
	v.SetDefault("security.jwtExpirationMin", "60m")
	v.SetDefault("security.jwtIssuer", "feed-service")
	v.SetDefault("security.corsAllowOrigins", []string{"*"})
	v.SetDefault("security.adminRoles", []string{"admin"})
	v.SetDefault("security.rateLimit", 0)
	v.SetDefault("security.rateBurst", 20)

	// Настройки Keycloak
	v.SetDefault("keycloak.enabled", false)
	v.SetDefault("keycloak.realm", "gomarket")
	v.SetDefault("keycloak.client_id", "feed-service")

	// Настройки Google
	v.SetDefault("google.auth_url", "https://accounts.google.com/o/oauth2/auth")
	v.SetDefault("google.token_url", "https://oauth2.googleapis.com/token")
	v.SetDefault("google.api_base_url", "https://shoppingcontent.googleapis.com/content/v2.1")
	v.SetDefault("google.requests_per_second", 5)
	v.SetDefault("google.burst", 5)
	v.SetDefault("google.timeout", "30s")

	// Настройки фида
	v.SetDefault("feed.content_language", "en")
	v.SetDefault("feed.target_country", "US")
	v.SetDefault("feed.channel", "online")
	v.SetDefault("feed.condition", "new")
	v.SetDefault("feed.weight_unit", "kg")
}

// bindEnvVariables привязывает переменные окружения к конфигурации
func bindEnvVariables(v *viper.Viper) error {
	bindings := map[string]string{
		"appName":  "APP_NAME",
		"version":  "APP_VERSION",
		"logLevel": "LOG_LEVEL",
		"env":      "APP_ENV",

		"server.host":            "SERVER_HOST",
		"server.port":            "SERVER_PORT",
		"server.readTimeout":     "SERVER_READ_TIMEOUT",
		"server.writeTimeout":    "SERVER_WRITE_TIMEOUT",
		"server.shutdownTimeout": "SERVER_SHUTDOWN_TIMEOUT",
		"server.requestTimeout":  "SERVER_REQUEST_TIMEOUT",

		"postgres.host":     "POSTGRES_HOST",
		"postgres.port":     "POSTGRES_PORT",
		"postgres.user":     "POSTGRES_USER",
		"postgres.password": "POSTGRES_PASSWORD",
		"postgres.dbname":   "POSTGRES_DBNAME",
		"postgres.sslmode":  "POSTGRES_SSLMODE",
		"postgres.timeout":  "POSTGRES_TIMEOUT",
		"postgres.poolSize": "POSTGRES_POOL_SIZE",

		"redis.host":     "REDIS_HOST",
		"redis.port":     "REDIS_PORT",
		"redis.password": "REDIS_PASSWORD",
		"redis.db":       "REDIS_DB",

		"kafka.brokers":           "KAFKA_BROKERS",
		"kafka.group_id":          "KAFKA_GROUP_ID",
		"kafka.auto_offset_reset": "KAFKA_AUTO_OFFSET_RESET",
		"kafka.session_timeout":   "KAFKA_SESSION_TIMEOUT",
		"kafka.poll_timeout":      "KAFKA_POLL_TIMEOUT",

		"worker.lock_ttl":     "WORKER_LOCK_TTL",
		"worker.max_attempts": "WORKER_MAX_ATTEMPTS",

		"metrics.enabled": "METRICS_ENABLED",
		"metrics.port":    "METRICS_PORT",

		"security.jwtSecret":        "JWT_SECRET",
		"security.jwtExpirationMin": "JWT_EXPIRATION_MIN",
		"security.jwtIssuer":        "JWT_ISSUER",
		"security.corsAllowOrigins": "CORS_ALLOW_ORIGINS",
		"security.adminRoles":       "ADMIN_ROLES",
		"security.rateLimit":        "RATE_LIMIT",
		"security.rateBurst":        "RATE_BURST",

		"keycloak.enabled":    "KEYCLOAK_ENABLED",
		"keycloak.server_url": "KEYCLOAK_SERVER_URL",
		"keycloak.realm":      "KEYCLOAK_REALM",
		"keycloak.client_id":  "KEYCLOAK_CLIENT_ID",

		"google.merchant_id":         "GOOGLE_MERCHANT_ID",
		"google.client_id":           "GOOGLE_CLIENT_ID",
		"google.client_secret":       "GOOGLE_CLIENT_SECRET",
		"google.auth_url":            "GOOGLE_AUTH_URL",
		"google.token_url":           "GOOGLE_TOKEN_URL",
		"google.redirect_url":        "GOOGLE_REDIRECT_URL",
		"google.api_base_url":        "GOOGLE_API_BASE_URL",
		"google.requests_per_second": "GOOGLE_REQUESTS_PER_SECOND",
		"google.burst":               "GOOGLE_BURST",
		"google.timeout":             "GOOGLE_TIMEOUT",

		"feed.store_url":        "FEED_STORE_URL",
		"feed.content_language": "FEED_CONTENT_LANGUAGE",
		"feed.target_country":   "FEED_TARGET_COUNTRY",
		"feed.channel":          "FEED_CHANNEL",
		"feed.condition":        "FEED_CONDITION",
		"feed.weight_unit":      "FEED_WEIGHT_UNIT",
	}

	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	return nil
}
