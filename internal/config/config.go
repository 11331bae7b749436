// Package config предоставялет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"APP_ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	TrialDays               int    `yaml:"trial_days" env-default:"7"`
	HTTPServer              `yaml:"http_server"`
	RedisConnection         `yaml:"redis_connection"`
	RabbitMQ                `yaml:"rabbitmq"`
	JWTToken                `yaml:"jwttoken"`
	RateLimit               `yaml:"rate_limit"`
	Entitlement             Entitlement `yaml:"entitlement"`
	Payments                Payments    `yaml:"payments"`
	Mail                    Mail        `yaml:"mail"`
	Scheduler               Scheduler   `yaml:"scheduler"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	RedisAddress     string        `yaml:"addressredis"`
	RedisPassword    string        `yaml:"password" env:"REDIS_PASSWORD"`
	RedisUser        string        `yaml:"user"`
	RedisDB          int           `yaml:"db"`
	RedisMaxRetries  int           `yaml:"max_retries"`
	RedisDialTimeout time.Duration `yaml:"dial_timeout"`
	RedisTimeout     time.Duration `yaml:"timeoutredis"`
}

// RabbitMQ структура для подключения к брокеру сообщений
type RabbitMQ struct {
	RabbitURL     string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitRetries int           `yaml:"retries" env-default:"5"`
	RabbitDelay   time.Duration `yaml:"delay" env-default:"2s"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey    string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL        time.Duration `yaml:"token_ttl" env-default:"60m"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env-default:"24h"`
}

// RateLimit настройки ограничителя запросов
type RateLimit struct {
	RPS   float64 `yaml:"rps" env-default:"5"`
	Burst int     `yaml:"burst" env-default:"10"`
}

// Entitlement описывает, какие категории объектов видит каждый тариф.
type Entitlement struct {
	BasicCategories   []string `yaml:"basic_categories"`
	PremiumExclusions []string `yaml:"premium_exclusions"`
}

// Payments настройки платёжных провайдеров
type Payments struct {
	SuccessURL string   `yaml:"success_url"`
	CancelURL  string   `yaml:"cancel_url"`
	Stripe     Stripe   `yaml:"stripe"`
	Paystack   Paystack `yaml:"paystack"`
	PayPal     PayPal   `yaml:"paypal"`
}

// Stripe настройки Stripe Checkout
type Stripe struct {
	SecretKey     string `yaml:"secret_key" env:"STRIPE_SECRET_KEY"`
	WebhookSecret string `yaml:"webhook_secret" env:"STRIPE_WEBHOOK_SECRET"`
	Currency      string `yaml:"currency" env-default:"usd"`
}

// Paystack настройки Paystack
type Paystack struct {
	SecretKey string `yaml:"secret_key" env:"PAYSTACK_SECRET_KEY"`
	BaseURL   string `yaml:"base_url" env-default:"https://api.paystack.co"`
	Currency  string `yaml:"currency" env-default:"NGN"`
}

// PayPal настройки PayPal REST API
type PayPal struct {
	ClientID  string `yaml:"client_id" env:"PAYPAL_CLIENT_ID"`
	Secret    string `yaml:"secret" env:"PAYPAL_SECRET"`
	WebhookID string `yaml:"webhook_id" env:"PAYPAL_WEBHOOK_ID"`
	BaseURL   string `yaml:"base_url" env-default:"https://api-m.sandbox.paypal.com"`
	Currency  string `yaml:"currency" env-default:"USD"`
}

// Mail настройки отправки писем через Resend
type Mail struct {
	ResendAPIKey string `yaml:"resend_api_key" env:"RESEND_API_KEY"`
	From         string `yaml:"from" env-default:"GeoEstate <no-reply@geoestate.dev>"`
}

// Scheduler настройки планировщика уведомлений
type Scheduler struct {
	Spec string `yaml:"spec" env-default:"@hourly"`
}

// MustLoad функция для загрузки конфига, возвращает конфиг, сгенерированный из config/config.go
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}

// Load читает .env (если есть) и YAML-файл из CONFIG_PATH.
func Load() (*Config, error) {
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		return nil, fmt.Errorf("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("file: %s - does not exist", configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"Redis: %s (db %d)\n"+
			"TrialDays: %d\n"+
			"Entitlement:\n"+
			"  Basic: %v\n"+
			"  PremiumExclusions: %v\n"+
			"Scheduler: %s\n",
		c.Env,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.RedisAddress,
		c.RedisDB,
		c.TrialDays,
		c.Entitlement.BasicCategories,
		c.Entitlement.PremiumExclusions,
		c.Scheduler.Spec,
	)
}
