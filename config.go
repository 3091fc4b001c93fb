package main

import (
	"errors"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the runtime configuration, read from the environment and an optional .env file.
type Config struct {
	AppPort   string
	AppEnv    string
	BodyLimit int // bytes

	OrderStore  string // file, memory, sqlite, postgres or mysql
	OrdersFile  string
	DatabaseDSN string
	UploadDir   string

	RedisAddr     string
	RedisCacheTTL time.Duration
	RabbitMQURL   string

	EmailHost    string
	EmailPort    int
	EmailUser    string
	EmailPass    string
	AdminEmail   string
	SupportEmail string

	JWTSecret            string
	OperatorPasswordHash string
}

// LoadConfig reads .env (when present) and the process environment.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}

	v := viper.New()
	v.SetDefault("APP_PORT", ":3000")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("BODY_LIMIT_MB", 32)
	v.SetDefault("ORDER_STORE", "file")
	v.SetDefault("ORDERS_FILE", "orders.json")
	v.SetDefault("DATABASE_DSN", "printshop.db")
	v.SetDefault("UPLOAD_DIR", "uploads/designs")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_CACHE_TTL", 5*time.Minute)
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("EMAIL_HOST", "smtp.gmail.com")
	v.SetDefault("EMAIL_PORT", 587)
	v.SetDefault("EMAIL_USER", "")
	v.SetDefault("EMAIL_PASS", "")
	v.SetDefault("ADMIN_EMAIL", "admin@yourstore.com")
	v.SetDefault("SUPPORT_EMAIL", "support@yourstore.com")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("OPERATOR_PASSWORD_HASH", "")
	v.AutomaticEnv()

	return Config{
		AppPort:              v.GetString("APP_PORT"),
		AppEnv:               v.GetString("APP_ENV"),
		BodyLimit:            v.GetInt("BODY_LIMIT_MB") << 20,
		OrderStore:           v.GetString("ORDER_STORE"),
		OrdersFile:           v.GetString("ORDERS_FILE"),
		DatabaseDSN:          v.GetString("DATABASE_DSN"),
		UploadDir:            v.GetString("UPLOAD_DIR"),
		RedisAddr:            v.GetString("REDIS_ADDR"),
		RedisCacheTTL:        v.GetDuration("REDIS_CACHE_TTL"),
		RabbitMQURL:          v.GetString("RABBITMQ_URL"),
		EmailHost:            v.GetString("EMAIL_HOST"),
		EmailPort:            v.GetInt("EMAIL_PORT"),
		EmailUser:            v.GetString("EMAIL_USER"),
		EmailPass:            v.GetString("EMAIL_PASS"),
		AdminEmail:           v.GetString("ADMIN_EMAIL"),
		SupportEmail:         v.GetString("SUPPORT_EMAIL"),
		JWTSecret:            v.GetString("JWT_SECRET"),
		OperatorPasswordHash: v.GetString("OPERATOR_PASSWORD_HASH"),
	}, nil
}

// EmailEnabled reports whether SMTP credentials were provided.
func (c Config) EmailEnabled() bool {
	return c.EmailUser != "" && c.EmailPass != ""
}
