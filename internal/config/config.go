// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	RedisConnection         `yaml:"redis_connection"`
	RabbitConnection        `yaml:"rabbit_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	Reconciler              `yaml:"reconciler"`
	Payment                 `yaml:"payment"`
	Backend                 `yaml:"backend"`
	// AdminKeyHash — bcrypt-хэш операторского ключа. Сам ключ нигде не хранится.
	AdminKeyHash string `yaml:"admin_key_hash" env:"ADMIN_KEY_HASH"`
	// DiagLogCapacity — ёмкость диагностического журнала, старые записи вытесняются.
	DiagLogCapacity int `yaml:"diag_log_capacity" env-default:"1000"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"30s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// RabbitConnection структура для настройки подключения к rabbitmq
type RabbitConnection struct {
	AddressRabbit string        `yaml:"addressrabbit"`
	Retries       int           `yaml:"retries" env-default:"5"`
	RetryDelay    time.Duration `yaml:"retry_delay" env-default:"3s"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// Reconciler структура с настройками фонового цикла сверки
type Reconciler struct {
	SweepInterval time.Duration `yaml:"sweep_interval" env-default:"1m"`
	SweepBatch    int           `yaml:"sweep_batch" env-default:"50"`
}

// Payment структура с реквизитами платёжного провайдера.
// По префиксу публикуемого ключа определяется live/test режим.
type Payment struct {
	PublishableKey    string `yaml:"publishable_key" env:"PAYMENT_PUBLISHABLE_KEY"`
	PriceStarter      string `yaml:"price_starter" env:"PRICE_STARTER"`
	PriceProfessional string `yaml:"price_professional" env:"PRICE_PROFESSIONAL"`
	PriceEnterprise   string `yaml:"price_enterprise" env:"PRICE_ENTERPRISE"`
}

// Backend структура с адресом и анонимным ключом внешних backend-функций.
type Backend struct {
	BaseURL string `yaml:"base_url" env:"BACKEND_BASE_URL"`
	AnonKey string `yaml:"anon_key" env:"BACKEND_ANON_KEY"`
}

// MustLoad функция для загрузки конфига, путь берётся из CONFIG_PATH.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}

// Presence возвращает флаги наличия каждого секрета и идентификатора,
// не раскрывая самих значений. Используется диагностическим экспортом
// и определением демо-режима.
func (c *Config) Presence() map[string]bool {
	return map[string]bool{
		"payment_publishable_key": c.PublishableKey != "",
		"price_starter":           c.PriceStarter != "",
		"price_professional":      c.PriceProfessional != "",
		"price_enterprise":        c.PriceEnterprise != "",
		"backend_base_url":        c.Backend.BaseURL != "",
		"backend_anon_key":        c.Backend.AnonKey != "",
		"jwt_secret_key":          c.JWTSecretKey != "",
		"admin_key_hash":          c.AdminKeyHash != "",
	}
}

// DemoMode сообщает, что публикуемый ключ провайдера не задан и платёжные
// операции недоступны.
func (c *Config) DemoMode() bool {
	return c.PublishableKey == ""
}
