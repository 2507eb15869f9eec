// config предоставляет структуру конфигурации портала и функции
// загрузки из файла/переменных окружения с предсказуемым приоритетом.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/pribylovaa/go-profile-portal/internal/gate"
	"github.com/pribylovaa/go-profile-portal/internal/http/cookies"
	"github.com/pribylovaa/go-profile-portal/internal/token"
)

// Config — корневая конфигурация портала.
// Источники значений (по убыванию приоритета):
//  1. явный путь через флаг --config;
//  2. путь в переменной окружения CONFIG_PATH;
//  3. файл local.yaml из рабочей директории;
//  4. переменные окружения (cleanenv).
//
// Перед чтением подгружается .env из рабочей директории, если он есть;
// уже выставленные переменные окружения он не перекрывает.
type Config struct {
	Env      string        `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig    `yaml:"http"`
	Auth     AuthConfig    `yaml:"auth"`
	Cookies  CookieConfig  `yaml:"cookies"`
	Gate     GateConfig    `yaml:"gate"`
	DB       DBConfig      `yaml:"db"`
	Redis    RedisConfig   `yaml:"redis"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
}

// TimeoutConfig — таймауты портала.
type TimeoutConfig struct {
	Service  time.Duration `yaml:"service" env:"SERVICE_TIMEOUT" env-default:"5s"`
	Shutdown time.Duration `yaml:"shutdown" env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// HTTPConfig — сетевые настройки HTTP-сервера.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// AuthConfig содержит параметры выпуска и валидации токенов.
// Секреты access и refresh обязаны различаться.
type AuthConfig struct {
	AccessSecret    string        `yaml:"access_secret" env:"ACCESS_SECRET" env-required:"true"`
	RefreshSecret   string        `yaml:"refresh_secret" env:"REFRESH_SECRET" env-required:"true"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl" env:"ACCESS_TOKEN_TTL" env-default:"10m"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env:"REFRESH_TOKEN_TTL" env-default:"168h"`
	Issuer          string        `yaml:"issuer" env:"ISSUER" env-default:"profile-portal"`
	BcryptCost      int           `yaml:"bcrypt_cost" env:"BCRYPT_COST" env-default:"10"`
}

// Token собирает token.Config.
func (a AuthConfig) Token() token.Config {
	return token.Config{
		AccessSecret:  []byte(a.AccessSecret),
		RefreshSecret: []byte(a.RefreshSecret),
		AccessTTL:     a.AccessTokenTTL,
		RefreshTTL:    a.RefreshTokenTTL,
		Issuer:        a.Issuer,
	}
}

// CookieConfig — имена и атрибуты cookie сессии.
type CookieConfig struct {
	AccessName  string `yaml:"access_name" env:"COOKIE_ACCESS_NAME" env-default:"access_token"`
	RefreshName string `yaml:"refresh_name" env:"COOKIE_REFRESH_NAME" env-default:"refresh_token"`
	Path        string `yaml:"path" env:"COOKIE_PATH" env-default:"/"`
	Secure      bool   `yaml:"secure" env:"COOKIE_SECURE" env-default:"false"`
}

// Options собирает cookies.Options (SameSite=Lax всегда).
func (c CookieConfig) Options() cookies.Options {
	o := cookies.Default()
	o.Access = c.AccessName
	o.Refresh = c.RefreshName
	o.Path = c.Path
	o.Secure = c.Secure

	return o
}

// GateConfig — классы маршрутов RouteGate.
type GateConfig struct {
	ProtectedPrefixes []string `yaml:"protected_prefixes" env:"GATE_PROTECTED" env-default:"/dashboard,/profile"`
	AuthPages         []string `yaml:"auth_pages" env:"GATE_AUTH_PAGES" env-default:"/login,/register"`
	LoginPath         string   `yaml:"login_path" env:"GATE_LOGIN_PATH" env-default:"/login"`
	LandingPath       string   `yaml:"landing_path" env:"GATE_LANDING_PATH" env-default:"/dashboard"`
}

// Gate собирает gate.Config.
func (g GateConfig) Gate() gate.Config {
	cfg := gate.DefaultConfig()
	cfg.ProtectedPrefixes = g.ProtectedPrefixes
	cfg.AuthPages = g.AuthPages
	cfg.LoginPath = g.LoginPath
	cfg.LandingPath = g.LandingPath

	return cfg
}

// DBConfig — настройки подключения к базе данных.
type DBConfig struct {
	DatabaseURL string `yaml:"db_url" env:"DATABASE_URL" env-required:"true"`
}

// RedisConfig — Redis для клиентских сессий (portalctl). Сервер его не требует.
type RedisConfig struct {
	RedisURL string `yaml:"redis_url" env:"REDIS_URL"`
	Prefix   string `yaml:"prefix" env:"REDIS_PREFIX" env-default:"portal:session:"`
}

// Validate проверяет согласованность значений. Ошибки оборачивают
// token.ErrConfiguration: с такой конфигурацией сервер не стартует.
func (c *Config) Validate() error {
	const op = "config.Validate"

	if err := c.Auth.Token().Validate(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if c.Auth.BcryptCost != 0 && (c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31) {
		return fmt.Errorf("%s: bcrypt_cost %d out of range: %w", op, c.Auth.BcryptCost, token.ErrConfiguration)
	}

	if c.Cookies.AccessName == "" || c.Cookies.RefreshName == "" || c.Cookies.AccessName == c.Cookies.RefreshName {
		return fmt.Errorf("%s: cookie names must be distinct and non-empty: %w", op, token.ErrConfiguration)
	}

	if len(c.Gate.ProtectedPrefixes) == 0 {
		return fmt.Errorf("%s: no protected prefixes: %w", op, token.ErrConfiguration)
	}

	return nil
}

// MustLoad — обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
// ВАЖНО: после чтения файла накладываем ENV-переменные поверх значений из YAML.
func Load(path string) (*Config, error) {
	var cfg Config

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	// чтение файла + overlay ENV.
	tryRead := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, nil
	}

	// 1) Явный путь.
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH.
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml.
	if _, err := os.Stat("local.yaml"); err == nil {
		return tryRead("local.yaml")
	}

	// 4) Только ENV.
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	return &cfg, nil
}
