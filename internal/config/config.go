package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	API           APIConfig
	Push          PushConfig
	Storage       StorageConfig
	Checkout      CheckoutConfig
	Notifications NotificationsConfig
}

type APIConfig struct {
	BaseURL        string
	Timeout        time.Duration
	ConnectTimeout time.Duration
}

type PushConfig struct {
	URL              string
	Namespace        string
	ReconnectTimeout time.Duration
	ReadTimeout      time.Duration
}

type StorageConfig struct {
	Driver          string
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type CheckoutConfig struct {
	ShippingFee decimal.Decimal
}

type NotificationsConfig struct {
	PageLimit int
	Dedup     bool
}

func Load() (*Config, error) {
	godotenv.Load()

	baseURL := strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:3000"), "/")

	pushURL := getEnv("PUSH_URL", "")
	if pushURL == "" {
		derived, err := websocketURL(baseURL)
		if err != nil {
			return nil, fmt.Errorf("derive push url: %w", err)
		}
		pushURL = derived
	}

	shippingFee, err := decimal.NewFromString(getEnv("CHECKOUT_SHIPPING_FEE", "15"))
	if err != nil {
		return nil, fmt.Errorf("parse CHECKOUT_SHIPPING_FEE: %w", err)
	}

	cfg := &Config{
		API: APIConfig{
			BaseURL:        baseURL,
			Timeout:        getEnvDuration("API_TIMEOUT", 60*time.Second),
			ConnectTimeout: getEnvDuration("API_CONNECT_TIMEOUT", 5*time.Second),
		},
		Push: PushConfig{
			URL:              pushURL,
			Namespace:        getEnv("PUSH_NAMESPACE", "notifications"),
			ReconnectTimeout: getEnvDuration("PUSH_RECONNECT_TIMEOUT", 2*time.Second),
			ReadTimeout:      getEnvDuration("PUSH_READ_TIMEOUT", 60*time.Second),
		},
		Storage: StorageConfig{
			Driver:          getEnv("STORAGE_DRIVER", "sqlite"),
			URL:             getEnv("STORAGE_URL", "file:storefront.db"),
			MaxOpenConns:    getEnvInt("STORAGE_MAX_OPEN_CONNS", 4),
			MaxIdleConns:    getEnvInt("STORAGE_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: getEnvDuration("STORAGE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Checkout: CheckoutConfig{
			ShippingFee: shippingFee,
		},
		Notifications: NotificationsConfig{
			PageLimit: getEnvInt("NOTIFICATIONS_PAGE_LIMIT", 20),
			Dedup:     getEnvBool("NOTIFICATIONS_DEDUP", true),
		},
	}

	if cfg.Storage.Driver != "sqlite" && cfg.Storage.Driver != "postgres" {
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q", cfg.Storage.Driver)
	}

	return cfg, nil
}

func websocketURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		fmt.Printf("Warning: invalid duration for %s, using default\n", key)
	}
	return defaultValue
}
