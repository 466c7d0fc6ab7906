package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("API_BASE_URL", "")
	t.Setenv("PUSH_URL", "")
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("CHECKOUT_SHIPPING_FEE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3000", cfg.API.BaseURL)
	assert.Equal(t, "ws://localhost:3000/ws", cfg.Push.URL)
	assert.Equal(t, "notifications", cfg.Push.Namespace)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "15", cfg.Checkout.ShippingFee.String())
	assert.Equal(t, 20, cfg.Notifications.PageLimit)
	assert.True(t, cfg.Notifications.Dedup)
	assert.Equal(t, 60*time.Second, cfg.API.Timeout)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://shop.example.com/api/")
	t.Setenv("PUSH_URL", "")
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("CHECKOUT_SHIPPING_FEE", "7.5")
	t.Setenv("NOTIFICATIONS_DEDUP", "false")
	t.Setenv("API_TIMEOUT", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://shop.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, "wss://shop.example.com/api/ws", cfg.Push.URL)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, "7.5", cfg.Checkout.ShippingFee.String())
	assert.False(t, cfg.Notifications.Dedup)
	assert.Equal(t, 60*time.Second, cfg.API.Timeout)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "mysql")

	_, err := Load()
	assert.Error(t, err)
}
