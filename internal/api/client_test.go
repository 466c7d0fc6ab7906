package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

type pricePayload struct {
	Price decimal.Decimal `json:"price"`
}

func TestDoAttachesBearerWhenTokenPresent(t *testing.T) {
	var gotAuth, gotRequestID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-Id")
		w.Write([]byte(`{"price": 12.5}`))
	}))
	defer server.Close()

	client := NewClientWithHTTP(server.URL, server.Client(), staticToken("abc"))
	result, err := Get[pricePayload](context.Background(), client, "/thing")
	require.NoError(t, err)

	assert.Equal(t, "Bearer abc", gotAuth)
	assert.NotEmpty(t, gotRequestID)
	assert.True(t, decimal.NewFromFloat(12.5).Equal(result.Price))
}

func TestDoSendsUnauthenticatedWithoutToken(t *testing.T) {
	var sawAuth bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawAuth = r.Header["Authorization"]
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	for _, creds := range []Credentials{nil, staticToken("")} {
		client := NewClientWithHTTP(server.URL, server.Client(), creds)
		_, err := Get[map[string]any](context.Background(), client, "/thing")
		require.NoError(t, err)
		assert.False(t, sawAuth)
	}
}

func TestDoEncodesDecimalsAsNumbers(t *testing.T) {
	var raw map[string]json.RawMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&raw)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := NewClientWithHTTP(server.URL, server.Client(), nil)
	_, err := Post[struct{}](context.Background(), client, "/orders", pricePayload{Price: decimal.NewFromInt(40)})
	require.NoError(t, err)

	assert.Equal(t, "40", string(raw["price"]))
}

func TestDoReturnsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Unauthorized","statusCode":401}`))
	}))
	defer server.Close()

	client := NewClientWithHTTP(server.URL, server.Client(), nil)
	_, err := Get[map[string]any](context.Background(), client, "/users/me")
	require.Error(t, err)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindServer, apiErr.Kind)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Unauthorized", apiErr.Message)
	assert.True(t, IsUnauthorized(err))
	assert.False(t, IsTransport(err))
}

func TestDoJoinsValidationMessages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":["quantity must be positive","product is required"]}`))
	}))
	defer server.Close()

	client := NewClientWithHTTP(server.URL, server.Client(), nil)
	_, err := Put[map[string]any](context.Background(), client, "/cart", map[string]int{"quantity": 0})

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "quantity must be positive; product is required", apiErr.Message)
}

func TestDoReturnsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClientWithHTTP(url, http.DefaultClient, nil)
	_, err := Get[map[string]any](context.Background(), client, "/cart")
	require.Error(t, err)
	assert.True(t, IsTransport(err))
}
