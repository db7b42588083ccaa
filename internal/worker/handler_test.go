package worker

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/burgerverse/internal/domain"
)

func newEvent(t *testing.T) []byte {
	t.Helper()
	event := domain.OrderCheckedOutEvent{
		OrderID:  uuid.New(),
		UserID:   uuid.New(),
		Username: "alice",
		Email:    "alice@example.com",
		Items: []domain.OrderItem{
			{ProductName: "Veg Burger", Quantity: 2, Price: decimal.RequireFromString("5.00")},
		},
		Total:     decimal.RequireFromString("10.00"),
		Timestamp: time.Now().UTC(),
	}
	data, err := json.Marshal(event)
	require.NoError(t, err)
	return data
}

func newTestHandler(url string) *ConfirmationHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewConfirmationHandler(url, &http.Client{Timeout: time.Second}, logger)
}

func TestConfirmationHandler_SendsEmail(t *testing.T) {
	var got emailRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/send", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := newTestHandler(srv.URL+"/").Handle(context.Background(), newEvent(t))
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", got.To)
	assert.Contains(t, got.Body, "2 x Veg Burger  $10.00")
	assert.Contains(t, got.Body, "Total: $10.00")
}

func TestConfirmationHandler_SkipsMalformedPayload(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	err := newTestHandler(srv.URL).Handle(context.Background(), []byte("{not json"))

	assert.NoError(t, err)
	assert.Zero(t, calls.Load())
}

func TestConfirmationHandler_ClientErrorIsDropped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := newTestHandler(srv.URL).Handle(context.Background(), newEvent(t))
	assert.NoError(t, err)
}

func TestConfirmationHandler_OpensCircuitOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	h := newTestHandler(srv.URL)
	payload := newEvent(t)

	for range 5 {
		err := h.Handle(context.Background(), payload)
		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusServiceUnavailable, statusErr.Code)
	}

	err := h.Handle(context.Background(), payload)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(5), calls.Load())
}
