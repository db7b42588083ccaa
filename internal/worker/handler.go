package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/joao-fontenele/burgerverse/internal/domain"
)

// StatusError is a non-2xx reply from the email service.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("email service returned status %d", e.Code)
}

// ConfirmationHandler emails the customer when an order has been checked out.
type ConfirmationHandler struct {
	emailServiceURL string
	httpClient      *http.Client
	breaker         *gobreaker.CircuitBreaker[struct{}]
	logger          *slog.Logger
}

func NewConfirmationHandler(emailServiceURL string, client *http.Client, logger *slog.Logger) *ConfirmationHandler {
	settings := gobreaker.Settings{
		Name:        "email-service",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		// rejected requests are the caller's fault, not an outage
		IsSuccessful: func(err error) bool {
			var statusErr *StatusError
			return err == nil || (errors.As(err, &statusErr) && statusErr.Code < http.StatusInternalServerError)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	}

	return &ConfirmationHandler{
		emailServiceURL: strings.TrimRight(emailServiceURL, "/"),
		httpClient:      client,
		breaker:         gobreaker.NewCircuitBreaker[struct{}](settings),
		logger:          logger,
	}
}

// Handle skips events it cannot decode or address so one bad message does
// not block the partition. Delivery failures are returned for redelivery.
func (h *ConfirmationHandler) Handle(ctx context.Context, payload []byte) error {
	var event domain.OrderCheckedOutEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		h.logger.ErrorContext(ctx, "skipping malformed order checked out event", "error", err)
		return nil
	}

	if event.Email == "" {
		h.logger.WarnContext(ctx, "skipping confirmation without recipient", "order_id", event.OrderID, "user_id", event.UserID)
		return nil
	}

	h.logger.InfoContext(ctx, "processing order checked out event", "order_id", event.OrderID, "user_id", event.UserID)

	_, err := h.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, h.sendEmail(ctx, confirmationEmail(event))
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			h.logger.WarnContext(ctx, "email service circuit open", "order_id", event.OrderID)
		}
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Code < http.StatusInternalServerError {
			h.logger.ErrorContext(ctx, "email service rejected confirmation", "error", err, "order_id", event.OrderID)
			return nil
		}
		return fmt.Errorf("send confirmation email: %w", err)
	}

	h.logger.InfoContext(ctx, "confirmation email sent", "order_id", event.OrderID, "to", event.Email)
	return nil
}

type emailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func confirmationEmail(event domain.OrderCheckedOutEvent) emailRequest {
	var body strings.Builder
	fmt.Fprintf(&body, "Hi %s,\n\nThanks for your order! The kitchen is preparing it now.\n\n", event.Username)
	for _, item := range event.Items {
		fmt.Fprintf(&body, "%d x %s  $%s\n", item.Quantity, item.ProductName, item.Subtotal().StringFixed(2))
	}
	fmt.Fprintf(&body, "\nTotal: $%s\nOrder: %s\n", event.Total.StringFixed(2), event.OrderID)

	return emailRequest{
		To:      event.Email,
		Subject: "Your BurgerVerse order is being prepared",
		Body:    body.String(),
	}
}

func (h *ConfirmationHandler) sendEmail(ctx context.Context, email emailRequest) error {
	data, err := json.Marshal(email)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.emailServiceURL+"/send", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Code: resp.StatusCode}
	}

	return nil
}
