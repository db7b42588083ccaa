package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderCheckedOutEventType identifies OrderCheckedOutEvent messages on the bus.
const OrderCheckedOutEventType = "order.checked_out"

type OrderCheckedOutEvent struct {
	OrderID   uuid.UUID       `json:"order_id"`
	UserID    uuid.UUID       `json:"user_id"`
	Username  string          `json:"username"`
	Email     string          `json:"email"`
	Items     []OrderItem     `json:"items"`
	Total     decimal.Decimal `json:"total"`
	Timestamp time.Time       `json:"timestamp"`
}

func NewOrderCheckedOutEvent(order *Order, principal Principal, at time.Time) OrderCheckedOutEvent {
	return OrderCheckedOutEvent{
		OrderID:   order.ID,
		UserID:    order.UserID,
		Username:  principal.Username,
		Email:     principal.Email,
		Items:     order.Items,
		Total:     order.TotalPrice,
		Timestamp: at,
	}
}
