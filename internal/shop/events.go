package shop

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated     = "OrderCreated"
	EventBalanceDeposited = "BalanceDeposited"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "shop-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // biasanya order_id
	Payload       json.RawMessage `json:"payload"`
}

// ---- Payload tipe per event ----

type OrderItemPayload struct {
	ProductID string          `json:"product_id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

type OrderCreatedPayload struct {
	OrderID    string             `json:"order_id"`
	UserID     string             `json:"user_id"`
	TotalPrice decimal.Decimal    `json:"total_price"`
	Items      []OrderItemPayload `json:"items"`
	CreatedAt  time.Time          `json:"created_at"`
}

type BalanceDepositedPayload struct {
	UserID  string          `json:"user_id"`
	Amount  decimal.Decimal `json:"amount"`
	Balance decimal.Decimal `json:"balance"` // saldo pasca-transaksi
}

func NewOrderCreatedPayload(o *Order) OrderCreatedPayload {
	items := make([]OrderItemPayload, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemPayload{
			ProductID: it.ProductID,
			Title:     it.Title,
			Price:     it.Price,
			Quantity:  it.Quantity,
		})
	}
	return OrderCreatedPayload{
		OrderID:    o.ID,
		UserID:     o.UserID,
		TotalPrice: o.TotalPrice,
		Items:      items,
		CreatedAt:  o.CreatedAt,
	}
}
