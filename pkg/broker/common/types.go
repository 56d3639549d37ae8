package common

// Side denotes order side.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderType denotes the order types the engine places.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// OrderStatus normalizes broker postback status into a small set.
type OrderStatus string

const (
	StatusComplete  OrderStatus = "COMPLETE"
	StatusCancelled OrderStatus = "CANCELLED"
	StatusRejected  OrderStatus = "REJECTED"
)

// Terminal reports whether the status ends an order's life.
func (s OrderStatus) Terminal() bool {
	switch s {
	case StatusComplete, StatusCancelled, StatusRejected:
		return true
	}
	return false
}

// OrderRequest captures an order intent to be sent to the broker.
type OrderRequest struct {
	UserID string
	Token  uint32
	Symbol string
	Side   Side
	Type   OrderType
	Qty    int64
	Price  float64 // required for LIMIT
}

// OrderResult returns the broker ack.
type OrderResult struct {
	OrderID string
}

// OrderUpdate is an asynchronous broker notification of an order's status.
// It arrives on the postback stream, never synchronously with placement.
type OrderUpdate struct {
	UserID         string      `json:"user_id"`
	OrderID        string      `json:"order_id"`
	Token          uint32      `json:"instrument_token"`
	Status         OrderStatus `json:"status"`
	AveragePrice   float64     `json:"average_price"`
	FilledQuantity int64       `json:"filled_quantity"`
}

// Tick is a single instrument price update from the market-data stream.
type Tick struct {
	Token     uint32  `json:"instrument_token"`
	LastPrice float64 `json:"last_price"`
}
