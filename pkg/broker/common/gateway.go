package common

import "context"

// Gateway abstracts one account's broker session.
type Gateway interface {
	PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
	ModifyOrder(ctx context.Context, orderID string, newType OrderType) error
	AvailableFunds(ctx context.Context) (float64, error)
}
