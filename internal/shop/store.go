package shop

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("not found")

// Store adalah port penyimpanan yang dipakai service. Implementasi
// production ada di Repo (pgx); test pakai memstore.
//
// Reads di luar InTx adalah snapshot (non-locking) dan tidak boleh
// dijadikan dasar keputusan final — re-check di dalam transaksi.
type Store interface {
	GetUser(ctx context.Context, userID string) (User, error)
	GetProduct(ctx context.Context, productID string) (Product, error)
	ListProducts(ctx context.Context) ([]Product, error)

	// GetCart creates the user's cart on first reference and returns it
	// with items and each item's product.
	GetCart(ctx context.Context, userID string) (Cart, error)
	SetCartItem(ctx context.Context, cartID, productID string, quantity int) error
	RemoveCartItem(ctx context.Context, cartID, productID string) error
	ClearCart(ctx context.Context, cartID string) error

	GetOrder(ctx context.Context, orderID string) (Order, error)
	ListOrders(ctx context.Context, userID string) ([]Order, error)

	// InTx runs fn inside one atomic unit. Any error from fn rolls the
	// whole unit back; nil commits it.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx adalah operasi yang hanya valid di dalam transaksi. LockUser dan
// LockProduct memakai primitive exclusive-lock-and-wait milik store
// (SELECT ... FOR UPDATE di Postgres): pemanggil lain block sampai
// commit/rollback.
type Tx interface {
	LockUser(ctx context.Context, userID string) (User, error)
	LockProduct(ctx context.Context, productID string) (Product, error)
	UpdateProductStock(ctx context.Context, productID string, stock int) error
	UpdateUserBalance(ctx context.Context, userID string, balance decimal.Decimal) error
	InsertOrder(ctx context.Context, o Order) error
	InsertOrderItems(ctx context.Context, items []OrderItem) error
	ClearCart(ctx context.Context, cartID string) error
}
