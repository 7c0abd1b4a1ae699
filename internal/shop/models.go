package shop

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID        string          `json:"id"`
	Email     string          `json:"email"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type Product struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Cart dibuat lazy: satu per user, muncul saat pertama kali diakses.
type Cart struct {
	ID     string     `json:"id"`
	UserID string     `json:"user_id"`
	Items  []CartItem `json:"items"`
}

// CartItem unik per (cart, product); duplicate add merge ke quantity.
type CartItem struct {
	CartID   string  `json:"cart_id"`
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// Order immutable setelah dibuat; tidak ada path cancel/edit.
type Order struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	TotalPrice decimal.Decimal `json:"total_price"`
	CreatedAt  time.Time       `json:"created_at"`
	Items      []OrderItem     `json:"items"`
}

// OrderItem menyimpan snapshot harga produk pada saat checkout,
// terlepas dari perubahan harga katalog setelahnya.
type OrderItem struct {
	OrderID   string          `json:"order_id"`
	ProductID string          `json:"product_id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// Subtotal of one cart line at snapshot prices.
func (ci CartItem) Subtotal() decimal.Decimal {
	return ci.Product.Price.Mul(decimal.NewFromInt(int64(ci.Quantity)))
}

// TotalPrice sums the cart at snapshot prices.
func (c Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.Subtotal())
	}
	return total
}
