package shop

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CheckoutService mengubah cart menjadi Order dalam satu transaksi:
// debit balance, kurangi stock, materialize order items, kosongkan cart.
type CheckoutService struct {
	Store Store
}

// CreateOrder runs the checkout for one user.
//
// Phase 1-3 (snapshot, boleh stale): load cart+items+products, tolak
// cart kosong, tolak balance < total. Keduanya fail-fast tanpa lock dan
// tanpa side effect.
//
// Phase 4 (atomic): lock user row dulu, lalu product rows urut product
// id (kontrak urutan lock, anti-deadlock antar checkout yang productnya
// overlap). Stock di-recheck di bawah lock; kekurangan pada item mana
// pun membatalkan seluruh transaksi. Setelah semua item lolos baru
// mutasi: kurangi semua stock, debit balance, insert order + items
// (harga dari snapshot), clear cart.
//
// Balance sengaja tidak dibandingkan ulang di bawah lock — hanya dibaca
// ulang lalu didebit; cek kecukupan dana cuma di precondition snapshot.
func (s *CheckoutService) CreateOrder(ctx context.Context, userID string) (*Order, error) {
	cart, err := s.Store.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	total := cart.TotalPrice()

	user, err := s.Store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Balance.LessThan(total) {
		return nil, &InsufficientFundsError{Required: total, Available: user.Balance}
	}

	// urutan lock stabil: by product id
	items := append([]CartItem(nil), cart.Items...)
	sort.Slice(items, func(i, j int) bool { return items[i].Product.ID < items[j].Product.ID })

	order := Order{
		ID:         uuid.NewString(),
		UserID:     userID,
		TotalPrice: total,
		CreatedAt:  time.Now().UTC(),
	}

	orderItems := make([]OrderItem, 0, len(items))
	for _, it := range items {
		orderItems = append(orderItems, OrderItem{
			OrderID:   order.ID,
			ProductID: it.Product.ID,
			Title:     it.Product.Title,
			Price:     it.Product.Price, // harga snapshot, bukan hasil re-read
			Quantity:  it.Quantity,
		})
	}

	err = s.Store.InTx(ctx, func(tx Tx) error {
		locked, err := tx.LockUser(ctx, userID)
		if err != nil {
			return err
		}

		// check semua dulu, baru mutasi — supaya gagal di item ke-N tidak
		// meninggalkan partial decrement
		stocks := make([]int, len(items))
		for i, it := range items {
			p, err := tx.LockProduct(ctx, it.Product.ID)
			if err != nil {
				return err
			}
			if p.Stock < it.Quantity {
				return &InsufficientStockError{
					ProductID: p.ID,
					Title:     p.Title,
					Requested: it.Quantity,
					Available: p.Stock,
				}
			}
			stocks[i] = p.Stock
		}

		for i, it := range items {
			if err := tx.UpdateProductStock(ctx, it.Product.ID, stocks[i]-it.Quantity); err != nil {
				return err
			}
		}

		if err := tx.UpdateUserBalance(ctx, userID, locked.Balance.Sub(total)); err != nil {
			return err
		}

		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}
		if err := tx.InsertOrderItems(ctx, orderItems); err != nil {
			return err
		}
		return tx.ClearCart(ctx, cart.ID)
	})
	if err != nil {
		return nil, err
	}

	order.Items = orderItems
	return &order, nil
}

// OrderItemsTotal sums price*quantity over order items.
func OrderItemsTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}
