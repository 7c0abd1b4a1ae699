// Package memstore adalah implementasi shop.Store in-memory. Dipakai
// test dan mode dev tanpa Postgres. Row lock digantikan mutex per
// entity (per design: exclusive acquisition yang block acquirer lain),
// write di dalam transaksi dibuffer dan baru di-apply saat commit, jadi
// properti "tidak ada partial mutation saat gagal" tetap terjaga.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/ariefcatur/go-shop-checkout.git/internal/shop"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type userRow struct {
	mu   sync.Mutex // FOR UPDATE substitute
	data shop.User
}

type productRow struct {
	mu   sync.Mutex
	data shop.Product
}

type Store struct {
	mu       sync.RWMutex // guards the maps and carts/orders
	users    map[string]*userRow
	products map[string]*productRow
	carts    map[string]*shop.Cart // keyed by user id
	orders   map[string]shop.Order
}

var _ shop.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:    make(map[string]*userRow),
		products: make(map[string]*productRow),
		carts:    make(map[string]*shop.Cart),
		orders:   make(map[string]shop.Order),
	}
}

// ---- seed helpers ----

func (s *Store) PutUser(u shop.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = &userRow{data: u}
}

func (s *Store) PutProduct(p shop.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = &productRow{data: p}
}

// ---- snapshot reads ----

func (s *Store) GetUser(ctx context.Context, userID string) (shop.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.users[userID]
	if !ok {
		return shop.User{}, shop.ErrNotFound
	}
	return row.data, nil
}

func (s *Store) GetProduct(ctx context.Context, productID string) (shop.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.products[productID]
	if !ok {
		return shop.Product{}, shop.ErrNotFound
	}
	return row.data, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]shop.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]shop.Product, 0, len(s.products))
	for _, row := range s.products {
		out = append(out, row.data)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (s *Store) GetCart(ctx context.Context, userID string) (shop.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return shop.Cart{}, shop.ErrNotFound
	}
	c, ok := s.carts[userID]
	if !ok {
		c = &shop.Cart{ID: uuid.NewString(), UserID: userID}
		s.carts[userID] = c
	}
	// items dikembalikan dengan snapshot product terkini
	snap := shop.Cart{ID: c.ID, UserID: c.UserID}
	for _, it := range c.Items {
		if row, ok := s.products[it.Product.ID]; ok {
			it.Product = row.data
		}
		snap.Items = append(snap.Items, it)
	}
	return snap, nil
}

func (s *Store) SetCartItem(ctx context.Context, cartID, productID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.cartByID(cartID)
	if c == nil {
		return shop.ErrNotFound
	}
	row, ok := s.products[productID]
	if !ok {
		return shop.ErrNotFound
	}
	for i := range c.Items {
		if c.Items[i].Product.ID == productID {
			c.Items[i].Quantity = quantity
			return nil
		}
	}
	c.Items = append(c.Items, shop.CartItem{CartID: c.ID, Product: row.data, Quantity: quantity})
	return nil
}

func (s *Store) RemoveCartItem(ctx context.Context, cartID, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.cartByID(cartID)
	if c == nil {
		return shop.ErrNotFound
	}
	for i := range c.Items {
		if c.Items[i].Product.ID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return nil
		}
	}
	return shop.ErrNotFound
}

func (s *Store) ClearCart(ctx context.Context, cartID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := s.cartByID(cartID); c != nil {
		c.Items = nil
	}
	return nil
}

func (s *Store) GetOrder(ctx context.Context, orderID string) (shop.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[orderID]
	if !ok {
		return shop.Order{}, shop.ErrNotFound
	}
	return o, nil
}

func (s *Store) ListOrders(ctx context.Context, userID string) ([]shop.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []shop.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) cartByID(cartID string) *shop.Cart {
	for _, c := range s.carts {
		if c.ID == cartID {
			return c
		}
	}
	return nil
}

// ---- transactions ----

// InTx: fn jalan dengan lock per-row yang block; write dibuffer di tx
// dan di-apply hanya kalau fn return nil. Lock dilepas setelah apply,
// meniru commit-then-release milik database.
func (s *Store) InTx(ctx context.Context, fn func(tx shop.Tx) error) error {
	tx := &memTx{
		s:        s,
		users:    make(map[string]*userRow),
		products: make(map[string]*productRow),
		balances: make(map[string]decimal.Decimal),
		stocks:   make(map[string]int),
	}
	defer tx.unlockAll()

	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

type memTx struct {
	s        *Store
	users    map[string]*userRow    // locked user rows
	products map[string]*productRow // locked product rows

	// pending writes
	balances   map[string]decimal.Decimal
	stocks     map[string]int
	orders     []shop.Order
	orderItems []shop.OrderItem
	clearCarts []string
}

var _ shop.Tx = (*memTx)(nil)

func (t *memTx) LockUser(ctx context.Context, userID string) (shop.User, error) {
	t.s.mu.RLock()
	row, ok := t.s.users[userID]
	t.s.mu.RUnlock()
	if !ok {
		return shop.User{}, shop.ErrNotFound
	}
	if _, held := t.users[userID]; !held {
		row.mu.Lock() // block sampai pemegang lain selesai
		t.users[userID] = row
	}
	return row.data, nil
}

func (t *memTx) LockProduct(ctx context.Context, productID string) (shop.Product, error) {
	t.s.mu.RLock()
	row, ok := t.s.products[productID]
	t.s.mu.RUnlock()
	if !ok {
		return shop.Product{}, shop.ErrNotFound
	}
	if _, held := t.products[productID]; !held {
		row.mu.Lock()
		t.products[productID] = row
	}
	return row.data, nil
}

func (t *memTx) UpdateProductStock(ctx context.Context, productID string, stock int) error {
	if _, held := t.products[productID]; !held {
		if _, err := t.LockProduct(ctx, productID); err != nil {
			return err
		}
	}
	t.stocks[productID] = stock
	return nil
}

func (t *memTx) UpdateUserBalance(ctx context.Context, userID string, balance decimal.Decimal) error {
	if _, held := t.users[userID]; !held {
		if _, err := t.LockUser(ctx, userID); err != nil {
			return err
		}
	}
	t.balances[userID] = balance
	return nil
}

func (t *memTx) InsertOrder(ctx context.Context, o shop.Order) error {
	t.orders = append(t.orders, o)
	return nil
}

func (t *memTx) InsertOrderItems(ctx context.Context, items []shop.OrderItem) error {
	t.orderItems = append(t.orderItems, items...)
	return nil
}

func (t *memTx) ClearCart(ctx context.Context, cartID string) error {
	t.clearCarts = append(t.clearCarts, cartID)
	return nil
}

// commit: apply semua buffered write selagi row lock masih dipegang.
// Write ke row.data harus di bawah s.mu juga — snapshot reader baca
// row.data dengan s.mu.RLock saja, tanpa row lock.
func (t *memTx) commit() {
	t.s.mu.Lock()
	for id, balance := range t.balances {
		t.users[id].data.Balance = balance
	}
	for id, stock := range t.stocks {
		t.products[id].data.Stock = stock
	}
	for _, o := range t.orders {
		stored := o
		stored.Items = nil
		for _, it := range t.orderItems {
			if it.OrderID == o.ID {
				stored.Items = append(stored.Items, it)
			}
		}
		t.s.orders[o.ID] = stored
	}
	for _, cartID := range t.clearCarts {
		if c := t.s.cartByID(cartID); c != nil {
			c.Items = nil
		}
	}
	t.s.mu.Unlock()
}

func (t *memTx) unlockAll() {
	for _, row := range t.users {
		row.mu.Unlock()
	}
	for _, row := range t.products {
		row.mu.Unlock()
	}
}
