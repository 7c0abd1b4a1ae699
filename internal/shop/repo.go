package shop

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repo: implementasi Store di atas Postgres (pgx). Lock row pakai
// SELECT ... FOR UPDATE; pemanggil lain block sampai commit/rollback.
type Repo struct{ DB *pgxpool.Pool }

var _ Store = (*Repo)(nil)

func (r *Repo) GetUser(ctx context.Context, userID string) (User, error) {
	var u User
	err := r.DB.QueryRow(ctx, `
		SELECT id, email, balance, created_at, updated_at
		FROM users WHERE id=$1`, userID).
		Scan(&u.ID, &u.Email, &u.Balance, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func (r *Repo) GetProduct(ctx context.Context, productID string) (Product, error) {
	var p Product
	err := r.DB.QueryRow(ctx, `
		SELECT id, title, description, price, stock, created_at, updated_at
		FROM products WHERE id=$1`, productID).
		Scan(&p.ID, &p.Title, &p.Description, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

func (r *Repo) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, title, description, price, stock, created_at, updated_at
		FROM products ORDER BY title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetCart: get-or-create cart milik user, lalu load items + product
// tiap item (snapshot read, tanpa lock).
func (r *Repo) GetCart(ctx context.Context, userID string) (Cart, error) {
	var c Cart
	err := r.DB.QueryRow(ctx, `SELECT id, user_id FROM carts WHERE user_id=$1`, userID).
		Scan(&c.ID, &c.UserID)
	if errors.Is(err, pgx.ErrNoRows) {
		c = Cart{ID: uuid.NewString(), UserID: userID}
		// race antar dua GetCart pertama: ON CONFLICT ambil row pemenang
		err = r.DB.QueryRow(ctx, `
			INSERT INTO carts(id, user_id) VALUES ($1, $2)
			ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
			RETURNING id, user_id`, c.ID, userID).
			Scan(&c.ID, &c.UserID)
		// user tidak ada -> FK violation (23503), bukan error infrastruktur
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return Cart{}, ErrNotFound
		}
	}
	if err != nil {
		return Cart{}, err
	}

	rows, err := r.DB.Query(ctx, `
		SELECT ci.quantity,
		       p.id, p.title, p.description, p.price, p.stock, p.created_at, p.updated_at
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY p.id`, c.ID)
	if err != nil {
		return Cart{}, err
	}
	defer rows.Close()

	for rows.Next() {
		it := CartItem{CartID: c.ID}
		p := &it.Product
		if err := rows.Scan(&it.Quantity, &p.ID, &p.Title, &p.Description, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return Cart{}, err
		}
		c.Items = append(c.Items, it)
	}
	return c, rows.Err()
}

func (r *Repo) SetCartItem(ctx context.Context, cartID, productID string, quantity int) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO cart_items(cart_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity`,
		cartID, productID, quantity)
	return err
}

func (r *Repo) RemoveCartItem(ctx context.Context, cartID, productID string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM cart_items WHERE cart_id=$1 AND product_id=$2`, cartID, productID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) ClearCart(ctx context.Context, cartID string) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM cart_items WHERE cart_id=$1`, cartID)
	return err
}

func (r *Repo) GetOrder(ctx context.Context, orderID string) (Order, error) {
	var o Order
	err := r.DB.QueryRow(ctx, `
		SELECT id, user_id, total_price, created_at FROM orders WHERE id=$1`, orderID).
		Scan(&o.ID, &o.UserID, &o.TotalPrice, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}

	items, err := r.orderItems(ctx, o.ID)
	if err != nil {
		return Order{}, err
	}
	o.Items = items
	return o, nil
}

func (r *Repo) ListOrders(ctx context.Context, userID string) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, user_id, total_price, created_at
		FROM orders WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.TotalPrice, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		items, err := r.orderItems(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}

func (r *Repo) orderItems(ctx context.Context, orderID string) ([]OrderItem, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT order_id, product_id, title, price, quantity
		FROM order_items WHERE order_id=$1 ORDER BY product_id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.OrderID, &it.ProductID, &it.Title, &it.Price, &it.Quantity); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *Repo) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&repoTx{tx: tx}); err != nil {
		return err // rollback via defer
	}
	return tx.Commit(ctx)
}

type repoTx struct{ tx pgx.Tx }

var _ Tx = (*repoTx)(nil)

func (t *repoTx) LockUser(ctx context.Context, userID string) (User, error) {
	var u User
	err := t.tx.QueryRow(ctx, `
		SELECT id, email, balance, created_at, updated_at
		FROM users WHERE id=$1 FOR UPDATE`, userID).
		Scan(&u.ID, &u.Email, &u.Balance, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func (t *repoTx) LockProduct(ctx context.Context, productID string) (Product, error) {
	var p Product
	err := t.tx.QueryRow(ctx, `
		SELECT id, title, description, price, stock, created_at, updated_at
		FROM products WHERE id=$1 FOR UPDATE`, productID).
		Scan(&p.ID, &p.Title, &p.Description, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

func (t *repoTx) UpdateProductStock(ctx context.Context, productID string, stock int) error {
	_, err := t.tx.Exec(ctx, `UPDATE products SET stock=$2, updated_at=now() WHERE id=$1`, productID, stock)
	return err
}

func (t *repoTx) UpdateUserBalance(ctx context.Context, userID string, balance decimal.Decimal) error {
	_, err := t.tx.Exec(ctx, `UPDATE users SET balance=$2, updated_at=now() WHERE id=$1`, userID, balance)
	return err
}

func (t *repoTx) InsertOrder(ctx context.Context, o Order) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO orders(id, user_id, total_price, created_at)
		VALUES ($1, $2, $3, $4)`, o.ID, o.UserID, o.TotalPrice, o.CreatedAt)
	return err
}

func (t *repoTx) InsertOrderItems(ctx context.Context, items []OrderItem) error {
	for _, it := range items {
		if _, err := t.tx.Exec(ctx, `
			INSERT INTO order_items(order_id, product_id, title, price, quantity)
			VALUES ($1, $2, $3, $4, $5)`,
			it.OrderID, it.ProductID, it.Title, it.Price, it.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (t *repoTx) ClearCart(ctx context.Context, cartID string) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id=$1`, cartID)
	return err
}
