package memstore_test

import (
	"context"
	"sync"
	"testing"

	"github.com/ariefcatur/go-shop-checkout.git/internal/memstore"
	"github.com/ariefcatur/go-shop-checkout.git/internal/shop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// Snapshot read (GetUser/GetProduct) boleh jalan bareng commit
// transaksi tanpa race; hasil akhir tetap jumlah semua write.
func TestSnapshotReadsConcurrentWithCommits(t *testing.T) {
	store := memstore.New()
	store.PutUser(shop.User{ID: "u1", Email: "u1@example.com", Balance: dec("0.00")})
	store.PutProduct(shop.Product{ID: "p1", Title: "Keyboard", Price: dec("10.00"), Stock: 1000})

	const writes = 200
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < writes; i++ {
			err := store.InTx(context.Background(), func(tx shop.Tx) error {
				u, err := tx.LockUser(context.Background(), "u1")
				if err != nil {
					return err
				}
				if err := tx.UpdateUserBalance(context.Background(), "u1", u.Balance.Add(dec("1.00"))); err != nil {
					return err
				}
				p, err := tx.LockProduct(context.Background(), "p1")
				if err != nil {
					return err
				}
				return tx.UpdateProductStock(context.Background(), "p1", p.Stock-1)
			})
			assert.NoError(t, err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < writes; i++ {
			u, err := store.GetUser(context.Background(), "u1")
			assert.NoError(t, err)
			assert.True(t, u.Balance.GreaterThanOrEqual(decimal.Zero))
			p, err := store.GetProduct(context.Background(), "p1")
			assert.NoError(t, err)
			assert.GreaterOrEqual(t, p.Stock, 0)
		}
	}()

	wg.Wait()

	u, err := store.GetUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, u.Balance.Equal(dec("200.00")), "balance %s", u.Balance)
	p, err := store.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 800, p.Stock)
}

func TestGetCart_UnknownUser(t *testing.T) {
	store := memstore.New()
	_, err := store.GetCart(context.Background(), "ghost")
	assert.ErrorIs(t, err, shop.ErrNotFound)
}
