package shop_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/ariefcatur/go-shop-checkout.git/internal/memstore"
	"github.com/ariefcatur/go-shop-checkout.git/internal/shop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeposit_AddsToBalance(t *testing.T) {
	store := memstore.New()
	seedUser(store, "user-1", "10.50")

	svc := &shop.BalanceService{Store: store}
	user, err := svc.Deposit(context.Background(), "user-1", dec("4.25"))
	require.NoError(t, err)
	equalDec(t, dec("14.75"), user.Balance, "returned balance")

	stored, _ := store.GetUser(context.Background(), "user-1")
	equalDec(t, dec("14.75"), stored.Balance, "persisted balance")
}

func TestDeposit_RejectsNonPositiveAmount(t *testing.T) {
	store := memstore.New()
	seedUser(store, "user-1", "10.00")

	svc := &shop.BalanceService{Store: store}
	for _, amount := range []string{"0", "-0.01", "-5"} {
		_, err := svc.Deposit(context.Background(), "user-1", dec(amount))
		assert.ErrorIs(t, err, shop.ErrInvalidAmount, "amount %s", amount)
	}

	stored, _ := store.GetUser(context.Background(), "user-1")
	equalDec(t, dec("10.00"), stored.Balance, "balance untouched")
}

func TestDeposit_UnknownUser(t *testing.T) {
	store := memstore.New()
	svc := &shop.BalanceService{Store: store}
	_, err := svc.Deposit(context.Background(), "ghost", dec("1.00"))
	assert.ErrorIs(t, err, shop.ErrNotFound)
}

// Deposit konkuren ke user yang sama serialize di row lock: tidak ada
// lost update, hasil akhir = jumlah semua deposit.
func TestDeposit_ConcurrentNoLostUpdates(t *testing.T) {
	store := memstore.New()
	seedUser(store, "user-1", "0.00")

	svc := &shop.BalanceService{Store: store}

	const n = 50
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Deposit(context.Background(), "user-1", dec("1.25"))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, fmt.Sprintf("deposit %d", i))
	}
	stored, _ := store.GetUser(context.Background(), "user-1")
	want := dec("1.25").Mul(decimal.NewFromInt(n))
	equalDec(t, want, stored.Balance, "sum of all deposits")
}

// Deposit dan checkout konkuren ke satu user tetap serialize; saldo
// akhir konsisten dengan kedua operasi ter-apply penuh.
func TestDeposit_SerializesWithCheckout(t *testing.T) {
	store := memstore.New()
	seedUser(store, "user-1", "50.00")
	seedProduct(store, "prod-a", "Keyboard", "10.00", 5)
	addToCart(t, store, "user-1", "prod-a", 2)

	balance := &shop.BalanceService{Store: store}
	checkout := &shop.CheckoutService{Store: store}

	var wg sync.WaitGroup
	wg.Add(2)
	var depErr, coErr error
	go func() {
		defer wg.Done()
		_, depErr = balance.Deposit(context.Background(), "user-1", dec("30.00"))
	}()
	go func() {
		defer wg.Done()
		_, coErr = checkout.CreateOrder(context.Background(), "user-1")
	}()
	wg.Wait()

	require.NoError(t, depErr)
	require.NoError(t, coErr)
	stored, _ := store.GetUser(context.Background(), "user-1")
	equalDec(t, dec("60.00"), stored.Balance, "50 + 30 - 20")
}
