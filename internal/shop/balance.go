package shop

import (
	"context"

	"github.com/shopspring/decimal"
)

// BalanceService: mutasi balance satu user dengan semantik serializable
// terhadap penulis lain (row lock selama satu transaksi).
type BalanceService struct {
	Store Store
}

// Deposit adds amount to the user's balance under an exclusive row lock.
// Deposit dan debit konkuren ke user yang sama serialize di lock;
// hasilnya balance pasca-transaksi, tanpa lost update.
func (s *BalanceService) Deposit(ctx context.Context, userID string, amount decimal.Decimal) (User, error) {
	if !amount.IsPositive() {
		return User{}, ErrInvalidAmount
	}

	var updated User
	err := s.Store.InTx(ctx, func(tx Tx) error {
		user, err := tx.LockUser(ctx, userID)
		if err != nil {
			return err
		}
		user.Balance = user.Balance.Add(amount)
		if err := tx.UpdateUserBalance(ctx, userID, user.Balance); err != nil {
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		return User{}, err
	}
	return updated, nil
}
