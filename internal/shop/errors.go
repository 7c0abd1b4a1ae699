package shop

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Domain errors terdeteksi sebelum ada mutasi yang ter-commit; caller
// map ke 4xx. Error lain (lock timeout, koneksi putus) dianggap
// infrastructure dan map ke 5xx.

var ErrEmptyCart = errors.New("cannot create an order from an empty cart")

var ErrInvalidAmount = errors.New("deposit amount must be positive")

var ErrInvalidQuantity = errors.New("quantity must be a positive number")

type InsufficientFundsError struct {
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: required %s, available %s",
		e.Required.StringFixed(2), e.Available.StringFixed(2))
}

type InsufficientStockError struct {
	ProductID string
	Title     string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for %s: requested %d, available %d",
		e.Title, e.Requested, e.Available)
}

// IsDomainError melaporkan apakah err termasuk taxonomy domain di atas.
func IsDomainError(err error) bool {
	var funds *InsufficientFundsError
	var stock *InsufficientStockError
	return errors.Is(err, ErrEmptyCart) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.As(err, &funds) ||
		errors.As(err, &stock)
}
