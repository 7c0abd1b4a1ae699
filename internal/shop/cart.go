package shop

import "context"

// CartService: mutasi isi cart sebelum checkout. Cek stock di sini cuma
// guard UX (pakai snapshot) — checkout tetap re-validate di bawah lock.
type CartService struct {
	Store Store
}

func (s *CartService) GetCart(ctx context.Context, userID string) (Cart, error) {
	return s.Store.GetCart(ctx, userID)
}

// AddItem merges quantity into the existing line for the product, or
// creates the line. Total quantity yang diminta dicek terhadap stock.
func (s *CartService) AddItem(ctx context.Context, userID, productID string, quantity int) (CartItem, error) {
	if quantity <= 0 {
		return CartItem{}, ErrInvalidQuantity
	}

	product, err := s.Store.GetProduct(ctx, productID)
	if err != nil {
		return CartItem{}, err
	}
	if product.Stock < quantity {
		return CartItem{}, &InsufficientStockError{
			ProductID: product.ID, Title: product.Title,
			Requested: quantity, Available: product.Stock,
		}
	}

	cart, err := s.Store.GetCart(ctx, userID)
	if err != nil {
		return CartItem{}, err
	}

	newQuantity := quantity
	for _, it := range cart.Items {
		if it.Product.ID == productID {
			newQuantity += it.Quantity
			break
		}
	}
	if product.Stock < newQuantity {
		return CartItem{}, &InsufficientStockError{
			ProductID: product.ID, Title: product.Title,
			Requested: newQuantity, Available: product.Stock,
		}
	}

	if err := s.Store.SetCartItem(ctx, cart.ID, productID, newQuantity); err != nil {
		return CartItem{}, err
	}
	return CartItem{CartID: cart.ID, Product: product, Quantity: newQuantity}, nil
}

// UpdateItemQuantity sets the line to an absolute quantity (>= 1),
// creating the line if absent.
func (s *CartService) UpdateItemQuantity(ctx context.Context, userID, productID string, quantity int) (CartItem, error) {
	if quantity <= 0 {
		return CartItem{}, ErrInvalidQuantity
	}

	product, err := s.Store.GetProduct(ctx, productID)
	if err != nil {
		return CartItem{}, err
	}
	if product.Stock < quantity {
		return CartItem{}, &InsufficientStockError{
			ProductID: product.ID, Title: product.Title,
			Requested: quantity, Available: product.Stock,
		}
	}

	cart, err := s.Store.GetCart(ctx, userID)
	if err != nil {
		return CartItem{}, err
	}
	if err := s.Store.SetCartItem(ctx, cart.ID, productID, quantity); err != nil {
		return CartItem{}, err
	}
	return CartItem{CartID: cart.ID, Product: product, Quantity: quantity}, nil
}

func (s *CartService) RemoveItem(ctx context.Context, userID, productID string) error {
	cart, err := s.Store.GetCart(ctx, userID)
	if err != nil {
		return err
	}
	return s.Store.RemoveCartItem(ctx, cart.ID, productID)
}

func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	cart, err := s.Store.GetCart(ctx, userID)
	if err != nil {
		return err
	}
	return s.Store.ClearCart(ctx, cart.ID)
}
