package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/ariefcatur/go-shop-checkout.git/internal/kafka"
	"github.com/ariefcatur/go-shop-checkout.git/internal/metrics"
	"github.com/ariefcatur/go-shop-checkout.git/internal/shop"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

// EventPublisher dipenuhi oleh kafka.Producer; handler test pakai fake.
type EventPublisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// OrderCache dipenuhi oleh redisx.OrderCache.
type OrderCache interface {
	Get(ctx context.Context, orderID string) ([]byte, bool)
	Set(ctx context.Context, orderID string, body []byte)
}

type ShopHandler struct {
	Store           shop.Store
	Checkout        *shop.CheckoutService
	Balance         *shop.BalanceService
	Carts           *shop.CartService
	OrderProducer   EventPublisher
	BalanceProducer EventPublisher
	Cache           OrderCache
	Metrics         *metrics.Metrics
	Service         string
}

type CheckoutReq struct {
	UserID string `json:"user_id"`
}

type DepositReq struct {
	UserID string          `json:"user_id"`
	Amount decimal.Decimal `json:"amount"`
}

type DepositResp struct {
	UserID  string          `json:"user_id"`
	Balance decimal.Decimal `json:"balance"`
}

type CartItemReq struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (h *ShopHandler) Register(r *chi.Mux) {
	r.Post("/checkout", h.checkout)
	r.Post("/balance/deposit", h.deposit)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/products", h.listProducts)
	r.Get("/cart", h.getCart)
	r.Post("/cart/items", h.addCartItem)
	r.Put("/cart/items/{productID}", h.updateCartItem)
	r.Delete("/cart/items/{productID}", h.removeCartItem)
	r.Delete("/cart", h.clearCart)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// Domain error -> 4xx dengan pesan apa adanya; sisanya 5xx dan pesan
// asli cuma masuk log, tidak ke client.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shop.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case shop.IsDomainError(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		log.Printf("internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func checkoutOutcome(err error) string {
	var funds *shop.InsufficientFundsError
	var stock *shop.InsufficientStockError
	switch {
	case err == nil:
		return "created"
	case errors.Is(err, shop.ErrEmptyCart):
		return "empty_cart"
	case errors.As(err, &funds):
		return "insufficient_funds"
	case errors.As(err, &stock):
		return "insufficient_stock"
	default:
		return "error"
	}
}

func (h *ShopHandler) checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing user_id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	order, err := h.Checkout.CreateOrder(ctx, req.UserID)
	h.Metrics.ObserveCheckout(checkoutOutcome(err))
	if err != nil {
		writeError(w, err)
		return
	}

	body := kafka.MustMarshal(order)
	if h.Cache != nil {
		h.Cache.Set(ctx, order.ID, body)
	}
	if h.OrderProducer != nil {
		h.publish(h.OrderProducer, shop.EventOrderCreated, order.ID, order.ID,
			r.Header.Get("X-Request-Id"), shop.NewOrderCreatedPayload(order))
	}

	log.Printf("order %s created for user %s, total %s", order.ID, order.UserID, order.TotalPrice.StringFixed(2))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(body)
}

func (h *ShopHandler) deposit(w http.ResponseWriter, r *http.Request) {
	var req DepositReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing user_id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user, err := h.Balance.Deposit(ctx, req.UserID, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	if h.BalanceProducer != nil {
		h.publish(h.BalanceProducer, shop.EventBalanceDeposited, user.ID, user.ID,
			r.Header.Get("X-Request-Id"), shop.BalanceDepositedPayload{
				UserID: user.ID, Amount: req.Amount, Balance: user.Balance,
			})
	}

	writeJSON(w, http.StatusOK, DepositResp{UserID: user.ID, Balance: user.Balance})
}

func (h *ShopHandler) publish(p EventPublisher, eventType, correlationID, key, traceID string, payload any) {
	ev := shop.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       traceID,
		CorrelationID: correlationID,
		Payload:       kafka.MustMarshal(payload),
	}
	p.Publish(shop.PartitionKey(key), kafka.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (h *ShopHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	if orderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if h.Cache != nil {
		if b, ok := h.Cache.Get(ctx, orderID); ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(b)
			return
		}
	}

	order, err := h.Store.GetOrder(ctx, orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	body := kafka.MustMarshal(order)
	if h.Cache != nil {
		h.Cache.Set(ctx, orderID, body)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *ShopHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing user_id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	orders, err := h.Store.ListOrders(ctx, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if orders == nil {
		orders = []shop.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *ShopHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Store.ListProducts(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *ShopHandler) getCart(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing user_id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	cart, err := h.Carts.GetCart(ctx, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if cart.Items == nil {
		cart.Items = []shop.CartItem{}
	}
	writeJSON(w, http.StatusOK, cart)
}

func (h *ShopHandler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req CartItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.ProductID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	item, err := h.Carts.AddItem(ctx, req.UserID, req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *ShopHandler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	var req CartItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.UserID == "" || productID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	item, err := h.Carts.UpdateItemQuantity(ctx, req.UserID, productID, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *ShopHandler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	userID := r.URL.Query().Get("user_id")
	if userID == "" || productID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Carts.RemoveItem(ctx, userID, productID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ShopHandler) clearCart(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing user_id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Carts.ClearCart(ctx, userID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
