package httpx_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ariefcatur/go-shop-checkout.git/internal/httpx"
	"github.com/ariefcatur/go-shop-checkout.git/internal/memstore"
	"github.com/ariefcatur/go-shop-checkout.git/internal/shop"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []shop.Envelope
}

func (f *fakePublisher) Publish(key, value []byte, headers ...kafkago.Header) {
	var env shop.Envelope
	_ = json.Unmarshal(value, &env)
	f.mu.Lock()
	f.events = append(f.events, env)
	f.mu.Unlock()
}

type fakeCache struct {
	mu   sync.Mutex
	data map[string][]byte
	hits int
}

func newFakeCache() *fakeCache { return &fakeCache{data: map[string][]byte{}} }

func (f *fakeCache) Get(ctx context.Context, orderID string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.data[orderID]
	if ok {
		f.hits++
	}
	return b, ok
}

func (f *fakeCache) Set(ctx context.Context, orderID string, body []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[orderID] = body
}

type fixture struct {
	store    *memstore.Store
	orders   *fakePublisher
	balances *fakePublisher
	cache    *fakeCache
	srv      *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	f := &fixture{
		store:    store,
		orders:   &fakePublisher{},
		balances: &fakePublisher{},
		cache:    newFakeCache(),
	}
	router := httpx.NewRouter(nil)
	h := &httpx.ShopHandler{
		Store:           store,
		Checkout:        &shop.CheckoutService{Store: store},
		Balance:         &shop.BalanceService{Store: store},
		Carts:           &shop.CartService{Store: store},
		OrderProducer:   f.orders,
		BalanceProducer: f.balances,
		Cache:           f.cache,
		Service:         "shop-api-test",
	}
	h.Register(router)
	f.srv = httptest.NewServer(router)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func seed(f *fixture) {
	f.store.PutUser(shop.User{ID: "user-1", Email: "user-1@example.com", Balance: decimal.RequireFromString("100.00")})
	f.store.PutProduct(shop.Product{ID: "prod-a", Title: "Keyboard", Price: decimal.RequireFromString("10.00"), Stock: 5})
	f.store.PutProduct(shop.Product{ID: "prod-b", Title: "Headset", Price: decimal.RequireFromString("25.00"), Stock: 5})
}

func TestCheckoutEndpoint_Success(t *testing.T) {
	f := newFixture(t)
	seed(f)

	resp := f.do(t, http.MethodPost, "/cart/items", `{"user_id":"user-1","product_id":"prod-a","quantity":2}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
	resp = f.do(t, http.MethodPost, "/cart/items", `{"user_id":"user-1","product_id":"prod-b","quantity":1}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = f.do(t, http.MethodPost, "/checkout", `{"user_id":"user-1"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	order := decodeBody[shop.Order](t, resp)

	assert.True(t, order.TotalPrice.Equal(decimal.RequireFromString("45.00")), "total %s", order.TotalPrice)
	assert.Len(t, order.Items, 2)

	// event OrderCreated dipublish sekali
	require.Len(t, f.orders.events, 1)
	assert.Equal(t, shop.EventOrderCreated, f.orders.events[0].EventType)
	assert.Equal(t, order.ID, f.orders.events[0].CorrelationID)

	// snapshot langsung masuk cache
	_, ok := f.cache.Get(context.Background(), order.ID)
	assert.True(t, ok)
}

func TestCheckoutEndpoint_DomainErrorsMapTo400(t *testing.T) {
	f := newFixture(t)
	seed(f)

	// cart kosong
	resp := f.do(t, http.MethodPost, "/checkout", `{"user_id":"user-1"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeBody[map[string]string](t, resp)
	assert.Contains(t, body["error"], "empty cart")
	assert.Empty(t, f.orders.events, "no event on failure")

	// dana kurang
	resp = f.do(t, http.MethodPost, "/cart/items", `{"user_id":"user-1","product_id":"prod-b","quantity":5}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
	resp = f.do(t, http.MethodPost, "/checkout", `{"user_id":"user-1"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body = decodeBody[map[string]string](t, resp)
	assert.Contains(t, body["error"], "insufficient funds")
	assert.Contains(t, body["error"], "required 125.00")
	assert.Contains(t, body["error"], "available 100.00")
}

func TestCheckoutEndpoint_MissingUser(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodPost, "/checkout", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestDepositEndpoint(t *testing.T) {
	f := newFixture(t)
	seed(f)

	resp := f.do(t, http.MethodPost, "/balance/deposit", `{"user_id":"user-1","amount":"30.00"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeBody[httpx.DepositResp](t, resp)
	assert.True(t, out.Balance.Equal(decimal.RequireFromString("130.00")), "balance %s", out.Balance)

	require.Len(t, f.balances.events, 1)
	assert.Equal(t, shop.EventBalanceDeposited, f.balances.events[0].EventType)

	// nol/negatif ditolak di boundary
	resp = f.do(t, http.MethodPost, "/balance/deposit", `{"user_id":"user-1","amount":"0"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
	resp = f.do(t, http.MethodPost, "/balance/deposit", `{"user_id":"user-1","amount":"-3"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestGetOrderEndpoint_ServesFromCacheAfterFirstRead(t *testing.T) {
	f := newFixture(t)
	seed(f)

	resp := f.do(t, http.MethodPost, "/cart/items", `{"user_id":"user-1","product_id":"prod-a","quantity":1}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
	resp = f.do(t, http.MethodPost, "/checkout", `{"user_id":"user-1"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	order := decodeBody[shop.Order](t, resp)

	before := f.cache.hits
	resp = f.do(t, http.MethodGet, "/orders/"+order.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeBody[shop.Order](t, resp)
	assert.Equal(t, order.ID, got.ID)
	assert.Greater(t, f.cache.hits, before, "read must hit the cache")
}

func TestGetOrderEndpoint_NotFound(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodGet, "/orders/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestListOrdersEndpoint(t *testing.T) {
	f := newFixture(t)
	seed(f)

	resp := f.do(t, http.MethodGet, "/orders?user_id=user-1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	orders := decodeBody[[]shop.Order](t, resp)
	assert.Empty(t, orders)

	resp = f.do(t, http.MethodPost, "/cart/items", `{"user_id":"user-1","product_id":"prod-a","quantity":1}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
	resp = f.do(t, http.MethodPost, "/checkout", `{"user_id":"user-1"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = f.do(t, http.MethodGet, "/orders?user_id=user-1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	orders = decodeBody[[]shop.Order](t, resp)
	assert.Len(t, orders, 1)
}

func TestCartEndpoints(t *testing.T) {
	f := newFixture(t)
	seed(f)

	resp := f.do(t, http.MethodGet, "/cart?user_id=user-1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cart := decodeBody[shop.Cart](t, resp)
	assert.Empty(t, cart.Items)

	resp = f.do(t, http.MethodPost, "/cart/items", `{"user_id":"user-1","product_id":"prod-a","quantity":2}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	item := decodeBody[shop.CartItem](t, resp)
	assert.Equal(t, 2, item.Quantity)

	resp = f.do(t, http.MethodPut, "/cart/items/prod-a", `{"user_id":"user-1","quantity":4}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	item = decodeBody[shop.CartItem](t, resp)
	assert.Equal(t, 4, item.Quantity)

	// melebihi stock -> 400 dengan pesan lengkap
	resp = f.do(t, http.MethodPut, "/cart/items/prod-a", `{"user_id":"user-1","quantity":9}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeBody[map[string]string](t, resp)
	assert.Contains(t, body["error"], "not enough stock for Keyboard")

	resp = f.do(t, http.MethodDelete, "/cart/items/prod-a?user_id=user-1", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = f.do(t, http.MethodDelete, "/cart?user_id=user-1", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()
}

func TestGetCartEndpoint_UnknownUser(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodGet, "/cart?user_id=ghost", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}
