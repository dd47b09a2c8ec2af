package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/glowspa/glowspa-backend/internal/domain/auth"
	"github.com/glowspa/glowspa-backend/internal/domain/cart"
	"github.com/glowspa/glowspa-backend/internal/domain/catalog"
	"github.com/glowspa/glowspa-backend/internal/domain/discount"
	"github.com/glowspa/glowspa-backend/internal/domain/order"
)

const (
	svcFacial = "11111111-1111-1111-1111-111111111111"
	svcWaxing = "22222222-2222-2222-2222-222222222222"
	svcRetire = "33333333-3333-3333-3333-333333333333"

	testSecret = "handler-test-secret"
)

// memStore backs every repository interface with in-memory maps so handler
// tests exercise the full stack below the HTTP surface.
type memStore struct {
	services map[string]*catalog.Service
	carts    map[string]*cart.Cart
	orders   map[string]*order.Order
	discount *discount.Discount
}

func newMemStore() *memStore {
	price := func(v int64) decimal.Decimal { return decimal.NewFromInt(v) }
	return &memStore{
		services: map[string]*catalog.Service{
			svcFacial: {ID: svcFacial, Name: "Classic Facial", Category: "facial", Price: price(1200), Duration: 60 * time.Minute, Active: true},
			svcWaxing: {ID: svcWaxing, Name: "Full Arms Waxing", Category: "waxing", Price: price(600), Duration: 30 * time.Minute, Active: true},
			svcRetire: {ID: svcRetire, Name: "Retired Service", Category: "facial", Price: price(999), Active: false},
		},
		carts:  make(map[string]*cart.Cart),
		orders: make(map[string]*order.Order),
	}
}

// catalog.Repository

func (s *memStore) List(_ context.Context) ([]catalog.Service, error) {
	var out []catalog.Service
	for _, svc := range s.services {
		if svc.Active {
			out = append(out, *svc)
		}
	}
	return out, nil
}

func (s *memStore) ListByCategories(_ context.Context, categories []string) ([]catalog.Service, error) {
	var out []catalog.Service
	for _, svc := range s.services {
		if !svc.Active {
			continue
		}
		for _, c := range categories {
			if svc.Category == c {
				out = append(out, *svc)
				break
			}
		}
	}
	return out, nil
}

func (s *memStore) GetByID(_ context.Context, id string) (*catalog.Service, error) {
	svc, ok := s.services[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return svc, nil
}

func (s *memStore) GetByIDs(_ context.Context, ids []string) ([]catalog.Service, error) {
	var out []catalog.Service
	for _, id := range ids {
		if svc, ok := s.services[id]; ok {
			out = append(out, *svc)
		}
	}
	return out, nil
}

// cart.Repository

func (s *memStore) Get(_ context.Context, userID string) (*cart.Cart, error) {
	c, ok := s.carts[userID]
	if !ok {
		return nil, cart.ErrNotFound
	}
	cp := *c
	cp.Items = append([]cart.Item(nil), c.Items...)
	return &cp, nil
}

func (s *memStore) Save(_ context.Context, c *cart.Cart) error {
	cp := *c
	cp.Items = append([]cart.Item(nil), c.Items...)
	s.carts[c.UserID] = &cp
	return nil
}

// discount.Repository

func (s *memStore) GetDiscount(_ context.Context) (*discount.Discount, error) {
	if s.discount == nil {
		return nil, discount.ErrNotFound
	}
	cp := *s.discount
	return &cp, nil
}

func (s *memStore) Replace(_ context.Context, d *discount.Discount, revertIDs []string, changes []discount.PriceChange) error {
	s.revert(revertIDs)
	for _, ch := range changes {
		svc := s.services[ch.ServiceID]
		orig := ch.Original
		svc.OriginalPrice = &orig
		svc.Price = ch.Price
	}
	cp := *d
	s.discount = &cp
	return nil
}

func (s *memStore) Remove(_ context.Context, id string, revertIDs []string) (int, error) {
	if s.discount == nil || s.discount.ID != id {
		return 0, discount.ErrNotFound
	}
	n := s.revert(revertIDs)
	s.discount = nil
	return n, nil
}

func (s *memStore) revert(ids []string) int {
	n := 0
	for _, id := range ids {
		svc, ok := s.services[id]
		if !ok || svc.OriginalPrice == nil {
			continue
		}
		svc.Price = *svc.OriginalPrice
		svc.OriginalPrice = nil
		n++
	}
	return n
}

// order.Repository

func (s *memStore) CreateOrder(_ context.Context, o *order.Order) error {
	cp := *o
	s.orders[o.ID] = &cp
	return nil
}

func (s *memStore) GetOrderByID(_ context.Context, id string) (*order.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *memStore) GetOwned(_ context.Context, id, userID string) (*order.Order, error) {
	o, ok := s.orders[id]
	if !ok || o.UserID != userID {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *memStore) ListByUser(_ context.Context, userID string) ([]order.Order, error) {
	var out []order.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *memStore) ListOrders(_ context.Context) ([]order.Order, error) {
	var out []order.Order
	for _, o := range s.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (s *memStore) UpdateStatus(_ context.Context, id string, status order.Status) (*order.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	o.Status = status
	cp := *o
	return &cp, nil
}

// Repository interfaces have colliding method names across domains; thin
// adapters split the one store into per-domain views.

type discountRepoView struct{ *memStore }

func (v discountRepoView) Get(ctx context.Context) (*discount.Discount, error) {
	return v.GetDiscount(ctx)
}

type orderRepoView struct{ *memStore }

func (v orderRepoView) Create(ctx context.Context, o *order.Order) error {
	return v.CreateOrder(ctx, o)
}

func (v orderRepoView) GetByID(ctx context.Context, id string) (*order.Order, error) {
	return v.GetOrderByID(ctx, id)
}

func (v orderRepoView) List(ctx context.Context) ([]order.Order, error) {
	return v.ListOrders(ctx)
}

// --- Fixture ---

type apiFixture struct {
	store *memStore
	mux   *http.ServeMux
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	store := newMemStore()

	resolver := catalog.NewResolver(store)
	carts := cart.NewService(store, resolver)
	discounts := discount.NewEngine(discountRepoView{store}, store, zap.NewNop())
	orders := order.NewService(orderRepoView{store}, carts, order.Config{})
	verifier := auth.NewVerifier([]byte(testSecret))

	mux := http.NewServeMux()
	New(store, carts, discounts, orders, verifier).Register(mux)
	return &apiFixture{store: store, mux: mux}
}

func token(t *testing.T, userID string, admin bool) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		Admin: admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (f *apiFixture) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func decodeResponse[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

// --- Auth ---

func TestAuth_MissingToken(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/cart", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	body := decodeResponse[errorBody](t, rec)
	assert.Equal(t, http.StatusUnauthorized, body.Code)
	assert.Equal(t, "unauthorized", body.Message)
}

func TestAuth_Cookie(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: token(t, "user1", false)})
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_AdminRequired(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/orders", token(t, "user1", false), nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	body := decodeResponse[errorBody](t, rec)
	assert.Equal(t, "admin access required", body.Message)
}

// --- Services ---

func TestListServices(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/services", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	services := decodeResponse[[]serviceResponse](t, rec)
	assert.Len(t, services, 2, "inactive services are hidden from the listing")
}

func TestGetService(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/services/"+svcFacial, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	svc := decodeResponse[serviceResponse](t, rec)
	assert.Equal(t, "Classic Facial", svc.Name)
	assert.Equal(t, 1200.0, svc.Price)
	assert.Equal(t, 60, svc.DurationMinutes)

	rec = f.do(t, http.MethodGet, "/api/services/"+svcRetire, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "withdrawn services read as missing")
}

// --- Cart ---

func TestCartFlow(t *testing.T) {
	f := newAPIFixture(t)
	user := token(t, "user1", false)

	rec := f.do(t, http.MethodGet, "/api/cart", user, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decodeResponse[cartResponse](t, rec)
	assert.Empty(t, view.Items)
	assert.Zero(t, view.Total)

	// Quantity defaults to 1 when omitted.
	rec = f.do(t, http.MethodPost, "/api/cart/add", user, map[string]any{"serviceId": svcFacial})
	require.Equal(t, http.StatusOK, rec.Code)
	view = decodeResponse[cartResponse](t, rec)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 1, view.Items[0].Quantity)
	assert.Equal(t, 1200.0, view.Total)

	rec = f.do(t, http.MethodPost, "/api/cart/add", user, map[string]any{"serviceId": svcFacial, "quantity": 2})
	require.Equal(t, http.StatusOK, rec.Code)
	view = decodeResponse[cartResponse](t, rec)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 3, view.Items[0].Quantity)
	assert.Equal(t, 3600.0, view.Total)

	rec = f.do(t, http.MethodPut, "/api/cart/update", user, map[string]any{"serviceId": svcFacial, "quantity": 1})
	require.Equal(t, http.StatusOK, rec.Code)
	view = decodeResponse[cartResponse](t, rec)
	assert.Equal(t, 1, view.Items[0].Quantity)

	rec = f.do(t, http.MethodDelete, "/api/cart/remove/"+svcFacial, user, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view = decodeResponse[cartResponse](t, rec)
	assert.Empty(t, view.Items)
}

func TestCart_Errors(t *testing.T) {
	f := newAPIFixture(t)
	user := token(t, "user1", false)

	rec := f.do(t, http.MethodPost, "/api/cart/add", user, map[string]any{"quantity": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing service id")

	rec = f.do(t, http.MethodPost, "/api/cart/add", user,
		map[string]any{"serviceId": "44444444-4444-4444-4444-444444444444"})
	assert.Equal(t, http.StatusNotFound, rec.Code, "unknown service")

	rec = f.do(t, http.MethodPost, "/api/cart/add", user, map[string]any{"serviceId": svcRetire})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "withdrawn service")

	rec = f.do(t, http.MethodPost, "/api/cart/add", user,
		map[string]any{"serviceId": svcFacial, "quantity": -2})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "negative quantity")

	rec = f.do(t, http.MethodPut, "/api/cart/update", user,
		map[string]any{"serviceId": svcFacial, "quantity": 2})
	assert.Equal(t, http.StatusNotFound, rec.Code, "no cart yet")

	rec = f.do(t, http.MethodDelete, "/api/cart/clear", user, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "clearing a missing cart")
}

// --- Discounts ---

func applyBody(pct float64) map[string]any {
	return map[string]any{
		"name":       "Monsoon Sale",
		"percentage": pct,
		"validUntil": time.Now().Add(24 * time.Hour).Format(time.RFC3339),
		"services":   map[string]any{"all": true},
	}
}

func TestDiscountFlow(t *testing.T) {
	f := newAPIFixture(t)
	admin := token(t, "admin1", true)

	rec := f.do(t, http.MethodGet, "/api/discounts", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", string(bytes.TrimSpace(rec.Body.Bytes())))

	rec = f.do(t, http.MethodPut, "/api/discounts", admin, applyBody(20))
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	d := decodeResponse[discountResponse](t, rec)
	assert.Equal(t, "Monsoon Sale", d.Name)
	assert.Equal(t, 20.0, d.Percentage)
	assert.True(t, d.Services.All)

	// Catalog prices are rewritten in place.
	rec = f.do(t, http.MethodGet, "/api/services/"+svcFacial, "", nil)
	svc := decodeResponse[serviceResponse](t, rec)
	assert.Equal(t, 960.0, svc.Price)

	rec = f.do(t, http.MethodDelete, "/api/discounts/"+d.ID, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeResponse[map[string]any](t, rec)
	assert.Equal(t, "discount deleted successfully", result["message"])
	assert.Equal(t, 2.0, result["affectedServices"], "both active catalog rows were discounted")

	rec = f.do(t, http.MethodGet, "/api/services/"+svcFacial, "", nil)
	svc = decodeResponse[serviceResponse](t, rec)
	assert.Equal(t, 1200.0, svc.Price)
}

func TestDiscount_CategorySelectionWireShape(t *testing.T) {
	f := newAPIFixture(t)
	admin := token(t, "admin1", true)

	body := applyBody(10)
	body["services"] = map[string]any{
		"all":        false,
		"categories": map[string]bool{"facial": true, "waxing": false},
	}
	rec := f.do(t, http.MethodPut, "/api/discounts", admin, body)
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

	d := decodeResponse[discountResponse](t, rec)
	assert.False(t, d.Services.All)
	assert.Equal(t, map[string]bool{"facial": true}, d.Services.Categories)

	// Only the selected category's active service is discounted.
	rec = f.do(t, http.MethodGet, "/api/services/"+svcFacial, "", nil)
	assert.Equal(t, 1080.0, decodeResponse[serviceResponse](t, rec).Price)
	rec = f.do(t, http.MethodGet, "/api/services/"+svcWaxing, "", nil)
	assert.Equal(t, 600.0, decodeResponse[serviceResponse](t, rec).Price)
}

func TestDiscount_Validation(t *testing.T) {
	f := newAPIFixture(t)
	admin := token(t, "admin1", true)

	body := applyBody(20)
	delete(body, "percentage")
	rec := f.do(t, http.MethodPut, "/api/discounts", admin, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing percentage")

	body = applyBody(150)
	rec = f.do(t, http.MethodPut, "/api/discounts", admin, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "percentage out of range")

	body = applyBody(20)
	body["validUntil"] = "next tuesday"
	rec = f.do(t, http.MethodPut, "/api/discounts", admin, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unparseable date")

	body = applyBody(20)
	body["validUntil"] = time.Now().Add(-time.Hour).Format(time.RFC3339)
	rec = f.do(t, http.MethodPut, "/api/discounts", admin, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "expiry in the past")

	rec = f.do(t, http.MethodDelete, "/api/discounts/no-such-id", admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --- Orders ---

func orderBody() map[string]any {
	return map[string]any{
		"customerDetails": map[string]string{
			"name":    "Priya Sharma",
			"phone":   "+919812345678",
			"address": "14 MG Road, Bengaluru",
			"pincode": "560001",
		},
		"deliveryDate": "2026-03-10",
		"deliveryTime": "14:00",
	}
}

func (f *apiFixture) placeOrder(t *testing.T, user string) orderResponse {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/cart/add", user, map[string]any{"serviceId": svcFacial, "quantity": 2})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodPost, "/api/orders", user, orderBody())
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
	return decodeResponse[orderResponse](t, rec)
}

func TestCreateOrder(t *testing.T) {
	f := newAPIFixture(t)
	user := token(t, "user1", false)

	o := f.placeOrder(t, user)
	assert.Equal(t, "ongoing", o.Status)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "Classic Facial", o.Items[0].ServiceName)
	assert.Equal(t, 2400.0, o.Total)

	// The cart was consumed.
	rec := f.do(t, http.MethodGet, "/api/cart", user, nil)
	assert.Empty(t, decodeResponse[cartResponse](t, rec).Items)
}

func TestCreateOrder_Errors(t *testing.T) {
	f := newAPIFixture(t)
	user := token(t, "user1", false)

	rec := f.do(t, http.MethodPost, "/api/orders", user, orderBody())
	require.Equal(t, http.StatusBadRequest, rec.Code, "empty cart")

	rec = f.do(t, http.MethodPost, "/api/cart/add", user, map[string]any{"serviceId": svcFacial})
	require.Equal(t, http.StatusOK, rec.Code)

	body := orderBody()
	body["customerDetails"].(map[string]string)["phone"] = ""
	rec = f.do(t, http.MethodPost, "/api/orders", user, body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeResponse[errorBody](t, rec).Message, "phone number")
}

func TestGetOrder_Ownership(t *testing.T) {
	f := newAPIFixture(t)
	owner := token(t, "user1", false)
	other := token(t, "user2", false)
	admin := token(t, "admin1", true)

	o := f.placeOrder(t, owner)

	rec := f.do(t, http.MethodGet, "/api/orders/"+o.ID, owner, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/orders/"+o.ID, admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/orders/"+o.ID, other, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/orders/missing", owner, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrderStatusAndCancel(t *testing.T) {
	f := newAPIFixture(t)
	user := token(t, "user1", false)
	admin := token(t, "admin1", true)

	o := f.placeOrder(t, user)

	rec := f.do(t, http.MethodPatch, "/api/orders/"+o.ID+"/status", admin, map[string]string{"status": "postponed"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "postponed", decodeResponse[orderResponse](t, rec).Status)

	rec = f.do(t, http.MethodPatch, "/api/orders/"+o.ID+"/status", admin, map[string]string{"status": "shipped"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown status value")

	rec = f.do(t, http.MethodPatch, "/api/orders/"+o.ID+"/cancel", user, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cancelled", decodeResponse[orderResponse](t, rec).Status)

	// Cancelling another user's order reads as missing.
	rec = f.do(t, http.MethodPatch, "/api/orders/"+o.ID+"/cancel", token(t, "user2", false), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancel_CompletedOrder(t *testing.T) {
	f := newAPIFixture(t)
	user := token(t, "user1", false)
	admin := token(t, "admin1", true)

	o := f.placeOrder(t, user)

	rec := f.do(t, http.MethodPatch, "/api/orders/"+o.ID+"/status", admin, map[string]string{"status": "completed"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPatch, "/api/orders/"+o.ID+"/cancel", user, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListOrders(t *testing.T) {
	f := newAPIFixture(t)
	admin := token(t, "admin1", true)

	f.placeOrder(t, token(t, "user1", false))
	f.placeOrder(t, token(t, "user2", false))

	rec := f.do(t, http.MethodGet, "/api/orders", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeResponse[[]orderResponse](t, rec), 2)

	rec = f.do(t, http.MethodGet, "/api/orders/my-orders", token(t, "user1", false), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	mine := decodeResponse[[]orderResponse](t, rec)
	require.Len(t, mine, 1)
}
