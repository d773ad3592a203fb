package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-retail-orders/internal/catalog"
	"github.com/ariefcatur/go-retail-orders/internal/lifecycle"
	"github.com/ariefcatur/go-retail-orders/internal/memstore"
	"github.com/ariefcatur/go-retail-orders/internal/redisx"
)

type memStatus struct {
	entries map[int64]redisx.CachedStatus
}

func (m *memStatus) Get(_ context.Context, id int64) (redisx.CachedStatus, bool, error) {
	cs, ok := m.entries[id]
	return cs, ok, nil
}

func (m *memStatus) Set(_ context.Context, id int64, cs redisx.CachedStatus) error {
	m.entries[id] = cs
	return nil
}

type testServer struct {
	h      http.Handler
	status *memStatus
}

func newTestServer(t *testing.T, token string) *testServer {
	t.Helper()
	store := memstore.New()
	store.AddProduct(catalog.Product{ID: 1, Name: "Teh Melati", Price: decimal.RequireFromString("3.10")})
	store.AddLocation(catalog.Location{ID: 1, Name: "Surabaya"})

	st := &memStatus{entries: map[int64]redisx.CachedStatus{}}
	r := NewRouter()
	(&OrdersHandler{Svc: lifecycle.New(store), Status: st, AdminToken: token}).Register(r)
	return &testServer{h: r, status: st}
}

func (s *testServer) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), rec.Body.String())
	return m
}

var admin = []string{"X-Admin-ID", "7"}

func TestCheckoutFlow(t *testing.T) {
	s := newTestServer(t, "")

	rec := s.do(t, http.MethodPut, "/admin/stock/1/1", `{"quantity":10}`, admin...)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPut, "/users/5/cart/items", `{"product_id":1,"location_id":1,"quantity":3}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/users/5/checkout", `{"payment_method":"qris"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.EqualValues(t, 1, body["order_id"])
	order := body["order"].(map[string]any)
	assert.Equal(t, "pending_admin_approval", order["status"])
	assert.Equal(t, "9.3", order["total_amount"])

	rec = s.do(t, http.MethodGet, "/admin/stock/1/1", "", admin...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 7, decodeBody(t, rec)["quantity"])

	rec = s.do(t, http.MethodPost, "/admin/orders/1/reject", `{"reason":"fraud check"}`, admin...)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Rejected by admin 7: fraud check", decodeBody(t, rec)["admin_notes"])

	rec = s.do(t, http.MethodPost, "/admin/orders/1/approve", ``, admin...)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_processed", decodeBody(t, rec)["code"])

	rec = s.do(t, http.MethodGet, "/admin/stock/1/1", "", admin...)
	assert.EqualValues(t, 10, decodeBody(t, rec)["quantity"])
}

func TestCheckout_Errors(t *testing.T) {
	s := newTestServer(t, "")

	rec := s.do(t, http.MethodPost, "/users/5/checkout", `{"payment_method":"qris"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "cart_empty", decodeBody(t, rec)["code"])

	s.do(t, http.MethodPut, "/users/5/cart/items", `{"product_id":1,"location_id":1,"quantity":2}`)
	rec = s.do(t, http.MethodPost, "/users/5/checkout", `{"payment_method":"qris"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "insufficient_stock", body["code"])
	assert.EqualValues(t, 0, body["available"])
	assert.EqualValues(t, 2, body["requested"])

	rec = s.do(t, http.MethodPost, "/users/5/checkout", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(t, http.MethodPost, "/users/abc/checkout", `{"payment_method":"qris"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCart_Endpoints(t *testing.T) {
	s := newTestServer(t, "")

	rec := s.do(t, http.MethodPut, "/users/5/cart/items", `{"product_id":1,"location_id":1,"quantity":0}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	rec = s.do(t, http.MethodPut, "/users/5/cart/items", `{"product_id":2,"location_id":1,"quantity":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	s.do(t, http.MethodPut, "/users/5/cart/items", `{"product_id":1,"location_id":1,"quantity":4}`)
	rec = s.do(t, http.MethodGet, "/users/5/cart", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["items"], 1)

	rec = s.do(t, http.MethodDelete, "/users/5/cart/items/1/1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodDelete, "/users/5/cart/items/1/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(t, http.MethodDelete, "/users/5/cart", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestOrderStatus_FallsBackToStoreAndFillsCache(t *testing.T) {
	s := newTestServer(t, "")
	s.do(t, http.MethodPut, "/admin/stock/1/1", `{"quantity":1}`, admin...)
	s.do(t, http.MethodPut, "/users/5/cart/items", `{"product_id":1,"location_id":1,"quantity":1}`)
	s.do(t, http.MethodPost, "/users/5/checkout", `{"payment_method":"qris"}`)

	rec := s.do(t, http.MethodGet, "/orders/1/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pending_admin_approval", decodeBody(t, rec)["status"])
	assert.Equal(t, "pending_admin_approval", s.status.entries[1].Status)

	s.status.entries[1] = redisx.CachedStatus{Status: "shipped", UpdatedAt: time.Now()}
	rec = s.do(t, http.MethodGet, "/orders/1/status", "")
	assert.Equal(t, "shipped", decodeBody(t, rec)["status"], "cache wins when present")

	rec = s.do(t, http.MethodGet, "/orders/2/status", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdmin_Guard(t *testing.T) {
	s := newTestServer(t, "s3cret")

	rec := s.do(t, http.MethodGet, "/admin/orders", "", admin...)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/admin/orders", "", "X-Admin-Token", "s3cret")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/admin/orders", "", "X-Admin-Token", "s3cret", "X-Admin-ID", "7")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, decodeBody(t, rec)["total"])
}

func TestRegister_WarnsWhenAdminTokenUnset(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	newTestServer(t, "")
	assert.Contains(t, buf.String(), "admin routes are unauthenticated")

	buf.Reset()
	newTestServer(t, "s3cret")
	assert.NotContains(t, buf.String(), "admin routes are unauthenticated")
}

func TestAdmin_ChangeStatusAndListing(t *testing.T) {
	s := newTestServer(t, "")
	s.do(t, http.MethodPut, "/admin/stock/1/1", `{"quantity":5}`, admin...)
	s.do(t, http.MethodPut, "/users/5/cart/items", `{"product_id":1,"location_id":1,"quantity":2}`)
	s.do(t, http.MethodPost, "/users/5/checkout", `{"payment_method":"qris"}`)

	rec := s.do(t, http.MethodPost, "/admin/orders/1/status", `{"status":"refunded"}`, admin...)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "invalid_transition", decodeBody(t, rec)["code"])

	rec = s.do(t, http.MethodPost, "/admin/orders/1/status", `{"status":"approved","notes":"paid"}`, admin...)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Status changed by admin 7 from pending_admin_approval to approved: paid", decodeBody(t, rec)["admin_notes"])

	rec = s.do(t, http.MethodGet, "/admin/orders?status=approved&user_id=5", "", admin...)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.EqualValues(t, 1, body["total"])
	assert.EqualValues(t, 20, body["limit"])

	rec = s.do(t, http.MethodGet, "/admin/orders?status=lost", "", admin...)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/admin/orders/1/cancel", `{"reason":"stock damaged"}`, admin...)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodGet, "/admin/stock/1/1", "", admin...)
	assert.EqualValues(t, 5, decodeBody(t, rec)["quantity"])

	rec = s.do(t, http.MethodGet, "/users/5/orders?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["orders"], 1)
}

func TestAdmin_AdjustStock(t *testing.T) {
	s := newTestServer(t, "")

	rec := s.do(t, http.MethodPost, "/admin/stock/1/1", `{"delta":4}`, admin...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 4, decodeBody(t, rec)["quantity"])

	rec = s.do(t, http.MethodPost, "/admin/stock/1/1", `{"delta":-5}`, admin...)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPut, "/admin/stock/1/1", `{"quantity":-1}`, admin...)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(t, http.MethodGet, "/admin/stock/1/9", "", admin...)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, "")
	rec := s.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
