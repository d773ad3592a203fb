package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/ariefcatur/go-retail-orders/internal/cart"
	"github.com/ariefcatur/go-retail-orders/internal/lifecycle"
	"github.com/ariefcatur/go-retail-orders/internal/orders"
	"github.com/ariefcatur/go-retail-orders/internal/redisx"
)

// StatusCache is the read side of the order status projection.
type StatusCache interface {
	Get(ctx context.Context, orderID int64) (redisx.CachedStatus, bool, error)
	Set(ctx context.Context, orderID int64, cs redisx.CachedStatus) error
}

type OrdersHandler struct {
	Svc        *lifecycle.Coordinator
	Status     StatusCache
	AdminToken string
}

type CartItemReq struct {
	ProductID  int64 `json:"product_id"`
	LocationID int64 `json:"location_id"`
	Quantity   int   `json:"quantity"`
}

type CheckoutReq struct {
	PaymentMethod string `json:"payment_method"`
}

type CheckoutResp struct {
	OrderID int64         `json:"order_id"`
	Order   *orders.Order `json:"order"`
}

// Register mounts the routes. Without an AdminToken the admin group only
// requires X-Admin-ID, which is logged as a warning.
func (h *OrdersHandler) Register(r chi.Router) {
	if h.AdminToken == "" {
		log.Warn().Msg("ADMIN_TOKEN is not set: admin routes are unauthenticated")
	}
	r.Route("/users/{userID}", func(r chi.Router) {
		r.Get("/cart", h.listCart)
		r.Put("/cart/items", h.upsertCartItem)
		r.Delete("/cart/items/{productID}/{locationID}", h.removeCartItem)
		r.Delete("/cart", h.clearCart)
		r.Post("/checkout", h.checkout)
		r.Get("/orders", h.listUserOrders)
	})
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/status", h.getOrderStatus)

	r.Route("/admin", func(r chi.Router) {
		r.Use(h.requireAdmin)
		r.Get("/orders", h.listOrders)
		r.Post("/orders/{id}/approve", h.approve)
		r.Post("/orders/{id}/reject", h.reject)
		r.Post("/orders/{id}/cancel", h.cancel)
		r.Post("/orders/{id}/status", h.changeStatus)
		r.Get("/stock/{productID}/{locationID}", h.getStock)
		r.Put("/stock/{productID}/{locationID}", h.setStock)
		r.Post("/stock/{productID}/{locationID}", h.adjustStock)
	})
}

func (h *OrdersHandler) listCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	entries, err := h.Svc.Cart(r.Context(), userID)
	if err != nil {
		writeResult(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": entries})
}

func (h *OrdersHandler) upsertCartItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	var req CartItemReq
	if !decode(w, r, &req) {
		return
	}
	e := cart.Entry{UserID: userID, ProductID: req.ProductID, LocationID: req.LocationID, Quantity: req.Quantity}
	if err := h.Svc.AddToCart(r.Context(), e); err != nil {
		writeResult(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *OrdersHandler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	productID, ok := pathID(w, r, "productID")
	if !ok {
		return
	}
	locationID, ok := pathID(w, r, "locationID")
	if !ok {
		return
	}
	if err := h.Svc.RemoveFromCart(r.Context(), userID, productID, locationID); err != nil {
		writeResult(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrdersHandler) clearCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	if err := h.Svc.ClearCart(r.Context(), userID); err != nil {
		writeResult(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrdersHandler) checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	var req CheckoutReq
	if !decode(w, r, &req) {
		return
	}
	if req.PaymentMethod == "" {
		writeError(w, http.StatusBadRequest, "missing payment_method")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Svc.Checkout(ctx, userID, req.PaymentMethod)
	if err != nil {
		writeResult(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CheckoutResp{OrderID: o.ID, Order: o})
}

func (h *OrdersHandler) listUserOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	page := orders.Page{Limit: queryInt(r, "limit"), Offset: queryInt(r, "offset")}
	list, err := h.Svc.UserOrders(r.Context(), userID, page)
	if err != nil {
		writeResult(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": list})
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	o, err := h.Svc.Order(r.Context(), id)
	if err != nil {
		writeResult(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) cache
	if h.Status != nil {
		cs, found, err := h.Status.Get(ctx, id)
		if err != nil {
			log.Warn().Err(err).Int64("order_id", id).Msg("status cache read failed")
		} else if found {
			writeJSON(w, http.StatusOK, cs)
			return
		}
	}

	// 2) fallback DB
	o, err := h.Svc.Order(ctx, id)
	if err != nil {
		writeResult(w, err)
		return
	}
	cs := redisx.CachedStatus{Status: string(o.Status), UpdatedAt: o.UpdatedAt}
	if h.Status != nil {
		if err := h.Status.Set(ctx, id, cs); err != nil {
			log.Warn().Err(err).Int64("order_id", id).Msg("status cache write failed")
		}
	}
	writeJSON(w, http.StatusOK, cs)
}
