package httpx

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strconv"

	"github.com/ariefcatur/go-retail-orders/internal/inventory"
	"github.com/ariefcatur/go-retail-orders/internal/orders"
)

type adminKey struct{}

type ReasonReq struct {
	Reason string `json:"reason"`
}

type ChangeStatusReq struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

type SetStockReq struct {
	Quantity int `json:"quantity"`
}

type AdjustStockReq struct {
	Delta int `json:"delta"`
}

type OrderListResp struct {
	Orders []orders.Order `json:"orders"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// requireAdmin checks X-Admin-Token (when configured) and resolves X-Admin-ID
// for the audit trail.
func (h *OrdersHandler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.AdminToken != "" {
			got := r.Header.Get("X-Admin-Token")
			if subtle.ConstantTimeCompare([]byte(got), []byte(h.AdminToken)) != 1 {
				writeError(w, http.StatusUnauthorized, "invalid admin token")
				return
			}
		}
		adminID, err := strconv.ParseInt(r.Header.Get("X-Admin-ID"), 10, 64)
		if err != nil || adminID <= 0 {
			writeError(w, http.StatusBadRequest, "missing X-Admin-ID")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), adminKey{}, adminID)))
	})
}

func adminID(r *http.Request) int64 {
	id, _ := r.Context().Value(adminKey{}).(int64)
	return id
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	var f orders.Filter
	q := r.URL.Query()
	if s := q.Get("status"); s != "" {
		st, err := orders.ParseStatus(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		f.Status = &st
	}
	if s := q.Get("user_id"); s != "" {
		uid, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid user_id")
			return
		}
		f.UserID = &uid
	}
	page := orders.Page{Limit: queryInt(r, "limit"), Offset: queryInt(r, "offset")}.Normalize()

	list, total, err := h.Svc.Orders(r.Context(), f, page)
	if err != nil {
		writeResult(w, err)
		return
	}
	writeJSON(w, http.StatusOK, OrderListResp{Orders: list, Total: total, Limit: page.Limit, Offset: page.Offset})
}

func (h *OrdersHandler) approve(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	h.respondOrder(w)(h.Svc.Approve(r.Context(), id, adminID(r)))
}

func (h *OrdersHandler) reject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req ReasonReq
	if !decode(w, r, &req) {
		return
	}
	h.respondOrder(w)(h.Svc.Reject(r.Context(), id, adminID(r), req.Reason))
}

func (h *OrdersHandler) cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req ReasonReq
	if !decode(w, r, &req) {
		return
	}
	h.respondOrder(w)(h.Svc.Cancel(r.Context(), id, adminID(r), req.Reason))
}

func (h *OrdersHandler) changeStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req ChangeStatusReq
	if !decode(w, r, &req) {
		return
	}
	h.respondOrder(w)(h.Svc.ChangeStatus(r.Context(), id, adminID(r), req.Status, req.Notes))
}

func (h *OrdersHandler) respondOrder(w http.ResponseWriter) func(*orders.Order, error) {
	return func(o *orders.Order, err error) {
		if err != nil {
			writeResult(w, err)
			return
		}
		writeJSON(w, http.StatusOK, o)
	}
}

func stockKey(w http.ResponseWriter, r *http.Request) (inventory.Key, bool) {
	productID, ok := pathID(w, r, "productID")
	if !ok {
		return inventory.Key{}, false
	}
	locationID, ok := pathID(w, r, "locationID")
	if !ok {
		return inventory.Key{}, false
	}
	return inventory.Key{ProductID: productID, LocationID: locationID}, true
}

func (h *OrdersHandler) getStock(w http.ResponseWriter, r *http.Request) {
	k, ok := stockKey(w, r)
	if !ok {
		return
	}
	rec, err := h.Svc.Stock(r.Context(), k)
	if err != nil {
		writeResult(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *OrdersHandler) setStock(w http.ResponseWriter, r *http.Request) {
	k, ok := stockKey(w, r)
	if !ok {
		return
	}
	var req SetStockReq
	if !decode(w, r, &req) {
		return
	}
	rec, err := h.Svc.SetStock(r.Context(), k, req.Quantity)
	if err != nil {
		writeResult(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *OrdersHandler) adjustStock(w http.ResponseWriter, r *http.Request) {
	k, ok := stockKey(w, r)
	if !ok {
		return
	}
	var req AdjustStockReq
	if !decode(w, r, &req) {
		return
	}
	rec, err := h.Svc.AdjustStock(r.Context(), k, req.Delta)
	if err != nil {
		writeResult(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
