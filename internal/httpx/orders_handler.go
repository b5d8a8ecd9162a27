package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tecnolua/ClubePharma/internal/auth"
	"github.com/tecnolua/ClubePharma/internal/logger"
	"github.com/tecnolua/ClubePharma/internal/orders"
)

type OrderService interface {
	Checkout(ctx context.Context, userID, paymentMethod string) (orders.Order, error)
	Cancel(ctx context.Context, orderID, requesterID string) (orders.Order, error)
	UpdateStatus(ctx context.Context, orderID string, to orders.Status, paymentID string) (orders.Order, error)
	Get(ctx context.Context, orderID, requesterID string) (orders.Order, error)
	List(ctx context.Context, f orders.ListFilter) ([]orders.Order, int, orders.ListFilter, error)
	Stats(ctx context.Context, userID string) (orders.Stats, error)
}

// Idempotency remembers which order a client key produced.
type Idempotency interface {
	Lookup(ctx context.Context, userID, key string) (string, error)
	Remember(ctx context.Context, userID, key, orderID string) error
}

const headerIdempotencyKey = "Idempotency-Key"

type OrdersHandler struct {
	svc  OrderService
	idem Idempotency
	errorWriter
}

type createOrderReq struct {
	PaymentMethod string `json:"paymentMethod"`
}

type updateStatusReq struct {
	Status    string `json:"status"`
	PaymentID string `json:"paymentId"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/stats", h.stats)
	r.Get("/{id}", h.get)
	r.Put("/{id}/cancel", h.cancel)
	r.With(auth.RequireAdmin).Put("/{id}/status", h.updateStatus)
}

func (h *OrdersHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createOrderReq
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	ctx := r.Context()
	user := identity(r).UserID
	key := strings.TrimSpace(r.Header.Get(headerIdempotencyKey))

	// Redis is a shortcut here, not the source of truth; on lookup failure
	// the request is handled as a fresh checkout.
	if key != "" && h.idem != nil {
		if id, err := h.idem.Lookup(ctx, user, key); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Msg("idempotency lookup failed")
		} else if id != "" {
			o, err := h.svc.Get(ctx, id, user)
			if err != nil {
				h.fail(w, r, err)
				return
			}
			ok(w, http.StatusOK, "Order already created", o)
			return
		}
	}

	o, err := h.svc.Checkout(ctx, user, req.PaymentMethod)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if key != "" && h.idem != nil {
		if err := h.idem.Remember(ctx, user, key, o.ID); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("order_id", o.ID).Msg("idempotency store failed")
		}
	}
	ok(w, http.StatusCreated, "Order created successfully", o)
}

func (h *OrdersHandler) list(w http.ResponseWriter, r *http.Request) {
	list, total, f, err := h.svc.List(r.Context(), orders.ListFilter{
		UserID: identity(r).UserID,
		Status: orders.Status(r.URL.Query().Get("status")),
		Page:   queryInt(r, "page"),
		Limit:  queryInt(r, "limit"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	okPage(w, list, paginate(f.Page, f.Limit, total))
}

func (h *OrdersHandler) stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stats(r.Context(), identity(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", st)
}

func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"), identity(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", o)
}

func (h *OrdersHandler) cancel(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.Cancel(r.Context(), chi.URLParam(r, "id"), identity(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Order cancelled successfully", o)
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusReq
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	st, valid := orders.ParseStatus(req.Status)
	if !valid {
		h.fail(w, r, orders.ErrInvalidStatus)
		return
	}
	o, err := h.svc.UpdateStatus(r.Context(), chi.URLParam(r, "id"), st, strings.TrimSpace(req.PaymentID))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Order status updated", o)
}
