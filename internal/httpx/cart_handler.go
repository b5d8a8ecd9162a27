package httpx

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tecnolua/ClubePharma/internal/cart"
)

type CartService interface {
	Get(ctx context.Context, userID string) (cart.View, error)
	Add(ctx context.Context, userID, productID string, qty int) (cart.Item, error)
	Update(ctx context.Context, userID, itemID string, qty int) (cart.Item, error)
	Remove(ctx context.Context, userID, itemID string) error
	Clear(ctx context.Context, userID string) error
}

type CartHandler struct {
	svc CartService
	errorWriter
}

type addToCartReq struct {
	ProductID string `json:"productId"`
	Quantity  *int   `json:"quantity"`
}

type updateCartReq struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) Register(r chi.Router) {
	r.Get("/", h.get)
	r.Post("/", h.add)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.remove)
	r.Delete("/", h.clear)
}

func (h *CartHandler) get(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.Get(r.Context(), identity(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", v)
}

func (h *CartHandler) add(w http.ResponseWriter, r *http.Request) {
	var req addToCartReq
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	it, err := h.svc.Add(r.Context(), identity(r).UserID, req.ProductID, qty)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Item added to cart", it)
}

func (h *CartHandler) update(w http.ResponseWriter, r *http.Request) {
	var req updateCartReq
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	it, err := h.svc.Update(r.Context(), identity(r).UserID, chi.URLParam(r, "id"), req.Quantity)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Cart item updated", it)
}

func (h *CartHandler) remove(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Remove(r.Context(), identity(r).UserID, chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Item removed from cart", nil)
}

func (h *CartHandler) clear(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Clear(r.Context(), identity(r).UserID); err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Cart cleared", nil)
}
