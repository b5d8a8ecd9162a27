package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/tecnolua/ClubePharma/internal/apperr"
	"github.com/tecnolua/ClubePharma/internal/auth"
	"github.com/tecnolua/ClubePharma/internal/coupons"
)

type CouponService interface {
	Validate(ctx context.Context, code string, total decimal.Decimal) (coupons.Quote, error)
	Apply(ctx context.Context, code string) (coupons.Coupon, error)
	Get(ctx context.Context, id string) (coupons.Coupon, error)
	List(ctx context.Context, f coupons.ListFilter) ([]coupons.Coupon, int, coupons.ListFilter, error)
	Create(ctx context.Context, in coupons.Input) (coupons.Coupon, error)
	Update(ctx context.Context, id string, in coupons.Input) (coupons.Coupon, error)
	Deactivate(ctx context.Context, id string) (coupons.Coupon, error)
}

type CouponsHandler struct {
	svc CouponService
	errorWriter
}

type couponQuoteReq struct {
	Code        string           `json:"code"`
	TotalAmount *decimal.Decimal `json:"totalAmount"`
}

var (
	errCouponCodeRequired = apperr.New(apperr.KindValidation, "VALIDATION_FAILED", "Coupon code is required")
	errTotalAmount        = apperr.New(apperr.KindValidation, "VALIDATION_FAILED", "Total amount must be a positive number")
)

type couponApplyReq struct {
	Code string `json:"code"`
}

func (req couponQuoteReq) validate() error {
	if strings.TrimSpace(req.Code) == "" {
		return errCouponCodeRequired
	}
	if req.TotalAmount == nil || req.TotalAmount.IsNegative() {
		return errTotalAmount
	}
	return nil
}

func (h *CouponsHandler) Register(r chi.Router) {
	r.Post("/validate", h.validate)
	r.Post("/apply", h.apply)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAdmin)
		r.Post("/", h.create)
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.deactivate)
	})
}

func (h *CouponsHandler) validate(w http.ResponseWriter, r *http.Request) {
	var req couponQuoteReq
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		h.fail(w, r, err)
		return
	}
	q, err := h.svc.Validate(r.Context(), req.Code, *req.TotalAmount)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Coupon is valid", q)
}

func (h *CouponsHandler) apply(w http.ResponseWriter, r *http.Request) {
	var req couponApplyReq
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		h.fail(w, r, errCouponCodeRequired)
		return
	}
	c, err := h.svc.Apply(r.Context(), req.Code)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Coupon applied successfully", c)
}

func (h *CouponsHandler) list(w http.ResponseWriter, r *http.Request) {
	list, total, f, err := h.svc.List(r.Context(), coupons.ListFilter{
		IsActive: queryBool(r, "isActive", nil),
		Page:     queryInt(r, "page"),
		Limit:    queryInt(r, "limit"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	okPage(w, list, paginate(f.Page, f.Limit, total))
}

func (h *CouponsHandler) get(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", c)
}

func (h *CouponsHandler) create(w http.ResponseWriter, r *http.Request) {
	var in coupons.Input
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.svc.Create(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusCreated, "Coupon created successfully", c)
}

func (h *CouponsHandler) update(w http.ResponseWriter, r *http.Request) {
	var in coupons.Input
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Coupon updated successfully", c)
}

func (h *CouponsHandler) deactivate(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Deactivate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Coupon deleted successfully", c)
}
