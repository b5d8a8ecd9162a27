package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tecnolua/ClubePharma/internal/logger"
	"github.com/tecnolua/ClubePharma/internal/payments"
)

type PaymentService interface {
	Create(ctx context.Context, orderID, userID string) (payments.Checkout, error)
	Get(ctx context.Context, paymentID, userID string) (payments.Payment, error)
	List(ctx context.Context, userID string) ([]payments.Payment, error)
}

type Reconciler interface {
	HandleNotification(ctx context.Context, eventType, gatewayPaymentID string) payments.Result
}

type PaymentsHandler struct {
	svc PaymentService
	errorWriter
}

type createPaymentReq struct {
	OrderID string `json:"orderId"`
}

func (h *PaymentsHandler) Register(r chi.Router) {
	r.Post("/create", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
}

func (h *PaymentsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createPaymentReq
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		h.fail(w, r, payments.ErrOrderIDRequired)
		return
	}
	co, err := h.svc.Create(r.Context(), orderID, identity(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusCreated, "Payment preference created successfully", co)
}

func (h *PaymentsHandler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"), identity(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", p)
}

func (h *PaymentsHandler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context(), identity(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", list)
}

// WebhookHandler always answers 200. The outcome is in the body.
type WebhookHandler struct{ rec Reconciler }

func (h *WebhookHandler) Register(r chi.Router) {
	r.Post("/mercadopago", h.notify)
	r.Post("/gateway", h.notify)
}

// gatewayID accepts the payment id as a JSON string or number.
type gatewayID string

func (g *gatewayID) UnmarshalJSON(b []byte) error {
	*g = gatewayID(strings.Trim(string(bytes.TrimSpace(b)), `"`))
	if *g == "null" {
		*g = ""
	}
	return nil
}

type notification struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Data   struct {
		ID gatewayID `json:"id"`
	} `json:"data"`
}

func (h *WebhookHandler) notify(w http.ResponseWriter, r *http.Request) {
	var n notification
	raw, _ := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &n); err != nil {
			logger.Ctx(r.Context()).Warn().Err(err).Msg("undecodable webhook body")
		}
	}
	// Older IPN deliveries put everything in the query string.
	q := r.URL.Query()
	if n.Type == "" {
		n.Type = q.Get("type")
	}
	if n.Type == "" {
		n.Type = q.Get("topic")
	}
	if n.Data.ID == "" {
		n.Data.ID = gatewayID(q.Get("data.id"))
	}
	if n.Data.ID == "" {
		n.Data.ID = gatewayID(q.Get("id"))
	}

	res := h.rec.HandleNotification(r.Context(), n.Type, string(n.Data.ID))
	writeJSON(w, http.StatusOK, res)
}
