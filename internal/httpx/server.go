package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/tecnolua/ClubePharma/internal/auth"
	"github.com/tecnolua/ClubePharma/internal/metrics"
)

// Pinger reports dependency health for /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Logger       zerolog.Logger
	ExposeErrors bool

	Verifier  auth.Verifier
	Directory auth.Directory

	Orders      OrderService
	Idempotency Idempotency
	Cart        CartService
	Catalog     CatalogService
	Payments    PaymentService
	Webhooks    Reconciler
	Coupons     CouponService

	Health map[string]Pinger
}

func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(d.Logger), metrics.Middleware, middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))

	r.Get("/healthz", healthz(d.Health))
	r.Handle("/metrics", metrics.Handler())

	ew := errorWriter{expose: d.ExposeErrors}
	authn := auth.Authenticate(d.Verifier, d.Directory)

	oh := &OrdersHandler{svc: d.Orders, idem: d.Idempotency, errorWriter: ew}
	ch := &CartHandler{svc: d.Cart, errorWriter: ew}
	ph := &ProductsHandler{svc: d.Catalog, errorWriter: ew}
	pay := &PaymentsHandler{svc: d.Payments, errorWriter: ew}
	wh := &WebhookHandler{rec: d.Webhooks}
	cp := &CouponsHandler{svc: d.Coupons, errorWriter: ew}

	r.Route("/api", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			ph.RegisterPublic(r)
			r.Group(func(r chi.Router) {
				r.Use(authn, auth.RequireAdmin)
				ph.RegisterAdmin(r)
			})
		})
		r.Route("/webhooks", wh.Register)

		r.Group(func(r chi.Router) {
			r.Use(authn)
			r.Route("/orders", oh.Register)
			r.Route("/cart", ch.Register)
			r.Route("/payments", pay.Register)
			r.Route("/coupons", cp.Register)
		})
	})
	return r
}

func healthz(deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		status := map[string]string{}
		code := http.StatusOK
		for name, p := range deps {
			if err := p.Ping(ctx); err != nil {
				status[name] = err.Error()
				code = http.StatusServiceUnavailable
				continue
			}
			status[name] = "ok"
		}
		writeJSON(w, code, envelope{Success: code == http.StatusOK, Data: status})
	}
}
