package httpx

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tecnolua/ClubePharma/internal/catalog"
)

type CatalogService interface {
	Get(ctx context.Context, id string) (catalog.Product, error)
	List(ctx context.Context, f catalog.ListFilter) ([]catalog.Product, int, catalog.ListFilter, error)
	Categories(ctx context.Context) ([]catalog.Category, error)
	Create(ctx context.Context, in catalog.Input) (catalog.Product, error)
	Update(ctx context.Context, id string, in catalog.Input) (catalog.Product, error)
	Deactivate(ctx context.Context, id string) (catalog.Product, error)
}

type ProductsHandler struct {
	svc CatalogService
	errorWriter
}

func (h *ProductsHandler) RegisterPublic(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/categories", h.categories)
	r.Get("/{id}", h.get)
}

func (h *ProductsHandler) RegisterAdmin(r chi.Router) {
	r.Post("/", h.create)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.deactivate)
}

func (h *ProductsHandler) list(w http.ResponseWriter, r *http.Request) {
	active := true
	q := r.URL.Query()
	list, total, f, err := h.svc.List(r.Context(), catalog.ListFilter{
		Category: q.Get("category"),
		Search:   q.Get("search"),
		IsActive: queryBool(r, "isActive", &active),
		Page:     queryInt(r, "page"),
		Limit:    queryInt(r, "limit"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	okPage(w, list, paginate(f.Page, f.Limit, total))
}

func (h *ProductsHandler) categories(w http.ResponseWriter, r *http.Request) {
	cs, err := h.svc.Categories(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", cs)
}

func (h *ProductsHandler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", p)
}

func (h *ProductsHandler) create(w http.ResponseWriter, r *http.Request) {
	var in catalog.Input
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.svc.Create(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusCreated, "Product created successfully", p)
}

func (h *ProductsHandler) update(w http.ResponseWriter, r *http.Request) {
	var in catalog.Input
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Product updated successfully", p)
}

func (h *ProductsHandler) deactivate(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Deactivate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Product deleted successfully", p)
}
