package products

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"

	"tiendacore/internal/httpx"
)

type Handler struct {
	Store  ProductStore
	Logger *slog.Logger
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.Store.List(r.Context())
	if err != nil {
		h.Logger.Error("list products", "err", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if uuid.Validate(id) != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid id")
		return
	}
	p, err := h.Store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			httpx.Error(w, http.StatusNotFound, "product not found")
			return
		}
		h.Logger.Error("get product", "err", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

type productPayload struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Image       string  `json:"image"`
	Category    string  `json:"category"`
}

func (p productPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required),
		validation.Field(&p.Price, validation.Required, validation.Min(0.0)),
		validation.Field(&p.Category, validation.Required),
	)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var p productPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		httpx.Error(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := p.Validate(); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	now := time.Now().UTC()
	product := &Product{
		ID:          uuid.NewString(),
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Image:       p.Image,
		Category:    p.Category,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.Store.Create(r.Context(), product); err != nil {
		h.Logger.Error("create product", "err", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, product)
}

type productUpdatePayload struct {
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	Image       *string  `json:"image"`
	Category    string   `json:"category"`
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if uuid.Validate(id) != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid id")
		return
	}
	var p productUpdatePayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		httpx.Error(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if p.Price != nil && *p.Price < 0 {
		httpx.Error(w, http.StatusBadRequest, "price must be no less than 0")
		return
	}

	product, err := h.Store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			httpx.Error(w, http.StatusNotFound, "product not found")
			return
		}
		h.Logger.Error("get product", "err", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	if p.Name != "" {
		product.Name = p.Name
	}
	if p.Description != nil {
		product.Description = *p.Description
	}
	if p.Price != nil {
		product.Price = *p.Price
	}
	if p.Image != nil {
		product.Image = *p.Image
	}
	if p.Category != "" {
		product.Category = p.Category
	}
	product.UpdatedAt = time.Now().UTC()

	if err := h.Store.Update(r.Context(), product); err != nil {
		if errors.Is(err, ErrProductNotFound) {
			httpx.Error(w, http.StatusNotFound, "product not found")
			return
		}
		h.Logger.Error("update product", "err", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, product)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if uuid.Validate(id) != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.Store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrProductNotFound) {
			httpx.Error(w, http.StatusNotFound, "product not found")
			return
		}
		h.Logger.Error("delete product", "err", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "message": "product deleted"})
}
