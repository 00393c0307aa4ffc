// Package users exposes the admin-only user management API on top of the
// auth credential store.
package users

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"

	"tiendacore/internal/auth"
	"tiendacore/internal/httpx"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

type Handler struct {
	Store  auth.UserStore
	Logger *slog.Logger
}

type listResponse struct {
	Items []auth.User `json:"items"`
	Total int         `json:"total"`
	Page  int         `json:"page"`
	Pages int         `json:"pages"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page := 1
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 1 {
		page = n
	}
	limit := defaultPageSize
	if n, err := strconv.Atoi(q.Get("limit")); err == nil {
		// An explicit value clamps to [1, maxPageSize]; limit=0 means 1,
		// not the default.
		limit = n
		if limit < 1 {
			limit = 1
		}
		if limit > maxPageSize {
			limit = maxPageSize
		}
	}

	filter := auth.ListFilter{
		Query:  q.Get("q"),
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
	if role := auth.Role(q.Get("role")); auth.ValidRole(role) {
		filter.Role = role
	}

	items, total, err := h.Store.List(r.Context(), filter)
	if err != nil {
		h.Logger.Error("list users", "err", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, listResponse{
		Items: items,
		Total: total,
		Page:  page,
		Pages: (total + limit - 1) / limit,
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if uuid.Validate(id) != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid id")
		return
	}
	user, err := h.Store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			httpx.Error(w, http.StatusNotFound, "user not found")
			return
		}
		h.Logger.Error("get user", "err", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, user)
}

type createPayload struct {
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Password string    `json:"password"`
	Role     auth.Role `json:"role"`
}

func (p createPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required),
		validation.Field(&p.Email, validation.Required, is.Email),
		validation.Field(&p.Password, validation.Required, validation.Length(6, 72)),
	)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var p createPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		httpx.Error(w, http.StatusBadRequest, "malformed request body")
		return
	}
	p.Email = auth.NormalizeEmail(p.Email)
	if err := p.Validate(); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if p.Role == "" {
		p.Role = auth.RoleUser
	}
	if !auth.ValidRole(p.Role) {
		httpx.Error(w, http.StatusBadRequest, "invalid role")
		return
	}

	hash, err := auth.HashPassword(p.Password)
	if err != nil {
		h.Logger.Error("hash password", "err", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	now := time.Now().UTC()
	user := &auth.User{
		ID:           uuid.NewString(),
		Name:         p.Name,
		Email:        p.Email,
		PasswordHash: hash,
		Role:         p.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.Store.Create(r.Context(), user); err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			httpx.Error(w, http.StatusConflict, "email already registered")
			return
		}
		h.Logger.Error("create user", "err", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, user)
}

type updatePayload struct {
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Password string    `json:"password"`
	Role     auth.Role `json:"role"`
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if uuid.Validate(id) != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid id")
		return
	}
	var p updatePayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		httpx.Error(w, http.StatusBadRequest, "malformed request body")
		return
	}

	user, err := h.Store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			httpx.Error(w, http.StatusNotFound, "user not found")
			return
		}
		h.Logger.Error("get user", "err", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	if p.Name != "" {
		user.Name = p.Name
	}
	if p.Email != "" {
		user.Email = auth.NormalizeEmail(p.Email)
	}
	if p.Role != "" {
		if !auth.ValidRole(p.Role) {
			httpx.Error(w, http.StatusBadRequest, "invalid role")
			return
		}
		user.Role = p.Role
	}
	// Only an explicitly supplied password triggers a re-hash.
	if p.Password != "" {
		hash, err := auth.HashPassword(p.Password)
		if err != nil {
			h.Logger.Error("hash password", "err", err)
			httpx.Error(w, http.StatusInternalServerError, "internal error")
			return
		}
		user.PasswordHash = hash
	}
	user.UpdatedAt = time.Now().UTC()

	if err := h.Store.Update(r.Context(), user); err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailTaken):
			httpx.Error(w, http.StatusConflict, "email already in use")
		case errors.Is(err, auth.ErrUserNotFound):
			httpx.Error(w, http.StatusNotFound, "user not found")
		default:
			h.Logger.Error("update user", "err", err)
			httpx.Error(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	httpx.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if uuid.Validate(id) != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid id")
		return
	}
	actor, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "invalid or missing token")
		return
	}
	if actor.ID == id {
		httpx.Error(w, http.StatusBadRequest, auth.ErrSelfDelete.Error())
		return
	}
	if err := h.Store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			httpx.Error(w, http.StatusNotFound, "user not found")
			return
		}
		h.Logger.Error("delete user", "err", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "message": "user deleted"})
}
