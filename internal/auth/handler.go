package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"tiendacore/internal/httpx"
)

type Handler struct {
	Svc    *Service
	Store  UserStore
	Logger *slog.Logger
}

type sessionResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

type registerPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (p registerPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required),
		validation.Field(&p.Email, validation.Required, is.Email),
		validation.Field(&p.Password, validation.Required, validation.Length(6, 72)),
	)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var p registerPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		httpx.Error(w, http.StatusBadRequest, "malformed request body")
		return
	}
	// Normalize before validating so case/space variants of a valid address
	// pass format checks and collide on uniqueness instead.
	p.Email = NormalizeEmail(p.Email)
	if err := p.Validate(); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	user, token, err := h.Svc.Register(r.Context(), p.Name, p.Email, p.Password)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			httpx.Error(w, http.StatusConflict, "email already registered")
			return
		}
		h.Logger.Error("register user", "err", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, sessionResponse{Token: token, User: user})
}

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (p loginPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required),
		validation.Field(&p.Password, validation.Required),
	)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var p loginPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		httpx.Error(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := p.Validate(); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	user, token, err := h.Svc.Authenticate(r.Context(), p.Email, p.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			httpx.Error(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.Logger.Error("login", "err", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sessionResponse{Token: token, User: user})
}

// Me is the session bootstrap endpoint: clients trade a stored token for the
// current identity on every page load. Read-only, no server-side state.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "invalid or missing token")
		return
	}
	user, err := h.Store.GetByID(r.Context(), id.ID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			httpx.Error(w, http.StatusNotFound, "user not found")
			return
		}
		h.Logger.Error("load current user", "err", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, user)
}
