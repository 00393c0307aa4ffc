package users

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tiendacore/internal/auth"
)

func newTestHandler() (*Handler, *auth.MemStore) {
	store := auth.NewMemStore()
	h := &Handler{
		Store:  store,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return h, store
}

func seedUser(t *testing.T, store *auth.MemStore, name, email string, role auth.Role, created time.Time) *auth.User {
	t.Helper()
	u := &auth.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: "$2a$10$fakefakefakefakefakefake",
		Role:         role,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	require.NoError(t, store.Create(context.Background(), u))
	return u
}

type listBody struct {
	Items []auth.User `json:"items"`
	Total int         `json:"total"`
	Page  int         `json:"page"`
	Pages int         `json:"pages"`
}

func doList(t *testing.T, h *Handler, query string) listBody {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/users"+query, nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var body listBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestListPagination(t *testing.T) {
	h, store := newTestHandler()
	base := time.Now().UTC()
	for i := 0; i < 25; i++ {
		seedUser(t, store, fmt.Sprintf("user-%02d", i), fmt.Sprintf("u%02d@x.com", i),
			auth.RoleUser, base.Add(time.Duration(i)*time.Second))
	}

	page1 := doList(t, h, "?page=1&limit=10")
	assert.Len(t, page1.Items, 10)
	assert.Equal(t, 25, page1.Total)
	assert.Equal(t, 1, page1.Page)
	assert.Equal(t, 3, page1.Pages)

	page3 := doList(t, h, "?page=3&limit=10")
	assert.Len(t, page3.Items, 5)

	// Past the end: empty items, same page math.
	page4 := doList(t, h, "?page=4&limit=10")
	assert.Empty(t, page4.Items)
	assert.Equal(t, 3, page4.Pages)
	assert.Equal(t, 25, page4.Total)
}

func TestListLimitCapped(t *testing.T) {
	h, store := newTestHandler()
	base := time.Now().UTC()
	for i := 0; i < 120; i++ {
		seedUser(t, store, fmt.Sprintf("user-%03d", i), fmt.Sprintf("u%03d@x.com", i),
			auth.RoleUser, base.Add(time.Duration(i)*time.Second))
	}

	body := doList(t, h, "?limit=500")
	assert.Len(t, body.Items, 100)
	assert.Equal(t, 120, body.Total)
	assert.Equal(t, 2, body.Pages)
}

func TestListLimitClampedLow(t *testing.T) {
	h, store := newTestHandler()
	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		seedUser(t, store, fmt.Sprintf("user-%d", i), fmt.Sprintf("u%d@x.com", i),
			auth.RoleUser, base.Add(time.Duration(i)*time.Second))
	}

	// Explicit zero clamps to one item per page; absent falls back to 10.
	zero := doList(t, h, "?limit=0")
	assert.Len(t, zero.Items, 1)
	assert.Equal(t, 3, zero.Pages)

	missing := doList(t, h, "")
	assert.Len(t, missing.Items, 3)
	assert.Equal(t, 1, missing.Pages)
}

func TestListQueryAndRoleFilter(t *testing.T) {
	h, store := newTestHandler()
	now := time.Now().UTC()
	seedUser(t, store, "Ana Torres", "ana@x.com", auth.RoleUser, now)
	seedUser(t, store, "Benito", "ben@x.com", auth.RoleAdmin, now.Add(time.Second))
	seedUser(t, store, "Carla", "carla@anamail.com", auth.RoleUser, now.Add(2*time.Second))

	// Case-insensitive substring over name OR email.
	byQuery := doList(t, h, "?q=ANA")
	assert.Equal(t, 2, byQuery.Total)

	byRole := doList(t, h, "?role=admin")
	require.Equal(t, 1, byRole.Total)
	assert.Equal(t, "Benito", byRole.Items[0].Name)

	// Unknown role values are ignored rather than erroring.
	all := doList(t, h, "?role=superuser")
	assert.Equal(t, 3, all.Total)
}

func TestListNeverExposesPasswordHash(t *testing.T) {
	h, store := newTestHandler()
	seedUser(t, store, "Ana", "ana@x.com", auth.RoleUser, time.Now().UTC())

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")
	assert.NotContains(t, rec.Body.String(), "$2a$")
}

func TestGetUser(t *testing.T) {
	h, store := newTestHandler()
	u := seedUser(t, store, "Ana", "ana@x.com", auth.RoleUser, time.Now().UTC())

	t.Run("ok", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/users/"+u.ID, nil)
		req.SetPathValue("id", u.ID)
		rec := httptest.NewRecorder()
		h.Get(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/users/nope", nil)
		req.SetPathValue("id", "nope")
		rec := httptest.NewRecorder()
		h.Get(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing", func(t *testing.T) {
		id := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/api/users/"+id, nil)
		req.SetPathValue("id", id)
		rec := httptest.NewRecorder()
		h.Get(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCreateUser(t *testing.T) {
	h, store := newTestHandler()

	t.Run("defaults to user role", func(t *testing.T) {
		body := `{"name":"Ana","email":"ana@x.com","password":"secret123"}`
		req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.Create(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)

		u, err := store.GetByEmail(context.Background(), "ana@x.com")
		require.NoError(t, err)
		assert.Equal(t, auth.RoleUser, u.Role)
	})

	t.Run("duplicate email", func(t *testing.T) {
		body := `{"name":"Ana 2","email":"ANA@x.com","password":"secret123"}`
		req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.Create(rec, req)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("invalid role", func(t *testing.T) {
		body := `{"name":"Eve","email":"eve@x.com","password":"secret123","role":"root"}`
		req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.Create(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(`{"name":"X"}`))
		rec := httptest.NewRecorder()
		h.Create(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUpdateUser(t *testing.T) {
	h, store := newTestHandler()
	now := time.Now().UTC()
	u := seedUser(t, store, "Ana", "ana@x.com", auth.RoleUser, now)
	seedUser(t, store, "Ben", "ben@x.com", auth.RoleUser, now)

	t.Run("role and name", func(t *testing.T) {
		body := `{"name":"Ana Prime","role":"admin"}`
		req := httptest.NewRequest(http.MethodPut, "/api/users/"+u.ID, strings.NewReader(body))
		req.SetPathValue("id", u.ID)
		rec := httptest.NewRecorder()
		h.Update(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		got, err := store.GetByID(context.Background(), u.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ana Prime", got.Name)
		assert.Equal(t, auth.RoleAdmin, got.Role)
	})

	t.Run("password rehash only when supplied", func(t *testing.T) {
		before, err := store.GetByID(context.Background(), u.ID)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPut, "/api/users/"+u.ID, strings.NewReader(`{"name":"Ana Again"}`))
		req.SetPathValue("id", u.ID)
		rec := httptest.NewRecorder()
		h.Update(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		after, err := store.GetByID(context.Background(), u.ID)
		require.NoError(t, err)
		assert.Equal(t, before.PasswordHash, after.PasswordHash)

		req = httptest.NewRequest(http.MethodPut, "/api/users/"+u.ID, strings.NewReader(`{"password":"newsecret1"}`))
		req.SetPathValue("id", u.ID)
		rec = httptest.NewRecorder()
		h.Update(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		changed, err := store.GetByID(context.Background(), u.ID)
		require.NoError(t, err)
		assert.NotEqual(t, before.PasswordHash, changed.PasswordHash)
	})

	t.Run("email collision", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/api/users/"+u.ID, strings.NewReader(`{"email":"ben@x.com"}`))
		req.SetPathValue("id", u.ID)
		rec := httptest.NewRecorder()
		h.Update(rec, req)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("invalid role", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/api/users/"+u.ID, strings.NewReader(`{"role":"root"}`))
		req.SetPathValue("id", u.ID)
		rec := httptest.NewRecorder()
		h.Update(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestDeleteUser(t *testing.T) {
	h, store := newTestHandler()
	now := time.Now().UTC()
	admin := seedUser(t, store, "Admin One", "a1@x.com", auth.RoleAdmin, now)
	other := seedUser(t, store, "Admin Two", "a2@x.com", auth.RoleAdmin, now)

	asAdmin := func(r *http.Request) *http.Request {
		return r.WithContext(auth.WithIdentity(r.Context(), auth.Identity{ID: admin.ID, Role: auth.RoleAdmin}))
	}

	t.Run("self deletion forbidden", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/users/"+admin.ID, nil)
		req.SetPathValue("id", admin.ID)
		rec := httptest.NewRecorder()
		h.Delete(rec, asAdmin(req))
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		_, err := store.GetByID(context.Background(), admin.ID)
		require.NoError(t, err)
	})

	t.Run("deleting another admin succeeds", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/users/"+other.ID, nil)
		req.SetPathValue("id", other.ID)
		rec := httptest.NewRecorder()
		h.Delete(rec, asAdmin(req))
		require.Equal(t, http.StatusOK, rec.Code)

		_, err := store.GetByID(context.Background(), other.ID)
		require.ErrorIs(t, err, auth.ErrUserNotFound)
	})

	t.Run("missing user", func(t *testing.T) {
		id := uuid.NewString()
		req := httptest.NewRequest(http.MethodDelete, "/api/users/"+id, nil)
		req.SetPathValue("id", id)
		rec := httptest.NewRecorder()
		h.Delete(rec, asAdmin(req))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
