package catalog

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/burgerverse/internal/domain"
	"github.com/joao-fontenele/burgerverse/internal/web"
)

func newTestHandler(t *testing.T, store Store) *Handler {
	t.Helper()
	renderer, err := web.NewRenderer(discardLogger())
	require.NoError(t, err)
	return NewHandler(NewService(store, nil, discardLogger()), renderer, discardLogger())
}

func TestHandler_Menu(t *testing.T) {
	whopper := domain.Product{ID: uuid.New(), Name: "Whopper", Description: "Flame grilled", Price: decimal.RequireFromString("6.5")}
	h := newTestHandler(t, newFakeStore(whopper))

	rec := httptest.NewRecorder()
	h.HandleMenu(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Burgers")
	assert.Contains(t, body, "Whopper")
	assert.Contains(t, body, "$6.50")
	assert.Contains(t, body, "/orders/add/"+whopper.ID.String()+"/")
	assert.Contains(t, body, "Log in")
}

func TestHandler_MenuError(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("db down")
	h := newTestHandler(t, store)

	rec := httptest.NewRecorder()
	h.HandleMenu(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
