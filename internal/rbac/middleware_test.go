package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/shared"
)

func serve(t *testing.T, actor *shared.Actor, roles ...string) int {
	t.Helper()
	h := Middleware{}.RequireAny(roles...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodPost, "/inventory/transfers", nil)
	if actor != nil {
		req = req.WithContext(shared.ContextWithActor(req.Context(), *actor))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr.Code
}

func TestRequireAny(t *testing.T) {
	inventory := shared.Actor{ID: 2, Username: "ravi", Role: shared.RoleInventory}
	sales := shared.Actor{ID: 3, Username: "asha", Role: shared.RoleSales}
	admin := shared.Actor{ID: 1, Username: "root", Role: shared.RoleAdmin}

	assert.Equal(t, http.StatusUnauthorized, serve(t, nil, shared.RoleInventory))
	assert.Equal(t, http.StatusNoContent, serve(t, &inventory, " Inventory "))
	assert.Equal(t, http.StatusForbidden, serve(t, &sales, shared.RoleInventory))
	assert.Equal(t, http.StatusNoContent, serve(t, &admin, shared.RoleInventory))
	assert.Equal(t, http.StatusNoContent, serve(t, &sales))
}
