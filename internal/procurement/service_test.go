package procurement

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/audit"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/inventory"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/inventory/inventorytest"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/rbac"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/shared"
)

type memoryProcRepo struct {
	mu        sync.Mutex
	ledger    *inventorytest.Ledger
	products  map[int64]inventory.ProductRef
	locations map[int64]inventory.Location
	suppliers map[int64]bool
	grns      map[int64]GoodsReceipt
	nextID    int64
}

type memoryProcTx struct {
	*inventorytest.Ledger
	repo *memoryProcRepo
}

func newMemoryProcRepo() *memoryProcRepo {
	r := &memoryProcRepo{
		ledger:    inventorytest.NewLedger(),
		products:  map[int64]inventory.ProductRef{},
		locations: map[int64]inventory.Location{},
		suppliers: map[int64]bool{4: true},
		grns:      map[int64]GoodsReceipt{},
	}
	r.products[1] = inventory.ProductRef{ID: 1, SKU: "SOFA-3S"}
	r.products[2] = inventory.ProductRef{ID: 2, SKU: "TEAK-TBL"}
	r.products[3] = inventory.ProductRef{ID: 3, SKU: "OLD-CHAIR", IsDeleted: true}
	godown := inventory.Location{Code: "godown", IsActive: true}
	godown.ID = 10
	closed := inventory.Location{Code: "annex", IsActive: false}
	closed.ID = 11
	r.locations[godown.ID] = godown
	r.locations[closed.ID] = closed
	return r
}

func (r *memoryProcRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := r.ledger.Clone()
	grns := make(map[int64]GoodsReceipt, len(r.grns))
	for k, v := range r.grns {
		grns[k] = v
	}
	nextID := r.nextID
	if err := fn(ctx, &memoryProcTx{Ledger: r.ledger, repo: r}); err != nil {
		r.ledger.Restore(snap)
		r.grns = grns
		r.nextID = nextID
		return err
	}
	return nil
}

func (r *memoryProcRepo) GetGRN(ctx context.Context, id int64) (GoodsReceipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.grns[id]
	if !ok || g.IsDeleted {
		return GoodsReceipt{}, shared.ErrNotFound
	}
	return g, nil
}

func (r *memoryProcRepo) ListGRNs(ctx context.Context, filter GRNFilter, page shared.PageRequest) ([]GoodsReceipt, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []GoodsReceipt{}
	for _, g := range r.grns {
		if filter.Status == "" || g.Status == filter.Status {
			out = append(out, g)
		}
	}
	return out, len(out), nil
}

func (t *memoryProcTx) GetProduct(ctx context.Context, id int64) (inventory.ProductRef, error) {
	p, ok := t.repo.products[id]
	if !ok {
		return inventory.ProductRef{}, fmt.Errorf("%w: product", shared.ErrNotFound)
	}
	return p, nil
}

func (t *memoryProcTx) GetLocation(ctx context.Context, id int64) (inventory.Location, error) {
	loc, ok := t.repo.locations[id]
	if !ok {
		return inventory.Location{}, fmt.Errorf("%w: location", shared.ErrNotFound)
	}
	return loc, nil
}

func (t *memoryProcTx) SupplierActive(ctx context.Context, id int64) (bool, error) {
	return t.repo.suppliers[id], nil
}

func (t *memoryProcTx) DraftExists(ctx context.Context, signature string, excludeID int64) (bool, error) {
	for _, g := range t.repo.grns {
		if g.ID != excludeID && g.ItemSignature == signature && g.Status == GRNStatusDraft {
			return true, nil
		}
	}
	return false, nil
}

func (t *memoryProcTx) InsertGRN(ctx context.Context, g GoodsReceipt) (GoodsReceipt, error) {
	t.repo.nextID++
	g.ID = t.repo.nextID
	g.Version = 1
	for i := range g.Items {
		g.Items[i].GRNID = g.ID
		g.Items[i].ID = int64(i + 1)
	}
	t.repo.grns[g.ID] = g
	return g, nil
}

func (t *memoryProcTx) GetGRNForUpdate(ctx context.Context, id int64) (GoodsReceipt, error) {
	g, ok := t.repo.grns[id]
	if !ok {
		return GoodsReceipt{}, fmt.Errorf("%w: grn", shared.ErrNotFound)
	}
	return g, nil
}

func (t *memoryProcTx) UpdateDraft(ctx context.Context, g GoodsReceipt) (GoodsReceipt, error) {
	return t.SetStatus(ctx, g, GRNStatusDraft)
}

func (t *memoryProcTx) SetStatus(ctx context.Context, g GoodsReceipt, from GRNStatus) (GoodsReceipt, error) {
	cur, ok := t.repo.grns[g.ID]
	if !ok || cur.Version != g.Version || cur.Status != from || cur.IsDeleted {
		return GoodsReceipt{}, shared.ErrVersionConflict
	}
	g.Touch(time.Now())
	t.repo.grns[g.ID] = g
	return g, nil
}

var clerk = shared.Actor{ID: 3, Username: "meena", Role: shared.RoleInventory}

func newTestService(repo *memoryProcRepo) *Service {
	return NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func supplier(id int64) *int64 { return &id }

func sampleInput() CreateGRNInput {
	return CreateGRNInput{
		SupplierID: supplier(4),
		LocationID: 10,
		Items: []GRNLineInput{
			{ProductID: 1, Quantity: 5, UnitCost: decimal.RequireFromString("30000")},
			{ProductID: 2, Quantity: 2, UnitCost: decimal.RequireFromString("12500.505")},
		},
	}
}

func TestVerifyGRNReceivesEveryLine(t *testing.T) {
	repo := newMemoryProcRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	g, err := svc.CreateGRN(ctx, clerk, sampleInput())
	require.NoError(t, err)
	assert.Equal(t, GRNStatusDraft, g.Status)
	assert.Len(t, g.ItemSignature, 64)
	assert.Equal(t, "12500.51", g.Items[1].UnitCost.StringFixed(2))
	assert.Empty(t, repo.ledger.Movements)

	verified, err := svc.VerifyGRN(ctx, clerk, g.ID, g.Version)
	require.NoError(t, err)
	assert.Equal(t, GRNStatusVerified, verified.Status)
	assert.Equal(t, g.Version+1, verified.Version)
	require.NotNil(t, verified.VerifiedBy)
	assert.Equal(t, clerk.ID, *verified.VerifiedBy)

	assert.Equal(t, int64(5), repo.ledger.Balance(1, 10))
	assert.Equal(t, int64(2), repo.ledger.Balance(2, 10))
	movements := repo.ledger.MovementsFor(inventory.ReferenceGRN, g.ID)
	require.Len(t, movements, 2)
	for _, m := range movements {
		assert.Equal(t, inventory.MovementStockIn, m.MovementType)
		assert.Equal(t, "meena", m.ActorName)
	}
	require.NoError(t, repo.ledger.Verify())

	acts := repo.ledger.ActivitiesWith(audit.EventGRNVerified)
	require.Len(t, acts, 1)
	assert.Contains(t, acts[0].Message, "(2 lines received)")

	_, err = svc.VerifyGRN(ctx, clerk, g.ID, verified.Version)
	require.ErrorIs(t, err, shared.ErrInvalidState)
	_, err = svc.CancelGRN(ctx, clerk, g.ID, verified.Version)
	require.ErrorIs(t, err, shared.ErrInvalidState)
	assert.Len(t, repo.ledger.Movements, 2)
}

func TestVerifyGRNRollsBackOnLineFailure(t *testing.T) {
	repo := newMemoryProcRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	g, err := svc.CreateGRN(ctx, clerk, sampleInput())
	require.NoError(t, err)

	boom := errors.New("disk full")
	repo.ledger.FailMovement = func(m inventory.Movement) error {
		if m.ProductID == 2 {
			return boom
		}
		return nil
	}
	_, err = svc.VerifyGRN(ctx, clerk, g.ID, g.Version)
	require.ErrorIs(t, err, boom)

	assert.Zero(t, repo.ledger.Balance(1, 10))
	assert.Empty(t, repo.ledger.Movements)
	assert.Equal(t, GRNStatusDraft, repo.grns[g.ID].Status)
	assert.Equal(t, g.Version, repo.grns[g.ID].Version)

	repo.ledger.FailMovement = nil
	_, err = svc.VerifyGRN(ctx, clerk, g.ID, g.Version)
	require.NoError(t, err)
	assert.Equal(t, int64(5), repo.ledger.Balance(1, 10))
}

func TestVerifyGRNRejectsStaleVersion(t *testing.T) {
	repo := newMemoryProcRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	g, err := svc.CreateGRN(ctx, clerk, sampleInput())
	require.NoError(t, err)
	update := UpdateGRNInput{Version: g.Version, CreateGRNInput: sampleInput()}
	update.Items = update.Items[:1]
	updated, err := svc.UpdateGRN(ctx, clerk, g.ID, update)
	require.NoError(t, err)
	require.Len(t, updated.Items, 1)
	assert.NotEqual(t, g.ItemSignature, updated.ItemSignature)

	_, err = svc.VerifyGRN(ctx, clerk, g.ID, g.Version)
	require.ErrorIs(t, err, shared.ErrVersionConflict)
	assert.Empty(t, repo.ledger.Movements)
}

func TestCreateGRNRejectsDuplicateDraft(t *testing.T) {
	repo := newMemoryProcRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	first, err := svc.CreateGRN(ctx, clerk, sampleInput())
	require.NoError(t, err)

	reordered := sampleInput()
	reordered.Items[0], reordered.Items[1] = reordered.Items[1], reordered.Items[0]
	_, err = svc.CreateGRN(ctx, clerk, reordered)
	require.ErrorIs(t, err, shared.ErrDuplicate)

	otherSupplier := sampleInput()
	otherSupplier.SupplierID = nil
	_, err = svc.CreateGRN(ctx, clerk, otherSupplier)
	require.NoError(t, err)

	_, err = svc.CancelGRN(ctx, clerk, first.ID, first.Version)
	require.NoError(t, err)
	_, err = svc.CreateGRN(ctx, clerk, reordered)
	require.NoError(t, err)
}

func TestCreateGRNValidation(t *testing.T) {
	svc := newTestService(newMemoryProcRepo())
	ctx := context.Background()

	cases := map[string]struct {
		mutate func(*CreateGRNInput)
		want   error
	}{
		"no lines":          {func(in *CreateGRNInput) { in.Items = nil }, shared.ErrValidation},
		"zero quantity":     {func(in *CreateGRNInput) { in.Items[0].Quantity = 0 }, shared.ErrValidation},
		"negative cost":     {func(in *CreateGRNInput) { in.Items[0].UnitCost = decimal.NewFromInt(-1) }, shared.ErrValidation},
		"repeated product":  {func(in *CreateGRNInput) { in.Items[1].ProductID = 1 }, shared.ErrValidation},
		"inactive product":  {func(in *CreateGRNInput) { in.Items[0].ProductID = 3 }, shared.ErrValidation},
		"unknown product":   {func(in *CreateGRNInput) { in.Items[0].ProductID = 99 }, shared.ErrNotFound},
		"inactive location": {func(in *CreateGRNInput) { in.LocationID = 11 }, shared.ErrValidation},
		"unknown supplier":  {func(in *CreateGRNInput) { in.SupplierID = supplier(8) }, shared.ErrNotFound},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			in := sampleInput()
			tc.mutate(&in)
			_, err := svc.CreateGRN(ctx, clerk, in)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func newTestRouter(repo *memoryProcRepo, actor shared.Actor) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, NewService(repo, logger), rbac.Middleware{Logger: logger})
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithActor(req.Context(), actor)))
		})
	})
	r.Route("/grns", h.MountRoutes)
	return r
}

func TestGRNRoutes(t *testing.T) {
	repo := newMemoryProcRepo()
	router := newTestRouter(repo, clerk)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/grns",
		strings.NewReader(`{"supplier_id":4,"location_id":10,"items":[{"product_id":1,"quantity":3,"unit_cost":"100"}]}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/grns/1/verify", strings.NewReader(`{"version":2}`)))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/grns/1/verify", strings.NewReader(`{"version":1}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(3), repo.ledger.Balance(1, 10))

	sales := newTestRouter(repo, shared.Actor{ID: 9, Username: "raj", Role: shared.RoleSales})
	rec = httptest.NewRecorder()
	sales.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/grns/1/cancel", strings.NewReader(`{"version":2}`)))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	sales.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/grns/1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
