package quotations

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/audit"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/sales/customers"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/sales/shared"
	coreshared "github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/shared"
)

type memoryRepo struct {
	mu         sync.Mutex
	customers  map[int64]customers.Customer
	prices     map[int64]decimal.Decimal
	quotations map[int64]Quotation
	activities []audit.Activity
	nextID     int64
}

type memoryTx struct{ repo *memoryRepo }

func newMemoryRepo() *memoryRepo {
	r := &memoryRepo{
		customers:  map[int64]customers.Customer{},
		prices:     map[int64]decimal.Decimal{1: decimal.NewFromInt(1000), 2: decimal.NewFromInt(250)},
		quotations: map[int64]Quotation{},
	}
	local := customers.Customer{Name: "Asha", State: "Karnataka"}
	local.ID = 1
	remote := customers.Customer{Name: "Ravi", State: "Kerala"}
	remote.ID = 2
	r.customers[1] = local
	r.customers[2] = remote
	return r
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot := make(map[int64]Quotation, len(r.quotations))
	for k, v := range r.quotations {
		snapshot[k] = v
	}
	activities := len(r.activities)
	if err := fn(ctx, memoryTx{repo: r}); err != nil {
		r.quotations = snapshot
		r.activities = r.activities[:activities]
		return err
	}
	return nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Quotation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.quotations[id]
	if !ok || q.IsDeleted {
		return Quotation{}, coreshared.ErrNotFound
	}
	return q, nil
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter, page coreshared.PageRequest) ([]Quotation, int, error) {
	return nil, 0, nil
}

func (t memoryTx) InsertActivity(ctx context.Context, a audit.Activity) error {
	t.repo.activities = append(t.repo.activities, a)
	return nil
}

func (t memoryTx) Customer(ctx context.Context, id int64) (customers.Customer, error) {
	c, ok := t.repo.customers[id]
	if !ok {
		return customers.Customer{}, coreshared.ErrNotFound
	}
	return c, nil
}

func (t memoryTx) ProductPrice(ctx context.Context, productID int64) (decimal.Decimal, error) {
	p, ok := t.repo.prices[productID]
	if !ok {
		return decimal.Zero, coreshared.ErrNotFound
	}
	return p, nil
}

func (t memoryTx) DuplicateExists(ctx context.Context, customerID int64, signature string, excludeID int64) (bool, error) {
	for _, q := range t.repo.quotations {
		if q.ID != excludeID && !q.IsDeleted && q.CustomerID == customerID && q.ItemSignature == signature &&
			(q.Status == StatusDraft || q.Status == StatusApproved) {
			return true, nil
		}
	}
	return false, nil
}

func (t memoryTx) Get(ctx context.Context, id int64) (Quotation, error) {
	q, ok := t.repo.quotations[id]
	if !ok {
		return Quotation{}, coreshared.ErrNotFound
	}
	return q, nil
}

func (t memoryTx) Insert(ctx context.Context, q Quotation) (Quotation, error) {
	t.repo.nextID++
	q.ID = t.repo.nextID
	q.Version = 1
	t.repo.quotations[q.ID] = q
	return q, nil
}

func (t memoryTx) guard(q Quotation, from Status) error {
	cur, ok := t.repo.quotations[q.ID]
	if !ok || cur.IsDeleted || cur.Version != q.Version || cur.Status != from {
		return coreshared.ErrVersionConflict
	}
	return nil
}

func (t memoryTx) UpdateDraft(ctx context.Context, q Quotation) (Quotation, error) {
	if err := t.guard(q, StatusDraft); err != nil {
		return Quotation{}, err
	}
	q.Touch(time.Now())
	t.repo.quotations[q.ID] = q
	return q, nil
}

func (t memoryTx) SetStatus(ctx context.Context, q Quotation, from Status) (Quotation, error) {
	if err := t.guard(q, from); err != nil {
		return Quotation{}, err
	}
	q.Touch(time.Now())
	t.repo.quotations[q.ID] = q
	return q, nil
}

func (t memoryTx) expire(q Quotation, today time.Time) (Quotation, bool) {
	if q.IsDeleted || q.Status != StatusApproved || !q.ValidUntil.Before(today) {
		return q, false
	}
	q.Status = StatusExpired
	q.Touch(time.Now())
	t.repo.quotations[q.ID] = q
	return q, true
}

func (t memoryTx) Expire(ctx context.Context, id, version int64, today time.Time) (Quotation, error) {
	q := t.repo.quotations[id]
	if q.Version != version {
		return Quotation{}, coreshared.ErrVersionConflict
	}
	out, ok := t.expire(q, today)
	if !ok {
		return Quotation{}, coreshared.ErrVersionConflict
	}
	return out, nil
}

func (t memoryTx) ExpireDue(ctx context.Context, today time.Time) ([]Quotation, error) {
	var out []Quotation
	for _, q := range t.repo.quotations {
		if expired, ok := t.expire(q, today); ok {
			out = append(out, expired)
		}
	}
	return out, nil
}

var (
	seller = coreshared.Actor{ID: 4, Username: "neha", Role: coreshared.RoleSales}
	fixed  = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
)

func newTestService(repo *memoryRepo) *Service {
	svc := NewService(repo, shared.GST{Rate: decimal.NewFromInt(18), HomeState: "Karnataka"},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.now = func() time.Time { return fixed }
	return svc
}

func createRequest(customerID int64, qty int64) CreateQuotationRequest {
	return CreateQuotationRequest{
		CustomerID: customerID,
		ValidUntil: "2026-05-20",
		Items:      []shared.LineInput{{ProductID: 1, Quantity: qty}, {ProductID: 2, Quantity: 2}},
	}
}

func TestCreateSplitsGSTByCustomerState(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	intra, err := svc.Create(ctx, seller, createRequest(1, 1))
	require.NoError(t, err)
	assert.False(t, intra.IsInterState)
	assert.Equal(t, "1500.00", intra.Subtotal.StringFixed(2))
	assert.Equal(t, "135.00", intra.CGST.StringFixed(2))
	assert.Equal(t, "135.00", intra.SGST.StringFixed(2))
	assert.True(t, intra.IGST.IsZero())
	assert.Equal(t, "1770.00", intra.TotalAmount.StringFixed(2))
	assert.True(t, intra.Breakup.Consistent(intra.IsInterState))

	inter, err := svc.Create(ctx, seller, createRequest(2, 1))
	require.NoError(t, err)
	assert.True(t, inter.IsInterState)
	assert.Equal(t, "270.00", inter.IGST.StringFixed(2))
	assert.True(t, inter.CGST.IsZero())
	assert.True(t, inter.Breakup.Consistent(inter.IsInterState))

	require.Len(t, repo.activities, 2)
	assert.Equal(t, "neha created quotation "+intra.QuotationNumber+" for 1,770.00", repo.activities[0].Message)
}

func TestCreateRejectsDuplicateOpenQuotation(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	first, err := svc.Create(ctx, seller, createRequest(1, 3))
	require.NoError(t, err)
	_, err = svc.Create(ctx, seller, createRequest(1, 3))
	require.ErrorIs(t, err, coreshared.ErrDuplicate)

	_, err = svc.Cancel(ctx, seller, first.ID, first.Version)
	require.NoError(t, err)
	_, err = svc.Create(ctx, seller, createRequest(1, 3))
	require.NoError(t, err)
}

func TestCreateRejectsPastValidity(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	req := createRequest(1, 1)
	req.ValidUntil = "2026-05-09"
	_, err := svc.Create(context.Background(), seller, req)
	require.ErrorIs(t, err, coreshared.ErrValidation)
}

func TestApproveRace(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	q, err := svc.Create(ctx, seller, createRequest(1, 1))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Approve(ctx, seller, q.ID, q.Version)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, coreshared.ErrVersionConflict)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, q.Version+1, repo.quotations[q.ID].Version)
	assert.Equal(t, StatusApproved, repo.quotations[q.ID].Status)
}

func TestUpdateDraftOnly(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	q, err := svc.Create(ctx, seller, createRequest(1, 1))
	require.NoError(t, err)

	updated, err := svc.UpdateDraft(ctx, seller, q.ID, UpdateQuotationRequest{
		Version: q.Version, ValidUntil: "2026-05-25", Items: []shared.LineInput{{ProductID: 2, Quantity: 4}},
	})
	require.NoError(t, err)
	assert.Equal(t, "1000.00", updated.Subtotal.StringFixed(2))
	assert.Len(t, updated.Items, 1)

	approved, err := svc.Approve(ctx, seller, q.ID, updated.Version)
	require.NoError(t, err)
	_, err = svc.UpdateDraft(ctx, seller, q.ID, UpdateQuotationRequest{
		Version: approved.Version, ValidUntil: "2026-05-25", Items: []shared.LineInput{{ProductID: 2, Quantity: 1}},
	})
	require.ErrorIs(t, err, coreshared.ErrInvalidState)
	require.ErrorIs(t, svc.Delete(ctx, seller, q.ID, approved.Version), coreshared.ErrInvalidState)
}

func TestExpireDueIsIdempotent(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	q, err := svc.Create(ctx, seller, createRequest(1, 1))
	require.NoError(t, err)
	q, err = svc.Approve(ctx, seller, q.ID, q.Version)
	require.NoError(t, err)
	lapsed := repo.quotations[q.ID]
	lapsed.ValidUntil = time.Date(2026, 5, 9, 0, 0, 0, 0, time.UTC)
	repo.quotations[q.ID] = lapsed
	before := len(repo.activities)

	n, err := svc.ExpireDue(ctx, fixed)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	got := repo.quotations[q.ID]
	assert.Equal(t, StatusExpired, got.Status)
	assert.Equal(t, q.Version+1, got.Version)
	require.Len(t, repo.activities, before+1)
	act := repo.activities[before]
	assert.Nil(t, act.UserID)
	assert.Equal(t, "system", act.Username)
	assert.Contains(t, act.Message, q.QuotationNumber)

	n, err = svc.ExpireDue(ctx, fixed)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, repo.activities, before+1)
}

func TestExpireRequiresLapsedApproval(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	q, err := svc.Create(ctx, seller, createRequest(1, 1))
	require.NoError(t, err)
	q, err = svc.Approve(ctx, seller, q.ID, q.Version)
	require.NoError(t, err)

	_, err = svc.Expire(ctx, seller, q.ID, q.Version)
	require.ErrorIs(t, err, coreshared.ErrInvalidState)

	svc.now = func() time.Time { return fixed.AddDate(0, 1, 0) }
	expired, err := svc.Expire(ctx, seller, q.ID, q.Version)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, expired.Status)
}

func TestCreateValidityFollowsBusinessZone(t *testing.T) {
	lateEvening := time.Date(2026, 5, 10, 20, 0, 0, 0, time.UTC)
	req := createRequest(1, 1)
	req.ValidUntil = "2026-05-10"

	utc := newTestService(newMemoryRepo())
	utc.now = func() time.Time { return lateEvening }
	_, err := utc.Create(context.Background(), seller, req)
	require.NoError(t, err)

	ist := newTestService(newMemoryRepo()).WithLocation(time.FixedZone("IST", 5*3600+1800))
	ist.now = func() time.Time { return lateEvening }
	_, err = ist.Create(context.Background(), seller, req)
	require.ErrorIs(t, err, coreshared.ErrValidation)
}
