package discounts

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
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/shared"
)

type memoryRepo struct {
	mu         sync.Mutex
	rows       map[int64]Discount
	activities []audit.Activity
	failEmit   bool
}

type memoryTx struct{ repo *memoryRepo }

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{rows: map[int64]Discount{}}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot := make(map[int64]Discount, len(r.rows))
	for k, v := range r.rows {
		snapshot[k] = v
	}
	if err := fn(ctx, memoryTx{repo: r}); err != nil {
		r.rows = snapshot
		return err
	}
	return nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Discount, error) {
	d, ok := r.rows[id]
	if !ok || d.IsDeleted {
		return Discount{}, shared.ErrNotFound
	}
	return d, nil
}

func (r *memoryRepo) List(ctx context.Context, activeOnly bool, page shared.PageRequest) ([]Discount, int, error) {
	return nil, 0, nil
}

func (t memoryTx) InsertActivity(ctx context.Context, a audit.Activity) error {
	if t.repo.failEmit {
		return assert.AnError
	}
	t.repo.activities = append(t.repo.activities, a)
	return nil
}

func (t memoryTx) Get(ctx context.Context, id int64) (Discount, error) {
	d, ok := t.repo.rows[id]
	if !ok {
		return Discount{}, shared.ErrNotFound
	}
	return d, nil
}

func (t memoryTx) Insert(ctx context.Context, d Discount) (Discount, error) {
	for _, existing := range t.repo.rows {
		if existing.Code == d.Code {
			return Discount{}, shared.ErrAlreadyExists
		}
	}
	d.ID = int64(len(t.repo.rows) + 1)
	d.Version = 1
	t.repo.rows[d.ID] = d
	return d, nil
}

func (t memoryTx) Update(ctx context.Context, d Discount) (Discount, error) {
	if cur := t.repo.rows[d.ID]; cur.Version != d.Version || cur.IsDeleted {
		return Discount{}, shared.ErrVersionConflict
	}
	d.Touch(time.Now())
	t.repo.rows[d.ID] = d
	return d, nil
}

func (t memoryTx) batch(match func(Discount) bool, apply func(*Discount)) []Discount {
	var out []Discount
	for id, d := range t.repo.rows {
		if d.IsDeleted || !match(d) {
			continue
		}
		apply(&d)
		d.Touch(time.Now())
		t.repo.rows[id] = d
		out = append(out, d)
	}
	return out
}

func (t memoryTx) ExpireDue(ctx context.Context, today time.Time) ([]Discount, error) {
	return t.batch(func(d Discount) bool { return d.IsActive && d.EndDate.Before(today) },
		func(d *Discount) { d.IsActive = false }), nil
}

func (t memoryTx) ActivateDue(ctx context.Context, today time.Time) ([]Discount, error) {
	return t.batch(func(d Discount) bool { return !d.IsActive && d.InWindow(today) },
		func(d *Discount) { d.IsActive = true }), nil
}

var (
	admin = shared.Actor{ID: 1, Username: "admin", Role: shared.RoleAdmin}
	today = time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
)

func newTestService(repo *memoryRepo) *Service {
	svc := NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.now = func() time.Time { return today.Add(10 * time.Hour) }
	return svc
}

func seed(repo *memoryRepo, code string, start, end time.Time, active bool) Discount {
	d := Discount{Code: code, DiscountType: TypeFlat, Value: decimal.NewFromInt(100), StartDate: start, EndDate: end, IsActive: active}
	d.ID = int64(len(repo.rows) + 1)
	d.Version = 1
	repo.rows[d.ID] = d
	return d
}

func TestExpireDueRunsOnce(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	yesterday := today.AddDate(0, 0, -1)
	d := seed(repo, "MONSOON", today.AddDate(0, -1, 0), yesterday, true)
	seed(repo, "RUNNING", today.AddDate(0, -1, 0), today, true)

	n, err := svc.ExpireDue(context.Background(), today)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.False(t, repo.rows[d.ID].IsActive)
	assert.Equal(t, int64(2), repo.rows[d.ID].Version)
	require.Len(t, repo.activities, 1)
	assert.Nil(t, repo.activities[0].UserID)
	assert.Equal(t, "Discount MONSOON expired on 2026-06-14", repo.activities[0].Message)

	n, err = svc.ExpireDue(context.Background(), today)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, repo.activities, 1)
}

func TestActivateDue(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	starting := seed(repo, "DIWALI", today, today.AddDate(0, 0, 5), false)
	future := seed(repo, "XMAS", today.AddDate(0, 0, 3), today.AddDate(0, 0, 9), false)

	n, err := svc.ActivateDue(context.Background(), today)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, repo.rows[starting.ID].IsActive)
	assert.False(t, repo.rows[future.ID].IsActive)
	assert.Equal(t, "Discount DIWALI became active on 2026-06-15", repo.activities[0].Message)
}

func TestBatchSurvivesActivityFailure(t *testing.T) {
	repo := newMemoryRepo()
	repo.failEmit = true
	svc := newTestService(repo)
	d := seed(repo, "OLD", today.AddDate(0, -2, 0), today.AddDate(0, -1, 0), true)

	n, err := svc.ExpireDue(context.Background(), today)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.False(t, repo.rows[d.ID].IsActive)
}

func TestCreateValidatesAndDerivesActive(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	d, err := svc.Create(ctx, admin, DiscountForm{
		Code: " summer10 ", DiscountType: TypePercentage, Value: decimal.NewFromInt(10),
		StartDate: "2026-06-01", EndDate: "2026-06-30",
	})
	require.NoError(t, err)
	assert.Equal(t, "SUMMER10", d.Code)
	assert.True(t, d.IsActive)

	cases := []DiscountForm{
		{Code: "A", DiscountType: TypePercentage, Value: decimal.NewFromInt(120), StartDate: "2026-06-01", EndDate: "2026-06-30"},
		{Code: "B", DiscountType: TypeFlat, Value: decimal.Zero, StartDate: "2026-06-01", EndDate: "2026-06-30"},
		{Code: "C", DiscountType: TypeFlat, Value: decimal.NewFromInt(5), StartDate: "2026-06-30", EndDate: "2026-06-01"},
		{Code: "D", DiscountType: "bogus", Value: decimal.NewFromInt(5), StartDate: "2026-06-01", EndDate: "2026-06-30"},
	}
	for _, form := range cases {
		_, err := svc.Create(ctx, admin, form)
		assert.ErrorIs(t, err, shared.ErrValidation, form.Code)
	}
}

func TestSetActiveRejectsEndedDiscount(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	d := seed(repo, "GONE", today.AddDate(0, -2, 0), today.AddDate(0, 0, -1), false)
	_, err := svc.SetActive(context.Background(), admin, d.ID, d.Version, true)
	require.ErrorIs(t, err, shared.ErrInvalidState)

	off, err := svc.SetActive(context.Background(), admin, d.ID, d.Version, false)
	require.NoError(t, err)
	assert.Equal(t, int64(2), off.Version)
}

func TestAmountAndUsable(t *testing.T) {
	pct := Discount{DiscountType: TypePercentage, Value: decimal.RequireFromString("12.5")}
	assert.Equal(t, "125.00", pct.Amount(decimal.NewFromInt(1000)).StringFixed(2))
	flat := Discount{DiscountType: TypeFlat, Value: decimal.NewFromInt(500)}
	assert.Equal(t, "300.00", flat.Amount(decimal.NewFromInt(300)).StringFixed(2))

	limit := int64(2)
	d := Discount{Code: "X", IsActive: true, StartDate: today, EndDate: today, UsageLimit: &limit, UsedCount: 2}
	assert.ErrorIs(t, d.Usable(today), shared.ErrInvalidState)
	d.UsedCount = 1
	assert.NoError(t, d.Usable(today))
	assert.ErrorIs(t, d.Usable(today.AddDate(0, 0, 1)), shared.ErrInvalidState)
}

func TestLifecycleStatements(t *testing.T) {
	sql, args := expireDueStatement(today).Build()
	assert.Equal(t, "UPDATE discounts SET is_active = $1, version = version + 1, updated_at = NOW() "+
		"WHERE is_active = true AND is_deleted = false AND end_date < $2 RETURNING "+discountColumns, sql)
	assert.Equal(t, []any{false, today}, args)

	sql, _ = redeemStatement(7).Build()
	assert.Contains(t, sql, "used_count = used_count + 1")
	assert.Contains(t, sql, "(usage_limit IS NULL OR used_count < usage_limit)")
}

func TestCreateJudgesWindowInBusinessZone(t *testing.T) {
	form := DiscountForm{
		Code: "MIDNIGHT", DiscountType: TypeFlat, Value: decimal.NewFromInt(50),
		StartDate: "2026-06-16", EndDate: "2026-06-20",
	}
	lateEvening := today.Add(20 * time.Hour)

	utc := newTestService(newMemoryRepo())
	utc.now = func() time.Time { return lateEvening }
	d, err := utc.Create(context.Background(), admin, form)
	require.NoError(t, err)
	assert.False(t, d.IsActive)

	ist := newTestService(newMemoryRepo()).WithLocation(time.FixedZone("IST", 5*3600+1800))
	ist.now = func() time.Time { return lateEvening }
	d, err = ist.Create(context.Background(), admin, form)
	require.NoError(t, err)
	assert.True(t, d.IsActive)
}
