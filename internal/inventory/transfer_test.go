package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/audit"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/inventory"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/inventory/inventorytest"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/shared"
)

type fixture struct {
	repo     *inventorytest.Repo
	svc      *inventory.Service
	godown   inventory.Location
	showroom inventory.Location
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	repo := inventorytest.NewRepo()
	repo.AddProduct(7, "SOFA-3S")
	svc := inventory.NewService(repo)
	ctx := context.Background()
	admin := shared.Actor{ID: 1, Username: "admin", Role: shared.RoleAdmin}
	godown, err := svc.CreateLocation(ctx, admin, inventory.LocationInput{Code: " GODOWN ", Name: "Main Godown"})
	require.NoError(t, err)
	showroom, err := svc.CreateLocation(ctx, admin, inventory.LocationInput{Code: "showroom", Name: "Showroom"})
	require.NoError(t, err)
	return fixture{repo: repo, svc: svc, godown: godown, showroom: showroom}
}

func (f fixture) receive(t *testing.T, qty int64) {
	t.Helper()
	err := f.repo.WithTx(context.Background(), func(ctx context.Context, tx inventory.TxRepository) error {
		_, err := inventory.ApplyMovement(ctx, tx, clerk, inventory.MovementInput{
			ProductID: 7, LocationID: f.godown.ID, QuantityChange: qty,
			MovementType: inventory.MovementStockIn, ReferenceType: inventory.ReferenceGRN, ReferenceID: 1,
		})
		return err
	})
	require.NoError(t, err)
}

func (f fixture) transferInput(qty int64) inventory.TransferInput {
	return inventory.TransferInput{ProductID: 7, Quantity: qty, FromLocationID: f.godown.ID, ToLocationID: f.showroom.ID}
}

func TestCreateLocationLowercasesCode(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, "godown", f.godown.Code)
	assert.Equal(t, int64(1), f.godown.Version)

	_, err := f.svc.CreateLocation(context.Background(), clerk, inventory.LocationInput{Code: "Godown", Name: "dup"})
	require.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestScenarioStockInThenTransfer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, 50)
	assert.Equal(t, int64(50), f.repo.Ledger.Balance(7, f.godown.ID))
	require.Len(t, f.repo.Ledger.Movements, 1)

	tr, err := f.svc.CreateTransfer(ctx, clerk, f.transferInput(20))
	require.NoError(t, err)
	assert.Equal(t, inventory.TransferPending, tr.Status)
	assert.Len(t, tr.ItemSignature, 64)

	done, err := f.svc.CompleteTransfer(ctx, clerk, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, inventory.TransferCompleted, done.Status)
	assert.Equal(t, tr.Version+1, done.Version)
	require.NotNil(t, done.CompletedBy)
	assert.Equal(t, clerk.ID, *done.CompletedBy)

	assert.Equal(t, int64(30), f.repo.Ledger.Balance(7, f.godown.ID))
	assert.Equal(t, int64(20), f.repo.Ledger.Balance(7, f.showroom.ID))
	legs := f.repo.Ledger.MovementsFor(inventory.ReferenceTransfer, tr.ID)
	require.Len(t, legs, 2)
	assert.Equal(t, inventory.MovementTransferOut, legs[0].MovementType)
	assert.Equal(t, int64(-20), legs[0].QuantityChange)
	assert.Equal(t, inventory.MovementTransferIn, legs[1].MovementType)
	assert.Equal(t, int64(20), legs[1].QuantityChange)
	require.NoError(t, f.repo.Ledger.Verify())

	summary, err := f.svc.StockSummary(ctx)
	require.NoError(t, err)
	require.Len(t, summary, 1)
	assert.Equal(t, int64(30), summary[0].Godown)
	assert.Equal(t, int64(20), summary[0].Showroom)
	assert.Equal(t, int64(50), summary[0].Total)
}

func TestCreateTransferRejectsInsufficientStock(t *testing.T) {
	f := newFixture(t)
	f.receive(t, 30)

	_, err := f.svc.CreateTransfer(context.Background(), clerk, f.transferInput(100))
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
	assert.Empty(t, f.repo.Transfers)
	assert.Empty(t, f.repo.Ledger.ActivitiesWith(audit.EventTransferCreated))
}

func TestCreateTransferValidation(t *testing.T) {
	f := newFixture(t)
	f.receive(t, 10)
	ctx := context.Background()

	same := f.transferInput(1)
	same.ToLocationID = f.godown.ID
	_, err := f.svc.CreateTransfer(ctx, clerk, same)
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.svc.CreateTransfer(ctx, clerk, f.transferInput(0))
	require.ErrorIs(t, err, shared.ErrValidation)

	missing := f.transferInput(1)
	missing.ProductID = 99
	_, err = f.svc.CreateTransfer(ctx, clerk, missing)
	require.ErrorIs(t, err, shared.ErrNotFound)

	admin := shared.Actor{ID: 1, Username: "admin", Role: shared.RoleAdmin}
	_, err = f.svc.DeactivateLocation(ctx, admin, f.showroom.ID, f.showroom.Version)
	require.NoError(t, err)
	_, err = f.svc.CreateTransfer(ctx, clerk, f.transferInput(1))
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestDuplicatePendingTransferGuard(t *testing.T) {
	f := newFixture(t)
	f.receive(t, 50)
	ctx := context.Background()

	first, err := f.svc.CreateTransfer(ctx, clerk, f.transferInput(5))
	require.NoError(t, err)
	_, err = f.svc.CreateTransfer(ctx, clerk, f.transferInput(5))
	require.ErrorIs(t, err, shared.ErrDuplicate)
	require.ErrorIs(t, err, shared.ErrConflict)

	_, err = f.svc.CancelTransfer(ctx, clerk, first.ID)
	require.NoError(t, err)
	second, err := f.svc.CreateTransfer(ctx, clerk, f.transferInput(5))
	require.NoError(t, err)
	assert.Equal(t, first.ItemSignature, second.ItemSignature)

	_, err = f.svc.CompleteTransfer(ctx, clerk, second.ID)
	require.NoError(t, err)
	_, err = f.svc.CreateTransfer(ctx, clerk, f.transferInput(5))
	require.NoError(t, err)
}

func TestTerminalTransfersRejectTransitions(t *testing.T) {
	f := newFixture(t)
	f.receive(t, 50)
	ctx := context.Background()

	tr, err := f.svc.CreateTransfer(ctx, clerk, f.transferInput(5))
	require.NoError(t, err)
	_, err = f.svc.CompleteTransfer(ctx, clerk, tr.ID)
	require.NoError(t, err)

	_, err = f.svc.CompleteTransfer(ctx, clerk, tr.ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)
	_, err = f.svc.CancelTransfer(ctx, clerk, tr.ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)
	assert.Len(t, f.repo.Ledger.MovementsFor(inventory.ReferenceTransfer, tr.ID), 2)

	cancelled, err := f.svc.CreateTransfer(ctx, clerk, f.transferInput(6))
	require.NoError(t, err)
	out, err := f.svc.CancelTransfer(ctx, clerk, cancelled.ID)
	require.NoError(t, err)
	require.NotNil(t, out.CancelledBy)
	assert.Empty(t, f.repo.Ledger.MovementsFor(inventory.ReferenceTransfer, cancelled.ID))
	_, err = f.svc.CompleteTransfer(ctx, clerk, cancelled.ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestCompleteTransferRechecksStock(t *testing.T) {
	f := newFixture(t)
	f.receive(t, 10)
	ctx := context.Background()

	tr, err := f.svc.CreateTransfer(ctx, clerk, f.transferInput(8))
	require.NoError(t, err)
	admin := shared.Actor{ID: 1, Username: "admin", Role: shared.RoleAdmin}
	_, err = f.svc.Adjust(ctx, admin, inventory.AdjustmentInput{
		ProductID: 7, LocationID: f.godown.ID, QuantityChange: -5, Note: "damaged",
	})
	require.NoError(t, err)

	_, err = f.svc.CompleteTransfer(ctx, clerk, tr.ID)
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
	stored, err := f.svc.GetTransfer(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, inventory.TransferPending, stored.Status)
	assert.Equal(t, int64(5), f.repo.Ledger.Balance(7, f.godown.ID))
	require.NoError(t, f.repo.Ledger.Verify())
}

func TestCompleteTransferRollsBackFirstLegOnFailure(t *testing.T) {
	f := newFixture(t)
	f.receive(t, 10)
	ctx := context.Background()

	tr, err := f.svc.CreateTransfer(ctx, clerk, f.transferInput(4))
	require.NoError(t, err)
	before := f.repo.Ledger.Clone()

	boom := errors.New("disk full")
	f.repo.Ledger.FailMovement = func(m inventory.Movement) error {
		if m.MovementType == inventory.MovementTransferIn {
			return boom
		}
		return nil
	}
	_, err = f.svc.CompleteTransfer(ctx, clerk, tr.ID)
	require.ErrorIs(t, err, boom)

	assert.Equal(t, before.Balances, f.repo.Ledger.Balances)
	assert.Equal(t, before.Movements, f.repo.Ledger.Movements)
	assert.Equal(t, inventory.TransferPending, f.repo.Transfers[tr.ID].Status)
	require.NoError(t, f.repo.Ledger.Verify())
}

func TestConcurrentTransfersNeverOverdraw(t *testing.T) {
	f := newFixture(t)
	f.receive(t, 10)
	ctx := context.Background()

	var ids []int64
	for i := int64(1); i <= 3; i++ {
		tr, err := f.svc.CreateTransfer(ctx, clerk, f.transferInput(i+2))
		require.NoError(t, err)
		ids = append(ids, tr.ID)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures int
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			if _, err := f.svc.CompleteTransfer(ctx, clerk, id); err != nil {
				mu.Lock()
				failures++
				mu.Unlock()
				assert.ErrorIs(t, err, shared.ErrInsufficientStock)
			}
		}(id)
	}
	wg.Wait()

	assert.GreaterOrEqual(t, failures, 1)
	assert.GreaterOrEqual(t, f.repo.Ledger.Balance(7, f.godown.ID), int64(0))
	assert.Equal(t, int64(10), f.repo.Ledger.Balance(7, f.godown.ID)+f.repo.Ledger.Balance(7, f.showroom.ID))
	require.NoError(t, f.repo.Ledger.Verify())
}

func TestLocationOptimisticLockRace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := shared.Actor{ID: 1, Username: "admin", Role: shared.RoleAdmin}

	names := []string{"Back Godown", "Front Godown"}
	errs := make([]error, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			_, errs[i] = f.svc.UpdateLocation(ctx, admin, f.godown.ID, f.godown.Version, inventory.LocationInput{Code: "godown", Name: name})
		}(i, name)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, shared.ErrVersionConflict)
	}
	assert.Equal(t, 1, wins)
	stored := f.repo.Locations[f.godown.ID]
	assert.Equal(t, f.godown.Version+1, stored.Version)
	assert.Contains(t, names, stored.Name)
}

func TestAdjustRequiresNote(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Adjust(context.Background(), clerk, inventory.AdjustmentInput{ProductID: 7, LocationID: f.godown.ID, QuantityChange: 2})
	require.ErrorIs(t, err, shared.ErrValidation)
}
