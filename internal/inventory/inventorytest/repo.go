package inventorytest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/inventory"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/shared"
)

// Repo is an in-memory inventory.RepositoryPort. WithTx serialises callers
// and restores every map on error, mirroring a rolled back transaction.
type Repo struct {
	mu sync.Mutex

	Ledger    *Ledger
	Products  map[int64]inventory.ProductRef
	Locations map[int64]inventory.Location
	Transfers map[int64]inventory.StockTransfer

	nextLocationID int64
	nextTransferID int64
}

// NewRepo returns an empty repository.
func NewRepo() *Repo {
	return &Repo{
		Ledger:    NewLedger(),
		Products:  make(map[int64]inventory.ProductRef),
		Locations: make(map[int64]inventory.Location),
		Transfers: make(map[int64]inventory.StockTransfer),
	}
}

// AddProduct seeds a live product.
func (r *Repo) AddProduct(id int64, sku string) {
	r.Products[id] = inventory.ProductRef{ID: id, SKU: sku, Name: sku}
}

type tx struct {
	*Ledger
	repo *Repo
}

// WithTx implements inventory.RepositoryPort.
func (r *Repo) WithTx(ctx context.Context, fn func(context.Context, inventory.TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := r.snapshot()
	if err := fn(ctx, &tx{Ledger: r.Ledger, repo: r}); err != nil {
		r.restore(snap)
		return err
	}
	return nil
}

type repoSnapshot struct {
	ledger         *Ledger
	products       map[int64]inventory.ProductRef
	locations      map[int64]inventory.Location
	transfers      map[int64]inventory.StockTransfer
	nextLocationID int64
	nextTransferID int64
}

func (r *Repo) snapshot() repoSnapshot {
	s := repoSnapshot{
		ledger:         r.Ledger.Clone(),
		products:       make(map[int64]inventory.ProductRef, len(r.Products)),
		locations:      make(map[int64]inventory.Location, len(r.Locations)),
		transfers:      make(map[int64]inventory.StockTransfer, len(r.Transfers)),
		nextLocationID: r.nextLocationID,
		nextTransferID: r.nextTransferID,
	}
	for k, v := range r.Products {
		s.products[k] = v
	}
	for k, v := range r.Locations {
		s.locations[k] = v
	}
	for k, v := range r.Transfers {
		s.transfers[k] = v
	}
	return s
}

func (r *Repo) restore(s repoSnapshot) {
	r.Ledger.Restore(s.ledger)
	r.Products = s.products
	r.Locations = s.locations
	r.Transfers = s.transfers
	r.nextLocationID = s.nextLocationID
	r.nextTransferID = s.nextTransferID
}

func (t *tx) GetProduct(_ context.Context, id int64) (inventory.ProductRef, error) {
	p, ok := t.repo.Products[id]
	if !ok {
		return inventory.ProductRef{}, fmt.Errorf("%w: product", shared.ErrNotFound)
	}
	return p, nil
}

func (t *tx) GetLocation(_ context.Context, id int64) (inventory.Location, error) {
	loc, ok := t.repo.Locations[id]
	if !ok {
		return inventory.Location{}, fmt.Errorf("%w: location", shared.ErrNotFound)
	}
	return loc, nil
}

func (t *tx) InsertLocation(_ context.Context, loc inventory.Location) (inventory.Location, error) {
	for _, existing := range t.repo.Locations {
		if existing.Code == loc.Code {
			return inventory.Location{}, fmt.Errorf("%w (inventory_locations_code_key)", shared.ErrAlreadyExists)
		}
	}
	t.repo.nextLocationID++
	now := time.Now().UTC()
	loc.ID = t.repo.nextLocationID
	loc.Version = 1
	loc.CreatedAt, loc.UpdatedAt = now, now
	t.repo.Locations[loc.ID] = loc
	return loc, nil
}

func (t *tx) UpdateLocation(_ context.Context, loc inventory.Location) (inventory.Location, error) {
	current, ok := t.repo.Locations[loc.ID]
	if !ok || current.IsDeleted || current.Version != loc.Version {
		return inventory.Location{}, shared.ErrVersionConflict
	}
	for id, existing := range t.repo.Locations {
		if id != loc.ID && existing.Code == loc.Code {
			return inventory.Location{}, fmt.Errorf("%w (inventory_locations_code_key)", shared.ErrAlreadyExists)
		}
	}
	loc.Touch(time.Now().UTC())
	t.repo.Locations[loc.ID] = loc
	return loc, nil
}

func (t *tx) CurrentQuantity(_ context.Context, productID, locationID int64) (int64, error) {
	return t.Ledger.Balance(productID, locationID), nil
}

func (t *tx) PendingTransferExists(_ context.Context, signature string) (bool, error) {
	for _, tr := range t.repo.Transfers {
		if tr.ItemSignature == signature && tr.Status == inventory.TransferPending {
			return true, nil
		}
	}
	return false, nil
}

func (t *tx) InsertTransfer(ctx context.Context, in inventory.StockTransfer) (inventory.StockTransfer, error) {
	if dup, _ := t.PendingTransferExists(ctx, in.ItemSignature); dup {
		return inventory.StockTransfer{}, fmt.Errorf("%w: identical transfer already pending", shared.ErrDuplicate)
	}
	t.repo.nextTransferID++
	now := time.Now().UTC()
	in.ID = t.repo.nextTransferID
	in.Version = 1
	in.CreatedAt, in.UpdatedAt = now, now
	t.repo.Transfers[in.ID] = in
	return in, nil
}

func (t *tx) GetTransferForUpdate(_ context.Context, id int64) (inventory.StockTransfer, error) {
	tr, ok := t.repo.Transfers[id]
	if !ok || tr.IsDeleted {
		return inventory.StockTransfer{}, fmt.Errorf("%w: stock transfer", shared.ErrNotFound)
	}
	return tr, nil
}

func (t *tx) UpdateTransferStatus(_ context.Context, in inventory.StockTransfer) (inventory.StockTransfer, error) {
	current, ok := t.repo.Transfers[in.ID]
	if !ok || current.Version != in.Version {
		return inventory.StockTransfer{}, shared.ErrVersionConflict
	}
	in.Touch(time.Now().UTC())
	t.repo.Transfers[in.ID] = in
	return in, nil
}

// GetTransfer implements inventory.RepositoryPort.
func (r *Repo) GetTransfer(_ context.Context, id int64) (inventory.StockTransfer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tr, ok := r.Transfers[id]
	if !ok {
		return inventory.StockTransfer{}, fmt.Errorf("%w: stock transfer", shared.ErrNotFound)
	}
	return tr, nil
}

// ListTransfers implements inventory.RepositoryPort.
func (r *Repo) ListTransfers(_ context.Context, filter inventory.TransferFilter) ([]inventory.StockTransfer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []inventory.StockTransfer{}
	for _, tr := range r.Transfers {
		if filter.Status != "" && tr.Status != filter.Status {
			continue
		}
		if filter.ProductID > 0 && tr.ProductID != filter.ProductID {
			continue
		}
		out = append(out, tr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// ListLocations implements inventory.RepositoryPort.
func (r *Repo) ListLocations(_ context.Context) ([]inventory.Location, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []inventory.Location{}
	for _, loc := range r.Locations {
		out = append(out, loc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// ListBalances implements inventory.RepositoryPort.
func (r *Repo) ListBalances(_ context.Context, filter inventory.BalanceFilter) ([]inventory.Balance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []inventory.Balance{}
	for k, qty := range r.Ledger.Balances {
		if filter.ProductID > 0 && k.ProductID != filter.ProductID {
			continue
		}
		if filter.LocationID > 0 && k.LocationID != filter.LocationID {
			continue
		}
		out = append(out, inventory.Balance{ProductID: k.ProductID, LocationID: k.LocationID, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProductID == out[j].ProductID {
			return out[i].LocationID < out[j].LocationID
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out, nil
}

// ListMovements implements inventory.RepositoryPort.
func (r *Repo) ListMovements(_ context.Context, productID, locationID int64, _ int) ([]inventory.Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []inventory.Movement{}
	for _, m := range r.Ledger.Movements {
		if m.ProductID == productID && m.LocationID == locationID {
			out = append(out, m)
		}
	}
	return out, nil
}

// StockSummary implements inventory.RepositoryPort.
func (r *Repo) StockSummary(_ context.Context) ([]inventory.SummaryRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	codes := make(map[int64]string, len(r.Locations))
	for id, loc := range r.Locations {
		codes[id] = strings.ToLower(loc.Code)
	}
	out := []inventory.SummaryRow{}
	for _, p := range r.Products {
		if p.IsDeleted {
			continue
		}
		row := inventory.SummaryRow{ProductID: p.ID, SKU: p.SKU, Name: p.Name}
		for k, qty := range r.Ledger.Balances {
			if k.ProductID != p.ID {
				continue
			}
			switch codes[k.LocationID] {
			case inventory.LocationGodown:
				row.Godown += qty
			case inventory.LocationShowroom:
				row.Showroom += qty
			}
		}
		row.Total = row.Godown + row.Showroom
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}
