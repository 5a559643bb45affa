// Package inventorytest provides in-memory ledger fakes for tests of
// packages that move stock.
package inventorytest

import (
	"context"
	"fmt"
	"time"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/audit"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/inventory"
)

// Key identifies a balance row.
type Key struct {
	ProductID  int64
	LocationID int64
}

// Ledger is an in-memory inventory.LedgerTx. It is not safe for concurrent
// use; owners serialise access the way a row lock would.
type Ledger struct {
	Balances   map[Key]int64
	Movements  []inventory.Movement
	Activities []audit.Activity

	// FailMovement, when set, is consulted before each movement insert.
	FailMovement func(inventory.Movement) error

	nextID int64
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{Balances: make(map[Key]int64)}
}

// LockBalance implements inventory.LedgerTx.
func (l *Ledger) LockBalance(_ context.Context, productID, locationID int64) (inventory.Balance, error) {
	k := Key{productID, locationID}
	if _, ok := l.Balances[k]; !ok {
		l.Balances[k] = 0
	}
	return inventory.Balance{ProductID: productID, LocationID: locationID, Quantity: l.Balances[k], UpdatedAt: time.Now()}, nil
}

// InsertMovement implements inventory.LedgerTx.
func (l *Ledger) InsertMovement(_ context.Context, m inventory.Movement) (inventory.Movement, error) {
	if l.FailMovement != nil {
		if err := l.FailMovement(m); err != nil {
			return inventory.Movement{}, err
		}
	}
	l.nextID++
	m.ID = l.nextID
	l.Movements = append(l.Movements, m)
	return m, nil
}

// UpdateBalance implements inventory.LedgerTx.
func (l *Ledger) UpdateBalance(_ context.Context, productID, locationID, quantity int64) error {
	if quantity < 0 {
		return fmt.Errorf("inventorytest: balance check violated for %d/%d", productID, locationID)
	}
	l.Balances[Key{productID, locationID}] = quantity
	return nil
}

// InsertActivity implements audit.Writer.
func (l *Ledger) InsertActivity(_ context.Context, a audit.Activity) error {
	a.ID = int64(len(l.Activities) + 1)
	l.Activities = append(l.Activities, a)
	return nil
}

// Balance returns the stored quantity for a pair.
func (l *Ledger) Balance(productID, locationID int64) int64 {
	return l.Balances[Key{productID, locationID}]
}

// MovementsFor returns ledger rows referencing a document.
func (l *Ledger) MovementsFor(ref inventory.ReferenceType, id int64) []inventory.Movement {
	var out []inventory.Movement
	for _, m := range l.Movements {
		if m.ReferenceType == ref && m.ReferenceID == id {
			out = append(out, m)
		}
	}
	return out
}

// ActivitiesWith returns activity rows with the given event code.
func (l *Ledger) ActivitiesWith(code audit.EventCode) []audit.Activity {
	var out []audit.Activity
	for _, a := range l.Activities {
		if a.EventCode == code {
			out = append(out, a)
		}
	}
	return out
}

// Verify checks every balance equals the signed sum of its movements.
func (l *Ledger) Verify() error {
	sums := make(map[Key]int64)
	for _, m := range l.Movements {
		sums[Key{m.ProductID, m.LocationID}] += m.QuantityChange
	}
	for k, qty := range l.Balances {
		if sums[k] != qty {
			return fmt.Errorf("inventorytest: balance %d/%d is %d, ledger sums to %d", k.ProductID, k.LocationID, qty, sums[k])
		}
		delete(sums, k)
	}
	for k, sum := range sums {
		if sum != 0 {
			return fmt.Errorf("inventorytest: movements for %d/%d without balance row", k.ProductID, k.LocationID)
		}
	}
	return nil
}

// Clone deep-copies the ledger state.
func (l *Ledger) Clone() *Ledger {
	c := &Ledger{
		Balances:     make(map[Key]int64, len(l.Balances)),
		Movements:    append([]inventory.Movement(nil), l.Movements...),
		Activities:   append([]audit.Activity(nil), l.Activities...),
		FailMovement: l.FailMovement,
		nextID:       l.nextID,
	}
	for k, v := range l.Balances {
		c.Balances[k] = v
	}
	return c
}

// Restore replaces state with a snapshot taken by Clone.
func (l *Ledger) Restore(snap *Ledger) {
	l.Balances = snap.Balances
	l.Movements = snap.Movements
	l.Activities = snap.Activities
	l.nextID = snap.nextID
}
