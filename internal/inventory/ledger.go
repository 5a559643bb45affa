package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/audit"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/platform/db"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/shared"
)

// LedgerTx is the transactional surface the ledger engine writes through.
// Any document workflow that moves stock embeds it in its own transaction.
type LedgerTx interface {
	audit.Writer
	// LockBalance returns the balance row locked for update, creating a zero
	// row first when the pair has never been stocked.
	LockBalance(ctx context.Context, productID, locationID int64) (Balance, error)
	InsertMovement(ctx context.Context, m Movement) (Movement, error)
	UpdateBalance(ctx context.Context, productID, locationID, quantity int64) error
}

// ApplyMovement applies one signed delta to a (product, location) balance and
// appends the ledger row. It never commits; the caller owns tx.
func ApplyMovement(ctx context.Context, tx LedgerTx, actor shared.Actor, in MovementInput) (Movement, error) {
	if err := validateMovement(in); err != nil {
		return Movement{}, err
	}

	bal, err := tx.LockBalance(ctx, in.ProductID, in.LocationID)
	if err != nil {
		return Movement{}, db.TranslateError(fmt.Errorf("inventory: lock balance: %w", err))
	}
	next := bal.Quantity + in.QuantityChange
	if next < 0 {
		return Movement{}, fmt.Errorf("%w: product %d at location %d has %d, needs %d",
			shared.ErrInsufficientStock, in.ProductID, in.LocationID, bal.Quantity, -in.QuantityChange)
	}

	mv, err := tx.InsertMovement(ctx, Movement{
		ProductID:      in.ProductID,
		LocationID:     in.LocationID,
		QuantityChange: in.QuantityChange,
		MovementType:   in.MovementType,
		ReferenceType:  in.ReferenceType,
		ReferenceID:    in.ReferenceID,
		Note:           in.Note,
		ActorID:        actor.UserID(),
		ActorName:      actor.Username,
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		return Movement{}, db.TranslateError(fmt.Errorf("inventory: insert movement: %w", err))
	}
	if err := tx.UpdateBalance(ctx, in.ProductID, in.LocationID, next); err != nil {
		return Movement{}, db.TranslateError(fmt.Errorf("inventory: update balance: %w", err))
	}

	if err := audit.Emit(ctx, tx, actor, audit.EventInventoryMovement, map[string]any{
		"movement_type":  string(in.MovementType),
		"quantity":       in.QuantityChange,
		"product_id":     in.ProductID,
		"location_id":    in.LocationID,
		"reference_type": string(in.ReferenceType),
		"reference_id":   in.ReferenceID,
	}); err != nil {
		return Movement{}, err
	}
	return mv, nil
}

func validateMovement(in MovementInput) error {
	if in.ProductID <= 0 || in.LocationID <= 0 {
		return shared.Validationf("product and location are required")
	}
	if in.QuantityChange == 0 {
		return shared.Validationf("quantity change must be non-zero")
	}
	if !in.ReferenceType.valid() {
		return shared.Validationf("unknown reference type %q", in.ReferenceType)
	}
	if in.ReferenceType != ReferenceAdjustment && in.ReferenceID <= 0 {
		return shared.Validationf("reference id is required for %s", in.ReferenceType)
	}
	switch in.MovementType {
	case MovementStockIn, MovementTransferIn:
		if in.QuantityChange < 0 {
			return shared.Validationf("%s requires a positive quantity", in.MovementType)
		}
	case MovementStockOut, MovementTransferOut:
		if in.QuantityChange > 0 {
			return shared.Validationf("%s requires a negative quantity", in.MovementType)
		}
	case MovementAdjustment:
	default:
		return shared.Validationf("unknown movement type %q", in.MovementType)
	}
	if (in.MovementType == MovementTransferIn || in.MovementType == MovementTransferOut) && in.ReferenceType != ReferenceTransfer {
		return shared.Validationf("%s must reference a transfer", in.MovementType)
	}
	return nil
}
