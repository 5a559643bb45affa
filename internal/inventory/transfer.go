package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/audit"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/shared"
)

// CreateTransfer opens a pending transfer after checking the source holds
// enough stock. An identical pending request is rejected as a duplicate.
func (s *Service) CreateTransfer(ctx context.Context, actor shared.Actor, input TransferInput) (StockTransfer, error) {
	if input.ProductID <= 0 || input.FromLocationID <= 0 || input.ToLocationID <= 0 {
		return StockTransfer{}, shared.Validationf("product and locations are required")
	}
	if input.Quantity <= 0 {
		return StockTransfer{}, shared.Validationf("quantity must be positive")
	}
	if input.FromLocationID == input.ToLocationID {
		return StockTransfer{}, shared.Validationf("source and destination must differ")
	}
	signature, err := shared.Signature(transferSignature{
		ProductID:      input.ProductID,
		Quantity:       input.Quantity,
		FromLocationID: input.FromLocationID,
		ToLocationID:   input.ToLocationID,
	})
	if err != nil {
		return StockTransfer{}, err
	}

	var out StockTransfer
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		product, err := tx.GetProduct(ctx, input.ProductID)
		if err != nil {
			return err
		}
		if product.IsDeleted {
			return shared.Validationf("product %s is inactive", product.SKU)
		}
		from, err := requireActiveLocation(ctx, tx, input.FromLocationID)
		if err != nil {
			return err
		}
		to, err := requireActiveLocation(ctx, tx, input.ToLocationID)
		if err != nil {
			return err
		}
		available, err := tx.CurrentQuantity(ctx, input.ProductID, input.FromLocationID)
		if err != nil {
			return err
		}
		if available < input.Quantity {
			return fmt.Errorf("%w: %s holds %d of %s, requested %d",
				shared.ErrInsufficientStock, from.Code, available, product.SKU, input.Quantity)
		}
		dup, err := tx.PendingTransferExists(ctx, signature)
		if err != nil {
			return err
		}
		if dup {
			return fmt.Errorf("%w: identical transfer already pending", shared.ErrDuplicate)
		}
		created, err := tx.InsertTransfer(ctx, StockTransfer{
			ProductID:      input.ProductID,
			Quantity:       input.Quantity,
			FromLocationID: input.FromLocationID,
			ToLocationID:   input.ToLocationID,
			Status:         TransferPending,
			Note:           input.Note,
			ItemSignature:  signature,
			TransferredBy:  actor.UserID(),
		})
		if err != nil {
			return err
		}
		out = created
		return audit.Emit(ctx, tx, actor, audit.EventTransferCreated, map[string]any{
			"transfer_id": created.ID,
			"quantity":    created.Quantity,
			"product_id":  created.ProductID,
			"from":        from.Code,
			"to":          to.Code,
		})
	})
	return out, err
}

// CompleteTransfer posts both ledger legs and marks the transfer completed.
// Stock is re-checked at this point; any failure rolls back both legs.
func (s *Service) CompleteTransfer(ctx context.Context, actor shared.Actor, id int64) (StockTransfer, error) {
	var out StockTransfer
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		t, err := tx.GetTransferForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if t.Status != TransferPending {
			return shared.InvalidStatef("transfer %d is %s", t.ID, t.Status)
		}
		if _, err := ApplyMovement(ctx, tx, actor, MovementInput{
			ProductID:      t.ProductID,
			LocationID:     t.FromLocationID,
			QuantityChange: -t.Quantity,
			MovementType:   MovementTransferOut,
			ReferenceType:  ReferenceTransfer,
			ReferenceID:    t.ID,
		}); err != nil {
			return err
		}
		if _, err := ApplyMovement(ctx, tx, actor, MovementInput{
			ProductID:      t.ProductID,
			LocationID:     t.ToLocationID,
			QuantityChange: t.Quantity,
			MovementType:   MovementTransferIn,
			ReferenceType:  ReferenceTransfer,
			ReferenceID:    t.ID,
		}); err != nil {
			return err
		}
		now := time.Now().UTC()
		t.Status = TransferCompleted
		t.CompletedBy = actor.UserID()
		t.CompletedAt = &now
		updated, err := tx.UpdateTransferStatus(ctx, t)
		if err != nil {
			return err
		}
		out = updated
		return audit.Emit(ctx, tx, actor, audit.EventTransferCompleted, map[string]any{"transfer_id": t.ID})
	})
	return out, err
}

// CancelTransfer closes a pending transfer without touching stock.
func (s *Service) CancelTransfer(ctx context.Context, actor shared.Actor, id int64) (StockTransfer, error) {
	var out StockTransfer
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		t, err := tx.GetTransferForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if t.Status != TransferPending {
			return shared.InvalidStatef("transfer %d is %s", t.ID, t.Status)
		}
		now := time.Now().UTC()
		t.Status = TransferCancelled
		t.CancelledBy = actor.UserID()
		t.CancelledAt = &now
		updated, err := tx.UpdateTransferStatus(ctx, t)
		if err != nil {
			return err
		}
		out = updated
		return audit.Emit(ctx, tx, actor, audit.EventTransferCancelled, map[string]any{"transfer_id": t.ID})
	})
	return out, err
}

// GetTransfer loads one transfer.
func (s *Service) GetTransfer(ctx context.Context, id int64) (StockTransfer, error) {
	return s.repo.GetTransfer(ctx, id)
}

// ListTransfers lists transfers.
func (s *Service) ListTransfers(ctx context.Context, filter TransferFilter) ([]StockTransfer, error) {
	return s.repo.ListTransfers(ctx, filter)
}
