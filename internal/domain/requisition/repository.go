package requisition

import "context"

// Repository persists requisitions with their lines.
type Repository interface {
	// Create inserts the header and lines, filling ID and CreatedAt.
	Create(ctx context.Context, r *Requisition) error

	// GetByID returns apperror NotFound when the requisition does not exist.
	GetByID(ctx context.Context, id int64) (*Requisition, error)

	ListByPlan(ctx context.Context, planID int64) ([]Requisition, error)
}
