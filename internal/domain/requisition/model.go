// Package requisition drafts purchase requisitions from the net material
// requirements of a frozen plan.
package requisition

import (
	"time"

	"github.com/shopspring/decimal"

	"pcp/internal/domain/planning"
)

// Status is the requisition delivery state.
type Status string

const (
	StatusDraft Status = "DRAFT"
	StatusSent  Status = "SENT"
	StatusError Status = "ERROR"
)

// Requisition is a purchase request for one material kind of one plan.
type Requisition struct {
	ID           int64                 `db:"requisition_id" json:"id"`
	Number       string                `db:"numero" json:"number"`
	PlanID       int64                 `db:"plan_id" json:"planId"`
	Kind         planning.MaterialKind `db:"tipo" json:"reqType"`
	Status       Status                `db:"status" json:"status"`
	ERPRequestID *string               `db:"erp_request_id" json:"erpRequestId"`
	CreatedBy    string                `db:"criado_por" json:"createdBy"`
	CreatedAt    time.Time             `db:"criado_em" json:"createdAt"`
	Lines        []Line                `db:"-" json:"lines"`
}

// Line requests the net quantity of one material.
type Line struct {
	MaterialID   int64           `db:"material_id" json:"materialId"`
	MaterialCode string          `db:"erp_item_code" json:"materialCode"`
	Qty          decimal.Decimal `db:"qty" json:"qty"`
	Unit         string          `db:"unidade" json:"unit"`
}

// Total sums line quantities regardless of unit.
func (r *Requisition) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range r.Lines {
		total = total.Add(l.Qty)
	}
	return total
}
