package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"pcp/internal/domain/plan"
	"pcp/internal/domain/planning"
)

// CreatePlanRequest opens a weekly plan.
type CreatePlanRequest struct {
	RefYear   int    `json:"refYear" binding:"required"`
	RefWeek   int    `json:"refWeek" binding:"required"`
	CreatedBy string `json:"createdBy"`
}

// ListPlansQuery filters plan listings.
type ListPlansQuery struct {
	RefYear *int   `form:"refYear"`
	Status  string `form:"status" binding:"omitempty,oneof=DRAFT CALCULATING FROZEN RELEASED"`
	Limit   int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset  int    `form:"offset" binding:"omitempty,min=0"`
}

// ToFilter converts the query into a repository filter.
func (q ListPlansQuery) ToFilter() plan.ListFilter {
	f := plan.ListFilter{RefYear: q.RefYear, Limit: q.Limit, Offset: q.Offset}
	if q.Status != "" {
		s := plan.Status(q.Status)
		f.Status = &s
	}
	return f
}

// PlanResponse is a plan header.
type PlanResponse struct {
	PlanID    int64     `json:"planId"`
	RefYear   int       `json:"refYear"`
	RefWeek   int       `json:"refWeek"`
	Status    string    `json:"status"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// FromPlan creates PlanResponse from plan.Plan.
func FromPlan(p *plan.Plan) PlanResponse {
	return PlanResponse{
		PlanID:    p.ID,
		RefYear:   p.RefYear,
		RefWeek:   p.RefWeek,
		Status:    string(p.Status),
		CreatedBy: p.CreatedBy,
		CreatedAt: p.CreatedAt,
	}
}

// PlanStatusResponse is the lightweight status poll answer.
type PlanStatusResponse struct {
	PlanID int64  `json:"planId"`
	Status string `json:"status"`
}

// ForecastItem is one forecast line.
type ForecastItem struct {
	ItemCode    string          `json:"itemCode" binding:"required"`
	ForecastQty decimal.Decimal `json:"forecastQty"`
}

// ReplaceForecastRequest replaces the whole plan forecast.
type ReplaceForecastRequest struct {
	Items []ForecastItem `json:"items" binding:"required,dive"`
}

// ToEntries converts the request into forecast entries.
func (r ReplaceForecastRequest) ToEntries() []planning.ForecastEntry {
	out := make([]planning.ForecastEntry, 0, len(r.Items))
	for _, it := range r.Items {
		out = append(out, planning.ForecastEntry{ItemCode: it.ItemCode, ForecastQty: it.ForecastQty})
	}
	return out
}

// StockItem is one stock snapshot line.
type StockItem struct {
	ItemCode string          `json:"itemCode" binding:"required"`
	Qty      decimal.Decimal `json:"qty"`
	Unit     string          `json:"unit"`
}

// StockSnapshotRequest captures stock for one item kind.
type StockSnapshotRequest struct {
	ItemKind string      `json:"itemKind" binding:"required,oneof=PROD MAT"`
	Source   string      `json:"source"`
	Items    []StockItem `json:"items" binding:"required,min=1,dive"`
}

// ToEntries converts the request into snapshot entries.
func (r StockSnapshotRequest) ToEntries() []planning.StockSnapshotEntry {
	out := make([]planning.StockSnapshotEntry, 0, len(r.Items))
	for _, it := range r.Items {
		out = append(out, planning.StockSnapshotEntry{
			ItemCode: it.ItemCode,
			Kind:     planning.ItemKind(r.ItemKind),
			Qty:      it.Qty,
			Unit:     it.Unit,
		})
	}
	return out
}

// AdjustmentItem is one manual correction.
type AdjustmentItem struct {
	ItemCode      string          `json:"itemCode" binding:"required"`
	AdjustmentQty decimal.Decimal `json:"adjustmentQty"`
}

// AdjustmentsRequest appends corrections for one item kind.
type AdjustmentsRequest struct {
	ItemKind string           `json:"itemKind" binding:"required,oneof=PROD MAT"`
	Items    []AdjustmentItem `json:"items" binding:"required,min=1,dive"`
}

// ToEntries converts the request into adjustment entries.
func (r AdjustmentsRequest) ToEntries() []planning.AdjustmentEntry {
	out := make([]planning.AdjustmentEntry, 0, len(r.Items))
	for _, it := range r.Items {
		out = append(out, planning.AdjustmentEntry{ItemCode: it.ItemCode, AdjustmentQty: it.AdjustmentQty})
	}
	return out
}

// MaterialRequirementsQuery filters material results by kind.
type MaterialRequirementsQuery struct {
	Type string `form:"type" binding:"omitempty,oneof=MP EMB"`
}
