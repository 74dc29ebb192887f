// Package plan provides the weekly production plan: its lifecycle, its
// captured inputs (forecast, stock snapshot, adjustments) and the MRP
// recalculation that replaces its results.
package plan

import (
	"context"
	"strings"
	"time"

	"pcp/internal/core/apperror"
	"pcp/internal/domain/planning"
)

// Status is the plan lifecycle state.
type Status string

const (
	StatusDraft       Status = "DRAFT"       // inputs editable, recalculation allowed
	StatusCalculating Status = "CALCULATING" // recalculation running
	StatusFrozen      Status = "FROZEN"      // results fixed for requisitions
	StatusReleased    Status = "RELEASED"    // handed over to procurement
)

// allowedTransitions lists manual status moves. CALCULATING is entered and
// left only by Recalculate.
var allowedTransitions = map[Status][]Status{
	StatusDraft:  {StatusFrozen},
	StatusFrozen: {StatusDraft, StatusReleased},
}

// CanTransition reports whether a manual move from s to to is allowed.
func (s Status) CanTransition(to Status) bool {
	for _, next := range allowedTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Plan is one weekly planning cycle.
type Plan struct {
	ID        int64     `db:"plan_id" json:"planId"`
	RefYear   int       `db:"ref_year" json:"refYear"`
	RefWeek   int       `db:"ref_week" json:"refWeek"`
	Status    Status    `db:"status" json:"status"`
	CreatedBy string    `db:"criado_por" json:"createdBy"`
	CreatedAt time.Time `db:"criado_em" json:"createdAt"`
	UpdatedAt time.Time `db:"atualizado_em" json:"updatedAt"`
}

// staleCalculation reports whether a CALCULATING plan has held the status
// longer than lease, which means the run that set it is gone.
func (p *Plan) staleCalculation(now time.Time, lease time.Duration) bool {
	return p.Status == StatusCalculating && !p.UpdatedAt.IsZero() && now.Sub(p.UpdatedAt) > lease
}

// Validate checks the fields a planner supplies on creation.
func (p *Plan) Validate(_ context.Context) error {
	if p.RefYear < 2020 || p.RefYear > 2100 {
		return apperror.NewValidation("refYear must be between 2020 and 2100").
			WithDetail("field", "refYear").
			WithDetail("value", p.RefYear)
	}
	if p.RefWeek < 1 || p.RefWeek > 53 {
		return apperror.NewValidation("refWeek must be between 1 and 53").
			WithDetail("field", "refWeek").
			WithDetail("value", p.RefWeek)
	}
	author := strings.TrimSpace(p.CreatedBy)
	if len(author) < 2 || len(author) > 100 {
		return apperror.NewValidation("createdBy must be 2 to 100 characters").
			WithDetail("field", "createdBy")
	}
	return nil
}

// RecalcSummary reports one recalculation.
type RecalcSummary struct {
	PlanID         int64                        `json:"planId"`
	ProductionRows int                          `json:"prodRows"`
	MaterialRows   int                          `json:"materialRows"`
	Warnings       []planning.Warning           `json:"warnings"`
	WarningCounts  map[planning.WarningKind]int `json:"warningCounts"`
	DurationMs     int64                        `json:"durationMs"`
	CalculatedAt   time.Time                    `json:"calculatedAt"`
}
