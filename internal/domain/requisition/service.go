package requisition

import (
	"context"
	"fmt"
	"time"

	"pcp/internal/core/apperror"
	appctx "pcp/internal/core/context"
	"pcp/internal/core/tx"
	"pcp/internal/domain/plan"
	"pcp/internal/domain/planning"
	"pcp/pkg/logger"
)

// NumberPrefix starts every requisition number, e.g. REQ-2026-00042.
const NumberPrefix = "REQ"

// Numerator hands out sequential requisition numbers. Called inside the
// create transaction so a rollback leaves no gap.
type Numerator interface {
	Next(ctx context.Context, prefix string, period time.Time) (string, error)
}

// Service drafts requisitions from plan results.
type Service struct {
	repo      Repository
	plans     plan.Repository
	results   plan.ResultRepository
	numerator Numerator
	txManager tx.Manager
	now       func() time.Time
}

// NewService creates a new requisition service.
func NewService(repo Repository, plans plan.Repository, results plan.ResultRepository, numerator Numerator, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		plans:     plans,
		results:   results,
		numerator: numerator,
		txManager: txManager,
		now:       time.Now,
	}
}

// Create drafts a requisition of the given kind from the positive net
// requirements of a FROZEN or RELEASED plan.
func (s *Service) Create(ctx context.Context, planID int64, kind planning.MaterialKind) (*Requisition, error) {
	if !kind.IsValid() {
		return nil, apperror.NewValidation("reqType must be MP or EMB").WithDetail("reqType", kind)
	}

	p, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if p.Status != plan.StatusFrozen && p.Status != plan.StatusReleased {
		return nil, apperror.NewBusinessRule(apperror.CodeBusinessRule, "requisitions can only be drafted from a FROZEN or RELEASED plan").
			WithDetail("plan_id", planID).
			WithDetail("status", p.Status)
	}

	reqs, err := s.results.ListMaterialRequirements(ctx, planID, kind)
	if err != nil {
		return nil, fmt.Errorf("list material requirements: %w", err)
	}

	r := &Requisition{
		PlanID:    planID,
		Kind:      kind,
		Status:    StatusDraft,
		CreatedBy: appctx.GetUsername(ctx),
	}
	for _, m := range reqs {
		if !m.NetQty.IsPositive() {
			continue
		}
		r.Lines = append(r.Lines, Line{
			MaterialID:   m.MaterialID,
			MaterialCode: m.MaterialCode,
			Qty:          m.NetQty,
			Unit:         m.Unit,
		})
	}
	if len(r.Lines) == 0 {
		return nil, apperror.NewBusinessRule(apperror.CodeEmptyRequisition, "plan has no positive net requirement of this type").
			WithDetail("plan_id", planID).
			WithDetail("reqType", kind)
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		number, err := s.numerator.Next(ctx, NumberPrefix, s.now())
		if err != nil {
			return fmt.Errorf("next number: %w", err)
		}
		r.Number = number
		return s.repo.Create(ctx, r)
	})
	if err != nil {
		return nil, fmt.Errorf("create requisition: %w", err)
	}

	logger.Info(ctx, "requisition drafted",
		"requisition_id", r.ID,
		"number", r.Number,
		"plan_id", planID,
		"req_type", kind,
		"lines", len(r.Lines),
	)
	return r, nil
}

// Get returns a requisition with its lines.
func (s *Service) Get(ctx context.Context, id int64) (*Requisition, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByPlan returns the requisitions drafted from a plan.
func (s *Service) ListByPlan(ctx context.Context, planID int64) ([]Requisition, error) {
	if _, err := s.plans.GetByID(ctx, planID); err != nil {
		return nil, err
	}
	return s.repo.ListByPlan(ctx, planID)
}
