package plan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pcp/internal/core/apperror"
	appctx "pcp/internal/core/context"
	"pcp/internal/core/tx"
	"pcp/internal/domain/planning"
	"pcp/pkg/logger"
)

// ServiceDeps wires the plan service.
type ServiceDeps struct {
	Plans      Repository
	Inputs     InputRepository
	MasterData MasterDataRepository
	Results    ResultRepository
	Audit      AuditLogger // optional
	TxManager  tx.Manager

	// RecalcLease is how long a plan may stay CALCULATING before another
	// recalculation may take it over. Defaults to DefaultRecalcLease.
	RecalcLease time.Duration
}

// DefaultRecalcLease bounds one recalculation run.
const DefaultRecalcLease = 15 * time.Minute

// Service provides the plan lifecycle and MRP recalculation.
type Service struct {
	plans     Repository
	inputs    InputRepository
	master    MasterDataRepository
	results   ResultRepository
	audit     AuditLogger
	txManager tx.Manager
	lease     time.Duration
	now       func() time.Time
}

// NewService creates a new plan service.
func NewService(deps ServiceDeps) *Service {
	lease := deps.RecalcLease
	if lease <= 0 {
		lease = DefaultRecalcLease
	}
	return &Service{
		plans:     deps.Plans,
		inputs:    deps.Inputs,
		master:    deps.MasterData,
		results:   deps.Results,
		audit:     deps.Audit,
		txManager: deps.TxManager,
		lease:     lease,
		now:       time.Now,
	}
}

// CreateInput holds the fields of a new plan.
type CreateInput struct {
	RefYear   int
	RefWeek   int
	CreatedBy string
}

// Create opens a DRAFT plan for a week. CreatedBy defaults to the
// authenticated planner.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Plan, error) {
	author := strings.TrimSpace(in.CreatedBy)
	if author == "" {
		author = appctx.GetUsername(ctx)
	}

	p := &Plan{
		RefYear:   in.RefYear,
		RefWeek:   in.RefWeek,
		Status:    StatusDraft,
		CreatedBy: author,
	}
	if err := p.Validate(ctx); err != nil {
		return nil, err
	}

	existing, err := s.plans.FindByWeek(ctx, p.RefYear, p.RefWeek)
	if err != nil {
		return nil, fmt.Errorf("find plan by week: %w", err)
	}
	if existing != nil {
		return nil, apperror.NewDuplicate("plan", "week", fmt.Sprintf("%d-W%02d", p.RefYear, p.RefWeek)).
			WithDetail("plan_id", existing.ID)
	}

	if err := s.plans.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create plan: %w", err)
	}

	logger.Info(ctx, "plan created",
		"plan_id", p.ID,
		"ref_year", p.RefYear,
		"ref_week", p.RefWeek,
	)
	return p, nil
}

// Get returns a plan by id.
func (s *Service) Get(ctx context.Context, planID int64) (*Plan, error) {
	return s.plans.GetByID(ctx, planID)
}

// List returns plans, newest week first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Plan, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 500 {
		filter.Limit = 500
	}
	return s.plans.List(ctx, filter)
}

// Freeze fixes the plan results for requisitions.
func (s *Service) Freeze(ctx context.Context, planID int64) (*Plan, error) {
	return s.transition(ctx, planID, StatusFrozen)
}

// Unfreeze reopens a frozen plan for edits.
func (s *Service) Unfreeze(ctx context.Context, planID int64) (*Plan, error) {
	return s.transition(ctx, planID, StatusDraft)
}

// Release hands a frozen plan over to procurement.
func (s *Service) Release(ctx context.Context, planID int64) (*Plan, error) {
	return s.transition(ctx, planID, StatusReleased)
}

func (s *Service) transition(ctx context.Context, planID int64, to Status) (*Plan, error) {
	p, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !p.Status.CanTransition(to) {
		return nil, apperror.NewInvalidTransition("plan", planID, string(p.Status), string(to))
	}

	ok, err := s.plans.CompareAndSetStatus(ctx, planID, p.Status, to)
	if err != nil {
		return nil, fmt.Errorf("update plan status: %w", err)
	}
	if !ok {
		return nil, apperror.NewConflict("plan status changed concurrently, reload and retry").
			WithDetail("plan_id", planID)
	}

	logger.Info(ctx, "plan status changed", "plan_id", planID, "from", p.Status, "to", to)
	p.Status = to
	return p, nil
}

// requireDraft loads the plan and rejects edits outside DRAFT.
func (s *Service) requireDraft(ctx context.Context, planID int64) (*Plan, error) {
	p, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if p.Status != StatusDraft {
		return nil, apperror.NewBusinessRule(apperror.CodeBusinessRule, "plan inputs can only change while the plan is DRAFT").
			WithDetail("plan_id", planID).
			WithDetail("status", p.Status)
	}
	return p, nil
}

// ReplaceForecast swaps the plan forecast for entries.
func (s *Service) ReplaceForecast(ctx context.Context, planID int64, entries []planning.ForecastEntry) error {
	if _, err := s.requireDraft(ctx, planID); err != nil {
		return err
	}
	if err := (planning.Input{Forecast: entries}).Validate(); err != nil {
		return toAppError(err)
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.inputs.ReplaceForecast(ctx, planID, entries)
	})
	if err != nil {
		return fmt.Errorf("replace forecast: %w", err)
	}

	logger.Info(ctx, "forecast replaced", "plan_id", planID, "rows", len(entries))
	return nil
}

// CaptureStock upserts a stock snapshot for the plan.
func (s *Service) CaptureStock(ctx context.Context, planID int64, kind planning.ItemKind, entries []planning.StockSnapshotEntry, source string) (int64, error) {
	if !kind.IsValid() {
		return 0, apperror.NewValidation("unknown item kind").WithDetail("itemKind", kind)
	}
	if _, err := s.requireDraft(ctx, planID); err != nil {
		return 0, err
	}
	for i := range entries {
		if strings.TrimSpace(entries[i].ItemCode) == "" {
			return 0, apperror.NewValidation("stock entry without item code").WithDetail("index", i)
		}
		entries[i].Kind = kind
	}
	if source == "" {
		source = "API"
	}

	var rows int64
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		rows, err = s.inputs.UpsertStockSnapshot(ctx, planID, entries, source)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("upsert stock snapshot: %w", err)
	}

	logger.Info(ctx, "stock snapshot captured", "plan_id", planID, "item_kind", kind, "rows", rows, "source", source)
	return rows, nil
}

// AddAdjustments appends manual corrections for the plan.
func (s *Service) AddAdjustments(ctx context.Context, planID int64, kind planning.ItemKind, entries []planning.AdjustmentEntry) error {
	if !kind.IsValid() {
		return apperror.NewValidation("unknown item kind").WithDetail("itemKind", kind)
	}
	if _, err := s.requireDraft(ctx, planID); err != nil {
		return err
	}
	for i, e := range entries {
		if strings.TrimSpace(e.ItemCode) == "" {
			return apperror.NewValidation("adjustment without item code").WithDetail("index", i)
		}
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.inputs.AddAdjustments(ctx, planID, kind, entries, appctx.GetUsername(ctx))
	})
	if err != nil {
		return fmt.Errorf("add adjustments: %w", err)
	}

	logger.Info(ctx, "adjustments added", "plan_id", planID, "item_kind", kind, "rows", len(entries))
	return nil
}

// RecoverStaleCalculations returns plans left in CALCULATING for longer
// than the lease to DRAFT. The server calls it on start.
func (s *Service) RecoverStaleCalculations(ctx context.Context) (int64, error) {
	n, err := s.plans.ResetStaleCalculations(ctx, s.now().Add(-s.lease))
	if err != nil {
		return 0, fmt.Errorf("reset stale calculations: %w", err)
	}
	if n > 0 {
		logger.Warn(ctx, "stale recalculations reset", "plans", n, "lease", s.lease.String())
	}
	return n, nil
}

// Recalculate runs the MRP pipeline for a DRAFT plan and replaces its
// results. The plan sits in CALCULATING for the duration of the run, so a
// second trigger for the same plan is rejected instead of interleaving its
// delete and insert with the first one. A CALCULATING status older than the
// lease is left over from a process that died mid-run and is taken over.
func (s *Service) Recalculate(ctx context.Context, planID int64) (*RecalcSummary, error) {
	p, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	switch p.Status {
	case StatusDraft:
	case StatusCalculating:
		if !p.staleCalculation(s.now(), s.lease) {
			return nil, apperror.NewRecalcInProgress(planID)
		}
		if _, err := s.RecoverStaleCalculations(ctx); err != nil {
			return nil, err
		}
	default:
		return nil, apperror.NewInvalidTransition("plan", planID, string(p.Status), string(StatusCalculating))
	}

	ok, err := s.plans.CompareAndSetStatus(ctx, planID, StatusDraft, StatusCalculating)
	if err != nil {
		return nil, fmt.Errorf("lock plan for recalculation: %w", err)
	}
	if !ok {
		return nil, apperror.NewRecalcInProgress(planID)
	}
	defer func() {
		if _, err := s.plans.CompareAndSetStatus(context.WithoutCancel(ctx), planID, StatusCalculating, StatusDraft); err != nil {
			logger.Error(ctx, "failed to reset plan status after recalculation", "plan_id", planID, "error", err)
		}
	}()

	started := s.now()

	var in planning.Input
	err = tx.RunReadOnly(ctx, s.txManager, func(ctx context.Context) error {
		var err error
		in, err = s.loadInput(ctx, planID)
		return err
	})
	if err != nil {
		return nil, err
	}

	result, err := planning.Run(in)
	if err != nil {
		return nil, toAppError(err)
	}

	summary := &RecalcSummary{
		PlanID:         planID,
		ProductionRows: len(result.Required),
		MaterialRows:   len(result.Net),
		Warnings:       result.Warnings,
		WarningCounts:  result.WarningCounts(),
		CalculatedAt:   s.now().UTC(),
	}
	summary.DurationMs = summary.CalculatedAt.Sub(started.UTC()).Milliseconds()

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.results.ReplaceResults(ctx, planID, result.Required, result.Net); err != nil {
			return fmt.Errorf("replace results: %w", err)
		}
		if s.audit != nil {
			if err := s.audit.LogRecalculation(ctx, planID, summary); err != nil {
				return fmt.Errorf("audit recalculation: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, w := range result.Warnings {
		logger.Warn(ctx, "planning warning",
			"plan_id", planID,
			"kind", w.Kind,
			"source", w.Source,
			"item_code", w.ItemCode,
			"material_id", w.MaterialID,
			"message", w.Message,
		)
	}
	logger.Info(ctx, "plan recalculated",
		"plan_id", planID,
		"prod_rows", summary.ProductionRows,
		"material_rows", summary.MaterialRows,
		"warnings", len(summary.Warnings),
		"duration_ms", summary.DurationMs,
	)

	return summary, nil
}

// loadInput reads every input of a run once, from one snapshot when
// called inside a read-only transaction.
func (s *Service) loadInput(ctx context.Context, planID int64) (planning.Input, error) {
	var (
		in  planning.Input
		err error
	)

	if in.Forecast, err = s.inputs.ListForecast(ctx, planID); err != nil {
		return in, fmt.Errorf("load forecast: %w", err)
	}
	if in.ProductStock, err = s.inputs.ListStockSnapshot(ctx, planID, planning.ItemKindProduct); err != nil {
		return in, fmt.Errorf("load product stock: %w", err)
	}
	if in.Adjustments, err = s.inputs.ListAdjustments(ctx, planID, planning.ItemKindProduct); err != nil {
		return in, fmt.Errorf("load adjustments: %w", err)
	}
	if in.MaterialStock, err = s.inputs.MaterialStock(ctx, planID); err != nil {
		return in, fmt.Errorf("load material stock: %w", err)
	}
	if in.Classifications, err = s.master.ListClassifications(ctx); err != nil {
		return in, fmt.Errorf("load classifications: %w", err)
	}
	if in.PackagingBOM, err = s.master.ListPackagingBOM(ctx); err != nil {
		return in, fmt.Errorf("load packaging bom: %w", err)
	}
	if in.BaseBOM, err = s.master.ListBaseRecipeBOM(ctx); err != nil {
		return in, fmt.Errorf("load base recipe bom: %w", err)
	}
	if in.FlavorBOM, err = s.master.ListFlavorRecipeBOM(ctx); err != nil {
		return in, fmt.Errorf("load flavor recipe bom: %w", err)
	}

	return in, nil
}

// ProductionRequirements returns the persisted per-item results of a plan.
func (s *Service) ProductionRequirements(ctx context.Context, planID int64) ([]planning.RequiredProduction, error) {
	if _, err := s.plans.GetByID(ctx, planID); err != nil {
		return nil, err
	}
	return s.results.ListRequiredProduction(ctx, planID)
}

// MaterialRequirements returns the persisted net requirements of a plan,
// optionally restricted to one material kind.
func (s *Service) MaterialRequirements(ctx context.Context, planID int64, kind planning.MaterialKind) ([]MaterialRequirement, error) {
	if kind != "" && !kind.IsValid() {
		return nil, apperror.NewValidation("unknown material kind").WithDetail("type", kind)
	}
	if _, err := s.plans.GetByID(ctx, planID); err != nil {
		return nil, err
	}
	return s.results.ListMaterialRequirements(ctx, planID, kind)
}

// History returns the recalculation audit trail of a plan.
func (s *Service) History(ctx context.Context, planID int64, limit int) ([]AuditRecord, error) {
	if _, err := s.plans.GetByID(ctx, planID); err != nil {
		return nil, err
	}
	if s.audit == nil {
		return []AuditRecord{}, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.audit.History(ctx, planID, limit)
}

func toAppError(err error) error {
	var verr *planning.InputValidationError
	if errors.As(err, &verr) {
		return apperror.NewInputValidation("planning input rejected", verr.Fields).WithCause(err)
	}
	return err
}
