// Package plan_repo provides PostgreSQL implementations of the plan
// repositories: plan headers, plan inputs, master data and results.
package plan_repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"pcp/internal/core/apperror"
	"pcp/internal/domain/plan"
	"pcp/internal/infrastructure/storage/postgres"
)

const planTable = "pcp.plan"

var planColumns = []string{"plan_id", "ref_year", "ref_week", "status", "criado_por", "criado_em", "atualizado_em"}

var _ plan.Repository = (*PlanRepo)(nil)

// PlanRepo implements plan.Repository.
type PlanRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewPlanRepo creates a new plan repository.
func NewPlanRepo(txManager *postgres.TxManager) *PlanRepo {
	return &PlanRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a plan and fills its ID and CreatedAt.
func (r *PlanRepo) Create(ctx context.Context, p *plan.Plan) error {
	sql, args, err := r.builder.Insert(planTable).
		Columns("ref_year", "ref_week", "status", "criado_por").
		Values(p.RefYear, p.RefWeek, p.Status, p.CreatedBy).
		Suffix("RETURNING plan_id, criado_em").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	err = r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.NewDuplicate("plan", "week", fmt.Sprintf("%d-W%02d", p.RefYear, p.RefWeek))
		}
		return fmt.Errorf("insert plan: %w", err)
	}
	return nil
}

// GetByID returns a plan or NotFound.
func (r *PlanRepo) GetByID(ctx context.Context, planID int64) (*plan.Plan, error) {
	p, err := r.getOne(ctx, squirrel.Eq{"plan_id": planID})
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("plan", planID)
		}
		return nil, fmt.Errorf("get plan: %w", err)
	}
	return p, nil
}

// FindByWeek returns nil, nil when no plan exists for the week.
func (r *PlanRepo) FindByWeek(ctx context.Context, refYear, refWeek int) (*plan.Plan, error) {
	p, err := r.getOne(ctx, squirrel.Eq{"ref_year": refYear, "ref_week": refWeek})
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find plan by week: %w", err)
	}
	return p, nil
}

func (r *PlanRepo) getOne(ctx context.Context, where squirrel.Sqlizer) (*plan.Plan, error) {
	sql, args, err := r.builder.Select(planColumns...).From(planTable).Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var p plan.Plan
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &p, sql, args...); err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns plans, newest week first.
func (r *PlanRepo) List(ctx context.Context, filter plan.ListFilter) ([]plan.Plan, error) {
	sql, args, err := r.listQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	plans := []plan.Plan{}
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &plans, sql, args...); err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return plans, nil
}

func (r *PlanRepo) listQuery(filter plan.ListFilter) squirrel.SelectBuilder {
	q := r.builder.Select(planColumns...).From(planTable)
	if filter.RefYear != nil {
		q = q.Where(squirrel.Eq{"ref_year": *filter.RefYear})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	q = q.OrderBy("ref_year DESC", "ref_week DESC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}
	return q
}

// CompareAndSetStatus moves a plan from one status to another.
func (r *PlanRepo) CompareAndSetStatus(ctx context.Context, planID int64, from, to plan.Status) (bool, error) {
	sql, args, err := r.builder.Update(planTable).
		Set("status", to).
		Set("atualizado_em", squirrel.Expr("now()")).
		Where(squirrel.Eq{"plan_id": planID, "status": from}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("update plan status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ResetStaleCalculations returns plans stuck in CALCULATING since before
// the given time to DRAFT.
func (r *PlanRepo) ResetStaleCalculations(ctx context.Context, before time.Time) (int64, error) {
	sql, args, err := r.resetStaleQuery(before).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("reset stale calculations: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PlanRepo) resetStaleQuery(before time.Time) squirrel.UpdateBuilder {
	return r.builder.Update(planTable).
		Set("status", plan.StatusDraft).
		Set("atualizado_em", squirrel.Expr("now()")).
		Where(squirrel.Eq{"status": plan.StatusCalculating}).
		Where(squirrel.Lt{"atualizado_em": before})
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
