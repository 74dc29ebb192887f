package plan_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"pcp/internal/domain/plan"
	"pcp/internal/domain/planning"
	"pcp/internal/infrastructure/storage/postgres"
)

const (
	requiredProductionTable  = "plan_required_production"
	materialRequirementTable = "plan_material_requirement"

	// calcVersion tags result rows with the calculation rules that wrote them.
	calcVersion = "mrp_v2"
)

var (
	requiredProductionColumns = []string{
		"plan_id", "erp_item_code", "forecast_kg", "stock_kg", "adjustment_kg",
		"required_kg", "coverage_days", "calc_version",
	}
	materialRequirementColumns = []string{
		"plan_id", "material_id", "tipo", "gross_qty", "net_qty", "unidade",
	}
)

var _ plan.ResultRepository = (*ResultRepo)(nil)

// ResultRepo implements plan.ResultRepository.
type ResultRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewResultRepo creates a new result repository.
func NewResultRepo(txManager *postgres.TxManager) *ResultRepo {
	return &ResultRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// ReplaceResults swaps a plan's outputs under a transaction-scoped advisory
// lock on the plan id, so two writers for the same plan never interleave
// their delete and copy. Must run inside a transaction.
func (r *ResultRepo) ReplaceResults(ctx context.Context, planID int64, required []planning.RequiredProduction, net []planning.NetMaterialRequirement) error {
	if r.txManager.GetTx(ctx) == nil {
		return fmt.Errorf("replace results requires transaction context")
	}
	q := r.txManager.GetQuerier(ctx)

	if _, err := q.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", planID); err != nil {
		return fmt.Errorf("lock plan %d: %w", planID, err)
	}

	for _, table := range []string{requiredProductionTable, materialRequirementTable} {
		sql, args, err := r.builder.Delete(postgres.Schema + "." + table).
			Where(squirrel.Eq{"plan_id": planID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build delete: %w", err)
		}
		if _, err := q.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}

	inserter := postgres.NewBatchInserter(r.txManager)

	reqRows := make([][]any, 0, len(required))
	for _, rp := range required {
		reqRows = append(reqRows, []any{
			planID, rp.ItemCode,
			postgres.Numeric(rp.ForecastQty), postgres.Numeric(rp.StockQty), postgres.Numeric(rp.AdjustmentQty),
			postgres.Numeric(rp.RequiredQty), rp.CoverageDays, calcVersion,
		})
	}
	if _, err := inserter.CopyFromSlice(ctx, requiredProductionTable, requiredProductionColumns, reqRows); err != nil {
		return err
	}

	netRows := make([][]any, 0, len(net))
	for _, n := range net {
		netRows = append(netRows, []any{
			planID, n.MaterialID, string(n.Kind),
			postgres.Numeric(n.GrossQty), postgres.Numeric(n.NetQty), n.Unit,
		})
	}
	if _, err := inserter.CopyFromSlice(ctx, materialRequirementTable, materialRequirementColumns, netRows); err != nil {
		return err
	}

	return nil
}

// ListRequiredProduction returns persisted per-item results by item code.
func (r *ResultRepo) ListRequiredProduction(ctx context.Context, planID int64) ([]planning.RequiredProduction, error) {
	sql, args, err := r.builder.Select(
		"erp_item_code", "forecast_kg", "stock_kg", "adjustment_kg", "required_kg", "coverage_days",
	).
		From(postgres.Schema + "." + requiredProductionTable).
		Where(squirrel.Eq{"plan_id": planID}).
		OrderBy("erp_item_code").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows := []planning.RequiredProduction{}
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list required production: %w", err)
	}
	return rows, nil
}

// ListMaterialRequirements returns persisted net requirements joined with the
// material master, by material id.
func (r *ResultRepo) ListMaterialRequirements(ctx context.Context, planID int64, kind planning.MaterialKind) ([]plan.MaterialRequirement, error) {
	sql, args, err := r.materialRequirementsQuery(planID, kind).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows := []plan.MaterialRequirement{}
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list material requirements: %w", err)
	}
	return rows, nil
}

func (r *ResultRepo) materialRequirementsQuery(planID int64, kind planning.MaterialKind) squirrel.SelectBuilder {
	q := r.builder.Select(
		"r.material_id",
		"COALESCE(m.erp_item_code, '') AS erp_item_code",
		"COALESCE(m.descricao, '') AS descricao",
		"r.tipo",
		"r.gross_qty",
		"r.net_qty",
		"COALESCE(r.unidade, '') AS unidade",
	).
		From(postgres.Schema + "." + materialRequirementTable + " r").
		LeftJoin("pcp.material m ON m.material_id = r.material_id").
		Where(squirrel.Eq{"r.plan_id": planID})
	if kind != "" {
		q = q.Where(squirrel.Eq{"r.tipo": kind})
	}
	return q.OrderBy("r.material_id")
}
