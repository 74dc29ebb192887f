package plan_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/shopspring/decimal"

	"pcp/internal/domain/plan"
	"pcp/internal/domain/planning"
	"pcp/internal/infrastructure/storage/postgres"
)

const (
	forecastTable   = "plan_forecast"
	stockTable      = "plan_stock_snapshot"
	adjustmentTable = "plan_adjustment"
)

var _ plan.InputRepository = (*InputRepo)(nil)

// InputRepo implements plan.InputRepository.
type InputRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewInputRepo creates a new plan input repository.
func NewInputRepo(txManager *postgres.TxManager) *InputRepo {
	return &InputRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// ListForecast returns the plan forecast ordered by item code.
func (r *InputRepo) ListForecast(ctx context.Context, planID int64) ([]planning.ForecastEntry, error) {
	sql, args, err := r.builder.Select("erp_item_code", "forecast_kg").
		From(postgres.Schema + "." + forecastTable).
		Where(squirrel.Eq{"plan_id": planID}).
		OrderBy("erp_item_code").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entries []planning.ForecastEntry
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("list forecast: %w", err)
	}
	return entries, nil
}

// ReplaceForecast deletes the plan forecast and copies entries in.
// Must run inside a transaction.
func (r *InputRepo) ReplaceForecast(ctx context.Context, planID int64, entries []planning.ForecastEntry) error {
	sql, args, err := r.builder.Delete(postgres.Schema + "." + forecastTable).
		Where(squirrel.Eq{"plan_id": planID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete forecast: %w", err)
	}

	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []any{planID, e.ItemCode, postgres.Numeric(e.ForecastQty)})
	}
	_, err = postgres.NewBatchInserter(r.txManager).
		CopyFromSlice(ctx, forecastTable, []string{"plan_id", "erp_item_code", "forecast_kg"}, rows)
	return err
}

// ListStockSnapshot returns snapshot rows of one kind.
func (r *InputRepo) ListStockSnapshot(ctx context.Context, planID int64, kind planning.ItemKind) ([]planning.StockSnapshotEntry, error) {
	sql, args, err := r.builder.Select("erp_item_code", "item_type", "qty", "COALESCE(unidade, '') AS unidade").
		From(postgres.Schema + "." + stockTable).
		Where(squirrel.Eq{"plan_id": planID, "item_type": kind}).
		OrderBy("erp_item_code").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entries []planning.StockSnapshotEntry
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("list stock snapshot: %w", err)
	}
	return entries, nil
}

const upsertStockSQL = `
	INSERT INTO pcp.plan_stock_snapshot (plan_id, item_type, erp_item_code, qty, unidade, source, captured_at)
	VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, now())
	ON CONFLICT (plan_id, item_type, erp_item_code)
	DO UPDATE SET qty = EXCLUDED.qty, unidade = EXCLUDED.unidade,
	              source = EXCLUDED.source, captured_at = EXCLUDED.captured_at
`

// UpsertStockSnapshot writes entries keyed by (plan, kind, item code) in one
// batch. Must run inside a transaction.
func (r *InputRepo) UpsertStockSnapshot(ctx context.Context, planID int64, entries []planning.StockSnapshotEntry, source string) (int64, error) {
	queries := make([]postgres.BatchQuery, 0, len(entries))
	for _, e := range entries {
		queries = append(queries, postgres.BatchQuery{
			SQL:  upsertStockSQL,
			Args: []any{planID, e.Kind, e.ItemCode, e.Qty, e.Unit, source},
		})
	}
	return postgres.NewBatchExecutor(r.txManager).ExecuteBatch(ctx, queries)
}

// ListAdjustments returns adjustment rows of one kind in entry order.
func (r *InputRepo) ListAdjustments(ctx context.Context, planID int64, kind planning.ItemKind) ([]planning.AdjustmentEntry, error) {
	sql, args, err := r.builder.Select("erp_item_code", "qty").
		From(postgres.Schema + "." + adjustmentTable).
		Where(squirrel.Eq{"plan_id": planID, "item_type": kind}).
		OrderBy("adjustment_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entries []planning.AdjustmentEntry
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("list adjustments: %w", err)
	}
	return entries, nil
}

// AddAdjustments appends adjustment rows.
func (r *InputRepo) AddAdjustments(ctx context.Context, planID int64, kind planning.ItemKind, entries []planning.AdjustmentEntry, createdBy string) error {
	if len(entries) == 0 {
		return nil
	}

	q := r.builder.Insert(postgres.Schema+"."+adjustmentTable).
		Columns("plan_id", "item_type", "erp_item_code", "qty", "criado_por")
	for _, e := range entries {
		q = q.Values(planID, kind, e.ItemCode, e.AdjustmentQty, createdBy)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert adjustments: %w", err)
	}
	return nil
}

// MaterialStock sums MAT snapshot rows per material, matched on the
// material ERP code. Snapshot rows with unknown codes are ignored.
func (r *InputRepo) MaterialStock(ctx context.Context, planID int64) (planning.MaterialStock, error) {
	sql, args, err := r.materialStockQuery(planID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []struct {
		MaterialID int64           `db:"material_id"`
		Qty        decimal.Decimal `db:"qty"`
	}
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("sum material stock: %w", err)
	}

	stock := make(planning.MaterialStock, len(rows))
	for _, row := range rows {
		stock[row.MaterialID] = row.Qty
	}
	return stock, nil
}

func (r *InputRepo) materialStockQuery(planID int64) squirrel.SelectBuilder {
	return r.builder.Select("m.material_id", "SUM(s.qty) AS qty").
		From(postgres.Schema + "." + stockTable + " s").
		Join("pcp.material m ON m.erp_item_code = s.erp_item_code").
		Where(squirrel.Eq{"s.plan_id": planID, "s.item_type": planning.ItemKindMaterial}).
		GroupBy("m.material_id")
}
