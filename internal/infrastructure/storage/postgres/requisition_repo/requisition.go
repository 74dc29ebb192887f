// Package requisition_repo provides the PostgreSQL requisition repository.
package requisition_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"pcp/internal/core/apperror"
	"pcp/internal/domain/requisition"
	"pcp/internal/infrastructure/storage/postgres"
)

const (
	requisitionTable = "pcp.requisition"
	lineTable        = "requisition_line"
)

var headerColumns = []string{
	"requisition_id", "numero", "plan_id", "tipo", "status", "erp_request_id", "criado_por", "criado_em",
}

var _ requisition.Repository = (*RequisitionRepo)(nil)

// RequisitionRepo implements requisition.Repository.
type RequisitionRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewRequisitionRepo creates a new requisition repository.
func NewRequisitionRepo(txManager *postgres.TxManager) *RequisitionRepo {
	return &RequisitionRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts the header and copies the lines. Must run inside a
// transaction.
func (r *RequisitionRepo) Create(ctx context.Context, req *requisition.Requisition) error {
	sql, args, err := r.builder.Insert(requisitionTable).
		Columns("numero", "plan_id", "tipo", "status", "criado_por").
		Values(req.Number, req.PlanID, req.Kind, req.Status, req.CreatedBy).
		Suffix("RETURNING requisition_id, criado_em").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&req.ID, &req.CreatedAt); err != nil {
		return fmt.Errorf("insert requisition: %w", err)
	}

	rows := make([][]any, 0, len(req.Lines))
	for _, l := range req.Lines {
		rows = append(rows, []any{req.ID, l.MaterialID, postgres.Numeric(l.Qty), l.Unit})
	}
	_, err = postgres.NewBatchInserter(r.txManager).
		CopyFromSlice(ctx, lineTable, []string{"requisition_id", "material_id", "qty", "unidade"}, rows)
	return err
}

// GetByID returns a requisition with its lines.
func (r *RequisitionRepo) GetByID(ctx context.Context, id int64) (*requisition.Requisition, error) {
	sql, args, err := r.builder.Select(headerColumns...).
		From(requisitionTable).
		Where(squirrel.Eq{"requisition_id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var req requisition.Requisition
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &req, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("requisition", id)
		}
		return nil, fmt.Errorf("get requisition: %w", err)
	}

	sql, args, err = r.linesQuery(id).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lines query: %w", err)
	}
	req.Lines = []requisition.Line{}
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &req.Lines, sql, args...); err != nil {
		return nil, fmt.Errorf("list requisition lines: %w", err)
	}

	return &req, nil
}

func (r *RequisitionRepo) linesQuery(id int64) squirrel.SelectBuilder {
	return r.builder.Select(
		"l.material_id",
		"COALESCE(m.erp_item_code, '') AS erp_item_code",
		"l.qty",
		"COALESCE(l.unidade, '') AS unidade",
	).
		From(postgres.Schema + "." + lineTable + " l").
		LeftJoin("pcp.material m ON m.material_id = l.material_id").
		Where(squirrel.Eq{"l.requisition_id": id}).
		OrderBy("l.material_id")
}

// ListByPlan returns requisition headers of a plan, newest first.
func (r *RequisitionRepo) ListByPlan(ctx context.Context, planID int64) ([]requisition.Requisition, error) {
	sql, args, err := r.builder.Select(headerColumns...).
		From(requisitionTable).
		Where(squirrel.Eq{"plan_id": planID}).
		OrderBy("requisition_id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	out := []requisition.Requisition{}
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list requisitions: %w", err)
	}
	return out, nil
}
