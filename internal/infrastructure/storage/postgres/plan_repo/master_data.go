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

var _ plan.MasterDataRepository = (*MasterDataRepo)(nil)

// MasterDataRepo implements plan.MasterDataRepository over the product,
// logistics and BOM tables.
type MasterDataRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewMasterDataRepo creates a new master data repository.
func NewMasterDataRepo(txManager *postgres.TxManager) *MasterDataRepo {
	return &MasterDataRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// ListClassifications returns base/flavor of every active product. Products
// without a flavor come back with FlavorID 0.
func (r *MasterDataRepo) ListClassifications(ctx context.Context) ([]planning.ProductClassification, error) {
	q := r.builder.Select("erp_item_code", "base_id", "COALESCE(flavor_id, 0) AS flavor_id").
		From("pcp.product").
		Where(squirrel.Eq{"ativo": true}).
		Where(squirrel.NotEq{"base_id": nil}).
		OrderBy("erp_item_code")

	var out []planning.ProductClassification
	if err := r.selectInto(ctx, &out, q, "classifications"); err != nil {
		return nil, err
	}
	return out, nil
}

// ListPackagingBOM joins pack_bom with the SKU logistics ratio. A product
// without logistics data yields a zero denominator, which the pipeline skips
// with a data integrity warning.
func (r *MasterDataRepo) ListPackagingBOM(ctx context.Context) ([]planning.PackagingBOMEntry, error) {
	var out []planning.PackagingBOMEntry
	if err := r.selectInto(ctx, &out, r.packagingBOMQuery(), "packaging bom"); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MasterDataRepo) packagingBOMQuery() squirrel.SelectBuilder {
	return r.builder.Select(
		"p.erp_item_code",
		"pb.material_id",
		"pb.qty_por_pct",
		"COALESCE(sl.kg_por_pct, 0) AS kg_por_pct",
		"pb.unidade",
	).
		From("pcp.pack_bom pb").
		Join("pcp.product p ON p.product_id = pb.product_id").
		LeftJoin("pcp.sku_logistics sl ON sl.product_id = pb.product_id").
		OrderBy("p.erp_item_code", "pb.material_id")
}

// ListBaseRecipeBOM returns the base recipe rows.
func (r *MasterDataRepo) ListBaseRecipeBOM(ctx context.Context) ([]planning.BaseRecipeBOMEntry, error) {
	q := r.builder.Select("base_id", "material_id", "qty_por_lote", "lote_kg", "unidade").
		From("pcp.recipe_base_bom").
		OrderBy("base_id", "material_id")

	var out []planning.BaseRecipeBOMEntry
	if err := r.selectInto(ctx, &out, q, "base recipe bom"); err != nil {
		return nil, err
	}
	return out, nil
}

// ListFlavorRecipeBOM returns the flavor recipe rows.
func (r *MasterDataRepo) ListFlavorRecipeBOM(ctx context.Context) ([]planning.FlavorRecipeBOMEntry, error) {
	q := r.builder.Select("base_id", "flavor_id", "material_id", "qty_por_lote", "lote_kg", "unidade").
		From("pcp.recipe_flavor_bom").
		OrderBy("base_id", "flavor_id", "material_id")

	var out []planning.FlavorRecipeBOMEntry
	if err := r.selectInto(ctx, &out, q, "flavor recipe bom"); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MasterDataRepo) selectInto(ctx context.Context, dst any, q squirrel.SelectBuilder, what string) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build %s query: %w", what, err)
	}
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), dst, sql, args...); err != nil {
		return fmt.Errorf("list %s: %w", what, err)
	}
	return nil
}
