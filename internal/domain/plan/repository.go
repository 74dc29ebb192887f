package plan

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"pcp/internal/domain/planning"
)

// Repository persists plan headers.
type Repository interface {
	// Create inserts a plan and fills its ID and CreatedAt.
	Create(ctx context.Context, p *Plan) error

	// GetByID returns apperror NotFound when the plan does not exist.
	GetByID(ctx context.Context, planID int64) (*Plan, error)

	// FindByWeek returns nil, nil when no plan exists for the week.
	FindByWeek(ctx context.Context, refYear, refWeek int) (*Plan, error)

	List(ctx context.Context, filter ListFilter) ([]Plan, error)

	// CompareAndSetStatus moves the plan from one status to another and
	// reports whether the row was in the expected status.
	CompareAndSetStatus(ctx context.Context, planID int64, from, to Status) (bool, error)

	// ResetStaleCalculations moves every plan that has been CALCULATING since
	// before the given time back to DRAFT and returns the number of plans moved.
	ResetStaleCalculations(ctx context.Context, before time.Time) (int64, error)
}

// ListFilter narrows plan listings.
type ListFilter struct {
	RefYear *int
	Status  *Status
	Limit   int
	Offset  int
}

// InputRepository reads and writes the plan-scoped inputs of a run.
type InputRepository interface {
	ListForecast(ctx context.Context, planID int64) ([]planning.ForecastEntry, error)

	// ReplaceForecast deletes the plan's forecast and inserts entries.
	ReplaceForecast(ctx context.Context, planID int64, entries []planning.ForecastEntry) error

	ListStockSnapshot(ctx context.Context, planID int64, kind planning.ItemKind) ([]planning.StockSnapshotEntry, error)

	// UpsertStockSnapshot writes entries keyed by (plan, kind, item_code).
	UpsertStockSnapshot(ctx context.Context, planID int64, entries []planning.StockSnapshotEntry, source string) (int64, error)

	ListAdjustments(ctx context.Context, planID int64, kind planning.ItemKind) ([]planning.AdjustmentEntry, error)

	AddAdjustments(ctx context.Context, planID int64, kind planning.ItemKind, entries []planning.AdjustmentEntry, createdBy string) error

	// MaterialStock sums MAT snapshot rows per material id.
	MaterialStock(ctx context.Context, planID int64) (planning.MaterialStock, error)
}

// MasterDataRepository reads static reference data, not scoped to a plan.
type MasterDataRepository interface {
	ListClassifications(ctx context.Context) ([]planning.ProductClassification, error)
	ListPackagingBOM(ctx context.Context) ([]planning.PackagingBOMEntry, error)
	ListBaseRecipeBOM(ctx context.Context) ([]planning.BaseRecipeBOMEntry, error)
	ListFlavorRecipeBOM(ctx context.Context) ([]planning.FlavorRecipeBOMEntry, error)
}

// ResultRepository stores the outputs of a run.
type ResultRepository interface {
	// ReplaceResults deletes the plan's previous outputs and inserts the new
	// ones. Must run inside a transaction.
	ReplaceResults(ctx context.Context, planID int64, required []planning.RequiredProduction, net []planning.NetMaterialRequirement) error

	ListRequiredProduction(ctx context.Context, planID int64) ([]planning.RequiredProduction, error)

	// ListMaterialRequirements returns all kinds when kind is empty.
	ListMaterialRequirements(ctx context.Context, planID int64, kind planning.MaterialKind) ([]MaterialRequirement, error)
}

// AuditLogger records recalculation runs.
type AuditLogger interface {
	LogRecalculation(ctx context.Context, planID int64, summary *RecalcSummary) error

	// History returns the latest records of a plan, newest first.
	History(ctx context.Context, planID int64, limit int) ([]AuditRecord, error)
}

// AuditActionRecalculate tags recalculation audit records.
const AuditActionRecalculate = "recalculate"

// AuditRecord is one stored recalculation summary.
type AuditRecord struct {
	ID         int64           `json:"id"`
	PlanID     int64           `json:"planId"`
	Action     string          `json:"action"`
	ExecutedBy string          `json:"executedBy"`
	Summary    json.RawMessage `json:"summary"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// MaterialRequirement is a persisted net requirement joined with material
// master data.
type MaterialRequirement struct {
	MaterialID   int64                 `db:"material_id" json:"materialId"`
	MaterialCode string                `db:"erp_item_code" json:"materialCode"`
	Description  string                `db:"descricao" json:"description"`
	Kind         planning.MaterialKind `db:"tipo" json:"materialKind"`
	GrossQty     decimal.Decimal       `db:"gross_qty" json:"grossQty"`
	NetQty       decimal.Decimal       `db:"net_qty" json:"netQty"`
	Unit         string                `db:"unidade" json:"unit"`
}
