// Package planning implements the weekly MRP pipeline: required production per
// finished item, base/flavor aggregation, packaging and raw-material BOM
// explosion, and consolidation into net material requirements.
//
// Every function in this package is pure. Callers load inputs, call Run and
// persist the Result; nothing here touches storage.
package planning

import (
	"github.com/shopspring/decimal"
)

// ItemKind distinguishes finished products from materials in stock snapshots
// and adjustments.
type ItemKind string

const (
	ItemKindProduct  ItemKind = "PROD"
	ItemKindMaterial ItemKind = "MAT"
)

// IsValid reports whether k is a known item kind.
func (k ItemKind) IsValid() bool {
	return k == ItemKindProduct || k == ItemKindMaterial
}

// MaterialKind tags a material requirement by the BOM that produced it.
type MaterialKind string

const (
	MaterialKindPackaging MaterialKind = "EMB"
	MaterialKindRaw       MaterialKind = "MP"
)

// IsValid reports whether k is a known material kind.
func (k MaterialKind) IsValid() bool {
	return k == MaterialKindPackaging || k == MaterialKindRaw
}

// ForecastEntry is the weekly sales forecast for one finished item, in kg.
type ForecastEntry struct {
	ItemCode    string          `json:"itemCode" db:"erp_item_code"`
	ForecastQty decimal.Decimal `json:"forecastQty" db:"forecast_kg"`
}

// StockSnapshotEntry is on-hand stock captured for a plan.
type StockSnapshotEntry struct {
	ItemCode string          `json:"itemCode" db:"erp_item_code"`
	Kind     ItemKind        `json:"itemKind" db:"item_type"`
	Qty      decimal.Decimal `json:"qty" db:"qty"`
	Unit     string          `json:"unit" db:"unidade"`
}

// AdjustmentEntry is a signed manual correction to required production.
type AdjustmentEntry struct {
	ItemCode      string          `json:"itemCode" db:"erp_item_code"`
	AdjustmentQty decimal.Decimal `json:"adjustmentQty" db:"qty"`
}

// RequiredProduction is the computed production need of one finished item.
// CoverageDays is nil when the forecast is zero.
type RequiredProduction struct {
	ItemCode      string          `json:"itemCode" db:"erp_item_code"`
	ForecastQty   decimal.Decimal `json:"forecastQty" db:"forecast_kg"`
	StockQty      decimal.Decimal `json:"stockQty" db:"stock_kg"`
	AdjustmentQty decimal.Decimal `json:"adjustmentQty" db:"adjustment_kg"`
	RequiredQty   decimal.Decimal `json:"requiredQty" db:"required_kg"`
	CoverageDays  *int64          `json:"coverageDays" db:"coverage_days"`
}

// ProductClassification maps a finished item to its shared base recipe and
// flavor variant. FlavorID 0 means the item has no flavor-level recipe.
type ProductClassification struct {
	ItemCode string `db:"erp_item_code"`
	BaseID   int64  `db:"base_id"`
	FlavorID int64  `db:"flavor_id"`
}

// PackagingBOMEntry consumes QtyPerRatioUnit of a material for every
// RatioDenominatorKg of finished item produced.
type PackagingBOMEntry struct {
	ItemCode           string          `db:"erp_item_code"`
	MaterialID         int64           `db:"material_id"`
	QtyPerRatioUnit    decimal.Decimal `db:"qty_por_pct"`
	RatioDenominatorKg decimal.Decimal `db:"kg_por_pct"`
	Unit               string          `db:"unidade"`
}

// BaseRecipeBOMEntry consumes QtyPerBatch of a material per BatchKg of base.
type BaseRecipeBOMEntry struct {
	BaseID      int64           `db:"base_id"`
	MaterialID  int64           `db:"material_id"`
	QtyPerBatch decimal.Decimal `db:"qty_por_lote"`
	BatchKg     decimal.Decimal `db:"lote_kg"`
	Unit        string          `db:"unidade"`
}

// FlavorRecipeBOMEntry is the flavor-specific counterpart of BaseRecipeBOMEntry.
type FlavorRecipeBOMEntry struct {
	BaseID      int64           `db:"base_id"`
	FlavorID    int64           `db:"flavor_id"`
	MaterialID  int64           `db:"material_id"`
	QtyPerBatch decimal.Decimal `db:"qty_por_lote"`
	BatchKg     decimal.Decimal `db:"lote_kg"`
	Unit        string          `db:"unidade"`
}

// BaseDemand is the total required kg of one base.
type BaseDemand struct {
	BaseID  int64           `json:"baseId"`
	TotalKg decimal.Decimal `json:"totalKg"`
}

// FlavorDemand is the total required kg of one (base, flavor) pair.
type FlavorDemand struct {
	BaseID   int64           `json:"baseId"`
	FlavorID int64           `json:"flavorId"`
	TotalKg  decimal.Decimal `json:"totalKg"`
}

// Demand groups the aggregated base and flavor totals.
type Demand struct {
	Bases   []BaseDemand
	Flavors []FlavorDemand
}

// GrossRequirement is a single BOM-line contribution. It is transient: the
// consolidator is the only consumer.
type GrossRequirement struct {
	MaterialID int64           `json:"materialId"`
	Kind       MaterialKind    `json:"materialKind"`
	GrossQty   decimal.Decimal `json:"grossQty"`
	Unit       string          `json:"unit"`
}

// NetMaterialRequirement is the persisted per-material output of a plan run.
type NetMaterialRequirement struct {
	MaterialID int64           `json:"materialId" db:"material_id"`
	Kind       MaterialKind    `json:"materialKind" db:"tipo"`
	GrossQty   decimal.Decimal `json:"grossQty" db:"gross_qty"`
	NetQty     decimal.Decimal `json:"netQty" db:"net_qty"`
	Unit       string          `json:"unit" db:"unidade"`
}

// MaterialStock maps material_id to current on-hand quantity.
type MaterialStock map[int64]decimal.Decimal
