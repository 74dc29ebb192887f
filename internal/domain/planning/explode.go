package planning

import (
	"fmt"

	"github.com/shopspring/decimal"

	"pcp/internal/core/types"
)

// ExplodePackaging turns per-item required kg into packaging contributions:
//
//	gross = round2(required / ratio_denominator_kg * qty_per_ratio_unit)
//
// One contribution is emitted per (item, BOM row). Items with no BOM rows
// contribute nothing. Rows with a non-positive denominator are skipped with a
// DATA_INTEGRITY warning.
func ExplodePackaging(required []RequiredProduction, bom []PackagingBOMEntry) ([]GrossRequirement, []Warning) {
	byItem := make(map[string][]PackagingBOMEntry)
	for _, b := range bom {
		byItem[b.ItemCode] = append(byItem[b.ItemCode], b)
	}

	var (
		gross    []GrossRequirement
		warnings []Warning
	)
	for _, r := range required {
		for _, b := range byItem[r.ItemCode] {
			if !b.RatioDenominatorKg.IsPositive() {
				warnings = append(warnings, Warning{
					Kind:       WarningDataIntegrity,
					Source:     "pack_bom",
					ItemCode:   b.ItemCode,
					MaterialID: b.MaterialID,
					Message: fmt.Sprintf("packaging BOM row for item %s material %d has ratio denominator %s; row skipped",
						b.ItemCode, b.MaterialID, b.RatioDenominatorKg),
				})
				continue
			}
			gross = append(gross, GrossRequirement{
				MaterialID: b.MaterialID,
				Kind:       MaterialKindPackaging,
				GrossQty:   contribution(r.RequiredQty, b.RatioDenominatorKg, b.QtyPerRatioUnit),
				Unit:       b.Unit,
			})
		}
	}

	return gross, warnings
}

// ExplodeRawMaterials runs the base pass, then the flavor pass:
//
//	gross = round2(total_kg / batch_kg * qty_per_batch)
//
// Flavor rows match on both base id and flavor id. All contributions are
// tagged MP. Rows with a non-positive batch size are skipped with a
// DATA_INTEGRITY warning.
func ExplodeRawMaterials(
	demand Demand,
	baseBOM []BaseRecipeBOMEntry,
	flavorBOM []FlavorRecipeBOMEntry,
) ([]GrossRequirement, []Warning) {
	byBase := make(map[int64][]BaseRecipeBOMEntry)
	for _, b := range baseBOM {
		byBase[b.BaseID] = append(byBase[b.BaseID], b)
	}
	byFlavor := make(map[flavorKey][]FlavorRecipeBOMEntry)
	for _, b := range flavorBOM {
		k := flavorKey{baseID: b.BaseID, flavorID: b.FlavorID}
		byFlavor[k] = append(byFlavor[k], b)
	}

	var (
		gross    []GrossRequirement
		warnings []Warning
	)

	for _, d := range demand.Bases {
		for _, b := range byBase[d.BaseID] {
			if !b.BatchKg.IsPositive() {
				warnings = append(warnings, Warning{
					Kind:       WarningDataIntegrity,
					Source:     "recipe_base_bom",
					BaseID:     b.BaseID,
					MaterialID: b.MaterialID,
					Message: fmt.Sprintf("base recipe row for base %d material %d has batch size %s; row skipped",
						b.BaseID, b.MaterialID, b.BatchKg),
				})
				continue
			}
			gross = append(gross, GrossRequirement{
				MaterialID: b.MaterialID,
				Kind:       MaterialKindRaw,
				GrossQty:   contribution(d.TotalKg, b.BatchKg, b.QtyPerBatch),
				Unit:       b.Unit,
			})
		}
	}

	for _, d := range demand.Flavors {
		for _, b := range byFlavor[flavorKey{baseID: d.BaseID, flavorID: d.FlavorID}] {
			if !b.BatchKg.IsPositive() {
				warnings = append(warnings, Warning{
					Kind:       WarningDataIntegrity,
					Source:     "recipe_flavor_bom",
					BaseID:     b.BaseID,
					FlavorID:   b.FlavorID,
					MaterialID: b.MaterialID,
					Message: fmt.Sprintf("flavor recipe row for base %d flavor %d material %d has batch size %s; row skipped",
						b.BaseID, b.FlavorID, b.MaterialID, b.BatchKg),
				})
				continue
			}
			gross = append(gross, GrossRequirement{
				MaterialID: b.MaterialID,
				Kind:       MaterialKindRaw,
				GrossQty:   contribution(d.TotalKg, b.BatchKg, b.QtyPerBatch),
				Unit:       b.Unit,
			})
		}
	}

	return gross, warnings
}

// contribution is rounded per BOM line; consolidation rounds again after summing.
func contribution(demandKg, per, qty decimal.Decimal) decimal.Decimal {
	return types.RoundQty(demandKg.Div(per).Mul(qty))
}
