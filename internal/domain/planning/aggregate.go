package planning

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

type flavorKey struct {
	baseID   int64
	flavorID int64
}

// AggregateDemand sums required kg per base and per (base, flavor).
//
// Items without a classification are left out of both totals and reported as
// MISSING_CLASSIFICATION warnings; they remain in the per-item output of the
// caller. Totals are sorted by base id, then flavor id.
func AggregateDemand(required []RequiredProduction, classifications []ProductClassification) (Demand, []Warning) {
	byItem := make(map[string]ProductClassification, len(classifications))
	for _, c := range classifications {
		byItem[c.ItemCode] = c
	}

	bases := make(map[int64]decimal.Decimal)
	flavors := make(map[flavorKey]decimal.Decimal)
	var warnings []Warning

	for _, r := range required {
		c, ok := byItem[r.ItemCode]
		if !ok {
			warnings = append(warnings, Warning{
				Kind:     WarningMissingClassification,
				Source:   "product",
				ItemCode: r.ItemCode,
				Message:  fmt.Sprintf("item %s has no base/flavor classification; excluded from raw-material explosion", r.ItemCode),
			})
			continue
		}

		bases[c.BaseID] = bases[c.BaseID].Add(r.RequiredQty)
		if c.FlavorID != 0 {
			k := flavorKey{baseID: c.BaseID, flavorID: c.FlavorID}
			flavors[k] = flavors[k].Add(r.RequiredQty)
		}
	}

	demand := Demand{
		Bases:   make([]BaseDemand, 0, len(bases)),
		Flavors: make([]FlavorDemand, 0, len(flavors)),
	}
	for baseID, total := range bases {
		demand.Bases = append(demand.Bases, BaseDemand{BaseID: baseID, TotalKg: total})
	}
	for k, total := range flavors {
		demand.Flavors = append(demand.Flavors, FlavorDemand{BaseID: k.baseID, FlavorID: k.flavorID, TotalKg: total})
	}

	slices.SortFunc(demand.Bases, func(a, b BaseDemand) int {
		return cmp.Compare(a.BaseID, b.BaseID)
	})
	slices.SortFunc(demand.Flavors, func(a, b FlavorDemand) int {
		if c := cmp.Compare(a.BaseID, b.BaseID); c != 0 {
			return c
		}
		return cmp.Compare(a.FlavorID, b.FlavorID)
	})

	return demand, warnings
}
