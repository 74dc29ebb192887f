package planning

import (
	"strconv"
	"strings"
)

// Input is everything one plan run reads. It is loaded once, before Run.
type Input struct {
	Forecast        []ForecastEntry
	ProductStock    []StockSnapshotEntry
	Adjustments     []AdjustmentEntry
	Classifications []ProductClassification
	PackagingBOM    []PackagingBOMEntry
	BaseBOM         []BaseRecipeBOMEntry
	FlavorBOM       []FlavorRecipeBOMEntry
	MaterialStock   MaterialStock
}

// Result is the full output of a run. Gross holds packaging contributions,
// then base-pass, then flavor-pass contributions.
type Result struct {
	Required []RequiredProduction
	Demand   Demand
	Gross    []GrossRequirement
	Net      []NetMaterialRequirement
	Warnings []Warning
}

// Validate rejects forecasts that the pipeline must not compute on.
func (in Input) Validate() error {
	verr := &InputValidationError{}
	seen := make(map[string]int, len(in.Forecast))

	for i, f := range in.Forecast {
		code := strings.TrimSpace(f.ItemCode)
		if code == "" {
			verr.add(i, f.ItemCode, "itemCode", "must not be empty")
			continue
		}
		if f.ForecastQty.IsNegative() {
			verr.add(i, f.ItemCode, "forecastQty", "must not be negative")
		}
		if prev, dup := seen[code]; dup {
			verr.add(i, f.ItemCode, "itemCode", "duplicates forecast entry "+strconv.Itoa(prev))
			continue
		}
		seen[code] = i
	}
	for i, s := range in.ProductStock {
		if s.Kind != "" && !s.Kind.IsValid() {
			verr.add(i, s.ItemCode, "itemKind", "unknown item kind "+string(s.Kind))
		}
	}

	if verr.empty() {
		return nil
	}
	return verr
}

// Run executes the whole pipeline. It returns *InputValidationError without
// any partial result when the input is rejected; per-row BOM and
// classification problems are returned as Result.Warnings.
func Run(in Input) (*Result, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	required := CalculateRequiredProduction(in.Forecast, in.ProductStock, in.Adjustments)
	demand, warnings := AggregateDemand(required, in.Classifications)

	packaging, packWarnings := ExplodePackaging(required, in.PackagingBOM)
	raw, rawWarnings := ExplodeRawMaterials(demand, in.BaseBOM, in.FlavorBOM)
	warnings = append(warnings, packWarnings...)
	warnings = append(warnings, rawWarnings...)

	gross := make([]GrossRequirement, 0, len(packaging)+len(raw))
	gross = append(gross, packaging...)
	gross = append(gross, raw...)

	return &Result{
		Required: required,
		Demand:   demand,
		Gross:    gross,
		Net:      Consolidate(gross, in.MaterialStock),
		Warnings: warnings,
	}, nil
}

// WarningCounts tallies warnings per kind.
func (r *Result) WarningCounts() map[WarningKind]int {
	counts := make(map[WarningKind]int)
	for _, w := range r.Warnings {
		counts[w.Kind]++
	}
	return counts
}
