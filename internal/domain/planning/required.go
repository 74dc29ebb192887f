package planning

import (
	"github.com/shopspring/decimal"

	"pcp/internal/core/types"
)

// forecastHorizonDays is the number of days one forecast period covers.
var forecastHorizonDays = decimal.NewFromInt(7)

// CalculateRequiredProduction returns one record per forecast entry, in
// forecast order:
//
//	required = max(0, forecast - stock + adjustment)
//
// Stock and adjustments are summed per item code; missing items count as
// zero. Only PROD stock entries are considered. A zero forecast yields zero
// required and nil coverage days.
func CalculateRequiredProduction(
	forecast []ForecastEntry,
	stock []StockSnapshotEntry,
	adjustments []AdjustmentEntry,
) []RequiredProduction {
	stockByItem := make(map[string]decimal.Decimal, len(stock))
	for _, s := range stock {
		if s.Kind != "" && s.Kind != ItemKindProduct {
			continue
		}
		stockByItem[s.ItemCode] = stockByItem[s.ItemCode].Add(s.Qty)
	}

	adjByItem := make(map[string]decimal.Decimal, len(adjustments))
	for _, a := range adjustments {
		adjByItem[a.ItemCode] = adjByItem[a.ItemCode].Add(a.AdjustmentQty)
	}

	result := make([]RequiredProduction, 0, len(forecast))
	for _, f := range forecast {
		stockQty := stockByItem[f.ItemCode]
		adjQty := adjByItem[f.ItemCode]

		required := decimal.Zero
		var coverage *int64
		if !f.ForecastQty.IsZero() {
			required = types.ClampZero(f.ForecastQty.Sub(stockQty).Add(adjQty))
		}
		if f.ForecastQty.IsPositive() {
			coverage = coverageDays(stockQty, f.ForecastQty)
		}

		result = append(result, RequiredProduction{
			ItemCode:      f.ItemCode,
			ForecastQty:   types.RoundQty(f.ForecastQty),
			StockQty:      types.RoundQty(stockQty),
			AdjustmentQty: types.RoundQty(adjQty),
			RequiredQty:   types.RoundQty(required),
			CoverageDays:  coverage,
		})
	}

	return result
}

// coverageDays is stock divided by the daily forecast rate, rounded to whole
// days with ties to even.
func coverageDays(stock, forecast decimal.Decimal) *int64 {
	daily := forecast.Div(forecastHorizonDays)
	days := stock.Div(daily).RoundBank(0).IntPart()
	return &days
}
