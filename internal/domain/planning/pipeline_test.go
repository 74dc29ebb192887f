package planning

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pcp/internal/core/types"
)

func q(s string) decimal.Decimal { return types.MustQty(s) }

func assertQty(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Truef(t, q(want).Equal(got), "want %s, got %s %v", want, got, msgAndArgs)
}

func TestCalculateRequiredProduction_ScenarioA(t *testing.T) {
	got := CalculateRequiredProduction(
		[]ForecastEntry{{ItemCode: "PA-001", ForecastQty: q("100")}},
		[]StockSnapshotEntry{{ItemCode: "PA-001", Kind: ItemKindProduct, Qty: q("30")}},
		nil,
	)

	require.Len(t, got, 1)
	assertQty(t, "70", got[0].RequiredQty)
	assertQty(t, "30", got[0].StockQty)
	assertQty(t, "0", got[0].AdjustmentQty)
	require.NotNil(t, got[0].CoverageDays)
	assert.Equal(t, int64(2), *got[0].CoverageDays)
}

func TestCalculateRequiredProduction_CoverageDaysTiesToEven(t *testing.T) {
	tests := []struct {
		stock, forecast string
		want            int64
	}{
		{"5", "14", 2},  // 2.5
		{"1", "14", 0},  // 0.5
		{"7", "14", 4},  // 3.5
		{"3", "14", 2},  // 1.5
		{"6", "14", 3},  // 3.0
		{"11", "28", 3}, // 2.75
	}
	for _, tt := range tests {
		t.Run(tt.stock+"_over_"+tt.forecast, func(t *testing.T) {
			got := CalculateRequiredProduction(
				[]ForecastEntry{{ItemCode: "PA-001", ForecastQty: q(tt.forecast)}},
				[]StockSnapshotEntry{{ItemCode: "PA-001", Kind: ItemKindProduct, Qty: q(tt.stock)}},
				nil,
			)
			require.NotNil(t, got[0].CoverageDays)
			assert.Equal(t, tt.want, *got[0].CoverageDays)
		})
	}
}

func TestCalculateRequiredProduction_ScenarioB_ZeroForecast(t *testing.T) {
	got := CalculateRequiredProduction(
		[]ForecastEntry{{ItemCode: "PA-001", ForecastQty: q("0")}},
		[]StockSnapshotEntry{{ItemCode: "PA-001", Kind: ItemKindProduct, Qty: q("50")}},
		nil,
	)

	require.Len(t, got, 1)
	assertQty(t, "0", got[0].RequiredQty)
	assert.Nil(t, got[0].CoverageDays)
}

func TestCalculateRequiredProduction_ZeroForecastNegativeStock(t *testing.T) {
	got := CalculateRequiredProduction(
		[]ForecastEntry{{ItemCode: "PA-001", ForecastQty: q("0")}},
		[]StockSnapshotEntry{{ItemCode: "PA-001", Kind: ItemKindProduct, Qty: q("-12")}},
		[]AdjustmentEntry{{ItemCode: "PA-001", AdjustmentQty: q("5")}},
	)

	assertQty(t, "0", got[0].RequiredQty)
	assert.Nil(t, got[0].CoverageDays)
}

func TestCalculateRequiredProduction_SumsStockAndAdjustments(t *testing.T) {
	got := CalculateRequiredProduction(
		[]ForecastEntry{
			{ItemCode: "B", ForecastQty: q("200")},
			{ItemCode: "A", ForecastQty: q("50")},
		},
		[]StockSnapshotEntry{
			{ItemCode: "B", Kind: ItemKindProduct, Qty: q("20")},
			{ItemCode: "B", Kind: ItemKindProduct, Qty: q("30")},
			{ItemCode: "B", Kind: ItemKindMaterial, Qty: q("1000")},
			{ItemCode: "A", Kind: ItemKindProduct, Qty: q("80")},
		},
		[]AdjustmentEntry{
			{ItemCode: "B", AdjustmentQty: q("10.555")},
			{ItemCode: "B", AdjustmentQty: q("-0.5")},
			{ItemCode: "A", AdjustmentQty: q("5")},
		},
	)

	require.Len(t, got, 2)
	assert.Equal(t, "B", got[0].ItemCode, "forecast order is preserved")
	assertQty(t, "50", got[0].StockQty)
	assertQty(t, "10.06", got[0].AdjustmentQty)
	assertQty(t, "160.06", got[0].RequiredQty)

	assert.Equal(t, "A", got[1].ItemCode)
	assertQty(t, "0", got[1].RequiredQty, "stock above forecast never goes negative")
	require.NotNil(t, got[1].CoverageDays)
	assert.Equal(t, int64(11), *got[1].CoverageDays)
}

func TestCalculateRequiredProduction_Property(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		f := decimal.New(rng.Int63n(100000), -2)
		s := decimal.New(rng.Int63n(200000)-50000, -2)
		a := decimal.New(rng.Int63n(20000)-10000, -2)

		got := CalculateRequiredProduction(
			[]ForecastEntry{{ItemCode: "X", ForecastQty: f}},
			[]StockSnapshotEntry{{ItemCode: "X", Kind: ItemKindProduct, Qty: s}},
			[]AdjustmentEntry{{ItemCode: "X", AdjustmentQty: a}},
		)[0]

		assert.False(t, got.RequiredQty.IsNegative(), "f=%s s=%s a=%s", f, s, a)
		if f.IsZero() {
			assert.True(t, got.RequiredQty.IsZero())
			assert.Nil(t, got.CoverageDays)
			continue
		}
		want := types.ClampZero(f.Sub(s).Add(a))
		assert.True(t, want.Equal(got.RequiredQty), "f=%s s=%s a=%s want=%s got=%s", f, s, a, want, got.RequiredQty)
	}
}

func TestAggregateDemand_MissingClassification(t *testing.T) {
	required := []RequiredProduction{
		{ItemCode: "A", RequiredQty: q("10")},
		{ItemCode: "B", RequiredQty: q("20.5")},
		{ItemCode: "C", RequiredQty: q("7")},
		{ItemCode: "ORPHAN", RequiredQty: q("99")},
	}
	classes := []ProductClassification{
		{ItemCode: "A", BaseID: 2, FlavorID: 1},
		{ItemCode: "B", BaseID: 2, FlavorID: 1},
		{ItemCode: "C", BaseID: 1, FlavorID: 0},
	}

	demand, warnings := AggregateDemand(required, classes)

	require.Len(t, demand.Bases, 2)
	assert.Equal(t, int64(1), demand.Bases[0].BaseID)
	assertQty(t, "7", demand.Bases[0].TotalKg)
	assertQty(t, "30.5", demand.Bases[1].TotalKg)

	require.Len(t, demand.Flavors, 1, "unflavored items feed only their base")
	assertQty(t, "30.5", demand.Flavors[0].TotalKg)

	require.Len(t, warnings, 1)
	assert.Equal(t, WarningMissingClassification, warnings[0].Kind)
	assert.Equal(t, "ORPHAN", warnings[0].ItemCode)
}

func TestAggregateDemand_OrderIndependent(t *testing.T) {
	required := []RequiredProduction{
		{ItemCode: "A", RequiredQty: q("10.11")},
		{ItemCode: "B", RequiredQty: q("20.22")},
		{ItemCode: "C", RequiredQty: q("30.33")},
		{ItemCode: "D", RequiredQty: q("40.44")},
	}
	classes := []ProductClassification{
		{ItemCode: "A", BaseID: 1, FlavorID: 1},
		{ItemCode: "B", BaseID: 1, FlavorID: 2},
		{ItemCode: "C", BaseID: 2, FlavorID: 1},
		{ItemCode: "D", BaseID: 1, FlavorID: 1},
	}

	want, _ := AggregateDemand(required, classes)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]RequiredProduction(nil), required...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got, _ := AggregateDemand(shuffled, classes)
		assert.Equal(t, want, got)
	}
}

func TestExplodePackaging_ScenarioC(t *testing.T) {
	gross, warnings := ExplodePackaging(
		[]RequiredProduction{{ItemCode: "PA-001", RequiredQty: q("70")}},
		[]PackagingBOMEntry{{ItemCode: "PA-001", MaterialID: 501, QtyPerRatioUnit: q("1"), RatioDenominatorKg: q("10"), Unit: "UN"}},
	)

	assert.Empty(t, warnings)
	require.Len(t, gross, 1)
	assert.Equal(t, MaterialKindPackaging, gross[0].Kind)
	assertQty(t, "7", gross[0].GrossQty)
}

func TestExplodePackaging_ZeroDenominatorSkipped(t *testing.T) {
	gross, warnings := ExplodePackaging(
		[]RequiredProduction{
			{ItemCode: "PA-001", RequiredQty: q("70")},
			{ItemCode: "PA-002", RequiredQty: q("5")},
		},
		[]PackagingBOMEntry{
			{ItemCode: "PA-001", MaterialID: 501, QtyPerRatioUnit: q("1"), RatioDenominatorKg: q("0"), Unit: "UN"},
			{ItemCode: "PA-001", MaterialID: 502, QtyPerRatioUnit: q("2"), RatioDenominatorKg: q("35"), Unit: "UN"},
		},
	)

	require.Len(t, warnings, 1)
	assert.Equal(t, WarningDataIntegrity, warnings[0].Kind)
	assert.Equal(t, int64(501), warnings[0].MaterialID)
	require.Len(t, gross, 1)
	assert.Equal(t, int64(502), gross[0].MaterialID)
	assertQty(t, "4", gross[0].GrossQty)
}

func TestExplodeRawMaterials_ScenarioDAndE(t *testing.T) {
	demand := Demand{
		Bases:   []BaseDemand{{BaseID: 1, TotalKg: q("140")}},
		Flavors: []FlavorDemand{{BaseID: 1, FlavorID: 3, TotalKg: q("40")}},
	}
	gross, warnings := ExplodeRawMaterials(demand,
		[]BaseRecipeBOMEntry{
			{BaseID: 1, MaterialID: 900, QtyPerBatch: q("5"), BatchKg: q("100"), Unit: "KG"},
			{BaseID: 1, MaterialID: 901, QtyPerBatch: q("9"), BatchKg: q("0"), Unit: "KG"},
			{BaseID: 1, MaterialID: 902, QtyPerBatch: q("1"), BatchKg: q("50"), Unit: "KG"},
		},
		[]FlavorRecipeBOMEntry{
			{BaseID: 1, FlavorID: 3, MaterialID: 950, QtyPerBatch: q("2"), BatchKg: q("20"), Unit: "L"},
			{BaseID: 2, FlavorID: 3, MaterialID: 951, QtyPerBatch: q("2"), BatchKg: q("20"), Unit: "L"},
		},
	)

	require.Len(t, warnings, 1)
	assert.Equal(t, WarningDataIntegrity, warnings[0].Kind)
	assert.Equal(t, int64(901), warnings[0].MaterialID)

	require.Len(t, gross, 3)
	assert.Equal(t, int64(900), gross[0].MaterialID)
	assertQty(t, "7", gross[0].GrossQty)
	assert.Equal(t, int64(902), gross[1].MaterialID, "base rows still processed after a bad row")
	assertQty(t, "2.8", gross[1].GrossQty)
	assert.Equal(t, int64(950), gross[2].MaterialID, "flavor pass follows base pass")
	assertQty(t, "4", gross[2].GrossQty)
	for _, g := range gross {
		assert.Equal(t, MaterialKindRaw, g.Kind)
	}

	net := Consolidate(gross[:1], MaterialStock{900: q("2")})
	require.Len(t, net, 1)
	assertQty(t, "7", net[0].GrossQty)
	assertQty(t, "5", net[0].NetQty)
}

func TestConsolidate_KindDominanceAndUnit(t *testing.T) {
	net := Consolidate([]GrossRequirement{
		{MaterialID: 7, Kind: MaterialKindRaw, GrossQty: q("1.5"), Unit: "KG"},
		{MaterialID: 3, Kind: MaterialKindRaw, GrossQty: q("4"), Unit: "L"},
		{MaterialID: 7, Kind: MaterialKindPackaging, GrossQty: q("2.25"), Unit: "UN"},
	}, MaterialStock{3: q("10"), 99: q("50")})

	require.Len(t, net, 2, "stocked materials without demand are not reported")
	assert.Equal(t, int64(3), net[0].MaterialID)
	assertQty(t, "0", net[0].NetQty)
	assert.Equal(t, MaterialKindRaw, net[0].Kind)

	assert.Equal(t, int64(7), net[1].MaterialID)
	assert.Equal(t, MaterialKindPackaging, net[1].Kind)
	assert.Equal(t, "KG", net[1].Unit, "first seen unit wins")
	assertQty(t, "3.75", net[1].GrossQty)
	assertQty(t, "3.75", net[1].NetQty)
}

func TestConsolidate_RoundsPerContributionThenSum(t *testing.T) {
	required := []RequiredProduction{
		{ItemCode: "A", RequiredQty: q("1")},
		{ItemCode: "B", RequiredQty: q("1")},
	}
	bom := []PackagingBOMEntry{
		{ItemCode: "A", MaterialID: 1, QtyPerRatioUnit: q("1"), RatioDenominatorKg: q("3"), Unit: "UN"},
		{ItemCode: "B", MaterialID: 1, QtyPerRatioUnit: q("1"), RatioDenominatorKg: q("3"), Unit: "UN"},
	}

	gross, _ := ExplodePackaging(required, bom)
	net := Consolidate(gross, nil)

	require.Len(t, net, 1)
	assertQty(t, "0.66", net[0].GrossQty, "0.33 + 0.33, not round(0.666...)")
}

func TestConsolidate_NetNeverNegative(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 200; i++ {
		g := decimal.New(rng.Int63n(100000), -2)
		s := decimal.New(rng.Int63n(200000)-20000, -2)

		net := Consolidate([]GrossRequirement{{MaterialID: 1, Kind: MaterialKindRaw, GrossQty: g}}, MaterialStock{1: s})

		require.Len(t, net, 1)
		assert.False(t, net[0].NetQty.IsNegative())
		assert.True(t, types.ClampZero(g.Sub(s)).Equal(net[0].NetQty), "g=%s s=%s", g, s)
	}
}

func sampleInput() Input {
	return Input{
		Forecast: []ForecastEntry{
			{ItemCode: "PA-001", ForecastQty: q("100")},
			{ItemCode: "PA-002", ForecastQty: q("60")},
			{ItemCode: "PA-003", ForecastQty: q("0")},
			{ItemCode: "PA-404", ForecastQty: q("15")},
		},
		ProductStock: []StockSnapshotEntry{
			{ItemCode: "PA-001", Kind: ItemKindProduct, Qty: q("30")},
			{ItemCode: "PA-003", Kind: ItemKindProduct, Qty: q("50")},
		},
		Adjustments: []AdjustmentEntry{{ItemCode: "PA-002", AdjustmentQty: q("10")}},
		Classifications: []ProductClassification{
			{ItemCode: "PA-001", BaseID: 1, FlavorID: 1},
			{ItemCode: "PA-002", BaseID: 1, FlavorID: 2},
			{ItemCode: "PA-003", BaseID: 1, FlavorID: 1},
		},
		PackagingBOM: []PackagingBOMEntry{
			{ItemCode: "PA-001", MaterialID: 501, QtyPerRatioUnit: q("1"), RatioDenominatorKg: q("10"), Unit: "UN"},
			{ItemCode: "PA-002", MaterialID: 501, QtyPerRatioUnit: q("1"), RatioDenominatorKg: q("10"), Unit: "UN"},
			{ItemCode: "PA-002", MaterialID: 900, QtyPerRatioUnit: q("0.1"), RatioDenominatorKg: q("10"), Unit: "KG"},
		},
		BaseBOM: []BaseRecipeBOMEntry{
			{BaseID: 1, MaterialID: 900, QtyPerBatch: q("5"), BatchKg: q("100"), Unit: "KG"},
			{BaseID: 1, MaterialID: 901, QtyPerBatch: q("1"), BatchKg: q("0"), Unit: "KG"},
		},
		FlavorBOM: []FlavorRecipeBOMEntry{
			{BaseID: 1, FlavorID: 2, MaterialID: 950, QtyPerBatch: q("3"), BatchKg: q("70"), Unit: "L"},
		},
		MaterialStock: MaterialStock{900: q("2"), 501: q("20")},
	}
}

func TestRun_FullPipeline(t *testing.T) {
	res, err := Run(sampleInput())
	require.NoError(t, err)

	require.Len(t, res.Required, 4)
	assertQty(t, "70", res.Required[0].RequiredQty)
	assertQty(t, "70", res.Required[1].RequiredQty)
	assertQty(t, "0", res.Required[2].RequiredQty)
	assertQty(t, "15", res.Required[3].RequiredQty, "unclassified items stay in per-item output")

	require.Len(t, res.Demand.Bases, 1)
	assertQty(t, "140", res.Demand.Bases[0].TotalKg)

	counts := res.WarningCounts()
	assert.Equal(t, 1, counts[WarningMissingClassification])
	assert.Equal(t, 1, counts[WarningDataIntegrity])

	require.Len(t, res.Net, 3)
	// 501: 7 + 7 packaging, stock 20
	assert.Equal(t, int64(501), res.Net[0].MaterialID)
	assertQty(t, "14", res.Net[0].GrossQty)
	assertQty(t, "0", res.Net[0].NetQty)
	// 900: 0.7 packaging + 7 base, packaging tag dominates
	assert.Equal(t, int64(900), res.Net[1].MaterialID)
	assert.Equal(t, MaterialKindPackaging, res.Net[1].Kind)
	assertQty(t, "7.7", res.Net[1].GrossQty)
	assertQty(t, "5.7", res.Net[1].NetQty)
	// 950: 70/70*3
	assert.Equal(t, int64(950), res.Net[2].MaterialID)
	assertQty(t, "3", res.Net[2].GrossQty)
}

func TestRun_Idempotent(t *testing.T) {
	first, err := Run(sampleInput())
	require.NoError(t, err)
	second, err := Run(sampleInput())
	require.NoError(t, err)

	assert.Equal(t, first.Required, second.Required)
	assert.Equal(t, first.Net, second.Net)
}

func TestRun_RejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name     string
		forecast []ForecastEntry
		field    string
	}{
		{
			name:     "negative forecast",
			forecast: []ForecastEntry{{ItemCode: "A", ForecastQty: q("-1")}},
			field:    "forecastQty",
		},
		{
			name:     "empty item code",
			forecast: []ForecastEntry{{ItemCode: "  ", ForecastQty: q("1")}},
			field:    "itemCode",
		},
		{
			name: "duplicate item",
			forecast: []ForecastEntry{
				{ItemCode: "A", ForecastQty: q("1")},
				{ItemCode: "A", ForecastQty: q("2")},
			},
			field: "itemCode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Run(Input{Forecast: tt.forecast})
			assert.Nil(t, res)

			var verr *InputValidationError
			require.ErrorAs(t, err, &verr)
			require.NotEmpty(t, verr.Fields)
			assert.Equal(t, tt.field, verr.Fields[0].Field)
		})
	}
}
