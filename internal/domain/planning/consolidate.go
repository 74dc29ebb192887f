package planning

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"pcp/internal/core/types"
)

type materialGroup struct {
	kind  MaterialKind
	unit  string
	gross decimal.Decimal
}

// Consolidate groups gross contributions by material and nets them against
// material stock:
//
//	gross = round2(sum(contributions))
//	net   = round2(max(0, sum(contributions) - stock))
//
// The unit of the first contribution seen for a material is kept. A material
// fed by any packaging row is tagged EMB, otherwise MP. Only materials with at
// least one contribution appear in the output, sorted by material id.
func Consolidate(gross []GrossRequirement, stock MaterialStock) []NetMaterialRequirement {
	groups := make(map[int64]*materialGroup)
	for _, g := range gross {
		grp, ok := groups[g.MaterialID]
		if !ok {
			grp = &materialGroup{kind: g.Kind, unit: g.Unit}
			groups[g.MaterialID] = grp
		}
		if g.Kind == MaterialKindPackaging {
			grp.kind = MaterialKindPackaging
		}
		grp.gross = grp.gross.Add(g.GrossQty)
	}

	result := make([]NetMaterialRequirement, 0, len(groups))
	for materialID, grp := range groups {
		net := types.ClampZero(grp.gross.Sub(stock[materialID]))
		result = append(result, NetMaterialRequirement{
			MaterialID: materialID,
			Kind:       grp.kind,
			GrossQty:   types.RoundQty(grp.gross),
			NetQty:     types.RoundQty(net),
			Unit:       grp.unit,
		})
	}

	slices.SortFunc(result, func(a, b NetMaterialRequirement) int {
		return cmp.Compare(a.MaterialID, b.MaterialID)
	})

	return result
}
