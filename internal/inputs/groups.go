package inputs

import "sort"

// Grouped splits decoded identities by source variant. Each group is
// sorted for a deterministic, stable display layout: Direct by pin index,
// ShiftReg by (register, bit), Matrix by (row, col), all ascending.
type Grouped struct {
	Direct   []Identity `json:"direct"`
	ShiftReg []Identity `json:"shift_reg"`
	Matrix   []Identity `json:"matrix"`
}

// Group sorts a batch of identities into display groups. The input slice
// is left untouched. Fallback identities land in the Direct group and
// tie-break by name.
func Group(ids []Identity) Grouped {
	var g Grouped
	for _, id := range ids {
		switch id.Kind {
		case SourceShiftReg:
			g.ShiftReg = append(g.ShiftReg, id)
		case SourceMatrix:
			g.Matrix = append(g.Matrix, id)
		default:
			g.Direct = append(g.Direct, id)
		}
	}

	sort.SliceStable(g.Direct, func(i, j int) bool {
		if g.Direct[i].Pin != g.Direct[j].Pin {
			return g.Direct[i].Pin < g.Direct[j].Pin
		}
		return g.Direct[i].Name < g.Direct[j].Name
	})
	sort.SliceStable(g.ShiftReg, func(i, j int) bool {
		if g.ShiftReg[i].Register != g.ShiftReg[j].Register {
			return g.ShiftReg[i].Register < g.ShiftReg[j].Register
		}
		return g.ShiftReg[i].Bit < g.ShiftReg[j].Bit
	})
	sort.SliceStable(g.Matrix, func(i, j int) bool {
		if g.Matrix[i].Row != g.Matrix[j].Row {
			return g.Matrix[i].Row < g.Matrix[j].Row
		}
		return g.Matrix[i].Col < g.Matrix[j].Col
	})

	return g
}
