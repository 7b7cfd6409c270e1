package boards

import (
	"fmt"

	"github.com/gingerskull/joycore-link/internal/inputs"
)

// IdentityWarnings reports decoded inputs that exceed this board's
// wiring limits. Zero limits mean unspecified and are not checked.
// Exceeding a limit never changes resolution, the input simply reads
// inactive; these are operator hints only.
func (b Board) IdentityWarnings(id inputs.Identity) []string {
	if !id.Parsed {
		return nil
	}

	var warnings []string
	switch id.Kind {
	case inputs.SourceDirect:
		if b.GpioPins > 0 && id.Pin >= b.GpioPins {
			warnings = append(warnings,
				fmt.Sprintf("pin %d exceeds the board's %d GPIO pins", id.Pin, b.GpioPins))
		}
	case inputs.SourceShiftReg:
		if b.ShiftRegisters.MaxChain > 0 && id.Register >= b.ShiftRegisters.MaxChain {
			warnings = append(warnings,
				fmt.Sprintf("register %d exceeds the board's chain limit of %d", id.Register, b.ShiftRegisters.MaxChain))
		}
		if id.Bit > 7 {
			warnings = append(warnings,
				fmt.Sprintf("bit %d exceeds the 8-bit register width", id.Bit))
		}
	case inputs.SourceMatrix:
		if b.Matrix.MaxRows > 0 && id.Row >= b.Matrix.MaxRows {
			warnings = append(warnings,
				fmt.Sprintf("row %d exceeds the board's %d matrix rows", id.Row, b.Matrix.MaxRows))
		}
		if b.Matrix.MaxCols > 0 && id.Col >= b.Matrix.MaxCols {
			warnings = append(warnings,
				fmt.Sprintf("column %d exceeds the board's %d matrix columns", id.Col, b.Matrix.MaxCols))
		}
	}
	return warnings
}
