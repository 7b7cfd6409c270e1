package inputs

import (
	"fmt"
	"regexp"
	"strconv"
)

// The firmware encodes an input's physical source as a parenthesized tag
// inside its configured name. Only the pin form is case-insensitive.
var (
	pinPattern      = regexp.MustCompile(`(?i)\(pin\s*(\d+)\)`)
	shiftRegPattern = regexp.MustCompile(`\(ShiftReg\[(\d+)\]\.bit(\d+)\)`)
	matrixPattern   = regexp.MustCompile(`\(Matrix\[(\d+),\s*(\d+)\]\)`)
)

// Decode parses an input descriptor string into its physical-source
// identity. Decoding is total: a name matching none of the known patterns
// yields a Direct identity whose label is the original string verbatim,
// so rendering never has a hole.
func Decode(name string) Identity {
	if m := pinPattern.FindStringSubmatch(name); m != nil {
		if pin, err := strconv.Atoi(m[1]); err == nil {
			return Identity{
				Name:      name,
				Kind:      SourceDirect,
				Pin:       pin,
				Label:     fmt.Sprintf("Direct #%d", pin),
				GridLabel: strconv.Itoa(pin),
				Parsed:    true,
			}
		}
	}

	if m := shiftRegPattern.FindStringSubmatch(name); m != nil {
		reg, errReg := strconv.Atoi(m[1])
		bit, errBit := strconv.Atoi(m[2])
		if errReg == nil && errBit == nil {
			return Identity{
				Name:     name,
				Kind:     SourceShiftReg,
				Register: reg,
				Bit:      bit,
				Label:    fmt.Sprintf("Shift Reg @%d-%d", reg, bit),
				// Global bit index within the register chain.
				GridLabel: strconv.Itoa(reg*8 + bit),
				Parsed:    true,
			}
		}
	}

	if m := matrixPattern.FindStringSubmatch(name); m != nil {
		row, errRow := strconv.Atoi(m[1])
		col, errCol := strconv.Atoi(m[2])
		if errRow == nil && errCol == nil {
			return Identity{
				Name:      name,
				Kind:      SourceMatrix,
				Row:       row,
				Col:       col,
				Label:     fmt.Sprintf("Matrix $%dx%d", row, col),
				GridLabel: fmt.Sprintf("%d%d", row, col),
				Parsed:    true,
			}
		}
	}

	return Identity{
		Name:      name,
		Kind:      SourceDirect,
		Label:     name,
		GridLabel: name,
	}
}

// DecodeAll decodes a batch of descriptor names, preserving input order.
func DecodeAll(names []string) []Identity {
	out := make([]Identity, len(names))
	for i, n := range names {
		out[i] = Decode(n)
	}
	return out
}
