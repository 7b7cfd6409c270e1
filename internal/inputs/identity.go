package inputs

// SourceKind tags the physical source variant of a decoded input.
type SourceKind string

const (
	SourceDirect   SourceKind = "direct"
	SourceShiftReg SourceKind = "shift_reg"
	SourceMatrix   SourceKind = "matrix"
)

// Identity is the parsed physical-source identity of one configured
// input. Immutable once decoded; produced once per input when the input
// map loads.
type Identity struct {
	// Name is the original descriptor string the identity was decoded from.
	Name string     `json:"name"`
	Kind SourceKind `json:"kind"`

	Pin      int `json:"pin"`      // direct
	Register int `json:"register"` // shift_reg
	Bit      int `json:"bit"`      // shift_reg
	Row      int `json:"row"`      // matrix
	Col      int `json:"col"`      // matrix

	// Label is the short display label ("Direct #7", "Shift Reg @2-5",
	// "Matrix $1x3"), or the raw name for fallback identities.
	Label string `json:"label"`

	// GridLabel is the compact positional label for grid rendering.
	GridLabel string `json:"grid_label"`

	// Parsed is false when no pattern matched and this identity is the
	// verbatim-label fallback.
	Parsed bool `json:"parsed"`
}
