package rawstate

// PullPolicy selects how a raw electrical level maps to a logical state.
// GPIO bank and shift register chain carry independent policies.
type PullPolicy string

const (
	PullUp   PullPolicy = "pull-up"
	PullDown PullPolicy = "pull-down"
)

// Valid reports whether p is one of the two known policies.
func (p PullPolicy) Valid() bool {
	return p == PullUp || p == PullDown
}

// ResolveLogical maps a raw electrical level to "logically active". Under
// a pull-up the line rests HIGH and a pressed input pulls it LOW, so
// active means !physicalHigh. Under a pull-down active means physicalHigh.
// Unknown policy values behave like pull-up, the default bias.
func ResolveLogical(physicalHigh bool, policy PullPolicy) bool {
	if policy == PullDown {
		return physicalHigh
	}
	return !physicalHigh
}

// GpioLevel extracts the electrical level of pin from a GPIO mask.
// Indices outside the 64-bit sample width read as LOW, never as an error.
func GpioLevel(mask uint64, pin int) bool {
	if pin < 0 || pin > 63 {
		return false
	}
	return (mask>>uint(pin))&1 == 1
}

// RegisterLevel extracts the electrical level of bit from an 8-bit shift
// register value. Indices outside the register width read as LOW.
func RegisterLevel(value uint8, bit int) bool {
	if bit < 0 || bit > 7 {
		return false
	}
	return (value>>uint(bit))&1 == 1
}
