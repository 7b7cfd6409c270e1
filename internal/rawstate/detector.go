package rawstate

import (
	"fmt"
	"sort"
	"strings"
)

// Detector suppresses duplicate raw samples per domain. Hardware polling
// emits a steady stream of identical snapshots; only real changes may
// reach downstream consumers.
//
// Not safe for concurrent use. The monitoring session owns one Detector
// and serializes all calls on its event loop.
type Detector struct {
	gpioMask  *uint64
	matrixSig *string
	registers map[int]uint8
}

// NewDetector returns a Detector with all memos unknown, so the first
// sample of every domain is accepted.
func NewDetector() *Detector {
	return &Detector{registers: make(map[int]uint8)}
}

// AcceptGpio reports whether the sample's mask differs from the memoized
// one. The memo is replaced only on accept.
func (d *Detector) AcceptGpio(s GpioSample) bool {
	if d.gpioMask != nil && *d.gpioMask == s.Mask {
		return false
	}
	mask := s.Mask
	d.gpioMask = &mask
	return true
}

// AcceptMatrix reports whether the sample's connection set differs from
// the previous one. The comparison is order-independent: connections are
// folded into a canonical sorted signature first.
func (d *Detector) AcceptMatrix(s MatrixSample) bool {
	sig := MatrixSignature(s.Connections)
	if d.matrixSig != nil && *d.matrixSig == sig {
		return false
	}
	d.matrixSig = &sig
	return true
}

// AcceptShiftRegisters folds a batch of register updates into the memo.
// The batch is accepted if any register is new or differs from its
// memoized value. On accept the memo is updated for every register in the
// batch and the returned slice is the full sorted set of ALL known
// registers, unchanged ones included. On suppress the memo is untouched
// and the returned slice is nil.
func (d *Detector) AcceptShiftRegisters(batch []RegisterUpdate) (bool, []RegisterState) {
	changed := false
	for _, u := range batch {
		prev, known := d.registers[u.ID]
		if !known || prev != u.Value {
			changed = true
			break
		}
	}
	if !changed {
		return false, nil
	}

	for _, u := range batch {
		d.registers[u.ID] = u.Value
	}
	return true, d.RegisterSnapshot()
}

// RegisterSnapshot returns all known registers sorted by id.
func (d *Detector) RegisterSnapshot() []RegisterState {
	out := make([]RegisterState, 0, len(d.registers))
	for id, v := range d.registers {
		out = append(out, RegisterState{ID: id, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Reset clears every memo. A monitoring session resets on start so the
// first sample after a restart is never suppressed by stale state.
func (d *Detector) Reset() {
	d.gpioMask = nil
	d.matrixSig = nil
	d.registers = make(map[int]uint8)
}

// MatrixSignature builds the canonical order-independent key for a set of
// matrix connections.
func MatrixSignature(conns []MatrixConnection) string {
	sorted := make([]MatrixConnection, len(conns))
	copy(sorted, conns)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Row != sorted[j].Row {
			return sorted[i].Row < sorted[j].Row
		}
		if sorted[i].Col != sorted[j].Col {
			return sorted[i].Col < sorted[j].Col
		}
		return !sorted[i].Connected && sorted[j].Connected
	})

	var b strings.Builder
	for i, c := range sorted {
		if i > 0 {
			b.WriteByte(';')
		}
		state := 0
		if c.Connected {
			state = 1
		}
		fmt.Fprintf(&b, "%d,%d=%d", c.Row, c.Col, state)
	}
	return b.String()
}

// GpioSignature renders a GPIO mask as a fixed-width hex key.
func GpioSignature(mask uint64) string {
	return fmt.Sprintf("0x%016x", mask)
}

// RegisterSignature renders a register set as a stable key.
func RegisterSignature(regs []RegisterState) string {
	var b strings.Builder
	for i, r := range regs {
		if i > 0 {
			b.WriteByte(';')
		}
		fmt.Fprintf(&b, "%d=%d", r.ID, r.Value)
	}
	return b.String()
}
