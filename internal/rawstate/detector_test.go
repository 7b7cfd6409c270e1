package rawstate

import "testing"

func TestGpioFirstSampleAccepted(t *testing.T) {
	d := NewDetector()

	if !d.AcceptGpio(GpioSample{Mask: 0, TimestampMs: 1}) {
		t.Error("first sample must be accepted even with an all-zero mask")
	}
}

func TestGpioDuplicateSuppressed(t *testing.T) {
	d := NewDetector()

	if !d.AcceptGpio(GpioSample{Mask: 0xFF, TimestampMs: 1}) {
		t.Fatal("first sample not accepted")
	}
	if d.AcceptGpio(GpioSample{Mask: 0xFF, TimestampMs: 2}) {
		t.Error("identical mask must be suppressed")
	}
	if d.AcceptGpio(GpioSample{Mask: 0xFF, TimestampMs: 3}) {
		t.Error("repeated identical mask must stay suppressed")
	}
}

func TestGpioSingleBitChangeAccepted(t *testing.T) {
	d := NewDetector()

	d.AcceptGpio(GpioSample{Mask: 0xFF, TimestampMs: 1})
	if !d.AcceptGpio(GpioSample{Mask: 0xFE, TimestampMs: 2}) {
		t.Error("a single-bit difference must be accepted")
	}
	if !d.AcceptGpio(GpioSample{Mask: 0xFF, TimestampMs: 3}) {
		t.Error("returning to a previous mask is still a change")
	}
}

func TestMatrixOrderIndependentSuppression(t *testing.T) {
	d := NewDetector()

	first := MatrixSample{
		Connections: []MatrixConnection{
			{Row: 0, Col: 1, Connected: true},
			{Row: 2, Col: 3, Connected: false},
		},
		TimestampMs: 1,
	}
	if !d.AcceptMatrix(first) {
		t.Fatal("first matrix sample not accepted")
	}

	// Same tuples, reversed order: must be treated as the same state.
	reordered := MatrixSample{
		Connections: []MatrixConnection{
			{Row: 2, Col: 3, Connected: false},
			{Row: 0, Col: 1, Connected: true},
		},
		TimestampMs: 2,
	}
	if d.AcceptMatrix(reordered) {
		t.Error("reordered identical connection set must be suppressed")
	}
}

func TestMatrixConnectionChangeAccepted(t *testing.T) {
	d := NewDetector()

	d.AcceptMatrix(MatrixSample{
		Connections: []MatrixConnection{{Row: 0, Col: 1, Connected: false}},
		TimestampMs: 1,
	})

	flipped := MatrixSample{
		Connections: []MatrixConnection{{Row: 0, Col: 1, Connected: true}},
		TimestampMs: 2,
	}
	if !d.AcceptMatrix(flipped) {
		t.Error("flipping a connection state must be accepted")
	}
}

func TestShiftRegisterBatchMergePropagatesFullSet(t *testing.T) {
	d := NewDetector()

	accepted, regs := d.AcceptShiftRegisters([]RegisterUpdate{
		{ID: 1, Value: 5, TimestampMs: 1},
		{ID: 2, Value: 5, TimestampMs: 1},
	})
	if !accepted {
		t.Fatal("first batch not accepted")
	}
	if len(regs) != 2 {
		t.Fatalf("expected 2 registers, got %d", len(regs))
	}

	// Register 2 changes: batch accepted, result contains BOTH registers,
	// the unchanged one included.
	accepted, regs = d.AcceptShiftRegisters([]RegisterUpdate{
		{ID: 1, Value: 5, TimestampMs: 2},
		{ID: 2, Value: 6, TimestampMs: 2},
	})
	if !accepted {
		t.Fatal("batch with one changed register must be accepted")
	}
	if len(regs) != 2 {
		t.Fatalf("expected full register set, got %d entries", len(regs))
	}
	if regs[0].ID != 1 || regs[0].Value != 5 {
		t.Errorf("register 1 = %+v, want unchanged value 5", regs[0])
	}
	if regs[1].ID != 2 || regs[1].Value != 6 {
		t.Errorf("register 2 = %+v, want updated value 6", regs[1])
	}
}

func TestShiftRegisterPartialBatchKeepsKnownRegisters(t *testing.T) {
	d := NewDetector()

	d.AcceptShiftRegisters([]RegisterUpdate{
		{ID: 0, Value: 10, TimestampMs: 1},
		{ID: 1, Value: 20, TimestampMs: 1},
	})

	// Partial update touching only register 1: propagated set still holds
	// register 0 at its last known value.
	accepted, regs := d.AcceptShiftRegisters([]RegisterUpdate{
		{ID: 1, Value: 21, TimestampMs: 2},
	})
	if !accepted {
		t.Fatal("partial batch with a changed register must be accepted")
	}
	if len(regs) != 2 {
		t.Fatalf("expected 2 known registers, got %d", len(regs))
	}
	if regs[0].ID != 0 || regs[0].Value != 10 {
		t.Errorf("register 0 = %+v, want retained value 10", regs[0])
	}
}

func TestShiftRegisterDuplicateBatchSuppressed(t *testing.T) {
	d := NewDetector()

	d.AcceptShiftRegisters([]RegisterUpdate{{ID: 1, Value: 5, TimestampMs: 1}})

	accepted, regs := d.AcceptShiftRegisters([]RegisterUpdate{{ID: 1, Value: 5, TimestampMs: 2}})
	if accepted {
		t.Error("batch with no changed register must be suppressed")
	}
	if regs != nil {
		t.Error("suppressed batch must not propagate a register set")
	}
}

func TestShiftRegisterNewRegisterAccepted(t *testing.T) {
	d := NewDetector()

	d.AcceptShiftRegisters([]RegisterUpdate{{ID: 0, Value: 0, TimestampMs: 1}})

	accepted, regs := d.AcceptShiftRegisters([]RegisterUpdate{{ID: 3, Value: 0, TimestampMs: 2}})
	if !accepted {
		t.Error("previously unseen register must be accepted regardless of value")
	}
	if len(regs) != 2 {
		t.Errorf("expected 2 known registers after merge, got %d", len(regs))
	}
}

func TestResetClearsAllMemos(t *testing.T) {
	d := NewDetector()

	d.AcceptGpio(GpioSample{Mask: 0xAB, TimestampMs: 1})
	d.AcceptMatrix(MatrixSample{
		Connections: []MatrixConnection{{Row: 1, Col: 1, Connected: true}},
		TimestampMs: 1,
	})
	d.AcceptShiftRegisters([]RegisterUpdate{{ID: 1, Value: 5, TimestampMs: 1}})

	d.Reset()

	// The exact samples seen before the reset must be accepted again:
	// a restarted session never inherits suppression state.
	if !d.AcceptGpio(GpioSample{Mask: 0xAB, TimestampMs: 2}) {
		t.Error("pre-reset GPIO mask must be accepted after reset")
	}
	if !d.AcceptMatrix(MatrixSample{
		Connections: []MatrixConnection{{Row: 1, Col: 1, Connected: true}},
		TimestampMs: 2,
	}) {
		t.Error("pre-reset matrix state must be accepted after reset")
	}
	accepted, regs := d.AcceptShiftRegisters([]RegisterUpdate{{ID: 1, Value: 5, TimestampMs: 2}})
	if !accepted {
		t.Error("pre-reset register batch must be accepted after reset")
	}
	if len(regs) != 1 {
		t.Errorf("register memo must restart empty, got %d entries", len(regs))
	}
}

func TestMatrixSignatureCanonical(t *testing.T) {
	a := MatrixSignature([]MatrixConnection{
		{Row: 1, Col: 0, Connected: true},
		{Row: 0, Col: 2, Connected: false},
	})
	b := MatrixSignature([]MatrixConnection{
		{Row: 0, Col: 2, Connected: false},
		{Row: 1, Col: 0, Connected: true},
	})
	if a != b {
		t.Errorf("signatures differ for the same set: %q vs %q", a, b)
	}
	if a != "0,2=0;1,0=1" {
		t.Errorf("unexpected canonical form: %q", a)
	}
}

func TestSignatureHelpers(t *testing.T) {
	if got := GpioSignature(0xFF); got != "0x00000000000000ff" {
		t.Errorf("GpioSignature = %q", got)
	}
	regs := []RegisterState{{ID: 0, Value: 1}, {ID: 2, Value: 255}}
	if got := RegisterSignature(regs); got != "0=1;2=255" {
		t.Errorf("RegisterSignature = %q", got)
	}
	if got := RegisterSignature(nil); got != "" {
		t.Errorf("empty RegisterSignature = %q", got)
	}
}
