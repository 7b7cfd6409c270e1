package inputs

import "testing"

func TestDecodeDirectPin(t *testing.T) {
	id := Decode("Button 3 (pin 7)")

	if id.Kind != SourceDirect {
		t.Fatalf("kind = %q, want %q", id.Kind, SourceDirect)
	}
	if id.Pin != 7 {
		t.Errorf("pin = %d, want 7", id.Pin)
	}
	if id.Label != "Direct #7" {
		t.Errorf("label = %q, want %q", id.Label, "Direct #7")
	}
	if id.GridLabel != "7" {
		t.Errorf("grid label = %q, want %q", id.GridLabel, "7")
	}
	if !id.Parsed {
		t.Error("identity should be marked parsed")
	}
}

func TestDecodePinFormIsCaseInsensitive(t *testing.T) {
	cases := []struct {
		name string
		pin  int
	}{
		{"Trigger (PIN 4)", 4},
		{"Hat Up (Pin 12)", 12},
		{"Flap (pin0)", 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id := Decode(tc.name)
			if id.Kind != SourceDirect || !id.Parsed {
				t.Fatalf("expected parsed direct identity, got %+v", id)
			}
			if id.Pin != tc.pin {
				t.Errorf("pin = %d, want %d", id.Pin, tc.pin)
			}
		})
	}
}

func TestDecodeShiftRegister(t *testing.T) {
	id := Decode("Button 1 (ShiftReg[2].bit5)")

	if id.Kind != SourceShiftReg {
		t.Fatalf("kind = %q, want %q", id.Kind, SourceShiftReg)
	}
	if id.Register != 2 || id.Bit != 5 {
		t.Errorf("register/bit = %d/%d, want 2/5", id.Register, id.Bit)
	}
	if id.Label != "Shift Reg @2-5" {
		t.Errorf("label = %q, want %q", id.Label, "Shift Reg @2-5")
	}
	// Grid position is the global bit index within the chain: 2*8+5.
	if id.GridLabel != "21" {
		t.Errorf("grid label = %q, want %q", id.GridLabel, "21")
	}
}

func TestDecodeShiftRegisterIsCaseSensitive(t *testing.T) {
	// Only the pin form tolerates case variance; a lowercased shift
	// register tag falls back to the verbatim-label identity.
	id := Decode("Button 1 (shiftreg[2].bit5)")

	if id.Parsed {
		t.Errorf("lowercased shift register tag should not parse, got %+v", id)
	}
	if id.Kind != SourceDirect {
		t.Errorf("fallback kind = %q, want %q", id.Kind, SourceDirect)
	}
}

func TestDecodeMatrix(t *testing.T) {
	id := Decode("Button 9 (Matrix[1,3])")

	if id.Kind != SourceMatrix {
		t.Fatalf("kind = %q, want %q", id.Kind, SourceMatrix)
	}
	if id.Row != 1 || id.Col != 3 {
		t.Errorf("row/col = %d/%d, want 1/3", id.Row, id.Col)
	}
	if id.Label != "Matrix $1x3" {
		t.Errorf("label = %q, want %q", id.Label, "Matrix $1x3")
	}
	if id.GridLabel != "13" {
		t.Errorf("grid label = %q, want %q", id.GridLabel, "13")
	}
}

func TestDecodeMatrixWithSpaceAfterComma(t *testing.T) {
	id := Decode("POV (Matrix[4, 2])")

	if id.Kind != SourceMatrix || id.Row != 4 || id.Col != 2 {
		t.Errorf("expected Matrix 4/2, got %+v", id)
	}
}

func TestDecodeFallback(t *testing.T) {
	id := Decode("Unrecognized Name")

	if id.Kind != SourceDirect {
		t.Errorf("fallback kind = %q, want %q", id.Kind, SourceDirect)
	}
	if id.Label != "Unrecognized Name" {
		t.Errorf("fallback label = %q, want the raw string", id.Label)
	}
	if id.Parsed {
		t.Error("fallback must not be marked parsed")
	}
	if id.Name != "Unrecognized Name" {
		t.Errorf("fallback name = %q, want the raw string", id.Name)
	}
}

func TestDecodeEmptyString(t *testing.T) {
	id := Decode("")

	if id.Kind != SourceDirect || id.Parsed {
		t.Errorf("empty name must fall back, got %+v", id)
	}
	if id.Label != "" {
		t.Errorf("fallback label = %q, want empty", id.Label)
	}
}

func TestDecodeAllPreservesOrder(t *testing.T) {
	names := []string{
		"A (pin 2)",
		"B (Matrix[0,0])",
		"C (ShiftReg[1].bit0)",
	}

	ids := DecodeAll(names)
	if len(ids) != 3 {
		t.Fatalf("expected 3 identities, got %d", len(ids))
	}
	for i, id := range ids {
		if id.Name != names[i] {
			t.Errorf("identity %d name = %q, want %q", i, id.Name, names[i])
		}
	}
	if ids[0].Kind != SourceDirect || ids[1].Kind != SourceMatrix || ids[2].Kind != SourceShiftReg {
		t.Errorf("unexpected kinds: %q %q %q", ids[0].Kind, ids[1].Kind, ids[2].Kind)
	}
}
