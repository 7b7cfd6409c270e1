package monitor

import (
	"testing"

	"github.com/gingerskull/joycore-link/internal/inputs"
	"github.com/gingerskull/joycore-link/internal/rawstate"
	"github.com/gingerskull/joycore-link/internal/settings"
)

func newTestTable(ids ...string) *Table {
	t := NewTable(settings.DefaultPullModes())
	t.SetIdentities(inputs.DecodeAll(ids))
	return t
}

func logicalByName(states []LogicalState, name string) (LogicalState, bool) {
	for _, st := range states {
		if st.Name == name {
			return st, true
		}
	}
	return LogicalState{}, false
}

func TestDirectPolarityPullUp(t *testing.T) {
	table := newTestTable("Trigger (pin 3)")

	// Pull-up: LOW means pressed.
	table.ApplyGpio(0)
	states := table.LogicalForDomain(rawstate.DomainGPIO)
	if st, _ := logicalByName(states, "Trigger (pin 3)"); !st.Active {
		t.Error("expected active on physical LOW under pull-up")
	}

	table.ApplyGpio(1 << 3)
	states = table.LogicalForDomain(rawstate.DomainGPIO)
	if st, _ := logicalByName(states, "Trigger (pin 3)"); st.Active {
		t.Error("expected inactive on physical HIGH under pull-up")
	}
}

func TestDirectPolarityPullDown(t *testing.T) {
	table := newTestTable("Trigger (pin 3)")
	table.SetPullModes(settings.PullModes{
		Gpio:     rawstate.PullDown,
		ShiftReg: rawstate.PullUp,
	})

	table.ApplyGpio(1 << 3)
	states := table.LogicalForDomain(rawstate.DomainGPIO)
	if st, _ := logicalByName(states, "Trigger (pin 3)"); !st.Active {
		t.Error("expected active on physical HIGH under pull-down")
	}

	table.ApplyGpio(0)
	states = table.LogicalForDomain(rawstate.DomainGPIO)
	if st, _ := logicalByName(states, "Trigger (pin 3)"); st.Active {
		t.Error("expected inactive on physical LOW under pull-down")
	}
}

func TestShiftRegPolarity(t *testing.T) {
	table := newTestTable("Mode (ShiftReg[1].bit4)")

	table.ApplyRegisters([]rawstate.RegisterState{{ID: 1, Value: 0}})
	states := table.LogicalForDomain(rawstate.DomainShiftReg)
	if st, _ := logicalByName(states, "Mode (ShiftReg[1].bit4)"); !st.Active {
		t.Error("expected active on LOW bit under pull-up")
	}

	table.ApplyRegisters([]rawstate.RegisterState{{ID: 1, Value: 1 << 4}})
	states = table.LogicalForDomain(rawstate.DomainShiftReg)
	if st, _ := logicalByName(states, "Mode (ShiftReg[1].bit4)"); st.Active {
		t.Error("expected inactive on HIGH bit under pull-up")
	}

	table.SetPullModes(settings.PullModes{Gpio: rawstate.PullUp, ShiftReg: rawstate.PullDown})
	states = table.LogicalForDomain(rawstate.DomainShiftReg)
	if st, _ := logicalByName(states, "Mode (ShiftReg[1].bit4)"); !st.Active {
		t.Error("expected active on HIGH bit under pull-down")
	}
}

func TestMatrixIgnoresPullModes(t *testing.T) {
	table := newTestTable("Hat Up (Matrix[2,1])")

	table.ApplyMatrix([]rawstate.MatrixConnection{{Row: 2, Col: 1, Connected: true}})
	for _, pm := range []settings.PullModes{
		{Gpio: rawstate.PullUp, ShiftReg: rawstate.PullUp},
		{Gpio: rawstate.PullDown, ShiftReg: rawstate.PullDown},
	} {
		table.SetPullModes(pm)
		states := table.LogicalForDomain(rawstate.DomainMatrix)
		if st, _ := logicalByName(states, "Hat Up (Matrix[2,1])"); !st.Active {
			t.Errorf("expected connected matrix node active under %+v", pm)
		}
	}

	table.ApplyMatrix([]rawstate.MatrixConnection{{Row: 2, Col: 1, Connected: false}})
	states := table.LogicalForDomain(rawstate.DomainMatrix)
	if st, _ := logicalByName(states, "Hat Up (Matrix[2,1])"); st.Active {
		t.Error("expected disconnected matrix node inactive")
	}
}

func TestNoSampleMeansInactive(t *testing.T) {
	table := newTestTable("Trigger (pin 0)", "Mode (ShiftReg[0].bit0)", "Hat (Matrix[0,0])")

	for _, st := range table.SnapshotAll() {
		if st.Active {
			t.Errorf("expected %s inactive before any sample", st.Name)
		}
	}
}

func TestFallbackIdentityNeverActive(t *testing.T) {
	table := newTestTable("Mystery Button")

	// Fallback decodes as direct; even an all-LOW bank must not light it.
	table.ApplyGpio(0)
	states := table.LogicalForDomain(rawstate.DomainGPIO)
	st, ok := logicalByName(states, "Mystery Button")
	if !ok {
		t.Fatal("expected fallback identity in direct group")
	}
	if st.Active {
		t.Error("expected fallback identity inactive")
	}
	if st.Label != "Mystery Button" {
		t.Errorf("expected verbatim label, got %q", st.Label)
	}
}

func TestOutOfRangePinInactive(t *testing.T) {
	table := newTestTable("Ghost (pin 64)")

	table.ApplyGpio(^uint64(0))
	states := table.LogicalForDomain(rawstate.DomainGPIO)
	if st, _ := logicalByName(states, "Ghost (pin 64)"); st.Active {
		t.Error("expected out-of-range pin inactive")
	}
}

func TestUnknownRegisterInactive(t *testing.T) {
	table := newTestTable("Mode (ShiftReg[5].bit2)")

	table.ApplyRegisters([]rawstate.RegisterState{{ID: 0, Value: 0xFF}})
	states := table.LogicalForDomain(rawstate.DomainShiftReg)
	if st, _ := logicalByName(states, "Mode (ShiftReg[5].bit2)"); st.Active {
		t.Error("expected input on unseen register inactive")
	}
}

func TestSnapshotAllOrdersDomains(t *testing.T) {
	table := newTestTable(
		"M (Matrix[0,0])",
		"S (ShiftReg[0].bit0)",
		"D (pin 9)",
		"D2 (pin 1)",
	)

	all := table.SnapshotAll()
	if len(all) != 4 {
		t.Fatalf("expected 4 states, got %d", len(all))
	}
	wantOrder := []string{"D2 (pin 1)", "D (pin 9)", "S (ShiftReg[0].bit0)", "M (Matrix[0,0])"}
	for i, want := range wantOrder {
		if all[i].Name != want {
			t.Errorf("position %d: expected %s, got %s", i, want, all[i].Name)
		}
	}
}

func TestRawAccessorsSorted(t *testing.T) {
	table := newTestTable()

	table.ApplyRegisters([]rawstate.RegisterState{{ID: 2, Value: 1}, {ID: 0, Value: 2}})
	regs := table.RawRegisters()
	if len(regs) != 2 || regs[0].ID != 0 || regs[1].ID != 2 {
		t.Errorf("expected registers sorted by id, got %+v", regs)
	}

	table.ApplyMatrix([]rawstate.MatrixConnection{
		{Row: 1, Col: 0, Connected: true},
		{Row: 0, Col: 2, Connected: false},
	})
	conns := table.RawMatrix()
	if len(conns) != 2 || conns[0].Row != 0 || conns[1].Row != 1 {
		t.Errorf("expected connections sorted by row, got %+v", conns)
	}
}
