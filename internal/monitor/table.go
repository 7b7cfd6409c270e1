package monitor

import (
	"sort"

	"github.com/gingerskull/joycore-link/internal/inputs"
	"github.com/gingerskull/joycore-link/internal/rawstate"
	"github.com/gingerskull/joycore-link/internal/settings"
)

// LogicalState is the resolved active flag of one configured input.
type LogicalState struct {
	Name      string            `json:"name"`
	Label     string            `json:"label"`
	GridLabel string            `json:"grid_label"`
	Kind      inputs.SourceKind `json:"kind"`
	Active    bool              `json:"active"`
}

// InputStateUpdate is one accepted sample pushed to the UI: the raw
// sample plus the recomputed logical states of that domain.
type InputStateUpdate struct {
	Domain      rawstate.Domain `json:"domain"`
	Raw         any             `json:"raw"`
	Logical     []LogicalState  `json:"logical"`
	TimestampMs int64           `json:"timestamp"`
}

// Table joins the decoded identity list with the latest raw levels and
// the active pull policies. Logical states are always derived on read;
// only raw levels are stored. Not safe for concurrent use, the session
// serializes access.
type Table struct {
	grouped inputs.Grouped

	haveGpio  bool
	gpioMask  uint64
	registers map[int]uint8
	matrixOn  map[[2]int]bool

	gpioPull     rawstate.PullPolicy
	shiftRegPull rawstate.PullPolicy
}

func NewTable(pm settings.PullModes) *Table {
	return &Table{
		registers:    make(map[int]uint8),
		matrixOn:     make(map[[2]int]bool),
		gpioPull:     pm.Gpio,
		shiftRegPull: pm.ShiftReg,
	}
}

// SetIdentities replaces the configured inputs. Raw levels survive; the
// next read derives logical states for the new identity list.
func (t *Table) SetIdentities(ids []inputs.Identity) {
	t.grouped = inputs.Group(ids)
}

func (t *Table) Identities() inputs.Grouped {
	return t.grouped
}

func (t *Table) SetPullModes(pm settings.PullModes) {
	t.gpioPull = pm.Gpio
	t.shiftRegPull = pm.ShiftReg
}

func (t *Table) PullModes() settings.PullModes {
	return settings.PullModes{Gpio: t.gpioPull, ShiftReg: t.shiftRegPull}
}

func (t *Table) ApplyGpio(mask uint64) {
	t.gpioMask = mask
	t.haveGpio = true
}

// ApplyMatrix replaces the matrix snapshot wholesale.
func (t *Table) ApplyMatrix(conns []rawstate.MatrixConnection) {
	t.matrixOn = make(map[[2]int]bool, len(conns))
	for _, conn := range conns {
		t.matrixOn[[2]int{conn.Row, conn.Col}] = conn.Connected
	}
}

// ApplyRegisters replaces the register memo with the full merged set.
func (t *Table) ApplyRegisters(regs []rawstate.RegisterState) {
	t.registers = make(map[int]uint8, len(regs))
	for _, reg := range regs {
		t.registers[reg.ID] = reg.Value
	}
}

// RawGpio returns the last GPIO mask and whether one was seen.
func (t *Table) RawGpio() (uint64, bool) {
	return t.gpioMask, t.haveGpio
}

func (t *Table) RawRegisters() []rawstate.RegisterState {
	regs := make([]rawstate.RegisterState, 0, len(t.registers))
	for id, value := range t.registers {
		regs = append(regs, rawstate.RegisterState{ID: id, Value: value})
	}
	sortRegisters(regs)
	return regs
}

func (t *Table) RawMatrix() []rawstate.MatrixConnection {
	conns := make([]rawstate.MatrixConnection, 0, len(t.matrixOn))
	for key, connected := range t.matrixOn {
		conns = append(conns, rawstate.MatrixConnection{Row: key[0], Col: key[1], Connected: connected})
	}
	sortConnections(conns)
	return conns
}

// LogicalForDomain derives the logical states of one domain in grouped
// display order.
func (t *Table) LogicalForDomain(domain rawstate.Domain) []LogicalState {
	switch domain {
	case rawstate.DomainGPIO:
		return t.derive(t.grouped.Direct)
	case rawstate.DomainShiftReg:
		return t.derive(t.grouped.ShiftReg)
	case rawstate.DomainMatrix:
		return t.derive(t.grouped.Matrix)
	}
	return nil
}

// SnapshotAll returns every input's logical state: direct, then shift
// register, then matrix.
func (t *Table) SnapshotAll() []LogicalState {
	all := make([]LogicalState, 0,
		len(t.grouped.Direct)+len(t.grouped.ShiftReg)+len(t.grouped.Matrix))
	all = append(all, t.derive(t.grouped.Direct)...)
	all = append(all, t.derive(t.grouped.ShiftReg)...)
	all = append(all, t.derive(t.grouped.Matrix)...)
	return all
}

func (t *Table) derive(ids []inputs.Identity) []LogicalState {
	states := make([]LogicalState, len(ids))
	for i, id := range ids {
		states[i] = LogicalState{
			Name:      id.Name,
			Label:     id.Label,
			GridLabel: id.GridLabel,
			Kind:      id.Kind,
			Active:    t.active(id),
		}
	}
	return states
}

func (t *Table) active(id inputs.Identity) bool {
	switch id.Kind {
	case inputs.SourceDirect:
		// Fallback identities have no pin binding; nothing to resolve.
		if !id.Parsed || !t.haveGpio || id.Pin < 0 || id.Pin > 63 {
			return false
		}
		return rawstate.ResolveLogical(rawstate.GpioLevel(t.gpioMask, id.Pin), t.gpioPull)
	case inputs.SourceShiftReg:
		value, ok := t.registers[id.Register]
		if !ok || id.Bit < 0 || id.Bit > 7 {
			return false
		}
		return rawstate.ResolveLogical(rawstate.RegisterLevel(value, id.Bit), t.shiftRegPull)
	case inputs.SourceMatrix:
		// Matrix scans already report logical connectivity.
		return t.matrixOn[[2]int{id.Row, id.Col}]
	}
	return false
}

func sortRegisters(regs []rawstate.RegisterState) {
	sort.Slice(regs, func(i, j int) bool { return regs[i].ID < regs[j].ID })
}

func sortConnections(conns []rawstate.MatrixConnection) {
	sort.Slice(conns, func(i, j int) bool {
		if conns[i].Row != conns[j].Row {
			return conns[i].Row < conns[j].Row
		}
		return conns[i].Col < conns[j].Col
	})
}
