package rawstate

// Domain identifies one physical signal domain of the controller.
type Domain string

const (
	DomainGPIO     Domain = "gpio"
	DomainMatrix   Domain = "matrix"
	DomainShiftReg Domain = "shift_reg"
)

// GpioSample is one snapshot of the direct GPIO bank. Bit i of Mask set
// means pin i is electrically HIGH. Samples are immutable; a new poll
// supersedes the previous sample instead of mutating it.
type GpioSample struct {
	Mask        uint64 `json:"mask"`
	TimestampMs int64  `json:"timestamp"`
}

// MatrixConnection is a single row/column intersection reading.
type MatrixConnection struct {
	Row       int  `json:"row"`
	Col       int  `json:"col"`
	Connected bool `json:"connected"`
}

// MatrixSample is one snapshot of the button matrix scan.
type MatrixSample struct {
	Connections []MatrixConnection `json:"connections"`
	TimestampMs int64              `json:"timestamp"`
}

// RegisterUpdate is one shift register reading. Incoming batches may be
// partial: registers that did not change are allowed to be absent.
type RegisterUpdate struct {
	ID          int   `json:"id"`
	Value       uint8 `json:"value"`
	TimestampMs int64 `json:"timestamp"`
}

// RegisterState is the memoized value of one shift register.
type RegisterState struct {
	ID    int   `json:"id"`
	Value uint8 `json:"value"`
}

// Transition is an accepted state change handed to downstream sinks
// (live broadcast, transition recorder, broker fan-out).
type Transition struct {
	Domain      Domain `json:"domain"`
	Signature   string `json:"signature"`
	Data        any    `json:"data"`
	TimestampMs int64  `json:"timestamp"`
}
