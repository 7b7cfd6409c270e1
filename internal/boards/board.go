package boards

// Board describes one supported controller board: its pin catalog and
// the wiring limits the UI offers during configuration.
type Board struct {
	ID     string `json:"id"`
	Vendor string `json:"vendor"`
	Name   string `json:"name"`
	MCU    string `json:"mcu"`

	GpioPins       int                 `json:"gpioPins"`
	ShiftRegisters ShiftRegisterLimits `json:"shiftRegisters"`
	Matrix         MatrixLimits        `json:"matrix"`
	Pins           []Pin               `json:"pins"`
}

type ShiftRegisterLimits struct {
	MaxChain int `json:"maxChain"`
}

type MatrixLimits struct {
	MaxRows int `json:"maxRows"`
	MaxCols int `json:"maxCols"`
}

type Pin struct {
	ID           int      `json:"id"`
	Name         string   `json:"name"`
	Capabilities []string `json:"capabilities"`
}

// Summary is the list view of a board.
type Summary struct {
	ID     string `json:"id"`
	Vendor string `json:"vendor"`
	Name   string `json:"name"`
	MCU    string `json:"mcu"`
}

// vendorIndex is the per-vendor index.yaml listing descriptor files.
type vendorIndex struct {
	Vendor string `yaml:"vendor"`
	Boards []struct {
		File string `yaml:"file"`
	} `yaml:"boards"`
}
