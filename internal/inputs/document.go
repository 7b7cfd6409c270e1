package inputs

// Document is the input map for one device: the full list of configured
// input descriptor names. Delivered by the device backend on request, or
// loaded from a local override file for bench setups.
type Document struct {
	SchemaVersion int        `json:"schema_version"`
	Device        string     `json:"device,omitempty"`
	Inputs        []InputDef `json:"inputs"`
}

// InputDef is one configured input entry.
type InputDef struct {
	Name string `json:"name"`
}

// Names returns the descriptor names in document order.
func (d *Document) Names() []string {
	names := make([]string, len(d.Inputs))
	for i, in := range d.Inputs {
		names[i] = in.Name
	}
	return names
}

// Identities decodes every entry of the document, preserving order.
func (d *Document) Identities() []Identity {
	return DecodeAll(d.Names())
}
