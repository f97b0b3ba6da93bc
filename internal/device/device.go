// Package device holds the registry of audio devices known to the
// capture backend.
package device

import "fmt"

// Kind partitions devices into inputs and outputs.
type Kind int

const (
	Input Kind = iota
	Output
)

func (k Kind) String() string {
	switch k {
	case Input:
		return "input"
	case Output:
		return "output"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Device is an audio endpoint exposed by the backend.
type Device struct {
	ID      string
	Name    string
	Kind    Kind
	Default bool
}

// Label returns the human-readable name, falling back to the ID.
func (d Device) Label() string {
	if d.Name != "" {
		return d.Name
	}
	return d.ID
}

// List is an immutable snapshot of the known devices. Slices are never
// modified after the list is published.
type List struct {
	Inputs  []Device
	Outputs []Device
}

// Of returns the devices of the given kind.
func (l List) Of(kind Kind) []Device {
	if kind == Output {
		return l.Outputs
	}
	return l.Inputs
}

// Find looks up id among the devices of the given kind.
func (l List) Find(id string, kind Kind) (Device, bool) {
	for _, d := range l.Of(kind) {
		if d.ID == id {
			return d, true
		}
	}
	return Device{}, false
}

// Contains reports whether id is present among devices of the given kind.
func (l List) Contains(id string, kind Kind) bool {
	_, ok := l.Find(id, kind)
	return ok
}

// Len returns the total number of devices.
func (l List) Len() int {
	return len(l.Inputs) + len(l.Outputs)
}

func newList(inputs, outputs []Device) List {
	return List{
		Inputs:  withKind(inputs, Input),
		Outputs: withKind(outputs, Output),
	}
}

// withKind copies ds so the snapshot does not alias backend memory.
func withKind(ds []Device, kind Kind) []Device {
	out := make([]Device, len(ds))
	for i, d := range ds {
		d.Kind = kind
		out[i] = d
	}
	return out
}
