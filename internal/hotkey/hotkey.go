package hotkey

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupported is returned by New on platforms without a global hotkey
// implementation.
var ErrUnsupported = errors.New("global hotkeys are not supported on this platform")

// Manager defines the interface for global hotkey management
type Manager interface {
	Register(accel string, callback func(pressed bool)) error
	Unregister(accel string) error
	Close() error
}

// Modifier is a bit set of modifier keys.
type Modifier uint8

const (
	ModCtrl Modifier = 1 << iota
	ModShift
	ModAlt
	ModSuper
)

// Accelerator is a parsed key combination like "Alt+Shift+C".
type Accelerator struct {
	Mods Modifier
	Key  string // upper-case letter or digit, or a named key such as "Space"
}

var modifierNames = map[string]Modifier{
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"shift":   ModShift,
	"alt":     ModAlt,
	"option":  ModAlt,
	"super":   ModSuper,
	"cmd":     ModSuper,
	"command": ModSuper,
	"meta":    ModSuper,
}

var namedKeys = map[string]string{
	"space":  "Space",
	"enter":  "Return",
	"return": "Return",
	"tab":    "Tab",
	"escape": "Escape",
	"esc":    "Escape",
}

// Parse reads an accelerator of '+'-separated modifiers followed by one
// key. Names are case-insensitive.
func Parse(accel string) (Accelerator, error) {
	parts := strings.Split(accel, "+")
	if len(parts) < 2 {
		return Accelerator{}, fmt.Errorf("hotkey %q: need at least one modifier and a key", accel)
	}

	var a Accelerator
	for _, p := range parts[:len(parts)-1] {
		mod, ok := modifierNames[strings.ToLower(strings.TrimSpace(p))]
		if !ok {
			return Accelerator{}, fmt.Errorf("hotkey %q: unknown modifier %q", accel, p)
		}
		a.Mods |= mod
	}

	key := strings.TrimSpace(parts[len(parts)-1])
	switch {
	case len(key) == 1 && isAlnum(key[0]):
		a.Key = strings.ToUpper(key)
	case namedKeys[strings.ToLower(key)] != "":
		a.Key = namedKeys[strings.ToLower(key)]
	default:
		return Accelerator{}, fmt.Errorf("hotkey %q: unsupported key %q", accel, key)
	}
	return a, nil
}

func (a Accelerator) String() string {
	var parts []string
	for _, m := range []struct {
		mod  Modifier
		name string
	}{{ModCtrl, "Ctrl"}, {ModShift, "Shift"}, {ModAlt, "Alt"}, {ModSuper, "Super"}} {
		if a.Mods&m.mod != 0 {
			parts = append(parts, m.name)
		}
	}
	return strings.Join(append(parts, a.Key), "+")
}

func isAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
