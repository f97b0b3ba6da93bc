//go:build darwin

package hotkey

/*
#cgo LDFLAGS: -framework Carbon
#include <Carbon/Carbon.h>

// Forward declaration for Go callback
extern void goHotkeyCallback(int pressed);

// Event handler for hotkeys
static OSStatus hotkeyHandler(EventHandlerCallRef nextHandler, EventRef theEvent, void* userData) {
    EventHotKeyID hkRef;
    GetEventParameter(theEvent, kEventParamDirectObject, typeEventHotKeyID, NULL, sizeof(hkRef), NULL, &hkRef);

    UInt32 eventKind = GetEventKind(theEvent);
    int pressed = (eventKind == kEventHotKeyPressed) ? 1 : 0;

    goHotkeyCallback(pressed);

    return noErr;
}

static int handlerInstalled = 0;

// Register hotkey with Carbon. Returns NULL on failure.
static void* registerHotkey(UInt32 keyCode, UInt32 modifiers) {
    EventTypeSpec eventTypes[2];
    eventTypes[0].eventClass = kEventClassKeyboard;
    eventTypes[0].eventKind = kEventHotKeyPressed;
    eventTypes[1].eventClass = kEventClassKeyboard;
    eventTypes[1].eventKind = kEventHotKeyReleased;

    if (!handlerInstalled) {
        EventHandlerUPP handlerUPP = NewEventHandlerUPP(hotkeyHandler);
        InstallApplicationEventHandler(handlerUPP, 2, eventTypes, NULL, NULL);
        handlerInstalled = 1;
    }

    EventHotKeyRef hotKeyRef;
    EventHotKeyID hotKeyID;
    hotKeyID.signature = 'htk1';
    hotKeyID.id = 1;

    OSStatus status = RegisterEventHotKey(keyCode, modifiers, hotKeyID, GetApplicationEventTarget(), 0, &hotKeyRef);

    return (status == noErr) ? (void*)hotKeyRef : NULL;
}

static void unregisterHotkey(void* ref) {
    UnregisterEventHotKey((EventHotKeyRef)ref);
}
*/
import "C"

import (
	"fmt"
	"sync"
	"unsafe"
)

// Carbon modifier masks.
const (
	cmdKey     = 0x100
	shiftKey   = 0x200
	optionKey  = 0x800
	controlKey = 0x1000
)

// Virtual key codes for the ANSI layout.
var keyCodes = map[string]uint32{
	"A": 0, "S": 1, "D": 2, "F": 3, "H": 4, "G": 5, "Z": 6, "X": 7,
	"C": 8, "V": 9, "B": 11, "Q": 12, "W": 13, "E": 14, "R": 15, "Y": 16,
	"T": 17, "1": 18, "2": 19, "3": 20, "4": 21, "6": 22, "5": 23, "9": 25,
	"7": 26, "8": 28, "0": 29, "O": 31, "U": 32, "I": 34, "P": 35, "L": 37,
	"J": 38, "K": 40, "N": 45, "M": 46,
	"Return": 36, "Tab": 48, "Space": 49, "Escape": 53,
}

type darwinManager struct {
	mu       sync.Mutex
	callback func(bool)
	refs     map[string]unsafe.Pointer
}

var globalManager *darwinManager

// New creates a new macOS hotkey manager using Carbon
func New() (Manager, error) {
	mgr := &darwinManager{refs: make(map[string]unsafe.Pointer)}
	return mgr, nil
}

//export goHotkeyCallback
func goHotkeyCallback(pressed C.int) {
	m := globalManager
	if m == nil {
		return
	}
	m.mu.Lock()
	cb := m.callback
	m.mu.Unlock()
	if cb != nil {
		cb(pressed == 1)
	}
}

// Register binds accel. Carbon delivers every registered hotkey to one
// handler, so the most recent callback receives all presses.
func (m *darwinManager) Register(accel string, callback func(pressed bool)) error {
	a, err := Parse(accel)
	if err != nil {
		return err
	}
	keyCode, ok := keyCodes[a.Key]
	if !ok {
		return fmt.Errorf("no key code for %s", a)
	}

	m.mu.Lock()
	m.callback = callback
	m.mu.Unlock()
	globalManager = m

	ref := C.registerHotkey(C.UInt32(keyCode), C.UInt32(carbonModifiers(a.Mods)))
	if ref == nil {
		return fmt.Errorf("failed to register hotkey %s", a)
	}

	m.mu.Lock()
	m.refs[accel] = ref
	m.mu.Unlock()
	return nil
}

func (m *darwinManager) Unregister(accel string) error {
	m.mu.Lock()
	ref, ok := m.refs[accel]
	delete(m.refs, accel)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("hotkey %q is not registered", accel)
	}
	C.unregisterHotkey(ref)
	return nil
}

func (m *darwinManager) Close() error {
	m.mu.Lock()
	refs := m.refs
	m.refs = make(map[string]unsafe.Pointer)
	m.mu.Unlock()

	for _, ref := range refs {
		C.unregisterHotkey(ref)
	}
	globalManager = nil
	return nil
}

func carbonModifiers(mods Modifier) uint32 {
	var out uint32
	if mods&ModCtrl != 0 {
		out |= controlKey
	}
	if mods&ModShift != 0 {
		out |= shiftKey
	}
	if mods&ModAlt != 0 {
		out |= optionKey
	}
	if mods&ModSuper != 0 {
		out |= cmdKey
	}
	return out
}
