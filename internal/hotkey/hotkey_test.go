package hotkey

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		accel    string
		wantMods Modifier
		wantKey  string
		wantErr  bool
	}{
		{accel: "Alt+Shift+C", wantMods: ModAlt | ModShift, wantKey: "C"},
		{accel: "ctrl+shift+c", wantMods: ModCtrl | ModShift, wantKey: "C"},
		{accel: "Cmd+Option+5", wantMods: ModSuper | ModAlt, wantKey: "5"},
		{accel: "Control + Space", wantMods: ModCtrl, wantKey: "Space"},
		{accel: "C", wantErr: true},
		{accel: "Hyper+C", wantErr: true},
		{accel: "Alt+F13", wantErr: true},
		{accel: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.accel, func(t *testing.T) {
			a, err := Parse(tt.accel)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %+v", a)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if a.Mods != tt.wantMods || a.Key != tt.wantKey {
				t.Errorf("expected mods %b key %q, got mods %b key %q", tt.wantMods, tt.wantKey, a.Mods, a.Key)
			}
		})
	}
}

func TestAcceleratorString(t *testing.T) {
	a, err := Parse("shift+alt+ctrl+x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := a.String(); got != "Ctrl+Shift+Alt+X" {
		t.Errorf("expected canonical form, got %q", got)
	}
}
