package portaudio

import (
	"testing"

	"github.com/gordonklaus/portaudio"
)

func testDevice(api, name string, in, out int) *portaudio.DeviceInfo {
	return &portaudio.DeviceInfo{
		Name:              name,
		MaxInputChannels:  in,
		MaxOutputChannels: out,
		HostApi:           &portaudio.HostApiInfo{Name: api},
	}
}

func TestDeviceID(t *testing.T) {
	if got := deviceID(testDevice("ALSA", "USB Mic", 1, 0)); got != "ALSA: USB Mic" {
		t.Errorf("expected host API qualified id, got %q", got)
	}
	if got := deviceID(&portaudio.DeviceInfo{Name: "USB Mic"}); got != "USB Mic" {
		t.Errorf("expected bare name without a host API, got %q", got)
	}
}

func TestMatchPairDistinguishesHostAPIs(t *testing.T) {
	alsa := testDevice("ALSA", "USB Mic", 1, 0)
	jack := testDevice("JACK Audio Connection Kit", "USB Mic", 2, 0)
	speakers := testDevice("JACK Audio Connection Kit", "Speakers", 0, 2)
	devices := []*portaudio.DeviceInfo{alsa, jack, speakers}

	in, out, err := matchPair(devices, deviceID(jack), deviceID(speakers))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in != jack {
		t.Errorf("expected the JACK input, got %q on %q", in.Name, in.HostApi.Name)
	}
	if out != speakers {
		t.Errorf("expected speakers, got %q", out.Name)
	}

	if _, _, err := matchPair(devices, "USB Mic", deviceID(speakers)); err == nil {
		t.Error("unqualified name should not match")
	}
	if _, _, err := matchPair(devices, deviceID(alsa), deviceID(alsa)); err == nil {
		t.Error("input-only device must not be accepted as output")
	}
}
