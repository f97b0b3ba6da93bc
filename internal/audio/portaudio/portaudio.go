// Package portaudio implements the capture backend on top of PortAudio.
// A capture session is a duplex stream that forwards the selected input
// to the selected output.
package portaudio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog"

	"github.com/lucasmsqt/StreamVox/internal/audio"
	"github.com/lucasmsqt/StreamVox/internal/config"
	"github.com/lucasmsqt/StreamVox/internal/device"
)

const maxChannels = 2

type portAudioClient struct {
	framesPerBuffer int
	log             zerolog.Logger

	mu          sync.Mutex
	stream      *portaudio.Stream
	initialized bool
}

// New initializes PortAudio and returns a capture client.
func New(cfg config.AudioConfig, log zerolog.Logger) (audio.Client, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	frames := cfg.FramesPerBuffer
	if frames <= 0 {
		frames = config.DefaultFramesPerBuffer
	}
	return &portAudioClient{
		framesPerBuffer: frames,
		log:             log.With().Str("component", "portaudio").Logger(),
		initialized:     true,
	}, nil
}

// ListDevices re-initializes PortAudio before enumerating, since its
// device list is fixed between Initialize and Terminate. While a stream
// is open the list from the last initialization is returned.
func (p *portAudioClient) ListDevices(ctx context.Context) ([]device.Device, []device.Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.reinitLocked(); err != nil {
		return nil, nil, err
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list devices: %w", err)
	}

	defaultIn, _ := portaudio.DefaultInputDevice()
	defaultOut, _ := portaudio.DefaultOutputDevice()

	var inputs, outputs []device.Device
	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			inputs = append(inputs, device.Device{
				ID:      deviceID(d),
				Name:    d.Name,
				Default: d == defaultIn,
			})
		}
		if d.MaxOutputChannels > 0 {
			outputs = append(outputs, device.Device{
				ID:      deviceID(d),
				Name:    d.Name,
				Default: d == defaultOut,
			})
		}
	}

	return inputs, outputs, nil
}

func (p *portAudioClient) reinitLocked() error {
	if p.stream != nil {
		p.log.Debug().Msg("Stream open, skipping device rescan")
		return nil
	}
	if p.initialized {
		if err := portaudio.Terminate(); err != nil {
			return fmt.Errorf("failed to terminate PortAudio: %w", err)
		}
		p.initialized = false
	}
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	p.initialized = true
	return nil
}

func (p *portAudioClient) StartCapture(ctx context.Context, inputID, outputID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream != nil {
		return audio.ErrBusy
	}
	if !p.initialized {
		if err := p.reinitLocked(); err != nil {
			return err
		}
	}

	in, out, err := findPair(inputID, outputID)
	if err != nil {
		return err
	}

	fwd := newForwarder(
		min(in.MaxInputChannels, maxChannels),
		min(out.MaxOutputChannels, maxChannels),
		p.framesPerBuffer,
	)

	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   in,
			Channels: fwd.inChannels,
			Latency:  in.DefaultLowInputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Device:   out,
			Channels: fwd.outChannels,
			Latency:  out.DefaultLowOutputLatency,
		},
		SampleRate:      in.DefaultSampleRate,
		FramesPerBuffer: p.framesPerBuffer,
	}, fwd.process)
	if err != nil {
		return fmt.Errorf("failed to open audio stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start audio stream: %w", err)
	}

	p.stream = stream
	p.log.Info().
		Str("input", inputID).
		Str("output", outputID).
		Float64("sample_rate", in.DefaultSampleRate).
		Int("in_channels", fwd.inChannels).
		Int("out_channels", fwd.outChannels).
		Msg("Forwarding stream started")
	return nil
}

func (p *portAudioClient) StopCapture(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil {
		return nil
	}
	if err := p.stream.Stop(); err != nil {
		return fmt.Errorf("failed to stop audio stream: %w", err)
	}
	if err := p.stream.Close(); err != nil {
		return fmt.Errorf("failed to close audio stream: %w", err)
	}
	p.stream = nil
	p.log.Info().Msg("Forwarding stream stopped")
	return nil
}

func (p *portAudioClient) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream != nil {
		p.stream.Close()
		p.stream = nil
	}
	if !p.initialized {
		return nil
	}
	p.initialized = false
	return portaudio.Terminate()
}

// deviceID qualifies the device name with its host API, since the same
// device is usually listed once per API (ALSA and JACK, MME and WASAPI).
func deviceID(d *portaudio.DeviceInfo) string {
	if d.HostApi == nil || d.HostApi.Name == "" {
		return d.Name
	}
	return d.HostApi.Name + ": " + d.Name
}

func findPair(inputID, outputID string) (*portaudio.DeviceInfo, *portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	return matchPair(devices, inputID, outputID)
}

func matchPair(devices []*portaudio.DeviceInfo, inputID, outputID string) (*portaudio.DeviceInfo, *portaudio.DeviceInfo, error) {
	var in, out *portaudio.DeviceInfo
	for _, d := range devices {
		id := deviceID(d)
		if in == nil && id == inputID && d.MaxInputChannels > 0 {
			in = d
		}
		if out == nil && id == outputID && d.MaxOutputChannels > 0 {
			out = d
		}
	}

	if in == nil {
		return nil, nil, fmt.Errorf("input device not found: %s", inputID)
	}
	if out == nil {
		return nil, nil, fmt.Errorf("output device not found: %s", outputID)
	}
	return in, out, nil
}
