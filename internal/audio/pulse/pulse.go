// Package pulse implements the capture backend against a PulseAudio (or
// pipewire-pulse) server. A capture session is a module-loopback instance
// routing the selected source into the selected sink.
package pulse

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/jfreymuth/pulse/proto"
	"github.com/rs/zerolog"

	"github.com/lucasmsqt/StreamVox/internal/audio"
	"github.com/lucasmsqt/StreamVox/internal/config"
	"github.com/lucasmsqt/StreamVox/internal/device"
)

const (
	clientName     = "streamvox"
	loopbackModule = "module-loopback"
	descriptionKey = "device.description"
)

type pulseClient struct {
	cfg config.PulseConfig
	log zerolog.Logger

	mu        sync.Mutex
	client    *proto.Client
	conn      net.Conn
	module    uint32
	capturing bool
}

// New connects to the PulseAudio server named in cfg (empty for the
// default server) and returns a capture client.
func New(cfg config.PulseConfig, log zerolog.Logger) (audio.Client, error) {
	log = log.With().Str("component", "pulse").Logger()

	client, conn, err := proto.Connect(cfg.Server)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to establish PulseAudio connection")
		return nil, fmt.Errorf("establish PulseAudio connection: %w", err)
	}

	request := proto.SetClientName{
		Props: proto.PropList{
			"application.name": proto.PropListString(clientName),
		},
	}
	reply := proto.SetClientNameReply{}
	if err := client.Request(&request, &reply); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set PulseAudio client name: %w", err)
	}

	log.Debug().Str("server", cfg.Server).Msg("Connected to PulseAudio")

	return &pulseClient{
		cfg:    cfg,
		log:    log,
		client: client,
		conn:   conn,
	}, nil
}

func (p *pulseClient) ListDevices(ctx context.Context) ([]device.Device, []device.Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	defaultSink, defaultSource := p.defaults()

	sinkReply := proto.GetSinkInfoListReply{}
	if err := p.client.Request(&proto.GetSinkInfoList{}, &sinkReply); err != nil {
		return nil, nil, fmt.Errorf("get sink list: %w", err)
	}
	sourceReply := proto.GetSourceInfoListReply{}
	if err := p.client.Request(&proto.GetSourceInfoList{}, &sourceReply); err != nil {
		return nil, nil, fmt.Errorf("get source list: %w", err)
	}

	var outputs []device.Device
	for _, sink := range sinkReply {
		if sink == nil {
			continue
		}
		name := sink.SinkName
		if name == "" {
			name = fmt.Sprintf("sink-%d", sink.SinkIndex)
		}
		outputs = append(outputs, device.Device{
			ID:      name,
			Name:    description(sink.Properties, name),
			Default: name == defaultSink,
		})
	}

	var inputs []device.Device
	for _, source := range sourceReply {
		if source == nil {
			continue
		}
		// monitor sources mirror a sink and are not capture devices
		if source.MonitorSourceIndex != proto.Undefined {
			continue
		}
		name := source.SourceName
		if name == "" {
			name = fmt.Sprintf("source-%d", source.SourceIndex)
		}
		inputs = append(inputs, device.Device{
			ID:      name,
			Name:    description(source.Properties, name),
			Default: name == defaultSource,
		})
	}

	return inputs, outputs, nil
}

// defaults returns the names of the server's default sink and source.
// Lookup failures only cost the Default flag.
func (p *pulseClient) defaults() (sink, source string) {
	sinkReply := proto.GetSinkInfoReply{}
	if err := p.client.Request(&proto.GetSinkInfo{SinkIndex: proto.Undefined}, &sinkReply); err == nil {
		sink = sinkReply.SinkName
	} else {
		p.log.Debug().Err(err).Msg("No default sink")
	}

	sourceReply := proto.GetSourceInfoReply{}
	if err := p.client.Request(&proto.GetSourceInfo{SourceIndex: proto.Undefined}, &sourceReply); err == nil {
		source = sourceReply.SourceName
	} else {
		p.log.Debug().Err(err).Msg("No default source")
	}
	return sink, source
}

func (p *pulseClient) StartCapture(ctx context.Context, inputID, outputID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.capturing {
		return audio.ErrBusy
	}

	request := proto.LoadModule{
		Name: loopbackModule,
		Args: loopbackArgs(inputID, outputID, p.cfg.LatencyMsec),
	}
	reply := proto.LoadModuleReply{}
	if err := p.client.Request(&request, &reply); err != nil {
		return fmt.Errorf("load %s: %w", loopbackModule, err)
	}

	p.module = reply.ModuleIndex
	p.capturing = true
	p.log.Info().
		Str("source", inputID).
		Str("sink", outputID).
		Uint32("module", reply.ModuleIndex).
		Msg("Loopback loaded")
	return nil
}

func (p *pulseClient) StopCapture(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.capturing {
		return nil
	}
	if err := p.client.Request(&proto.UnloadModule{ModuleIndex: p.module}, nil); err != nil {
		return fmt.Errorf("unload module %d: %w", p.module, err)
	}

	p.log.Info().Uint32("module", p.module).Msg("Loopback unloaded")
	p.capturing = false
	p.module = 0
	return nil
}

func (p *pulseClient) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.capturing {
		if err := p.client.Request(&proto.UnloadModule{ModuleIndex: p.module}, nil); err != nil {
			p.log.Warn().Err(err).Uint32("module", p.module).Msg("Failed to unload loopback on close")
		}
		p.capturing = false
	}
	if err := p.conn.Close(); err != nil {
		return fmt.Errorf("close PulseAudio connection: %w", err)
	}
	return nil
}

func description(props proto.PropList, fallback string) string {
	if props == nil {
		return fallback
	}
	if desc, ok := props[descriptionKey]; ok {
		if s := desc.String(); s != "" {
			return s
		}
	}
	return fallback
}

// loopbackArgs builds the module-loopback argument string.
func loopbackArgs(source, sink string, latencyMsec int) string {
	args := []string{
		"source=" + quoteArg(source),
		"sink=" + quoteArg(sink),
		"source_dont_move=true",
		"sink_dont_move=true",
	}
	if latencyMsec > 0 {
		args = append(args, "latency_msec="+strconv.Itoa(latencyMsec))
	}
	return strings.Join(args, " ")
}

func quoteArg(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
