package portaudio

// forwarder copies interleaved input frames to interleaved output frames,
// downmixing to mono in between. It runs on the PortAudio callback thread
// and must not allocate after construction.
type forwarder struct {
	inChannels  int
	outChannels int
	mono        []float32
}

func newForwarder(inChannels, outChannels, framesPerBuffer int) *forwarder {
	return &forwarder{
		inChannels:  max(inChannels, 1),
		outChannels: max(outChannels, 1),
		mono:        make([]float32, framesPerBuffer),
	}
}

func (f *forwarder) process(in, out []float32) {
	frames := len(in) / f.inChannels
	if frames > len(f.mono) {
		frames = len(f.mono)
	}
	downmixInto(f.mono[:frames], in, f.inChannels)
	fanOut(out, f.mono[:frames], f.outChannels)
}

// downmixInto averages each interleaved input frame into dst.
func downmixInto(dst, in []float32, channels int) {
	if channels <= 1 {
		copy(dst, in)
		return
	}
	for i := range dst {
		var sum float32
		base := i * channels
		for c := 0; c < channels; c++ {
			sum += in[base+c]
		}
		dst[i] = sum / float32(channels)
	}
}

// fanOut writes each mono sample to every output channel. Output frames
// beyond the mono buffer are silenced.
func fanOut(out, mono []float32, channels int) {
	for i := 0; i*channels < len(out); i++ {
		var s float32
		if i < len(mono) {
			s = mono[i]
		}
		for c := 0; c < channels && i*channels+c < len(out); c++ {
			out[i*channels+c] = s
		}
	}
}
