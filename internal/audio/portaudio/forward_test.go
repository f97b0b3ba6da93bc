package portaudio

import "testing"

func TestDownmixIntoMono(t *testing.T) {
	input := []float32{0.1, 0.2, 0.3, 0.4}
	got := make([]float32, len(input))
	downmixInto(got, input, 1)

	for i := range input {
		if got[i] != input[i] {
			t.Fatalf("expected element %d to be %f, got %f", i, input[i], got[i])
		}
	}

	input[0] = 1
	if got[0] == 1 {
		t.Fatal("expected mono samples to be copied into dst")
	}
}

func TestDownmixIntoStereo(t *testing.T) {
	input := []float32{
		0.0, 1.0,
		0.5, 0.5,
		1.0, 0.0,
		-0.5, 0.5,
	}

	expected := []float32{
		0.5, 0.5, 0.5, 0.0,
	}

	got := make([]float32, len(expected))
	downmixInto(got, input, 2)
	for i := range expected {
		if got[i] != expected[i] {
			t.Fatalf("frame %d mismatch: expected %f, got %f", i, expected[i], got[i])
		}
	}
}

func TestFanOutStereo(t *testing.T) {
	mono := []float32{0.25, -0.5}
	out := make([]float32, 4)

	fanOut(out, mono, 2)

	expected := []float32{0.25, 0.25, -0.5, -0.5}
	for i := range expected {
		if out[i] != expected[i] {
			t.Fatalf("sample %d mismatch: expected %f, got %f", i, expected[i], out[i])
		}
	}
}

func TestForwarderStereoToMono(t *testing.T) {
	fwd := newForwarder(2, 1, 3)
	in := []float32{
		1, 0,
		0, 1,
		1, 1,
	}
	out := []float32{9, 9, 9}

	fwd.process(in, out)

	expected := []float32{0.5, 0.5, 1}
	for i := range expected {
		if out[i] != expected[i] {
			t.Fatalf("frame %d mismatch: expected %f, got %f", i, expected[i], out[i])
		}
	}
}

func TestForwarderShortBufferSilencesTail(t *testing.T) {
	fwd := newForwarder(1, 2, 1)
	out := []float32{9, 9, 9, 9}

	fwd.process([]float32{0.5, 0.75}, out)

	expected := []float32{0.5, 0.5, 0, 0}
	for i := range expected {
		if out[i] != expected[i] {
			t.Fatalf("sample %d mismatch: expected %f, got %f", i, expected[i], out[i])
		}
	}
}
