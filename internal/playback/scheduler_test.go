// ABOUTME: Tests for the playback scheduler
// ABOUTME: Tests warm-up, gapless placement, stop semantics and malformed chunks
package playback

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/voicelink/voicelink-go/internal/metrics"
	"github.com/voicelink/voicelink-go/pkg/audio"
	"github.com/voicelink/voicelink-go/pkg/audio/output"
)

// fakeDevice records scheduled buffers against a settable clock
type fakeDevice struct {
	now       float64
	starts    []float64
	buffers   []*output.Buffer
	cancelled int
}

func (d *fakeDevice) CreateBuffer(channels, frames, sampleRate int) (*output.Buffer, error) {
	return output.NewBuffer(channels, frames, sampleRate)
}

func (d *fakeDevice) ScheduleBuffer(buf *output.Buffer, startTime float64) error {
	d.starts = append(d.starts, startTime)
	d.buffers = append(d.buffers, buf)
	return nil
}

func (d *fakeDevice) CurrentTime() float64 { return d.now }

func (d *fakeDevice) Cancel() { d.cancelled++ }

func pcmChunk(samples ...int16) audio.Chunk {
	chunk := make(audio.Chunk, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(chunk[i*2:], uint16(s))
	}
	return chunk
}

func constantChunk(n int, value int16) audio.Chunk {
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = value
	}
	return pcmChunk(samples...)
}

func newTestScheduler(t *testing.T, dev output.Device, cfg Config) *Scheduler {
	t.Helper()
	s, err := NewScheduler(dev, cfg, metrics.Discard())
	if err != nil {
		t.Fatalf("NewScheduler failed: %v", err)
	}
	return s
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestNewSchedulerValidation(t *testing.T) {
	tests := []struct {
		name   string
		device output.Device
		cfg    Config
	}{
		{"nil device", nil, DefaultConfig()},
		{"zero rate", &fakeDevice{}, Config{SampleRate: 0, WarmUp: audio.WarmUpLatency}},
		{"negative warm-up", &fakeDevice{}, Config{SampleRate: 24000, WarmUp: -time.Millisecond}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewScheduler(tt.device, tt.cfg, metrics.Discard()); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestFirstChunkWarmUp(t *testing.T) {
	dev := &fakeDevice{now: 5.0}
	s := newTestScheduler(t, dev, DefaultConfig())

	if s.State() != Idle {
		t.Fatalf("expected Idle, got %v", s.State())
	}

	if err := s.AddChunk(constantChunk(480, 100)); err != nil {
		t.Fatalf("AddChunk failed: %v", err)
	}

	if s.State() != Active {
		t.Errorf("expected Active, got %v", s.State())
	}
	if !approxEqual(dev.starts[0], 5.1) {
		t.Errorf("expected first start 5.1, got %v", dev.starts[0])
	}
	if !approxEqual(s.NextStartTime(), 5.1+480.0/24000) {
		t.Errorf("expected next start %v, got %v", 5.1+480.0/24000, s.NextStartTime())
	}
}

func TestGaplessScheduling(t *testing.T) {
	dev := &fakeDevice{now: 1.0}
	s := newTestScheduler(t, dev, DefaultConfig())

	sizes := []int{480, 1000, 1, 2400, 7}
	for i, n := range sizes {
		// The clock moving between arrivals must not affect placement
		dev.now += 0.003 * float64(i)
		if err := s.AddChunk(constantChunk(n, 1)); err != nil {
			t.Fatalf("AddChunk %d failed: %v", i, err)
		}
	}

	for i := 1; i < len(sizes); i++ {
		want := dev.starts[i-1] + float64(sizes[i-1])/24000
		if !approxEqual(dev.starts[i], want) {
			t.Errorf("chunk %d: expected start %v, got %v", i, want, dev.starts[i])
		}
	}
}

func TestDecodeScaling(t *testing.T) {
	dev := &fakeDevice{}
	s := newTestScheduler(t, dev, DefaultConfig())

	if err := s.AddChunk(pcmChunk(0, 16384, -32768, 32767)); err != nil {
		t.Fatalf("AddChunk failed: %v", err)
	}

	buf := dev.buffers[0]
	if buf.SampleRate() != 24000 || buf.Channels() != 1 || buf.Frames() != 4 {
		t.Fatalf("unexpected buffer %dHz/%dch/%d frames", buf.SampleRate(), buf.Channels(), buf.Frames())
	}

	want := []float32{0, 0.5, -1, 32767.0 / 32768.0}
	for i, w := range want {
		if got := buf.ChannelData(0)[i]; got != w {
			t.Errorf("sample %d: expected %v, got %v", i, w, got)
		}
	}
}

func TestStopResetsSchedule(t *testing.T) {
	dev := &fakeDevice{now: 2.0}
	s := newTestScheduler(t, dev, DefaultConfig())

	if err := s.AddChunk(constantChunk(24000, 1)); err != nil {
		t.Fatalf("AddChunk failed: %v", err)
	}

	s.Stop()
	if s.State() != Idle {
		t.Errorf("expected Idle after Stop, got %v", s.State())
	}
	if s.NextStartTime() != 0 {
		t.Errorf("expected nextStartTime 0, got %v", s.NextStartTime())
	}
	if dev.cancelled != 0 {
		t.Error("Stop must not cancel scheduled buffers by default")
	}

	// Next chunk restarts from the clock, not from the old schedule
	dev.now = 2.5
	if err := s.AddChunk(constantChunk(10, 1)); err != nil {
		t.Fatalf("AddChunk failed: %v", err)
	}
	if !approxEqual(dev.starts[1], 2.6) {
		t.Errorf("expected restart at 2.6, got %v", dev.starts[1])
	}

	// Stop on an idle scheduler is harmless
	s.Stop()
	s.Stop()
	if got := s.Stats().Stops; got != 2 {
		t.Errorf("expected 2 effective stops, got %d", got)
	}
}

func TestCancelOnStop(t *testing.T) {
	dev := &fakeDevice{}
	cfg := DefaultConfig()
	cfg.CancelOnStop = true
	s := newTestScheduler(t, dev, cfg)

	if err := s.AddChunk(constantChunk(10, 1)); err != nil {
		t.Fatalf("AddChunk failed: %v", err)
	}
	s.Stop()

	if dev.cancelled != 1 {
		t.Errorf("expected device cancel, got %d", dev.cancelled)
	}
}

func TestMalformedChunks(t *testing.T) {
	tests := []struct {
		name  string
		chunk audio.Chunk
	}{
		{"odd length", audio.Chunk{1, 2, 3}},
		{"empty", audio.Chunk{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := &fakeDevice{now: 1.0}
			s := newTestScheduler(t, dev, DefaultConfig())

			if err := s.AddChunk(constantChunk(100, 1)); err != nil {
				t.Fatalf("AddChunk failed: %v", err)
			}
			before := s.NextStartTime()

			err := s.AddChunk(tt.chunk)
			if !errors.Is(err, audio.ErrMalformedChunk) {
				t.Fatalf("expected ErrMalformedChunk, got %v", err)
			}
			if s.NextStartTime() != before {
				t.Errorf("nextStartTime changed: %v -> %v", before, s.NextStartTime())
			}
			if len(dev.starts) != 1 {
				t.Errorf("malformed chunk reached the device")
			}
			if s.Stats().Rejected != 1 {
				t.Errorf("expected 1 rejected, got %d", s.Stats().Rejected)
			}
		})
	}
}

func TestMalformedFirstChunkStaysIdle(t *testing.T) {
	dev := &fakeDevice{}
	s := newTestScheduler(t, dev, DefaultConfig())

	if err := s.AddChunk(audio.Chunk{1}); err == nil {
		t.Fatal("expected error")
	}
	if s.State() != Idle {
		t.Errorf("expected Idle, got %v", s.State())
	}
}

func TestAddEncoded(t *testing.T) {
	dev := &fakeDevice{}
	s := newTestScheduler(t, dev, DefaultConfig())

	encoded := base64.StdEncoding.EncodeToString(constantChunk(24, 8))
	if err := s.AddEncoded(encoded); err != nil {
		t.Fatalf("AddEncoded failed: %v", err)
	}
	if len(dev.starts) != 1 || dev.buffers[0].Frames() != 24 {
		t.Error("expected one 24-frame buffer")
	}

	if err := s.AddEncoded("not base64!"); !errors.Is(err, audio.ErrMalformedChunk) {
		t.Errorf("expected ErrMalformedChunk, got %v", err)
	}
}

func TestLead(t *testing.T) {
	dev := &fakeDevice{now: 3.0}
	s := newTestScheduler(t, dev, DefaultConfig())

	if s.Lead() != 0 {
		t.Error("idle scheduler should report zero lead")
	}
	if err := s.AddChunk(constantChunk(2400, 1)); err != nil {
		t.Fatalf("AddChunk failed: %v", err)
	}

	// 100ms warm-up plus 100ms of audio
	lead := s.Lead()
	if lead < 199*time.Millisecond || lead > 201*time.Millisecond {
		t.Errorf("expected ~200ms lead, got %v", lead)
	}
}

func TestPlaysGaplessOnTimeline(t *testing.T) {
	tl := output.NewTimeline(24000)
	s := newTestScheduler(t, tl, DefaultConfig())

	sizes := []int{480, 333, 1201}
	total := 0
	for _, n := range sizes {
		if err := s.AddChunk(constantChunk(n, 16384)); err != nil {
			t.Fatalf("AddChunk failed: %v", err)
		}
		total += n
	}

	// Warm-up (2400 frames) plus all audio plus a tail of silence
	out := make([]float32, 2400+total+100)
	tl.Render(out)

	for i, v := range out {
		inAudio := i >= 2400 && i < 2400+total
		if inAudio && v != 0.5 {
			t.Fatalf("frame %d: expected 0.5, got %v", i, v)
		}
		if !inAudio && v != 0 {
			t.Fatalf("frame %d: expected silence, got %v", i, v)
		}
	}
}

func TestStateString(t *testing.T) {
	if Idle.String() != "idle" || Active.String() != "active" {
		t.Error("unexpected state names")
	}
}
