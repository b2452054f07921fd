// ABOUTME: Tests for the output device contract and Timeline
// ABOUTME: Verifies buffer validation, sample-accurate scheduling and the audio clock
package output

import (
	"encoding/binary"
	"errors"
	"testing"
)

func TestImplementsInterfaces(t *testing.T) {
	var _ Device = (*Timeline)(nil)
	var _ Backend = (*Oto)(nil)
	var _ Backend = (*Malgo)(nil)
}

func TestNewBuffer(t *testing.T) {
	tests := []struct {
		name       string
		channels   int
		frames     int
		sampleRate int
		wantErr    bool
	}{
		{"mono", 1, 2400, 24000, false},
		{"stereo", 2, 2400, 24000, true},
		{"empty", 1, 0, 24000, true},
		{"no rate", 1, 10, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := NewBuffer(tt.channels, tt.frames, tt.sampleRate)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedBuffer) {
					t.Errorf("expected ErrUnsupportedBuffer, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if buf.Frames() != tt.frames {
				t.Errorf("expected %d frames, got %d", tt.frames, buf.Frames())
			}
			if buf.Duration() != 0.1 {
				t.Errorf("expected 0.1s, got %v", buf.Duration())
			}
		})
	}
}

func TestCreateBufferRateMismatch(t *testing.T) {
	tl := NewTimeline(24000)
	if _, err := tl.CreateBuffer(1, 100, 16000); !errors.Is(err, ErrUnsupportedBuffer) {
		t.Errorf("expected ErrUnsupportedBuffer, got %v", err)
	}
}

func TestTimelineClock(t *testing.T) {
	tl := NewTimeline(24000)

	if tl.CurrentTime() != 0 {
		t.Fatalf("expected clock at 0, got %v", tl.CurrentTime())
	}

	tl.Render(make([]float32, 2400))
	if tl.CurrentTime() != 0.1 {
		t.Errorf("expected clock at 0.1s, got %v", tl.CurrentTime())
	}

	// Read advances by frames, not bytes
	if _, err := tl.Read(make([]byte, 4800)); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if tl.CurrentTime() != 0.2 {
		t.Errorf("expected clock at 0.2s, got %v", tl.CurrentTime())
	}
}

func TestTimelineSchedulesAtExactFrame(t *testing.T) {
	tl := NewTimeline(1000)

	buf := constantBuffer(t, tl, 10, 0.5)
	if err := tl.ScheduleBuffer(buf, 0.005); err != nil {
		t.Fatalf("ScheduleBuffer failed: %v", err)
	}

	out := make([]float32, 20)
	tl.Render(out)

	for i, v := range out {
		want := float32(0)
		if i >= 5 && i < 15 {
			want = 0.5
		}
		if v != want {
			t.Errorf("frame %d: expected %v, got %v", i, want, v)
		}
	}

	if tl.Pending() != 0 {
		t.Errorf("expected buffer to be retired, %d pending", tl.Pending())
	}
	if tl.Stats().Played != 1 {
		t.Errorf("expected 1 played buffer, got %d", tl.Stats().Played)
	}
}

func TestTimelineBackToBackIsGapless(t *testing.T) {
	tl := NewTimeline(24000)

	// Odd sizes so durations are not whole milliseconds
	sizes := []int{4096, 1023, 77, 2400}
	next := 0.1
	total := 0
	for i, n := range sizes {
		buf := constantBuffer(t, tl, n, float32(i+1)/10)
		if err := tl.ScheduleBuffer(buf, next); err != nil {
			t.Fatalf("ScheduleBuffer failed: %v", err)
		}
		next += buf.Duration()
		total += n
	}

	out := make([]float32, 2400+total+10)
	// Render in awkward slices to cross buffer edges mid-window
	for off := 0; off < len(out); off += 333 {
		end := min(off+333, len(out))
		tl.Render(out[off:end])
	}

	pos := 2400
	for i, n := range sizes {
		want := float32(i+1) / 10
		for f := pos; f < pos+n; f++ {
			if out[f] != want {
				t.Fatalf("buffer %d frame %d: expected %v, got %v", i, f, want, out[f])
			}
		}
		pos += n
	}
	for f := 0; f < 2400; f++ {
		if out[f] != 0 {
			t.Fatalf("expected silence before first buffer at %d", f)
		}
	}
	for f := pos; f < len(out); f++ {
		if out[f] != 0 {
			t.Fatalf("expected silence after last buffer at %d", f)
		}
	}
}

func TestTimelineLateBufferStartsNow(t *testing.T) {
	tl := NewTimeline(1000)
	tl.Render(make([]float32, 100))

	buf := constantBuffer(t, tl, 10, 0.25)
	if err := tl.ScheduleBuffer(buf, 0.05); err != nil {
		t.Fatalf("ScheduleBuffer failed: %v", err)
	}

	out := make([]float32, 10)
	tl.Render(out)
	for i, v := range out {
		if v != 0.25 {
			t.Errorf("frame %d: expected full buffer playback, got %v", i, v)
		}
	}
	if tl.Stats().Late != 1 {
		t.Errorf("expected 1 late buffer, got %d", tl.Stats().Late)
	}
}

func TestTimelineCancel(t *testing.T) {
	tl := NewTimeline(1000)

	buf := constantBuffer(t, tl, 100, 0.5)
	if err := tl.ScheduleBuffer(buf, 0); err != nil {
		t.Fatalf("ScheduleBuffer failed: %v", err)
	}
	tl.Render(make([]float32, 10))
	tl.Cancel()

	out := make([]float32, 10)
	tl.Render(out)
	for i, v := range out {
		if v != 0 {
			t.Fatalf("frame %d: expected silence after cancel, got %v", i, v)
		}
	}
	if tl.CurrentTime() != 0.02 {
		t.Errorf("expected clock to keep running, got %v", tl.CurrentTime())
	}
}

func TestTimelineReadPCM16(t *testing.T) {
	tl := NewTimeline(1000)

	buf := constantBuffer(t, tl, 2, -1)
	if err := tl.ScheduleBuffer(buf, 0); err != nil {
		t.Fatalf("ScheduleBuffer failed: %v", err)
	}

	p := make([]byte, 6)
	n, err := tl.Read(p)
	if err != nil || n != 6 {
		t.Fatalf("Read returned %d, %v", n, err)
	}

	expected := []int16{-32768, -32768, 0}
	for i, want := range expected {
		got := int16(binary.LittleEndian.Uint16(p[i*2:]))
		if got != want {
			t.Errorf("sample %d: expected %d, got %d", i, want, got)
		}
	}
}

func TestVolumeMultiplier(t *testing.T) {
	tests := []struct {
		volume   int
		muted    bool
		expected float64
	}{
		{100, false, 1.0},
		{50, false, 0.5},
		{0, false, 0.0},
		{80, true, 0.0}, // Muted overrides volume
	}

	for _, tt := range tests {
		result := getVolumeMultiplier(tt.volume, tt.muted)
		if result != tt.expected {
			t.Errorf("volume=%d, muted=%v: expected %f, got %f",
				tt.volume, tt.muted, tt.expected, result)
		}
	}
}

func TestTimelineVolume(t *testing.T) {
	tl := NewTimeline(1000)
	tl.SetVolume(150)
	if tl.GetVolume() != 100 {
		t.Errorf("expected volume clamped to 100, got %d", tl.GetVolume())
	}

	tl.SetVolume(50)
	buf := constantBuffer(t, tl, 4, 0.5)
	if err := tl.ScheduleBuffer(buf, 0); err != nil {
		t.Fatalf("ScheduleBuffer failed: %v", err)
	}

	out := make([]float32, 4)
	tl.Render(out)
	if out[0] != 0.25 {
		t.Errorf("expected 0.25 at half volume, got %v", out[0])
	}

	tl.SetMuted(true)
	if !tl.IsMuted() {
		t.Error("expected muted")
	}
}

func constantBuffer(t *testing.T, tl *Timeline, frames int, value float32) *Buffer {
	t.Helper()
	buf, err := tl.CreateBuffer(1, frames, tl.SampleRate())
	if err != nil {
		t.Fatalf("CreateBuffer failed: %v", err)
	}
	data := buf.ChannelData(0)
	for i := range data {
		data[i] = value
	}
	return buf
}
