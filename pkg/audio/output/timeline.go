// ABOUTME: Software output device with sample-accurate buffer scheduling
// ABOUTME: Mixes scheduled buffers onto an audio clock driven by rendered frames
package output

import (
	"container/heap"
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/voicelink/voicelink-go/pkg/audio"
)

// Timeline implements Device. Its clock is the number of frames rendered
// so far divided by the sample rate, so it only moves when a backend (or a
// test) pulls audio through Read or Render.
type Timeline struct {
	mu         sync.Mutex
	sampleRate int
	frame      int64 // frames rendered so far
	queue      *BufferQueue
	active     []*scheduledBuffer
	mix        []float32
	volume     int
	muted      bool

	stats TimelineStats
}

// TimelineStats tracks timeline metrics
type TimelineStats struct {
	Scheduled int64
	Played    int64
	Late      int64
	Cancelled int64
}

type scheduledBuffer struct {
	start int64 // first frame on the timeline
	data  []float32
}

func (b *scheduledBuffer) end() int64 {
	return b.start + int64(len(b.data))
}

// NewTimeline creates a mono timeline at sampleRate
func NewTimeline(sampleRate int) *Timeline {
	return &Timeline{
		sampleRate: sampleRate,
		queue:      NewBufferQueue(),
		volume:     100,
	}
}

// SampleRate returns the rate the timeline renders at
func (t *Timeline) SampleRate() int {
	return t.sampleRate
}

// CreateBuffer allocates a buffer the timeline can play
func (t *Timeline) CreateBuffer(channels, frames, sampleRate int) (*Buffer, error) {
	if sampleRate != t.sampleRate {
		return nil, fmt.Errorf("%w: sample rate %d (device runs at %d)", ErrUnsupportedBuffer, sampleRate, t.sampleRate)
	}
	return NewBuffer(channels, frames, sampleRate)
}

// ScheduleBuffer queues buf at startTime. A start in the past plays the
// whole buffer from the current render position.
func (t *Timeline) ScheduleBuffer(buf *Buffer, startTime float64) error {
	if buf == nil {
		return fmt.Errorf("%w: nil buffer", ErrUnsupportedBuffer)
	}
	if buf.SampleRate() != t.sampleRate || buf.Channels() != 1 {
		return fmt.Errorf("%w: %dHz/%dch", ErrUnsupportedBuffer, buf.SampleRate(), buf.Channels())
	}
	if math.IsNaN(startTime) || math.IsInf(startTime, 0) {
		return fmt.Errorf("invalid start time: %v", startTime)
	}

	start := int64(math.Round(startTime * float64(t.sampleRate)))

	t.mu.Lock()
	defer t.mu.Unlock()

	if start < t.frame {
		t.stats.Late++
		if t.stats.Late <= 5 {
			log.Printf("Timeline: buffer scheduled %d frames in the past, starting now", t.frame-start)
		}
		start = t.frame
	}

	heap.Push(t.queue, &scheduledBuffer{start: start, data: buf.ChannelData(0)})
	t.stats.Scheduled++
	return nil
}

// CurrentTime returns the audio clock in seconds
func (t *Timeline) CurrentTime() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return float64(t.frame) / float64(t.sampleRate)
}

// Cancel drops queued and playing buffers. The clock keeps running.
func (t *Timeline) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stats.Cancelled += int64(t.queue.Len() + len(t.active))
	t.queue = NewBufferQueue()
	t.active = nil
}

// Pending returns the number of buffers that have not finished playing
func (t *Timeline) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.queue.Len() + len(t.active)
}

// Stats returns timeline statistics
func (t *Timeline) Stats() TimelineStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

// Render mixes the next len(out) frames into out and advances the clock
func (t *Timeline) Render(out []float32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.render(out)
}

// render must hold t.mu
func (t *Timeline) render(out []float32) {
	for i := range out {
		out[i] = 0
	}

	pos := t.frame
	end := pos + int64(len(out))

	// Promote buffers that begin inside this window
	for t.queue.Len() > 0 && t.queue.Peek().start < end {
		t.active = append(t.active, heap.Pop(t.queue).(*scheduledBuffer))
	}

	remaining := t.active[:0]
	for _, b := range t.active {
		from := max(pos, b.start)
		to := min(end, b.end())
		for f := from; f < to; f++ {
			out[f-pos] += b.data[f-b.start]
		}

		if b.end() > end {
			remaining = append(remaining, b)
		} else {
			t.stats.Played++
		}
	}
	for i := len(remaining); i < len(t.active); i++ {
		t.active[i] = nil
	}
	t.active = remaining

	gain := float32(getVolumeMultiplier(t.volume, t.muted))
	if gain != 1 {
		for i := range out {
			out[i] *= gain
		}
	}

	t.frame = end
}

// Read renders signed 16-bit little-endian frames into p. It never blocks
// and never returns EOF: silence fills the gaps between buffers.
func (t *Timeline) Read(p []byte) (int, error) {
	frames := len(p) / audio.BytesPerSample

	t.mu.Lock()
	defer t.mu.Unlock()

	if cap(t.mix) < frames {
		t.mix = make([]float32, frames)
	}
	mix := t.mix[:frames]
	t.render(mix)

	for i, v := range mix {
		binary.LittleEndian.PutUint16(p[i*2:], uint16(audio.SampleToInt16(v)))
	}
	return frames * audio.BytesPerSample, nil
}

// SetVolume sets the volume (0-100)
func (t *Timeline) SetVolume(volume int) {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}

	t.mu.Lock()
	t.volume = volume
	t.mu.Unlock()
	log.Printf("Volume set to %d", volume)
}

// SetMuted sets mute state
func (t *Timeline) SetMuted(muted bool) {
	t.mu.Lock()
	t.muted = muted
	t.mu.Unlock()
	log.Printf("Muted: %v", muted)
}

// GetVolume returns current volume
func (t *Timeline) GetVolume() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.volume
}

// IsMuted returns mute state
func (t *Timeline) IsMuted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.muted
}

// getVolumeMultiplier calculates volume multiplier
func getVolumeMultiplier(volume int, muted bool) float64 {
	if muted {
		return 0.0
	}
	return float64(volume) / 100.0
}

// BufferQueue is a priority queue of scheduled buffers ordered by start frame
type BufferQueue struct {
	items []*scheduledBuffer
}

func NewBufferQueue() *BufferQueue {
	q := &BufferQueue{}
	heap.Init(q)
	return q
}

// Implement heap.Interface
func (q *BufferQueue) Len() int { return len(q.items) }

func (q *BufferQueue) Less(i, j int) bool {
	return q.items[i].start < q.items[j].start
}

func (q *BufferQueue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
}

func (q *BufferQueue) Push(x interface{}) {
	q.items = append(q.items, x.(*scheduledBuffer))
}

func (q *BufferQueue) Pop() interface{} {
	n := len(q.items)
	item := q.items[n-1]
	q.items[n-1] = nil
	q.items = q.items[:n-1]
	return item
}

func (q *BufferQueue) Peek() *scheduledBuffer {
	return q.items[0]
}
