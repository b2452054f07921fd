// ABOUTME: Streaming linear resampler for mono PCM16 audio
// ABOUTME: Converts between sample rates using linear interpolation across chunk boundaries
package resample

// Resampler performs linear interpolation to convert between sample rates.
// It keeps the last input sample so consecutive chunks join without a seam.
type Resampler struct {
	inputRate  int
	outputRate int
	ratio      float64 // input samples advanced per output sample
	position   float64 // read position relative to the start of the next input
	last       int16
	primed     bool
}

// New creates a new resampler
func New(inputRate, outputRate int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		ratio:      float64(inputRate) / float64(outputRate),
	}
}

// Resample converts input samples at inputRate to output samples at outputRate
func (r *Resampler) Resample(input []int16) []int16 {
	if len(input) == 0 {
		return nil
	}
	if r.inputRate == r.outputRate {
		out := make([]int16, len(input))
		copy(out, input)
		return out
	}

	n := len(input)
	output := make([]int16, 0, r.OutputSamplesNeeded(n)+1)

	// at(-1) is the tail of the previous chunk
	at := func(i int) float64 {
		if i < 0 {
			return float64(r.last)
		}
		return float64(input[i])
	}

	for {
		idx := floor(r.position)
		if idx+1 > n-1 {
			break
		}

		frac := r.position - float64(idx)
		interpolated := at(idx)*(1.0-frac) + at(idx+1)*frac
		output = append(output, int16(interpolated))
		r.position += r.ratio
	}

	// Rebase so index 0 is the first sample of the next chunk
	r.position -= float64(n)
	r.last = input[n-1]
	r.primed = true

	return output
}

// Reset clears the streaming state
func (r *Resampler) Reset() {
	r.position = 0
	r.last = 0
	r.primed = false
}

// OutputSamplesNeeded estimates how many output samples inputSamples produce
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	return int(float64(inputSamples) / r.ratio)
}

// InputSamplesNeeded estimates how many input samples produce outputSamples
func (r *Resampler) InputSamplesNeeded(outputSamples int) int {
	return int(float64(outputSamples) * r.ratio)
}

func floor(v float64) int {
	i := int(v)
	if float64(i) > v {
		i--
	}
	return i
}
