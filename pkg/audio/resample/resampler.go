// ABOUTME: Streaming linear resampler for converting audio sample rates
// ABOUTME: Carries interpolation state across blocks and reports exact frame consumption
package resample

// Resampler performs linear interpolation between two sample rates. Position
// is tracked in units of 1/outputRate so block boundaries never drift.
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int

	// t is the interpolation position between prev and next, in [0, outputRate)
	// once primed. It starts at 2*outputRate so the first two input frames load.
	t    uint64
	prev []float32
	next []float32
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	r := &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		prev:       make([]float32, channels),
		next:       make([]float32, channels),
	}
	r.Reset()
	return r
}

// InputRate returns the rate input frames are expected at
func (r *Resampler) InputRate() int { return r.inputRate }

// OutputRate returns the rate output frames are produced at
func (r *Resampler) OutputRate() int { return r.outputRate }

// Channels returns the interleaved channel count
func (r *Resampler) Channels() int { return r.channels }

// Process resamples interleaved input into output. It stops when either the
// output is full or another input frame would be needed, and returns the
// frames consumed and produced. Consumed frames are never needed again.
func (r *Resampler) Process(input, output []float32) (consumed, produced int) {
	ch := r.channels
	inFrames := len(input) / ch
	outFrames := len(output) / ch
	in, out := uint64(r.inputRate), uint64(r.outputRate)

	for produced < outFrames {
		for r.t >= out {
			if consumed >= inFrames {
				return consumed, produced
			}
			copy(r.prev, r.next)
			copy(r.next, input[consumed*ch:(consumed+1)*ch])
			consumed++
			r.t -= out
		}

		frac := float32(float64(r.t) / float64(out))
		dst := output[produced*ch : (produced+1)*ch]
		for c := range dst {
			dst[c] = r.prev[c] + (r.next[c]-r.prev[c])*frac
		}
		produced++
		r.t += in
	}
	return consumed, produced
}

// InputFramesNeeded returns exactly how many input frames Process consumes to
// produce outputFrames
func (r *Resampler) InputFramesNeeded(outputFrames int) int {
	if outputFrames <= 0 {
		return 0
	}
	return int((r.t + uint64(outputFrames-1)*uint64(r.inputRate)) / uint64(r.outputRate))
}

// OutputFramesAvailable returns how many frames Process produces from inputFrames
// given unlimited output space
func (r *Resampler) OutputFramesAvailable(inputFrames int) int {
	limit := uint64(inputFrames+1) * uint64(r.outputRate)
	if limit <= r.t {
		return 0
	}
	in := uint64(r.inputRate)
	return int((limit - r.t + in - 1) / in)
}

// Reset resets the resampler state
func (r *Resampler) Reset() {
	r.t = 2 * uint64(r.outputRate)
	clear(r.prev)
	clear(r.next)
}
