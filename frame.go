package vad

import "math"

// frameOutcome is the result of advancing the detector by exactly one window
// (spec §9 Design Notes: "expose a single advance one frame inner function so
// both batch and streaming paths share one execution kernel"). Both the batch
// state machine (batch.go) and the streaming segmenter (streamsession.go) are thin
// layers over advanceFrame.
type frameOutcome struct {
	Probability  float32
	EnergyLevel  float32
	FrameStart   uint64 // current_sample before this frame (t in spec §4.5)
	CurrentEnd   uint64 // current_sample after this frame
}

// advanceFrame runs inference on exactly one window-sized slice, updates the
// carried context and recurrent state, and advances current_sample by
// len(window) (spec §3 invariant 3, §4.4). window must equal d.window in
// length; callers (ProcessChunk, ProcessAudio, streaming framing) are
// responsible for chunking raw audio into window-sized slices first.
func (d *Detector) advanceFrame(window []float32) (frameOutcome, error) {
	if len(window) != d.window {
		return frameOutcome{}, ErrBadFrameSize
	}

	combined := make([]float32, contextSamples+d.window)
	copy(combined[:contextSamples], d.context[:])
	copy(combined[contextSamples:], window)

	prob, err := d.model.infer(combined, &d.hidden)
	if err != nil {
		return frameOutcome{}, &InferenceError{Err: err}
	}

	// Context for the next frame is the trailing 64 samples of this frame's
	// effective input (spec §4.4).
	copy(d.context[:], combined[len(combined)-contextSamples:])

	start := d.currentSample
	d.currentSample += uint64(d.window)

	return frameOutcome{
		Probability: prob,
		EnergyLevel: rms(window),
		FrameStart:  start,
		CurrentEnd:  d.currentSample,
	}, nil
}

// rms computes the root-mean-square level of a window, an advisory field
// carried from wqvad's VadResult.energyLevel (see SPEC_FULL.md). It never
// influences segmentation.
func rms(window []float32) float32 {
	if len(window) == 0 {
		return 0
	}
	var sum float64
	for _, s := range window {
		sum += float64(s) * float64(s)
	}
	return float32(math.Sqrt(sum / float64(len(window))))
}
