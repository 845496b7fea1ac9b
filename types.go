package vad

// VadResult is the per-frame output of ProcessChunk (spec §3).
type VadResult struct {
	IsVoice     bool
	Probability float32
	TimestampMs int64 // monotonic, derived from current_sample / sample_rate

	// EnergyLevel is an advisory RMS level of the frame's window samples.
	// It is not fed to the model and does not affect segmentation; it is
	// carried over from wqvad's VadResult.energyLevel (see SPEC_FULL.md
	// "SUPPLEMENTED FEATURES") for callers doing simple gain diagnostics.
	EnergyLevel float32
}

// VadSegment is an emitted speech segment (spec §3). StartTimeS is always
// strictly less than EndTimeS.
type VadSegment struct {
	StartTimeS float32
	EndTimeS   float32
	Confidence float32 // average frame probability over the segment, in [0,1]
	IsSpeech   bool
}

// Duration returns the segment length in seconds.
func (s VadSegment) Duration() float32 {
	return s.EndTimeS - s.StartTimeS
}
