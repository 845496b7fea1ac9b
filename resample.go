package vad

// Resample converts input from fromRate to toRate by linear interpolation
// (spec §4.1). This is deliberately low-quality but deterministic; it is NOT
// used on the VAD input path except as a best-effort coercion in the
// streaming resampled entry point (ProcessStreamChunkResampled) and in the
// segment sink when OutputRate differs from the detector's sample rate.
//
// If fromRate == toRate, Resample returns a copy of input (never the same
// backing array, so callers may mutate the result freely).
func Resample(input []float32, fromRate, toRate int) []float32 {
	if fromRate == toRate {
		out := make([]float32, len(input))
		copy(out, input)
		return out
	}
	if len(input) == 0 {
		return nil
	}
	outLen := len(input) * toRate / fromRate
	out := make([]float32, outLen)
	last := len(input) - 1
	for i := 0; i < outLen; i++ {
		s := float64(i) * float64(fromRate) / float64(toRate)
		i0 := int(s)
		i1 := i0 + 1
		if i1 > last {
			i1 = last
		}
		if i0 > last {
			i0 = last
		}
		frac := float32(s - float64(i0))
		out[i] = input[i0]*(1-frac) + input[i1]*frac
	}
	return out
}
