package vad

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// segmentSink extracts a segment's audio, optionally resamples and
// peak-normalizes it, and writes it as a WAV file (spec §4.8, C8). It is
// pure data-in/bytes-out except for the final write.
type segmentSink struct {
	cfg     StreamConfig
	counter uint32
}

func newSegmentSink(cfg StreamConfig) *segmentSink {
	return &segmentSink{cfg: cfg}
}

// emit applies speech padding, slices accumulated, optionally resamples to
// cfg.OutputRate, peak-normalizes, and writes segment_<N>.wav under
// cfg.OutputDir (spec §4.6 "Emission pipeline"). segment_counter is only
// advanced on a successful write (spec §7 IoError).
func (s *segmentSink) emit(accumulated []float32, startSample, endSample uint64, sourceRate int, padSamples uint64) (string, error) {
	start := clampSub(startSample, padSamples)
	end := endSample + padSamples
	total := uint64(len(accumulated))
	if end > total {
		end = total
	}
	if start >= end {
		return "", nil
	}

	audio := make([]float32, end-start)
	copy(audio, accumulated[start:end])

	outRate := s.cfg.OutputRate
	if outRate == 0 {
		outRate = sourceRate
	}
	if outRate != sourceRate {
		audio = Resample(audio, sourceRate, outRate)
	}
	normalizePeak(audio)

	next := s.counter + 1
	name := fmt.Sprintf("segment_%d.wav", next)
	if s.cfg.UniqueSegmentNames {
		name = fmt.Sprintf("segment_%d_%s.wav", next, uuid.New().String()[:8])
	}
	path := filepath.Join(s.cfg.OutputDir, name)

	if err := os.WriteFile(path, EncodeWAV(audio, outRate), 0o644); err != nil {
		return "", &IoError{Path: path, Err: err}
	}
	s.counter = next
	return path, nil
}

// segmentCounter returns the number of segments successfully written so far.
func (s *segmentSink) segmentCounter() uint32 { return s.counter }

// clampSub returns a-b, clamped at 0 for unsigned underflow.
func clampSub(a, b uint64) uint64 {
	if b >= a {
		return 0
	}
	return a - b
}

// normalizePeak scales audio in place so its peak absolute value is 0.9,
// skipping all-zero buffers (spec §4.6 step 4).
func normalizePeak(audio []float32) {
	var peak float32
	for _, s := range audio {
		a := s
		if a < 0 {
			a = -a
		}
		if a > peak {
			peak = a
		}
	}
	if peak == 0 {
		return
	}
	gain := 0.9 / peak
	for i, s := range audio {
		audio[i] = s * gain
	}
}

// WriteBatchSegments writes one WAV per VadSegment sliced out of samples, at
// sampleRate, with no padding and no normalization (spec §4.5/§4.8: batch
// mode applies neither; see SPEC_FULL.md "SUPPLEMENTED FEATURES", grounded on
// original_source/my-info/split_wav_based_on_vad.py's timestamp-to-WAV
// workflow). It returns the paths written, in segment order; a write failure
// for one segment is wrapped as *IoError and stops the loop, returning paths
// written so far alongside the error.
func WriteBatchSegments(segments []VadSegment, samples []float32, sampleRate int, outputDir string) ([]string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("vad: batch sink: %w", err)
	}
	var paths []string
	for i, seg := range segments {
		start := uint64(seg.StartTimeS * float32(sampleRate))
		end := uint64(seg.EndTimeS * float32(sampleRate))
		if end > uint64(len(samples)) {
			end = uint64(len(samples))
		}
		if start >= end {
			continue
		}
		name := fmt.Sprintf("segment_%03d.wav", i+1)
		path := filepath.Join(outputDir, name)
		if err := os.WriteFile(path, EncodeWAV(samples[start:end], sampleRate), 0o644); err != nil {
			return paths, &IoError{Path: path, Err: err}
		}
		paths = append(paths, path)
	}
	return paths, nil
}
