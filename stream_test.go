package vad

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// newStreamTestSession wires a StreamSession directly onto a model-less
// Detector (see newLogicTestDetector), so the debounce/emission logic can be
// exercised with synthetic frameOutcomes instead of real ONNX inference.
func newStreamTestSession(cfg Config, streamCfg StreamConfig) (*Detector, *StreamSession) {
	d := newLogicTestDetector(cfg)
	d.ready = true
	window := d.window
	minSilenceWindows := uint32(d.minSilenceSamples/uint64(window)) + 1
	s := &StreamSession{
		det:               d,
		sink:              newSegmentSink(streamCfg),
		inputRate:         streamCfg.InputRate,
		outputRate:        streamCfg.OutputRate,
		minSilenceWindows: minSilenceWindows,
		minSpeechWindows:  minSpeechWindowsStreaming,
	}
	return d, s
}

// feedStream appends `windows` windows of constant-amplitude synthetic audio
// to the session's accumulated buffer and drives applyStreamLogic with a
// constant probability per window, returning how many windows emitted.
func feedStream(s *StreamSession, prob, amplitude float32, windows int) int {
	emitted := 0
	for i := 0; i < windows; i++ {
		start := uint64(len(s.accumulated))
		win := make([]float32, s.det.window)
		for j := range win {
			win[j] = amplitude
		}
		s.accumulated = append(s.accumulated, win...)
		ok, err := s.applyStreamLogic(frameOutcome{
			Probability: prob,
			FrameStart:  start,
			CurrentEnd:  start + uint64(s.det.window),
		})
		if err != nil {
			panic(err)
		}
		if ok {
			emitted++
		}
	}
	return emitted
}

func TestStreamSilenceOnlyEmitsNothing(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(SampleRate16k)
	_, s := newStreamTestSession(cfg, StreamConfig{OutputDir: dir, InputRate: SampleRate16k})

	feedStream(s, 0.0, 0.0, 32) // 1s of silence
	total, err := s.FinalizeStream()
	if err != nil {
		t.Fatalf("FinalizeStream: %v", err)
	}
	if total != 0 {
		t.Errorf("expected 0 segments, got %d", total)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("expected no files written, found %d", len(entries))
	}
}

func TestStreamDebounceRequiresTwoWindows(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(SampleRate16k)
	_, s := newStreamTestSession(cfg, StreamConfig{OutputDir: dir, InputRate: SampleRate16k})

	feedStream(s, 0.0, 0.0, 4)
	feedStream(s, 0.9, 0.5, 1) // a single-window spike: must not open a segment
	if s.inSpeech {
		t.Error("expected a single speech window to not cross the debounce threshold")
	}
	feedStream(s, 0.0, 0.0, 4)
	if s.inSpeech {
		t.Error("session should remain out of speech after the spike returns to silence")
	}
}

func TestStreamBasicSegmentEmission(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(SampleRate16k)
	_, s := newStreamTestSession(cfg, StreamConfig{OutputDir: dir, InputRate: SampleRate16k})

	feedStream(s, 0.0, 0.0, 10)          // lead-in silence
	feedStream(s, 0.9, 0.5, 40)          // ~1.28s speech, well over min_speech_ms
	emitted := feedStream(s, 0.0, 0.0, 20) // trailing silence long enough to close

	if emitted == 0 {
		t.Fatal("expected the trailing silence to close and emit the segment")
	}
	if got := s.SegmentsWritten(); got != 1 {
		t.Fatalf("expected 1 segment written, got %d", got)
	}

	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected exactly one file in %s, got %v (err=%v)", dir, entries, err)
	}
	assertWAVHeader(t, filepath.Join(dir, entries[0].Name()), SampleRate16k)
}

func TestStreamFinalizeEmitsOpenSegmentAboveMinSpeech(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(SampleRate16k)
	_, s := newStreamTestSession(cfg, StreamConfig{OutputDir: dir, InputRate: SampleRate16k})

	feedStream(s, 0.9, 0.5, 40) // speech never closed by silence before EOF

	total, err := s.FinalizeStream()
	if err != nil {
		t.Fatalf("FinalizeStream: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected finalize to flush the open segment, got %d", total)
	}
}

func TestStreamFinalizeDropsShortOpenSegment(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(SampleRate16k)
	_, s := newStreamTestSession(cfg, StreamConfig{OutputDir: dir, InputRate: SampleRate16k})

	feedStream(s, 0.9, 0.5, 2) // just crosses debounce, but far short of min_speech_ms

	total, err := s.FinalizeStream()
	if err != nil {
		t.Fatalf("FinalizeStream: %v", err)
	}
	if total != 0 {
		t.Fatalf("expected the too-short open segment to be dropped, got %d", total)
	}
}

func TestStreamPeakNormalization(t *testing.T) {
	audio := []float32{0.1, -0.2, 0.05, 0.2}
	normalizePeak(audio)
	var peak float32
	for _, v := range audio {
		if a := abs32(v); a > peak {
			peak = a
		}
	}
	if diff := abs32(peak - 0.9); diff > 1e-5 {
		t.Errorf("expected peak 0.9 after normalization, got %v", peak)
	}
}

func TestStreamPeakNormalizationSkipsSilence(t *testing.T) {
	audio := make([]float32, 100)
	normalizePeak(audio)
	for _, v := range audio {
		if v != 0 {
			t.Fatalf("expected all-zero buffer to remain untouched, got %v", v)
		}
	}
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

func assertWAVHeader(t *testing.T, path string, expectedRate int) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if len(data) < 44 {
		t.Fatalf("%s too short to be a WAV file: %d bytes", path, len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatalf("%s missing RIFF/WAVE markers", path)
	}
	if rate := binary.LittleEndian.Uint32(data[24:28]); rate != uint32(expectedRate) {
		t.Errorf("sample rate in header = %d, want %d", rate, expectedRate)
	}
}
