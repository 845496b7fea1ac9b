package vad

import "errors"

// Sample rates the detector accepts (spec §1 Non-goals: no other rates).
const (
	SampleRate8k  = 8000
	SampleRate16k = 16000
)

// contextSamples is the carried acoustic context prepended to every window
// (spec §3 invariant 1, §4.4).
const contextSamples = 64

// hysteresisMargin is subtracted from Threshold to obtain the silence-close
// threshold (spec §4.5, GLOSSARY "Threshold hysteresis").
const hysteresisMargin = 0.15

// minSilenceSamplesAtMaxSpeechMs is the fixed 98ms silence run that, once
// exceeded while triggered, advances prev_end even before min_silence_ms is
// reached (spec §4.5 step 3).
const minSilenceSamplesAtMaxSpeechMs = 98

// minSpeechWindowsStreaming is the fixed debounce count C6 requires before
// opening a segment (spec §4.6, "Debounce").
const minSpeechWindowsStreaming = 2

// Config holds the detector's immutable-after-Initialize configuration
// (spec §3 VadConfig). All fields have defaults via DefaultConfig; an explicit
// Config is still validated in full by Initialize.
type Config struct {
	SampleRate   int     // 8000 or 16000
	Threshold    float32 // speech probability threshold, default 0.5
	MinSpeechMs  int     // default 250
	MinSilenceMs int     // default 100
	SpeechPadMs  int     // default 30
	MaxSpeechS   float32 // default 30
}

// DefaultConfig returns the spec's default thresholds for the given sample
// rate. Callers still need to set SileroVAD model path separately at
// Initialize/Create.
func DefaultConfig(sampleRate int) Config {
	return Config{
		SampleRate:   sampleRate,
		Threshold:    0.5,
		MinSpeechMs:  250,
		MinSilenceMs: 100,
		SpeechPadMs:  30,
		MaxSpeechS:   30,
	}
}

func validateConfig(cfg Config) error {
	if cfg.SampleRate != SampleRate8k && cfg.SampleRate != SampleRate16k {
		return errors.New("vad: config: SampleRate must be 8000 or 16000")
	}
	if cfg.Threshold < 0 || cfg.Threshold > 1 {
		return errors.New("vad: config: Threshold must be in [0, 1]")
	}
	if cfg.MinSpeechMs < 0 {
		return errors.New("vad: config: MinSpeechMs must be >= 0")
	}
	if cfg.MinSilenceMs <= 0 {
		return errors.New("vad: config: MinSilenceMs must be > 0")
	}
	if cfg.SpeechPadMs < 0 {
		return errors.New("vad: config: SpeechPadMs must be >= 0")
	}
	if cfg.MaxSpeechS <= 0 {
		return errors.New("vad: config: MaxSpeechS must be > 0")
	}
	return nil
}

// IsValidSampleRate reports whether rate is one of the two rates this
// detector supports. Ported from wqvad::isValidSampleRate.
func IsValidSampleRate(rate int) bool {
	return rate == SampleRate8k || rate == SampleRate16k
}

// windowSize returns the per-frame window length for a given sample rate:
// 512 samples at 16kHz, 256 at 8kHz (spec §4.4).
func windowSize(sampleRate int) int {
	if sampleRate == SampleRate8k {
		return 256
	}
	return 512
}

// StreamConfig holds the streaming-only parameters of C6 (spec §3
// "Streaming-only state", §4.6). OutputDir is where segment WAVs are
// written; OutputRate defaults to InputRate (no resample) when zero.
type StreamConfig struct {
	OutputDir string
	InputRate int
	OutputRate int

	// UniqueSegmentNames appends a short uuid suffix to each written
	// segment's filename so concurrent StreamSessions sharing OutputDir
	// never collide (SPEC_FULL ambient addition; spec itself is silent on
	// filename collisions across sessions).
	UniqueSegmentNames bool
}

func validateStreamConfig(cfg StreamConfig) error {
	if cfg.OutputDir == "" {
		return errors.New("vad: stream config: OutputDir is required")
	}
	if !IsValidSampleRate(cfg.InputRate) {
		return errors.New("vad: stream config: InputRate must be 8000 or 16000")
	}
	if cfg.OutputRate != 0 && cfg.OutputRate <= 0 {
		return errors.New("vad: stream config: OutputRate must be > 0 when set")
	}
	return nil
}
