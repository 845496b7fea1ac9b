package vad

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var ortEnvOnce sync.Once
var ortEnvErr error

// ensureRuntime resolves a bundled ONNX Runtime shared library (onnxruntime_lib.go)
// if one hasn't been configured by the caller already, then initializes the
// onnxruntime_go environment exactly once per process (spec §4.3: the
// adapter owns the loaded model; the environment itself is process-global in
// onnxruntime_go).
func ensureRuntime() error {
	ortEnvOnce.Do(func() {
		if lib := resolveBundledLib(candidateBaseDirs()); lib != "" {
			ort.SetSharedLibraryPath(lib)
		}
		ortEnvErr = ort.InitializeEnvironment()
	})
	return ortEnvErr
}

// openSegment tracks the in-progress candidate speech region (spec §3).
type openSegment struct {
	startSample     uint64
	confidenceAccum float64
	frameCount      int
}

func (o *openSegment) addFrame(prob float32) {
	o.confidenceAccum += float64(prob)
	o.frameCount++
}

func (o *openSegment) avgConfidence() float32 {
	if o.frameCount == 0 {
		return 0
	}
	return float32(o.confidenceAccum / float64(o.frameCount))
}

// Detector is the VAD façade (C7): Initialize / ProcessChunk / ProcessAudio /
// Reset / Close. It is single-threaded and not safe for concurrent use from
// multiple goroutines (the inference adapter it wraps is not thread-safe
// either, spec §4.3). A zero-value Detector is uninitialized; Initialize
// moves it to ready.
type Detector struct {
	cfg   Config
	model *sileroModel
	window int

	// Per-frame carried state (spec §3).
	context [contextSamples]float32
	hidden  [sileroStateSize]float32

	currentSample uint64
	triggered     bool
	tempEnd       uint64
	prevEnd       uint64
	nextStart     uint64
	openSeg       *openSegment
	segments      []VadSegment

	// Derived thresholds (spec §4.5), computed once at Initialize from cfg.
	minSpeechSamples             uint64
	minSilenceSamples            uint64
	minSilenceSamplesAtMaxSpeech uint64
	maxSpeechSamples             uint64
	speechPadSamples             uint64

	ready  bool
	closed bool
}

// NewDetector returns an uninitialized detector (spec §3 Lifecycle). Call
// Initialize before any ProcessChunk/ProcessAudio call.
func NewDetector() *Detector {
	return &Detector{}
}

// Create builds and initializes a detector in one call, matching spec §6's
// public surface `create(model_path, threshold) -> handle`. Other Config
// fields take their defaults for cfg.SampleRate (16000).
func Create(modelPath string, threshold float32) (*Detector, error) {
	cfg := DefaultConfig(SampleRate16k)
	cfg.Threshold = threshold
	d := NewDetector()
	if err := d.Initialize(cfg, modelPath); err != nil {
		return nil, err
	}
	return d, nil
}

// Initialize validates cfg, loads the ONNX model at modelPath, and moves the
// detector to ready. On failure the detector remains unusable (spec §7
// ModelLoadError).
func (d *Detector) Initialize(cfg Config, modelPath string) error {
	if err := validateConfig(cfg); err != nil {
		return &ModelLoadError{Path: modelPath, Err: err}
	}

	if err := ensureRuntime(); err != nil {
		return &ModelLoadError{Path: modelPath, Err: err}
	}

	model, err := newSileroModel(modelPath, cfg.SampleRate)
	if err != nil {
		return &ModelLoadError{Path: modelPath, Err: err}
	}

	d.cfg = cfg
	d.model = model
	d.window = windowSize(cfg.SampleRate)
	d.computeThresholds()
	d.resetState()
	d.ready = true
	d.closed = false
	return nil
}

// computeThresholds derives the sample-domain thresholds from cfg (spec
// §4.5). Per the Design Notes open question, max_speech_samples is computed
// with the fully configured speech_pad_samples, not a zero-initialized one.
func (d *Detector) computeThresholds() {
	srPerMs := uint64(d.cfg.SampleRate) / 1000
	d.minSpeechSamples = srPerMs * uint64(d.cfg.MinSpeechMs)
	d.minSilenceSamples = srPerMs * uint64(d.cfg.MinSilenceMs)
	d.minSilenceSamplesAtMaxSpeech = srPerMs * minSilenceSamplesAtMaxSpeechMs
	d.speechPadSamples = srPerMs * uint64(d.cfg.SpeechPadMs)

	maxSamples := float64(d.cfg.SampleRate)*float64(d.cfg.MaxSpeechS) - float64(d.window) - 2*float64(d.speechPadSamples)
	if maxSamples < 0 {
		maxSamples = 0
	}
	d.maxSpeechSamples = uint64(maxSamples)
}

// Config returns the active configuration.
func (d *Detector) Config() Config {
	return d.cfg
}

// ProcessChunk processes exactly one window of audio (512 samples at 16kHz,
// 256 at 8kHz) and returns the frame's VadResult. It runs the batch
// segmentation state machine (C5) as a side effect, accumulating into the
// detector's internal segment list; callers that want segments back should
// use ProcessAudio, which also performs the end-of-buffer finalization this
// method does not (spec §4.7).
func (d *Detector) ProcessChunk(samples []float32) (VadResult, error) {
	if d.closed {
		return VadResult{}, ErrClosed
	}
	if !d.ready {
		return VadResult{}, ErrNotInitialized
	}
	if len(samples) != d.window {
		return VadResult{}, ErrBadFrameSize
	}

	out, err := d.advanceFrame(samples)
	if err != nil {
		return VadResult{}, err
	}

	d.applyBatchLogic(out)

	return VadResult{
		IsVoice:     out.Probability >= d.cfg.Threshold,
		Probability: out.Probability,
		TimestampMs: int64(out.FrameStart) * 1000 / int64(d.cfg.SampleRate),
		EnergyLevel: out.EnergyLevel,
	}, nil
}

// ProcessAudio resets the detector, processes samples in consecutive
// window-sized chunks (dropping any final partial window), finalizes any
// still-open segment unconditionally at the end of the buffer, and returns
// the emitted segments in sample-ascending order (spec §4.5 "batch
// finalization", §4.7).
//
// If inference fails partway through, ProcessAudio stops and returns the
// segments finalized before the failure, along with the wrapped
// InferenceError (spec §7).
func (d *Detector) ProcessAudio(samples []float32) ([]VadSegment, error) {
	if d.closed {
		return nil, ErrClosed
	}
	if !d.ready {
		return nil, ErrNotInitialized
	}

	d.resetState()

	for i := 0; i+d.window <= len(samples); i += d.window {
		out, err := d.advanceFrame(samples[i : i+d.window])
		if err != nil {
			return d.segments, err
		}
		d.applyBatchLogic(out)
	}

	d.finalizeBatch(uint64(len(samples)))

	return d.segments, nil
}

// Reset zeroes hidden state, context, all counters, and clears segments
// (spec §4.7). The detector stays ready; the model session is not reloaded.
func (d *Detector) Reset() {
	if d.closed {
		return
	}
	d.resetState()
}

func (d *Detector) resetState() {
	for i := range d.context {
		d.context[i] = 0
	}
	for i := range d.hidden {
		d.hidden[i] = 0
	}
	d.currentSample = 0
	d.triggered = false
	d.tempEnd = 0
	d.prevEnd = 0
	d.nextStart = 0
	d.openSeg = nil
	d.segments = nil
}

// Close releases the ONNX session. The detector must not be used afterward.
func (d *Detector) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.ready = false
	if d.model == nil {
		return nil
	}
	if err := d.model.destroy(); err != nil {
		return fmt.Errorf("vad: close: %w", err)
	}
	return nil
}
