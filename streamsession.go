package vad

import "fmt"

// StreamSession is the streaming segmenter (C6). It holds a borrowed
// reference to a Detector (spec §9 Design Notes: "model as borrowed
// reference, not ownership — the stream is invalidated if its detector is
// dropped"); the session never closes the detector and must not outlive it.
//
// It maintains its own debounced counters and accumulated buffer, separate
// from the Detector's batch segmentation state (C5) — the two state machines
// are not equivalent (spec §9) and a Detector should be driving at most one
// of ProcessAudio/ProcessChunk-as-batch or a StreamSession at a time.
//
// Chunk-tail policy: chunks that don't contain a whole number of windows
// have their remainder buffered and re-framed together with the next chunk's
// samples (not dropped). This is documented per spec §4.6's requirement that
// whichever tail policy is chosen be stated, since it affects timing by at
// most window-1 samples relative to the alternative (drop-tail) policy.
type StreamSession struct {
	det *Detector
	sink *segmentSink

	inputRate  int
	outputRate int

	minSilenceWindows uint32
	minSpeechWindows  uint32

	accumulated []float32
	framed      uint64 // samples already cut into windows and run through advanceFrame

	inSpeech          bool
	speechStartSample uint64
	speechEndSample   uint64
	consecSpeech      uint32
	consecSilence     uint32

	closed bool
}

// NewStreamSession creates a streaming segmenter bound to det. det must
// already be Initialize'd; cfg.InputRate must equal det.Config().SampleRate
// (no cross-rate acoustic model is supported — the resampled entry point
// only resamples the input signal, never the model's working rate).
func NewStreamSession(det *Detector, cfg StreamConfig) (*StreamSession, error) {
	if det == nil || !det.ready || det.closed {
		return nil, ErrNotInitialized
	}
	if err := validateStreamConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.InputRate != det.cfg.SampleRate {
		return nil, fmt.Errorf("vad: stream config: InputRate %d must match detector sample rate %d", cfg.InputRate, det.cfg.SampleRate)
	}

	outRate := cfg.OutputRate
	if outRate == 0 {
		outRate = cfg.InputRate
	}

	window := det.window
	minSilenceWindows := uint32(det.minSilenceSamples/uint64(window)) + 1

	return &StreamSession{
		det:               det,
		sink:              newSegmentSink(cfg),
		inputRate:         cfg.InputRate,
		outputRate:        outRate,
		minSilenceWindows: minSilenceWindows,
		minSpeechWindows:  minSpeechWindowsStreaming,
	}, nil
}

// ProcessStreamChunk appends chunk to the session's accumulated buffer, cuts
// off as many whole windows as are now available, and runs each through the
// detector's shared frame kernel and the streaming debounce state machine
// (spec §4.6). It returns the number of segments successfully written during
// this call (zero or more — a long chunk may straddle more than one
// segment boundary, or close one and arm the debounce for a new one).
func (s *StreamSession) ProcessStreamChunk(chunk []float32) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	s.accumulated = append(s.accumulated, chunk...)

	window := s.det.window
	written := 0
	var firstErr error
	for s.framed+uint64(window) <= uint64(len(s.accumulated)) {
		frame := s.accumulated[s.framed : s.framed+uint64(window)]
		out, err := s.det.advanceFrame(frame)
		if err != nil {
			// advanceFrame left current_sample/context/hidden untouched on
			// failure, so this window was never actually consumed: leave
			// s.framed alone and stop, rather than re-deriving it next call.
			return written, err
		}
		// The frame is consumed the moment advanceFrame succeeds, regardless
		// of what applyStreamLogic does with it below — s.framed must track
		// that now, or a later IoError would make the next call re-extract
		// and re-run inference on already-advanced detector state.
		s.framed += uint64(window)

		emitted, err := s.applyStreamLogic(out)
		if err != nil {
			// IoError: skip that segment, keep processing the stream (spec
			// §7 IoError policy), but still surface the failure to the caller.
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if emitted {
			written++
		}
	}
	return written, firstErr
}

// ProcessStreamChunkResampled resamples chunk from inputSampleRate to the
// detector's configured sample rate (a no-op if they already match) before
// delegating to ProcessStreamChunk (spec §4.6 "Resampled entry point").
func (s *StreamSession) ProcessStreamChunkResampled(chunk []float32, inputSampleRate int) (int, error) {
	if inputSampleRate == s.det.cfg.SampleRate {
		return s.ProcessStreamChunk(chunk)
	}
	return s.ProcessStreamChunk(Resample(chunk, inputSampleRate, s.det.cfg.SampleRate))
}

// applyStreamLogic runs one frame through the debounced open/close state
// machine and, on a silence-debounced close, emits the candidate segment
// through the sink if it meets min_speech_ms (spec §4.6).
func (s *StreamSession) applyStreamLogic(out frameOutcome) (bool, error) {
	t := out.FrameStart
	window := uint64(s.det.window)
	voice := out.Probability >= s.det.cfg.Threshold

	if voice {
		s.consecSpeech++
		s.consecSilence = 0
		if !s.inSpeech && s.consecSpeech >= s.minSpeechWindows {
			s.inSpeech = true
			s.speechStartSample = t - uint64(s.consecSpeech-1)*window
		}
		if s.inSpeech {
			s.speechEndSample = t + window
		}
		return false, nil
	}

	s.consecSilence++
	s.consecSpeech = 0
	if s.inSpeech && s.consecSilence >= s.minSilenceWindows {
		start, end := s.speechStartSample, s.speechEndSample
		s.inSpeech = false
		s.consecSpeech = 0
		s.consecSilence = 0
		if end-start < s.det.minSpeechSamples {
			return false, nil
		}
		_, err := s.sink.emit(s.accumulated, start, end, s.inputRate, s.det.speechPadSamples)
		if err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// FinalizeStream closes any still-open (debounced-in but not yet
// silence-closed) segment if its unpadded duration meets min_speech_ms, then
// returns the total number of segments successfully written across the
// session's lifetime (spec §4.6 "finalize_stream").
func (s *StreamSession) FinalizeStream() (uint32, error) {
	if s.closed {
		return s.sink.segmentCounter(), ErrClosed
	}
	if s.inSpeech && s.speechEndSample-s.speechStartSample >= s.det.minSpeechSamples {
		_, err := s.sink.emit(s.accumulated, s.speechStartSample, s.speechEndSample, s.inputRate, s.det.speechPadSamples)
		if err != nil {
			return s.sink.segmentCounter(), err
		}
	}
	s.inSpeech = false
	s.consecSpeech = 0
	s.consecSilence = 0
	return s.sink.segmentCounter(), nil
}

// Close invalidates the session. It does not touch the underlying Detector
// (borrowed reference, spec §9).
func (s *StreamSession) Close() {
	s.closed = true
}

// SegmentsWritten reports the total segments successfully written so far.
func (s *StreamSession) SegmentsWritten() uint32 {
	return s.sink.segmentCounter()
}
