package vad

// applyBatchLogic implements the batch segmentation state machine (spec §4.5,
// C5). It is invoked once per frame from ProcessChunk/ProcessAudio with the
// outcome of advanceFrame, and mutates the detector's triggered/checkpoint/
// segment state. t := out.FrameStart is the start-of-frame sample; current
// := out.CurrentEnd is current_sample after this frame (spec's convention:
// current_sample is advanced before the state machine runs).
//
// The max-speech check (step 2) only ever skips on the frame that newly
// opens a segment — once triggered, continuing speech frames still fall
// through to it, which is what lets a long unbroken run of speech (scenario
// 5) actually split at max_speech_samples instead of running forever.
func (d *Detector) applyBatchLogic(out frameOutcome) {
	prob := out.Probability
	t := out.FrameStart
	current := out.CurrentEnd

	if prob >= d.cfg.Threshold {
		if d.tempEnd != 0 {
			d.tempEnd = 0
			if d.nextStart < d.prevEnd {
				d.nextStart = t
			}
		}
		if !d.triggered {
			d.triggered = true
			d.openSeg = &openSegment{startSample: t}
			d.openSeg.addFrame(prob)
			return
		}
		d.openSeg.addFrame(prob)
	}

	if d.triggered && current-d.openSeg.startSample > d.maxSpeechSamples {
		if d.prevEnd > 0 {
			d.emitSegment(d.openSeg, d.prevEnd)
			if d.nextStart < d.prevEnd {
				d.triggered = false
				d.openSeg = nil
			} else {
				d.openSeg = &openSegment{startSample: d.nextStart}
				d.triggered = true
			}
			d.prevEnd = 0
			d.nextStart = 0
			d.tempEnd = 0
		} else {
			d.emitSegment(d.openSeg, current)
			d.prevEnd = 0
			d.nextStart = 0
			d.tempEnd = 0
			d.triggered = false
			d.openSeg = nil
		}
		return
	}

	if prob < d.cfg.Threshold-hysteresisMargin {
		if !d.triggered {
			return
		}
		if d.tempEnd == 0 {
			d.tempEnd = current
		}
		if current-d.tempEnd > d.minSilenceSamplesAtMaxSpeech {
			d.prevEnd = d.tempEnd
		}
		if current-d.tempEnd >= d.minSilenceSamples {
			endSample := d.tempEnd
			if endSample > d.openSeg.startSample && endSample-d.openSeg.startSample > d.minSpeechSamples {
				d.emitSegment(d.openSeg, endSample)
			}
			d.prevEnd = 0
			d.nextStart = 0
			d.tempEnd = 0
			d.triggered = false
			d.openSeg = nil
			return
		}
		d.openSeg.addFrame(prob)
		return
	}

	// Band [threshold-0.15, threshold): still speech while triggered (spec
	// §4.5 step 4); does not advance silence accounting. Guarded on
	// prob < Threshold so a continuing speech frame (already counted by the
	// addFrame at line 32) is never counted twice.
	if d.triggered && prob < d.cfg.Threshold {
		d.openSeg.addFrame(prob)
	}
}

// finalizeBatch closes any still-open segment at the end of the buffer and
// emits it unconditionally, with no min_speech_ms filter (spec §4.5 "batch
// finalization"). totalSamples is the buffer length in samples.
func (d *Detector) finalizeBatch(totalSamples uint64) {
	if !d.triggered || d.openSeg == nil {
		return
	}
	d.emitSegment(d.openSeg, totalSamples)
	d.triggered = false
	d.openSeg = nil
	d.prevEnd = 0
	d.nextStart = 0
	d.tempEnd = 0
}

// emitSegment appends a closed segment spanning [seg.startSample, endSample)
// to d.segments. Sample indices are converted to seconds as
// sample_index/sample_rate (spec §4.5).
func (d *Detector) emitSegment(seg *openSegment, endSample uint64) {
	if seg == nil {
		return
	}
	startT := float32(seg.startSample) / float32(d.cfg.SampleRate)
	endT := float32(endSample) / float32(d.cfg.SampleRate)
	if endT <= startT {
		return
	}
	d.segments = append(d.segments, VadSegment{
		StartTimeS: startT,
		EndTimeS:   endT,
		Confidence: seg.avgConfidence(),
		IsSpeech:   true,
	})
}
