// Command vadwav loads a WAV file, runs it through the VAD detector in
// either batch or streaming mode, and writes each detected segment as its
// own WAV file. It mirrors the teacher's examples/wav_test tool, generalized
// to the full detector façade (batch ProcessAudio and streaming
// StreamSession) instead of a single fixed pipeline.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	resampling "github.com/tphakala/go-audio-resampling"
	wav "github.com/youpy/go-wav"

	vadpkg "github.com/jims57/silero-vad"
)

func main() {
	var (
		modelPath  = flag.String("model", "data/silero_vad.onnx", "path to silero_vad.onnx")
		outDir     = flag.String("out", "output", "directory to write segment WAVs into")
		threshold  = flag.Float64("threshold", 0.5, "speech probability threshold")
		streaming  = flag.Bool("stream", false, "use the streaming segmenter instead of batch ProcessAudio")
		chunkMs    = flag.Int("chunk-ms", 32, "streaming input chunk size in ms (ignored in batch mode)")
		hqResample = flag.Bool("hq-resample", false, "use go-audio-resampling (high quality) instead of the linear-interpolation C1 resampler when the WAV's rate differs from 16kHz")
	)
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <wav_file>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}
	wavPath := flag.Arg(0)

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fatalf("output dir: %v", err)
	}

	samples, sampleRate, err := loadWAV(wavPath)
	if err != nil {
		fatalf("load WAV: %v", err)
	}

	const detectorRate = vadpkg.SampleRate16k
	if sampleRate != detectorRate {
		fmt.Fprintf(os.Stderr, "input is %dHz; resampling to %dHz (hq=%v)\n", sampleRate, detectorRate, *hqResample)
		if *hqResample {
			samples, err = resampleHQ(samples, sampleRate, detectorRate)
			if err != nil {
				fatalf("hq resample: %v", err)
			}
		} else {
			samples = vadpkg.Resample(samples, sampleRate, detectorRate)
		}
	}

	cfg := vadpkg.DefaultConfig(detectorRate)
	cfg.Threshold = float32(*threshold)

	det := vadpkg.NewDetector()
	if err := det.Initialize(cfg, *modelPath); err != nil {
		fatalf("initialize: %v", err)
	}
	defer det.Close()

	if *streaming {
		runStreaming(det, samples, detectorRate, *chunkMs, *outDir)
		return
	}
	runBatch(det, samples, detectorRate, *outDir)
}

func runBatch(det *vadpkg.Detector, samples []float32, sampleRate int, outDir string) {
	segments, err := det.ProcessAudio(samples)
	if err != nil {
		fmt.Fprintf(os.Stderr, "process audio: %v\n", err)
	}
	fmt.Printf("batch: %d segments\n", len(segments))
	for i, seg := range segments {
		fmt.Printf("  segment %d: %.3fs - %.3fs (confidence %.3f)\n", i+1, seg.StartTimeS, seg.EndTimeS, seg.Confidence)
	}
	paths, err := vadpkg.WriteBatchSegments(segments, samples, sampleRate, outDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "write segments: %v\n", err)
	}
	for _, p := range paths {
		fmt.Printf("  wrote %s\n", p)
	}
}

func runStreaming(det *vadpkg.Detector, samples []float32, sampleRate, chunkMs int, outDir string) {
	session, err := vadpkg.NewStreamSession(det, vadpkg.StreamConfig{
		OutputDir: outDir,
		InputRate: sampleRate,
	})
	if err != nil {
		fatalf("stream session: %v", err)
	}
	defer session.Close()

	chunkSize := sampleRate * chunkMs / 1000
	if chunkSize <= 0 {
		chunkSize = 1
	}
	for i := 0; i < len(samples); i += chunkSize {
		end := i + chunkSize
		if end > len(samples) {
			end = len(samples)
		}
		if _, err := session.ProcessStreamChunk(samples[i:end]); err != nil {
			fmt.Fprintf(os.Stderr, "process chunk: %v\n", err)
		}
	}
	total, err := session.FinalizeStream()
	if err != nil {
		fmt.Fprintf(os.Stderr, "finalize: %v\n", err)
	}
	fmt.Printf("streaming: %d segments written to %s\n", total, outDir)
}

func loadWAV(path string) ([]float32, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	reader := wav.NewReader(f)
	format, err := reader.Format()
	if err != nil {
		return nil, 0, fmt.Errorf("WAV format: %w", err)
	}
	sampleRate := int(format.SampleRate)
	numChannels := int(format.NumChannels)
	if numChannels < 1 || numChannels > 2 {
		return nil, 0, fmt.Errorf("WAV: only mono or stereo supported, got %d channels", numChannels)
	}

	var out []float32
	for {
		chunk, err := reader.ReadSamples()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("reading WAV samples: %w", err)
		}
		for _, s := range chunk {
			var v float64
			if numChannels == 1 {
				v = reader.FloatValue(s, 0)
			} else {
				v = (reader.FloatValue(s, 0) + reader.FloatValue(s, 1)) / 2
			}
			out = append(out, float32(v))
		}
	}
	return out, sampleRate, nil
}

// resampleHQ uses github.com/tphakala/go-audio-resampling instead of the
// library's built-in linear-interpolation Resample, as a higher quality
// alternative for input coercion (spec §4.1 deliberately keeps C1 low
// quality; SPEC_FULL.md wires this dependency here as the contrasting path).
func resampleHQ(input []float32, fromRate, toRate int) ([]float32, error) {
	cfg := &resampling.Config{
		InputRate:  float64(fromRate),
		OutputRate: float64(toRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	}
	r, err := resampling.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("create resampler: %w", err)
	}
	in := make([]float64, len(input))
	for i, s := range input {
		in[i] = float64(s)
	}
	out, err := r.Process(in)
	if err != nil {
		return nil, fmt.Errorf("resample: %w", err)
	}
	result := make([]float32, len(out))
	for i, s := range out {
		result[i] = float32(s)
	}
	return result, nil
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
