package vad

import (
	"fmt"
	"os"

	ort "github.com/yalue/onnxruntime_go"
)

// sileroStateSize is the flattened length of the (2,1,128) recurrent state
// tensor (spec §3, §4.3).
const sileroStateSize = 2 * 1 * 128

// sileroModel wraps the Silero VAD v5 ONNX graph (spec §4.3, C3). It owns the
// session and the tensors bound to it; it is not thread-safe, matching the
// single onnxruntime session the teacher's sileroVAD wraps.
type sileroModel struct {
	session *ort.AdvancedSession

	input    *ort.Tensor[float32] // (1, window+64)
	state    *ort.Tensor[float32] // (2, 1, 128)
	sr       *ort.Tensor[int64]   // (1,)
	output   *ort.Tensor[float32] // (1, 1) speech probability
	stateOut *ort.Tensor[float32] // (2, 1, 128) next state

	window int // windowSize(sampleRate)
}

// newSileroModel loads the model file and builds the fixed-shape tensors for
// the given sample rate. It fails with a wrapped error (surfaced by the
// caller as ModelLoadError) if the file is missing or the graph's declared
// input/output names don't match the §4.3 contract.
func newSileroModel(modelPath string, sampleRate int) (*sileroModel, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}

	window := windowSize(sampleRate)
	inputLen := window + contextSamples

	inputShape := ort.NewShape(1, int64(inputLen))
	inputTensor, err := ort.NewTensor(inputShape, make([]float32, inputLen))
	if err != nil {
		return nil, fmt.Errorf("input tensor: %w", err)
	}

	stateShape := ort.NewShape(2, 1, 128)
	stateTensor, err := ort.NewTensor(stateShape, make([]float32, sileroStateSize))
	if err != nil {
		_ = inputTensor.Destroy()
		return nil, fmt.Errorf("state tensor: %w", err)
	}

	srShape := ort.NewShape(1)
	srTensor, err := ort.NewTensor(srShape, []int64{int64(sampleRate)})
	if err != nil {
		_ = inputTensor.Destroy()
		_ = stateTensor.Destroy()
		return nil, fmt.Errorf("sr tensor: %w", err)
	}

	outputShape := ort.NewShape(1, 1)
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		_ = inputTensor.Destroy()
		_ = stateTensor.Destroy()
		_ = srTensor.Destroy()
		return nil, fmt.Errorf("output tensor: %w", err)
	}

	stateOutShape := ort.NewShape(2, 1, 128)
	stateOutTensor, err := ort.NewEmptyTensor[float32](stateOutShape)
	if err != nil {
		_ = inputTensor.Destroy()
		_ = stateTensor.Destroy()
		_ = srTensor.Destroy()
		_ = outputTensor.Destroy()
		return nil, fmt.Errorf("state-out tensor: %w", err)
	}

	sess, err := ort.NewAdvancedSession(modelPath,
		[]string{"input", "state", "sr"},
		[]string{"output", "stateN"},
		[]ort.Value{inputTensor, stateTensor, srTensor},
		[]ort.Value{outputTensor, stateOutTensor},
		nil)
	if err != nil {
		_ = inputTensor.Destroy()
		_ = stateTensor.Destroy()
		_ = srTensor.Destroy()
		_ = outputTensor.Destroy()
		_ = stateOutTensor.Destroy()
		return nil, fmt.Errorf("session: %w", err)
	}

	return &sileroModel{
		session:  sess,
		input:    inputTensor,
		state:    stateTensor,
		sr:       srTensor,
		output:   outputTensor,
		stateOut: stateOutTensor,
		window:   window,
	}, nil
}

// infer runs one forward pass. windowAndContext must have length window+64
// (context ++ window, spec §4.4); its last 64 samples become the caller's
// next context, handled by frame.go, not here. hidden is the detector's
// current recurrent state; infer reads it in, writes the new state back into
// hidden on success, and leaves hidden untouched on failure (spec §7
// InferenceError: "detector's state unchanged since the last successful
// frame").
func (m *sileroModel) infer(windowAndContext []float32, hidden *[sileroStateSize]float32) (float32, error) {
	if len(windowAndContext) != m.window+contextSamples {
		return 0, fmt.Errorf("inference: expected %d samples, got %d", m.window+contextSamples, len(windowAndContext))
	}

	copy(m.input.GetData(), windowAndContext)
	copy(m.state.GetData(), hidden[:])

	if err := m.session.Run(); err != nil {
		return 0, fmt.Errorf("forward pass: %w", err)
	}

	prob := m.output.GetData()[0]
	copy(hidden[:], m.stateOut.GetData())
	return prob, nil
}

func (m *sileroModel) destroy() error {
	return m.session.Destroy()
}
