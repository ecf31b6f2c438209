package nn

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/sente-dev/sente/pkg/game"
)

// OnnxNet runs a dual-headed model through ONNX Runtime. The session is
// created once with fixed-size input and output tensors; batches larger than
// maxBatch are split, smaller ones are zero-padded.
//
// The model takes a "features" tensor of shape (batch, N, N, NumFeatures)
// and produces "policy" (batch, NumMoves) probabilities and "value"
// (batch, 1) in [-1, 1].
type OnnxNet struct {
	mu       sync.Mutex
	session  *ort.AdvancedSession
	model    string
	maxBatch int

	features []float32
	policy   []float32
	value    []float32
	tensors  []ort.Value
}

// NewOnnxNet loads the model at modelPath using the ONNX Runtime shared
// library at libPath. The model identity reported by RunMany is the model
// file's base name.
func NewOnnxNet(modelPath, libPath string, maxBatch int) (*OnnxNet, error) {
	if maxBatch <= 0 {
		return nil, fmt.Errorf("nn: max batch must be positive, got %d", maxBatch)
	}
	if !ort.IsInitialized() {
		ort.SetSharedLibraryPath(libPath)
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("nn: initializing onnxruntime: %w", err)
		}
	}

	n := &OnnxNet{
		model:    strings.TrimSuffix(filepath.Base(modelPath), filepath.Ext(modelPath)),
		maxBatch: maxBatch,
		features: make([]float32, maxBatch*FeatureLen),
		policy:   make([]float32, maxBatch*game.NumMoves),
		value:    make([]float32, maxBatch),
	}

	featShape := ort.NewShape(int64(maxBatch), game.N, game.N, NumFeatures)
	policyShape := ort.NewShape(int64(maxBatch), game.NumMoves)
	valueShape := ort.NewShape(int64(maxBatch), 1)

	featTensor, err := ort.NewTensor(featShape, n.features)
	if err != nil {
		return nil, fmt.Errorf("nn: creating feature tensor: %w", err)
	}
	policyTensor, err := ort.NewTensor(policyShape, n.policy)
	if err != nil {
		featTensor.Destroy()
		return nil, fmt.Errorf("nn: creating policy tensor: %w", err)
	}
	valueTensor, err := ort.NewTensor(valueShape, n.value)
	if err != nil {
		featTensor.Destroy()
		policyTensor.Destroy()
		return nil, fmt.Errorf("nn: creating value tensor: %w", err)
	}
	n.tensors = []ort.Value{featTensor, policyTensor, valueTensor}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		n.destroyTensors()
		return nil, fmt.Errorf("nn: creating session options: %w", err)
	}
	defer opts.Destroy()

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"features"}, []string{"policy", "value"},
		[]ort.Value{featTensor}, []ort.Value{policyTensor, valueTensor}, opts)
	if err != nil {
		n.destroyTensors()
		return nil, fmt.Errorf("nn: creating session for %s: %w", modelPath, err)
	}
	n.session = session
	return n, nil
}

func (n *OnnxNet) destroyTensors() {
	for _, t := range n.tensors {
		t.Destroy()
	}
	n.tensors = nil
}

func (n *OnnxNet) RunMany(features [][]float32) ([]Output, string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	outputs := make([]Output, len(features))
	for start := 0; start < len(features); start += n.maxBatch {
		end := min(start+n.maxBatch, len(features))
		batch := features[start:end]

		for i := range n.features {
			n.features[i] = 0
		}
		for i, f := range batch {
			copy(n.features[i*FeatureLen:(i+1)*FeatureLen], f)
		}
		if err := n.session.Run(); err != nil {
			// Inference failure mid-search is unrecoverable for the caller;
			// the tree already carries virtual losses for this batch.
			panic(fmt.Sprintf("nn: onnx inference failed: %v", err))
		}
		for i := range batch {
			out := &outputs[start+i]
			copy(out.Policy[:], n.policy[i*game.NumMoves:(i+1)*game.NumMoves])
			out.Value = n.value[i]
		}
	}
	return outputs, n.model
}

func (n *OnnxNet) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.session != nil {
		n.session.Destroy()
		n.session = nil
	}
	n.destroyTensors()
	return nil
}
