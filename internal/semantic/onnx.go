package semantic

import (
	"context"
	"fmt"
	"sync"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"
)

// ONNXBackend runs a local sentence-encoder model through ONNX Runtime. It is
// the second tier of the backend chain: no network dependency, but requires a
// model and tokenizer on disk.
type ONNXBackend struct {
	mu        sync.Mutex
	session   *ort.DynamicAdvancedSession
	tk        *tokenizer.Tokenizer
	maxSeqLen int
	dimension int
}

// ONNXConfig holds local encoder configuration.
type ONNXConfig struct {
	ModelPath     string
	TokenizerPath string
	LibraryPath   string // onnxruntime shared library; empty uses the default
	MaxSeqLen     int
}

// NewONNXBackend loads the tokenizer and opens an inference session.
func NewONNXBackend(cfg ONNXConfig) (*ONNXBackend, error) {
	if cfg.ModelPath == "" || cfg.TokenizerPath == "" {
		return nil, fmt.Errorf("%w: no local model configured", ErrBackendUnavailable)
	}
	if cfg.MaxSeqLen <= 0 {
		cfg.MaxSeqLen = 256
	}

	tk, err := pretrained.FromFile(cfg.TokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("%w: load tokenizer: %v", ErrBackendUnavailable, err)
	}

	if cfg.LibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.LibraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("%w: init onnxruntime: %v", ErrBackendUnavailable, err)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(
		cfg.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: open model session: %v", ErrBackendUnavailable, err)
	}

	return &ONNXBackend{
		session:   session,
		tk:        tk,
		maxSeqLen: cfg.MaxSeqLen,
	}, nil
}

// Embed encodes each text, mean-pools the last hidden state over the
// attention mask, and unit-normalizes the result.
func (b *ONNXBackend) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		vec, err := b.encode(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (b *ONNXBackend) encode(ctx context.Context, text string) ([]float32, error) {
	en, err := b.tk.EncodeSingle(text, true)
	if err != nil {
		return nil, fmt.Errorf("tokenize: %w", err)
	}

	ids := en.Ids
	mask := en.AttentionMask
	types := en.TypeIds
	if len(ids) > b.maxSeqLen {
		ids = ids[:b.maxSeqLen]
		mask = mask[:b.maxSeqLen]
		types = types[:b.maxSeqLen]
	}

	seqLen := int64(len(ids))
	shape := ort.NewShape(1, seqLen)

	inputs := make([]ort.Value, 0, 3)
	for _, data := range [][]int64{toInt64(ids), toInt64(mask), toInt64(types)} {
		tensor, err := ort.NewTensor(shape, data)
		if err != nil {
			destroyValues(inputs)
			return nil, fmt.Errorf("input tensor: %w", err)
		}
		inputs = append(inputs, tensor)
	}

	// Run cannot be interrupted once started, so it executes on its own
	// goroutine and the caller honors the context deadline. The session is
	// not safe for concurrent Run calls. On timeout the abandoned run keeps
	// its tensors until it returns, then releases them.
	outputs := []ort.Value{nil}
	done := make(chan error, 1)
	go func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		done <- b.session.Run(inputs, outputs)
	}()

	select {
	case err = <-done:
	case <-ctx.Done():
		go func() {
			<-done
			destroyValues(inputs)
			destroyValues(outputs)
		}()
		return nil, fmt.Errorf("%w: inference: %v", ErrBackendUnavailable, ctx.Err())
	}
	defer destroyValues(inputs)
	if err != nil {
		return nil, fmt.Errorf("%w: inference: %v", ErrBackendUnavailable, err)
	}

	hidden, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		destroyValues(outputs)
		return nil, fmt.Errorf("unexpected output tensor type")
	}
	defer hidden.Destroy()

	dims := hidden.GetShape()
	if len(dims) != 3 {
		return nil, fmt.Errorf("unexpected output shape %v", dims)
	}
	hiddenSize := int(dims[2])
	data := hidden.GetData()

	// Mean pooling over unmasked positions.
	vec := make([]float32, hiddenSize)
	var count float32
	for pos := 0; pos < int(seqLen); pos++ {
		if mask[pos] == 0 {
			continue
		}
		count++
		base := pos * hiddenSize
		for j := 0; j < hiddenSize; j++ {
			vec[j] += data[base+j]
		}
	}
	if count > 0 {
		for j := range vec {
			vec[j] /= count
		}
	}

	b.mu.Lock()
	b.dimension = hiddenSize
	b.mu.Unlock()

	return normalizeVector(vec), nil
}

// ID returns the backend identifier.
func (b *ONNXBackend) ID() string {
	return BackendONNX
}

// Dimension returns the embedding dimension, 0 until the first encode.
func (b *ONNXBackend) Dimension() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dimension
}

// Available reports whether the session is open.
func (b *ONNXBackend) Available(ctx context.Context) error {
	if b.session == nil {
		return fmt.Errorf("%w: no model session", ErrBackendUnavailable)
	}
	return nil
}

// Close releases the inference session.
func (b *ONNXBackend) Close() error {
	if b.session != nil {
		b.session.Destroy()
		b.session = nil
	}
	return nil
}

func destroyValues(values []ort.Value) {
	for _, v := range values {
		if v != nil {
			v.Destroy()
		}
	}
}

func toInt64(in []int) []int64 {
	out := make([]int64, len(in))
	for i, v := range in {
		out[i] = int64(v)
	}
	return out
}

var _ Backend = (*ONNXBackend)(nil)
