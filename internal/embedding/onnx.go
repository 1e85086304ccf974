package embedding

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// ONNXConfig points at a sentence-transformer exported to ONNX.
type ONNXConfig struct {
	LibraryPath   string // onnxruntime shared library; empty uses the loader default
	ModelPath     string
	TokenizerPath string // HuggingFace tokenizer.json
	Model         string
	Dimension     int
	MaxSeqLen     int
}

// ONNXEmbedder runs a local transformer, mean-pools token states over the
// attention mask and L2-normalizes the result.
type ONNXEmbedder struct {
	mu      sync.Mutex
	cfg     ONNXConfig
	tk      *tokenizer.Tokenizer
	session *ort.DynamicAdvancedSession
}

var ortEnvMu sync.Mutex

// NewONNXEmbedder loads the tokenizer and model. Any failure is returned so
// the caller can fall back.
func NewONNXEmbedder(cfg ONNXConfig) (*ONNXEmbedder, error) {
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("dimension is required")
	}
	if cfg.MaxSeqLen <= 0 {
		cfg.MaxSeqLen = 128
	}
	if cfg.Model == "" {
		cfg.Model = filepath.Base(filepath.Dir(cfg.ModelPath))
	}
	for _, p := range []string{cfg.ModelPath, cfg.TokenizerPath} {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("model file: %w", err)
		}
	}

	if err := initORT(cfg.LibraryPath); err != nil {
		return nil, err
	}

	tk, err := pretrained.FromFile(cfg.TokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	return &ONNXEmbedder{cfg: cfg, tk: tk, session: session}, nil
}

func initORT(libraryPath string) error {
	ortEnvMu.Lock()
	defer ortEnvMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnxruntime: %w", err)
	}
	return nil
}

// Embed implements Embedder.
func (e *ONNXEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec, err := e.embedOne(t)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}

// EmbedSingle implements Embedder.
func (e *ONNXEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	return embedSingle(ctx, e, text)
}

// Model implements Embedder.
func (e *ONNXEmbedder) Model() string { return e.cfg.Model }

// Dimension implements Embedder.
func (e *ONNXEmbedder) Dimension() int { return e.cfg.Dimension }

// Close releases the session. The shared ORT environment stays up.
func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil
	}
	err := e.session.Destroy()
	e.session = nil
	return err
}

func (e *ONNXEmbedder) embedOne(text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return nil, fmt.Errorf("embedder closed")
	}

	enc, err := e.tk.EncodeSingle(text, true)
	if err != nil {
		return nil, fmt.Errorf("tokenize: %w", err)
	}

	n := len(enc.Ids)
	if n > e.cfg.MaxSeqLen {
		n = e.cfg.MaxSeqLen
	}
	if n == 0 {
		return nil, fmt.Errorf("empty token sequence")
	}

	ids := make([]int64, n)
	mask := make([]int64, n)
	types := make([]int64, n)
	for i := 0; i < n; i++ {
		ids[i] = int64(enc.Ids[i])
		mask[i] = 1
		if i < len(enc.AttentionMask) {
			mask[i] = int64(enc.AttentionMask[i])
		}
		if i < len(enc.TypeIds) {
			types[i] = int64(enc.TypeIds[i])
		}
	}

	shape := ort.NewShape(1, int64(n))
	idsT, err := ort.NewTensor(shape, ids)
	if err != nil {
		return nil, fmt.Errorf("input_ids tensor: %w", err)
	}
	defer idsT.Destroy()

	maskT, err := ort.NewTensor(shape, mask)
	if err != nil {
		return nil, fmt.Errorf("attention_mask tensor: %w", err)
	}
	defer maskT.Destroy()

	typesT, err := ort.NewTensor(shape, types)
	if err != nil {
		return nil, fmt.Errorf("token_type_ids tensor: %w", err)
	}
	defer typesT.Destroy()

	dim := e.cfg.Dimension
	hidden, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(n), int64(dim)))
	if err != nil {
		return nil, fmt.Errorf("output tensor: %w", err)
	}
	defer hidden.Destroy()

	if err := e.session.Run([]ort.Value{idsT, maskT, typesT}, []ort.Value{hidden}); err != nil {
		return nil, fmt.Errorf("run model: %w", err)
	}

	return meanPool(hidden.GetData(), mask, dim), nil
}

// meanPool averages token states whose mask is set and normalizes the result.
func meanPool(states []float32, mask []int64, dim int) []float32 {
	out := make([]float32, dim)
	var count float32
	for t, m := range mask {
		if m == 0 {
			continue
		}
		row := states[t*dim : (t+1)*dim]
		for i, v := range row {
			out[i] += v
		}
		count++
	}
	if count > 0 {
		for i := range out {
			out[i] /= count
		}
	}
	return Normalize(out)
}
