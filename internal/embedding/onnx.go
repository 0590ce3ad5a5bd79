package embedding

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	tokenizer "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"

	"transcript-rag/internal/config"
)

// maxTokens is the MiniLM context length used during training.
const maxTokens = 256

// LocalModel runs a sentence-transformers model exported to ONNX, e.g.
// all-MiniLM-L6-v2, and mean-pools the last hidden state into one vector.
type LocalModel struct {
	mu        sync.Mutex
	tokenizer *tokenizer.Tokenizer
	session   *ort.DynamicAdvancedSession
}

// NewLocalModel loads the tokenizer and ONNX model named in the config.
func NewLocalModel(llmConfig *config.LLMConfig) (*LocalModel, error) {
	tok, err := pretrained.FromFile(llmConfig.TokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}

	if llmConfig.SharedLibraryPath != "" {
		ort.SetSharedLibraryPath(llmConfig.SharedLibraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer opts.Destroy()

	if err := opts.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableAll); err != nil {
		return nil, fmt.Errorf("failed to set graph optimization: %w", err)
	}
	if err := opts.SetIntraOpNumThreads(0); err != nil {
		log.Warn().Err(err).Msg("Failed to set thread count")
	}

	session, err := ort.NewDynamicAdvancedSession(
		llmConfig.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.Info().Str("model", llmConfig.ModelPath).Msg("Loaded local embedding model")
	return &LocalModel{tokenizer: tok, session: session}, nil
}

func (m *LocalModel) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vectors, err := m.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedDocuments embeds texts as one padded batch.
func (m *LocalModel) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	inputs := make([]tokenizer.EncodeInput, len(texts))
	for i, t := range texts {
		inputs[i] = tokenizer.NewSingleEncodeInput(tokenizer.NewInputSequence(t))
	}
	encodings, err := m.tokenizer.EncodeBatch(inputs, true)
	if err != nil {
		return nil, fmt.Errorf("tokenization failed: %w", err)
	}

	maxLen := 0
	for _, enc := range encodings {
		maxLen = max(maxLen, min(len(enc.GetIds()), maxTokens))
	}
	batchSize := len(encodings)

	inputIDs := make([]int64, batchSize*maxLen)
	attentionMask := make([]int64, batchSize*maxLen)
	tokenTypeIDs := make([]int64, batchSize*maxLen)
	for i, enc := range encodings {
		ids := enc.GetIds()
		am := enc.GetAttentionMask()
		offset := i * maxLen
		for j := 0; j < maxLen && j < len(ids); j++ {
			inputIDs[offset+j] = int64(ids[j])
			attentionMask[offset+j] = int64(am[j])
		}
	}

	shape := ort.NewShape(int64(batchSize), int64(maxLen))
	inputIDsTensor, err := ort.NewTensor(shape, inputIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	defer inputIDsTensor.Destroy()

	attentionMaskTensor, err := ort.NewTensor(shape, attentionMask)
	if err != nil {
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	defer attentionMaskTensor.Destroy()

	tokenTypeIDsTensor, err := ort.NewTensor(shape, tokenTypeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	defer tokenTypeIDsTensor.Destroy()

	outputs := make([]ort.Value, 1)
	err = m.session.Run(
		[]ort.Value{inputIDsTensor, attentionMaskTensor, tokenTypeIDsTensor},
		outputs,
	)
	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	defer outputs[0].Destroy()

	outputTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("output tensor is not float32 type")
	}

	// [batch_size, sequence_length, hidden_dim]
	outShape := outputTensor.GetShape()
	seqLen, hiddenDim := int(outShape[1]), int(outShape[2])
	data := outputTensor.GetData()

	vectors := make([][]float32, batchSize)
	for i := 0; i < batchSize; i++ {
		tokens := data[i*seqLen*hiddenDim : (i+1)*seqLen*hiddenDim]
		vectors[i] = NormalizeVector(meanPool(tokens, attentionMask[i*maxLen:(i+1)*maxLen], seqLen, hiddenDim))
	}
	return vectors, nil
}

// meanPool averages the token vectors whose attention mask is set.
func meanPool(tokens []float32, mask []int64, seqLen, hiddenDim int) []float32 {
	out := make([]float32, hiddenDim)
	var count float32
	for t := 0; t < seqLen && t < len(mask); t++ {
		if mask[t] == 0 {
			continue
		}
		count++
		row := tokens[t*hiddenDim : (t+1)*hiddenDim]
		for d, v := range row {
			out[d] += v
		}
	}
	if count == 0 {
		return out
	}
	for d := range out {
		out[d] /= count
	}
	return out
}

// Close releases the session and the ONNX environment.
func (m *LocalModel) Close() error {
	if m.session != nil {
		if err := m.session.Destroy(); err != nil {
			return err
		}
	}
	return ort.DestroyEnvironment()
}
