package answer_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragbot/src/core/answer"
	"ragbot/src/core/provider"
	"ragbot/src/core/vectorindex"
)

type fixedEmbedder struct {
	vec []float32
	err error
}

func (e fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.vec, e.err
}

// echoCompleter returns the prompt it was given
type echoCompleter struct {
	prompt    string
	maxTokens int
	err       error
}

func (c *echoCompleter) Complete(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
	c.prompt = prompt
	c.maxTokens = maxOutputTokens
	if c.err != nil {
		return "", c.err
	}
	return prompt, nil
}

type staticRetriever struct {
	chunks []vectorindex.ScoredChunk
	k      int
}

func (r *staticRetriever) Search(query []float32, k int) ([]vectorindex.ScoredChunk, error) {
	r.k = k
	return r.chunks, nil
}

func TestAnswerEndToEnd(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, vectorindex.WriteSnapshot(dir, "my_faiss",
		[]vectorindex.Chunk{{Text: "The sky is blue."}},
		[][]float32{{0.2, 0.4, 0.1}}))

	idx, err := vectorindex.Load("my_faiss", dir)
	require.NoError(t, err)

	completer := &echoCompleter{}
	p := answer.NewPipeline(fixedEmbedder{vec: []float32{0.2, 0.4, 0.1}}, completer)

	got, err := p.Answer(context.Background(), "What color is the sky?", idx)
	require.NoError(t, err)

	assert.Contains(t, completer.prompt, "The sky is blue.")
	assert.Contains(t, completer.prompt, "Question: What color is the sky?")
	assert.Equal(t, answer.MaxOutputTokens, completer.maxTokens)
	assert.Equal(t, completer.prompt, got)
}

func TestRenderPrompt(t *testing.T) {
	p := answer.NewPipeline(fixedEmbedder{}, &echoCompleter{})

	tests := []struct {
		name     string
		question string
		chunks   []string
		context  string
	}{
		{name: "no chunks", question: "Anything?", context: "<context>\n\n</context>"},
		{name: "single", question: "What is AI?", chunks: []string{"AI is a field."}, context: "<context>\nAI is a field.\n</context>"},
		{name: "joined", question: "Explain ML?", chunks: []string{"one", "two", "three"}, context: "<context>\none\ntwo\nthree\n</context>"},
		{name: "special characters kept", question: "a < b & c?", chunks: []string{"<b>bold</b>"}, context: "<context>\n<b>bold</b>\n</context>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scored := make([]vectorindex.ScoredChunk, len(tt.chunks))
			for i, c := range tt.chunks {
				scored[i] = vectorindex.ScoredChunk{Chunk: vectorindex.Chunk{Text: c}}
			}

			got, err := p.RenderPrompt(tt.question, scored)
			require.NoError(t, err)

			if !strings.HasPrefix(got, "Human: Please use the given context") {
				t.Errorf("prompt does not start with the instruction: %q", got)
			}
			assert.Contains(t, got, tt.context)
			assert.Contains(t, got, "Question: "+tt.question)
			assert.True(t, strings.HasSuffix(got, "Assistant:"))
		})
	}
}

func TestAnswerRequestsTopK(t *testing.T) {
	r := &staticRetriever{}
	p := answer.NewPipeline(fixedEmbedder{vec: []float32{1}}, &echoCompleter{})

	_, err := p.Answer(context.Background(), "q", r)
	require.NoError(t, err)
	assert.Equal(t, answer.TopK, r.k)
}

func TestAnswerErrors(t *testing.T) {
	providerErr := &provider.ProviderError{Provider: "fake", Op: "complete", Err: errors.New("down")}

	tests := []struct {
		name      string
		question  string
		embedder  fixedEmbedder
		completer *echoCompleter
		check     func(t *testing.T, err error)
	}{
		{
			name:      "empty question",
			question:  "   ",
			embedder:  fixedEmbedder{vec: []float32{1}},
			completer: &echoCompleter{},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, answer.ErrEmptyQuestion)
			},
		},
		{
			name:      "embedding failure",
			question:  "q",
			embedder:  fixedEmbedder{err: providerErr},
			completer: &echoCompleter{},
			check: func(t *testing.T, err error) {
				var pe *provider.ProviderError
				assert.True(t, errors.As(err, &pe))
			},
		},
		{
			name:      "completion failure",
			question:  "q",
			embedder:  fixedEmbedder{vec: []float32{1}},
			completer: &echoCompleter{err: providerErr},
			check: func(t *testing.T, err error) {
				var pe *provider.ProviderError
				assert.True(t, errors.As(err, &pe))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := answer.NewPipeline(tt.embedder, tt.completer)
			_, err := p.Answer(context.Background(), tt.question, &staticRetriever{})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}
