package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/prompts"

	"ragbot/src/core/provider"
	"ragbot/src/core/vectorindex"
	"ragbot/src/log"
)

const (
	// TopK is the number of chunks retrieved per question
	TopK = 5
	// MaxOutputTokens bounds the completion length
	MaxOutputTokens = 512
)

const promptTemplate = `Human: Please use the given context to provide concise answer to the question
If you don't know the answer, just say that you don't know, don't try to make up an answer.
<context>
{{.context}}
</context>
Question: {{.question}}
Assistant:`

var ErrEmptyQuestion = errors.New("question must not be empty")

// Retriever is satisfied by *vectorindex.Index
type Retriever interface {
	Search(query []float32, k int) ([]vectorindex.ScoredChunk, error)
}

// Pipeline embeds a question, retrieves context and asks the completer for an answer
type Pipeline struct {
	embedder  provider.Embedder
	completer provider.Completer
	prompt    prompts.PromptTemplate
}

func NewPipeline(embedder provider.Embedder, completer provider.Completer) *Pipeline {
	return &Pipeline{
		embedder:  embedder,
		completer: completer,
		prompt:    prompts.NewPromptTemplate(promptTemplate, []string{"context", "question"}),
	}
}

// RenderPrompt fills the fixed template with the newline-joined chunk texts
func (p *Pipeline) RenderPrompt(question string, chunks []vectorindex.ScoredChunk) (string, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	out, err := p.prompt.Format(map[string]any{
		"context":  strings.Join(texts, "\n"),
		"question": question,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return out, nil
}

// Answer returns the completion text only; retrieved chunks are not surfaced.
func (p *Pipeline) Answer(ctx context.Context, question string, index Retriever) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", ErrEmptyQuestion
	}

	vector, err := p.embedder.Embed(ctx, question)
	if err != nil {
		return "", fmt.Errorf("failed to embed question: %w", err)
	}

	chunks, err := index.Search(vector, TopK)
	if err != nil {
		return "", fmt.Errorf("failed to search index: %w", err)
	}
	log.Debug("retrieved context", "chunks", len(chunks))

	prompt, err := p.RenderPrompt(question, chunks)
	if err != nil {
		return "", err
	}

	text, err := p.completer.Complete(ctx, prompt, MaxOutputTokens)
	if err != nil {
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}
	return text, nil
}
