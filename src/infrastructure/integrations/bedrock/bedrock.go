package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"

	"ragbot/src/core/provider"
)

const (
	DefaultEmbedModel    = "amazon.titan-embed-text-v2:0"
	DefaultGenerateModel = "anthropic.claude-v2:1"

	providerName = "bedrock"
)

// InvokeAPI is the subset of the bedrock runtime client used here
type InvokeAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Provider calls Titan for embeddings and Claude for completions
type Provider struct {
	client        InvokeAPI
	embedModel    string
	generateModel string
}

// NewClient builds a bedrock runtime client from the default AWS credential chain
func NewClient(ctx context.Context, region string) (*bedrockruntime.Client, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return bedrockruntime.NewFromConfig(cfg), nil
}

func NewProvider(client InvokeAPI, embedModel, generateModel string) *Provider {
	if embedModel == "" {
		embedModel = DefaultEmbedModel
	}
	if generateModel == "" {
		generateModel = DefaultGenerateModel
	}
	return &Provider{
		client:        client,
		embedModel:    embedModel,
		generateModel: generateModel,
	}
}

type titanRequest struct {
	InputText string `json:"inputText"`
}

type titanResponse struct {
	Embedding []float32 `json:"embedding"`
}

type claudeRequest struct {
	Prompt            string `json:"prompt"`
	MaxTokensToSample int    `json:"max_tokens_to_sample"`
}

type claudeResponse struct {
	Completion string `json:"completion"`
}

func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp titanResponse
	if err := p.invoke(ctx, "embed", p.embedModel, titanRequest{InputText: text}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding) == 0 {
		return nil, &provider.ProviderError{Provider: providerName, Op: "embed", Err: errors.New("empty embedding")}
	}
	return resp.Embedding, nil
}

// Complete wraps the prompt in the Human/Assistant turn format Claude text
// completion models require.
func (p *Provider) Complete(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
	prompt = strings.TrimRight(strings.TrimSuffix(strings.TrimSpace(prompt), "Assistant:"), "\n")
	prompt = "\n\n" + strings.TrimLeft(prompt, "\n") + "\n\nAssistant:"

	var resp claudeResponse
	req := claudeRequest{Prompt: prompt, MaxTokensToSample: maxOutputTokens}
	if err := p.invoke(ctx, "complete", p.generateModel, req, &resp); err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Completion), nil
}

// Ping is a no-op; bedrock has no cheap reachability call on the runtime API
func (p *Provider) Ping(ctx context.Context) error {
	return nil
}

func (p *Provider) invoke(ctx context.Context, op, model string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return &provider.ProviderError{Provider: providerName, Op: op, Err: fmt.Errorf("error marshaling request: %w", err)}
	}

	resp, err := p.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(model),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return &provider.ProviderError{Provider: providerName, Op: op, Transient: isTransient(err), Err: err}
	}

	if err := json.Unmarshal(resp.Body, out); err != nil {
		return &provider.ProviderError{Provider: providerName, Op: op, Err: fmt.Errorf("error decoding response: %w", err)}
	}
	return nil
}

func isTransient(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		// transport level failure
		return true
	}
	switch apiErr.ErrorCode() {
	case "ThrottlingException", "ServiceUnavailableException", "ModelTimeoutException",
		"InternalServerException", "ModelNotReadyException":
		return true
	}
	return false
}
