package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/ollama/ollama/api"

	"ragbot/src/core/provider"
	"ragbot/src/log"
)

const (
	DefaultURL = "http://localhost:11434/api"

	providerName = "ollama"
)

// Client talks to the Ollama HTTP API
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a new Ollama API client
func NewClient(baseURL string, c *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if c == nil {
		c = http.DefaultClient
	}

	return &Client{
		httpClient: c,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// GetEmbedding generates an embedding vector for the given text using the specified model
func (c *Client) GetEmbedding(ctx context.Context, model string, text string) ([]float32, error) {
	reqBody := api.EmbedRequest{
		Model: model,
		Input: text,
	}

	resp, err := c.post(ctx, "/embed", reqBody)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result api.EmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("error decoding response: %w", err)
	}
	if len(result.Embeddings) == 0 || len(result.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("no embedding returned for model %s", model)
	}

	return result.Embeddings[0], nil
}

// Generate performs model generation with the given prompt and collects the
// streamed response into a single string
func (c *Client) Generate(ctx context.Context, model, system, prompt string, options map[string]interface{}) (string, error) {
	stream := true
	reqBody := api.GenerateRequest{
		Model:   model,
		System:  system,
		Prompt:  prompt,
		Stream:  &stream,
		Options: options,
	}

	resp, err := c.post(ctx, "/generate", reqBody)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	var fullResponse strings.Builder

	for {
		line, err := reader.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			var chunk api.GenerateResponse
			if uerr := json.Unmarshal(line, &chunk); uerr != nil {
				log.Error(uerr, "failed to unmarshal response line", "line", string(line))
				return "", fmt.Errorf("error unmarshaling response: %w", uerr)
			}

			fullResponse.WriteString(chunk.Response)
			if chunk.Done {
				return fullResponse.String(), nil
			}
		}

		if err != nil {
			if err == io.EOF {
				break
			}
			return "", fmt.Errorf("error reading response: %w", err)
		}
	}

	if fullResponse.Len() > 0 {
		return fullResponse.String(), nil
	}
	return "", fmt.Errorf("no response received from Ollama")
}

// Models lists the models available on the server
func (c *Client) Models(ctx context.Context) ([]api.ListModelResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result api.ListResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("error decoding response: %w", err)
	}

	return result.Models, nil
}

func (c *Client) post(ctx context.Context, path string, body interface{}) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

// StatusError is returned for non-2xx responses
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ollama returned status %d: %s", e.StatusCode, e.Message)
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

		var apiErr struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: msg}
	}

	return resp, nil
}

// Provider adapts the client to provider.Provider with fixed model names
type Provider struct {
	client        *Client
	embedModel    string
	generateModel string
}

func NewProvider(client *Client, embedModel, generateModel string) *Provider {
	return &Provider{
		client:        client,
		embedModel:    embedModel,
		generateModel: generateModel,
	}
}

func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := p.client.GetEmbedding(ctx, p.embedModel, text)
	if err != nil {
		return nil, wrapError("embed", err)
	}
	return vec, nil
}

func (p *Provider) Complete(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
	text, err := p.client.Generate(ctx, p.generateModel, "", prompt, map[string]interface{}{
		"num_predict": maxOutputTokens,
	})
	if err != nil {
		return "", wrapError("complete", err)
	}
	return text, nil
}

func (p *Provider) Ping(ctx context.Context) error {
	if _, err := p.client.Models(ctx); err != nil {
		return wrapError("ping", err)
	}
	return nil
}

func wrapError(op string, err error) error {
	return &provider.ProviderError{
		Provider:  providerName,
		Op:        op,
		Transient: isTransient(err),
		Err:       err,
	}
}

// isTransient is true for retryable status codes and transport failures.
// Malformed or empty responses are permanent.
func isTransient(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return provider.TransientStatus(se.StatusCode)
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var ne net.Error
	return errors.As(err, &ne) || errors.Is(err, io.ErrUnexpectedEOF)
}
