package providers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IsPHao/storyreel/pkg/config"
	"github.com/IsPHao/storyreel/pkg/errdefs"
	"github.com/IsPHao/storyreel/pkg/models"
)

const llmService = "parser LLM"

// systemPrompt frames every extraction call.
const systemPrompt = "You are a professional novel analysis expert. " +
	"You convert narrative text into structured JSON exactly matching the requested schema."

// LLMExtractor is the parser stage's view of the extraction LLM.
type LLMExtractor interface {
	// Extract sends one text chunk to the LLM and returns the structured
	// chunk result. A malformed response yields *errdefs.ParseError.
	Extract(ctx context.Context, prompt string) (*models.NovelParseResult, error)
}

// LLMClient calls an OpenAI-compatible chat completion endpoint in JSON mode.
type LLMClient struct {
	http  *httpClient
	model string
}

// NewLLMClient creates an extraction LLM client.
func NewLLMClient(cfg *config.ProvidersConfig) *LLMClient {
	return &LLMClient{
		http:  newHTTPClient(cfg),
		model: cfg.LLMModel,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Extract implements LLMExtractor.
func (c *LLMClient) Extract(ctx context.Context, prompt string) (*models.NovelParseResult, error) {
	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
	}
	req.ResponseFormat.Type = "json_object"

	var resp chatResponse
	if err := c.http.postJSON(ctx, llmService, "/v1/chat/completions", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, &errdefs.ParseError{Service: llmService, Err: fmt.Errorf("response has no choices")}
	}

	var chunk models.NovelParseResult
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &chunk); err != nil {
		return nil, &errdefs.ParseError{Service: llmService, Err: err}
	}
	return &chunk, nil
}
