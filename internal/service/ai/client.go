// Package ai talks to an OpenAI-compatible chat-completion endpoint.
// Every call is stateless: one system instruction derived from the
// persona plus the single user utterance, no prior history, no retries.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/personachat/backend/internal/model/chat"
	"github.com/personachat/backend/internal/model/persona"
)

// Config carries the completion endpoint settings.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// Client sends single-utterance completion requests.
type Client struct {
	cfg        Config
	personas   persona.Store
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient builds a completion client. No timeout is imposed here; the
// caller bounds the call through its context.
func NewClient(cfg Config, personas persona.Store, logger *zap.Logger) *Client {
	return &Client{
		cfg:        cfg,
		personas:   personas,
		httpClient: &http.Client{},
		logger:     logger,
	}
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Messages  []wireMessage `json:"messages"`
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
}

type completionResponse struct {
	Choices []struct {
		Message chat.Reply `json:"message"`
	} `json:"choices"`
}

type completionError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends userText under the persona's system instruction and
// returns the first reply choice. Non-success statuses surface as
// *UpstreamError, transport failures as *NetworkError; both are logged
// before returning so the render path never has to.
func (c *Client) Complete(ctx context.Context, userText, personaName string) (chat.Reply, error) {
	reqBody := completionRequest{
		Messages: []wireMessage{
			{Role: "system", Content: SystemInstruction(c.personas, personaName)},
			{Role: chat.RoleUser, Content: userText},
		},
		Model:     c.cfg.Model,
		MaxTokens: c.cfg.MaxTokens,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return chat.Reply{}, fmt.Errorf("encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return chat.Reply{}, fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		netErr := &NetworkError{Err: err}
		c.logger.Error("completion transport failure", zap.Error(err))
		return chat.Reply{}, netErr
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		netErr := &NetworkError{Err: err}
		c.logger.Error("completion response read failure", zap.Error(err))
		return chat.Reply{}, netErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var remote completionError
		_ = json.Unmarshal(body, &remote)
		upErr := &UpstreamError{StatusCode: resp.StatusCode, Message: remote.Error.Message}
		c.logger.Error("completion endpoint returned error",
			zap.Int("status", resp.StatusCode),
			zap.String("message", remote.Error.Message))
		return chat.Reply{}, upErr
	}

	var decoded completionResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return chat.Reply{}, &UpstreamError{StatusCode: resp.StatusCode, Message: "malformed completion response"}
	}
	if len(decoded.Choices) == 0 {
		return chat.Reply{}, &UpstreamError{StatusCode: resp.StatusCode, Message: "completion response contained no choices"}
	}

	return decoded.Choices[0].Message, nil
}
