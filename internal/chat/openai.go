// Package chat provides an OpenAI-compatible chat-completions client used to
// answer questions over an assembled context block.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"ragstore/internal/domain"
)

// Client is a minimal REST client for the chat completions endpoint.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// Config configures the chat client.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
}

func NewClient(cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 60 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  key,
		model:   cfg.Model,
		client:  &http.Client{Timeout: t},
	}, nil
}

// Complete sends the messages to the model and returns the first choice.
func (c *Client) Complete(ctx context.Context, messages []domain.ChatAction) (domain.ChatAction, error) {
	type message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	type reqBody struct {
		Model    string    `json:"model"`
		Messages []message `json:"messages"`
	}
	body := reqBody{Model: c.model, Messages: make([]message, 0, len(messages))}
	for _, m := range messages {
		body.Messages = append(body.Messages, message{Role: string(m.Role), Content: m.Content})
	}
	data, _ := json.Marshal(body)
	url := fmt.Sprintf("%s/chat/completions", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return domain.ChatAction{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.ChatAction{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return domain.ChatAction{}, fmt.Errorf("chat completion failed: %s", resp.Status)
	}
	var out struct {
		Choices []struct {
			Message struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.ChatAction{}, err
	}
	if len(out.Choices) == 0 {
		return domain.ChatAction{}, errors.New("no completion returned")
	}
	choice := out.Choices[0].Message
	return domain.ChatAction{Role: domain.Role(choice.Role), Content: choice.Content}, nil
}
