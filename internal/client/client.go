// Package client is a thin HTTP client for the ragstore API, used by the
// interactive console.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ragstore/internal/api/rest"
	"ragstore/internal/auth"
	"ragstore/internal/domain"
)

// Client talks to a running ragstore server. A bearer token obtained via
// Login is attached to every subsequent request.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 120 * time.Second},
	}
}

// Login exchanges admin credentials for a bearer token and keeps it for
// later calls.
func (c *Client) Login(ctx context.Context, username, password string) error {
	var token auth.Token
	err := c.do(ctx, http.MethodPost, "/auth/v1/token",
		rest.TokenRequest{Username: username, Password: password}, &token)
	if err != nil {
		return err
	}
	c.token = token.AccessToken
	return nil
}

// Databases lists all store identifiers known to the server.
func (c *Client) Databases(ctx context.Context) ([]string, error) {
	var resp rest.GetDatabasesResponse
	if err := c.do(ctx, http.MethodGet, "/data/v1/get_databases", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Databases, nil
}

// AddTexts ingests plain text snippets into the identified store.
func (c *Client) AddTexts(ctx context.Context, identifier string, texts []domain.Text) ([]string, error) {
	var resp rest.IngestResponse
	err := c.do(ctx, http.MethodPost, "/data/v1/add_texts",
		rest.AddTextsRequest{Identifier: identifier, Texts: texts}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.IDs, nil
}

// BuildContext fetches the assembled grounding block for a question.
func (c *Client) BuildContext(ctx context.Context, identifier, question string, k int) (string, error) {
	var resp rest.BuildContextResponse
	err := c.do(ctx, http.MethodPost, "/cmd/v1/build_context",
		rest.BuildContextRequest{Identifier: identifier, Question: question, KSimilar: k}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Context, nil
}

// AskQuestion runs a grounded chat completion against the identified store.
func (c *Client) AskQuestion(ctx context.Context, identifier string, q domain.Question) (domain.ChatAction, error) {
	var resp rest.AskQuestionResponse
	err := c.do(ctx, http.MethodPost, "/cmd/v1/ask_question",
		rest.AskQuestionRequest{Info: q, Identifier: identifier}, &resp)
	if err != nil {
		return domain.ChatAction{}, err
	}
	return resp.Result, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr rest.APIError
	if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Message != "" {
		return fmt.Errorf("server: %s (%s)", apiErr.Message, apiErr.Code)
	}
	return fmt.Errorf("server: %s: %s", resp.Status, strings.TrimSpace(string(data)))
}
