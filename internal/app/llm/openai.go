package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Config holds the Azure OpenAI connection settings for the streaming
// chat-completions deployment.
type Config struct {
	Endpoint       string
	Deployment     string
	APIKey         string
	APIVersion     string
	RequestTimeout time.Duration
	IdleTimeout    time.Duration
}

const (
	defaultRequestTimeout = 5 * time.Minute
	defaultIdleTimeout    = 60 * time.Second
)

// OpenAIClient drives the provider's SSE chat-completions endpoint.
type OpenAIClient struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

var _ Client = (*OpenAIClient)(nil)

// NewOpenAIClient builds a client. httpClient may be nil, in which case a
// default client without a global timeout is used; per-request deadlines
// come from Config.RequestTimeout so long streams are not cut off by a
// transport-level timeout.
func NewOpenAIClient(cfg Config, logger *zap.Logger, httpClient *http.Client) *OpenAIClient {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAIClient{cfg: cfg, httpClient: httpClient, logger: logger}
}

type chatCompletionRequest struct {
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	TopP        float64   `json:"top_p,omitempty"`
	Stream      bool      `json:"stream"`
}

type chatCompletionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// StreamChat posts the request with stream=true and forwards each content
// delta to emit. A stall longer than Config.IdleTimeout between provider
// fragments aborts the stream with a ProviderError.
func (c *OpenAIClient) StreamChat(ctx context.Context, messages []Message, params Params, emit func(delta string) error) error {
	if c.cfg.APIKey == "" || c.cfg.Endpoint == "" {
		return &ProviderError{Message: "provider not configured"}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	body, err := json.Marshal(chatCompletionRequest{
		Messages:    messages,
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature,
		TopP:        params.TopP,
		Stream:      true,
	})
	if err != nil {
		return errors.Wrap(err, "marshal completion request")
	}

	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		strings.TrimSuffix(c.cfg.Endpoint, "/"), c.cfg.Deployment, c.cfg.APIVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build completion request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ProviderError{Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.readErrorResponse(resp)
	}

	// The watchdog cancels the request context when the provider goes
	// quiet between fragments; stalled tells the read loop why.
	var stalled atomic.Bool
	watchdog := time.AfterFunc(c.cfg.IdleTimeout, func() {
		stalled.Store(true)
		cancel()
	})
	defer watchdog.Stop()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		watchdog.Reset(c.cfg.IdleTimeout)

		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			return nil
		}

		var chunk chatCompletionChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			c.logger.Warn("skipping malformed provider chunk", zap.Error(err))
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			if emitErr := emit(delta); emitErr != nil {
				return emitErr
			}
		}
	}

	if err := scanner.Err(); err != nil {
		if stalled.Load() {
			return &ProviderError{Message: fmt.Sprintf("stream stalled for %s", c.cfg.IdleTimeout)}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &ProviderError{Message: fmt.Sprintf("stream read failed: %v", err)}
	}
	// EOF without [DONE]; treat whatever arrived as the whole completion.
	return nil
}

type providerErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

func (c *OpenAIClient) readErrorResponse(resp *http.Response) error {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8*1024))
	if err != nil {
		return &ProviderError{StatusCode: resp.StatusCode, Message: "unreadable error body"}
	}

	var body providerErrorBody
	if jsonErr := json.Unmarshal(raw, &body); jsonErr == nil && body.Error.Message != "" {
		return &ProviderError{StatusCode: resp.StatusCode, Message: body.Error.Message}
	}

	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		msg = resp.Status
	}
	return &ProviderError{StatusCode: resp.StatusCode, Message: msg}
}
