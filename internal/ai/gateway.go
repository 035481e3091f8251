package ai

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Config holds LLM gateway configuration. BaseURL points at a local
// OpenAI-compatible endpoint (Ollama's /v1 surface by default); no external
// network dependency is assumed.
type Config struct {
	BaseURL        string
	APIKey         string
	Model          string
	Timeout        time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
	CacheSize      int
	CacheTTL       time.Duration
}

// GenerateRequest describes one completion request.
type GenerateRequest struct {
	Prompt       string
	SystemPrompt string
	Temperature  float32
	MaxTokens    int
}

// Gateway sends prompts to the local model endpoint, bounded by the
// configured timeout and retry budget. Identical requests within the cache
// TTL are answered from a bounded LRU without re-invoking the model, and
// concurrent identical requests are coalesced into a single in-flight call.
type Gateway struct {
	client         *openai.Client
	model          string
	timeout        time.Duration
	maxRetries     int
	initialBackoff time.Duration
	cache          *responseCache
	group          singleflight.Group
	logger         *zap.Logger
}

// NewGateway creates a gateway against the configured endpoint.
func NewGateway(cfg Config, logger *zap.Logger) *Gateway {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 128
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}

	return &Gateway{
		client:         openai.NewClientWithConfig(clientCfg),
		model:          cfg.Model,
		timeout:        cfg.Timeout,
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
		cache:          newResponseCache(cfg.CacheSize, cfg.CacheTTL),
		logger:         logger,
	}
}

// Model returns the configured model name.
func (g *Gateway) Model() string {
	return g.model
}

// Generate sends the request and returns the raw model text. Transient
// failures are retried with exponential backoff before a GatewayError
// surfaces; 4xx rejections fail immediately.
func (g *Gateway) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	key := cacheKey(g.model, req)
	if cached, ok := g.cache.Get(key); ok {
		g.logger.Debug("Gateway cache hit", zap.String("key", key[:12]))
		return cached, nil
	}

	result, err, _ := g.group.Do(key, func() (interface{}, error) {
		text, err := g.generateWithRetry(ctx, req)
		if err != nil {
			return "", err
		}
		g.cache.Add(key, text)
		return text, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (g *Gateway) generateWithRetry(ctx context.Context, req GenerateRequest) (string, error) {
	var lastKind GatewayErrorKind
	var lastErr error

	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			delay := g.initialBackoff << (attempt - 1)
			g.logger.Warn("Retrying gateway call",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", delay),
				zap.Error(lastErr))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", newGatewayError(KindTimeout, ctx.Err())
			}
		}

		text, err := g.generateOnce(ctx, req)
		if err == nil {
			return text, nil
		}

		kind, transient := classify(err)
		lastKind, lastErr = kind, err
		if !transient {
			return "", newGatewayError(kind, err)
		}
	}

	return "", newGatewayError(lastKind, lastErr)
}

func (g *Gateway) generateOnce(ctx context.Context, req GenerateRequest) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	resp, err := g.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Messages:    messages,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", newGatewayError(KindMalformedResponse, errors.New("no choices in response"))
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", newGatewayError(KindMalformedResponse, errors.New("empty completion content"))
	}
	return content, nil
}

// classify maps a transport failure to a gateway error kind and reports
// whether it is worth retrying. A 4xx means the endpoint rejected the
// request itself, so retrying the same payload cannot help.
func classify(err error) (GatewayErrorKind, bool) {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Kind, false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout, true
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode >= 500, apiErr.HTTPStatusCode == 429:
			return KindUnavailable, true
		default:
			return KindUnavailable, false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout, true
	}

	// Connection refused and friends: the local model is not running.
	return KindUnavailable, true
}
