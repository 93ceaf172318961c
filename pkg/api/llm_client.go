package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/valyala/fasthttp"

	"trend-go/pkg/logger"
)

const systemPrompt = `너는 한국의 최신 트렌드를 분석하는 전문가야.
키워드가 지금 왜 유행하는지 유래와 이유를 짧은 줄글로 설명해.
링크, 출처 표기, 볼드체 같은 서식은 쓰지 말고 수치도 직접 언급하지 마.`

type LLMConfig struct {
	Endpoint string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// LLMClient explains keywords through an OpenAI-compatible chat completion
// API.
type LLMClient struct {
	config  LLMConfig
	client  *fasthttp.Client
	breaker *CircuitBreaker
	log     *logger.Logger
}

func NewLLMClient(config LLMConfig, clock clockwork.Clock) *LLMClient {
	if config.Timeout <= 0 {
		config.Timeout = 20 * time.Second
	}
	connConfig := DefaultConnectionConfig()
	connConfig.RequestTimeout = config.Timeout
	connConfig.ReadTimeout = config.Timeout

	return &LLMClient{
		config:  config,
		client:  NewFastHTTPClient(connConfig),
		breaker: NewCircuitBreaker(3, 2*time.Minute, clock),
		log:     logger.Component("llm_client"),
	}
}

// Configured reports whether an API key is present.
func (c *LLMClient) Configured() bool {
	return c.config.APIKey != ""
}

// Explain asks the model why keyword is trending, grounded on the search
// volume summary. It is not retried: calls are slow and billed.
func (c *LLMClient) Explain(ctx context.Context, keyword, grounding string) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("llm: %w", ErrNotConfigured)
	}

	userPrompt := fmt.Sprintf("키워드: '%s'의 한국 내 유행 이유와 유래를 분석해줘.\n\n[참고 데이터]\n%s", keyword, grounding)
	body, err := json.Marshal(chatRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	var content string
	start := time.Now()
	err = c.breaker.Execute(func() error {
		var doErr error
		content, doErr = c.doRequest(ctx, body)
		return doErr
	})
	if err != nil {
		c.log.WithError(err).WithField("keyword", keyword).Warn("LLM request failed")
		return "", fmt.Errorf("llm: %w", err)
	}

	c.log.WithFields(map[string]interface{}{
		"keyword":     keyword,
		"model":       c.config.Model,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("LLM explanation generated")
	return content, nil
}

func (c *LLMClient) doRequest(ctx context.Context, body []byte) (string, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(strings.TrimRight(c.config.Endpoint, "/") + "/chat/completions")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.SetBody(body)

	if err := DoContext(ctx, c.client, req, resp, c.config.Timeout); err != nil {
		return "", err
	}

	var decoded chatResponse
	if err := json.Unmarshal(resp.Body(), &decoded); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}
	if decoded.Error != nil {
		return "", fmt.Errorf("chat error: %s", decoded.Error.Message)
	}
	if len(decoded.Choices) == 0 || strings.TrimSpace(decoded.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("empty chat response")
	}
	return decoded.Choices[0].Message.Content, nil
}
