package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"feeddigest/models"
)

// ErrModelNotConfigured 角色未配置模型
var ErrModelNotConfigured = errors.New("model not configured")

// TextModel 文本生成模型
type TextModel interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// NewTextModel 按配置创建模型客户端；未配置模型名时返回 ErrModelNotConfigured
func NewTextModel(ctx context.Context, cfg models.ModelConfig) (TextModel, error) {
	if cfg.Model == "" {
		return nil, ErrModelNotConfigured
	}
	switch cfg.GetProvider() {
	case models.ProviderGemini:
		c, err := NewGeminiClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	case models.ProviderAnthropic:
		return NewAnthropicClient(cfg), nil
	default:
		return NewOpenAIClient(cfg), nil
	}
}

// OpenAIClient 兼容 OpenAI 格式的大模型客户端
type OpenAIClient struct {
	config models.ModelConfig
	client *http.Client
}

// NewOpenAIClient 创建新的客户端
func NewOpenAIClient(config models.ModelConfig) *OpenAIClient {
	return &OpenAIClient{
		config: config,
		client: &http.Client{
			Timeout: config.GetTimeout(),
		},
	}
}

// ChatMessage 聊天消息结构
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest 聊天请求结构
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// ChatResponse 聊天响应结构
type ChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// statusError 非 2xx 响应
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.code, e.body)
}

// retryable 网络错误、429 与 5xx 可以重试
func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// withRetry 按配置重试
func withRetry(ctx context.Context, cfg models.ModelConfig, call func() (string, error)) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= cfg.GetRetryCount(); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(cfg.GetRetryWait()):
			}
		}
		out, err := call()
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
	}
	return "", lastErr
}

// Complete 发送单轮对话并返回文本
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	return withRetry(ctx, c.config, func() (string, error) {
		return c.complete(ctx, prompt)
	})
}

func (c *OpenAIClient) complete(ctx context.Context, prompt string) (string, error) {
	messages := make([]ChatMessage, 0, 2)
	if c.config.SystemPrompt != "" {
		messages = append(messages, ChatMessage{Role: "system", Content: c.config.SystemPrompt})
	}
	messages = append(messages, ChatMessage{Role: "user", Content: prompt})

	reqBody := ChatRequest{
		Model:       c.config.Model,
		Messages:    messages,
		Temperature: c.config.GetTemperature(),
		MaxTokens:   c.config.GetMaxTokens(),
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("序列化请求失败: %w", err)
	}

	apiURL := c.config.GetAPIBase() + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("发送请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("读取响应失败: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return "", &statusError{code: resp.StatusCode, body: truncateBody(body)}
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("解析响应失败: %w", err)
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("API错误: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("API未返回有效响应")
	}
	return stripCodeFences(chatResp.Choices[0].Message.Content), nil
}

func truncateBody(body []byte) string {
	return Truncate(strings.TrimSpace(string(body)), 200)
}

// stripCodeFences 去掉模型偶尔包裹的 ``` 代码块
func stripCodeFences(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") || !strings.HasSuffix(t, "```") || len(t) < 6 {
		return s
	}
	t = strings.TrimSuffix(strings.TrimPrefix(t, "```"), "```")
	if i := strings.IndexByte(t, '\n'); i >= 0 && !strings.Contains(t[:i], " ") {
		// 去掉语言标记
		t = t[i+1:]
	}
	return strings.TrimSpace(t)
}
