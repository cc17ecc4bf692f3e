package utils

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"feeddigest/models"
)

// AnthropicClient Anthropic Messages API 客户端
type AnthropicClient struct {
	config models.ModelConfig
	client anthropic.Client
}

func NewAnthropicClient(cfg models.ModelConfig) *AnthropicClient {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.GetTimeout()),
		// 重试由 withRetry 统一处理
		option.WithMaxRetries(0),
	}
	if cfg.APIBase != "" {
		// SDK 自带 v1 前缀
		base := strings.TrimSuffix(strings.TrimSuffix(cfg.APIBase, "/"), "/v1")
		opts = append(opts, option.WithBaseURL(base+"/"))
	}
	return &AnthropicClient{
		config: cfg,
		client: anthropic.NewClient(opts...),
	}
}

// Complete 发送单轮消息并拼接文本块
func (a *AnthropicClient) Complete(ctx context.Context, prompt string) (string, error) {
	return withRetry(ctx, a.config, func() (string, error) {
		return a.complete(ctx, prompt)
	})
}

func (a *AnthropicClient) complete(ctx context.Context, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(a.config.Model),
		MaxTokens:   int64(a.config.GetMaxTokens()),
		Temperature: anthropic.Float(a.config.GetTemperature()),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if a.config.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: a.config.SystemPrompt}}
	}

	message, err := a.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", &statusError{code: apiErr.StatusCode, body: truncateBody([]byte(apiErr.RawJSON()))}
		}
		return "", err
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return stripCodeFences(sb.String()), nil
}
