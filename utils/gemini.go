package utils

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"feeddigest/models"
)

// GeminiClient Gemini 文本生成客户端
type GeminiClient struct {
	client *genai.Client
	config models.ModelConfig
}

// NewGeminiClient 创建 Gemini 客户端
func NewGeminiClient(ctx context.Context, cfg models.ModelConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.APIBase != "" {
		cc.HTTPOptions.BaseURL = cfg.APIBase
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiClient{client: client, config: cfg}, nil
}

// Complete 生成文本
func (g *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	gc := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(g.config.GetTemperature())),
		MaxOutputTokens: int32(g.config.GetMaxTokens()),
	}
	if g.config.SystemPrompt != "" {
		gc.SystemInstruction = genai.NewContentFromText(g.config.SystemPrompt, genai.RoleUser)
	}
	return withRetry(ctx, g.config, func() (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, g.config.GetTimeout())
		defer cancel()
		resp, err := g.client.Models.GenerateContent(callCtx, g.config.Model, genai.Text(prompt), gc)
		if err != nil {
			return "", fmt.Errorf("gemini generate: %w", err)
		}
		return stripCodeFences(resp.Text()), nil
	})
}
