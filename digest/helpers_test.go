package digest

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"feeddigest/models"
)

// scriptedModel 按提示词返回预设回答
type scriptedModel struct {
	mu      sync.Mutex
	prompts []string
	respond func(prompt string) (string, error)
}

func (m *scriptedModel) Complete(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	return m.respond(prompt)
}

func (m *scriptedModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

func (m *scriptedModel) lastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}

func replyWith(text string) *scriptedModel {
	return &scriptedModel{respond: func(string) (string, error) { return text, nil }}
}

func failWith(err error) *scriptedModel {
	return &scriptedModel{respond: func(string) (string, error) { return "", err }}
}

// replyByKeyword 第一个出现在提示词中的关键词决定回答
func replyByKeyword(fallback string, pairs ...string) *scriptedModel {
	return &scriptedModel{respond: func(p string) (string, error) {
		for i := 0; i+1 < len(pairs); i += 2 {
			if strings.Contains(p, pairs[i]) {
				return pairs[i+1], nil
			}
		}
		return fallback, nil
	}}
}

func nopLog() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func article(id, title, content string) models.Article {
	return models.Article{
		ID:          "https://news.example/" + id,
		Title:       title,
		Link:        "https://news.example/" + id,
		ContentText: content,
		SourceName:  "example",
	}
}

type memoryCache struct {
	data map[string]string
}

func (c *memoryCache) LookupCategory(_ context.Context, link string) (string, bool, error) {
	v, ok := c.data[link]
	return v, ok, nil
}

func (c *memoryCache) RememberCategory(_ context.Context, link, category string) error {
	if c.data == nil {
		c.data = make(map[string]string)
	}
	c.data[link] = category
	return nil
}
