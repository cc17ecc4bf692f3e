package digest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feeddigest/utils"
)

const classifyTmpl = "Categorías: {categories_list}\nTítulo: {title}\nContenido: {short_content}\nPor defecto: {default_category}"

var validCategories = []string{"Tecnología", "Deportes"}

func TestClassifierAcceptsExactMember(t *testing.T) {
	m := replyWith(` "Deportes" `)
	c := &Classifier{Model: m, Template: classifyTmpl, Log: nopLog()}

	got := c.Classify(context.Background(), article("1", "Final de copa", strings.Repeat("a", 400)), validCategories, "Tecnología")
	assert.Equal(t, "Deportes", got)

	prompt := m.lastPrompt()
	assert.Contains(t, prompt, "Categorías: 'Tecnología', 'Deportes'\n")
	assert.Contains(t, prompt, "Contenido: "+strings.Repeat("a", 150)+"\n")
	assert.NotContains(t, prompt, strings.Repeat("a", 151))
	assert.Contains(t, prompt, "Por defecto: Tecnología")
}

func TestClassifierFallsBackToDefault(t *testing.T) {
	tests := []struct {
		name     string
		model    utils.TextModel
		template string
	}{
		{"unknown category", replyWith("Economía"), classifyTmpl},
		{"chatty answer", replyWith("La categoría es Deportes"), classifyTmpl},
		{"space inside quotes", replyWith("' Deportes'"), classifyTmpl},
		{"empty answer", replyWith(""), classifyTmpl},
		{"call error", failWith(errors.New("timeout")), classifyTmpl},
		{"no model", nil, classifyTmpl},
		{"no template", replyWith("Deportes"), ""},
		{"bad template", replyWith("Deportes"), "{unknown_field}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Classifier{Model: tt.model, Template: tt.template, Log: nopLog()}
			got := c.Classify(context.Background(), article("1", "t", "c"), validCategories, "Tecnología")
			assert.Equal(t, "Tecnología", got)
		})
	}
}

func TestClassifierResultAlwaysMember(t *testing.T) {
	answers := []string{"", "'", `""`, "Deportes.", "deportes", "General", "Tecnología\nDeportes", "'Deportes'", "\tTecnología "}
	for _, ans := range answers {
		for _, def := range []string{"Tecnología", "General", ""} {
			c := &Classifier{Model: replyWith(ans), Template: classifyTmpl, Log: nopLog()}
			got := c.Classify(context.Background(), article("1", "t", "c"), validCategories, def)
			assert.Contains(t, validCategories, got, "answer %q default %q", ans, def)
		}
	}
}

func TestClassifierDefaultOutsideListUsesFirst(t *testing.T) {
	c := &Classifier{Log: nopLog()}
	assert.Equal(t, "Tecnología", c.Classify(context.Background(), article("1", "t", "c"), validCategories, "General"))
}

func TestClassifierCache(t *testing.T) {
	cache := &memoryCache{}
	m := replyWith("Deportes")
	c := &Classifier{Model: m, Template: classifyTmpl, Cache: cache, Log: nopLog()}
	a := article("1", "t", "c")

	require.Equal(t, "Deportes", c.Classify(context.Background(), a, validCategories, "Tecnología"))
	require.Equal(t, "Deportes", c.Classify(context.Background(), a, validCategories, "Tecnología"))
	assert.Equal(t, 1, m.calls())

	// 缓存中的类别已不在列表中时重新分类
	cache.data[a.Link] = "Retirada"
	c.Classify(context.Background(), a, validCategories, "Tecnología")
	assert.Equal(t, 2, m.calls())

	// 回退结果不写入缓存
	b := article("2", "t", "c")
	c.Model = replyWith("???")
	assert.Equal(t, "Tecnología", c.Classify(context.Background(), b, validCategories, "Tecnología"))
	_, ok := cache.data[b.Link]
	assert.False(t, ok)
}
