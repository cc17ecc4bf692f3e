package render

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"regexp"
	"strconv"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"feeddigest/models"
)

var markerRe = regexp.MustCompile(`\[(\d+)\]`)

// Markup 条目文本 → 安全 HTML
type Markup struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

func NewMarkup() *Markup {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			gmhtml.WithHardWraps(),
			// 引用链接在 markdown 之前以 HTML 形式嵌入
			gmhtml.WithUnsafe(),
		),
	)

	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").Matching(regexp.MustCompile(`^[a-z-]+$`)).OnElements("a", "span")
	policy.AllowAttrs("title").OnElements("a")
	policy.AddTargetBlankToFullyQualifiedLinks(true)

	return &Markup{md: md, policy: policy}
}

// LinkMarkers 把有对应来源的 [n] 换成内联链接，其余保持原样
func LinkMarkers(text string, refs []models.Reference) string {
	if len(refs) == 0 {
		return text
	}
	byID := make(map[int]models.Reference, len(refs))
	for _, r := range refs {
		byID[r.ID] = r
	}
	return markerRe.ReplaceAllStringFunc(text, func(m string) string {
		n, err := strconv.Atoi(m[1 : len(m)-1])
		if err != nil {
			return m
		}
		ref, ok := byID[n]
		if !ok {
			return m
		}
		return fmt.Sprintf(`<a href="%s" target="_blank" title="%s" class="inline-ref-arrow-only"><span class="ref-icon">↗</span></a>`,
			html.EscapeString(ref.URL), html.EscapeString(fmt.Sprintf("Fuente %d: %s", ref.ID, ref.Title)))
	})
}

// Item 渲染一个条目
func (m *Markup) Item(item models.ResolvedItem) (template.HTML, error) {
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(LinkMarkers(item.Text, item.References)), &buf); err != nil {
		return "", fmt.Errorf("markdown 转换失败: %w", err)
	}
	return template.HTML(m.policy.SanitizeBytes(buf.Bytes())), nil
}
