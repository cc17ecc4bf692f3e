package utils

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// ErrMissingTemplateField 模板引用了未提供的字段
var ErrMissingTemplateField = errors.New("template field not provided")

var placeholderRe = regexp.MustCompile(`\{\{|\}\}|\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// FormatTemplate 用 values 填充 {name} 占位符，{{ 与 }} 输出为字面括号
func FormatTemplate(tmpl string, values map[string]string) (string, error) {
	var b strings.Builder
	last := 0
	for _, m := range placeholderRe.FindAllStringSubmatchIndex(tmpl, -1) {
		b.WriteString(tmpl[last:m[0]])
		last = m[1]
		switch tok := tmpl[m[0]:m[1]]; tok {
		case "{{":
			b.WriteByte('{')
		case "}}":
			b.WriteByte('}')
		default:
			name := tmpl[m[2]:m[3]]
			v, ok := values[name]
			if !ok {
				return "", fmt.Errorf("%w: %s", ErrMissingTemplateField, name)
			}
			b.WriteString(v)
		}
	}
	b.WriteString(tmpl[last:])
	return b.String(), nil
}

// StripHTML 提取 HTML 中的纯文本，各文本节点去除首尾空白后以空格连接
func StripHTML(html string) string {
	if !strings.ContainsAny(html, "<&") {
		return strings.TrimSpace(html)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.TrimSpace(html)
	}
	var parts []string
	var walk func(*goquery.Selection)
	walk = func(s *goquery.Selection) {
		s.Contents().Each(func(_ int, c *goquery.Selection) {
			switch goquery.NodeName(c) {
			case "#text":
				if t := strings.TrimSpace(c.Text()); t != "" {
					parts = append(parts, t)
				}
			case "script", "style", "noscript", "#comment":
			default:
				walk(c)
			}
		})
	}
	walk(doc.Selection)
	return strings.Join(parts, " ")
}

// Truncate 按字符截断
func Truncate(s string, n int) string {
	if n < 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// ContainsKeyword 检查文本是否包含关键词（不区分大小写）
func ContainsKeyword(text, keyword string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(keyword))
}

// CharCount 字符数
func CharCount(s string) int {
	return utf8.RuneCountInString(s)
}
