package models

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// 默认值
const (
	DefaultMaxArticlesPerCategory = 10
	DefaultMinArticleLength       = 20
	DefaultClassificationChars    = 150
	DefaultRelevanceChars         = 300
	DefaultCategory               = "General"
	DefaultNoSpecificCriteria     = "No hay criterios específicos."
)

// Source 订阅源配置
type Source struct {
	Name            string `json:"name"`
	URL             string `json:"url"`
	DefaultCategory string `json:"default_category,omitempty"`
	// 允许关键词（为空表示不限制）
	Keywords []string `json:"keywords,omitempty"`
	// 屏蔽关键词
	Blacklist []string `json:"blacklist,omitempty"`
	// 正文补全选择器，为空表示不抓取原文
	ScrapeSelector string `json:"scrape_selector,omitempty"`
	// 正文短于该长度时才抓取原文，默认 200
	ScrapeMinChars int `json:"scrape_min_chars,omitempty"`
}

// GetName 源名称，未配置时使用 URL
func (s Source) GetName() string {
	if s.Name == "" {
		return s.URL
	}
	return s.Name
}

// GetScrapeMinChars 获取原文抓取阈值，默认为 200
func (s Source) GetScrapeMinChars() int {
	if s.ScrapeMinChars <= 0 {
		return 200
	}
	return s.ScrapeMinChars
}

// SourcesFile sources.json 结构
type SourcesFile struct {
	Sources []Source `json:"sources"`
}

// GlobalPreferences 全局偏好
type GlobalPreferences struct {
	BlacklistKeywordsGlobal        []string `json:"blacklist_keywords_global,omitempty"`
	MinArticleLengthChars          *int     `json:"min_article_length_chars,omitempty"`
	MaxArticlesPerCategory         *int     `json:"max_articles_per_category,omitempty"`
	MaxArticlesPerCategoryWeekly   *int     `json:"max_articles_per_category_weekly,omitempty"`
	CategoriesOrder                []string `json:"categories_order,omitempty"`
	MaxCharsForClassificationCheck int      `json:"max_chars_for_classification_check,omitempty"`
	MaxCharsForRelevanceCheck      int      `json:"max_chars_for_relevance_check,omitempty"`
}

// GetMinArticleLength 最小正文长度，默认为 20；显式配置 0 表示不限制
func (g GlobalPreferences) GetMinArticleLength() int {
	if g.MinArticleLengthChars == nil || *g.MinArticleLengthChars < 0 {
		return DefaultMinArticleLength
	}
	return *g.MinArticleLengthChars
}

// GetMaxArticlesPerCategory 每类最大文章数，默认为 10；显式配置 0 表示该类不收录
func (g GlobalPreferences) GetMaxArticlesPerCategory() int {
	if g.MaxArticlesPerCategory == nil || *g.MaxArticlesPerCategory < 0 {
		return DefaultMaxArticlesPerCategory
	}
	return *g.MaxArticlesPerCategory
}

// GetMaxArticlesPerCategoryWeekly 周报每类最大文章数，默认为日报上限的两倍
func (g GlobalPreferences) GetMaxArticlesPerCategoryWeekly() int {
	if g.MaxArticlesPerCategoryWeekly == nil || *g.MaxArticlesPerCategoryWeekly < 0 {
		return DefaultMaxArticlesPerCategory * 2
	}
	return *g.MaxArticlesPerCategoryWeekly
}

func (g GlobalPreferences) GetClassificationChars() int {
	if g.MaxCharsForClassificationCheck <= 0 {
		return DefaultClassificationChars
	}
	return g.MaxCharsForClassificationCheck
}

func (g GlobalPreferences) GetRelevanceChars() int {
	if g.MaxCharsForRelevanceCheck <= 0 {
		return DefaultRelevanceChars
	}
	return g.MaxCharsForRelevanceCheck
}

// CategoryPreferences 单个类别的偏好字段，字段名由相关性模板引用
type CategoryPreferences map[string]any

// MaxArticles 类别自身的上限，未配置返回 false
func (c CategoryPreferences) MaxArticles() (int, bool) {
	v, ok := c["max_articles_per_category"]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		if n >= 0 {
			return int(n), true
		}
	case int:
		if n >= 0 {
			return n, true
		}
	case string:
		if i, err := strconv.Atoi(n); err == nil && i >= 0 {
			return i, true
		}
	}
	return 0, false
}

// Values 将偏好字段转换为模板参数；列表以逗号连接
func (c CategoryPreferences) Values() map[string]string {
	out := make(map[string]string, len(c))
	for k, v := range c {
		out[k] = formatValue(v)
	}
	return out
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			parts = append(parts, formatValue(e))
		}
		return strings.Join(parts, ", ")
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// Preferences preferences.json 结构
type Preferences struct {
	Global     GlobalPreferences              `json:"global"`
	Categories map[string]CategoryPreferences `json:"categories,omitempty"`
}

// CategoryMax 类别上限：类别配置 > 全局配置 > 10
func (p *Preferences) CategoryMax(category string) int {
	if cp, ok := p.Categories[category]; ok {
		if n, ok := cp.MaxArticles(); ok {
			return n
		}
	}
	return p.Global.GetMaxArticlesPerCategory()
}

// CategoriesOrder 有效类别列表：categories_order，其次类别配置键（排序），最后 General
func (p *Preferences) CategoriesOrder() []string {
	if len(p.Global.CategoriesOrder) > 0 {
		return append([]string(nil), p.Global.CategoriesOrder...)
	}
	if len(p.Categories) > 0 {
		keys := make([]string, 0, len(p.Categories))
		for k := range p.Categories {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return keys
	}
	return []string{DefaultCategory}
}

// RelevancePrompts 相关性判断模板
type RelevancePrompts struct {
	Base               string            `json:"base,omitempty"`
	CriteriaTemplates  map[string]string `json:"criteria_templates,omitempty"`
	NoSpecificCriteria string            `json:"no_specific_criteria,omitempty"`
}

// GetNoSpecificCriteria 缺省标准文本
func (r RelevancePrompts) GetNoSpecificCriteria() string {
	if r.NoSpecificCriteria == "" {
		return DefaultNoSpecificCriteria
	}
	return r.NoSpecificCriteria
}

// CriteriaTemplate 类别标准模板，类别未配置时回退到 General；配置为空串表示没有具体标准
func (r RelevancePrompts) CriteriaTemplate(category string) (string, bool) {
	t, ok := r.CriteriaTemplates[category]
	if !ok {
		t = r.CriteriaTemplates[DefaultCategory]
	}
	return t, t != ""
}

// Prompts prompts.json 结构
type Prompts struct {
	Classification struct {
		Default string `json:"default,omitempty"`
	} `json:"classification"`
	Relevance RelevancePrompts `json:"relevance"`
	Synthesis struct {
		Default         string `json:"default,omitempty"`
		ArticleTemplate string `json:"article_template,omitempty"`
	} `json:"synthesis"`
}

// LoadSources 读取源列表；失败时返回空列表与错误
func LoadSources(path string) ([]Source, error) {
	var f SourcesFile
	if err := readJSON(path, &f); err != nil {
		return []Source{}, err
	}
	return f.Sources, nil
}

// LoadPreferences 读取偏好；失败时返回空偏好与错误，调用方记录日志后继续
func LoadPreferences(path string) (*Preferences, error) {
	var p Preferences
	if err := readJSON(path, &p); err != nil {
		return &Preferences{}, err
	}
	return &p, nil
}

// LoadPrompts 读取提示词模板；失败时返回空模板与错误
func LoadPrompts(path string) (*Prompts, error) {
	var p Prompts
	if err := readJSON(path, &p); err != nil {
		return &Prompts{}, err
	}
	return &p, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("读取 %s 失败: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("解析 %s 失败: %w", path, err)
	}
	return nil
}
