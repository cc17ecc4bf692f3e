package digest

import (
	"context"
	"slices"
	"strings"

	"go.uber.org/zap"

	"feeddigest/models"
	"feeddigest/utils"
)

// ClassifyCache 分类结果缓存
type ClassifyCache interface {
	LookupCategory(ctx context.Context, link string) (string, bool, error)
	RememberCategory(ctx context.Context, link, category string) error
}

// Classifier 为文章选择类别；结果总是有效类别之一，从不返回错误
type Classifier struct {
	Model    utils.TextModel
	Template string
	MaxChars int
	Cache    ClassifyCache
	Log      *zap.SugaredLogger
}

// Classify 调用模型分类，任何失败都回退到默认类别
func (c *Classifier) Classify(ctx context.Context, a models.Article, valid []string, defaultCategory string) string {
	if len(valid) == 0 {
		valid = []string{models.DefaultCategory}
	}
	if !slices.Contains(valid, defaultCategory) {
		if defaultCategory != "" {
			c.Log.Warnf("[分类] 默认类别 [%s] 不在类别列表中，改用 [%s]", defaultCategory, valid[0])
		}
		defaultCategory = valid[0]
	}
	title := utils.Truncate(a.Title, 50)

	if c.Cache != nil {
		cat, ok, err := c.Cache.LookupCategory(ctx, a.Link)
		if err != nil {
			c.Log.Warnf("[分类缓存] 读取失败 %s: %v", a.Link, err)
		} else if ok && slices.Contains(valid, cat) {
			c.Log.Debugf("[分类缓存] 文章 [%s]: %s", title, cat)
			return cat
		}
	}

	if c.Model == nil {
		c.Log.Warnf("[分类] 分类模型不可用，文章 [%s] 使用默认类别 [%s]", title, defaultCategory)
		return defaultCategory
	}
	if c.Template == "" {
		c.Log.Errorf("[分类] 缺少分类提示词模板，文章 [%s] 使用默认类别 [%s]", title, defaultCategory)
		return defaultCategory
	}

	quoted := make([]string, len(valid))
	for i, v := range valid {
		quoted[i] = "'" + v + "'"
	}
	prompt, err := utils.FormatTemplate(c.Template, map[string]string{
		"categories_list":  strings.Join(quoted, ", "),
		"title":            a.Title,
		"short_content":    utils.Truncate(a.ContentText, c.maxChars()),
		"default_category": defaultCategory,
	})
	if err != nil {
		c.Log.Errorf("[分类] 提示词模板格式错误: %v，文章 [%s] 使用默认类别", err, title)
		return defaultCategory
	}

	resp, err := c.Model.Complete(ctx, prompt)
	if err != nil {
		c.Log.Errorf("[分类失败] 文章 [%s]: %v，使用默认类别 [%s]", title, err, defaultCategory)
		return defaultCategory
	}
	predicted := strings.NewReplacer("'", "", `"`, "").Replace(strings.TrimSpace(resp))
	if !slices.Contains(valid, predicted) {
		c.Log.Warnf("[分类] 模型返回无效类别 (%q)，文章 [%s] 使用默认类别 [%s]", resp, title, defaultCategory)
		return defaultCategory
	}

	c.Log.Infof("[分类完成] 文章 [%s]: %s", title, predicted)
	if c.Cache != nil {
		if err := c.Cache.RememberCategory(ctx, a.Link, predicted); err != nil {
			c.Log.Warnf("[分类缓存] 保存失败 %s: %v", a.Link, err)
		}
	}
	return predicted
}

func (c *Classifier) maxChars() int {
	if c.MaxChars <= 0 {
		return models.DefaultClassificationChars
	}
	return c.MaxChars
}
