package digest

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"feeddigest/models"
	"feeddigest/utils"
)

// RelevanceJudge 判断文章对所属类别是否相关
//
// 没有模型或缺少基础模板时视为相关；模型调用失败或回答含糊时视为不相关。
type RelevanceJudge struct {
	Model      utils.TextModel
	Prompts    models.RelevancePrompts
	Categories map[string]models.CategoryPreferences
	MaxChars   int
	Log        *zap.SugaredLogger
}

// Judge 返回文章是否保留
func (j *RelevanceJudge) Judge(ctx context.Context, a models.Article, category string) bool {
	title := utils.Truncate(a.Title, 50)
	if j.Model == nil {
		j.Log.Warnf("[相关性] 相关性模型不可用，文章 [%s] 视为相关", title)
		return true
	}
	if j.Prompts.Base == "" {
		j.Log.Errorf("[相关性] 缺少基础提示词模板，文章 [%s] 视为相关", title)
		return true
	}

	prompt, err := utils.FormatTemplate(j.Prompts.Base, map[string]string{
		"category":      category,
		"criteria_text": j.criteria(category),
		"title":         a.Title,
		"short_content": utils.Truncate(a.ContentText, j.maxChars()),
	})
	if err != nil {
		j.Log.Errorf("[相关性] 基础提示词模板格式错误: %v，文章 [%s] 视为相关", err, title)
		return true
	}

	j.Log.Infof("[相关性] 评估文章 [%s] 于类别 [%s]", title, category)
	resp, err := j.Model.Complete(ctx, prompt)
	if err != nil {
		j.Log.Errorf("[相关性失败] 文章 [%s]: %v，视为不相关", title, err)
		return false
	}
	switch answer := strings.ToLower(strings.TrimSpace(resp)); answer {
	case "sí", "si":
		return true
	case "no":
		j.Log.Infof("[相关性] 文章 [%s] 与类别 [%s] 不相关", title, category)
		return false
	default:
		j.Log.Warnf("[相关性] 模型回答无效 (%q)，文章 [%s] 视为不相关", answer, title)
		return false
	}
}

// criteria 类别标准文本；模板缺字段时使用通用文本
func (j *RelevanceJudge) criteria(category string) string {
	generic := j.Prompts.GetNoSpecificCriteria()
	tmpl, ok := j.Prompts.CriteriaTemplate(category)
	if !ok {
		return generic
	}
	text, err := utils.FormatTemplate(tmpl, j.Categories[category].Values())
	if err != nil {
		j.Log.Warnf("[相关性] 类别 [%s] 的偏好缺少字段: %v，使用通用标准", category, err)
		return generic
	}
	return text
}

func (j *RelevanceJudge) maxChars() int {
	if j.MaxChars <= 0 {
		return models.DefaultRelevanceChars
	}
	return j.MaxChars
}
