package digest

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"feeddigest/models"
	"feeddigest/utils"
)

// 合成时每篇文章的正文上限
const synthesisContentChars = 1000

// 回退文本
const (
	noteNoModel    = "(Contenido no sintetizado por IA)"
	noteNoTemplate = "(Contenido no sintetizado por falta de prompt)"
	noteCallFailed = "(Error durante la síntesis por IA: %s)"
	noteEmpty      = "(Síntesis de IA vacía)"
)

// OutcomeKind 合成尝试的结果类型
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeEmpty
	OutcomeConfigMissing
	OutcomeCallFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeEmpty:
		return "empty"
	case OutcomeConfigMissing:
		return "config_missing"
	case OutcomeCallFailed:
		return "call_failed"
	}
	return "unknown(" + strconv.Itoa(int(k)) + ")"
}

// Outcome 一个类别的合成结果
type Outcome struct {
	Kind OutcomeKind
	// Success 时为模型输出
	Text string
	// ConfigMissing 时为回退说明
	Note string
	// CallFailed 时的错误
	Err      error
	Titles   []string
	Articles []models.ArticleRef
}

// Items 将结果转换为合成条目
func (o Outcome) Items() []models.SynthesisItem {
	if len(o.Articles) == 0 {
		return nil
	}
	perArticle := func(note string) []models.SynthesisItem {
		items := make([]models.SynthesisItem, len(o.Titles))
		for i, title := range o.Titles {
			items[i] = models.SynthesisItem{Text: title + ". " + note, Articles: o.Articles}
		}
		return items
	}
	switch o.Kind {
	case OutcomeConfigMissing:
		return perArticle(o.Note)
	case OutcomeCallFailed:
		msg := ""
		if o.Err != nil {
			msg = utils.Truncate(o.Err.Error(), 100)
		}
		return perArticle(fmt.Sprintf(noteCallFailed, msg))
	case OutcomeEmpty:
		return []models.SynthesisItem{{Text: noteEmpty, Articles: o.Articles}}
	default:
		return []models.SynthesisItem{{Text: o.Text, Articles: o.Articles}}
	}
}

// Synthesizer 为一个类别生成带 [n] 引用的综述
type Synthesizer struct {
	Model           utils.TextModel
	Template        string
	ArticleTemplate string
	Log             *zap.SugaredLogger
}

// Attempt 执行一次合成，失败不会中断整个运行
func (s *Synthesizer) Attempt(ctx context.Context, category string, articles []models.Article) Outcome {
	o := Outcome{
		Titles:   make([]string, len(articles)),
		Articles: make([]models.ArticleRef, len(articles)),
	}
	for i, a := range articles {
		o.Titles[i] = a.Title
		o.Articles[i] = a.Ref(i + 1)
	}
	if len(articles) == 0 {
		o.Kind = OutcomeEmpty
		return o
	}

	if s.Model == nil {
		s.Log.Warnf("[合成] 合成模型不可用，类别 [%s] 列出标题", category)
		o.Kind, o.Note = OutcomeConfigMissing, noteNoModel
		return o
	}
	if s.Template == "" || s.ArticleTemplate == "" {
		s.Log.Errorf("[合成] 缺少合成提示词模板，类别 [%s] 列出标题", category)
		o.Kind, o.Note = OutcomeConfigMissing, noteNoTemplate
		return o
	}

	prompt, err := s.buildPrompt(category, articles)
	if err != nil {
		s.Log.Errorf("[合成] 提示词模板格式错误: %v，类别 [%s] 列出标题", err, category)
		o.Kind, o.Note = OutcomeConfigMissing, noteNoTemplate
		return o
	}

	s.Log.Infof("[合成] 类别 [%s]，%d 篇文章", category, len(articles))
	resp, err := s.Model.Complete(ctx, prompt)
	if err != nil {
		s.Log.Errorf("[合成失败] 类别 [%s]: %v", category, err)
		o.Kind, o.Err = OutcomeCallFailed, err
		return o
	}
	text := strings.TrimSpace(resp)
	if text == "" {
		s.Log.Warnf("[合成] 类别 [%s] 返回空内容", category)
		o.Kind = OutcomeEmpty
		return o
	}
	o.Kind, o.Text = OutcomeSuccess, text
	return o
}

// Synthesize 合成并转换为条目
func (s *Synthesizer) Synthesize(ctx context.Context, category string, articles []models.Article) []models.SynthesisItem {
	return s.Attempt(ctx, category, articles).Items()
}

func (s *Synthesizer) buildPrompt(category string, articles []models.Article) (string, error) {
	sections := make([]string, len(articles))
	for i, a := range articles {
		sec, err := utils.FormatTemplate(s.ArticleTemplate, map[string]string{
			"index":   strconv.Itoa(i + 1),
			"title":   a.Title,
			"content": utils.Truncate(a.ContentText, synthesisContentChars),
			"url":     a.Link,
			"source":  a.SourceName,
			"date":    a.Published.UTC().Format(time.DateOnly),
		})
		if err != nil {
			return "", err
		}
		sections[i] = sec
	}
	return utils.FormatTemplate(s.Template, map[string]string{
		"category":         category,
		"articles_section": strings.Join(sections, "\n\n"),
	})
}
