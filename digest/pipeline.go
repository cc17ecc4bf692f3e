package digest

import (
	"context"
	"time"

	"go.uber.org/zap"

	"feeddigest/models"
	"feeddigest/utils"
)

// Models 三个角色的模型，nil 表示不可用
type Models struct {
	Classification utils.TextModel
	Relevance      utils.TextModel
	Synthesis      utils.TextModel
}

// FilterStats 分类筛选统计
type FilterStats struct {
	Processed           int
	RejectedByRules     int
	RejectedByRelevance int
	DroppedByCap        int
	Accepted            int
}

// SynthesisStats 合成统计
type SynthesisStats struct {
	Categories int
	Items      int
	Outcomes   map[OutcomeKind]int
}

// Pipeline 规则筛选 → 分类 → 相关性 → 限额 → 合成 → 引用对齐
type Pipeline struct {
	Prefs       *models.Preferences
	Rules       *RuleFilter
	Classifier  *Classifier
	Judge       *RelevanceJudge
	Synthesizer *Synthesizer
	Log         *zap.SugaredLogger
}

// NewPipeline 用一次运行的配置构建各阶段
func NewPipeline(prefs *models.Preferences, prompts *models.Prompts, m Models, cache ClassifyCache, log *zap.SugaredLogger) *Pipeline {
	if prefs == nil {
		prefs = &models.Preferences{}
	}
	if prompts == nil {
		prompts = &models.Prompts{}
	}
	return &Pipeline{
		Prefs: prefs,
		Rules: NewRuleFilter(prefs.Global.BlacklistKeywordsGlobal, prefs.Global.GetMinArticleLength()),
		Classifier: &Classifier{
			Model:    m.Classification,
			Template: prompts.Classification.Default,
			MaxChars: prefs.Global.GetClassificationChars(),
			Cache:    cache,
			Log:      log,
		},
		Judge: &RelevanceJudge{
			Model:      m.Relevance,
			Prompts:    prompts.Relevance,
			Categories: prefs.Categories,
			MaxChars:   prefs.Global.GetRelevanceChars(),
			Log:        log,
		},
		Synthesizer: &Synthesizer{
			Model:           m.Synthesis,
			Template:        prompts.Synthesis.Default,
			ArticleTemplate: prompts.Synthesis.ArticleTemplate,
			Log:             log,
		},
		Log: log,
	}
}

// ClassifyAndFilter 依次处理文章，返回按类别分组的结果
func (p *Pipeline) ClassifyAndFilter(ctx context.Context, articles []models.Article) (*models.CategoryBuckets, FilterStats) {
	categories := p.Prefs.CategoriesOrder()
	capper := NewCapper(p.Prefs.CategoryMax)
	var stats FilterStats

	for _, a := range articles {
		stats.Processed++
		if rej := p.Rules.Evaluate(a); rej != nil {
			p.Log.Infof("[规则过滤] 文章 [%s]: %s", utils.Truncate(a.Title, 50), rej)
			stats.RejectedByRules++
			continue
		}

		def := a.DefaultCategory
		if def == "" {
			def = categories[0]
		}
		a.AssignedCategory = p.Classifier.Classify(ctx, a, categories, def)

		if !p.Judge.Judge(ctx, a, a.AssignedCategory) {
			stats.RejectedByRelevance++
			continue
		}

		if !capper.Offer(a.AssignedCategory, a) {
			p.Log.Debugf("[限额] 类别 [%s] 已满，丢弃 [%s]", a.AssignedCategory, utils.Truncate(a.Title, 50))
			stats.DroppedByCap++
			continue
		}
		stats.Accepted++
	}

	buckets := capper.Buckets()
	p.Log.Infof("[筛选完成] 处理: %d | 规则过滤: %d | 不相关: %d | 超额: %d | 保留: %d",
		stats.Processed, stats.RejectedByRules, stats.RejectedByRelevance, stats.DroppedByCap, stats.Accepted)
	for _, c := range buckets.Categories() {
		p.Log.Infof("[筛选完成] 类别 [%s]: %d 篇", c, buckets.Len(c))
	}
	return buckets, stats
}

// BuildEdition 为每个非空类别合成并对齐引用
func (p *Pipeline) BuildEdition(ctx context.Context, key, title string, buckets *models.CategoryBuckets) (models.Edition, SynthesisStats) {
	edition := models.Edition{Key: key, Title: title, GeneratedAt: time.Now().UTC()}
	stats := SynthesisStats{Outcomes: make(map[OutcomeKind]int)}

	for _, category := range buckets.Ordered(p.Prefs.CategoriesOrder()) {
		outcome := p.Synthesizer.Attempt(ctx, category, buckets.Get(category))
		stats.Outcomes[outcome.Kind]++

		section := models.Section{Category: category}
		for _, item := range outcome.Items() {
			resolved := Resolve(item)
			if len(resolved.References) == 0 && len(item.Articles) > 0 {
				p.Log.Warnf("[引用] 类别 [%s] 的条目没有有效引用: %q", category, utils.Truncate(item.Text, 100))
			}
			section.Items = append(section.Items, resolved)
		}
		if len(section.Items) > 0 {
			edition.Sections = append(edition.Sections, section)
			stats.Categories++
			stats.Items += len(section.Items)
		}
	}
	return edition, stats
}
