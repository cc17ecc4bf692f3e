package digest

import (
	"fmt"

	"feeddigest/models"
	"feeddigest/utils"
)

// 规则名称
const (
	RuleGlobalBlacklist = "global_blacklist"
	RuleSourceBlacklist = "source_blacklist"
	RuleMinLength       = "min_length"
	RuleSourceKeywords  = "source_keywords"
)

// 关键词检查只看标题和正文前 150 个字符
const ruleContentChars = 150

// Rejection 规则拒绝原因
type Rejection struct {
	Rule   string
	Detail string
}

func (r *Rejection) String() string {
	return fmt.Sprintf("%s (%s)", r.Rule, r.Detail)
}

// RuleCheck 具名检查，返回非空说明表示拒绝
type RuleCheck struct {
	Name  string
	Check func(a models.Article) (detail string, reject bool)
}

// RuleFilter 按顺序执行检查，第一条拒绝即生效
type RuleFilter struct {
	checks []RuleCheck
}

// NewRuleFilter 全局屏蔽词 → 来源屏蔽词 → 最小长度 → 来源允许词
func NewRuleFilter(globalBlacklist []string, minLength int) *RuleFilter {
	return &RuleFilter{checks: []RuleCheck{
		{Name: RuleGlobalBlacklist, Check: func(a models.Article) (string, bool) {
			return matchAny(checkText(a), globalBlacklist)
		}},
		{Name: RuleSourceBlacklist, Check: func(a models.Article) (string, bool) {
			return matchAny(checkText(a), a.SourceBlacklist)
		}},
		{Name: RuleMinLength, Check: func(a models.Article) (string, bool) {
			n := utils.CharCount(a.ContentText)
			if n < minLength {
				return fmt.Sprintf("%d < %d", n, minLength), true
			}
			return "", false
		}},
		{Name: RuleSourceKeywords, Check: func(a models.Article) (string, bool) {
			if len(a.SourceKeywords) == 0 {
				return "", false
			}
			if _, hit := matchAny(checkText(a), a.SourceKeywords); hit {
				return "", false
			}
			return "no keyword matched", true
		}},
	}}
}

// Evaluate 返回第一条拒绝原因，通过时返回 nil
func (f *RuleFilter) Evaluate(a models.Article) *Rejection {
	for _, c := range f.checks {
		if detail, reject := c.Check(a); reject {
			return &Rejection{Rule: c.Name, Detail: detail}
		}
	}
	return nil
}

// Accept 是否通过全部规则
func (f *RuleFilter) Accept(a models.Article) bool {
	return f.Evaluate(a) == nil
}

func checkText(a models.Article) string {
	return a.Title + " " + utils.Truncate(a.ContentText, ruleContentChars)
}

func matchAny(text string, keywords []string) (string, bool) {
	for _, kw := range keywords {
		if utils.ContainsKeyword(text, kw) {
			return kw, true
		}
	}
	return "", false
}
