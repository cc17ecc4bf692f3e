package digest

import (
	"regexp"
	"sort"
	"strconv"

	"feeddigest/models"
)

var markerRe = regexp.MustCompile(`\[(\d+)\]`)

// Reconcile 找出文本中有效的 [n] 引用，按编号升序返回对应来源；越界编号保持为普通文本
func Reconcile(text string, articles []models.ArticleRef) []models.Reference {
	cited := make(map[int]bool)
	for _, m := range markerRe.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > len(articles) {
			continue
		}
		cited[n] = true
	}

	ids := make([]int, 0, len(cited))
	for n := range cited {
		ids = append(ids, n)
	}
	sort.Ints(ids)

	refs := make([]models.Reference, 0, len(ids))
	for _, n := range ids {
		a := articles[n-1]
		refs = append(refs, models.Reference{ID: n, URL: a.URL, Title: a.Title})
	}
	return refs
}

// Resolve 将合成条目转换为渲染条目
func Resolve(item models.SynthesisItem) models.ResolvedItem {
	return models.ResolvedItem{
		Text:       item.Text,
		References: Reconcile(item.Text, item.Articles),
		Sources:    item.Articles,
	}
}
