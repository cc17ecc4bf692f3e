package digest

import (
	"sort"
	"time"

	"feeddigest/models"
)

// HistoryDays 周报回看天数
const HistoryDays = 7

// WeekDates 从 now 开始往前的日期键（今天在前）
func WeekDates(now time.Time) []string {
	dates := make([]string, HistoryDays)
	for i := range dates {
		dates[i] = now.AddDate(0, 0, -i).Format(time.DateOnly)
	}
	return dates
}

// SelectWeekly 按类别分组历史文章，组内按发布时间倒序，超过上限的丢弃
//
// 同一文章出现在多天快照中时只保留第一次出现。limit 为负数表示不限制。
func SelectWeekly(articles []models.Article, limit int) *models.CategoryBuckets {
	seen := make(map[string]bool, len(articles))
	groups := make(map[string][]models.Article)
	var order []string
	for _, a := range articles {
		if a.ID != "" {
			if seen[a.ID] {
				continue
			}
			seen[a.ID] = true
		}
		cat := a.AssignedCategory
		if cat == "" {
			cat = models.DefaultCategory
		}
		if _, ok := groups[cat]; !ok {
			order = append(order, cat)
		}
		groups[cat] = append(groups[cat], a)
	}

	buckets := models.NewCategoryBuckets()
	for _, cat := range order {
		list := groups[cat]
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Published.After(list[j].Published)
		})
		if limit >= 0 && len(list) > limit {
			list = list[:limit]
		}
		for _, a := range list {
			buckets.Add(cat, a)
		}
	}
	return buckets
}
