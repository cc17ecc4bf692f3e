package digest

import "feeddigest/models"

// Capper 限制每个类别的文章数，先到先得，超出部分直接丢弃
type Capper struct {
	Limit   func(category string) int
	buckets *models.CategoryBuckets
}

func NewCapper(limit func(category string) int) *Capper {
	return &Capper{Limit: limit, buckets: models.NewCategoryBuckets()}
}

// Offer 尝试放入文章，类别已满时返回 false
func (c *Capper) Offer(category string, a models.Article) bool {
	if c.buckets.Len(category) >= c.Limit(category) {
		return false
	}
	c.buckets.Add(category, a)
	return true
}

// Buckets 当前分组结果
func (c *Capper) Buckets() *models.CategoryBuckets {
	return c.buckets
}
