package models

import "time"

// Article 采集到的文章
type Article struct {
	// 文章链接，同一次运行内唯一
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Published   time.Time `json:"published_date"`
	ContentRaw  string    `json:"content_raw,omitempty"`
	ContentText string    `json:"content_text"`
	SourceName  string    `json:"source_name"`
	// 来源默认类别
	DefaultCategory  string   `json:"default_category,omitempty"`
	SourceKeywords   []string `json:"source_keywords,omitempty"`
	SourceBlacklist  []string `json:"source_blacklist,omitempty"`
	AssignedCategory string   `json:"assigned_category,omitempty"`
}

// Ref 转换为合成阶段使用的引用（id 从 1 开始）
func (a Article) Ref(index int) ArticleRef {
	return ArticleRef{ID: index, URL: a.Link, Title: a.Title}
}

// CategoryBuckets 按类别分组的文章，保持插入顺序
type CategoryBuckets struct {
	order []string
	items map[string][]Article
}

func NewCategoryBuckets() *CategoryBuckets {
	return &CategoryBuckets{items: make(map[string][]Article)}
}

// Add 追加文章，首次出现的类别按顺序登记
func (b *CategoryBuckets) Add(category string, a Article) {
	if _, ok := b.items[category]; !ok {
		b.order = append(b.order, category)
	}
	b.items[category] = append(b.items[category], a)
}

// Len 类别当前数量
func (b *CategoryBuckets) Len(category string) int {
	return len(b.items[category])
}

// Get 返回类别下的文章
func (b *CategoryBuckets) Get(category string) []Article {
	return b.items[category]
}

// Categories 非空类别，按插入顺序
func (b *CategoryBuckets) Categories() []string {
	out := make([]string, 0, len(b.order))
	for _, c := range b.order {
		if len(b.items[c]) > 0 {
			out = append(out, c)
		}
	}
	return out
}

// Ordered 按给定顺序排列类别，未列出的类别按插入顺序追加在后
func (b *CategoryBuckets) Ordered(preferred []string) []string {
	seen := make(map[string]bool, len(b.order))
	out := make([]string, 0, len(b.order))
	for _, c := range preferred {
		if !seen[c] && len(b.items[c]) > 0 {
			seen[c] = true
			out = append(out, c)
		}
	}
	for _, c := range b.Categories() {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// All 全部文章（按类别顺序平铺）
func (b *CategoryBuckets) All() []Article {
	var out []Article
	for _, c := range b.Categories() {
		out = append(out, b.items[c]...)
	}
	return out
}

// Total 文章总数
func (b *CategoryBuckets) Total() int {
	n := 0
	for _, v := range b.items {
		n += len(v)
	}
	return n
}

// ArticleRef 合成条目中的来源文章
type ArticleRef struct {
	ID    int    `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

// SynthesisItem 合成结果条目；Articles 为该类别的完整来源列表
type SynthesisItem struct {
	Text     string       `json:"text"`
	Articles []ArticleRef `json:"articles"`
}

// Reference 文本中实际引用的来源
type Reference struct {
	ID    int    `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

// ResolvedItem 交给渲染层的条目
type ResolvedItem struct {
	Text       string       `json:"text"`
	References []Reference  `json:"references"`
	Sources    []ArticleRef `json:"sources"`
}

// Section 一个类别的版块
type Section struct {
	Category string         `json:"category"`
	Items    []ResolvedItem `json:"items"`
}

// Edition 一期摘要（日报或周报）
type Edition struct {
	// 日报为 YYYY-MM-DD，周报为 YYYY-Www
	Key         string    `json:"key"`
	Title       string    `json:"title"`
	GeneratedAt time.Time `json:"generated_at"`
	Sections    []Section `json:"sections"`
}

// Empty 是否没有任何内容
func (e Edition) Empty() bool {
	for _, s := range e.Sections {
		if len(s.Items) > 0 {
			return false
		}
	}
	return true
}

// FeedbackEntry 读者反馈
type FeedbackEntry struct {
	ID        int64     `json:"id"`
	Section   string    `json:"section"`
	Rating    string    `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
}
