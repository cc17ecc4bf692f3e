package utils

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"feeddigest/models"
)

const (
	userAgent = "feeddigest/1.0 (+https://github.com/feeddigest)"
	// 采集窗口
	defaultWindow = 24 * time.Hour
)

// Collector 从 RSS/Atom 源采集文章
type Collector struct {
	parser *gofeed.Parser
	log    *zap.SugaredLogger
	// 可替换的时钟
	Now    func() time.Time
	Window time.Duration
	// 原文抓取的请求间隔
	ScrapeDelay time.Duration
}

// NewCollector 创建采集器
func NewCollector(log *zap.SugaredLogger) *Collector {
	fp := gofeed.NewParser()
	fp.UserAgent = userAgent
	return &Collector{
		parser:      fp,
		log:         log,
		Now:         time.Now,
		Window:      defaultWindow,
		ScrapeDelay: 500 * time.Millisecond,
	}
}

// CollectAll 依次采集所有源；单个源失败只记录日志
func (c *Collector) CollectAll(ctx context.Context, sources []models.Source) []models.Article {
	seen := make(map[string]bool)
	var all []models.Article
	for _, src := range sources {
		if ctx.Err() != nil {
			break
		}
		if src.URL == "" {
			c.log.Warnf("[采集跳过] 源 [%s] 未配置 URL", src.GetName())
			continue
		}
		articles, err := c.FetchSource(ctx, src)
		if err != nil {
			c.log.Errorf("[抓取失败] 源: %s | 地址: %s | 详情: %v", src.GetName(), src.URL, err)
			continue
		}
		added := 0
		for _, a := range articles {
			if seen[a.ID] {
				continue
			}
			seen[a.ID] = true
			all = append(all, a)
			added++
		}
		c.log.Infof("[抓取成功] 源: %s | 新文章: %d", src.GetName(), added)
	}
	return all
}

// FetchSource 抓取并解析单个源
func (c *Collector) FetchSource(ctx context.Context, src models.Source) ([]models.Article, error) {
	feed, err := c.parser.ParseURLWithContext(src.URL, ctx)
	if err != nil {
		errStr := err.Error()
		if strings.HasSuffix(errStr, "EOF") {
			errStr += " (服务器拒绝访问请求)"
		}
		return nil, fmt.Errorf("解析订阅失败: %s", errStr)
	}
	articles := c.articlesFromFeed(feed, src)
	if src.ScrapeSelector != "" {
		c.enrich(ctx, src, articles)
	}
	return articles, nil
}

// articlesFromFeed 将条目转换为文章，丢弃窗口外、无链接或无正文的条目
func (c *Collector) articlesFromFeed(feed *gofeed.Feed, src models.Source) []models.Article {
	now := c.Now().UTC()
	cutoff := now.Add(-c.Window)
	articles := make([]models.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		link := strings.TrimSpace(item.Link)
		if link == "" {
			c.log.Debugf("[条目丢弃] 源 [%s] 条目 [%s] 缺少链接", src.GetName(), item.Title)
			continue
		}

		var published time.Time
		switch {
		case item.PublishedParsed != nil:
			published = item.PublishedParsed.UTC()
		case item.UpdatedParsed != nil:
			published = item.UpdatedParsed.UTC()
		default:
			c.log.Warnf("[时间缺失] 条目 [%s] 无发布时间，使用当前时间", link)
			published = now
		}
		if published.Before(cutoff) {
			continue
		}

		raw := item.Content
		if strings.TrimSpace(raw) == "" {
			raw = item.Description
		}
		text := StripHTML(raw)
		if text == "" {
			c.log.Debugf("[条目丢弃] 条目 [%s] 无正文", link)
			continue
		}

		articles = append(articles, models.Article{
			ID:              link,
			Title:           strings.TrimSpace(item.Title),
			Link:            link,
			Published:       published,
			ContentRaw:      raw,
			ContentText:     text,
			SourceName:      src.GetName(),
			DefaultCategory: src.DefaultCategory,
			SourceKeywords:  src.Keywords,
			SourceBlacklist: src.Blacklist,
		})
	}
	return articles
}

// enrich 正文过短时按选择器抓取原文
func (c *Collector) enrich(ctx context.Context, src models.Source, articles []models.Article) {
	col := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.StdlibContext(ctx),
	)
	col.SetRequestTimeout(15 * time.Second)
	if err := col.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: 1, Delay: c.ScrapeDelay}); err != nil {
		c.log.Warnf("[原文抓取] 限速规则设置失败: %v", err)
	}

	var parts []string
	col.OnHTML(src.ScrapeSelector, func(e *colly.HTMLElement) {
		html, err := e.DOM.Html()
		if err != nil {
			return
		}
		if t := StripHTML(html); t != "" {
			parts = append(parts, t)
		}
	})

	for i := range articles {
		if CharCount(articles[i].ContentText) >= src.GetScrapeMinChars() {
			continue
		}
		parts = parts[:0]
		if err := col.Visit(articles[i].Link); err != nil {
			c.log.Warnf("[原文抓取失败] %s: %v", articles[i].Link, err)
			continue
		}
		scraped := strings.Join(parts, " ")
		if CharCount(scraped) > CharCount(articles[i].ContentText) {
			c.log.Debugf("[原文抓取] %s: %d -> %d 字符", articles[i].Link, CharCount(articles[i].ContentText), CharCount(scraped))
			articles[i].ContentText = scraped
		}
	}
}
