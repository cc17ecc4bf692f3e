package digest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"feeddigest/models"
	"feeddigest/utils"
)

// 期刊标题
const (
	DailyTitle  = "Resumen diario"
	WeeklyTitle = "Resumen semanal"
)

// Collector 文章来源
type Collector interface {
	CollectAll(ctx context.Context, sources []models.Source) []models.Article
}

// HistoryStore 每日快照
type HistoryStore interface {
	SaveHistory(ctx context.Context, runDate, runID string, articles []models.Article) error
	LoadHistory(ctx context.Context, dates []string) ([]models.Article, error)
}

// Publisher 页面输出
type Publisher interface {
	PublishDaily(e models.Edition) (string, error)
	PublishWeekly(e models.Edition) (string, error)
	PublishArchiveIndex() (string, error)
}

// RunReport 一次运行的摘要
type RunReport struct {
	RunID     string
	Kind      string
	Key       string
	Collected int
	Filter    FilterStats
	Synthesis SynthesisStats
	Pages     []string
	Duration  time.Duration
}

// DailyRun 每日摘要
type DailyRun struct {
	Sources   []models.Source
	Pipeline  *Pipeline
	Collector Collector
	// 可为 nil
	History   HistoryStore
	Publisher Publisher
	Log       *zap.SugaredLogger
}

// Run 采集 → 筛选 → 保存历史 → 合成 → 输出页面；没有文章时仍输出空页面
func (r *DailyRun) Run(ctx context.Context, day time.Time) (RunReport, error) {
	start := time.Now()
	report := RunReport{RunID: uuid.NewString(), Kind: "daily", Key: day.Format(time.DateOnly)}
	log := r.Log.With("run_id", report.RunID)

	log.Infof("[阶段 1/4] 采集文章，%d 个源", len(r.Sources))
	articles := r.Collector.CollectAll(ctx, r.Sources)
	report.Collected = len(articles)

	buckets := models.NewCategoryBuckets()
	if len(articles) == 0 {
		log.Warnf("[阶段 1/4] 没有采集到文章，将生成空页面")
	} else {
		log.Infof("[阶段 2/4] 分类与筛选 %d 篇文章", len(articles))
		buckets, report.Filter = r.Pipeline.ClassifyAndFilter(ctx, articles)

		if r.History != nil && buckets.Total() > 0 {
			if err := r.History.SaveHistory(ctx, report.Key, report.RunID, buckets.All()); err != nil {
				log.Errorf("[历史] 保存 %s 失败: %v", report.Key, err)
			} else {
				log.Infof("[历史] 已保存 %s，%d 篇", report.Key, buckets.Total())
			}
		}
	}

	log.Infof("[阶段 3/4] 合成 %d 个类别", len(buckets.Categories()))
	edition, synth := r.Pipeline.BuildEdition(ctx, report.Key, DailyTitle, buckets)
	report.Synthesis = synth

	log.Infof("[阶段 4/4] 生成页面")
	page, err := r.Publisher.PublishDaily(edition)
	if err != nil {
		return report, fmt.Errorf("生成日报页面失败: %w", err)
	}
	report.Pages = append(report.Pages, page)
	index, err := r.Publisher.PublishArchiveIndex()
	if err != nil {
		return report, fmt.Errorf("生成归档索引失败: %w", err)
	}
	report.Pages = append(report.Pages, index)

	report.Duration = time.Since(start)
	log.Infof("[完成] 日报 %s，%d 个类别，%d 条，耗时 %s", report.Key, synth.Categories, synth.Items, report.Duration.Round(time.Millisecond))
	return report, nil
}

// WeeklyRun 每周汇总
type WeeklyRun struct {
	Pipeline  *Pipeline
	History   HistoryStore
	Publisher Publisher
	Log       *zap.SugaredLogger
}

// Run 读取近 7 天历史并生成周报；没有历史时不输出页面
func (r *WeeklyRun) Run(ctx context.Context, now time.Time) (RunReport, error) {
	start := time.Now()
	report := RunReport{RunID: uuid.NewString(), Kind: "weekly", Key: utils.WeekIdentifier(now)}
	log := r.Log.With("run_id", report.RunID)

	dates := WeekDates(now)
	articles, err := r.History.LoadHistory(ctx, dates)
	if err != nil {
		return report, fmt.Errorf("读取历史失败: %w", err)
	}
	report.Collected = len(articles)
	if len(articles) == 0 {
		log.Infof("[周报] %s 至 %s 没有历史文章，跳过", dates[len(dates)-1], dates[0])
		return report, nil
	}

	limit := r.Pipeline.Prefs.Global.GetMaxArticlesPerCategoryWeekly()
	buckets := SelectWeekly(articles, limit)
	report.Filter = FilterStats{Processed: len(articles), Accepted: buckets.Total()}
	log.Infof("[周报] %d 篇历史文章，选出 %d 篇", len(articles), buckets.Total())
	if buckets.Total() == 0 {
		log.Infof("[周报] 周报上限为 0，跳过")
		return report, nil
	}

	edition, synth := r.Pipeline.BuildEdition(ctx, report.Key, WeeklyTitle, buckets)
	report.Synthesis = synth

	page, err := r.Publisher.PublishWeekly(edition)
	if err != nil {
		return report, fmt.Errorf("生成周报页面失败: %w", err)
	}
	report.Pages = append(report.Pages, page)
	index, err := r.Publisher.PublishArchiveIndex()
	if err != nil {
		return report, fmt.Errorf("生成归档索引失败: %w", err)
	}
	report.Pages = append(report.Pages, index)

	report.Duration = time.Since(start)
	log.Infof("[完成] 周报 %s，%d 个类别，耗时 %s", report.Key, synth.Categories, report.Duration.Round(time.Millisecond))
	return report, nil
}
