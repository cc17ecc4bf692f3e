package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"go.uber.org/zap"

	"feeddigest/digest"
	"feeddigest/models"
	"feeddigest/render"
	"feeddigest/utils"
)

// dataSet 一次运行使用的数据配置
type dataSet struct {
	Sources []models.Source
	Prefs   *models.Preferences
	Prompts *models.Prompts
}

// loadData 读取源、偏好与提示词；读取失败时使用空配置继续
func loadData(paths models.PathsConfig, log *zap.SugaredLogger) dataSet {
	sources, err := models.LoadSources(paths.GetSourcesFile())
	if err != nil {
		log.Errorf("[配置] 读取源列表失败: %v", err)
	}
	prefs, err := models.LoadPreferences(paths.GetPreferencesFile())
	if err != nil {
		log.Errorf("[配置] 读取偏好失败，使用默认值: %v", err)
	}
	prompts, err := models.LoadPrompts(paths.GetPromptsFile())
	if err != nil {
		log.Errorf("[配置] 读取提示词失败，将使用回退逻辑: %v", err)
	}
	log.Infof("[配置] %d 个源，%d 个类别", len(sources), len(prefs.CategoriesOrder()))
	return dataSet{Sources: sources, Prefs: prefs, Prompts: prompts}
}

// buildModels 按角色创建模型，未配置或创建失败的角色为 nil
func buildModels(ctx context.Context, cfg *models.AppConfig, log *zap.SugaredLogger) digest.Models {
	build := func(role string) utils.TextModel {
		mc := cfg.Models.ForRole(role)
		m, err := utils.NewTextModel(ctx, mc)
		if err != nil {
			if errors.Is(err, utils.ErrModelNotConfigured) {
				log.Warnf("[模型] %s 未配置，使用回退逻辑", role)
			} else {
				log.Errorf("[模型] 创建 %s 模型失败: %v", role, err)
			}
			return nil
		}
		log.Infof("[模型] %s: %s (%s)", role, mc.Model, mc.GetProvider())
		return m
	}
	return digest.Models{
		Classification: build(models.RoleClassification),
		Relevance:      build(models.RoleRelevance),
		Synthesis:      build(models.RoleSynthesis),
	}
}

// app 命令共用的依赖
type app struct {
	cfg       *models.AppConfig
	log       *zap.SugaredLogger
	store     *utils.Store
	generator *render.Generator
	models    digest.Models
}

func openApp(ctx context.Context, cfg *models.AppConfig, log *zap.SugaredLogger) (*app, error) {
	store, err := utils.OpenStore(cfg.Paths.GetDatabaseFile())
	if err != nil {
		return nil, err
	}
	gen, err := render.NewGenerator(cfg.Paths.GetOutputDir(), cfg.Paths.GetArchiveDir(), cfg.Paths.TemplatesDir, log)
	if err != nil {
		store.Close()
		return nil, err
	}
	return &app{
		cfg:       cfg,
		log:       log,
		store:     store,
		generator: gen,
		models:    buildModels(ctx, cfg, log),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warnf("[数据库] 关闭失败: %v", err)
	}
}

func (a *app) pipeline(data dataSet) *digest.Pipeline {
	var cache digest.ClassifyCache
	if a.cfg.Cache.Classification {
		cache = a.store
	}
	return digest.NewPipeline(data.Prefs, data.Prompts, a.models, cache, a.log)
}

func (a *app) daily(ctx context.Context, data dataSet, day time.Time) (digest.RunReport, error) {
	run := &digest.DailyRun{
		Sources:   data.Sources,
		Pipeline:  a.pipeline(data),
		Collector: utils.NewCollector(a.log),
		History:   a.store,
		Publisher: a.generator,
		Log:       a.log,
	}
	return run.Run(ctx, day)
}

func (a *app) weekly(ctx context.Context, data dataSet, now time.Time) (digest.RunReport, error) {
	run := &digest.WeeklyRun{
		Pipeline:  a.pipeline(data),
		History:   a.store,
		Publisher: a.generator,
		Log:       a.log,
	}
	return run.Run(ctx, now)
}

// printReport 输出对齐的运行摘要
func printReport(w io.Writer, r digest.RunReport) {
	rows := [][2]string{
		{"运行 ID", r.RunID},
		{"类型", r.Kind},
		{"期号", r.Key},
		{"采集文章", strconv.Itoa(r.Collected)},
		{"规则过滤", strconv.Itoa(r.Filter.RejectedByRules)},
		{"不相关", strconv.Itoa(r.Filter.RejectedByRelevance)},
		{"超额丢弃", strconv.Itoa(r.Filter.DroppedByCap)},
		{"保留文章", strconv.Itoa(r.Filter.Accepted)},
		{"类别", strconv.Itoa(r.Synthesis.Categories)},
		{"条目", strconv.Itoa(r.Synthesis.Items)},
	}
	if len(r.Synthesis.Outcomes) > 0 {
		kinds := make([]digest.OutcomeKind, 0, len(r.Synthesis.Outcomes))
		for k := range r.Synthesis.Outcomes {
			kinds = append(kinds, k)
		}
		sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
		parts := make([]string, len(kinds))
		for i, k := range kinds {
			parts[i] = fmt.Sprintf("%s=%d", k, r.Synthesis.Outcomes[k])
		}
		rows = append(rows, [2]string{"合成结果", strings.Join(parts, " ")})
	}
	for _, p := range r.Pages {
		rows = append(rows, [2]string{"页面", p})
	}
	rows = append(rows, [2]string{"耗时", r.Duration.Round(time.Millisecond).String()})

	width := 0
	for _, row := range rows {
		width = max(width, runewidth.StringWidth(row[0]))
	}
	for _, row := range rows {
		fmt.Fprintf(w, "%s  %s\n", runewidth.FillRight(row[0], width), row[1])
	}
}
