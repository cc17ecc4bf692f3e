package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"feeddigest/digest"
	"feeddigest/models"
	"feeddigest/utils"
)

func TestNextRun(t *testing.T) {
	s := models.ScheduleConfig{DailyAt: "07:00:00", WeeklyDay: "Sunday", WeeklyAt: "08:00:00"}

	// 周日 07:30：先到周报
	at, daily, weekly, err := nextRun(time.Date(2025, 3, 9, 7, 30, 0, 0, time.UTC), s)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 9, 8, 0, 0, 0, time.UTC), at)
	assert.False(t, daily)
	assert.True(t, weekly)

	// 周六中午：下一次是周日 07:00 的日报
	at, daily, weekly, err = nextRun(time.Date(2025, 3, 8, 12, 0, 0, 0, time.UTC), s)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 9, 7, 0, 0, 0, time.UTC), at)
	assert.True(t, daily)
	assert.False(t, weekly)

	// 同一时间点两个任务都执行
	s.WeeklyAt = "07:00:00"
	_, daily, weekly, err = nextRun(time.Date(2025, 3, 8, 12, 0, 0, 0, time.UTC), s)
	require.NoError(t, err)
	assert.True(t, daily)
	assert.True(t, weekly)

	s.DailyAt = "7am"
	_, _, _, err = nextRun(time.Now(), s)
	assert.Error(t, err)
}

func TestPrintReportAligned(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, digest.RunReport{
		RunID:     "run-1",
		Kind:      "daily",
		Key:       "2025-03-10",
		Collected: 5,
		Filter:    digest.FilterStats{Processed: 5, RejectedByRules: 1, RejectedByRelevance: 1, Accepted: 3},
		Synthesis: digest.SynthesisStats{Categories: 2, Items: 2, Outcomes: map[digest.OutcomeKind]int{
			digest.OutcomeCallFailed: 1,
			digest.OutcomeSuccess:    1,
		}},
		Pages:    []string{"output/archive/2025-03-10.html"},
		Duration: 1500 * time.Millisecond,
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 13)
	col := -1
	for _, line := range lines {
		idx := strings.Index(line, "  ")
		require.Positive(t, idx, line)
		// 第二列起始的显示宽度一致
		label := strings.TrimRight(line[:idx], " ")
		value := strings.TrimLeft(line[idx:], " ")
		w := runewidth.StringWidth(line) - runewidth.StringWidth(value)
		if col < 0 {
			col = w
		}
		assert.Equal(t, col, w, "label %q", label)
	}
	assert.Contains(t, buf.String(), "success=1 call_failed=1")
	assert.Contains(t, buf.String(), "1.5s")
}

func TestLoadDataDegrades(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "preferences.json"), []byte(`{"global":{"categories_order":["Tecnología"]}}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prompts.json"), []byte(`{broken`), 0644))

	core, logs := observer.New(zap.InfoLevel)
	data := loadData(models.PathsConfig{DataDir: dir}, zap.New(core).Sugar())
	assert.Empty(t, data.Sources)
	errs := logs.FilterLevelExact(zap.ErrorLevel)
	assert.Equal(t, 1, errs.FilterMessageSnippet("读取提示词失败").Len())
	assert.Equal(t, 1, errs.FilterMessageSnippet("读取源列表失败").Len())
	assert.Zero(t, logs.FilterMessageSnippet("读取偏好失败").Len())
	require.NotNil(t, data.Prefs)
	assert.Equal(t, []string{"Tecnología"}, data.Prefs.CategoriesOrder())
	require.NotNil(t, data.Prompts)
	assert.Empty(t, data.Prompts.Synthesis.Default)
}

func TestBuildModelsWithoutConfig(t *testing.T) {
	for _, k := range []string{"FEEDDIGEST_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY", "ANTHROPIC_API_KEY",
		"FEEDDIGEST_MODEL_CLASSIFICATION", "FEEDDIGEST_MODEL_RELEVANCE", "FEEDDIGEST_MODEL_SYNTHESIS"} {
		t.Setenv(k, "")
	}
	cfg := &models.AppConfig{}
	cfg.Models.Synthesis = models.ModelConfig{Provider: models.ProviderOpenAI, Model: "gpt-4o-mini", APIKey: "k"}

	m := buildModels(t.Context(), cfg, zap.NewNop().Sugar())
	assert.Nil(t, m.Classification)
	assert.Nil(t, m.Relevance)
	assert.NotNil(t, m.Synthesis)
}

func TestCacheClearAndHistory(t *testing.T) {
	store, err := utils.OpenStore(filepath.Join(t.TempDir(), "feeddigest.db"))
	require.NoError(t, err)
	defer store.Close()
	ctx := t.Context()

	var buf bytes.Buffer
	require.NoError(t, listHistory(ctx, store, &buf))
	assert.Equal(t, "没有历史快照\n", buf.String())

	require.NoError(t, store.RememberCategory(ctx, "https://example.org/a", "Tecnología"))
	require.NoError(t, store.RememberCategory(ctx, "https://example.org/b", "Deportes"))
	buf.Reset()
	require.NoError(t, clearClassifyCache(ctx, store, &buf, zap.NewNop().Sugar()))
	assert.Equal(t, "已清除 2 条分类缓存\n", buf.String())
	_, ok, err := store.LookupCategory(ctx, "https://example.org/a")
	require.NoError(t, err)
	assert.False(t, ok)

	a := models.Article{ID: "https://example.org/a", Title: "a", Link: "https://example.org/a", ContentText: "c"}
	require.NoError(t, store.SaveHistory(ctx, "2025-03-09", "run-1", []models.Article{a}))
	require.NoError(t, store.SaveHistory(ctx, "2025-03-10", "run-2", []models.Article{a}))
	buf.Reset()
	require.NoError(t, listHistory(ctx, store, &buf))
	assert.Equal(t, "2025-03-10\n2025-03-09\n", buf.String())
}
