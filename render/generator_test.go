package render

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"feeddigest/models"
)

func newTestGenerator(t *testing.T, templatesDir string) *Generator {
	t.Helper()
	out := t.TempDir()
	g, err := NewGenerator(out, filepath.Join(out, "archive"), templatesDir, zap.NewNop().Sugar())
	require.NoError(t, err)
	g.Now = func() time.Time { return time.Date(2025, 3, 10, 7, 30, 0, 0, time.UTC) }
	return g
}

func sampleEdition(key, title string) models.Edition {
	return models.Edition{
		Key:   key,
		Title: title,
		Sections: []models.Section{
			{Category: "Tecnología", Items: []models.ResolvedItem{{
				Text:       "Nuevo chip [1].",
				References: []models.Reference{{ID: 1, URL: "https://news.example/chip", Title: "Chip"}},
				Sources:    []models.ArticleRef{{ID: 1, URL: "https://news.example/chip", Title: "Chip"}},
			}}},
			{Category: "Vacía"},
		},
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestPublishDaily(t *testing.T) {
	g := newTestGenerator(t, "")

	path, err := g.PublishDaily(sampleEdition("2025-03-10", "Resumen diario"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(g.ArchiveDir, "2025-03-10.html"), path)

	archived := readFile(t, path)
	assert.Contains(t, archived, "<title>FeedDigest - 2025-03-10</title>")
	assert.Contains(t, archived, "<h2>Tecnología</h2>")
	assert.NotContains(t, archived, "Vacía")
	assert.Contains(t, archived, `class="inline-ref-arrow-only"`)
	assert.Contains(t, archived, `<li>[1] <a href="https://news.example/chip">Chip</a></li>`)
	assert.Contains(t, archived, `data-section="Tecnología"`)
	assert.Contains(t, archived, `href="../archive/2025-03-09.html"`)
	assert.Contains(t, archived, "Generado el 2025-03-10 07:30:00 UTC · © 2025 FeedDigest")

	index := readFile(t, filepath.Join(g.OutputDir, IndexFile))
	assert.Contains(t, index, `href="archive/2025-03-09.html"`)
	assert.Contains(t, index, `href="current_weekly_summary.html"`)
}

func TestPublishDailyListsSourcesWithoutReferences(t *testing.T) {
	g := newTestGenerator(t, "")
	sources := []models.ArticleRef{
		{ID: 1, URL: "https://news.example/chip", Title: "Chip"},
		{ID: 2, URL: "https://news.example/go", Title: "Go 1.24"},
	}
	e := models.Edition{Key: "2025-03-10", Title: "Resumen diario", Sections: []models.Section{
		{Category: "Tecnología", Items: []models.ResolvedItem{
			{Text: "Chip. Resumen no disponible.", Sources: sources},
			{Text: "Go [2].", References: []models.Reference{{ID: 2, URL: "https://news.example/go", Title: "Go 1.24"}}, Sources: sources},
		}},
	}}

	path, err := g.PublishDaily(e)
	require.NoError(t, err)
	page := readFile(t, path)
	assert.Equal(t, 1, strings.Count(page, `<details class="sources">`))
	assert.Contains(t, page, "<summary>Fuentes (2)</summary>")
	assert.Contains(t, page, `<li>[1] <a href="https://news.example/chip">Chip</a></li>`)
	assert.Equal(t, 2, strings.Count(page, `<li>[2] <a href="https://news.example/go">Go 1.24</a></li>`))
}

func TestPublishDailyEmpty(t *testing.T) {
	g := newTestGenerator(t, "")

	path, err := g.PublishDaily(models.Edition{Key: "2025-03-10", Title: "Resumen diario"})
	require.NoError(t, err)
	page := readFile(t, path)
	assert.Contains(t, page, "No hay noticias relevantes para hoy.")
	assert.NotContains(t, page, "<section")
}

func TestPublishWeekly(t *testing.T) {
	g := newTestGenerator(t, "")

	path, err := g.PublishWeekly(sampleEdition("2025-W10", "Resumen semanal"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(g.ArchiveDir, "weekly-2025-W10.html"), path)
	assert.Contains(t, readFile(t, path), "Semana 2025-W10")

	current := filepath.Join(g.OutputDir, CurrentWeeklyFile)
	assert.Equal(t, readFile(t, path), readFile(t, current))
	if target, err := os.Readlink(current); err == nil {
		assert.Equal(t, filepath.Join("archive", "weekly-2025-W10.html"), target)
	}

	// 再次生成时替换旧链接
	_, err = g.PublishWeekly(sampleEdition("2025-W11", "Resumen semanal"))
	require.NoError(t, err)
	assert.Contains(t, readFile(t, current), "Semana 2025-W11")
}

func TestPublishArchiveIndex(t *testing.T) {
	g := newTestGenerator(t, "")

	path, err := g.PublishArchiveIndex()
	require.NoError(t, err)
	assert.Contains(t, readFile(t, path), "Todavía no hay ediciones archivadas.")

	for _, day := range []string{"2025-03-08", "2025-03-10", "2025-03-09"} {
		_, err := g.PublishDaily(sampleEdition(day, "Resumen diario"))
		require.NoError(t, err)
	}
	_, err = g.PublishWeekly(sampleEdition("2025-W10", "Resumen semanal"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(g.ArchiveDir, "notes.txt"), []byte("x"), 0644))

	editions, err := g.editions()
	require.NoError(t, err)
	assert.Equal(t, []editionLink{
		{Label: "2025-W10", URL: "weekly-2025-W10.html", Weekly: true},
		{Label: "2025-03-10", URL: "2025-03-10.html"},
		{Label: "2025-03-09", URL: "2025-03-09.html"},
		{Label: "2025-03-08", URL: "2025-03-08.html"},
	}, editions)

	path, err = g.PublishArchiveIndex()
	require.NoError(t, err)
	page := readFile(t, path)
	assert.Contains(t, page, `<a href="2025-03-10.html">2025-03-10</a>`)
	assert.Contains(t, page, `<a href="weekly-2025-W10.html">Semana 2025-W10</a>`)
	assert.NotContains(t, page, `href="index.html"`)
}

func TestTemplateOverride(t *testing.T) {
	dir := t.TempDir()
	custom := `{{template "head" .}}<p class="custom">{{.Key}}</p>{{template "footer" .}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "daily.html"), []byte(custom), 0644))

	g := newTestGenerator(t, dir)
	path, err := g.PublishDaily(sampleEdition("2025-03-10", "Resumen diario"))
	require.NoError(t, err)

	page := readFile(t, path)
	assert.Contains(t, page, `<p class="custom">2025-03-10</p>`)
	assert.NotContains(t, page, "<h2>")

	weekly, err := g.PublishWeekly(sampleEdition("2025-W10", "Resumen semanal"))
	require.NoError(t, err)
	assert.Contains(t, readFile(t, weekly), "<h2>Tecnología</h2>")
}

func TestTemplateOverrideInvalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "daily.html"), []byte(`{{if}}`), 0644))

	_, err := NewGenerator(t.TempDir(), t.TempDir(), dir, zap.NewNop().Sugar())
	assert.Error(t, err)
}
