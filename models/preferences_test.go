package models

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const preferencesJSON = `{
  "global": {
    "blacklist_keywords_global": ["sponsored"],
    "min_article_length_chars": 0,
    "max_articles_per_category": 4,
    "categories_order": ["Tech", "Sports"]
  },
  "categories": {
    "Tech": {"max_articles_per_category": 2, "topics": ["rust", "go"]},
    "Sports": {"teams_of_interest": ["Real Madrid"], "min_score": 3.5, "live": true}
  }
}`

func TestLoadPreferences(t *testing.T) {
	prefs, err := LoadPreferences(createTempFile(t, "preferences.json", preferencesJSON))
	require.NoError(t, err)

	assert.Equal(t, []string{"Tech", "Sports"}, prefs.CategoriesOrder())
	assert.Equal(t, 0, prefs.Global.GetMinArticleLength())
	assert.Equal(t, 2, prefs.CategoryMax("Tech"))
	assert.Equal(t, 4, prefs.CategoryMax("Sports"))
	assert.Equal(t, 4, prefs.CategoryMax("Unknown"))
	assert.Equal(t, 150, prefs.Global.GetClassificationChars())
	assert.Equal(t, 300, prefs.Global.GetRelevanceChars())
	assert.Equal(t, 20, prefs.Global.GetMaxArticlesPerCategoryWeekly())

	values := prefs.Categories["Sports"].Values()
	assert.Equal(t, "Real Madrid", values["teams_of_interest"])
	assert.Equal(t, "3.5", values["min_score"])
	assert.Equal(t, "true", values["live"])
	assert.Equal(t, "rust, go", prefs.Categories["Tech"].Values()["topics"])
}

func TestLoadPreferences_FailureDegradesToEmpty(t *testing.T) {
	prefs, err := LoadPreferences(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	require.NotNil(t, prefs)

	assert.Equal(t, []string{DefaultCategory}, prefs.CategoriesOrder())
	assert.Equal(t, DefaultMinArticleLength, prefs.Global.GetMinArticleLength())
	assert.Equal(t, DefaultMaxArticlesPerCategory, prefs.CategoryMax("Any"))

	prefs, err = LoadPreferences(createTempFile(t, "broken.json", "{not json"))
	require.Error(t, err)
	assert.Empty(t, prefs.Categories)
}

func TestCategoriesOrderFallsBackToSortedKeys(t *testing.T) {
	prefs := &Preferences{Categories: map[string]CategoryPreferences{"b": {}, "a": {}}}
	assert.Equal(t, []string{"a", "b"}, prefs.CategoriesOrder())
}

func TestLoadPromptsAndSources(t *testing.T) {
	prompts, err := LoadPrompts(createTempFile(t, "prompts.json", `{
	  "relevance": {"base": "b", "criteria_templates": {"General": "g {x}"}},
	  "synthesis": {"default": "s", "article_template": "a"}
	}`))
	require.NoError(t, err)
	tmpl, ok := prompts.Relevance.CriteriaTemplate("Tech")
	assert.True(t, ok)
	assert.Equal(t, "g {x}", tmpl)
	assert.Equal(t, DefaultNoSpecificCriteria, prompts.Relevance.GetNoSpecificCriteria())
	assert.Empty(t, prompts.Classification.Default)

	sources, err := LoadSources(createTempFile(t, "sources.json", `{"sources":[{"url":"https://example.org/rss","keywords":["go"]}]}`))
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "https://example.org/rss", sources[0].GetName())
	assert.Equal(t, 200, sources[0].GetScrapeMinChars())

	sources, err = LoadSources(filepath.Join(t.TempDir(), "none.json"))
	assert.Error(t, err)
	assert.Empty(t, sources)
}

func TestCategoryBucketsOrdering(t *testing.T) {
	b := NewCategoryBuckets()
	b.Add("Sports", Article{ID: "1"})
	b.Add("Tech", Article{ID: "2"})
	b.Add("Sports", Article{ID: "3"})
	b.Add("Misc", Article{ID: "4"})

	assert.Equal(t, []string{"Sports", "Tech", "Misc"}, b.Categories())
	assert.Equal(t, []string{"Tech", "Sports", "Misc"}, b.Ordered([]string{"Tech", "Absent", "Sports"}))
	assert.Equal(t, 2, b.Len("Sports"))
	assert.Equal(t, 4, b.Total())
	assert.Equal(t, "3", b.All()[1].ID)
}

func TestZeroLimitsAreHonoured(t *testing.T) {
	prefs, err := LoadPreferences(createTempFile(t, "preferences.json", `{
	  "global": {"max_articles_per_category": 0, "max_articles_per_category_weekly": 0},
	  "categories": {"Tech": {"max_articles_per_category": 0}, "Sports": {"max_articles_per_category": -1}}
	}`))
	require.NoError(t, err)

	assert.Equal(t, 0, prefs.CategoryMax("Tech"))
	assert.Equal(t, 0, prefs.CategoryMax("Sports"))
	assert.Equal(t, 0, prefs.Global.GetMaxArticlesPerCategoryWeekly())

	n := -5
	g := GlobalPreferences{MaxArticlesPerCategory: &n}
	assert.Equal(t, DefaultMaxArticlesPerCategory, g.GetMaxArticlesPerCategory())
}

func TestCriteriaTemplateEmptyEntry(t *testing.T) {
	r := RelevancePrompts{CriteriaTemplates: map[string]string{"General": "GENERAL", "Tech": ""}}

	// 显式空模板不回退到 General
	tmpl, ok := r.CriteriaTemplate("Tech")
	assert.False(t, ok)
	assert.Empty(t, tmpl)

	tmpl, ok = r.CriteriaTemplate("Sports")
	assert.True(t, ok)
	assert.Equal(t, "GENERAL", tmpl)
}
