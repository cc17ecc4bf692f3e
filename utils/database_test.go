package utils

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feeddigest/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "nested", "digest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestClassifyCache(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, ok, err := s.LookupCategory(ctx, "https://x/1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.RememberCategory(ctx, "https://x/1", "Tech"))
	require.NoError(t, s.RememberCategory(ctx, "https://x/1", "Sports"))
	cat, ok, err := s.LookupCategory(ctx, "https://x/1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Sports", cat)

	n, err := s.ClearClassifyCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestHistoryOverwritesPerDate(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	pub := time.Date(2025, 3, 9, 8, 0, 0, 0, time.UTC)

	first := []models.Article{
		{ID: "a", Title: "A", Link: "a", ContentText: "x", Published: pub, AssignedCategory: "Tech"},
		{ID: "b", Title: "B", Link: "b", ContentText: "y", Published: pub, AssignedCategory: "Sports"},
	}
	require.NoError(t, s.SaveHistory(ctx, "2025-03-09", "run-1", first))
	second := []models.Article{{ID: "c", Title: "C", Link: "c", ContentText: "z", Published: pub}}
	require.NoError(t, s.SaveHistory(ctx, "2025-03-09", "run-2", second))
	require.NoError(t, s.SaveHistory(ctx, "2025-03-08", "run-0", first))

	got, err := s.LoadHistory(ctx, []string{"2025-03-09", "2025-03-07", "2025-03-08"})
	require.NoError(t, err)
	want := append(append([]models.Article{}, second...), first...)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}

	dates, err := s.HistoryDates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-03-09", "2025-03-08"}, dates)
}

func TestFeedback(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.AddFeedback(ctx, "Tech", "meh")
	assert.ErrorIs(t, err, ErrInvalidRating)

	e1, err := s.AddFeedback(ctx, "Tech", "up")
	require.NoError(t, err)
	_, err = s.AddFeedback(ctx, "Sports", "down")
	require.NoError(t, err)

	list, err := s.ListFeedback(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Sports", list[0].Section)
	assert.Equal(t, e1.ID, list[1].ID)
	assert.Equal(t, "up", list[1].Rating)
}
