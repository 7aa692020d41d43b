package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySaveAndSeen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()

	seen, err := m.SeenSource(ctx, "https://example.com/a")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, m.Save(ctx, ContentLog{
		SourceURL: "https://example.com/a",
		Headline:  "first story",
	}))

	seen, err = m.SeenSource(ctx, "https://example.com/a")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestMemoryDuplicateSource(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Save(ctx, ContentLog{SourceURL: "https://example.com/a"}))
	err := m.Save(ctx, ContentLog{SourceURL: "https://example.com/a"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestMemoryEmptySourceNeverDuplicates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Save(ctx, ContentLog{Headline: "no url"}))
	require.NoError(t, m.Save(ctx, ContentLog{Headline: "also no url"}))

	logs, err := m.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}

func TestMemoryRecentOrderAndLimit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, m.Save(ctx, ContentLog{
			SourceURL: "https://example.com/" + string(rune('a'+i)),
			Headline:  "story",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	logs, err := m.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, "https://example.com/e", logs[0].SourceURL, "newest first")
	assert.True(t, logs[0].CreatedAt.After(logs[1].CreatedAt))
	assert.True(t, logs[1].CreatedAt.After(logs[2].CreatedAt))
}
