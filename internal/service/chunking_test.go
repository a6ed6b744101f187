package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenlabs/handoff/internal/domain"
)

func TestChunkText_ShortTextSingleChunk(t *testing.T) {
	chunks := chunkText("a short note", DefaultChunkConfig())

	require.Len(t, chunks, 1)
	assert.Equal(t, "a short note", chunks[0])
}

func TestChunkText_EmptyText(t *testing.T) {
	assert.Nil(t, chunkText("", DefaultChunkConfig()))
	assert.Nil(t, chunkText("   \n\t  ", DefaultChunkConfig()))
}

func TestChunkText_LongTextSplitsOnWhitespace(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("word ", 800))
	cfg := DefaultChunkConfig()

	chunks := chunkText(text, cfg)

	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), cfg.MaxChars)
		assert.False(t, strings.HasPrefix(c, " "))
		assert.False(t, strings.HasSuffix(c, " "))
	}
}

func TestChunkText_MaxChunksCap(t *testing.T) {
	text := strings.Repeat("word ", 20000)
	cfg := ChunkConfig{MaxChars: 100, MinChars: 40, Overlap: 20, MaxChunks: 5}

	chunks := chunkText(text, cfg)

	assert.Len(t, chunks, 5)
}

func TestChunkText_OverlapCarriesContext(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("alpha beta gamma delta ", 200))
	cfg := ChunkConfig{MaxChars: 200, MinChars: 80, Overlap: 50, MaxChunks: 0}

	chunks := chunkText(text, cfg)
	require.Greater(t, len(chunks), 1)

	// The tail of chunk N reappears at the head of chunk N+1.
	tail := chunks[0][len(chunks[0])-20:]
	assert.Contains(t, chunks[1], strings.TrimSpace(tail))
}

func TestBuildChunks(t *testing.T) {
	item := &domain.SanitizedItem{
		SourceItemID: "01ITEM",
		OrgID:        "org_a",
		SourceType:   domain.SourceTypeNote,
		Content:      strings.TrimSpace(strings.Repeat("meeting notes ", 300)),
		CreatedAt:    time.Now().UTC(),
	}

	chunks := BuildChunks(item, DefaultChunkConfig())

	require.NotEmpty(t, chunks)
	for i, c := range chunks {
		assert.NotEmpty(t, c.ID)
		assert.Equal(t, "org_a", c.OrgID)
		assert.Equal(t, "01ITEM", c.SourceItemID)
		assert.Equal(t, i, c.ChunkIndex)
		assert.Equal(t, item.CreatedAt, c.CreatedAt)
		assert.Nil(t, c.Embedding)
	}
}
