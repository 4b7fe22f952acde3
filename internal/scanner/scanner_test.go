package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceFeedURL(t *testing.T) {
	t.Parallel()

	search := Source{ID: "s", URLTemplate: "https://news.example.com/rss?q={keyword}&hl=ko"}
	assert.Equal(t, "https://news.example.com/rss?q=%EB%B0%98%EB%8F%84%EC%B2%B4+AI&hl=ko", search.FeedURL("반도체 AI"))

	static := Source{ID: "g", URLTemplate: "https://www.example.com/feed"}
	assert.Equal(t, "https://www.example.com/feed", static.FeedURL("anything"))
}

func TestRegistryKeepsOrderAndReplaces(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(
		Source{ID: "a", Name: "A"},
		Source{ID: "b", Name: "B"},
	)
	reg.Register(Source{ID: "a", Name: "A2"})
	reg.Register(Source{ID: "c", Name: "C"})

	assert.Equal(t, []string{"A2", "B", "C"}, reg.Names())

	all := reg.All()
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].ID)
	all[0].Name = "mutated"
	assert.Equal(t, "A2", reg.All()[0].Name)
}

func TestDefaultSourcesHaveUniqueIDs(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for _, src := range DefaultSources() {
		assert.False(t, seen[src.ID], "duplicate id %s", src.ID)
		seen[src.ID] = true
		assert.NotEmpty(t, src.Name)
	}
	assert.Len(t, seen, 7)
}
