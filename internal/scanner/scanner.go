package scanner

import (
	"net/url"
	"strings"
)

// KeywordPlaceholder is replaced with the query-escaped keyword in URL templates.
const KeywordPlaceholder = "{keyword}"

// Source describes one named syndication feed. Search feeds embed the keyword
// in their URL; general feeds use a static URL and rely on item filtering.
type Source struct {
	ID          string
	Name        string
	URLTemplate string
}

// FeedURL returns the feed location for keyword.
func (s Source) FeedURL(keyword string) string {
	return strings.ReplaceAll(s.URLTemplate, KeywordPlaceholder, url.QueryEscape(keyword))
}

// Registry keeps sources in registration order; retrieval order drives ranking
// tie-breaks, so it must be stable.
type Registry struct {
	sources []Source
	index   map[string]int
}

// NewRegistry builds a registry from the given sources.
func NewRegistry(sources ...Source) *Registry {
	r := &Registry{index: map[string]int{}}
	for _, src := range sources {
		r.Register(src)
	}
	return r
}

// Register adds or replaces a source by ID.
func (r *Registry) Register(src Source) {
	if r.index == nil {
		r.index = map[string]int{}
	}
	if i, ok := r.index[src.ID]; ok {
		r.sources[i] = src
		return
	}
	r.index[src.ID] = len(r.sources)
	r.sources = append(r.sources, src)
}

// All returns a copy of the registered sources.
func (r *Registry) All() []Source {
	out := make([]Source, len(r.sources))
	copy(out, r.sources)
	return out
}

// Names returns display names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.sources))
	for _, src := range r.sources {
		names = append(names, src.Name)
	}
	return names
}

// DefaultSources is the built-in Korean news catalogue.
func DefaultSources() []Source {
	return []Source{
		{ID: "google-news", Name: "Google 뉴스", URLTemplate: "https://news.google.com/rss/search?q={keyword}&hl=ko&gl=KR&ceid=KR%3Ako"},
		{ID: "bing-news", Name: "Bing 뉴스", URLTemplate: "https://www.bing.com/news/search?q={keyword}&format=rss"},
		{ID: "hankyung-all", Name: "한국경제", URLTemplate: "https://www.hankyung.com/feed"},
		{ID: "mk-all", Name: "매일경제", URLTemplate: "https://www.mk.co.kr/rss/40300001/"},
		{ID: "yonhap-all", Name: "연합뉴스", URLTemplate: "https://www.yna.co.kr/rss/all.xml"},
		{ID: "chosun-all", Name: "조선일보", URLTemplate: "https://rssplus.chosun.com/web_service/rss/rss.xml"},
		{ID: "sbs-news", Name: "SBS 뉴스", URLTemplate: "https://news.sbs.co.kr/news/rss.do?plink=RSSREADER"},
	}
}
