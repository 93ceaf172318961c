package source

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/PuerkitoBio/goquery"

	"trend-go/pkg/logger"
	"trend-go/pkg/model"
)

// titleRun matches video titles inside the ytInitialData blob that the
// trending page embeds instead of rendered markup.
var titleRun = regexp.MustCompile(`"title":\{"runs":\[\{"text":"((?:[^"\\]|\\.)*)"\}`)

// YouTubeSource reads titles from the trending feed. It has no categories
// and reports CategoryGeneral.
type YouTubeSource struct {
	url   string
	topN  int
	pages *PageClient
	log   *logger.Logger
}

func NewYouTubeSource(url string, topN int, pages *PageClient) *YouTubeSource {
	if topN <= 0 {
		topN = 10
	}
	return &YouTubeSource{
		url:   url,
		topN:  topN,
		pages: pages,
		log:   logger.Component("youtube_source"),
	}
}

func (s *YouTubeSource) Name() model.Source {
	return model.SourceYouTube
}

func (s *YouTubeSource) Fetch(ctx context.Context, _ string) ([]model.ScrapedItem, error) {
	body, err := s.pages.Get(ctx, s.url)
	if err != nil {
		return nil, err
	}

	titles, err := parseYouTubeTitles(body, s.topN)
	if err != nil {
		return nil, err
	}
	if len(titles) == 0 {
		return nil, fmt.Errorf("no video titles found")
	}

	items := make([]model.ScrapedItem, 0, len(titles))
	for _, title := range titles {
		items = append(items, model.ScrapedItem{Keyword: title, Category: CategoryGeneral})
	}
	s.log.WithField("items", len(items)).Debug("YouTube trending fetched")
	return items, nil
}

func parseYouTubeTitles(body []byte, topN int) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	var titles []string
	doc.Find("#video-title").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if title := cleanKeyword(sel.Text()); title != "" {
			titles = append(titles, title)
		}
		return len(titles) < topN
	})
	if len(titles) > 0 {
		return titles, nil
	}

	seen := make(map[string]bool)
	for _, m := range titleRun.FindAllSubmatch(body, -1) {
		raw, err := strconv.Unquote(`"` + string(m[1]) + `"`)
		if err != nil {
			continue
		}
		title := cleanKeyword(raw)
		if title == "" || seen[title] {
			continue
		}
		seen[title] = true
		titles = append(titles, title)
		if len(titles) == topN {
			break
		}
	}
	return titles, nil
}
