package source

import (
	"context"
	"fmt"

	"github.com/mmcdole/gofeed"

	"trend-go/pkg/logger"
	"trend-go/pkg/model"
)

// GoogleTrendsSource reads the daily trending searches RSS feed.
type GoogleTrendsSource struct {
	url   string
	topN  int
	pages *PageClient
	log   *logger.Logger
}

func NewGoogleTrendsSource(url string, topN int, pages *PageClient) *GoogleTrendsSource {
	if topN <= 0 {
		topN = 10
	}
	return &GoogleTrendsSource{
		url:   url,
		topN:  topN,
		pages: pages,
		log:   logger.Component("google_trends_source"),
	}
}

func (s *GoogleTrendsSource) Name() model.Source {
	return model.SourceGoogleTrends
}

func (s *GoogleTrendsSource) Fetch(ctx context.Context, _ string) ([]model.ScrapedItem, error) {
	body, err := s.pages.Get(ctx, s.url)
	if err != nil {
		return nil, err
	}

	// parsers keep per-parse state, so each fetch gets its own
	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	var items []model.ScrapedItem
	for _, entry := range feed.Items {
		if kw := cleanKeyword(entry.Title); kw != "" {
			items = append(items, model.ScrapedItem{Keyword: kw, Category: CategoryGeneral})
		}
		if len(items) == s.topN {
			break
		}
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("feed has no items")
	}

	s.log.WithField("items", len(items)).Debug("Google Trends feed fetched")
	return items, nil
}
