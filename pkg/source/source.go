// Package source holds the scraping collaborators and the aggregator that
// merges their output per category.
package source

import (
	"context"
	"strings"

	"trend-go/pkg/model"
	"trend-go/pkg/utils"
)

// CategoryGeneral is reported by sources that have no category breakdown.
const CategoryGeneral = "General"

// Source is one scraping collaborator. Fetch may fail or time out, and two
// calls may return different results.
type Source interface {
	Name() model.Source
	Fetch(ctx context.Context, categoryHint string) ([]model.ScrapedItem, error)
}

// cleanKeyword normalises scraped text; it returns "" for text that is not
// a usable keyword.
func cleanKeyword(text string) string {
	keyword := utils.NormalizeKeyword(text)
	if keyword == "" || len([]rune(keyword)) > 200 {
		return ""
	}
	return strings.TrimSpace(keyword)
}
